package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"omrledger/aiclient"
	"omrledger/audit"
	"omrledger/core"
	"omrledger/httpapi/routes"
	"omrledger/httpapi/services"
	"omrledger/pkg/config"
	"omrledger/store"
)

func main() {
	rootCmd := &cobra.Command{Use: "omrledgerd"}
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(validateChainCmd())
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var env string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run the OMR ledger HTTP API, replaying the chain from persistence on start",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			cfg, err := config.Load(env)
			if err != nil {
				return err
			}
			setupLogging(cfg)

			repo, blockStore, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}

			metrics := core.NewMetrics()
			chain, err := core.ReplayChain(ctx, core.ChainConfig{
				Difficulty:       cfg.Ledger.Difficulty,
				MiningMaxAttempt: cfg.Ledger.MiningMaxAttempt,
				Store:            blockStore,
				Metrics:          metrics,
			})
			if err != nil {
				return fmt.Errorf("replay chain: %w", err)
			}

			auditLogger, err := audit.NewLogger(cfg.Audit.LogDir)
			if err != nil {
				return fmt.Errorf("open audit logger: %w", err)
			}

			objects, err := store.NewFSObjectStore(cfg.ObjectStore.BaseDir)
			if err != nil {
				return err
			}

			lifecycleCfg := core.DefaultConfig()
			lifecycleCfg.Difficulty = cfg.Ledger.Difficulty
			lifecycleCfg.ResultVerifyBaseURL = cfg.HTTP.ResultVerifyBase
			lifecycleCfg.SignerAuthority = core.SignerAuthority{
				core.SignerAIVerifier:      cfg.Signers.AIVerifierKey,
				core.SignerHumanVerifier:   cfg.Signers.HumanVerifierKey,
				core.SignerAdminController: cfg.Signers.AdminControllerKey,
			}

			ai := aiclient.New(cfg.AI.Endpoint, cfg.AI.APIKey, 0)
			retryPolicy := core.DefaultRetryPolicy()
			if cfg.AI.MaxRetries > 0 {
				retryPolicy.MaxAttempts = cfg.AI.MaxRetries
			}
			provider := core.NewRetryingAIProvider(ai, retryPolicy, core.MockAIProvider{})

			stripes := cfg.Ledger.LockStripes
			if stripes <= 0 {
				stripes = 64
			}
			life := core.NewLifecycle(chain, repo, auditLogger, provider, objects, lifecycleCfg, stripes)
			life.SetMetrics(metrics)
			svc := services.New(chain, repo, life)

			r := mux.NewRouter()
			routes.Register(r, svc, metrics.Registry())

			addr := cfg.HTTP.Addr
			if addr == "" {
				addr = ":8080"
			}
			logrus.WithField("addr", addr).Info("omrledgerd listening")
			return http.ListenAndServe(addr, r)
		},
	}
	cmd.Flags().StringVar(&env, "env", "", "environment overlay (e.g. production, staging)")
	return cmd
}

func validateChainCmd() *cobra.Command {
	var env string
	cmd := &cobra.Command{
		Use:   "validate-chain",
		Short: "replay the persisted chain and report whether every invariant holds",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			cfg, err := config.Load(env)
			if err != nil {
				return err
			}
			_, blockStore, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			chain, err := core.ReplayChain(ctx, core.ChainConfig{
				Difficulty:       cfg.Ledger.Difficulty,
				MiningMaxAttempt: cfg.Ledger.MiningMaxAttempt,
				Store:            blockStore,
			})
			if err != nil {
				fmt.Printf("replay failed: %v\n", err)
				os.Exit(1)
			}
			result := chain.Validate()
			if !result.OK {
				fmt.Printf("chain invalid at block %d: %s\n", *result.ErrorIndex, result.Reason)
				os.Exit(1)
			}
			fmt.Println("chain valid")
			return nil
		},
	}
	cmd.Flags().StringVar(&env, "env", "", "environment overlay (e.g. production, staging)")
	return cmd
}

// openStore returns the same backing object as both a core.Repository and
// a core.BlockStore, since both stores implement both interfaces.
func openStore(ctx context.Context, cfg *config.Config) (core.Repository, core.BlockStore, error) {
	if cfg.Database.InMemory {
		m := store.NewMemoryStore()
		return m, m, nil
	}
	pg, err := store.Connect(ctx, store.Config{
		DSN:          cfg.Database.DSN,
		MaxOpenConns: cfg.Database.MaxOpenConns,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	return pg, pg, nil
}

func setupLogging(cfg *config.Config) {
	if cfg.Logging.Level != "" {
		if lvl, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
			logrus.SetLevel(lvl)
		}
	}
	if cfg.Logging.File != "" {
		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err == nil {
			logrus.SetOutput(f)
		}
	}
}
