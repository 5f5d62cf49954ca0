package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// ServerConfig is the minimal set of values the HTTP front end needs to
// bind a listener, loaded straight from .env the way the teacher's
// walletserver/config.Load does for its own standalone HTTP server.
type ServerConfig struct {
	Addr string
}

// AppConfig holds the values loaded by Load.
var AppConfig ServerConfig

// Load reads .env (if present; a missing file is not an error, matching
// local-dev-optional .env conventions) and resolves HTTP_ADDR, defaulting
// to ":8080".
func Load() error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("loading env: %w", err)
	}
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	AppConfig = ServerConfig{Addr: addr}
	return nil
}
