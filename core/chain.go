package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// BlockStore is the narrow persistence hook the chain calls inside its
// append critical section (spec §4.1/§5: "a persistence hook writes the
// block to the relational store in the same critical section"). The
// concrete implementation lives in package store; core only depends on
// this interface to stay free of a database import, mirroring the
// teacher's practice of keeping core package dependencies narrow
// (core/ledger.go only touches the filesystem directly, never a driver).
type BlockStore interface {
	SaveBlock(ctx context.Context, b *Block) error
	LoadBlocks(ctx context.Context) ([]*Block, error)
}

// ChainConfig configures a Chain at construction.
type ChainConfig struct {
	Difficulty      int    // leading hex zero digits required (DefaultConfig uses 4; 0 disables the prefix check)
	MiningMaxAttempt uint64 // nonce bound before mining_budget_exceeded (spec §5)
	Store           BlockStore
	Metrics         *Metrics // optional; nil disables mining metrics
}

const defaultMiningMaxAttempts = 10_000_000 // spec §5 suggests 10^7

// Chain is the in-memory, append-only ledger. It is the single
// process-wide singleton described in Design Note §9 once wrapped by
// InitChain/CurrentChain in singleton.go; Chain itself has no global state
// so it remains independently testable.
type Chain struct {
	mu     sync.Mutex // chain-wide exclusive lock for append (spec §5 #1)
	blocks []*Block
	byHash map[string]*Block

	difficulty int
	maxAttempt uint64
	store      BlockStore
	metrics    *Metrics
}

// NewChain creates an empty chain and mines its genesis block.
func NewChain(cfg ChainConfig) (*Chain, error) {
	if cfg.MiningMaxAttempt == 0 {
		cfg.MiningMaxAttempt = defaultMiningMaxAttempts
	}
	c := &Chain{
		byHash:     make(map[string]*Block),
		difficulty: cfg.Difficulty,
		maxAttempt: cfg.MiningMaxAttempt,
		store:      cfg.Store,
		metrics:    cfg.Metrics,
	}
	genesis := newBlock(0, BlockGenesis, map[string]interface{}{"message": "OMR evaluation ledger genesis block"}, []string{"message"}, GenesisPreviousHash())
	if err := genesis.mine(c.difficulty, c.maxAttempt); err != nil {
		return nil, err
	}
	if c.store != nil {
		if err := c.store.SaveBlock(context.Background(), genesis); err != nil {
			return nil, wrapErr(KindPersistenceFailed, "persist genesis block", err)
		}
	}
	c.blocks = append(c.blocks, genesis)
	c.byHash[genesis.Hash] = genesis
	c.metrics.observeBlockMined(genesis.BlockType, genesis.Nonce+1)
	return c, nil
}

// ReplayChain rebuilds a Chain from persisted blocks in index order (spec
// §4.4 Replay contract). It halts on the first invariant mismatch with an
// integrity_violation error, the same halt-and-surface semantics the
// teacher's NewLedger applies when its WAL fails to unmarshal.
func ReplayChain(ctx context.Context, cfg ChainConfig) (*Chain, error) {
	if cfg.Store == nil {
		return nil, newErr(KindInvalidState, "replay requires a configured store")
	}
	if cfg.MiningMaxAttempt == 0 {
		cfg.MiningMaxAttempt = defaultMiningMaxAttempts
	}
	persisted, err := cfg.Store.LoadBlocks(ctx)
	if err != nil {
		return nil, wrapErr(KindPersistenceFailed, "load persisted blocks", err)
	}
	c := &Chain{
		byHash:     make(map[string]*Block),
		difficulty: cfg.Difficulty,
		maxAttempt: cfg.MiningMaxAttempt,
		store:      cfg.Store,
		metrics:    cfg.Metrics,
	}
	if len(persisted) == 0 {
		return NewChain(cfg)
	}
	for i, b := range persisted {
		if uint64(i) != b.Index {
			return nil, newErr(KindIntegrityViolation, fmt.Sprintf("replay: block at position %d has index %d", i, b.Index))
		}
		if i == 0 {
			if b.PreviousHash != GenesisPreviousHash() {
				return nil, newErr(KindIntegrityViolation, "replay: genesis previous_hash mismatch")
			}
		} else if b.PreviousHash != persisted[i-1].Hash {
			return nil, newErr(KindIntegrityViolation, fmt.Sprintf("replay: block %d previous_hash does not match block %d hash", i, i-1))
		}
		ok, err := b.verifyOwnHash()
		if err != nil {
			return nil, wrapErr(KindIntegrityViolation, "replay: recompute hash", err)
		}
		if !ok {
			return nil, newErr(KindIntegrityViolation, fmt.Sprintf("replay: block %d hash mismatch", i))
		}
		if !b.hasDifficultyPrefix(cfg.Difficulty) {
			return nil, newErr(KindIntegrityViolation, fmt.Sprintf("replay: block %d missing difficulty prefix", i))
		}
		c.byHash[b.Hash] = b
	}
	c.blocks = persisted
	logrus.WithField("blocks", len(c.blocks)).Info("chain replayed from persistence")
	return c, nil
}

// Append mines and appends a new block under the chain mutex, persisting it
// in the same critical section. On a persistence failure the in-memory
// append is rolled back so the tip never lies (spec §4.1 Failure semantics).
func (c *Chain) Append(ctx context.Context, blockType BlockType, data map[string]interface{}, order []string) (*Block, error) {
	if !blockType.IsValid() {
		return nil, newErr(KindInvalidState, fmt.Sprintf("unknown block type %q", blockType))
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	tip := c.blocks[len(c.blocks)-1]
	blk := newBlock(uint64(len(c.blocks)), blockType, data, order, tip.Hash)
	if err := blk.mine(c.difficulty, c.maxAttempt); err != nil {
		return nil, err
	}
	if c.store != nil {
		if err := c.store.SaveBlock(ctx, blk); err != nil {
			// Roll back: nothing was appended to c.blocks yet, so there is
			// nothing to undo beyond returning the durable-write error.
			return nil, wrapErr(KindPersistenceFailed, "persist block", err)
		}
	}
	c.blocks = append(c.blocks, blk)
	c.byHash[blk.Hash] = blk
	c.metrics.observeBlockMined(blk.BlockType, blk.Nonce+1)
	return blk, nil
}

// Len returns the current number of blocks, read under the chain lock.
func (c *Chain) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.blocks)
}

// Get returns the block at index, or a not_found error.
func (c *Chain) Get(index uint64) (*Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index >= uint64(len(c.blocks)) {
		return nil, newErr(KindNotFound, fmt.Sprintf("block %d not found", index))
	}
	return c.blocks[index], nil
}

// GetByHash returns the block with the given hash.
func (c *Chain) GetByHash(hash string) (*Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.byHash[hash]
	if !ok {
		return nil, newErr(KindNotFound, fmt.Sprintf("block with hash %s not found", hash))
	}
	return b, nil
}

// FindBySheet returns every block whose data map carries the given
// sheet_id. Linear scan is acceptable per spec §4.1 at expected sizes.
func (c *Chain) FindBySheet(sheetID string) []*Block {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*Block
	for _, b := range c.blocks {
		if v, ok := b.Data["sheet_id"]; ok {
			if s, ok := v.(string); ok && s == sheetID {
				out = append(out, b)
			}
		}
	}
	return out
}

// FindByType returns every block of the given type, oldest first.
func (c *Chain) FindByType(t BlockType) []*Block {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*Block
	for _, b := range c.blocks {
		if b.BlockType == t {
			out = append(out, b)
		}
	}
	return out
}

// Proof returns a Merkle proof for the first data leaf of the block at
// index, along with the Merkle root recomputed from its data so a caller
// can check it against the stored MerkleRoot field. A block with no data
// leaves yields a nil proof and its stored MerkleRoot.
func (c *Chain) Proof(index uint64) ([][]byte, string, error) {
	b, err := c.Get(index)
	if err != nil {
		return nil, "", err
	}
	leaves := make([][]byte, 0, len(b.DataOrder))
	for _, k := range b.DataOrder {
		leaves = append(leaves, []byte(coerceString(b.Data[k])))
	}
	if len(leaves) == 0 {
		return nil, b.MerkleRoot, nil
	}
	return leafProof(leaves, 0)
}

func leafProof(leaves [][]byte, index int) ([][]byte, string, error) {
	return MerkleProof(leaves, index)
}

// ValidateResult is the outcome of Validate.
type ValidateResult struct {
	OK         bool
	ErrorIndex *uint64
	Reason     string
}

// Validate walks the chain and checks every per-block invariant plus
// linkage (spec §4.1/§8 invariant 1).
func (c *Chain) Validate() ValidateResult {
	c.mu.Lock()
	blocks := make([]*Block, len(c.blocks))
	copy(blocks, c.blocks)
	c.mu.Unlock()

	for i, b := range blocks {
		if uint64(i) != b.Index {
			idx := uint64(i)
			return ValidateResult{OK: false, ErrorIndex: &idx, Reason: "index out of sequence"}
		}
		ok, err := b.verifyOwnHash()
		if err != nil || !ok {
			idx := uint64(i)
			return ValidateResult{OK: false, ErrorIndex: &idx, Reason: "hash mismatch"}
		}
		if !b.hasDifficultyPrefix(c.difficulty) {
			idx := uint64(i)
			return ValidateResult{OK: false, ErrorIndex: &idx, Reason: "missing difficulty prefix"}
		}
		if i == 0 {
			if b.PreviousHash != GenesisPreviousHash() {
				idx := uint64(i)
				return ValidateResult{OK: false, ErrorIndex: &idx, Reason: "genesis previous_hash is not zero hash"}
			}
			continue
		}
		if b.PreviousHash != blocks[i-1].Hash {
			idx := uint64(i)
			return ValidateResult{OK: false, ErrorIndex: &idx, Reason: "previous_hash does not match predecessor"}
		}
	}
	return ValidateResult{OK: true}
}

// Stats summarizes the chain for /api/blockchain/stats.
type Stats struct {
	TotalBlocks int            `json:"total_blocks"`
	Difficulty  int            `json:"difficulty"`
	TipHash     string         `json:"tip_hash"`
	ByType      map[string]int `json:"by_type"`
}

// Stats returns a point-in-time snapshot of chain composition.
func (c *Chain) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	byType := make(map[string]int)
	for _, b := range c.blocks {
		byType[string(b.BlockType)]++
	}
	tip := ""
	if len(c.blocks) > 0 {
		tip = c.blocks[len(c.blocks)-1].Hash
	}
	return Stats{TotalBlocks: len(c.blocks), Difficulty: c.difficulty, TipHash: tip, ByType: byType}
}
