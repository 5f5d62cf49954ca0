package core

import (
	"context"
	"testing"
)

// memBlockStore is a minimal in-test BlockStore, independent of package
// store so core's tests never import anything outside this package.
type memBlockStore struct {
	blocks    []*Block
	failAfter int // SaveBlock fails once len(blocks) reaches this count; 0 disables
}

func (m *memBlockStore) SaveBlock(ctx context.Context, b *Block) error {
	if m.failAfter > 0 && len(m.blocks) >= m.failAfter {
		return newErr(KindPersistenceFailed, "injected failure")
	}
	cp := *b
	m.blocks = append(m.blocks, &cp)
	return nil
}

func (m *memBlockStore) LoadBlocks(ctx context.Context) ([]*Block, error) {
	out := make([]*Block, len(m.blocks))
	copy(out, m.blocks)
	return out, nil
}

func testChain(t *testing.T) *Chain {
	t.Helper()
	c, err := NewChain(ChainConfig{Difficulty: 1, MiningMaxAttempt: 1_000_000})
	if err != nil {
		t.Fatalf("NewChain: %v", err)
	}
	return c
}

func TestNewChainMinesGenesis(t *testing.T) {
	c := testChain(t)
	if c.Len() != 1 {
		t.Fatalf("expected 1 block (genesis), got %d", c.Len())
	}
	genesis, err := c.Get(0)
	if err != nil {
		t.Fatalf("Get(0): %v", err)
	}
	if genesis.BlockType != BlockGenesis {
		t.Fatalf("expected genesis block type, got %s", genesis.BlockType)
	}
	if genesis.PreviousHash != ZeroHash {
		t.Fatalf("expected genesis previous_hash to be the zero hash")
	}
	if !genesis.hasDifficultyPrefix(1) {
		t.Fatalf("expected genesis hash to satisfy difficulty 1")
	}
}

func TestChainAppendLinksToTip(t *testing.T) {
	c := testChain(t)
	b1, err := c.Append(context.Background(), BlockScan, map[string]interface{}{"sheet_id": "s1"}, []string{"sheet_id"})
	if err != nil {
		t.Fatalf("append 1: %v", err)
	}
	b2, err := c.Append(context.Background(), BlockScan, map[string]interface{}{"sheet_id": "s2"}, []string{"sheet_id"})
	if err != nil {
		t.Fatalf("append 2: %v", err)
	}
	if b2.PreviousHash != b1.Hash {
		t.Fatalf("expected block 2 previous_hash to equal block 1 hash")
	}
	if b1.Index != 1 || b2.Index != 2 {
		t.Fatalf("expected indices 1,2, got %d,%d", b1.Index, b2.Index)
	}
}

func TestChainAppendRejectsUnknownBlockType(t *testing.T) {
	c := testChain(t)
	if _, err := c.Append(context.Background(), BlockType("not_a_real_type"), nil, nil); err == nil {
		t.Fatalf("expected error for unknown block type")
	} else if kind, ok := KindOf(err); !ok || kind != KindInvalidState {
		t.Fatalf("expected invalid_state, got %v", err)
	}
}

func TestChainAppendRollsBackOnPersistenceFailure(t *testing.T) {
	store := &memBlockStore{}
	c, err := NewChain(ChainConfig{Difficulty: 1, MiningMaxAttempt: 1_000_000, Store: store})
	if err != nil {
		t.Fatalf("NewChain: %v", err)
	}
	store.failAfter = len(store.blocks) // fail the very next save
	before := c.Len()
	if _, err := c.Append(context.Background(), BlockScan, map[string]interface{}{"sheet_id": "s1"}, []string{"sheet_id"}); err == nil {
		t.Fatalf("expected persistence error")
	}
	if c.Len() != before {
		t.Fatalf("expected chain length unchanged after rollback, got %d want %d", c.Len(), before)
	}
}

func TestChainValidateDetectsTamperedHash(t *testing.T) {
	c := testChain(t)
	if _, err := c.Append(context.Background(), BlockScan, map[string]interface{}{"sheet_id": "s1"}, []string{"sheet_id"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	res := c.Validate()
	if !res.OK {
		t.Fatalf("expected a fresh chain to validate, got reason %q", res.Reason)
	}

	tampered, err := c.Get(1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	tampered.Data["sheet_id"] = "tampered"

	res = c.Validate()
	if res.OK {
		t.Fatalf("expected validation to fail after tampering with block data")
	}
	if res.ErrorIndex == nil || *res.ErrorIndex != 1 {
		t.Fatalf("expected error at index 1, got %v", res.ErrorIndex)
	}
}

func TestChainFindBySheetAndType(t *testing.T) {
	c := testChain(t)
	c.Append(context.Background(), BlockScan, map[string]interface{}{"sheet_id": "s1"}, []string{"sheet_id"})
	c.Append(context.Background(), BlockScan, map[string]interface{}{"sheet_id": "s2"}, []string{"sheet_id"})
	c.Append(context.Background(), BlockBubble, map[string]interface{}{"sheet_id": "s1"}, []string{"sheet_id"})

	s1Blocks := c.FindBySheet("s1")
	if len(s1Blocks) != 2 {
		t.Fatalf("expected 2 blocks for s1, got %d", len(s1Blocks))
	}
	scans := c.FindByType(BlockScan)
	if len(scans) != 2 {
		t.Fatalf("expected 2 scan blocks, got %d", len(scans))
	}
}

func TestReplayChainRejectsHashMismatch(t *testing.T) {
	store := &memBlockStore{}
	c, err := NewChain(ChainConfig{Difficulty: 1, MiningMaxAttempt: 1_000_000, Store: store})
	if err != nil {
		t.Fatalf("NewChain: %v", err)
	}
	if _, err := c.Append(context.Background(), BlockScan, map[string]interface{}{"sheet_id": "s1"}, []string{"sheet_id"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	store.blocks[1].Data["sheet_id"] = "tampered"

	_, err = ReplayChain(context.Background(), ChainConfig{Difficulty: 1, MiningMaxAttempt: 1_000_000, Store: store})
	if err == nil {
		t.Fatalf("expected replay to reject tampered persisted block")
	}
	if kind, ok := KindOf(err); !ok || kind != KindIntegrityViolation {
		t.Fatalf("expected integrity_violation, got %v", err)
	}
}

func TestReplayChainEmptyStoreMintsGenesis(t *testing.T) {
	store := &memBlockStore{}
	c, err := ReplayChain(context.Background(), ChainConfig{Difficulty: 1, MiningMaxAttempt: 1_000_000, Store: store})
	if err != nil {
		t.Fatalf("ReplayChain: %v", err)
	}
	if c.Len() != 1 {
		t.Fatalf("expected a fresh genesis block, got length %d", c.Len())
	}
}

func TestChainProofMatchesStoredMerkleRoot(t *testing.T) {
	c := testChain(t)
	b, err := c.Append(context.Background(), BlockScan, map[string]interface{}{"sheet_id": "s1", "roll_number": "r1"}, []string{"sheet_id", "roll_number"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	_, root, err := c.Proof(b.Index)
	if err != nil {
		t.Fatalf("proof: %v", err)
	}
	if root != b.MerkleRoot {
		t.Fatalf("proof root %s does not match stored merkle root %s", root, b.MerkleRoot)
	}
}
