package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// BlockType is the closed set of ledger entry kinds (spec §3).
type BlockType string

const (
	BlockGenesis              BlockType = "genesis"
	BlockScan                 BlockType = "scan"
	BlockBubble               BlockType = "bubble"
	BlockScore                BlockType = "score"
	BlockVerify               BlockType = "verify"
	BlockResult               BlockType = "result"
	BlockRecheck              BlockType = "recheck"
	BlockQualityAssessment    BlockType = "quality_assessment"
	BlockQualityHumanReview   BlockType = "quality_human_review"
	BlockQuestionPaperUpload  BlockType = "question_paper_upload"
	BlockAnswerKeyVerified    BlockType = "answer_key_verified"
	BlockAnswerKeyApproved    BlockType = "answer_key_approved"
	BlockEvaluation           BlockType = "evaluation"
	BlockHumanIntervention    BlockType = "human_intervention"
)

// validBlockTypes backs IsValid; kept separate from the const block so the
// closed-set check doesn't depend on reflection or string literals drifting.
var validBlockTypes = map[BlockType]bool{
	BlockGenesis: true, BlockScan: true, BlockBubble: true, BlockScore: true,
	BlockVerify: true, BlockResult: true, BlockRecheck: true,
	BlockQualityAssessment: true, BlockQualityHumanReview: true,
	BlockQuestionPaperUpload: true, BlockAnswerKeyVerified: true,
	BlockAnswerKeyApproved: true, BlockEvaluation: true, BlockHumanIntervention: true,
}

// IsValid reports whether t belongs to the closed set of block types.
func (t BlockType) IsValid() bool { return validBlockTypes[t] }

// Block is one ledger entry. Data keys must be unique (it is a Go map) and
// DataOrder preserves the insertion order used for the Merkle root and the
// canonical hash, since Go map iteration order is not stable.
type Block struct {
	Index        uint64                 `json:"index"`
	Timestamp    string                 `json:"timestamp"`
	BlockType    BlockType              `json:"block_type"`
	Data         map[string]interface{} `json:"data"`
	DataOrder    []string               `json:"-"`
	PreviousHash string                 `json:"previous_hash"`
	MerkleRoot   string                 `json:"merkle_root"`
	Nonce        uint64                 `json:"nonce"`
	Hash         string                 `json:"hash"`
	Signatures   []Signature            `json:"signatures"`
}

// hashPayload is the exact field set hashed for Block.Hash (spec §3):
// index, timestamp, block_type, data, previous_hash, nonce, merkle_root.
type hashPayload struct {
	Index        uint64                 `json:"index"`
	Timestamp    string                 `json:"timestamp"`
	BlockType    BlockType              `json:"block_type"`
	Data         map[string]interface{} `json:"data"`
	PreviousHash string                 `json:"previous_hash"`
	Nonce        uint64                 `json:"nonce"`
	MerkleRoot   string                 `json:"merkle_root"`
}

// computeHash recomputes the canonical SHA-256 hash of b's hashPayload.
func (b *Block) computeHash() (string, error) {
	return HashCanonical(hashPayload{
		Index:        b.Index,
		Timestamp:    b.Timestamp,
		BlockType:    b.BlockType,
		Data:         b.Data,
		PreviousHash: b.PreviousHash,
		Nonce:        b.Nonce,
		MerkleRoot:   b.MerkleRoot,
	})
}

// newBlock builds an unmined block: timestamp, merkle root over data
// (insertion order from order), and a zero nonce/hash ready for mine().
func newBlock(index uint64, blockType BlockType, data map[string]interface{}, order []string, previousHash string) *Block {
	if data == nil {
		data = map[string]interface{}{}
	}
	return &Block{
		Index:        index,
		Timestamp:    time.Now().UTC().Format(time.RFC3339Nano),
		BlockType:    blockType,
		Data:         data,
		DataOrder:    order,
		PreviousHash: previousHash,
		MerkleRoot:   dataMerkleRoot(order, data),
	}
}

// mine increments Nonce from 0 until Hash begins with difficulty '0' hex
// digits, bounded by maxAttempts (spec §5: "bound nonce attempts"). A
// difficulty of 0 mines on the first attempt — the chain still validates,
// it simply carries no proof-of-work prefix requirement (spec §8 boundary).
func (b *Block) mine(difficulty int, maxAttempts uint64) error {
	prefix := strings.Repeat("0", difficulty)
	for attempt := uint64(0); attempt < maxAttempts; attempt++ {
		b.Nonce = attempt
		h, err := b.computeHash()
		if err != nil {
			return err
		}
		if strings.HasPrefix(h, prefix) {
			b.Hash = h
			return nil
		}
	}
	return newErr(KindMiningBudgetExceeded, fmt.Sprintf("no hash with %d leading zeros found within %d attempts", difficulty, maxAttempts))
}

// verifyOwnHash recomputes b's hash and compares it against the stored
// value, used by chain validation and replay.
func (b *Block) verifyOwnHash() (bool, error) {
	h, err := b.computeHash()
	if err != nil {
		return false, err
	}
	return h == b.Hash, nil
}

// hasDifficultyPrefix reports whether b.Hash begins with difficulty zeros.
func (b *Block) hasDifficultyPrefix(difficulty int) bool {
	return strings.HasPrefix(b.Hash, strings.Repeat("0", difficulty))
}

// coerceString string-coerces an arbitrary data value the way the original
// engine's `str(v)` does for Python values, for Merkle leaf hashing.
func coerceString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return "None"
	case string:
		return t
	case bool:
		if t {
			return "True"
		}
		return "False"
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'g', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	default:
		return fmt.Sprintf("%v", t)
	}
}
