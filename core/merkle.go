package core

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// BuildMerkleTree returns the level-by-level node hashes of a Merkle tree
// built over leaves, in the order supplied. Each leaf is hashed with
// SHA-256; odd levels duplicate their last node before pairing, matching
// the teacher's core.BuildMerkleTree. The final slice is the single root.
func BuildMerkleTree(leaves [][]byte) ([][][32]byte, error) {
	if len(leaves) == 0 {
		return nil, errors.New("merkle: no leaves")
	}

	level := make([][32]byte, len(leaves))
	for i, l := range leaves {
		level[i] = sha256.Sum256(l)
	}

	tree := [][][32]byte{level}
	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([][32]byte, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			combined := append(append([]byte{}, level[i][:]...), level[i+1][:]...)
			next[i/2] = sha256.Sum256(combined)
		}
		tree = append(tree, next)
		level = next
	}
	return tree, nil
}

// MerkleRootHex computes the Merkle root over leaves and returns it as a
// lowercase hex string. A nil/empty leaf set hashes to the SHA-256 of the
// empty byte string, matching the original engine's empty-data convention.
func MerkleRootHex(leaves [][]byte) string {
	if len(leaves) == 0 {
		empty := sha256.Sum256(nil)
		return hex.EncodeToString(empty[:])
	}
	tree, err := BuildMerkleTree(leaves)
	if err != nil {
		empty := sha256.Sum256(nil)
		return hex.EncodeToString(empty[:])
	}
	root := tree[len(tree)-1][0]
	return hex.EncodeToString(root[:])
}

// MerkleProof returns a bottom-up proof for the leaf at index, alongside the
// root. Each proof step is the sibling hash needed to recompute the parent.
func MerkleProof(leaves [][]byte, index int) ([][]byte, string, error) {
	if len(leaves) == 0 {
		return nil, "", errors.New("merkle: no leaves")
	}
	if index < 0 || index >= len(leaves) {
		return nil, "", errors.New("merkle: index out of range")
	}
	tree, err := BuildMerkleTree(leaves)
	if err != nil {
		return nil, "", err
	}
	proof := make([][]byte, 0, len(tree)-1)
	idx := index
	for i := 0; i < len(tree)-1; i++ {
		level := tree[i]
		if idx%2 == 0 {
			// The last node of an odd level is paired with itself.
			sib := level[idx]
			if idx+1 < len(level) {
				sib = level[idx+1]
			}
			proof = append(proof, sib[:])
		} else {
			sib := level[idx-1]
			proof = append(proof, sib[:])
		}
		idx /= 2
	}
	root := tree[len(tree)-1][0]
	return proof, hex.EncodeToString(root[:]), nil
}

// dataMerkleRoot computes the block-data Merkle root per spec §3: the root
// of the block's data map values, string-coerced in insertion order.
func dataMerkleRoot(order []string, data map[string]interface{}) string {
	leaves := make([][]byte, 0, len(order))
	for _, k := range order {
		leaves = append(leaves, []byte(coerceString(data[k])))
	}
	return MerkleRootHex(leaves)
}
