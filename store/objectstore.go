package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"omrledger/core"
)

// FSObjectStore is a filesystem-backed core.ObjectStore, the local-disk
// counterpart to the teacher's diskLRU cache in core/storage.go (content
// addressed files under a base directory, no eviction since every sheet
// image is retained for the lifetime of the ledger). Presign has no
// external gateway to delegate to, so it returns a direct file:// URL
// rather than a time-limited signed link; a real S3/Arweave backend would
// replace this file for the "s3" ObjectStore.Backend config option.
type FSObjectStore struct {
	baseDir string
	mu      sync.Mutex
}

func NewFSObjectStore(baseDir string) (*FSObjectStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create object store base dir: %w", err)
	}
	return &FSObjectStore{baseDir: baseDir}, nil
}

func (f *FSObjectStore) path(key string) string {
	return filepath.Join(f.baseDir, filepath.FromSlash(key))
}

// Put writes data under key, alongside a sidecar .meta.json file holding
// metadata, and returns a file:// URL naming the stored object.
func (f *FSObjectStore) Put(ctx context.Context, key string, data []byte, metadata map[string]string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p := f.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", core.WrapError(core.KindExternalFailed, "create object directory", err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", core.WrapError(core.KindExternalFailed, "write object", err)
	}
	if len(metadata) > 0 {
		meta, err := json.Marshal(metadata)
		if err != nil {
			return "", core.WrapError(core.KindExternalFailed, "marshal object metadata", err)
		}
		if err := os.WriteFile(p+".meta.json", meta, 0o644); err != nil {
			return "", core.WrapError(core.KindExternalFailed, "write object metadata", err)
		}
	}
	return "file://" + p, nil
}

func (f *FSObjectStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.NewError(core.KindNotFound, fmt.Sprintf("object %s not found", key))
		}
		return nil, core.WrapError(core.KindExternalFailed, "read object", err)
	}
	return data, nil
}

// Presign returns a direct file:// reference; ttl is accepted for
// interface compatibility with a networked backend but has no effect here.
func (f *FSObjectStore) Presign(ctx context.Context, key string, ttl time.Duration) (string, error) {
	p := f.path(key)
	if _, err := os.Stat(p); err != nil {
		if os.IsNotExist(err) {
			return "", core.NewError(core.KindNotFound, fmt.Sprintf("object %s not found", key))
		}
		return "", core.WrapError(core.KindExternalFailed, "stat object", err)
	}
	return "file://" + p, nil
}

// Verify recomputes the sha256 of the stored object and compares it
// against expectedHash, the same content-addressing check core.Lifecycle
// relies on before trusting a previously stored scan image.
func (f *FSObjectStore) Verify(ctx context.Context, key string, expectedHash string) (bool, error) {
	data, err := f.Get(ctx, key)
	if err != nil {
		return false, err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]) == expectedHash, nil
}

var _ core.ObjectStore = (*FSObjectStore)(nil)
