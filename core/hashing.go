package core

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode/utf16"
)

// CanonicalJSON serializes v deterministically: object keys sorted
// lexicographically, no insignificant whitespace, non-ASCII escaped. Every
// content hash and signature hash in this package flows through it, so that
// hashing never silently diverges between call sites (Design Note §9).
func CanonicalJSON(v interface{}) ([]byte, error) {
	norm, err := normalize(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(true)
	if err := enc.Encode(norm); err != nil {
		return nil, err
	}
	// json.Encoder.Encode appends a trailing newline; canonical form has none.
	raw := bytes.TrimRight(buf.Bytes(), "\n")
	// encoding/json writes non-ASCII runes as raw UTF-8; escape them as
	// \uXXXX (surrogate pairs above the BMP).
	var out bytes.Buffer
	for _, r := range string(raw) {
		switch {
		case r < 0x80:
			out.WriteRune(r)
		case r > 0xFFFF:
			hi, lo := utf16.EncodeRune(r)
			fmt.Fprintf(&out, `\u%04x\u%04x`, hi, lo)
		default:
			fmt.Fprintf(&out, `\u%04x`, r)
		}
	}
	return out.Bytes(), nil
}

// normalize round-trips v through encoding/json using a sorted-map
// representation so that nested maps, structs and slices all serialize with
// deterministic key order. encoding/json already sorts map[string]X keys,
// but struct fields follow declaration order and nested maps-of-maps need
// the same treatment recursively, so we decode into map[string]interface{}
// (which re-sorts on the way back out) wherever a map is encountered.
func normalize(v interface{}) (interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}
	return sortedValue(generic), nil
}

// sortedValue rebuilds maps as an ordered structure is unnecessary in Go's
// encoding/json (map[string]interface{} already marshals with sorted keys),
// so this simply walks the tree to ensure nested maps keep that guarantee.
func sortedValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out[k] = sortedValue(t[k])
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = sortedValue(e)
		}
		return out
	default:
		return t
	}
}

// Sha256Hex returns the lowercase hex SHA-256 digest of b.
func Sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// HashCanonical canonicalizes v and returns its hex SHA-256 digest. This is
// the single routine every hash-producing site in this module calls.
func HashCanonical(v interface{}) (string, error) {
	raw, err := CanonicalJSON(v)
	if err != nil {
		return "", err
	}
	return Sha256Hex(raw), nil
}

// ZeroHash is the previous_hash of the genesis block: 64 hex zero digits.
var ZeroHash = strings.Repeat("0", 64)

// GenesisPreviousHash returns the fixed 64-zero previous_hash used by the
// genesis block.
func GenesisPreviousHash() string { return ZeroHash }
