package core

import "testing"

func TestCanonicalJSONKeyOrder(t *testing.T) {
	a := map[string]interface{}{"b": 1, "a": 2, "c": 3}
	b := map[string]interface{}{"c": 3, "a": 2, "b": 1}
	ja, err := CanonicalJSON(a)
	if err != nil {
		t.Fatalf("canonical json a: %v", err)
	}
	jb, err := CanonicalJSON(b)
	if err != nil {
		t.Fatalf("canonical json b: %v", err)
	}
	if string(ja) != string(jb) {
		t.Fatalf("expected identical canonical output, got %s vs %s", ja, jb)
	}
	if string(ja) != `{"a":2,"b":1,"c":3}` {
		t.Fatalf("unexpected canonical form: %s", ja)
	}
}

func TestCanonicalJSONNestedMaps(t *testing.T) {
	v := map[string]interface{}{
		"outer": map[string]interface{}{"z": 1, "y": 2},
	}
	got, err := CanonicalJSON(v)
	if err != nil {
		t.Fatalf("canonical json: %v", err)
	}
	want := `{"outer":{"y":2,"z":1}}`
	if string(got) != want {
		t.Fatalf("got %s want %s", got, want)
	}
}

func TestHashCanonicalDeterministic(t *testing.T) {
	v1 := map[string]interface{}{"x": 1, "y": "hello"}
	v2 := map[string]interface{}{"y": "hello", "x": 1}
	h1, err := HashCanonical(v1)
	if err != nil {
		t.Fatalf("hash v1: %v", err)
	}
	h2, err := HashCanonical(v2)
	if err != nil {
		t.Fatalf("hash v2: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("expected equal hashes for equivalent maps, got %s vs %s", h1, h2)
	}
	if len(h1) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(h1))
	}
}

func TestSha256HexKnownVector(t *testing.T) {
	got := Sha256Hex([]byte("abc"))
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got != want {
		t.Fatalf("sha256(abc) = %s, want %s", got, want)
	}
}

func TestGenesisPreviousHashIsZeroHash(t *testing.T) {
	if GenesisPreviousHash() != ZeroHash {
		t.Fatalf("expected GenesisPreviousHash to equal ZeroHash")
	}
	if len(ZeroHash) != 64 {
		t.Fatalf("expected 64 zero hex digits, got %d", len(ZeroHash))
	}
}
