package core

import "testing"

func TestHashZKProverGenerateVerifyRoundTrip(t *testing.T) {
	prover := NewHashZKProver()
	proof, err := prover.Generate("some-data-hash")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	ok, err := prover.Verify(proof, "some-data-hash")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatalf("expected proof to verify against the same data hash")
	}
}

func TestHashZKProverRejectsMismatchedDataHash(t *testing.T) {
	prover := NewHashZKProver()
	proof, err := prover.Generate("data-hash-a")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	ok, err := prover.Verify(proof, "data-hash-b")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ok {
		t.Fatalf("expected verification to fail against a different data hash")
	}
}

func TestHashZKProverRejectsUnknownScheme(t *testing.T) {
	prover := NewHashZKProver()
	ok, err := prover.Verify(ZKProof{Scheme: "some-other-scheme", Proof: []byte("x")}, "data-hash")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ok {
		t.Fatalf("expected verification to fail for an unrecognized scheme")
	}
}
