package core

import "testing"

func testAuthority() SignerAuthority {
	return SignerAuthority{
		SignerAIVerifier:      "ai-key",
		SignerHumanVerifier:   "human-key",
		SignerAdminController: "admin-key",
	}
}

func TestSignatureSetFullySignedRequiresAllThree(t *testing.T) {
	set := NewSignatureSet("sheet-1", "payload-hash", testAuthority())
	if set.FullySigned() {
		t.Fatalf("expected a fresh set to not be fully signed")
	}
	if len(set.Missing()) != 3 {
		t.Fatalf("expected all 3 types missing, got %d", len(set.Missing()))
	}

	if _, err := set.Add(SignerAIVerifier, "ai-key"); err != nil {
		t.Fatalf("add ai signature: %v", err)
	}
	if set.FullySigned() {
		t.Fatalf("expected not fully signed after 1 of 3")
	}

	if _, err := set.Add(SignerHumanVerifier, "human-key"); err != nil {
		t.Fatalf("add human signature: %v", err)
	}
	if _, err := set.Add(SignerAdminController, "admin-key"); err != nil {
		t.Fatalf("add admin signature: %v", err)
	}
	if !set.FullySigned() {
		t.Fatalf("expected fully signed after all 3 signer types added")
	}
}

func TestSignatureSetRejectsUnauthorizedKey(t *testing.T) {
	set := NewSignatureSet("sheet-1", "payload-hash", testAuthority())
	if _, err := set.Add(SignerAIVerifier, "wrong-key"); err == nil {
		t.Fatalf("expected error for unauthorized signer key")
	}
}

func TestSignatureSetRejectsUnknownSignerType(t *testing.T) {
	set := NewSignatureSet("sheet-1", "payload-hash", testAuthority())
	if _, err := set.Add(SignerType("not-a-real-type"), "whatever"); err == nil {
		t.Fatalf("expected error for unknown signer type")
	}
}

func TestSignatureSetRejectsDuplicateApproval(t *testing.T) {
	set := NewSignatureSet("sheet-1", "payload-hash", testAuthority())
	if _, err := set.Add(SignerAIVerifier, "ai-key"); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if _, err := set.Add(SignerAIVerifier, "ai-key"); err == nil {
		t.Fatalf("expected already_exists on duplicate approval for the same signer type")
	} else if kind, ok := KindOf(err); !ok || kind != KindAlreadyExists {
		t.Fatalf("expected already_exists, got %v", err)
	}
}

func TestSignatureSetApprovalProofRequiresFullySigned(t *testing.T) {
	set := NewSignatureSet("sheet-1", "payload-hash", testAuthority())
	if _, err := set.ApprovalProof(); err == nil {
		t.Fatalf("expected signatures_incomplete before all signatures collected")
	} else if kind, ok := KindOf(err); !ok || kind != KindSignaturesIncomplete {
		t.Fatalf("expected signatures_incomplete, got %v", err)
	}

	for _, st := range RequiredSignerTypes {
		key := map[SignerType]string{SignerAIVerifier: "ai-key", SignerHumanVerifier: "human-key", SignerAdminController: "admin-key"}[st]
		if _, err := set.Add(st, key); err != nil {
			t.Fatalf("add %s: %v", st, err)
		}
	}
	proof, err := set.ApprovalProof()
	if err != nil {
		t.Fatalf("approval proof: %v", err)
	}
	if len(proof) != 64 {
		t.Fatalf("expected 64-char hex approval proof, got %d", len(proof))
	}
}

func TestRestoreSignatureSetResumesInProgressAttempt(t *testing.T) {
	authority := testAuthority()
	first := NewSignatureSet("sheet-1", "payload-hash", authority)
	sig, err := first.Add(SignerAIVerifier, "ai-key")
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	restored := RestoreSignatureSet("sheet-1", "payload-hash", authority, []Signature{*sig})
	if restored.FullySigned() {
		t.Fatalf("expected restored set to still be missing 2 signer types")
	}
	missing := restored.Missing()
	if len(missing) != 2 {
		t.Fatalf("expected 2 missing types, got %d", len(missing))
	}
	if _, err := restored.Add(SignerAIVerifier, "ai-key"); err == nil {
		t.Fatalf("expected duplicate approval to be rejected after restore")
	}
}
