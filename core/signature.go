package core

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SignerType is one of the three required approval roles (spec §4.3).
type SignerType string

const (
	SignerAIVerifier      SignerType = "ai-verifier"
	SignerHumanVerifier   SignerType = "human-verifier"
	SignerAdminController SignerType = "admin-controller"
)

// RequiredSignerTypes is the fixed, ordered set of signer types a
// verification must collect. Order matters only for deterministic
// "missing types" reporting, not for the signature hash itself.
var RequiredSignerTypes = []SignerType{SignerAIVerifier, SignerHumanVerifier, SignerAdminController}

// SignatureStatus mirrors spec §3's Signature.status.
type SignatureStatus string

const (
	SignatureStatusPending  SignatureStatus = "pending"
	SignatureStatusApproved SignatureStatus = "approved"
	SignatureStatusRejected SignatureStatus = "rejected"
)

// Signature is an embedded approval token (spec §3).
type Signature struct {
	SignatureID    string          `json:"signature_id"`
	SignerType     SignerType      `json:"signer_type"`
	SignerKey      string          `json:"signer_key"`
	SignedDataHash string          `json:"signed_data_hash"`
	SignatureHash  string          `json:"signature_hash"`
	Status         SignatureStatus `json:"status"`
	SignedAt       string          `json:"signed_at"`
}

// signaturePayload is hashed to derive SignatureHash, field order and names
// taken directly from the original Signature._generate_signature.
type signaturePayload struct {
	SignerType SignerType `json:"signer_type"`
	SignerKey  string     `json:"signer_key"`
	DataHash   string     `json:"data_hash"`
	Timestamp  string     `json:"timestamp"`
}

// SignerAuthority resolves the single authorized key for each signer type,
// loaded from configuration (spec §6 Configuration: "the three authorized
// signer keys").
type SignerAuthority map[SignerType]string

// SignatureSet holds the signatures collected for one pending verification
// attempt on one sheet (spec §4.3). A fresh SignatureSet must be created for
// each new verification attempt; rejection of one attempt never taints the
// next (spec §9 Open Question iii resolution: no cooldown).
type SignatureSet struct {
	SheetID    string
	PayloadHash string // canonical hash of the data being verified
	byType     map[SignerType]*Signature
	authority  SignerAuthority
}

// NewSignatureSet opens a fresh signature collection for sheetID, scoped to
// the canonical hash of the payload the signers are being asked to approve.
func NewSignatureSet(sheetID, payloadHash string, authority SignerAuthority) *SignatureSet {
	return &SignatureSet{
		SheetID:     sheetID,
		PayloadHash: payloadHash,
		byType:      make(map[SignerType]*Signature),
		authority:   authority,
	}
}

// RestoreSignatureSet rebuilds a SignatureSet from signatures already
// persisted for an in-progress verification attempt, so a multi-request
// signing flow (one HTTP call per signer) can resume where it left off
// without re-deriving signature hashes.
func RestoreSignatureSet(sheetID, payloadHash string, authority SignerAuthority, existing []Signature) *SignatureSet {
	s := NewSignatureSet(sheetID, payloadHash, authority)
	for i := range existing {
		sig := existing[i]
		s.byType[sig.SignerType] = &sig
	}
	return s
}

// Add validates and records a signature (spec §4.3 checks 1-3), then derives
// its signature_hash deterministically and marks it approved.
func (s *SignatureSet) Add(signerType SignerType, signerKey string) (*Signature, error) {
	if !isRequiredSignerType(signerType) {
		return nil, newErr(KindInvalidState, fmt.Sprintf("signer type %q is not one of the required types", signerType))
	}
	authorizedKey, ok := s.authority[signerType]
	if !ok || authorizedKey != signerKey {
		return nil, newErr(KindInvalidState, fmt.Sprintf("signer key for %q is not authorized", signerType))
	}
	if existing, ok := s.byType[signerType]; ok && existing.Status == SignatureStatusApproved {
		return nil, newErr(KindAlreadyExists, fmt.Sprintf("an approved signature for %q already exists", signerType))
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	hash, err := HashCanonical(signaturePayload{
		SignerType: signerType,
		SignerKey:  signerKey,
		DataHash:   s.PayloadHash,
		Timestamp:  now,
	})
	if err != nil {
		return nil, err
	}
	sig := &Signature{
		SignatureID:    uuid.NewString(),
		SignerType:     signerType,
		SignerKey:      signerKey,
		SignedDataHash: s.PayloadHash,
		SignatureHash:  hash,
		Status:         SignatureStatusApproved,
		SignedAt:       now,
	}
	s.byType[signerType] = sig
	return sig, nil
}

// Missing returns the required signer types not yet approved, in
// RequiredSignerTypes order.
func (s *SignatureSet) Missing() []SignerType {
	var missing []SignerType
	for _, t := range RequiredSignerTypes {
		sig, ok := s.byType[t]
		if !ok || sig.Status != SignatureStatusApproved || sig.SignedDataHash != s.PayloadHash {
			missing = append(missing, t)
		}
	}
	return missing
}

// FullySigned reports whether every required type is present, approved, and
// bound to the current payload hash (spec §4.3).
func (s *SignatureSet) FullySigned() bool { return len(s.Missing()) == 0 }

// Signatures returns the approved signatures in RequiredSignerTypes order.
func (s *SignatureSet) Signatures() []Signature {
	out := make([]Signature, 0, len(RequiredSignerTypes))
	for _, t := range RequiredSignerTypes {
		if sig, ok := s.byType[t]; ok {
			out = append(out, *sig)
		}
	}
	return out
}

// ApprovalProof emits the deterministic proof hash once fully signed (spec
// §4.3): SHA256(canonical_json({signatures, timestamp, verified:true})).
func (s *SignatureSet) ApprovalProof() (string, error) {
	if !s.FullySigned() {
		return "", newErr(KindSignaturesIncomplete, "cannot produce an approval proof before all signatures are collected")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	return HashCanonical(struct {
		Signatures []Signature `json:"signatures"`
		Timestamp  string      `json:"timestamp"`
		Verified   bool        `json:"verified"`
	}{Signatures: s.Signatures(), Timestamp: now, Verified: true})
}

func isRequiredSignerType(t SignerType) bool {
	for _, r := range RequiredSignerTypes {
		if r == t {
			return true
		}
	}
	return false
}
