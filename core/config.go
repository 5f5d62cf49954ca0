package core

import "time"

// Config bundles everything the Lifecycle engine needs beyond its
// collaborator interfaces (spec §2/§6 Configuration). Concrete values are
// loaded by package pkg/config from YAML and environment (cmd/omrledgerd
// copies them onto DefaultConfig()), the same
// split the teacher keeps between core types and its own config loader.
type Config struct {
	Difficulty       int
	MiningMaxAttempt uint64

	SignerAuthority SignerAuthority
	RetryPolicy     RetryPolicy

	QualityRejectThreshold  float64 // quality_score below this, or recoverable=false -> quality_rejected
	ReconstructionThreshold float64 // quality_score below this, when not rejected -> requires_reconstruction; at or above it (and recoverable) -> approved
	SevereDamageThreshold   int     // severe_count above this -> requires_human_intervention

	ResultVerifyBaseURL string // spec §6 QR payload verify_url prefix

	PresignTTL time.Duration
}

// DefaultConfig mirrors the original quality_service.py thresholds recorded
// in SPEC_FULL.md §9 (supplemented features): approval needs
// quality_score >= 0.7 and is_recoverable; requires_human_intervention fires
// on !is_recoverable, severe_count > 3, or quality_score < 0.5; anything
// in between is routed to reconstruction.
func DefaultConfig() Config {
	return Config{
		Difficulty:              4,
		MiningMaxAttempt:        defaultMiningMaxAttempts,
		RetryPolicy:             DefaultRetryPolicy(),
		QualityRejectThreshold:  0.5,
		ReconstructionThreshold: 0.7,
		SevereDamageThreshold:   3,
		PresignTTL:              15 * time.Minute,
	}
}
