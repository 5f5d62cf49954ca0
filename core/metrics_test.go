package core

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.observeBlockMined(BlockScan, 42)
	m.observeCommand("create_scan", time.Now(), nil)
	m.observeSignatureRejection(SignerAIVerifier)
}

func TestMetricsObserveBlockMined(t *testing.T) {
	m := NewMetrics()
	m.observeBlockMined(BlockScan, 100)
	m.observeBlockMined(BlockScan, 50)

	got := testutil.ToFloat64(m.blocksMined.WithLabelValues("scan"))
	if got != 2 {
		t.Fatalf("expected 2 blocks mined for scan, got %v", got)
	}
}

func TestMetricsObserveCommandRecordsErrorKind(t *testing.T) {
	m := NewMetrics()
	m.observeCommand("create_scan", time.Now(), newErr(KindInvalidState, "bad state"))

	got := testutil.ToFloat64(m.commandErrors.WithLabelValues("create_scan", string(KindInvalidState)))
	if got != 1 {
		t.Fatalf("expected 1 error recorded, got %v", got)
	}
}

func TestMetricsObserveSignatureRejection(t *testing.T) {
	m := NewMetrics()
	m.observeSignatureRejection(SignerHumanVerifier)

	got := testutil.ToFloat64(m.signatureRejections.WithLabelValues(string(SignerHumanVerifier)))
	if got != 1 {
		t.Fatalf("expected 1 signature rejection recorded, got %v", got)
	}
}
