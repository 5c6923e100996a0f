package coordinator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kibbyd/integration-layer/go-coordinator/internal/config"
	"github.com/kibbyd/integration-layer/go-coordinator/internal/fault"
	"github.com/kibbyd/integration-layer/go-coordinator/internal/messaging"
	"github.com/kibbyd/integration-layer/go-coordinator/internal/normalize"
)

func writeModel(t *testing.T, dir, name, payload string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}
	return path
}

// testCoordinator builds a coordinator over a temp database with a primary
// and a fallback model on disk.
func testCoordinator(t *testing.T, mutate func(*config.Config)) *Coordinator {
	t.Helper()
	dir := t.TempDir()

	primary := writeModel(t, dir, "m1.json",
		`{"name":"m1","version":"1.0","bias":0,"weights":{"x":0.1,"y":0.1},"clamp":1}`)
	fallback := writeModel(t, dir, "m0.json",
		`{"name":"m0","version":"0.1","bias":0,"weights":{"x":0.05},"clamp":1}`)

	cfg := config.Default()
	cfg.Data.Normalize = true
	cfg.Models.ModelPath = primary
	cfg.Models.FallbackModel = fallback
	cfg.Database.Path = filepath.Join(dir, "coordinator.db")
	if mutate != nil {
		mutate(&cfg)
	}

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func rawInput() normalize.RawRecord {
	return normalize.RawRecord{
		{Name: "x", Values: []interface{}{1.0, 2.0, 3.0}},
		{Name: "y", Values: []interface{}{10.0, 20.0, 30.0}},
	}
}

func TestProcessDataEndToEnd(t *testing.T) {
	c := testCoordinator(t, nil)

	out, err := c.ProcessData(rawInput())
	if err != nil {
		t.Fatalf("ProcessData: %v", err)
	}
	if out.Mode != messaging.ModeNormal {
		t.Errorf("mode = %s, want normal", out.Mode)
	}
	if out.Rows != 3 {
		t.Errorf("rows = %d, want 3", out.Rows)
	}
	if len(out.Fields) != 2 {
		t.Errorf("fields = %v, want 2 columns", out.Fields)
	}
	if out.ModelName != "m1" {
		t.Errorf("model = %s, want m1", out.ModelName)
	}
	// With normalize:true both columns are min-max scaled to [0,1], so
	// weighted scores stay well under the risk cap.
	if out.ScoreSummary.Max > 0.2+1e-9 {
		t.Errorf("max score %v, expected rescaled inputs", out.ScoreSummary.Max)
	}
}

func TestProcessDataRaggedInput(t *testing.T) {
	c := testCoordinator(t, nil)

	_, err := c.ProcessData(normalize.RawRecord{
		{Name: "x", Values: []interface{}{1.0, 2.0}},
		{Name: "y", Values: []interface{}{1.0, 2.0, 3.0}},
	})
	if err == nil {
		t.Fatal("expected error for ragged input")
	}
	if !fault.Is(err, fault.KindProcessing) {
		t.Errorf("expected processing kind, got %v", err)
	}
	if !fault.Is(err, fault.KindNormalization) {
		t.Errorf("expected normalization cause in chain, got %v", err)
	}
}

func TestProcessDataAtomicOnPredictionFailure(t *testing.T) {
	// No model configured and an empty registry: the predict step fails.
	c := testCoordinator(t, func(cfg *config.Config) {
		cfg.Models.ModelPath = ""
	})

	out, err := c.ProcessData(rawInput())
	if err == nil {
		t.Fatal("expected error with no model loaded")
	}
	if !fault.Is(err, fault.KindPrediction) {
		t.Errorf("expected prediction cause, got %v", err)
	}
	// No partial result is observable
	if out.Mode != "" || out.BatchSize != 0 || out.Rows != 0 {
		t.Errorf("expected zero output on failure, got %+v", out)
	}
}

func TestMonitorReportsHealth(t *testing.T) {
	c := testCoordinator(t, nil)

	c.ProcessData(rawInput())

	report, err := c.Monitor()
	if err != nil {
		t.Fatalf("Monitor: %v", err)
	}
	if report.Snapshot.Processed != 1 {
		t.Errorf("processed = %d, want 1", report.Snapshot.Processed)
	}
	if len(report.Checks) == 0 {
		t.Error("expected checks in report")
	}
}

func TestUpdateModelSwap(t *testing.T) {
	c := testCoordinator(t, nil)
	dir := t.TempDir()
	next := writeModel(t, dir, "m2.json", `{"name":"m2","weights":{"x":1}}`)

	if err := c.UpdateModel(next); err != nil {
		t.Fatalf("UpdateModel: %v", err)
	}
	name, _, _ := c.Models().Active()
	if name != "m2" {
		t.Errorf("expected m2 serving, got %s", name)
	}
}

func TestUpdateModelFailure(t *testing.T) {
	c := testCoordinator(t, nil)

	err := c.UpdateModel(filepath.Join(t.TempDir(), "missing.json"))
	if err == nil {
		t.Fatal("expected error for missing model file")
	}
	if !fault.Is(err, fault.KindModelUpdate) {
		t.Errorf("expected model_update kind, got %v", err)
	}
}

func TestHandleErrorNormalizationRecovery(t *testing.T) {
	c := testCoordinator(t, nil)

	_, perr := c.ProcessData(normalize.RawRecord{
		{Name: "x", Values: []interface{}{1.0}},
		{Name: "y", Values: []interface{}{1.0, 2.0}},
	})
	if perr == nil {
		t.Fatal("expected pipeline error")
	}

	if err := c.HandleError(perr); err != nil {
		t.Fatalf("HandleError: %v", err)
	}
	if c.Normalizer().Recoveries() != 1 {
		t.Errorf("expected exactly one recovery, got %d", c.Normalizer().Recoveries())
	}
	if c.Normalizer().Failures() != 0 {
		t.Errorf("expected failures cleared, got %d", c.Normalizer().Failures())
	}
}

func TestHandleErrorPredictionFallback(t *testing.T) {
	c := testCoordinator(t, nil)

	err := c.HandleError(fault.New(fault.KindPrediction, "model blew up"))
	if err != nil {
		t.Fatalf("HandleError: %v", err)
	}

	name, _, _ := c.Models().Active()
	if name != "m0" {
		t.Errorf("expected fallback m0 serving, got %s", name)
	}
	if c.Normalizer().Recoveries() != 0 {
		t.Errorf("normalizer recovery should not run, got %d", c.Normalizer().Recoveries())
	}
}

func TestHandleErrorOtherKindsNoAction(t *testing.T) {
	c := testCoordinator(t, nil)
	before, _, _ := c.Models().Active()

	if err := c.HandleError(fault.New(fault.KindMonitoring, "probe down")); err != nil {
		t.Fatalf("HandleError: %v", err)
	}

	after, _, _ := c.Models().Active()
	if before != after {
		t.Errorf("model changed from %s to %s without a recovery action", before, after)
	}
	if c.Normalizer().Recoveries() != 0 {
		t.Errorf("recovery hook ran for unrelated kind")
	}
}

func TestHandleErrorRecoveryFailureIsCritical(t *testing.T) {
	c := testCoordinator(t, func(cfg *config.Config) {
		cfg.Models.FallbackModel = filepath.Join(t.TempDir(), "missing.json")
	})

	err := c.HandleError(fault.New(fault.KindPrediction, "model blew up"))
	if err == nil {
		t.Fatal("expected critical error when fallback load fails")
	}
	if !fault.Is(err, fault.KindCritical) {
		t.Errorf("expected critical kind, got %v", err)
	}
}

func TestHandleErrorMissingFallbackIsCritical(t *testing.T) {
	c := testCoordinator(t, func(cfg *config.Config) {
		cfg.Models.FallbackModel = ""
	})

	err := c.HandleError(fault.New(fault.KindPrediction, "model blew up"))
	if err == nil {
		t.Fatal("expected critical error with no fallback configured")
	}
	if !fault.Is(err, fault.KindCritical) {
		t.Errorf("expected critical kind, got %v", err)
	}
}

func TestInitializationAllOrNothing(t *testing.T) {
	cfg := config.Default()
	cfg.Database.Path = filepath.Join(t.TempDir(), "no", "such", "dir", "x.db")

	c, err := New(cfg)
	if err == nil {
		c.Close()
		t.Fatal("expected initialization failure")
	}
	if !fault.Is(err, fault.KindInitialization) {
		t.Errorf("expected initialization kind, got %v", err)
	}
	if c != nil {
		t.Error("no coordinator should exist after failed initialization")
	}
}

func TestInitializationBadModel(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Database.Path = filepath.Join(dir, "x.db")
	cfg.Models.ModelPath = filepath.Join(dir, "missing.json")

	_, err := New(cfg)
	if err == nil {
		t.Fatal("expected initialization failure for missing model")
	}
	if !fault.Is(err, fault.KindInitialization) {
		t.Errorf("expected initialization kind, got %v", err)
	}
}
