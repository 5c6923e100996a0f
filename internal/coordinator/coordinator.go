package coordinator

import (
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/kibbyd/integration-layer/go-coordinator/internal/config"
	"github.com/kibbyd/integration-layer/go-coordinator/internal/fault"
	"github.com/kibbyd/integration-layer/go-coordinator/internal/messaging"
	"github.com/kibbyd/integration-layer/go-coordinator/internal/model"
	"github.com/kibbyd/integration-layer/go-coordinator/internal/monitor"
	"github.com/kibbyd/integration-layer/go-coordinator/internal/normalize"
	"github.com/kibbyd/integration-layer/go-coordinator/internal/runlog"
)

// #region coordinator-struct

// Coordinator owns the subsystem set and sequences per-request processing:
// normalize → predict → adapt, plus monitoring, model hot-swap, and
// centralized recovery.
type Coordinator struct {
	cfg config.Config

	registry   *model.Registry
	normalizer *normalize.Normalizer
	models     *model.Manager
	adapter    *messaging.Adapter
	health     *monitor.Monitor
	runs       *runlog.Log
}

// #endregion coordinator-struct

// #region constructor

// New constructs every subsystem in fixed order. There is no partial-success
// mode: any constructor failure tears down what exists and fails the whole
// initialization.
func New(cfg config.Config) (*Coordinator, error) {
	registry, err := model.NewRegistry(cfg.Database.Path)
	if err != nil {
		return nil, initFailure(nil, err)
	}

	normalizer := normalize.New(cfg.Data)

	models, err := model.NewManager(cfg.Models, registry)
	if err != nil {
		return nil, initFailure(registry, err)
	}

	adapter := messaging.NewAdapter(cfg.Messaging)

	var probe monitor.Prober
	if cfg.Monitoring.ProbeAddr != "" {
		p, err := monitor.NewGRPCProbe(cfg.Monitoring.ProbeAddr)
		if err != nil {
			return nil, initFailure(registry, err)
		}
		probe = p
	}

	health, err := monitor.NewMonitor(cfg.Monitoring, registry.DB(), probe)
	if err != nil {
		return nil, initFailure(registry, err)
	}

	runs, err := runlog.NewLog(registry.DB())
	if err != nil {
		return nil, initFailure(registry, err)
	}

	return &Coordinator{
		cfg:        cfg,
		registry:   registry,
		normalizer: normalizer,
		models:     models,
		adapter:    adapter,
		health:     health,
		runs:       runs,
	}, nil
}

func initFailure(registry *model.Registry, err error) error {
	if registry != nil {
		registry.Close()
	}
	log.Printf("[COORD] critical failure initializing core components: %v", err)
	return fault.Wrap(fault.KindInitialization, err, "failed to initialize subsystems")
}

// Close releases the database and the probe connection.
func (c *Coordinator) Close() error {
	if err := c.health.Close(); err != nil {
		log.Printf("[COORD] probe close: %v", err)
	}
	return c.registry.Close()
}

// #endregion constructor

// #region process-data

// ProcessData routes one raw record through the pipeline. Each step depends
// on the previous step's output; a failure at any step yields only an error,
// never a partial output.
func (c *Coordinator) ProcessData(raw normalize.RawRecord) (messaging.AdaptedOutput, error) {
	requestID := uuid.New().String()
	start := time.Now()

	normalized, err := c.normalizer.Normalize(raw)
	if err != nil {
		return messaging.AdaptedOutput{}, c.fail(requestID, start, "normalize", err)
	}

	predictions, err := c.models.Predict(normalized)
	if err != nil {
		return messaging.AdaptedOutput{}, c.fail(requestID, start, "predict", err)
	}

	adapted, err := c.Adapt(predictions, raw)
	if err != nil {
		return messaging.AdaptedOutput{}, c.fail(requestID, start, "adapt", err)
	}

	c.health.RecordProcessed()
	c.record(requestID, "ok", "", start)
	log.Printf("[COORD] processed request %s: mode=%s batch=%d rows=%d",
		requestID, adapted.Mode, adapted.BatchSize, adapted.Rows)
	return adapted, nil
}

// fail labels a pipeline failure, counts it, and records the run.
func (c *Coordinator) fail(requestID string, start time.Time, step string, cause error) error {
	c.health.RecordFailure()
	err := fault.Wrap(fault.KindProcessing, cause, "data processing failed at %s", step)
	log.Printf("[COORD] %v", err)
	c.record(requestID, string(fault.KindProcessing), err.Error(), start)
	return err
}

// record writes the run-log row. Best-effort: a logging failure must not
// mask the pipeline result.
func (c *Coordinator) record(requestID, decision, detail string, start time.Time) {
	err := c.runs.Record(runlog.Entry{
		RequestID:  requestID,
		Decision:   decision,
		Detail:     detail,
		DurationMs: time.Since(start).Milliseconds(),
	})
	if err != nil {
		log.Printf("[COORD] failed to record run: %v", err)
	}
}

// #endregion process-data

// #region adapt

// Adapt reads current health and applies the adaptive messaging logic.
func (c *Coordinator) Adapt(predictions model.Predictions, input normalize.RawRecord) (messaging.AdaptedOutput, error) {
	health, err := c.health.GetHealth()
	if err != nil {
		wrapped := fault.Wrap(fault.KindAdaptation, err, "adaptation failed reading health")
		log.Printf("[COORD] %v", wrapped)
		return messaging.AdaptedOutput{}, wrapped
	}

	adapted, err := c.adapter.Adapt(predictions, health, input)
	if err != nil {
		wrapped := fault.Wrap(fault.KindAdaptation, err, "adaptation failed")
		log.Printf("[COORD] %v", wrapped)
		return messaging.AdaptedOutput{}, wrapped
	}
	return adapted, nil
}

// #endregion adapt

// #region monitor

// Monitor delegates to the health monitor's deep snapshot.
func (c *Coordinator) Monitor() (monitor.Report, error) {
	report, err := c.health.Monitor()
	if err != nil {
		wrapped := fault.Wrap(fault.KindMonitoring, err, "monitoring failed")
		log.Printf("[COORD] %v", wrapped)
		return monitor.Report{}, wrapped
	}
	return report, nil
}

// #endregion monitor

// #region update-model

// UpdateModel hot-swaps the predictive model from a model file.
func (c *Coordinator) UpdateModel(path string) error {
	if err := c.models.UpdateModel(path); err != nil {
		wrapped := fault.Wrap(fault.KindModelUpdate, err, "failed to update model from %s", path)
		log.Printf("[COORD] %v", wrapped)
		return wrapped
	}
	return nil
}

// #endregion update-model

// #region handle-error

// HandleError is the centralized recovery dispatch, keyed on the kind of the
// incoming error anywhere in its chain. Only two kinds have recovery actions;
// every other kind is a deliberate no-op left to the caller. When recovery
// itself fails the returned error is critical: automated recovery is
// exhausted and manual intervention is required.
func (c *Coordinator) HandleError(err error) error {
	log.Printf("[COORD] handling error: %v", err)

	switch {
	case fault.Is(err, fault.KindNormalization):
		if rerr := c.normalizer.Recover(); rerr != nil {
			return c.critical(rerr)
		}

	case fault.Is(err, fault.KindPrediction):
		fallback := c.cfg.Models.FallbackModel
		if fallback == "" {
			return c.critical(fault.New(fault.KindModelUpdate, "no fallback model configured"))
		}
		if uerr := c.UpdateModel(fallback); uerr != nil {
			return c.critical(uerr)
		}

	default:
		// No recovery action for the remaining kinds; the caller decides.
		log.Printf("[COORD] no recovery action for kinds %v", fault.KindsOf(err))
	}

	return nil
}

func (c *Coordinator) critical(cause error) error {
	wrapped := fault.Wrap(fault.KindCritical, cause, "unhandled system failure")
	log.Printf("[COORD] CRITICAL: %v", wrapped)
	return wrapped
}

// #endregion handle-error

// #region accessors

// Normalizer exposes the normalizer for recovery inspection.
func (c *Coordinator) Normalizer() *normalize.Normalizer { return c.normalizer }

// Models exposes the model manager for version inspection.
func (c *Coordinator) Models() *model.Manager { return c.models }

// #endregion accessors
