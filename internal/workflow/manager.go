package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gofrs/flock"

	"biopipe/internal/config"
	"biopipe/internal/decoder"
	"biopipe/internal/extract"
	"biopipe/internal/logging"
	"biopipe/internal/metadata"
	"biopipe/internal/pipeline"
	"biopipe/internal/runlog"
	"biopipe/internal/segmenter"
	"biopipe/internal/stager"
)

// StageSet selects which pipeline stages a run executes.
type StageSet struct {
	Stage   bool
	Decode  bool
	Segment bool
	Extract bool
}

// All selects every stage in pipeline order.
func All() StageSet {
	return StageSet{Stage: true, Decode: true, Segment: true, Extract: true}
}

// Manager drives the pipeline stages in order, holding the workspace lock
// for the duration of a run and recording progress in the run log.
type Manager struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *runlog.Store
}

// NewManager constructs a pipeline manager. store may be nil, in which case
// runs are not recorded.
func NewManager(cfg *config.Config, logger *slog.Logger, store *runlog.Store) *Manager {
	return &Manager{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "workflow"),
		store:  store,
	}
}

// Run executes the selected stages in order. A stage reporting a null result
// halts the remaining stages: downstream stages would only be operating on
// absent input. The workspace lock serializes concurrent invocations.
func (m *Manager) Run(ctx context.Context, stages StageSet) error {
	lock := flock.New(m.cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire workspace lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("workspace %s is locked by another run", m.cfg.LockPath())
	}
	defer func() { _ = lock.Unlock() }()

	runID := ""
	if m.store != nil {
		runID, err = m.store.StartRun(ctx, m.cfg.Pipeline.Modality,
			m.cfg.Pipeline.StartDate, m.cfg.Pipeline.EndDate)
		if err != nil {
			return err
		}
		ctx = logging.WithRunID(ctx, runID)
	}

	err = m.run(ctx, stages, runID)
	m.finish(ctx, runID, err)
	return err
}

// errHalted marks a terminal null result: not a failure, but nothing for the
// remaining stages to consume.
var errHalted = fmt.Errorf("pipeline halted on empty result")

func (m *Manager) run(ctx context.Context, stages StageSet, runID string) error {
	logger := logging.WithContext(ctx, m.logger)

	var table *metadata.Table
	if stages.Stage || stages.Decode {
		var err error
		table, err = metadata.Load(m.cfg.Pipeline.MetadataCSV)
		if err != nil {
			return pipeline.Wrap(pipeline.ErrConfiguration, "workflow", "load metadata",
				m.cfg.Pipeline.MetadataCSV, err)
		}
	}

	var dates []string
	if stages.Stage {
		stageCtx := logging.WithStage(ctx, "stage")
		result, err := stager.New(m.cfg, m.logger).Run(stageCtx, table)
		if err != nil {
			return err
		}
		m.record(ctx, runID, "stage", fmt.Sprintf("%d dates staged", len(result.Dates)))
		if len(result.Dates) == 0 {
			logger.Warn("no sessions staged; halting remaining stages")
			return errHalted
		}
		dates = result.Dates
	}

	if stages.Decode {
		decodeCtx := logging.WithStage(ctx, "decode")
		result, err := decoder.New(m.cfg, m.logger).Run(decodeCtx, dates, table.GroupMapping())
		if err != nil {
			return err
		}
		m.record(ctx, runID, "decode",
			fmt.Sprintf("%d chunks decoded, %d failed", result.ChunksDecoded, result.ChunksFailed))
		if result.ChunksDecoded == 0 {
			logger.Warn("no chunks decoded; halting remaining stages")
			return errHalted
		}
	}

	if stages.Segment {
		segmentCtx := logging.WithStage(ctx, "segment")
		result, err := segmenter.New(m.cfg, m.logger).Run(segmentCtx)
		if err != nil {
			return err
		}
		m.record(ctx, runID, "segment",
			fmt.Sprintf("%d tables segmented, %d failed", result.FilesSegmented, result.FilesFailed))
		if result.FilesSegmented == 0 {
			logger.Warn("nothing segmented; halting remaining stages")
			return errHalted
		}
	}

	if stages.Extract {
		extractCtx := logging.WithStage(ctx, "extract")
		result, err := extract.New(m.cfg, m.logger).Run(extractCtx)
		if err != nil {
			return err
		}
		m.record(ctx, runID, "extract", fmt.Sprintf("%d feature rows written", result.Rows))
		if result.Rows == 0 {
			logger.Warn("no features extracted")
			return errHalted
		}
		logger.Info("feature table ready", logging.String(logging.FieldPath, result.OutputPath))
	}
	return nil
}

func (m *Manager) record(ctx context.Context, runID, stage, message string) {
	if m.store == nil || runID == "" {
		return
	}
	if err := m.store.RecordEvent(ctx, runID, stage, "info", message); err != nil {
		m.logger.Error("recording run event failed", logging.Error(err))
	}
}

func (m *Manager) finish(ctx context.Context, runID string, runErr error) {
	if m.store == nil || runID == "" {
		return
	}
	status := runlog.StatusCompleted
	message := ""
	switch {
	case runErr == nil:
	case runErr == errHalted:
		status = runlog.StatusHalted
	default:
		status = runlog.StatusFailed
		message = runErr.Error()
	}
	if err := m.store.FinishRun(ctx, runID, status, message); err != nil {
		m.logger.Error("finalizing run record failed", logging.Error(err))
	}
}

// Halted reports whether a run error represents the halt-on-empty outcome
// rather than a real failure.
func Halted(err error) bool {
	return err == errHalted
}
