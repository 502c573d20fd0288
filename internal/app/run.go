package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/manager-records-crawler/internal/crawler"
	"github.com/JakeFAU/manager-records-crawler/internal/logging"
	"github.com/JakeFAU/manager-records-crawler/internal/storage"
	"github.com/JakeFAU/manager-records-crawler/internal/storage/csvfile"
	"github.com/JakeFAU/manager-records-crawler/internal/storage/postgres"
	"github.com/JakeFAU/manager-records-crawler/internal/telemetry"
)

// Commands understood by Run.
const (
	CommandManagers = "managers"
	CommandStats    = "stats"
)

// RunOptions selects what a run crawls and where it writes.
type RunOptions struct {
	Seasons crawler.SeasonRange
	// OutDir overrides output.dir when non-empty.
	OutDir string
}

// Summary describes a finished run. It is logged and published.
type Summary struct {
	RunID           string              `json:"run_id"`
	Command         string              `json:"command"`
	Seasons         crawler.SeasonRange `json:"seasons"`
	Managers        int                 `json:"managers"`
	Rows            int                 `json:"rows"`
	Failures        int                 `json:"failures"`
	Output          string              `json:"output"`
	Artifacts       []string            `json:"artifacts,omitempty"`
	StartedAt       time.Time           `json:"started_at"`
	FinishedAt      time.Time           `json:"finished_at"`
	DurationSeconds float64             `json:"duration_seconds"`
	Error           string              `json:"error,omitempty"`
}

// run carries the per-run sinks.
type run struct {
	id      string
	command string
	logger  *zap.Logger
	db      *postgres.RecordStore
}

// RunManagers writes one metadata row per manager per season.
func (a *App) RunManagers(ctx context.Context, opts RunOptions) (Summary, error) {
	return a.execute(ctx, CommandManagers, opts, func(ctx context.Context, r *run, path string) (int, error) {
		out, err := csvfile.NewManagerWriter(path)
		if err != nil {
			return 0, err
		}
		sinks := []crawler.ManagerSink{out}
		if r.db != nil {
			sinks = append(sinks, r.db)
		}

		managers := make(map[crawler.ManagerID]struct{})
		for row, err := range a.aggregator.ManagerRows(ctx, opts.Seasons) {
			if err != nil {
				if err := a.handleUnitError(r, err); err != nil {
					_ = out.Close()
					return len(managers), err
				}
				continue
			}
			for _, sink := range sinks {
				if err := sink.WriteManager(ctx, row); err != nil {
					_ = out.Close()
					return len(managers), err
				}
			}
			managers[row.Identifier] = struct{}{}
			a.tracker.RowWritten()
		}
		return len(managers), out.Close()
	})
}

// RunStats writes every matchup record of every manager active in the range.
func (a *App) RunStats(ctx context.Context, opts RunOptions) (Summary, error) {
	return a.execute(ctx, CommandStats, opts, func(ctx context.Context, r *run, path string) (int, error) {
		out, err := csvfile.NewRecordWriter(path)
		if err != nil {
			return 0, err
		}
		sinks := []crawler.RecordSink{out}
		if r.db != nil {
			sinks = append(sinks, r.db)
		}

		for rec, err := range a.aggregator.Records(ctx, opts.Seasons) {
			if err != nil {
				if err := a.handleUnitError(r, err); err != nil {
					_ = out.Close()
					return a.tracker.Snapshot().ManagersDone, err
				}
				continue
			}
			for _, sink := range sinks {
				if err := sink.WriteRecord(ctx, rec); err != nil {
					_ = out.Close()
					return a.tracker.Snapshot().ManagersDone, err
				}
			}
			a.tracker.RowWritten()
		}
		return a.tracker.Snapshot().ManagersDone, out.Close()
	})
}

type body func(ctx context.Context, r *run, path string) (managers int, err error)

func (a *App) execute(ctx context.Context, command string, opts RunOptions, fn body) (Summary, error) {
	if err := opts.Seasons.Validate(); err != nil {
		return Summary{}, err
	}
	runID, err := a.ids.NewID()
	if err != nil {
		return Summary{}, fmt.Errorf("new run id: %w", err)
	}
	ctx, span := telemetry.Tracer().Start(ctx, "mgrcrawl."+command, trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.Int("seasons.first", opts.Seasons.First),
		attribute.Int("seasons.last", opts.Seasons.Last),
	))
	defer span.End()

	r := &run{
		id:      runID,
		command: command,
		logger:  logging.ForRun(a.logger, runID, command),
	}
	a.tracker.Start(runID, command, opts.Seasons)
	r.logger.Info("run started",
		zap.Int("first_season", opts.Seasons.First),
		zap.Int("last_season", opts.Seasons.Last),
	)

	if a.cfg.DB.DSN != "" {
		db, err := a.openRecordStore(ctx, runID)
		if err != nil {
			span.RecordError(err)
			a.tracker.Finish(err)
			return Summary{}, err
		}
		r.db = db
		defer db.Close()
	}

	path := a.outputPath(command, opts)
	managers, runErr := fn(ctx, r, path)
	a.tracker.Finish(runErr)

	snap := a.tracker.Snapshot()
	summary := Summary{
		RunID:           runID,
		Command:         command,
		Seasons:         opts.Seasons,
		Managers:        managers,
		Rows:            snap.Rows,
		Failures:        snap.Failures,
		Output:          path,
		StartedAt:       snap.StartedAt,
		DurationSeconds: snap.Duration(a.clock.Now()).Seconds(),
	}
	if snap.FinishedAt != nil {
		summary.FinishedAt = *snap.FinishedAt
	}
	span.SetAttributes(attribute.Int("rows", summary.Rows), attribute.Int("failures", summary.Failures))
	if runErr != nil {
		summary.Error = runErr.Error()
		span.RecordError(runErr)
		span.SetStatus(codes.Error, "run failed")
	} else if a.blobs != nil {
		uris, err := storage.UploadArtifacts(ctx, a.blobs, a.cfg.Storage.Prefix, runID, path)
		if err != nil {
			r.logger.Warn("artifact upload failed", zap.Error(err))
		}
		summary.Artifacts = uris
	}

	a.publishSummary(ctx, r, summary)
	r.logger.Info("run finished",
		zap.Int("managers", summary.Managers),
		zap.Int("rows", summary.Rows),
		zap.Int("failures", summary.Failures),
		zap.Float64("duration_seconds", summary.DurationSeconds),
		zap.Strings("artifacts", summary.Artifacts),
		zap.Error(runErr),
	)
	return summary, runErr
}

func (a *App) openRecordStore(ctx context.Context, runID string) (*postgres.RecordStore, error) {
	db, err := postgres.NewRecordStore(ctx, postgres.Config{
		DSN:           a.cfg.DB.DSN,
		RecordsTable:  a.cfg.DB.RecordsTable,
		ManagersTable: a.cfg.DB.ManagersTable,
		MaxConns:      a.cfg.DB.MaxConns,
	}, runID)
	if err != nil {
		return nil, fmt.Errorf("initialize record store: %w", err)
	}
	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// handleUnitError logs a failed season or manager and decides whether the
// run goes on.
func (a *App) handleUnitError(r *run, err error) error {
	var unit *crawler.UnitError
	if !errors.As(err, &unit) {
		return err
	}
	a.tracker.UnitFailed()
	fields := []zap.Field{zap.Error(unit.Err)}
	if unit.Manager != nil {
		fields = append(fields, zap.String("manager_id", string(unit.Manager.ID)), zap.String("manager", unit.Manager.Name))
	} else {
		fields = append(fields, zap.Int("season", unit.Season))
	}
	if !a.cfg.Crawler.ContinueOnError {
		r.logger.Error("unit failed; aborting run", fields...)
		return err
	}
	r.logger.Warn("unit failed; skipping", fields...)
	return nil
}

func (a *App) publishSummary(ctx context.Context, r *run, summary Summary) {
	if a.publisher == nil {
		return
	}
	id, err := a.publisher.Publish(ctx, summary)
	if err != nil {
		r.logger.Warn("publish run summary failed", zap.Error(err))
		return
	}
	r.logger.Info("published run summary", zap.String("message_id", id))
}

func (a *App) outputPath(command string, opts RunOptions) string {
	dir := a.cfg.Output.Dir
	if opts.OutDir != "" {
		dir = opts.OutDir
	}
	name := a.cfg.Output.StatsFile
	if command == CommandManagers {
		name = a.cfg.Output.ManagersFile
	}
	return filepath.Join(dir, name)
}
