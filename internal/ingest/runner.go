// Package ingest runs feed batches through the history model: records are
// upserted, the batch's predecessor links are applied, then the batch is
// closed with a cleanup.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kilupskalvis/vhist/internal/history"
	"github.com/kilupskalvis/vhist/internal/metrics"
	"github.com/kilupskalvis/vhist/internal/models"
	"github.com/kilupskalvis/vhist/internal/store"
)

// ErrAborted is returned by Apply once a batch has failed on the runner's model.
// The failed batch's records stay staged, so the model can only be discarded.
var ErrAborted = errors.New("runner aborted by a failed batch")

// Linker decides predecessors for the voies created by a batch.
// It runs after the batch's upserts and before its cleanup.
type Linker interface {
	Link(m *history.Model, b *models.Batch) (LinkResult, error)
}

// LinkResult counts the links a Linker applied and refused
type LinkResult struct {
	Applied  int
	Rejected int
}

// Result reports what applying one batch did
type Result struct {
	Seq      uint64
	BatchID  string
	Communes int
	Voies    int
	Links    LinkResult
	Cleanup  history.CleanupResult
	Duration time.Duration
}

// Runner applies batches to a guarded model
type Runner struct {
	model  *history.Guarded
	linker Linker
	logger *slog.Logger

	failed error // first batch failure, sticky
}

// NewRunner creates a runner. A nil linker applies the links declared in each batch.
func NewRunner(model *history.Guarded, linker Linker, logger *slog.Logger) *Runner {
	if linker == nil {
		linker = DeclaredLinker{Logger: logger}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{model: model, linker: linker, logger: logger}
}

// Apply runs one batch under the model's write lock.
// A linker error aborts the batch before cleanup, leaving its voies unresolved;
// every later Apply then fails with ErrAborted. Runner is not safe for concurrent use.
func (r *Runner) Apply(ctx context.Context, b *models.Batch) (*Result, error) {
	if r.failed != nil {
		return nil, fmt.Errorf("%w: %v", ErrAborted, r.failed)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	res := &Result{Seq: b.Seq, BatchID: b.ID}

	err := r.model.Update(func(m *history.Model) error {
		for _, rec := range b.Communes {
			m.UpsertCommune(rec)
			res.Communes++
		}
		for _, e := range b.Voies {
			v := m.UpsertVoie(e.Voie, e.Commune)
			if err := m.ObserveLibelle(v.ID, e.Voie.Libelle); err != nil {
				return err
			}
			res.Voies++
		}

		links, err := r.linker.Link(m, b)
		res.Links = links
		if err != nil {
			return fmt.Errorf("link batch %d: %w", b.Seq, err)
		}

		res.Cleanup = m.Cleanup()
		r.observe(m.Stats())
		return nil
	})
	res.Duration = time.Since(start)

	metrics.BatchDuration.Observe(res.Duration.Seconds())
	metrics.RecordsUpserted.WithLabelValues(metrics.KindCommune).Add(float64(res.Communes))
	metrics.RecordsUpserted.WithLabelValues(metrics.KindVoie).Add(float64(res.Voies))
	metrics.LinksApplied.WithLabelValues(metrics.OutcomeApplied).Add(float64(res.Links.Applied))
	metrics.LinksApplied.WithLabelValues(metrics.OutcomeRejected).Add(float64(res.Links.Rejected))

	if err != nil {
		r.failed = err
		metrics.BatchesApplied.WithLabelValues(metrics.StatusFailed).Inc()
		r.logger.Error("batch failed", "seq", b.Seq, "batch", b.ShortID(), "error", err)
		return res, err
	}

	metrics.BatchesApplied.WithLabelValues(metrics.StatusOK).Inc()
	metrics.CancellationsAcknowledged.Add(float64(res.Cleanup.Acknowledged))
	r.logger.Info("batch applied",
		"seq", b.Seq,
		"batch", b.ShortID(),
		"source", b.Source,
		"communes", res.Communes,
		"voies", res.Voies,
		"links_applied", res.Links.Applied,
		"links_rejected", res.Links.Rejected,
		"settled_none", res.Cleanup.SettledNone,
		"cancellations", res.Cleanup.Acknowledged,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

// Replay applies every journaled batch in order and returns the per-batch results.
func (r *Runner) Replay(ctx context.Context, j store.Journal) ([]*Result, error) {
	var results []*Result
	err := j.Replay(ctx, func(b *models.Batch) error {
		res, err := r.Apply(ctx, b)
		if err != nil {
			return err
		}
		results = append(results, res)
		return nil
	})
	return results, err
}

func (r *Runner) observe(s history.Stats) {
	metrics.IndexedEntities.WithLabelValues(metrics.KindCommune).Set(float64(s.Communes))
	metrics.IndexedEntities.WithLabelValues(metrics.KindVoie).Set(float64(s.Voies))
}

// DeclaredLinker applies the predecessor links carried by the batch itself.
// Links the model refuses (unknown voie, cycle, already settled) are logged and
// skipped; any other error aborts the batch.
type DeclaredLinker struct {
	Logger *slog.Logger
}

// Link implements Linker
func (l DeclaredLinker) Link(m *history.Model, b *models.Batch) (LinkResult, error) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var res LinkResult
	for _, link := range b.Links {
		var err error
		if link.Predecessor == "" {
			err = m.SetNoPredecessor(link.ID)
		} else {
			err = m.SetPredecessor(link.ID, link.Predecessor)
		}

		switch {
		case err == nil:
			res.Applied++
		case errors.Is(err, history.ErrUnknownVoie),
			errors.Is(err, history.ErrCyclicPredecessor),
			errors.Is(err, history.ErrPredecessorSettled):
			res.Rejected++
			logger.Warn("predecessor link rejected", "seq", b.Seq, "voie", link.ID, "predecessor", link.Predecessor, "error", err)
		default:
			return res, err
		}
	}
	return res, nil
}
