// Package reconcile merges a fetched remote collection into the local store.
//
// Matching is by embedded identifier only. Matched tasks take the remote
// name, notes and priority; unmatched remote tasks are inserted; local tasks
// that are absent remotely are left alone. Reconciliation never deletes.
package reconcile

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/task-sync/internal/model"
	"github.com/BuzzLyutic/task-sync/internal/repo"
)

// Report counts what one reconciliation did.
type Report struct {
	Updated int
	Created int
	// Dropped representations had no identifier or a malformed one.
	Dropped int
}

type Reconciler struct {
	store  *repo.Store
	logger *zap.Logger
}

func New(store *repo.Store, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		store:  store,
		logger: logger,
	}
}

// Reconcile applies reps to the local store and saves once.
//
// When two representations carry the same identifier the later one in reps
// wins. Callers passing values of a decoded JSON object get Go map order,
// which is unspecified.
//
// A failed local query means nothing is created. A failed save is reset.
// Either error is returned alongside the partial report.
func (r *Reconciler) Reconcile(ctx context.Context, reps []model.TaskRepresentation) (Report, error) {
	var report Report

	byID := make(map[uuid.UUID]model.TaskRepresentation, len(reps))
	ids := make([]uuid.UUID, 0, len(reps))
	for _, rep := range reps {
		id, ok := rep.UUID()
		if !ok {
			report.Dropped++
			r.logger.Debug("dropping representation without usable identifier", zap.String("name", rep.Name))
			continue
		}
		if _, seen := byID[id]; !seen {
			ids = append(ids, id)
		}
		byID[id] = rep
	}

	toCreate := make(map[uuid.UUID]struct{}, len(byID))
	for id := range byID {
		toCreate[id] = struct{}{}
	}

	session := r.store.NewSession()

	existing, queryErr := session.FetchByIdentifiers(ctx, ids)
	if queryErr != nil {
		r.logger.Error("failed to fetch tasks for identifiers", zap.Int("identifiers", len(ids)), zap.Error(queryErr))
	} else {
		for _, task := range existing {
			rep, ok := byID[*task.Identifier]
			if !ok {
				continue
			}
			session.Update(task, rep)
			delete(toCreate, *task.Identifier)
			report.Updated++
		}

		// keep remote order for inserts so local IDs are assigned deterministically
		for _, id := range ids {
			if _, ok := toCreate[id]; !ok {
				continue
			}
			session.Insert(byID[id])
			report.Created++
		}
	}

	if err := session.Save(ctx); err != nil {
		session.Reset()
		r.logger.Error("failed to save reconciled tasks", zap.Error(err))
		return Report{Dropped: report.Dropped}, err
	}

	r.logger.Info("reconciled remote tasks",
		zap.Int("updated", report.Updated),
		zap.Int("created", report.Created),
		zap.Int("dropped", report.Dropped),
	)
	return report, queryErr
}
