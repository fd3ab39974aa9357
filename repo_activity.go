package starter

import (
	"context"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ActivityLogs is the append-only audit store. There is no update or
// delete surface on purpose.
type ActivityLogs interface {
	Record(ctx context.Context, event ActivityEvent) error
	RecordTx(ctx context.Context, tx bun.IDB, event ActivityEvent) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*ActivityLog, error)
}

type activityLogs struct {
	repo repository.Repository[*ActivityLog]
	db   *bun.DB
}

var _ ActivityLogs = (*activityLogs)(nil)
var _ ActivitySink = (*activityLogs)(nil)

func NewActivityLogsRepository(db *bun.DB) ActivityLogs {
	repo := repository.NewRepository[*ActivityLog](db, repository.ModelHandlers[*ActivityLog]{
		NewRecord: func() *ActivityLog { return &ActivityLog{} },
		GetID: func(l *ActivityLog) uuid.UUID {
			if l == nil {
				return uuid.Nil
			}
			return l.ID
		},
		SetID: func(l *ActivityLog, id uuid.UUID) {
			if l != nil {
				l.ID = id
			}
		},
	})

	return &activityLogs{
		repo: repo,
		db:   db,
	}
}

func (a *activityLogs) Record(ctx context.Context, event ActivityEvent) error {
	return a.RecordTx(ctx, a.db, event)
}

func (a *activityLogs) RecordTx(ctx context.Context, tx bun.IDB, event ActivityEvent) error {
	record := &ActivityLog{
		ID:        uuid.New(),
		UserID:    event.UserID,
		Action:    event.Action,
		IPAddress: event.IPAddress,
	}

	if !event.OccurredAt.IsZero() {
		occurred := event.OccurredAt
		record.Timestamp = &occurred
	}

	_, err := a.repo.CreateTx(ctx, tx, record)
	return err
}

func (a *activityLogs) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*ActivityLog, error) {
	if limit <= 0 {
		limit = 10
	}

	var records []*ActivityLog
	err := a.db.NewSelect().Model(&records).
		Where("?TableAlias.user_id = ?", userID).
		OrderExpr("?TableAlias.timestamp DESC").
		Limit(limit).
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return records, nil
}
