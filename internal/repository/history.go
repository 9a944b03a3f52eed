package repository

import (
	"context"
	"log/slog"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/mediway/labreports/internal/common"
	"github.com/mediway/labreports/internal/entity"
)

// HistoryRepository keeps the conversation window of a report.
type HistoryRepository interface {
	Load(ctx context.Context, reportID string) ([]entity.Turn, error)
	Save(ctx context.Context, reportID string, turns []entity.Turn) error
	Clear(ctx context.Context, reportID string) error
}

type historyRepository struct {
	db     *DB
	logger *slog.Logger
}

// NewHistoryRepository creates a new conversation history repository
func NewHistoryRepository(db *DB, logger *slog.Logger) HistoryRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &historyRepository{db: db, logger: logger}
}

func (r *historyRepository) Load(ctx context.Context, reportID string) ([]entity.Turn, error) {
	b := entsql.Dialect(r.db.Dialect())
	q, args := b.Select("role", "content").
		From(b.Table(historyTable)).
		Where(entsql.EQ("report_id", reportID)).
		OrderBy("position").
		Query()
	rows := &entsql.Rows{}
	if err := r.db.Driver.Query(ctx, q, args, rows); err != nil {
		return nil, common.StoreError("query history", err)
	}
	turns := make([]entity.Turn, 0)
	for rows.Next() {
		var t entity.Turn
		if err := rows.Scan(&t.Role, &t.Content); err != nil {
			_ = rows.Close()
			return nil, common.StoreError("scan history", err)
		}
		turns = append(turns, t)
	}
	if err := closeRows(rows); err != nil {
		return nil, common.StoreError("read history", err)
	}
	return turns, nil
}

// Save replaces the stored window with turns in one transaction.
func (r *historyRepository) Save(ctx context.Context, reportID string, turns []entity.Turn) error {
	b := entsql.Dialect(r.db.Dialect())
	tx, err := r.db.Driver.Tx(ctx)
	if err != nil {
		return common.StoreError("begin transaction", err)
	}
	q, args := b.Delete(historyTable).Where(entsql.EQ("report_id", reportID)).Query()
	if err := tx.Exec(ctx, q, args, nil); err != nil {
		_ = tx.Rollback()
		return common.StoreError("clear history", err)
	}
	if len(turns) > 0 {
		ins := b.Insert(historyTable).Columns("report_id", "position", "role", "content")
		for i, t := range turns {
			ins.Values(reportID, i, t.Role, t.Content)
		}
		q, args = ins.Query()
		if err := tx.Exec(ctx, q, args, nil); err != nil {
			_ = tx.Rollback()
			r.logger.Error("failed to save history", "report_id", reportID, "error", err)
			return common.StoreError("insert history", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return common.StoreError("commit history", err)
	}
	return nil
}

func (r *historyRepository) Clear(ctx context.Context, reportID string) error {
	b := entsql.Dialect(r.db.Dialect())
	q, args := b.Delete(historyTable).Where(entsql.EQ("report_id", reportID)).Query()
	if err := r.db.Driver.Exec(ctx, q, args, nil); err != nil {
		return common.StoreError("clear history", err)
	}
	return nil
}
