package repository

import (
	"context"
	"strings"

	"github.com/smallbiznis/eventledger/internal/audit/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

// Insert appends an entry; audit rows are never updated.
func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.AuditLog) error {
	if entry == nil {
		return nil
	}
	return db.WithContext(ctx).Omit(clause.Associations).Create(entry).Error
}

// List returns newest first. It fetches one row past Limit so callers can
// tell whether another page exists.
func (r *repo) List(ctx context.Context, db *gorm.DB, f domain.ListFilter) ([]*domain.AuditLog, error) {
	stmt := db.WithContext(ctx).Model(&domain.AuditLog{})

	for column, value := range map[string]string{
		"action":      f.Action,
		"target_type": f.TargetType,
		"target_id":   f.TargetID,
		"actor_type":  f.ActorType,
	} {
		if value = strings.TrimSpace(value); value != "" {
			stmt = stmt.Where(clause.Eq{Column: clause.Column{Name: column}, Value: value})
		}
	}
	if f.StartAt != nil {
		stmt = stmt.Where("created_at >= ?", f.StartAt.UTC())
	}
	if f.EndAt != nil {
		stmt = stmt.Where("created_at <= ?", f.EndAt.UTC())
	}
	if c := f.Cursor; c != nil {
		stmt = stmt.Where("created_at < ? OR (created_at = ? AND id < ?)", c.CreatedAt, c.CreatedAt, c.ID)
	}

	stmt = stmt.Order(clause.OrderBy{Columns: []clause.OrderByColumn{
		{Column: clause.Column{Name: "created_at"}, Desc: true},
		{Column: clause.Column{Name: "id"}, Desc: true},
	}})
	if f.Limit > 0 {
		stmt = stmt.Limit(f.Limit + 1)
	}

	var logs []*domain.AuditLog
	if err := stmt.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
