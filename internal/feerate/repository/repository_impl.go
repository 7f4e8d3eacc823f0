package repository

import (
	"context"
	"fmt"

	"github.com/smallbiznis/eventledger/internal/feerate/domain"
	"github.com/smallbiznis/eventledger/pkg/db"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(conn *gorm.DB) domain.Repository {
	return &repository{db: conn}
}

func (r *repository) Latest(ctx context.Context) (*domain.Snapshot, error) {
	var row domain.VersionRecord
	err := r.db.WithContext(ctx).Raw(
		`SELECT version, rates, checksum, source, note, created_by, created_at
		 FROM fee_rate_versions
		 ORDER BY version DESC
		 LIMIT 1`,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.Version == 0 {
		return nil, nil
	}
	return toSnapshot(row)
}

func (r *repository) Get(ctx context.Context, version int64) (*domain.Snapshot, error) {
	var row domain.VersionRecord
	err := r.db.WithContext(ctx).Raw(
		`SELECT version, rates, checksum, source, note, created_by, created_at
		 FROM fee_rate_versions
		 WHERE version = ?
		 LIMIT 1`,
		version,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.Version == 0 {
		return nil, nil
	}
	return toSnapshot(row)
}

func (r *repository) List(ctx context.Context, limit int) ([]domain.Snapshot, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []domain.VersionRecord
	err := r.db.WithContext(ctx).Raw(
		`SELECT version, rates, checksum, source, note, created_by, created_at
		 FROM fee_rate_versions
		 ORDER BY version DESC
		 LIMIT ?`,
		limit,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.Snapshot, 0, len(rows))
	for _, row := range rows {
		snap, err := toSnapshot(row)
		if err != nil {
			return nil, err
		}
		out = append(out, *snap)
	}
	return out, nil
}

func (r *repository) Insert(ctx context.Context, snap *domain.Snapshot) error {
	if snap == nil {
		return nil
	}
	raw, err := domain.EncodeJSON(snap.Table)
	if err != nil {
		return err
	}
	err = r.db.WithContext(ctx).Exec(
		`INSERT INTO fee_rate_versions (
			version, rates, checksum, source, note, created_by, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		snap.Version,
		datatypes.JSON(raw),
		snap.Checksum,
		snap.Source,
		snap.Note,
		snap.CreatedBy,
		snap.CreatedAt,
	).Error
	if db.IsDuplicateKeyErr(err) {
		return domain.ErrVersionConflict
	}
	return err
}

func toSnapshot(row domain.VersionRecord) (*domain.Snapshot, error) {
	table, err := domain.DecodeJSON(row.Rates)
	if err != nil {
		return nil, fmt.Errorf("decode rate version %d: %w", row.Version, err)
	}
	return &domain.Snapshot{
		Version:   row.Version,
		Table:     table,
		Checksum:  row.Checksum,
		Source:    row.Source,
		Note:      row.Note,
		CreatedBy: row.CreatedBy,
		CreatedAt: row.CreatedAt,
	}, nil
}
