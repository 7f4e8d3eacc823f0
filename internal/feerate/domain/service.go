package domain

import "context"

// Repository stores published snapshots. Insert must fail with
// ErrVersionConflict when the version already exists.
type Repository interface {
	Latest(ctx context.Context) (*Snapshot, error)
	Get(ctx context.Context, version int64) (*Snapshot, error)
	List(ctx context.Context, limit int) ([]Snapshot, error)
	Insert(ctx context.Context, snap *Snapshot) error
}

// Source hands out pinned snapshots to calculations.
type Source interface {
	Current(ctx context.Context) (*Snapshot, error)
	// Resolve returns the given version, or the current one when version is 0.
	Resolve(ctx context.Context, version int64) (*Snapshot, error)
}

type Service interface {
	Source
	Get(ctx context.Context, version int64) (*Snapshot, error)
	List(ctx context.Context, limit int) ([]Snapshot, error)
	// Publish stores a new version unless the table is identical to the
	// current one; the bool reports whether a version was created.
	Publish(ctx context.Context, req PublishRequest) (*Snapshot, bool, error)
	Refresh(ctx context.Context) error
}
