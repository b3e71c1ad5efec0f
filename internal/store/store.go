// Package store persists region assignments and installers.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/sells-group/territory-cli/internal/region"
)

// ErrNotFound is returned by deletes that address a row that does not
// exist. Assignment and installer reads return nil, nil instead.
var ErrNotFound = errors.New("not found")

// Store is the assignment store. Get returns nil, nil when no assignment
// exists for the key. Upsert overwrites any existing assignment with the
// same (type, code).
type Store interface {
	GetAll(ctx context.Context) ([]region.Assignment, error)
	Get(ctx context.Context, t region.Type, code string) (*region.Assignment, error)
	Upsert(ctx context.Context, a region.Assignment) error
	Delete(ctx context.Context, t region.Type, code string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// BulkUpserter is implemented by stores that can write many assignments
// in one round trip.
type BulkUpserter interface {
	UpsertMany(ctx context.Context, assignments []region.Assignment) (int64, error)
}

// Installer is the display metadata for an installer organization. The
// resolver only ever compares ids.
type Installer struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	Email     string    `json:"email,omitempty" yaml:"email,omitempty"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// Directory looks up installer metadata for admin listings.
// GetInstaller returns nil, nil for an unknown id.
type Directory interface {
	GetInstaller(ctx context.Context, id string) (*Installer, error)
	ListInstallers(ctx context.Context) ([]Installer, error)
	UpsertInstaller(ctx context.Context, inst Installer) error
}

// Pinger is implemented by stores with a cheap liveness check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// UpsertAll writes assignments through BulkUpserter when s supports it and
// falls back to one Upsert per assignment otherwise.
func UpsertAll(ctx context.Context, s Store, assignments []region.Assignment) (int64, error) {
	if b, ok := s.(BulkUpserter); ok {
		return b.UpsertMany(ctx, assignments)
	}
	var n int64
	for _, a := range assignments {
		if err := s.Upsert(ctx, a); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func nowUTC(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
