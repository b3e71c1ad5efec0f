// Package territory applies the region resolver to customer addresses and
// manages the assignment set on behalf of admin tools.
package territory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/territory-cli/internal/metrics"
	"github.com/sells-group/territory-cli/internal/region"
	"github.com/sells-group/territory-cli/internal/resilience"
	"github.com/sells-group/territory-cli/internal/store"
)

var (
	// ErrNoFallback is returned when an address is unresolved and no
	// fallback installer was configured.
	ErrNoFallback = errors.New("territory: no fallback installer configured")

	// ErrInvalidAssignment is returned for admin writes that cannot be
	// stored: unknown type, no usable code or no installer.
	ErrInvalidAssignment = errors.New("territory: invalid assignment")
)

// Service resolves addresses against an assignment store and applies
// the caller policy the resolver leaves open: the fallback installer for
// unresolved addresses and malformed assignments.
type Service struct {
	store       store.Store
	directory   store.Directory
	fallback    string
	retry       resilience.RetryConfig
	concurrency int
	now         func() time.Time

	mu          sync.RWMutex
	subscribers map[int]func(ChangeEvent)
	nextSub     int
}

// Option configures a Service.
type Option func(*Service)

// WithFallbackInstaller sets the installer used when nothing matches.
func WithFallbackInstaller(id string) Option {
	return func(s *Service) { s.fallback = id }
}

// WithRetry sets the retry policy for store reads and writes.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(s *Service) { s.retry = cfg }
}

// WithBatchConcurrency bounds the goroutines used by ResolveBatch.
func WithBatchConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithDirectory attaches installer metadata to admin listings.
func WithDirectory(d store.Directory) Option {
	return func(s *Service) { s.directory = d }
}

// WithClock overrides time.Now for assignment timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a Service backed by st.
func New(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:       st,
		retry:       resilience.DefaultRetryConfig(),
		concurrency: 8,
		now:         time.Now,
		subscribers: make(map[int]func(ChangeEvent)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.retry.OnRetry == nil {
		s.retry.OnRetry = resilience.RetryLogger("store", "assignment")
	}
	return s
}

// FallbackInstaller returns the configured fallback installer id.
func (s *Service) FallbackInstaller() string { return s.fallback }

// Lookup returns the retrying store lookup the resolver walks.
func (s *Service) Lookup() region.Lookup {
	return region.LookupFunc(func(ctx context.Context, t region.Type, code string) (*region.Assignment, error) {
		return resilience.DoVal(ctx, s.retry, func(ctx context.Context) (*region.Assignment, error) {
			return s.store.Get(ctx, t, code)
		})
	})
}

func (s *Service) snapshot(ctx context.Context) (*region.Snapshot, error) {
	all, err := resilience.DoVal(ctx, s.retry, s.store.GetAll)
	if err != nil {
		metrics.ObserveStoreError("get_all")
		return nil, eris.Wrap(err, "territory: load assignments")
	}
	return region.NewSnapshot(all), nil
}

func logger() *zap.Logger {
	return zap.L().Named("territory")
}
