package store

import (
	"context"
	"sort"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/sells-group/territory-cli/internal/region"
)

// MemoryStore is an in-process Store and Directory. It backs tests and
// the "memory" driver; nothing survives a restart.
type MemoryStore struct {
	mu          sync.RWMutex
	assignments map[region.Key]region.Assignment
	installers  map[string]Installer
}

// NewMemory returns an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		assignments: make(map[region.Key]region.Assignment),
		installers:  make(map[string]Installer),
	}
}

func (s *MemoryStore) Migrate(context.Context) error { return nil }
func (s *MemoryStore) Close() error                  { return nil }
func (s *MemoryStore) Ping(context.Context) error    { return nil }

func (s *MemoryStore) GetAll(ctx context.Context) ([]region.Assignment, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "memory: list assignments")
	}
	s.mu.RLock()
	out := make([]region.Assignment, 0, len(s.assignments))
	for _, a := range s.assignments {
		out = append(out, a)
	}
	s.mu.RUnlock()
	region.Sort(out)
	return out, nil
}

func (s *MemoryStore) Get(ctx context.Context, t region.Type, code string) (*region.Assignment, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "memory: get assignment")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assignments[region.Key{Type: t, Code: code}]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (s *MemoryStore) Upsert(ctx context.Context, a region.Assignment) error {
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "memory: upsert assignment")
	}
	a.UpdatedAt = nowUTC(a.UpdatedAt)
	s.mu.Lock()
	s.assignments[a.Key()] = a
	s.mu.Unlock()
	return nil
}

// UpsertMany applies all assignments under one lock.
func (s *MemoryStore) UpsertMany(ctx context.Context, assignments []region.Assignment) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, eris.Wrap(err, "memory: bulk upsert assignments")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range assignments {
		a.UpdatedAt = nowUTC(a.UpdatedAt)
		s.assignments[a.Key()] = a
	}
	return int64(len(assignments)), nil
}

func (s *MemoryStore) Delete(ctx context.Context, t region.Type, code string) error {
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "memory: delete assignment")
	}
	k := region.Key{Type: t, Code: code}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assignments[k]; !ok {
		return eris.Wrapf(ErrNotFound, "assignment %s", k)
	}
	delete(s.assignments, k)
	return nil
}

func (s *MemoryStore) GetInstaller(_ context.Context, id string) (*Installer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.installers[id]
	if !ok {
		return nil, nil
	}
	return &inst, nil
}

func (s *MemoryStore) ListInstallers(context.Context) ([]Installer, error) {
	s.mu.RLock()
	out := make([]Installer, 0, len(s.installers))
	for _, inst := range s.installers {
		out = append(out, inst)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) UpsertInstaller(_ context.Context, inst Installer) error {
	if inst.ID == "" {
		return eris.New("memory: installer id is required")
	}
	inst.UpdatedAt = nowUTC(inst.UpdatedAt)
	s.mu.Lock()
	s.installers[inst.ID] = inst
	s.mu.Unlock()
	return nil
}
