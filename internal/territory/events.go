package territory

import (
	"time"

	"github.com/google/uuid"

	"github.com/sells-group/territory-cli/internal/metrics"
	"github.com/sells-group/territory-cli/internal/region"
)

// Change operations.
const (
	OpUpsert = "upsert"
	OpDelete = "delete"
	OpImport = "import"
)

// ChangeEvent announces that the assignment set changed. Consumers that
// keep derived state (override flags, snapshots) re-pull on receipt.
type ChangeEvent struct {
	ID   uuid.UUID    `json:"id"`
	Op   string       `json:"op"`
	Keys []region.Key `json:"keys"`
	At   time.Time    `json:"at"`
}

// Subscribe registers fn to receive every ChangeEvent published after a
// successful write. fn runs synchronously on the writer's goroutine and
// must not block. The returned func removes the subscription.
func (s *Service) Subscribe(fn func(ChangeEvent)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

func (s *Service) publish(op string, keys []region.Key) ChangeEvent {
	ev := ChangeEvent{ID: uuid.New(), Op: op, Keys: keys, At: s.now().UTC()}
	metrics.ObserveChange(op, len(keys))

	s.mu.RLock()
	subs := make([]func(ChangeEvent), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.mu.RUnlock()

	for _, fn := range subs {
		fn(ev)
	}
	return ev
}
