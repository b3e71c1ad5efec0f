package territory

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/territory-cli/internal/metrics"
	"github.com/sells-group/territory-cli/internal/region"
	"github.com/sells-group/territory-cli/internal/resilience"
	"github.com/sells-group/territory-cli/internal/store"
)

// RowError is an import row that could not be stored.
type RowError struct {
	Row int    `json:"row"`
	Err string `json:"error"`
}

// ImportResult summarizes a bulk import.
type ImportResult struct {
	Written  int64        `json:"written"`
	Rejected []RowError   `json:"rejected,omitempty"`
	Event    *ChangeEvent `json:"event,omitempty"`
}

// Import normalizes and stores many assignments in one write. Invalid
// rows are reported and skipped; when several rows share a key the last
// one wins. Rows are numbered from 1.
func (s *Service) Import(ctx context.Context, inputs []AssignmentInput) (*ImportResult, error) {
	res := &ImportResult{}
	byKey := make(map[region.Key]int, len(inputs))
	var batch []region.Assignment

	now := s.now().UTC()
	for i, in := range inputs {
		a, err := Normalize(in)
		if err != nil {
			res.Rejected = append(res.Rejected, RowError{Row: i + 1, Err: err.Error()})
			continue
		}
		a.UpdatedAt = now
		if j, ok := byKey[a.Key()]; ok {
			batch[j] = a
			continue
		}
		byKey[a.Key()] = len(batch)
		batch = append(batch, a)
	}
	if len(batch) == 0 {
		return res, nil
	}

	n, err := resilience.DoVal(ctx, s.retry, func(ctx context.Context) (int64, error) {
		return store.UpsertAll(ctx, s.store, batch)
	})
	if err != nil {
		metrics.ObserveStoreError("import")
		return nil, eris.Wrap(err, "territory: import assignments")
	}
	res.Written = n

	keys := make([]region.Key, len(batch))
	for i, a := range batch {
		keys[i] = a.Key()
	}
	ev := s.publish(OpImport, keys)
	res.Event = &ev
	return res, nil
}
