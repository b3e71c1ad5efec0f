package territory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/territory-cli/internal/metrics"
	"github.com/sells-group/territory-cli/internal/region"
	"github.com/sells-group/territory-cli/internal/resilience"
	"github.com/sells-group/territory-cli/internal/store"
)

// Row is one assignment as shown to admins.
type Row struct {
	region.Assignment
	Overridden bool                `json:"overridden"`
	Overriders []region.Assignment `json:"overriders,omitempty"`
	Installer  *store.Installer    `json:"installer,omitempty"`
}

// AssignmentInput is an admin write. Code is derived from Name when
// empty; either way it is normalized for the region type.
type AssignmentInput struct {
	Type        region.Type `json:"type" yaml:"type"`
	Code        string      `json:"code,omitempty" yaml:"code,omitempty"`
	Name        string      `json:"name,omitempty" yaml:"name,omitempty"`
	InstallerID string      `json:"installer_id" yaml:"installer_id"`
}

// UpsertResult reports a stored assignment and the conflicts it is part
// of. Conflicts never block a write.
type UpsertResult struct {
	Assignment region.Assignment `json:"assignment"`
	Event      ChangeEvent       `json:"event"`
	Warnings   []string          `json:"warnings,omitempty"`
}

// Normalize validates in and converts it to the assignment that would be
// stored, without a timestamp.
func Normalize(in AssignmentInput) (region.Assignment, error) {
	t, err := region.ParseType(string(in.Type))
	if err != nil {
		return region.Assignment{}, eris.Wrapf(ErrInvalidAssignment, "unknown region type %q", in.Type)
	}
	raw := in.Code
	if strings.TrimSpace(raw) == "" {
		raw = in.Name
	}
	code := region.CodeFor(t, raw)
	if code == "" {
		return region.Assignment{}, eris.Wrapf(ErrInvalidAssignment, "no usable %s code in %q", t, raw)
	}
	installer := strings.TrimSpace(in.InstallerID)
	if installer == "" {
		return region.Assignment{}, eris.Wrapf(ErrInvalidAssignment, "%s:%s has no installer", t, code)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = strings.TrimSpace(raw)
	}
	return region.Assignment{Type: t, Code: code, Name: name, InstallerID: installer}, nil
}

// ListAssignments returns every assignment with its override flag, the
// narrower assignments that conflict with it and, when a directory is
// configured, its installer's metadata.
func (s *Service) ListAssignments(ctx context.Context) ([]Row, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	all := snap.All()
	flags := region.ComputeOverrides(all)

	installers, err := s.installerIndex(ctx)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, len(all))
	for i, a := range all {
		rows[i] = Row{Assignment: a, Overridden: flags[a.Key()]}
		if rows[i].Overridden {
			rows[i].Overriders = region.Overriders(all, a)
		}
		if inst, ok := installers[a.InstallerID]; ok {
			rows[i].Installer = &inst
		}
	}
	return rows, nil
}

// Overrides returns only the rows that are partially overridden.
func (s *Service) Overrides(ctx context.Context) ([]Row, error) {
	rows, err := s.ListAssignments(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Row, 0)
	for _, r := range rows {
		if r.Overridden {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Service) installerIndex(ctx context.Context) (map[string]store.Installer, error) {
	if s.directory == nil {
		return nil, nil
	}
	list, err := s.directory.ListInstallers(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "territory: list installers")
	}
	idx := make(map[string]store.Installer, len(list))
	for _, inst := range list {
		idx[inst.ID] = inst
	}
	return idx, nil
}

// Upsert stores an assignment, overwriting any existing one for the same
// region, and reports the override conflicts it takes part in.
func (s *Service) Upsert(ctx context.Context, in AssignmentInput) (*UpsertResult, error) {
	a, err := Normalize(in)
	if err != nil {
		return nil, err
	}
	a.UpdatedAt = s.now().UTC()

	err = resilience.Do(ctx, s.retry, func(ctx context.Context) error {
		return s.store.Upsert(ctx, a)
	})
	if err != nil {
		metrics.ObserveStoreError("upsert")
		return nil, eris.Wrapf(err, "territory: upsert %s", a.Key())
	}
	ev := s.publish(OpUpsert, []region.Key{a.Key()})

	res := &UpsertResult{Assignment: a, Event: ev}
	snap, err := s.snapshot(ctx)
	if err != nil {
		// The write succeeded; only the advisory warnings are lost.
		logger().Warn("override check skipped", zap.String("key", a.Key().String()), zap.Error(err))
		return res, nil
	}
	res.Warnings = conflictWarnings(snap.All(), a)
	return res, nil
}

// Delete removes the assignment for (t, code). code is normalized first.
// Deleting a missing assignment returns an error wrapping store.ErrNotFound.
func (s *Service) Delete(ctx context.Context, t region.Type, code string) (*ChangeEvent, error) {
	if !t.Valid() {
		return nil, eris.Wrapf(ErrInvalidAssignment, "unknown region type %q", t)
	}
	key := region.Key{Type: t, Code: region.CodeFor(t, code)}
	if key.Code == "" {
		return nil, eris.Wrapf(ErrInvalidAssignment, "no usable %s code in %q", t, code)
	}

	err := resilience.Do(ctx, s.retry, func(ctx context.Context) error {
		return s.store.Delete(ctx, key.Type, key.Code)
	})
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			metrics.ObserveStoreError("delete")
		}
		return nil, eris.Wrapf(err, "territory: delete %s", key)
	}
	ev := s.publish(OpDelete, []region.Key{key})
	return &ev, nil
}

// conflictWarnings describes how a conflicts with the rest of the set:
// narrower assignments that override it, and broader assignments it now
// overrides.
func conflictWarnings(all []region.Assignment, a region.Assignment) []string {
	var out []string
	for _, o := range region.Overriders(all, a) {
		out = append(out, fmt.Sprintf("%s is overridden by %s (installer %q)", a.Key(), o.Key(), o.InstallerID))
	}
	for _, b := range all {
		if b.Type.Rank() > a.Type.Rank() && b.InstallerID != a.InstallerID {
			out = append(out, fmt.Sprintf("%s overrides %s (installer %q)", a.Key(), b.Key(), b.InstallerID))
		}
	}
	return out
}
