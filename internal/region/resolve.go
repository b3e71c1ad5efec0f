package region

import (
	"context"
	"fmt"
)

// Lookup is the read contract the resolver needs from an assignment
// store. Get returns nil, nil when no assignment exists for the key.
type Lookup interface {
	Get(ctx context.Context, t Type, code string) (*Assignment, error)
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(ctx context.Context, t Type, code string) (*Assignment, error)

// Get implements Lookup.
func (f LookupFunc) Get(ctx context.Context, t Type, code string) (*Assignment, error) {
	return f(ctx, t, code)
}

// LookupError reports that the assignment store could not be read. It is
// distinct from an unresolved result: callers should retry or fail rather
// than apply their default installer.
type LookupError struct {
	Type Type
	Code string
	Err  error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("region: lookup %s %q: %v", e.Type, e.Code, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// Match is the assignment that decided a resolution.
type Match struct {
	Type        Type   `json:"type"`
	Code        string `json:"code"`
	InstallerID string `json:"installer_id"`
}

// Malformed reports whether the matching assignment has no installer.
func (m *Match) Malformed() bool {
	return m != nil && m.InstallerID == ""
}

// Resolve walks the tiers from most to least specific and returns the
// first assignment found. Absent fields and empty keys skip their tier.
// A matched assignment without an installer still ends the walk; broader
// tiers are never consulted once a tier matches.
//
// Resolve returns nil, nil when no tier matches. It never substitutes a
// default installer.
func Resolve(ctx context.Context, geo GeoParts, lookup Lookup) (*Match, error) {
	for _, t := range Tiers {
		code := CodeFor(t, geo.Field(t))
		if code == "" {
			continue
		}
		a, err := lookup.Get(ctx, t, code)
		if err != nil {
			return nil, &LookupError{Type: t, Code: code, Err: err}
		}
		if a == nil {
			continue
		}
		return &Match{Type: t, Code: code, InstallerID: a.InstallerID}, nil
	}
	return nil, nil
}
