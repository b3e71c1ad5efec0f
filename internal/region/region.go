// Package region resolves which installer is responsible for an address
// from administratively assigned zip, city, county and state regions.
package region

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Type identifies the kind of region an assignment covers.
type Type string

// Region types, most specific first.
const (
	TypeZIP    Type = "zip"
	TypeCity   Type = "city"
	TypeCounty Type = "county"
	TypeState  Type = "state"
)

// Tiers lists region types in resolution order, most specific first.
var Tiers = []Type{TypeZIP, TypeCity, TypeCounty, TypeState}

// ParseType converts a string into a Type. Matching is case-insensitive.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", eris.Errorf("region: unknown region type %q", s)
	}
	return t, nil
}

// Valid reports whether t is one of the four region types.
func (t Type) Valid() bool {
	return t.Rank() >= 0
}

// Rank returns the position of t in Tiers (0 = most specific), or -1.
func (t Type) Rank() int {
	for i, tier := range Tiers {
		if tier == t {
			return i
		}
	}
	return -1
}

// Narrower returns the region types strictly more specific than t.
func (t Type) Narrower() []Type {
	r := t.Rank()
	if r <= 0 {
		return nil
	}
	out := make([]Type, r)
	copy(out, Tiers[:r])
	return out
}

func (t Type) String() string { return string(t) }

// Key addresses a single assignment. The store holds at most one
// assignment per key.
type Key struct {
	Type Type   `json:"type" yaml:"type"`
	Code string `json:"code" yaml:"code"`
}

func (k Key) String() string { return string(k.Type) + ":" + k.Code }

// Assignment delegates responsibility for one region to an installer.
// Code is the normalized key; Name is the display label.
type Assignment struct {
	Type        Type      `json:"type" yaml:"type"`
	Code        string    `json:"code" yaml:"code"`
	Name        string    `json:"name" yaml:"name"`
	InstallerID string    `json:"installer_id" yaml:"installer_id"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"updated_at"`
}

// Key returns the (type, code) pair identifying the assignment.
func (a Assignment) Key() Key {
	return Key{Type: a.Type, Code: a.Code}
}

// GeoParts is whatever a decomposer or geocoder could extract from an
// address. Empty fields are absent.
type GeoParts struct {
	ZIP    string `json:"zip,omitempty" yaml:"zip,omitempty"`
	City   string `json:"city,omitempty" yaml:"city,omitempty"`
	County string `json:"county,omitempty" yaml:"county,omitempty"`
	State  string `json:"state,omitempty" yaml:"state,omitempty"`
}

// Field returns the raw value for the given tier.
func (g GeoParts) Field(t Type) string {
	switch t {
	case TypeZIP:
		return g.ZIP
	case TypeCity:
		return g.City
	case TypeCounty:
		return g.County
	case TypeState:
		return g.State
	default:
		return ""
	}
}

// IsEmpty reports whether no field is set.
func (g GeoParts) IsEmpty() bool {
	return g.ZIP == "" && g.City == "" && g.County == "" && g.State == ""
}
