// Package bank holds the built-in bank export profiles.
//
// The set is closed: a new bank is added by declaring a new profile type
// and listing it in Default, never at runtime.
package bank

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/MrJamesThe3rd/tally/internal/importer"
	"github.com/MrJamesThe3rd/tally/internal/tabular"
)

var ErrUnknownProfile = errors.New("unknown bank profile")

type Registry struct {
	profiles map[string]importer.Profile
}

// NewRegistry panics on a repeated profile id.
func NewRegistry(profiles ...importer.Profile) *Registry {
	r := &Registry{profiles: make(map[string]importer.Profile, len(profiles))}

	for _, p := range profiles {
		if _, dup := r.profiles[p.ID()]; dup {
			panic("bank: duplicate profile " + p.ID())
		}

		r.profiles[p.ID()] = p
	}

	return r
}

// Default returns a registry seeded with every built-in profile.
func Default() *Registry {
	return NewRegistry(
		CGDConta{},
		CGDExtrato{},
		CGDCartao{},
		ChaseChecking{},
		BROU{},
	)
}

func (r *Registry) Resolve(id string) (importer.Profile, error) {
	p, ok := r.profiles[strings.TrimSpace(id)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProfile, id)
	}

	return p, nil
}

// List returns the profiles sorted by id.
func (r *Registry) List() []importer.Profile {
	out := make([]importer.Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p)
	}

	slices.SortFunc(out, func(a, b importer.Profile) int {
		return strings.Compare(a.ID(), b.ID())
	})

	return out
}

// hasPrefixFold reports whether the trimmed v starts with one of prefixes,
// ignoring case.
func hasPrefixFold(v string, prefixes ...string) bool {
	v = strings.ToLower(strings.TrimSpace(v))

	for _, p := range prefixes {
		if strings.HasPrefix(v, p) {
			return true
		}
	}

	return false
}

// isFooter reports whether row has no date in dateCol and some cell starting
// with one of prefixes. Dated rows are movements whatever their text says.
func isFooter(row tabular.Row, dateCol string, prefixes ...string) bool {
	if strings.TrimSpace(row.Get(dateCol)) != "" {
		return false
	}

	for _, v := range row.Fields {
		if hasPrefixFold(v, prefixes...) {
			return true
		}
	}

	return false
}
