// Package selector provides composable predicates that pick modules out of a
// registry, plus a Builder that assembles one from optional filters.
package selector

import (
	"github.com/specialistvlad/permodule/internal/module"
)

// Predicate decides whether a module is selected. A nil module never matches.
type Predicate func(m *module.Module) bool

// And returns a predicate that matches when both p and other match.
func (p Predicate) And(other Predicate) Predicate {
	return func(m *module.Module) bool {
		return p(m) && other(m)
	}
}

// Any matches every module.
func Any() Predicate {
	return func(m *module.Module) bool {
		return m != nil
	}
}

// Active matches modules whose activation equals state.
func Active(state bool) Predicate {
	return func(m *module.Module) bool {
		return m != nil && m.Active() == state
	}
}

// WithIDIn matches modules whose id is listed. A nil list never matches.
func WithIDIn(ids []string) Predicate {
	if ids == nil {
		return none
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return func(m *module.Module) bool {
		if m == nil {
			return false
		}
		_, ok := set[m.ID()]
		return ok
	}
}

// WithAllTags matches modules carrying every listed tag. A nil list never
// matches; an empty list matches every module.
func WithAllTags(tags []string) Predicate {
	if tags == nil {
		return none
	}
	tags = append([]string(nil), tags...)
	return func(m *module.Module) bool {
		return m != nil && m.HasAllTags(tags)
	}
}

// WithTagIn matches modules carrying at least one listed tag. A nil list
// never matches.
func WithTagIn(tags []string) Predicate {
	if tags == nil {
		return none
	}
	tags = append([]string(nil), tags...)
	return func(m *module.Module) bool {
		return m != nil && m.HasAnyTag(tags)
	}
}

func none(*module.Module) bool { return false }
