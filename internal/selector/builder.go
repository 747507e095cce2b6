package selector

import (
	"fmt"
	"strings"

	"github.com/specialistvlad/permodule/internal/module"
)

// Builder accumulates optional filters. Only the filters that were set
// constrain the built predicate.
type Builder struct {
	ids    []string
	idsSet bool

	active    bool
	activeSet bool

	allTags    []string
	allTagsSet bool

	anyTags    []string
	anyTagsSet bool

	err error
}

// NewBuilder returns an empty builder whose predicate matches all modules.
func NewBuilder() *Builder {
	return &Builder{}
}

// WithIDs restricts the selection to the given ids. Repeated calls add ids.
func (b *Builder) WithIDs(ids ...string) *Builder {
	b.idsSet = true
	if b.ids == nil {
		b.ids = []string{}
	}
	for _, id := range ids {
		b.ids = append(b.ids, strings.TrimSpace(id))
	}
	return b
}

// Active restricts the selection to modules with the given activation.
func (b *Builder) Active(state bool) *Builder {
	b.activeSet = true
	b.active = state
	return b
}

// WithTags requires every given tag. Repeated calls add tags.
func (b *Builder) WithTags(tags ...string) *Builder {
	b.allTagsSet = true
	b.allTags = b.appendTags(b.allTags, "tags", tags)
	return b
}

// WithTagIn requires at least one of the given tags. Repeated calls add tags.
func (b *Builder) WithTagIn(tags ...string) *Builder {
	b.anyTagsSet = true
	b.anyTags = b.appendTags(b.anyTags, "tag_in", tags)
	return b
}

func (b *Builder) appendTags(dst []string, setting string, tags []string) []string {
	if dst == nil {
		dst = []string{}
	}
	for _, tag := range tags {
		v, err := module.ValidateTag(tag)
		if err != nil {
			if b.err == nil {
				b.err = fmt.Errorf("selector: %s: %w", setting, err)
			}
			continue
		}
		dst = append(dst, v)
	}
	return dst
}

// Build returns the conjunction of Any and every filter that was set.
func (b *Builder) Build() (Predicate, error) {
	if b.err != nil {
		return nil, b.err
	}
	p := Any()
	if b.idsSet {
		p = p.And(WithIDIn(b.ids))
	}
	if b.activeSet {
		p = p.And(Active(b.active))
	}
	if b.allTagsSet {
		p = p.And(WithAllTags(b.allTags))
	}
	if b.anyTagsSet {
		p = p.And(WithTagIn(b.anyTags))
	}
	return p, nil
}
