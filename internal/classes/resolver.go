// Package classes resolves dataset class identifiers through configured
// equivalence groups. Labeling pipelines and detectors rarely agree on
// vocabulary ("dress" vs "clothing"); a group folds such aliases into one
// canonical identifier so vocabulary drift does not show up as mismatches.
package classes

import (
	"fmt"
	"strings"
)

// Group is a named set of class identifiers treated as one class during
// matching. The group name is the canonical identifier for every member.
type Group struct {
	Name    string
	Members []string
}

// DuplicateMemberError reports a class identifier claimed by two different
// groups. Resolution would be ambiguous, so the configuration is rejected
// before any image is audited.
type DuplicateMemberError struct {
	Class  string
	GroupA string
	GroupB string
}

func (e *DuplicateMemberError) Error() string {
	return fmt.Sprintf("class %q belongs to both group %q and group %q", e.Class, e.GroupA, e.GroupB)
}

// Resolver maps class identifiers to canonical group identifiers.
// Immutable after construction; safe for concurrent use.
type Resolver struct {
	canonical map[string]string
}

// NewResolver builds a resolver from the configured groups. Membership is
// case-insensitive and whitespace-trimmed. A class listed in two different
// groups fails the build with a DuplicateMemberError.
func NewResolver(groups []Group) (*Resolver, error) {
	canonical := make(map[string]string)
	for _, g := range groups {
		name := strings.ToLower(strings.TrimSpace(g.Name))
		if name == "" {
			return nil, fmt.Errorf("class group with members %v has no name", g.Members)
		}
		for _, member := range g.Members {
			key := strings.ToLower(strings.TrimSpace(member))
			if key == "" {
				continue
			}
			if prev, ok := canonical[key]; ok {
				if prev != name {
					return nil, &DuplicateMemberError{Class: key, GroupA: prev, GroupB: name}
				}
				continue
			}
			canonical[key] = name
		}
	}
	return &Resolver{canonical: canonical}, nil
}

// Canonical returns the group identifier for a class. A class no group
// claims is its own singleton group: its lowercased identifier.
func (r *Resolver) Canonical(id string) string {
	key := strings.ToLower(strings.TrimSpace(id))
	if group, ok := r.canonical[key]; ok {
		return group
	}
	return key
}

// Same reports whether two class identifiers resolve to the same
// canonical group.
func (r *Resolver) Same(a, b string) bool {
	return r.Canonical(a) == r.Canonical(b)
}
