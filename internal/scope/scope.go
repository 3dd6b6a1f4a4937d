// Package scope resolves a consent scope into the organizations allowed to see a
// person's record and those blocked from it.
package scope

import (
	"errors"
	"sort"
	"strings"
)

// Scope describes how broadly a person's record is shared.
type Scope string

const (
	AllOrgs      Scope = "all_orgs"
	SelectedOrgs Scope = "selected_orgs"
	None         Scope = "none"
)

var (
	// ErrNoOrganizationSelected is returned for selected_orgs when nothing participating was picked.
	ErrNoOrganizationSelected = errors.New("select at least one organization")
	// ErrInvalidScope is returned for scope values outside the enum.
	ErrInvalidScope = errors.New("invalid consent scope")
)

// Result is the effective allow and block lists for a scope.
// Both slices are sorted and free of duplicates.
type Result struct {
	Allowed []int64 `json:"allowedOrgIds"`
	Blocked []int64 `json:"blockedOrgIds"`
}

// IsValid reports whether s is one of the known scopes.
func (s Scope) IsValid() bool {
	switch s {
	case AllOrgs, SelectedOrgs, None:
		return true
	}
	return false
}

func (s Scope) String() string {
	return string(s)
}

// ParseScope maps raw form input onto a Scope, returning fallback for anything unknown.
func ParseScope(raw string, fallback Scope) Scope {
	s := Scope(strings.ToLower(strings.TrimSpace(raw)))
	if s.IsValid() {
		return s
	}
	return fallback
}

// Evaluate computes the allow and block lists for scope given the explicitly allowed
// organization ids and the participating roster. Explicit ids outside the roster are
// dropped silently.
func Evaluate(s Scope, explicitAllowed, participating []int64) (Result, error) {
	roster := uniqueSorted(participating)

	switch s {
	case AllOrgs:
		return Result{Allowed: roster, Blocked: []int64{}}, nil
	case None:
		return Result{Allowed: []int64{}, Blocked: roster}, nil
	case SelectedOrgs:
		wanted := make(map[int64]struct{}, len(explicitAllowed))
		for _, id := range explicitAllowed {
			wanted[id] = struct{}{}
		}
		allowed := make([]int64, 0, len(roster))
		blocked := make([]int64, 0, len(roster))
		for _, id := range roster {
			if _, ok := wanted[id]; ok {
				allowed = append(allowed, id)
			} else {
				blocked = append(blocked, id)
			}
		}
		if len(allowed) == 0 {
			return Result{}, ErrNoOrganizationSelected
		}
		return Result{Allowed: allowed, Blocked: blocked}, nil
	}
	return Result{}, ErrInvalidScope
}

// Merge returns the sorted union of the given id lists.
func Merge(lists ...[]int64) []int64 {
	var all []int64
	for _, l := range lists {
		all = append(all, l...)
	}
	return uniqueSorted(all)
}

func uniqueSorted(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
