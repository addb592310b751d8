// Package permission answers whether a viewer holds a named permission.
package permission

import (
	"strings"

	"github.com/google/uuid"
)

// BypassPermission exempts a viewer from all spoofing.
const BypassPermission = "AntiHealthIndicator.Bypass"

// Checker reports whether subject holds the named permission.
type Checker interface {
	HasPermission(subject uuid.UUID, name string) bool
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(subject uuid.UUID, name string) bool

func (f CheckerFunc) HasPermission(subject uuid.UUID, name string) bool {
	return f(subject, name)
}

// None denies everything.
var None Checker = CheckerFunc(func(uuid.UUID, string) bool { return false })

// Static grants fixed permissions per subject. Permission names are matched
// case-insensitively.
type Static struct {
	grants map[uuid.UUID]map[string]struct{}
}

// NewStatic builds a checker from subject -> permission names.
func NewStatic(grants map[uuid.UUID][]string) *Static {
	s := &Static{grants: make(map[uuid.UUID]map[string]struct{}, len(grants))}
	for subject, names := range grants {
		set := make(map[string]struct{}, len(names))
		for _, n := range names {
			set[strings.ToLower(n)] = struct{}{}
		}
		s.grants[subject] = set
	}
	return s
}

func (s *Static) HasPermission(subject uuid.UUID, name string) bool {
	_, ok := s.grants[subject][strings.ToLower(name)]
	return ok
}

// Any grants a permission when one of the checkers does.
func Any(checkers ...Checker) Checker {
	return CheckerFunc(func(subject uuid.UUID, name string) bool {
		for _, c := range checkers {
			if c.HasPermission(subject, name) {
				return true
			}
		}
		return false
	})
}
