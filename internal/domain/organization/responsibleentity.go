// Package organization models the responsible entity tree that scopes write
// permissions.
package organization

import (
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/cityinfra/trafficcontrol/internal/shared/errors"
)

// Level orders organization tiers from the widest to the narrowest.
type Level int

const (
	LevelDivision Level = 10
	LevelService  Level = 20
	LevelUnit     Level = 30
	LevelProject  Level = 50
)

var levelNames = map[Level]string{
	LevelDivision: "DIVISION",
	LevelService:  "SERVICE",
	LevelUnit:     "UNIT",
	LevelProject:  "PROJECT",
}

func (l Level) String() string { return levelNames[l] }

func (l Level) IsValid() bool {
	_, ok := levelNames[l]
	return ok
}

func ParseLevel(s string) (Level, error) {
	for l, name := range levelNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return l, nil
		}
	}
	return 0, apperrors.Newf(apperrors.KindInvalidEnumValue, "Value '%s' is invalid. Valid values are DIVISION, SERVICE, UNIT, PROJECT", s)
}

// ValidateParentLevel rejects a parent that sits below its child.
func ValidateParentLevel(parent, child Level) error {
	if parent > child {
		return apperrors.New(apperrors.KindInvalidEnumValue,
			"Parent's organization level can't be below this object's level.", "parent level")
	}
	return nil
}

// FullPath renders the names from the root down, e.g. "KYMP > Yleiset Alueet > ABC123".
func FullPath(rootFirst []string) string {
	return strings.Join(rootFirst, " > ")
}

// ParentLookup returns the parent of id, or nil for a root.
type ParentLookup func(id uuid.UUID) (*uuid.UUID, error)

// AncestorIDs returns id followed by its ancestors up to the root. A cycle in
// the stored tree stops the walk at the first repeated node.
func AncestorIDs(id uuid.UUID, parentOf ParentLookup) ([]uuid.UUID, error) {
	seen := map[uuid.UUID]struct{}{id: {}}
	out := []uuid.UUID{id}
	cur := id
	for {
		parent, err := parentOf(cur)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return out, nil
		}
		if _, dup := seen[*parent]; dup {
			return out, nil
		}
		seen[*parent] = struct{}{}
		out = append(out, *parent)
		cur = *parent
	}
}

// IsWithinSubtree reports whether any of the ancestors of an entity, itself
// included, is one of the granted entities.
func IsWithinSubtree(ancestors []uuid.UUID, granted map[uuid.UUID]struct{}) bool {
	for _, id := range ancestors {
		if _, ok := granted[id]; ok {
			return true
		}
	}
	return false
}
