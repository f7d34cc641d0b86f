package organization

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/cityinfra/trafficcontrol/internal/shared/errors"
)

func TestValidateParentLevel(t *testing.T) {
	assert.NoError(t, ValidateParentLevel(LevelDivision, LevelService))
	assert.NoError(t, ValidateParentLevel(LevelUnit, LevelUnit))

	err := ValidateParentLevel(LevelProject, LevelDivision)
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidEnumValue))
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("unit")
	require.NoError(t, err)
	assert.Equal(t, LevelUnit, l)
	assert.Equal(t, "UNIT", l.String())

	_, err = ParseLevel("TEAM")
	assert.Error(t, err)
}

func TestAncestorIDs(t *testing.T) {
	root, mid, leaf := uuid.New(), uuid.New(), uuid.New()
	parents := map[uuid.UUID]*uuid.UUID{leaf: &mid, mid: &root, root: nil}
	lookup := func(id uuid.UUID) (*uuid.UUID, error) { return parents[id], nil }

	got, err := AncestorIDs(leaf, lookup)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{leaf, mid, root}, got)

	granted := map[uuid.UUID]struct{}{root: {}}
	assert.True(t, IsWithinSubtree(got, granted))
	assert.False(t, IsWithinSubtree([]uuid.UUID{uuid.New()}, granted))

	parents[root] = &leaf
	got, err = AncestorIDs(leaf, lookup)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	_, err = AncestorIDs(leaf, func(uuid.UUID) (*uuid.UUID, error) { return nil, errors.New("db down") })
	assert.Error(t, err)
}

func TestFullPath(t *testing.T) {
	assert.Equal(t, "KYMP > Yleiset Alueet > ABC123", FullPath([]string{"KYMP", "Yleiset Alueet", "ABC123"}))
}
