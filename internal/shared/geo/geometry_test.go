package geo

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/cityinfra/trafficcontrol/internal/shared/errors"
)

func TestParseEWKT(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantType string
		wantSRID int
		wantKind apperrors.Kind
	}{
		{name: "plain point", input: "POINT (1 2)", wantType: "Point"},
		{name: "srid prefix", input: "SRID=3879;POINT Z (25496000 6673000 0)", wantType: "Point", wantSRID: 3879},
		{name: "lower case keywords", input: "srid=3879;multipolygon (((0 0, 1 0, 1 1, 0 0)))", wantType: "MultiPolygon", wantSRID: 3879},
		{name: "empty", input: "MULTIPOLYGON EMPTY", wantType: "MultiPolygon"},
		{name: "garbage", input: "NOT A GEOMETRY", wantKind: apperrors.KindInvalidGeometry},
		{name: "bad srid", input: "SRID=abc;POINT (1 2)", wantKind: apperrors.KindInvalidEwkt},
		{name: "srid without separator", input: "SRID=3879 POINT (1 2)", wantKind: apperrors.KindInvalidEwkt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := ParseEWKT(tt.input)
			if tt.wantKind != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, apperrors.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, g.TypeName())
			assert.Equal(t, tt.wantSRID, g.SRID())
		})
	}
}

func TestPromoteTo3D(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"point", "SRID=3879;POINT (1 2)", "SRID=3879;POINT Z (1 2 5)"},
		{"point overwrites z", "POINT Z (1 2 9)", "POINT Z (1 2 5)"},
		{"linestring", "LINESTRING (0 0, 1 1)", "LINESTRING Z (0 0 5, 1 1 5)"},
		{"polygon with hole", "POLYGON ((0 0, 4 0, 4 4, 0 0), (1 1, 2 1, 2 2, 1 1))", "POLYGON Z ((0 0 5, 4 0 5, 4 4 5, 0 0 5), (1 1 5, 2 1 5, 2 2 5, 1 1 5))"},
		{"multipolygon", "MULTIPOLYGON (((0 0, 1 0, 1 1, 0 0)), ((5 5, 6 5, 6 6, 5 5)))", "MULTIPOLYGON Z (((0 0 5, 1 0 5, 1 1 5, 0 0 5)), ((5 5 5, 6 5 5, 6 6 5, 5 5 5)))"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := PromoteTo3D(MustParseEWKT(tt.input), 5)
			require.NoError(t, err)
			assert.True(t, g.Is3D())
			assert.True(t, g.EqualAt(MustParseEWKT(tt.want), 6), "got %s", g)
		})
	}
}

func TestGeometry_ValueScanRoundTrip(t *testing.T) {
	src := MustParseEWKT("SRID=3879;MULTIPOLYGON Z (((0 0 0, 10 0 0, 10 10 0, 0 0 0)))")

	v, err := src.Value()
	require.NoError(t, err)
	require.IsType(t, "", v)

	var dst Geometry
	require.NoError(t, dst.Scan(v))
	assert.Equal(t, 3879, dst.SRID())
	assert.True(t, src.EqualAt(dst, 9))

	var fromText Geometry
	require.NoError(t, fromText.Scan([]byte("SRID=3879;POINT (1 2)")))
	assert.Equal(t, "Point", fromText.TypeName())

	var null Geometry
	require.NoError(t, null.Scan(nil))
	assert.True(t, null.IsZero())
	nv, err := null.Value()
	require.NoError(t, err)
	assert.Nil(t, nv)
}

func TestGeometry_EqualAtPrecision(t *testing.T) {
	a := MustParseEWKT("POINT (1.0000001 2)")
	b := MustParseEWKT("POINT (1.0000002 2)")

	assert.True(t, a.EqualAt(b, 6))
	assert.False(t, a.EqualAt(b, 7))
	assert.False(t, a.EqualAt(Geometry{}, 6))
	assert.True(t, Geometry{}.EqualAt(Geometry{}, 6))
}

func TestGeometry_JSON(t *testing.T) {
	type wrapper struct {
		Location Geometry `json:"location"`
	}
	b, err := json.Marshal(wrapper{Location: MustParseEWKT("SRID=3879;POINT (1 2)")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"location":"SRID=3879;POINT (1 2)"}`, string(b))

	var w wrapper
	require.NoError(t, json.Unmarshal([]byte(`{"location":null}`), &w))
	assert.True(t, w.Location.IsZero())
}

func TestGeometry_NumPolygonsAndBounds(t *testing.T) {
	g := MustParseEWKT("MULTIPOLYGON (((0 0, 1 0, 1 1, 0 0)), ((5 5, 6 5, 6 7, 5 5)))")
	assert.Equal(t, 2, g.NumPolygons())

	minX, minY, maxX, maxY := g.Bounds()
	assert.Equal(t, []float64{0, 0, 6, 7}, []float64{minX, minY, maxX, maxY})
}
