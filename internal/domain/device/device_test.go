package device

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/cityinfra/trafficcontrol/internal/shared/errors"
)

func TestIsValidAt(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.AddDate(0, 0, -10)
	future := now.AddDate(0, 0, 10)

	tests := []struct {
		name  string
		start *time.Time
		end   *time.Time
		want  bool
	}{
		{"open window", nil, nil, true},
		{"started", &past, nil, true},
		{"not started", &future, nil, false},
		{"ended", nil, &past, false},
		{"ends later", nil, &future, true},
		{"past window", &past, &past, false},
		{"current window", &past, &future, true},
		{"inverted window", &future, &past, false},
		{"future window", &future, &future, false},
		{"bounds inclusive", &now, &now, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidAt(tt.start, tt.end, now))
		})
	}
}

func TestIsInEffect(t *testing.T) {
	now := time.Now()
	assert.True(t, IsInEffect(LifecycleActive, nil, nil, now))
	assert.True(t, IsInEffect(LifecycleTemporarilyActive, nil, nil, now))
	assert.False(t, IsInEffect(LifecycleInactive, nil, nil, now))
	assert.False(t, IsInEffect(LifecycleTemporarilyInactive, nil, nil, now))
}

func TestParseEnums(t *testing.T) {
	l, err := ParseLifecycle("TEMPORARILY_ACTIVE")
	require.NoError(t, err)
	assert.Equal(t, LifecycleTemporarilyActive, l)
	assert.Equal(t, "TEMPORARILY_ACTIVE", l.String())

	c, err := ParseCondition(" GOOD ")
	require.NoError(t, err)
	assert.Equal(t, ConditionGood, c)

	s, err := ParseSize("LARGE")
	require.NoError(t, err)
	assert.Equal(t, SizeLarge, s)
	assert.Equal(t, "LARGE", s.String())

	_, err = ParseLifecycle("active")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindInvalidEnumValue, apperrors.KindOf(err))
	assert.Contains(t, err.Error(), "Value 'active' is invalid. Valid values are ACTIVE, TEMPORARILY_ACTIVE, TEMPORARILY_INACTIVE, INACTIVE")

	_, err = ParseInstallationStatus("BROKEN")
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidEnumValue))
}

func TestFamily(t *testing.T) {
	f, err := ParseFamily("traffic_sign")
	require.NoError(t, err)
	assert.Equal(t, "traffic_sign_plans", f.PlanTable())
	assert.Equal(t, "traffic_sign_reals", f.RealTable())
	assert.Equal(t, "traffic_sign_plan_replacements", f.ReplacementTable())
	assert.Equal(t, "traffic_sign_plan_id", f.PlanColumn())
	assert.Equal(t, "traffic_sign_plan", f.PlanObject())
	assert.Equal(t, TargetTrafficSign, f.TargetModel())
	assert.Empty(t, FamilyMount.TargetModel())

	_, err = ParseFamily("lamp_post")
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidEnumValue))
}

const zoneSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"properties": {
		"zone": {"type": "string", "enum": ["1", "2", "3"]},
		"limit": {"type": "string"},
		"unit": {"type": "string", "enum": ["min", "h"]}
	},
	"required": ["zone", "limit", "unit"],
	"additionalProperties": false
}`

func TestValidateDeviceTypeSchema(t *testing.T) {
	assert.NoError(t, ValidateDeviceTypeSchema(TargetAdditionalSign, []byte(zoneSchema)))
	assert.NoError(t, ValidateDeviceTypeSchema(TargetTrafficSign, nil))

	err := ValidateDeviceTypeSchema(TargetTrafficSign, []byte(zoneSchema))
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidContentSchema))

	err = ValidateDeviceTypeSchema(TargetAdditionalSign, []byte(`{"type": 12}`))
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidContentSchema))

	err = ValidateDeviceTypeSchema(TargetAdditionalSign, []byte(`{not json`))
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidContentSchema))
}

func TestValidateContent(t *testing.T) {
	schema, err := CompileContentSchema([]byte(zoneSchema))
	require.NoError(t, err)

	tests := []struct {
		name     string
		schema   *ContentSchema
		content  string
		missing  bool
		wantKind apperrors.Kind
	}{
		{name: "valid content", schema: schema, content: `{"zone":"1","limit":"20","unit":"min"}`},
		{name: "missing content flagged", schema: schema, missing: true},
		{name: "null content flagged", schema: schema, content: "null", missing: true},
		{name: "both set", schema: schema, content: `{"zone":"1"}`, missing: true, wantKind: apperrors.KindMissingContentConflict},
		{name: "schema mismatch", schema: schema, content: `{"zone":"9","limit":"20","unit":"min"}`, wantKind: apperrors.KindContentSchemaMismatch},
		{name: "content required", schema: schema, wantKind: apperrors.KindContentSchemaMismatch},
		{name: "no schema no content", schema: nil},
		{name: "content without schema", schema: nil, content: `{"zone":"1"}`, wantKind: apperrors.KindContentSchemaMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateContent(tt.schema, []byte(tt.content), tt.missing)
			if tt.wantKind == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, apperrors.KindOf(err))
		})
	}
}

func TestValidateRelation(t *testing.T) {
	assert.NoError(t, ValidateRelation(TargetTrafficSign, FamilyTrafficSign))
	assert.NoError(t, ValidateRelation("", FamilyBarrier))

	err := ValidateRelation(TargetTrafficSign, FamilyAdditionalSign)
	assert.True(t, apperrors.IsKind(err, apperrors.KindDeviceTypeUnsupported))
}
