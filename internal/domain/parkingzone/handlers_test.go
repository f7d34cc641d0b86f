package parkingzone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnrich(t *testing.T) {
	tests := []struct {
		name        string
		code        string
		info        string
		wantText    string
		wantContent map[string]string
		wantErrors  []string
	}{
		{
			name:        "zone limit with spaces",
			code:        "H20.72",
			info:        "text: 1 20 min; numbercode: XYZ",
			wantText:    "text:Vyöhyke/Zon 1. Kertamaksu enintään/Engångsbetalning max 20 min; numbercode:XYZ",
			wantContent: map[string]string{"zone": "1", "limit": "20", "unit": "min"},
		},
		{
			name:        "zone limit glued with dotless i",
			code:        "H20.72S",
			info:        "text: 2 4mın; numbercode: 123",
			wantText:    "text:Vyöhyke/Zon 2. Kertamaksu enintään/Engångsbetalning max 4 min; numbercode:123",
			wantContent: map[string]string{"zone": "2", "limit": "4", "unit": "min"},
		},
		{
			name:       "zone limit bad unit",
			code:       "H20.72",
			info:       "text: 4 20 h; numbercode: 1",
			wantErrors: []string{"Parsed zone is not allowed: 4"},
		},
		{
			name:       "zone limit unparsable",
			code:       "H20.72",
			info:       "text: twenty; numbercode: 1",
			wantErrors: []string{"Could not get zone, limit and unit from additional_information"},
		},
		{
			name:        "zone permit with split compound permit",
			code:        "H20.71",
			info:        "text: 1 a /b; numbercode: 55",
			wantText:    "text:Vyöhyke/Zon 1. Ei koske P-tunnuksella/Gäller ej med P-tecknet A/B; numbercode:55",
			wantContent: map[string]string{"zone": "1", "permit": "A/B"},
		},
		{
			name:        "zone permit semicolon separated with ocr zero",
			code:        "H20.71S",
			info:        "text: 3;0\n; numbercode: 9",
			wantText:    "text:Vyöhyke/Zon 3. Maksu ei koske P-tunnuksella/Avgiften gäller ej med P-tecknet O; numbercode:9",
			wantContent: map[string]string{"zone": "3", "permit": "O"},
		},
		{
			name:       "zone permit not allowed",
			code:       "H20.71",
			info:       "text: 5 X; numbercode: 1",
			wantErrors: []string{"Parsed permit code is not allowed: X", "Parsed zone is not allowed: 5"},
		},
		{
			name:       "zone permit too many parts",
			code:       "H20.71",
			info:       "text: 1 A B; numbercode: 1",
			wantErrors: []string{"Could not get zone and permit from additional_information"},
		},
		{
			name:     "fixed zone text",
			code:     "H20.74S",
			info:     "text: whatever; numbercode: 42",
			wantText: "text:Vyöhyke/Zon 2; numbercode:42",
		},
		{
			name:        "permit only",
			code:        "H20.8",
			info:        "text: unreadable k; numbercode: 7",
			wantText:    "text:Ei koske P-tunnuksella/Gäller ej med P-tecknet K; numbercode:7",
			wantContent: map[string]string{"permit": "K"},
		},
		{
			name:       "permit only ambiguous",
			code:       "H20.8S",
			info:       "text: K L; numbercode: 7",
			wantErrors: []string{"Could not get permit code from additional_information"},
		},
		{
			name:       "missing numbercode",
			code:       "H20.73",
			info:       "zone one",
			wantErrors: []string{"text and numbercode not found from additional_information"},
		},
		{
			name:       "unsupported code",
			code:       "H20.9",
			info:       "text: 1; numbercode: 1",
			wantErrors: []string{"Device type: H20.9 not supported"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Enrich(tt.code, tt.info)
			if tt.wantErrors != nil {
				assert.False(t, got.OK())
				assert.Equal(t, tt.wantErrors, got.Errors)
				return
			}
			assert.True(t, got.OK(), "errors: %v", got.Errors)
			assert.Equal(t, tt.wantText, got.Text)
			assert.Equal(t, tt.wantContent, got.Content)
		})
	}
}

func TestEnrich_Idempotent(t *testing.T) {
	inputs := map[string]string{
		"H20.71":  "text: 1 A; numbercode: 1",
		"H20.71S": "text: 2 B/C; numbercode: 2",
		"H20.72":  "text: 1 20 min; numbercode: XYZ",
		"H20.8S":  "text: Z; numbercode: 3",
		"H20.75":  "text: x; numbercode: 4",
	}
	for code, info := range inputs {
		first := Enrich(code, info)
		if !assert.True(t, first.OK(), code) {
			continue
		}
		second := Enrich(code, first.Text)
		assert.True(t, second.OK(), code)
		assert.Equal(t, first.Text, second.Text, code)
		assert.Equal(t, first.Content, second.Content, code)
	}
}

func TestExcludedByDefault(t *testing.T) {
	assert.True(t, ExcludedByDefault("text:VYÖHYKE/Zon 1; numbercode:1"))
	assert.True(t, ExcludedByDefault("text:Maksu ei koske P-tunnuksella/Avgiften; numbercode:1"))
	assert.False(t, ExcludedByDefault("text: 1 20 min; numbercode: XYZ"))
}

func TestSupportedCodes(t *testing.T) {
	codes := SupportedCodes()
	assert.Len(t, codes, 12)
	assert.Equal(t, "H20.71", codes[0])
}
