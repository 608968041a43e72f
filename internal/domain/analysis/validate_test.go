package analysis

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullResponse = `{
  "product_name": "Oat Crackers",
  "detected_ingredients_text": "Oat flour, palm oil, salt",
  "health_score": 72,
  "halal_analysis": {"status": "Halal Safe", "reason": "MUI logo visible"},
  "allergen_list": ["Gluten", "Oat"],
  "nutrition_summary": {"sugar_g": 3.5, "sugar_teaspoons": 0.9},
  "alerts": [
    {"name": "Sodium", "category": "Health", "risk": "Moderate salt", "severity": "Medium"}
  ],
  "healthy_alternatives": [{"name": "Rice cakes", "reason": "Lower sodium"}],
  "brief_conclusion": "Reasonable snack."
}`

// withField decodes fullResponse and lets the test mutate it.
func withField(t *testing.T, mutate func(o Object)) Object {
	t.Helper()
	obj, err := decodeObject(fullResponse)
	require.NoError(t, err)
	mutate(obj)
	return obj
}

func requireSchemaPath(t *testing.T, err error, path string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchema), "expected schema violation, got %v", err)
	var se *SchemaError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, path, se.Path)
}

func TestValidate_FullRecord(t *testing.T) {
	rec, err := RecoverAndValidate(fullResponse)
	require.NoError(t, err)

	assert.Equal(t, "Oat Crackers", rec.ProductName)
	assert.Equal(t, "Oat flour, palm oil, salt", rec.DetectedIngredientsText)
	assert.Equal(t, 72, rec.HealthScore)
	assert.Equal(t, HalalSafe, rec.HalalAnalysis.Status)
	assert.Equal(t, "MUI logo visible", rec.HalalAnalysis.Reason)
	assert.Equal(t, []string{"Gluten", "Oat"}, rec.AllergenList)
	assert.InDelta(t, 3.5, rec.NutritionSummary.SugarG, 1e-9)
	assert.InDelta(t, 0.9, rec.NutritionSummary.SugarTeaspoons, 1e-9)
	require.Len(t, rec.Alerts, 1)
	assert.Equal(t, Alert{Name: "Sodium", Category: CategoryHealth, Risk: "Moderate salt", Severity: SeverityMedium}, rec.Alerts[0])
	assert.Equal(t, []Alternative{{Name: "Rice cakes", Reason: "Lower sodium"}}, rec.HealthyAlternatives)
	assert.Equal(t, "Reasonable snack.", rec.BriefConclusion)
}

func TestValidate_OptionalDefaults(t *testing.T) {
	obj := withField(t, func(o Object) {
		delete(o, "allergen_list")
		delete(o, "alerts")
		delete(o, "brief_conclusion")
		o["healthy_alternatives"] = nil
	})
	rec, err := Validate(obj)
	require.NoError(t, err)
	assert.NotNil(t, rec.AllergenList)
	assert.Empty(t, rec.AllergenList)
	assert.NotNil(t, rec.Alerts)
	assert.Empty(t, rec.Alerts)
	assert.NotNil(t, rec.HealthyAlternatives)
	assert.Equal(t, "", rec.BriefConclusion)

	// empty collections serialize as [] rather than null
	b, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"alerts":[]`)
	assert.Contains(t, string(b), `"allergen_list":[]`)
}

func TestValidate_MissingRequired(t *testing.T) {
	cases := []struct {
		path   string
		mutate func(o Object)
	}{
		{"product_name", func(o Object) { delete(o, "product_name") }},
		{"detected_ingredients_text", func(o Object) { delete(o, "detected_ingredients_text") }},
		{"health_score", func(o Object) { delete(o, "health_score") }},
		{"health_score", func(o Object) { o["health_score"] = nil }},
		{"halal_analysis.status", func(o Object) { delete(o, "halal_analysis") }},
		{"halal_analysis.status", func(o Object) { delete(o["halal_analysis"].(map[string]any), "status") }},
		{"halal_analysis.reason", func(o Object) { delete(o["halal_analysis"].(map[string]any), "reason") }},
		{"nutrition_summary.sugar_g", func(o Object) { delete(o["nutrition_summary"].(map[string]any), "sugar_g") }},
		{"nutrition_summary.sugar_teaspoons", func(o Object) {
			delete(o["nutrition_summary"].(map[string]any), "sugar_teaspoons")
		}},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			_, err := Validate(withField(t, tc.mutate))
			requireSchemaPath(t, err, tc.path)
		})
	}
}

func TestValidate_NoCoercion(t *testing.T) {
	cases := []struct {
		name   string
		path   string
		mutate func(o Object)
	}{
		{"score as string", "health_score", func(o Object) { o["health_score"] = "80" }},
		{"score fractional", "health_score", func(o Object) { o["health_score"] = json.Number("72.5") }},
		{"score bool", "health_score", func(o Object) { o["health_score"] = true }},
		{"name as number", "product_name", func(o Object) { o["product_name"] = json.Number("1") }},
		{"sugar as string", "nutrition_summary.sugar_g", func(o Object) {
			o["nutrition_summary"].(map[string]any)["sugar_g"] = "0"
		}},
		{"negative sugar", "nutrition_summary.sugar_g", func(o Object) {
			o["nutrition_summary"].(map[string]any)["sugar_g"] = json.Number("-1")
		}},
		{"allergens not array", "allergen_list", func(o Object) { o["allergen_list"] = "milk" }},
		{"allergen item not string", "allergen_list[1]", func(o Object) { o["allergen_list"] = []any{"milk", json.Number("2")} }},
		{"conclusion not string", "brief_conclusion", func(o Object) { o["brief_conclusion"] = []any{} }},
		{"halal not object", "halal_analysis", func(o Object) { o["halal_analysis"] = "Halal Safe" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Validate(withField(t, tc.mutate))
			requireSchemaPath(t, err, tc.path)
		})
	}
}

func TestValidate_IntegralFloatScoreAccepted(t *testing.T) {
	rec, err := Validate(withField(t, func(o Object) { o["health_score"] = json.Number("72.0") }))
	require.NoError(t, err)
	assert.Equal(t, 72, rec.HealthScore)
}

func TestValidate_OutOfRangeScoreIsNotClamped(t *testing.T) {
	rec, err := Validate(withField(t, func(o Object) { o["health_score"] = json.Number("140") }))
	require.NoError(t, err)
	assert.Equal(t, 140, rec.HealthScore)
}

func TestValidate_ClosedEnumerations(t *testing.T) {
	_, err := Validate(withField(t, func(o Object) {
		o["halal_analysis"].(map[string]any)["status"] = "Probably Fine"
	}))
	requireSchemaPath(t, err, "halal_analysis.status")

	// case and wording must match exactly
	for _, s := range []string{"halal safe", "Syubhat", "Non Halal", "Haram"} {
		_, err := Validate(withField(t, func(o Object) {
			o["halal_analysis"].(map[string]any)["status"] = s
		}))
		requireSchemaPath(t, err, "halal_analysis.status")
	}

	for _, s := range []string{"Halal Safe", "Syubhat (Doubtful)", "Non-Halal"} {
		rec, err := Validate(withField(t, func(o Object) {
			o["halal_analysis"].(map[string]any)["status"] = s
		}))
		require.NoError(t, err)
		assert.Equal(t, HalalStatus(s), rec.HalalAnalysis.Status)
	}
}

func TestValidate_AlertShape(t *testing.T) {
	alert := func(cat, sev string) map[string]any {
		return map[string]any{"name": "x", "category": cat, "risk": "r", "severity": sev}
	}
	cases := []struct {
		name  string
		path  string
		alert any
	}{
		{"bad category", "alerts[1].category", alert("Diet", "Low")},
		{"bad severity", "alerts[1].severity", alert("Allergy", "Critical")},
		{"lowercase severity", "alerts[1].severity", alert("Allergy", "high")},
		{"not object", "alerts[1]", "peanut"},
		{"missing risk", "alerts[1].risk", map[string]any{"name": "x", "category": "Halal", "severity": "Low"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Validate(withField(t, func(o Object) {
				o["alerts"] = []any{alert("Health", "High"), tc.alert}
			}))
			requireSchemaPath(t, err, tc.path)
		})
	}
}

func TestValidate_NilObject(t *testing.T) {
	_, err := Validate(nil)
	requireSchemaPath(t, err, "$")
}

func TestRecoverAndValidate_ExtractionFailureIsNotSchemaViolation(t *testing.T) {
	_, err := RecoverAndValidate("I cannot read this label")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExtraction)
	assert.False(t, errors.Is(err, ErrSchema))
}

func TestRecoverAndValidate_FencedResponse(t *testing.T) {
	rec, err := RecoverAndValidate("Sure! Here you go:\n```json\n" + fullResponse + "\n```")
	require.NoError(t, err)
	assert.Equal(t, "Oat Crackers", rec.ProductName)
}

func TestParseEnums(t *testing.T) {
	_, ok := ParseAlertCategory("Health")
	assert.True(t, ok)
	_, ok = ParseAlertCategory("health")
	assert.False(t, ok)
	_, ok = ParseSeverity("Medium")
	assert.True(t, ok)
	_, ok = ParseSeverity("")
	assert.False(t, ok)
}
