package analysis

import (
	"encoding/json"
	"fmt"
	"math"
)

// Validate turns a loosely-typed object into a Record.
//
// Required fields must be present with the right JSON type; optional
// collections default to empty. No coercion and no clamping happen here,
// a score of 140 passes and is corrected later by the rule engine.
func Validate(obj Object) (*Record, error) {
	if obj == nil {
		return nil, missing("$")
	}
	rec := &Record{}
	var err error

	if rec.ProductName, err = requiredString(obj, "product_name", "product_name"); err != nil {
		return nil, err
	}
	if rec.DetectedIngredientsText, err = requiredString(obj, "detected_ingredients_text", "detected_ingredients_text"); err != nil {
		return nil, err
	}
	if rec.HealthScore, err = requiredInt(obj, "health_score", "health_score"); err != nil {
		return nil, err
	}

	halal, err := requiredObject(obj, "halal_analysis", "halal_analysis.status")
	if err != nil {
		return nil, err
	}
	status, err := requiredString(halal, "status", "halal_analysis.status")
	if err != nil {
		return nil, err
	}
	hs, ok := ParseHalalStatus(status)
	if !ok {
		return nil, &SchemaError{Path: "halal_analysis.status", Reason: fmt.Sprintf("unrecognized status %q", status)}
	}
	rec.HalalAnalysis.Status = hs
	if rec.HalalAnalysis.Reason, err = requiredString(halal, "reason", "halal_analysis.reason"); err != nil {
		return nil, err
	}

	nutrition, err := requiredObject(obj, "nutrition_summary", "nutrition_summary.sugar_g")
	if err != nil {
		return nil, err
	}
	if rec.NutritionSummary.SugarG, err = requiredQuantity(nutrition, "sugar_g", "nutrition_summary.sugar_g"); err != nil {
		return nil, err
	}
	if rec.NutritionSummary.SugarTeaspoons, err = requiredQuantity(nutrition, "sugar_teaspoons", "nutrition_summary.sugar_teaspoons"); err != nil {
		return nil, err
	}

	if rec.AllergenList, err = optionalStrings(obj, "allergen_list"); err != nil {
		return nil, err
	}
	if rec.Alerts, err = optionalAlerts(obj); err != nil {
		return nil, err
	}
	if rec.HealthyAlternatives, err = optionalAlternatives(obj); err != nil {
		return nil, err
	}
	if v, ok := present(obj, "brief_conclusion"); ok {
		s, isStr := v.(string)
		if !isStr {
			return nil, wrongType("brief_conclusion", "a string")
		}
		rec.BriefConclusion = s
	}

	return rec, nil
}

// RecoverAndValidate runs extraction then validation on raw model output.
func RecoverAndValidate(raw string) (*Record, error) {
	obj, err := Extract(raw)
	if err != nil {
		return nil, err
	}
	return Validate(obj)
}

// present treats an explicit null the same as an absent key.
func present(obj map[string]any, key string) (any, bool) {
	v, ok := obj[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func requiredString(obj map[string]any, key, path string) (string, error) {
	v, ok := present(obj, key)
	if !ok {
		return "", missing(path)
	}
	s, ok := v.(string)
	if !ok {
		return "", wrongType(path, "a string")
	}
	return s, nil
}

func requiredObject(obj map[string]any, key, path string) (map[string]any, error) {
	v, ok := present(obj, key)
	if !ok {
		return nil, missing(path)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, wrongType(key, "an object")
	}
	return m, nil
}

func number(v any, path string) (float64, error) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, wrongType(path, "a number")
	}
	f, err := n.Float64()
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, wrongType(path, "a finite number")
	}
	return f, nil
}

func requiredInt(obj map[string]any, key, path string) (int, error) {
	v, ok := present(obj, key)
	if !ok {
		return 0, missing(path)
	}
	f, err := number(v, path)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, wrongType(path, "an integer")
	}
	return int(f), nil
}

func requiredQuantity(obj map[string]any, key, path string) (float64, error) {
	v, ok := present(obj, key)
	if !ok {
		return 0, missing(path)
	}
	f, err := number(v, path)
	if err != nil {
		return 0, err
	}
	if f < 0 {
		return 0, wrongType(path, "non-negative")
	}
	return f, nil
}

func optionalArray(obj map[string]any, key string) ([]any, error) {
	v, ok := present(obj, key)
	if !ok {
		return nil, nil
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, wrongType(key, "an array")
	}
	return arr, nil
}

func optionalStrings(obj map[string]any, key string) ([]string, error) {
	arr, err := optionalArray(obj, key)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(arr))
	for i, it := range arr {
		s, ok := it.(string)
		if !ok {
			return nil, wrongType(fmt.Sprintf("%s[%d]", key, i), "a string")
		}
		out = append(out, s)
	}
	return out, nil
}

func optionalAlerts(obj map[string]any) ([]Alert, error) {
	arr, err := optionalArray(obj, "alerts")
	if err != nil {
		return nil, err
	}
	out := make([]Alert, 0, len(arr))
	for i, it := range arr {
		base := fmt.Sprintf("alerts[%d]", i)
		m, ok := it.(map[string]any)
		if !ok {
			return nil, wrongType(base, "an object")
		}
		var a Alert
		if a.Name, err = requiredString(m, "name", base+".name"); err != nil {
			return nil, err
		}
		cat, err := requiredString(m, "category", base+".category")
		if err != nil {
			return nil, err
		}
		if a.Category, ok = ParseAlertCategory(cat); !ok {
			return nil, &SchemaError{Path: base + ".category", Reason: fmt.Sprintf("unrecognized category %q", cat)}
		}
		if a.Risk, err = requiredString(m, "risk", base+".risk"); err != nil {
			return nil, err
		}
		sev, err := requiredString(m, "severity", base+".severity")
		if err != nil {
			return nil, err
		}
		if a.Severity, ok = ParseSeverity(sev); !ok {
			return nil, &SchemaError{Path: base + ".severity", Reason: fmt.Sprintf("unrecognized severity %q", sev)}
		}
		out = append(out, a)
	}
	return out, nil
}

func optionalAlternatives(obj map[string]any) ([]Alternative, error) {
	arr, err := optionalArray(obj, "healthy_alternatives")
	if err != nil {
		return nil, err
	}
	out := make([]Alternative, 0, len(arr))
	for i, it := range arr {
		base := fmt.Sprintf("healthy_alternatives[%d]", i)
		m, ok := it.(map[string]any)
		if !ok {
			return nil, wrongType(base, "an object")
		}
		var alt Alternative
		if alt.Name, err = requiredString(m, "name", base+".name"); err != nil {
			return nil, err
		}
		if v, ok := present(m, "reason"); ok {
			s, isStr := v.(string)
			if !isStr {
				return nil, wrongType(base+".reason", "a string")
			}
			alt.Reason = s
		}
		out = append(out, alt)
	}
	return out, nil
}
