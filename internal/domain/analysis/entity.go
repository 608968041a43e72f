package analysis

// HalalStatus enum
type HalalStatus string

const (
	HalalSafe HalalStatus = "Halal Safe"
	Syubhat   HalalStatus = "Syubhat (Doubtful)"
	NonHalal  HalalStatus = "Non-Halal"
)

// ParseHalalStatus only accepts the exact recognized wording.
func ParseHalalStatus(s string) (HalalStatus, bool) {
	switch HalalStatus(s) {
	case HalalSafe, Syubhat, NonHalal:
		return HalalStatus(s), true
	}
	return "", false
}

// AlertCategory enum
type AlertCategory string

const (
	CategoryHealth  AlertCategory = "Health"
	CategoryHalal   AlertCategory = "Halal"
	CategoryAllergy AlertCategory = "Allergy"
)

func ParseAlertCategory(s string) (AlertCategory, bool) {
	switch AlertCategory(s) {
	case CategoryHealth, CategoryHalal, CategoryAllergy:
		return AlertCategory(s), true
	}
	return "", false
}

// Severity enum
type Severity string

const (
	SeverityLow    Severity = "Low"
	SeverityMedium Severity = "Medium"
	SeverityHigh   Severity = "High"
)

func ParseSeverity(s string) (Severity, bool) {
	switch Severity(s) {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return Severity(s), true
	}
	return "", false
}

// HalalAnalysis value object
type HalalAnalysis struct {
	Status HalalStatus `json:"status"`
	Reason string      `json:"reason"`
}

// NutritionSummary value object. Teaspoons is advisory, never cross-checked against grams.
type NutritionSummary struct {
	SugarG         float64 `json:"sugar_g"`
	SugarTeaspoons float64 `json:"sugar_teaspoons"`
}

type Alert struct {
	Name     string        `json:"name"`
	Category AlertCategory `json:"category"`
	Risk     string        `json:"risk"`
	Severity Severity      `json:"severity"`
}

type Alternative struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Record is the validated and corrected result of one label submission.
type Record struct {
	ProductName             string           `json:"product_name"`
	DetectedIngredientsText string           `json:"detected_ingredients_text"`
	HealthScore             int              `json:"health_score"`
	HalalAnalysis           HalalAnalysis    `json:"halal_analysis"`
	AllergenList            []string         `json:"allergen_list"`
	NutritionSummary        NutritionSummary `json:"nutrition_summary"`
	Alerts                  []Alert          `json:"alerts"`
	HealthyAlternatives     []Alternative    `json:"healthy_alternatives"`
	BriefConclusion         string           `json:"brief_conclusion"`
}

// Clone returns a deep copy so rule corrections never alias the caller's slices.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := *r
	out.AllergenList = append(make([]string, 0, len(r.AllergenList)), r.AllergenList...)
	out.Alerts = append(make([]Alert, 0, len(r.Alerts)), r.Alerts...)
	out.HealthyAlternatives = append(make([]Alternative, 0, len(r.HealthyAlternatives)), r.HealthyAlternatives...)
	return &out
}

// HasAnomaly reports whether the record carries the synthetic mismatch alert.
func (r *Record) HasAnomaly() bool {
	return len(r.Alerts) > 0 && r.Alerts[0] == anomalyAlert
}
