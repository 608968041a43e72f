package analysis

import "strings"

// DefaultSugarTerms are the sugar indicators checked by the mismatch rule,
// English plus Indonesian label wording.
var DefaultSugarTerms = []string{
	"sugar", "gula",
	"syrup", "sirup",
	"chocolate", "coklat",
	"candy", "permen",
	"sweet",
}

const (
	MismatchScoreCap = 30
	NonHalalScore    = 50
	MinScore         = 0
	MaxScore         = 100

	MismatchConclusion = "CRITICAL WARNING: Data Mismatch. Product likely contains sugar despite 0g reading."
)

var anomalyAlert = Alert{
	Name:     "Anomaly Detected",
	Category: CategoryHealth,
	Risk:     "AI detected 0g sugar but ingredients suggest otherwise. Verify physical label.",
	Severity: SeverityHigh,
}

// AnomalyAlert returns the synthetic alert inserted by the mismatch rule.
func AnomalyAlert() Alert { return anomalyAlert }

// Lexicon is a case-insensitive substring list.
type Lexicon struct {
	terms []string
}

// NewLexicon lowercases and de-duplicates terms; blanks are dropped.
func NewLexicon(terms ...string) Lexicon {
	seen := make(map[string]bool, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return Lexicon{terms: out}
}

// DefaultLexicon returns DefaultSugarTerms plus any extra terms.
func DefaultLexicon(extra ...string) Lexicon {
	return NewLexicon(append(append([]string{}, DefaultSugarTerms...), extra...)...)
}

func (l Lexicon) Terms() []string { return append([]string(nil), l.terms...) }

// Match returns the first term contained in text.
func (l Lexicon) Match(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, t := range l.terms {
		if strings.Contains(lower, t) {
			return t, true
		}
	}
	return "", false
}

// Rule is one deterministic correction. Apply mutates rec in place and
// reports whether anything changed.
type Rule interface {
	Name() string
	Apply(rec *Record) bool
}

// SugarMismatchRule: zero sugar reported but the text names a sugar source.
type SugarMismatchRule struct {
	Lexicon Lexicon
}

func (SugarMismatchRule) Name() string { return "sugar_text_mismatch" }

func (r SugarMismatchRule) Apply(rec *Record) bool {
	if rec.NutritionSummary.SugarG != 0 {
		return false
	}
	if _, hit := r.Lexicon.Match(rec.ProductName + rec.DetectedIngredientsText); !hit {
		return false
	}
	changed := false
	if rec.HealthScore > MismatchScoreCap {
		rec.HealthScore = MismatchScoreCap
		changed = true
	}
	if rec.BriefConclusion != MismatchConclusion {
		rec.BriefConclusion = MismatchConclusion
		changed = true
	}
	if !rec.HasAnomaly() {
		rec.Alerts = append([]Alert{anomalyAlert}, rec.Alerts...)
		changed = true
	}
	return changed
}

// HalalFloorRule: a non-halal product never scores above the midpoint.
// Note this assigns exactly 50, unlike the mismatch rule which only caps.
type HalalFloorRule struct{}

func (HalalFloorRule) Name() string { return "halal_severity_floor" }

func (HalalFloorRule) Apply(rec *Record) bool {
	if rec.HalalAnalysis.Status == NonHalal && rec.HealthScore > NonHalalScore {
		rec.HealthScore = NonHalalScore
		return true
	}
	return false
}

// ScoreBoundsRule keeps the score inside [0, 100].
type ScoreBoundsRule struct{}

func (ScoreBoundsRule) Name() string { return "score_bounds" }

func (ScoreBoundsRule) Apply(rec *Record) bool {
	switch {
	case rec.HealthScore < MinScore:
		rec.HealthScore = MinScore
		return true
	case rec.HealthScore > MaxScore:
		rec.HealthScore = MaxScore
		return true
	}
	return false
}

// Engine runs its rules in a fixed order. Later rules see what earlier ones wrote.
type Engine struct {
	rules []Rule
}

// NewEngine builds the standard rule chain around the given lexicon.
func NewEngine(lex Lexicon) *Engine {
	return &Engine{rules: []Rule{
		SugarMismatchRule{Lexicon: lex},
		HalalFloorRule{},
		ScoreBoundsRule{},
	}}
}

func DefaultEngine() *Engine { return NewEngine(DefaultLexicon()) }

func (e *Engine) Rules() []Rule { return append([]Rule(nil), e.rules...) }

// Apply returns a corrected copy of rec. It never fails and never touches rec.
func (e *Engine) Apply(rec *Record) *Record {
	out, _ := e.ApplyTrace(rec)
	return out
}

// ApplyTrace is Apply plus the names of the rules that changed something.
func (e *Engine) ApplyTrace(rec *Record) (*Record, []string) {
	if rec == nil {
		return nil, nil
	}
	out := rec.Clone()
	var fired []string
	for _, r := range e.rules {
		if r.Apply(out) {
			fired = append(fired, r.Name())
		}
	}
	return out, fired
}
