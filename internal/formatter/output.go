package formatter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/bryanwahyu/nutrisift/internal/domain/analysis"
)

// Report is one CLI result: a finished record or the error that stopped it.
type Report struct {
	Source   string           `json:"source"`
	ScanID   string           `json:"scan_id,omitempty"`
	Strategy string           `json:"strategy,omitempty"`
	Rules    []string         `json:"rules_fired,omitempty"`
	Record   *analysis.Record `json:"record,omitempty"`
	Error    string           `json:"error,omitempty"`
	Path     string           `json:"path,omitempty"`
}

func (r Report) Failed() bool { return r.Error != "" }

// FailedReport carries the violation path when err is a schema violation.
func FailedReport(source string, err error) Report {
	r := Report{Source: source, Error: err.Error()}
	var se *analysis.SchemaError
	if errors.As(err, &se) {
		r.Path = se.Path
	}
	return r
}

// Display writes reports as human, json or yaml. Unknown formats fall back to human.
func Display(w io.Writer, reports []Report, format string) error {
	switch format {
	case "json":
		return displayJSON(w, reports)
	case "yaml":
		return displayYAML(w, reports)
	case "human":
		fallthrough
	default:
		for _, r := range reports {
			displayHuman(w, r)
		}
	}
	return nil
}

func displayJSON(w io.Writer, reports []Report) error {
	var v any = reports
	if len(reports) == 1 {
		v = reports[0]
	}
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(output))
	return err
}

// yaml keys follow the json tags, record fields only carry json tags
func displayYAML(w io.Writer, reports []Report) error {
	var v any = reports
	if len(reports) == 1 {
		v = reports[0]
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var generic any
	if err := json.Unmarshal(b, &generic); err != nil {
		return err
	}
	output, err := yaml.Marshal(generic)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(w, string(output))
	return err
}

func displayHuman(w io.Writer, r Report) {
	red := color.New(color.FgRed, color.Bold)
	yellow := color.New(color.FgYellow, color.Bold)
	green := color.New(color.FgGreen, color.Bold)
	cyan := color.New(color.FgCyan, color.Bold)

	fmt.Fprintln(w)
	cyan.Fprintf(w, "📷 %s\n", r.Source)

	if r.Failed() {
		red.Fprintf(w, "✗ %s\n", r.Error)
		if r.Path != "" {
			fmt.Fprintf(w, "   Path: %s\n", color.YellowString("%s", r.Path))
		}
		fmt.Fprintln(w, strings.Repeat("─", 60))
		return
	}

	rec := r.Record
	fmt.Fprintf(w, "   Product: %s\n", rec.ProductName)
	scoreColor(rec.HealthScore).Fprintf(w, "   Health score: %d/100\n", rec.HealthScore)
	halalColor(rec.HalalAnalysis.Status).Fprintf(w, "   Halal: %s", rec.HalalAnalysis.Status)
	fmt.Fprintf(w, " (%s)\n", rec.HalalAnalysis.Reason)
	fmt.Fprintf(w, "   Sugar: %.1f g (%.1f tsp)\n", rec.NutritionSummary.SugarG, rec.NutritionSummary.SugarTeaspoons)
	if len(rec.AllergenList) > 0 {
		fmt.Fprintf(w, "   Allergens: %s\n", strings.Join(rec.AllergenList, ", "))
	}

	if len(rec.Alerts) > 0 {
		fmt.Fprintln(w)
		yellow.Fprintln(w, "⚠️  ALERTS:")
		for i, a := range rec.Alerts {
			fmt.Fprintf(w, "   %d. %s %s [%s]\n", i+1, severityIcon(a.Severity), a.Name, a.Category)
			fmt.Fprintf(w, "      %s\n", a.Risk)
		}
	}

	if len(rec.HealthyAlternatives) > 0 {
		fmt.Fprintln(w)
		green.Fprintln(w, "🥗 ALTERNATIVES:")
		for _, alt := range rec.HealthyAlternatives {
			fmt.Fprintf(w, "   - %s: %s\n", alt.Name, alt.Reason)
		}
	}

	if rec.BriefConclusion != "" {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "   %s\n", rec.BriefConclusion)
	}

	if len(r.Rules) > 0 {
		fmt.Fprintf(w, "   %s\n", color.HiBlackString("rules: %s", strings.Join(r.Rules, ", ")))
	}
	fmt.Fprintln(w, strings.Repeat("─", 60))
}

func scoreColor(score int) *color.Color {
	switch {
	case score >= 70:
		return color.New(color.FgGreen, color.Bold)
	case score >= 40:
		return color.New(color.FgYellow, color.Bold)
	default:
		return color.New(color.FgRed, color.Bold)
	}
}

func halalColor(s analysis.HalalStatus) *color.Color {
	switch s {
	case analysis.HalalSafe:
		return color.New(color.FgGreen)
	case analysis.Syubhat:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}

func severityIcon(s analysis.Severity) string {
	switch s {
	case analysis.SeverityHigh:
		return "🔴"
	case analysis.SeverityMedium:
		return "🟡"
	case analysis.SeverityLow:
		return "🟢"
	default:
		return "⚪"
	}
}
