package workflow

import (
	"fmt"
	"strings"

	"daily-alpha/internal/domain"
)

// FormatReport renders a run as the plain-text daily report.
func FormatReport(symbol string, result *RunResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Daily report for %s\n", symbol)
	fmt.Fprintf(&b, "Trading day: %s (collected %s)\n",
		result.Date.Format(domain.DateLayout), result.CollectionDate.Format(domain.DateLayout))
	if result.DryRun {
		b.WriteString("Mode: dry run, nothing persisted\n")
	}

	switch {
	case result.MarketDataExisted:
		b.WriteString("Market data: already stored\n")
	case result.MarketDataSaved:
		b.WriteString("Market data: fetched and saved\n")
	default:
		b.WriteString("Market data: not saved\n")
	}

	fmt.Fprintf(&b, "Articles: %d collected, %d saved\n", result.ArticlesCollected, result.ArticlesSaved)

	if s := result.Sentiment; s != nil {
		fmt.Fprintf(&b, "Sentiment: %.2f (%s)\n", s.CombinedScore, s.CombinedConfidence)
		fmt.Fprintf(&b, "  company %.2f (%s), macro %.2f (%s)\n",
			s.CompanyScore, s.CompanyConfidence, s.MacroScore, s.MacroConfidence)
	} else {
		b.WriteString("Sentiment: skipped\n")
	}

	if p := result.Prediction; p != nil {
		fmt.Fprintf(&b, "Next session: %s (%.1f%% confidence, up %.1f%% / down %.1f%%)\n",
			p.Direction, p.Confidence*100, p.ProbabilityUp*100, p.ProbabilityDown*100)
	} else if result.PredictionMessage != "" {
		fmt.Fprintf(&b, "Next session: %s\n", result.PredictionMessage)
	}

	if len(result.Errors) > 0 {
		b.WriteString("Warnings:\n")
		for _, e := range result.Errors {
			fmt.Fprintf(&b, "  - %s\n", e)
		}
	}

	if result.Success {
		b.WriteString("Run completed.\n")
	} else {
		b.WriteString("Run FAILED.\n")
	}
	return b.String()
}
