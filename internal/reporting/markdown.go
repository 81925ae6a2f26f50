package reporting

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *LineReport) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Sahm Rule Line Analysis\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Lines: %d\n\n", len(r.Lines)))

	// Summary
	sb.WriteString("## Summary\n\n")
	if len(r.Lines) == 0 {
		sb.WriteString("No lines analyzed.\n\n")
		return sb.String()
	}
	sb.WriteString("| Line | Base | Relative | Latest | Onsets | Accuracy | Lead (days) | Committee Lead (days) |\n")
	sb.WriteString("|------|------|----------|--------|--------|----------|-------------|-----------------------|\n")
	for _, l := range r.Lines {
		onsets := 0
		if l.Stats != nil {
			onsets = len(l.Stats.SignalStarts)
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %d | %s | %s | %s |\n",
			l.ID, l.Base, l.Relative, FormatSignal(l.Latest), onsets,
			percentCell(l), intCell(leadTime(l)), intCell(committeeLeadTime(l))))
	}
	sb.WriteString("\n")

	for _, l := range r.Lines {
		renderLine(&sb, l)
	}

	return sb.String()
}

func renderLine(sb *strings.Builder, l LineSection) {
	title := l.ID
	if l.Name != "" {
		title = fmt.Sprintf("%s (%s)", l.Name, l.ID)
	}
	sb.WriteString(fmt.Sprintf("## %s\n\n", title))

	// Parameters
	sb.WriteString("| Parameter | Value |\n")
	sb.WriteString("|-----------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Base | %s |\n", l.Base))
	sb.WriteString(fmt.Sprintf("| Relative | %s |\n", l.Relative))
	sb.WriteString(fmt.Sprintf("| Recession | %s |\n", l.Recession))
	sb.WriteString(fmt.Sprintf("| k | %d |\n", l.Params.K))
	sb.WriteString(fmt.Sprintf("| m | %d |\n", l.Params.M))
	sb.WriteString(fmt.Sprintf("| Time Period | %d |\n", l.Params.TimePeriod))
	sb.WriteString(fmt.Sprintf("| Seasonal | %t |\n", l.Params.Seasonal))
	sb.WriteString(fmt.Sprintf("| Preceding | %t |\n", l.Params.Preceding))
	sb.WriteString(fmt.Sprintf("| Natural Rate | %s |\n", decimal.NewFromFloat(l.Params.NaturalRate).String()))
	sb.WriteString(fmt.Sprintf("| Alpha Threshold | %s |\n", decimal.NewFromFloat(l.AlphaThreshold).String()))
	if l.Points > 0 {
		sb.WriteString(fmt.Sprintf("| Range | %s .. %s (%d months) |\n",
			l.From.Format(time.DateOnly), l.To.Format(time.DateOnly), l.Points))
	}
	if l.Latest.Valid {
		sb.WriteString(fmt.Sprintf("| Latest | %s (%s) |\n", FormatSignal(l.Latest), l.LatestDate.Format(time.DateOnly)))
	}
	sb.WriteString("\n")

	if l.Stats != nil {
		// Turning points
		sb.WriteString("### Turning Points\n\n")
		if l.Stats.NoCrossings {
			sb.WriteString("The signal never crossed the threshold.\n\n")
		} else {
			sb.WriteString(fmt.Sprintf("- Signal onsets: %s\n", joinDates(l.Stats.SignalStarts)))
			sb.WriteString(fmt.Sprintf("- Recession starts: %s\n", joinDates(l.Stats.RecessionStarts)))
			sb.WriteString("\n")
		}

		// Accuracy
		sb.WriteString("### Accuracy\n\n")
		sb.WriteString("| Metric | Value |\n")
		sb.WriteString("|--------|-------|\n")
		sb.WriteString(fmt.Sprintf("| Accuracy | %s |\n", percentCell(l)))
		sb.WriteString(fmt.Sprintf("| Recession Lead Time (days) | %s |\n", intCell(leadTime(l))))
		sb.WriteString(fmt.Sprintf("| Committee Lead Time (days) | %s |\n", intCell(committeeLeadTime(l))))
		sb.WriteString(fmt.Sprintf("| Average Days Leading | %s |\n", floatCell(l.LeadLag.AverageDaysLeading)))
		sb.WriteString(fmt.Sprintf("| Average Days Lagging | %s |\n", floatCell(l.LeadLag.AverageDaysLagging)))
		sb.WriteString(fmt.Sprintf("| Unmatched Onsets | %d |\n", l.Stats.UnmatchedOnsets))
		sb.WriteString("\n")
	}

	// Warnings
	if len(l.Warnings) > 0 {
		sb.WriteString("### Warnings\n\n")
		for _, w := range l.Warnings {
			sb.WriteString(fmt.Sprintf("- %s\n", w))
		}
		sb.WriteString("\n")
	}
}

func leadTime(l LineSection) *int {
	if l.Stats == nil {
		return nil
	}
	return l.Stats.RecessionLeadTime
}

func committeeLeadTime(l LineSection) *int {
	if l.Stats == nil {
		return nil
	}
	return l.Stats.CommitteeLeadTime
}

func percentCell(l LineSection) string {
	if l.Stats == nil || l.Stats.Accuracy == nil {
		return "n/a"
	}
	return fmt.Sprintf("%d%%", *l.Stats.Accuracy)
}

func intCell(v *int) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%d", *v)
}

func floatCell(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return decimal.NewFromFloat(*v).StringFixed(1)
}

func joinDates(dates []time.Time) string {
	if len(dates) == 0 {
		return "none"
	}
	parts := make([]string, len(dates))
	for i, d := range dates {
		parts[i] = d.Format(time.DateOnly)
	}
	return strings.Join(parts, ", ")
}
