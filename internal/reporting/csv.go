package reporting

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"sahm-rule-lab/internal/domain"
)

// CSV headers of the batch outputs.
const (
	SignalHeader     = "county_id,date,unemployment_rate,sahm_value"
	AggregatedHeader = "county_id,accuracy,recession_lead_time,committee_lead_time"
	InfoHeader       = "total_chunks,last_updated"
)

// RenderSignalCSV renders signal points as a time-series chunk.
func RenderSignalCSV(points []domain.SignalPoint) string {
	var sb strings.Builder

	sb.WriteString(SignalHeader)
	sb.WriteString("\n")

	for _, p := range points {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s\n",
			p.RegionID,
			p.Date.Format(time.DateOnly),
			strconv.FormatFloat(p.UnemploymentRate, 'f', -1, 64),
			FormatSignal(p.Signal),
		))
	}

	return sb.String()
}

// RenderAggregatedCSV renders region stats. Undefined values are empty.
func RenderAggregatedCSV(stats []domain.RegionStats) string {
	var sb strings.Builder

	sb.WriteString(AggregatedHeader)
	sb.WriteString("\n")

	for _, s := range stats {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s\n",
			s.RegionID,
			formatInt(s.Accuracy),
			formatInt(s.RecessionLeadTime),
			formatInt(s.CommitteeLeadTime),
		))
	}

	return sb.String()
}

// InfoTimeLayout is the ISO 8601 layout of last_updated, always with
// millisecond precision.
const InfoTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// exactDigits is enough fractional digits to hold any float64 near a
// two-decimal tie without rounding it onto the tie.
const exactDigits = 40

// RenderInfoCSV renders the chunk index file. The data row has no
// trailing newline.
func RenderInfoCSV(totalChunks int, lastUpdated time.Time) string {
	return fmt.Sprintf("%s\n%d,%s", InfoHeader, totalChunks, lastUpdated.UTC().Format(InfoTimeLayout))
}

// FormatSignal renders a signal value with two decimals, or "NaN" when missing.
// Rounding applies to the exact binary value, half away from zero, and a
// negative value keeps its sign even when it rounds to zero.
func FormatSignal(v domain.NullFloat) string {
	if !v.Valid {
		return "NaN"
	}
	s := decimal.NewFromFloatWithExponent(math.Abs(v.Float64), -exactDigits).StringFixed(2)
	if v.Float64 < 0 {
		return "-" + s
	}
	return s
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
