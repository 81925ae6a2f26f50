package reporting

import (
	"time"

	"sahm-rule-lab/internal/accuracy"
	"sahm-rule-lab/internal/domain"
	"sahm-rule-lab/internal/signal"
)

// LineReport represents the line analysis report structure.
type LineReport struct {
	GeneratedAt time.Time

	// Lines in the order they were requested
	Lines []LineSection
}

// LineSection describes one analyzed line.
type LineSection struct {
	ID        string
	Name      string
	Base      string
	Relative  string
	Recession string

	Params         signal.Params
	AlphaThreshold float64

	// Aligned data range
	From   time.Time
	To     time.Time
	Points int

	// Latest defined signal value and its date (zero if none)
	Latest     domain.NullFloat
	LatestDate time.Time

	Stats   *domain.Stats
	LeadLag accuracy.Summary

	// Analysis warnings followed by evaluation warnings
	Warnings []string
}
