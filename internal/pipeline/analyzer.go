// Package pipeline wires series sources, the signal engine and the
// evaluator into line analyses and the county batch job.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"sahm-rule-lab/internal/accuracy"
	"sahm-rule-lab/internal/config"
	"sahm-rule-lab/internal/domain"
	"sahm-rule-lab/internal/ingestion"
	"sahm-rule-lab/internal/normalization"
	"sahm-rule-lab/internal/observability"
	"sahm-rule-lab/internal/reporting"
	"sahm-rule-lab/internal/signal"
)

// Analysis is the result of one line analysis.
type Analysis struct {
	Line     config.Line
	Base     []domain.Observation // aligned
	Relative []domain.Observation // aligned
	Points   []domain.ComputedPoint
	Stats    *domain.Stats
	LeadLag  accuracy.Summary

	// Warnings raised before evaluation, e.g. insufficient data
	Warnings []string
}

// Analyzer computes and evaluates configured lines.
type Analyzer struct {
	source         ingestion.SeriesSource
	evaluator      *accuracy.Evaluator
	accuracyWindow int
	startDate      time.Time
	logger         zerolog.Logger
}

// AnalyzerOptions contains configuration for creating an Analyzer.
type AnalyzerOptions struct {
	Source     ingestion.SeriesSource
	Evaluation accuracy.Config
	// StartDate is the default start floor for lines without their own.
	StartDate time.Time
	Logger    zerolog.Logger
}

// NewAnalyzer creates a new line analyzer.
func NewAnalyzer(opts AnalyzerOptions) *Analyzer {
	return &Analyzer{
		source:         opts.Source,
		evaluator:      accuracy.NewEvaluator(opts.Evaluation),
		accuracyWindow: opts.Evaluation.AccuracyWindowDays,
		startDate:      opts.StartDate,
		logger:         opts.Logger,
	}
}

// Analyze loads the series of line, aligns them, computes the signal and
// evaluates it against the line's recession series.
func (a *Analyzer) Analyze(ctx context.Context, line config.Line) (*Analysis, error) {
	base, err := a.load(ctx, line.Base)
	if err != nil {
		return nil, err
	}
	relative := base
	if line.Relative != line.Base {
		if relative, err = a.load(ctx, line.Relative); err != nil {
			return nil, err
		}
	}
	recessions, err := a.load(ctx, line.Recession)
	if err != nil {
		return nil, err
	}

	start := a.startDate
	if !line.StartDate.IsZero() {
		start = line.StartDate.Time
	}
	base, relative, err = normalization.Align(base, relative, start)
	if err != nil {
		return nil, fmt.Errorf("line %s: %w", line.ID, err)
	}

	params := line.Params()
	result := &Analysis{Line: line, Base: base, Relative: relative}
	if err := signal.CheckSufficiency(len(base), params); err != nil {
		result.Warnings = append(result.Warnings, err.Error())
	}

	result.Points, err = signal.Compute(base, relative, params)
	if err != nil {
		return nil, fmt.Errorf("line %s: %w", line.ID, err)
	}

	result.Stats = a.evaluator.Evaluate(result.Points, domain.NewRecessionMap(recessions), line.AlphaThreshold)
	result.LeadLag = accuracy.Summarize(
		accuracy.NearestOffsets(result.Stats.SignalStarts, result.Stats.RecessionStarts, a.accuracyWindow))
	observability.RecordLineAnalyzed(len(result.Stats.SignalStarts))

	a.logger.Info().
		Str("line", line.ID).
		Int("points", len(result.Points)).
		Int("onsets", len(result.Stats.SignalStarts)).
		Bool("no_crossings", result.Stats.NoCrossings).
		Msg("line analyzed")

	return result, nil
}

// AnalyzeAll analyzes lines concurrently, at most limit at a time
// (unbounded when limit <= 0). Results keep the order of lines.
// The first error cancels the remaining analyses.
func (a *Analyzer) AnalyzeAll(ctx context.Context, lines []config.Line, limit int) ([]*Analysis, error) {
	results := make([]*Analysis, len(lines))

	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, line := range lines {
		g.Go(func() error {
			res, err := a.Analyze(ctx, line)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// load fetches a series sorted by date ASC.
func (a *Analyzer) load(ctx context.Context, seriesID string) ([]domain.Observation, error) {
	obs, err := a.source.Observations(ctx, seriesID, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", seriesID, err)
	}
	if len(obs) == 0 {
		return nil, fmt.Errorf("load %s: %w", seriesID, normalization.ErrEmptySeries)
	}
	normalization.SortObservations(obs)
	return obs, nil
}

// Section converts the analysis into a report section.
func (r *Analysis) Section() reporting.LineSection {
	s := reporting.LineSection{
		ID:             r.Line.ID,
		Name:           r.Line.Name,
		Base:           r.Line.Base,
		Relative:       r.Line.Relative,
		Recession:      r.Line.Recession,
		Params:         r.Line.Params(),
		AlphaThreshold: r.Line.AlphaThreshold,
		Points:         len(r.Points),
		Stats:          r.Stats,
		LeadLag:        r.LeadLag,
	}
	if len(r.Points) > 0 {
		s.From = r.Points[0].Date
		s.To = r.Points[len(r.Points)-1].Date
	}
	for i := len(r.Points) - 1; i >= 0; i-- {
		if r.Points[i].Value.Valid {
			s.Latest = r.Points[i].Value
			s.LatestDate = r.Points[i].Date
			break
		}
	}
	s.Warnings = append(s.Warnings, r.Warnings...)
	if r.Stats != nil {
		s.Warnings = append(s.Warnings, r.Stats.Warnings...)
	}
	return s
}

// NewLineReport builds the report of analyses generated at now.
func NewLineReport(analyses []*Analysis, now time.Time) *reporting.LineReport {
	report := &reporting.LineReport{GeneratedAt: now}
	for _, r := range analyses {
		report.Lines = append(report.Lines, r.Section())
	}
	return report
}

