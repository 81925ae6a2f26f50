package ingestion

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"sahm-rule-lab/internal/domain"
)

// Errors returned by CSV readers.
var (
	ErrMissingColumn = errors.New("missing required column")
	ErrMalformedRow  = errors.New("malformed row")
	ErrUnknownSeries = errors.New("unknown series")
)

// CSV column names.
const (
	colDate           = "date"
	colValue          = "value"
	colDeseasonalized = "deseasonalized_value"

	colRegionID = "Fips_ID"
	colName     = "County"
	colSeriesID = "SeriesId"
)

// CSVSource reads series from a directory holding one <series_id>.csv per
// series with columns date,value and optionally deseasonalized_value.
type CSVSource struct {
	dir string
}

// NewCSVSource creates a source reading from dir.
func NewCSVSource(dir string) *CSVSource {
	return &CSVSource{dir: dir}
}

// Observations reads dir/<seriesID>.csv and returns rows dated on or after start.
func (s *CSVSource) Observations(_ context.Context, seriesID string, start time.Time) ([]domain.Observation, error) {
	f, err := os.Open(filepath.Join(s.dir, seriesID+".csv"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSeries, seriesID)
		}
		return nil, err
	}
	defer f.Close()

	obs, err := ReadObservations(f, seriesID)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Name(), err)
	}

	result := obs[:0]
	for _, o := range obs {
		if !o.Date.Before(start) {
			result = append(result, o)
		}
	}
	return result, nil
}

var _ SeriesSource = (*CSVSource)(nil)

// ReadObservations parses observations of seriesID from CSV with a header
// row. Empty values and "." are missing.
func ReadObservations(r io.Reader, seriesID string) ([]domain.Observation, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols, err := columnIndex(header, colDate, colValue)
	if err != nil {
		return nil, err
	}
	deseasonalized, hasDeseasonalized := indexOf(header, colDeseasonalized)

	var result []domain.Observation
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedRow, line, err)
		}

		date, err := time.Parse(time.DateOnly, strings.TrimSpace(rec[cols[colDate]]))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: date %q", ErrMalformedRow, line, rec[cols[colDate]])
		}
		o := domain.Observation{SeriesID: seriesID, Date: date, Deseasonalized: domain.Missing}
		if o.Value, err = parseValue(rec[cols[colValue]]); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedRow, line, err)
		}
		if hasDeseasonalized {
			if o.Deseasonalized, err = parseValue(rec[deseasonalized]); err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedRow, line, err)
			}
		}
		result = append(result, o)
	}
	return result, nil
}

// ReadRegions parses the region list. Rows with an empty series id are skipped.
func ReadRegions(r io.Reader) ([]domain.Region, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols, err := columnIndex(header, colRegionID, colSeriesID)
	if err != nil {
		return nil, err
	}
	name, hasName := indexOf(header, colName)

	var regions []domain.Region
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedRow, line, err)
		}

		region := domain.Region{
			RegionID: field(rec, cols[colRegionID]),
			SeriesID: field(rec, cols[colSeriesID]),
		}
		if hasName {
			region.Name = field(rec, name)
		}
		if region.SeriesID == "" {
			continue
		}
		regions = append(regions, region)
	}
	return regions, nil
}

// LoadRegions reads the region list at path.
func LoadRegions(path string) ([]domain.Region, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	regions, err := ReadRegions(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return regions, nil
}

func parseValue(s string) (domain.NullFloat, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "." {
		return domain.Missing, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return domain.Missing, fmt.Errorf("value %q", s)
	}
	return domain.Float(v), nil
}

func columnIndex(header []string, required ...string) (map[string]int, error) {
	cols := make(map[string]int, len(required))
	for _, name := range required {
		i, ok := indexOf(header, name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
		cols[name] = i
	}
	return cols, nil
}

func indexOf(header []string, name string) (int, bool) {
	for i, h := range header {
		if strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")) == name {
			return i, true
		}
	}
	return 0, false
}

func field(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}
