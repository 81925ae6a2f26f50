package ingestion

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestReadObservations(t *testing.T) {
	input := "date,value,deseasonalized_value\n" +
		"2020-01-01,3.6,3.5\n" +
		"2020-02-01,.,3.4\n" +
		"2020-03-01,4.4,\n"

	obs, err := ReadObservations(strings.NewReader(input), "UNRATE")
	if err != nil {
		t.Fatalf("ReadObservations failed: %v", err)
	}
	if len(obs) != 3 {
		t.Fatalf("expected 3 observations, got %d", len(obs))
	}

	if obs[0].SeriesID != "UNRATE" || !obs[0].Date.Equal(month(2020, 1)) {
		t.Errorf("unexpected first observation: %+v", obs[0])
	}
	if !obs[0].Value.Valid || obs[0].Value.Float64 != 3.6 {
		t.Errorf("expected value 3.6, got %+v", obs[0].Value)
	}
	if obs[1].Value.Valid {
		t.Errorf("expected '.' to be missing, got %+v", obs[1].Value)
	}
	if !obs[1].Deseasonalized.Valid || obs[1].Deseasonalized.Float64 != 3.4 {
		t.Errorf("expected deseasonalized 3.4, got %+v", obs[1].Deseasonalized)
	}
	if obs[2].Deseasonalized.Valid {
		t.Errorf("expected empty deseasonalized to be missing, got %+v", obs[2].Deseasonalized)
	}
}

func TestReadObservations_WithoutDeseasonalized(t *testing.T) {
	obs, err := ReadObservations(strings.NewReader("date,value\n2020-01-01,1\n"), "USREC")
	if err != nil {
		t.Fatalf("ReadObservations failed: %v", err)
	}
	if len(obs) != 1 || obs[0].Deseasonalized.Valid {
		t.Errorf("expected one observation without deseasonalized value, got %+v", obs)
	}
}

func TestReadObservations_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"missing value column", "date,rate\n2020-01-01,1\n", ErrMissingColumn},
		{"bad date", "date,value\n01/2020,1\n", ErrMalformedRow},
		{"bad value", "date,value\n2020-01-01,abc\n", ErrMalformedRow},
		{"short row", "date,value\n2020-01-01\n", ErrMalformedRow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadObservations(strings.NewReader(tt.input), "X")
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestCSVSource_Observations(t *testing.T) {
	dir := t.TempDir()
	content := "date,value\n2019-12-01,3.6\n2020-01-01,3.5\n2020-02-01,3.5\n"
	if err := os.WriteFile(filepath.Join(dir, "UNRATE.csv"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	src := NewCSVSource(dir)
	obs, err := src.Observations(context.Background(), "UNRATE", month(2020, 1))
	if err != nil {
		t.Fatalf("Observations failed: %v", err)
	}
	if len(obs) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(obs))
	}
	if !obs[0].Date.Equal(month(2020, 1)) {
		t.Errorf("expected first date 2020-01-01, got %v", obs[0].Date)
	}

	all, err := src.Observations(context.Background(), "UNRATE", time.Time{})
	if err != nil {
		t.Fatalf("Observations failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 observations without start, got %d", len(all))
	}

	if _, err := src.Observations(context.Background(), "U6RATE", time.Time{}); !errors.Is(err, ErrUnknownSeries) {
		t.Errorf("expected ErrUnknownSeries, got %v", err)
	}
}

func TestReadRegions(t *testing.T) {
	input := "Fips_ID,County,SeriesId\n" +
		"01001,Autauga County AL,LAUCN010010000000003\n" +
		"01003,Baldwin County AL,\n" +
		"01005, Barbour County AL ,LAUCN010050000000003\n"

	regions, err := ReadRegions(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadRegions failed: %v", err)
	}
	if len(regions) != 2 {
		t.Fatalf("expected 2 regions, got %d", len(regions))
	}
	if regions[0].RegionID != "01001" || regions[0].SeriesID != "LAUCN010010000000003" {
		t.Errorf("unexpected first region: %+v", regions[0])
	}
	if regions[1].Name != "Barbour County AL" {
		t.Errorf("expected trimmed name, got %q", regions[1].Name)
	}
}

func TestReadRegions_MissingColumn(t *testing.T) {
	_, err := ReadRegions(strings.NewReader("Fips_ID,County\n01001,Autauga\n"))
	if !errors.Is(err, ErrMissingColumn) {
		t.Errorf("expected ErrMissingColumn, got %v", err)
	}
}

func TestLoadRegions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regions.csv")
	if err := os.WriteFile(path, []byte("Fips_ID,County,SeriesId\n01001,Autauga,S1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	regions, err := LoadRegions(path)
	if err != nil {
		t.Fatalf("LoadRegions failed: %v", err)
	}
	if len(regions) != 1 || regions[0].SeriesID != "S1" {
		t.Errorf("unexpected regions: %+v", regions)
	}

	if _, err := LoadRegions(filepath.Join(t.TempDir(), "missing.csv")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}
