package application

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/chainguard-dev/clog"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/ahrav/go-amour/internal/domain"
)

// CalibrationLetter is a reference letter with the overall score band a
// well-calibrated oracle should assign it.
type CalibrationLetter struct {
	Name string
	Text domain.JudgedText
	Lo   float64
	Hi   float64
}

// Expected renders the band as "lo-hi".
func (l CalibrationLetter) Expected() string { return fmt.Sprintf("%.0f-%.0f", l.Lo, l.Hi) }

// CalibrationLetters returns a copy of the built-in calibration set.
func CalibrationLetters() []CalibrationLetter { return slices.Clone(calibrationLetters) }

// CalibrationStatus places a score relative to its expected band.
type CalibrationStatus string

// Calibration statuses.
const (
	StatusPass  CalibrationStatus = "PASS"
	StatusLow   CalibrationStatus = "LOW"
	StatusHigh  CalibrationStatus = "HIGH"
	StatusError CalibrationStatus = "ERROR"
)

// Discriminatory power grades.
const (
	PowerGood     = "good"
	PowerModerate = "moderate"
	PowerLow      = "low"

	goodPowerRange     = 50.0
	moderatePowerRange = 30.0
)

// CalibrationRow is the outcome for one letter.
type CalibrationRow struct {
	Letter   CalibrationLetter
	Score    float64
	Variance float64
	Overalls []float64
	Status   CalibrationStatus
	// Err is set when Status is StatusError.
	Err error
}

// DiscriminatoryPower is the spread of valid scores across the letter set.
type DiscriminatoryPower struct {
	// Valid is false when fewer than two letters produced a usable score.
	Valid bool
	Min   float64
	Max   float64
	Range float64
	Grade string
}

// CalibrationReport summarizes a calibration run.
type CalibrationReport struct {
	Rows  []CalibrationRow
	Power DiscriminatoryPower
}

// Passed reports how many letters landed in their band.
func (r CalibrationReport) Passed() int {
	n := 0
	for _, row := range r.Rows {
		if row.Status == StatusPass {
			n++
		}
	}
	return n
}

// Calibrate scores each letter directly, bypassing extraction, and grades
// the result against the expected bands. A samples value below one uses the
// evaluator default.
func (e *Evaluator) Calibrate(ctx context.Context, letters []CalibrationLetter, samples int) CalibrationReport {
	if samples < 1 {
		samples = e.samples
	}
	log := clog.FromContext(ctx)

	report := CalibrationReport{Rows: make([]CalibrationRow, 0, len(letters))}
	for i, letter := range letters {
		log.Infof("[%d/%d] calibrating %s (expected %s)", i+1, len(letters), letter.Name, letter.Expected())
		row := e.calibrateOne(clog.WithLogger(ctx, log.With("letter", letter.Name)), letter, samples)
		report.Rows = append(report.Rows, row)
	}
	report.Power = discriminatoryPower(report.Rows)
	return report
}

func (e *Evaluator) calibrateOne(ctx context.Context, letter CalibrationLetter, samples int) CalibrationRow {
	row := CalibrationRow{Letter: letter}

	agg, err := e.aggregator.Aggregate(ctx, letter.Text, samples)
	switch {
	case err != nil:
		row.Status, row.Err = StatusError, err
		return row
	case agg.FallbackCount == len(agg.Samples):
		row.Status = StatusError
		row.Err = fmt.Errorf("all %d samples fell back: %s", len(agg.Samples), agg.Samples[0].Failure.Message)
		return row
	}

	row.Score = domain.ClampScore(agg.OverallScore)
	row.Variance = agg.ScoreVariance
	row.Overalls = agg.Overalls()
	row.Status = classify(row.Score, letter)
	return row
}

func classify(score float64, letter CalibrationLetter) CalibrationStatus {
	switch {
	case score < letter.Lo:
		return StatusLow
	case score > letter.Hi:
		return StatusHigh
	default:
		return StatusPass
	}
}

// discriminatoryPower grades max-min over the non-error, non-zero scores.
func discriminatoryPower(rows []CalibrationRow) DiscriminatoryPower {
	var scores []float64
	for _, row := range rows {
		if row.Status != StatusError && row.Score > 0 {
			scores = append(scores, row.Score)
		}
	}
	if len(scores) < 2 {
		return DiscriminatoryPower{}
	}

	p := DiscriminatoryPower{Valid: true, Min: slices.Min(scores), Max: slices.Max(scores)}
	p.Range = p.Max - p.Min
	switch {
	case p.Range >= goodPowerRange:
		p.Grade = PowerGood
	case p.Range >= moderatePowerRange:
		p.Grade = PowerModerate
	default:
		p.Grade = PowerLow
	}
	return p
}

// Render writes the report as a markdown table followed by the
// discriminatory power summary.
func (r CalibrationReport) Render(w io.Writer) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Letter", "Expected", "Actual", "Variance", "Status"}),
		tablewriter.WithRenderer(renderer.NewBlueprint()),
		tablewriter.WithRendition(tw.Rendition{
			Symbols: tw.NewSymbols(tw.StyleMarkdown),
			Borders: tw.Border{Left: tw.On, Top: tw.Off, Right: tw.On, Bottom: tw.Off},
		}),
		tablewriter.WithRowAutoWrap(tw.WrapNone),
	)

	for _, row := range r.Rows {
		actual, variance := "ERROR", "-"
		if row.Status != StatusError {
			actual = fmt.Sprintf("%.1f", row.Score)
			variance = fmt.Sprintf("%.1f", row.Variance)
		}
		if err := table.Append([]string{row.Letter.Name, row.Letter.Expected(), actual, variance, string(row.Status)}); err != nil {
			return fmt.Errorf("render calibration row: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("render calibration table: %w", err)
	}

	if !r.Power.Valid {
		_, err := fmt.Fprintln(w, "\nDiscriminatory power: not enough valid scores")
		return err
	}
	_, err := fmt.Fprintf(w, "\nDiscriminatory power: %s (range %.1f, min %.1f, max %.1f)\nPassed: %d/%d\n",
		r.Power.Grade, r.Power.Range, r.Power.Min, r.Power.Max, r.Passed(), len(r.Rows))
	return err
}
