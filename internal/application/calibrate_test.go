package application

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-amour/internal/domain"
	"github.com/ahrav/go-amour/internal/testutils"
)

func TestCalibrationLetters(t *testing.T) {
	letters := CalibrationLetters()
	require.Len(t, letters, 7)

	for _, l := range letters {
		assert.NotEmpty(t, l.Text, l.Name)
		assert.Less(t, l.Lo, l.Hi, l.Name)
	}
	assert.Equal(t, "Terrible", letters[0].Name)
	assert.Equal(t, "0-20", letters[0].Expected())

	// Callers get a copy.
	letters[0].Name = "changed"
	assert.Equal(t, "Terrible", CalibrationLetters()[0].Name)
}

func TestEvaluator_Calibrate(t *testing.T) {
	// Given a mock LLM that grades each reference letter inside its band
	llm := testutils.NewMockLLMClient("mock-model")
	ev := newTestEvaluator(t, testConfig(nil), Dependencies{LLM: llm})

	// When the calibration set is scored
	report := ev.Calibrate(t.Context(), CalibrationLetters(), 1)

	// Then every letter passes and the spread is wide
	require.Len(t, report.Rows, 7)
	for _, row := range report.Rows {
		assert.Equal(t, StatusPass, row.Status, "%s scored %.1f, expected %s", row.Letter.Name, row.Score, row.Letter.Expected())
		assert.NoError(t, row.Err)
		assert.Len(t, row.Overalls, 1)
	}
	assert.Equal(t, 7, report.Passed())
	assert.True(t, report.Power.Valid)
	assert.Equal(t, PowerGood, report.Power.Grade)
	assert.InDelta(t, 6.0, report.Power.Min, 1e-9)
	assert.InDelta(t, 97.0, report.Power.Max, 1e-9)
	assert.Equal(t, 7, llm.Calls())
}

func TestEvaluator_Calibrate_SampleCount(t *testing.T) {
	// Given an evaluator configured for two samples
	stub := testutils.NewStubOracle(testutils.Scored(10, 10, 10, 10, 10))
	ev := newTestEvaluator(t, testConfig(func(c *Config) { c.Evaluation.Samples = 2 }), Dependencies{Oracle: stub})
	letters := CalibrationLetters()[:1]

	// When calibrating without an explicit count
	report := ev.Calibrate(t.Context(), letters, 0)

	// Then the evaluator default is used
	require.Len(t, report.Rows, 1)
	assert.Len(t, report.Rows[0].Overalls, 2)
	assert.Equal(t, 2, stub.Calls())

	// And the letter text is sent as-is
	assert.Equal(t, letters[0].Text, stub.Texts()[0])
}

func TestEvaluator_Calibrate_OracleFailure(t *testing.T) {
	// Given an oracle that is never reachable
	stub := testutils.NewStubOracle(testutils.Failing(domain.ErrOracleUnavailable, "connection refused"))
	ev := newTestEvaluator(t, testConfig(nil), Dependencies{Oracle: stub})

	// When calibrating
	report := ev.Calibrate(t.Context(), CalibrationLetters()[:3], 1)

	// Then every row is an error and no power can be computed
	for _, row := range report.Rows {
		assert.Equal(t, StatusError, row.Status)
		require.Error(t, row.Err)
		assert.Contains(t, row.Err.Error(), "connection refused")
	}
	assert.Zero(t, report.Passed())
	assert.False(t, report.Power.Valid)
}

func TestClassify(t *testing.T) {
	letter := CalibrationLetter{Name: "Good", Lo: 60, Hi: 75}

	tests := []struct {
		score float64
		want  CalibrationStatus
	}{
		{score: 59.9, want: StatusLow},
		{score: 60, want: StatusPass},
		{score: 70, want: StatusPass},
		{score: 75, want: StatusPass},
		{score: 75.1, want: StatusHigh},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, classify(tt.score, letter), "score %.1f", tt.score)
	}
}

func TestDiscriminatoryPower(t *testing.T) {
	row := func(score float64, status CalibrationStatus) CalibrationRow {
		return CalibrationRow{Score: score, Status: status}
	}

	tests := []struct {
		name string
		rows []CalibrationRow
		want DiscriminatoryPower
	}{
		{
			name: "good",
			rows: []CalibrationRow{row(10, StatusPass), row(65, StatusPass), row(90, StatusHigh)},
			want: DiscriminatoryPower{Valid: true, Min: 10, Max: 90, Range: 80, Grade: PowerGood},
		},
		{
			name: "moderate",
			rows: []CalibrationRow{row(40, StatusPass), row(75, StatusLow)},
			want: DiscriminatoryPower{Valid: true, Min: 40, Max: 75, Range: 35, Grade: PowerModerate},
		},
		{
			name: "low",
			rows: []CalibrationRow{row(48, StatusPass), row(55, StatusPass)},
			want: DiscriminatoryPower{Valid: true, Min: 48, Max: 55, Range: 7, Grade: PowerLow},
		},
		{
			name: "errors and zero scores are ignored",
			rows: []CalibrationRow{row(0, StatusLow), row(30, StatusError), row(50, StatusPass)},
			want: DiscriminatoryPower{},
		},
		{
			name: "empty",
			want: DiscriminatoryPower{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, discriminatoryPower(tt.rows))
		})
	}
}

func TestCalibrationReport_Render(t *testing.T) {
	// Given a report with a passing row and an error row
	letters := CalibrationLetters()
	report := CalibrationReport{
		Rows: []CalibrationRow{
			{Letter: letters[0], Score: 6, Variance: 1.5, Status: StatusPass},
			{Letter: letters[1], Score: 62, Variance: 0, Status: StatusHigh},
			{Letter: letters[2], Status: StatusError},
		},
	}
	report.Power = discriminatoryPower(report.Rows)

	// When rendered
	var buf bytes.Buffer
	require.NoError(t, report.Render(&buf))

	// Then the table and summary are written
	out := buf.String()
	assert.Contains(t, out, "LETTER")
	assert.Contains(t, out, "VARIANCE")
	assert.Contains(t, out, "Terrible")
	assert.Contains(t, out, "0-20")
	assert.Contains(t, out, "6.0")
	assert.Contains(t, out, "HIGH")
	assert.Contains(t, out, "ERROR")
	assert.Contains(t, out, "Discriminatory power: good (range 56.0, min 6.0, max 62.0)")
	assert.Contains(t, out, "Passed: 1/3")
}

func TestCalibrationReport_Render_NoPower(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, CalibrationReport{}.Render(&buf))
	assert.Contains(t, buf.String(), "not enough valid scores")
}
