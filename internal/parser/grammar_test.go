package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediway/labreports/internal/entity"
)

const janeDoe = "Name :Jane Doe Lab No. :991\nAge :34\nGender :Female\nHemoglobin 13.2 g/dL 12.0-15.5\n"

func TestGrammarSingleTestIsDropped(t *testing.T) {
	got, err := NewGrammarParser(nil).Parse(context.Background(), janeDoe)
	require.NoError(t, err)

	assert.Equal(t, "Jane Doe", got.Patient.Name)
	assert.Equal(t, "34", got.Patient.Age)
	assert.Equal(t, "Female", got.Patient.Gender)
	assert.Equal(t, "991", got.Patient.LabNo)
	assert.NotNil(t, got.Tests)
	assert.Empty(t, got.Tests)
}

func TestGrammarTwoTestsKeepsFirst(t *testing.T) {
	text := janeDoe + "Hemoglobin 14.1 g/dL 12.0-15.5\n"
	got, err := NewGrammarParser(nil).Parse(context.Background(), text)
	require.NoError(t, err)

	require.Len(t, got.Tests, 1)
	assert.Equal(t, entity.TestEntry{
		Name:     "Hemoglobin",
		Result:   "13.2",
		Unit:     "g/dL",
		Interval: entity.ReferenceInterval{Lower: entity.StrPtr("12.0"), Upper: entity.StrPtr("15.5")},
	}, got.Tests[0])
}

func TestGrammarDropsExactlyOne(t *testing.T) {
	text := "Glucose Fasting 92 mg/dL 70 - 100\n" +
		"Bilirubin Direct 0.2 mg/dL <0.3\n" +
		"Vitamin D 41 ng/mL >30\n" +
		"Total Cholesterol 180 mg/dL 125-200\n"

	got, err := NewGrammarParser(nil).Parse(context.Background(), text)
	require.NoError(t, err)
	require.Len(t, got.Tests, 3)

	assert.Equal(t, "Glucose Fasting", got.Tests[0].Name)
	assert.Equal(t, "mg/dL", got.Tests[0].Unit)
	assert.Equal(t, "70", *got.Tests[0].Interval.Lower)
	assert.Equal(t, "100", *got.Tests[0].Interval.Upper)

	assert.Equal(t, "Bilirubin Direct", got.Tests[1].Name)
	assert.Equal(t, "0.2", got.Tests[1].Result)
	assert.Equal(t, "NA", *got.Tests[1].Interval.Lower)
	assert.Equal(t, "0.3", *got.Tests[1].Interval.Upper)

	assert.Equal(t, "Vitamin D", got.Tests[2].Name)
	assert.Equal(t, "30", *got.Tests[2].Interval.Lower)
	assert.Nil(t, got.Tests[2].Interval.Upper)

	kept, err := NewGrammarParser(nil, WithKeepLastEntry(true)).Parse(context.Background(), text)
	require.NoError(t, err)
	assert.Len(t, kept.Tests, 4)
}

func TestGrammarFurnitureLinesNeverTests(t *testing.T) {
	text := "Ref By Lab No. : 12345 99.1 mg/dL 1.0-2.0\n" +
		"Page : 1 2.0 of 3-4\n" +
		"Urea 28 mg/dL 15-45\n" +
		"Creatinine 0.9 mg/dL 0.6-1.2\n"

	got, err := NewGrammarParser(nil, WithKeepLastEntry(true)).Parse(context.Background(), text)
	require.NoError(t, err)
	require.Len(t, got.Tests, 2)
	assert.Equal(t, "Urea", got.Tests[0].Name)
	assert.Equal(t, "Creatinine", got.Tests[1].Name)
	assert.Equal(t, "12345", got.Patient.LabNo)
}

func TestGrammarLastLabelMatchWins(t *testing.T) {
	text := "Name :J D\nAge :3\nName :Jane Doe\nAge :34 Gender :F\nGender :Female\nName :\n"
	got, err := NewGrammarParser(nil).Parse(context.Background(), text)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", got.Patient.Name)
	assert.Equal(t, "34", got.Patient.Age)
	assert.Equal(t, "Female", got.Patient.Gender)
}

func TestGrammarDatesCaptureFirstToken(t *testing.T) {
	text := "Collected :12 Jan 2024 10:30\nReported : 13/01/2024 09:00 AM\n"
	got, err := NewGrammarParser(nil).Parse(context.Background(), text)
	require.NoError(t, err)
	assert.Equal(t, "12", got.Patient.Collected)
	assert.Equal(t, "13/01/2024", got.Patient.Reported)
}

func TestGrammarNoMatches(t *testing.T) {
	got, err := NewGrammarParser(nil).Parse(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, entity.PatientFields{}, got.Patient)
	assert.Empty(t, got.Tests)
}
