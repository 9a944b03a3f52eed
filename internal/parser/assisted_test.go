package parser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mediway/labreports/internal/common"
	"github.com/mediway/labreports/internal/entity"
	"github.com/mediway/labreports/internal/llm"
)

type mockExtractor struct {
	mock.Mock
}

func (m *mockExtractor) ExtractReport(ctx context.Context, req llm.ExtractRequest) ([]byte, error) {
	args := m.Called(req)
	if b := args.Get(0); b != nil {
		return b.([]byte), args.Error(1)
	}
	return nil, args.Error(1)
}

const ocrText = "Name :Jane Doe Lab No. :991\nAge :34\nGender :Female\nCollected :12/01/2024 08:10\nHemoglobin 13.2 g/dL 12.0-15.5\n"

func TestAssistedParse(t *testing.T) {
	m := &mockExtractor{}
	m.On("ExtractReport", llm.ExtractRequest{OCRText: ocrText}).Return([]byte("Here you go:\n"+
		`{"Patient Details":{"Collected":"12/01/2024 08:10","Reported":"13/01/2024"},"Tests":[`+
		`{"Name":"Hemoglobin","Result":"13.2","Unit":"g/dL","Reference Interval":{"Lower":"12.0","Upper":"15.5"}},`+
		`{"Name":"HbA1c","Result":"5.4","Unit":"%","Reference Interval":{"Lower":"<5.7","Upper":""}},`+
		`{"Name":"Vitamin D","Result":"41","Unit":"ng/mL","Reference Interval":{"Lower":"","Upper":""}}]}`), nil)

	p := NewAssistedParser(m, time.Second, nil)
	got, err := p.Parse(context.Background(), ocrText)
	require.NoError(t, err)
	m.AssertExpectations(t)

	assert.Equal(t, entity.PatientFields{
		Name:      "Jane Doe",
		LabNo:     "991",
		Age:       "34",
		Gender:    "Female",
		Collected: "12/01/2024 08:10",
		Reported:  "13/01/2024",
	}, got.Patient)

	require.Len(t, got.Tests, 3)
	assert.Equal(t, "12.0", *got.Tests[0].Interval.Lower)
	assert.Equal(t, "15.5", *got.Tests[0].Interval.Upper)
	assert.Equal(t, "NA", *got.Tests[1].Interval.Lower)
	assert.Equal(t, "5.7", *got.Tests[1].Interval.Upper)
	assert.False(t, got.Tests[2].Interval.Detected())
}

func TestAssistedParseSkipsUnnamedRows(t *testing.T) {
	m := &mockExtractor{}
	m.On("ExtractReport", mock.Anything).Return([]byte(
		`{"Patient Details":{"Collected":"","Reported":""},"Tests":[`+
			`{"Name":"","Result":"13.2","Unit":"g/dL","Reference Interval":{"Lower":"","Upper":""}},`+
			`{"Name":"Platelets","Result":"","Unit":"","Reference Interval":{"Lower":"","Upper":""}}]}`), nil)

	got, err := NewAssistedParser(m, time.Second, nil).Parse(context.Background(), ocrText)
	require.NoError(t, err)
	require.Len(t, got.Tests, 1)
	assert.Equal(t, "Platelets", got.Tests[0].Name)
	assert.Equal(t, "", got.Tests[0].Result)
	assert.Equal(t, "", got.Patient.Collected)
	assert.Equal(t, "Jane Doe", got.Patient.Name)
}

func TestAssistedParseFailuresAreExtractionErrors(t *testing.T) {
	cases := map[string]func(m *mockExtractor){
		"service error": func(m *mockExtractor) { m.On("ExtractReport", mock.Anything).Return(nil, errors.New("503")) },
		"prose only":    func(m *mockExtractor) { m.On("ExtractReport", mock.Anything).Return([]byte("I cannot read this report."), nil) },
		"wrong shape":   func(m *mockExtractor) { m.On("ExtractReport", mock.Anything).Return([]byte(`{"patient":{}}`), nil) },
	}
	for name, setup := range cases {
		t.Run(name, func(t *testing.T) {
			m := &mockExtractor{}
			setup(m)
			_, err := NewAssistedParser(m, 0, nil).Parse(context.Background(), ocrText)
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrExtraction)
		})
	}
}

func TestIntervalFromDoc(t *testing.T) {
	r := intervalFromDoc(llm.IntervalDoc{Upper: "200"})
	assert.Nil(t, r.Lower)
	assert.Equal(t, "200", *r.Upper)

	r = intervalFromDoc(llm.IntervalDoc{Lower: "4.5 - 10.2"})
	assert.Equal(t, "4.5", *r.Lower)
	assert.Equal(t, "10.2", *r.Upper)
}

func TestParsersShareInterface(t *testing.T) {
	var _ ReportParser = NewGrammarParser(nil)
	var _ ReportParser = NewAssistedParser(&mockExtractor{}, 0, nil)
	assert.Equal(t, "grammar", NewGrammarParser(nil).Name())
	assert.Equal(t, "assisted", NewAssistedParser(&mockExtractor{}, 0, nil).Name())
}
