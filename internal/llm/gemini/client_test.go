package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/mediway/labreports/internal/entity"
	"github.com/mediway/labreports/internal/llm"
)

type mockModels struct {
	mock.Mock
}

func (m *mockModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	args := m.Called(model, contents, config)
	if r := args.Get(0); r != nil {
		return r.(*genai.GenerateContentResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func response(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: text}}}}},
	}
}

func TestExtractReportUsesJSONMode(t *testing.T) {
	m := &mockModels{}
	m.On("GenerateContent", "gemini-2.5-flash-lite", mock.Anything, mock.MatchedBy(func(c *genai.GenerateContentConfig) bool {
		return c.ResponseMIMEType == "application/json" && c.SystemInstruction != nil
	})).Return(response(`{"Patient Details":{},"Tests":[]}`), nil)

	c := newClient(Config{}, m, nil)
	raw, err := c.ExtractReport(context.Background(), llm.ExtractRequest{OCRText: "Hemoglobin 13.2"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"Patient Details":{},"Tests":[]}`, string(raw))

	contents := m.Calls[0].Arguments.Get(1).([]*genai.Content)
	require.Len(t, contents, 1)
	assert.Equal(t, "user", contents[0].Role)
	assert.Contains(t, contents[0].Parts[0].Text, "Hemoglobin 13.2")
}

func TestCompleteMapsRoles(t *testing.T) {
	m := &mockModels{}
	m.On("GenerateContent", "g", mock.Anything, mock.Anything).Return(response("Hi Jane"), nil)

	c := newClient(Config{Model: "g"}, m, nil)
	out, err := c.Complete(context.Background(), llm.ChatRequest{
		Messages: []entity.Turn{
			{Role: entity.RoleSystem, Content: "be kind"},
			{Role: entity.RoleUser, Content: "q1"},
			{Role: entity.RoleAssistant, Content: "a1"},
			{Role: entity.RoleUser, Content: "q2"},
		},
		MaxTokens: 50,
	})
	require.NoError(t, err)
	assert.Equal(t, "Hi Jane", out)

	contents := m.Calls[0].Arguments.Get(1).([]*genai.Content)
	config := m.Calls[0].Arguments.Get(2).(*genai.GenerateContentConfig)
	require.Len(t, contents, 3)
	assert.Equal(t, []string{"user", "model", "user"}, []string{contents[0].Role, contents[1].Role, contents[2].Role})
	assert.Equal(t, "be kind", config.SystemInstruction.Parts[0].Text)
	assert.Equal(t, int32(50), config.MaxOutputTokens)
}

func TestGenerateErrors(t *testing.T) {
	m := &mockModels{}
	m.On("GenerateContent", "a", mock.Anything, mock.Anything).Return(nil, errors.New("quota"))
	m.On("GenerateContent", "b", mock.Anything, mock.Anything).Return(response("   "), nil)

	_, err := newClient(Config{Model: "a"}, m, nil).ExtractReport(context.Background(), llm.ExtractRequest{})
	assert.ErrorContains(t, err, "quota")

	_, err = newClient(Config{Model: "b"}, m, nil).ExtractReport(context.Background(), llm.ExtractRequest{})
	assert.ErrorContains(t, err, "empty response")
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(context.Background(), Config{}, nil)
	assert.Error(t, err)
}
