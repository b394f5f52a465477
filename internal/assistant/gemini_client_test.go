package assistant

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGeminiClientRequiresKey(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), "   ", "gemini-2.5-flash")
	assert.Error(t, err)
}

func TestNewGeminiClientDefaultsModel(t *testing.T) {
	c, err := NewGeminiClient(context.Background(), "test-key", "")
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	assert.Equal(t, "gemini-2.5-flash", c.modelID)
}

func TestNewGeminiClientKeepsModelID(t *testing.T) {
	c, err := NewGeminiClient(context.Background(), "test-key", "gemini-2.5-pro")
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	assert.Equal(t, "gemini-2.5-pro", c.modelID)
}

func TestChatTurnsRoleMapping(t *testing.T) {
	history, last := chatTurns([]Message{
		{Role: RoleUser, Content: "I have a persistent cough"},
		{Role: RoleAssistant, Content: "How long has it lasted?"},
		{Role: RoleUser, Content: "About three weeks"},
	})

	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, genai.Text("I have a persistent cough"), history[0].Parts[0])
	assert.Equal(t, "model", history[1].Role)
	assert.Equal(t, "About three weeks", last.Content)
}

func TestChatTurnsDropsSystemAndBlankMessages(t *testing.T) {
	history, last := chatTurns([]Message{
		{Role: RoleSystem, Content: "you are a triage assistant"},
		{Role: RoleUser, Content: "   "},
		{Role: RoleUser, Content: "hello"},
		{Role: RoleUser, Content: "any advice?"},
	})

	require.Len(t, history, 1)
	assert.Equal(t, genai.Text("hello"), history[0].Parts[0])
	assert.Equal(t, "any advice?", last.Content)
}

func TestChatTurnsSingleMessage(t *testing.T) {
	history, last := chatTurns([]Message{{Role: RoleUser, Content: "first contact"}})

	assert.Empty(t, history)
	assert.Equal(t, "first contact", last.Content)
}
