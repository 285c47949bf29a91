package prompt

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepoGenerationMessages_V1IsSingleUserMessage(t *testing.T) {
	r := NewRegistry()

	msgs, err := r.RepoGenerationMessages(context.Background(), PromptRepoGenerationV1, "  a todo app with {{braces}}  ")
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	msg := msgs[0]
	assert.Equal(t, schema.User, msg.Role)
	assert.Contains(t, msg.Content, `Generate a complete GitHub repository for: "a todo app with {{braces}}"`)
	assert.Contains(t, msg.Content, `"repository_name": "short-kebab-name"`)
	assert.Contains(t, msg.Content, `use \n for line breaks`)
	assert.Contains(t, msg.Content, "RESPOND ONLY WITH VALID JSON. NO OTHER TEXT.")
}

func TestRepoGenerationMessages_V2HasSystemMessage(t *testing.T) {
	r := NewRegistry()

	msgs, err := r.RepoGenerationMessages(context.Background(), IDForVersion("V2"), "weather dashboard")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, schema.System, msgs[0].Role)
	assert.Equal(t, schema.User, msgs[1].Role)
	assert.Contains(t, msgs[1].Content, `Project idea: "weather dashboard"`)
}

func TestChatTemplate_UnknownID(t *testing.T) {
	_, err := NewRegistry().ChatTemplate(PromptID("repo_generation_v9"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown prompt id")
}

func TestChatTemplate_Cached(t *testing.T) {
	r := NewRegistry()
	a, err := r.ChatTemplate(PromptRepoGenerationV1)
	require.NoError(t, err)
	b, err := r.ChatTemplate(PromptRepoGenerationV1)
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestIDForVersion(t *testing.T) {
	assert.Equal(t, PromptRepoGenerationV1, IDForVersion(""))
	assert.Equal(t, PromptRepoGenerationV2, IDForVersion(" v2 "))
}
