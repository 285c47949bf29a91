package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ScriptSorcerer23/Idea2Repo/pkg/errors"
)

func TestGenerationRequest_Validate(t *testing.T) {
	cases := []struct {
		name   string
		prompt string
		ok     bool
	}{
		{"too short after trim", "   abcd   ", false},
		{"exactly five", "abcde", true},
		{"multibyte counted as runes", "日本語アプリ", true},
		{"too long", string(make([]rune, 501)), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := GenerationRequest{Prompt: tc.prompt}.Validate(5, 500)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestFallbackArtifact_FlattensOnWire(t *testing.T) {
	f := FallbackArtifact{
		RepositoryArtifact: RepositoryArtifact{RepositoryName: "ai-generated-project", Description: "d", ReadmeContent: "r"},
		RawResponse:        "raw",
		Note:               "note",
	}
	b, err := json.Marshal(f)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Equal(t, "ai-generated-project", m["repository_name"])
	assert.Equal(t, "raw", m["raw_response"])
	assert.Equal(t, "note", m["note"])
	assert.NotContains(t, m, "RepositoryArtifact")
}

func TestProgressEvent_Payloads(t *testing.T) {
	status := NewStatusEvent(MessageGenerating)
	assert.False(t, status.Terminal())
	assert.Empty(t, status.Name())
	b, _ := json.Marshal(status.Payload())
	assert.JSONEq(t, `{"status":"generating","message":"🤖 Generating repository..."}`, string(b))

	errEvt := NewErrorEvent(apperrors.ErrTimeout)
	assert.True(t, errEvt.Terminal())
	assert.Equal(t, "error", errEvt.Name())
	b, _ = json.Marshal(errEvt.Payload())
	assert.JSONEq(t, `{"error":"Request timeout - please try again","code":"TIMEOUT"}`, string(b))

	done := NewDoneEvent(RepositoryArtifact{RepositoryName: "x"})
	assert.Equal(t, "done", done.Name())
	assert.False(t, done.IsFallback())
	got, ok := done.Result()
	require.True(t, ok)
	assert.Equal(t, "x", got.RepositoryName)

	fb := NewFallbackEvent(FallbackArtifact{RepositoryArtifact: RepositoryArtifact{RepositoryName: "y"}, Note: "n"})
	assert.True(t, fb.IsFallback())
	got, ok = fb.Result()
	require.True(t, ok)
	assert.Equal(t, "y", got.RepositoryName)
}

func TestUnescapedReadme(t *testing.T) {
	a := RepositoryArtifact{ReadmeContent: `# Title\n\nBody`}
	assert.Equal(t, "# Title\n\nBody", a.UnescapedReadme())
}
