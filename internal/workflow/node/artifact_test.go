package node

import (
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/ScriptSorcerer23/Idea2Repo/internal/domain/entity"
	apperrors "github.com/ScriptSorcerer23/Idea2Repo/pkg/errors"
)

func TestHasRequiredFields(t *testing.T) {
	full := map[string]any{"repository_name": "a", "description": "b", "readme_content": "c"}
	assert.True(t, HasRequiredFields(full))

	assert.False(t, HasRequiredFields(nil))
	assert.False(t, HasRequiredFields(map[string]any{"repository_name": "a", "description": "b"}))
	assert.False(t, HasRequiredFields(map[string]any{"repository_name": "a", "description": nil, "readme_content": "c"}))
	// 空字符串视为存在
	assert.True(t, HasRequiredFields(map[string]any{"repository_name": "", "description": "", "readme_content": ""}))
}

func TestCleanArtifact_TrimsAndTruncates(t *testing.T) {
	obj := map[string]any{
		"repository_name": "  " + strings.Repeat("é", 80) + "  ",
		"description":     strings.Repeat("d", 300),
		"readme_content":  "\n  # Title\\n\\nBody  \n",
	}
	got := CleanArtifact(obj)

	assert.Equal(t, 50, utf8.RuneCountInString(got.RepositoryName))
	assert.True(t, utf8.ValidString(got.RepositoryName))
	assert.Len(t, got.Description, 200)
	assert.Equal(t, `# Title\n\nBody`, got.ReadmeContent)
}

func TestCleanArtifact_CoercesNonStrings(t *testing.T) {
	obj := map[string]any{
		"repository_name": json.Number("42"),
		"description":     true,
		"readme_content":  map[string]any{"k": "v"},
	}
	got := CleanArtifact(obj)
	assert.Equal(t, "42", got.RepositoryName)
	assert.Equal(t, "true", got.Description)
	assert.Equal(t, `{"k":"v"}`, got.ReadmeContent)
}

func TestBuildFallback(t *testing.T) {
	raw := strings.Repeat("x", 700)
	fb := BuildFallback("  a weather app  ", raw)

	assert.Equal(t, "ai-generated-project", fb.RepositoryName)
	assert.Equal(t, "AI-generated project based on user requirements", fb.Description)
	assert.Len(t, fb.RawResponse, entity.MaxRawResponseRunes)
	assert.NotEmpty(t, fb.Note)
	assert.Contains(t, fb.ReadmeContent, `This project was generated based on: a weather app\n\n## Features`)
	assert.NotContains(t, fb.ReadmeContent, "\n")
	assert.True(t, strings.HasPrefix(fb.UnescapedReadme(), "# AI Generated Project 🚀\n\n"))
}

func TestTruncateByRunes(t *testing.T) {
	assert.Equal(t, "", TruncateByRunes("abc", 0))
	assert.Equal(t, "abc", TruncateByRunes("abc", 3))
	assert.Equal(t, "日本", TruncateByRunes("日本語", 2))
	assert.Equal(t, "ab", CleanField("  abc ", 2))
}

func TestCombineAttempts(t *testing.T) {
	timeout := apperrors.Wrap(assert.AnError, apperrors.CodeTimeout, "t")
	upstream := apperrors.Wrap(assert.AnError, apperrors.CodeAPIError, "u")

	assert.Equal(t, apperrors.CodeTimeout, CombineAttempts(upstream, timeout))
	assert.Equal(t, apperrors.CodeTimeout, CombineAttempts(timeout, assert.AnError))
	assert.Equal(t, apperrors.CodeAPIError, CombineAttempts(upstream, assert.AnError))
	assert.Equal(t, apperrors.CodeInternal, CombineAttempts(assert.AnError, assert.AnError))
	assert.Equal(t, apperrors.ErrTimeout, TerminalError(apperrors.CodeTimeout))
	assert.Equal(t, apperrors.ErrInternal, TerminalError(apperrors.CodeExtractionFailed))
}
