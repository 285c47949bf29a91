package node

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ScriptSorcerer23/Idea2Repo/internal/domain/entity"
)

const (
	fallbackRepositoryName = "ai-generated-project"
	fallbackDescription    = "AI-generated project based on user requirements"
	fallbackNote           = "Fallback response due to JSON parsing issues"
)

// fallbackReadme 兜底 README，%s 为用户描述；换行在输出前统一转成字面量 \n
const fallbackReadme = "# AI Generated Project 🚀\n\n" +
	"This project was generated based on: %s\n\n" +
	"## Features\n\n" +
	"- AI-powered functionality\n" +
	"- Modern tech stack\n" +
	"- Easy to customize\n\n" +
	"## Getting Started\n\n" +
	"```bash\n" +
	"git clone <repo-url>\n" +
	"cd project\n" +
	"npm install\n" +
	"npm start\n" +
	"```\n\n" +
	"## License\n\n" +
	"MIT License"

// HasRequiredFields 三个必需字段都存在且不为 null
func HasRequiredFields(obj map[string]any) bool {
	if obj == nil {
		return false
	}
	for _, key := range entity.RequiredFields {
		if v, ok := obj[key]; !ok || v == nil {
			return false
		}
	}
	return true
}

// CleanArtifact 把字段转成字符串、去空白并截断到上限
func CleanArtifact(obj map[string]any) entity.RepositoryArtifact {
	return entity.RepositoryArtifact{
		RepositoryName: CleanField(Stringify(obj[entity.FieldRepositoryName]), entity.MaxRepositoryNameRunes),
		Description:    CleanField(Stringify(obj[entity.FieldDescription]), entity.MaxDescriptionRunes),
		ReadmeContent:  strings.TrimSpace(Stringify(obj[entity.FieldReadmeContent])),
	}
}

// BuildFallback 构造兜底骨架，raw 为模型原始输出
func BuildFallback(description, raw string) entity.FallbackArtifact {
	readme := fmt.Sprintf(fallbackReadme, strings.TrimSpace(description))
	return entity.FallbackArtifact{
		RepositoryArtifact: entity.RepositoryArtifact{
			RepositoryName: fallbackRepositoryName,
			Description:    fallbackDescription,
			ReadmeContent:  strings.ReplaceAll(readme, "\n", `\n`),
		},
		RawResponse: TruncateByRunes(raw, entity.MaxRawResponseRunes),
		Note:        fallbackNote,
	}
}

// Stringify 把任意 JSON 值转成字符串：字符串原样，数字/布尔按字面量，null 为空，其余为紧凑 JSON
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
