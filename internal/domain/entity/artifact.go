// Package entity 定义领域实体
package entity

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// 字段长度上限（按字符计）
const (
	MaxRepositoryNameRunes = 50
	MaxDescriptionRunes    = 200
	MaxRawResponseRunes    = 500
)

// 必需字段名
const (
	FieldRepositoryName = "repository_name"
	FieldDescription    = "description"
	FieldReadmeContent  = "readme_content"
)

// RequiredFields 模型输出必须包含的字段
var RequiredFields = []string{FieldRepositoryName, FieldDescription, FieldReadmeContent}

// GenerationRequest 生成请求
type GenerationRequest struct {
	Prompt string `json:"prompt"`
}

// Description 返回去除首尾空白后的项目描述
func (r GenerationRequest) Description() string {
	return strings.TrimSpace(r.Prompt)
}

// Validate 校验描述长度（去空白后按字符计）
func (r GenerationRequest) Validate(minRunes, maxRunes int) error {
	n := utf8.RuneCountInString(r.Description())
	if n < minRunes || n > maxRunes {
		return fmt.Errorf("prompt must be between %d and %d characters, got %d", minRunes, maxRunes, n)
	}
	return nil
}

// RepositoryArtifact 生成的仓库骨架
// ReadmeContent 保留字面量 \n 转义，由使用方还原换行
type RepositoryArtifact struct {
	RepositoryName string `json:"repository_name"`
	Description    string `json:"description"`
	ReadmeContent  string `json:"readme_content"`
}

// FallbackArtifact 模型输出不可用时返回的兜底骨架
type FallbackArtifact struct {
	RepositoryArtifact
	RawResponse string `json:"raw_response"`
	Note        string `json:"note"`
}

// UnescapedReadme 把字面量 \n 还原为换行
func (a RepositoryArtifact) UnescapedReadme() string {
	return strings.ReplaceAll(a.ReadmeContent, `\n`, "\n")
}
