package prompt

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed templates/*.txt
var templatesFS embed.FS

type PromptID string

const (
	// PromptRepoGenerationV1 单条 user 消息，内含输出约定与示例
	PromptRepoGenerationV1 PromptID = "repo_generation_v1"
	// PromptRepoGenerationV2 system + user 两条消息
	PromptRepoGenerationV2 PromptID = "repo_generation_v2"
)

// DescriptionVar 模板中项目描述的变量名
const DescriptionVar = "description"

// IDForVersion 把配置中的版本号映射为模板 ID
func IDForVersion(version string) PromptID {
	v := strings.TrimSpace(strings.ToLower(version))
	if v == "" {
		v = "v1"
	}
	return PromptID("repo_generation_" + v)
}

type Registry struct {
	mu    sync.RWMutex
	cache map[PromptID]einoprompt.ChatTemplate
}

func NewRegistry() *Registry {
	return &Registry{
		cache: make(map[PromptID]einoprompt.ChatTemplate),
	}
}

func (r *Registry) ChatTemplate(id PromptID) (einoprompt.ChatTemplate, error) {
	if r == nil {
		return nil, fmt.Errorf("prompt registry is nil")
	}

	r.mu.RLock()
	tpl, ok := r.cache[id]
	r.mu.RUnlock()
	if ok {
		return tpl, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if tpl, ok := r.cache[id]; ok {
		return tpl, nil
	}

	msgs, err := loadMessages(id)
	if err != nil {
		return nil, err
	}
	tpl = einoprompt.FromMessages(schema.GoTemplate, msgs...)
	r.cache[id] = tpl
	return tpl, nil
}

// RepoGenerationMessages 渲染生成仓库所需的消息列表
func (r *Registry) RepoGenerationMessages(ctx context.Context, id PromptID, description string) ([]*schema.Message, error) {
	tpl, err := r.ChatTemplate(id)
	if err != nil {
		return nil, err
	}
	msgs, err := tpl.Format(ctx, map[string]any{DescriptionVar: strings.TrimSpace(description)})
	if err != nil {
		return nil, fmt.Errorf("format prompt %s: %w", id, err)
	}
	return msgs, nil
}

// loadMessages system 文件可选，user 文件必需
func loadMessages(id PromptID) ([]schema.MessagesTemplate, error) {
	base := "templates/" + string(id)

	user, err := readEmbeddedText(base + ".user.txt")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("unknown prompt id: %s", id)
		}
		return nil, err
	}

	var msgs []schema.MessagesTemplate
	system, err := readEmbeddedText(base + ".system.txt")
	switch {
	case err == nil:
		msgs = append(msgs, schema.SystemMessage(system))
	case !errors.Is(err, fs.ErrNotExist):
		return nil, err
	}
	return append(msgs, schema.UserMessage(user)), nil
}

func readEmbeddedText(path string) (string, error) {
	b, err := templatesFS.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
