// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/ScriptSorcerer23/Idea2Repo/internal/domain/entity"
)

// promptLenTag 描述长度校验标签，边界由 RegisterValidators 注入
const promptLenTag = "promptlen"

// GenerateRepoRequest POST /generate_repo/ 请求体
type GenerateRepoRequest struct {
	Prompt string `json:"prompt" binding:"required,promptlen"`
}

// ToEntity 转为领域请求
func (r GenerateRepoRequest) ToEntity() entity.GenerationRequest {
	return entity.GenerationRequest{Prompt: r.Prompt}
}

var (
	registerOnce sync.Once
	promptMin    = 5
	promptMax    = 500
)

// RegisterValidators 向 gin 的校验引擎注册自定义标签（进程级一次）
func RegisterValidators(minRunes, maxRunes int) error {
	var err error
	registerOnce.Do(func() {
		if minRunes > 0 {
			promptMin = minRunes
		}
		if maxRunes > 0 {
			promptMax = maxRunes
		}
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
			return
		}
		err = v.RegisterValidation(promptLenTag, func(fl validator.FieldLevel) bool {
			return entity.GenerationRequest{Prompt: fl.Field().String()}.Validate(promptMin, promptMax) == nil
		})
	})
	return err
}

// PromptBounds 当前生效的描述长度范围
func PromptBounds() (int, int) {
	return promptMin, promptMax
}

// ValidationMessage 把绑定错误转成面向调用方的说明
func ValidationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "request body must be a JSON object with a string \"prompt\" field"
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case promptLenTag:
			msgs = append(msgs, fmt.Sprintf("%s must be between %d and %d characters, got %d",
				field, promptMin, promptMax, utf8.RuneCountInString(strings.TrimSpace(fe.Value().(string)))))
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return strings.Join(msgs, "; ")
}
