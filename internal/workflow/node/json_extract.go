package node

import (
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/ScriptSorcerer23/Idea2Repo/pkg/metrics"
)

// ExtractStep 标记哪一步成功解析出 JSON 对象
type ExtractStep string

const (
	StepSpan     ExtractStep = "span"
	StepRepaired ExtractStep = "repaired"
	StepWhole    ExtractStep = "whole"
	StepNone     ExtractStep = "none"
)

const fence = "```"

// Extract 从模型输出中尽力恢复一个 JSON 对象，无法恢复时返回 nil。
// 依次尝试：去掉外层代码块 -> 首个 { 到最后一个 } 的片段 -> 转义字符串内的换行/制表符后重试 -> 整段原文。
// 只有对象算成功，数组或标量一律视为失败。
func Extract(text string) map[string]any {
	obj, step := ExtractWithStep(text)
	metrics.ExtractionStepTotal.WithLabelValues(string(step)).Inc()
	return obj
}

// ExtractWithStep 与 Extract 相同，同时返回成功的步骤
func ExtractWithStep(text string) (map[string]any, ExtractStep) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, StepNone
	}

	if span, ok := braceSpan(stripFence(trimmed)); ok {
		if obj, ok := decodeObject(span); ok {
			return obj, StepSpan
		}
		if obj, ok := decodeObject(escapeStringControls(span)); ok {
			return obj, StepRepaired
		}
	}

	if obj, ok := decodeObject(trimmed); ok {
		return obj, StepWhole
	}
	return nil, StepNone
}

// stripFence 去掉包裹整段文本的 ``` 或 ```json 代码块标记，内部的代码块保持不变
func stripFence(s string) string {
	if !strings.HasPrefix(s, fence) {
		return s
	}
	body := s[len(fence):]
	i := 0
	for i < len(body) && isFenceTagByte(body[i]) {
		i++
	}
	body = strings.TrimSpace(body[i:])
	body = strings.TrimSuffix(body, fence)
	return strings.TrimSpace(body)
}

func isFenceTagByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b == '-' || b == '_'
}

func braceSpan(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

// decodeObject 严格解析：必须恰好是一个 JSON 对象，后面不能有多余内容
func decodeObject(s string) (map[string]any, bool) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, false
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	return obj, true
}

// escapeStringControls 把字符串字面量里的原始换行、回车、制表符替换为转义序列。
// 字符串外的空白保持不变，格式化过的 JSON 不会因此被破坏。
func escapeStringControls(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)

	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !inString {
			if c == '"' {
				inString = true
			}
			b.WriteByte(c)
			continue
		}
		switch {
		case escaped:
			escaped = false
			b.WriteByte(c)
		case c == '\\':
			escaped = true
			b.WriteByte(c)
		case c == '"':
			inString = false
			b.WriteByte(c)
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\r':
			b.WriteString(`\r`)
		case c == '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
