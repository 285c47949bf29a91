package handler

import (
	"bytes"
	"encoding/json"

	"github.com/gin-gonic/gin"

	"github.com/ScriptSorcerer23/Idea2Repo/internal/domain/entity"
)

// setSSEHeaders 设置事件流响应头
func setSSEHeaders(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
}

// encodeEvent 把进度事件编码成一帧：
// status 事件只有 data 行，done/error 事件前面多一行 event。
func encodeEvent(e entity.ProgressEvent) ([]byte, error) {
	var data bytes.Buffer
	enc := json.NewEncoder(&data)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(e.Payload()); err != nil {
		return nil, err
	}

	var frame bytes.Buffer
	if name := e.Name(); name != "" {
		frame.WriteString("event: ")
		frame.WriteString(name)
		frame.WriteByte('\n')
	}
	frame.WriteString("data: ")
	frame.Write(bytes.TrimRight(data.Bytes(), "\n"))
	frame.WriteString("\n\n")
	return frame.Bytes(), nil
}
