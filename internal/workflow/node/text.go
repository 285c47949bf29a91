package node

import (
	"strings"
	"unicode/utf8"
)

// TruncateByRunes 按字符数截断，不会切断多字节字符
func TruncateByRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	if len(s) <= maxRunes || utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	n := 0
	for i := range s {
		if n == maxRunes {
			return s[:i]
		}
		n++
	}
	return s
}

// CleanField 去掉首尾空白后截断
func CleanField(s string, maxRunes int) string {
	return TruncateByRunes(strings.TrimSpace(s), maxRunes)
}
