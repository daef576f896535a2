package emotion

import "strings"

// Label 表示回复消息附带的粗粒度情绪标签。
type Label string

const (
	None  Label = ""
	Happy Label = "happy"
	Sad   Label = "sad"
)

var (
	happyKeywords = []string{"wonderful", "happy"}
	sadKeywords   = []string{"sorry", "tired"}
)

// Tag 根据助手回复文本推断情绪标签，未命中任何关键词时返回 None。
func Tag(reply string) Label {
	normalized := strings.ToLower(reply)
	if containsAny(normalized, happyKeywords) {
		return Happy
	}
	if containsAny(normalized, sadKeywords) {
		return Sad
	}
	return None
}

func containsAny(text string, keywords []string) bool {
	for _, word := range keywords {
		if strings.Contains(text, word) {
			return true
		}
	}
	return false
}
