package guide

import (
	"strings"
	"unicode"
)

// sufficientEnglish 英文回答的最少词数门槛
var sufficientEnglish = map[Intent]int{
	IntentAskMood:           2,
	IntentAskActivities:     3,
	IntentAskChallengesWins: 3,
	IntentAskGratitude:      2,
	IntentAskHope:           3,
	IntentAskExtra:          2,
}

// sufficientChinese 中文回答的最少字数门槛
var sufficientChinese = map[Intent]int{
	IntentAskMood:           5,
	IntentAskActivities:     6,
	IntentAskChallengesWins: 6,
	IntentAskGratitude:      4,
	IntentAskHope:           6,
	IntentAskExtra:          3,
}

// dismissivePatterns 敷衍回答，不推进话题
var dismissivePatterns = map[string]bool{
	"nothing": true, "no": true, "nope": true, "not really": true,
	"don't know": true, "maybe": true, "okay": true, "fine": true,
	"没有": true, "不": true, "不知道": true, "也许": true,
	"好吧": true, "还行": true, "一般": true,
}

// generateTriggers 触发日记生成的关键词，任何话题下都可短路到 COMPOSE
var generateTriggers = []string{
	"generate", "create", "diary", "ready", "done", "finished",
	"生成", "创建", "日记", "准备", "完成", "结束",
}

// wantsGenerate 判断消息是否明确要求生成日记
func wantsGenerate(message string) bool {
	lower := strings.ToLower(message)
	for _, trigger := range generateTriggers {
		if strings.Contains(lower, trigger) {
			return true
		}
	}
	return false
}

// isSufficient 判断回答对当前话题是否提供了足够信息
// 中文按有效字数计、英文按词数计；敷衍回答一律不推进
func isSufficient(intent Intent, message string) bool {
	message = strings.TrimSpace(message)
	if message == "" {
		return false
	}

	lower := strings.ToLower(message)
	if dismissivePatterns[lower] || len(lower) <= 3 {
		return false
	}

	if containsHan(message) {
		threshold, ok := sufficientChinese[intent]
		if !ok {
			threshold = 3
		}
		return countMeaningfulRunes(message) >= threshold
	}

	threshold, ok := sufficientEnglish[intent]
	if !ok {
		threshold = 2
	}
	return len(strings.Fields(message)) >= threshold
}

// containsHan 判断文本是否包含汉字
func containsHan(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}

// countMeaningfulRunes 统计汉字与字母数，忽略标点和空白
func countMeaningfulRunes(s string) int {
	count := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			count++
		}
	}
	return count
}
