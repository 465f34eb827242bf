package guide

import (
	"fmt"
	"strings"

	"github.com/hession/daymate/internal/memory"
)

// Greeting 会话开场白
func Greeting(language, characterName string) string {
	if language == "zh" {
		return fmt.Sprintf("你好！我是%s。我来陪你一起回顾今天的经历，帮助你记录和反思。你今天过得怎么样？", characterName)
	}
	return fmt.Sprintf("Hi there! I'm %s. I'm here to help you reflect on your day. How are you feeling today?", characterName)
}

// transitionResponse 推进到下一话题时的回复
func transitionResponse(next Intent, language string) string {
	if language == "zh" {
		switch next {
		case IntentAskActivities:
			return "谢谢你的分享。你今天做了什么有趣的事情吗？"
		case IntentAskChallengesWins:
			return "听起来很不错。今天有没有遇到什么挑战或收获？"
		case IntentAskGratitude:
			return "很好。今天有什么让你感恩的事情吗？"
		case IntentAskHope:
			return "很棒。对于明天或未来，你有什么期待吗？"
		case IntentAskExtra:
			return "太好了。今天还有什么想记录下来的吗？"
		case IntentCompose:
			return "谢谢你分享这么多。让我为你写今天的日记吧。"
		}
		return fallbackResponse(next, language)
	}

	switch next {
	case IntentAskActivities:
		return "Thanks for sharing that. What did you do today that was interesting?"
	case IntentAskChallengesWins:
		return "That sounds good. Did you face any challenges or experience wins today?"
	case IntentAskGratitude:
		return "Great. Is there anything you feel grateful for today?"
	case IntentAskHope:
		return "Wonderful. What are you looking forward to or feeling hopeful about?"
	case IntentAskExtra:
		return "Perfect. Is there anything else you would like to record about today?"
	case IntentCompose:
		return "Thank you for sharing so much with me. Let me create your diary entry for today."
	}
	return fallbackResponse(next, language)
}

// encouragementResponse 回答不充分、停留在当前话题时的回复
func encouragementResponse(intent Intent, language string) string {
	if language == "zh" {
		switch intent {
		case IntentAskMood:
			return "我想了解更多。能详细说说你今天的感受吗？"
		case IntentAskActivities:
			return "听起来很有意思。能告诉我更多关于你今天做了什么吗？"
		case IntentAskChallengesWins:
			return "我想听更多。能分享更多关于今天的挑战或收获吗？"
		case IntentAskGratitude:
			return "这很好。还有其他让你感恩的事情吗？"
		case IntentAskHope:
			return "这很积极。还有其他让你期待的事情吗？"
		case IntentAskExtra:
			return "好的。还有什么想补充的吗？"
		}
		return fallbackResponse(intent, language)
	}

	switch intent {
	case IntentAskMood:
		return "I'd love to understand more. Can you tell me more about how you're feeling today?"
	case IntentAskActivities:
		return "That sounds interesting. Can you share more about what you did today?"
	case IntentAskChallengesWins:
		return "I'd like to hear more. Can you share more about any challenges or wins today?"
	case IntentAskGratitude:
		return "That's wonderful. Is there anything else you feel grateful for?"
	case IntentAskHope:
		return "That's positive. Is there anything else you're looking forward to?"
	case IntentAskExtra:
		return "Okay. Is there anything else you'd like to add?"
	}
	return fallbackResponse(intent, language)
}

// fallbackResponse 按话题给出的兜底回复
func fallbackResponse(intent Intent, language string) string {
	if language == "zh" {
		switch intent {
		case IntentAskMood:
			return "你今天感觉怎么样呢？"
		case IntentAskActivities:
			return "你今天做了什么有趣的事情吗？"
		case IntentAskChallengesWins:
			return "今天有没有遇到什么挑战或收获？"
		case IntentAskGratitude:
			return "今天有什么让你感恩的事情吗？"
		case IntentAskHope:
			return "对于明天或未来，你有什么期待吗？"
		case IntentAskExtra:
			return "今天还有什么想记录下来的吗？"
		case IntentCompose:
			return "让我为你写下今天的日记吧。"
		}
		return "我很想听你分享更多。能告诉我你今天的感受吗？"
	}

	switch intent {
	case IntentAskMood:
		return "How are you feeling today?"
	case IntentAskActivities:
		return "What did you do today that was interesting?"
	case IntentAskChallengesWins:
		return "Did you face any challenges or experience wins today?"
	case IntentAskGratitude:
		return "Is there anything you feel grateful for today?"
	case IntentAskHope:
		return "What are you looking forward to or feeling hopeful about?"
	case IntentAskExtra:
		return "Is there anything else you would like to record about today?"
	case IntentCompose:
		return "Let me create your diary entry based on what you've shared."
	}
	return "I'd love to hear more from you. Tell me about how you're feeling today."
}

// crisisResponse 危机分支的支持性回复
// 无论当前话题如何都必须包含支持性语言和安全提示
func crisisResponse(language string) string {
	if language == "zh" {
		return "听到这些我很难过。你值得被支持。如果你正处在紧急危险中，请立刻拨打当地的紧急电话。我会一直在这里陪着你，我们可以慢慢聊。"
	}
	return "I'm really sorry you're going through this. You deserve support. " +
		"If you're in immediate danger, please call your local emergency number. " +
		"I'm here with you, and we can keep talking whenever you're ready."
}

// guideSystemPrompt 引导回复的系统提示词
func guideSystemPrompt(intent Intent, language, characterName, memoryContext string) string {
	var b strings.Builder

	if language == "zh" {
		fmt.Fprintf(&b, "你是%s，一位温暖、专注倾听的日记陪伴者。", characterName)
		b.WriteString("你正在引导用户回顾今天。保持回复简短（1-2 句），以提问结尾，不要给建议或说教。\n")
		fmt.Fprintf(&b, "当前话题：%s\n", intentGoal(intent, language))
		if memoryContext != "" {
			b.WriteString("关于这位用户你已经知道：\n")
			b.WriteString(memoryContext)
			b.WriteString("\n自然地运用这些信息，但不要逐条复述。")
		}
		return b.String()
	}

	fmt.Fprintf(&b, "You are %s, a warm and attentive journaling companion. ", characterName)
	b.WriteString("You are guiding the user through a reflection on their day. Keep replies short (1-2 sentences), end with a question, and never lecture or give advice.\n")
	fmt.Fprintf(&b, "Current topic: %s\n", intentGoal(intent, language))
	if memoryContext != "" {
		b.WriteString("What you already know about this user:\n")
		b.WriteString(memoryContext)
		b.WriteString("\nWeave this in naturally; do not recite it.")
	}
	return b.String()
}

// intentGoal 话题目标描述，供系统提示词使用
func intentGoal(intent Intent, language string) string {
	if language == "zh" {
		switch intent {
		case IntentAskMood:
			return "了解用户今天的心情感受"
		case IntentAskActivities:
			return "了解用户今天做了什么"
		case IntentAskChallengesWins:
			return "了解今天的挑战或收获"
		case IntentAskGratitude:
			return "了解今天值得感恩的事情"
		case IntentAskHope:
			return "了解用户对未来的期待"
		case IntentAskExtra:
			return "询问还有什么想补充记录的"
		}
		return "陪伴用户回顾今天"
	}

	switch intent {
	case IntentAskMood:
		return "learn how the user is feeling today"
	case IntentAskActivities:
		return "learn what the user did today"
	case IntentAskChallengesWins:
		return "learn about today's challenges or wins"
	case IntentAskGratitude:
		return "learn what the user is grateful for today"
	case IntentAskHope:
		return "learn what the user is looking forward to"
	case IntentAskExtra:
		return "ask if there is anything else to record"
	}
	return "help the user reflect on their day"
}

// composerSystemPrompt 日记生成的系统提示词
func composerSystemPrompt(language, characterName, tone string) string {
	if language == "zh" {
		prompt := "你是一位日记写作助手，根据用户分享的内容，以第一人称写出自然、真诚的日记。"
		if tone != "" {
			prompt += fmt.Sprintf("整体语气：%s。", tone)
		}
		if characterName != "" && characterName != "AI Assistant" {
			prompt += fmt.Sprintf("\n\n重要：以%s的身份写日记，体现出个人化的特点。", characterName)
		}
		return prompt
	}

	prompt := "You are a diary writing assistant. Based on what the user shared, write a natural, sincere first-person diary entry."
	if tone != "" {
		prompt += fmt.Sprintf(" Overall tone: %s.", tone)
	}
	if characterName != "" && characterName != "AI Assistant" {
		prompt += fmt.Sprintf("\n\nIMPORTANT: Write the diary as %s to reflect a personalized perspective.", characterName)
	}
	return prompt
}

// composePrompt 由结构化回答和记忆上下文拼装日记生成请求
// 空槽位直接跳过，严格要求模型不编造细节
func composePrompt(answers StructuredAnswers, memoryContext, language string) string {
	var parts []string

	if language == "zh" {
		if answers.Mood != "" {
			parts = append(parts, "心情感受："+answers.Mood)
		}
		if answers.Activities != "" {
			parts = append(parts, "今天的活动："+answers.Activities)
		}
		if answers.ChallengesWins != "" {
			parts = append(parts, "挑战或成就："+answers.ChallengesWins)
		}
		if answers.Gratitude != "" {
			parts = append(parts, "感恩的事情："+answers.Gratitude)
		}
		if answers.Hope != "" {
			parts = append(parts, "未来期待："+answers.Hope)
		}
		if answers.ExtraNotes != "" {
			parts = append(parts, "其他想法："+answers.ExtraNotes)
		}

		prompt := "请基于以下信息写一篇个人日记条目：\n\n" + strings.Join(parts, "\n")
		if memoryContext != "" {
			prompt += "\n\n关于我的背景（仅在自然贴合时引用）：\n" + memoryContext
		}
		prompt += `

严格要求：
- 只使用上述提供的信息
- 写成第一人称日记形式
- 如果某项信息为空，跳过该主题
- 绝不编造任何细节
- 绝不在日记中写日期或署名
- 语言自然流畅，体现个人感受`
		return prompt
	}

	if answers.Mood != "" {
		parts = append(parts, "How I felt: "+answers.Mood)
	}
	if answers.Activities != "" {
		parts = append(parts, "What I did: "+answers.Activities)
	}
	if answers.ChallengesWins != "" {
		parts = append(parts, "Challenges or wins: "+answers.ChallengesWins)
	}
	if answers.Gratitude != "" {
		parts = append(parts, "What I'm grateful for: "+answers.Gratitude)
	}
	if answers.Hope != "" {
		parts = append(parts, "What I'm looking forward to: "+answers.Hope)
	}
	if answers.ExtraNotes != "" {
		parts = append(parts, "Other thoughts: "+answers.ExtraNotes)
	}

	prompt := "Please write a personal diary entry based on this information:\n\n" + strings.Join(parts, "\n")
	if memoryContext != "" {
		prompt += "\n\nBackground about me (use only where it fits naturally):\n" + memoryContext
	}
	prompt += `

STRICT REQUIREMENTS:
- Use ONLY the information provided above
- Write in first person as a diary entry
- If any information is missing, skip that topic
- Do NOT invent any details
- Do NOT include dates or signatures in the diary
- Keep the language natural and personal`
	return prompt
}

// FormatMemoryContext 将检索结果格式化为提示词中的记忆上下文
func FormatMemoryContext(results []memory.SearchResult, language string) string {
	if len(results) == 0 {
		return ""
	}

	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "- [%s] %s: %s\n",
			r.Item.Category.DisplayName(language), r.Item.Subject, r.Item.Value)
	}
	return strings.TrimRight(b.String(), "\n")
}
