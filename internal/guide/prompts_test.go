package guide

import (
	"strings"
	"testing"

	"github.com/hession/daymate/internal/memory"
)

func TestComposePrompt_SkipsEmptySlots(t *testing.T) {
	answers := StructuredAnswers{
		Mood:      "calm and focused",
		Gratitude: "my family",
	}

	prompt := composePrompt(answers, "", "en")

	if !strings.Contains(prompt, "How I felt: calm and focused") {
		t.Error("提示词应包含心情")
	}
	if !strings.Contains(prompt, "What I'm grateful for: my family") {
		t.Error("提示词应包含感恩内容")
	}
	if strings.Contains(prompt, "What I did:") {
		t.Error("空槽位不应出现在提示词中")
	}
	if !strings.Contains(prompt, "STRICT REQUIREMENTS") {
		t.Error("提示词应包含严格要求")
	}
}

func TestComposePrompt_Chinese(t *testing.T) {
	answers := StructuredAnswers{Mood: "很平静", Hope: "希望明天顺利"}

	prompt := composePrompt(answers, "", "zh")

	if !strings.Contains(prompt, "心情感受：很平静") {
		t.Error("中文提示词应包含心情")
	}
	if !strings.Contains(prompt, "未来期待：希望明天顺利") {
		t.Error("中文提示词应包含期待")
	}
	if !strings.Contains(prompt, "严格要求") {
		t.Error("中文提示词应包含严格要求")
	}
	if strings.Contains(prompt, "今天的活动") {
		t.Error("空槽位不应出现在提示词中")
	}
}

func TestGreeting_CharacterName(t *testing.T) {
	en := Greeting("en", "Muse")
	if !strings.Contains(en, "Muse") {
		t.Errorf("英文开场白应包含角色名: %q", en)
	}

	zh := Greeting("zh", "小月")
	if !strings.Contains(zh, "小月") {
		t.Errorf("中文开场白应包含角色名: %q", zh)
	}
}

func TestFormatMemoryContext(t *testing.T) {
	if got := FormatMemoryContext(nil, "en"); got != "" {
		t.Errorf("空结果应格式化为空串, 得到 %q", got)
	}

	results := []memory.SearchResult{
		{Item: &memory.Item{Category: memory.CategoryInterests, Subject: "pet", Value: "dog"}},
		{Item: &memory.Item{Category: memory.CategoryGoals, Subject: "exercise", Value: "run daily"}},
	}

	got := FormatMemoryContext(results, "en")
	if !strings.Contains(got, "[Interests] pet: dog") {
		t.Errorf("格式化结果缺少条目: %q", got)
	}
	lines := strings.Split(got, "\n")
	if len(lines) != 2 {
		t.Errorf("行数 = %d, 期望 2", len(lines))
	}
}
