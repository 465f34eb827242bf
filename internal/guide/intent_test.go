package guide

import (
	"testing"
)

func TestIntentFlowOrder(t *testing.T) {
	// 话题顺序单调前进，六个提问话题各出现一次后进入生成
	want := []Intent{
		IntentAskMood, IntentAskActivities, IntentAskChallengesWins,
		IntentAskGratitude, IntentAskHope, IntentAskExtra, IntentCompose,
	}

	current := IntentAskMood
	visited := []Intent{current}
	for current != IntentCompose {
		next := current.Next()
		visited = append(visited, next)
		current = next
		if len(visited) > len(want) {
			t.Fatal("话题流程未收敛到 COMPOSE")
		}
	}

	if len(visited) != len(want) {
		t.Fatalf("流程长度 = %d, 期望 %d", len(visited), len(want))
	}
	for i := range want {
		if visited[i] != want[i] {
			t.Errorf("流程[%d] = %s, 期望 %s", i, visited[i], want[i])
		}
	}

	if IntentCompose.Next() != IntentComplete {
		t.Errorf("COMPOSE 之后应为 COMPLETE")
	}
	if IntentComplete.Next() != IntentComplete {
		t.Errorf("COMPLETE 应保持不变")
	}
}

func TestIsSufficient(t *testing.T) {
	tests := []struct {
		name    string
		intent  Intent
		message string
		want    bool
	}{
		{"英文心情达标", IntentAskMood, "feeling tired today", true},
		{"英文心情两词达标", IntentAskMood, "pretty good", true},
		{"英文单词不足", IntentAskMood, "good", false},
		{"英文活动三词达标", IntentAskActivities, "went to work", true},
		{"英文活动两词不足", IntentAskActivities, "stayed home", false},
		{"敷衍回答", IntentAskGratitude, "not really", false},
		{"敷衍回答中文", IntentAskMood, "还行", false},
		{"空消息", IntentAskMood, "   ", false},
		{"中文心情达标", IntentAskMood, "我感觉很好很放松", true},
		{"中文心情字数不足", IntentAskMood, "挺好的", false},
		{"中文感恩达标", IntentAskGratitude, "感谢我的朋友", true},
		{"中文补充达标", IntentAskExtra, "没有别的了", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isSufficient(tt.intent, tt.message); got != tt.want {
				t.Errorf("isSufficient(%s, %q) = %v, 期望 %v",
					tt.intent, tt.message, got, tt.want)
			}
		})
	}
}

func TestWantsGenerate(t *testing.T) {
	tests := []struct {
		message string
		want    bool
	}{
		{"please generate my diary", true},
		{"I'm done for today", true},
		{"生成日记吧", true},
		{"写完了，结束吧", true},
		{"I went swimming this morning", false},
		{"今天去跑步了", false},
	}

	for _, tt := range tests {
		if got := wantsGenerate(tt.message); got != tt.want {
			t.Errorf("wantsGenerate(%q) = %v, 期望 %v", tt.message, got, tt.want)
		}
	}
}

func TestRecordAnswerImmutableAfterAdvance(t *testing.T) {
	var answers StructuredAnswers

	recordAnswer(&answers, IntentAskMood, "feeling calm")
	if answers.Mood != "feeling calm" {
		t.Fatalf("心情槽位 = %q", answers.Mood)
	}

	// 同一话题的补充回答用分号累积
	recordAnswer(&answers, IntentAskMood, "also a bit tired")
	if answers.Mood != "feeling calm; also a bit tired" {
		t.Errorf("补充后心情槽位 = %q", answers.Mood)
	}

	// 其他话题不影响已有槽位
	recordAnswer(&answers, IntentAskActivities, "went running")
	if answers.Mood != "feeling calm; also a bit tired" {
		t.Errorf("推进话题后心情槽位被改写: %q", answers.Mood)
	}
	if answers.Activities != "went running" {
		t.Errorf("活动槽位 = %q", answers.Activities)
	}
}
