// Package guide 实现引导式回顾引擎：
// 会话状态机、危机检测、日记生成与对外门面
package guide

import (
	"time"
)

// Phase 会话的粗粒度阶段
type Phase string

const (
	// PhaseGuide 提问阶段
	PhaseGuide Phase = "guide"
	// PhaseCompose 日记生成阶段
	PhaseCompose Phase = "compose"
	// PhaseComplete 已完成
	PhaseComplete Phase = "complete"
)

// Intent 会话中当前的引导话题
type Intent string

const (
	IntentAskMood           Intent = "ASK_MOOD"
	IntentAskActivities     Intent = "ASK_ACTIVITIES"
	IntentAskChallengesWins Intent = "ASK_CHALLENGES_WINS"
	IntentAskGratitude      Intent = "ASK_GRATITUDE"
	IntentAskHope           Intent = "ASK_HOPE"
	IntentAskExtra          Intent = "ASK_EXTRA"
	IntentCompose           Intent = "COMPOSE"
	IntentComplete          Intent = "COMPLETE"
)

// intentFlow 引导话题的固定顺序
var intentFlow = []Intent{
	IntentAskMood,
	IntentAskActivities,
	IntentAskChallengesWins,
	IntentAskGratitude,
	IntentAskHope,
	IntentAskExtra,
	IntentCompose,
}

// Next 返回流程中的下一个话题
// COMPOSE 之后为 COMPLETE，COMPLETE 保持不变
func (i Intent) Next() Intent {
	for idx, intent := range intentFlow {
		if intent == i {
			if idx+1 < len(intentFlow) {
				return intentFlow[idx+1]
			}
			return IntentComplete
		}
	}
	return IntentComplete
}

// IsAsk 判断是否为提问类话题
func (i Intent) IsAsk() bool {
	switch i {
	case IntentAskMood, IntentAskActivities, IntentAskChallengesWins,
		IntentAskGratitude, IntentAskHope, IntentAskExtra:
		return true
	}
	return false
}

// StructuredAnswers 会话中按话题累积的结构化回答
// 话题推进后对应槽位不再修改
type StructuredAnswers struct {
	Mood           string `json:"mood,omitempty"`
	Activities     string `json:"activities,omitempty"`
	ChallengesWins string `json:"challenges_wins,omitempty"`
	Gratitude      string `json:"gratitude,omitempty"`
	Hope           string `json:"hope,omitempty"`
	ExtraNotes     string `json:"extra_notes,omitempty"`
}

// slotFor 返回话题对应槽位的指针，非提问话题返回 nil
func (a *StructuredAnswers) slotFor(intent Intent) *string {
	switch intent {
	case IntentAskMood:
		return &a.Mood
	case IntentAskActivities:
		return &a.Activities
	case IntentAskChallengesWins:
		return &a.ChallengesWins
	case IntentAskGratitude:
		return &a.Gratitude
	case IntentAskHope:
		return &a.Hope
	case IntentAskExtra:
		return &a.ExtraNotes
	}
	return nil
}

// Empty 判断是否所有槽位都为空
func (a *StructuredAnswers) Empty() bool {
	return a.Mood == "" && a.Activities == "" && a.ChallengesWins == "" &&
		a.Gratitude == "" && a.Hope == "" && a.ExtraNotes == ""
}

// Session 一次每日引导会话
// 不变式：每个用户每个自然日至多一个未完成的活跃会话
type Session struct {
	ID         string            `json:"id"`
	UserID     string            `json:"user_id"`
	Date       string            `json:"date"` // 自然日，格式 2006-01-02
	Language   string            `json:"language"`
	Phase      Phase             `json:"phase"`
	Intent     Intent            `json:"intent"`
	Answers    StructuredAnswers `json:"answers"`
	IsComplete bool              `json:"is_complete"`
	IsCrisis   bool              `json:"is_crisis"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// Turn 会话中的一条消息，只追加不修改
type Turn struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"` // user 或 assistant
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// DiaryEntry 生成的日记
// 用户编辑产生新版本，旧版本不可变
type DiaryEntry struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
}

// Snapshot 会话完成时的记忆快照，用于后续调优
type Snapshot struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	UserID      string    `json:"user_id"`
	Extracted   int       `json:"extracted"`    // 本次会话抽取的记忆条数
	ContextUsed string    `json:"context_used"` // 生成日记时使用的记忆上下文
	CreatedAt   time.Time `json:"created_at"`
}

// Reply SendMessage 的返回值
type Reply struct {
	Response   string            `json:"response"`
	Phase      Phase             `json:"phase"`
	Intent     Intent            `json:"intent"`
	Answers    StructuredAnswers `json:"answers"`
	IsComplete bool              `json:"is_complete"`
	IsCrisis   bool              `json:"is_crisis"`
	Diary      *DiaryEntry       `json:"diary,omitempty"`
}
