package guide

import (
	"fmt"
	"path/filepath"
	"testing"
)

func newSessionStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("创建会话存储失败: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSessionStore_UniqueActivePerDay(t *testing.T) {
	store := newSessionStore(t)

	first := &Session{UserID: "u1", Date: "2026-08-29", Language: "en", Phase: PhaseGuide, Intent: IntentAskMood}
	if err := store.CreateSession(first); err != nil {
		t.Fatalf("创建会话失败: %v", err)
	}

	// 同用户同日的第二个未完成会话违反唯一约束
	dup := &Session{UserID: "u1", Date: "2026-08-29", Language: "en", Phase: PhaseGuide, Intent: IntentAskMood}
	if err := store.CreateSession(dup); err == nil {
		t.Fatal("同日重复创建未完成会话应失败")
	}

	// 废弃后允许重建
	if _, err := store.DiscardIncomplete("u1"); err != nil {
		t.Fatalf("废弃会话失败: %v", err)
	}
	if err := store.CreateSession(dup); err != nil {
		t.Errorf("废弃旧会话后创建失败: %v", err)
	}
}

func TestSessionStore_DiscardStale(t *testing.T) {
	store := newSessionStore(t)

	old := &Session{UserID: "u1", Date: "2026-08-27", Language: "en", Phase: PhaseGuide, Intent: IntentAskMood}
	current := &Session{UserID: "u1", Date: "2026-08-29", Language: "en", Phase: PhaseGuide, Intent: IntentAskMood}
	for _, s := range []*Session{old, current} {
		if err := store.CreateSession(s); err != nil {
			t.Fatalf("创建会话失败: %v", err)
		}
	}

	n, err := store.DiscardStale("u1", "2026-08-29")
	if err != nil {
		t.Fatalf("清理过期会话失败: %v", err)
	}
	if n != 1 {
		t.Errorf("清理条数 = %d, 期望 1", n)
	}

	if _, err := store.GetSession(old.ID); err != ErrSessionNotFound {
		t.Error("过期会话应已废弃")
	}
	if _, err := store.GetSession(current.ID); err != nil {
		t.Errorf("当日会话不应被清理: %v", err)
	}
}

func TestSessionStore_TurnWindow(t *testing.T) {
	store := newSessionStore(t)

	session := &Session{UserID: "u1", Date: "2026-08-29", Language: "en", Phase: PhaseGuide, Intent: IntentAskMood}
	if err := store.CreateSession(session); err != nil {
		t.Fatalf("创建会话失败: %v", err)
	}

	for i := 0; i < 10; i++ {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		if err := store.AppendTurn(&Turn{
			SessionID: session.ID,
			Role:      role,
			Content:   fmt.Sprintf("message %02d", i),
		}); err != nil {
			t.Fatalf("追加消息失败: %v", err)
		}
	}

	// 窗口只取最近 6 条，仍按时间正序返回
	turns, err := store.ListTurns(session.ID, 6)
	if err != nil {
		t.Fatalf("查询消息失败: %v", err)
	}
	if len(turns) != 6 {
		t.Fatalf("窗口条数 = %d, 期望 6", len(turns))
	}
	if turns[0].Content != "message 04" || turns[5].Content != "message 09" {
		t.Errorf("窗口范围 = [%q, %q], 期望 [message 04, message 09]",
			turns[0].Content, turns[5].Content)
	}

	all, err := store.ListTurns(session.ID, 0)
	if err != nil {
		t.Fatalf("查询全部消息失败: %v", err)
	}
	if len(all) != 10 {
		t.Errorf("全部消息条数 = %d, 期望 10", len(all))
	}
}

func TestSessionStore_AnswersRoundTrip(t *testing.T) {
	store := newSessionStore(t)

	session := &Session{
		UserID: "u1", Date: "2026-08-29", Language: "zh",
		Phase: PhaseGuide, Intent: IntentAskGratitude,
		Answers: StructuredAnswers{
			Mood:       "平静",
			Activities: "去公园跑步",
		},
	}
	if err := store.CreateSession(session); err != nil {
		t.Fatalf("创建会话失败: %v", err)
	}

	got, err := store.GetSession(session.ID)
	if err != nil {
		t.Fatalf("查询会话失败: %v", err)
	}
	if got.Answers.Mood != "平静" || got.Answers.Activities != "去公园跑步" {
		t.Errorf("回答往返异常: %+v", got.Answers)
	}
	if got.Intent != IntentAskGratitude || got.Language != "zh" {
		t.Errorf("会话字段往返异常: intent=%s language=%s", got.Intent, got.Language)
	}
}
