package memory

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
)

// fakeEmbedder 测试用向量客户端，返回固定向量
type fakeEmbedder struct {
	vec  []float32
	fail bool
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	if f.fail {
		return nil, ErrEmbeddingFailed
	}
	return f.vec, nil
}

func (f *fakeEmbedder) Dimension() int {
	return len(f.vec)
}

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "memory.db"))
	if err != nil {
		t.Fatalf("创建测试存储失败: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestResolve_Insert(t *testing.T) {
	store := newTestStore(t)
	resolver := NewResolver(store, &fakeEmbedder{vec: []float32{0.1, 0.2}}, 0.7)

	resolutions := resolver.Resolve(context.Background(), "u1", []Candidate{
		{Category: CategoryInterests, Subject: "pet", Value: "dog", Confidence: 0.8},
	})

	if len(resolutions) != 1 {
		t.Fatalf("期望 1 条处理结果, 得到 %d", len(resolutions))
	}
	if resolutions[0].Outcome != OutcomeInserted {
		t.Errorf("处理结果 = %v, 期望插入", resolutions[0].Outcome)
	}

	item, err := store.GetItem("u1", CategoryInterests, "pet")
	if err != nil {
		t.Fatalf("查询插入的记忆失败: %v", err)
	}
	if item.Value != "dog" {
		t.Errorf("记忆值 = %q, 期望 dog", item.Value)
	}
	if item.Version != 1 || item.MentionCount != 1 {
		t.Errorf("新记忆版本/计数 = %d/%d, 期望 1/1", item.Version, item.MentionCount)
	}
	if len(item.Embedding) != 2 {
		t.Errorf("记忆应带向量, 长度 = %d", len(item.Embedding))
	}
}

func TestResolve_Reinforce(t *testing.T) {
	store := newTestStore(t)
	resolver := NewResolver(store, nil, 0.7)

	candidate := Candidate{Category: CategoryInterests, Subject: "pet", Value: "dog", Confidence: 0.6}
	resolver.Resolve(context.Background(), "u1", []Candidate{candidate})
	resolutions := resolver.Resolve(context.Background(), "u1", []Candidate{candidate})

	if resolutions[0].Outcome != OutcomeReinforced {
		t.Fatalf("处理结果 = %v, 期望强化", resolutions[0].Outcome)
	}

	item, _ := store.GetItem("u1", CategoryInterests, "pet")
	if item.MentionCount != 2 {
		t.Errorf("提及次数 = %d, 期望 2", item.MentionCount)
	}
	if item.Version != 1 {
		t.Errorf("同值强化不应增加版本号, 版本 = %d", item.Version)
	}
	if math.Abs(item.Confidence-0.7) > 1e-9 {
		t.Errorf("强化后置信度 = %v, 期望 0.7", item.Confidence)
	}
}

func TestResolve_OverwriteAboveThreshold(t *testing.T) {
	store := newTestStore(t)
	resolver := NewResolver(store, nil, 0.7)

	ctx := context.Background()
	resolver.Resolve(ctx, "u1", []Candidate{
		{Category: CategoryInterests, Subject: "pet", Value: "dog", Confidence: 0.8},
	})
	resolutions := resolver.Resolve(ctx, "u1", []Candidate{
		{Category: CategoryInterests, Subject: "pet", Value: "cat", Confidence: 0.9},
	})

	if resolutions[0].Outcome != OutcomeOverwritten {
		t.Fatalf("处理结果 = %v, 期望覆盖", resolutions[0].Outcome)
	}

	item, _ := store.GetItem("u1", CategoryInterests, "pet")
	if item.Value != "cat" {
		t.Errorf("覆盖后记忆值 = %q, 期望 cat", item.Value)
	}
	if item.Version != 2 {
		t.Errorf("覆盖后版本号 = %d, 期望 2", item.Version)
	}
	if item.Confidence != 0.9 {
		t.Errorf("覆盖后置信度 = %v, 期望 0.9", item.Confidence)
	}
}

func TestResolve_ConflictBelowThreshold(t *testing.T) {
	store := newTestStore(t)
	resolver := NewResolver(store, nil, 0.7)

	ctx := context.Background()
	resolver.Resolve(ctx, "u1", []Candidate{
		{Category: CategoryInterests, Subject: "pet", Value: "dog", Confidence: 0.8},
	})
	resolutions := resolver.Resolve(ctx, "u1", []Candidate{
		{Category: CategoryInterests, Subject: "pet", Value: "cat", Confidence: 0.6},
	})

	if resolutions[0].Outcome != OutcomeConflictPending {
		t.Fatalf("处理结果 = %v, 期望记录矛盾", resolutions[0].Outcome)
	}

	// 旧值保持不变
	item, _ := store.GetItem("u1", CategoryInterests, "pet")
	if item.Value != "dog" {
		t.Errorf("低置信度候选不应覆盖旧值, 当前值 = %q", item.Value)
	}
	if item.Version != 1 {
		t.Errorf("低置信度候选不应增加版本号, 版本 = %d", item.Version)
	}

	// 矛盾被记录而非丢弃
	conflicts, err := store.ListConflicts("u1")
	if err != nil {
		t.Fatalf("查询矛盾失败: %v", err)
	}
	if len(conflicts) != 1 {
		t.Fatalf("期望 1 条未决矛盾, 得到 %d", len(conflicts))
	}
	if conflicts[0].ExistingValue != "dog" || conflicts[0].ProposedValue != "cat" {
		t.Errorf("矛盾内容 = %q -> %q, 期望 dog -> cat",
			conflicts[0].ExistingValue, conflicts[0].ProposedValue)
	}
}

func TestResolve_EmbeddingFailureDegrades(t *testing.T) {
	store := newTestStore(t)
	resolver := NewResolver(store, &fakeEmbedder{fail: true}, 0.7)

	resolutions := resolver.Resolve(context.Background(), "u1", []Candidate{
		{Category: CategoryGoals, Subject: "exercise", Value: "run daily", Confidence: 0.8},
	})

	if len(resolutions) != 1 || resolutions[0].Outcome != OutcomeInserted {
		t.Fatalf("向量失败不应阻止记忆写入, 结果: %+v", resolutions)
	}

	item, _ := store.GetItem("u1", CategoryGoals, "exercise")
	if len(item.Embedding) != 0 {
		t.Errorf("向量失败时记忆不应带向量")
	}
}

func TestStore_GetItemNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetItem("nobody", CategoryGoals, "none")
	if !errors.Is(err, ErrItemNotFound) {
		t.Errorf("错误 = %v, 期望 ErrItemNotFound", err)
	}
}
