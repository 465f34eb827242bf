package memory

import (
	"context"
	"testing"
	"time"
)

func TestScoreItem_MonotonicInOverlap(t *testing.T) {
	now := time.Now()

	item := &Item{
		Category:     CategoryInterests,
		Value:        "running in the park",
		MentionCount: 1,
		LastUpdated:  now,
	}

	// 关键词重合度更高的查询得分不应更低
	lowOverlap := scoreItem(item, nil, []string{"running", "music"}, now)
	highOverlap := scoreItem(item, nil, []string{"running", "park"}, now)

	if highOverlap < lowOverlap {
		t.Errorf("关键词重合度提高后得分下降: %v -> %v", lowOverlap, highOverlap)
	}
}

func TestScoreItem_MonotonicInCosine(t *testing.T) {
	now := time.Now()

	near := &Item{
		Category:     CategoryInterests,
		Value:        "swimming",
		Embedding:    []float32{1, 0},
		MentionCount: 1,
		LastUpdated:  now,
	}
	far := &Item{
		Category:     CategoryInterests,
		Value:        "swimming",
		Embedding:    []float32{0, 1},
		MentionCount: 1,
		LastUpdated:  now,
	}

	query := []float32{1, 0}
	nearScore := scoreItem(near, query, nil, now)
	farScore := scoreItem(far, query, nil, now)

	if nearScore <= farScore {
		t.Errorf("向量更相似的记忆得分应更高: near=%v far=%v", nearScore, farScore)
	}
}

func TestScoreItem_AgePenaltyForVolatile(t *testing.T) {
	now := time.Now()

	fresh := &Item{
		Category:     CategoryInterests,
		Value:        "running",
		MentionCount: 1,
		LastUpdated:  now,
	}
	old := &Item{
		Category:     CategoryInterests,
		Value:        "running",
		MentionCount: 1,
		LastUpdated:  now.AddDate(0, -2, 0),
	}

	keywords := []string{"running"}
	freshScore := scoreItem(fresh, nil, keywords, now)
	oldScore := scoreItem(old, nil, keywords, now)

	if oldScore >= freshScore {
		t.Errorf("易变分类的旧记忆得分应低于新记忆: old=%v fresh=%v", oldScore, freshScore)
	}
}

func TestTemporalDecay(t *testing.T) {
	tests := []struct {
		name     string
		ageDays  float64
		category Category
		min, max float64
	}{
		{"事实类新记忆", 0, CategoryPersonalInfo, 0.99, 1.01},
		{"事实类半年后仍然接近下限之上", 180, CategoryPersonalInfo, 0.85, 0.95},
		{"易变类新记忆", 0, CategoryInterests, 0.99, 1.01},
		{"易变类一个半衰期", 14, CategoryInterests, 0.55, 0.65},
		{"易变类长期不低于下限", 365, CategoryGoals, 0.2, 0.21},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			age := time.Duration(tt.ageDays * 24 * float64(time.Hour))
			got := temporalDecay(age, tt.category)
			if got < tt.min || got > tt.max {
				t.Errorf("temporalDecay(%v天, %s) = %v, 期望在 [%v, %v]",
					tt.ageDays, tt.category, got, tt.min, tt.max)
			}
		})
	}
}

func TestTemporalDecay_NeverBelowFloor(t *testing.T) {
	for _, category := range Categories {
		profile := DecayProfileFor(category)
		decay := temporalDecay(10*365*24*time.Hour, category)
		if decay < profile.Floor {
			t.Errorf("%s 衰减 %v 低于下限 %v", category, decay, profile.Floor)
		}
	}
}

func TestSearch_CapAndOrdering(t *testing.T) {
	store := newTestStore(t)
	retriever := NewRetriever(store, nil, 5)

	now := time.Now()
	values := []string{
		"running every morning",
		"running with my dog",
		"cooking pasta",
		"reading novels",
		"playing guitar",
		"gardening on weekends",
	}
	for i, value := range values {
		item := &Item{
			UserID:       "u1",
			Category:     CategoryInterests,
			Subject:      value[:7] + "_" + string(rune('a'+i)),
			Value:        value,
			Confidence:   0.8,
			MentionCount: 1,
			LastUpdated:  now,
			CreatedAt:    now,
		}
		if err := store.InsertItem(item); err != nil {
			t.Fatalf("插入测试记忆失败: %v", err)
		}
	}

	results, err := retriever.Search(context.Background(), "u1", "I went running today", "en")
	if err != nil {
		t.Fatalf("检索失败: %v", err)
	}

	// 6 条记忆，结果截断到 5 条
	if len(results) != 5 {
		t.Fatalf("结果数 = %d, 期望 5", len(results))
	}

	// 按得分降序
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("结果未按得分降序: [%d]=%v > [%d]=%v",
				i, results[i].Score, i-1, results[i-1].Score)
		}
	}

	// 关键词命中的记忆排在前面
	if results[0].Item.Value != "running every morning" && results[0].Item.Value != "running with my dog" {
		t.Errorf("首位结果 = %q, 期望包含 running 的记忆", results[0].Item.Value)
	}
}

func TestSearch_EmptyMemorySet(t *testing.T) {
	store := newTestStore(t)
	retriever := NewRetriever(store, nil, 5)

	results, err := retriever.Search(context.Background(), "nobody", "anything", "en")
	if err != nil {
		t.Fatalf("空记忆集检索不应报错: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("空记忆集应返回空列表, 得到 %d 条", len(results))
	}
}

func TestSearch_EmbedderFailureDegrades(t *testing.T) {
	store := newTestStore(t)
	retriever := NewRetriever(store, &fakeEmbedder{fail: true}, 5)

	now := time.Now()
	if err := store.InsertItem(&Item{
		UserID:       "u1",
		Category:     CategoryInterests,
		Subject:      "swimming",
		Value:        "swimming at the pool",
		Confidence:   0.8,
		MentionCount: 1,
		LastUpdated:  now,
		CreatedAt:    now,
	}); err != nil {
		t.Fatalf("插入测试记忆失败: %v", err)
	}

	results, err := retriever.Search(context.Background(), "u1", "swimming lessons", "en")
	if err != nil {
		t.Fatalf("向量服务失败时检索不应报错: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("降级检索应返回关键词命中结果, 得到 %d 条", len(results))
	}
}

func TestExtractKeywords(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		language string
		want     []string
	}{
		{
			name:     "英文过滤停用词",
			text:     "I was feeling anxious about work today",
			language: "en",
			want:     []string{"anxious", "work"},
		},
		{
			name:     "中文二字滑窗",
			text:     "工作压力",
			language: "zh",
			want:     []string{"工作", "作压", "压力"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractKeywords(tt.text, tt.language)
			if len(got) != len(tt.want) {
				t.Fatalf("关键词 = %v, 期望 %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("关键词[%d] = %q, 期望 %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"相同向量", []float32{1, 2, 3}, []float32{1, 2, 3}, 1.0},
		{"正交向量", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"反向向量", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"维度不一致", []float32{1, 0}, []float32{1, 0, 0}, 0.0},
		{"零向量", []float32{0, 0}, []float32{1, 1}, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if diff := got - tt.want; diff > 1e-6 || diff < -1e-6 {
				t.Errorf("CosineSimilarity = %v, 期望 %v", got, tt.want)
			}
		})
	}
}

func TestVectorBlobRoundTrip(t *testing.T) {
	vec := []float32{0.5, -1.25, 3.75, 0}
	blob := vectorToBlob(vec)
	got := blobToVector(blob)

	if len(got) != len(vec) {
		t.Fatalf("往返后长度 = %d, 期望 %d", len(got), len(vec))
	}
	for i := range vec {
		if got[i] != vec[i] {
			t.Errorf("往返后 [%d] = %v, 期望 %v", i, got[i], vec[i])
		}
	}

	if vectorToBlob(nil) != nil {
		t.Error("空向量应编码为 nil")
	}
	if blobToVector([]byte{1, 2, 3}) != nil { // 长度不是 4 的倍数
		t.Error("非法 BLOB 应解码为 nil")
	}
}
