package memory

import (
	"context"
	"strings"
	"time"

	"github.com/hession/daymate/internal/logger"
)

// Resolver 将候选记忆合并进存储，处理新旧事实的矛盾
// 合并策略：
//   - 不存在同主题记忆 → 插入
//   - 值相同 → 强化（mention_count+1，置信度小幅提升）
//   - 值不同且候选置信度达到覆盖阈值 → 覆盖（版本号+1，最新陈述生效）
//   - 值不同且置信度不足 → 记录为未决矛盾，既不丢弃也不应用
type Resolver struct {
	store     Store
	embedder  Embedder
	threshold float64
}

// reinforceStep 同值强化时置信度的增量
const reinforceStep = 0.1

// NewResolver 创建矛盾消解器
// threshold 为覆盖阈值，embedder 可为 nil（新记忆不带向量）
func NewResolver(store Store, embedder Embedder, threshold float64) *Resolver {
	return &Resolver{
		store:     store,
		embedder:  embedder,
		threshold: threshold,
	}
}

// Resolve 将一批候选记忆合并进用户的记忆集
// 逐条处理，单条失败不中断其余候选
func (r *Resolver) Resolve(ctx context.Context, userID string, candidates []Candidate) []Resolution {
	var resolutions []Resolution

	for _, candidate := range candidates {
		resolution, err := r.resolveOne(ctx, userID, candidate)
		if err != nil {
			logger.Warn("合并候选记忆失败 [%s/%s]: %v", candidate.Category, candidate.Subject, err)
			continue
		}
		resolutions = append(resolutions, *resolution)
	}

	return resolutions
}

func (r *Resolver) resolveOne(ctx context.Context, userID string, candidate Candidate) (*Resolution, error) {
	existing, err := r.store.GetItem(userID, candidate.Category, candidate.Subject)
	if err != nil && err != ErrItemNotFound {
		return nil, err
	}

	// 无同主题记忆，直接插入
	if existing == nil {
		item := &Item{
			UserID:     userID,
			Category:   candidate.Category,
			Subject:    candidate.Subject,
			Value:      candidate.Value,
			Confidence: candidate.Confidence,
			Embedding:  r.embed(ctx, candidate.Value),
		}
		if err := r.store.InsertItem(item); err != nil {
			return nil, err
		}
		return &Resolution{Candidate: candidate, Outcome: OutcomeInserted, Item: item}, nil
	}

	// 值相同，强化
	if sameValue(existing.Value, candidate.Value) {
		existing.MentionCount++
		existing.Confidence = existing.Confidence + reinforceStep
		if existing.Confidence > 1.0 {
			existing.Confidence = 1.0
		}
		existing.LastUpdated = time.Now()
		if err := r.store.UpdateItem(existing); err != nil {
			return nil, err
		}
		return &Resolution{Candidate: candidate, Outcome: OutcomeReinforced, Item: existing}, nil
	}

	// 值不同且置信度达标，覆盖旧值
	if candidate.Confidence >= r.threshold {
		existing.Value = candidate.Value
		existing.Confidence = candidate.Confidence
		existing.Version++
		existing.MentionCount++
		existing.Embedding = r.embed(ctx, candidate.Value)
		existing.LastUpdated = time.Now()
		if err := r.store.UpdateItem(existing); err != nil {
			return nil, err
		}
		return &Resolution{Candidate: candidate, Outcome: OutcomeOverwritten, Item: existing}, nil
	}

	// 置信度不足，记录矛盾待确认
	conflict := &PendingConflict{
		UserID:        userID,
		Category:      candidate.Category,
		Subject:       candidate.Subject,
		ExistingValue: existing.Value,
		ProposedValue: candidate.Value,
		Confidence:    candidate.Confidence,
	}
	if err := r.store.RecordConflict(conflict); err != nil {
		return nil, err
	}
	return &Resolution{Candidate: candidate, Outcome: OutcomeConflictPending, Item: existing}, nil
}

// embed 为记忆值生成向量，失败时返回 nil（记忆退化为纯关键词检索）
func (r *Resolver) embed(ctx context.Context, text string) []float32 {
	if r.embedder == nil {
		return nil
	}
	vec, err := r.embedder.Embed(ctx, text)
	if err != nil {
		logger.Debug("记忆向量生成失败，降级为关键词检索: %v", err)
		return nil
	}
	return vec
}

// sameValue 判断两个记忆值是否等价（忽略大小写与首尾空白）
func sameValue(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
