package memory

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/hession/daymate/internal/logger"
)

// Retriever 混合检索器
// 综合向量相似度、关键词重合度、时间衰减与提及频次对记忆排序。
// 评分公式：
//
//	base  = 0.6*cosine + 0.4*keyword_overlap
//	score = base * decay(age, category) + 0.3 * log(1 + mention_count)
//
// 结果截断到固定上限，控制提示词长度
type Retriever struct {
	store    Store
	embedder Embedder
	limit    int
}

// 评分权重
const (
	cosineWeight    = 0.6
	keywordWeight   = 0.4
	frequencyWeight = 0.3
)

// DefaultRetrievalLimit 默认检索结果上限
const DefaultRetrievalLimit = 5

// NewRetriever 创建混合检索器
// embedder 可为 nil，此时退化为关键词 + 时间衰减检索
func NewRetriever(store Store, embedder Embedder, limit int) *Retriever {
	if limit <= 0 {
		limit = DefaultRetrievalLimit
	}
	return &Retriever{
		store:    store,
		embedder: embedder,
		limit:    limit,
	}
}

// Search 检索与查询文本最相关的记忆
// 用户没有任何记忆时返回空列表，不报错；向量服务失败时降级继续
func (r *Retriever) Search(ctx context.Context, userID, query, language string) ([]SearchResult, error) {
	items, err := r.store.ListActive(userID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}

	var queryVec []float32
	if r.embedder != nil {
		queryVec, err = r.embedder.Embed(ctx, query)
		if err != nil {
			logger.Warn("查询向量生成失败，降级为关键词检索: %v", err)
			queryVec = nil
		}
	}

	keywords := ExtractKeywords(query, language)
	now := time.Now()

	results := make([]SearchResult, 0, len(items))
	for _, item := range items {
		score := scoreItem(item, queryVec, keywords, now)
		results = append(results, SearchResult{Item: item, Score: score})
	}

	// 按分数降序，分数相同时更新时间晚者优先
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Item.LastUpdated.After(results[j].Item.LastUpdated)
	})

	if len(results) > r.limit {
		results = results[:r.limit]
	}

	return results, nil
}

// scoreItem 计算单条记忆的混合得分
func scoreItem(item *Item, queryVec []float32, keywords []string, now time.Time) float64 {
	cosine := 0.0
	if len(queryVec) > 0 && len(item.Embedding) > 0 {
		cosine = CosineSimilarity(queryVec, item.Embedding)
		if cosine < 0 {
			cosine = 0
		}
	}

	overlap := keywordOverlap(keywords, item.Value)

	base := cosineWeight*cosine + keywordWeight*overlap
	decay := temporalDecay(now.Sub(item.LastUpdated), item.Category)
	boost := math.Log(1 + float64(item.MentionCount))

	return base*decay + frequencyWeight*boost
}

// keywordOverlap 计算查询关键词与记忆值的重合比例 [0,1]
func keywordOverlap(keywords []string, value string) float64 {
	if len(keywords) == 0 {
		return 0
	}
	lower := strings.ToLower(value)
	hits := 0
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			hits++
		}
	}
	return float64(hits) / float64(len(keywords))
}

// temporalDecay 计算时间衰减因子
// 指数半衰期衰减，但不低于分类下限：旧记忆被降权而非排除
func temporalDecay(age time.Duration, category Category) float64 {
	profile := DecayProfileFor(category)
	ageDays := age.Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}

	decay := math.Pow(0.5, ageDays/profile.HalfLifeDays)
	value := profile.Floor + (1-profile.Floor)*decay
	if value < profile.Floor {
		return profile.Floor
	}
	return value
}

// wordPattern 匹配英文单词或连续汉字段
var wordPattern = regexp.MustCompile(`[a-z]+|\p{Han}+`)

// ExtractKeywords 从查询文本中提取关键词
// 英文按单词切分并过滤停用词；中文按连续汉字段切分后取二字滑窗
func ExtractKeywords(text, language string) []string {
	lower := strings.ToLower(text)
	tokens := wordPattern.FindAllString(lower, -1)

	seen := make(map[string]bool)
	var keywords []string

	add := func(token string) {
		if len(token) == 0 || seen[token] {
			return
		}
		seen[token] = true
		keywords = append(keywords, token)
	}

	for _, token := range tokens {
		if isHan(token) {
			runes := []rune(token)
			if len(runes) <= 2 {
				if !zhStopwords[token] {
					add(token)
				}
				continue
			}
			for i := 0; i+2 <= len(runes); i++ {
				gram := string(runes[i : i+2])
				if !zhStopwords[gram] {
					add(gram)
				}
			}
			continue
		}
		if len(token) < 3 || enStopwords[token] {
			continue
		}
		add(token)
	}

	return keywords
}

func isHan(s string) bool {
	for _, r := range s {
		if r < 0x4E00 || r > 0x9FFF {
			return false
		}
	}
	return len(s) > 0
}

// enStopwords 英文停用词表
var enStopwords = map[string]bool{
	"the": true, "and": true, "but": true, "for": true, "was": true,
	"are": true, "you": true, "not": true, "with": true, "this": true,
	"that": true, "have": true, "had": true, "about": true, "today": true,
	"really": true, "very": true, "just": true, "feel": true, "feeling": true,
	"felt": true, "get": true, "got": true, "been": true, "were": true,
	"its": true, "because": true, "some": true, "what": true, "when": true,
}

// zhStopwords 中文停用词表（常见功能词的二字组合）
var zhStopwords = map[string]bool{
	"今天": true, "我的": true, "我们": true, "感觉": true, "觉得": true,
	"因为": true, "所以": true, "但是": true, "然后": true, "一个": true,
	"有点": true, "非常": true, "真的": true, "什么": true, "这个": true,
	"那个": true, "还是": true, "就是": true, "可以": true, "没有": true,
}
