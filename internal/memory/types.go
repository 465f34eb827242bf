// Package memory 提供长期记忆的抽取、存储、矛盾消解与混合检索
package memory

import (
	"time"
)

// Category 记忆分类
// 六个固定分类，决定记忆的时间衰减策略
type Category string

const (
	// CategoryPersonalInfo 个人信息 - 姓名、年龄、职业、居住地
	CategoryPersonalInfo Category = "personal_info"
	// CategoryRelationships 人际关系 - 家人、朋友、宠物
	CategoryRelationships Category = "relationships"
	// CategoryInterests 兴趣爱好
	CategoryInterests Category = "interests"
	// CategoryChallenges 挑战困难
	CategoryChallenges Category = "challenges"
	// CategoryGoals 目标计划
	CategoryGoals Category = "goals"
	// CategoryPreferences 偏好习惯
	CategoryPreferences Category = "preferences"
)

// Categories 全部分类（固定顺序，抽取时按此顺序匹配）
var Categories = []Category{
	CategoryPersonalInfo,
	CategoryRelationships,
	CategoryInterests,
	CategoryChallenges,
	CategoryGoals,
	CategoryPreferences,
}

// Valid 检查分类是否合法
func (c Category) Valid() bool {
	switch c {
	case CategoryPersonalInfo, CategoryRelationships, CategoryInterests,
		CategoryChallenges, CategoryGoals, CategoryPreferences:
		return true
	}
	return false
}

// DisplayName 返回分类的显示名称
func (c Category) DisplayName(language string) string {
	if language == "zh" {
		switch c {
		case CategoryPersonalInfo:
			return "个人信息"
		case CategoryRelationships:
			return "人际关系"
		case CategoryInterests:
			return "兴趣爱好"
		case CategoryChallenges:
			return "挑战困难"
		case CategoryGoals:
			return "目标计划"
		case CategoryPreferences:
			return "偏好习惯"
		}
	}
	switch c {
	case CategoryPersonalInfo:
		return "Personal Information"
	case CategoryRelationships:
		return "Relationships"
	case CategoryInterests:
		return "Interests"
	case CategoryChallenges:
		return "Challenges"
	case CategoryGoals:
		return "Goals"
	case CategoryPreferences:
		return "Preferences"
	}
	return string(c)
}

// DecayProfile 时间衰减参数
// 事实类记忆（个人信息、人际关系）衰减缓慢且下限高；
// 易变类记忆衰减较快，但有下限，避免旧记忆被完全排除
type DecayProfile struct {
	HalfLifeDays float64 // 半衰期（天）
	Floor        float64 // 衰减下限
}

// decayProfiles 各分类的衰减参数查找表
var decayProfiles = map[Category]DecayProfile{
	CategoryPersonalInfo:  {HalfLifeDays: 180, Floor: 0.85},
	CategoryRelationships: {HalfLifeDays: 180, Floor: 0.85},
	CategoryInterests:     {HalfLifeDays: 14, Floor: 0.2},
	CategoryChallenges:    {HalfLifeDays: 14, Floor: 0.2},
	CategoryGoals:         {HalfLifeDays: 14, Floor: 0.2},
	CategoryPreferences:   {HalfLifeDays: 14, Floor: 0.2},
}

// DecayProfileFor 返回分类对应的衰减参数
func DecayProfileFor(c Category) DecayProfile {
	if p, ok := decayProfiles[c]; ok {
		return p
	}
	return DecayProfile{HalfLifeDays: 14, Floor: 0.2}
}

// IsFactual 判断分类是否属于事实类（近乎不随时间衰减）
func (c Category) IsFactual() bool {
	return c == CategoryPersonalInfo || c == CategoryRelationships
}

// Item 一条长期记忆
// 唯一性约束：每个 (user, category, subject) 至多一条活跃记忆
type Item struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Category     Category  `json:"category"`
	Subject      string    `json:"subject"` // 归一化的主题键，分类内去重用
	Value        string    `json:"value"`
	Confidence   float64   `json:"confidence"`    // 0-1
	MentionCount int       `json:"mention_count"` // 被强化的次数，单调不减
	Version      int       `json:"version"`       // 值被改写的次数 + 1
	Embedding    []float32 `json:"-"`
	Active       bool      `json:"active"`
	Sensitive    bool      `json:"sensitive"`
	CreatedAt    time.Time `json:"created_at"`
	LastUpdated  time.Time `json:"last_updated"`
}

// Candidate 抽取器产出的候选记忆
type Candidate struct {
	Category   Category `json:"category"`
	Subject    string   `json:"subject"`
	Value      string   `json:"value"`
	Confidence float64  `json:"confidence"`
}

// PendingConflict 低置信度矛盾
// 候选与现有记忆冲突但置信度不足以改写时记录，等待用户澄清
type PendingConflict struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Category      Category  `json:"category"`
	Subject       string    `json:"subject"`
	ExistingValue string    `json:"existing_value"`
	ProposedValue string    `json:"proposed_value"`
	Confidence    float64   `json:"confidence"`
	CreatedAt     time.Time `json:"created_at"`
}

// SearchResult 检索结果
type SearchResult struct {
	Item  *Item   `json:"item"`
	Score float64 `json:"score"`
}

// Stats 记忆统计信息
type Stats struct {
	Total          int              `json:"total"`
	ByCategory     map[Category]int `json:"by_category"`
	HighConfidence int              `json:"high_confidence"` // confidence >= 0.8
	RecentCount    int              `json:"recent_count"`    // 最近 7 天更新
}

// ResolveOutcome 矛盾消解的处置方式
type ResolveOutcome string

const (
	// OutcomeInserted 新主题，直接插入
	OutcomeInserted ResolveOutcome = "inserted"
	// OutcomeReinforced 同值强化，mention_count 递增
	OutcomeReinforced ResolveOutcome = "reinforced"
	// OutcomeOverwritten 高置信度改写，版本号递增
	OutcomeOverwritten ResolveOutcome = "overwritten"
	// OutcomeConflictPending 低置信度矛盾，挂起待澄清
	OutcomeConflictPending ResolveOutcome = "conflict_pending"
)

// Resolution 单个候选的消解结果
type Resolution struct {
	Candidate Candidate      `json:"candidate"`
	Outcome   ResolveOutcome `json:"outcome"`
	Item      *Item          `json:"item,omitempty"`
}
