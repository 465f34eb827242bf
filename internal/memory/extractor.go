package memory

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Extractor 从单条用户消息中抽取候选记忆
// 每个分类维护一组按特异性排序的规则：精确正则 > 情绪指向 > 关键词匹配。
// 单轮消息中每个分类最多命中一条规则（首个匹配生效）
type Extractor struct {
	rules map[string]map[Category][]extractRule
}

// extractRule 单条抽取规则
// subjectGroup/valueGroup 为 0 时使用固定的 subject/value
type extractRule struct {
	pattern      *regexp.Regexp
	confidence   float64
	subject      string // 固定主题键（subjectGroup 为 0 时生效）
	subjectGroup int    // 主题键来自第几个捕获组
	valueGroup   int    // 值来自第几个捕获组
}

// minExtractLength 低于此长度的消息不做抽取（英文按字节，中文同样适用）
const minExtractLength = 10

// NewExtractor 创建抽取器
func NewExtractor() *Extractor {
	return &Extractor{
		rules: map[string]map[Category][]extractRule{
			"en": englishRules(),
			"zh": chineseRules(),
		},
	}
}

// Extract 从消息中抽取候选记忆
// 消息过短时返回空列表；未命中任何规则也返回空列表，不报错
func (e *Extractor) Extract(text, language string) []Candidate {
	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) == 0 || len(trimmed) < minExtractLength {
		return nil
	}

	ruleSet, ok := e.rules[language]
	if !ok {
		ruleSet = e.rules["en"]
	}

	lower := strings.ToLower(trimmed)
	var candidates []Candidate

	for _, category := range Categories {
		for _, rule := range ruleSet[category] {
			match := rule.pattern.FindStringSubmatch(lower)
			if match == nil {
				continue
			}

			subject := rule.subject
			if rule.subjectGroup > 0 && rule.subjectGroup < len(match) {
				subject = match[rule.subjectGroup]
			}
			value := match[0]
			if rule.valueGroup > 0 && rule.valueGroup < len(match) {
				value = match[rule.valueGroup]
			}

			subject = normalizeSubject(subject)
			value = strings.TrimSpace(value)
			if subject == "" || value == "" {
				break
			}

			candidates = append(candidates, Candidate{
				Category:   category,
				Subject:    subject,
				Value:      value,
				Confidence: rule.confidence,
			})
			break // 同一分类首个匹配生效
		}
	}

	return candidates
}

// normalizeSubject 归一化主题键：小写、去首尾空白、空格转下划线
func normalizeSubject(subject string) string {
	subject = strings.ToLower(strings.TrimSpace(subject))
	subject = strings.Trim(subject, ".,!?;:，。！？、")
	return strings.ReplaceAll(subject, " ", "_")
}

// englishRules 英文抽取规则
// 每个分类内按置信度降序排列：0.8 精确正则、0.7 情绪指向、0.6 关键词
func englishRules() map[Category][]extractRule {
	return map[Category][]extractRule{
		CategoryPersonalInfo: {
			{pattern: regexp.MustCompile(`my name is (\w+)`), confidence: 0.8, subject: "name", valueGroup: 1},
			{pattern: regexp.MustCompile(`i am (\d+) years old`), confidence: 0.8, subject: "age", valueGroup: 1},
			{pattern: regexp.MustCompile(`i live in ([^.,!?]+)`), confidence: 0.8, subject: "location", valueGroup: 1},
			{pattern: regexp.MustCompile(`i work as an? ([^.,!?]+)`), confidence: 0.8, subject: "job", valueGroup: 1},
			{pattern: regexp.MustCompile(`my job is ([^.,!?]+)`), confidence: 0.8, subject: "job", valueGroup: 1},
			{pattern: regexp.MustCompile(`i study ([^.,!?]+)`), confidence: 0.8, subject: "study", valueGroup: 1},
			{pattern: regexp.MustCompile(`i(?:'m| am) from ([^.,!?]+)`), confidence: 0.8, subject: "hometown", valueGroup: 1},
		},
		CategoryRelationships: {
			{pattern: regexp.MustCompile(`my (wife|husband|partner|boyfriend|girlfriend|mom|dad|mother|father|sister|brother|friend)(?:'s name)? is (\w+)`), confidence: 0.8, subjectGroup: 1, valueGroup: 2},
			{pattern: regexp.MustCompile(`i have a (\w+) named (\w+)`), confidence: 0.8, subjectGroup: 1, valueGroup: 2},
			{pattern: regexp.MustCompile(`my pet ([^.,!?]+)`), confidence: 0.7, subject: "pet", valueGroup: 1},
			{pattern: keywordSentence(`wife|husband|partner|boyfriend|girlfriend|mom|dad|mother|father|friend|colleague`), confidence: 0.6, subjectGroup: 2, valueGroup: 1},
		},
		CategoryInterests: {
			{pattern: regexp.MustCompile(`my passion is ([^.,!?]+)`), confidence: 0.8, subject: "passion", valueGroup: 1},
			{pattern: regexp.MustCompile(`i(?:'m| am) passionate about ([^.,!?]+)`), confidence: 0.8, subject: "passion", valueGroup: 1},
			{pattern: regexp.MustCompile(`my pet is a (\w+)`), confidence: 0.8, subject: "pet", valueGroup: 1},
			{pattern: regexp.MustCompile(`i (?:love|enjoy) ([^.,!?]+)`), confidence: 0.7, subjectGroup: 1, valueGroup: 1},
			{pattern: keywordSentence(`hobby|play|watch|read|listen`), confidence: 0.6, subjectGroup: 2, valueGroup: 1},
		},
		CategoryChallenges: {
			{pattern: regexp.MustCompile(`i struggle with ([^.,!?]+)`), confidence: 0.8, subjectGroup: 1, valueGroup: 1},
			{pattern: regexp.MustCompile(`i(?:'m| am) having trouble (?:with )?([^.,!?]+)`), confidence: 0.8, subjectGroup: 1, valueGroup: 1},
			{pattern: regexp.MustCompile(`(anxious|stressed|worried|nervous|overwhelmed|frustrated) about ([^.,!?]+)`), confidence: 0.7, subjectGroup: 2, valueGroup: 1},
			{pattern: regexp.MustCompile(`i worry about ([^.,!?]+)`), confidence: 0.7, subjectGroup: 1, valueGroup: 1},
			{pattern: keywordSentence(`struggle|difficult|anxiety|depression|problem`), confidence: 0.6, subjectGroup: 2, valueGroup: 1},
		},
		CategoryGoals: {
			{pattern: regexp.MustCompile(`my goal is (?:to )?([^.,!?]+)`), confidence: 0.8, subjectGroup: 1, valueGroup: 1},
			{pattern: regexp.MustCompile(`i plan to ([^.,!?]+)`), confidence: 0.8, subjectGroup: 1, valueGroup: 1},
			{pattern: regexp.MustCompile(`i(?:'m| am) trying to ([^.,!?]+)`), confidence: 0.7, subjectGroup: 1, valueGroup: 1},
			{pattern: regexp.MustCompile(`i (?:want|hope) to ([^.,!?]+)`), confidence: 0.7, subjectGroup: 1, valueGroup: 1},
			{pattern: keywordSentence(`goal|dream|aspire`), confidence: 0.6, subjectGroup: 2, valueGroup: 1},
		},
		CategoryPreferences: {
			{pattern: regexp.MustCompile(`i prefer ([^.,!?]+)`), confidence: 0.8, subjectGroup: 1, valueGroup: 1},
			{pattern: regexp.MustCompile(`i (?:always|never|usually|typically) ([^.,!?]+)`), confidence: 0.7, subjectGroup: 1, valueGroup: 1},
			{pattern: keywordSentence(`favorite|routine|vegetarian|vegan`), confidence: 0.6, subjectGroup: 2, valueGroup: 1},
		},
	}
}

// chineseRules 中文抽取规则
func chineseRules() map[Category][]extractRule {
	return map[Category][]extractRule{
		CategoryPersonalInfo: {
			{pattern: regexp.MustCompile(`我叫([\p{Han}\w]+)`), confidence: 0.8, subject: "name", valueGroup: 1},
			{pattern: regexp.MustCompile(`我今年(\d+)岁`), confidence: 0.8, subject: "age", valueGroup: 1},
			{pattern: regexp.MustCompile(`我住在([\p{Han}\w]+)`), confidence: 0.8, subject: "location", valueGroup: 1},
			{pattern: regexp.MustCompile(`我是一名([\p{Han}\w]+)`), confidence: 0.8, subject: "job", valueGroup: 1},
			{pattern: regexp.MustCompile(`我的工作是([\p{Han}\w]+)`), confidence: 0.8, subject: "job", valueGroup: 1},
			{pattern: regexp.MustCompile(`我来自([\p{Han}\w]+)`), confidence: 0.8, subject: "hometown", valueGroup: 1},
		},
		CategoryRelationships: {
			{pattern: regexp.MustCompile(`我的(妻子|丈夫|男朋友|女朋友|妈妈|爸爸|姐姐|妹妹|哥哥|弟弟|朋友)叫([\p{Han}\w]+)`), confidence: 0.8, subjectGroup: 1, valueGroup: 2},
			{pattern: regexp.MustCompile(`我养了一只([\p{Han}\w]+)`), confidence: 0.8, subject: "pet", valueGroup: 1},
			{pattern: regexp.MustCompile(`(妻子|丈夫|男朋友|女朋友|妈妈|爸爸|朋友|同事)`), confidence: 0.6, subjectGroup: 1, valueGroup: 0},
		},
		CategoryInterests: {
			{pattern: regexp.MustCompile(`我的爱好是([\p{Han}\w]+)`), confidence: 0.8, subject: "hobby", valueGroup: 1},
			{pattern: regexp.MustCompile(`我的宠物是([\p{Han}\w]+)`), confidence: 0.8, subject: "pet", valueGroup: 1},
			{pattern: regexp.MustCompile(`我(?:喜欢|爱好|热爱)([\p{Han}\w]+)`), confidence: 0.7, subjectGroup: 1, valueGroup: 1},
		},
		CategoryChallenges: {
			{pattern: regexp.MustCompile(`我在([\p{Han}\w]+)上遇到困难`), confidence: 0.8, subjectGroup: 1, valueGroup: 1},
			{pattern: regexp.MustCompile(`(?:为|因为)([\p{Han}\w]+)(?:感到)?(焦虑|紧张|担心|烦恼|压力很大)`), confidence: 0.7, subjectGroup: 1, valueGroup: 2},
			{pattern: regexp.MustCompile(`我担心([\p{Han}\w]+)`), confidence: 0.7, subjectGroup: 1, valueGroup: 1},
			{pattern: regexp.MustCompile(`(压力|焦虑|困难|烦恼|问题)`), confidence: 0.6, subjectGroup: 1, valueGroup: 0},
		},
		CategoryGoals: {
			{pattern: regexp.MustCompile(`我的目标是([\p{Han}\w]+)`), confidence: 0.8, subjectGroup: 1, valueGroup: 1},
			{pattern: regexp.MustCompile(`我打算([\p{Han}\w]+)`), confidence: 0.8, subjectGroup: 1, valueGroup: 1},
			{pattern: regexp.MustCompile(`我(?:想要|希望|计划)([\p{Han}\w]+)`), confidence: 0.7, subjectGroup: 1, valueGroup: 1},
		},
		CategoryPreferences: {
			{pattern: regexp.MustCompile(`我更喜欢([\p{Han}\w]+)`), confidence: 0.8, subjectGroup: 1, valueGroup: 1},
			{pattern: regexp.MustCompile(`我(?:总是|通常|从不|习惯)([\p{Han}\w]+)`), confidence: 0.7, subjectGroup: 1, valueGroup: 1},
		},
	}
}

// keywordSentence 构造关键词级规则：匹配包含关键词的整句
// 第 1 组为整句，第 2 组为命中的关键词
func keywordSentence(keywords string) *regexp.Regexp {
	return regexp.MustCompile(`([^.!?。！？]*\b(` + keywords + `)\b[^.!?。！？]*)`)
}
