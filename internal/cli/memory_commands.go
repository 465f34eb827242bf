package cli

import (
	"fmt"
	"strings"

	"github.com/hession/daymate/internal/memory"
)

// MemoryCommands 记忆相关的 REPL 命令处理
type MemoryCommands struct {
	store    memory.Store
	userID   string
	language string
}

// NewMemoryCommands 创建记忆命令处理器
func NewMemoryCommands(store memory.Store, userID, language string) *MemoryCommands {
	return &MemoryCommands{
		store:    store,
		userID:   userID,
		language: language,
	}
}

// Stats 返回记忆统计信息
func (c *MemoryCommands) Stats() string {
	stats, err := c.store.GetStats(c.userID)
	if err != nil {
		return fmt.Sprintf("❌ 获取记忆统计失败: %v", err)
	}

	var sb strings.Builder
	sb.WriteString("📊 记忆统计\n")
	sb.WriteString("─────────────────────\n")
	fmt.Fprintf(&sb, "总记忆数: %d\n", stats.Total)
	fmt.Fprintf(&sb, "高置信度: %d\n", stats.HighConfidence)
	fmt.Fprintf(&sb, "近一周更新: %d\n", stats.RecentCount)

	if stats.Total > 0 {
		sb.WriteString("\n分类分布:\n")
		for _, category := range memory.Categories {
			count := stats.ByCategory[category]
			if count == 0 {
				continue
			}
			fmt.Fprintf(&sb, "  %s: %d\n", category.DisplayName(c.language), count)
		}
	}

	return sb.String()
}

// List 列出全部活跃记忆
func (c *MemoryCommands) List() string {
	items, err := c.store.ListActive(c.userID)
	if err != nil {
		return fmt.Sprintf("❌ 获取记忆失败: %v", err)
	}
	if len(items) == 0 {
		return "还没有关于你的记忆，聊几轮之后再来看看吧。"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🧠 我记得的关于你的 %d 件事\n", len(items))
	sb.WriteString("─────────────────────\n")

	for _, item := range items {
		marker := ""
		if item.Version > 1 {
			marker = fmt.Sprintf(" (已更正 %d 次)", item.Version-1)
		}
		fmt.Fprintf(&sb, "  [%s] %s: %s%s\n",
			item.Category.DisplayName(c.language), item.Subject, item.Value, marker)
	}

	return sb.String()
}

// Conflicts 列出等待确认的记忆矛盾
func (c *MemoryCommands) Conflicts() string {
	conflicts, err := c.store.ListConflicts(c.userID)
	if err != nil {
		return fmt.Sprintf("❌ 获取矛盾失败: %v", err)
	}
	if len(conflicts) == 0 {
		return "没有待确认的矛盾记忆。"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "⚠ %d 条记忆存在矛盾，等待你的确认\n", len(conflicts))
	sb.WriteString("─────────────────────\n")

	for _, conflict := range conflicts {
		fmt.Fprintf(&sb, "  [%s] %s: 已记录 %q，你后来提到 %q (置信度 %.1f)\n",
			conflict.Category.DisplayName(c.language), conflict.Subject,
			conflict.ExistingValue, conflict.ProposedValue, conflict.Confidence)
	}
	sb.WriteString("\n在对话中明确说明即可更正，例如「其实我的宠物是猫」。")

	return sb.String()
}
