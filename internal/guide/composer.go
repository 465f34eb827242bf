package guide

import (
	"context"
	"fmt"
	"strings"

	"github.com/hession/daymate/internal/llm"
)

// ChatClient LLM 对话客户端接口
type ChatClient interface {
	Chat(ctx context.Context, messages []llm.Message) (string, error)
}

// Composer 由结构化回答和记忆上下文生成日记
// LLM 失败时直接返回错误，绝不编造兜底日记；
// 调用方保持会话在生成阶段，由用户重新发送触发重试
type Composer struct {
	client        ChatClient
	characterName string
	tone          string
}

// NewComposer 创建日记生成器
func NewComposer(client ChatClient, characterName, tone string) *Composer {
	return &Composer{
		client:        client,
		characterName: characterName,
		tone:          tone,
	}
}

// Compose 生成日记草稿
// 失败时错误链中包含 llm.ErrUnavailable，调用方可据此给出重试提示
func (c *Composer) Compose(ctx context.Context, answers StructuredAnswers, memoryContext, language string) (string, error) {
	if c.client == nil {
		return "", fmt.Errorf("生成日记失败: %w: 未配置模型", llm.ErrUnavailable)
	}

	messages := []llm.Message{
		{Role: "system", Content: composerSystemPrompt(language, c.characterName, c.tone)},
		{Role: "user", Content: composePrompt(answers, memoryContext, language)},
	}

	draft, err := c.client.Chat(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("生成日记失败: %w", err)
	}

	draft = strings.TrimSpace(draft)
	if draft == "" {
		return "", fmt.Errorf("生成日记失败: %w: 返回内容为空", llm.ErrUnavailable)
	}

	return draft, nil
}
