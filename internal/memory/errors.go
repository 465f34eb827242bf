// Package memory 提供记忆子系统的错误定义
package memory

import (
	"errors"
	"fmt"
)

// 预定义错误
var (
	// ErrItemNotFound 记忆不存在
	ErrItemNotFound = errors.New("记忆不存在")
	// ErrInvalidCategory 无效的记忆分类
	ErrInvalidCategory = errors.New("无效的记忆分类")
	// ErrEmptyText 输入文本为空
	ErrEmptyText = errors.New("输入文本为空")
	// ErrEmbeddingFailed 向量嵌入失败
	ErrEmbeddingFailed = errors.New("向量嵌入失败")
	// ErrDatabase 数据库操作失败
	ErrDatabase = errors.New("数据库操作失败")
)

// StoreError 记忆存储错误（包含操作上下文）
type StoreError struct {
	Op  string // 操作名称
	Err error  // 原始错误
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("记忆存储错误 [%s]: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError 创建记忆存储错误
func NewStoreError(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}

// IsNotFound 检查是否是"未找到"类型的错误
func IsNotFound(err error) bool {
	return errors.Is(err, ErrItemNotFound)
}
