package guide

import "errors"

// 引擎的哨兵错误
var (
	// ErrSessionNotFound 会话不存在，调用方应重新开始会话
	ErrSessionNotFound = errors.New("会话不存在")

	// ErrSessionComplete 会话已完成，不再接受消息
	ErrSessionComplete = errors.New("会话已完成")

	// ErrEmptyMessage 消息为空
	ErrEmptyMessage = errors.New("消息不能为空")

	// ErrDiaryNotFound 日记不存在
	ErrDiaryNotFound = errors.New("日记不存在")
)
