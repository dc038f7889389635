package models

import (
	"time"
)

// Chat 聊天表
//
// number_of_messages 是反规范化计数器，与 chat_messages 的真实行数
// 分表存储，没有数据库触发器维护，所有变更路径都必须手工同步，
// 保持 number_of_messages == |messages| 的不变量。
type Chat struct {
	ID               string `gorm:"primaryKey;size:64" json:"id"`
	NumberOfMessages int    `gorm:"default:0" json:"number_of_messages"`
	GameID           string `gorm:"size:64;uniqueIndex" json:"game_id"` // 与游戏 1:1

	// 聚合字段（不映射到列）
	Messages []ChatMessage `gorm:"-" json:"messages"`
}

// ChatMessage 聊天消息表
type ChatMessage struct {
	ID       string    `gorm:"primaryKey;size:64" json:"id"`
	PlayerID string    `gorm:"size:64;index" json:"player_id"`
	Content  string    `gorm:"size:1024;not null" json:"content"`
	SentAt   time.Time `gorm:"index" json:"sent_at"`
	ChatID   string    `gorm:"size:64;index" json:"chat_id"`
}

// UpdateChatMessageDTO 聊天消息更新DTO，指针字段为nil表示"不修改"
type UpdateChatMessageDTO struct {
	ID      string  `json:"id"`
	Content *string `json:"content,omitempty"`
}
