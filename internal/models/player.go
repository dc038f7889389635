package models

import (
	"time"
)

// Player 玩家表
//
// 每个玩家属于且仅属于一个游戏。assigned_cards 为派生集合，
// 读取时通过 CardRepository 按 player_id 装配。
type Player struct {
	ID                      string    `gorm:"primaryKey;size:64" json:"id"`
	Name                    string    `gorm:"size:64;not null" json:"name"`
	GameID                  string    `gorm:"size:64;not null;index" json:"game_id"`
	JoinedAt                time.Time `json:"joined_at"`
	Score                   int       `gorm:"default:0" json:"score"`
	LastTimeUpdateRequested time.Time `json:"last_time_update_requested"`

	// 聚合字段（不映射到列）
	AssignedCards []Card `gorm:"-" json:"assigned_cards"`
}

// UpdatePlayerDTO 玩家更新DTO，nil字段不参与更新
type UpdatePlayerDTO struct {
	ID                      string     `json:"id"`
	Name                    *string    `json:"name,omitempty"`
	Score                   *int       `json:"score,omitempty"`
	LastTimeUpdateRequested *time.Time `json:"last_time_update_requested,omitempty"`
}
