package models

import (
	"time"
)

// Game 游戏表
//
// players/claims/chat 三个集合不落库，读取时由各仓储按 game_id 装配。
type Game struct {
	ID              string    `gorm:"primaryKey;size:64" json:"id"`
	StartedAt       time.Time `json:"started_at"`
	RoundNumber     int       `gorm:"default:0" json:"round_number"`
	State           GameState `gorm:"not null;default:0" json:"state"`
	WhichPlayerTurn string    `gorm:"size:64" json:"which_player_turn"`
	CardToPlay      CardRank  `gorm:"default:0" json:"card_to_play"`
	JoinPassword    string    `gorm:"size:255" json:"-"` // 私密对局的加入口令哈希，可为空

	// 聚合字段（不映射到列）
	Players []Player `gorm:"-" json:"players"`
	Claims  []Claim  `gorm:"-" json:"claims"`
	Chat    Chat     `gorm:"-" json:"chat"`
}

// UpdateGameDTO 游戏更新DTO
//
// 指针字段为nil表示"不修改"。Players/Claims/Chat 是期望的最终状态，
// 由 GameRepository.UpdateGame 与当前库内数据做差异同步。
type UpdateGameDTO struct {
	ID              string     `json:"id"`
	State           *GameState `json:"state,omitempty"`
	RoundNumber     *int       `json:"round_number,omitempty"`
	CardToPlay      *CardRank  `json:"card_to_play,omitempty"`
	WhichPlayerTurn *string    `json:"which_player_turn,omitempty"`

	Players *[]Player `json:"players,omitempty"`
	Claims  *[]Claim  `json:"claims,omitempty"`
	Chat    *Chat     `json:"chat,omitempty"`
}
