package models

// Card 卡牌表
//
// claim_id 和 player_id 互斥：一张牌要么在某个玩家手中，
// 要么属于某个声明。归属变更通过 UpdateCardDTO 改写外键完成，
// 不做删除重建。
type Card struct {
	ID       string   `gorm:"primaryKey;size:64" json:"id"`
	Rank     CardRank `gorm:"default:0" json:"rank"`
	Suit     CardSuit `gorm:"default:0" json:"suit"`
	ClaimID  *string  `gorm:"size:64;index" json:"claim_id,omitempty"`
	PlayerID *string  `gorm:"size:64;index" json:"player_id,omitempty"`
}

// UpdateCardDTO 卡牌更新DTO，nil字段不参与更新
type UpdateCardDTO struct {
	ID       string    `json:"id"`
	Rank     *CardRank `json:"rank,omitempty"`
	PlayerID *string   `json:"player_id,omitempty"`
	ClaimID  *string   `json:"claim_id,omitempty"`
}
