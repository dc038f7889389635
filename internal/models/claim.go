package models

// Claim 声明表
//
// 玩家打出一组牌时声明的内容。cards 为派生集合，
// 通过 cards.claim_id 外键装配。
type Claim struct {
	ID            string `gorm:"primaryKey;size:64" json:"id"`
	CreatedBy     string `gorm:"size:64;index" json:"created_by"` // 玩家ID
	NumberOfCards int    `gorm:"default:0" json:"number_of_cards"`
	GameID        string `gorm:"size:64;index" json:"game_id"`

	// 聚合字段（不映射到列）
	Cards []Card `gorm:"-" json:"cards"`
}

// UpdateClaimDTO 声明更新DTO，指针字段为nil表示"不修改"
type UpdateClaimDTO struct {
	ID            string  `json:"id"`
	CreatedBy     *string `json:"created_by,omitempty"`
	NumberOfCards *int    `json:"number_of_cards,omitempty"`
}
