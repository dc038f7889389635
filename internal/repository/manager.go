package repository

import (
	"context"
	"sync"

	"gorm.io/gorm"
)

// Manager 仓储管理器，提供所有仓储的统一访问接口
type Manager struct {
	db *gorm.DB

	// 仓储实例（使用懒加载）
	gameOnce sync.Once
	game     GameRepository

	playerOnce sync.Once
	player     PlayerRepository

	chatOnce sync.Once
	chat     ChatRepository

	chatMessageOnce sync.Once
	chatMessage     ChatMessageRepository

	claimOnce sync.Once
	claim     ClaimRepository

	cardOnce sync.Once
	card     CardRepository
}

// NewManager 创建仓储管理器
func NewManager(db *gorm.DB) *Manager {
	return &Manager{db: db}
}

// GetDB 获取数据库实例
func (m *Manager) GetDB() *gorm.DB {
	return m.db
}

// Game 获取游戏仓储
func (m *Manager) Game() GameRepository {
	m.gameOnce.Do(func() {
		m.game = NewGameRepository(m.db)
	})
	return m.game
}

// Player 获取玩家仓储
func (m *Manager) Player() PlayerRepository {
	m.playerOnce.Do(func() {
		m.player = NewPlayerRepository(m.db)
	})
	return m.player
}

// Chat 获取聊天仓储
func (m *Manager) Chat() ChatRepository {
	m.chatOnce.Do(func() {
		m.chat = NewChatRepository(m.db)
	})
	return m.chat
}

// ChatMessage 获取聊天消息仓储
func (m *Manager) ChatMessage() ChatMessageRepository {
	m.chatMessageOnce.Do(func() {
		m.chatMessage = NewChatMessageRepository(m.db)
	})
	return m.chatMessage
}

// Claim 获取声明仓储
func (m *Manager) Claim() ClaimRepository {
	m.claimOnce.Do(func() {
		m.claim = NewClaimRepository(m.db)
	})
	return m.claim
}

// Card 获取卡牌仓储
func (m *Manager) Card() CardRepository {
	m.cardOnce.Do(func() {
		m.card = NewCardRepository(m.db)
	})
	return m.card
}

// WithTransaction 在单个gorm事务中执行操作
//
// 聚合同步路径刻意不走事务（语句独立提交），该入口只给
// 需要原子性的辅助路径使用。
func (m *Manager) WithTransaction(ctx context.Context, fn func(tx *Manager) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewManager(tx))
	})
}
