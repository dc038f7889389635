package repository

import (
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/card-game/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// isCI 检查是否在CI环境中运行
func isCI() bool {
	// GitHub Actions 设置 CI=true
	return os.Getenv("CI") == "true" || os.Getenv("GITHUB_ACTIONS") == "true"
}

// SetupTestDB 为测试套件设置测试数据库
func SetupTestDB() *gorm.DB {
	// 使用内存数据库进行测试（更快，不需要文件系统，在所有环境中都能工作）
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(err)
	}

	// 清理所有表数据（保留表结构）
	// 注意：清理顺序很重要，先清理子表
	tables := []interface{}{
		&models.Card{},
		&models.ChatMessage{},
		&models.Claim{},
		&models.Chat{},
		&models.Player{},
		&models.Game{},
	}

	for _, table := range tables {
		db.Unscoped().Where("1 = 1").Delete(table)
	}

	// 自动迁移所有模型
	err = db.AutoMigrate(
		&models.Game{},
		&models.Player{},
		&models.Chat{},
		&models.ChatMessage{},
		&models.Claim{},
		&models.Card{},
	)
	if err != nil {
		panic(err)
	}

	return db
}

// CleanupTestDB 清理测试数据库
func CleanupTestDB(db *gorm.DB) {
	// 关闭数据库连接
	sqlDB, _ := db.DB()
	if sqlDB != nil {
		sqlDB.Close()
	}
}

// TestDB 创建测试数据库
func TestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.Game{},
		&models.Player{},
		&models.Chat{},
		&models.ChatMessage{},
		&models.Claim{},
		&models.Card{},
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		CleanupTestDB(db)
	})

	return db
}

// SeedTestGame 创建一局带聊天会话的测试游戏
func SeedTestGame(t *testing.T, db *gorm.DB) *models.Game {
	game := &models.Game{
		ID:          uuid.NewString(),
		StartedAt:   time.Now(),
		RoundNumber: 1,
		State:       models.GameStateLobby,
		CardToPlay:  models.RankTwo,
	}
	require.NoError(t, db.Create(game).Error)

	chat := &models.Chat{
		ID:     uuid.NewString(),
		GameID: game.ID,
	}
	require.NoError(t, db.Create(chat).Error)
	game.Chat = *chat

	return game
}

// SeedTestPlayer 向游戏中添加一名测试玩家
func SeedTestPlayer(t *testing.T, db *gorm.DB, gameID, name string) *models.Player {
	player := &models.Player{
		ID:       uuid.NewString(),
		Name:     name,
		GameID:   gameID,
		JoinedAt: time.Now(),
	}
	require.NoError(t, db.Create(player).Error)
	return player
}

// SeedTestMessage 向会话中添加一条消息并同步计数器
func SeedTestMessage(t *testing.T, db *gorm.DB, chatID, playerID, content string) *models.ChatMessage {
	message := &models.ChatMessage{
		ID:       uuid.NewString(),
		PlayerID: playerID,
		Content:  content,
		SentAt:   time.Now(),
		ChatID:   chatID,
	}
	require.NoError(t, db.Create(message).Error)
	require.NoError(t, db.Model(&models.Chat{}).
		Where("id = ?", chatID).
		Update("number_of_messages", gorm.Expr("number_of_messages + 1")).Error)
	return message
}

// CreateTestCard 构造一张测试卡牌
func CreateTestCard(rank models.CardRank, suit models.CardSuit) *models.Card {
	return &models.Card{
		ID:   uuid.NewString(),
		Rank: rank,
		Suit: suit,
	}
}

// AssertPlayer 验证玩家关键字段
func AssertPlayer(t *testing.T, expected, actual *models.Player) {
	assert.Equal(t, expected.ID, actual.ID)
	assert.Equal(t, expected.Name, actual.Name)
	assert.Equal(t, expected.GameID, actual.GameID)
	assert.Equal(t, expected.Score, actual.Score)
}

// AssertChatCounter 验证计数器与真实消息行数一致
func AssertChatCounter(t *testing.T, db *gorm.DB, chatID string) {
	var chat models.Chat
	require.NoError(t, db.Where("id = ?", chatID).First(&chat).Error)

	var rows int64
	require.NoError(t, db.Model(&models.ChatMessage{}).Where("chat_id = ?", chatID).Count(&rows).Error)

	assert.Equal(t, int64(chat.NumberOfMessages), rows, "计数器必须等于消息行数")
}

// PlayerIDSet 提取玩家ID集合
func PlayerIDSet(players []models.Player) map[string]struct{} {
	set := make(map[string]struct{}, len(players))
	for _, p := range players {
		set[p.ID] = struct{}{}
	}
	return set
}
