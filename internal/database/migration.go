package database

import (
	"fmt"

	"github.com/wfunc/card-game/internal/logger"
	"github.com/wfunc/card-game/internal/models"
	"go.uber.org/zap"
)

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate() error {
	if DB == nil {
		return fmt.Errorf("数据库未初始化")
	}

	// 清理过期锁文件
	CleanupStaleLocks()

	// 获取迁移锁，避免多个进程同时迁移
	dbPath := getDBPath()
	if dbPath != "" {
		lockFile, err := acquireMigrationLock(dbPath)
		if err != nil {
			logger.Error("无法获取迁移锁", zap.Error(err))
			return fmt.Errorf("获取迁移锁失败: %w", err)
		}
		defer releaseMigrationLock(lockFile)
	}

	migrationModels := []interface{}{
		&models.Game{},
		&models.Player{},
		&models.Chat{},
		&models.ChatMessage{},
		&models.Claim{},
		&models.Card{},
	}

	// 执行迁移
	logger.Info("开始数据库迁移...")

	// SQLite重建表时外键约束会导致锁定
	if DB.Dialector.Name() == "sqlite" {
		DB.Exec("PRAGMA foreign_keys = OFF")
		defer DB.Exec("PRAGMA foreign_keys = ON")
	}

	for _, model := range migrationModels {
		if err := DB.AutoMigrate(model); err != nil {
			logger.Error("迁移失败",
				zap.String("model", fmt.Sprintf("%T", model)),
				zap.Error(err),
			)
			return err
		}
		logger.Debug("迁移成功", zap.String("model", fmt.Sprintf("%T", model)))
	}

	// 创建索引
	if err := createIndexes(); err != nil {
		return err
	}

	logger.Info("数据库迁移完成")
	return nil
}

// createIndexes 创建数据库索引
func createIndexes() error {
	// 玩家按游戏查询
	if err := DB.Exec("CREATE INDEX IF NOT EXISTS idx_players_game_id ON players(game_id)").Error; err != nil {
		logger.Warn("创建索引失败", zap.String("index", "idx_players_game_id"), zap.Error(err))
	}

	// 聊天消息按会话和时间查询
	if err := DB.Exec("CREATE INDEX IF NOT EXISTS idx_chat_messages_chat_id ON chat_messages(chat_id)").Error; err != nil {
		logger.Warn("创建索引失败", zap.String("index", "idx_chat_messages_chat_id"), zap.Error(err))
	}

	if err := DB.Exec("CREATE INDEX IF NOT EXISTS idx_chat_messages_sent_at ON chat_messages(sent_at)").Error; err != nil {
		logger.Warn("创建索引失败", zap.String("index", "idx_chat_messages_sent_at"), zap.Error(err))
	}

	// 声明按游戏查询
	if err := DB.Exec("CREATE INDEX IF NOT EXISTS idx_claims_game_id ON claims(game_id)").Error; err != nil {
		logger.Warn("创建索引失败", zap.String("index", "idx_claims_game_id"), zap.Error(err))
	}

	// 卡牌按归属查询
	if err := DB.Exec("CREATE INDEX IF NOT EXISTS idx_cards_player_id ON cards(player_id)").Error; err != nil {
		logger.Warn("创建索引失败", zap.String("index", "idx_cards_player_id"), zap.Error(err))
	}

	if err := DB.Exec("CREATE INDEX IF NOT EXISTS idx_cards_claim_id ON cards(claim_id)").Error; err != nil {
		logger.Warn("创建索引失败", zap.String("index", "idx_cards_claim_id"), zap.Error(err))
	}

	logger.Info("数据库索引创建完成")
	return nil
}

// DropAllTables 删除所有表（仅用于测试环境）
func DropAllTables() error {
	if DB == nil {
		return fmt.Errorf("数据库未初始化")
	}

	// 获取所有表名
	var tables []string
	if err := DB.Raw("SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'").Scan(&tables).Error; err != nil {
		return err
	}

	// 删除所有表
	for _, table := range tables {
		if err := DB.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", table)).Error; err != nil {
			logger.Error("删除表失败", zap.String("table", table), zap.Error(err))
			return err
		}
	}

	logger.Info("所有表已删除")
	return nil
}
