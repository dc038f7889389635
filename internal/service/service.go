package service

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wfunc/card-game/internal/repository"
	"github.com/wfunc/card-game/internal/utils"
)

// Config 服务配置
type Config struct {
	JWTSecret          string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	MaxPlayers         int
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		JWTSecret:          "change-me",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 7 * 24 * time.Hour,
		MaxPlayers:         8,
	}
}

// Services 服务集合
type Services struct {
	Game GameService
	JWT  *utils.JWTManager
}

// NewServices 创建服务集合
func NewServices(db *gorm.DB, config *Config, notifier Notifier, log *zap.Logger) *Services {
	// 初始化仓储
	repos := repository.NewManager(db)

	// 初始化JWT管理器
	jwtManager := utils.NewJWTManager(
		config.JWTSecret,
		config.AccessTokenExpiry,
		config.RefreshTokenExpiry,
	)

	gameService := NewGameService(
		db,
		repos.Game(),
		repos.Player(),
		repos.Chat(),
		jwtManager,
		notifier,
		config.MaxPlayers,
		log,
	)

	return &Services{
		Game: gameService,
		JWT:  jwtManager,
	}
}
