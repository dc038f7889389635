package service

import (
	"context"

	"github.com/wfunc/card-game/internal/models"
)

// CreateGameRequest 创建对局请求
type CreateGameRequest struct {
	JoinPassword string          `json:"join_password" binding:"required"`
	Players      []models.Player `json:"players"`
}

// JoinGameRequest 加入对局请求
type JoinGameRequest struct {
	GameID       string `json:"game_id" binding:"required"`
	PlayerName   string `json:"player_name" binding:"required"`
	JoinPassword string `json:"join_password" binding:"required"`
}

// JoinGameResponse 加入对局响应
type JoinGameResponse struct {
	Player       *models.Player `json:"player"`
	Game         *models.Game   `json:"game"`
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	ExpiresIn    int64          `json:"expires_in"`
}

// PostChatMessageRequest 发送聊天消息请求
type PostChatMessageRequest struct {
	GameID   string `json:"game_id" binding:"required"`
	PlayerID string `json:"player_id" binding:"required"`
	Content  string `json:"content" binding:"required,max=1024"`
}

// GameListResult 分页查询结果
type GameListResult struct {
	Games    []*models.Game `json:"games"`
	Total    int64          `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

// GameService 对局服务
type GameService interface {
	CreateGame(ctx context.Context, req *CreateGameRequest) (*models.Game, error)
	GetGame(ctx context.Context, id string) (*models.Game, error)
	ListGames(ctx context.Context, page, pageSize int) (*GameListResult, error)
	UpdateGame(ctx context.Context, dto *models.UpdateGameDTO) (*models.Game, error)
	DeleteGame(ctx context.Context, id string) error

	JoinGame(ctx context.Context, req *JoinGameRequest) (*JoinGameResponse, error)
	LeaveGame(ctx context.Context, gameID, playerID string) error
	RefreshToken(ctx context.Context, refreshToken string) (string, error)

	PostChatMessage(ctx context.Context, req *PostChatMessageRequest) (*models.ChatMessage, error)
	DeleteChatMessage(ctx context.Context, gameID, messageID string) error
}

// Notifier 对局事件推送接口
type Notifier interface {
	GameUpdated(gameID string, game *models.Game)
	GameDeleted(gameID string)
	PlayerJoined(gameID string, player *models.Player)
	PlayerLeft(gameID, playerID string)
	ChatMessagePosted(gameID string, message *models.ChatMessage)
}

// NoopNotifier 空实现，未接入WebSocket时使用
type NoopNotifier struct{}

func (NoopNotifier) GameUpdated(string, *models.Game)              {}
func (NoopNotifier) GameDeleted(string)                            {}
func (NoopNotifier) PlayerJoined(string, *models.Player)           {}
func (NoopNotifier) PlayerLeft(string, string)                     {}
func (NoopNotifier) ChatMessagePosted(string, *models.ChatMessage) {}
