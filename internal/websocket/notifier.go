package websocket

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/wfunc/card-game/internal/models"
)

// Notifier 把对局事件推送给游戏内的所有连接
type Notifier struct {
	hub    *Hub
	logger *zap.Logger
}

// NewNotifier 创建事件推送器
func NewNotifier(hub *Hub, logger *zap.Logger) *Notifier {
	return &Notifier{hub: hub, logger: logger}
}

func (n *Notifier) push(gameID, msgType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		n.logger.Error("序列化推送事件失败",
			zap.String("type", msgType),
			zap.Error(err))
		return
	}

	msg := &Message{
		Type:      msgType,
		GameID:    gameID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
	if err := n.hub.SendToGame(gameID, msg); err != nil {
		n.logger.Warn("推送事件失败",
			zap.String("game_id", gameID),
			zap.String("type", msgType),
			zap.Error(err))
	}
}

// GameUpdated 对局聚合已更新
func (n *Notifier) GameUpdated(gameID string, game *models.Game) {
	n.push(gameID, MessageTypeGameUpdated, game)
}

// GameDeleted 对局已删除
func (n *Notifier) GameDeleted(gameID string) {
	n.push(gameID, MessageTypeGameDeleted, map[string]string{"game_id": gameID})
}

// PlayerJoined 玩家加入对局
func (n *Notifier) PlayerJoined(gameID string, player *models.Player) {
	n.push(gameID, MessageTypePlayerJoined, player)
}

// PlayerLeft 玩家离开对局
func (n *Notifier) PlayerLeft(gameID, playerID string) {
	n.push(gameID, MessageTypePlayerLeft, map[string]string{"player_id": playerID})
}

// ChatMessagePosted 新聊天消息
func (n *Notifier) ChatMessagePosted(gameID string, message *models.ChatMessage) {
	n.push(gameID, MessageTypeChatMessage, message)
}
