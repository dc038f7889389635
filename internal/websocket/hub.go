package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Hub WebSocket连接管理中心
//
// 客户端按所在对局分组，聚合更新与聊天消息按game_id推送。
type Hub struct {
	// 客户端连接池
	clients   map[string]*Client
	clientsMu sync.RWMutex

	// 游戏ID到客户端的映射
	gameClients map[string][]*Client
	gameMu      sync.RWMutex

	// 消息广播通道
	broadcast chan *Message

	// 注册/注销通道
	register   chan *Client
	unregister chan *Client

	// 日志
	logger *zap.Logger
}

// Client WebSocket客户端
type Client struct {
	ID       string          // 客户端ID
	PlayerID string          // 玩家ID
	GameID   string          // 所在游戏ID
	Hub      *Hub            // Hub引用
	Conn     *websocket.Conn // WebSocket连接
	Send     chan []byte     // 发送通道
}

// Message WebSocket消息
type Message struct {
	Type      string          `json:"type"` // 消息类型
	PlayerID  string          `json:"player_id,omitempty"`
	GameID    string          `json:"game_id,omitempty"`
	Data      json.RawMessage `json:"data"`      // 消息数据
	Timestamp int64           `json:"timestamp"` // 时间戳
}

// MessageType 消息类型
const (
	// 系统消息
	MessageTypeConnected    = "connected"
	MessageTypeDisconnected = "disconnected"
	MessageTypePing         = "ping"
	MessageTypePong         = "pong"
	MessageTypeError        = "error"

	// 游戏消息
	MessageTypeGameUpdated  = "game_updated"
	MessageTypeGameDeleted  = "game_deleted"
	MessageTypePlayerJoined = "player_joined"
	MessageTypePlayerLeft   = "player_left"
	MessageTypeChatMessage  = "chat_message"
)

// NewHub 创建Hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:     make(map[string]*Client),
		gameClients: make(map[string][]*Client),
		broadcast:   make(chan *Message, 256),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		logger:      logger,
	}
}

// Run 运行Hub
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

// registerClient 注册客户端
func (h *Hub) registerClient(client *Client) {
	h.clientsMu.Lock()
	h.clients[client.ID] = client
	h.clientsMu.Unlock()

	// 添加到游戏客户端映射
	if client.GameID != "" {
		h.gameMu.Lock()
		h.gameClients[client.GameID] = append(h.gameClients[client.GameID], client)
		h.gameMu.Unlock()
	}

	h.logger.Info("WebSocket客户端连接",
		zap.String("client_id", client.ID),
		zap.String("player_id", client.PlayerID),
		zap.String("game_id", client.GameID))

	// 发送连接成功消息
	msg := &Message{
		Type:      MessageTypeConnected,
		Timestamp: time.Now().Unix(),
		Data:      json.RawMessage(`{"message":"连接成功"}`),
	}
	h.SendToClient(client.ID, msg)
}

// unregisterClient 注销客户端
func (h *Hub) unregisterClient(client *Client) {
	h.clientsMu.Lock()
	if _, ok := h.clients[client.ID]; ok {
		delete(h.clients, client.ID)
		close(client.Send)
	}
	h.clientsMu.Unlock()

	// 从游戏客户端映射中移除
	if client.GameID != "" {
		h.gameMu.Lock()
		clients := h.gameClients[client.GameID]
		for i, c := range clients {
			if c.ID == client.ID {
				h.gameClients[client.GameID] = append(clients[:i], clients[i+1:]...)
				break
			}
		}
		if len(h.gameClients[client.GameID]) == 0 {
			delete(h.gameClients, client.GameID)
		}
		h.gameMu.Unlock()
	}

	h.logger.Info("WebSocket客户端断开",
		zap.String("client_id", client.ID),
		zap.String("player_id", client.PlayerID))
}

// broadcastMessage 广播消息
func (h *Hub) broadcastMessage(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("序列化消息失败", zap.Error(err))
		return
	}

	h.clientsMu.RLock()
	for _, client := range h.clients {
		select {
		case client.Send <- data:
		default:
			// 发送缓冲区满，丢弃该客户端的这条消息
			h.logger.Warn("客户端发送缓冲区满",
				zap.String("client_id", client.ID))
		}
	}
	h.clientsMu.RUnlock()
}

// SendToClient 发送消息给指定客户端
func (h *Hub) SendToClient(clientID string, message *Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	h.clientsMu.RLock()
	client, ok := h.clients[clientID]
	h.clientsMu.RUnlock()

	if !ok {
		return ErrClientNotFound
	}

	select {
	case client.Send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// SendToPlayer 发送消息给指定玩家的所有客户端
func (h *Hub) SendToPlayer(playerID string, message *Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()

	sent := false
	for _, client := range h.clients {
		if client.PlayerID == playerID {
			select {
			case client.Send <- data:
				sent = true
			default:
				h.logger.Warn("玩家客户端发送缓冲区满",
					zap.String("client_id", client.ID),
					zap.String("player_id", playerID))
			}
		}
	}

	if !sent {
		return ErrPlayerNotConnected
	}
	return nil
}

// SendToGame 发送消息给指定游戏的所有客户端
func (h *Hub) SendToGame(gameID string, message *Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	h.gameMu.RLock()
	clients := make([]*Client, len(h.gameClients[gameID]))
	copy(clients, h.gameClients[gameID])
	h.gameMu.RUnlock()

	for _, client := range clients {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn("游戏客户端发送缓冲区满",
				zap.String("client_id", client.ID),
				zap.String("game_id", gameID))
		}
	}

	return nil
}

// GetGamePlayerIDs 获取游戏内在线玩家列表
func (h *Hub) GetGamePlayerIDs(gameID string) []string {
	h.gameMu.RLock()
	defer h.gameMu.RUnlock()

	seen := make(map[string]bool)
	players := make([]string, 0, len(h.gameClients[gameID]))
	for _, client := range h.gameClients[gameID] {
		if !seen[client.PlayerID] {
			seen[client.PlayerID] = true
			players = append(players, client.PlayerID)
		}
	}
	return players
}

// GetOnlineCount 获取在线连接数
func (h *Hub) GetOnlineCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// Broadcast 广播消息（公开方法）
func (h *Hub) Broadcast(message *Message) {
	h.broadcast <- message
}

// Register 注册客户端（公开方法）
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister 注销客户端（公开方法）
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}
