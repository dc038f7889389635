package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wfunc/card-game/internal/errors"
	"github.com/wfunc/card-game/internal/middleware"
	"github.com/wfunc/card-game/internal/service"
)

// ChatHandler 聊天处理器
type ChatHandler struct {
	gameService service.GameService
	log         *zap.Logger
}

// NewChatHandler 创建聊天处理器
func NewChatHandler(gameService service.GameService, log *zap.Logger) *ChatHandler {
	return &ChatHandler{
		gameService: gameService,
		log:         log,
	}
}

// GetChat 查询对局聊天会话
func (h *ChatHandler) GetChat(c *gin.Context) {
	game, err := h.gameService.GetGame(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    game.Chat,
	})
}

// PostMessage 发送聊天消息
func (h *ChatHandler) PostMessage(c *gin.Context) {
	playerID, ok := middleware.GetPlayerID(c)
	if !ok {
		respondError(c, errors.New(errors.ErrAuthentication))
		return
	}

	var req struct {
		Content string `json:"content" binding:"required,max=1024"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.Wrap(err, errors.ErrInvalidParam))
		return
	}

	message, err := h.gameService.PostChatMessage(c.Request.Context(), &service.PostChatMessageRequest{
		GameID:   c.Param("id"),
		PlayerID: playerID,
		Content:  req.Content,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    message,
	})
}

// DeleteMessage 删除聊天消息
func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	err := h.gameService.DeleteChatMessage(c.Request.Context(), c.Param("id"), c.Param("messageID"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
	})
}
