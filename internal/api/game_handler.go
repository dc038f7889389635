package api

import (
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wfunc/card-game/internal/errors"
	"github.com/wfunc/card-game/internal/middleware"
	"github.com/wfunc/card-game/internal/models"
	"github.com/wfunc/card-game/internal/service"
)

// GameHandler 对局处理器
type GameHandler struct {
	gameService service.GameService
	log         *zap.Logger
}

// NewGameHandler 创建对局处理器
func NewGameHandler(gameService service.GameService, log *zap.Logger) *GameHandler {
	return &GameHandler{
		gameService: gameService,
		log:         log,
	}
}

// respondError 按错误码映射HTTP状态码返回
func respondError(c *gin.Context, err error) {
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		appErr = errors.Wrap(err, errors.ErrUnknown)
	}
	c.JSON(appErr.HTTPStatus(), errors.NewErrorResponse(appErr, c.GetHeader("X-Request-ID")))
}

// ListGames 分页查询对局列表
func (h *GameHandler) ListGames(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	result, err := h.gameService.ListGames(c.Request.Context(), page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}

// CreateGame 创建对局
func (h *GameHandler) CreateGame(c *gin.Context) {
	var req service.CreateGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.Wrap(err, errors.ErrInvalidParam))
		return
	}

	game, err := h.gameService.CreateGame(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    game,
	})
}

// GetGame 查询对局聚合
func (h *GameHandler) GetGame(c *gin.Context) {
	game, err := h.gameService.GetGame(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    game,
	})
}

// UpdateGame 更新对局聚合
func (h *GameHandler) UpdateGame(c *gin.Context) {
	var dto models.UpdateGameDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		respondError(c, errors.Wrap(err, errors.ErrInvalidParam))
		return
	}
	dto.ID = c.Param("id")

	game, err := h.gameService.UpdateGame(c.Request.Context(), &dto)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    game,
	})
}

// DeleteGame 删除对局
func (h *GameHandler) DeleteGame(c *gin.Context) {
	if err := h.gameService.DeleteGame(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
	})
}

// JoinGame 加入对局
func (h *GameHandler) JoinGame(c *gin.Context) {
	var req service.JoinGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.Wrap(err, errors.ErrInvalidParam))
		return
	}
	req.GameID = c.Param("id")

	resp, err := h.gameService.JoinGame(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    resp,
	})
}

// LeaveGame 离开对局
func (h *GameHandler) LeaveGame(c *gin.Context) {
	playerID, ok := middleware.GetPlayerID(c)
	if !ok {
		respondError(c, errors.New(errors.ErrAuthentication))
		return
	}

	if err := h.gameService.LeaveGame(c.Request.Context(), c.Param("id"), playerID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
	})
}

// RefreshToken 刷新访问令牌
func (h *GameHandler) RefreshToken(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.Wrap(err, errors.ErrInvalidParam))
		return
	}

	token, err := h.gameService.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"access_token": token,
		},
	})
}
