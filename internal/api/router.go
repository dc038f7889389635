package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wfunc/card-game/internal/middleware"
	"github.com/wfunc/card-game/internal/service"
	ws "github.com/wfunc/card-game/internal/websocket"
)

// Router API路由器
type Router struct {
	engine         *gin.Engine
	db             *gorm.DB
	services       *service.Services
	gameHandler    *GameHandler
	chatHandler    *ChatHandler
	wsHandler      *WebSocketHandler
	authMiddleware *middleware.AuthMiddleware
	log            *zap.Logger
}

// NewRouter 创建路由器
func NewRouter(db *gorm.DB, config *service.Config, hub *ws.Hub, log *zap.Logger) *Router {
	// 创建Gin引擎
	engine := gin.New()

	// 全局中间件
	engine.Use(gin.Recovery())
	engine.Use(gin.Logger())

	// 创建服务，WebSocket推送挂到服务层
	services := service.NewServices(db, config, ws.NewNotifier(hub, log), log)

	// 创建处理器
	gameHandler := NewGameHandler(services.Game, log)
	chatHandler := NewChatHandler(services.Game, log)
	wsHandler := NewWebSocketHandler(hub, log)

	// 创建中间件
	authMiddleware := middleware.NewAuthMiddleware(services.JWT)

	router := &Router{
		engine:         engine,
		db:             db,
		services:       services,
		gameHandler:    gameHandler,
		chatHandler:    chatHandler,
		wsHandler:      wsHandler,
		authMiddleware: authMiddleware,
		log:            log,
	}

	router.setupRoutes()

	return router
}

// setupRoutes 设置路由
func (r *Router) setupRoutes() {
	// 健康检查
	r.engine.GET("/health", r.healthCheck)

	// API v1路由组
	v1 := r.engine.Group("/api/v1")
	{
		games := v1.Group("/games")
		{
			// 大厅操作不需要令牌
			games.GET("", r.gameHandler.ListGames)
			games.POST("", r.gameHandler.CreateGame)
			games.GET("/:id", r.gameHandler.GetGame)
			games.POST("/:id/join", r.gameHandler.JoinGame)

			// 对局内操作需要绑定该对局的令牌
			inGame := games.Group("/:id")
			inGame.Use(r.authMiddleware.RequireAuth(), r.authMiddleware.RequireGame("id"))
			{
				inGame.PUT("", r.gameHandler.UpdateGame)
				inGame.DELETE("", r.gameHandler.DeleteGame)
				inGame.POST("/leave", r.gameHandler.LeaveGame)

				inGame.GET("/chat", r.chatHandler.GetChat)
				inGame.POST("/chat/messages", r.chatHandler.PostMessage)
				inGame.DELETE("/chat/messages/:messageID", r.chatHandler.DeleteMessage)
			}
		}

		auth := v1.Group("/auth")
		{
			auth.POST("/refresh", r.gameHandler.RefreshToken)
		}
	}

	// WebSocket路由，握手时通过query参数带令牌
	wsGroup := r.engine.Group("/ws")
	wsGroup.Use(r.authMiddleware.RequireAuth())
	{
		wsGroup.GET("/game", r.wsHandler.GameWebSocket)
	}

	// 404处理
	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{
			"code":    "NOT_FOUND",
			"message": "接口不存在",
		})
	})
}

// healthCheck 健康检查
func (r *Router) healthCheck(c *gin.Context) {
	sqlDB, err := r.db.DB()
	if err != nil {
		c.JSON(500, gin.H{
			"status":  "unhealthy",
			"message": "数据库连接失败",
		})
		return
	}

	if err := sqlDB.Ping(); err != nil {
		c.JSON(500, gin.H{
			"status":  "unhealthy",
			"message": "数据库ping失败",
		})
		return
	}

	c.JSON(200, gin.H{
		"status":  "healthy",
		"message": "服务运行正常",
	})
}

// Run 运行服务器
func (r *Router) Run(addr string) error {
	r.log.Info("Starting API server", zap.String("address", addr))
	return r.engine.Run(addr)
}

// GetEngine 获取Gin引擎（用于测试）
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
