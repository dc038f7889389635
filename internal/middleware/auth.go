package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/card-game/internal/utils"
)

// AuthMiddleware JWT认证中间件
type AuthMiddleware struct {
	jwtManager *utils.JWTManager
}

// NewAuthMiddleware 创建认证中间件
func NewAuthMiddleware(jwtManager *utils.JWTManager) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager: jwtManager,
	}
}

// RequireAuth 需要认证的中间件
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := m.extractToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    "NO_TOKEN",
				"message": "缺少认证令牌",
			})
			c.Abort()
			return
		}

		// 验证令牌
		claims, err := m.jwtManager.ValidateToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    "INVALID_TOKEN",
				"message": "无效的令牌",
				"details": err.Error(),
			})
			c.Abort()
			return
		}

		if claims.TokenType != "access" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    "INVALID_TOKEN",
				"message": "令牌类型错误",
			})
			c.Abort()
			return
		}

		// 将玩家信息存入上下文
		c.Set("playerID", claims.PlayerID)
		c.Set("gameID", claims.GameID)
		c.Set("playerName", claims.Name)
		c.Set("token", token)

		c.Next()
	}
}

// OptionalAuth 可选认证的中间件（不强制要求登录）
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := m.extractToken(c)
		if token != "" {
			claims, err := m.jwtManager.ValidateToken(token)
			if err == nil && claims.TokenType == "access" {
				c.Set("playerID", claims.PlayerID)
				c.Set("gameID", claims.GameID)
				c.Set("playerName", claims.Name)
				c.Set("token", token)
			}
		}

		c.Next()
	}
}

// RequireGame 要求令牌绑定指定路径参数中的游戏
func (m *AuthMiddleware) RequireGame(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		gameID, exists := GetGameID(c)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    "NO_TOKEN",
				"message": "缺少认证令牌",
			})
			c.Abort()
			return
		}

		if c.Param(param) != gameID {
			c.JSON(http.StatusForbidden, gin.H{
				"code":    "WRONG_GAME",
				"message": "令牌不属于该游戏",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// extractToken 从请求中提取令牌
func (m *AuthMiddleware) extractToken(c *gin.Context) string {
	// 1. 从Authorization Header获取 (Bearer Token)
	bearerToken := c.GetHeader("Authorization")
	if bearerToken != "" {
		parts := strings.Split(bearerToken, " ")
		if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
			return parts[1]
		}
	}

	// 2. 从X-Access-Token Header获取
	if token := c.GetHeader("X-Access-Token"); token != "" {
		return token
	}

	// 3. 从Cookie获取
	if token, err := c.Cookie("access_token"); err == nil && token != "" {
		return token
	}

	// 4. 从Query参数获取（WebSocket握手时使用）
	if token := c.Query("token"); token != "" {
		return token
	}

	return ""
}

// GetPlayerID 从上下文获取玩家ID
func GetPlayerID(c *gin.Context) (string, bool) {
	if playerID, exists := c.Get("playerID"); exists {
		if id, ok := playerID.(string); ok {
			return id, true
		}
	}
	return "", false
}

// GetGameID 从上下文获取游戏ID
func GetGameID(c *gin.Context) (string, bool) {
	if gameID, exists := c.Get("gameID"); exists {
		if id, ok := gameID.(string); ok {
			return id, true
		}
	}
	return "", false
}

// GetPlayerName 从上下文获取玩家名字
func GetPlayerName(c *gin.Context) (string, bool) {
	if name, exists := c.Get("playerName"); exists {
		if n, ok := name.(string); ok {
			return n, true
		}
	}
	return "", false
}

// IsAuthenticated 检查是否已认证
func IsAuthenticated(c *gin.Context) bool {
	_, exists := c.Get("playerID")
	return exists
}
