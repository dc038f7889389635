package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wfunc/card-game/internal/repository"
	"github.com/wfunc/card-game/internal/service"
	ws "github.com/wfunc/card-game/internal/websocket"
)

func newTestRouter(t *testing.T) *Router {
	gin.SetMode(gin.TestMode)

	db := repository.TestDB(t)
	hub := ws.NewHub(zap.NewNop())
	go hub.Run()

	config := &service.Config{
		JWTSecret:          "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		MaxPlayers:         4,
	}

	return NewRouter(db, config, hub, zap.NewNop())
}

func doJSON(t *testing.T, router *Router, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.GetEngine().ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data, _ := resp["data"].(map[string]interface{})
	return data
}

func TestHealthCheck(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestCreateAndGetGame(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/games", "", map[string]interface{}{
		"join_password": "pw-123",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	data := decodeData(t, w)
	gameID, _ := data["id"].(string)
	require.NotEmpty(t, gameID)

	w = doJSON(t, router, http.MethodGet, "/api/v1/games/"+gameID, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// 口令不应出现在响应中
	assert.NotContains(t, w.Body.String(), "pw-123")
	assert.NotContains(t, w.Body.String(), "join_password")
}

func TestGetGame_NotFound(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/v1/games/no-such-game", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestJoinGameFlow(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/games", "", map[string]interface{}{
		"join_password": "pw",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	gameID := decodeData(t, w)["id"].(string)

	// 口令错误
	w = doJSON(t, router, http.MethodPost, "/api/v1/games/"+gameID+"/join", "", map[string]interface{}{
		"player_name":   "Alice",
		"join_password": "wrong",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 口令正确
	w = doJSON(t, router, http.MethodPost, "/api/v1/games/"+gameID+"/join", "", map[string]interface{}{
		"player_name":   "Alice",
		"join_password": "pw",
	})
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeData(t, w)
	token, _ := data["access_token"].(string)
	require.NotEmpty(t, token)

	// 用令牌发聊天消息
	w = doJSON(t, router, http.MethodPost, "/api/v1/games/"+gameID+"/chat/messages", token, map[string]interface{}{
		"content": "hello table",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	// 读回聊天会话
	w = doJSON(t, router, http.MethodGet, "/api/v1/games/"+gameID+"/chat", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	chat := decodeData(t, w)
	assert.Equal(t, float64(1), chat["number_of_messages"])
}

func TestInGameRoutesRequireToken(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/games", "", map[string]interface{}{
		"join_password": "pw",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	gameID := decodeData(t, w)["id"].(string)

	// 无令牌
	w = doJSON(t, router, http.MethodDelete, "/api/v1/games/"+gameID, "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// 别的对局的令牌
	w = doJSON(t, router, http.MethodPost, "/api/v1/games", "", map[string]interface{}{
		"join_password": "pw",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	otherID := decodeData(t, w)["id"].(string)

	w = doJSON(t, router, http.MethodPost, "/api/v1/games/"+otherID+"/join", "", map[string]interface{}{
		"player_name":   "Bob",
		"join_password": "pw",
	})
	require.Equal(t, http.StatusOK, w.Code)
	otherToken := decodeData(t, w)["access_token"].(string)

	w = doJSON(t, router, http.MethodDelete, "/api/v1/games/"+gameID, otherToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestJoinGame_Full(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/games", "", map[string]interface{}{
		"join_password": "pw",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	gameID := decodeData(t, w)["id"].(string)

	for i := 0; i < 4; i++ {
		w = doJSON(t, router, http.MethodPost, "/api/v1/games/"+gameID+"/join", "", map[string]interface{}{
			"player_name":   fmt.Sprintf("p%d", i),
			"join_password": "pw",
		})
		require.Equal(t, http.StatusOK, w.Code)
	}

	w = doJSON(t, router, http.MethodPost, "/api/v1/games/"+gameID+"/join", "", map[string]interface{}{
		"player_name":   "late",
		"join_password": "pw",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRefreshToken(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/games", "", map[string]interface{}{
		"join_password": "pw",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	gameID := decodeData(t, w)["id"].(string)

	w = doJSON(t, router, http.MethodPost, "/api/v1/games/"+gameID+"/join", "", map[string]interface{}{
		"player_name":   "Alice",
		"join_password": "pw",
	})
	require.Equal(t, http.StatusOK, w.Code)
	refreshToken := decodeData(t, w)["refresh_token"].(string)

	w = doJSON(t, router, http.MethodPost, "/api/v1/auth/refresh", "", map[string]interface{}{
		"refresh_token": refreshToken,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decodeData(t, w)["access_token"])
}

func TestListGames_Paginated(t *testing.T) {
	router := newTestRouter(t)

	for i := 0; i < 3; i++ {
		w := doJSON(t, router, http.MethodPost, "/api/v1/games", "", map[string]interface{}{
			"join_password": "pw",
		})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := doJSON(t, router, http.MethodGet, "/api/v1/games?page=1&page_size=2", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeData(t, w)
	assert.Equal(t, float64(3), data["total"])
	games, _ := data["games"].([]interface{})
	assert.Len(t, games, 2)
}
