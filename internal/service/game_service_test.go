package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wfunc/card-game/internal/errors"
	"github.com/wfunc/card-game/internal/models"
	"github.com/wfunc/card-game/internal/repository"
	"github.com/wfunc/card-game/internal/utils"
)

// recordingNotifier 记录推送事件供断言
type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) record(event string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) GameUpdated(gameID string, _ *models.Game)        { n.record("game_updated:" + gameID) }
func (n *recordingNotifier) GameDeleted(gameID string)                        { n.record("game_deleted:" + gameID) }
func (n *recordingNotifier) PlayerJoined(gameID string, _ *models.Player)     { n.record("player_joined:" + gameID) }
func (n *recordingNotifier) PlayerLeft(gameID, playerID string)               { n.record("player_left:" + playerID) }
func (n *recordingNotifier) ChatMessagePosted(gameID string, _ *models.ChatMessage) {
	n.record("chat_message:" + gameID)
}

func (n *recordingNotifier) has(event string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, e := range n.events {
		if e == event {
			return true
		}
	}
	return false
}

func newTestService(t *testing.T, maxPlayers int) (GameService, *recordingNotifier, *gorm.DB) {
	db := repository.TestDB(t)
	notifier := &recordingNotifier{}
	jwtManager := utils.NewJWTManager("test-secret", 15*time.Minute, 24*time.Hour)

	svc := NewGameService(
		db,
		repository.NewGameRepositoryWithClaimSlot(db, true),
		repository.NewPlayerRepository(db),
		repository.NewChatRepository(db),
		jwtManager,
		notifier,
		maxPlayers,
		zap.NewNop(),
	)
	return svc, notifier, db
}

func TestGameService_CreateGame_HashesPassword(t *testing.T) {
	svc, _, db := newTestService(t, 8)
	ctx := context.Background()

	game, err := svc.CreateGame(ctx, &CreateGameRequest{
		JoinPassword: "secret-123",
		Players:      []models.Player{{Name: "Alice"}},
	})
	require.NoError(t, err)
	require.NotEmpty(t, game.ID)

	var stored models.Game
	require.NoError(t, db.Where("id = ?", game.ID).First(&stored).Error)
	assert.NotEqual(t, "secret-123", stored.JoinPassword, "口令必须以哈希存储")

	ok, err := utils.VerifyPassword("secret-123", stored.JoinPassword)
	require.NoError(t, err)
	assert.True(t, ok)

	// 创建时应同时建立聊天会话
	chatRepo := repository.NewChatRepository(db)
	chat, err := chatRepo.GetChat(ctx, "", game.ID)
	require.NoError(t, err)
	assert.Zero(t, chat.NumberOfMessages)
}

func TestGameService_CreateGame_EmptyPasswordRejected(t *testing.T) {
	svc, _, _ := newTestService(t, 8)

	_, err := svc.CreateGame(context.Background(), &CreateGameRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidParam))
}

func TestGameService_JoinGame(t *testing.T) {
	svc, notifier, _ := newTestService(t, 8)
	ctx := context.Background()

	game, err := svc.CreateGame(ctx, &CreateGameRequest{JoinPassword: "pw"})
	require.NoError(t, err)

	// 口令错误
	_, err = svc.JoinGame(ctx, &JoinGameRequest{
		GameID:       game.ID,
		PlayerName:   "Bob",
		JoinPassword: "wrong",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrJoinPasswordWrong))

	// 口令正确
	resp, err := svc.JoinGame(ctx, &JoinGameRequest{
		GameID:       game.ID,
		PlayerName:   "Bob",
		JoinPassword: "pw",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Player.ID)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.True(t, notifier.has("player_joined:"+game.ID))
}

func TestGameService_JoinGame_Full(t *testing.T) {
	svc, _, _ := newTestService(t, 1)
	ctx := context.Background()

	game, err := svc.CreateGame(ctx, &CreateGameRequest{JoinPassword: "pw"})
	require.NoError(t, err)

	_, err = svc.JoinGame(ctx, &JoinGameRequest{GameID: game.ID, PlayerName: "A", JoinPassword: "pw"})
	require.NoError(t, err)

	_, err = svc.JoinGame(ctx, &JoinGameRequest{GameID: game.ID, PlayerName: "B", JoinPassword: "pw"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrGameFull))
	appErr := err.(*errors.AppError)
	assert.Equal(t, 400, appErr.HTTPStatus())
}

func TestGameService_LeaveGame(t *testing.T) {
	svc, notifier, _ := newTestService(t, 8)
	ctx := context.Background()

	game, err := svc.CreateGame(ctx, &CreateGameRequest{JoinPassword: "pw"})
	require.NoError(t, err)
	resp, err := svc.JoinGame(ctx, &JoinGameRequest{GameID: game.ID, PlayerName: "A", JoinPassword: "pw"})
	require.NoError(t, err)

	require.NoError(t, svc.LeaveGame(ctx, game.ID, resp.Player.ID))
	assert.True(t, notifier.has("player_left:"+resp.Player.ID))

	// 不在该对局的玩家
	other, err := svc.CreateGame(ctx, &CreateGameRequest{JoinPassword: "pw"})
	require.NoError(t, err)
	resp2, err := svc.JoinGame(ctx, &JoinGameRequest{GameID: other.ID, PlayerName: "B", JoinPassword: "pw"})
	require.NoError(t, err)

	err = svc.LeaveGame(ctx, game.ID, resp2.Player.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrPlayerNotInGame))
}

func TestGameService_RefreshToken(t *testing.T) {
	svc, _, _ := newTestService(t, 8)
	ctx := context.Background()

	game, err := svc.CreateGame(ctx, &CreateGameRequest{JoinPassword: "pw"})
	require.NoError(t, err)
	resp, err := svc.JoinGame(ctx, &JoinGameRequest{GameID: game.ID, PlayerName: "A", JoinPassword: "pw"})
	require.NoError(t, err)

	token, err := svc.RefreshToken(ctx, resp.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	// 访问令牌不能用于刷新
	_, err = svc.RefreshToken(ctx, resp.AccessToken)
	require.Error(t, err)

	// 玩家离开后刷新失败
	require.NoError(t, svc.LeaveGame(ctx, game.ID, resp.Player.ID))
	_, err = svc.RefreshToken(ctx, resp.RefreshToken)
	require.Error(t, err)
}

func TestGameService_PostChatMessage(t *testing.T) {
	svc, notifier, db := newTestService(t, 8)
	ctx := context.Background()

	game, err := svc.CreateGame(ctx, &CreateGameRequest{JoinPassword: "pw"})
	require.NoError(t, err)
	resp, err := svc.JoinGame(ctx, &JoinGameRequest{GameID: game.ID, PlayerName: "A", JoinPassword: "pw"})
	require.NoError(t, err)

	msg, err := svc.PostChatMessage(ctx, &PostChatMessageRequest{
		GameID:   game.ID,
		PlayerID: resp.Player.ID,
		Content:  "hello",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	assert.True(t, notifier.has("chat_message:"+game.ID))

	chatRepo := repository.NewChatRepository(db)
	chat, err := chatRepo.GetChat(ctx, "", game.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, chat.NumberOfMessages)
	repository.AssertChatCounter(t, db, chat.ID)

	// 陌生玩家不能发言
	_, err = svc.PostChatMessage(ctx, &PostChatMessageRequest{
		GameID:   game.ID,
		PlayerID: "stranger",
		Content:  "hi",
	})
	require.Error(t, err)
}

func TestGameService_UpdateGame_Notifies(t *testing.T) {
	svc, notifier, db := newTestService(t, 8)
	ctx := context.Background()

	game, err := svc.CreateGame(ctx, &CreateGameRequest{JoinPassword: "pw"})
	require.NoError(t, err)
	resp, err := svc.JoinGame(ctx, &JoinGameRequest{GameID: game.ID, PlayerName: "A", JoinPassword: "pw"})
	require.NoError(t, err)

	state := models.GameStateInProgress
	players := []models.Player{*resp.Player}
	claims := []models.Claim{}
	chat, err := repository.NewChatRepository(db).GetChat(ctx, "", game.ID)
	require.NoError(t, err)

	updated, err := svc.UpdateGame(ctx, &models.UpdateGameDTO{
		ID:      game.ID,
		State:   &state,
		Players: &players,
		Claims:  &claims,
		Chat:    chat,
	})
	require.NoError(t, err)
	assert.Equal(t, models.GameStateInProgress, updated.State)
	assert.True(t, notifier.has("game_updated:"+game.ID))
}

func TestGameService_DeleteGame_Notifies(t *testing.T) {
	svc, notifier, _ := newTestService(t, 8)
	ctx := context.Background()

	game, err := svc.CreateGame(ctx, &CreateGameRequest{JoinPassword: "pw"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteGame(ctx, game.ID))
	assert.True(t, notifier.has("game_deleted:"+game.ID))

	_, err = svc.GetGame(ctx, game.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrGameNotFound))
}

func TestGameService_ListGames(t *testing.T) {
	svc, _, _ := newTestService(t, 8)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.CreateGame(ctx, &CreateGameRequest{JoinPassword: "pw"})
		require.NoError(t, err)
	}

	result, err := svc.ListGames(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.Total)
	assert.Len(t, result.Games, 2)
}
