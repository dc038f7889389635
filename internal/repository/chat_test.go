package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/card-game/internal/errors"
	"github.com/wfunc/card-game/internal/models"
)

func TestChatRepository_AddMessage_CounterStaysInSync(t *testing.T) {
	db := TestDB(t)
	repo := NewChatRepository(db)
	ctx := context.Background()

	game := SeedTestGame(t, db)
	player := SeedTestPlayer(t, db, game.ID, "Alice")

	for i := 0; i < 3; i++ {
		err := repo.AddMessage(ctx, game.Chat.ID, &models.ChatMessage{
			PlayerID: player.ID,
			Content:  "hello",
		})
		require.NoError(t, err)
		AssertChatCounter(t, db, game.Chat.ID)
	}

	chat, err := repo.GetChat(ctx, game.Chat.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 3, chat.NumberOfMessages)
	assert.Len(t, chat.Messages, 3)
}

func TestChatRepository_RemoveMessage_CounterStaysInSync(t *testing.T) {
	db := TestDB(t)
	repo := NewChatRepository(db)
	ctx := context.Background()

	game := SeedTestGame(t, db)
	player := SeedTestPlayer(t, db, game.ID, "Alice")
	m1 := SeedTestMessage(t, db, game.Chat.ID, player.ID, "one")
	SeedTestMessage(t, db, game.Chat.ID, player.ID, "two")

	require.NoError(t, repo.RemoveMessage(ctx, game.Chat.ID, m1.ID))
	AssertChatCounter(t, db, game.Chat.ID)

	chat, err := repo.GetChat(ctx, game.Chat.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 1, chat.NumberOfMessages)
	require.Len(t, chat.Messages, 1)
	assert.Equal(t, "two", chat.Messages[0].Content)
}

func TestChatRepository_RemoveMessage_MissingMessageRejected(t *testing.T) {
	db := TestDB(t)
	repo := NewChatRepository(db)
	ctx := context.Background()

	game := SeedTestGame(t, db)
	player := SeedTestPlayer(t, db, game.ID, "Alice")
	SeedTestMessage(t, db, game.Chat.ID, player.ID, "one")
	SeedTestMessage(t, db, game.Chat.ID, player.ID, "two")

	err := repo.RemoveMessage(ctx, game.Chat.ID, "no-such-message")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	// 拒绝时计数器不动，行数不变
	chat, err := repo.GetChat(ctx, game.Chat.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 2, chat.NumberOfMessages)
	assert.Len(t, chat.Messages, 2)
	AssertChatCounter(t, db, game.Chat.ID)
}

func TestChatRepository_RemoveMessage_OtherChatsMessageRejected(t *testing.T) {
	db := TestDB(t)
	repo := NewChatRepository(db)
	ctx := context.Background()

	gameA := SeedTestGame(t, db)
	gameB := SeedTestGame(t, db)
	alice := SeedTestPlayer(t, db, gameA.ID, "Alice")
	bob := SeedTestPlayer(t, db, gameB.ID, "Bob")
	SeedTestMessage(t, db, gameA.Chat.ID, alice.ID, "in-a")
	other := SeedTestMessage(t, db, gameB.Chat.ID, bob.ID, "in-b")

	err := repo.RemoveMessage(ctx, gameA.Chat.ID, other.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	// 两个会话都不应被改动
	AssertChatCounter(t, db, gameA.Chat.ID)
	AssertChatCounter(t, db, gameB.Chat.ID)
	_, err = repo.GetChat(ctx, gameB.Chat.ID, "")
	require.NoError(t, err)
}

func TestChatRepository_AddMessage_FailedInsertRestoresCounter(t *testing.T) {
	db := TestDB(t)
	repo := NewChatRepository(db)
	ctx := context.Background()

	game := SeedTestGame(t, db)
	player := SeedTestPlayer(t, db, game.ID, "Alice")
	existing := SeedTestMessage(t, db, game.Chat.ID, player.ID, "one")

	// 重复主键让行插入失败，计数器应被补偿回原值
	err := repo.AddMessage(ctx, game.Chat.ID, &models.ChatMessage{
		ID:       existing.ID,
		PlayerID: player.ID,
		Content:  "duplicate",
	})
	require.Error(t, err)

	chat, err := repo.GetChat(ctx, game.Chat.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 1, chat.NumberOfMessages)
	assert.Len(t, chat.Messages, 1)
	AssertChatCounter(t, db, game.Chat.ID)
}

func TestChatRepository_RemoveMessage_ZeroCounterRejected(t *testing.T) {
	db := TestDB(t)
	repo := NewChatRepository(db)
	ctx := context.Background()

	game := SeedTestGame(t, db)

	err := repo.RemoveMessage(ctx, game.Chat.ID, "whatever")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCounterZero))

	// 拒绝时不应有任何写入
	var chat models.Chat
	require.NoError(t, db.Where("id = ?", game.Chat.ID).First(&chat).Error)
	assert.Zero(t, chat.NumberOfMessages)
}

func TestChatRepository_GetChat_GameIDTakesPrecedence(t *testing.T) {
	db := TestDB(t)
	repo := NewChatRepository(db)
	ctx := context.Background()

	gameA := SeedTestGame(t, db)
	gameB := SeedTestGame(t, db)

	// 同时给出chat_id和game_id时按game_id查
	chat, err := repo.GetChat(ctx, gameA.Chat.ID, gameB.ID)
	require.NoError(t, err)
	assert.Equal(t, gameB.Chat.ID, chat.ID)
}

func TestChatRepository_GetChat_RequiresOneFilter(t *testing.T) {
	db := TestDB(t)
	repo := NewChatRepository(db)

	_, err := repo.GetChat(context.Background(), "", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidParam))
}

func TestChatRepository_Reconcile_Idempotent(t *testing.T) {
	db := TestDB(t)
	repo := NewChatRepository(db)
	ctx := context.Background()

	game := SeedTestGame(t, db)
	player := SeedTestPlayer(t, db, game.ID, "Alice")
	SeedTestMessage(t, db, game.Chat.ID, player.ID, "one")
	SeedTestMessage(t, db, game.Chat.ID, player.ID, "two")

	current, err := repo.GetChat(ctx, game.Chat.ID, "")
	require.NoError(t, err)

	// 用当前状态同步自身应是无操作
	result, err := repo.Reconcile(ctx, current)
	require.NoError(t, err)
	assert.Equal(t, current, result)

	after, err := repo.GetChat(ctx, game.Chat.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 2, after.NumberOfMessages)
	assert.Len(t, after.Messages, 2)
	AssertChatCounter(t, db, game.Chat.ID)
}

func TestChatRepository_Reconcile_DiffBothDirections(t *testing.T) {
	db := TestDB(t)
	repo := NewChatRepository(db)
	ctx := context.Background()

	game := SeedTestGame(t, db)
	player := SeedTestPlayer(t, db, game.ID, "Alice")
	m1 := SeedTestMessage(t, db, game.Chat.ID, player.ID, "m1")
	m2 := SeedTestMessage(t, db, game.Chat.ID, player.ID, "m2")

	m3 := models.ChatMessage{ID: "m3-id", PlayerID: player.ID, Content: "m3"}
	desired := &models.Chat{
		ID:               game.Chat.ID,
		GameID:           game.ID,
		NumberOfMessages: 2,
		Messages:         []models.ChatMessage{*m2, m3},
	}

	result, err := repo.Reconcile(ctx, desired)
	require.NoError(t, err)
	// 返回期望对象本身，不回读
	assert.Equal(t, desired, result)

	after, err := repo.GetChat(ctx, game.Chat.ID, "")
	require.NoError(t, err)
	require.Len(t, after.Messages, 2)

	ids := map[string]bool{}
	for _, m := range after.Messages {
		ids[m.ID] = true
	}
	assert.False(t, ids[m1.ID], "m1应被删除")
	assert.True(t, ids[m2.ID], "m2应保留")
	assert.True(t, ids["m3-id"], "m3应被插入")
	AssertChatCounter(t, db, game.Chat.ID)
}

func TestChatRepository_Reconcile_ZeroCountClearsAll(t *testing.T) {
	db := TestDB(t)
	repo := NewChatRepository(db)
	ctx := context.Background()

	game := SeedTestGame(t, db)
	player := SeedTestPlayer(t, db, game.ID, "Alice")
	SeedTestMessage(t, db, game.Chat.ID, player.ID, "one")
	SeedTestMessage(t, db, game.Chat.ID, player.ID, "two")

	desired := &models.Chat{
		ID:               game.Chat.ID,
		GameID:           game.ID,
		NumberOfMessages: 0,
	}

	_, err := repo.Reconcile(ctx, desired)
	require.NoError(t, err)

	after, err := repo.GetChat(ctx, game.Chat.ID, "")
	require.NoError(t, err)
	assert.Zero(t, after.NumberOfMessages)
	assert.Empty(t, after.Messages)
}

func TestChatRepository_Reconcile_NilRejected(t *testing.T) {
	db := TestDB(t)
	repo := NewChatRepository(db)

	_, err := repo.Reconcile(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNilCollection))
}

func TestChatRepository_Delete_RemovesMessages(t *testing.T) {
	db := TestDB(t)
	repo := NewChatRepository(db)
	ctx := context.Background()

	game := SeedTestGame(t, db)
	player := SeedTestPlayer(t, db, game.ID, "Alice")
	SeedTestMessage(t, db, game.Chat.ID, player.ID, "one")

	require.NoError(t, repo.Delete(ctx, game.Chat.ID))

	var msgCount int64
	require.NoError(t, db.Model(&models.ChatMessage{}).Where("chat_id = ?", game.Chat.ID).Count(&msgCount).Error)
	assert.Zero(t, msgCount)

	_, err := repo.GetChat(ctx, game.Chat.ID, "")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}
