package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/card-game/internal/errors"
	"github.com/wfunc/card-game/internal/models"
)

func TestPlayerRepository_Create(t *testing.T) {
	db := TestDB(t)
	repo := NewPlayerRepository(db)
	ctx := context.Background()

	game := SeedTestGame(t, db)

	player := &models.Player{Name: "Alice", GameID: game.ID}
	require.NoError(t, repo.Create(ctx, player))
	assert.NotEmpty(t, player.ID)
	assert.False(t, player.JoinedAt.IsZero())
}

func TestPlayerRepository_Update_PartialFields(t *testing.T) {
	db := TestDB(t)
	repo := NewPlayerRepository(db)
	ctx := context.Background()

	game := SeedTestGame(t, db)
	player := SeedTestPlayer(t, db, game.ID, "Alice")

	score := 42
	updated, err := repo.Update(ctx, &models.UpdatePlayerDTO{
		ID:    player.ID,
		Score: &score,
	})
	require.NoError(t, err)
	assert.Equal(t, 42, updated.Score)
	assert.Equal(t, "Alice", updated.Name, "未出现在DTO中的字段不应被修改")

	name := "Alicia"
	ts := time.Now().Add(time.Minute)
	updated, err = repo.Update(ctx, &models.UpdatePlayerDTO{
		ID:                      player.ID,
		Name:                    &name,
		LastTimeUpdateRequested: &ts,
	})
	require.NoError(t, err)
	assert.Equal(t, "Alicia", updated.Name)
	assert.Equal(t, 42, updated.Score)
}

func TestPlayerRepository_Update_MissingRow(t *testing.T) {
	db := TestDB(t)
	repo := NewPlayerRepository(db)

	name := "ghost"
	_, err := repo.Update(context.Background(), &models.UpdatePlayerDTO{ID: "missing", Name: &name})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestPlayerRepository_FindByGameID(t *testing.T) {
	db := TestDB(t)
	repo := NewPlayerRepository(db)
	cardRepo := NewCardRepository(db)
	ctx := context.Background()

	game := SeedTestGame(t, db)
	alice := SeedTestPlayer(t, db, game.ID, "Alice")
	SeedTestPlayer(t, db, game.ID, "Bob")

	// 手牌应随玩家一并装配
	card := CreateTestCard(models.RankQueen, models.SuitSpades)
	card.PlayerID = &alice.ID
	require.NoError(t, cardRepo.Create(ctx, card))

	players, err := repo.FindByGameID(ctx, game.ID)
	require.NoError(t, err)
	require.Len(t, players, 2)

	for _, p := range players {
		if p.ID == alice.ID {
			assert.Len(t, p.AssignedCards, 1)
		} else {
			assert.Empty(t, p.AssignedCards)
		}
	}
}

func TestPlayerRepository_FindByGameID_EmptyIsNotFound(t *testing.T) {
	db := TestDB(t)
	repo := NewPlayerRepository(db)

	game := SeedTestGame(t, db)

	_, err := repo.FindByGameID(context.Background(), game.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestPlayerRepository_DeleteByGameID(t *testing.T) {
	db := TestDB(t)
	repo := NewPlayerRepository(db)
	ctx := context.Background()

	game := SeedTestGame(t, db)
	SeedTestPlayer(t, db, game.ID, "Alice")
	SeedTestPlayer(t, db, game.ID, "Bob")

	require.NoError(t, repo.DeleteByGameID(ctx, game.ID))

	var count int64
	require.NoError(t, db.Model(&models.Player{}).Where("game_id = ?", game.ID).Count(&count).Error)
	assert.Zero(t, count)
}
