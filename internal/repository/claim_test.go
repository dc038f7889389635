package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/card-game/internal/errors"
	"github.com/wfunc/card-game/internal/models"
)

func TestClaimRepository_Create_AssignsCards(t *testing.T) {
	db := TestDB(t)
	repo := NewClaimRepository(db)
	cardRepo := NewCardRepository(db)
	ctx := context.Background()

	game := SeedTestGame(t, db)
	player := SeedTestPlayer(t, db, game.ID, "Alice")

	c1 := CreateTestCard(models.RankTwo, models.SuitClubs)
	c2 := CreateTestCard(models.RankTwo, models.SuitHearts)
	require.NoError(t, cardRepo.Create(ctx, c1))
	require.NoError(t, cardRepo.Create(ctx, c2))

	claim := &models.Claim{
		CreatedBy:     player.ID,
		NumberOfCards: 2,
		GameID:        game.ID,
		Cards:         []models.Card{*c1, *c2},
	}
	require.NoError(t, repo.Create(ctx, claim))
	assert.NotEmpty(t, claim.ID)

	found, err := repo.FindByID(ctx, claim.ID)
	require.NoError(t, err)
	assert.Len(t, found.Cards, 2, "卡牌外键应已改写到该声明")
}

func TestClaimRepository_Update_Partial(t *testing.T) {
	db := TestDB(t)
	repo := NewClaimRepository(db)
	ctx := context.Background()

	game := SeedTestGame(t, db)
	alice := SeedTestPlayer(t, db, game.ID, "Alice")
	bob := SeedTestPlayer(t, db, game.ID, "Bob")

	claim := &models.Claim{CreatedBy: alice.ID, NumberOfCards: 2, GameID: game.ID}
	require.NoError(t, repo.Create(ctx, claim))

	count := 4
	updated, err := repo.Update(ctx, &models.UpdateClaimDTO{
		ID:            claim.ID,
		NumberOfCards: &count,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, updated.NumberOfCards)
	assert.Equal(t, alice.ID, updated.CreatedBy, "未出现的字段不被修改")

	updated, err = repo.Update(ctx, &models.UpdateClaimDTO{
		ID:        claim.ID,
		CreatedBy: &bob.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, bob.ID, updated.CreatedBy)
	assert.Equal(t, 4, updated.NumberOfCards)
}

func TestClaimRepository_Update_NotFound(t *testing.T) {
	db := TestDB(t)
	repo := NewClaimRepository(db)

	count := 1
	_, err := repo.Update(context.Background(), &models.UpdateClaimDTO{
		ID:            "missing",
		NumberOfCards: &count,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestClaimRepository_FindByGameID_BatchHydration(t *testing.T) {
	db := TestDB(t)
	repo := NewClaimRepository(db)
	cardRepo := NewCardRepository(db)
	ctx := context.Background()

	game := SeedTestGame(t, db)
	player := SeedTestPlayer(t, db, game.ID, "Alice")

	for i := 0; i < 2; i++ {
		card := CreateTestCard(models.CardRank(i), models.SuitSpades)
		require.NoError(t, cardRepo.Create(ctx, card))
		claim := &models.Claim{
			CreatedBy:     player.ID,
			NumberOfCards: 1,
			GameID:        game.ID,
			Cards:         []models.Card{*card},
		}
		require.NoError(t, repo.Create(ctx, claim))
	}

	claims, err := repo.FindByGameID(ctx, game.ID)
	require.NoError(t, err)
	require.Len(t, claims, 2)
	for _, c := range claims {
		assert.Len(t, c.Cards, 1)
	}
}

func TestClaimRepository_FindAll_GameIDTakesPrecedence(t *testing.T) {
	db := TestDB(t)
	repo := NewClaimRepository(db)
	ctx := context.Background()

	game := SeedTestGame(t, db)
	other := SeedTestGame(t, db)
	player := SeedTestPlayer(t, db, game.ID, "Alice")

	require.NoError(t, repo.Create(ctx, &models.Claim{ID: "in-game", CreatedBy: player.ID, GameID: game.ID}))
	require.NoError(t, repo.Create(ctx, &models.Claim{ID: "elsewhere", CreatedBy: player.ID, GameID: other.ID}))

	// 两个过滤条件都给时按game_id过滤
	claims, err := repo.FindAll(ctx, game.ID, player.ID)
	require.NoError(t, err)
	require.Len(t, claims, 1)
	assert.Equal(t, "in-game", claims[0].ID)

	// 只给created_by时跨游戏返回该玩家的全部声明
	claims, err = repo.FindAll(ctx, "", player.ID)
	require.NoError(t, err)
	assert.Len(t, claims, 2)

	_, err = repo.FindAll(ctx, "", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidParam))
}

func TestClaimRepository_FindByGameID_EmptyIsOK(t *testing.T) {
	db := TestDB(t)
	repo := NewClaimRepository(db)

	game := SeedTestGame(t, db)

	claims, err := repo.FindByGameID(context.Background(), game.ID)
	require.NoError(t, err)
	assert.Empty(t, claims)
}

func TestClaimRepository_Reconcile_NilRejected(t *testing.T) {
	db := TestDB(t)
	repo := NewClaimRepository(db)

	game := SeedTestGame(t, db)

	_, err := repo.Reconcile(context.Background(), game.ID, nil, true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNilCollection))
}

func TestClaimRepository_Reconcile_EmptyClearsAll(t *testing.T) {
	db := TestDB(t)
	repo := NewClaimRepository(db)
	ctx := context.Background()

	game := SeedTestGame(t, db)
	player := SeedTestPlayer(t, db, game.ID, "Alice")
	require.NoError(t, repo.Create(ctx, &models.Claim{CreatedBy: player.ID, GameID: game.ID}))

	result, err := repo.Reconcile(ctx, game.ID, []models.Claim{}, true)
	require.NoError(t, err)
	assert.Empty(t, result)

	var count int64
	require.NoError(t, db.Model(&models.Claim{}).Where("game_id = ?", game.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestClaimRepository_Reconcile_LegacySlotInsertsIndexOne(t *testing.T) {
	db := TestDB(t)
	repo := NewClaimRepository(db)
	ctx := context.Background()

	game := SeedTestGame(t, db)
	player := SeedTestPlayer(t, db, game.ID, "Alice")

	desired := []models.Claim{
		{ID: "slot-0", CreatedBy: player.ID, NumberOfCards: 1},
		{ID: "slot-1", CreatedBy: player.ID, NumberOfCards: 2},
		{ID: "slot-2", CreatedBy: player.ID, NumberOfCards: 3},
	}

	result, err := repo.Reconcile(ctx, game.ID, desired, true)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "slot-1", result[0].ID, "旧版契约插入下标1的元素")
}

func TestClaimRepository_Reconcile_LegacySlotTooShort(t *testing.T) {
	db := TestDB(t)
	repo := NewClaimRepository(db)

	game := SeedTestGame(t, db)

	desired := []models.Claim{{ID: "only"}}
	_, err := repo.Reconcile(context.Background(), game.ID, desired, true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidParam))
}

func TestClaimRepository_Reconcile_CorrectedSlotInsertsLast(t *testing.T) {
	db := TestDB(t)
	repo := NewClaimRepository(db)
	ctx := context.Background()

	game := SeedTestGame(t, db)
	player := SeedTestPlayer(t, db, game.ID, "Alice")

	desired := []models.Claim{
		{ID: "older", CreatedBy: player.ID},
		{ID: "newest", CreatedBy: player.ID},
	}

	result, err := repo.Reconcile(ctx, game.ID, desired, false)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "newest", result[0].ID, "修正契约插入末尾元素")
}

func TestClaimRepository_Reconcile_ReturnsAllPersisted(t *testing.T) {
	db := TestDB(t)
	repo := NewClaimRepository(db)
	ctx := context.Background()

	game := SeedTestGame(t, db)
	player := SeedTestPlayer(t, db, game.ID, "Alice")
	require.NoError(t, repo.Create(ctx, &models.Claim{ID: "existing", CreatedBy: player.ID, GameID: game.ID}))

	desired := []models.Claim{
		{ID: "a", CreatedBy: player.ID},
		{ID: "b", CreatedBy: player.ID},
	}

	result, err := repo.Reconcile(ctx, game.ID, desired, true)
	require.NoError(t, err)
	// 返回的是全量重新读取，不只是插入的那条
	assert.Len(t, result, 2)

	ids := map[string]bool{}
	for _, c := range result {
		ids[c.ID] = true
	}
	assert.True(t, ids["existing"])
	assert.True(t, ids["b"])
}
