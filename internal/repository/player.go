package repository

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/wfunc/card-game/internal/errors"
	"github.com/wfunc/card-game/internal/models"
	"gorm.io/gorm"
)

// PlayerRepository 玩家仓储接口
type PlayerRepository interface {
	BaseRepository
	Create(ctx context.Context, player *models.Player) error
	Update(ctx context.Context, dto *models.UpdatePlayerDTO) (*models.Player, error)
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*models.Player, error)
	// FindByGameID 返回游戏内全部玩家并装配手牌，没有任何玩家时返回NotFound
	FindByGameID(ctx context.Context, gameID string) ([]models.Player, error)
	DeleteByGameID(ctx context.Context, gameID string) error
}

// playerRepo 玩家仓储实现
type playerRepo struct {
	*BaseRepo
	cardRepo CardRepository
}

// NewPlayerRepository 创建玩家仓储
func NewPlayerRepository(db *gorm.DB) PlayerRepository {
	return &playerRepo{
		BaseRepo: &BaseRepo{db: db},
		cardRepo: NewCardRepository(db),
	}
}

// Create 创建玩家
func (r *playerRepo) Create(ctx context.Context, player *models.Player) error {
	if player.ID == "" {
		player.ID = uuid.NewString()
	}
	if player.JoinedAt.IsZero() {
		player.JoinedAt = time.Now()
	}
	if err := r.db.WithContext(ctx).Create(player).Error; err != nil {
		return errors.Wrap(err, errors.ErrDatabaseInsert).WithData(player)
	}
	return nil
}

// Update 按DTO中出现的字段动态更新玩家，返回更新后的行
func (r *playerRepo) Update(ctx context.Context, dto *models.UpdatePlayerDTO) (*models.Player, error) {
	updates := map[string]interface{}{}
	if dto.Name != nil {
		updates["name"] = *dto.Name
	}
	if dto.Score != nil {
		updates["score"] = *dto.Score
	}
	if dto.LastTimeUpdateRequested != nil {
		updates["last_time_update_requested"] = *dto.LastTimeUpdateRequested
	}

	if len(updates) > 0 {
		if err := r.db.WithContext(ctx).
			Model(&models.Player{}).
			Where("id = ?", dto.ID).
			Updates(updates).Error; err != nil {
			return nil, errors.Wrap(err, errors.ErrDatabaseUpdate).WithData(dto)
		}
	}

	var player models.Player
	if err := r.db.WithContext(ctx).Where("id = ?", dto.ID).First(&player).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Newf(errors.ErrNotFound, "玩家不存在: %s", dto.ID).WithData(dto)
		}
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery).WithData(dto)
	}
	return &player, nil
}

// Delete 删除玩家
func (r *playerRepo) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Player{}).Error; err != nil {
		return errors.Wrap(err, errors.ErrDatabaseDelete).WithData(id)
	}
	return nil
}

// FindByID 根据ID查找玩家并装配手牌
func (r *playerRepo) FindByID(ctx context.Context, id string) (*models.Player, error) {
	var player models.Player
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&player).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Newf(errors.ErrNotFound, "玩家不存在: %s", id)
		}
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery).WithData(id)
	}

	cards, err := r.cardRepo.FindByPlayerID(ctx, player.ID)
	if err != nil {
		return nil, err
	}
	player.AssignedCards = cards
	return &player, nil
}

// FindByGameID 获取游戏内全部玩家
//
// 手牌通过一次批量查询取回后按玩家分组装配。
func (r *playerRepo) FindByGameID(ctx context.Context, gameID string) ([]models.Player, error) {
	var players []models.Player
	err := r.db.WithContext(ctx).
		Where("game_id = ?", gameID).
		Order("joined_at").
		Find(&players).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery).WithData(gameID)
	}

	if len(players) == 0 {
		return nil, errors.Newf(errors.ErrNotFound, "游戏内没有玩家: %s", gameID).WithData(gameID)
	}

	playerIDs := make([]string, 0, len(players))
	for _, p := range players {
		playerIDs = append(playerIDs, p.ID)
	}

	grouped, err := r.cardRepo.FindByPlayerIDs(ctx, playerIDs)
	if err != nil {
		return nil, err
	}

	for i := range players {
		cards, ok := grouped[players[i].ID]
		if !ok {
			cards = []models.Card{}
		}
		players[i].AssignedCards = cards
	}
	return players, nil
}

// DeleteByGameID 删除游戏内全部玩家
func (r *playerRepo) DeleteByGameID(ctx context.Context, gameID string) error {
	if err := r.db.WithContext(ctx).Where("game_id = ?", gameID).Delete(&models.Player{}).Error; err != nil {
		return errors.Wrap(err, errors.ErrDatabaseDelete).WithData(gameID)
	}
	return nil
}

// WithTx 使用事务
func (r *playerRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &playerRepo{
		BaseRepo: &BaseRepo{db: tx},
		cardRepo: NewCardRepository(tx),
	}
}
