package repository

import (
	"context"
	stderrors "errors"

	"github.com/google/uuid"
	"github.com/wfunc/card-game/internal/errors"
	"github.com/wfunc/card-game/internal/models"
	"gorm.io/gorm"
)

// CardRepository 卡牌仓储接口
//
// 卡牌的归属（player_id/claim_id）通过UpdateCardDTO改写外键完成，
// 按归属方批量查询时一次取回再按外键分组，避免逐行查询。
type CardRepository interface {
	BaseRepository
	Create(ctx context.Context, card *models.Card) error
	Update(ctx context.Context, dto *models.UpdateCardDTO) (*models.Card, error)
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*models.Card, error)
	FindByPlayerID(ctx context.Context, playerID string) ([]models.Card, error)
	FindByClaimID(ctx context.Context, claimID string) ([]models.Card, error)
	// FindByOwner 按claim_id或player_id过滤，两者都给时claim_id优先
	FindByOwner(ctx context.Context, claimID, playerID string) ([]models.Card, error)
	FindByPlayerIDs(ctx context.Context, playerIDs []string) (map[string][]models.Card, error)
	FindByClaimIDs(ctx context.Context, claimIDs []string) (map[string][]models.Card, error)
	GetAll(ctx context.Context, pagination *Pagination) ([]*models.Card, error)
}

// cardRepo 卡牌仓储实现
type cardRepo struct {
	*BaseRepo
}

// NewCardRepository 创建卡牌仓储
func NewCardRepository(db *gorm.DB) CardRepository {
	return &cardRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建卡牌
func (r *cardRepo) Create(ctx context.Context, card *models.Card) error {
	if card.ID == "" {
		card.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(card).Error; err != nil {
		return errors.Wrap(err, errors.ErrDatabaseInsert).WithData(card)
	}
	return nil
}

// Update 按DTO中出现的字段动态更新卡牌，返回更新后的行
func (r *cardRepo) Update(ctx context.Context, dto *models.UpdateCardDTO) (*models.Card, error) {
	updates := map[string]interface{}{}
	if dto.Rank != nil {
		updates["rank"] = *dto.Rank
	}
	if dto.PlayerID != nil {
		updates["player_id"] = *dto.PlayerID
	}
	if dto.ClaimID != nil {
		updates["claim_id"] = *dto.ClaimID
	}

	if len(updates) > 0 {
		if err := r.db.WithContext(ctx).
			Model(&models.Card{}).
			Where("id = ?", dto.ID).
			Updates(updates).Error; err != nil {
			return nil, errors.Wrap(err, errors.ErrDatabaseUpdate).WithData(dto)
		}
	}

	// 更新后必须能读回该行，否则视为目标行不存在
	var card models.Card
	if err := r.db.WithContext(ctx).Where("id = ?", dto.ID).First(&card).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Newf(errors.ErrNotFound, "卡牌不存在: %s", dto.ID).WithData(dto)
		}
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery).WithData(dto)
	}
	return &card, nil
}

// Delete 删除卡牌
func (r *cardRepo) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Card{}).Error; err != nil {
		return errors.Wrap(err, errors.ErrDatabaseDelete).WithData(id)
	}
	return nil
}

// FindByID 根据ID查找卡牌
func (r *cardRepo) FindByID(ctx context.Context, id string) (*models.Card, error) {
	var card models.Card
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&card).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Newf(errors.ErrNotFound, "卡牌不存在: %s", id)
		}
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery).WithData(id)
	}
	return &card, nil
}

// FindByPlayerID 查找玩家手牌
func (r *cardRepo) FindByPlayerID(ctx context.Context, playerID string) ([]models.Card, error) {
	var cards []models.Card
	err := r.db.WithContext(ctx).Where("player_id = ?", playerID).Find(&cards).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery).WithData(playerID)
	}
	return cards, nil
}

// FindByClaimID 查找声明关联的卡牌
func (r *cardRepo) FindByClaimID(ctx context.Context, claimID string) ([]models.Card, error) {
	var cards []models.Card
	err := r.db.WithContext(ctx).Where("claim_id = ?", claimID).Find(&cards).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery).WithData(claimID)
	}
	return cards, nil
}

// FindByOwner 按归属方查找卡牌
func (r *cardRepo) FindByOwner(ctx context.Context, claimID, playerID string) ([]models.Card, error) {
	if claimID == "" && playerID == "" {
		return nil, errors.New(errors.ErrInvalidParam, "claim_id和player_id至少提供一个")
	}
	if claimID != "" {
		return r.FindByClaimID(ctx, claimID)
	}
	return r.FindByPlayerID(ctx, playerID)
}

// FindByPlayerIDs 批量查找多个玩家的手牌并按玩家分组
func (r *cardRepo) FindByPlayerIDs(ctx context.Context, playerIDs []string) (map[string][]models.Card, error) {
	grouped := make(map[string][]models.Card, len(playerIDs))
	if len(playerIDs) == 0 {
		return grouped, nil
	}

	var cards []models.Card
	err := r.db.WithContext(ctx).Where("player_id IN ?", playerIDs).Find(&cards).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery).WithData(playerIDs)
	}

	for _, card := range cards {
		if card.PlayerID == nil {
			continue
		}
		grouped[*card.PlayerID] = append(grouped[*card.PlayerID], card)
	}
	return grouped, nil
}

// FindByClaimIDs 批量查找多个声明的卡牌并按声明分组
func (r *cardRepo) FindByClaimIDs(ctx context.Context, claimIDs []string) (map[string][]models.Card, error) {
	grouped := make(map[string][]models.Card, len(claimIDs))
	if len(claimIDs) == 0 {
		return grouped, nil
	}

	var cards []models.Card
	err := r.db.WithContext(ctx).Where("claim_id IN ?", claimIDs).Find(&cards).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery).WithData(claimIDs)
	}

	for _, card := range cards {
		if card.ClaimID == nil {
			continue
		}
		grouped[*card.ClaimID] = append(grouped[*card.ClaimID], card)
	}
	return grouped, nil
}

// GetAll 获取所有卡牌（分页）
func (r *cardRepo) GetAll(ctx context.Context, pagination *Pagination) ([]*models.Card, error) {
	var cards []*models.Card
	query := r.db.WithContext(ctx).Model(&models.Card{})

	// 获取总数
	var total int64
	query.Count(&total)
	pagination.Total = total

	// 分页查询
	err := query.
		Scopes(Paginate(pagination)).
		Order("id").
		Find(&cards).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}

	return cards, nil
}

// WithTx 使用事务
func (r *cardRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &cardRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
