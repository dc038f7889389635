package repository

import (
	"context"
	stderrors "errors"

	"github.com/google/uuid"
	"github.com/wfunc/card-game/internal/errors"
	"github.com/wfunc/card-game/internal/models"
	"gorm.io/gorm"
)

// ClaimRepository 声明仓储接口
type ClaimRepository interface {
	BaseRepository
	Create(ctx context.Context, claim *models.Claim) error
	Update(ctx context.Context, dto *models.UpdateClaimDTO) (*models.Claim, error)
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*models.Claim, error)
	FindByGameID(ctx context.Context, gameID string) ([]models.Claim, error)
	// FindAll 按game_id或created_by过滤，两者都给时game_id优先
	FindAll(ctx context.Context, gameID, createdBy string) ([]models.Claim, error)
	DeleteByGameID(ctx context.Context, gameID string) error
	// Reconcile 同步声明集合，返回同步后游戏内全部声明的重新读取结果
	Reconcile(ctx context.Context, gameID string, desired []models.Claim, legacySlot bool) ([]models.Claim, error)
}

// claimRepo 声明仓储实现
type claimRepo struct {
	*BaseRepo
	cardRepo CardRepository
}

// NewClaimRepository 创建声明仓储
func NewClaimRepository(db *gorm.DB) ClaimRepository {
	return &claimRepo{
		BaseRepo: &BaseRepo{db: db},
		cardRepo: NewCardRepository(db),
	}
}

// Create 创建声明并把关联卡牌归属到该声明
func (r *claimRepo) Create(ctx context.Context, claim *models.Claim) error {
	if claim.ID == "" {
		claim.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(claim).Error; err != nil {
		return errors.Wrap(err, errors.ErrDatabaseInsert).WithData(claim)
	}

	// 卡牌改写claim_id外键归属到新声明，不做删除重建
	for i := range claim.Cards {
		claimID := claim.ID
		if _, err := r.cardRepo.Update(ctx, &models.UpdateCardDTO{
			ID:      claim.Cards[i].ID,
			ClaimID: &claimID,
		}); err != nil {
			return err
		}
	}
	return nil
}

// Update 按DTO中出现的字段动态更新声明，返回更新后的行
func (r *claimRepo) Update(ctx context.Context, dto *models.UpdateClaimDTO) (*models.Claim, error) {
	updates := map[string]interface{}{}
	if dto.CreatedBy != nil {
		updates["created_by"] = *dto.CreatedBy
	}
	if dto.NumberOfCards != nil {
		updates["number_of_cards"] = *dto.NumberOfCards
	}

	if len(updates) > 0 {
		if err := r.db.WithContext(ctx).
			Model(&models.Claim{}).
			Where("id = ?", dto.ID).
			Updates(updates).Error; err != nil {
			return nil, errors.Wrap(err, errors.ErrDatabaseUpdate).WithData(dto)
		}
	}

	// 更新后必须能读回该行，否则视为目标行不存在
	return r.FindByID(ctx, dto.ID)
}

// Delete 删除声明
func (r *claimRepo) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Claim{}).Error; err != nil {
		return errors.Wrap(err, errors.ErrDatabaseDelete).WithData(id)
	}
	return nil
}

// FindByID 根据ID查找声明并装配卡牌
func (r *claimRepo) FindByID(ctx context.Context, id string) (*models.Claim, error) {
	var claim models.Claim
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&claim).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Newf(errors.ErrNotFound, "声明不存在: %s", id)
		}
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery).WithData(id)
	}

	cards, err := r.cardRepo.FindByClaimID(ctx, claim.ID)
	if err != nil {
		return nil, err
	}
	claim.Cards = cards
	return &claim, nil
}

// FindByGameID 获取游戏内全部声明
//
// 卡牌通过一次批量查询取回后按声明分组装配。
func (r *claimRepo) FindByGameID(ctx context.Context, gameID string) ([]models.Claim, error) {
	var claims []models.Claim
	err := r.db.WithContext(ctx).Where("game_id = ?", gameID).Find(&claims).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery).WithData(gameID)
	}
	return r.hydrateCards(ctx, claims)
}

// FindAll 按过滤条件获取声明
func (r *claimRepo) FindAll(ctx context.Context, gameID, createdBy string) ([]models.Claim, error) {
	if gameID == "" && createdBy == "" {
		return nil, errors.New(errors.ErrInvalidParam, "game_id和created_by至少提供一个")
	}
	if gameID != "" {
		return r.FindByGameID(ctx, gameID)
	}

	var claims []models.Claim
	err := r.db.WithContext(ctx).Where("created_by = ?", createdBy).Find(&claims).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery).WithData(createdBy)
	}
	return r.hydrateCards(ctx, claims)
}

// hydrateCards 批量装配声明的卡牌集合
func (r *claimRepo) hydrateCards(ctx context.Context, claims []models.Claim) ([]models.Claim, error) {
	if len(claims) == 0 {
		return []models.Claim{}, nil
	}

	claimIDs := make([]string, 0, len(claims))
	for _, c := range claims {
		claimIDs = append(claimIDs, c.ID)
	}

	grouped, err := r.cardRepo.FindByClaimIDs(ctx, claimIDs)
	if err != nil {
		return nil, err
	}

	for i := range claims {
		cards, ok := grouped[claims[i].ID]
		if !ok {
			cards = []models.Card{}
		}
		claims[i].Cards = cards
	}
	return claims, nil
}

// DeleteByGameID 删除游戏内全部声明
func (r *claimRepo) DeleteByGameID(ctx context.Context, gameID string) error {
	if err := r.db.WithContext(ctx).Where("game_id = ?", gameID).Delete(&models.Claim{}).Error; err != nil {
		return errors.Wrap(err, errors.ErrDatabaseDelete).WithData(gameID)
	}
	return nil
}

// Reconcile 同步声明集合
//
// 空的期望集合表示清空游戏内全部声明。非空集合只插入一个元素：
// legacySlot为true时沿用旧版契约取下标1的元素（少于两个元素时报错），
// 否则取末尾元素（最近追加的声明）。返回值总是重新读取的全量声明。
func (r *claimRepo) Reconcile(ctx context.Context, gameID string, desired []models.Claim, legacySlot bool) ([]models.Claim, error) {
	if desired == nil {
		return nil, errors.New(errors.ErrNilCollection).WithOp("ClaimRepository.Reconcile")
	}

	if len(desired) == 0 {
		if err := r.DeleteByGameID(ctx, gameID); err != nil {
			return nil, err
		}
		return []models.Claim{}, nil
	}

	var toInsert models.Claim
	if legacySlot {
		if len(desired) < 2 {
			return nil, errors.Newf(errors.ErrInvalidParam, "旧版声明契约要求至少两个元素，实际 %d 个", len(desired)).
				WithOp("ClaimRepository.Reconcile")
		}
		toInsert = desired[1]
	} else {
		toInsert = desired[len(desired)-1]
	}

	toInsert.GameID = gameID
	if err := r.Create(ctx, &toInsert); err != nil {
		return nil, err
	}

	return r.FindByGameID(ctx, gameID)
}

// WithTx 使用事务
func (r *claimRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &claimRepo{
		BaseRepo: &BaseRepo{db: tx},
		cardRepo: NewCardRepository(tx),
	}
}
