package repository

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/wfunc/card-game/internal/config"
	"github.com/wfunc/card-game/internal/errors"
	"github.com/wfunc/card-game/internal/models"
	"gorm.io/gorm"
)

// GameRepository 游戏仓储接口
//
// 聚合根。读路径先取标量行再装配三个子集合，
// 写路径按 标量→玩家→声明→聊天 的固定顺序逐段同步。
// 每条语句独立提交，没有跨语句事务，失败即止不回滚。
type GameRepository interface {
	BaseRepository
	Create(ctx context.Context, game *models.Game) error
	FindByID(ctx context.Context, id string) (*models.Game, error)
	GetAll(ctx context.Context, pagination *Pagination) ([]*models.Game, error)
	UpdateGame(ctx context.Context, dto *models.UpdateGameDTO) (*models.Game, error)
	Delete(ctx context.Context, id string) error
}

// gameRepo 游戏仓储实现
type gameRepo struct {
	*BaseRepo
	playerRepo PlayerRepository
	claimRepo  ClaimRepository
	chatRepo   ChatRepository

	legacyClaimSlot bool
}

// NewGameRepository 创建游戏仓储，声明同步契约从配置读取
func NewGameRepository(db *gorm.DB) GameRepository {
	legacy := true
	if cfg := config.Get(); cfg != nil {
		legacy = cfg.Game.LegacyClaimSlot
	}
	return NewGameRepositoryWithClaimSlot(db, legacy)
}

// NewGameRepositoryWithClaimSlot 创建游戏仓储并显式指定声明同步契约
func NewGameRepositoryWithClaimSlot(db *gorm.DB, legacyClaimSlot bool) GameRepository {
	return &gameRepo{
		BaseRepo:        &BaseRepo{db: db},
		playerRepo:      NewPlayerRepository(db),
		claimRepo:       NewClaimRepository(db),
		chatRepo:        NewChatRepository(db),
		legacyClaimSlot: legacyClaimSlot,
	}
}

// Create 创建游戏
//
// 同时建立1:1的聊天会话，附带的玩家一并落库。
func (r *gameRepo) Create(ctx context.Context, game *models.Game) error {
	if game.ID == "" {
		game.ID = uuid.NewString()
	}
	if game.StartedAt.IsZero() {
		game.StartedAt = time.Now()
	}

	if err := r.db.WithContext(ctx).Create(game).Error; err != nil {
		return errors.Wrap(err, errors.ErrDatabaseInsert).WithData(game)
	}

	chat := game.Chat
	chat.GameID = game.ID
	chat.NumberOfMessages = 0
	if err := r.chatRepo.Create(ctx, &chat); err != nil {
		return err
	}
	game.Chat = chat

	for i := range game.Players {
		game.Players[i].GameID = game.ID
		if err := r.playerRepo.Create(ctx, &game.Players[i]); err != nil {
			return err
		}
	}
	return nil
}

// FindByID 根据ID查找游戏并装配聚合
func (r *gameRepo) FindByID(ctx context.Context, id string) (*models.Game, error) {
	var game models.Game
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&game).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Newf(errors.ErrGameNotFound, "游戏不存在: %s", id)
		}
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery).WithData(id)
	}

	if err := r.hydrate(ctx, &game); err != nil {
		return nil, err
	}
	return &game, nil
}

// GetAll 获取所有游戏（分页），每局都装配完整聚合
func (r *gameRepo) GetAll(ctx context.Context, pagination *Pagination) ([]*models.Game, error) {
	var games []*models.Game
	query := r.db.WithContext(ctx).Model(&models.Game{})

	// 获取总数
	var total int64
	query.Count(&total)
	pagination.Total = total

	err := query.
		Scopes(Paginate(pagination)).
		Order("started_at DESC").
		Find(&games).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}

	for _, game := range games {
		if err := r.hydrate(ctx, game); err != nil {
			return nil, err
		}
	}
	return games, nil
}

// UpdateGame 聚合更新
//
// 1. 按DTO出现的字段动态更新标量列
// 2. 玩家按期望集合做差异同步，返回删除前的快照
// 3. 声明按契约插入单个元素或整体清空
// 4. 聊天按消息ID双向差集同步
// 三个集合字段在该路径上都是必填的，缺失任何一个都直接报错。
func (r *gameRepo) UpdateGame(ctx context.Context, dto *models.UpdateGameDTO) (*models.Game, error) {
	game, err := r.updateScalars(ctx, dto)
	if err != nil {
		return nil, err
	}

	players, err := r.reconcilePlayers(ctx, dto.ID, dto.Players)
	if err != nil {
		return nil, err
	}
	game.Players = players

	if dto.Claims == nil {
		return nil, errors.New(errors.ErrNilCollection, "claims字段缺失").WithOp("GameRepository.UpdateGame")
	}
	claims, err := r.claimRepo.Reconcile(ctx, dto.ID, *dto.Claims, r.legacyClaimSlot)
	if err != nil {
		return nil, err
	}
	game.Claims = claims

	if dto.Chat == nil {
		return nil, errors.New(errors.ErrNilCollection, "chat字段缺失").WithOp("GameRepository.UpdateGame")
	}
	chat, err := r.chatRepo.Reconcile(ctx, dto.Chat)
	if err != nil {
		return nil, err
	}
	game.Chat = *chat

	return game, nil
}

// updateScalars 更新游戏标量列并读回该行
func (r *gameRepo) updateScalars(ctx context.Context, dto *models.UpdateGameDTO) (*models.Game, error) {
	updates := map[string]interface{}{}
	if dto.State != nil {
		updates["state"] = *dto.State
	}
	if dto.RoundNumber != nil {
		updates["round_number"] = *dto.RoundNumber
	}
	if dto.CardToPlay != nil {
		updates["card_to_play"] = *dto.CardToPlay
	}
	if dto.WhichPlayerTurn != nil {
		updates["which_player_turn"] = *dto.WhichPlayerTurn
	}

	if len(updates) > 0 {
		if err := r.db.WithContext(ctx).
			Model(&models.Game{}).
			Where("id = ?", dto.ID).
			Updates(updates).Error; err != nil {
			return nil, errors.Wrap(err, errors.ErrDatabaseUpdate).WithData(dto)
		}
	}

	var game models.Game
	if err := r.db.WithContext(ctx).Where("id = ?", dto.ID).First(&game).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Newf(errors.ErrGameNotFound, "游戏不存在: %s", dto.ID).WithData(dto)
		}
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery).WithData(dto)
	}
	return &game, nil
}

// reconcilePlayers 玩家差异同步
//
// 期望集合是最终状态：缺的插入，多的删除，两边都有的不做字段更新。
// 返回值是插入之后、删除之前重新读取的快照，该行为被测试钉住，
// 调用方需要删除后的集合时应自行重新读取。
func (r *gameRepo) reconcilePlayers(ctx context.Context, gameID string, desired *[]models.Player) ([]models.Player, error) {
	if desired == nil {
		return nil, errors.New(errors.ErrNilCollection, "players字段缺失").WithOp("GameRepository.UpdateGame")
	}
	if len(*desired) == 0 {
		return nil, errors.New(errors.ErrEmptyPlayerSet).WithOp("GameRepository.UpdateGame")
	}

	current, err := r.playerRepo.FindByGameID(ctx, gameID)
	if err != nil {
		// 游戏还没有任何玩家时当作空集合继续
		if !errors.Is(err, errors.ErrNotFound) {
			return nil, err
		}
		current = []models.Player{}
	}

	currentIDs := make(map[string]struct{}, len(current))
	for _, p := range current {
		currentIDs[p.ID] = struct{}{}
	}
	desiredIDs := make(map[string]struct{}, len(*desired))
	for _, p := range *desired {
		desiredIDs[p.ID] = struct{}{}
	}

	// 插入期望集合中缺失的玩家
	for i := range *desired {
		p := (*desired)[i]
		if _, ok := currentIDs[p.ID]; !ok {
			p.GameID = gameID
			if err := r.playerRepo.Create(ctx, &p); err != nil {
				return nil, err
			}
		}
	}

	// 删除前的快照即返回值
	snapshot, err := r.playerRepo.FindByGameID(ctx, gameID)
	if err != nil {
		return nil, err
	}

	// 删除期望集合中不存在的玩家
	for _, p := range current {
		if _, ok := desiredIDs[p.ID]; !ok {
			if err := r.playerRepo.Delete(ctx, p.ID); err != nil {
				return nil, err
			}
		}
	}

	return snapshot, nil
}

// Delete 删除游戏及其全部子实体
//
// 级联在应用层完成：消息、聊天、声明、玩家、最后是游戏行。
func (r *gameRepo) Delete(ctx context.Context, id string) error {
	chat, err := r.chatRepo.GetChat(ctx, "", id)
	if err != nil && !errors.Is(err, errors.ErrNotFound) {
		return err
	}
	if chat != nil {
		if err := r.chatRepo.Delete(ctx, chat.ID); err != nil {
			return err
		}
	}

	if err := r.claimRepo.DeleteByGameID(ctx, id); err != nil {
		return err
	}
	if err := r.playerRepo.DeleteByGameID(ctx, id); err != nil {
		return err
	}

	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Game{}).Error; err != nil {
		return errors.Wrap(err, errors.ErrDatabaseDelete).WithData(id)
	}
	return nil
}

// hydrate 装配游戏聚合的三个子集合
func (r *gameRepo) hydrate(ctx context.Context, game *models.Game) error {
	players, err := r.playerRepo.FindByGameID(ctx, game.ID)
	if err != nil {
		// 大厅阶段可能还没有玩家
		if !errors.Is(err, errors.ErrNotFound) {
			return err
		}
		players = []models.Player{}
	}
	game.Players = players

	claims, err := r.claimRepo.FindByGameID(ctx, game.ID)
	if err != nil {
		return err
	}
	game.Claims = claims

	chat, err := r.chatRepo.GetChat(ctx, "", game.ID)
	if err != nil {
		if !errors.Is(err, errors.ErrNotFound) {
			return err
		}
		chat = &models.Chat{GameID: game.ID, Messages: []models.ChatMessage{}}
	}
	game.Chat = *chat

	return nil
}

// WithTx 使用事务
func (r *gameRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &gameRepo{
		BaseRepo:        &BaseRepo{db: tx},
		playerRepo:      NewPlayerRepository(tx),
		claimRepo:       NewClaimRepository(tx),
		chatRepo:        NewChatRepository(tx),
		legacyClaimSlot: r.legacyClaimSlot,
	}
}
