package service

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wfunc/card-game/internal/errors"
	"github.com/wfunc/card-game/internal/models"
	"github.com/wfunc/card-game/internal/repository"
	"github.com/wfunc/card-game/internal/utils"
)

// gameService 对局服务实现
type gameService struct {
	db         *gorm.DB
	gameRepo   repository.GameRepository
	playerRepo repository.PlayerRepository
	chatRepo   repository.ChatRepository
	jwtManager *utils.JWTManager
	notifier   Notifier
	maxPlayers int
	log        *zap.Logger
}

// NewGameService 创建对局服务
func NewGameService(
	db *gorm.DB,
	gameRepo repository.GameRepository,
	playerRepo repository.PlayerRepository,
	chatRepo repository.ChatRepository,
	jwtManager *utils.JWTManager,
	notifier Notifier,
	maxPlayers int,
	log *zap.Logger,
) GameService {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	return &gameService{
		db:         db,
		gameRepo:   gameRepo,
		playerRepo: playerRepo,
		chatRepo:   chatRepo,
		jwtManager: jwtManager,
		notifier:   notifier,
		maxPlayers: maxPlayers,
		log:        log,
	}
}

// CreateGame 创建对局
func (s *gameService) CreateGame(ctx context.Context, req *CreateGameRequest) (*models.Game, error) {
	if req.JoinPassword == "" {
		return nil, errors.New(errors.ErrInvalidParam, "加入口令不能为空")
	}

	hashed, err := utils.HashPassword(req.JoinPassword)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrUnknown).WithOp("GameService.CreateGame")
	}

	game := &models.Game{
		State:        models.GameStateLobby,
		JoinPassword: hashed,
		Players:      req.Players,
	}

	if err := s.gameRepo.Create(ctx, game); err != nil {
		s.log.Error("创建对局失败", zap.Error(err))
		return nil, err
	}

	s.log.Info("对局已创建",
		zap.String("game_id", game.ID),
		zap.Int("players", len(game.Players)))
	return game, nil
}

// GetGame 查询对局聚合
func (s *gameService) GetGame(ctx context.Context, id string) (*models.Game, error) {
	return s.gameRepo.FindByID(ctx, id)
}

// ListGames 分页查询对局
func (s *gameService) ListGames(ctx context.Context, page, pageSize int) (*GameListResult, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	pagination := &repository.Pagination{Page: page, PageSize: pageSize}
	games, err := s.gameRepo.GetAll(ctx, pagination)
	if err != nil {
		return nil, err
	}

	return &GameListResult{
		Games:    games,
		Total:    pagination.Total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// UpdateGame 更新对局聚合并推送更新事件
func (s *gameService) UpdateGame(ctx context.Context, dto *models.UpdateGameDTO) (*models.Game, error) {
	game, err := s.gameRepo.UpdateGame(ctx, dto)
	if err != nil {
		s.log.Error("更新对局失败",
			zap.String("game_id", dto.ID),
			zap.Error(err))
		return nil, err
	}

	s.notifier.GameUpdated(game.ID, game)
	return game, nil
}

// DeleteGame 删除对局并推送删除事件
func (s *gameService) DeleteGame(ctx context.Context, id string) error {
	if err := s.gameRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.notifier.GameDeleted(id)
	s.log.Info("对局已删除", zap.String("game_id", id))
	return nil
}

// JoinGame 校验口令并加入对局
func (s *gameService) JoinGame(ctx context.Context, req *JoinGameRequest) (*JoinGameResponse, error) {
	game, err := s.gameRepo.FindByID(ctx, req.GameID)
	if err != nil {
		return nil, err
	}

	ok, err := utils.VerifyPassword(req.JoinPassword, game.JoinPassword)
	if err != nil || !ok {
		return nil, errors.New(errors.ErrJoinPasswordWrong).WithOp("GameService.JoinGame")
	}

	if s.maxPlayers > 0 && len(game.Players) >= s.maxPlayers {
		return nil, errors.Newf(errors.ErrGameFull, "人数上限 %d", s.maxPlayers)
	}

	player := &models.Player{
		Name:   req.PlayerName,
		GameID: game.ID,
	}
	if err := s.playerRepo.Create(ctx, player); err != nil {
		return nil, err
	}

	accessToken, err := s.jwtManager.GenerateAccessToken(player.ID, game.ID, player.Name)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTokenInvalid).WithOp("GameService.JoinGame")
	}
	refreshToken, err := s.jwtManager.GenerateRefreshToken(player.ID, game.ID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTokenInvalid).WithOp("GameService.JoinGame")
	}

	s.notifier.PlayerJoined(game.ID, player)
	s.log.Info("玩家加入对局",
		zap.String("game_id", game.ID),
		zap.String("player_id", player.ID))

	game.Players = append(game.Players, *player)

	return &JoinGameResponse{
		Player:       player,
		Game:         game,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.jwtManager.GetTokenExpiry("access").Seconds()),
	}, nil
}

// LeaveGame 玩家离开对局
func (s *gameService) LeaveGame(ctx context.Context, gameID, playerID string) error {
	player, err := s.playerRepo.FindByID(ctx, playerID)
	if err != nil {
		return err
	}
	if player.GameID != gameID {
		return errors.New(errors.ErrPlayerNotInGame).WithOp("GameService.LeaveGame")
	}

	if err := s.playerRepo.Delete(ctx, playerID); err != nil {
		return err
	}

	s.notifier.PlayerLeft(gameID, playerID)
	s.log.Info("玩家离开对局",
		zap.String("game_id", gameID),
		zap.String("player_id", playerID))
	return nil
}

// RefreshToken 使用刷新令牌换取新的访问令牌
func (s *gameService) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.jwtManager.ValidateToken(refreshToken)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrTokenInvalid).WithOp("GameService.RefreshToken")
	}
	if claims.TokenType != "refresh" {
		return "", errors.New(errors.ErrTokenInvalid, "不是刷新令牌")
	}

	// 玩家可能已被移出对局，刷新前确认其仍然存在
	player, err := s.playerRepo.FindByID(ctx, claims.PlayerID)
	if err != nil {
		return "", err
	}

	return s.jwtManager.GenerateAccessToken(player.ID, player.GameID, player.Name)
}

// PostChatMessage 发送聊天消息
func (s *gameService) PostChatMessage(ctx context.Context, req *PostChatMessageRequest) (*models.ChatMessage, error) {
	player, err := s.playerRepo.FindByID(ctx, req.PlayerID)
	if err != nil {
		return nil, err
	}
	if player.GameID != req.GameID {
		return nil, errors.New(errors.ErrPlayerNotInGame).WithOp("GameService.PostChatMessage")
	}

	chat, err := s.chatRepo.GetChat(ctx, "", req.GameID)
	if err != nil {
		return nil, err
	}

	message := &models.ChatMessage{
		PlayerID: req.PlayerID,
		Content:  req.Content,
	}
	if err := s.chatRepo.AddMessage(ctx, chat.ID, message); err != nil {
		return nil, err
	}

	s.notifier.ChatMessagePosted(req.GameID, message)
	return message, nil
}

// DeleteChatMessage 删除聊天消息
func (s *gameService) DeleteChatMessage(ctx context.Context, gameID, messageID string) error {
	chat, err := s.chatRepo.GetChat(ctx, "", gameID)
	if err != nil {
		return err
	}
	return s.chatRepo.RemoveMessage(ctx, chat.ID, messageID)
}
