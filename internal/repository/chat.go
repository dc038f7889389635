package repository

import (
	"context"
	stderrors "errors"

	"github.com/google/uuid"
	"github.com/wfunc/card-game/internal/errors"
	"github.com/wfunc/card-game/internal/models"
	"gorm.io/gorm"
)

// ChatRepository 聊天仓储接口
//
// 计数器先行：所有消息增删都先改写 number_of_messages 再操作消息行，
// 计数器写入以回读校验，行操作失败时回写补偿，保证计数器与行数一致。
type ChatRepository interface {
	BaseRepository
	Create(ctx context.Context, chat *models.Chat) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*models.Chat, error)
	// GetChat 按chat_id或game_id取会话并装配消息，两者都给时game_id优先
	GetChat(ctx context.Context, chatID, gameID string) (*models.Chat, error)
	AddMessage(ctx context.Context, chatID string, message *models.ChatMessage) error
	RemoveMessage(ctx context.Context, chatID, messageID string) error
	// Reconcile 将会话消息集合同步到期望状态
	Reconcile(ctx context.Context, desired *models.Chat) (*models.Chat, error)
}

// chatRepo 聊天仓储实现
type chatRepo struct {
	*BaseRepo
	messageRepo ChatMessageRepository
}

// NewChatRepository 创建聊天仓储
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepo{
		BaseRepo:    &BaseRepo{db: db},
		messageRepo: NewChatMessageRepository(db),
	}
}

// Create 创建聊天会话
func (r *chatRepo) Create(ctx context.Context, chat *models.Chat) error {
	if chat.ID == "" {
		chat.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(chat).Error; err != nil {
		return errors.Wrap(err, errors.ErrDatabaseInsert).WithData(chat)
	}
	return nil
}

// Delete 删除聊天会话及其全部消息
func (r *chatRepo) Delete(ctx context.Context, id string) error {
	if err := r.messageRepo.DeleteByChatID(ctx, id); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Chat{}).Error; err != nil {
		return errors.Wrap(err, errors.ErrDatabaseDelete).WithData(id)
	}
	return nil
}

// FindByID 根据ID查找聊天会话并装配消息
func (r *chatRepo) FindByID(ctx context.Context, id string) (*models.Chat, error) {
	return r.GetChat(ctx, id, "")
}

// GetChat 查找聊天会话
func (r *chatRepo) GetChat(ctx context.Context, chatID, gameID string) (*models.Chat, error) {
	if chatID == "" && gameID == "" {
		return nil, errors.New(errors.ErrInvalidParam, "chat_id和game_id至少提供一个")
	}

	var chat models.Chat
	query := r.db.WithContext(ctx)
	if gameID != "" {
		query = query.Where("game_id = ?", gameID)
	} else {
		query = query.Where("id = ?", chatID)
	}

	if err := query.First(&chat).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Newf(errors.ErrNotFound, "聊天会话不存在: chat_id=%s game_id=%s", chatID, gameID)
		}
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery).WithData(gameID)
	}

	messages, err := r.messageRepo.FindByChatID(ctx, chat.ID)
	if err != nil {
		return nil, err
	}
	chat.Messages = messages
	return &chat, nil
}

// AddMessage 向会话添加消息
//
// 先把计数器加一写入，再插入消息行。行插入失败时把计数器回写为原值。
func (r *chatRepo) AddMessage(ctx context.Context, chatID string, message *models.ChatMessage) error {
	count, err := r.readCount(ctx, chatID)
	if err != nil {
		return err
	}

	if err := r.writeCount(ctx, chatID, count+1, "ChatRepository.AddMessage"); err != nil {
		return err
	}

	message.ChatID = chatID
	if err := r.messageRepo.Create(ctx, message); err != nil {
		// 补偿：插入失败时把计数器还原
		if compErr := r.writeCount(ctx, chatID, count, "ChatRepository.AddMessage.compensate"); compErr != nil {
			return errors.Wrap(compErr, errors.ErrDataIntegrity).
				WithOp("ChatRepository.AddMessage").
				WithDetails("消息插入失败且计数器补偿失败")
		}
		return err
	}
	return nil
}

// RemoveMessage 从会话移除消息
//
// 计数器为零时拒绝，避免计数器变为负数。
// 删除不存在或不属于该会话的消息会在改写计数器之前被拒绝，
// 保证计数器减一时一定有对应的行被删除。
func (r *chatRepo) RemoveMessage(ctx context.Context, chatID, messageID string) error {
	count, err := r.readCount(ctx, chatID)
	if err != nil {
		return err
	}

	if count == 0 {
		return errors.New(errors.ErrCounterZero).WithOp("ChatRepository.RemoveMessage")
	}

	// 目标消息必须存在且属于该会话，删除零行不会让gorm报错
	message, err := r.messageRepo.FindByID(ctx, messageID)
	if err != nil {
		return err
	}
	if message.ChatID != chatID {
		return errors.Newf(errors.ErrNotFound, "消息不属于该会话: %s", messageID).
			WithOp("ChatRepository.RemoveMessage")
	}

	if err := r.writeCount(ctx, chatID, count-1, "ChatRepository.RemoveMessage"); err != nil {
		return err
	}

	if err := r.messageRepo.Delete(ctx, messageID); err != nil {
		// 补偿：删除失败时把计数器还原
		if compErr := r.writeCount(ctx, chatID, count, "ChatRepository.RemoveMessage.compensate"); compErr != nil {
			return errors.Wrap(compErr, errors.ErrDataIntegrity).
				WithOp("ChatRepository.RemoveMessage").
				WithDetails("消息删除失败且计数器补偿失败")
		}
		return err
	}
	return nil
}

// Reconcile 将会话同步到期望的消息集合
//
// 期望计数为零时清空全部消息并把计数器归零后直接返回。
// 否则按消息ID做双向差集，删掉多余的行，插入缺失的行，
// 最后按期望对象原样返回（不回读）。
func (r *chatRepo) Reconcile(ctx context.Context, desired *models.Chat) (*models.Chat, error) {
	if desired == nil {
		return nil, errors.New(errors.ErrNilCollection).WithOp("ChatRepository.Reconcile")
	}

	if desired.NumberOfMessages == 0 {
		if err := r.messageRepo.DeleteByChatID(ctx, desired.ID); err != nil {
			return nil, err
		}
		if err := r.writeCount(ctx, desired.ID, 0, "ChatRepository.Reconcile"); err != nil {
			return nil, err
		}
		return desired, nil
	}

	current, err := r.messageRepo.FindByChatID(ctx, desired.ID)
	if err != nil {
		return nil, err
	}

	currentIDs := make(map[string]struct{}, len(current))
	for _, m := range current {
		currentIDs[m.ID] = struct{}{}
	}
	desiredIDs := make(map[string]struct{}, len(desired.Messages))
	for _, m := range desired.Messages {
		desiredIDs[m.ID] = struct{}{}
	}

	// 删除期望集合中不存在的消息
	for _, m := range current {
		if _, ok := desiredIDs[m.ID]; !ok {
			if err := r.RemoveMessage(ctx, desired.ID, m.ID); err != nil {
				return nil, err
			}
		}
	}

	// 插入当前集合中缺失的消息
	for i := range desired.Messages {
		m := desired.Messages[i]
		if _, ok := currentIDs[m.ID]; !ok {
			if err := r.AddMessage(ctx, desired.ID, &m); err != nil {
				return nil, err
			}
		}
	}

	return desired, nil
}

// readCount 读取计数器当前值
func (r *chatRepo) readCount(ctx context.Context, chatID string) (int, error) {
	var chat models.Chat
	err := r.db.WithContext(ctx).Select("id", "number_of_messages").Where("id = ?", chatID).First(&chat).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return 0, errors.Newf(errors.ErrNotFound, "聊天会话不存在: %s", chatID)
		}
		return 0, errors.Wrap(err, errors.ErrDatabaseQuery).WithData(chatID)
	}
	return chat.NumberOfMessages, nil
}

// writeCount 写入计数器并回读校验
func (r *chatRepo) writeCount(ctx context.Context, chatID string, count int, op string) error {
	err := r.db.WithContext(ctx).
		Model(&models.Chat{}).
		Where("id = ?", chatID).
		Update("number_of_messages", count).Error
	if err != nil {
		return errors.Wrap(err, errors.ErrDatabaseUpdate).WithData(chatID)
	}

	// 回读校验写入结果
	echoed, err := r.readCount(ctx, chatID)
	if err != nil {
		return err
	}
	if echoed != count {
		return errors.Newf(errors.ErrCounterMismatch, "期望 %d 实际 %d", count, echoed).WithOp(op)
	}
	return nil
}

// WithTx 使用事务
func (r *chatRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &chatRepo{
		BaseRepo:    &BaseRepo{db: tx},
		messageRepo: NewChatMessageRepository(tx),
	}
}
