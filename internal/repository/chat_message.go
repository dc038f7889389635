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

// ChatMessageRepository 聊天消息仓储接口
//
// 只负责消息行本身，number_of_messages 计数器由ChatRepository维护。
type ChatMessageRepository interface {
	BaseRepository
	Create(ctx context.Context, message *models.ChatMessage) error
	Update(ctx context.Context, dto *models.UpdateChatMessageDTO) (*models.ChatMessage, error)
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*models.ChatMessage, error)
	// FindByChatID 按发送时间升序返回会话内全部消息
	FindByChatID(ctx context.Context, chatID string) ([]models.ChatMessage, error)
	DeleteByChatID(ctx context.Context, chatID string) error
}

// chatMessageRepo 聊天消息仓储实现
type chatMessageRepo struct {
	*BaseRepo
}

// NewChatMessageRepository 创建聊天消息仓储
func NewChatMessageRepository(db *gorm.DB) ChatMessageRepository {
	return &chatMessageRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建聊天消息
func (r *chatMessageRepo) Create(ctx context.Context, message *models.ChatMessage) error {
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.SentAt.IsZero() {
		message.SentAt = time.Now()
	}
	if err := r.db.WithContext(ctx).Create(message).Error; err != nil {
		return errors.Wrap(err, errors.ErrDatabaseInsert).WithData(message)
	}
	return nil
}

// Update 按DTO中出现的字段动态更新消息，返回更新后的行
func (r *chatMessageRepo) Update(ctx context.Context, dto *models.UpdateChatMessageDTO) (*models.ChatMessage, error) {
	updates := map[string]interface{}{}
	if dto.Content != nil {
		updates["content"] = *dto.Content
	}

	if len(updates) > 0 {
		if err := r.db.WithContext(ctx).
			Model(&models.ChatMessage{}).
			Where("id = ?", dto.ID).
			Updates(updates).Error; err != nil {
			return nil, errors.Wrap(err, errors.ErrDatabaseUpdate).WithData(dto)
		}
	}

	// 更新后必须能读回该行，否则视为目标行不存在
	var message models.ChatMessage
	if err := r.db.WithContext(ctx).Where("id = ?", dto.ID).First(&message).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Newf(errors.ErrNotFound, "聊天消息不存在: %s", dto.ID).WithData(dto)
		}
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery).WithData(dto)
	}
	return &message, nil
}

// Delete 删除聊天消息
func (r *chatMessageRepo) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.ChatMessage{}).Error; err != nil {
		return errors.Wrap(err, errors.ErrDatabaseDelete).WithData(id)
	}
	return nil
}

// FindByID 根据ID查找聊天消息
func (r *chatMessageRepo) FindByID(ctx context.Context, id string) (*models.ChatMessage, error) {
	var message models.ChatMessage
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&message).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Newf(errors.ErrNotFound, "聊天消息不存在: %s", id)
		}
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery).WithData(id)
	}
	return &message, nil
}

// FindByChatID 获取会话内全部消息
func (r *chatMessageRepo) FindByChatID(ctx context.Context, chatID string) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("sent_at").
		Find(&messages).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery).WithData(chatID)
	}
	return messages, nil
}

// DeleteByChatID 删除会话内全部消息
func (r *chatMessageRepo) DeleteByChatID(ctx context.Context, chatID string) error {
	if err := r.db.WithContext(ctx).Where("chat_id = ?", chatID).Delete(&models.ChatMessage{}).Error; err != nil {
		return errors.Wrap(err, errors.ErrDatabaseDelete).WithData(chatID)
	}
	return nil
}

// WithTx 使用事务
func (r *chatMessageRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &chatMessageRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
