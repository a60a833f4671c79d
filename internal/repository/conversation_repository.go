package repository

import (
	"github.com/dpatinod/BataBot/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConversationRepository 对话回合数据访问
type ConversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository 创建对话仓库
func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// CreateTurn 追加一个回合
// 按回合 ID 幂等：同一 ID 重复写入不产生第二条记录，调用方可安全重试整个回合
func (r *ConversationRepository) CreateTurn(turn *model.ConversationTurn) error {
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(turn).Error
}

// RecentTurns 获取一个对话最近的 limit 个回合，按创建时间升序返回
func (r *ConversationRepository) RecentTurns(conversationID, userID string, limit int) ([]*model.ConversationTurn, error) {
	var turns []*model.ConversationTurn
	err := r.db.Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&turns).Error
	if err != nil {
		return nil, err
	}

	// 查询按时间倒序取窗口，这里翻转为时间升序
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// UpdateRate 更新回合评分，conversationID 作为分区约束
// 回合不存在时返回 gorm.ErrRecordNotFound
func (r *ConversationRepository) UpdateRate(turnID, conversationID string, rate bool) error {
	res := r.db.Model(&model.ConversationTurn{}).
		Where("id = ? AND conversation_id = ?", turnID, conversationID).
		Update("rate", rate)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// 幂等检查：值已一致时 Update 仍会报告 RowsAffected，
		// 0 行只可能是记录不存在
		var count int64
		if err := r.db.Model(&model.ConversationTurn{}).
			Where("id = ? AND conversation_id = ?", turnID, conversationID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
	}
	return nil
}

// ConversationSummary 用户会话列表项
type ConversationSummary struct {
	ConversationID   string `json:"conversation_id"`
	ConversationName string `json:"conversation_name"`
	LastActivity     string `json:"last_activity"`
}

// ListUserConversations 列出一个用户的全部会话，按最近活动倒序
func (r *ConversationRepository) ListUserConversations(userID string) ([]*ConversationSummary, error) {
	var summaries []*ConversationSummary
	err := r.db.Model(&model.ConversationTurn{}).
		Select("conversation_id, MAX(conversation_name) AS conversation_name, MAX(created_at) AS last_activity").
		Where("user_id = ?", userID).
		Group("conversation_id").
		Order("last_activity DESC").
		Scan(&summaries).Error
	return summaries, err
}

// GetConversationTurns 获取一个会话的全部回合，按创建时间升序
func (r *ConversationRepository) GetConversationTurns(conversationID string) ([]*model.ConversationTurn, error) {
	var turns []*model.ConversationTurn
	err := r.db.Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&turns).Error
	return turns, err
}
