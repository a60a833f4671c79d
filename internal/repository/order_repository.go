package repository

import (
	"time"

	"github.com/dpatinod/BataBot/internal/model"
	"gorm.io/gorm"
)

// OrderRepository 订单数据访问
type OrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓库
func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create 创建订单
func (r *OrderRepository) Create(order *model.Order) error {
	return r.db.Create(order).Error
}

// GetByID 获取订单
func (r *OrderRepository) GetByID(id string) (*model.Order, error) {
	var order model.Order
	err := r.db.Where("id = ?", id).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateState 更新订单状态，tableID 作为分区约束
// 订单不存在时返回 gorm.ErrRecordNotFound
func (r *OrderRepository) UpdateState(id, tableID, state string) (*model.Order, error) {
	var order model.Order
	query := r.db.Where("id = ?", id)
	if tableID != "" {
		query = query.Where("table_id = ?", tableID)
	}
	if err := query.First(&order).Error; err != nil {
		return nil, err
	}

	order.State = state
	if err := r.db.Save(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// TodayUnpaid 获取今日未支付订单，按创建时间升序
func (r *OrderRepository) TodayUnpaid() ([]*model.Order, error) {
	now := time.Now().Local()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var orders []*model.Order
	err := r.db.Where("created_at >= ? AND state <> ?", startOfDay, model.OrderStatePaid).
		Order("created_at ASC").
		Find(&orders).Error
	return orders, err
}
