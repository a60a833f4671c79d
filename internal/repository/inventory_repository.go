package repository

import (
	"github.com/dpatinod/BataBot/internal/model"
	"gorm.io/gorm"
)

// InventoryRepository 菜单库存数据访问
type InventoryRepository struct {
	db *gorm.DB
}

// NewInventoryRepository 创建库存仓库
func NewInventoryRepository(db *gorm.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

// ListByRestaurant 获取一个餐厅的全部菜单项
func (r *InventoryRepository) ListByRestaurant(restaurantID string) ([]*model.MenuItem, error) {
	var items []*model.MenuItem
	err := r.db.Where("restaurant_id = ?", restaurantID).
		Order("name ASC").
		Find(&items).Error
	return items, err
}
