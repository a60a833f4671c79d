package model

import "time"

// MenuItem 餐厅菜单库存项，get_menu 工具的数据来源
type MenuItem struct {
	ID           string    `gorm:"primaryKey;size:64" json:"id"`
	RestaurantID string    `gorm:"index;size:64" json:"restaurant_id"`
	Name         string    `gorm:"size:255" json:"name"`
	Quantity     int       `gorm:"default:0" json:"quantity"`
	Unit         string    `gorm:"size:50" json:"unit"`
	Price        float64   `json:"price"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (MenuItem) TableName() string {
	return "menu_items"
}
