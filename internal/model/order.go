package model

import "time"

// 订单状态
const (
	OrderStateDefault  = "default"
	OrderStatePrepared = "prepared"
	OrderStatePaid     = "paid"
)

// Order 餐厅订单，confirm_order 工具每确认一个产品写入一条
type Order struct {
	ID           string    `gorm:"primaryKey;size:64" json:"id"`
	ProductName  string    `gorm:"size:255" json:"nombre_producto"`
	Quantity     int       `gorm:"default:1" json:"cantidad"`
	Observations string    `gorm:"type:text" json:"observaciones"`
	State        string    `gorm:"index;size:20;default:default" json:"state"`
	TableID      string    `gorm:"index;size:64" json:"table_id"`
	UserName     string    `gorm:"size:255" json:"user_name"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}
