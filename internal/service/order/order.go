// Package order 提供厨房看板的订单查询和状态流转
package order

import (
	"context"
	"fmt"

	"github.com/dpatinod/BataBot/internal/model"
)

// Store 订单存储依赖
type Store interface {
	TodayUnpaid() ([]*model.Order, error)
	UpdateState(id, tableID, state string) (*model.Order, error)
}

// Service 订单服务
type Service struct {
	store Store
}

// NewService 创建订单服务
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Board 今天还没结账的订单，按下单时间排序
func (s *Service) Board(ctx context.Context) ([]*model.Order, error) {
	orders, err := s.store.TodayUnpaid()
	if err != nil {
		return nil, fmt.Errorf("failed to load order board: %w", err)
	}
	return orders, nil
}

// UpdateState 更新订单状态
func (s *Service) UpdateState(ctx context.Context, id, tableID, state string) (*model.Order, error) {
	if id == "" {
		return nil, fmt.Errorf("order id is required")
	}
	if !validState(state) {
		return nil, fmt.Errorf("invalid order state: %s", state)
	}
	return s.store.UpdateState(id, tableID, state)
}

func validState(state string) bool {
	switch state {
	case model.OrderStateDefault, model.OrderStatePrepared, model.OrderStatePaid:
		return true
	}
	return false
}
