package tools

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/dpatinod/BataBot/internal/repository"
)

// MenuInput get_menu 工具输入
type MenuInput struct {
	RestaurantName string `json:"restaurant_name"`
}

// MenuEntry 菜单上的一项
type MenuEntry struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Unit     string  `json:"unit,omitempty"`
	Price    float64 `json:"price"`
}

// MenuOutput get_menu 工具输出
type MenuOutput struct {
	Restaurant string      `json:"restaurant"`
	Items      []MenuEntry `json:"items"`
}

// NewMenuEntry 创建菜单查询工具
// 未指定餐厅时使用配置的默认餐厅
func NewMenuEntry(repo *repository.InventoryRepository, defaultRestaurant string) (*Entry, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository is nil")
	}

	info := &schema.ToolInfo{
		Name: "get_menu",
		Desc: "Consulta el menu y el inventario disponible de un restaurante. Usalo antes de confirmar cualquier pedido.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"restaurant_name": {
				Type:     schema.String,
				Desc:     "Nombre del restaurante",
				Required: false,
			},
		}),
	}

	fn := func(ctx context.Context, input *MenuInput) (*MenuOutput, error) {
		restaurant := input.RestaurantName
		if restaurant == "" {
			restaurant = defaultRestaurant
		}

		items, err := repo.ListByRestaurant(restaurant)
		if err != nil {
			return nil, fmt.Errorf("failed to load menu: %w", err)
		}

		out := &MenuOutput{Restaurant: restaurant, Items: make([]MenuEntry, 0, len(items))}
		for _, item := range items {
			out.Items = append(out.Items, MenuEntry{
				Name:     item.Name,
				Quantity: item.Quantity,
				Unit:     item.Unit,
				Price:    item.Price,
			})
		}
		return out, nil
	}

	return &Entry{
		Name:      "get_menu",
		Tool:      utils.NewTool(info, fn),
		Retryable: true,
		ScalarArg: "restaurant_name",
	}, nil
}
