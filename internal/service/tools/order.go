package tools

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/dpatinod/BataBot/internal/model"
	"github.com/dpatinod/BataBot/internal/repository"
	"github.com/dpatinod/BataBot/pkg/ids"
)

// OrderInput confirm_order 工具输入
// 字段名与模型侧提示词里的西语参数一致
type OrderInput struct {
	ProductName  string `json:"nombre_producto"`
	Quantity     int    `json:"cantidad"`
	Observations string `json:"observaciones"`
	TableID      string `json:"table_id"`
	UserName     string `json:"user_name"`
}

// OrderOutput confirm_order 工具输出
type OrderOutput struct {
	OrderID     string `json:"order_id"`
	ProductName string `json:"nombre_producto"`
	Quantity    int    `json:"cantidad"`
	State       string `json:"state"`
	Message     string `json:"message"`
}

// NewOrderEntry 创建下单工具
// 写库有副作用，Retryable 必须为 false，失败由模型向用户解释
func NewOrderEntry(repo *repository.OrderRepository) (*Entry, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository is nil")
	}

	info := &schema.ToolInfo{
		Name: "confirm_order",
		Desc: "Confirma un pedido del cliente y lo registra en cocina. Llamalo una vez por producto, solo despues de que el cliente confirme.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"nombre_producto": {
				Type:     schema.String,
				Desc:     "Nombre del producto pedido",
				Required: true,
			},
			"cantidad": {
				Type:     schema.Integer,
				Desc:     "Cantidad de unidades",
				Required: true,
			},
			"observaciones": {
				Type:     schema.String,
				Desc:     "Observaciones del cliente sobre el producto",
				Required: false,
			},
			"table_id": {
				Type:     schema.String,
				Desc:     "Identificador de la mesa",
				Required: true,
			},
			"user_name": {
				Type:     schema.String,
				Desc:     "Nombre del cliente",
				Required: false,
			},
		}),
	}

	fn := func(ctx context.Context, input *OrderInput) (*OrderOutput, error) {
		if input.ProductName == "" {
			return nil, fmt.Errorf("nombre_producto is required")
		}
		if input.TableID == "" {
			return nil, fmt.Errorf("table_id is required")
		}
		quantity := input.Quantity
		if quantity <= 0 {
			quantity = 1
		}

		order := &model.Order{
			ID:           ids.New(),
			ProductName:  input.ProductName,
			Quantity:     quantity,
			Observations: input.Observations,
			State:        model.OrderStateDefault,
			TableID:      input.TableID,
			UserName:     input.UserName,
		}
		if err := repo.Create(order); err != nil {
			return nil, fmt.Errorf("failed to create order: %w", err)
		}

		return &OrderOutput{
			OrderID:     order.ID,
			ProductName: order.ProductName,
			Quantity:    order.Quantity,
			State:       order.State,
			Message:     fmt.Sprintf("Pedido confirmado: %dx %s para la mesa %s", order.Quantity, order.ProductName, order.TableID),
		}, nil
	}

	return &Entry{
		Name:      "confirm_order",
		Tool:      utils.NewTool(info, fn),
		Retryable: false,
	}, nil
}
