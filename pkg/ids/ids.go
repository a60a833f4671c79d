// Package ids 生成带日期前缀的业务 ID
package ids

import (
	"time"

	"github.com/google/uuid"
)

// New 生成 "YYYYMMDD-<uuid>" 形式的 ID
// 日期前缀让消息、回合和订单 ID 可以按天粗排查
func New() string {
	return time.Now().Format("20060102") + "-" + uuid.NewString()
}
