// Package whatsapp 对接外部 WhatsApp 网关
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dpatinod/BataBot/internal/config"
)

// Client WhatsApp 网关客户端
// 未启用时所有发送都是空操作
type Client struct {
	enabled   bool
	bridgeURL string
	phone     string
	http      *http.Client
}

// NewClient 创建网关客户端
func NewClient(cfg *config.WhatsAppConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10
	}
	return &Client{
		enabled:   cfg.Enabled && cfg.BridgeURL != "",
		bridgeURL: strings.TrimRight(cfg.BridgeURL, "/"),
		phone:     cfg.Phone,
		http:      &http.Client{Timeout: time.Duration(timeout) * time.Second},
	}
}

// Enabled 网关是否可用
func (c *Client) Enabled() bool {
	return c.enabled
}

type sendRequest struct {
	From    string `json:"from,omitempty"`
	To      string `json:"to"`
	Message string `json:"message"`
}

// SendText 给一个号码发文本消息
func (c *Client) SendText(ctx context.Context, to, text string) error {
	if !c.enabled {
		return nil
	}
	if to == "" || text == "" {
		return fmt.Errorf("recipient and message are required")
	}

	body, err := json.Marshal(sendRequest{From: c.phone, To: to, Message: text})
	if err != nil {
		return fmt.Errorf("failed to marshal send request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.bridgeURL+"/send", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call whatsapp bridge: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("whatsapp bridge returned status %d", resp.StatusCode)
	}
	return nil
}
