// Package whatsapp предоставляет клиент для внешнего шлюза WhatsApp-уведомлений.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Client инкапсулирует HTTP-взаимодействие со шлюзом уведомлений.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type sendRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// NewClient создаёт клиент шлюза уведомлений по указанному адресу и токену.
func NewClient(baseURL, token string) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.HTTPClient.Timeout = 5 * time.Second
	rc.Logger = nil

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: rc.StandardClient(),
	}
}

// Send отправляет сообщение на указанный номер телефона.
func (c *Client) Send(ctx context.Context, phone, message string) error {
	if c == nil || c.baseURL == "" {
		return fmt.Errorf("whatsapp client not configured")
	}

	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	body, err := json.Marshal(sendRequest{To: phone, Message: message})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/send", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	return nil
}

// OrderConfirmation формирует текст подтверждения заказа.
func OrderConfirmation(orderID int64) string {
	return fmt.Sprintf("Hello! Your order #%d has been confirmed.", orderID)
}

// StatusUpdate формирует текст уведомления о смене статуса заказа.
func StatusUpdate(orderID int64, status string) string {
	return fmt.Sprintf("Update for your order #%d: status changed to %s.", orderID, status)
}
