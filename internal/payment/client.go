package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/gommon/log"
)

// 決済ゲートウェイのプロトコルはここでは扱わない。取り消しだけを頼む不透明な相手。
type Client struct {
	baseURL string
	http    *http.Client
	logger  *log.Logger
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 3 * time.Second},
		logger:  log.New("payment"),
	}
}

func (c *Client) Enabled() bool {
	return c.baseURL != ""
}

type cancelRequest struct {
	OrderNo string `json:"order_no"`
	Amount  int64  `json:"amount"`
}

// Cancelは事前決済の取り消し。失敗しても呼び出し側のキャンセル処理は止めない前提。
func (c *Client) Cancel(ctx context.Context, orderNo string, amount int64) error {
	if !c.Enabled() {
		return fmt.Errorf("payment api not configured")
	}

	body, err := json.Marshal(cancelRequest{OrderNo: orderNo, Amount: amount})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/cancel", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("payment api returned %d", res.StatusCode)
	}
	return nil
}

// CancelAsyncは応答を待たずに取り消しを投げる。失敗はログのみ（手動調整が必要な旨を残す）。
func (c *Client) CancelAsync(orderNo string, amount int64) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := c.Cancel(ctx, orderNo, amount); err != nil {
			c.logger.Errorf("payment cancel failed for order %s (amount %d), manual reconciliation required: %v", orderNo, amount, err)
		}
	}()
}
