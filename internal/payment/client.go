// Package payment 支付服务客户端
package payment

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/smysle/sakura-raffle-go/internal/config"
	"github.com/smysle/sakura-raffle-go/pkg/logger"
)

var (
	// ErrInsufficientFunds 余额不足
	ErrInsufficientFunds = errors.New("余额不足")
	// ErrPaymentUnavailable 支付服务不可用
	ErrPaymentUnavailable = errors.New("支付服务不可用")
)

// Client 支付服务客户端
// 扣款以预约 UUID 作为幂等键，重复提交同一预约不会二次扣款
type Client struct {
	baseURL    string
	token      string
	httpClient *resty.Client
}

// NewClient 创建支付客户端
func NewClient(cfg *config.PaymentConfig) *Client {
	client := resty.New()
	client.SetTimeout(15 * time.Second)
	client.SetRetryCount(2)
	client.SetRetryWaitTime(2 * time.Second)

	return &Client{
		baseURL:    cfg.URL,
		token:      cfg.Token,
		httpClient: client,
	}
}

// Enabled 是否配置了支付服务
func (c *Client) Enabled() bool {
	return c != nil && c.baseURL != ""
}

// debitRequest 扣款请求体
type debitRequest struct {
	UserID         int64  `json:"user_id"`
	Amount         int    `json:"amount"` // 金额（分）
	IdempotencyKey string `json:"idempotency_key"`
	Description    string `json:"description"`
}

// debitResponse 扣款响应体
type debitResponse struct {
	TransactionID string `json:"transaction_id"`
	Code          string `json:"code"`
	Message       string `json:"message"`
}

// Debit 从用户余额扣款，返回交易号
func (c *Client) Debit(userID int64, amount int, idempotencyKey, description string) (string, error) {
	debitURL := fmt.Sprintf("%s/api/v1/debit", c.baseURL)

	var result debitResponse
	resp, err := c.httpClient.R().
		SetHeader("Authorization", "Bearer "+c.token).
		SetHeader("Content-Type", "application/json").
		SetBody(&debitRequest{
			UserID:         userID,
			Amount:         amount,
			IdempotencyKey: idempotencyKey,
			Description:    description,
		}).
		SetResult(&result).
		SetError(&result).
		Post(debitURL)

	if err != nil {
		logger.Error().Err(err).Int64("user_id", userID).Msg("支付请求失败")
		return "", fmt.Errorf("%w: %v", ErrPaymentUnavailable, err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
		logger.Info().
			Int64("user_id", userID).
			Int("amount", amount).
			Str("transaction_id", result.TransactionID).
			Msg("扣款成功")
		return result.TransactionID, nil
	case http.StatusPaymentRequired, http.StatusUnprocessableEntity:
		return "", fmt.Errorf("%w: %s", ErrInsufficientFunds, result.Message)
	default:
		logger.Error().
			Int("status", resp.StatusCode()).
			Str("message", result.Message).
			Msg("支付服务返回异常")
		return "", fmt.Errorf("%w: HTTP %d", ErrPaymentUnavailable, resp.StatusCode())
	}
}

// Refund 退款（取消已支付预约时使用）
func (c *Client) Refund(transactionID, reason string) error {
	refundURL := fmt.Sprintf("%s/api/v1/refund", c.baseURL)

	resp, err := c.httpClient.R().
		SetHeader("Authorization", "Bearer "+c.token).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{
			"transaction_id": transactionID,
			"reason":         reason,
		}).
		Post(refundURL)

	if err != nil {
		return fmt.Errorf("%w: %v", ErrPaymentUnavailable, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("%w: HTTP %d", ErrPaymentUnavailable, resp.StatusCode())
	}

	logger.Info().Str("transaction_id", transactionID).Msg("退款成功")
	return nil
}
