// Package sms sends text messages through the IPPanel (Faraz SMS) REST API.
package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/lotterydesk/lottery-api/internal/config"
)

const (
	defaultBaseURL = "https://rest.ippanel.com"
	sendPath       = "/v1/messages"

	otpTemplate    = "Your lottery login code: %s"
	winnerTemplate = "Congratulations! You won the lottery draw. Lottery code: %s"
)

var ErrNotConfigured = errors.New("sms provider is not configured")

type Client struct {
	conf *config.SMSConfig
	http *http.Client
}

func NewClient(conf *config.SMSConfig) *Client {
	return &Client{
		conf: conf,
		http: &http.Client{Timeout: conf.Timeout},
	}
}

func (c *Client) Configured() bool {
	return c.conf.APIKey != "" && c.conf.Sender != ""
}

func (c *Client) SendOTP(ctx context.Context, mobile, code string) error {
	return c.Send(ctx, mobile, fmt.Sprintf(otpTemplate, code))
}

func (c *Client) NotifyWinner(ctx context.Context, mobile, code string) error {
	return c.Send(ctx, mobile, fmt.Sprintf(winnerTemplate, code))
}

type sendRequest struct {
	Originator string   `json:"originator"`
	Recipients []string `json:"recipients"`
	Message    string   `json:"message"`
}

type sendResponse struct {
	Status       string `json:"status"`
	Code         int    `json:"code"`
	ErrorMessage string `json:"error_message"`
	Data         struct {
		BulkID int64 `json:"bulk_id"`
	} `json:"data"`
}

func (c *Client) Send(ctx context.Context, mobile, message string) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	body, err := json.Marshal(sendRequest{
		Originator: c.conf.Sender,
		Recipients: []string{mobile},
		Message:    message,
	})
	if err != nil {
		return fmt.Errorf("json.Marshal -> %w", err)
	}

	baseURL := c.conf.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(baseURL, "/")+sendPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("http.NewRequestWithContext -> %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "AccessKey "+c.conf.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("c.http.Do -> %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return fmt.Errorf("io.ReadAll -> %w", err)
	}

	var result sendResponse
	if err = json.Unmarshal(raw, &result); err != nil {
		return fmt.Errorf("unexpected sms response (HTTP %d) -> %w", resp.StatusCode, err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices || result.Status != "OK" {
		return fmt.Errorf("sms provider rejected message (HTTP %d, code %d): %s", resp.StatusCode, result.Code, result.ErrorMessage)
	}

	zap.L().Debug("sms sent", zap.String("mobile", mobile), zap.Int64("bulk_id", result.Data.BulkID))

	return nil
}

// LogSender only logs messages. It stands in for Client in development
// when no provider credentials are set.
type LogSender struct{}

func (LogSender) SendOTP(_ context.Context, mobile, code string) error {
	zap.L().Info("sms provider not configured, otp logged", zap.String("mobile", mobile), zap.String("code", code))
	return nil
}

func (LogSender) NotifyWinner(_ context.Context, mobile, code string) error {
	zap.L().Info("sms provider not configured, winner message logged", zap.String("mobile", mobile), zap.String("code", code))
	return nil
}
