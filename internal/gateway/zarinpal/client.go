// Package zarinpal is a client for the ZarinPal v4 payment gateway.
package zarinpal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/lotterydesk/lottery-api/internal/config"
	"github.com/lotterydesk/lottery-api/internal/domain"
)

const (
	apiURL            = "https://api.zarinpal.com/pg/"
	sandboxAPIURL     = "https://sandbox.zarinpal.com/pg/"
	startPayURL       = "https://www.zarinpal.com/pg/"
	sandboxStartPay   = "https://sandbox.zarinpal.com/pg/"
	requestPath       = "v4/payment/request.json"
	verifyPath        = "v4/payment/verify.json"
	codeSuccess       = 100
	codeAlreadyVerify = 101
)

var ErrNotConfigured = errors.New("zarinpal merchant id is not configured")

type Client struct {
	conf     *config.ZarinpalConfig
	http     *http.Client
	apiBase  string
	payBase  string
	callback string
}

func NewClient(conf *config.ZarinpalConfig) *Client {
	c := &Client{
		conf:     conf,
		http:     &http.Client{Timeout: conf.Timeout},
		apiBase:  apiURL,
		payBase:  startPayURL,
		callback: conf.CallbackURL,
	}
	if conf.Sandbox {
		c.apiBase = sandboxAPIURL
		c.payBase = sandboxStartPay
	}

	return c
}

type requestBody struct {
	MerchantID  string            `json:"merchant_id"`
	Amount      int64             `json:"amount"`
	Description string            `json:"description"`
	CallbackURL string            `json:"callback_url"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type verifyBody struct {
	MerchantID string `json:"merchant_id"`
	Amount     int64  `json:"amount"`
	Authority  string `json:"authority"`
}

// envelope is the v4 response shape. data is an empty array on errors and
// errors is an empty array on success, so both are decoded lazily.
type envelope struct {
	Data   json.RawMessage `json:"data"`
	Errors json.RawMessage `json:"errors"`
}

type resultData struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Authority string `json:"authority"`
	RefID     int64  `json:"ref_id"`
}

type resultError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (c *Client) RequestPayment(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutSession, error) {
	if c.conf.MerchantID == "" {
		return domain.CheckoutSession{}, ErrNotConfigured
	}

	data, err := c.call(ctx, requestPath, requestBody{
		MerchantID:  c.conf.MerchantID,
		Amount:      req.Amount,
		Description: req.Description,
		CallbackURL: c.callback,
		Metadata: map[string]string{
			"mobile":   req.Mobile,
			"order_id": req.OrderID,
		},
	})
	if err != nil {
		return domain.CheckoutSession{}, err
	}
	if data.Code != codeSuccess || data.Authority == "" {
		return domain.CheckoutSession{}, fmt.Errorf("zarinpal request rejected: code %d %s", data.Code, data.Message)
	}

	return domain.CheckoutSession{
		Authority:  data.Authority,
		PaymentURL: c.payBase + "StartPay/" + data.Authority,
	}, nil
}

// VerifyPayment returns the ZarinPal reference id. Code 101 means the
// payment was verified before and is treated as success.
func (c *Client) VerifyPayment(ctx context.Context, amount int64, authority string) (string, error) {
	if c.conf.MerchantID == "" {
		return "", ErrNotConfigured
	}

	data, err := c.call(ctx, verifyPath, verifyBody{
		MerchantID: c.conf.MerchantID,
		Amount:     amount,
		Authority:  authority,
	})
	if err != nil {
		return "", err
	}
	if data.Code != codeSuccess && data.Code != codeAlreadyVerify {
		return "", fmt.Errorf("zarinpal verify rejected: code %d %s", data.Code, data.Message)
	}

	return fmt.Sprint(data.RefID), nil
}

func (c *Client) call(ctx context.Context, path string, payload any) (resultData, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return resultData{}, fmt.Errorf("json.Marshal -> %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+path, bytes.NewReader(body))
	if err != nil {
		return resultData{}, fmt.Errorf("http.NewRequestWithContext -> %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return resultData{}, fmt.Errorf("c.http.Do -> %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return resultData{}, fmt.Errorf("io.ReadAll -> %w", err)
	}

	var env envelope
	if err = json.Unmarshal(raw, &env); err != nil {
		return resultData{}, fmt.Errorf("unexpected zarinpal response (HTTP %d) -> %w", resp.StatusCode, err)
	}

	if isObject(env.Errors) {
		var e resultError
		if err = json.Unmarshal(env.Errors, &e); err == nil && e.Code != 0 {
			return resultData{}, fmt.Errorf("zarinpal error %d: %s", e.Code, e.Message)
		}
	}

	var data resultData
	if !isObject(env.Data) {
		return resultData{}, fmt.Errorf("zarinpal response without data (HTTP %d)", resp.StatusCode)
	}
	if err = json.Unmarshal(env.Data, &data); err != nil {
		return resultData{}, fmt.Errorf("json.Unmarshal data -> %w", err)
	}

	return data, nil
}

func isObject(raw json.RawMessage) bool {
	return strings.HasPrefix(strings.TrimSpace(string(raw)), "{")
}
