package zarinpal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lotterydesk/lottery-api/internal/config"
	"github.com/lotterydesk/lottery-api/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(&config.ZarinpalConfig{
		MerchantID:  "merchant",
		CallbackURL: "https://lottery.example/api/v1/payments/verify",
		Timeout:     time.Second,
	})
	c.apiBase = srv.URL + "/pg/"

	return c
}

func TestClient_RequestPayment(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pg/"+requestPath, r.URL.Path)

		var body requestBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "merchant", body.MerchantID)
		assert.Equal(t, int64(50000), body.Amount)
		assert.Equal(t, "TXN-1", body.Metadata["order_id"])

		_, _ = w.Write([]byte(`{"data":{"code":100,"message":"Success","authority":"A000000000000000000000000000abcd"},"errors":[]}`))
	})

	session, err := c.RequestPayment(context.Background(), domain.CheckoutRequest{
		Amount:      50000,
		Description: "entry",
		Mobile:      "09120000000",
		OrderID:     "TXN-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "A000000000000000000000000000abcd", session.Authority)
	assert.Equal(t, startPayURL+"StartPay/A000000000000000000000000000abcd", session.PaymentURL)
}

func TestClient_RequestPayment_Error(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"data":[],"errors":{"code":-9,"message":"The input params invalid, validation error."}}`))
	})

	_, err := c.RequestPayment(context.Background(), domain.CheckoutRequest{Amount: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "-9")
}

func TestClient_VerifyPayment(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantRef string
		wantErr bool
	}{
		{name: "verified", body: `{"data":{"code":100,"ref_id":201},"errors":[]}`, wantRef: "201"},
		{name: "already verified", body: `{"data":{"code":101,"ref_id":201},"errors":[]}`, wantRef: "201"},
		{name: "rejected", body: `{"data":[],"errors":{"code":-51,"message":"Session is not valid"}}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/pg/"+verifyPath, r.URL.Path)
				_, _ = w.Write([]byte(tt.body))
			})

			ref, err := c.VerifyPayment(context.Background(), 50000, "A1")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRef, ref)
		})
	}
}

func TestClient_NotConfigured(t *testing.T) {
	c := NewClient(&config.ZarinpalConfig{Sandbox: true})

	_, err := c.RequestPayment(context.Background(), domain.CheckoutRequest{})
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Equal(t, sandboxAPIURL, c.apiBase)
}
