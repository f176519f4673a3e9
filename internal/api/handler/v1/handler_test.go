package v1

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lotterydesk/lottery-api/internal/api/handler/v1/response"
	"github.com/lotterydesk/lottery-api/internal/api/middleware"
	"github.com/lotterydesk/lottery-api/internal/config"
	"github.com/lotterydesk/lottery-api/internal/domain"
	"github.com/lotterydesk/lottery-api/internal/pkg/jwthelper"
	"github.com/lotterydesk/lottery-api/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeLottery struct {
	LotteryService

	round      domain.Round
	err        error
	gotUpdate  domain.SettingsUpdate
	gotGift    domain.GiftRequest
	gotRoundID string
	gotCode    string
}

func (f *fakeLottery) UpdateSettings(_ context.Context, update domain.SettingsUpdate) (domain.Settings, domain.Round, error) {
	f.gotUpdate = update
	if f.err != nil {
		return domain.Settings{}, domain.Round{}, f.err
	}

	return domain.Settings{Capacity: update.Capacity}, f.round, nil
}

func (f *fakeLottery) GetOrCreateActiveRound(_ context.Context) (domain.Round, error) {
	return f.round, f.err
}

func (f *fakeLottery) GetRound(_ context.Context, id string) (domain.RoundProgress, error) {
	if f.err != nil {
		return domain.RoundProgress{}, f.err
	}

	return domain.NewRoundProgress(f.round, 3, 0), nil
}

func (f *fakeLottery) CloseActiveRoundIfAny(_ context.Context) (domain.Round, bool, error) {
	return f.round, f.round.ID != "", f.err
}

func (f *fakeLottery) GiftCodes(_ context.Context, req domain.GiftRequest) ([]domain.LotteryCode, domain.Round, error) {
	f.gotGift = req
	if f.err != nil {
		return nil, domain.Round{}, f.err
	}

	return []domain.LotteryCode{{Code: "R01-261015-0001", CodeNumber: 1}}, f.round, nil
}

func (f *fakeLottery) RegisterWinner(_ context.Context, roundID, code string) (domain.WinnerRegistration, error) {
	f.gotRoundID, f.gotCode = roundID, code
	if f.err != nil {
		return domain.WinnerRegistration{}, f.err
	}

	return domain.WinnerRegistration{Winner: domain.Winner{LotteryCode: code}, Round: f.round}, nil
}

func serve(t *testing.T, r *gin.Engine, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

func decodeErr(t *testing.T, w *httptest.ResponseRecorder) response.Err {
	t.Helper()

	var body response.Err
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	return body
}

func TestRenderServiceErr(t *testing.T) {
	tests := []struct {
		err        error
		status     int
		kind       string
		retryAfter string
	}{
		{fmt.Errorf("%w: capacity", service.ErrValidation), http.StatusBadRequest, "VALIDATION", ""},
		{service.ErrRoundNotFound, http.StatusNotFound, "NOT_FOUND", ""},
		{service.ErrCapacityFull, http.StatusConflict, "CONFLICT", ""},
		{service.ErrDuplicateCode, http.StatusServiceUnavailable, "", ""},
		{fmt.Errorf("%w: timeout", service.ErrGateway), http.StatusBadGateway, "", ""},
		{service.ErrInvalidOTP, http.StatusUnauthorized, "UNAUTHORIZED", ""},
		{&service.RateLimitError{RetryAfter: 30 * time.Second}, http.StatusTooManyRequests, "", "30"},
		{errors.New("connection reset"), http.StatusInternalServerError, "", ""},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			r := gin.New()
			r.GET("/", func(ctx *gin.Context) { renderServiceErr(ctx, "test", tt.err) })

			w := serve(t, r, http.MethodGet, "/", "")
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.retryAfter, w.Header().Get("Retry-After"))

			body := decodeErr(t, w)
			assert.Equal(t, http.StatusText(tt.status), body.StatusText)
			if tt.kind != "" {
				assert.Equal(t, tt.kind, body.Kind)
			}
			if tt.status == http.StatusInternalServerError {
				assert.NotContains(t, w.Body.String(), "connection reset")
			}
		})
	}
}

func TestLotteryHandler_UpdateSettings(t *testing.T) {
	svc := &fakeLottery{round: domain.Round{ID: "r2", Number: 2, Capacity: 500, Status: domain.StatusOpen}}
	r := gin.New()
	r.PUT("/settings", NewLotteryHandler(svc).HandleUpdateSettings)

	w := serve(t, r, http.MethodPut, "/settings", `{"capacity":500,"entryPrice":50000,"winnersCount":2,"status":"CLOSED"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body response.SettingsUpdateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Round.Number)
	assert.Equal(t, 500, svc.gotUpdate.Capacity)
	require.NotNil(t, svc.gotUpdate.Status)
	assert.Equal(t, domain.StatusClosed, *svc.gotUpdate.Status)

	w = serve(t, r, http.MethodPut, "/settings", `{"capacity":1,"entryPrice":50000,"winnersCount":2}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 1, svc.gotUpdate.Capacity)
	assert.Equal(t, 2, svc.gotUpdate.WinnersCount)

	w = serve(t, r, http.MethodPut, "/settings", `{"capacity":0,"entryPrice":50000,"winnersCount":2}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(t, r, http.MethodPut, "/settings", `{"capacity":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLotteryHandler_GiftCodes(t *testing.T) {
	svc := &fakeLottery{round: domain.Round{ID: "r1", Number: 1, Status: domain.StatusOpen}}
	r := gin.New()
	r.POST("/gift", NewLotteryHandler(svc).HandleGiftCodes)

	w := serve(t, r, http.MethodPost, "/gift", `{"instagramId":"@lucky.one","count":2}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "lucky.one", svc.gotGift.Recipient.InstagramID)
	assert.Equal(t, 2, svc.gotGift.Count)

	w = serve(t, r, http.MethodPost, "/gift", `{"count":2}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	svc.err = fmt.Errorf("%w: 1 of 10 slots left", service.ErrCapacityFull)
	w = serve(t, r, http.MethodPost, "/gift", `{"mobile":"09121111111","count":2}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, decodeErr(t, w).ErrorText, "slots left")
}

func TestLotteryHandler_RegisterWinner(t *testing.T) {
	roundID := "0b8f7f0e-4c1d-4a53-9d0e-7f1b2c3d4e5f"
	svc := &fakeLottery{round: domain.Round{ID: roundID, Status: domain.StatusDrawn}}
	r := gin.New()
	r.POST("/winners", NewLotteryHandler(svc).HandleRegisterWinner)

	w := serve(t, r, http.MethodPost, "/winners", fmt.Sprintf(`{"roundId":%q,"lotteryCode":"R01-261015-2"}`, roundID))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, roundID, svc.gotRoundID)
	assert.Equal(t, "R01-261015-2", svc.gotCode)

	w = serve(t, r, http.MethodPost, "/winners", `{"roundId":"not-a-uuid","lotteryCode":"R01-261015-2"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	svc.err = service.ErrAlreadyWon
	w = serve(t, r, http.MethodPost, "/winners", `{"lotteryCode":"R01-261015-2"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestLotteryHandler_ActiveRoundAndClose(t *testing.T) {
	svc := &fakeLottery{round: domain.Round{ID: "r1", Number: 1, Capacity: 10, Status: domain.StatusOpen}}
	h := NewLotteryHandler(svc)
	r := gin.New()
	r.GET("/active", h.HandleGetActiveRound)
	r.POST("/close", h.HandleCloseRound)

	w := serve(t, r, http.MethodGet, "/active", "")
	require.Equal(t, http.StatusOK, w.Code)
	var progress domain.RoundProgress
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &progress))
	assert.Equal(t, 7, progress.Remaining)

	w = serve(t, r, http.MethodPost, "/close", "")
	require.Equal(t, http.StatusOK, w.Code)
	var closed response.CloseRoundResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &closed))
	assert.True(t, closed.Closed)
	require.NotNil(t, closed.Round)

	svc.round = domain.Round{}
	w = serve(t, r, http.MethodPost, "/close", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"closed":false}`, w.Body.String())
}

type fakeAuth struct {
	user domain.User
	err  error
}

func (f *fakeAuth) SendOTP(context.Context, string) (time.Time, error) {
	return time.Now().Add(2 * time.Minute), f.err
}

func (f *fakeAuth) VerifyOTP(_ context.Context, mobile, _ string) (domain.User, error) {
	if f.err != nil {
		return domain.User{}, f.err
	}
	user := f.user
	user.Mobile = mobile

	return user, nil
}

func (f *fakeAuth) Precheck(context.Context, string) (domain.Precheck, error) {
	return domain.Precheck{Exists: true}, f.err
}

func TestAuthHandler_VerifyOTP(t *testing.T) {
	conf := &config.APIConfig{
		JWTSigningKey: "0123456789abcdef0123",
		JWTTTL:        time.Hour,
		AdminMobile:   "09120000000",
	}
	svc := &fakeAuth{user: domain.User{ID: "user-1", IsActive: true}}
	r := gin.New()
	h := NewAuthHandler(conf, svc)
	r.POST("/verify", h.HandleVerifyOTP)
	r.POST("/send", h.HandleSendOTP)

	w := serve(t, r, http.MethodPost, "/verify", `{"mobile":"09120000000","code":"123456"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body response.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	claims, err := jwthelper.ParseToken([]byte(conf.JWTSigningKey), body.Token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.True(t, claims.Admin)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, middleware.TokenCookie, cookies[0].Name)
	assert.Equal(t, body.Token, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)

	w = serve(t, r, http.MethodPost, "/verify", `{"mobile":"09121111111","code":"123456"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	claims, err = jwthelper.ParseToken([]byte(conf.JWTSigningKey), body.Token)
	require.NoError(t, err)
	assert.False(t, claims.Admin)

	w = serve(t, r, http.MethodPost, "/verify", `{"mobile":"9121111111","code":"123456"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	svc.err = service.ErrInvalidOTP
	w = serve(t, r, http.MethodPost, "/verify", `{"mobile":"09121111111","code":"123456"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, w.Result().Cookies())

	svc.err = &service.RateLimitError{RetryAfter: 20 * time.Second}
	w = serve(t, r, http.MethodPost, "/send", `{"mobile":"09121111111"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "20", w.Header().Get("Retry-After"))
}

type fakePayments struct {
	outcome domain.PaymentOutcome
	err     error
	userID  string
}

func (f *fakePayments) CreatePayment(_ context.Context, userID string) (domain.Payment, domain.CheckoutSession, error) {
	f.userID = userID
	if f.err != nil {
		return domain.Payment{}, domain.CheckoutSession{}, f.err
	}

	return domain.Payment{ID: "p1", UserID: userID, Status: domain.PaymentPending},
		domain.CheckoutSession{Authority: "A1", PaymentURL: "https://pay.example/A1"}, nil
}

func (f *fakePayments) VerifyPayment(context.Context, string, string) (domain.PaymentOutcome, error) {
	return f.outcome, f.err
}

func TestPaymentHandler(t *testing.T) {
	svc := &fakePayments{}
	h := NewPaymentHandler(svc, "https://lottery.example/")
	r := gin.New()
	r.POST("/payments", func(ctx *gin.Context) {
		if id := ctx.GetHeader("X-Test-User"); id != "" {
			ctx.Set(middleware.CtxUserID, id)
		}
		h.HandleCreatePayment(ctx)
	})
	r.GET("/verify", h.HandleVerifyPayment)

	w := serve(t, r, http.MethodPost, "/payments", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/payments", nil)
	req.Header.Set("X-Test-User", "user-7")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "user-7", svc.userID)
	assert.Contains(t, w.Body.String(), "https://pay.example/A1")

	refID := "REF-99"
	svc.outcome = domain.PaymentOutcome{
		Payment: domain.Payment{TransactionID: "TXN-1", RefID: &refID},
		Code:    &domain.LotteryCode{Code: "R01-261015-0001"},
	}
	w = serve(t, r, http.MethodGet, "/verify?Authority=A1&Status=OK", "")
	require.Equal(t, http.StatusFound, w.Code)
	location, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "lottery.example", location.Host)
	assert.Equal(t, "/payment/result", location.Path)
	assert.Equal(t, "true", location.Query().Get("success"))
	assert.Equal(t, "R01-261015-0001", location.Query().Get("code"))
	assert.Equal(t, "REF-99", location.Query().Get("refId"))
	assert.Equal(t, "TXN-1", location.Query().Get("transactionId"))

	svc.outcome = domain.PaymentOutcome{Payment: domain.Payment{TransactionID: "TXN-2"}}
	svc.err = service.ErrPaymentCancelled
	w = serve(t, r, http.MethodGet, "/verify?Authority=A2&Status=NOK", "")
	require.Equal(t, http.StatusFound, w.Code)
	location, err = url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "false", location.Query().Get("success"))
	assert.Equal(t, "CONFLICT", location.Query().Get("reason"))
	assert.Equal(t, "TXN-2", location.Query().Get("transactionId"))
}
