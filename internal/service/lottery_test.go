package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lotterydesk/lottery-api/internal/config"
	"github.com/lotterydesk/lottery-api/internal/domain"
)

var fixedNow = time.Date(2026, time.October, 15, 12, 0, 0, 0, time.UTC)

type lotteryFixture struct {
	svc      *LotteryService
	store    *memStore
	events   *recordingPublisher
	notifier *fakeNotifier
}

func newLotteryFixture(t *testing.T, policy string) *lotteryFixture {
	t.Helper()

	store := newMemStore()
	events := &recordingPublisher{}
	notifier := &fakeNotifier{}
	svc := NewLotteryService(store, paymentStore{store}, userStore{store}, notifier, events,
		&config.LotteryConfig{PrizePolicy: policy})
	svc.now = func() time.Time { return fixedNow }

	return &lotteryFixture{svc: svc, store: store, events: events, notifier: notifier}
}

func (f *lotteryFixture) configure(t *testing.T, capacity, winners int) domain.Round {
	t.Helper()

	_, round, err := f.svc.UpdateSettings(context.Background(), domain.SettingsUpdate{
		Capacity:     capacity,
		EntryPrice:   50000,
		WinnersCount: winners,
	})
	require.NoError(t, err)

	return round
}

func countOf(actions []string, action string) int {
	n := 0
	for _, a := range actions {
		if a == action {
			n++
		}
	}

	return n
}

func TestLotteryService_FullRoundLifecycle(t *testing.T) {
	f := newLotteryFixture(t, PrizePolicyNone)
	ctx := context.Background()
	round := f.configure(t, 3, 1)
	user := f.store.addUser("09121111111")

	assert.Equal(t, 1, round.Number)
	assert.Equal(t, domain.StatusOpen, round.Status)

	var last domain.Allocation
	for i := 1; i <= 3; i++ {
		alloc, err := f.svc.AllocateCode(ctx, round, user.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, i, alloc.Code.CodeNumber)
		assert.Equal(t, fmt.Sprintf("R01-261015-%d", i), alloc.Code.Code)
		last = alloc
	}
	assert.True(t, last.RoundClosed)
	assert.Equal(t, domain.StatusClosed, last.Round.Status)
	require.NotNil(t, last.Round.ClosedAt)

	_, err := f.svc.AllocateCode(ctx, round, user.ID, nil)
	assert.ErrorIs(t, err, ErrCapacityFull)

	reg, err := f.svc.RegisterWinner(ctx, round.ID, "R01-261015-2")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDrawn, reg.Round.Status)
	assert.Equal(t, 2, reg.Winner.CodeNumber)
	assert.Equal(t, user.ID, reg.Winner.UserID)
	assert.Equal(t, int64(0), reg.Winner.PrizeAmount)
	assert.Equal(t, user.Mobile, f.notifier.sent["R01-261015-2"])

	_, err = f.svc.RegisterWinner(ctx, round.ID, "R01-261015-3")
	assert.ErrorIs(t, err, ErrInvalidRoundState)

	actions := f.store.logActions()
	assert.Equal(t, 3, countOf(actions, domain.ActionCodeIssued))
	assert.Equal(t, 1, countOf(actions, domain.ActionRoundClosed))
	assert.Equal(t, 1, countOf(actions, domain.ActionWinnerSelected))
	assert.Equal(t, 1, countOf(actions, domain.ActionDrawCompleted))

	assert.Equal(t, []domain.EventType{
		domain.EventRoundOpened,
		domain.EventCodeIssued,
		domain.EventCodeIssued,
		domain.EventCodeIssued,
		domain.EventRoundClosed,
		domain.EventWinnerRegistered,
		domain.EventRoundDrawn,
	}, f.events.types())
}

func TestLotteryService_UpdateSettingsRollsOver(t *testing.T) {
	f := newLotteryFixture(t, PrizePolicyNone)
	ctx := context.Background()
	first := f.configure(t, 1000, 1)

	settings, second, err := f.svc.UpdateSettings(ctx, domain.SettingsUpdate{
		Capacity:     500,
		EntryPrice:   70000,
		WinnersCount: 2,
	})
	require.NoError(t, err)

	assert.Equal(t, 500, settings.Capacity)
	assert.Equal(t, domain.StatusOpen, settings.Status)
	assert.Equal(t, 2, second.Number)
	assert.Equal(t, 500, second.Capacity)
	assert.Equal(t, int64(70000), second.EntryPrice)
	assert.Equal(t, domain.StatusOpen, second.Status)

	old, err := f.store.FindRoundByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusClosed, old.Status)
	assert.Equal(t, 1000, old.Capacity, "closed rounds keep their own parameters")

	actions := f.store.logActions()
	assert.Equal(t, 1, countOf(actions, domain.ActionSettingsCreated))
	assert.Equal(t, 1, countOf(actions, domain.ActionSettingsUpdated))
	assert.Equal(t, 2, countOf(actions, domain.ActionRoundCreated))
	assert.Equal(t, 1, countOf(actions, domain.ActionRoundClosed))
}

func TestLotteryService_UpdateSettingsAcceptsMoreWinnersThanCapacity(t *testing.T) {
	f := newLotteryFixture(t, PrizePolicyNone)
	ctx := context.Background()
	first := f.configure(t, 10, 1)

	settings, second, err := f.svc.UpdateSettings(ctx, domain.SettingsUpdate{
		Capacity:     1,
		EntryPrice:   50000,
		WinnersCount: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, settings.Capacity)
	assert.Equal(t, 2, settings.WinnersCount)
	assert.Equal(t, 2, second.Number)
	assert.Equal(t, 1, second.Capacity)
	assert.Equal(t, 2, second.WinnersCount)
	assert.Equal(t, domain.StatusOpen, second.Status)

	old, err := f.store.FindRoundByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusClosed, old.Status)

	user := f.store.addUser("09121111111")
	alloc, err := f.svc.AllocateCode(ctx, second, user.ID, nil)
	require.NoError(t, err)
	assert.True(t, alloc.RoundClosed, "the single slot fills the round")
}

func TestLotteryService_UpdateSettingsValidation(t *testing.T) {
	closed := domain.StatusClosed
	bogus := domain.LotteryStatus("PAUSED")

	tests := []struct {
		name   string
		update domain.SettingsUpdate
		valid  bool
	}{
		{"valid", domain.SettingsUpdate{Capacity: 10, EntryPrice: 1000, WinnersCount: 2}, true},
		{"valid with status", domain.SettingsUpdate{Capacity: 10, EntryPrice: 1000, WinnersCount: 10, Status: &closed}, true},
		{"zero capacity", domain.SettingsUpdate{Capacity: 0, EntryPrice: 1000, WinnersCount: 1}, false},
		{"zero winners", domain.SettingsUpdate{Capacity: 10, EntryPrice: 1000, WinnersCount: 0}, false},
		{"winners above capacity", domain.SettingsUpdate{Capacity: 1, EntryPrice: 1000, WinnersCount: 2}, true},
		{"negative price", domain.SettingsUpdate{Capacity: 10, EntryPrice: -5, WinnersCount: 1}, false},
		{"unknown status", domain.SettingsUpdate{Capacity: 10, EntryPrice: 1000, WinnersCount: 1, Status: &bogus}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateSettingsUpdate(tt.update)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrValidation)
			assert.Equal(t, KindValidation, KindOf(err))
		})
	}
}

func TestLotteryService_GiftCodesIsAllOrNothing(t *testing.T) {
	f := newLotteryFixture(t, PrizePolicyNone)
	ctx := context.Background()
	round := f.configure(t, 10, 1)
	buyer := f.store.addUser("09121111111")
	f.store.addUser("09122222222")

	for i := 0; i < 8; i++ {
		_, err := f.svc.AllocateCode(ctx, round, buyer.ID, nil)
		require.NoError(t, err)
	}

	_, _, err := f.svc.GiftCodes(ctx, domain.GiftRequest{
		Recipient: domain.GiftRecipient{Mobile: "09122222222"},
		Count:     5,
	})
	assert.ErrorIs(t, err, ErrCapacityFull)

	issued, err := f.store.CountCodes(ctx, round.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, issued)
	assert.Zero(t, countOf(f.store.logActions(), domain.ActionCodeGifted))
}

func TestLotteryService_GiftCodes(t *testing.T) {
	f := newLotteryFixture(t, PrizePolicyNone)
	ctx := context.Background()
	round := f.configure(t, 3, 1)
	recipient := f.store.addUser("09122222222")
	handle := "lucky.one"
	recipient.InstagramID = &handle
	_, err := userStore{f.store}.Save(ctx, recipient)
	require.NoError(t, err)

	codes, updated, err := f.svc.GiftCodes(ctx, domain.GiftRequest{
		Recipient: domain.GiftRecipient{InstagramID: "@lucky.one"},
		RoundID:   round.ID,
		Count:     3,
	})
	require.NoError(t, err)
	require.Len(t, codes, 3)
	for i, c := range codes {
		assert.Equal(t, i+1, c.CodeNumber)
		assert.Equal(t, recipient.ID, c.UserID)
	}
	assert.Equal(t, domain.StatusClosed, updated.Status)
	assert.Equal(t, 3, countOf(f.store.logActions(), domain.ActionCodeGifted))

	_, _, err = f.svc.GiftCodes(ctx, domain.GiftRequest{
		Recipient: domain.GiftRecipient{Mobile: "09129999999"},
		Count:     1,
	})
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, _, err = f.svc.GiftCodes(ctx, domain.GiftRequest{Count: 1})
	assert.ErrorIs(t, err, ErrValidation)

	_, _, err = f.svc.GiftCodes(ctx, domain.GiftRequest{
		Recipient: domain.GiftRecipient{Mobile: "09122222222"},
		RoundID:   round.ID,
		Count:     1,
	})
	assert.ErrorIs(t, err, ErrInvalidRoundState)
}

func TestLotteryService_AllocateCodeIsIdempotentPerPayment(t *testing.T) {
	f := newLotteryFixture(t, PrizePolicyNone)
	ctx := context.Background()
	round := f.configure(t, 10, 1)
	user := f.store.addUser("09121111111")
	paymentID := "payment-42"

	first, err := f.svc.AllocateCode(ctx, round, user.ID, &paymentID)
	require.NoError(t, err)
	assert.False(t, first.Existing)

	second, err := f.svc.AllocateCode(ctx, round, user.ID, &paymentID)
	require.NoError(t, err)
	assert.True(t, second.Existing)
	assert.Equal(t, first.Code, second.Code)

	issued, err := f.store.CountCodes(ctx, round.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, issued)
	assert.Equal(t, 1, countOf(f.store.logActions(), domain.ActionCodeIssued))
}

func TestLotteryService_AllocateCodeRetriesOnCollision(t *testing.T) {
	f := newLotteryFixture(t, PrizePolicyNone)
	ctx := context.Background()
	round := f.configure(t, 10, 1)
	user := f.store.addUser("09121111111")
	other := f.store.addUser("09122222222")

	_, err := f.svc.AllocateCode(ctx, round, user.ID, nil)
	require.NoError(t, err)

	// A writer that skipped the lock takes number 2 between our read of
	// the maximum and our insert.
	raced := false
	f.store.createCodeHook = func(code domain.LotteryCode) error {
		if code.CodeNumber == 2 && !raced {
			raced = true
			f.store.st.codes = append(f.store.st.codes, domain.LotteryCode{
				ID:         "code-raced",
				Code:       code.Code,
				CodeNumber: 2,
				UserID:     other.ID,
				RoundID:    round.ID,
			})
		}
		return nil
	}

	alloc, err := f.svc.AllocateCode(ctx, round, user.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, alloc.Code.CodeNumber)
	assert.Equal(t, "R01-261015-03", alloc.Code.Code)
}

func TestLotteryService_AllocateCodeGivesUpAfterMaxAttempts(t *testing.T) {
	f := newLotteryFixture(t, PrizePolicyNone)
	ctx := context.Background()
	round := f.configure(t, 50, 1)
	user := f.store.addUser("09121111111")

	attempts := 0
	f.store.createCodeHook = func(domain.LotteryCode) error {
		attempts++
		return ErrDuplicateCode
	}

	_, err := f.svc.AllocateCode(ctx, round, user.ID, nil)
	assert.ErrorIs(t, err, ErrDuplicateCode)
	assert.Equal(t, KindTransient, KindOf(err))
	assert.Equal(t, maxAllocationAttempts, attempts)

	issued, err := f.store.CountCodes(ctx, round.ID)
	require.NoError(t, err)
	assert.Zero(t, issued)
	assert.Zero(t, countOf(f.store.logActions(), domain.ActionCodeIssued))
}

func TestLotteryService_AllocateCodeRollsBackWhenAuditFails(t *testing.T) {
	f := newLotteryFixture(t, PrizePolicyNone)
	ctx := context.Background()
	round := f.configure(t, 10, 1)
	user := f.store.addUser("09121111111")
	eventsBefore := len(f.events.types())

	f.store.failAppendLog = domain.ActionCodeIssued

	_, err := f.svc.AllocateCode(ctx, round, user.ID, nil)
	require.Error(t, err)

	issued, err := f.store.CountCodes(ctx, round.ID)
	require.NoError(t, err)
	assert.Zero(t, issued)
	assert.Len(t, f.events.types(), eventsBefore, "no events for a rolled back allocation")
}

func TestLotteryService_ConcurrentAllocationsAreGapFree(t *testing.T) {
	const capacity = 20

	f := newLotteryFixture(t, PrizePolicyNone)
	ctx := context.Background()
	round := f.configure(t, capacity, 1)
	user := f.store.addUser("09121111111")

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers []int
		closed  int
	)
	for i := 0; i < capacity+5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			alloc, err := f.svc.AllocateCode(ctx, round, user.ID, nil)
			if err != nil {
				assert.ErrorIs(t, err, ErrCapacityFull)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			numbers = append(numbers, alloc.Code.CodeNumber)
			if alloc.RoundClosed {
				closed++
			}
		}()
	}
	wg.Wait()

	sort.Ints(numbers)
	want := make([]int, capacity)
	for i := range want {
		want[i] = i + 1
	}
	assert.Equal(t, want, numbers)
	assert.Equal(t, 1, closed)
}

func TestLotteryService_RegisterWinnerSMSFailureIsBestEffort(t *testing.T) {
	f := newLotteryFixture(t, PrizePolicyNone)
	ctx := context.Background()
	round := f.configure(t, 5, 2)
	user := f.store.addUser("09121111111")

	alloc, err := f.svc.AllocateCode(ctx, round, user.ID, nil)
	require.NoError(t, err)

	f.notifier.err = errors.New("sms gateway down")

	reg, err := f.svc.RegisterWinner(ctx, round.ID, alloc.Code.Code)
	require.NoError(t, err)
	assert.Equal(t, alloc.Code.Code, reg.Winner.LotteryCode)
	assert.Equal(t, domain.StatusOpen, reg.Round.Status, "one of two winners does not finish the draw")

	assert.Equal(t, 1, countOf(f.store.logActions(), domain.ActionWinnerSelected))
	assert.Equal(t, 1, countOf(f.store.logActions(), domain.ActionWinnerSMSFailed))
}

func TestLotteryService_RegisterWinnerRejections(t *testing.T) {
	f := newLotteryFixture(t, PrizePolicyNone)
	ctx := context.Background()
	round := f.configure(t, 5, 2)
	user := f.store.addUser("09121111111")

	alloc, err := f.svc.AllocateCode(ctx, round, user.ID, nil)
	require.NoError(t, err)

	_, err = f.svc.RegisterWinner(ctx, round.ID, "  ")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.RegisterWinner(ctx, round.ID, "R01-261015-5")
	assert.ErrorIs(t, err, ErrCodeNotFound)

	_, err = f.svc.RegisterWinner(ctx, "round-missing", alloc.Code.Code)
	assert.ErrorIs(t, err, ErrRoundNotFound)

	_, err = f.svc.RegisterWinner(ctx, "", alloc.Code.Code)
	require.NoError(t, err)

	_, err = f.svc.RegisterWinner(ctx, round.ID, alloc.Code.Code)
	assert.ErrorIs(t, err, ErrAlreadyWon)
	assert.Equal(t, KindConflict, KindOf(err))
}

func TestLotteryService_RegisterWinnerQuotaFull(t *testing.T) {
	f := newLotteryFixture(t, PrizePolicyNone)
	ctx := context.Background()
	round := f.configure(t, 5, 1)
	user := f.store.addUser("09121111111")

	first, err := f.svc.AllocateCode(ctx, round, user.ID, nil)
	require.NoError(t, err)
	second, err := f.svc.AllocateCode(ctx, round, user.ID, nil)
	require.NoError(t, err)

	_, err = f.svc.RegisterWinner(ctx, round.ID, first.Code.Code)
	require.NoError(t, err)

	// Put the round back to CLOSED so only the quota stops the second winner.
	drawn, err := f.store.FindRoundByID(ctx, round.ID)
	require.NoError(t, err)
	drawn.Status = domain.StatusClosed
	_, err = f.store.UpdateRoundState(ctx, drawn)
	require.NoError(t, err)

	_, err = f.svc.RegisterWinner(ctx, round.ID, second.Code.Code)
	assert.ErrorIs(t, err, ErrQuotaFull)
}

func TestLotteryService_RevenueSplitPrize(t *testing.T) {
	f := newLotteryFixture(t, PrizePolicyRevenueSplit)
	ctx := context.Background()
	round := f.configure(t, 10, 2)
	user := f.store.addUser("09121111111")
	payments := paymentStore{f.store}

	for i, status := range []domain.PaymentStatus{domain.PaymentSuccess, domain.PaymentSuccess, domain.PaymentSuccess, domain.PaymentFailed} {
		_, err := payments.Create(ctx, domain.Payment{
			UserID:        user.ID,
			RoundID:       round.ID,
			Amount:        50001,
			Status:        status,
			TransactionID: fmt.Sprintf("TXN-%d", i),
		})
		require.NoError(t, err)
	}

	alloc, err := f.svc.AllocateCode(ctx, round, user.ID, nil)
	require.NoError(t, err)

	reg, err := f.svc.RegisterWinner(ctx, round.ID, alloc.Code.Code)
	require.NoError(t, err)
	// 150003 split two ways, rounded down.
	assert.Equal(t, int64(75001), reg.Winner.PrizeAmount)
}

func TestLotteryService_GetOrCreateActiveRound(t *testing.T) {
	f := newLotteryFixture(t, PrizePolicyNone)
	ctx := context.Background()

	round, err := f.svc.GetOrCreateActiveRound(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, round.Number)
	assert.Equal(t, domain.DefaultCapacity, round.Capacity)
	assert.Equal(t, domain.DefaultEntryPrice, round.EntryPrice)

	again, err := f.svc.GetOrCreateActiveRound(ctx)
	require.NoError(t, err)
	assert.Equal(t, round.ID, again.ID)
	assert.Equal(t, []domain.EventType{domain.EventRoundOpened}, f.events.types())

	closed, ok, err := f.svc.CloseActiveRoundIfAny(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, domain.StatusClosed, closed.Status)

	_, ok, err = f.svc.CloseActiveRoundIfAny(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	next, err := f.svc.GetOrCreateActiveRound(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, next.Number)
}

func TestLotteryService_CreateNewOpenRoundFromSettings(t *testing.T) {
	f := newLotteryFixture(t, PrizePolicyNone)
	ctx := context.Background()
	closed := domain.StatusClosed
	_, first, err := f.svc.UpdateSettings(ctx, domain.SettingsUpdate{
		Capacity:     20,
		EntryPrice:   1000,
		WinnersCount: 1,
		Status:       &closed,
	})
	require.NoError(t, err)

	next, err := f.svc.CreateNewOpenRoundFromSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.Number+1, next.Number)
	assert.Equal(t, 20, next.Capacity)

	settings, err := f.svc.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOpen, settings.Status)

	old, err := f.svc.GetRound(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusClosed, old.Round.Status)
	assert.Equal(t, 1, countOf(f.store.logActions(), domain.ActionRoundReset))

	rounds, err := f.svc.ListRounds(ctx, 0)
	require.NoError(t, err)
	require.Len(t, rounds, 2)
	assert.Equal(t, next.ID, rounds[0].ID)
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorKind
	}{
		{nil, KindInternal},
		{errors.New("boom"), KindInternal},
		{validationErr("bad %s", "input"), KindValidation},
		{fmt.Errorf("s.repo.FindRoundByID -> %w", ErrRoundNotFound), KindNotFound},
		{fmt.Errorf("s.repo.UpdateStatus -> %w", ErrFeedbackNotFound), KindNotFound},
		{fmt.Errorf("%w: round 1", ErrCapacityFull), KindConflict},
		{ErrInstagramTaken, KindConflict},
		{ErrRoundConflict, KindTransient},
		{fmt.Errorf("%w: timeout", ErrGateway), KindDownstream},
		{ErrInvalidOTP, KindUnauthorized},
		{&RateLimitError{RetryAfter: time.Second}, KindRateLimited},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, KindOf(tt.err), "%v", tt.err)
	}
	assert.Equal(t, "RATE_LIMITED", KindRateLimited.String())
	assert.Equal(t, "INTERNAL", KindInternal.String())
}
