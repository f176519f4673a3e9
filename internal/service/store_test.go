package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lotterydesk/lottery-api/internal/domain"
	"github.com/lotterydesk/lottery-api/internal/repository"
)

type txKey struct{}

type memState struct {
	settings *domain.Settings
	rounds   map[string]domain.Round
	codes    []domain.LotteryCode
	winners  []domain.Winner
	logs     []domain.TransactionLog
	payments map[string]domain.Payment
	users    map[string]domain.User
	otps     []domain.OTP
}

func (st memState) clone() memState {
	c := memState{
		rounds:   make(map[string]domain.Round, len(st.rounds)),
		codes:    append([]domain.LotteryCode(nil), st.codes...),
		winners:  append([]domain.Winner(nil), st.winners...),
		logs:     append([]domain.TransactionLog(nil), st.logs...),
		payments: make(map[string]domain.Payment, len(st.payments)),
		users:    make(map[string]domain.User, len(st.users)),
		otps:     append([]domain.OTP(nil), st.otps...),
	}
	if st.settings != nil {
		s := *st.settings
		c.settings = &s
	}
	for k, v := range st.rounds {
		c.rounds[k] = v
	}
	for k, v := range st.payments {
		c.payments[k] = v
	}
	for k, v := range st.users {
		c.users[k] = v
	}

	return c
}

// memStore implements the three service repositories in memory. An outer
// Transaction holds txMu for its whole duration, which stands in for the
// row lock, and restores a snapshot when fn fails.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex
	seq  int
	st   memState

	// createCodeHook runs before a code is stored. A non-nil error is
	// returned from CreateCode as is.
	createCodeHook func(code domain.LotteryCode) error
	// failAppendLog makes AppendLog fail for the given action.
	failAppendLog string
}

func newMemStore() *memStore {
	return &memStore{
		st: memState{
			rounds:   make(map[string]domain.Round),
			payments: make(map[string]domain.Payment),
			users:    make(map[string]domain.User),
		},
	}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *memStore) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	snapshot := m.st.clone()
	m.mu.Unlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		m.mu.Lock()
		m.st = snapshot
		m.mu.Unlock()

		return err
	}

	return nil
}

func (m *memStore) FindSettings(_ context.Context) (domain.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.st.settings == nil {
		return domain.Settings{}, repository.ErrSettingsNotFound
	}

	return *m.st.settings, nil
}

func (m *memStore) CreateSettingsIfAbsent(_ context.Context, settings domain.Settings) (domain.Settings, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.st.settings != nil {
		return *m.st.settings, false, nil
	}

	settings.CreatedAt = time.Now()
	settings.UpdatedAt = settings.CreatedAt
	m.st.settings = &settings

	return settings, true, nil
}

func (m *memStore) SaveSettings(_ context.Context, settings domain.Settings) (domain.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	settings.UpdatedAt = time.Now()
	m.st.settings = &settings

	return settings, nil
}

func (m *memStore) FindOpenRound(_ context.Context) (domain.Round, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.st.rounds {
		if r.Status == domain.StatusOpen {
			return r, nil
		}
	}

	return domain.Round{}, repository.ErrRoundNotFound
}

func (m *memStore) FindRoundByID(_ context.Context, id string) (domain.Round, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.st.rounds[id]
	if !ok {
		return domain.Round{}, repository.ErrRoundNotFound
	}

	return r, nil
}

func (m *memStore) LockRound(ctx context.Context, id string) (domain.Round, error) {
	return m.FindRoundByID(ctx, id)
}

func (m *memStore) MaxRoundNumber(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	highest := 0
	for _, r := range m.st.rounds {
		if r.Number > highest {
			highest = r.Number
		}
	}

	return highest, nil
}

func (m *memStore) CreateRound(_ context.Context, round domain.Round) (domain.Round, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.st.rounds {
		if r.Number == round.Number || (round.Status == domain.StatusOpen && r.Status == domain.StatusOpen) {
			return domain.Round{}, repository.ErrRoundConflict
		}
	}

	round.ID = m.nextID("round")
	m.st.rounds[round.ID] = round

	return round, nil
}

func (m *memStore) UpdateRoundState(_ context.Context, round domain.Round) (domain.Round, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.st.rounds[round.ID]
	if !ok {
		return domain.Round{}, repository.ErrRoundNotFound
	}
	stored.Status = round.Status
	stored.ClosedAt = round.ClosedAt
	stored.DrawDate = round.DrawDate
	m.st.rounds[round.ID] = stored

	return stored, nil
}

func (m *memStore) ListRounds(_ context.Context, limit int) ([]domain.Round, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rounds := make([]domain.Round, 0, len(m.st.rounds))
	for _, r := range m.st.rounds {
		rounds = append(rounds, r)
	}
	sort.Slice(rounds, func(i, j int) bool { return rounds[i].Number > rounds[j].Number })
	if len(rounds) > limit {
		rounds = rounds[:limit]
	}

	return rounds, nil
}

func (m *memStore) CountCodes(_ context.Context, roundID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, c := range m.st.codes {
		if c.RoundID == roundID {
			n++
		}
	}

	return n, nil
}

func (m *memStore) MaxCodeNumber(_ context.Context, roundID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	highest := 0
	for _, c := range m.st.codes {
		if c.RoundID == roundID && c.CodeNumber > highest {
			highest = c.CodeNumber
		}
	}

	return highest, nil
}

func (m *memStore) CreateCode(_ context.Context, code domain.LotteryCode) (domain.LotteryCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createCodeHook != nil {
		if err := m.createCodeHook(code); err != nil {
			return domain.LotteryCode{}, err
		}
	}

	for _, c := range m.st.codes {
		if code.PaymentID != nil && c.PaymentID != nil && *c.PaymentID == *code.PaymentID {
			return domain.LotteryCode{}, repository.ErrPaymentHasCode
		}
		if c.Code == code.Code || (c.RoundID == code.RoundID && c.CodeNumber == code.CodeNumber) {
			return domain.LotteryCode{}, repository.ErrDuplicateCode
		}
	}

	code.ID = m.nextID("code")
	m.st.codes = append(m.st.codes, code)

	return code, nil
}

func (m *memStore) findCode(match func(c domain.LotteryCode) bool) (domain.LotteryCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.st.codes {
		if match(c) {
			return c, nil
		}
	}

	return domain.LotteryCode{}, repository.ErrCodeNotFound
}

func (m *memStore) FindCodeByPaymentID(_ context.Context, paymentID string) (domain.LotteryCode, error) {
	return m.findCode(func(c domain.LotteryCode) bool { return c.PaymentID != nil && *c.PaymentID == paymentID })
}

func (m *memStore) FindCodeByValue(_ context.Context, code string) (domain.LotteryCode, error) {
	return m.findCode(func(c domain.LotteryCode) bool { return c.Code == code })
}

func (m *memStore) FindCodeInRound(_ context.Context, roundID, code string) (domain.LotteryCode, error) {
	return m.findCode(func(c domain.LotteryCode) bool { return c.RoundID == roundID && c.Code == code })
}

func (m *memStore) listCodes(match func(c domain.LotteryCode) bool) []domain.LotteryCode {
	m.mu.Lock()
	defer m.mu.Unlock()

	codes := []domain.LotteryCode{}
	for _, c := range m.st.codes {
		if match(c) {
			codes = append(codes, c)
		}
	}

	return codes
}

func (m *memStore) ListCodesByRound(_ context.Context, roundID string) ([]domain.LotteryCode, error) {
	return m.listCodes(func(c domain.LotteryCode) bool { return c.RoundID == roundID }), nil
}

func (m *memStore) ListCodesByUser(_ context.Context, userID string) ([]domain.LotteryCode, error) {
	return m.listCodes(func(c domain.LotteryCode) bool { return c.UserID == userID }), nil
}

func (m *memStore) CountWinners(ctx context.Context, roundID string) (int, error) {
	winners, _ := m.ListWinnersByRound(ctx, roundID)
	return len(winners), nil
}

func (m *memStore) WinnerExists(_ context.Context, roundID, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, w := range m.st.winners {
		if w.RoundID == roundID && w.LotteryCode == code {
			return true, nil
		}
	}

	return false, nil
}

func (m *memStore) CreateWinner(_ context.Context, winner domain.Winner) (domain.Winner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, w := range m.st.winners {
		if w.RoundID == winner.RoundID && w.LotteryCode == winner.LotteryCode {
			return domain.Winner{}, repository.ErrWinnerExists
		}
	}

	winner.ID = m.nextID("winner")
	winner.CreatedAt = time.Now()
	m.st.winners = append(m.st.winners, winner)

	return winner, nil
}

func (m *memStore) ListWinnersByRound(_ context.Context, roundID string) ([]domain.Winner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	winners := []domain.Winner{}
	for _, w := range m.st.winners {
		if w.RoundID == roundID {
			winners = append(winners, w)
		}
	}

	return winners, nil
}

func (m *memStore) AppendLog(_ context.Context, entry domain.TransactionLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failAppendLog != "" && entry.Action == m.failAppendLog {
		return fmt.Errorf("log store unavailable")
	}

	entry.ID = m.nextID("log")
	entry.CreatedAt = time.Now()
	m.st.logs = append(m.st.logs, entry)

	return nil
}

func (m *memStore) ListLogs(_ context.Context, limit int) ([]domain.TransactionLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	logs := make([]domain.TransactionLog, 0, limit)
	for i := len(m.st.logs) - 1; i >= 0 && len(logs) < limit; i-- {
		logs = append(logs, m.st.logs[i])
	}

	return logs, nil
}

// paymentStore and userStore expose the payment and user halves of memStore
// under the method names their repositories use.
type paymentStore struct{ *memStore }

func (p paymentStore) Create(_ context.Context, payment domain.Payment) (domain.Payment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, existing := range p.st.payments {
		if existing.TransactionID == payment.TransactionID {
			return domain.Payment{}, repository.ErrPaymentTransactionID
		}
	}

	payment.ID = p.nextID("payment")
	payment.CreatedAt = time.Now()
	payment.UpdatedAt = payment.CreatedAt
	p.st.payments[payment.ID] = payment

	return payment, nil
}

func (p paymentStore) Save(_ context.Context, payment domain.Payment) (domain.Payment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.st.payments[payment.ID]; !ok {
		return domain.Payment{}, repository.ErrPaymentNotFound
	}
	payment.UpdatedAt = time.Now()
	p.st.payments[payment.ID] = payment

	return payment, nil
}

func (p paymentStore) FailPending(_ context.Context, id string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	payment, ok := p.st.payments[id]
	if !ok || payment.Status != domain.PaymentPending {
		return false, nil
	}
	payment.Status = domain.PaymentFailed
	payment.UpdatedAt = time.Now()
	p.st.payments[id] = payment

	return true, nil
}

func (p paymentStore) FindByID(_ context.Context, id string) (domain.Payment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	payment, ok := p.st.payments[id]
	if !ok {
		return domain.Payment{}, repository.ErrPaymentNotFound
	}

	return payment, nil
}

func (p paymentStore) FindByAuthority(_ context.Context, authority string) (domain.Payment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, payment := range p.st.payments {
		if payment.Authority == authority {
			return payment, nil
		}
	}

	return domain.Payment{}, repository.ErrPaymentNotFound
}

func (p paymentStore) list(match func(domain.Payment) bool) []domain.Payment {
	p.mu.Lock()
	defer p.mu.Unlock()

	payments := []domain.Payment{}
	for _, payment := range p.st.payments {
		if match(payment) {
			payments = append(payments, payment)
		}
	}
	sort.Slice(payments, func(i, j int) bool { return payments[i].ID < payments[j].ID })

	return payments
}

func (p paymentStore) ListByUser(_ context.Context, userID string, limit int) ([]domain.Payment, error) {
	payments := p.list(func(payment domain.Payment) bool { return payment.UserID == userID })
	if len(payments) > limit {
		payments = payments[:limit]
	}

	return payments, nil
}

func (p paymentStore) ListByRound(_ context.Context, roundID string) ([]domain.Payment, error) {
	return p.list(func(payment domain.Payment) bool { return payment.RoundID == roundID }), nil
}

func (p paymentStore) SumSuccessful(_ context.Context, roundID string) (int64, error) {
	var sum int64
	for _, payment := range p.list(func(payment domain.Payment) bool {
		return payment.RoundID == roundID && payment.Status == domain.PaymentSuccess
	}) {
		sum += payment.Amount
	}

	return sum, nil
}

func (p paymentStore) RevenueByRound(_ context.Context) (map[string]domain.RoundFinance, error) {
	revenue := make(map[string]domain.RoundFinance)
	for _, payment := range p.list(func(payment domain.Payment) bool { return payment.Status == domain.PaymentSuccess }) {
		f := revenue[payment.RoundID]
		f.RoundID = payment.RoundID
		f.Revenue += payment.Amount
		f.SuccessfulPayments++
		revenue[payment.RoundID] = f
	}

	return revenue, nil
}

type userStore struct{ *memStore }

func (u userStore) Create(_ context.Context, user domain.User) (domain.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	for _, existing := range u.st.users {
		if existing.Mobile == user.Mobile {
			return domain.User{}, repository.ErrUserMobileExists
		}
	}

	user.ID = u.nextID("user")
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	u.st.users[user.ID] = user

	return user, nil
}

func (u userStore) Save(_ context.Context, user domain.User) (domain.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if _, ok := u.st.users[user.ID]; !ok {
		return domain.User{}, repository.ErrUserNotFound
	}
	for _, existing := range u.st.users {
		if existing.ID != user.ID && user.InstagramID != nil && existing.InstagramID != nil &&
			*existing.InstagramID == *user.InstagramID {
			return domain.User{}, repository.ErrUserInstagramExists
		}
	}
	user.UpdatedAt = time.Now()
	u.st.users[user.ID] = user

	return user, nil
}

func (u userStore) find(match func(domain.User) bool) (domain.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	for _, user := range u.st.users {
		if match(user) {
			return user, nil
		}
	}

	return domain.User{}, repository.ErrUserNotFound
}

func (u userStore) FindByID(_ context.Context, id string) (domain.User, error) {
	return u.find(func(user domain.User) bool { return user.ID == id })
}

func (u userStore) FindByMobile(_ context.Context, mobile string) (domain.User, error) {
	return u.find(func(user domain.User) bool { return user.Mobile == mobile })
}

func (u userStore) FindByInstagramID(_ context.Context, instagramID string) (domain.User, error) {
	return u.find(func(user domain.User) bool { return user.InstagramID != nil && *user.InstagramID == instagramID })
}

func (u userStore) CreateOTP(_ context.Context, otp domain.OTP) (domain.OTP, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	otp.ID = u.nextID("otp")
	if otp.CreatedAt.IsZero() {
		otp.CreatedAt = time.Now()
	}
	u.st.otps = append(u.st.otps, otp)

	return otp, nil
}

func (u userStore) FindPendingOTPs(_ context.Context, userID string, now time.Time, limit int) ([]domain.OTP, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	otps := []domain.OTP{}
	for i := len(u.st.otps) - 1; i >= 0 && len(otps) < limit; i-- {
		otp := u.st.otps[i]
		if otp.UserID == userID && !otp.Verified && otp.ExpiresAt.After(now) {
			otps = append(otps, otp)
		}
	}

	return otps, nil
}

func (u userStore) MarkOTPVerified(_ context.Context, id string) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	for i := range u.st.otps {
		if u.st.otps[i].ID == id {
			u.st.otps[i].Verified = true
			return nil
		}
	}

	return fmt.Errorf("otp %s not found", id)
}

func (u userStore) DeleteOTPsBefore(_ context.Context, before time.Time) (int64, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	kept := u.st.otps[:0]
	var deleted int64
	for _, otp := range u.st.otps {
		if otp.CreatedAt.Before(before) {
			deleted++
			continue
		}
		kept = append(kept, otp)
	}
	u.st.otps = kept

	return deleted, nil
}

func (m *memStore) logActions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	actions := make([]string, 0, len(m.st.logs))
	for _, l := range m.st.logs {
		actions = append(actions, l.Action)
	}

	return actions
}

func (m *memStore) addUser(mobile string) domain.User {
	user, err := userStore{m}.Create(context.Background(), domain.User{Mobile: mobile, IsActive: true, TermsAccepted: true})
	if err != nil {
		panic(err)
	}

	return user
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.LotteryEvent
}

func (p *recordingPublisher) Publish(event domain.LotteryEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, event)
}

func (p *recordingPublisher) types() []domain.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()

	types := make([]domain.EventType, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.Type)
	}

	return types
}

type fakeNotifier struct {
	mu   sync.Mutex
	err  error
	sent map[string]string
}

func (n *fakeNotifier) NotifyWinner(_ context.Context, mobile, code string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.err != nil {
		return n.err
	}
	if n.sent == nil {
		n.sent = make(map[string]string)
	}
	n.sent[code] = mobile

	return nil
}
