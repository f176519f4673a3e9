package dao

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrSettingsNotFound = errors.New("lottery settings not found")
	ErrRoundNotFound    = errors.New("round not found")
	ErrRoundConflict    = errors.New("round number or open round already taken")
	ErrCodeNotFound     = errors.New("lottery code not found")
	ErrDuplicateCode    = errors.New("lottery code already exists")
	ErrPaymentHasCode   = errors.New("payment already owns a lottery code")
	ErrWinnerExists     = errors.New("lottery code already won in this round")
)

const (
	uniqCodeValue       = "uniq_lottery_codes_code"
	uniqCodeRoundNumber = "uniq_lottery_codes_round_number"
	uniqCodePayment     = "uniq_lottery_codes_payment"
)

type Settings struct {
	ID           string `gorm:"primaryKey;size:36"`
	Capacity     int    `gorm:"not null;default:1000"`
	EntryPrice   int64  `gorm:"not null;default:50000"`
	WinnersCount int    `gorm:"not null;default:1"`
	Status       string `gorm:"not null;default:OPEN"`
	PrizeType    *string
	DrawDate     *time.Time

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (Settings) TableName() string {
	return "lottery_settings"
}

type Round struct {
	ID           string    `gorm:"primaryKey;size:36"`
	Number       int       `gorm:"not null;uniqueIndex:uniq_lottery_rounds_number"`
	Capacity     int       `gorm:"not null"`
	EntryPrice   int64     `gorm:"not null"`
	WinnersCount int       `gorm:"not null"`
	Status       string    `gorm:"not null;index"`
	StartedAt    time.Time `gorm:"not null"`
	ClosedAt     *time.Time
	DrawDate     *time.Time

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (Round) TableName() string {
	return "lottery_rounds"
}

func (r *Round) BeforeCreate(*gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}

	return nil
}

type LotteryCode struct {
	ID         string  `gorm:"primaryKey;size:36"`
	Code       string  `gorm:"not null;uniqueIndex:uniq_lottery_codes_code"`
	CodeNumber int     `gorm:"not null;uniqueIndex:uniq_lottery_codes_round_number,priority:2"`
	RoundID    string  `gorm:"not null;size:36;uniqueIndex:uniq_lottery_codes_round_number,priority:1"`
	UserID     string  `gorm:"not null;size:36;index"`
	PaymentID  *string `gorm:"size:36;uniqueIndex:uniq_lottery_codes_payment"`

	CreatedAt time.Time `gorm:"not null"`
}

func (LotteryCode) TableName() string {
	return "lottery_codes"
}

func (c *LotteryCode) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	return nil
}

type Winner struct {
	ID          string    `gorm:"primaryKey;size:36"`
	RoundID     string    `gorm:"not null;size:36;uniqueIndex:uniq_winners_round_code,priority:1"`
	LotteryCode string    `gorm:"not null;uniqueIndex:uniq_winners_round_code,priority:2"`
	CodeNumber  int       `gorm:"not null"`
	UserID      string    `gorm:"not null;size:36;index"`
	DrawDate    time.Time `gorm:"not null"`
	PrizeAmount int64     `gorm:"not null;default:0"`
	PrizeType   *string

	CreatedAt time.Time `gorm:"not null"`
}

func (Winner) TableName() string {
	return "winners"
}

func (w *Winner) BeforeCreate(*gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}

	return nil
}

type LotteryDAO struct {
	db *gorm.DB
}

func NewLotteryDAO(db *gorm.DB) *LotteryDAO {
	return &LotteryDAO{
		db: db,
	}
}

func (d *LotteryDAO) FindSettings(ctx context.Context) (Settings, error) {
	var settings Settings
	result := conn(ctx, d.db).First(&settings, "id = ?", defaultSettingsID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Settings{}, ErrSettingsNotFound
		}

		return Settings{}, result.Error
	}

	return settings, nil
}

// InsertSettingsIfAbsent creates the singleton row unless another writer got
// there first. It reports whether this call created it.
func (d *LotteryDAO) InsertSettingsIfAbsent(ctx context.Context, settings Settings) (Settings, bool, error) {
	settings.ID = defaultSettingsID
	result := conn(ctx, d.db).Clauses(clause.OnConflict{DoNothing: true}).Create(&settings)
	if result.Error != nil {
		return Settings{}, false, result.Error
	}

	found, err := d.FindSettings(ctx)
	if err != nil {
		return Settings{}, false, err
	}

	return found, result.RowsAffected == 1, nil
}

func (d *LotteryDAO) SaveSettings(ctx context.Context, settings Settings) (Settings, error) {
	settings.ID = defaultSettingsID
	if err := conn(ctx, d.db).Save(&settings).Error; err != nil {
		return Settings{}, err
	}

	return settings, nil
}

func (d *LotteryDAO) FindOpenRound(ctx context.Context) (Round, error) {
	var round Round
	result := conn(ctx, d.db).Where("status = ?", "OPEN").Order("number DESC").First(&round)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Round{}, ErrRoundNotFound
		}

		return Round{}, result.Error
	}

	return round, nil
}

// FindRoundByID loads a round, taking a row lock when forUpdate is set.
func (d *LotteryDAO) FindRoundByID(ctx context.Context, id string, forUpdate bool) (Round, error) {
	q := conn(ctx, d.db)
	if forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var round Round
	result := q.First(&round, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Round{}, ErrRoundNotFound
		}

		return Round{}, result.Error
	}

	return round, nil
}

func (d *LotteryDAO) MaxRoundNumber(ctx context.Context) (int, error) {
	var n int
	err := conn(ctx, d.db).Model(&Round{}).Select("COALESCE(MAX(number), 0)").Scan(&n).Error

	return n, err
}

func (d *LotteryDAO) InsertRound(ctx context.Context, round Round) (Round, error) {
	err := conn(ctx, d.db).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&round).Error
	})
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return Round{}, ErrRoundConflict
		}

		return Round{}, err
	}

	return round, nil
}

// UpdateRoundState persists the lifecycle columns. The frozen parameters
// are never written after insert.
func (d *LotteryDAO) UpdateRoundState(ctx context.Context, round Round) (Round, error) {
	result := conn(ctx, d.db).Model(&round).
		Select("Status", "ClosedAt", "DrawDate").
		Updates(Round{Status: round.Status, ClosedAt: round.ClosedAt, DrawDate: round.DrawDate})
	if result.Error != nil {
		return Round{}, result.Error
	}
	if result.RowsAffected == 0 {
		return Round{}, ErrRoundNotFound
	}

	return round, nil
}

func (d *LotteryDAO) ListRounds(ctx context.Context, limit int) ([]Round, error) {
	var rounds []Round
	err := conn(ctx, d.db).Order("number DESC").Limit(limit).Find(&rounds).Error

	return rounds, err
}

func (d *LotteryDAO) CountCodes(ctx context.Context, roundID string) (int64, error) {
	var n int64
	err := conn(ctx, d.db).Model(&LotteryCode{}).Where("round_id = ?", roundID).Count(&n).Error

	return n, err
}

func (d *LotteryDAO) MaxCodeNumber(ctx context.Context, roundID string) (int, error) {
	var n int
	err := conn(ctx, d.db).Model(&LotteryCode{}).
		Where("round_id = ?", roundID).
		Select("COALESCE(MAX(code_number), 0)").
		Scan(&n).Error

	return n, err
}

// InsertCode runs inside a savepoint when ctx carries a transaction, so a
// unique violation leaves the outer transaction usable for the next attempt.
func (d *LotteryDAO) InsertCode(ctx context.Context, code LotteryCode) (LotteryCode, error) {
	err := conn(ctx, d.db).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&code).Error
	})
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			if constraint == uniqCodePayment {
				return LotteryCode{}, ErrPaymentHasCode
			}

			return LotteryCode{}, ErrDuplicateCode
		}

		return LotteryCode{}, err
	}

	return code, nil
}

func (d *LotteryDAO) FindCodeByPaymentID(ctx context.Context, paymentID string) (LotteryCode, error) {
	return d.findCode(ctx, "payment_id = ?", paymentID)
}

func (d *LotteryDAO) FindCodeByValue(ctx context.Context, code string) (LotteryCode, error) {
	return d.findCode(ctx, "code = ?", code)
}

func (d *LotteryDAO) FindCodeInRound(ctx context.Context, roundID, code string) (LotteryCode, error) {
	return d.findCode(ctx, "round_id = ? AND code = ?", roundID, code)
}

func (d *LotteryDAO) findCode(ctx context.Context, query string, args ...any) (LotteryCode, error) {
	var code LotteryCode
	result := conn(ctx, d.db).Where(query, args...).First(&code)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return LotteryCode{}, ErrCodeNotFound
		}

		return LotteryCode{}, result.Error
	}

	return code, nil
}

func (d *LotteryDAO) ListCodesByRound(ctx context.Context, roundID string) ([]LotteryCode, error) {
	var codes []LotteryCode
	err := conn(ctx, d.db).Where("round_id = ?", roundID).Order("code_number ASC").Find(&codes).Error

	return codes, err
}

func (d *LotteryDAO) ListCodesByUser(ctx context.Context, userID string) ([]LotteryCode, error) {
	var codes []LotteryCode
	err := conn(ctx, d.db).Where("user_id = ?", userID).Order("created_at DESC").Find(&codes).Error

	return codes, err
}

func (d *LotteryDAO) CountWinners(ctx context.Context, roundID string) (int64, error) {
	var n int64
	err := conn(ctx, d.db).Model(&Winner{}).Where("round_id = ?", roundID).Count(&n).Error

	return n, err
}

func (d *LotteryDAO) WinnerExists(ctx context.Context, roundID, code string) (bool, error) {
	var n int64
	err := conn(ctx, d.db).Model(&Winner{}).
		Where("round_id = ? AND lottery_code = ?", roundID, code).
		Count(&n).Error

	return n > 0, err
}

func (d *LotteryDAO) InsertWinner(ctx context.Context, winner Winner) (Winner, error) {
	err := conn(ctx, d.db).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&winner).Error
	})
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return Winner{}, ErrWinnerExists
		}

		return Winner{}, err
	}

	return winner, nil
}

func (d *LotteryDAO) ListWinnersByRound(ctx context.Context, roundID string) ([]Winner, error) {
	var winners []Winner
	err := conn(ctx, d.db).Where("round_id = ?", roundID).Order("draw_date ASC").Find(&winners).Error

	return winners, err
}
