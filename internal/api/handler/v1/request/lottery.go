package request

import (
	"errors"
	"strings"

	"github.com/dlclark/regexp2"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/lotterydesk/lottery-api/internal/domain"
)

// Instagram handles: letters, digits, dots and underscores, no leading,
// trailing or doubled dots.
const instagramPattern = `^(?!\.)(?!.*\.\.)(?!.*\.$)[A-Za-z0-9._]{1,30}$`

var (
	instagramExp = regexp2.MustCompile(instagramPattern, regexp2.None)

	errInvalidInstagram = errors.New("must be a valid instagram handle")
	errMissingRecipient = errors.New("either mobile or instagramId is required")
)

var instagramRule = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	s = strings.TrimPrefix(s, "@")
	if s == "" {
		return nil
	}

	ok, err := instagramExp.MatchString(s)
	if err != nil || !ok {
		return errInvalidInstagram
	}

	return nil
})

type UpdateProfileRequest struct {
	Name          string `json:"name"`
	InstagramID   string `json:"instagramId"`
	TermsAccepted bool   `json:"termsAccepted"`
}

func (req *UpdateProfileRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Name, validation.Length(0, 100)),
		validation.Field(&req.InstagramID, instagramRule),
	)
}

func (req *UpdateProfileRequest) ToDomain() domain.ProfileUpdate {
	return domain.ProfileUpdate{
		Name:          req.Name,
		InstagramID:   req.InstagramID,
		TermsAccepted: req.TermsAccepted,
	}
}

type UpdateSettingsRequest struct {
	Capacity     int     `json:"capacity"`
	EntryPrice   int64   `json:"entryPrice"`
	WinnersCount int     `json:"winnersCount"`
	Status       *string `json:"status,omitempty"`
	PrizeType    *string `json:"prizeType,omitempty"`
}

func (req *UpdateSettingsRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Capacity, validation.Required, validation.Min(1)),
		validation.Field(&req.EntryPrice, validation.Required, validation.Min(int64(1))),
		validation.Field(&req.WinnersCount, validation.Required, validation.Min(1)),
		validation.Field(&req.Status, validation.NilOrNotEmpty, validation.In(
			string(domain.StatusOpen), string(domain.StatusClosed), string(domain.StatusDrawn),
		)),
		validation.Field(&req.PrizeType, validation.Length(0, 100)),
	)
}

func (req *UpdateSettingsRequest) ToDomain() domain.SettingsUpdate {
	update := domain.SettingsUpdate{
		Capacity:     req.Capacity,
		EntryPrice:   req.EntryPrice,
		WinnersCount: req.WinnersCount,
		PrizeType:    req.PrizeType,
	}
	if req.Status != nil {
		status := domain.LotteryStatus(*req.Status)
		update.Status = &status
	}

	return update
}

type GiftCodesRequest struct {
	Mobile      string `json:"mobile"`
	InstagramID string `json:"instagramId"`
	RoundID     string `json:"roundId"`
	Count       int    `json:"count"`
}

func (req *GiftCodesRequest) Validate() error {
	err := validation.ValidateStruct(
		req,
		validation.Field(&req.Mobile, mobileRule),
		validation.Field(&req.InstagramID, instagramRule),
		validation.Field(&req.RoundID, is.UUID),
		validation.Field(&req.Count, validation.Required, validation.Min(1), validation.Max(1000)),
	)
	if err != nil {
		return err
	}

	if req.Mobile == "" && req.InstagramID == "" {
		return errMissingRecipient
	}

	return nil
}

func (req *GiftCodesRequest) ToDomain() domain.GiftRequest {
	return domain.GiftRequest{
		Recipient: domain.GiftRecipient{
			Mobile:      req.Mobile,
			InstagramID: strings.TrimPrefix(req.InstagramID, "@"),
		},
		RoundID: req.RoundID,
		Count:   req.Count,
	}
}

type RegisterWinnerRequest struct {
	RoundID string `json:"roundId"`
	Code    string `json:"lotteryCode"`
}

func (req *RegisterWinnerRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.RoundID, is.UUID),
		validation.Field(&req.Code, validation.Required, validation.Length(1, 64)),
	)
}
