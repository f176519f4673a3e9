package request

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/lotterydesk/lottery-api/internal/service"
)

var mobileRule = validation.Match(service.MobilePattern).Error("must be a valid mobile number such as 09121234567")

type SendOTPRequest struct {
	Mobile string `json:"mobile"`
}

func (req *SendOTPRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Mobile, validation.Required, mobileRule),
	)
}

type VerifyOTPRequest struct {
	Mobile string `json:"mobile"`
	Code   string `json:"code"`
}

func (req *VerifyOTPRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Mobile, validation.Required, mobileRule),
		validation.Field(&req.Code, validation.Required, validation.Length(6, 6), is.Digit),
	)
}

type PrecheckRequest struct {
	Mobile string `json:"mobile"`
}

func (req *PrecheckRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Mobile, validation.Required, mobileRule),
	)
}
