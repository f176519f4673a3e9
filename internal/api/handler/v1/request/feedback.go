package request

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/lotterydesk/lottery-api/internal/domain"
)

var feedbackStatusRule = validation.In(
	string(domain.FeedbackNew), string(domain.FeedbackRead), string(domain.FeedbackDone),
).Error("must be one of NEW, READ, DONE")

type SubmitFeedbackRequest struct {
	Name    string `json:"name"`
	Mobile  string `json:"mobile"`
	Message string `json:"message"`
}

// Validate trims every field before checking it.
func (req *SubmitFeedbackRequest) Validate() error {
	req.Name = strings.TrimSpace(req.Name)
	req.Mobile = strings.TrimSpace(req.Mobile)
	req.Message = strings.TrimSpace(req.Message)

	return validation.ValidateStruct(
		req,
		validation.Field(&req.Name, validation.RuneLength(0, 100)),
		validation.Field(&req.Mobile, mobileRule),
		validation.Field(&req.Message, validation.Required, validation.RuneLength(5, 2000)),
	)
}

func (req *SubmitFeedbackRequest) ToDomain() domain.FeedbackInput {
	return domain.FeedbackInput{
		Name:    req.Name,
		Mobile:  req.Mobile,
		Message: req.Message,
	}
}

type UpdateFeedbackStatusRequest struct {
	Status string `json:"status"`
}

func (req *UpdateFeedbackStatusRequest) Validate() error {
	req.Status = strings.ToUpper(strings.TrimSpace(req.Status))

	return validation.ValidateStruct(
		req,
		validation.Field(&req.Status, validation.Required, feedbackStatusRule),
	)
}
