package notify

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// OrderPlacedRequest alerts a single admin device that a new order arrived.
type OrderPlacedRequest struct {
	AdminToken   string      `json:"adminToken" validate:"required"`
	CustomerName string      `json:"customerName" validate:"required"`
	Amount       json.Number `json:"amount" validate:"required"`
}

// BroadcastRequest pushes to every device subscribed to the topic and mirrors
// the notification into each known user's log. Image is optional and defaults
// to the empty string.
type BroadcastRequest struct {
	Topic string `json:"topic" validate:"required"`
	Title string `json:"title" validate:"required"`
	Body  string `json:"body" validate:"required"`
	Image string `json:"image"`
}

// StatusUpdateRequest notifies one customer that their order moved to a new
// status. UserName and Amount are optional; when either is absent the body
// falls back to a generic sentence naming only the status.
type StatusUpdateRequest struct {
	UserToken string      `json:"userToken" validate:"required"`
	OrderID   string      `json:"orderId" validate:"required"`
	Status    string      `json:"status" validate:"required"`
	UserName  string      `json:"userName"`
	Amount    json.Number `json:"amount"`
}

// ValidationError reports which required fields were absent or empty. The
// field names stay out of HTTP responses; callers only see a generic message.
type ValidationError struct {
	MissingFields []string
}

func (e *ValidationError) Error() string {
	return "missing required fields: " + strings.Join(e.MissingFields, ", ")
}

var validate = validator.New()

// Validate checks the presence rules of a request variant. Fields are not
// normalised beyond the presence check.
func Validate(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	missing := make([]string, 0, len(ve))
	for _, fe := range ve {
		missing = append(missing, fe.Field())
	}
	return &ValidationError{MissingFields: missing}
}
