package domain

import (
	"chat-sync/errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(fmt.Sprintf("register notblank validation: %v", err))
	}
	return v
}

// SendCommand is the intent of a viewer to append a message to the log.
type SendCommand struct {
	Sender string `validate:"notblank"`
	Body   string `validate:"notblank"`
}

// SubscribeCommand opens a viewer session.
// A nil FromID starts at the current tail, so only live messages are delivered.
type SubscribeCommand struct {
	ViewerID string `validate:"notblank"`
	FromID   *MessageID
}

// ToDraft validates the command and normalises sender and body.
// Surrounding whitespace and newlines are never stored.
// maxContentLength is counted in runes, zero disables the check.
func (c SendCommand) ToDraft(maxContentLength int, now time.Time) (Draft, error) {
	if err := validate.Struct(c); err != nil {
		return Draft{}, fmt.Errorf("%w: %s", errors.ErrValidation, err.Error())
	}
	body := strings.TrimSpace(c.Body)
	if maxContentLength > 0 && utf8.RuneCountInString(body) > maxContentLength {
		return Draft{}, fmt.Errorf("%w: body exceeds %d characters", errors.ErrValidation, maxContentLength)
	}
	return Draft{
		Sender:    strings.TrimSpace(c.Sender),
		Body:      body,
		CreatedAt: now.UTC(),
	}, nil
}

func (c SubscribeCommand) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %s", errors.ErrValidation, err.Error())
	}
	return nil
}
