package auth

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/clearpath-immigration/authkit/pkg/api"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// RegisterInput carries the registration form fields. Validation here is a
// first line only; the backend re-validates and its field errors surface
// the same way.
type RegisterInput struct {
	FirstName       string `validate:"required"`
	LastName        string `validate:"required"`
	Email           string `validate:"required,email"`
	Phone           string `validate:"omitempty,min=7"`
	Password        string `validate:"required,min=8"`
	TermsAccepted   bool   `validate:"required"`
	PrivacyAccepted bool   `validate:"required"`
}

// Validate checks the input locally and converts failures to the same
// KindValidationFailed shape backend validation errors use.
func (in RegisterInput) Validate() error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return newError(KindValidationFailed, msgRegistrationFailed, err)
	}

	fields := make(map[string][]string, len(validationErrors))
	var messages []string
	for _, fe := range validationErrors {
		field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
		msg := messageForTag(fe)
		fields[field] = append(fields[field], msg)
		messages = append(messages, fe.Field()+": "+msg)
	}
	return validationError(fields, messages, err)
}

func messageForTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	default:
		return "is invalid"
	}
}

// request builds the backend payload, stamping the consent timestamp at
// submission time.
func (in RegisterInput) request() api.RegisterRequest {
	return api.RegisterRequest{
		FirstName:        in.FirstName,
		LastName:         in.LastName,
		Email:            in.Email,
		Phone:            in.Phone,
		Password:         in.Password,
		TermsAccepted:    in.TermsAccepted,
		PrivacyAccepted:  in.PrivacyAccepted,
		ConsentTimestamp: time.Now().UTC(),
	}
}
