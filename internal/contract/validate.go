package contract

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/roach88/custody/internal/canonical"
	"github.com/roach88/custody/internal/failure"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterValidation("ledgerkey", validateLedgerKey)
	return v
}

// validateLedgerKey accepts non-empty keys without whitespace or control
// characters. Only keys being issued are checked this way; lookups accept
// any non-empty key so an absent record is reported as NOT_FOUND.
func validateLedgerKey(fl validator.FieldLevel) bool {
	key := fl.Field().String()
	if key == "" {
		return false
	}
	for _, r := range key {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return false
		}
	}
	return true
}

type createRequest struct {
	ID           string `validate:"ledgerkey"`
	ProductClass string `validate:"required"`
	Name         string `validate:"required"`
	Owner        string `validate:"required"`
	OwnerType    string `validate:"required"`
	ProductType  string `validate:"required"`
	Price        string `validate:"required,number"`
}

type manufacturerRequest struct {
	ManufacturerID     string `validate:"required"`
	ManufacturerName   string `validate:"required"`
	ManufacturerType   string `validate:"required"`
	ManufacturerOrigin string `validate:"required"`
}

type listRequest struct {
	ID     string `validate:"required"`
	Caller string `validate:"required"`
}

type transferRequest struct {
	ID       string `validate:"required"`
	NewOwner string `validate:"required"`
}

type keyRequest struct {
	ID string `validate:"required"`
}

type ownerRequest struct {
	Owner string `validate:"required"`
}

type queryRequest struct {
	Query string `validate:"required"`
}

// check validates req and converts validator errors into one
// INVALID_ARGUMENT failure listing every offending field.
func check(key string, req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return failure.Wrap(failure.KindInvalidArgument, key, err, "validate arguments")
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, validationMessage(fe))
	}
	return failure.New(failure.KindInvalidArgument, key, "%s", strings.Join(msgs, "; "))
}

func validationMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "number":
		return field + " must contain only digits"
	case "ledgerkey":
		return field + " must be a non-empty key without whitespace"
	default:
		return fmt.Sprintf("%s failed %q", field, fe.Tag())
	}
}

// checkManufacturer checks that details carries the four manufacturer
// fields as non-empty strings.
func checkManufacturer(key string, details canonical.Object) error {
	return check(key, manufacturerRequest{
		ManufacturerID:     details.Str("id"),
		ManufacturerName:   details.Str("name"),
		ManufacturerType:   details.Str("type"),
		ManufacturerOrigin: details.Str("origin"),
	})
}
