package usecases

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/landledger/landledger/internal/core/domain"
)

var ethAddressRe = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("ethaddr", func(fl validator.FieldLevel) bool {
		return ethAddressRe.MatchString(fl.Field().String())
	})
	return v
}

var fieldMessages = map[string]string{
	"RegisterLandInput.Location":        "location is required; draw on the map or enter coordinates",
	"RegisterLandInput.OwnerName":       "owner name is required",
	"RegisterLandInput.DocumentHash":    "area is required and calculated from the map",
	"TransferLandInput.LandID":          "select a land to transfer",
	"TransferLandInput.NewOwnerAddress": "invalid Ethereum address",
	"TransferLandInput.NewOwnerName":    "new owner name is required",
}

// validateStruct runs the struct tags on v and folds every failure into a
// single ErrInvalidInput. Callers trim string fields first.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if m, ok := fieldMessages[fe.StructNamespace()]; ok {
			msgs = append(msgs, m)
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", domain.ErrInvalidInput, strings.Join(msgs, "; "))
}

// ValidateRegistration trims and checks a registration form in place.
func ValidateRegistration(in *domain.RegisterLandInput) error {
	in.Location = strings.TrimSpace(in.Location)
	in.OwnerName = strings.TrimSpace(in.OwnerName)
	in.DocumentHash = strings.TrimSpace(in.DocumentHash)
	return validateStruct(in)
}

// ValidateTransfer trims and checks a transfer form in place.
func ValidateTransfer(in *domain.TransferLandInput) error {
	in.NewOwnerAddress = strings.TrimSpace(in.NewOwnerAddress)
	in.NewOwnerName = strings.TrimSpace(in.NewOwnerName)
	return validateStruct(in)
}

// IsEthAddress reports whether s is a 0x-prefixed 20-byte hex address.
func IsEthAddress(s string) bool {
	return ethAddressRe.MatchString(s)
}
