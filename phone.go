package contacts

import (
	"github.com/goliatone/go-errors"
	"github.com/nyaruka/phonenumbers"
)

// defaultPhoneRegion is assumed for numbers submitted without a country prefix.
const defaultPhoneRegion = "US"

// NormalizePhone parses a contact phone number and returns its E.164 form.
// Numbers without an international prefix are interpreted in
// defaultPhoneRegion.
func NormalizePhone(raw string) (string, error) {
	num, err := phonenumbers.Parse(raw, defaultPhoneRegion)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryValidation, "phone: must be a valid phone number").
			WithCode(errors.CodeBadRequest)
	}

	if !phonenumbers.IsValidNumber(num) {
		return "", errors.New("phone: must be a valid phone number", errors.CategoryValidation).
			WithCode(errors.CodeBadRequest)
	}

	return phonenumbers.Format(num, phonenumbers.E164), nil
}
