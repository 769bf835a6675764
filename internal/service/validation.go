package service

import (
	"errors"
	"regexp"
	"strings"

	"checkout-service/internal/models"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Postal code patterns by ISO country code. Countries without an entry
// fall back to a loose alphanumeric check rather than rejecting outright.
var postalPatterns = map[string]*regexp.Regexp{
	"US": regexp.MustCompile(`^\d{5}(-\d{4})?$`),
	"CA": regexp.MustCompile(`^[A-Za-z]\d[A-Za-z] ?\d[A-Za-z]\d$`),
	"GB": regexp.MustCompile(`^[A-Za-z]{1,2}\d[A-Za-z\d]? ?\d[A-Za-z]{2}$`),
	"DE": regexp.MustCompile(`^\d{5}$`),
	"FR": regexp.MustCompile(`^\d{5}$`),
	"TR": regexp.MustCompile(`^\d{5}$`),
}

var genericPostal = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 -]{1,8}[A-Za-z0-9]$`)

// ValidateAddress checks required fields, email format and the
// country-appropriate postal pattern. Phone is lenient: empty is fine,
// anything present just needs a plausible length.
func ValidateAddress(a models.Address) error {
	if err := validate.Struct(a); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &ValidationError{
				Field:  strings.ToLower(verrs[0].Field()),
				Reason: "failed " + verrs[0].Tag() + " check",
			}
		}
		return err
	}

	country := strings.ToUpper(strings.TrimSpace(a.Country))
	pattern, ok := postalPatterns[country]
	if !ok {
		pattern = genericPostal
	}
	if !pattern.MatchString(strings.TrimSpace(a.PostalCode)) {
		return &ValidationError{
			Field:  "postal_code",
			Reason: "does not match the expected format for " + country,
		}
	}

	return nil
}

// resolveBilling defaults billing to shipping unless explicitly overridden.
func resolveBilling(shipping models.Address, billing *models.Address) models.Address {
	if billing == nil || *billing == (models.Address{}) {
		return shipping
	}
	return *billing
}
