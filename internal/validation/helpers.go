package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"ChurchLedger/api/constants"
	"ChurchLedger/internal/config"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FieldError is a client input error; Message is safe to show to the caller.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string { return e.Message }

func fieldError(field, msg string) error {
	return &FieldError{Field: field, Message: msg}
}

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

var maxAmount = decimal.NewFromInt(config.MaxPayoutAmount)

// ValidateToken checks the shape of a shared link token, not its existence.
func ValidateToken(token string) error {
	n := utf8.RuneCountInString(token)
	if n < config.MinTokenLength || n > config.MaxTokenLength {
		return fieldError("token", constants.ErrInvalidTokenFormat)
	}
	return nil
}

// ValidateAmount enforces 0 < amount <= MaxPayoutAmount.
func ValidateAmount(amount *decimal.Decimal) error {
	if amount == nil {
		return fieldError("amount", constants.ErrAmountRequired)
	}
	if !amount.IsPositive() {
		return fieldError("amount", constants.ErrAmountNotPositive)
	}
	if amount.GreaterThan(maxAmount) {
		return fieldError("amount", constants.FormatError(constants.ErrAmountTooLarge, config.MaxPayoutAmount))
	}
	return nil
}

// NormalizeCurrency upper-cases code and checks it against SupportedCurrencies.
func NormalizeCurrency(code string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	for _, c := range config.SupportedCurrencies {
		if c == normalized {
			return normalized, nil
		}
	}
	return "", fieldError("currency", constants.FormatError(constants.ErrCurrencyUnsupported,
		strings.Join(config.SupportedCurrencies, ", ")))
}

// ValidateDate parses a literal YYYY-MM-DD and requires it to fall within
// [today - 1 year, today + 1 month] in loc.
func ValidateDate(value string, now time.Time, loc *time.Location) (time.Time, error) {
	if value == "" {
		return time.Time{}, fieldError("date", constants.ErrDateRequired)
	}
	if !datePattern.MatchString(value) {
		return time.Time{}, fieldError("date", constants.ErrInvalidDateFormat)
	}
	if loc == nil {
		loc = time.UTC
	}
	d, err := time.ParseInLocation(constants.DateFormat, value, loc)
	if err != nil {
		return time.Time{}, fieldError("date", constants.ErrInvalidDateFormat)
	}
	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	from := today.AddDate(-1, 0, 0)
	to := today.AddDate(0, 1, 0)
	if d.Before(from) || d.After(to) {
		return time.Time{}, fieldError("date", constants.FormatError(constants.ErrDateOutOfRange,
			from.Format(constants.DateFormat), to.Format(constants.DateFormat)))
	}
	return d, nil
}

// ValidateLength rejects text longer than max runes.
func ValidateLength(field, value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return fieldError(field, constants.FormatFieldTooLong(field, max))
	}
	return nil
}

// ValidateUUID checks the canonical 8-4-4-4-12 form.
func ValidateUUID(field, value string) error {
	if len(value) != 36 {
		return fieldError(field, fmt.Sprintf(constants.ErrInvalidUUID, field))
	}
	if _, err := uuid.Parse(value); err != nil {
		return fieldError(field, fmt.Sprintf(constants.ErrInvalidUUID, field))
	}
	return nil
}

// ValidateSubmitterName trims name and requires 1..MaxSubmitterNameLen runes.
func ValidateSubmitterName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", fieldError("submitterName", constants.ErrSubmitterRequired)
	}
	if err := ValidateLength("submitterName", trimmed, config.MaxSubmitterNameLen); err != nil {
		return "", err
	}
	return trimmed, nil
}

// NormalizeString trims whitespace and converts to lowercase for comparisons
func NormalizeString(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
