package constants

import "fmt"

// ============================================================================
// SHARED LINK ERRORS
// ============================================================================

const (
	ErrInvalidTokenFormat = "Invalid token format"
	ErrLinkNotFound       = "Link not found"
	ErrInvalidLink        = "Invalid link"
	ErrLinkInactive       = "This link is no longer active"
	ErrLinkExpired        = "This link has expired"
	ErrRateLimited        = "Too many submissions. Please try again later"
)

// ============================================================================
// PAYOUT VALIDATION ERRORS
// ============================================================================

const (
	ErrAmountRequired      = "Amount is required"
	ErrAmountNotPositive   = "Amount must be greater than 0"
	ErrAmountTooLarge      = "Amount exceeds the maximum of %d"
	ErrCurrencyUnsupported = "Currency must be one of %s"
	ErrDateRequired        = "Date is required"
	ErrInvalidDateFormat   = "Invalid date format. Expected format: YYYY-MM-DD"
	ErrDateOutOfRange      = "Date must be between %s and %s"
	ErrFieldTooLong        = "%s must be at most %d characters"
	ErrInvalidUUID         = "%s must be a valid UUID"
	ErrInvalidCategory     = "Invalid category"
	ErrSubmitterRequired   = "submitterName is required"
)

// ============================================================================
// PENDING PAYOUT ERRORS
// ============================================================================

const (
	ErrPayoutNotFound = "Payout not found or it does not wait for attachments"
)

// ============================================================================
// BOT MESSAGES
// ============================================================================

const (
	BotMsgWelcome        = "Szczęść Boże! Komendy: /new – nowy wydatek, /kategorie – lista kategorii, /undo, /redo, /cancel."
	BotMsgNotAllowed     = "Ten czat nie ma dostępu do księgi."
	BotMsgNoDraft        = "Brak rozpoczętego wydatku. Wpisz /new."
	BotMsgAskAmount      = "Podaj kwotę (np. 120,50):"
	BotMsgAskCurrency    = "Podaj walutę (%s) lub \"-\" dla PLN:"
	BotMsgAskCategory    = "Wybierz numer kategorii lub \"-\":\n%s"
	BotMsgAskDescription = "Podaj opis wydatku:"
	BotMsgAskIssuedTo    = "Komu wypłacono?"
	BotMsgConfirm        = "Zapisać wydatek?\n%s\nOdpowiedz tak/nie."
	BotMsgSaved          = "Zapisano wydatek %s."
	BotMsgCancelled      = "Anulowano."
	BotMsgNothingToUndo  = "Nie ma czego cofnąć."
	BotMsgNothingToRedo  = "Nie ma czego przywrócić."
	BotMsgInvalidAmount  = "Nieprawidłowa kwota: %s"
	BotMsgInvalidChoice  = "Nieprawidłowy wybór."
	BotMsgNoCategories   = "Brak kategorii wydatków."
	BotMsgSaveFailed     = "Nie udało się zapisać wydatku. Spróbuj ponownie."
	BotMsgNewPayout      = "Nowa wypłata z linku %q: %s %s, %s"
	BotMsgSummary        = "Kwota: %s %s\nKategoria: %s\nOpis: %s\nKomu: %s"
	BotMsgUnavailable    = "Księga jest chwilowo niedostępna."
)

// ============================================================================
// GENERAL ERRORS
// ============================================================================

const (
	ErrInternalServer   = "Internal server error"
	ErrInvalidJSON      = "Invalid JSON body"
	ErrMethodNotAllowed = "Method Not Allowed"
	ErrUnauthorized     = "Unauthorized"
)

// ============================================================================
// HELPER FUNCTIONS TO FORMAT ERRORS WITH CONTEXT
// ============================================================================

// FormatError formats an error message with additional context
func FormatError(baseError string, context ...interface{}) string {
	if len(context) == 0 {
		return baseError
	}
	return fmt.Sprintf(baseError, context...)
}

// FormatFieldTooLong formats an over-length error for a field
func FormatFieldTooLong(field string, max int) string {
	return fmt.Sprintf(ErrFieldTooLong, field, max)
}
