package config

import "time"

const (
	DefaultTimeZone = "Europe/Warsaw"

	// Public payout links
	MaxPayoutAmount       = 10000000
	MaxFreeTextLength     = 500
	MaxSubmitterNameLen   = 100
	MinTokenLength        = 10
	MaxTokenLength        = 100
	MaxPendingPayouts     = 10
	DefaultRateLimitMax   = 10
	DefaultRateLimitReset = time.Hour

	// Bot conversations
	DefaultDraftTTL = 30 * time.Minute

	// Cron jobs
	DefaultLinkExpirySchedule = "*/15 * * * *"
	DefaultCleanupSchedule    = "*/5 * * * *"
	DefaultSnapshotSchedule   = "0 3 * * *"
	DefaultExportDir          = "./exports"
)

// SupportedCurrencies are the only currencies a ledger entry may carry.
var SupportedCurrencies = []string{"PLN", "EUR", "USD", "UAH", "RUB", "BYN"}
