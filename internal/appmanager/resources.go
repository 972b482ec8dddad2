package appmanager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"ChurchLedger/api/bot"
	"ChurchLedger/api/payout"
	"ChurchLedger/internal/config"
	"ChurchLedger/internal/jobs"
	"ChurchLedger/internal/ledger"
	"ChurchLedger/internal/notification"
	"ChurchLedger/internal/ratelimit"
	"ChurchLedger/internal/session"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// LedgerStore is everything the services read from or write to the ledger.
type LedgerStore interface {
	payout.Store
	bot.Store
	jobs.LedgerReader
}

// Resources are the process-wide dependencies shared between services.
type Resources struct {
	Env         config.Env
	Store       LedgerStore
	Maintenance jobs.Maintenance
	Location    *time.Location

	pool     *pgxpool.Pool
	maint    *ledger.SQLMaintenance
	limiter  ratelimit.Limiter
	drafts   session.Store
	bot      *bot.Handler
	sender   bot.Sender
	notifier *notification.NotificationService
	closers  []io.Closer
}

// NewResources opens the ledger backend named by storeKind.
func NewResources(ctx context.Context, env config.Env, storeKind string) (*Resources, error) {
	loc, err := time.LoadLocation(config.DefaultTimeZone)
	if err != nil {
		log.Printf("Invalid timezone %s, falling back to UTC: %v", config.DefaultTimeZone, err)
		loc = time.UTC
	}
	res := &Resources{Env: env, Location: loc}

	switch storeKind {
	case StoreMemory:
		mem := ledger.NewMemStore()
		res.Store = mem
		res.Maintenance = mem
	case StorePostgres, "":
		if !env.HasDatabase() {
			return nil, errors.New("postgres store selected but DB_USER, DB_HOST, DB_PORT or DB_NAME is missing")
		}
		pool, err := pgxpool.New(ctx, env.PostgresURL())
		if err != nil {
			return nil, fmt.Errorf("failed to create pgx pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to connect to DB: %w", err)
		}
		maint, err := ledger.OpenSQLMaintenance(ctx, env.PostgresConnString())
		if err != nil {
			pool.Close()
			return nil, err
		}
		res.pool = pool
		res.maint = maint
		res.Store = ledger.NewPgStore(pool)
		res.Maintenance = maint
		res.closers = append(res.closers, maint)
	default:
		return nil, fmt.Errorf("unknown store %q (want %s or %s)", storeKind, StorePostgres, StoreMemory)
	}
	return res, nil
}

// NewMemoryResources is the in-process setup used by tests and --store=memory.
func NewMemoryResources(env config.Env, store *ledger.MemStore) *Resources {
	return &Resources{Env: env, Store: store, Maintenance: store, Location: time.UTC}
}

// Sender is the Telegram transport, nil when no bot token is configured.
func (r *Resources) Sender() bot.Sender {
	if r.sender == nil && r.Env.BotToken != "" {
		r.sender = bot.NewTelegramClient(r.Env.BotAPIURL, r.Env.BotToken)
	}
	return r.sender
}

// SetSender replaces the Telegram transport.
func (r *Resources) SetSender(s bot.Sender) { r.sender = s }

func (r *Resources) Notifier() *notification.NotificationService {
	if r.notifier == nil {
		var sender notification.Sender
		if s := r.Sender(); s != nil {
			sender = s
		}
		r.notifier = notification.NewNotificationService(sender, r.Env.NotifyChatID, 0)
	}
	return r.notifier
}

// Limiter returns the shared public-link limiter, opening it from cfg on
// first use.
func (r *Resources) Limiter(cfg map[string]interface{}) (ratelimit.Limiter, error) {
	if r.limiter != nil {
		return r.limiter, nil
	}
	lc := ratelimit.Config{
		Max:    toInt(cfg["rate_limit_max"]),
		Window: toDuration(cfg["rate_limit_window"]),
	}
	switch backend := stringValue(cfg, "rate_limit_backend", "memory"); backend {
	case "memory":
		r.limiter = ratelimit.NewMemory(lc)
	case "bolt":
		b, err := ratelimit.OpenBolt(stringValue(cfg, "rate_limit_path", "./data/ratelimit.db"), lc)
		if err != nil {
			return nil, err
		}
		r.closers = append(r.closers, b)
		r.limiter = b
	default:
		return nil, fmt.Errorf("unknown rate_limit_backend %q", backend)
	}
	return r.limiter, nil
}

// Drafts returns the shared bot draft store, opening it from cfg on first use.
func (r *Resources) Drafts(cfg map[string]interface{}) (session.Store, error) {
	if r.drafts != nil {
		return r.drafts, nil
	}
	ttl := toDuration(cfg["draft_ttl"])
	switch backend := stringValue(cfg, "draft_backend", "memory"); backend {
	case "memory":
		r.drafts = session.NewManager(ttl)
	case "bolt":
		s, err := session.OpenBoltStore(stringValue(cfg, "draft_path", "./data/drafts.db"), ttl)
		if err != nil {
			return nil, err
		}
		r.closers = append(r.closers, s)
		r.drafts = s
	default:
		return nil, fmt.Errorf("unknown draft_backend %q", backend)
	}
	return r.drafts, nil
}

// Checks are the health probes for the resource manager heartbeat.
func (r *Resources) Checks() map[string]func(context.Context) error {
	checks := map[string]func(context.Context) error{}
	if r.pool != nil {
		checks["postgres"] = r.pool.Ping
	}
	if r.maint != nil {
		checks["postgres-maintenance"] = r.maint.Ping
	}
	return checks
}

func (r *Resources) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if r.pool != nil {
		r.pool.Close()
	}
	return errors.Join(errs...)
}
