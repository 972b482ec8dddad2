package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"ChurchLedger/internal/config"
	"ChurchLedger/internal/ledger"
	"ChurchLedger/internal/logger"
	"ChurchLedger/internal/ratelimit"
	"ChurchLedger/internal/session"
	"ChurchLedger/internal/spreadsheet"

	"github.com/robfig/cron/v3"
)

// Maintenance is the housekeeping side of the ledger store.
type Maintenance interface {
	CountExpiredLinks(ctx context.Context, now time.Time) (int64, error)
	LedgerOwners(ctx context.Context, only []string) ([]string, error)
}

// LedgerReader supplies the rows of a snapshot.
type LedgerReader interface {
	Transactions(ctx context.Context, ownerID string) ([]ledger.Transaction, error)
	Categories(ctx context.Context, ownerID string) ([]ledger.Category, error)
}

// HistoryPruner forgets in-memory state of conversations whose draft is gone.
type HistoryPruner interface {
	PruneHistories(ctx context.Context) error
}

// Deps are the stores the jobs act on. Nil members disable their job part.
type Deps struct {
	Maintenance Maintenance
	Ledger      LedgerReader
	Limiter     ratelimit.Limiter
	Drafts      session.Store
	Histories   HistoryPruner
	// Owners restricts snapshots; empty means every owner with transactions.
	Owners []string
}

type CronService struct {
	config map[string]interface{}
	deps   Deps
	cron   *cron.Cron
	loc    *time.Location
	now    func() time.Time
}

func NewCronService(cfg map[string]interface{}, deps Deps) *CronService {
	s := &CronService{
		config: cfg,
		deps:   deps,
		now:    time.Now,
	}
	tz := stringValue(cfg, "timezone", config.DefaultTimeZone)
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
		logger.Audit("Invalid timezone %s, falling back to UTC: %v", tz, err)
	}
	s.loc = loc
	return s
}

// Attach hands the cleanup job the state owned by other services. It runs
// after every service is constructed and before Start.
func (s *CronService) Attach(limiter ratelimit.Limiter, drafts session.Store, histories HistoryPruner) {
	s.deps.Limiter = limiter
	s.deps.Drafts = drafts
	s.deps.Histories = histories
}

func (s *CronService) Deps() Deps {
	return s.deps
}

func (s *CronService) Name() string {
	return "cron"
}

func (s *CronService) Start() error {
	c := cron.New(cron.WithLocation(s.loc))

	jobs := []struct {
		name     string
		key      string
		schedule string
		run      func(context.Context) error
	}{
		{"link expiry report", "link_expiry_schedule", config.DefaultLinkExpirySchedule, s.ReportExpiredLinks},
		{"cleanup", "cleanup_schedule", config.DefaultCleanupSchedule, s.Cleanup},
		{"snapshot", "snapshot_schedule", config.DefaultSnapshotSchedule, func(ctx context.Context) error {
			_, err := s.Snapshot(ctx)
			return err
		}},
	}
	for _, j := range jobs {
		schedule := stringValue(s.config, j.key, j.schedule)
		_, err := c.AddFunc(schedule, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()
			if err := j.run(ctx); err != nil {
				logger.Error("%s job failed: %v", j.name, err)
				return
			}
			logger.Audit("%s job completed", j.name)
		})
		if err != nil {
			return fmt.Errorf("unable to schedule %s job: %w", j.name, err)
		}
		logger.Audit("%s job scheduled: %s (%s)", j.name, schedule, s.loc)
	}

	c.Start()
	s.cron = c
	log.Println("Cron service started")
	return nil
}

func (s *CronService) Stop() error {
	if s.cron == nil {
		return nil
	}
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(30 * time.Second):
		return errors.New("cron: running jobs did not finish in time")
	}
	log.Println("Cron service stopped.")
	return nil
}

// ReportExpiredLinks audits how many active links are past their expiry.
// Links are not modified; requests reject expired links on their own.
func (s *CronService) ReportExpiredLinks(ctx context.Context) error {
	if s.deps.Maintenance == nil {
		return nil
	}
	n, err := s.deps.Maintenance.CountExpiredLinks(ctx, s.now())
	if err != nil {
		return err
	}
	if n > 0 {
		logger.Audit("%d active payout links are past their expiry", n)
	}
	return nil
}

// Cleanup drops expired rate-limit windows and idle bot drafts, then the
// undo histories left behind by those drafts.
func (s *CronService) Cleanup(ctx context.Context) error {
	var errs []error
	if s.deps.Limiter != nil {
		if err := s.deps.Limiter.Cleanup(ctx); err != nil {
			errs = append(errs, fmt.Errorf("rate limiter cleanup: %w", err))
		}
	}
	if s.deps.Drafts != nil {
		if err := s.deps.Drafts.CleanupExpired(ctx); err != nil {
			errs = append(errs, fmt.Errorf("draft cleanup: %w", err))
		}
	}
	if s.deps.Histories != nil {
		if err := s.deps.Histories.PruneHistories(ctx); err != nil {
			errs = append(errs, fmt.Errorf("draft history prune: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Snapshot writes one workbook per owner into export_dir and returns the paths.
func (s *CronService) Snapshot(ctx context.Context) ([]string, error) {
	if s.deps.Maintenance == nil || s.deps.Ledger == nil {
		return nil, nil
	}
	owners, err := s.deps.Maintenance.LedgerOwners(ctx, s.deps.Owners)
	if err != nil {
		return nil, err
	}
	dir := stringValue(s.config, "export_dir", config.DefaultExportDir)
	stamp := s.now().In(s.loc).Format("20060102")

	var paths []string
	var errs []error
	for _, owner := range owners {
		txs, err := s.deps.Ledger.Transactions(ctx, owner)
		if err != nil {
			errs = append(errs, fmt.Errorf("snapshot %s: %w", owner, err))
			continue
		}
		cats, err := s.deps.Ledger.Categories(ctx, owner)
		if err != nil {
			errs = append(errs, fmt.Errorf("snapshot %s: %w", owner, err))
			continue
		}
		path := filepath.Join(dir, fmt.Sprintf("ledger_%s_%s.xlsx", owner, stamp))
		if err := spreadsheet.WriteFile(path, txs, cats); err != nil {
			errs = append(errs, err)
			continue
		}
		paths = append(paths, path)
	}
	return paths, errors.Join(errs...)
}

func stringValue(cfg map[string]interface{}, key, def string) string {
	if v, ok := cfg[key].(string); ok && v != "" {
		return v
	}
	return def
}
