package appmanager

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"ChurchLedger/api"
	"ChurchLedger/api/bot"
	"ChurchLedger/api/payout"
	"ChurchLedger/internal/jobs"
	"ChurchLedger/internal/logger"
	"ChurchLedger/internal/resource"
	"ChurchLedger/internal/serviceiface"

	"gopkg.in/yaml.v3"
)

type constructor func(cfg map[string]interface{}, res *Resources) (serviceiface.Service, error)

var serviceConstructors = map[string]constructor{
	"logger": func(cfg map[string]interface{}, _ *Resources) (serviceiface.Service, error) {
		return logger.NewLoggerService(cfg), nil
	},
	"resourcemanager": func(cfg map[string]interface{}, res *Resources) (serviceiface.Service, error) {
		rm := resource.NewResourceManagerService(cfg)
		for name, check := range res.Checks() {
			rm.AddResource(name, check)
		}
		return rm, nil
	},
	"payout": func(cfg map[string]interface{}, res *Resources) (serviceiface.Service, error) {
		limiter, err := res.Limiter(cfg)
		if err != nil {
			return nil, err
		}
		handler := payout.NewHandler(res.Store, limiter,
			payout.WithNotifier(res.Notifier()),
			payout.WithLocation(res.Location),
		)
		return payout.NewPayoutService(cfg, handler), nil
	},
	"bot": func(cfg map[string]interface{}, res *Resources) (serviceiface.Service, error) {
		sender := res.Sender()
		if sender == nil {
			return nil, errors.New("TELEGRAM_BOT_TOKEN is not set")
		}
		if res.Env.BotOwnerUserID == "" {
			return nil, errors.New("BOT_OWNER_USER_ID is not set")
		}
		drafts, err := res.Drafts(cfg)
		if err != nil {
			return nil, err
		}
		if len(res.Env.BotAllowedChats) == 0 {
			logger.Audit("bot: BOT_ALLOWED_CHATS is empty, every chat will be refused")
		}
		handler := bot.NewHandler(res.Store, drafts, sender, res.Env.BotOwnerUserID,
			bot.WithSecret(res.Env.BotWebhookSecret),
			bot.WithAllowedChats(res.Env.BotAllowedChats),
			bot.WithLocation(res.Location),
		)
		res.bot = handler
		return bot.NewBotService(cfg, handler), nil
	},
	// The limiter and drafts belong to payout and bot; WireServices attaches
	// them once every service exists.
	"cron": func(cfg map[string]interface{}, res *Resources) (serviceiface.Service, error) {
		deps := jobs.Deps{
			Maintenance: res.Maintenance,
			Ledger:      res.Store,
			Owners:      res.Env.SnapshotOwners,
		}
		return jobs.NewCronService(cfg, deps), nil
	},
	"gateway": func(cfg map[string]interface{}, _ *Resources) (serviceiface.Service, error) {
		return api.NewGatewayService(cfg), nil
	},
}

// ------------------- MANAGER -------------------

type AppManager struct {
	services  []serviceiface.Service
	resources *Resources
	mu        sync.Mutex
}

func NewAppManager(res *Resources) *AppManager {
	return &AppManager{
		services:  make([]serviceiface.Service, 0),
		resources: res,
	}
}

func (am *AppManager) RegisterService(s serviceiface.Service) {
	am.mu.Lock()
	defer am.mu.Unlock()
	am.services = append(am.services, s)
}

func (am *AppManager) StartAll() error {
	am.mu.Lock()
	defer am.mu.Unlock()

	for _, service := range am.services {
		fmt.Println("Starting service:", service.Name())
		if err := service.Start(); err != nil {
			return fmt.Errorf("failed to start service %s: %w", service.Name(), err)
		}
	}
	return nil
}

// StopAll stops services in reverse start order and keeps going past failures.
func (am *AppManager) StopAll() error {
	am.mu.Lock()
	defer am.mu.Unlock()
	var errs []error
	for i := len(am.services) - 1; i >= 0; i-- {
		svc := am.services[i]
		if err := svc.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop service %s: %w", svc.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// ------------------- YAML CONFIG -------------------

type ServiceSequencer struct {
	Services []ServiceConfig `yaml:"services"`
}

type ServiceConfig struct {
	Name       string                 `yaml:"name"`
	StartOrder int                    `yaml:"start_order"`
	Enabled    *bool                  `yaml:"enabled"`
	Config     map[string]interface{} `yaml:"config"`
}

func LoadServiceSequence(path string) ([]ServiceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var seq ServiceSequencer
	if err := yaml.Unmarshal(data, &seq); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	// sort by start_order
	sort.SliceStable(seq.Services, func(i, j int) bool {
		return seq.Services[i].StartOrder < seq.Services[j].StartOrder
	})

	return seq.Services, nil
}

func (am *AppManager) AutoRegisterServices(configs []ServiceConfig) error {
	for _, svc := range configs {
		if svc.Enabled != nil && !*svc.Enabled {
			continue
		}
		build, ok := serviceConstructors[svc.Name]
		if !ok {
			return fmt.Errorf("unknown service %q in services.yaml", svc.Name)
		}
		cfg := svc.Config
		if cfg == nil {
			cfg = map[string]interface{}{}
		}
		service, err := build(cfg, am.resources)
		if err != nil {
			return fmt.Errorf("service %s: %w", svc.Name, err)
		}
		am.RegisterService(service)
		if l, ok := service.(*logger.LoggerService); ok {
			logger.SetGlobalLogger(l)
		}
	}
	am.WireServices()
	return nil
}

// WireServices connects services to state created by other services, so the
// result does not depend on their order in services.yaml.
func (am *AppManager) WireServices() {
	am.mu.Lock()
	defer am.mu.Unlock()
	res := am.resources
	for _, svc := range am.services {
		if c, ok := svc.(*jobs.CronService); ok {
			var histories jobs.HistoryPruner
			if res.bot != nil {
				histories = res.bot
			}
			c.Attach(res.limiter, res.drafts, histories)
		}
	}
}

func (am *AppManager) GetServiceByName(name string) serviceiface.Service {
	for _, svc := range am.services {
		if svc.Name() == name {
			return svc
		}
	}
	return nil
}
