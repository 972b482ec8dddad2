package appmanager

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"ChurchLedger/api/payout"
	"ChurchLedger/internal/config"
	"ChurchLedger/internal/jobs"
	"ChurchLedger/internal/ledger"
	"ChurchLedger/internal/ratelimit"
	"ChurchLedger/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	name    string
	log     *[]string
	stopErr error
}

func (f *fakeService) Name() string { return f.name }
func (f *fakeService) Start() error { *f.log = append(*f.log, "start "+f.name); return nil }
func (f *fakeService) Stop() error  { *f.log = append(*f.log, "stop "+f.name); return f.stopErr }

type nopSender struct{}

func (nopSender) SendMessage(context.Context, int64, string) error { return nil }

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "services.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoadServiceSequence_SortsByStartOrder(t *testing.T) {
	path := writeYAML(t, `
services:
  - name: gateway
    start_order: 9
    config:
      port: 8081
  - name: logger
    start_order: 1
  - name: payout
    start_order: 3
    config:
      rate_limit_max: 5
`)
	cfgs, err := LoadServiceSequence(path)
	require.NoError(t, err)
	require.Len(t, cfgs, 3)
	assert.Equal(t, "logger", cfgs[0].Name)
	assert.Equal(t, "payout", cfgs[1].Name)
	assert.Equal(t, 5, cfgs[1].Config["rate_limit_max"])
	assert.Equal(t, "gateway", cfgs[2].Name)
}

func TestAutoRegisterServices_SharesState(t *testing.T) {
	dir := t.TempDir()
	env := config.Env{BotToken: "123:abc", BotOwnerUserID: "owner", BotAllowedChats: []int64{1}}
	res := NewMemoryResources(env, ledger.NewMemStore())
	res.SetSender(nopSender{})
	defer res.Close()

	off := false
	am := NewAppManager(res)
	err := am.AutoRegisterServices([]ServiceConfig{
		{Name: "payout", Config: map[string]interface{}{"rate_limit_backend": "bolt", "rate_limit_path": filepath.Join(dir, "rl.db")}},
		{Name: "bot", Config: map[string]interface{}{"draft_backend": "bolt", "draft_path": filepath.Join(dir, "drafts.db"), "draft_ttl": "10m"}},
		{Name: "cron"},
		{Name: "gateway"},
		{Name: "resourcemanager", Enabled: &off},
	})
	require.NoError(t, err)

	assert.IsType(t, &payout.PayoutService{}, am.GetServiceByName("payout"))
	assert.IsType(t, &jobs.CronService{}, am.GetServiceByName("cron"))
	assert.NotNil(t, am.GetServiceByName("bot"))
	assert.NotNil(t, am.GetServiceByName("gateway"))
	assert.Nil(t, am.GetServiceByName("resourcemanager"))

	assert.IsType(t, &ratelimit.Bolt{}, res.limiter)
	assert.IsType(t, &session.BoltStore{}, res.drafts)
}

func TestAutoRegisterServices_CronListedFirstGetsSharedState(t *testing.T) {
	dir := t.TempDir()
	env := config.Env{BotToken: "123:abc", BotOwnerUserID: "owner", BotAllowedChats: []int64{1}}
	res := NewMemoryResources(env, ledger.NewMemStore())
	res.SetSender(nopSender{})
	defer res.Close()

	am := NewAppManager(res)
	require.NoError(t, am.AutoRegisterServices([]ServiceConfig{
		{Name: "cron"},
		{Name: "payout", Config: map[string]interface{}{"rate_limit_backend": "bolt", "rate_limit_path": filepath.Join(dir, "rl.db")}},
		{Name: "bot", Config: map[string]interface{}{"draft_backend": "bolt", "draft_path": filepath.Join(dir, "drafts.db")}},
	}))

	cron, ok := am.GetServiceByName("cron").(*jobs.CronService)
	require.True(t, ok)
	deps := cron.Deps()
	assert.IsType(t, &ratelimit.Bolt{}, deps.Limiter)
	assert.Same(t, res.limiter, deps.Limiter)
	assert.IsType(t, &session.BoltStore{}, deps.Drafts)
	require.NotNil(t, res.bot)
	assert.Same(t, res.bot, deps.Histories)
	require.NoError(t, cron.Cleanup(context.Background()))
}

func TestWireServices_WithoutBotLeavesHistoriesNil(t *testing.T) {
	res := NewMemoryResources(config.Env{}, ledger.NewMemStore())
	defer res.Close()

	am := NewAppManager(res)
	require.NoError(t, am.AutoRegisterServices([]ServiceConfig{{Name: "cron"}, {Name: "payout"}}))

	deps := am.GetServiceByName("cron").(*jobs.CronService).Deps()
	assert.Nil(t, deps.Histories)
	assert.Nil(t, deps.Drafts)
	assert.IsType(t, &ratelimit.Memory{}, deps.Limiter)
}

func TestAutoRegisterServices_Errors(t *testing.T) {
	res := NewMemoryResources(config.Env{}, ledger.NewMemStore())

	err := NewAppManager(res).AutoRegisterServices([]ServiceConfig{{Name: "fx"}})
	assert.ErrorContains(t, err, "unknown service")

	err = NewAppManager(res).AutoRegisterServices([]ServiceConfig{{Name: "bot"}})
	assert.ErrorContains(t, err, "TELEGRAM_BOT_TOKEN")

	err = NewAppManager(res).AutoRegisterServices([]ServiceConfig{
		{Name: "payout", Config: map[string]interface{}{"rate_limit_backend": "redis"}},
	})
	assert.ErrorContains(t, err, "rate_limit_backend")
}

func TestStartStopOrder(t *testing.T) {
	var log []string
	am := NewAppManager(nil)
	am.RegisterService(&fakeService{name: "a", log: &log, stopErr: errors.New("boom")})
	am.RegisterService(&fakeService{name: "b", log: &log})

	require.NoError(t, am.StartAll())
	err := am.StopAll()
	assert.ErrorContains(t, err, "failed to stop service a")
	assert.Equal(t, []string{"start a", "start b", "stop b", "stop a"}, log)
}

func TestNewResources_UnknownStore(t *testing.T) {
	_, err := NewResources(context.Background(), config.Env{}, "sqlite")
	assert.Error(t, err)

	_, err = NewResources(context.Background(), config.Env{}, StorePostgres)
	assert.ErrorContains(t, err, "DB_USER")
}

func TestToDuration(t *testing.T) {
	assert.Equal(t, "1h0m0s", toDuration("1h").String())
	assert.Equal(t, "30s", toDuration(30).String())
	assert.Equal(t, "0s", toDuration(nil).String())
}
