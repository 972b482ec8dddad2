package resource

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"ChurchLedger/internal/logger"
)

// Check reports whether a shared resource (database, file store) is usable.
type Check func(ctx context.Context) error

type ResourceManager struct {
	resources         map[string]Check
	status            map[string]error
	mu                sync.RWMutex
	stopChan          chan struct{}
	heartbeatInterval time.Duration
}

func NewResourceManagerService(cfg map[string]interface{}) *ResourceManager {
	interval := 30 * time.Second
	if val, ok := cfg["heartbeat_interval"]; ok {
		switch v := val.(type) {
		case string:
			if d, err := time.ParseDuration(v); err == nil && d > 0 {
				interval = d
			}
		case int:
			interval = time.Duration(v) * time.Second
		case float64:
			interval = time.Duration(v) * time.Second
		}
	}
	return &ResourceManager{
		resources:         make(map[string]Check),
		status:            make(map[string]error),
		stopChan:          make(chan struct{}),
		heartbeatInterval: interval,
	}
}

func (rm *ResourceManager) Name() string { return "resourcemanager" }

func (rm *ResourceManager) Start() error {
	logger.Audit("ResourceManager started, heartbeat every %s", rm.heartbeatInterval)
	go rm.heartbeatLoop()
	return nil
}

func (rm *ResourceManager) Stop() error {
	close(rm.stopChan)
	return nil
}

func (rm *ResourceManager) heartbeatLoop() {
	ticker := time.NewTicker(rm.heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-rm.stopChan:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), rm.heartbeatInterval)
			rm.CheckAll(ctx)
			cancel()
		}
	}
}

// CheckAll runs every registered check and logs state changes.
func (rm *ResourceManager) CheckAll(ctx context.Context) map[string]error {
	rm.mu.RLock()
	checks := make(map[string]Check, len(rm.resources))
	for k, c := range rm.resources {
		checks[k] = c
	}
	rm.mu.RUnlock()

	results := make(map[string]error, len(checks))
	for name, check := range checks {
		results[name] = check(ctx)
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()
	for name, err := range results {
		prev, seen := rm.status[name]
		switch {
		case err != nil && (prev == nil || !seen):
			logger.Error("heartbeat: %s unavailable: %v", name, err)
		case err == nil && prev != nil:
			log.Printf("heartbeat: %s recovered", name)
			logger.Audit("heartbeat: %s recovered", name)
		}
		rm.status[name] = err
	}
	return results
}

func (rm *ResourceManager) AddResource(name string, check Check) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.resources[name] = check
}

func (rm *ResourceManager) RemoveResource(name string) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	delete(rm.resources, name)
	delete(rm.status, name)
}

func (rm *ResourceManager) ListResources() []string {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	keys := make([]string, 0, len(rm.resources))
	for key := range rm.resources {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
