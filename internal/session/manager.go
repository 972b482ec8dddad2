package session

import (
	"context"
	"sync"
	"time"

	"ChurchLedger/internal/config"
)

type Step string

const (
	StepAmount      Step = "amount"
	StepCurrency    Step = "currency"
	StepCategory    Step = "category"
	StepDescription Step = "description"
	StepIssuedTo    Step = "issued_to"
	StepConfirm     Step = "confirm"
)

// Draft is an expense being assembled in a bot conversation.
type Draft struct {
	ChatID       int64     `json:"chat_id"`
	Step         Step      `json:"step"`
	Amount       string    `json:"amount,omitempty"`
	Currency     string    `json:"currency,omitempty"`
	CategoryID   string    `json:"category_id,omitempty"`
	CategoryName string    `json:"category_name,omitempty"`
	Description  string    `json:"description,omitempty"`
	IssuedTo     string    `json:"issued_to,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Store keeps one draft per chat until it expires.
type Store interface {
	Get(ctx context.Context, chatID int64) (*Draft, bool, error)
	Put(ctx context.Context, d *Draft) error
	Delete(ctx context.Context, chatID int64) error
	CleanupExpired(ctx context.Context) error
}

// Manager is the in-memory Store. Drafts are lost on restart.
type Manager struct {
	drafts map[int64]*Draft
	ttl    time.Duration
	now    func() time.Time
	mu     sync.Mutex
}

func NewManager(ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = config.DefaultDraftTTL
	}
	return &Manager{
		drafts: make(map[int64]*Draft),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

func (m *Manager) Get(_ context.Context, chatID int64) (*Draft, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, exists := m.drafts[chatID]
	if !exists {
		return nil, false, nil
	}
	if !m.now().Before(d.ExpiresAt) {
		delete(m.drafts, chatID)
		return nil, false, nil
	}
	cp := *d
	return &cp, true, nil
}

func (m *Manager) Put(_ context.Context, d *Draft) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *d
	cp.ExpiresAt = m.now().Add(m.ttl)
	m.drafts[d.ChatID] = &cp
	return nil
}

func (m *Manager) Delete(_ context.Context, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.drafts, chatID)
	return nil
}

func (m *Manager) CleanupExpired(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for id, d := range m.drafts {
		if !now.Before(d.ExpiresAt) {
			delete(m.drafts, id)
		}
	}
	return nil
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.drafts)
}
