package ledger

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemStore keeps the ledger in process memory. It backs the test suites and
// the --store=memory mode of the server.
type MemStore struct {
	mu           sync.RWMutex
	links        map[string]*SharedPayoutLink
	categories   map[string]Category
	transactions map[string]*Transaction
	seq          map[string]int64
	next         int64
	now          func() time.Time
}

func NewMemStore() *MemStore {
	return &MemStore{
		links:        make(map[string]*SharedPayoutLink),
		categories:   make(map[string]Category),
		transactions: make(map[string]*Transaction),
		seq:          make(map[string]int64),
		now:          time.Now,
	}
}

func (s *MemStore) AddLink(l SharedPayoutLink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	if l.LinkType == "" {
		l.LinkType = LinkStandard
	}
	s.links[l.Token] = &l
}

func (s *MemStore) AddCategory(c Category) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	s.categories[c.ID] = c
	return c.ID
}

func (s *MemStore) LinkByToken(_ context.Context, token string) (*SharedPayoutLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.links[token]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (s *MemStore) ExpenseCategories(ctx context.Context, ownerID string) ([]Category, error) {
	all, _ := s.Categories(ctx, ownerID)
	out := []Category{}
	for _, c := range all {
		if c.Type == Expense {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *MemStore) Categories(_ context.Context, ownerID string) ([]Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []Category{}
	for _, c := range s.categories {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *MemStore) CategoryOwner(_ context.Context, categoryID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.categories[categoryID]
	if !ok {
		return "", ErrNotFound
	}
	return c.OwnerID, nil
}

func (s *MemStore) InsertTransaction(_ context.Context, t Transaction) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now().UTC()
	}
	t.UpdatedAt = t.CreatedAt
	s.next++
	s.transactions[t.ID] = &t
	s.seq[t.ID] = s.next
	return t.ID, nil
}

func (s *MemStore) Transactions(_ context.Context, ownerID string) ([]Transaction, error) {
	out := s.filter(func(t *Transaction) bool { return t.OwnerID == ownerID })
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// SetClock replaces the time source used for created_at stamps.
func (s *MemStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemStore) FindPending(_ context.Context, ownerID, tag string, limit int) ([]Transaction, error) {
	out := s.filter(func(t *Transaction) bool {
		return t.OwnerID == ownerID && t.Type == Expense && strings.Contains(t.Description, tag)
	})
	s.mu.RLock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return s.seq[out[i].ID] > s.seq[out[j].ID]
	})
	s.mu.RUnlock()
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemStore) TransactionByID(_ context.Context, ownerID, id string) (*Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.transactions[id]
	if !ok || t.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *MemStore) ClearPendingTag(_ context.Context, ownerID, id, tag string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transactions[id]
	if !ok || t.OwnerID != ownerID || !strings.Contains(t.Description, tag) {
		return false, nil
	}
	t.Description = StripPendingTag(t.Description, tag)
	t.UpdatedAt = now
	return true, nil
}

// CountExpiredLinks counts active links whose expiry has passed. The links
// are left as they are: is_active belongs to the owner.
func (s *MemStore) CountExpiredLinks(_ context.Context, now time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, l := range s.links {
		if l.IsActive && l.Expired(now) {
			n++
		}
	}
	return n, nil
}

// LedgerOwners lists owners with at least one transaction, restricted to
// only when it is non-empty.
func (s *MemStore) LedgerOwners(_ context.Context, only []string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want := make(map[string]bool, len(only))
	for _, o := range only {
		want[o] = true
	}
	seen := map[string]bool{}
	out := []string{}
	for _, t := range s.transactions {
		if seen[t.OwnerID] || (len(want) > 0 && !want[t.OwnerID]) {
			continue
		}
		seen[t.OwnerID] = true
		out = append(out, t.OwnerID)
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemStore) filter(keep func(*Transaction) bool) []Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []Transaction{}
	for _, t := range s.transactions {
		if keep(t) {
			out = append(out, *t)
		}
	}
	return out
}
