package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingTag(t *testing.T) {
	assert.Equal(t, "[Bez załączników - Jan Kowalski]", PendingTag("Jan Kowalski"))
	assert.Equal(t, "Kwiaty", StripPendingTag("Kwiaty [Bez załączników - Jan]", PendingTag("Jan")))
}

func TestStripPendingTag_TrimsControlWhitespace(t *testing.T) {
	tag := PendingTag("Jan")
	assert.Equal(t, "Kwiaty", StripPendingTag("\tKwiaty\r\n "+tag+"\n", tag))
	assert.Equal(t, "", StripPendingTag(" \t"+tag+"\v\f", tag))
	assert.Equal(t, "a\tb", StripPendingTag(tag+"a\tb", tag))
}

func TestTruncate_CountsRunes(t *testing.T) {
	assert.Equal(t, "zażó", Truncate("zażółć", 4))
	assert.Equal(t, "abc", Truncate("abc", 10))
	assert.Equal(t, "", Truncate("abc", -1))
}

func TestMemStore_FindPendingNewestFirstAndLimited(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	tag := PendingTag("Anna")

	for i := 0; i < 12; i++ {
		_, err := s.InsertTransaction(ctx, Transaction{
			OwnerID:     "owner",
			Type:        Expense,
			Amount:      decimal.NewFromInt(int64(i + 1)),
			Currency:    "PLN",
			Description: "item " + tag,
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}
	_, err := s.InsertTransaction(ctx, Transaction{OwnerID: "other", Type: Expense, Description: tag})
	require.NoError(t, err)
	_, err = s.InsertTransaction(ctx, Transaction{OwnerID: "owner", Type: Income, Description: tag})
	require.NoError(t, err)

	found, err := s.FindPending(ctx, "owner", tag, 10)
	require.NoError(t, err)
	require.Len(t, found, 10)
	assert.True(t, found[0].Amount.Equal(decimal.NewFromInt(12)))
	assert.True(t, found[9].Amount.Equal(decimal.NewFromInt(3)))
}

func TestMemStore_ClearPendingTagIsConditional(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	tag := PendingTag("Jan")
	id, err := s.InsertTransaction(ctx, Transaction{OwnerID: "owner", Type: Expense, Description: "Prąd " + tag})
	require.NoError(t, err)

	ok, err := s.ClearPendingTag(ctx, "intruder", id, tag, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.ClearPendingTag(ctx, "owner", id, tag, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	tx, err := s.TransactionByID(ctx, "owner", id)
	require.NoError(t, err)
	assert.Equal(t, "Prąd", tx.Description)

	ok, err = s.ClearPendingTag(ctx, "owner", id, tag, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemStore_CountExpiredLinksLeavesLinksAlone(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	s.AddLink(SharedPayoutLink{Token: "expired-token-1", OwnerID: "o", IsActive: true, ExpiresAt: &past})
	s.AddLink(SharedPayoutLink{Token: "future-token-1", OwnerID: "o", IsActive: true, ExpiresAt: &future})
	s.AddLink(SharedPayoutLink{Token: "forever-token-1", OwnerID: "o", IsActive: true})

	n, err := s.CountExpiredLinks(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	l, err := s.LinkByToken(ctx, "expired-token-1")
	require.NoError(t, err)
	assert.True(t, l.IsActive, "expiry is reported, not written back")
	l, err = s.LinkByToken(ctx, "forever-token-1")
	require.NoError(t, err)
	assert.True(t, l.IsActive)

	_, err = s.LinkByToken(ctx, "missing-token")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemStore_LedgerOwners(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	for _, owner := range []string{"b", "a", "b", "c"} {
		_, err := s.InsertTransaction(ctx, Transaction{OwnerID: owner, Type: Income, Amount: decimal.NewFromInt(1), Currency: "PLN"})
		require.NoError(t, err)
	}

	all, err := s.LedgerOwners(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, all)

	some, err := s.LedgerOwners(ctx, []string{"c", "z"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, some)
}
