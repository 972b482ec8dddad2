package payout

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"ChurchLedger/internal/ledger"
	"ChurchLedger/internal/ratelimit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	ownerID      = "0d6f6c56-1111-4a8e-9c8e-6f0e0a000001"
	otherOwnerID = "0d6f6c56-2222-4a8e-9c8e-6f0e0a000002"
	validToken   = "valid-token-123"
)

var uuidPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

type fixture struct {
	store         *ledger.MemStore
	handler       *Handler
	router        http.Handler
	now           time.Time
	categoryID    string
	foreignCatID  string
	notifications chan string
}

type chanNotifier chan string

func (c chanNotifier) Notify(_ context.Context, msg string) { c <- msg }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	now := time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	store := ledger.NewMemStore()
	store.SetClock(clock)
	expired := now.Add(-time.Hour)
	later := now.Add(24 * time.Hour)
	store.AddLink(ledger.SharedPayoutLink{Token: validToken, OwnerID: ownerID, Name: "Parafia św. Jana", IsActive: true, ExpiresAt: &later, LinkType: ledger.LinkStepwise})
	store.AddLink(ledger.SharedPayoutLink{Token: "inactive-token-1", OwnerID: ownerID, IsActive: false})
	store.AddLink(ledger.SharedPayoutLink{Token: "expired-token-1", OwnerID: ownerID, IsActive: true, ExpiresAt: &expired})

	catID := store.AddCategory(ledger.Category{OwnerID: ownerID, Name: "Remonty", Type: ledger.Expense, SortOrder: 2})
	store.AddCategory(ledger.Category{OwnerID: ownerID, Name: "Media", Type: ledger.Expense, SortOrder: 1})
	store.AddCategory(ledger.Category{OwnerID: ownerID, Name: "Ofiary", Type: ledger.Income, SortOrder: 0})
	foreign := store.AddCategory(ledger.Category{OwnerID: otherOwnerID, Name: "Obca", Type: ledger.Expense})

	notes := make(chan string, 32)
	limiter := ratelimit.NewMemory(ratelimit.Config{}).WithClock(clock)
	h := NewHandler(store, limiter, WithClock(clock), WithNotifier(chanNotifier(notes)))
	return &fixture{
		store:         store,
		handler:       h,
		router:        h.Router(),
		now:           now,
		categoryID:    catID,
		foreignCatID:  foreign,
		notifications: notes,
	}
}

func (f *fixture) post(t *testing.T, endpoint string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, PathPrefix+"/"+endpoint, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec.Code, out
}

func (f *fixture) payout(overrides map[string]interface{}) map[string]interface{} {
	body := map[string]interface{}{
		"token":    validToken,
		"amount":   100.50,
		"currency": "PLN",
		"date":     f.now.Format("2006-01-02"),
	}
	for k, v := range overrides {
		body[k] = v
	}
	return body
}

func TestValidateToken_Valid(t *testing.T) {
	f := newFixture(t)
	code, out := f.post(t, "validate-payout-token", map[string]string{"token": validToken})

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, out["valid"])
	assert.Equal(t, "Parafia św. Jana", out["linkName"])
	assert.Equal(t, "stepwise", out["linkType"])
	assert.NotContains(t, out, "ownerId")
	assert.NotContains(t, out, "user_id")

	cats := out["categories"].([]interface{})
	require.Len(t, cats, 2)
	assert.Equal(t, "Media", cats[0].(map[string]interface{})["name"])
	assert.Equal(t, "Remonty", cats[1].(map[string]interface{})["name"])
	assert.Equal(t, f.categoryID, cats[1].(map[string]interface{})["id"])
}

func TestValidateToken_Failures(t *testing.T) {
	f := newFixture(t)

	code, out := f.post(t, "validate-payout-token", map[string]string{"token": "short"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, false, out["valid"])

	cases := map[string]string{
		"unknown-token-123": "Link not found",
		"inactive-token-1":  "This link is no longer active",
		"expired-token-1":   "This link has expired",
	}
	for token, msg := range cases {
		code, out := f.post(t, "validate-payout-token", map[string]string{"token": token})
		assert.Equal(t, http.StatusOK, code, token)
		assert.Equal(t, false, out["valid"], token)
		assert.Equal(t, msg, out["error"], token)
	}
}

func TestSubmitPayout_Success(t *testing.T) {
	f := newFixture(t)
	code, out := f.post(t, "submit-public-payout", f.payout(map[string]interface{}{
		"categoryId":  f.categoryID,
		"description": "  Naprawa dachu ",
		"issuedTo":    "Firma Dekarz",
	}))

	require.Equal(t, http.StatusOK, code, out)
	assert.Equal(t, true, out["success"])
	id, _ := out["transactionId"].(string)
	assert.Regexp(t, uuidPattern, id)

	tx, err := f.store.TransactionByID(context.Background(), ownerID, id)
	require.NoError(t, err)
	assert.Equal(t, ledger.Expense, tx.Type)
	assert.Equal(t, "100.5", tx.Amount.String())
	assert.Equal(t, "PLN", tx.Currency)
	assert.Equal(t, "Naprawa dachu", tx.Description)
	assert.Equal(t, "Firma Dekarz", tx.IssuedTo)
	assert.Equal(t, "sto złotych 50/100", tx.AmountInWords)
	require.NotNil(t, tx.CategoryID)
	assert.Equal(t, f.categoryID, *tx.CategoryID)

	select {
	case msg := <-f.notifications:
		assert.Contains(t, msg, "100.50 PLN")
	case <-time.After(time.Second):
		t.Fatal("owner was not notified")
	}
}

func TestSubmitPayout_ValidationErrors(t *testing.T) {
	f := newFixture(t)
	cases := []struct {
		name      string
		overrides map[string]interface{}
		contains  string
	}{
		{"zero amount", map[string]interface{}{"amount": 0}, "greater than 0"},
		{"negative amount", map[string]interface{}{"amount": -3}, "greater than 0"},
		{"huge amount", map[string]interface{}{"amount": 20000000}, "maximum"},
		{"missing amount", map[string]interface{}{"amount": nil}, "Amount is required"},
		{"bad currency", map[string]interface{}{"currency": "GBP"}, "Currency"},
		{"bad date format", map[string]interface{}{"date": "16.10.2026"}, "YYYY-MM-DD"},
		{"date too old", map[string]interface{}{"date": "2025-10-01"}, "Date must be between"},
		{"date too far", map[string]interface{}{"date": "2026-12-01"}, "Date must be between"},
		{"long description", map[string]interface{}{"description": strings.Repeat("x", 501)}, "description"},
		{"long issuedTo", map[string]interface{}{"issuedTo": strings.Repeat("x", 501)}, "issuedTo"},
		{"long words", map[string]interface{}{"amountInWords": strings.Repeat("x", 501)}, "amountInWords"},
		{"bad category", map[string]interface{}{"categoryId": "abc"}, "categoryId"},
		{"short token", map[string]interface{}{"token": "abc"}, "token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, out := f.post(t, "submit-public-payout", f.payout(tc.overrides))
			assert.Equal(t, http.StatusBadRequest, code)
			assert.Equal(t, false, out["success"])
			assert.Contains(t, out["error"], tc.contains)
		})
	}

	txs, err := f.store.Transactions(context.Background(), ownerID)
	require.NoError(t, err)
	assert.Empty(t, txs, "rejected submissions must not write")
}

func TestSubmitPayout_LinkState(t *testing.T) {
	f := newFixture(t)

	code, out := f.post(t, "submit-public-payout", f.payout(map[string]interface{}{"token": "inactive-token-1"}))
	assert.Equal(t, http.StatusForbidden, code)
	assert.Contains(t, out["error"], "no longer active")

	code, out = f.post(t, "submit-public-payout", f.payout(map[string]interface{}{"token": "expired-token-1"}))
	assert.Equal(t, http.StatusForbidden, code)
	assert.Contains(t, out["error"], "expired")

	code, out = f.post(t, "submit-public-payout", f.payout(map[string]interface{}{"token": "unknown-token-123"}))
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "Invalid link", out["error"])
}

func TestExpiredLink_SweepKeepsReasonAndExtensionWorks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	n, err := f.store.CountExpiredLinks(ctx, f.now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	code, out := f.post(t, "validate-payout-token", map[string]string{"token": "expired-token-1"})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "This link has expired", out["error"])

	extended := f.now.Add(48 * time.Hour)
	f.store.AddLink(ledger.SharedPayoutLink{Token: "expired-token-1", OwnerID: ownerID, IsActive: true, ExpiresAt: &extended})

	code, out = f.post(t, "submit-public-payout", f.payout(map[string]interface{}{"token": "expired-token-1"}))
	assert.Equal(t, http.StatusOK, code, "%v", out)
}

func TestSubmitPayout_CategoryOwnership(t *testing.T) {
	f := newFixture(t)

	code, out := f.post(t, "submit-public-payout", f.payout(map[string]interface{}{"categoryId": f.foreignCatID}))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid category", out["error"])

	code, _ = f.post(t, "submit-public-payout", f.payout(map[string]interface{}{"categoryId": "9b2f8a9e-0000-4000-8000-000000000000"}))
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = f.post(t, "submit-public-payout", f.payout(map[string]interface{}{"categoryId": ""}))
	assert.Equal(t, http.StatusOK, code, "empty category is treated as absent")
}

func TestSubmitPayout_RateLimit(t *testing.T) {
	f := newFixture(t)
	for i := 1; i <= 10; i++ {
		code, out := f.post(t, "submit-public-payout", f.payout(nil))
		require.Equal(t, http.StatusOK, code, "submission %d: %v", i, out)
	}
	code, out := f.post(t, "submit-public-payout", f.payout(nil))
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, false, out["success"])

	txs, err := f.store.Transactions(context.Background(), ownerID)
	require.NoError(t, err)
	assert.Len(t, txs, 10)
}

func TestSubmitPayout_NoDeduplication(t *testing.T) {
	f := newFixture(t)
	_, first := f.post(t, "submit-public-payout", f.payout(nil))
	_, second := f.post(t, "submit-public-payout", f.payout(nil))
	assert.NotEqual(t, first["transactionId"], second["transactionId"])
}

func TestPendingPayoutFlow(t *testing.T) {
	f := newFixture(t)
	name := "Jan Kowalski"

	code, out := f.post(t, "submit-public-payout", f.payout(map[string]interface{}{
		"description":   "Kwiaty do kościoła",
		"submitterName": "  " + name + " ",
		"pendingImages": true,
	}))
	require.Equal(t, http.StatusOK, code, out)
	id := out["transactionId"].(string)

	code, out = f.post(t, "check-pending-payouts", map[string]string{"token": validToken, "submitterName": name})
	require.Equal(t, http.StatusOK, code, out)
	pending := out["pendingPayouts"].([]interface{})
	require.Len(t, pending, 1)
	first := pending[0].(map[string]interface{})
	assert.Equal(t, id, first["id"])
	assert.Equal(t, "Kwiaty do kościoła [Bez załączników - Jan Kowalski]", first["description"])
	assert.Equal(t, 100.5, first["amount"])
	assert.Equal(t, "2026-10-16", first["date"])

	code, out = f.post(t, "add-images-to-payout", map[string]string{"token": validToken, "transactionId": id, "submitterName": "Anna Nowak"})
	assert.Equal(t, http.StatusForbidden, code, "another submitter cannot complete it")

	code, out = f.post(t, "add-images-to-payout", map[string]string{"token": validToken, "transactionId": id, "submitterName": name})
	require.Equal(t, http.StatusOK, code, out)
	assert.Equal(t, true, out["success"])

	tx, err := f.store.TransactionByID(context.Background(), ownerID, id)
	require.NoError(t, err)
	assert.Equal(t, "Kwiaty do kościoła", tx.Description)
	assert.Equal(t, "100.5", tx.Amount.String())

	code, _ = f.post(t, "add-images-to-payout", map[string]string{"token": validToken, "transactionId": id, "submitterName": name})
	assert.Equal(t, http.StatusForbidden, code, "tag already stripped")

	code, out = f.post(t, "check-pending-payouts", map[string]string{"token": validToken, "submitterName": name})
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, out["pendingPayouts"])
}

func TestSubmitPayout_PendingTagFitsDescriptionLimit(t *testing.T) {
	f := newFixture(t)
	long := strings.Repeat("ż", 500)

	code, out := f.post(t, "submit-public-payout", f.payout(map[string]interface{}{
		"description":   long,
		"submitterName": "Jan Kowalski",
		"pendingImages": true,
	}))
	require.Equal(t, http.StatusOK, code, "%v", out)

	tx, err := f.store.TransactionByID(context.Background(), ownerID, out["transactionId"].(string))
	require.NoError(t, err)
	assert.Equal(t, 500, utf8.RuneCountInString(tx.Description))
	assert.True(t, strings.HasSuffix(tx.Description, " [Bez załączników - Jan Kowalski]"))
}

func TestCheckPending_Errors(t *testing.T) {
	f := newFixture(t)

	code, _ := f.post(t, "check-pending-payouts", map[string]string{"token": validToken, "submitterName": "  "})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = f.post(t, "check-pending-payouts", map[string]string{"token": "tiny", "submitterName": "Jan"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = f.post(t, "check-pending-payouts", map[string]string{"token": "inactive-token-1", "submitterName": "Jan"})
	assert.Equal(t, http.StatusForbidden, code)
}

func TestAddImages_Errors(t *testing.T) {
	f := newFixture(t)

	code, _ := f.post(t, "add-images-to-payout", map[string]string{"token": validToken, "transactionId": "nope", "submitterName": "Jan"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = f.post(t, "add-images-to-payout", map[string]string{"token": "expired-token-1", "transactionId": "9b2f8a9e-0000-4000-8000-000000000000", "submitterName": "Jan"})
	assert.Equal(t, http.StatusForbidden, code)

	// a pending record of another owner is invisible through this link
	foreignID, err := f.store.InsertTransaction(context.Background(), ledger.Transaction{
		OwnerID:     otherOwnerID,
		Type:        ledger.Expense,
		Description: ledger.PendingTag("Jan"),
	})
	require.NoError(t, err)
	code, _ = f.post(t, "add-images-to-payout", map[string]string{"token": validToken, "transactionId": foreignID, "submitterName": "Jan"})
	assert.Equal(t, http.StatusForbidden, code)
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodOptions, PathPrefix+"/submit-public-payout", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestInvalidJSON(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodPost, PathPrefix+"/submit-public-payout", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
