package payout

import (
	"context"
	"errors"
	"net/http"
	"time"

	"ChurchLedger/api"
	"ChurchLedger/api/constants"
	"ChurchLedger/internal/ledger"
	"ChurchLedger/internal/ratelimit"

	"github.com/gorilla/mux"
)

// PathPrefix is where the public link endpoints are mounted.
const PathPrefix = "/functions/v1"

// Store is the slice of the ledger the public link endpoints touch.
type Store interface {
	LinkByToken(ctx context.Context, token string) (*ledger.SharedPayoutLink, error)
	ExpenseCategories(ctx context.Context, ownerID string) ([]ledger.Category, error)
	CategoryOwner(ctx context.Context, categoryID string) (string, error)
	InsertTransaction(ctx context.Context, t ledger.Transaction) (string, error)
	FindPending(ctx context.Context, ownerID, tag string, limit int) ([]ledger.Transaction, error)
	TransactionByID(ctx context.Context, ownerID, id string) (*ledger.Transaction, error)
	ClearPendingTag(ctx context.Context, ownerID, id, tag string, now time.Time) (bool, error)
}

// Notifier is told about every accepted submission.
type Notifier interface {
	Notify(ctx context.Context, msg string)
}

type Handler struct {
	store    Store
	limiter  ratelimit.Limiter
	notifier Notifier
	now      func() time.Time
	loc      *time.Location
}

type Option func(*Handler)

func WithNotifier(n Notifier) Option { return func(h *Handler) { h.notifier = n } }

func WithClock(now func() time.Time) Option { return func(h *Handler) { h.now = now } }

// WithLocation sets the zone "today" is computed in for date bounds.
func WithLocation(loc *time.Location) Option { return func(h *Handler) { h.loc = loc } }

func NewHandler(store Store, limiter ratelimit.Limiter, opts ...Option) *Handler {
	h := &Handler{
		store:   store,
		limiter: limiter,
		now:     time.Now,
		loc:     time.UTC,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Router builds a router with the four public endpoints under PathPrefix.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	h.Register(r)
	return r
}

func (h *Handler) Register(r *mux.Router) {
	sub := r.PathPrefix(PathPrefix).Subrouter()
	sub.Use(api.CORS)
	sub.HandleFunc("/validate-payout-token", api.PostOnly(h.ValidateToken)).Methods(http.MethodPost, http.MethodOptions)
	sub.HandleFunc("/submit-public-payout", api.PostOnly(h.SubmitPayout)).Methods(http.MethodPost, http.MethodOptions)
	sub.HandleFunc("/check-pending-payouts", api.PostOnly(h.CheckPending)).Methods(http.MethodPost, http.MethodOptions)
	sub.HandleFunc("/add-images-to-payout", api.PostOnly(h.AddImages)).Methods(http.MethodPost, http.MethodOptions)
}

// resolveLink loads the link behind token. A non-empty reason means the
// token exists in some form but may not be used; err is a store failure.
func (h *Handler) resolveLink(ctx context.Context, token string) (*ledger.SharedPayoutLink, string, error) {
	link, err := h.store.LinkByToken(ctx, token)
	if errors.Is(err, ledger.ErrNotFound) {
		return nil, constants.ErrLinkNotFound, nil
	}
	if err != nil {
		return nil, "", err
	}
	if !link.IsActive {
		return nil, constants.ErrLinkInactive, nil
	}
	if link.Expired(h.now()) {
		return nil, constants.ErrLinkExpired, nil
	}
	return link, "", nil
}

// forbiddenReason maps a resolveLink reason onto the 403 message; unknown
// tokens are reported as a generic invalid link.
func forbiddenReason(reason string) string {
	if reason == constants.ErrLinkNotFound {
		return constants.ErrInvalidLink
	}
	return reason
}

func tokenPrefix(token string) string {
	if len(token) <= 6 {
		return token
	}
	return token[:6] + "…"
}
