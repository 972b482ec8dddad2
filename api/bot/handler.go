package bot

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"sync"
	"time"

	"ChurchLedger/api"
	"ChurchLedger/api/constants"
	"ChurchLedger/internal/history"
	"ChurchLedger/internal/ledger"
	"ChurchLedger/internal/logger"
	"ChurchLedger/internal/session"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gorilla/mux"
)

const (
	WebhookPath  = "/bot/webhook"
	SecretHeader = "X-Telegram-Bot-Api-Secret-Token"
)

// Store is the slice of the ledger the bot writes to.
type Store interface {
	ExpenseCategories(ctx context.Context, ownerID string) ([]ledger.Category, error)
	InsertTransaction(ctx context.Context, t ledger.Transaction) (string, error)
}

type Handler struct {
	store   Store
	drafts  session.Store
	sender  Sender
	ownerID string
	secret  string
	allowed map[int64]bool
	now     func() time.Time
	loc     *time.Location

	mu        sync.Mutex
	chatLocks map[int64]*sync.Mutex
	histories map[int64]*history.Buffer[session.Draft]
}

type Option func(*Handler)

// WithSecret requires webhook calls to carry the secret header.
func WithSecret(secret string) Option { return func(h *Handler) { h.secret = secret } }

func WithAllowedChats(ids []int64) Option {
	return func(h *Handler) {
		for _, id := range ids {
			h.allowed[id] = true
		}
	}
}

func WithClock(now func() time.Time) Option { return func(h *Handler) { h.now = now } }

func WithLocation(loc *time.Location) Option { return func(h *Handler) { h.loc = loc } }

// NewHandler builds the webhook handler. Expenses are recorded in ownerID's
// ledger. Only chats passed through WithAllowedChats are served.
func NewHandler(store Store, drafts session.Store, sender Sender, ownerID string, opts ...Option) *Handler {
	h := &Handler{
		store:     store,
		drafts:    drafts,
		sender:    sender,
		ownerID:   ownerID,
		allowed:   make(map[int64]bool),
		now:       time.Now,
		loc:       time.UTC,
		chatLocks: make(map[int64]*sync.Mutex),
		histories: make(map[int64]*history.Buffer[session.Draft]),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	h.Register(r)
	return r
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc(WebhookPath, h.Webhook).Methods(http.MethodPost)
}

func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	if h.secret != "" {
		got := r.Header.Get(SecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) != 1 {
			api.RespondWithError(w, http.StatusUnauthorized, constants.ErrUnauthorized)
			return
		}
	}

	var upd tgbotapi.Update
	if err := api.DecodeJSON(r, &upd); err != nil {
		api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
		return
	}
	if upd.Message != nil && upd.Message.Chat != nil && upd.Message.Text != "" {
		h.handleMessage(r.Context(), upd.Message)
	}
	api.RespondWithJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	var reply string
	if !h.allowed[chatID] {
		logger.Audit("bot: refused chat %d", chatID)
		reply = constants.BotMsgNotAllowed
	} else {
		lock := h.chatLock(chatID)
		lock.Lock()
		reply = h.dispatch(ctx, chatID, strings.TrimSpace(msg.Text))
		lock.Unlock()
	}
	if reply == "" {
		return
	}
	if err := h.sender.SendMessage(ctx, chatID, reply); err != nil {
		logger.Error("bot: reply to chat %d: %v", chatID, err)
	}
}

func (h *Handler) chatLock(chatID int64) *sync.Mutex {
	h.mu.Lock()
	defer h.mu.Unlock()
	l, ok := h.chatLocks[chatID]
	if !ok {
		l = &sync.Mutex{}
		h.chatLocks[chatID] = l
	}
	return l
}

// command returns the leading /command of text without any @botname suffix.
func command(text string) string {
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	cmd := strings.Fields(text)[0]
	if i := strings.IndexByte(cmd, '@'); i > 0 {
		cmd = cmd[:i]
	}
	return strings.ToLower(cmd)
}

func (h *Handler) dispatch(ctx context.Context, chatID int64, text string) string {
	switch command(text) {
	case "":
		return h.advance(ctx, chatID, text)
	case "/new":
		return h.start(ctx, chatID)
	case "/cancel":
		h.discard(ctx, chatID)
		return constants.BotMsgCancelled
	case "/undo":
		return h.walk(ctx, chatID, true)
	case "/redo":
		return h.walk(ctx, chatID, false)
	case "/kategorie":
		menu, err := h.categoryMenu(ctx)
		if err != nil {
			logger.Error("bot: list categories: %v", err)
			return constants.BotMsgUnavailable
		}
		if menu == "" {
			return constants.BotMsgNoCategories
		}
		return menu
	default:
		return constants.BotMsgWelcome
	}
}
