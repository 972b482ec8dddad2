package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ChurchLedger/api/constants"
	"ChurchLedger/internal/amountwords"
	"ChurchLedger/internal/config"
	"ChurchLedger/internal/history"
	"ChurchLedger/internal/ledger"
	"ChurchLedger/internal/logger"
	"ChurchLedger/internal/session"
	"ChurchLedger/internal/validation"

	"github.com/shopspring/decimal"
)

const skipAnswer = "-"

var errBadChoice = errors.New(constants.BotMsgInvalidChoice)

func (h *Handler) start(ctx context.Context, chatID int64) string {
	d := session.Draft{ChatID: chatID, Step: session.StepAmount}
	if err := h.drafts.Put(ctx, &d); err != nil {
		logger.Error("bot: save draft for chat %d: %v", chatID, err)
		return constants.BotMsgUnavailable
	}
	h.mu.Lock()
	h.histories[chatID] = history.New(d)
	h.mu.Unlock()
	return constants.BotMsgAskAmount
}

func (h *Handler) discard(ctx context.Context, chatID int64) {
	if err := h.drafts.Delete(ctx, chatID); err != nil {
		logger.Error("bot: delete draft for chat %d: %v", chatID, err)
	}
	h.mu.Lock()
	delete(h.histories, chatID)
	h.mu.Unlock()
}

// buffer returns the history of the chat's live draft, rebuilding it from the
// persisted draft after a restart. Nil means there is no draft.
func (h *Handler) buffer(ctx context.Context, chatID int64) (*history.Buffer[session.Draft], error) {
	d, ok, err := h.drafts.Get(ctx, chatID)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if !ok {
		delete(h.histories, chatID)
		return nil, nil
	}
	buf, ok := h.histories[chatID]
	if !ok {
		buf = history.New(*d)
		h.histories[chatID] = buf
	}
	return buf, nil
}

// PruneHistories drops the undo history of chats whose draft is gone, so
// conversations abandoned until their draft expired do not stay in memory.
func (h *Handler) PruneHistories(ctx context.Context) error {
	h.mu.Lock()
	chats := make([]int64, 0, len(h.histories))
	for id := range h.histories {
		chats = append(chats, id)
	}
	h.mu.Unlock()

	var errs []error
	pruned := 0
	for _, id := range chats {
		lock := h.chatLock(id)
		lock.Lock()
		_, ok, err := h.drafts.Get(ctx, id)
		if err == nil && !ok {
			h.mu.Lock()
			delete(h.histories, id)
			h.mu.Unlock()
			pruned++
		}
		lock.Unlock()
		if err != nil {
			errs = append(errs, fmt.Errorf("chat %d: %w", id, err))
		}
	}
	if pruned > 0 {
		logger.Audit("bot: pruned %d stale draft histories", pruned)
	}
	return errors.Join(errs...)
}

// HistoryLen reports how many chats hold an undo history.
func (h *Handler) HistoryLen() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.histories)
}

func (h *Handler) walk(ctx context.Context, chatID int64, back bool) string {
	buf, err := h.buffer(ctx, chatID)
	if err != nil {
		logger.Error("bot: load draft for chat %d: %v", chatID, err)
		return constants.BotMsgUnavailable
	}
	if buf == nil {
		return constants.BotMsgNoDraft
	}
	if back {
		if !buf.CanUndo() {
			return constants.BotMsgNothingToUndo
		}
		buf.Undo()
	} else {
		if !buf.CanRedo() {
			return constants.BotMsgNothingToRedo
		}
		buf.Redo()
	}
	d := buf.Present()
	if err := h.drafts.Put(ctx, &d); err != nil {
		logger.Error("bot: save draft for chat %d: %v", chatID, err)
		return constants.BotMsgUnavailable
	}
	return h.prompt(ctx, d)
}

// advance feeds one answer into the current step.
func (h *Handler) advance(ctx context.Context, chatID int64, text string) string {
	buf, err := h.buffer(ctx, chatID)
	if err != nil {
		logger.Error("bot: load draft for chat %d: %v", chatID, err)
		return constants.BotMsgUnavailable
	}
	if buf == nil {
		return constants.BotMsgNoDraft
	}

	d := buf.Present()
	switch d.Step {
	case session.StepAmount:
		amount, err := ParseAmount(text)
		if err != nil {
			return constants.FormatError(constants.BotMsgInvalidAmount, err.Error())
		}
		d.Amount = amount.StringFixed(2)
		d.Step = session.StepCurrency

	case session.StepCurrency:
		if text == skipAnswer {
			text = "PLN"
		}
		code, err := validation.NormalizeCurrency(text)
		if err != nil {
			return err.Error()
		}
		d.Currency = code
		d.Step = session.StepCategory

	case session.StepCategory:
		if err := h.chooseCategory(ctx, &d, text); err != nil {
			if errors.Is(err, errBadChoice) {
				return constants.BotMsgInvalidChoice
			}
			logger.Error("bot: list categories: %v", err)
			return constants.BotMsgUnavailable
		}
		d.Step = session.StepDescription

	case session.StepDescription:
		if err := validation.ValidateLength("description", text, config.MaxFreeTextLength); err != nil {
			return err.Error()
		}
		d.Description = text
		d.Step = session.StepIssuedTo

	case session.StepIssuedTo:
		if err := validation.ValidateLength("issuedTo", text, config.MaxFreeTextLength); err != nil {
			return err.Error()
		}
		d.IssuedTo = text
		d.Step = session.StepConfirm

	case session.StepConfirm:
		switch strings.ToLower(text) {
		case "tak":
			return h.save(ctx, chatID, d)
		case "nie":
			h.discard(ctx, chatID)
			return constants.BotMsgCancelled
		default:
			return constants.BotMsgInvalidChoice
		}
	}

	if err := h.drafts.Put(ctx, &d); err != nil {
		logger.Error("bot: save draft for chat %d: %v", chatID, err)
		return constants.BotMsgUnavailable
	}
	buf.Set(d)
	return h.prompt(ctx, d)
}

func (h *Handler) chooseCategory(ctx context.Context, d *session.Draft, text string) error {
	if text == skipAnswer {
		d.CategoryID, d.CategoryName = "", ""
		return nil
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		return errBadChoice
	}
	cats, err := h.store.ExpenseCategories(ctx, h.ownerID)
	if err != nil {
		return err
	}
	if n < 1 || n > len(cats) {
		return errBadChoice
	}
	d.CategoryID = cats[n-1].ID
	d.CategoryName = cats[n-1].Name
	return nil
}

func (h *Handler) prompt(ctx context.Context, d session.Draft) string {
	switch d.Step {
	case session.StepAmount:
		return constants.BotMsgAskAmount
	case session.StepCurrency:
		return constants.FormatError(constants.BotMsgAskCurrency, strings.Join(config.SupportedCurrencies, ", "))
	case session.StepCategory:
		menu, err := h.categoryMenu(ctx)
		if err != nil {
			logger.Error("bot: list categories: %v", err)
			return constants.BotMsgUnavailable
		}
		if menu == "" {
			menu = constants.BotMsgNoCategories
		}
		return constants.FormatError(constants.BotMsgAskCategory, menu)
	case session.StepDescription:
		return constants.BotMsgAskDescription
	case session.StepIssuedTo:
		return constants.BotMsgAskIssuedTo
	default:
		return constants.FormatError(constants.BotMsgConfirm, summary(d))
	}
}

// categoryMenu numbers the owner's expense categories from 1.
func (h *Handler) categoryMenu(ctx context.Context) (string, error) {
	cats, err := h.store.ExpenseCategories(ctx, h.ownerID)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for i, c := range cats {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s", i+1, c.Name)
	}
	return b.String(), nil
}

func summary(d session.Draft) string {
	category := d.CategoryName
	if category == "" {
		category = skipAnswer
	}
	return constants.FormatError(constants.BotMsgSummary, d.Amount, d.Currency, category, d.Description, d.IssuedTo)
}

func (h *Handler) save(ctx context.Context, chatID int64, d session.Draft) string {
	amount, err := decimal.NewFromString(d.Amount)
	if err != nil {
		logger.Error("bot: corrupt draft amount %q for chat %d: %v", d.Amount, chatID, err)
		h.discard(ctx, chatID)
		return constants.BotMsgSaveFailed
	}
	words, err := amountwords.Format(amount, d.Currency)
	if err != nil {
		logger.Error("bot: amount in words for %s %s: %v", d.Amount, d.Currency, err)
	}

	now := h.now().In(h.loc)
	tx := ledger.Transaction{
		OwnerID:       h.ownerID,
		Type:          ledger.Expense,
		Amount:        amount,
		Currency:      d.Currency,
		Description:   d.Description,
		Date:          time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, h.loc),
		IssuedTo:      d.IssuedTo,
		AmountInWords: words,
	}
	if d.CategoryID != "" {
		id := d.CategoryID
		tx.CategoryID = &id
	}

	id, err := h.store.InsertTransaction(ctx, tx)
	if err != nil {
		logger.Error("bot: insert transaction for chat %d: %v", chatID, err)
		return constants.BotMsgSaveFailed
	}
	logger.Audit("bot: chat %d recorded expense %s (%s %s)", chatID, id, d.Amount, d.Currency)
	h.discard(ctx, chatID)
	return constants.FormatError(constants.BotMsgSaved, d.Amount+" "+d.Currency)
}

// ParseAmount accepts "120,50", "120.50" and spaces as thousands separators,
// with the same bounds as public submissions.
func ParseAmount(text string) (decimal.Decimal, error) {
	s := strings.ReplaceAll(strings.TrimSpace(text), " ", "")
	s = strings.Replace(s, ",", ".", 1)
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%q", text)
	}
	if err := validation.ValidateAmount(&amount); err != nil {
		return decimal.Decimal{}, err
	}
	return amount, nil
}
