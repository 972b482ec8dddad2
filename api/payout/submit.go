package payout

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"ChurchLedger/api"
	"ChurchLedger/api/constants"
	"ChurchLedger/internal/amountwords"
	"ChurchLedger/internal/config"
	"ChurchLedger/internal/ledger"
	"ChurchLedger/internal/logger"
	"ChurchLedger/internal/validation"

	"github.com/shopspring/decimal"
)

type submitRequest struct {
	Token         string           `json:"token"`
	Amount        *decimal.Decimal `json:"amount"`
	Currency      string           `json:"currency"`
	Date          string           `json:"date"`
	CategoryID    *string          `json:"categoryId"`
	Description   string           `json:"description"`
	IssuedTo      string           `json:"issuedTo"`
	AmountInWords string           `json:"amountInWords"`
	SubmitterName string           `json:"submitterName"`
	PendingImages bool             `json:"pendingImages"`
}

// validate checks every field in a fixed order and returns the first
// violation. It normalizes currency, category and submitter name in place.
func (req *submitRequest) validate(h *Handler) (ledger.Transaction, error) {
	if err := validation.ValidateToken(req.Token); err != nil {
		return ledger.Transaction{}, err
	}
	if err := validation.ValidateAmount(req.Amount); err != nil {
		return ledger.Transaction{}, err
	}
	currency, err := validation.NormalizeCurrency(req.Currency)
	if err != nil {
		return ledger.Transaction{}, err
	}
	date, err := validation.ValidateDate(req.Date, h.now(), h.loc)
	if err != nil {
		return ledger.Transaction{}, err
	}
	for _, f := range []struct{ name, value string }{
		{"description", req.Description},
		{"issuedTo", req.IssuedTo},
		{"amountInWords", req.AmountInWords},
	} {
		if err := validation.ValidateLength(f.name, f.value, config.MaxFreeTextLength); err != nil {
			return ledger.Transaction{}, err
		}
	}
	if req.CategoryID != nil && strings.TrimSpace(*req.CategoryID) == "" {
		req.CategoryID = nil
	}
	if req.CategoryID != nil {
		if err := validation.ValidateUUID("categoryId", *req.CategoryID); err != nil {
			return ledger.Transaction{}, err
		}
	}
	req.SubmitterName = strings.TrimSpace(req.SubmitterName)
	if err := validation.ValidateLength("submitterName", req.SubmitterName, config.MaxSubmitterNameLen); err != nil {
		return ledger.Transaction{}, err
	}

	return ledger.Transaction{
		Type:          ledger.Expense,
		Amount:        *req.Amount,
		Currency:      currency,
		CategoryID:    req.CategoryID,
		Description:   req.description(),
		Date:          date,
		IssuedTo:      ledger.Truncate(strings.TrimSpace(req.IssuedTo), config.MaxFreeTextLength),
		AmountInWords: ledger.Truncate(strings.TrimSpace(req.AmountInWords), config.MaxFreeTextLength),
	}, nil
}

// description truncates the free text and, when the submitter deferred the
// attachments, appends the pending tag after it. The tag is kept whole and
// the result stays within MaxFreeTextLength runes.
func (req *submitRequest) description() string {
	desc := strings.TrimSpace(req.Description)
	if !req.PendingImages || req.SubmitterName == "" {
		return ledger.Truncate(desc, config.MaxFreeTextLength)
	}
	tag := ledger.PendingTag(req.SubmitterName)
	room := config.MaxFreeTextLength - utf8.RuneCountInString(tag) - 1
	desc = strings.TrimSpace(ledger.Truncate(desc, room))
	if desc == "" {
		return tag
	}
	return desc + " " + tag
}

// SubmitPayout records one expense in the link owner's ledger.
func (h *Handler) SubmitPayout(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
		return
	}
	tx, err := req.validate(h)
	if err != nil {
		api.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	allowed, err := h.limiter.Allow(ctx, req.Token)
	if err != nil {
		logger.Error("submit-public-payout: rate limiter: %v", err)
		api.RespondWithError(w, http.StatusInternalServerError, constants.ErrInternalServer)
		return
	}
	if !allowed {
		logger.Audit("submit-public-payout: rate limit hit for token %s", tokenPrefix(req.Token))
		api.RespondWithError(w, http.StatusTooManyRequests, constants.ErrRateLimited)
		return
	}

	link, reason, err := h.resolveLink(ctx, req.Token)
	if err != nil {
		logger.Error("submit-public-payout: lookup %s: %v", tokenPrefix(req.Token), err)
		api.RespondWithError(w, http.StatusInternalServerError, constants.ErrInternalServer)
		return
	}
	if reason != "" {
		logger.Audit("submit-public-payout: refused token %s: %s", tokenPrefix(req.Token), reason)
		api.RespondWithError(w, http.StatusForbidden, forbiddenReason(reason))
		return
	}

	if tx.CategoryID != nil {
		owner, err := h.store.CategoryOwner(ctx, *tx.CategoryID)
		switch {
		case errors.Is(err, ledger.ErrNotFound):
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidCategory)
			return
		case err != nil:
			logger.Error("submit-public-payout: category %s: %v", *tx.CategoryID, err)
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrInternalServer)
			return
		case owner != link.OwnerID:
			logger.Audit("submit-public-payout: link %s used foreign category %s", link.ID, *tx.CategoryID)
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidCategory)
			return
		}
	}

	tx.OwnerID = link.OwnerID
	if tx.AmountInWords == "" {
		if words, err := amountwords.Format(tx.Amount, tx.Currency); err == nil {
			tx.AmountInWords = words
		}
	}

	id, err := h.store.InsertTransaction(ctx, tx)
	if err != nil {
		logger.Error("submit-public-payout: insert for link %s: %v", link.ID, err)
		api.RespondWithError(w, http.StatusInternalServerError, constants.ErrInternalServer)
		return
	}
	logger.Audit("submit-public-payout: link %s created transaction %s", link.ID, id)

	if h.notifier != nil {
		msg := constants.FormatError(constants.BotMsgNewPayout, link.Name, tx.Amount.StringFixed(2), tx.Currency, tx.Description)
		go h.notifier.Notify(context.WithoutCancel(ctx), msg)
	}

	api.RespondWithSuccess(w, map[string]interface{}{"transactionId": id})
}
