package payout

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"ChurchLedger/api"
	"ChurchLedger/api/constants"
	"ChurchLedger/internal/config"
	"ChurchLedger/internal/ledger"
	"ChurchLedger/internal/logger"
	"ChurchLedger/internal/validation"
)

type pendingRequest struct {
	Token         string `json:"token"`
	SubmitterName string `json:"submitterName"`
}

type completeRequest struct {
	Token         string `json:"token"`
	TransactionID string `json:"transactionId"`
	SubmitterName string `json:"submitterName"`
}

type pendingPayout struct {
	ID          string      `json:"id"`
	Amount      json.Number `json:"amount"`
	Currency    string      `json:"currency"`
	Date        string      `json:"date"`
	Description string      `json:"description"`
	IssuedTo    string      `json:"issuedTo"`
	CategoryID  *string     `json:"categoryId"`
	CreatedAt   time.Time   `json:"createdAt"`
}

func toPendingPayout(t ledger.Transaction) pendingPayout {
	return pendingPayout{
		ID:          t.ID,
		Amount:      json.Number(t.Amount.String()),
		Currency:    t.Currency,
		Date:        t.Date.Format(constants.DateFormat),
		Description: t.Description,
		IssuedTo:    t.IssuedTo,
		CategoryID:  t.CategoryID,
		CreatedAt:   t.CreatedAt,
	}
}

// CheckPending lists the submitter's payouts still waiting for attachments.
func (h *Handler) CheckPending(w http.ResponseWriter, r *http.Request) {
	var req pendingRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
		return
	}
	if err := validation.ValidateToken(req.Token); err != nil {
		api.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	name, err := validation.ValidateSubmitterName(req.SubmitterName)
	if err != nil {
		api.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	link, reason, err := h.resolveLink(ctx, req.Token)
	if err != nil {
		logger.Error("check-pending-payouts: lookup %s: %v", tokenPrefix(req.Token), err)
		api.RespondWithError(w, http.StatusInternalServerError, constants.ErrInternalServer)
		return
	}
	if reason != "" {
		api.RespondWithError(w, http.StatusForbidden, forbiddenReason(reason))
		return
	}

	txs, err := h.store.FindPending(ctx, link.OwnerID, ledger.PendingTag(name), config.MaxPendingPayouts)
	if err != nil {
		logger.Error("check-pending-payouts: search for link %s: %v", link.ID, err)
		api.RespondWithError(w, http.StatusInternalServerError, constants.ErrInternalServer)
		return
	}
	out := make([]pendingPayout, 0, len(txs))
	for _, t := range txs {
		out = append(out, toPendingPayout(t))
	}
	api.RespondWithSuccess(w, map[string]interface{}{"pendingPayouts": out})
}

// AddImages marks a pending payout complete by stripping its tag. The record
// must belong to the link owner and still carry this submitter's tag.
func (h *Handler) AddImages(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
		return
	}
	if err := validation.ValidateToken(req.Token); err != nil {
		api.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validation.ValidateUUID("transactionId", strings.TrimSpace(req.TransactionID)); err != nil {
		api.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	name, err := validation.ValidateSubmitterName(req.SubmitterName)
	if err != nil {
		api.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	id := strings.TrimSpace(req.TransactionID)

	ctx := r.Context()
	link, reason, err := h.resolveLink(ctx, req.Token)
	if err != nil {
		logger.Error("add-images-to-payout: lookup %s: %v", tokenPrefix(req.Token), err)
		api.RespondWithError(w, http.StatusInternalServerError, constants.ErrInternalServer)
		return
	}
	if reason != "" {
		api.RespondWithError(w, http.StatusForbidden, forbiddenReason(reason))
		return
	}

	tag := ledger.PendingTag(name)
	tx, err := h.store.TransactionByID(ctx, link.OwnerID, id)
	if errors.Is(err, ledger.ErrNotFound) {
		logger.Audit("add-images-to-payout: link %s asked for foreign or missing transaction %s", link.ID, id)
		api.RespondWithError(w, http.StatusForbidden, constants.ErrPayoutNotFound)
		return
	}
	if err != nil {
		logger.Error("add-images-to-payout: load %s: %v", id, err)
		api.RespondWithError(w, http.StatusInternalServerError, constants.ErrInternalServer)
		return
	}
	if !strings.Contains(tx.Description, tag) {
		logger.Audit("add-images-to-payout: transaction %s carries no tag for this submitter", id)
		api.RespondWithError(w, http.StatusForbidden, constants.ErrPayoutNotFound)
		return
	}

	updated, err := h.store.ClearPendingTag(ctx, link.OwnerID, id, tag, h.now().UTC())
	if err != nil {
		logger.Error("add-images-to-payout: update %s: %v", id, err)
		api.RespondWithError(w, http.StatusInternalServerError, constants.ErrInternalServer)
		return
	}
	if !updated {
		api.RespondWithError(w, http.StatusForbidden, constants.ErrPayoutNotFound)
		return
	}
	logger.Audit("add-images-to-payout: transaction %s completed", id)
	api.RespondWithSuccess(w, nil)
}
