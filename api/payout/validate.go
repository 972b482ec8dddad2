package payout

import (
	"net/http"

	"ChurchLedger/api"
	"ChurchLedger/api/constants"
	"ChurchLedger/internal/logger"
	"ChurchLedger/internal/validation"
)

type validateRequest struct {
	Token string `json:"token"`
}

type categoryView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func invalidLink(w http.ResponseWriter, status int, msg string) {
	api.RespondWithJSON(w, status, map[string]interface{}{
		constants.ValueValid: false,
		constants.ValueError: msg,
	})
}

// ValidateToken tells a public form whether its link may be used and which
// expense categories to offer. The owner id is never returned.
func (h *Handler) ValidateToken(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		invalidLink(w, http.StatusBadRequest, constants.ErrInvalidJSON)
		return
	}
	if err := validation.ValidateToken(req.Token); err != nil {
		invalidLink(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	link, reason, err := h.resolveLink(ctx, req.Token)
	if err != nil {
		logger.Error("validate-payout-token: lookup %s: %v", tokenPrefix(req.Token), err)
		invalidLink(w, http.StatusInternalServerError, constants.ErrInternalServer)
		return
	}
	if reason != "" {
		invalidLink(w, http.StatusOK, reason)
		return
	}

	categories, err := h.store.ExpenseCategories(ctx, link.OwnerID)
	if err != nil {
		logger.Error("validate-payout-token: categories for link %s: %v", link.ID, err)
		invalidLink(w, http.StatusInternalServerError, constants.ErrInternalServer)
		return
	}
	views := make([]categoryView, 0, len(categories))
	for _, c := range categories {
		views = append(views, categoryView{ID: c.ID, Name: c.Name})
	}

	api.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		constants.ValueValid: true,
		"linkName":           link.Name,
		"linkType":           string(link.LinkType),
		"categories":         views,
	})
}
