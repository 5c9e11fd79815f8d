package controllers

import (
	"net/http"

	"github.com/krestenlaust/micro-stregsystemet/api/responses"
	"github.com/krestenlaust/micro-stregsystemet/api/validators"
	"github.com/krestenlaust/micro-stregsystemet/internal/feedback"
	"github.com/krestenlaust/micro-stregsystemet/internal/orders"
	"github.com/krestenlaust/micro-stregsystemet/internal/quickbuy"
	"github.com/krestenlaust/micro-stregsystemet/pkg/enums"
	pkgerrors "github.com/krestenlaust/micro-stregsystemet/pkg/errors"
	"github.com/krestenlaust/micro-stregsystemet/pkg/logger"
)

type saleRequest struct {
	BuyString string `json:"buystring" validate:"required"`
	RoomID    int64  `json:"room" validate:"gt=0"`
	MemberID  int64  `json:"member_id" validate:"gt=0"`
}

type quickbuyRequest struct {
	BuyString string `json:"buystring" validate:"required"`
	RoomID    int64  `json:"room" validate:"gt=0"`
}

type memberSummary struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"name"`
}

// saleResponse flattens the feedback next to the order, as terminals expect.
type saleResponse struct {
	Kind   enums.OutcomeKind `json:"kind"`
	Member memberSummary     `json:"member"`
	Order  *orders.Receipt   `json:"order,omitempty"`
	Cost   int64             `json:"cost"`
	*feedback.Feedback
}

// Sale handles POST /api/sale: a buy string on behalf of a known member.
// A committed order answers 200; an identity-only buy string answers 201.
func Sale(svc quickbuy.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sale service unavailable"))
			return
		}

		var payload saleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		outcome, err := svc.SellForMember(r.Context(), payload.RoomID, payload.MemberID, payload.BuyString)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeOutcome(w, outcome)
	}
}

// Quickbuy handles POST /api/quickbuy: a buy string typed at a terminal. A
// blank buy string answers 200 with kind "none".
func Quickbuy(svc quickbuy.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sale service unavailable"))
			return
		}

		var payload quickbuyRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		outcome, err := svc.Sell(r.Context(), payload.RoomID, payload.BuyString)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeOutcome(w, outcome)
	}
}

func writeOutcome(w http.ResponseWriter, outcome *quickbuy.Outcome) {
	resp := saleResponse{
		Kind:     outcome.Kind,
		Order:    outcome.Receipt,
		Feedback: outcome.Feedback,
	}
	if outcome.Member != nil {
		resp.Member = memberSummary{
			ID:          outcome.Member.ID,
			Username:    outcome.Member.Username,
			DisplayName: outcome.Member.DisplayName(),
		}
	}
	status := http.StatusCreated
	switch {
	case outcome.Receipt != nil:
		resp.Cost = outcome.Receipt.Total
		status = http.StatusOK
	case outcome.Kind == enums.OutcomeNone:
		status = http.StatusOK
	}
	responses.WriteSuccessStatus(w, status, resp)
}
