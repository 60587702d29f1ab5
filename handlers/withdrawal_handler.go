package handlers

import (
	"errors"
	"net/http"

	"github.com/Kiptoo96/esports-arena/middleware"
	"github.com/Kiptoo96/esports-arena/services"
)

type WithdrawalHandler struct {
	withdrawalService services.WithdrawalService
}

func NewWithdrawalHandler(withdrawalService services.WithdrawalService) *WithdrawalHandler {
	return &WithdrawalHandler{withdrawalService: withdrawalService}
}

func (h *WithdrawalHandler) Request(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	var payload struct {
		Amount        int    `json:"amount"`
		PhoneNumber   string `json:"phone_number"`
		PaymentMethod string `json:"payment_method"`
	}
	if err := readJSON(w, r, &payload); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	withdrawal, err := h.withdrawalService.RequestWithdrawal(r.Context(), userID,
		payload.Amount, payload.PhoneNumber, payload.PaymentMethod)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"withdrawal": withdrawal}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *WithdrawalHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	withdrawals, err := h.withdrawalService.ListUserWithdrawals(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"withdrawals": withdrawals}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *WithdrawalHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	withdrawals, err := h.withdrawalService.ListPendingWithdrawals(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"withdrawals": withdrawals}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *WithdrawalHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.process(w, r, true)
}

func (h *WithdrawalHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.process(w, r, false)
}

func (h *WithdrawalHandler) process(w http.ResponseWriter, r *http.Request, approve bool) {
	id, err := urlParamInt(r, "withdrawalID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	adminID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	var payload struct {
		TransactionID *string `json:"transaction_id"`
		Notes         *string `json:"notes"`
	}
	if err := readJSON(w, r, &payload); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var withdrawal interface{}
	if approve {
		withdrawal, err = h.withdrawalService.ApproveWithdrawal(r.Context(), id, adminID, payload.TransactionID, payload.Notes)
	} else {
		if payload.Notes == nil || *payload.Notes == "" {
			badRequestResponse(w, r, errors.New("notes are required when rejecting a withdrawal"))
			return
		}
		withdrawal, err = h.withdrawalService.RejectWithdrawal(r.Context(), id, adminID, payload.Notes)
	}
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"withdrawal": withdrawal}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
