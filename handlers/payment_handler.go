package handlers

import (
	"errors"
	"net/http"

	"github.com/Kiptoo96/esports-arena/middleware"
	"github.com/Kiptoo96/esports-arena/payments"
	"github.com/Kiptoo96/esports-arena/services"
)

type PaymentHandler struct {
	paymentService services.PaymentService
}

func NewPaymentHandler(paymentService services.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

func (h *PaymentHandler) InitiateEntryPayment(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	var payload struct {
		PhoneNumber string `json:"phone_number"`
	}
	if err := readJSON(w, r, &payload); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if payload.PhoneNumber == "" {
		badRequestResponse(w, r, errors.New("phone_number is required"))
		return
	}

	resp, err := h.paymentService.InitiateEntryPayment(r.Context(), userID, tournamentID, payload.PhoneNumber)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusAccepted, jsonResponse{"payment": resp}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Callback is hit by Daraja, not by users. It always answers 200 with the
// acknowledgement shape Daraja expects, even when processing fails, so that
// the gateway stops retrying; failures are logged inside the service.
func (h *PaymentHandler) Callback(w http.ResponseWriter, r *http.Request) {
	var payload payments.CallbackPayload
	if err := readJSON(w, r, &payload); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	_ = h.paymentService.HandleCallback(r.Context(), payload)

	ack := jsonResponse{"ResultCode": 0, "ResultDesc": "Accepted"}
	if err := writeJSON(w, http.StatusOK, ack, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
