package handler

import (
	"encoding/json"
	"net/http"

	"github.com/AlexZinkM/escrow-custody/internal/model"
)

// statusFor maps an error kind to the HTTP status returned for it.
func statusFor(kind model.Kind) int {
	switch kind {
	case model.KindInsufficientFunds, model.KindInsufficientFundsAfterFees, model.KindDecryption:
		return http.StatusUnprocessableEntity
	case model.KindNetwork:
		return http.StatusServiceUnavailable
	case model.KindBroadcast:
		return http.StatusBadGateway
	case model.KindInvalidInput:
		return http.StatusBadRequest
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	kind := model.KindOf(err)
	writeJSON(w, statusFor(kind), model.ErrorResponse{
		Error: err.Error(),
		Code:  kind.Code(),
	})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, model.ErrorResponse{
		Error: msg,
		Code:  model.KindInvalidInput.Code(),
	})
}
