package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type msgResponse struct {
	Message string `json:"message" validate:"required"`
}

func messageBody(msg string) msgResponse {
	return msgResponse{Message: msg}
}

type errResponse struct {
	Message string `json:"message" validate:"required"`
	Error   string `json:"error"`
}

type validationResponse struct {
	Message string            `json:"message"`
	Errors  validation.Errors `json:"errors"`
}

func validationBody(errs validation.Errors) validationResponse {
	return validationResponse{Message: "validation failed", Errors: errs}
}
