package kit8test

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/kit8-platform/kit8/internal/apperrors"
)

// envelope mirrors the {success, data} wrapper of the KIT8 module handlers.
type envelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

func (s *Server) respondWithError(w http.ResponseWriter, r *http.Request, statusCode int, errorCode apperrors.ErrorCode, message string) {
	level := slog.LevelInfo
	switch {
	case statusCode >= 500:
		level = slog.LevelError
	case statusCode >= 400:
		level = slog.LevelWarn
	}
	s.logger.LogAttrs(r.Context(), level, "request failed",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.Int("status", statusCode),
		slog.String("error_code", string(errorCode)),
		slog.String("error_message", message),
	)

	respondWithJSON(w, statusCode, apperrors.ErrorResponse{
		ErrorCode: errorCode,
		Message:   message,
	})
}

func respondWithJSON(w http.ResponseWriter, status int, payload any) {
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error_code":"internal_error","message":"Internal Server Error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func respondWithData(w http.ResponseWriter, status int, data any) {
	respondWithJSON(w, status, envelope{Success: true, Data: data})
}
