package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"melodex/apperr"
	"melodex/logger"
)

// envelope is the uniform top-level response wrapper.
type envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message,omitempty"`
	Errors  []apperr.FieldError `json:"errors,omitempty"`
	Data    interface{}         `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, env envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		logger.Error("Failed to encode response", logger.ErrorField(err))
	}
}

// respondData writes a success envelope with a data payload.
func respondData(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

// respondMessage writes a success envelope with only a message.
func respondMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: true, Message: message})
}

// respondError maps the error taxonomy to an HTTP status and the
// uniform envelope. This is the single place that mapping happens.
func (h *APIHandler) respondError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)
	message := apperr.MessageOf(err)

	if kind == apperr.KindInternal || kind == apperr.KindUpstream {
		logger.Error("Request failed", logger.ErrorField(err), logger.Int("status", status))
		if kind == apperr.KindInternal && h.cfg.DevMode {
			// Detail only surfaces in development mode.
			message = err.Error()
		}
	}

	writeJSON(w, status, envelope{
		Success: false,
		Message: message,
		Errors:  apperr.FieldsOf(err),
	})
}

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// pagination holds the parsed page/limit query parameters, 1-based.
type pagination struct {
	Page  int
	Limit int
}

func parsePagination(r *http.Request) pagination {
	p := pagination{Page: 1, Limit: defaultPageLimit}
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		p.Page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		p.Limit = v
		if p.Limit > maxPageLimit {
			p.Limit = maxPageLimit
		}
	}
	return p
}

// listPayload wraps a page of items with its pagination metadata.
func listPayload(key string, items interface{}, total int64, p pagination) map[string]interface{} {
	totalPages := int(total) / p.Limit
	if int(total)%p.Limit > 0 {
		totalPages++
	}
	return map[string]interface{}{
		key:           items,
		"count":       total,
		"totalPages":  totalPages,
		"currentPage": p.Page,
	}
}
