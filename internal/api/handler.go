// Package api exposes the ledger over a JSON HTTP API.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/mmynk/splitledger/internal/metrics"
	"github.com/mmynk/splitledger/internal/middleware"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
	"github.com/mmynk/splitledger/internal/service"
	"github.com/mmynk/splitledger/internal/storage"
	"github.com/mmynk/splitledger/pkg/response"
)

// Handler handles HTTP requests for ledger operations
type Handler struct {
	service *service.LedgerService
}

// NewHandler creates a new ledger handler
func NewHandler(svc *service.LedgerService) *Handler {
	return &Handler{service: svc}
}

// NewRouter builds the complete HTTP handler: middleware, health and
// metrics endpoints, and the ledger API under /api/v1. m may be nil.
func NewRouter(svc *service.LedgerService, m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	r.Mount("/api/v1", NewHandler(svc).Routes())
	return r
}

// Routes returns the router for ledger endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/users", h.ListUsers)
	r.Post("/users", h.CreateUser)

	r.Get("/receipts", h.ListReceipts)
	r.Get("/line-items", h.ListLineItems)
	r.Post("/line-items", h.CreateLineItem)
	r.Delete("/line-items/{id}", h.DeleteLineItem)
	r.Post("/line-items/{id}/assignments", h.AssignItem)
	r.Delete("/assignments/{id}", h.Unassign)
	r.Get("/responsibilities", h.ListResponsibilities)

	r.Get("/settlements", h.ListSettlements)
	r.Post("/settlements", h.RecordSettlement)

	r.Get("/balances", h.Balances)

	return r
}

// CreateUser handles POST /users
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req service.CreateUserRequest
	if !decode(w, r, &req) {
		return
	}

	user, err := h.service.CreateUser(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusCreated, toUserResponse(*user))
}

// ListUsers handles GET /users
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]userResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, toUserResponse(u))
	}
	response.JSON(w, http.StatusOK, resp)
}

// ListReceipts handles GET /receipts
func (h *Handler) ListReceipts(w http.ResponseWriter, r *http.Request) {
	receipts, err := h.service.ListReceipts(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if receipts == nil {
		receipts = []string{}
	}
	response.JSON(w, http.StatusOK, receipts)
}

// CreateLineItem handles POST /line-items
func (h *Handler) CreateLineItem(w http.ResponseWriter, r *http.Request) {
	var req service.CreateLineItemRequest
	if !decode(w, r, &req) {
		return
	}

	item, err := h.service.CreateLineItem(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusCreated, toLineItemResponse(*item))
}

// ListLineItems handles GET /line-items?receipt_id=
func (h *Handler) ListLineItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListLineItems(r.Context(), r.URL.Query().Get("receipt_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]lineItemResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, toLineItemResponse(item))
	}
	response.JSON(w, http.StatusOK, resp)
}

// DeleteLineItem handles DELETE /line-items/{id}
func (h *Handler) DeleteLineItem(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "line item")
	if !ok {
		return
	}

	if err := h.service.DeleteLineItem(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{"message": "Line item deleted"})
}

type assignRequest struct {
	UserID models.ParticipantID `json:"user_id"`
}

// AssignItem handles POST /line-items/{id}/assignments
func (h *Handler) AssignItem(w http.ResponseWriter, r *http.Request) {
	lineID, ok := idParam(w, r, "line item")
	if !ok {
		return
	}
	var req assignRequest
	if !decode(w, r, &req) {
		return
	}

	a, err := h.service.AssignItem(r.Context(), lineID, req.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusCreated, toAssignmentResponse(*a))
}

// Unassign handles DELETE /assignments/{id}
func (h *Handler) Unassign(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "assignment")
	if !ok {
		return
	}

	if err := h.service.Unassign(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{"message": "Assignment removed"})
}

// ListResponsibilities handles GET /responsibilities
func (h *Handler) ListResponsibilities(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.ListResponsibilities(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, views)
}

// RecordSettlement handles POST /settlements
func (h *Handler) RecordSettlement(w http.ResponseWriter, r *http.Request) {
	var req service.RecordSettlementRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.service.RecordSettlement(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	markedPaid := res.MarkedPaid
	if markedPaid == nil {
		markedPaid = []int64{}
	}
	response.JSON(w, http.StatusCreated, settlementResultResponse{
		Settlement: toSettlementResponse(res.Settlement),
		MarkedPaid: markedPaid,
	})
}

// ListSettlements handles GET /settlements
func (h *Handler) ListSettlements(w http.ResponseWriter, r *http.Request) {
	settlements, err := h.service.ListSettlements(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]settlementResponse, 0, len(settlements))
	for _, s := range settlements {
		resp = append(resp, toSettlementResponse(s))
	}
	response.JSON(w, http.StatusOK, resp)
}

// Balances handles GET /balances
func (h *Handler) Balances(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Balances(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, toBalancesResponse(summary))
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		response.BadRequest(w, "Invalid request body")
		return false
	}
	return true
}

func idParam(w http.ResponseWriter, r *http.Request, what string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(w, "Invalid "+what+" ID")
		return 0, false
	}
	return id, true
}

// writeError maps service and storage errors to HTTP responses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, service.ErrAlreadyAssigned):
		response.Conflict(w, err.Error())
	case errors.Is(err, service.ErrInvalidArgument),
		errors.Is(err, service.ErrNegativeSettlement),
		errors.Is(err, service.ErrSelfSettlement),
		errors.Is(err, money.ErrInvalidAmount):
		response.BadRequest(w, err.Error())
	default:
		slog.Error("Request failed",
			"request_id", middleware.GetRequestID(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
		response.InternalError(w, "Internal server error")
	}
}
