package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Dhruvmer/assemblyParts/internal/core/domain"
	"github.com/Dhruvmer/assemblyParts/internal/core/service"
	"github.com/Dhruvmer/assemblyParts/internal/port"
)

// HTTPHandler translates the REST surface into inventory service calls.
// The idempotency store is optional; when nil, request ids are accepted
// but not de-duplicated.
type HTTPHandler struct {
	inventory *service.InventoryService
	idem      port.IdempotencyStore
	logger    *zap.Logger
}

func NewHTTPHandler(inventory *service.InventoryService, idem port.IdempotencyStore, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{inventory: inventory, idem: idem, logger: logger}
}

// Register mounts all part routes on mux.
func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/part", h.CreatePart)
	mux.HandleFunc("GET /api/part", h.ListParts)
	mux.HandleFunc("GET /api/part/{id}", h.GetPart)
	mux.HandleFunc("POST /api/part/{id}", h.AddInventory)
	mux.HandleFunc("PATCH /api/part/{id}/quantity", h.SetQuantity)
	mux.HandleFunc("DELETE /api/part/{id}", h.DeletePart)
	mux.HandleFunc("GET /health", h.HealthCheck)
}

type constituentDTO struct {
	ID       string `json:"id"`
	Quantity int64  `json:"quantity"`
}

type createPartRequest struct {
	Name  string           `json:"name"`
	Type  string           `json:"type"`
	Parts []constituentDTO `json:"parts,omitempty"`
}

type partResponse struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Type     string           `json:"type"`
	Quantity int64            `json:"quantity"`
	Parts    []constituentDTO `json:"parts,omitempty"`
}

type addInventoryRequest struct {
	RequestID string `json:"request_id,omitempty"`
	Quantity  int64  `json:"quantity"`
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type setQuantityRequest struct {
	Quantity int64 `json:"quantity"`
}

func (h *HTTPHandler) CreatePart(w http.ResponseWriter, r *http.Request) {
	var req createPartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, statusResponse{Status: "FAILED", Message: "invalid request body"})
		return
	}
	if req.Name == "" || req.Type == "" {
		writeJSON(w, http.StatusBadRequest, statusResponse{Status: "FAILED", Message: "missing required fields"})
		return
	}

	in := service.CreatePartInput{
		Name: req.Name,
		Kind: domain.PartKind(req.Type),
	}
	for _, c := range req.Parts {
		in.Constituents = append(in.Constituents, domain.Constituent{PartID: c.ID, Quantity: c.Quantity})
	}

	part, err := h.inventory.CreatePart(r.Context(), in)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, partResponse{
		ID:   part.ID,
		Name: part.Name,
		Type: string(part.Kind),
	})
}

func (h *HTTPHandler) AddInventory(w http.ResponseWriter, r *http.Request) {
	partID := r.PathValue("id")

	var req addInventoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, statusResponse{Status: "FAILED", Message: "invalid request body"})
		return
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	} else if h.idem != nil {
		ok, err := h.idem.SetIdempotency(r.Context(), requestID)
		if err != nil {
			h.logger.Error("idempotency check failed", zap.String("request_id", requestID), zap.Error(err))
			h.writeError(w, err)
			return
		}
		if !ok {
			h.writeError(w, domain.ErrDuplicateRequest)
			return
		}
	}

	if err := h.inventory.AddInventory(r.Context(), partID, req.Quantity); err != nil {
		h.logger.Debug("add inventory failed",
			zap.String("request_id", requestID),
			zap.String("part_id", partID),
			zap.Error(err),
		)
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{Status: "SUCCESS"})
}

func (h *HTTPHandler) GetPart(w http.ResponseWriter, r *http.Request) {
	part, err := h.inventory.GetPart(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPartResponse(part))
}

func (h *HTTPHandler) ListParts(w http.ResponseWriter, r *http.Request) {
	parts, err := h.inventory.ListParts(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	out := make([]partResponse, 0, len(parts))
	for i := range parts {
		out = append(out, toPartResponse(&parts[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	var req setQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, statusResponse{Status: "FAILED", Message: "invalid request body"})
		return
	}

	partID := r.PathValue("id")
	if err := h.inventory.SetQuantity(r.Context(), partID, req.Quantity); err != nil {
		h.writeError(w, err)
		return
	}

	part, err := h.inventory.GetPart(r.Context(), partID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPartResponse(part))
}

func (h *HTTPHandler) DeletePart(w http.ResponseWriter, r *http.Request) {
	if err := h.inventory.DeletePart(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "SUCCESS"})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeError maps the domain error taxonomy to HTTP categories: missing
// parts are 404, infeasible or duplicate requests 409, malformed input
// 400, cyclic BOM definitions 422, anything else 500.
func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	var (
		notFound     *domain.PartNotFoundError
		insufficient *domain.InsufficientStockError
		circular     *domain.CircularDependencyError
	)

	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.As(err, &notFound):
		status = http.StatusNotFound
		message = notFound.Error()
	case errors.As(err, &insufficient):
		status = http.StatusConflict
		message = insufficient.Error()
	case errors.As(err, &circular):
		status = http.StatusUnprocessableEntity
		message = circular.Error()
	case errors.Is(err, domain.ErrInvalidQuantity), errors.Is(err, domain.ErrInvalidPart), errors.Is(err, domain.ErrPartExists):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, domain.ErrStockConflict):
		status = http.StatusConflict
		message = "conflicting concurrent update, retry"
	case errors.Is(err, domain.ErrDuplicateRequest):
		status = http.StatusConflict
		message = "duplicate request"
	default:
		h.logger.Error("request failed", zap.Error(err))
	}

	writeJSON(w, status, statusResponse{Status: "FAILED", Message: message})
}

func toPartResponse(p *domain.Part) partResponse {
	resp := partResponse{
		ID:       p.ID,
		Name:     p.Name,
		Type:     string(p.Kind),
		Quantity: p.Quantity,
	}
	for _, c := range p.Constituents {
		resp.Parts = append(resp.Parts, constituentDTO{ID: c.PartID, Quantity: c.Quantity})
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
