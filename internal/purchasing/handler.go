package purchasing

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/integration"
	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/lifecycle"
	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/numbering"
	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/platform/httpx"
)

// Handler manages purchase order endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	numbering numbering.Service
	validate  *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, num numbering.Service) *Handler {
	return &Handler{logger: logger, service: service, numbering: num, validate: validator.New()}
}

// MountRoutes registers purchase order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/purchase-orders", h.handleList)
	r.Post("/purchase-orders", h.handleCreate)
	r.Get("/purchase-orders/{id}", h.handleGet)
	r.Post("/purchase-orders/{id}/dispatch", h.transition(ActionDispatch))
	r.Post("/purchase-orders/{id}/confirm", h.transition(ActionConfirm))
	r.Post("/purchase-orders/{id}/cancel", h.transition(ActionCancel))
	r.Post("/purchase-orders/{id}/receive", h.handleReceive)
}

type createRequest struct {
	Number      string              `json:"number"`
	SupplierRef string              `json:"supplier_ref"`
	ExpectedAt  time.Time           `json:"expected_at"`
	Notes       string              `json:"notes"`
	Lines       []createLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type createLineRequest struct {
	ProductRef  string  `json:"product_ref"`
	Description string  `json:"description" validate:"required"`
	Quantity    int     `json:"quantity" validate:"required,gt=0"`
	UnitPrice   float64 `json:"unit_price" validate:"gte=0"`
	TaxRate     float64 `json:"tax_rate" validate:"oneof=0 7 10 20"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if req.Number == "" {
		number, err := h.numbering.Reserve(r.Context(), numbering.TypePurchaseOrder)
		if err != nil {
			h.logger.Error("reserve PO number", slog.Any("error", err))
			httpx.Problem(w, http.StatusBadGateway, "Numbering Unavailable", "could not reserve a document number")
			return
		}
		req.Number = number
	}
	input := CreateInput{
		Number:      req.Number,
		SupplierRef: req.SupplierRef,
		ExpectedAt:  req.ExpectedAt,
		Notes:       req.Notes,
	}
	for _, line := range req.Lines {
		input.Lines = append(input.Lines, LineInput{
			ProductRef:  line.ProductRef,
			Description: line.Description,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			TaxRate:     line.TaxRate,
		})
	}
	po, err := h.service.Create(r.Context(), input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toOrderResponse(po, nil))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	status := lifecycle.State(r.URL.Query().Get("status"))
	items, err := h.service.List(r.Context(), limit, offset, status)
	if err != nil {
		h.logger.Error("list purchase orders", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	out := make([]orderResponse, 0, len(items))
	for _, po := range items {
		out = append(out, toOrderResponse(po, nil))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": out, "limit": limit, "offset": offset})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be numeric")
		return
	}
	po, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toOrderResponse(po, nil))
}

func (h *Handler) transition(action lifecycle.Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be numeric")
			return
		}
		po, err := h.service.Transition(r.Context(), id, action)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, toOrderResponse(po, nil))
	}
}

type receiveRequest struct {
	Entries []receiveEntryRequest `json:"entries" validate:"required,min=1,dive"`
}

type receiveEntryRequest struct {
	LineID int64 `json:"line_id" validate:"required,gt=0"`
	Qty    int   `json:"qty" validate:"gte=0"`
}

func (h *Handler) handleReceive(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be numeric")
		return
	}
	var req receiveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	entries := make([]ReceiptEntry, 0, len(req.Entries))
	for _, e := range req.Entries {
		entries = append(entries, ReceiptEntry{LineID: e.LineID, Qty: e.Qty})
	}
	po, report, err := h.service.ReceiveGoods(r.Context(), id, entries, 0)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toOrderResponse(po, report.Failures()))
}

type orderResponse struct {
	ID                int64          `json:"id"`
	Number            string         `json:"number"`
	SupplierRef       string         `json:"supplier_ref,omitempty"`
	Status            string         `json:"status"`
	IssuedAt          time.Time      `json:"issued_at"`
	ExpectedAt        *time.Time     `json:"expected_at,omitempty"`
	Notes             string         `json:"notes,omitempty"`
	Lines             []lineResponse `json:"lines,omitempty"`
	IntegrationErrors []string       `json:"integration_errors,omitempty"`
}

type lineResponse struct {
	ID          int64   `json:"id"`
	ProductRef  string  `json:"product_ref,omitempty"`
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	Received    int     `json:"received"`
	Remaining   int     `json:"remaining"`
	UnitPrice   float64 `json:"unit_price"`
	TaxRate     float64 `json:"tax_rate"`
	TaxAmount   float64 `json:"tax_amount"`
	LineTotal   float64 `json:"line_total"`
}

func toOrderResponse(po PurchaseOrder, failures []integration.Failure) orderResponse {
	resp := orderResponse{
		ID:          po.ID,
		Number:      po.Number,
		SupplierRef: po.SupplierRef,
		Status:      string(po.Status),
		IssuedAt:    po.IssuedAt,
		Notes:       po.Notes,
	}
	if !po.ExpectedAt.IsZero() {
		expected := po.ExpectedAt
		resp.ExpectedAt = &expected
	}
	for _, line := range po.Lines {
		resp.Lines = append(resp.Lines, lineResponse{
			ID:          line.ID,
			ProductRef:  line.ProductRef,
			Description: line.Description,
			Quantity:    line.Quantity,
			Received:    line.Received,
			Remaining:   line.Remaining(),
			UnitPrice:   line.UnitPrice,
			TaxRate:     line.TaxRate,
			TaxAmount:   line.TaxAmount,
			LineTotal:   line.LineTotal,
		})
	}
	for _, f := range failures {
		resp.IntegrationErrors = append(resp.IntegrationErrors, f.Error())
	}
	return resp
}
