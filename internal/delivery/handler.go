package delivery

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

// Handler manages delivery note endpoints.
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

// MountRoutes registers delivery note routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/delivery-notes", h.handleList)
	r.Post("/delivery-notes", h.handleCreate)
	r.Get("/delivery-notes/{id}", h.handleGet)
	r.Post("/delivery-notes/{id}/deliveries", h.handleRecordDelivery)
	r.Post("/delivery-notes/{id}/cancel", h.handleCancel)
}

type createRequest struct {
	Number      string        `json:"number"`
	OrderRef    string        `json:"order_ref"`
	CustomerRef string        `json:"customer_ref"`
	Notes       string        `json:"notes"`
	Lines       []lineRequest `json:"lines" validate:"required,min=1,dive"`
}

type lineRequest struct {
	ProductRef  string  `json:"product_ref"`
	Description string  `json:"description" validate:"required"`
	Quantity    int     `json:"quantity" validate:"required,gt=0"`
	Delivered   int     `json:"delivered" validate:"gte=0"`
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
		number, err := h.numbering.Reserve(r.Context(), numbering.TypeDeliveryNote)
		if err != nil {
			h.logger.Error("reserve delivery number", slog.Any("error", err))
			httpx.Problem(w, http.StatusBadGateway, "Numbering Unavailable", "could not reserve a document number")
			return
		}
		req.Number = number
	}
	input := CreateInput{
		Number:      req.Number,
		OrderRef:    req.OrderRef,
		CustomerRef: req.CustomerRef,
		Notes:       req.Notes,
	}
	for _, line := range req.Lines {
		input.Lines = append(input.Lines, LineInput{
			ProductRef:  line.ProductRef,
			Description: line.Description,
			Quantity:    line.Quantity,
			Delivered:   line.Delivered,
			UnitPrice:   line.UnitPrice,
			TaxRate:     line.TaxRate,
		})
	}
	note, err := h.service.Create(r.Context(), input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toNoteResponse(note, nil))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	status := lifecycle.State(r.URL.Query().Get("status"))
	items, err := h.service.List(r.Context(), limit, offset, status)
	if err != nil {
		h.logger.Error("list delivery notes", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	out := make([]noteResponse, 0, len(items))
	for _, note := range items {
		out = append(out, toNoteResponse(note, nil))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": out, "limit": limit, "offset": offset})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.noteID(w, r)
	if !ok {
		return
	}
	note, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toNoteResponse(note, nil))
}

type recordDeliveryRequest struct {
	Entries []deliveryEntryRequest `json:"entries" validate:"required,min=1,dive"`
}

type deliveryEntryRequest struct {
	LineID    int64 `json:"line_id" validate:"required,gt=0"`
	Delivered int   `json:"delivered" validate:"gte=0"`
}

func (h *Handler) handleRecordDelivery(w http.ResponseWriter, r *http.Request) {
	id, ok := h.noteID(w, r)
	if !ok {
		return
	}
	var req recordDeliveryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	entries := make([]DeliveryEntry, 0, len(req.Entries))
	for _, e := range req.Entries {
		entries = append(entries, DeliveryEntry{LineID: e.LineID, Delivered: e.Delivered})
	}
	note, report, err := h.service.RecordDelivery(r.Context(), id, entries)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toNoteResponse(note, report.Failures()))
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.noteID(w, r)
	if !ok {
		return
	}
	note, err := h.service.Cancel(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toNoteResponse(note, nil))
}

func (h *Handler) noteID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be numeric")
		return 0, false
	}
	return id, true
}

type noteResponse struct {
	ID                int64              `json:"id"`
	Number            string             `json:"number"`
	OrderRef          string             `json:"order_ref,omitempty"`
	CustomerRef       string             `json:"customer_ref,omitempty"`
	Status            string             `json:"status"`
	CreatedAt         time.Time          `json:"created_at"`
	Notes             string             `json:"notes,omitempty"`
	Lines             []noteLineResponse `json:"lines,omitempty"`
	IntegrationErrors []string           `json:"integration_errors,omitempty"`
}

type noteLineResponse struct {
	ID          int64   `json:"id"`
	ProductRef  string  `json:"product_ref,omitempty"`
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	Delivered   int     `json:"delivered"`
	UnitPrice   float64 `json:"unit_price"`
	TaxRate     float64 `json:"tax_rate"`
	TaxAmount   float64 `json:"tax_amount"`
	LineTotal   float64 `json:"line_total"`
}

func toNoteResponse(note DeliveryNote, failures []integration.Failure) noteResponse {
	resp := noteResponse{
		ID:          note.ID,
		Number:      note.Number,
		OrderRef:    note.OrderRef,
		CustomerRef: note.CustomerRef,
		Status:      string(note.Status),
		CreatedAt:   note.CreatedAt,
		Notes:       note.Notes,
	}
	for _, line := range note.Lines {
		resp.Lines = append(resp.Lines, noteLineResponse{
			ID:          line.ID,
			ProductRef:  line.ProductRef,
			Description: line.Description,
			Quantity:    line.Quantity,
			Delivered:   line.Delivered,
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
