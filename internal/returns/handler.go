package returns

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

// Handler manages return note endpoints.
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

// MountRoutes registers return note routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/return-notes", h.handleList)
	r.Post("/return-notes", h.handleCreate)
	r.Get("/return-notes/{id}", h.handleGet)
	r.Put("/return-notes/{id}/lines", h.handleUpdateLines)
	r.Post("/return-notes/{id}/approve", h.handleApprove)
	r.Post("/return-notes/{id}/reject", h.handleReject)
	r.Post("/return-notes/{id}/process", h.handleProcess)
	r.Post("/return-notes/{id}/cancel", h.handleCancel)
}

type createRequest struct {
	Number      string        `json:"number"`
	OrderRef    string        `json:"order_ref"`
	CustomerRef string        `json:"customer_ref"`
	Reason      string        `json:"reason"`
	Notes       string        `json:"notes"`
	Lines       []lineRequest `json:"lines" validate:"required,min=1,dive"`
}

type lineRequest struct {
	ProductRef  string  `json:"product_ref"`
	Description string  `json:"description" validate:"required"`
	Quantity    int     `json:"quantity" validate:"required,gt=0"`
	UnitPrice   float64 `json:"unit_price" validate:"gte=0"`
	Condition   string  `json:"condition" validate:"oneof=new used damaged"`
	Reason      string  `json:"reason"`
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
		number, err := h.numbering.Reserve(r.Context(), numbering.TypeReturnNote)
		if err != nil {
			h.logger.Error("reserve return number", slog.Any("error", err))
			httpx.Problem(w, http.StatusBadGateway, "Numbering Unavailable", "could not reserve a document number")
			return
		}
		req.Number = number
	}
	note, err := h.service.Create(r.Context(), CreateInput{
		Number:      req.Number,
		OrderRef:    req.OrderRef,
		CustomerRef: req.CustomerRef,
		Reason:      req.Reason,
		Notes:       req.Notes,
		Lines:       toLineInputs(req.Lines),
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toNoteResponse(note, nil))
}

func toLineInputs(reqs []lineRequest) []LineInput {
	inputs := make([]LineInput, 0, len(reqs))
	for _, line := range reqs {
		inputs = append(inputs, LineInput{
			ProductRef:  line.ProductRef,
			Description: line.Description,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			Condition:   Condition(line.Condition),
			Reason:      line.Reason,
		})
	}
	return inputs
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	status := lifecycle.State(r.URL.Query().Get("status"))
	items, err := h.service.List(r.Context(), limit, offset, status)
	if err != nil {
		h.logger.Error("list return notes", slog.Any("error", err))
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

type updateLinesRequest struct {
	Lines []lineRequest `json:"lines" validate:"required,min=1,dive"`
}

func (h *Handler) handleUpdateLines(w http.ResponseWriter, r *http.Request) {
	id, ok := h.noteID(w, r)
	if !ok {
		return
	}
	var req updateLinesRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	note, err := h.service.UpdateLines(r.Context(), id, toLineInputs(req.Lines))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toNoteResponse(note, nil))
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	id, ok := h.noteID(w, r)
	if !ok {
		return
	}
	note, report, err := h.service.Approve(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toNoteResponse(note, report.Failures()))
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	id, ok := h.noteID(w, r)
	if !ok {
		return
	}
	var req rejectRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "malformed JSON body")
		return
	}
	note, err := h.service.Reject(r.Context(), id, req.Reason)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toNoteResponse(note, nil))
}

func (h *Handler) handleProcess(w http.ResponseWriter, r *http.Request) {
	id, ok := h.noteID(w, r)
	if !ok {
		return
	}
	note, report, err := h.service.Process(r.Context(), id)
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
	Reason            string             `json:"reason,omitempty"`
	Status            string             `json:"status"`
	Notes             string             `json:"notes,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	RefundTotal       float64            `json:"refund_total"`
	Lines             []noteLineResponse `json:"lines,omitempty"`
	IntegrationErrors []string           `json:"integration_errors,omitempty"`
}

type noteLineResponse struct {
	ID           int64   `json:"id"`
	ProductRef   string  `json:"product_ref,omitempty"`
	Description  string  `json:"description"`
	Quantity     int     `json:"quantity"`
	UnitPrice    float64 `json:"unit_price"`
	Condition    string  `json:"condition"`
	Reason       string  `json:"reason,omitempty"`
	RefundAmount float64 `json:"refund_amount"`
}

func toNoteResponse(note ReturnNote, failures []integration.Failure) noteResponse {
	resp := noteResponse{
		ID:          note.ID,
		Number:      note.Number,
		OrderRef:    note.OrderRef,
		CustomerRef: note.CustomerRef,
		Reason:      note.Reason,
		Status:      string(note.Status),
		Notes:       note.Notes,
		CreatedAt:   note.CreatedAt,
		RefundTotal: note.RefundTotal,
	}
	for _, line := range note.Lines {
		resp.Lines = append(resp.Lines, noteLineResponse{
			ID:           line.ID,
			ProductRef:   line.ProductRef,
			Description:  line.Description,
			Quantity:     line.Quantity,
			UnitPrice:    line.UnitPrice,
			Condition:    string(line.Condition),
			Reason:       line.Reason,
			RefundAmount: line.RefundAmount,
		})
	}
	for _, f := range failures {
		resp.IntegrationErrors = append(resp.IntegrationErrors, f.Error())
	}
	return resp
}
