package purchasing

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pawsuite/pawsuite/internal/finance"
	"github.com/pawsuite/pawsuite/internal/platform/httpx"
	"github.com/pawsuite/pawsuite/internal/shared"
)

// Handler exposes purchase order operations over JSON.
type Handler struct {
	svc      *Service
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler builds Handler.
func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, validate: validator.New(), logger: logger}
}

// MountRoutes attaches purchasing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Post("/{id}/submit", h.submit)
	r.Post("/{id}/receive", h.receive)
	r.Post("/{id}/cancel", h.cancel)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var input CreateOrderInput
	if err := httpx.Decode(r, &input); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Error(w, h.logger, shared.Validationf("%v", err))
		return
	}
	input.CreatedBy = httpx.ActorID(r)
	order, err := h.svc.CreateDraft(r.Context(), input)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, order)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.List(r.Context(), ListFilter{
		BranchID:   httpx.QueryInt64(r, "branch_id"),
		SupplierID: httpx.QueryInt64(r, "supplier_id"),
		Status:     OrderStatus(r.URL.Query().Get("status")),
		Limit:      httpx.QueryInt(r, "limit"),
	})
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, orders)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParamInt64(r, "id")
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	order, err := h.svc.Get(r.Context(), id)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParamInt64(r, "id")
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	order, err := h.svc.SubmitOrder(r.Context(), id, httpx.ActorID(r))
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) receive(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParamInt64(r, "id")
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	var req struct {
		Lines   []ReceiptLine         `json:"lines" validate:"min=1,dive"`
		Payment *finance.PaymentInput `json:"payment"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Error(w, h.logger, shared.Validationf("%v", err))
		return
	}
	order, err := h.svc.Receive(r.Context(), ReceiveInput{
		OrderID: id,
		Lines:   req.Lines,
		Payment: req.Payment,
		ActorID: httpx.ActorID(r),
	})
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParamInt64(r, "id")
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	order, err := h.svc.Cancel(r.Context(), id, httpx.ActorID(r))
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}
