package sales

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pawsuite/pawsuite/internal/finance"
	"github.com/pawsuite/pawsuite/internal/platform/httpx"
	"github.com/pawsuite/pawsuite/internal/shared"
)

// Handler exposes point-of-sale operations over JSON.
type Handler struct {
	svc      *Service
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler builds Handler.
func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, validate: validator.New(), logger: logger}
}

// MountRoutes attaches sales routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Post("/{id}/items", h.addItem)
	r.Put("/{id}/items/{itemID}", h.updateItem)
	r.Delete("/{id}/items/{itemID}", h.removeItem)
	r.Put("/{id}/discount", h.setDiscount)
	r.Post("/{id}/submit", h.submit)
	r.Post("/{id}/cancel", h.cancel)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var input CreateSaleInput
	if err := httpx.Decode(r, &input); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Error(w, h.logger, shared.Validationf("%v", err))
		return
	}
	input.CreatedBy = httpx.ActorID(r)
	sale, err := h.svc.CreateDraft(r.Context(), input)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, sale)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	sales, err := h.svc.List(r.Context(), ListFilter{
		BranchID: httpx.QueryInt64(r, "branch_id"),
		Status:   SaleStatus(r.URL.Query().Get("status")),
		From:     httpx.QueryTime(r, "from"),
		To:       httpx.QueryTime(r, "to"),
		Limit:    httpx.QueryInt(r, "limit"),
	})
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sales)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParamInt64(r, "id")
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	sale, err := h.svc.Get(r.Context(), id)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParamInt64(r, "id")
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	var input ItemInput
	if err := httpx.Decode(r, &input); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Error(w, h.logger, shared.Validationf("%v", err))
		return
	}
	sale, err := h.svc.AddItem(r.Context(), id, input, httpx.ActorID(r))
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParamInt64(r, "id")
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	itemID, err := httpx.ParamInt64(r, "itemID")
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	var input ItemInput
	if err := httpx.Decode(r, &input); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Error(w, h.logger, shared.Validationf("%v", err))
		return
	}
	sale, err := h.svc.UpdateItem(r.Context(), id, itemID, input, httpx.ActorID(r))
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParamInt64(r, "id")
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	itemID, err := httpx.ParamInt64(r, "itemID")
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	sale, err := h.svc.RemoveItem(r.Context(), id, itemID, httpx.ActorID(r))
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

func (h *Handler) setDiscount(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParamInt64(r, "id")
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	var input DiscountInput
	if err := httpx.Decode(r, &input); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Error(w, h.logger, shared.Validationf("%v", err))
		return
	}
	sale, err := h.svc.SetDiscount(r.Context(), id, input, httpx.ActorID(r))
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParamInt64(r, "id")
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	var req struct {
		Payments []finance.PaymentInput `json:"payments" validate:"dive"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Error(w, h.logger, shared.Validationf("%v", err))
		return
	}
	sale, err := h.svc.Submit(r.Context(), SubmitInput{SaleID: id, Payments: req.Payments, ActorID: httpx.ActorID(r)})
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParamInt64(r, "id")
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	sale, err := h.svc.Cancel(r.Context(), id, httpx.ActorID(r))
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}
