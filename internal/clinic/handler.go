package clinic

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pawsuite/pawsuite/internal/finance"
	"github.com/pawsuite/pawsuite/internal/platform/httpx"
	"github.com/pawsuite/pawsuite/internal/shared"
)

// Handler exposes clinic appointment operations over JSON.
type Handler struct {
	svc      *Service
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler builds Handler.
func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, validate: validator.New(), logger: logger}
}

// MountRoutes attaches clinic routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.schedule)
	r.Get("/{id}", h.get)
	r.Post("/{id}/items", h.addItem)
	r.Delete("/{id}/items/{itemID}", h.removeItem)
	r.Put("/{id}/discount", h.setDiscount)
	r.Post("/{id}/items/{itemID}/pickup", h.pickup)
	r.Post("/{id}/complete", h.complete)
	r.Post("/{id}/cancel", h.cancel)
}

func (h *Handler) schedule(w http.ResponseWriter, r *http.Request) {
	var input ScheduleInput
	if err := httpx.Decode(r, &input); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Error(w, h.logger, shared.Validationf("%v", err))
		return
	}
	input.CreatedBy = httpx.ActorID(r)
	appt, err := h.svc.Schedule(r.Context(), input)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, appt)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	appts, err := h.svc.List(r.Context(), ListFilter{
		BranchID: httpx.QueryInt64(r, "branch_id"),
		VetID:    httpx.QueryInt64(r, "vet_id"),
		Status:   AppointmentStatus(r.URL.Query().Get("status")),
		From:     httpx.QueryTime(r, "from"),
		To:       httpx.QueryTime(r, "to"),
		Limit:    httpx.QueryInt(r, "limit"),
	})
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, appts)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParamInt64(r, "id")
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	appt, err := h.svc.Get(r.Context(), id)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, appt)
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
	appt, err := h.svc.AddItem(r.Context(), id, input, httpx.ActorID(r))
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, appt)
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
	appt, err := h.svc.RemoveItem(r.Context(), id, itemID, httpx.ActorID(r))
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, appt)
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
	appt, err := h.svc.SetDiscount(r.Context(), id, input, httpx.ActorID(r))
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, appt)
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParamInt64(r, "id")
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	var req struct {
		Diagnosis string                 `json:"diagnosis" validate:"max=2000"`
		Payments  []finance.PaymentInput `json:"payments" validate:"dive"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Error(w, h.logger, shared.Validationf("%v", err))
		return
	}
	appt, err := h.svc.Complete(r.Context(), CompleteInput{
		AppointmentID: id,
		Diagnosis:     req.Diagnosis,
		Payments:      req.Payments,
		ActorID:       httpx.ActorID(r),
	})
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, appt)
}

func (h *Handler) pickup(w http.ResponseWriter, r *http.Request) {
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
	item, err := h.svc.PickupPrescription(r.Context(), id, itemID, httpx.ActorID(r))
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParamInt64(r, "id")
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	appt, err := h.svc.Cancel(r.Context(), id, httpx.ActorID(r))
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, appt)
}
