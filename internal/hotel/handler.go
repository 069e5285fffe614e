package hotel

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pawsuite/pawsuite/internal/finance"
	"github.com/pawsuite/pawsuite/internal/platform/httpx"
	"github.com/pawsuite/pawsuite/internal/shared"
)

// Handler exposes pet-hotel booking operations over JSON.
type Handler struct {
	svc      *Service
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler builds Handler.
func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, validate: validator.New(), logger: logger}
}

// MountRoutes attaches hotel routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.reserve)
	r.Get("/{id}", h.get)
	r.Post("/{id}/checkin", h.checkIn)
	r.Post("/{id}/services", h.addService)
	r.Post("/{id}/consumables", h.addConsumable)
	r.Put("/{id}/discount", h.setDiscount)
	r.Post("/{id}/checkout", h.checkout)
	r.Post("/{id}/payments", h.recordPayment)
	r.Post("/{id}/cancel", h.cancel)
}

func (h *Handler) reserve(w http.ResponseWriter, r *http.Request) {
	var input ReserveInput
	if err := httpx.Decode(r, &input); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Error(w, h.logger, shared.Validationf("%v", err))
		return
	}
	input.CreatedBy = httpx.ActorID(r)
	booking, err := h.svc.Reserve(r.Context(), input)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, booking)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.svc.List(r.Context(), ListFilter{
		BranchID: httpx.QueryInt64(r, "branch_id"),
		RoomID:   httpx.QueryInt64(r, "room_id"),
		Status:   BookingStatus(r.URL.Query().Get("status")),
		Limit:    httpx.QueryInt(r, "limit"),
	})
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, bookings)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParamInt64(r, "id")
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	booking, err := h.svc.Get(r.Context(), id)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, booking)
}

func (h *Handler) checkIn(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParamInt64(r, "id")
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	booking, err := h.svc.CheckIn(r.Context(), id, httpx.ActorID(r))
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, booking)
}

func (h *Handler) addService(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParamInt64(r, "id")
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	var input ServiceInput
	if err := httpx.Decode(r, &input); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Error(w, h.logger, shared.Validationf("%v", err))
		return
	}
	booking, err := h.svc.AddService(r.Context(), id, input, httpx.ActorID(r))
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, booking)
}

func (h *Handler) addConsumable(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParamInt64(r, "id")
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	var input ConsumableInput
	if err := httpx.Decode(r, &input); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Error(w, h.logger, shared.Validationf("%v", err))
		return
	}
	booking, err := h.svc.AddConsumable(r.Context(), id, input, httpx.ActorID(r))
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, booking)
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
	booking, err := h.svc.SetDiscount(r.Context(), id, input, httpx.ActorID(r))
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, booking)
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParamInt64(r, "id")
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	booking, err := h.svc.Checkout(r.Context(), CheckoutInput{BookingID: id, ActorID: httpx.ActorID(r)})
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, booking)
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParamInt64(r, "id")
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	var payment finance.PaymentInput
	if err := httpx.Decode(r, &payment); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	if err := h.validate.Struct(payment); err != nil {
		httpx.Error(w, h.logger, shared.Validationf("%v", err))
		return
	}
	booking, err := h.svc.RecordPayment(r.Context(), PaymentRecordInput{
		BookingID: id,
		Payment:   payment,
		ActorID:   httpx.ActorID(r),
	})
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, booking)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParamInt64(r, "id")
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	booking, err := h.svc.Cancel(r.Context(), id, httpx.ActorID(r))
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, booking)
}
