package journals

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/pawsuite/pawsuite/internal/platform/httpx"
	"github.com/pawsuite/pawsuite/internal/shared"
)

// Handler exposes the journal engine over JSON.
type Handler struct {
	svc      *Service
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler builds Handler.
func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, validate: validator.New(), logger: logger}
}

// MountRoutes attaches journal routes. CSV export gets its own rate limit
// since it scans full date ranges.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/by-source", h.bySource)
	r.Get("/{id}", h.get)
	r.Post("/{id}/post", h.post)
	r.Post("/{id}/void", h.void)
	r.Group(func(gr chi.Router) {
		gr.Use(httprate.Limit(10, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
		gr.Get("/export.csv", h.exportCSV)
	})
}

type lineRequest struct {
	AccountCode string  `json:"account_code" validate:"required,max=20"`
	Description string  `json:"description" validate:"max=255"`
	Debit       float64 `json:"debit" validate:"gte=0"`
	Credit      float64 `json:"credit" validate:"gte=0"`
	BranchID    *int64  `json:"branch_id"`
}

type entryRequest struct {
	Date        time.Time     `json:"date" validate:"required"`
	Description string        `json:"description" validate:"max=500"`
	Lines       []lineRequest `json:"lines" validate:"min=2,dive"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Error(w, h.logger, shared.Validationf("%v", err))
		return
	}
	input := EntryInput{
		Date:        req.Date,
		Description: req.Description,
		CreatedBy:   httpx.ActorID(r),
	}
	for _, l := range req.Lines {
		input.Lines = append(input.Lines, LineInput{
			AccountCode: l.AccountCode,
			Description: l.Description,
			Debit:       l.Debit,
			Credit:      l.Credit,
			BranchID:    l.BranchID,
		})
	}
	entry, err := h.svc.CreateManualEntry(r.Context(), input)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.List(r.Context(), h.filterFromQuery(r))
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParamInt64(r, "id")
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	entry, err := h.svc.Get(r.Context(), id)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) bySource(w http.ResponseWriter, r *http.Request) {
	sourceType := SourceType(r.URL.Query().Get("type"))
	sourceID := r.URL.Query().Get("id")
	if sourceType == "" || sourceID == "" {
		httpx.Error(w, h.logger, shared.Validationf("type and id query parameters required"))
		return
	}
	entry, err := h.svc.FindBySource(r.Context(), sourceType, sourceID)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) post(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParamInt64(r, "id")
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	entry, err := h.svc.PostEntry(r.Context(), id, httpx.ActorID(r))
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) void(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParamInt64(r, "id")
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	var req struct {
		Reason string `json:"reason" validate:"required,max=500"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Error(w, h.logger, shared.Validationf("%v", err))
		return
	}
	entry, err := h.svc.VoidEntry(r.Context(), VoidInput{EntryID: id, ActorID: httpx.ActorID(r), Reason: req.Reason})
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.List(r.Context(), h.filterFromQuery(r))
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="journal_entries.csv"`)
	if err := ExportCSV(w, entries); err != nil && h.logger != nil {
		h.logger.Error("journal export", slog.Any("error", err))
	}
}

func (h *Handler) filterFromQuery(r *http.Request) ListFilter {
	return ListFilter{
		SourceType: SourceType(r.URL.Query().Get("source_type")),
		From:       httpx.QueryTime(r, "from"),
		To:         httpx.QueryTime(r, "to"),
		Limit:      httpx.QueryInt(r, "limit"),
	}
}
