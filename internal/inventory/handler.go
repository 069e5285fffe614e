package inventory

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/pawsuite/pawsuite/internal/accounting/journals"
	"github.com/pawsuite/pawsuite/internal/finance/calc"
	"github.com/pawsuite/pawsuite/internal/platform/httpx"
	"github.com/pawsuite/pawsuite/internal/shared"
)

// TxPort runs the stock and journal work of one adjustment in a single
// transaction.
type TxPort interface {
	WithAdjustmentTx(ctx context.Context, fn func(context.Context, AdjustmentTx) error) error
}

// JournalPort posts the cost entry for manual stock adjustments inside the
// adjustment transaction.
type JournalPort interface {
	PostAdjustmentJournalInTx(ctx context.Context, tx journals.TxRepository, in journals.AdjustmentJournalInput) (journals.JournalEntry, error)
}

// Handler exposes stock levels, movements, adjustments and transfers.
type Handler struct {
	svc      *Service
	repo     TxPort
	products ProductPort
	journal  JournalPort
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler builds Handler.
func NewHandler(svc *Service, repo TxPort, productPort ProductPort, journal JournalPort, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, repo: repo, products: productPort, journal: journal, validate: validator.New(), logger: logger}
}

// MountRoutes attaches inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/stock", h.stock)
	r.Get("/movements", h.movements)
	r.Post("/adjustments", h.adjust)
	r.Post("/transfers", h.transfer)
}

type batchRequest struct {
	Number     string    `json:"number" validate:"required,max=60"`
	ExpiryDate time.Time `json:"expiry_date" validate:"required"`
}

type adjustmentRequest struct {
	BranchID  int64         `json:"branch_id" validate:"required,gt=0"`
	ProductID int64         `json:"product_id" validate:"required,gt=0"`
	VariantID int64         `json:"variant_id"`
	Qty       float64       `json:"qty" validate:"required,gt=0"`
	UnitCost  float64       `json:"unit_cost" validate:"gte=0"`
	Direction string        `json:"direction" validate:"required,oneof=IN OUT"`
	Reason    string        `json:"reason" validate:"required,max=500"`
	Batch     *batchRequest `json:"batch"`
}

type transferRequest struct {
	FromBranchID int64   `json:"from_branch_id" validate:"required,gt=0"`
	ToBranchID   int64   `json:"to_branch_id" validate:"required,gt=0"`
	ProductID    int64   `json:"product_id" validate:"required,gt=0"`
	VariantID    int64   `json:"variant_id"`
	Qty          float64 `json:"qty" validate:"required,gt=0"`
	Note         string  `json:"note" validate:"max=500"`
}

func (h *Handler) stock(w http.ResponseWriter, r *http.Request) {
	level, err := h.svc.GetStock(r.Context(),
		httpx.QueryInt64(r, "branch_id"),
		httpx.QueryInt64(r, "product_id"),
		httpx.QueryInt64(r, "variant_id"))
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, level)
}

func (h *Handler) movements(w http.ResponseWriter, r *http.Request) {
	movements, err := h.svc.ListMovements(r.Context(), MovementFilter{
		BranchID:  httpx.QueryInt64(r, "branch_id"),
		ProductID: httpx.QueryInt64(r, "product_id"),
		VariantID: httpx.QueryInt64(r, "variant_id"),
		From:      httpx.QueryTime(r, "from"),
		To:        httpx.QueryTime(r, "to"),
		Limit:     httpx.QueryInt(r, "limit"),
	})
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, movements)
}

// adjust books a manual stock correction and posts its cost entry in one
// transaction; a failure at either step rolls both back.
func (h *Handler) adjust(w http.ResponseWriter, r *http.Request) {
	var req adjustmentRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Error(w, h.logger, shared.Validationf("%v", err))
		return
	}
	product, err := h.products.Get(r.Context(), req.ProductID)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	if !product.Trackable() {
		httpx.Error(w, h.logger, shared.Validationf("inventory: %s is not a stocked product", product.SKU))
		return
	}

	actorID := httpx.ActorID(r)
	adjustmentID := uuid.NewString()
	inbound := req.Direction == "IN"
	var cost float64
	var entry journals.JournalEntry
	err = h.repo.WithAdjustmentTx(r.Context(), func(ctx context.Context, tx AdjustmentTx) error {
		if inbound {
			unitCost := req.UnitCost
			if unitCost == 0 {
				unitCost = product.PurchasePrice
			}
			input := IncreaseInput{
				BranchID:  req.BranchID,
				ProductID: req.ProductID,
				VariantID: req.VariantID,
				Qty:       req.Qty,
				UnitCost:  unitCost,
				Type:      MovementAdjustmentIn,
				RefType:   "ADJUSTMENT",
				RefID:     adjustmentID,
				Note:      req.Reason,
				ActorID:   actorID,
			}
			if req.Batch != nil {
				input.Batch = &BatchInput{Number: req.Batch.Number, ExpiryDate: req.Batch.ExpiryDate}
			}
			if _, err := h.svc.ApplyIncrease(ctx, tx.Stock(), product, input); err != nil {
				return err
			}
			cost = calc.Round2(req.Qty * unitCost)
		} else {
			result, err := h.svc.ApplyDecrease(ctx, tx.Stock(), product, DecreaseInput{
				BranchID:  req.BranchID,
				ProductID: req.ProductID,
				VariantID: req.VariantID,
				Qty:       req.Qty,
				Type:      MovementAdjustmentOut,
				RefType:   "ADJUSTMENT",
				RefID:     adjustmentID,
				Note:      req.Reason,
				ActorID:   actorID,
			})
			if err != nil {
				return err
			}
			cost = result.COGS
		}
		var err error
		entry, err = h.journal.PostAdjustmentJournalInTx(ctx, tx.Journals(), journals.AdjustmentJournalInput{
			AdjustmentID: adjustmentID,
			Date:         time.Now().UTC(),
			BranchID:     &req.BranchID,
			Category:     product.Category,
			Cost:         cost,
			Inbound:      inbound,
			Reason:       req.Reason,
			CreatedBy:    actorID,
		})
		return err
	})
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"adjustment_id": adjustmentID,
		"cost":          cost,
		"journal_entry": entry,
	})
}

func (h *Handler) transfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Error(w, h.logger, shared.Validationf("%v", err))
		return
	}
	err := h.svc.TransferStock(r.Context(), TransferInput{
		FromBranchID: req.FromBranchID,
		ToBranchID:   req.ToBranchID,
		ProductID:    req.ProductID,
		VariantID:    req.VariantID,
		Qty:          req.Qty,
		Note:         req.Note,
		ActorID:      httpx.ActorID(r),
	})
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "transferred"})
}
