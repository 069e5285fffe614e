package inventory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pawsuite/pawsuite/internal/masterdata/products"
	"github.com/pawsuite/pawsuite/internal/shared"
)

type memoryRepo struct {
	levels    map[string]StockLevel
	batches   []*StockBatch
	movements []Movement
	nextID    int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{levels: map[string]StockLevel{}}
}

func levelKey(branchID, productID, variantID int64) string {
	return fmt.Sprintf("%d:%d:%d", branchID, productID, variantID)
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snapshot := r.clone()
	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		*r = *snapshot
		return err
	}
	return nil
}

func (r *memoryRepo) clone() *memoryRepo {
	cp := &memoryRepo{levels: map[string]StockLevel{}, nextID: r.nextID}
	for k, v := range r.levels {
		cp.levels[k] = v
	}
	for _, b := range r.batches {
		dup := *b
		cp.batches = append(cp.batches, &dup)
	}
	cp.movements = append(cp.movements, r.movements...)
	return cp
}

func (r *memoryRepo) GetStock(ctx context.Context, branchID, productID, variantID int64) (StockLevel, error) {
	if level, ok := r.levels[levelKey(branchID, productID, variantID)]; ok {
		return level, nil
	}
	return StockLevel{BranchID: branchID, ProductID: productID, VariantID: variantID}, ErrStockNotFound
}

func (r *memoryRepo) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	return append([]Movement{}, r.movements...), nil
}

func (r *memoryRepo) ListExpiringBatches(ctx context.Context, before time.Time) ([]StockBatch, error) {
	out := []StockBatch{}
	for _, b := range r.batches {
		if b.QtyRemaining > 0 && b.ExpiryDate.Before(before) {
			out = append(out, *b)
		}
	}
	return out, nil
}

type memoryTx struct {
	repo *memoryRepo
}

func (tx *memoryTx) GetStockForUpdate(ctx context.Context, branchID, productID, variantID int64) (StockLevel, error) {
	return tx.repo.GetStock(ctx, branchID, productID, variantID)
}

func (tx *memoryTx) UpsertStock(ctx context.Context, level StockLevel) error {
	tx.repo.levels[levelKey(level.BranchID, level.ProductID, level.VariantID)] = level
	return nil
}

func (tx *memoryTx) InsertMovement(ctx context.Context, movement Movement) error {
	tx.repo.nextID++
	movement.ID = tx.repo.nextID
	tx.repo.movements = append(tx.repo.movements, movement)
	return nil
}

func (tx *memoryTx) InsertBatch(ctx context.Context, batch StockBatch) error {
	tx.repo.nextID++
	batch.ID = tx.repo.nextID
	tx.repo.batches = append(tx.repo.batches, &batch)
	return nil
}

func (tx *memoryTx) ListBatchesForUpdate(ctx context.Context, branchID, productID, variantID int64) ([]StockBatch, error) {
	out := []StockBatch{}
	for _, b := range tx.repo.batches {
		if b.BranchID == branchID && b.ProductID == productID && b.VariantID == variantID && b.QtyRemaining > 0 {
			out = append(out, *b)
		}
	}
	// expiry ascending
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].ExpiryDate.Before(out[i].ExpiryDate) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (tx *memoryTx) UpdateBatchRemaining(ctx context.Context, batchID int64, remaining float64) error {
	for _, b := range tx.repo.batches {
		if b.ID == batchID {
			b.QtyRemaining = remaining
			return nil
		}
	}
	return ErrStockNotFound
}

type stubProducts struct {
	byID map[int64]products.Product
}

func (s *stubProducts) Get(ctx context.Context, id int64) (products.Product, error) {
	if p, ok := s.byID[id]; ok {
		return p, nil
	}
	return products.Product{}, shared.NotFoundf("product %d", id)
}

func newTestService(repo *memoryRepo, catalog ...products.Product) *Service {
	stub := &stubProducts{byID: map[int64]products.Product{}}
	for _, p := range catalog {
		stub.byID[p.ID] = p
	}
	return NewService(repo, stub, nil, nil)
}

func goods(id int64, name string) products.Product {
	return products.Product{ID: id, Name: name, Type: products.ProductTypeGoods, IsActive: true}
}

func TestWeightedAverageCost(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, goods(1, "Dog Food 1kg"))
	ctx := context.Background()

	level, err := svc.IncreaseStock(ctx, IncreaseInput{BranchID: 1, ProductID: 1, Qty: 10, UnitCost: 100, Type: MovementPurchaseIn})
	require.NoError(t, err)
	require.InDelta(t, 10, level.Qty, 1e-9)
	require.InDelta(t, 100, level.AvgCost, 1e-9)

	level, err = svc.IncreaseStock(ctx, IncreaseInput{BranchID: 1, ProductID: 1, Qty: 5, UnitCost: 130, Type: MovementPurchaseIn})
	require.NoError(t, err)
	require.InDelta(t, 15, level.Qty, 1e-9)
	require.InDelta(t, 110, level.AvgCost, 1e-9)

	result, err := svc.DecreaseStock(ctx, DecreaseInput{BranchID: 1, ProductID: 1, Qty: 8, Type: MovementSaleOut})
	require.NoError(t, err)
	require.InDelta(t, 880, result.COGS, 1e-9)
	require.InDelta(t, 110, result.AvgCost, 1e-9)

	// Outbound movements never change the average cost.
	after, err := svc.GetStock(ctx, 1, 1, 0)
	require.NoError(t, err)
	require.InDelta(t, 7, after.Qty, 1e-9)
	require.InDelta(t, 110, after.AvgCost, 1e-9)
}

func TestInsufficientStockLeavesQuantityUnchanged(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, goods(1, "Cat Litter"))
	ctx := context.Background()

	_, err := svc.IncreaseStock(ctx, IncreaseInput{BranchID: 1, ProductID: 1, Qty: 3, UnitCost: 50, Type: MovementPurchaseIn})
	require.NoError(t, err)

	_, err = svc.DecreaseStock(ctx, DecreaseInput{BranchID: 1, ProductID: 1, Qty: 4, Type: MovementSaleOut})
	require.ErrorIs(t, err, shared.ErrInsufficientStock)

	level, err := svc.GetStock(ctx, 1, 1, 0)
	require.NoError(t, err)
	require.InDelta(t, 3, level.Qty, 1e-9)
}

func TestDecreaseWithoutStockRowFails(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, goods(1, "Bird Seed"))

	_, err := svc.DecreaseStock(context.Background(), DecreaseInput{BranchID: 1, ProductID: 1, Qty: 1, Type: MovementSaleOut})
	require.ErrorIs(t, err, shared.ErrInsufficientStock)
}

func TestFEFODepletionOrder(t *testing.T) {
	repo := newMemoryRepo()
	vaccine := goods(2, "Vaccine")
	vaccine.HasExpiry = true
	svc := newTestService(repo, vaccine)
	ctx := context.Background()

	expiry := func(days int) time.Time {
		return time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, days)
	}
	// Received out of expiry order on purpose.
	_, err := svc.IncreaseStock(ctx, IncreaseInput{BranchID: 1, ProductID: 2, Qty: 5, UnitCost: 10, Type: MovementPurchaseIn,
		Batch: &BatchInput{Number: "LOT-C", ExpiryDate: expiry(90)}})
	require.NoError(t, err)
	_, err = svc.IncreaseStock(ctx, IncreaseInput{BranchID: 1, ProductID: 2, Qty: 5, UnitCost: 10, Type: MovementPurchaseIn,
		Batch: &BatchInput{Number: "LOT-A", ExpiryDate: expiry(10)}})
	require.NoError(t, err)
	_, err = svc.IncreaseStock(ctx, IncreaseInput{BranchID: 1, ProductID: 2, Qty: 5, UnitCost: 10, Type: MovementPurchaseIn,
		Batch: &BatchInput{Number: "LOT-B", ExpiryDate: expiry(30)}})
	require.NoError(t, err)

	result, err := svc.DecreaseStock(ctx, DecreaseInput{BranchID: 1, ProductID: 2, Qty: 7, Type: MovementSaleOut})
	require.NoError(t, err)
	require.Len(t, result.Lots, 2)
	require.Equal(t, "LOT-A", result.Lots[0].BatchNumber)
	require.InDelta(t, 5, result.Lots[0].Qty, 1e-9)
	require.Equal(t, "LOT-B", result.Lots[1].BatchNumber)
	require.InDelta(t, 2, result.Lots[1].Qty, 1e-9)

	// LOT-A must be empty before LOT-C is touched.
	for _, b := range repo.batches {
		switch b.BatchNumber {
		case "LOT-A":
			require.InDelta(t, 0, b.QtyRemaining, 1e-9)
		case "LOT-B":
			require.InDelta(t, 3, b.QtyRemaining, 1e-9)
		case "LOT-C":
			require.InDelta(t, 5, b.QtyRemaining, 1e-9)
		}
	}
}

func TestExpiryTrackedRequiresBatch(t *testing.T) {
	repo := newMemoryRepo()
	vaccine := goods(2, "Vaccine")
	vaccine.HasExpiry = true
	svc := newTestService(repo, vaccine)

	_, err := svc.IncreaseStock(context.Background(), IncreaseInput{BranchID: 1, ProductID: 2, Qty: 5, UnitCost: 10, Type: MovementPurchaseIn})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestServiceProductsAreNoOps(t *testing.T) {
	repo := newMemoryRepo()
	grooming := products.Product{ID: 9, Name: "Grooming", Type: products.ProductTypeService, IsActive: true}
	svc := newTestService(repo, grooming)
	ctx := context.Background()

	result, err := svc.DecreaseStock(ctx, DecreaseInput{BranchID: 1, ProductID: 9, Qty: 1, Type: MovementSaleOut})
	require.NoError(t, err)
	require.Equal(t, 0.0, result.COGS)
	require.Empty(t, repo.movements)
}

func TestTransferInheritsAverageCost(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, goods(1, "Dog Food 1kg"))
	ctx := context.Background()

	_, err := svc.IncreaseStock(ctx, IncreaseInput{BranchID: 1, ProductID: 1, Qty: 20, UnitCost: 60, Type: MovementPurchaseIn})
	require.NoError(t, err)

	require.NoError(t, svc.TransferStock(ctx, TransferInput{FromBranchID: 1, ToBranchID: 2, ProductID: 1, Qty: 5}))

	src, err := svc.GetStock(ctx, 1, 1, 0)
	require.NoError(t, err)
	require.InDelta(t, 15, src.Qty, 1e-9)

	dst, err := svc.GetStock(ctx, 2, 1, 0)
	require.NoError(t, err)
	require.InDelta(t, 5, dst.Qty, 1e-9)
	require.InDelta(t, 60, dst.AvgCost, 1e-9)

	// Movements share one reference id.
	require.Len(t, repo.movements, 3)
	out, in := repo.movements[1], repo.movements[2]
	require.Equal(t, MovementTransferOut, out.Type)
	require.Equal(t, MovementTransferIn, in.Type)
	require.Equal(t, out.RefID, in.RefID)

	_, err = svc.DecreaseStock(ctx, DecreaseInput{BranchID: 1, ProductID: 1, Qty: 50, Type: MovementSaleOut})
	require.ErrorIs(t, err, shared.ErrInsufficientStock)
}
