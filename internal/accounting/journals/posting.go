package journals

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pawsuite/pawsuite/internal/accounting/mappings"
	"github.com/pawsuite/pawsuite/internal/finance/calc"
)

// Poster translates domain documents into balanced journal entries using
// the account mapping resolver, then posts them through the engine.
type Poster struct {
	svc      *Service
	resolver *mappings.Resolver
}

// NewPoster builds Poster.
func NewPoster(svc *Service, resolver *mappings.Resolver) *Poster {
	return &Poster{svc: svc, resolver: resolver}
}

// Service exposes the underlying journal engine.
func (p *Poster) Service() *Service {
	return p.svc
}

// SaleJournalInput aggregates a finalized sale for posting.
type SaleJournalInput struct {
	SaleID            string
	Number            string
	Date              time.Time
	BranchID          *int64
	PaidByMethod      map[string]float64
	Outstanding       float64
	RevenueByCategory map[string]float64
	COGSByCategory    map[string]float64
	DiscountAmount    float64
	TaxAmount         float64
	CreatedBy         int64
}

// PurchaseJournalInput aggregates a received purchase order.
type PurchaseJournalInput struct {
	PurchaseID     string
	Number         string
	Date           time.Time
	BranchID       *int64
	CostByCategory map[string]float64
	TaxAmount      float64
	PaidAmount     float64
	PaidMethod     string
	Outstanding    float64
	CreatedBy      int64
}

// ClinicJournalInput aggregates a completed clinic appointment invoice.
type ClinicJournalInput struct {
	AppointmentID     string
	Number            string
	Date              time.Time
	BranchID          *int64
	ServiceRevenue    float64
	RevenueByCategory map[string]float64
	COGSByCategory    map[string]float64
	DiscountAmount    float64
	TaxAmount         float64
	PaidByMethod      map[string]float64
	Outstanding       float64
	CreatedBy         int64
}

// HotelJournalInput aggregates a hotel checkout invoice. The full invoice
// total lands on accounts receivable; payments clear it separately.
type HotelJournalInput struct {
	BookingID         string
	Number            string
	Date              time.Time
	BranchID          *int64
	Total             float64
	RoomRevenue       float64
	ServiceRevenue    float64
	RevenueByCategory map[string]float64
	DiscountAmount    float64
	TaxAmount         float64
	COGSByCategory    map[string]float64
	CreatedBy         int64
}

// PaymentJournalInput records a settlement against receivables.
type PaymentJournalInput struct {
	PaymentID string
	RefNumber string
	Date      time.Time
	BranchID  *int64
	Method    string
	Amount    float64
	CreatedBy int64
}

// AdjustmentJournalInput records the cost effect of a stock adjustment.
type AdjustmentJournalInput struct {
	AdjustmentID string
	Date         time.Time
	BranchID     *int64
	Category     string
	Cost         float64
	Inbound      bool
	Reason       string
	CreatedBy    int64
}

// BuildSaleEntry assembles the entry for a sale without posting it.
func (p *Poster) BuildSaleEntry(ctx context.Context, in SaleJournalInput) EntryInput {
	b := newEntryBuilder(in.BranchID)
	desc := "Sale " + in.Number
	for _, method := range sortedKeys(in.PaidByMethod) {
		b.debit(p.resolver.PaymentCode(ctx, method), desc+" payment "+method, in.PaidByMethod[method])
	}
	b.debit(mappings.CodeAR, desc+" receivable", in.Outstanding)
	b.debit(mappings.CodeDiscountExpense, desc+" discount", in.DiscountAmount)
	for _, cat := range sortedKeys(in.RevenueByCategory) {
		b.credit(p.resolver.RevenueCode(ctx, cat), desc+" revenue", in.RevenueByCategory[cat])
	}
	b.credit(mappings.CodeTaxPayable, desc+" tax", in.TaxAmount)
	for _, cat := range sortedKeys(in.COGSByCategory) {
		cost := in.COGSByCategory[cat]
		b.debit(p.resolver.COGSCode(ctx, cat), desc+" cost of goods", cost)
		b.credit(p.resolver.InventoryCode(ctx, cat), desc+" inventory out", cost)
	}
	return EntryInput{
		Date:        in.Date,
		Description: desc,
		SourceType:  SourceSale,
		SourceID:    in.SaleID,
		CreatedBy:   in.CreatedBy,
		Lines:       b.lines(),
	}
}

// PostSaleJournalInTx posts the sale entry inside an open transaction.
func (p *Poster) PostSaleJournalInTx(ctx context.Context, tx TxRepository, in SaleJournalInput) (JournalEntry, error) {
	return p.svc.PostSystemEntryInTx(ctx, tx, p.BuildSaleEntry(ctx, in))
}

// BuildPurchaseEntry assembles the entry for a received purchase order.
func (p *Poster) BuildPurchaseEntry(ctx context.Context, in PurchaseJournalInput) EntryInput {
	b := newEntryBuilder(in.BranchID)
	desc := "Purchase " + in.Number
	for _, cat := range sortedKeys(in.CostByCategory) {
		b.debit(p.resolver.InventoryCode(ctx, cat), desc+" inventory in", in.CostByCategory[cat])
	}
	b.debit(mappings.CodeVATInput, desc+" input tax", in.TaxAmount)
	if in.PaidAmount > 0 {
		b.credit(p.resolver.PaymentCode(ctx, in.PaidMethod), desc+" paid", in.PaidAmount)
	}
	b.credit(mappings.CodeAP, desc+" payable", in.Outstanding)
	return EntryInput{
		Date:        in.Date,
		Description: desc,
		SourceType:  SourcePurchase,
		SourceID:    in.PurchaseID,
		CreatedBy:   in.CreatedBy,
		Lines:       b.lines(),
	}
}

// PostPurchaseJournalInTx posts the purchase entry inside an open transaction.
func (p *Poster) PostPurchaseJournalInTx(ctx context.Context, tx TxRepository, in PurchaseJournalInput) (JournalEntry, error) {
	return p.svc.PostSystemEntryInTx(ctx, tx, p.BuildPurchaseEntry(ctx, in))
}

// BuildClinicEntry assembles the entry for a completed appointment.
func (p *Poster) BuildClinicEntry(ctx context.Context, in ClinicJournalInput) EntryInput {
	b := newEntryBuilder(in.BranchID)
	desc := "Appointment " + in.Number
	for _, method := range sortedKeys(in.PaidByMethod) {
		b.debit(p.resolver.PaymentCode(ctx, method), desc+" payment "+method, in.PaidByMethod[method])
	}
	b.debit(mappings.CodeAR, desc+" receivable", in.Outstanding)
	b.debit(mappings.CodeDiscountExpense, desc+" discount", in.DiscountAmount)
	b.credit(mappings.CodeClinicRevenue, desc+" services", in.ServiceRevenue)
	for _, cat := range sortedKeys(in.RevenueByCategory) {
		b.credit(p.resolver.RevenueCode(ctx, cat), desc+" products", in.RevenueByCategory[cat])
	}
	b.credit(mappings.CodeTaxPayable, desc+" tax", in.TaxAmount)
	for _, cat := range sortedKeys(in.COGSByCategory) {
		cost := in.COGSByCategory[cat]
		b.debit(p.resolver.COGSCode(ctx, cat), desc+" cost of goods", cost)
		b.credit(p.resolver.InventoryCode(ctx, cat), desc+" inventory out", cost)
	}
	return EntryInput{
		Date:        in.Date,
		Description: desc,
		SourceType:  SourceClinic,
		SourceID:    in.AppointmentID,
		CreatedBy:   in.CreatedBy,
		Lines:       b.lines(),
	}
}

// PostClinicJournalInTx posts the appointment entry inside an open transaction.
func (p *Poster) PostClinicJournalInTx(ctx context.Context, tx TxRepository, in ClinicJournalInput) (JournalEntry, error) {
	return p.svc.PostSystemEntryInTx(ctx, tx, p.BuildClinicEntry(ctx, in))
}

// BuildHotelEntry assembles the checkout entry for a hotel booking.
func (p *Poster) BuildHotelEntry(ctx context.Context, in HotelJournalInput) EntryInput {
	b := newEntryBuilder(in.BranchID)
	desc := "Hotel stay " + in.Number
	b.debit(mappings.CodeAR, desc+" receivable", in.Total)
	b.debit(mappings.CodeDiscountExpense, desc+" discount", in.DiscountAmount)
	b.credit(mappings.CodeRoomRevenue, desc+" room", in.RoomRevenue)
	b.credit(mappings.CodeHotelSvcRevenue, desc+" services", in.ServiceRevenue)
	for _, cat := range sortedKeys(in.RevenueByCategory) {
		b.credit(p.resolver.RevenueCode(ctx, cat), desc+" products", in.RevenueByCategory[cat])
	}
	b.credit(mappings.CodeTaxPayable, desc+" tax", in.TaxAmount)
	for _, cat := range sortedKeys(in.COGSByCategory) {
		cost := in.COGSByCategory[cat]
		b.debit(p.resolver.COGSCode(ctx, cat), desc+" cost of goods", cost)
		b.credit(p.resolver.InventoryCode(ctx, cat), desc+" inventory out", cost)
	}
	return EntryInput{
		Date:        in.Date,
		Description: desc,
		SourceType:  SourceHotel,
		SourceID:    in.BookingID,
		CreatedBy:   in.CreatedBy,
		Lines:       b.lines(),
	}
}

// PostHotelJournalInTx posts the checkout entry inside an open transaction.
func (p *Poster) PostHotelJournalInTx(ctx context.Context, tx TxRepository, in HotelJournalInput) (JournalEntry, error) {
	return p.svc.PostSystemEntryInTx(ctx, tx, p.BuildHotelEntry(ctx, in))
}

// BuildPaymentEntry assembles the entry for a receivable settlement.
func (p *Poster) BuildPaymentEntry(ctx context.Context, in PaymentJournalInput) EntryInput {
	b := newEntryBuilder(in.BranchID)
	desc := fmt.Sprintf("Payment for %s", in.RefNumber)
	b.debit(p.resolver.PaymentCode(ctx, in.Method), desc, in.Amount)
	b.credit(mappings.CodeAR, desc, in.Amount)
	return EntryInput{
		Date:        in.Date,
		Description: desc,
		SourceType:  SourcePayment,
		SourceID:    in.PaymentID,
		CreatedBy:   in.CreatedBy,
		Lines:       b.lines(),
	}
}

// PostPaymentJournalInTx posts the settlement entry inside an open transaction.
func (p *Poster) PostPaymentJournalInTx(ctx context.Context, tx TxRepository, in PaymentJournalInput) (JournalEntry, error) {
	return p.svc.PostSystemEntryInTx(ctx, tx, p.BuildPaymentEntry(ctx, in))
}

// BuildAdjustmentEntry assembles the cost entry for a stock adjustment.
// Inbound adjustments add inventory against cost of goods; outbound reverse.
func (p *Poster) BuildAdjustmentEntry(ctx context.Context, in AdjustmentJournalInput) EntryInput {
	b := newEntryBuilder(in.BranchID)
	desc := "Stock adjustment"
	if in.Reason != "" {
		desc += ": " + in.Reason
	}
	inventoryCode := p.resolver.InventoryCode(ctx, in.Category)
	cogsCode := p.resolver.COGSCode(ctx, in.Category)
	if in.Inbound {
		b.debit(inventoryCode, desc, in.Cost)
		b.credit(cogsCode, desc, in.Cost)
	} else {
		b.debit(cogsCode, desc, in.Cost)
		b.credit(inventoryCode, desc, in.Cost)
	}
	return EntryInput{
		Date:        in.Date,
		Description: desc,
		SourceType:  SourceAdjustment,
		SourceID:    in.AdjustmentID,
		CreatedBy:   in.CreatedBy,
		Lines:       b.lines(),
	}
}

// PostAdjustmentJournalInTx posts the adjustment entry inside an open transaction.
func (p *Poster) PostAdjustmentJournalInTx(ctx context.Context, tx TxRepository, in AdjustmentJournalInput) (JournalEntry, error) {
	return p.svc.PostSystemEntryInTx(ctx, tx, p.BuildAdjustmentEntry(ctx, in))
}

// entryBuilder accumulates amounts per account code, preserving first-seen
// order, and drops zero-amount lines.
type entryBuilder struct {
	branchID *int64
	order    []string
	byCode   map[string]*LineInput
}

func newEntryBuilder(branchID *int64) *entryBuilder {
	return &entryBuilder{branchID: branchID, byCode: map[string]*LineInput{}}
}

func (b *entryBuilder) debit(code, description string, amount float64) {
	b.add(code, description, calc.Round2(amount), 0)
}

func (b *entryBuilder) credit(code, description string, amount float64) {
	b.add(code, description, 0, calc.Round2(amount))
}

func (b *entryBuilder) add(code, description string, debit, credit float64) {
	if debit <= 0 && credit <= 0 {
		return
	}
	side := "D"
	if credit > 0 {
		side = "C"
	}
	key := side + ":" + code
	line, ok := b.byCode[key]
	if !ok {
		b.order = append(b.order, key)
		line = &LineInput{AccountCode: code, Description: description, BranchID: b.branchID}
		b.byCode[key] = line
	}
	line.Debit = calc.Round2(line.Debit + debit)
	line.Credit = calc.Round2(line.Credit + credit)
}

func (b *entryBuilder) lines() []LineInput {
	out := make([]LineInput, 0, len(b.order))
	for _, key := range b.order {
		out = append(out, *b.byCode[key])
	}
	return out
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
