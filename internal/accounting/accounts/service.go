package accounts

import (
	"context"

	accshared "github.com/pawsuite/pawsuite/internal/accounting/shared"
	"github.com/pawsuite/pawsuite/internal/shared"
)

// Service guards chart-of-accounts lifecycle rules.
type Service struct {
	repo *Repository
}

// NewService builds Service.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context) ([]Account, error) {
	return s.repo.List(ctx)
}

func (s *Service) FindByCode(ctx context.Context, code string) (Account, error) {
	return s.repo.FindByCode(ctx, code)
}

// Create validates and inserts a new account.
func (s *Service) Create(ctx context.Context, a Account) (Account, error) {
	if a.Code == "" || a.Name == "" {
		return Account{}, shared.Validationf("accounting: account code and name required")
	}
	switch a.Type {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
	default:
		return Account{}, shared.Validationf("accounting: invalid account type %q", a.Type)
	}
	switch a.NormalBalance {
	case NormalDebit, NormalCredit:
	default:
		return Account{}, shared.Validationf("accounting: invalid normal balance %q", a.NormalBalance)
	}
	a.IsActive = true
	return s.repo.Create(ctx, a)
}

// Deactivate soft-deletes an account, refused while it still has journal
// lines or child accounts.
func (s *Service) Deactivate(ctx context.Context, accountID int64) error {
	hasLines, err := s.repo.HasLines(ctx, accountID)
	if err != nil {
		return err
	}
	if hasLines {
		return accshared.ErrAccountInUse
	}
	hasChildren, err := s.repo.HasChildren(ctx, accountID)
	if err != nil {
		return err
	}
	if hasChildren {
		return accshared.ErrAccountInUse
	}
	return s.repo.Deactivate(ctx, accountID)
}
