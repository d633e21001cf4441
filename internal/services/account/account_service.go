package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nexarise/backend/internal/apperrors"
	"github.com/nexarise/backend/internal/models"
	"github.com/nexarise/backend/internal/services/tree"
	"github.com/nexarise/backend/internal/store"
	"github.com/nexarise/backend/internal/utils"
)

// Service handles enrollment: account creation under a sponsor and binary
// tree placement. Accounts are soft-deactivated, never deleted.
type Service struct {
	store store.Store
	tree  *tree.Service
}

// NewService creates a new account service
func NewService(s store.Store, t *tree.Service) *Service {
	return &Service{store: s, tree: t}
}

// EnrollRequest carries the fields of a new enrollment. SponsorCode is the
// sponsor's referral code; empty enrolls the account as the tree root.
type EnrollRequest struct {
	Username    string `json:"username" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	SponsorCode string `json:"sponsor_code"`
}

// Enroll creates the account and places its binary node: under the sponsor
// via the placement strategy when a sponsor code is given, as the root
// otherwise.
func (s *Service) Enroll(ctx context.Context, req EnrollRequest) (*models.Account, error) {
	if req.Username == "" || req.Email == "" {
		return nil, fmt.Errorf("username and email are required: %w", apperrors.ErrValidation)
	}

	var sponsor *models.Account
	if req.SponsorCode != "" {
		var err error
		sponsor, err = s.store.GetAccountByReferralCode(ctx, req.SponsorCode)
		if err != nil {
			return nil, err
		}
	} else {
		// Only the first enrollment may omit the sponsor; it becomes the
		// tree root. PlaceRoot enforces the same invariant under the
		// transaction, this check just fails before the account is created.
		if root, err := s.store.RootNode(ctx); err == nil {
			return nil, fmt.Errorf("sponsor code required, tree root already held by account %s: %w",
				root.AccountID, apperrors.ErrValidation)
		} else if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
	}

	account := &models.Account{
		Username:   req.Username,
		Email:      req.Email,
		Rank:       "member",
		IsActive:   true,
		EnrolledAt: time.Now().UTC(),
	}
	if sponsor != nil {
		account.SponsorID = &sponsor.ID
	}

	// Referral codes are derived from the username; retry on the rare
	// suffix collision.
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		account.ReferralCode = utils.GenerateReferralCode(req.Username)
		err = s.store.CreateAccount(ctx, account)
		if err == nil || !errors.Is(err, apperrors.ErrDuplicate) {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	if sponsor == nil {
		_, err = s.tree.PlaceRoot(ctx, account.ID)
	} else {
		_, err = s.tree.AutoPlace(ctx, account.ID, sponsor.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("account %s enrolled but not placed: %w", account.ID, err)
	}
	return account, nil
}

// Get returns an account by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return s.store.GetAccount(ctx, id)
}

// Deactivate soft-deactivates an account. Its node, volumes, and ledger
// history stay in place; it simply stops qualifying as an active leg or
// active direct.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	account, err := s.store.GetAccount(ctx, id)
	if err != nil {
		return err
	}
	if !account.IsActive {
		return nil
	}
	account.IsActive = false
	return s.store.SaveAccount(ctx, account)
}
