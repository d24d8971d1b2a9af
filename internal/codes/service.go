package codes

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stagepass/stagepass-backend/internal/pricing"
	"github.com/stagepass/stagepass-backend/pkg/db/models"
	pkgerrors "github.com/stagepass/stagepass-backend/pkg/errors"
)

const maxBatchSize = 1000

// Excludes ambiguous glyphs (0/O, 1/I/L) so door staff can read codes aloud.
const codeAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

// ValidationResult is the per-code outcome of a read-only batch validation.
type ValidationResult struct {
	Code          string     `json:"code"`
	Exists        bool       `json:"exists"`
	Used          bool       `json:"used"`
	PerformerName *string    `json:"performer_name,omitempty"`
	SessionID     *uuid.UUID `json:"session_id,omitempty"`
	SessionTitle  *string    `json:"session_title,omitempty"`
}

// IssueInput creates one code. Code may be empty to auto-generate.
type IssueInput struct {
	Code        string
	PerformerID *uuid.UUID
	SessionID   *uuid.UUID
}

// BatchIssueInput creates Count generated codes sharing the same scoping.
type BatchIssueInput struct {
	Count       int
	PerformerID *uuid.UUID
	SessionID   *uuid.UUID
}

// Service is the exchange code registry.
type Service interface {
	ValidateBatch(ctx context.Context, raw []string) ([]ValidationResult, error)
	EnsureUnused(ctx context.Context, codes []string) error
	RedeemForOrder(ctx context.Context, tx *gorm.DB, code string, orderID uuid.UUID) error
	Issue(ctx context.Context, input IssueInput) (*models.ExchangeCode, error)
	IssueBatch(ctx context.Context, input BatchIssueInput) ([]models.ExchangeCode, error)
	List(ctx context.Context, filter ListFilter) ([]models.ExchangeCode, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService builds the code registry service with the required dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("codes repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

// ValidateBatch reports existence and usage per submitted code. Read-only
// and safe to call on every keystroke; duplicates are reported per input
// position rather than rejected here.
func (s *service) ValidateBatch(ctx context.Context, raw []string) ([]ValidationResult, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	normalized := make([]string, 0, len(raw))
	for _, code := range raw {
		normalized = append(normalized, pricing.NormalizeCode(code))
	}

	records, err := s.repo.FindByCodes(ctx, normalized)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up codes")
	}
	byCode := make(map[string]*models.ExchangeCode, len(records))
	for i := range records {
		byCode[records[i].Code] = &records[i]
	}

	results := make([]ValidationResult, 0, len(normalized))
	for _, code := range normalized {
		result := ValidationResult{Code: code}
		if record, ok := byCode[code]; ok {
			result.Exists = true
			result.Used = record.IsUsed
			if record.Performer != nil {
				result.PerformerName = &record.Performer.Name
			}
			if record.Session != nil {
				result.SessionID = &record.Session.ID
				result.SessionTitle = &record.Session.Title
			}
		}
		results = append(results, result)
	}
	return results, nil
}

// EnsureUnused fails the whole set if any code is unknown or already used.
// Partial redemption is not offered, so checkout calls this before quoting.
func (s *service) EnsureUnused(ctx context.Context, codes []string) error {
	if len(codes) == 0 {
		return nil
	}
	results, err := s.ValidateBatch(ctx, codes)
	if err != nil {
		return err
	}
	for _, result := range results {
		if !result.Exists {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("exchange code %q is not recognized", result.Code))
		}
		if result.Used {
			return pkgerrors.New(pkgerrors.CodeAlreadyUsed, fmt.Sprintf("exchange code %q has already been used", result.Code))
		}
	}
	return nil
}

// RedeemForOrder performs the one-shot redemption inside the caller's
// transaction. A lost race is tolerated only when the winning order is this
// order (webhook re-delivery); any other owner is an integrity fault.
func (s *service) RedeemForOrder(ctx context.Context, tx *gorm.DB, code string, orderID uuid.UUID) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	code = pricing.NormalizeCode(code)
	if code == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "exchange code required")
	}

	repo := s.repo.WithTx(tx)
	ok, err := repo.Redeem(ctx, code, orderID, s.now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redeem code")
	}
	if ok {
		return nil
	}

	record, err := repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("exchange code %q not found", code))
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load code")
	}
	if record.RedeemingOrderID != nil && *record.RedeemingOrderID == orderID {
		// True re-delivery: this order already redeemed the code.
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeIntegrity, fmt.Sprintf("exchange code %q already redeemed by another order", code)).
		WithDetails(map[string]any{"code": code, "order_id": orderID.String()})
}

func (s *service) Issue(ctx context.Context, input IssueInput) (*models.ExchangeCode, error) {
	code := pricing.NormalizeCode(input.Code)
	if code == "" {
		generated, err := generateCode()
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate code")
		}
		code = generated
	}

	record := &models.ExchangeCode{
		Code:        code,
		PerformerID: input.PerformerID,
		SessionID:   input.SessionID,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		if isUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("exchange code %q already exists", code))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create code")
	}
	return record, nil
}

func (s *service) IssueBatch(ctx context.Context, input BatchIssueInput) ([]models.ExchangeCode, error) {
	if input.Count <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "batch count must be positive")
	}
	if input.Count > maxBatchSize {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("batch count must not exceed %d", maxBatchSize))
	}

	records := make([]models.ExchangeCode, 0, input.Count)
	for i := 0; i < input.Count; i++ {
		code, err := generateCode()
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate code")
		}
		records = append(records, models.ExchangeCode{
			Code:        code,
			PerformerID: input.PerformerID,
			SessionID:   input.SessionID,
		})
	}
	if err := s.repo.CreateBatch(ctx, records); err != nil {
		if isUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "generated code collided, retry the batch")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create codes")
	}
	return records, nil
}

func (s *service) List(ctx context.Context, filter ListFilter) ([]models.ExchangeCode, error) {
	records, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list codes")
	}
	return records, nil
}

// generateCode returns a 12-char voucher like "k7mq-2xwd-9hru" (stored
// lower-cased to match normalization).
func generateCode() (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, 0, 14)
	for i, b := range buf {
		if i > 0 && i%4 == 0 {
			out = append(out, '-')
		}
		out = append(out, codeAlphabet[int(b)%len(codeAlphabet)])
	}
	return pricing.NormalizeCode(string(out)), nil
}
