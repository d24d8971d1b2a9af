package tickets

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stagepass/stagepass-backend/pkg/db/models"
	"github.com/stagepass/stagepass-backend/pkg/enums"
	pkgerrors "github.com/stagepass/stagepass-backend/pkg/errors"
	"github.com/stagepass/stagepass-backend/pkg/qr"
)

const codeAlphabet = "23456789abcdefghjkmnpqrstuvwxyz"

// TicketView is the door-facing projection of one ticket.
type TicketView struct {
	Code         string     `json:"code"`
	Tier         enums.Tier `json:"tier"`
	IsExchanged  bool       `json:"is_exchanged"`
	IsUsed       bool       `json:"is_used"`
	UsedAt       *time.Time `json:"used_at,omitempty"`
	CustomerName string     `json:"customer_name"`
	SessionTitle string     `json:"session_title"`
	SessionID    *uuid.UUID `json:"session_id,omitempty"`
}

// MintInput describes the tickets to create for one paid order.
type MintInput struct {
	OrderID         uuid.UUID
	Quantities      map[enums.Tier]int
	DiscountedCount int
}

// Service mints and verifies tickets and owns the one-shot admission flip.
type Service interface {
	Mint(ctx context.Context, tx *gorm.DB, input MintInput) ([]models.Ticket, error)
	Verify(ctx context.Context, code string) (*TicketView, error)
	Admit(ctx context.Context, code string) (*TicketView, error)
	QRImage(ctx context.Context, code string, size int) ([]byte, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService builds the tickets service with the required dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("tickets repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

// Mint creates one ticket per purchased seat inside the caller's
// transaction. Exactly DiscountedCount general-tier tickets are tagged as
// exchanged so the door can tell voucher admissions apart.
func (s *service) Mint(ctx context.Context, tx *gorm.DB, input MintInput) ([]models.Ticket, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var minted []models.Ticket
	exchangedLeft := input.DiscountedCount
	for _, tier := range enums.AllTiers() {
		qty := input.Quantities[tier]
		if qty < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("negative quantity for tier %s", tier))
		}
		for i := 0; i < qty; i++ {
			code, err := generateTicketCode()
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate ticket code")
			}
			ticket := models.Ticket{
				OrderID: input.OrderID,
				Code:    code,
				Tier:    tier,
			}
			if tier == enums.TierGeneral && exchangedLeft > 0 {
				ticket.IsExchanged = true
				exchangedLeft--
			}
			minted = append(minted, ticket)
		}
	}
	if len(minted) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no seats to mint")
	}

	if err := s.repo.WithTx(tx).CreateBatch(ctx, minted); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create tickets")
	}
	return minted, nil
}

// Verify is the read-only half of the door flow. It never mutates the
// ticket, so staff can re-scan freely before committing.
func (s *service) Verify(ctx context.Context, code string) (*TicketView, error) {
	normalized, err := normalizeTicketCode(code)
	if err != nil {
		return nil, err
	}
	ticket, err := s.repo.FindByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ticket not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ticket")
	}
	view := viewFromModel(ticket)
	return &view, nil
}

// Admit commits the admission. The conditional update is the concurrency
// guarantee: a ticket scanned at two entrances admits exactly once and the
// loser sees AlreadyUsed even though its earlier Verify passed.
func (s *service) Admit(ctx context.Context, code string) (*TicketView, error) {
	normalized, err := normalizeTicketCode(code)
	if err != nil {
		return nil, err
	}

	ok, err := s.repo.Admit(ctx, normalized, s.now().UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "admit ticket")
	}

	ticket, loadErr := s.repo.FindByCode(ctx, normalized)
	if loadErr != nil {
		if errors.Is(loadErr, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ticket not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, loadErr, "load ticket")
	}
	view := viewFromModel(ticket)
	if !ok {
		return &view, pkgerrors.New(pkgerrors.CodeAlreadyUsed, "ticket already admitted")
	}
	return &view, nil
}

func (s *service) QRImage(ctx context.Context, code string, size int) ([]byte, error) {
	normalized, err := normalizeTicketCode(code)
	if err != nil {
		return nil, err
	}
	if _, err := s.Verify(ctx, normalized); err != nil {
		return nil, err
	}
	png, err := qr.EncodePNG(normalized, size)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render qr")
	}
	return png, nil
}

func viewFromModel(ticket *models.Ticket) TicketView {
	view := TicketView{
		Code:        ticket.Code,
		Tier:        ticket.Tier,
		IsExchanged: ticket.IsExchanged,
		IsUsed:      ticket.IsUsed,
		UsedAt:      ticket.UsedAt,
	}
	if ticket.Order != nil {
		view.CustomerName = ticket.Order.CustomerName
		if ticket.Order.Session != nil {
			view.SessionTitle = ticket.Order.Session.Title
			view.SessionID = &ticket.Order.Session.ID
		}
	}
	return view
}

func normalizeTicketCode(code string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(code))
	if normalized == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "ticket code required")
	}
	return normalized, nil
}

// generateTicketCode returns an opaque credential like "t-9hruk7mq2x".
func generateTicketCode() (string, error) {
	buf := make([]byte, 10)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteString("t-")
	for _, b := range buf {
		sb.WriteByte(codeAlphabet[int(b)%len(codeAlphabet)])
	}
	return sb.String(), nil
}
