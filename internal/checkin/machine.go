package checkin

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/stagepass/stagepass-backend/internal/tickets"
	pkgerrors "github.com/stagepass/stagepass-backend/pkg/errors"
)

// State is one node of the door-side flow.
type State string

const (
	StateIdle        State = "idle"
	StateScanning    State = "scanning"
	StateVerified    State = "verified"
	StateSuccess     State = "success"
	StateError       State = "error"
	StateAlreadyUsed State = "already_used"
)

// Machine drives one door device through scan, human confirmation and
// admission. The verified state never auto-commits: staff must Confirm or
// Reject before the ticket is touched.
//
// The scanned set only short-circuits repeat scans on this device. The
// conditional update behind Service.CheckIn is the actual guarantee; a code
// admitted at another entrance still resolves correctly here.
type Machine struct {
	mu      sync.Mutex
	svc     Service
	state   State
	ticket  *tickets.TicketView
	reason  string
	scanned map[string]struct{}
}

// NewMachine builds an idle machine for one door session.
func NewMachine(svc Service) (*Machine, error) {
	if svc == nil {
		return nil, fmt.Errorf("check-in service required")
	}
	return &Machine{
		svc:     svc,
		state:   StateIdle,
		scanned: map[string]struct{}{},
	}, nil
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Ticket returns the view loaded by the last scan, if any.
func (m *Machine) Ticket() *tickets.TicketView {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ticket
}

// Reason explains the error or already-used outcome for display.
func (m *Machine) Reason() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reason
}

// Scan captures a code and looks it up. Only legal from idle.
func (m *Machine) Scan(ctx context.Context, code string) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateIdle {
		return m.state, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot scan while %s", m.state))
	}

	normalized := strings.ToLower(strings.TrimSpace(code))
	if normalized == "" {
		return m.fail("empty code"), nil
	}
	if _, seen := m.scanned[normalized]; seen {
		m.state = StateAlreadyUsed
		m.reason = "already scanned at this door"
		return m.state, nil
	}

	m.state = StateScanning
	view, err := m.svc.Verify(ctx, normalized)
	if err != nil {
		typed := pkgerrors.As(err)
		if typed != nil && typed.Code() == pkgerrors.CodeNotFound {
			return m.fail("unknown ticket code"), nil
		}
		m.fail("lookup failed")
		return m.state, err
	}
	if view.IsUsed {
		m.scanned[normalized] = struct{}{}
		m.ticket = view
		m.state = StateAlreadyUsed
		m.reason = "ticket already admitted"
		return m.state, nil
	}

	m.ticket = view
	m.state = StateVerified
	return m.state, nil
}

// Confirm commits the admission for the verified ticket. The loser of a
// concurrent admission ends in already-used even though its scan passed.
func (m *Machine) Confirm(ctx context.Context) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateVerified || m.ticket == nil {
		return m.state, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot confirm while %s", m.state))
	}

	view, err := m.svc.CheckIn(ctx, m.ticket.Code)
	if view != nil {
		m.ticket = view
	}
	if err != nil {
		typed := pkgerrors.As(err)
		if typed != nil && typed.Code() == pkgerrors.CodeAlreadyUsed {
			m.scanned[m.ticket.Code] = struct{}{}
			m.state = StateAlreadyUsed
			m.reason = "ticket already admitted"
			return m.state, nil
		}
		m.fail("admission failed")
		return m.state, err
	}

	m.scanned[m.ticket.Code] = struct{}{}
	m.state = StateSuccess
	m.reason = ""
	return m.state, nil
}

// Reject abandons the verified ticket without touching it.
func (m *Machine) Reject() (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateVerified {
		return m.state, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot reject while %s", m.state))
	}
	m.ticket = nil
	m.state = StateIdle
	m.reason = ""
	return m.state, nil
}

// Reset returns to idle from any terminal state. The scanned set survives
// for the rest of the door session.
func (m *Machine) Reset() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ticket = nil
	m.reason = ""
	m.state = StateIdle
	return m.state
}

func (m *Machine) fail(reason string) State {
	m.ticket = nil
	m.state = StateError
	m.reason = reason
	return m.state
}
