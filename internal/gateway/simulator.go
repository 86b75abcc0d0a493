package gateway

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultAuthorizeApprovalRate = 0.90
	defaultRefundApprovalRate    = 0.95
)

// SimulatorConfig tunes the simulated gateway. Approval rates are
// probabilities in [0, 1]; declined outcomes split evenly between terminal
// declines and transient faults.
type SimulatorConfig struct {
	AuthorizeApprovalRate float64
	RefundApprovalRate    float64
	Latency               time.Duration
	Seed                  int64
	Clock                 func() time.Time
}

// Simulator is a payment gateway stand-in for development and tests. It
// reproduces the reference terminal's behaviour: randomised approvals,
// TXN-/REF- references derived from the clock, AUTH codes and a POS
// terminal identifier.
type Simulator struct {
	mu            sync.Mutex
	rng           *rand.Rand
	authorizeRate float64
	refundRate    float64
	latency       time.Duration
	clock         func() time.Time
}

// NewSimulator constructs a simulator from the provided configuration.
func NewSimulator(cfg SimulatorConfig) *Simulator {
	authorizeRate := cfg.AuthorizeApprovalRate
	if authorizeRate <= 0 || authorizeRate > 1 {
		authorizeRate = defaultAuthorizeApprovalRate
	}
	refundRate := cfg.RefundApprovalRate
	if refundRate <= 0 || refundRate > 1 {
		refundRate = defaultRefundApprovalRate
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Simulator{
		rng:           rand.New(rand.NewSource(seed)),
		authorizeRate: authorizeRate,
		refundRate:    refundRate,
		latency:       cfg.Latency,
		clock: func() time.Time {
			return clock().UTC()
		},
	}
}

// Authorize implements Provider.
func (s *Simulator) Authorize(ctx context.Context, req AuthorizeRequest) (Authorization, error) {
	if err := s.sleep(ctx); err != nil {
		return Authorization{}, err
	}

	s.mu.Lock()
	approved := s.rng.Float64() < s.authorizeRate
	terminal := s.rng.Intn(999) + 1
	declinedHard := s.rng.Float64() < 0.5
	last4 := fmt.Sprintf("%04d", s.rng.Intn(9000)+1000)
	s.mu.Unlock()

	if !approved {
		if declinedHard {
			return Authorization{}, fmt.Errorf("%w: issuer rejected %s payment for order %s", ErrDeclined, req.Method, req.OrderNumber)
		}
		return Authorization{}, fmt.Errorf("%w: processor temporarily unreachable", ErrUnavailable)
	}

	now := s.clock()
	auth := Authorization{
		TransactionID:     "TXN-" + now.Format("20060102-150405"),
		AuthorizationCode: "AUTH" + referenceCode(6),
		TerminalID:        fmt.Sprintf("POS-%03d", terminal),
		AuthorizedAt:      now,
	}
	if req.Method.IsCard() {
		auth.CardLast4 = last4
	}
	return auth, nil
}

// Refund implements Provider.
func (s *Simulator) Refund(ctx context.Context, req RefundRequest) (Refund, error) {
	if err := s.sleep(ctx); err != nil {
		return Refund{}, err
	}

	s.mu.Lock()
	approved := s.rng.Float64() < s.refundRate
	declinedHard := s.rng.Float64() < 0.5
	s.mu.Unlock()

	if !approved {
		if declinedHard {
			return Refund{}, fmt.Errorf("%w: refund rejected for transaction %s", ErrDeclined, req.TransactionID)
		}
		return Refund{}, fmt.Errorf("%w: processor temporarily unreachable", ErrUnavailable)
	}

	now := s.clock()
	return Refund{
		RefundID:   "REF-" + now.Format("20060102-150405"),
		RefundedAt: now,
	}, nil
}

func (s *Simulator) sleep(ctx context.Context) error {
	if s.latency <= 0 {
		return nil
	}
	timer := time.NewTimer(s.latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
	case <-timer.C:
		return nil
	}
}

func referenceCode(n int) string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	if n > len(raw) {
		n = len(raw)
	}
	return raw[:n]
}
