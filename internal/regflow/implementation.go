// internal/regflow/implementation.go
package regflow

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"memberdesk/internal/roster"
	"memberdesk/pkg/kvstore"
)

const keyRegistrations = "membership_registrations"

// service implements the Service interface.
type service struct {
	store  kvstore.Store
	roster roster.Service

	limiter *rate.Limiter
	now     func() time.Time

	mu            sync.Mutex
	registrations []Registration
}

// NewService loads the registration queue and returns the workflow service.
func NewService(ctx context.Context, store kvstore.Store, rosterSvc roster.Service) (Service, error) {
	s := &service{
		store:   store,
		roster:  rosterSvc,
		limiter: rate.NewLimiter(rate.Every(1*time.Minute), 5),
		now:     time.Now,
	}
	if err := kvstore.LoadJSON(ctx, store, keyRegistrations, &s.registrations); err != nil {
		return nil, fmt.Errorf("load registrations: %w", err)
	}
	return s, nil
}

// Submit files a registration for userID. Any earlier registration the user
// holds is replaced, whatever its status, and the new one starts pending.
func (s *service) Submit(ctx context.Context, userID, submittedBy string, input SubmitInput) (*Registration, error) {
	if !s.limiter.Allow() {
		return nil, ErrRateLimited
	}

	input.Name = strings.TrimSpace(input.Name)
	input.StudentNumber = strings.TrimSpace(input.StudentNumber)
	input.SchoolYear = strings.TrimSpace(input.SchoolYear)
	if userID == "" || input.Name == "" || input.StudentNumber == "" || input.SchoolYear == "" || input.MembershipFee <= 0 {
		return nil, ErrValidation
	}
	if strings.TrimSpace(input.ProofOfPayment) == "" {
		return nil, ErrMissingProof
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().Format(time.RFC3339)
	reg := Registration{
		ID:             uuid.NewString(),
		UserID:         userID,
		SubmittedBy:    submittedBy,
		Name:           input.Name,
		StudentNumber:  input.StudentNumber,
		SchoolYear:     input.SchoolYear,
		MembershipFee:  input.MembershipFee,
		ProofOfPayment: input.ProofOfPayment,
		Status:         StatusPending,
		SubmittedAt:    now,
		UpdatedAt:      now,
	}

	// Drop any prior registration and append, so resubmission takes a
	// fresh slot at the end of the queue.
	for i := range s.registrations {
		if s.registrations[i].UserID == userID {
			s.registrations = append(s.registrations[:i], s.registrations[i+1:]...)
			break
		}
	}
	s.registrations = append(s.registrations, reg)

	s.persistLocked(ctx)
	return &reg, nil
}

// Approve promotes a registration into the roster. The registration is
// marked approved only after the roster accepts the member, so a duplicate
// student number leaves it pending for the admin to resolve.
func (s *service) Approve(ctx context.Context, id string) (*roster.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return nil, ErrNotFound
	}
	reg := s.registrations[i]

	member, err := s.roster.Register(ctx, roster.RegisterInput{
		Name:          reg.Name,
		StudentNumber: reg.StudentNumber,
		SchoolYear:    reg.SchoolYear,
		MembershipFee: reg.MembershipFee,
	})
	if err != nil {
		return nil, fmt.Errorf("promote registration: %w", err)
	}

	s.registrations[i].Status = StatusApproved
	s.registrations[i].UpdatedAt = s.now().Format(time.RFC3339)
	s.persistLocked(ctx)
	return member, nil
}

// Reject marks a registration as denied.
func (s *service) Reject(ctx context.Context, id string) (*Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return nil, ErrNotFound
	}

	s.registrations[i].Status = StatusDenied
	s.registrations[i].UpdatedAt = s.now().Format(time.RFC3339)
	s.persistLocked(ctx)

	reg := s.registrations[i]
	return &reg, nil
}

// ListPending returns pending registrations in submission order.
func (s *service) ListPending(ctx context.Context) ([]Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := make([]Registration, 0)
	for _, reg := range s.registrations {
		if reg.Status == StatusPending {
			pending = append(pending, reg)
		}
	}
	return pending, nil
}

// ForUser returns the user's registration, whatever its status.
func (s *service) ForUser(ctx context.Context, userID string) (*Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, reg := range s.registrations {
		if reg.UserID == userID {
			r := reg
			return &r, nil
		}
	}
	return nil, ErrNotFound
}

// DiscardForUser removes the user's registration so they can start over.
// Discarding when none exists is a no-op.
func (s *service) DiscardForUser(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, reg := range s.registrations {
		if reg.UserID == userID {
			s.registrations = append(s.registrations[:i], s.registrations[i+1:]...)
			s.persistLocked(ctx)
			return nil
		}
	}
	return nil
}

// StatusForUser reports the registration status for the watch tracker.
func (s *service) StatusForUser(ctx context.Context, userID string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, reg := range s.registrations {
		if reg.UserID == userID {
			return string(reg.Status), true, nil
		}
	}
	return "", false, nil
}

func (s *service) indexLocked(id string) int {
	for i := range s.registrations {
		if s.registrations[i].ID == id {
			return i
		}
	}
	return -1
}

// persistLocked mirrors the in-memory queue to the store. Mutations have
// already happened; a write failure is logged, not surfaced.
func (s *service) persistLocked(ctx context.Context) {
	if err := kvstore.SaveJSON(ctx, s.store, keyRegistrations, s.registrations); err != nil {
		log.Printf("regflow: failed to persist registrations: %v", err)
	}
}
