// internal/roster/implementation.go
package roster

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"memberdesk/internal/controlnum"
	"memberdesk/pkg/kvstore"
)

const (
	keyMembers = "membership_students"
	keyPool    = "membership_deleted_control_numbers"
)

// service implements the Service interface. It owns the member collection and
// the freed-control-number pool, mirroring both to the store after every
// mutation. A failed write is logged and in-memory state stays authoritative
// for the rest of the session.
type service struct {
	store kvstore.Store
	now   func() time.Time

	mu      sync.Mutex
	members []Member
	pool    controlnum.Pool
}

// NewService loads the roster from the store and returns the engine.
func NewService(ctx context.Context, store kvstore.Store) (Service, error) {
	s := &service{
		store: store,
		now:   time.Now,
	}

	if err := kvstore.LoadJSON(ctx, store, keyMembers, &s.members); err != nil {
		return nil, fmt.Errorf("load members: %w", err)
	}
	if err := kvstore.LoadJSON(ctx, store, keyPool, &s.pool); err != nil {
		return nil, fmt.Errorf("load control number pool: %w", err)
	}

	return s, nil
}

// Register validates the input, allocates a control number and appends the
// new member. No state is mutated on a validation or duplicate failure.
func (s *service) Register(ctx context.Context, input RegisterInput) (*Member, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.StudentNumber = strings.TrimSpace(input.StudentNumber)

	if input.Name == "" || input.StudentNumber == "" || input.SchoolYear == "" || input.MembershipFee <= 0 {
		return nil, ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findByStudentNumberLocked(input.StudentNumber, "") != nil {
		return nil, ErrDuplicateStudentNumber
	}

	member := Member{
		ID:               uuid.NewString(),
		Name:             input.Name,
		StudentNumber:    input.StudentNumber,
		SchoolYear:       input.SchoolYear,
		MembershipFee:    input.MembershipFee,
		ControlNumber:    controlnum.Allocate(s.now(), &s.pool, s.controlNumberInUseLocked),
		RegistrationDate: s.now().Format("2006-01-02"),
	}

	s.members = append(s.members, member)
	s.persistLocked(ctx)

	return &member, nil
}

// Get retrieves a member by ID.
func (s *service) Get(ctx context.Context, id string) (*Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.members {
		if s.members[i].ID == id {
			m := s.members[i]
			return &m, nil
		}
	}
	return nil, ErrNotFound
}

// Update edits name, student number, school year and fee. Control number and
// registration date are never altered.
func (s *service) Update(ctx context.Context, id string, input UpdateInput) (*Member, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.StudentNumber = strings.TrimSpace(input.StudentNumber)

	if input.Name == "" || input.StudentNumber == "" || input.SchoolYear == "" || input.MembershipFee < 0 {
		return nil, ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOfLocked(id)
	if idx < 0 {
		return nil, ErrNotFound
	}

	if s.findByStudentNumberLocked(input.StudentNumber, id) != nil {
		return nil, ErrDuplicateStudentNumber
	}

	s.members[idx].Name = input.Name
	s.members[idx].StudentNumber = input.StudentNumber
	s.members[idx].SchoolYear = input.SchoolYear
	s.members[idx].MembershipFee = input.MembershipFee

	s.persistLocked(ctx)

	m := s.members[idx]
	return &m, nil
}

// Delete removes a member and returns its control number to the pool.
func (s *service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOfLocked(id)
	if idx < 0 {
		return ErrNotFound
	}

	if cn := s.members[idx].ControlNumber; cn != "" {
		s.pool.Add(cn)
	}
	s.members = append(s.members[:idx], s.members[idx+1:]...)

	s.persistLocked(ctx)
	return nil
}

// DeleteAll clears the roster and the pool unconditionally. Confirmation is
// the caller's responsibility.
func (s *service) DeleteAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.members = nil
	s.pool.Clear()

	s.persistLocked(ctx)
	return nil
}

// Query returns members matching the filter in insertion order. The search
// term matches case-insensitively against name, student number and control
// number; the year level matches exactly.
func (s *service) Query(ctx context.Context, filter Filter) ([]Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))

	result := make([]Member, 0, len(s.members))
	for _, m := range s.members {
		if search != "" &&
			!strings.Contains(strings.ToLower(m.Name), search) &&
			!strings.Contains(strings.ToLower(m.StudentNumber), search) &&
			!strings.Contains(strings.ToLower(m.ControlNumber), search) {
			continue
		}
		if filter.YearLevel != "" && m.SchoolYear != filter.YearLevel {
			continue
		}
		result = append(result, m)
	}

	return result, nil
}

// Members returns a snapshot of the full roster in insertion order.
func (s *service) Members(ctx context.Context) ([]Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]Member, len(s.members))
	copy(result, s.members)
	return result, nil
}

// ReplaceAll swaps in an entirely new member collection and clears the pool.
// Imported control numbers are taken verbatim. Validation happens upstream;
// once invoked the replacement is unconditional.
func (s *service) ReplaceAll(ctx context.Context, members []Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.members = make([]Member, len(members))
	copy(s.members, members)
	s.pool.Clear()

	s.persistLocked(ctx)
	return nil
}

func (s *service) indexOfLocked(id string) int {
	for i := range s.members {
		if s.members[i].ID == id {
			return i
		}
	}
	return -1
}

// findByStudentNumberLocked returns a member holding studentNumber, skipping
// the member identified by excludeID so updates don't collide with themselves.
func (s *service) findByStudentNumberLocked(studentNumber, excludeID string) *Member {
	for i := range s.members {
		if s.members[i].StudentNumber == studentNumber && s.members[i].ID != excludeID {
			return &s.members[i]
		}
	}
	return nil
}

func (s *service) controlNumberInUseLocked(cn string) bool {
	for i := range s.members {
		if s.members[i].ControlNumber == cn {
			return true
		}
	}
	return false
}

func (s *service) persistLocked(ctx context.Context) {
	if err := kvstore.SaveJSON(ctx, s.store, keyMembers, s.members); err != nil {
		log.Printf("roster: failed to persist members: %v", err)
	}
	if err := kvstore.SaveJSON(ctx, s.store, keyPool, s.pool); err != nil {
		log.Printf("roster: failed to persist control number pool: %v", err)
	}
}

// CalculateStats aggregates a member list. Absent fees count as zero and year
// levels outside the fixed enumeration are ignored.
func CalculateStats(members []Member) Stats {
	stats := Stats{
		TotalMembers: len(members),
		YearCounts:   make(map[string]int, len(SchoolYears)),
	}
	for _, year := range SchoolYears {
		stats.YearCounts[year] = 0
	}

	for _, m := range members {
		stats.TotalRevenue += m.MembershipFee
		if _, ok := stats.YearCounts[m.SchoolYear]; ok {
			stats.YearCounts[m.SchoolYear]++
		}
	}

	return stats
}
