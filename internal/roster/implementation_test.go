// internal/roster/implementation_test.go
package roster

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"memberdesk/pkg/kvstore"
)

var june1 = time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t testing.TB) kvstore.Store {
	t.Helper()

	store, err := kvstore.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestService(t testing.TB, store kvstore.Store) Service {
	t.Helper()

	svc, err := NewService(context.Background(), store)
	require.NoError(t, err)
	svc.(*service).now = func() time.Time { return june1 }
	return svc
}

func registerInput(name, number string) RegisterInput {
	return RegisterInput{
		Name:          name,
		StudentNumber: number,
		SchoolYear:    "1st Year",
		MembershipFee: DefaultMembershipFee,
	}
}

func TestRegisterAssignsControlNumberAndDate(t *testing.T) {
	svc := newTestService(t, newTestStore(t))
	ctx := context.Background()

	member, err := svc.Register(ctx, registerInput("Ana", "21-001"))
	require.NoError(t, err)

	assert.Equal(t, "CN-06-01-001", member.ControlNumber)
	assert.Equal(t, "2025-06-01", member.RegistrationDate)
	assert.NotEmpty(t, member.ID)

	second, err := svc.Register(ctx, registerInput("Ben", "21-002"))
	require.NoError(t, err)
	assert.Equal(t, "CN-06-01-002", second.ControlNumber)
}

func TestRegisterRejectsDuplicateStudentNumber(t *testing.T) {
	svc := newTestService(t, newTestStore(t))
	ctx := context.Background()

	_, err := svc.Register(ctx, registerInput("Ana", "21-001"))
	require.NoError(t, err)

	_, err = svc.Register(ctx, registerInput("Ben", "21-001"))
	assert.ErrorIs(t, err, ErrDuplicateStudentNumber)

	members, err := svc.Members(ctx)
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService(t, newTestStore(t))
	ctx := context.Background()

	cases := []struct {
		name  string
		input RegisterInput
	}{
		{"empty name", RegisterInput{StudentNumber: "21-001", SchoolYear: "1st Year", MembershipFee: 20}},
		{"whitespace name", RegisterInput{Name: "   ", StudentNumber: "21-001", SchoolYear: "1st Year", MembershipFee: 20}},
		{"empty student number", RegisterInput{Name: "Ana", SchoolYear: "1st Year", MembershipFee: 20}},
		{"empty school year", RegisterInput{Name: "Ana", StudentNumber: "21-001", MembershipFee: 20}},
		{"zero fee", RegisterInput{Name: "Ana", StudentNumber: "21-001", SchoolYear: "1st Year"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tc.input)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestDeleteReturnsControlNumberForReuse(t *testing.T) {
	svc := newTestService(t, newTestStore(t))
	ctx := context.Background()

	ana, err := svc.Register(ctx, registerInput("Ana", "21-001"))
	require.NoError(t, err)
	require.Equal(t, "CN-06-01-001", ana.ControlNumber)

	require.NoError(t, svc.Delete(ctx, ana.ID))

	ben, err := svc.Register(ctx, registerInput("Ben", "21-002"))
	require.NoError(t, err)
	assert.Equal(t, "CN-06-01-001", ben.ControlNumber)
}

func TestDeleteReusesSmallestFreedNumberFirst(t *testing.T) {
	svc := newTestService(t, newTestStore(t))
	ctx := context.Background()

	var members []*Member
	for i := 1; i <= 3; i++ {
		m, err := svc.Register(ctx, registerInput(fmt.Sprintf("M%d", i), fmt.Sprintf("21-%03d", i)))
		require.NoError(t, err)
		members = append(members, m)
	}

	// Free 003 then 002; the next allocation must hand out 002.
	require.NoError(t, svc.Delete(ctx, members[2].ID))
	require.NoError(t, svc.Delete(ctx, members[1].ID))

	next, err := svc.Register(ctx, registerInput("New", "21-100"))
	require.NoError(t, err)
	assert.Equal(t, "CN-06-01-002", next.ControlNumber)
}

func TestDeleteNotFound(t *testing.T) {
	svc := newTestService(t, newTestStore(t))
	err := svc.Delete(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdatePreservesControlNumberAndDate(t *testing.T) {
	svc := newTestService(t, newTestStore(t))
	ctx := context.Background()

	member, err := svc.Register(ctx, registerInput("Ana", "21-001"))
	require.NoError(t, err)

	updated, err := svc.Update(ctx, member.ID, UpdateInput{
		Name:          "Ana Cruz",
		StudentNumber: "21-099",
		SchoolYear:    "2nd Year",
		MembershipFee: 0,
	})
	require.NoError(t, err)

	assert.Equal(t, "Ana Cruz", updated.Name)
	assert.Equal(t, "21-099", updated.StudentNumber)
	assert.Equal(t, "2nd Year", updated.SchoolYear)
	assert.Equal(t, float64(0), updated.MembershipFee)
	assert.Equal(t, member.ControlNumber, updated.ControlNumber)
	assert.Equal(t, member.RegistrationDate, updated.RegistrationDate)
}

func TestUpdateRejectsStudentNumberOfAnotherMember(t *testing.T) {
	svc := newTestService(t, newTestStore(t))
	ctx := context.Background()

	_, err := svc.Register(ctx, registerInput("Ana", "21-001"))
	require.NoError(t, err)
	ben, err := svc.Register(ctx, registerInput("Ben", "21-002"))
	require.NoError(t, err)

	_, err = svc.Update(ctx, ben.ID, UpdateInput{
		Name:          "Ben",
		StudentNumber: "21-001",
		SchoolYear:    "1st Year",
		MembershipFee: 20,
	})
	assert.ErrorIs(t, err, ErrDuplicateStudentNumber)
}

func TestUpdateKeepingOwnStudentNumber(t *testing.T) {
	svc := newTestService(t, newTestStore(t))
	ctx := context.Background()

	member, err := svc.Register(ctx, registerInput("Ana", "21-001"))
	require.NoError(t, err)

	_, err = svc.Update(ctx, member.ID, UpdateInput{
		Name:          "Ana Cruz",
		StudentNumber: "21-001",
		SchoolYear:    "1st Year",
		MembershipFee: 25,
	})
	assert.NoError(t, err)
}

func TestUpdateNotFound(t *testing.T) {
	svc := newTestService(t, newTestStore(t))

	_, err := svc.Update(context.Background(), "no-such-id", UpdateInput{
		Name:          "Ana",
		StudentNumber: "21-001",
		SchoolYear:    "1st Year",
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteAllClearsRosterAndPool(t *testing.T) {
	svc := newTestService(t, newTestStore(t))
	ctx := context.Background()

	ana, err := svc.Register(ctx, registerInput("Ana", "21-001"))
	require.NoError(t, err)
	_, err = svc.Register(ctx, registerInput("Ben", "21-002"))
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, ana.ID))

	require.NoError(t, svc.DeleteAll(ctx))

	members, err := svc.Members(ctx)
	require.NoError(t, err)
	assert.Empty(t, members)

	// Pool was cleared too: the next allocation starts over at 001.
	next, err := svc.Register(ctx, registerInput("Cara", "21-003"))
	require.NoError(t, err)
	assert.Equal(t, "CN-06-01-001", next.ControlNumber)
}

func TestQueryFilters(t *testing.T) {
	svc := newTestService(t, newTestStore(t))
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Name: "Ana Cruz", StudentNumber: "21-001", SchoolYear: "1st Year", MembershipFee: 20})
	require.NoError(t, err)
	_, err = svc.Register(ctx, RegisterInput{Name: "Ben Reyes", StudentNumber: "22-002", SchoolYear: "2nd Year", MembershipFee: 20})
	require.NoError(t, err)
	_, err = svc.Register(ctx, RegisterInput{Name: "Carla Santos", StudentNumber: "21-003", SchoolYear: "1st Year", MembershipFee: 20})
	require.NoError(t, err)

	t.Run("unset filter matches everything in insertion order", func(t *testing.T) {
		members, err := svc.Query(ctx, Filter{})
		require.NoError(t, err)
		require.Len(t, members, 3)
		assert.Equal(t, "Ana Cruz", members[0].Name)
		assert.Equal(t, "Ben Reyes", members[1].Name)
		assert.Equal(t, "Carla Santos", members[2].Name)
	})

	t.Run("search is case-insensitive against name", func(t *testing.T) {
		members, err := svc.Query(ctx, Filter{Search: "ana"})
		require.NoError(t, err)
		require.Len(t, members, 1)
		assert.Equal(t, "Ana Cruz", members[0].Name)
	})

	t.Run("search matches student number", func(t *testing.T) {
		members, err := svc.Query(ctx, Filter{Search: "22-"})
		require.NoError(t, err)
		require.Len(t, members, 1)
		assert.Equal(t, "Ben Reyes", members[0].Name)
	})

	t.Run("search matches control number", func(t *testing.T) {
		members, err := svc.Query(ctx, Filter{Search: "cn-06-01-003"})
		require.NoError(t, err)
		require.Len(t, members, 1)
		assert.Equal(t, "Carla Santos", members[0].Name)
	})

	t.Run("year filter is exact", func(t *testing.T) {
		members, err := svc.Query(ctx, Filter{YearLevel: "1st Year"})
		require.NoError(t, err)
		assert.Len(t, members, 2)
	})

	t.Run("search and year combine", func(t *testing.T) {
		members, err := svc.Query(ctx, Filter{Search: "santos", YearLevel: "1st Year"})
		require.NoError(t, err)
		require.Len(t, members, 1)
		assert.Equal(t, "Carla Santos", members[0].Name)
	})

	t.Run("no match", func(t *testing.T) {
		members, err := svc.Query(ctx, Filter{Search: "zzz"})
		require.NoError(t, err)
		assert.Empty(t, members)
	})
}

func TestCalculateStats(t *testing.T) {
	members := []Member{
		{Name: "A", SchoolYear: "1st Year", MembershipFee: 20},
		{Name: "B", SchoolYear: "2nd Year", MembershipFee: 0},
		{Name: "C", SchoolYear: "1st Year", MembershipFee: 50},
	}

	stats := CalculateStats(members)
	assert.Equal(t, 3, stats.TotalMembers)
	assert.Equal(t, float64(70), stats.TotalRevenue)
	assert.Equal(t, 2, stats.YearCounts["1st Year"])
	assert.Equal(t, 1, stats.YearCounts["2nd Year"])
	assert.Equal(t, 0, stats.YearCounts["3rd Year"])
	assert.Equal(t, 0, stats.YearCounts["4th Year"])
}

func TestCalculateStatsIgnoresUnknownYear(t *testing.T) {
	members := []Member{
		{Name: "A", SchoolYear: "5th Year", MembershipFee: 20},
		{Name: "B", SchoolYear: "", MembershipFee: 10},
	}

	stats := CalculateStats(members)
	assert.Equal(t, 2, stats.TotalMembers)
	assert.Equal(t, float64(30), stats.TotalRevenue)
	for _, year := range SchoolYears {
		assert.Equal(t, 0, stats.YearCounts[year])
	}
}

func TestCalculateStatsEmpty(t *testing.T) {
	stats := CalculateStats(nil)
	assert.Equal(t, 0, stats.TotalMembers)
	assert.Equal(t, float64(0), stats.TotalRevenue)
	assert.Len(t, stats.YearCounts, 4)
}

func TestRosterSurvivesReload(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	svc := newTestService(t, store)
	ana, err := svc.Register(ctx, registerInput("Ana", "21-001"))
	require.NoError(t, err)
	_, err = svc.Register(ctx, registerInput("Ben", "21-002"))
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, ana.ID))

	// A fresh engine over the same store sees the members and the freed pool.
	reloaded := newTestService(t, store)

	members, err := reloaded.Members(ctx)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "Ben", members[0].Name)

	next, err := reloaded.Register(ctx, registerInput("Cara", "21-003"))
	require.NoError(t, err)
	assert.Equal(t, "CN-06-01-001", next.ControlNumber)
}

func TestReplaceAllTakesControlNumbersVerbatim(t *testing.T) {
	svc := newTestService(t, newTestStore(t))
	ctx := context.Background()

	old, err := svc.Register(ctx, registerInput("Old", "20-000"))
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, old.ID))

	imported := []Member{
		{ID: "a", Name: "Ana", StudentNumber: "21-001", SchoolYear: "1st Year", MembershipFee: 20, ControlNumber: "CN-01-15-004", RegistrationDate: "2025-01-15"},
	}
	require.NoError(t, svc.ReplaceAll(ctx, imported))

	members, err := svc.Members(ctx)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "CN-01-15-004", members[0].ControlNumber)

	// The pool was cleared, so the old freed number is not reused.
	next, err := svc.Register(ctx, registerInput("Ben", "21-002"))
	require.NoError(t, err)
	assert.Equal(t, "CN-06-01-001", next.ControlNumber)
}

// No sequence of register and delete operations may ever leave two live
// members sharing a student number or a control number.
func TestUniquenessInvariantUnderRegisterDelete(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		store, err := kvstore.OpenInMemory()
		if err != nil {
			t.Fatalf("open store: %v", err)
		}
		defer store.Close()

		ctx := context.Background()
		svcIface, err := NewService(ctx, store)
		if err != nil {
			t.Fatalf("new service: %v", err)
		}
		svcIface.(*service).now = func() time.Time { return june1 }
		svc := svcIface

		var ids []string
		next := 0

		steps := rapid.IntRange(1, 60).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			if len(ids) > 0 && rapid.Bool().Draw(t, "delete") {
				idx := rapid.IntRange(0, len(ids)-1).Draw(t, "victim")
				if err := svc.Delete(ctx, ids[idx]); err != nil {
					t.Fatalf("delete: %v", err)
				}
				ids = append(ids[:idx], ids[idx+1:]...)
			} else {
				next++
				m, err := svc.Register(ctx, registerInput(fmt.Sprintf("M%d", next), fmt.Sprintf("21-%04d", next)))
				if err != nil {
					t.Fatalf("register: %v", err)
				}
				ids = append(ids, m.ID)
			}

			members, err := svc.Members(ctx)
			if err != nil {
				t.Fatalf("members: %v", err)
			}
			seenNumbers := make(map[string]bool)
			seenControls := make(map[string]bool)
			for _, m := range members {
				if seenNumbers[m.StudentNumber] {
					t.Fatalf("duplicate student number %s", m.StudentNumber)
				}
				if seenControls[m.ControlNumber] {
					t.Fatalf("duplicate control number %s", m.ControlNumber)
				}
				seenNumbers[m.StudentNumber] = true
				seenControls[m.ControlNumber] = true
			}
		}
	})
}
