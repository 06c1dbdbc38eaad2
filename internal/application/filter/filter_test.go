package filter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/travel-approval/internal/domain/apperr"
	"github.com/garyjia/travel-approval/internal/domain/entity"
	"github.com/garyjia/travel-approval/internal/domain/role"
)

func int64Ptr(v int64) *int64 { return &v }

// sampleRequests covers every status and team across two requesters
func sampleRequests() []*entity.TravelRequest {
	return []*entity.TravelRequest{
		{ID: 1, RequesterID: 10, Status: entity.StatusSubmitted, ProjectID: int64Ptr(5)},
		{ID: 2, RequesterID: 11, Status: entity.StatusSubmitted},
		{ID: 3, RequesterID: 10, Status: entity.StatusPMApproved, AssignedOperationsTeam: "operations_ksa"},
		{ID: 4, RequesterID: 11, Status: entity.StatusPMApproved, AssignedOperationsTeam: "operations_uae", ProjectID: int64Ptr(5)},
		{ID: 5, RequesterID: 11, Status: entity.StatusPMRejected},
		{ID: 6, RequesterID: 10, Status: entity.StatusOperationsCompleted, AssignedOperationsTeam: "operations_ksa"},
		{ID: 7, RequesterID: 12, Status: entity.StatusOperationsCompleted, AssignedOperationsTeam: "operations_uae"},
	}
}

func visibleIDs(f Filter) []int64 {
	var ids []int64
	for _, r := range sampleRequests() {
		if f.Matches(r) {
			ids = append(ids, r.ID)
		}
	}
	return ids
}

func allFlagCombos() []Flags {
	var combos []Flags
	for _, needs := range []bool{false, true} {
		for _, mine := range []bool{false, true} {
			for _, history := range []bool{false, true} {
				for _, status := range []string{"", entity.StatusSubmitted, entity.StatusPMApproved} {
					combos = append(combos, Flags{NeedsApproval: needs, MyRequestsOnly: mine, History: history, Status: status})
				}
			}
		}
	}
	return combos
}

func TestBuild_ManagerAlwaysOwnRequests(t *testing.T) {
	actor := &role.Actor{ID: 10, Role: role.Manager}
	for _, flags := range allFlagCombos() {
		f, err := Build(actor, flags)
		require.NoError(t, err)
		for _, r := range sampleRequests() {
			if f.Matches(r) {
				assert.Equal(t, int64(10), r.RequesterID, "flags %+v leaked request %d", flags, r.ID)
			}
		}
	}
}

func TestBuild_OperationsAlwaysOwnTeam(t *testing.T) {
	actor := &role.Actor{ID: 20, Role: role.OperationsKSA}
	for _, flags := range allFlagCombos() {
		f, err := Build(actor, flags)
		require.NoError(t, err)
		for _, r := range sampleRequests() {
			if f.Matches(r) {
				assert.Equal(t, "operations_ksa", r.AssignedOperationsTeam, "flags %+v leaked request %d", flags, r.ID)
			}
		}
	}
}

func TestBuild_RoleViews(t *testing.T) {
	tests := []struct {
		name  string
		actor *role.Actor
		flags Flags
		want  []int64
	}{
		{"pm sees all", &role.Actor{ID: 30, Role: role.PM}, Flags{}, []int64{1, 2, 3, 4, 5, 6, 7}},
		{"pm needs approval", &role.Actor{ID: 30, Role: role.PM}, Flags{NeedsApproval: true}, []int64{1, 2}},
		{"pm my requests", &role.Actor{ID: 11, Role: role.PM}, Flags{MyRequestsOnly: true}, []int64{2, 4, 5}},
		{"my requests wins over needs approval", &role.Actor{ID: 11, Role: role.PM}, Flags{MyRequestsOnly: true, NeedsApproval: true}, []int64{2, 4, 5}},
		{"admin sees all", &role.Actor{ID: 1, Role: role.Admin}, Flags{}, []int64{1, 2, 3, 4, 5, 6, 7}},
		{"ksa pending work", &role.Actor{ID: 20, Role: role.OperationsKSA}, Flags{}, []int64{3}},
		{"ksa history", &role.Actor{ID: 20, Role: role.OperationsKSA}, Flags{History: true}, []int64{6}},
		{"uae pending work", &role.Actor{ID: 21, Role: role.OperationsUAE}, Flags{}, []int64{4}},
		{"manager ignores needs approval", &role.Actor{ID: 10, Role: role.Manager}, Flags{NeedsApproval: true}, []int64{1, 3, 6}},
		{"pm project filter", &role.Actor{ID: 30, Role: role.PM}, Flags{ProjectID: int64Ptr(5)}, []int64{1, 4}},
		{"explicit status anded", &role.Actor{ID: 30, Role: role.PM}, Flags{Status: entity.StatusOperationsCompleted}, []int64{6, 7}},
		{"explicit status cannot widen ops view", &role.Actor{ID: 20, Role: role.OperationsKSA}, Flags{Status: entity.StatusOperationsCompleted}, nil},
		{"admin acting as uae", &role.Actor{ID: 1, Role: role.Admin, ActiveRole: role.OperationsUAE}, Flags{}, []int64{4}},
		{"admin acting as manager", &role.Actor{ID: 10, Role: role.Admin, ActiveRole: role.Manager}, Flags{}, []int64{1, 3, 6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Build(tt.actor, tt.flags)
			require.NoError(t, err)
			assert.Equal(t, tt.want, visibleIDs(f))
		})
	}
}

func TestBuild_Errors(t *testing.T) {
	_, err := Build(nil, Flags{})
	assert.True(t, errors.Is(err, apperr.ErrUnauthenticated))

	_, err = Build(&role.Actor{ID: 1, Role: role.PM}, Flags{Status: "archived"})
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))

	_, err = Build(&role.Actor{ID: 1, Role: role.PM}, Flags{Limit: -1})
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))

	_, err = Build(&role.Actor{ID: 1, Role: role.Role("guest")}, Flags{})
	assert.True(t, errors.Is(err, apperr.ErrForbidden))
}

func TestBuild_Paging(t *testing.T) {
	actor := &role.Actor{ID: 1, Role: role.PM}

	f, err := Build(actor, Flags{})
	require.NoError(t, err)
	assert.Equal(t, DefaultLimit, f.Limit)
	assert.True(t, f.Unrestricted())

	f, err = Build(actor, Flags{Limit: 10000, Offset: 5})
	require.NoError(t, err)
	assert.Equal(t, MaxLimit, f.Limit)
	assert.Equal(t, 5, f.Offset)

	all := f.WithoutPaging()
	assert.Equal(t, 0, all.Limit)
	assert.Equal(t, 0, all.Offset)
}
