package service

import (
	"github.com/garyjia/travel-approval/internal/application/filter"
	"github.com/garyjia/travel-approval/internal/domain/entity"
	"github.com/garyjia/travel-approval/internal/domain/role"
)

// canView reports whether req falls inside any list view the actor can open.
// Operations teams see both their pending work and their history.
func canView(actor *role.Actor, req *entity.TravelRequest) bool {
	for _, flags := range []filter.Flags{{}, {History: true}} {
		f, err := filter.Build(actor, flags)
		if err == nil && f.Matches(req) {
			return true
		}
	}
	return false
}
