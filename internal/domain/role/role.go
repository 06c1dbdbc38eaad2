package role

// Role identifies what an actor is allowed to do
type Role string

const (
	Manager       Role = "manager"
	PM            Role = "pm"
	OperationsKSA Role = "operations_ksa"
	OperationsUAE Role = "operations_uae"
	Admin         Role = "admin"
)

var validRoles = map[Role]bool{
	Manager:       true,
	PM:            true,
	OperationsKSA: true,
	OperationsUAE: true,
	Admin:         true,
}

// All returns every known role in a stable order
func All() []Role {
	return []Role{Manager, PM, OperationsKSA, OperationsUAE, Admin}
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// IsValid returns true if the role is one of the known roles
func (r Role) IsValid() bool {
	return validRoles[r]
}

// IsOperationsTeam returns true for the two regional operations pools
func (r Role) IsOperationsTeam() bool {
	return r == OperationsKSA || r == OperationsUAE
}

// Actor is the authenticated user making a call
type Actor struct {
	ID         int64
	Email      string
	Role       Role
	ActiveRole Role // admin-only override, empty when unset
}

// EffectiveRole returns the role used for authorization and view filtering.
// Only admins may act as another role; the override is ignored for everyone else.
func EffectiveRole(actor *Actor) Role {
	if actor == nil {
		return ""
	}
	if actor.Role == Admin {
		if actor.ActiveRole != "" && actor.ActiveRole.IsValid() {
			return actor.ActiveRole
		}
		return Admin
	}
	return actor.Role
}

// IsAdmin reports whether the actor's stored role is admin, regardless of override
func (a *Actor) IsAdmin() bool {
	return a != nil && a.Role == Admin
}
