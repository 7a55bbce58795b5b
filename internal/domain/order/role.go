package order

// Role is the marketplace role of the acting user
type Role string

const (
	RoleBuyer      Role = "buyer"
	RoleArtisan    Role = "artisan"
	RoleSupplier   Role = "supplier"
	RoleFinance    Role = "finance"
	RoleSupervisor Role = "supervisor"
	RoleDriver     Role = "driver"
	RoleAdmin      Role = "admin"
)

// ParseRole normalizes a role name coming from the session or the server
func ParseRole(raw string) (Role, bool) {
	r := Role(normalizeToken(raw))
	switch r {
	case "customer":
		r = RoleBuyer
	case "delivery", "delivery_driver":
		r = RoleDriver
	}
	return r, r.IsValid()
}

// IsValid checks if the role is known
func (r Role) IsValid() bool {
	switch r {
	case RoleBuyer, RoleArtisan, RoleSupplier, RoleFinance, RoleSupervisor, RoleDriver, RoleAdmin:
		return true
	}
	return false
}

// String returns the string representation of Role
func (r Role) String() string {
	return string(r)
}

// CanViewAll reports whether the role lists every order rather than its own
func (r Role) CanViewAll() bool {
	return r == RoleSupervisor || r == RoleAdmin
}

// Actor identifies who is attempting an action
type Actor struct {
	ID   string
	Role Role
}
