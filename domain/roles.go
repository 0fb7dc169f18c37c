package domain

// Role identifies one of the four fixed account types served by the
// backend. Affiliates and customers may authenticate through OAuth
// providers; admins and operators are password-only.
type Role string

const (
	RoleAffiliate Role = "affiliate"
	RoleCustomer  Role = "customer"
	RoleAdmin     Role = "admin"
	RoleOperator  Role = "operator"
)

// AllRoles lists every supported role. The set is closed: unknown role
// strings are rejected at the API boundary.
var AllRoles = []Role{RoleAffiliate, RoleCustomer, RoleAdmin, RoleOperator}

// ParseRole validates a role string coming off the wire.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAffiliate, RoleCustomer, RoleAdmin, RoleOperator:
		return Role(s), true
	}
	return "", false
}

// OAuthCapable reports whether accounts of this role may log in or
// register through a federated identity provider.
func (r Role) OAuthCapable() bool {
	return r == RoleAffiliate || r == RoleCustomer
}

// Counterpart returns the other OAuth-capable role. Federation conflict
// detection only ever crosses the affiliate/customer boundary.
func (r Role) Counterpart() (Role, bool) {
	switch r {
	case RoleAffiliate:
		return RoleCustomer, true
	case RoleCustomer:
		return RoleAffiliate, true
	}
	return "", false
}

// PasswordResetAllowed reports whether the role may use the self-serve
// password reset flow. Operators are provisioned by their supervisor
// and must go through them instead.
func (r Role) PasswordResetAllowed() bool {
	return r != RoleOperator
}
