package services

import (
	"github.com/laundryhub/laundryhub-auth/domain"
)

// RoleStrategy bundles everything role-dependent behind one closed
// table entry: the backing account repository, claim shaping, and the
// role's lockout messaging. All role branching in the services goes
// through this table instead of string-keyed conditionals.
type RoleStrategy struct {
	Role     domain.Role
	Accounts domain.AccountRepository

	// ShapeClaims sets the role-specific public-id claim on an access
	// token (affiliateId, customerId, adminId or operatorId).
	ShapeClaims func(c *AccessClaims, a *domain.Account)

	// LockedMessage is the role-specific AccountLocked message.
	LockedMessage string
}

// RoleRegistry is the closed role table assembled at startup.
type RoleRegistry map[domain.Role]*RoleStrategy

// NewRoleRegistry wires the four role collections into the table.
func NewRoleRegistry(affiliates, customers, admins, operators domain.AccountRepository) RoleRegistry {
	return RoleRegistry{
		domain.RoleAffiliate: {
			Role:     domain.RoleAffiliate,
			Accounts: affiliates,
			ShapeClaims: func(c *AccessClaims, a *domain.Account) {
				c.AffiliateID = a.PublicID
			},
			LockedMessage: "Your affiliate account has been deactivated. Please contact support.",
		},
		domain.RoleCustomer: {
			Role:     domain.RoleCustomer,
			Accounts: customers,
			ShapeClaims: func(c *AccessClaims, a *domain.Account) {
				c.CustomerID = a.PublicID
			},
			LockedMessage: "Your account has been deactivated. Please contact support.",
		},
		domain.RoleAdmin: {
			Role:     domain.RoleAdmin,
			Accounts: admins,
			ShapeClaims: func(c *AccessClaims, a *domain.Account) {
				c.AdminID = a.PublicID
			},
			LockedMessage: "This admin account has been deactivated.",
		},
		domain.RoleOperator: {
			Role:     domain.RoleOperator,
			Accounts: operators,
			ShapeClaims: func(c *AccessClaims, a *domain.Account) {
				c.OperatorID = a.PublicID
			},
			LockedMessage: "Your operator account has been deactivated. Please contact your supervisor.",
		},
	}
}

// Get looks a strategy up; unknown roles are rejected at the API
// boundary, so a miss here is a programming error surfaced by callers.
func (r RoleRegistry) Get(role domain.Role) (*RoleStrategy, bool) {
	s, ok := r[role]
	return s, ok
}
