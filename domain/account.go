package domain

import "time"

// AccountStatus gates login.
type AccountStatus string

const (
	AccountStatusActive AccountStatus = "active"
	AccountStatusLocked AccountStatus = "locked"
)

// SocialAccount is the per-provider sub-document stored under an
// account's social_accounts map. Each provider occupies its own key;
// linking one provider never touches another's sub-document. The
// provider tokens are encrypted before they reach this struct.
type SocialAccount struct {
	ProviderID   string    `bson:"provider_id" json:"providerId"`
	Email        string    `bson:"email" json:"email"`
	Name         string    `bson:"name" json:"name"`
	AccessToken  string    `bson:"access_token" json:"-"`
	RefreshToken string    `bson:"refresh_token,omitempty" json:"-"`
	LinkedAt     time.Time `bson:"linked_at" json:"linkedAt"`
}

// Account is one record in one of the four role-typed collections.
// PublicID is the role-facing identifier surfaced in token claims
// (affiliateId, customerId, adminId or operatorId depending on Role).
type Account struct {
	ID       string        `bson:"_id,omitempty" json:"id"`
	PublicID string        `bson:"public_id" json:"publicId"`
	Role     Role          `bson:"role" json:"role"`
	Username string        `bson:"username" json:"username"`
	Email    string        `bson:"email" json:"email"`
	Status   AccountStatus `bson:"status" json:"status"`

	FirstName string `bson:"first_name" json:"firstName"`
	LastName  string `bson:"last_name" json:"lastName"`

	// PasswordHash is empty for pure-OAuth accounts until a reset flow
	// sets one. The hash embeds its own salt.
	PasswordHash          string `bson:"password_hash,omitempty" json:"-"`
	RequirePasswordChange bool   `bson:"require_password_change,omitempty" json:"-"`

	SocialAccounts map[string]SocialAccount `bson:"social_accounts,omitempty" json:"-"`

	// Role-specific display fields. Only the ones meaningful for the
	// account's role are populated.
	CompanyName  string `bson:"company_name,omitempty" json:"companyName,omitempty"`
	Address      string `bson:"address,omitempty" json:"address,omitempty"`
	Phone        string `bson:"phone,omitempty" json:"phone,omitempty"`
	SupervisorID string `bson:"supervisor_id,omitempty" json:"supervisorId,omitempty"`

	LastLoginAt *time.Time `bson:"last_login_at,omitempty" json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `bson:"created_at" json:"createdAt"`
}

// SocialLink returns the sub-document for a provider, if linked.
func (a *Account) SocialLink(provider string) (SocialAccount, bool) {
	link, ok := a.SocialAccounts[provider]
	return link, ok
}

// PublicProfile is the descriptive payload a federation conflict is
// allowed to carry: enough for the user to recognize the other-role
// account, never credentials or tokens.
type PublicProfile struct {
	Role        Role   `json:"role"`
	Email       string `json:"email"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	CompanyName string `json:"companyName,omitempty"`
}

// Profile shapes the conflict payload for an account.
func (a *Account) Profile() PublicProfile {
	return PublicProfile{
		Role:        a.Role,
		Email:       a.Email,
		FirstName:   a.FirstName,
		LastName:    a.LastName,
		CompanyName: a.CompanyName,
	}
}
