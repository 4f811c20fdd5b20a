package model

import "time"

// User represents a library member as stored in the `users` table.
// MemberID is the external identifier handed out by the library; when a
// user has none, their email serves as the external identifier on
// transactions.  The two transaction lists are kept in the
// user_transactions association table and populated on load; a
// transaction id appears in exactly one of the two lists.
//
// Fields:
//  ID                 – primary key identifier.
//  FullName           – display name.
//  MemberID           – optional external member identifier (unique when set).
//  Email              – unique email address.
//  PasswordHash       – bcrypt hashed password.
//  Age                – optional age.
//  DOB                – optional date of birth (free-form, as registered).
//  Gender             – optional gender.
//  Address            – optional postal address.
//  MobileNumber       – contact number.
//  Points             – loyalty points balance.
//  IsAdmin            – whether the user may perform admin operations.
//  ActiveTransactions – ids of currently open lending episodes.
//  PrevTransactions   – ids of completed lending episodes.
//  CreatedAt          – creation timestamp.
type User struct {
	ID                 uint64    `json:"id"`                 // users.id
	FullName           string    `json:"userFullName"`       // users.user_full_name
	MemberID           string    `json:"memberId"`           // users.member_id (empty when unset)
	Email              string    `json:"email"`              // users.email
	PasswordHash       string    `json:"-"`                  // users.password_hash
	Age                int       `json:"age"`                // users.age
	DOB                string    `json:"dob"`                // users.dob
	Gender             string    `json:"gender"`             // users.gender
	Address            string    `json:"address"`            // users.address
	MobileNumber       string    `json:"mobileNumber"`       // users.mobile_number
	Points             int       `json:"points"`             // users.points
	IsAdmin            bool      `json:"isAdmin"`            // users.is_admin
	ActiveTransactions []uint64  `json:"activeTransactions"` // user_transactions (list='active')
	PrevTransactions   []uint64  `json:"prevTransactions"`   // user_transactions (list='prev')
	CreatedAt          time.Time `json:"createdAt"`          // users.created_at
}

// ExternalID returns the identifier used on transactions for this user:
// the member id when present, the email otherwise.
func (u *User) ExternalID() string {
	if u.MemberID != "" {
		return u.MemberID
	}
	return u.Email
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA-256 hash of the token value is stored.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
