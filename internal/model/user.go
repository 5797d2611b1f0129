package model

import "time"

// Roles a user account can hold. Signup defaults to RoleUser; the elevated
// roles gate tour management and booking administration.
const (
	RoleUser      = "user"
	RoleGuide     = "guide"
	RoleLeadGuide = "lead-guide"
	RoleAdmin     = "admin"
)

// ValidRole reports whether r is one of the known account roles.
func ValidRole(r string) bool {
	switch r {
	case RoleUser, RoleGuide, RoleLeadGuide, RoleAdmin:
		return true
	}
	return false
}

// User represents an application user record as stored in the `users` table.
// These structs are used internally by the repository layer; handlers define
// separate response types so the password hash and the pending-reset columns
// never leave the process.
//
// Fields:
//  ID                   – primary key identifier of the user.
//  Name                 – display name.
//  Email                – unique email address, stored lowercased.
//  Photo                – avatar filename (upload handling lives elsewhere).
//  PasswordHash         – bcrypt hashed password.
//  Role                 – account role (user, guide, lead-guide, admin).
//  PasswordChangedAt    – last password mutation; nil until the first change.
//  PasswordResetToken   – sha256 hex of the pending reset secret, nil otherwise.
//  PasswordResetExpires – expiry of the pending reset secret, nil otherwise.
//  Active               – soft-delete flag; inactive users are invisible to
//                         default lookups.
type User struct {
	ID                   uint64
	Name                 string
	Email                string
	Photo                string
	PasswordHash         string
	Role                 string
	PasswordChangedAt    *time.Time
	PasswordResetToken   *string
	PasswordResetExpires *time.Time
	Active               bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// ChangedPasswordAfter reports whether the password was mutated after the
// given token issue time. Comparison is at second resolution because JWT iat
// claims carry unix seconds.
func (u User) ChangedPasswordAfter(issuedAt time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return issuedAt.Unix() < u.PasswordChangedAt.Unix()
}
