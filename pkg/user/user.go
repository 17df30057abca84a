// Package user defines the canonical user record shared between the backend
// API and the local session.
package user

// Role is the authorization role the backend assigns to an account.
type Role string

const (
	RoleClient Role = "client"
	RoleAgent  Role = "agent"
	RoleAdmin  Role = "admin"
)

// User is the profile record of an authenticated identity. The backend owns
// this record; the client only caches it inside the session.
type User struct {
	ID            string `json:"id"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	Email         string `json:"email"`
	Phone         string `json:"phone,omitempty"`
	Role          Role   `json:"role"`
	EmailVerified bool   `json:"emailVerified"`
	Active        bool   `json:"active"`
	PhotoURL      string `json:"photoURL,omitempty"`
}

// DisplayName returns a human-readable name, falling back to the email
// address when the profile has no name set.
func (u *User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Email
	}
}
