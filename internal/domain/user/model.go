package user

import "strings"

// User is the read side of the member account. Accounts are owned by the identity service,
// billing only stores the checkout provider customer reference.
type User struct {
	ID               string  `json:"id"`
	Email            string  `json:"email"`
	FirstName        string  `json:"first_name"`
	LastName         string  `json:"last_name"`
	StripeCustomerID *string `json:"-"`
}

// FullName falls back to the email, then the id, for accounts without a name
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name != "" {
		return name
	}
	if u.Email != "" {
		return u.Email
	}
	return u.ID
}
