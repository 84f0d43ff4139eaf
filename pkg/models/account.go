package models

import "time"

// expirySkew is subtracted from the stored expiry so tokens are refreshed
// slightly before the provider would reject them.
const expirySkew = 30 * time.Second

// Account is one authenticated link to a provider, owned by a user.
type Account struct {
	ID           int64     `json:"id"`
	UserID       string    `json:"user_id"`
	Provider     Provider  `json:"provider"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	Expiry       time.Time `json:"expiry,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Expired reports whether the access token needs a refresh before use.
// A zero expiry means the token never expires.
func (a *Account) Expired() bool {
	if a.Expiry.IsZero() {
		return false
	}
	return time.Now().After(a.Expiry.Add(-expirySkew))
}
