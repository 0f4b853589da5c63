package domain

import "time"

// User represents a registered account. Verification and reset tokens are
// single-use: both the token and its expiry are cleared the moment they are
// consumed.
type User struct {
	ID                      string     `bson:"_id,omitempty" json:"id"`
	Name                    string     `bson:"name" json:"name"`
	Email                   string     `bson:"email" json:"email"`
	PasswordHash            string     `bson:"password_hash" json:"-"`
	IsVerified              bool       `bson:"is_verified" json:"isVerified"`
	VerificationToken       string     `bson:"verification_token,omitempty" json:"-"`
	VerificationTokenExpiry *time.Time `bson:"verification_token_expiry,omitempty" json:"-"`
	ResetToken              string     `bson:"reset_token,omitempty" json:"-"`
	ResetTokenExpiry        *time.Time `bson:"reset_token_expiry,omitempty" json:"-"`
	CreatedAt               time.Time  `bson:"created_at" json:"createdAt"`
	UpdatedAt               time.Time  `bson:"updated_at" json:"-"`
}

// PublicUser is the client-facing projection of a User. Credential and token
// fields never leave the server.
type PublicUser struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	IsVerified bool   `json:"isVerified"`
}

// Public returns the sanitized projection of the user.
func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		IsVerified: u.IsVerified,
	}
}

// ClearVerificationToken removes the verification token after consumption.
func (u *User) ClearVerificationToken() {
	u.VerificationToken = ""
	u.VerificationTokenExpiry = nil
}

// ClearResetToken removes the password reset token after consumption.
func (u *User) ClearResetToken() {
	u.ResetToken = ""
	u.ResetTokenExpiry = nil
}
