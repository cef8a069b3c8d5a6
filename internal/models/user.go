package models

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/elithrar/simple-scrypt"
)

const (
	// RoleUser is the role of a normal user - users can write reviews
	RoleUser = "user"
	// RolePublisher is the role of a user that is able to publish bootcamps and courses
	RolePublisher = "publisher"
	// RoleAdmin is the role of an administrator that may do anything
	RoleAdmin = "admin"

	// ResetTokenLifetime is the time a password reset token stays valid
	ResetTokenLifetime = 10 * time.Minute
	// Number of random bytes in a password reset token
	resetTokenBytes = 20
)

// User defines a user of the application and the role it has
type User struct {
	// Internal user ID
	ID string `db:"id" json:"id" bson:"_id"`
	// The display name of the user
	Name string `db:"name" json:"name" bson:"name"`
	// The e-mail address - used to log in
	Email string `db:"email" json:"email" bson:"email"`
	// One of the Role* constants
	Role string `db:"role" json:"role" bson:"role"`
	// The hashed password for authentication
	PasswordHash string `db:"passwordHash" json:"-" bson:"passwordHash"`
	// SHA-256 hash of the password reset token currently issued, if any
	ResetPasswordToken string `db:"resetPasswordToken" json:"-" bson:"resetPasswordToken,omitempty"`
	// The moment the password reset token expires
	ResetPasswordExpire *time.Time `db:"resetPasswordExpire" json:"-" bson:"resetPasswordExpire,omitempty"`
	// Creation date of this user
	CreatedAt time.Time `db:"createdAt" json:"createdAt" bson:"createdAt"`
}

// UserRef is the short form of a user used when populating references
type UserRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ValidRole checks if the given role is a role users can have
func ValidRole(role string) bool {
	return role == RoleUser || role == RolePublisher || role == RoleAdmin
}

// Ref returns the reference form of the user
func (u *User) Ref() *UserRef {
	return &UserRef{ID: u.ID, Name: u.Name}
}

// SetPassword sets a new password creating a password hash from the incoming password and storing it in the user's
// PasswordHash property
func (u *User) SetPassword(pass string) error {
	hash, err := scrypt.GenerateFromPassword([]byte(pass), scrypt.DefaultParams)
	if err != nil {
		return fmt.Errorf("SetPassword: Error during password hashing: %v", err)
	}
	// The library already uses a string encoding here - so there is no need to encode further
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword checks if the given password corresponds to the hash stored in the user struct.
// It returns an error if the password does not match or an error occurs when loading the password hash from the user
func (u *User) CheckPassword(pass string) error {
	return scrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(pass))
}

// NewResetToken creates a new random password reset token. Only its hash is stored in the user - the plain token is
// returned to be sent to the user.
func (u *User) NewResetToken(now time.Time) (string, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("NewResetToken: cannot read random bytes: %v", err)
	}
	token := hex.EncodeToString(buf)
	expires := now.Add(ResetTokenLifetime)
	u.ResetPasswordToken = HashResetToken(token)
	u.ResetPasswordExpire = &expires
	return token, nil
}

// ClearResetToken removes a pending password reset token
func (u *User) ClearResetToken() {
	u.ResetPasswordToken = ""
	u.ResetPasswordExpire = nil
}

// HashResetToken returns the hash under which a reset token is stored
func HashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
