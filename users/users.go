package users

import (
	"maps"
	"time"

	"github.com/jrsteele09/go-grant-server/subject"
	"golang.org/x/crypto/bcrypt"
)

type User struct {
	ID           string    `json:"id,omitempty"`         // Unique identifier for the user
	DomainID     string    `json:"domain_id,omitempty"`  // Security domain the user belongs to
	Email        string    `json:"email,omitempty"`      // User's email address
	Username     string    `json:"username,omitempty"`   // Unique username within the domain
	PasswordHash string    `json:"-"`                    // Hashed version of the user's password - never serialize
	FirstName    string    `json:"first_name,omitempty"` // First name of the user
	LastName     string    `json:"last_name,omitempty"`  // Last name of the user
	CreatedAt    time.Time `json:"created_at,omitempty"`
	LastLogin    time.Time `json:"last_login,omitempty"`

	// Source is the identity provider (or extension grant) the user came from; empty for local users.
	Source string `json:"source,omitempty"`
	// ExternalID is the user's identifier at Source.
	ExternalID string `json:"external_id,omitempty"`

	AdditionalInformation map[string]any `json:"additional_information,omitempty"`

	Verified bool `json:"verified,omitempty"` // Verified, has the user verified who they are
	Blocked  bool `json:"blocked,omitempty"`  // Blocked, has the user been blocked from logging in
}

// Clone returns a copy of the user that shares no mutable state with u.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.AdditionalInformation = maps.Clone(u.AdditionalInformation)
	return &c
}

// ExternalUser is a user asserted by an identity provider or an extension grant.
type ExternalUser struct {
	ID                    string
	Username              string
	Email                 string
	FirstName             string
	LastName              string
	AdditionalInformation map[string]any
}

// SubjectID returns the identifiers the token subject is generated from.
func (u *User) SubjectID() subject.UserID {
	return subject.UserID{ID: u.ID, Source: u.Source, ExternalID: u.ExternalID}
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
