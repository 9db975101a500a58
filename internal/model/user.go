// Package model defines the data structures used throughout the application.
// Every struct here is persisted as JSON inside a store slot, so the json
// tags are the on-disk format and must stay stable.
package model

// AuthType records how an account was registered. A user can only log in
// through the method they registered with.
type AuthType string

const (
	AuthPassword AuthType = "password"
	AuthOAuth2   AuthType = "oauth2"
)

// DefaultAvatar is assigned to accounts registered with email and password.
const DefaultAvatar = "/images/profile.png"

// User represents a registered account.
//
// Email is the identity key: it is unique across the users slot and never
// changes. For OAuth2 accounts Password holds the email as a placeholder and
// is never compared.
type User struct {
	Name     string   `json:"name"`
	Avatar   string   `json:"avatar"`
	Email    string   `json:"email"`
	Password string   `json:"password"`
	AuthType AuthType `json:"authType"`
}
