package models

import "github.com/golang-jwt/jwt/v5"

// CaptchaClaims is the JWT claim set carried by a verification token.
// A token is minted only when a challenge session reaches the verified
// state, and is consumed exactly once by the contact submission endpoint.
type CaptchaClaims struct {
	Type      string `json:"type"` // always "captcha"
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}
