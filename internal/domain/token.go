package domain

// SessionToken is what a successful login returns: a stateless signed bearer
// token. There is no refresh token and no server-side revocation list; the
// token is valid until its embedded expiry.
type SessionToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"` // always "bearer"
}
