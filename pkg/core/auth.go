package core

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"
)

// Supported HTTP auth types.
const (
	AuthNone   = "none"
	AuthBearer = "bearer"
	AuthBasic  = "basic"
)

// minTokenLength is the shortest accepted shared secret.
const minTokenLength = 16

// SecureCompareString performs constant-time string comparison
func SecureCompareString(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// ValidateAuthToken rejects empty, short or obviously weak secrets.
func ValidateAuthToken(token string) error {
	if token == "" {
		return NewError(ErrInvalidParameter, "Authentication token cannot be empty").
			WithField("http-auth-token").
			WithGuidance("Provide a valid authentication token.")
	}

	if len(token) < minTokenLength {
		return NewError(ErrInvalidParameter, "Authentication token is too short").
			WithField("http-auth-token").
			WithGuidance("Use a token with at least 16 characters.")
	}

	weakTokens := []string{
		"password", "secret", "token", "admin", "test", "default",
		"12345", "123456", "password123", "secret123", "admin123",
	}

	lowerToken := strings.ToLower(token)
	for _, weak := range weakTokens {
		if strings.Contains(lowerToken, weak) {
			return NewError(ErrInvalidParameter, "Authentication token appears to be weak").
				WithField("http-auth-token").
				WithGuidance("Use a randomly generated authentication token.")
		}
	}

	return nil
}

// AuthResult represents the result of authentication
type AuthResult struct {
	Authorized bool
	Error      string
	Duration   time.Duration
}

// Authenticator checks HTTP requests against one configured credential.
// For basic auth the credential is "user:password".
type Authenticator struct {
	authType   string
	credential string
}

// NewAuthenticator validates the auth configuration.
func NewAuthenticator(authType, credential string) (*Authenticator, error) {
	switch authType {
	case "", AuthNone:
		return &Authenticator{authType: AuthNone}, nil
	case AuthBearer, AuthBasic:
		if credential == "" {
			return nil, NewError(ErrMissingParameter, "auth type "+authType+" requires a token").
				WithField("http-auth-token")
		}
		return &Authenticator{authType: authType, credential: credential}, nil
	}
	return nil, NewError(ErrInvalidParameter, "unknown auth type "+authType).
		WithField("http-auth-type").
		WithSuggestions(AuthNone, AuthBearer, AuthBasic)
}

// Type returns the configured auth type.
func (a *Authenticator) Type() string {
	return a.authType
}

// Required reports whether requests must carry credentials.
func (a *Authenticator) Required() bool {
	return a.authType != AuthNone
}

// Authenticate checks the request's credentials.
func (a *Authenticator) Authenticate(r *http.Request) AuthResult {
	switch a.authType {
	case AuthNone:
		return AuthResult{Authorized: true}
	case AuthBearer:
		return AuthenticateBearer(r.Header.Get("Authorization"), a.credential)
	case AuthBasic:
		username, password, ok := r.BasicAuth()
		if !ok {
			return AuthResult{Error: "Missing basic auth credentials"}
		}
		return AuthenticateBasic(username, password, a.credential)
	}
	return AuthResult{Error: "Unknown auth type"}
}

// AuthenticateBearer checks an "Authorization: Bearer <token>" header.
func AuthenticateBearer(authHeader, expectedToken string) AuthResult {
	start := time.Now()
	// Flatten response timing.
	defer time.Sleep(time.Millisecond)

	if authHeader == "" {
		return AuthResult{Error: "Missing Authorization header", Duration: time.Since(start)}
	}

	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok || scheme != "Bearer" {
		return AuthResult{Error: "Invalid Authorization header format", Duration: time.Since(start)}
	}

	if !SecureCompareString(token, expectedToken) {
		return AuthResult{Error: "Invalid bearer token", Duration: time.Since(start)}
	}

	return AuthResult{Authorized: true, Duration: time.Since(start)}
}

// AuthenticateBasic checks basic auth credentials against "user:password".
func AuthenticateBasic(username, password, expectedCredentials string) AuthResult {
	start := time.Now()
	defer time.Sleep(time.Millisecond)

	if username == "" || password == "" {
		return AuthResult{Error: "Missing basic auth credentials", Duration: time.Since(start)}
	}

	if !SecureCompareString(username+":"+password, expectedCredentials) {
		return AuthResult{Error: "Invalid basic auth credentials", Duration: time.Since(start)}
	}

	return AuthResult{Authorized: true, Duration: time.Since(start)}
}
