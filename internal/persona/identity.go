package persona

import (
	"errors"
	"fmt"

	"aeterna/internal/models"
	"aeterna/pkg/auth"
)

var (
	// ErrIdentityDecode marks a token that failed signature, algorithm or expiry checks
	ErrIdentityDecode = errors.New("identity token could not be decoded")
	// ErrIdentityIncomplete marks a valid token without subject or persona claims
	ErrIdentityIncomplete = errors.New("identity token lacks subject or persona")
	// ErrUnknownUser is returned when minting a token for a user not in the catalogue
	ErrUnknownUser = errors.New("unknown demo user")
)

// IdentityResult is the outcome of resolving an identity token. User is nil
// when no identity could be established; Err then says why. Callers treat
// both cases as anonymous.
type IdentityResult struct {
	User *models.PersonaUser
	Err  error
}

// Found reports whether a user was resolved
func (r IdentityResult) Found() bool {
	return r.User != nil
}

// ResolveUserFromToken verifies token and maps it to a user. A catalogue user
// is returned when both subject and persona match one; otherwise the user is
// built from the token's own claims.
func (d *Directory) ResolveUserFromToken(token string) IdentityResult {
	d.load()

	if d.tokens == nil {
		return IdentityResult{Err: fmt.Errorf("%w: no verifier configured", ErrIdentityDecode)}
	}
	claims, err := d.tokens.Parse(token)
	if err != nil {
		return IdentityResult{Err: fmt.Errorf("%w: %v", ErrIdentityDecode, err)}
	}

	subject := claims.SubjectID()
	if subject == "" || claims.Persona == "" {
		return IdentityResult{Err: ErrIdentityIncomplete}
	}

	if user, ok := d.findUser(subject, claims.Persona); ok {
		return IdentityResult{User: &user}
	}

	user := models.PersonaUser{
		UserID:   subject,
		Name:     claims.Name,
		Persona:  claims.Persona,
		Language: claims.Language,
		Traits:   claims.Traits,
	}
	if user.Name == "" {
		user.Name = subject
	}
	if user.Language == "" {
		user.Language = "en"
	}
	if user.Traits == nil {
		user.Traits = map[string]interface{}{}
	}
	return IdentityResult{User: &user}
}

// DemoToken mints an identity token for a catalogue user
func (d *Directory) DemoToken(userID string) (string, error) {
	d.load()

	if d.tokens == nil {
		return "", errors.New("identity tokens are not configured")
	}
	for _, u := range d.users {
		if u.UserID != userID {
			continue
		}
		claims := auth.IdentityClaims{
			Persona:  u.Persona,
			Name:     u.Name,
			Language: u.Language,
			Traits:   u.Traits,
		}
		claims.Subject = u.UserID
		return d.tokens.Generate(claims)
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownUser, userID)
}
