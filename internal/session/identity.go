package session

import "strings"

// Identity is the authenticated user for the current session. IsAdmin is
// sourced from the persisted account record, not from the identity
// provider, so it is only as trustworthy as write access to that record.
type Identity struct {
	ID      string
	Email   string
	IsAdmin bool
}

// DisplayName derives the name rendered in the signed-in UI region: the
// local part of the email, or "User" when no email is known.
func (i Identity) DisplayName() string {
	email := strings.TrimSpace(i.Email)
	if email == "" {
		return "User"
	}
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return email
}
