// Package models defines the client-side data model: the session, contacts,
// media items and the server's send receipt.
package models

// Identity is the server's view of the logged-in account.
type Identity struct {
	Username string
	// MustChangePassword is set for accounts still using the temporary
	// password issued at registration.
	MustChangePassword bool
}

// Session pairs a bearer credential with its identity. Identity is non-nil
// exactly when Token is non-empty.
type Session struct {
	Token    string
	Identity *Identity
}

// Authenticated reports whether s carries a credential.
func (s Session) Authenticated() bool {
	return s.Token != "" && s.Identity != nil
}
