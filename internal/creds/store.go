// Package creds resolves login/password pairs to chat nicknames.
package creds

import "errors"

// ErrUnknownIdentity is returned when no credential row matches the login or
// the password does not verify. Callers must not be able to tell the two
// cases apart.
var ErrUnknownIdentity = errors.New("unknown identity")

// Store is the credential lookup the chat server authenticates against.
type Store interface {
	Connect() error
	Disconnect() error
	LookupNickname(login, password string) (string, error)
}
