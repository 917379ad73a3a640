// Package domain contains core concepts of the chat system.
// This file defines the identity bound to a connection and the session the
// membership registry keeps for it.
// No runtime, network, or UI logic should be added here.
package domain

import "strings"

// Identity is the user a connection acts on behalf of.
// It is bound once at handshake and never changes for the connection lifetime.
type Identity struct {
	UserID   string
	Username string
}

// NewIdentity trims the user id. The display name is kept as the gateway sent
// it: messages and join notices show it verbatim.
func NewIdentity(userID, username string) Identity {
	return Identity{UserID: strings.TrimSpace(userID), Username: username}
}

// Normalized folds the display name the same way rooms are normalized (trim,
// case-fold). The membership registry stores this form.
func (i Identity) Normalized() Identity {
	return Identity{UserID: i.UserID, Username: strings.ToLower(strings.TrimSpace(i.Username))}
}

// Bound reports whether both handshake fields were supplied.
func (i Identity) Bound() bool {
	return i.UserID != "" && strings.TrimSpace(i.Username) != ""
}

// Number returns the numeric form expected by the store.
func (i Identity) Number() (UserNumber, error) {
	return ParseUserNumber(i.UserID)
}

// Session is one live connection as seen by the membership registry.
type Session struct {
	ConnectionID string
	Identity     Identity
	Room         string
}
