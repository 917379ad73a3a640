package ws

import "sendify-chat/domain"

// Handshake headers set by the gateway once it has authenticated the caller.
const (
	HeaderUserID   = "x-user-id"
	HeaderUsername = "x-username"
)

// BindIdentity reads the caller identity from handshake headers. Missing
// headers give an unbound identity: the connection is still accepted but its
// joins and sends fail validation.
func BindIdentity(header func(key string) string) domain.Identity {
	return domain.NewIdentity(header(HeaderUserID), header(HeaderUsername))
}
