package domain

import "strings"

// NormalizeRoom trims and case-folds a room name. Every component that keys
// on rooms goes through here.
func NormalizeRoom(room string) string {
	return strings.ToLower(strings.TrimSpace(room))
}
