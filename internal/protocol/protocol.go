// Package protocol defines the line-oriented wire format: one message per
// line, fields separated by Delimiter, field 0 is the tag. A field that
// contains the delimiter corrupts parsing; the format has no escaping.
package protocol

import "strings"

const Delimiter = "|"

// Client to server tags.
const (
	TagAuth      = "AUTH"
	TagGuest     = "GUEST" // single-token guest sentinel, no fields
	TagBroadcast = "BCAST"
)

// Server to client tags.
const (
	TagUserList    = "USERLIST"
	TagAuthOK      = "AUTH_OK"
	TagAuthFail    = "AUTH_FAIL"
	TagFormatError = "FMT_ERR"
)

// AuthRequestFields is the exact field count of an AUTH line.
const AuthRequestFields = 3

// Fields splits a received line into tag and payload fields.
func Fields(line string) []string {
	return strings.Split(line, Delimiter)
}

func join(fields ...string) string {
	return strings.Join(fields, Delimiter)
}

func AuthRequest(login, password string) string {
	return join(TagAuth, login, password)
}

func Broadcast(from, text string) string {
	return join(TagBroadcast, from, text)
}

// UserList carries every name delimiter-terminated, so the payload for
// names ["Alice","Bob"] is "USERLIST|Alice|Bob|".
func UserList(names []string) string {
	var sb strings.Builder
	sb.WriteString(TagUserList)
	sb.WriteString(Delimiter)
	for _, name := range names {
		sb.WriteString(name)
		sb.WriteString(Delimiter)
	}
	return sb.String()
}

func AuthAccepted(nickname string) string {
	return join(TagAuthOK, nickname)
}

func AuthRejected() string {
	return TagAuthFail
}

// FormatError echoes the offending line back verbatim.
func FormatError(original string) string {
	return join(TagFormatError, original)
}
