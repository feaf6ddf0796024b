package chat

import "github.com/mkrasov/tcpchat/internal/protocol"

// The unauthorized-path state machine, separated from the registry so the
// classification of a handshake line is testable on its own. The registry
// applies the side effects (broadcasts, takeover, user list).

type authAction int

const (
	// actGuest accepts the session as an anonymous guest.
	actGuest authAction = iota
	// actChatFallthrough routes the line to the chat dispatch path: it did
	// not look like an auth request, so treat it as a chat attempt.
	actChatFallthrough
	// actReject means the credentials did not resolve.
	actReject
	// actAccept means the credentials resolved to a nickname.
	actAccept
)

type authStep struct {
	action   authAction
	login    string
	nickname string
}

// evaluateAuth classifies one line received from an unauthorized session.
// lookup resolves credentials to a nickname; it is only consulted for
// well-formed auth requests.
func evaluateAuth(line string, lookup func(login, password string) (string, bool)) authStep {
	if line == protocol.TagGuest {
		return authStep{action: actGuest}
	}
	fields := protocol.Fields(line)
	if len(fields) != protocol.AuthRequestFields || fields[0] != protocol.TagAuth {
		return authStep{action: actChatFallthrough}
	}
	login, password := fields[1], fields[2]
	nickname, ok := lookup(login, password)
	if !ok {
		return authStep{action: actReject, login: login}
	}
	return authStep{action: actAccept, login: login, nickname: nickname}
}
