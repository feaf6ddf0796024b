package chat

// roster is the insertion-ordered session collection behind the registry.
// It is not safe for concurrent use; every method runs on the registry
// goroutine.
type roster struct {
	sessions []*Session
}

func (ro *roster) size() int { return len(ro.sessions) }

func (ro *roster) contains(s *Session) bool {
	for _, cur := range ro.sessions {
		if cur == s {
			return true
		}
	}
	return false
}

func (ro *roster) add(s *Session) {
	ro.sessions = append(ro.sessions, s)
}

func (ro *roster) remove(s *Session) bool {
	for i, cur := range ro.sessions {
		if cur == s {
			ro.sessions = append(ro.sessions[:i], ro.sessions[i+1:]...)
			return true
		}
	}
	return false
}

// findByNickname returns the first authorized session holding the nickname,
// or nil. Used only for the reconnection takeover check.
func (ro *roster) findByNickname(nickname string) *Session {
	for _, s := range ro.sessions {
		if s.IsAuthorized() && s.Nickname() == nickname {
			return s
		}
	}
	return nil
}

// nicknames lists authorized nicknames in insertion order. Guests and
// unauthorized sessions are excluded.
func (ro *roster) nicknames() []string {
	names := make([]string, 0, len(ro.sessions))
	for _, s := range ro.sessions {
		if s.IsAuthorized() {
			names = append(names, s.Nickname())
		}
	}
	return names
}

// snapshot copies the current membership so delivery loops are unaffected
// by removals made while they run.
func (ro *roster) snapshot() []*Session {
	out := make([]*Session, len(ro.sessions))
	copy(out, ro.sessions)
	return out
}
