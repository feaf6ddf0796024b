package chat

type eventType int

const (
	eventReady eventType = iota
	eventLine
	eventStopped
	eventSweep
)

// event is one unit of work for the registry loop. Sessions emit ready,
// line and stopped events from their connection goroutines; the watchdog
// emits sweep events on a ticker.
type event struct {
	kind    eventType
	session *Session
	line    string
}

// serverName is the sender field on system broadcasts.
const serverName = "Server"

// guestNickname labels guest sessions in the public feed. Guests never
// appear in the user list.
const guestNickname = "Anonymous"
