// Package chat orchestrates conversation turns between the store, the
// completion API and the view.
package chat

import "github.com/RichardoC/pad-chat/internal/models"

// Session is the client-side state of the conversation on screen. An empty
// ActiveID means the conversation is pending: it exists only in memory and
// is persisted by the first SendTurn.
type Session struct {
	ActiveID string
	Messages []models.Message
}

func (s Session) Pending() bool {
	return s.ActiveID == ""
}

// clone returns a session whose message slice can be appended to without
// affecting s.
func (s Session) clone() Session {
	return Session{
		ActiveID: s.ActiveID,
		Messages: append([]models.Message(nil), s.Messages...),
	}
}

// View receives live updates while an assistant reply streams in.
type View interface {
	// Thinking is called once the request has been issued.
	Thinking()
	// Delta is called for each fragment of the reply, in order.
	Delta(text string)
	// Finish is called with the complete reply once the stream ends.
	Finish(text string)
}

type nopView struct{}

func (nopView) Thinking()     {}
func (nopView) Delta(string)  {}
func (nopView) Finish(string) {}
