package bus

const (
	PeerDirect  = "direct"
	PeerChannel = "channel"
)

// Peer identifies the kind of conversation a message arrived in.
type Peer struct {
	Kind string `json:"kind"` // "direct" | "channel"
	ID   string `json:"id"`
}

type InboundMessage struct {
	Channel   string `json:"channel"` // transport name, e.g. "slack"
	SenderID  string `json:"sender_id"`
	ChatID    string `json:"chat_id"` // conversation handle
	Content   string `json:"content"`
	Peer      Peer   `json:"peer"`
	MessageID string `json:"message_id,omitempty"` // platform message ID
}

// IsDirect reports whether the message came from a one-to-one conversation.
func (m InboundMessage) IsDirect() bool {
	return m.Peer.Kind == PeerDirect
}

type OutboundMessage struct {
	Channel string `json:"channel"`
	ChatID  string `json:"chat_id"`
	Content string `json:"content"`
}
