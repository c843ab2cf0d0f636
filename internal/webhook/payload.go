package webhook

// Payload is the envelope Meta posts to the webhook endpoint. Only the fields
// the intake path reads are modeled; unknown fields are ignored.
type Payload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry groups the messaging events for one page or Instagram account.
type Entry struct {
	ID        string           `json:"id"`
	Time      int64            `json:"time"`
	Messaging []MessagingEvent `json:"messaging"`
}

// MessagingEvent is a single inbound event. Events without a text message
// (reactions, read receipts, media-only) carry a nil or textless Message and
// are skipped.
type MessagingEvent struct {
	Sender    Participant `json:"sender"`
	Recipient Participant `json:"recipient"`
	Timestamp int64       `json:"timestamp"`
	Message   *Message    `json:"message,omitempty"`
}

// Participant identifies one side of the conversation by scoped ID.
type Participant struct {
	ID string `json:"id"`
}

// Message is the text payload of a messaging event. IsEcho marks outbound
// messages reflected back by the platform.
type Message struct {
	MID    string `json:"mid"`
	Text   string `json:"text"`
	IsEcho bool   `json:"is_echo"`
}
