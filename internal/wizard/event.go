package wizard

// EventKind is the kind of inbound chat event.
type EventKind int

const (
	EventCommand EventKind = iota + 1
	EventText
	EventClick
)

func (k EventKind) String() string {
	switch k {
	case EventCommand:
		return "command"
	case EventText:
		return "text"
	case EventClick:
		return "click"
	}
	return "unknown"
}

// Event is one inbound chat event, already normalised by the front-end.
type Event struct {
	Kind   EventKind
	UserID int64
	ChatID int64

	// MessageID is the user's message for commands and text, or the message
	// carrying the pressed keyboard for clicks.
	MessageID int

	// Command is the command name without the leading slash, e.g. "start".
	Command string

	// Text is the raw message text for commands and text replies.
	Text string

	// ClickID identifies a button press so it can be answered.
	ClickID string

	// Action is the decoded button payload. ActionNone means the payload
	// could not be decoded.
	Action Action
}

// MessageRef points at a chat message that can be edited in place.
type MessageRef struct {
	ChatID    int64 `json:"chat_id"`
	MessageID int   `json:"message_id"`
}

// IsZero reports whether the reference points nowhere.
func (r MessageRef) IsZero() bool {
	return r.MessageID == 0
}

// Choice is one button of a prompt.
type Choice struct {
	Label  string
	Action Action
}

// Prompt is the text and button grid shown on the anchor message.
type Prompt struct {
	Text string
	Rows [][]Choice
}

// TextPrompt returns a prompt without buttons.
func TextPrompt(text string) Prompt {
	return Prompt{Text: text}
}
