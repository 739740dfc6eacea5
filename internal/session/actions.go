package session

// ActionKind discriminates outbound presentation actions.
type ActionKind string

const (
	ActionText  ActionKind = "text"
	ActionPhoto ActionKind = "photo"
)

// Action is one outbound step for the dispatch layer to execute against
// the messaging transport. A text action may carry quick-reply options.
type Action struct {
	Kind    ActionKind
	Text    string
	HTML    bool
	Options []string
	Photo   []byte
}

// Text builds a plain text action.
func textAction(text string, options ...string) Action {
	return Action{Kind: ActionText, Text: text, Options: options}
}

// htmlAction builds a styled text action.
func htmlAction(text string, options ...string) Action {
	return Action{Kind: ActionText, Text: text, HTML: true, Options: options}
}

func photoAction(png []byte) Action {
	return Action{Kind: ActionPhoto, Photo: png}
}
