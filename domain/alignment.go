package domain

type Alignment int

const (
	AlignLeft Alignment = iota
	AlignRight
)

func (a Alignment) String() string {
	if a == AlignRight {
		return "right"
	}
	return "left"
}

// AlignFor places the signed-in user's own messages on the right and everybody else's on the left.
func AlignFor(message Message, currentUserID string) Alignment {
	if message.IsOwnedBy(currentUserID) {
		return AlignRight
	}
	return AlignLeft
}

// Row is one rendered line of the chat surface.
type Row struct {
	Message   Message
	Alignment Alignment
}

// Frame is a full render of the chat surface.
// ScrollToLast asks the renderer to bring the newest row into view.
type Frame struct {
	Rows         []Row
	ScrollToLast bool
}
