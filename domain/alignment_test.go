package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAlignFor_Opposite_Sides_For_Two_Senders(t *testing.T) {
	req := require.New(t)
	alice := Message{SenderID: "alice", Text: "Hello Bob", CreatedAt: time.Now()}
	bob := Message{SenderID: "bob", Text: "Hi Alice", CreatedAt: time.Now()}

	// Given Alice is the signed-in user
	req.Equal(AlignRight, AlignFor(alice, "alice"))
	req.Equal(AlignLeft, AlignFor(bob, "alice"))

	// Then Bob sees the opposite layout
	req.Equal(AlignLeft, AlignFor(alice, "bob"))
	req.Equal(AlignRight, AlignFor(bob, "bob"))
}

func TestAlignFor_Placeholder_Sender_Is_Never_Own(t *testing.T) {
	req := require.New(t)
	msg := Message{SenderID: PlaceholderSenderID}
	req.Equal(AlignLeft, AlignFor(msg, "alice"))
	req.Equal("left", AlignLeft.String())
	req.Equal("right", AlignRight.String())
}
