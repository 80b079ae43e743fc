package ui

import (
	"chat-room/domain"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/gookit/color"
)

const clearScreen = "\033[H\033[2J"

var (
	ownBubble = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Background(lipgloss.Color("33")).
			Padding(0, 1)
	otherBubble = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236")).
			Padding(0, 1)
	senderLabel = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true)
	hiddenLabel = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

type RendererOption func(*TerminalRenderer)

// WithClear redraws from the top of a cleared screen on every frame.
func WithClear() RendererOption {
	return func(r *TerminalRenderer) { r.clear = true }
}

// WithHeight limits the frame to the newest rows that fit.
func WithHeight(height int) RendererOption {
	return func(r *TerminalRenderer) { r.height = height }
}

// TerminalRenderer draws frames as chat bubbles, the signed-in user's on the right.
// The view always follows the newest row, so a frame asking to scroll to the last row needs nothing more.
type TerminalRenderer struct {
	mu     sync.Mutex
	out    io.Writer
	width  int
	height int
	clear  bool
}

func NewTerminalRenderer(out io.Writer, width int, opts ...RendererOption) *TerminalRenderer {
	r := &TerminalRenderer{out: out, width: width}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *TerminalRenderer) Render(frame domain.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows := frame.Rows
	var b strings.Builder
	if r.clear {
		b.WriteString(clearScreen)
	}
	if r.height > 0 && len(rows) > r.height {
		hidden := len(rows) - r.height
		rows = rows[hidden:]
		b.WriteString(hiddenLabel.Render(fmt.Sprintf("… %d earlier", hidden)))
		b.WriteString("\n")
	}
	for _, row := range rows {
		b.WriteString(r.row(row))
		b.WriteString("\n")
	}
	_, _ = io.WriteString(r.out, b.String())
}

// Notice prints a status line between frames.
func (r *TerminalRenderer) Notice(level, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var line string
	switch level {
	case "error":
		line = color.Red.Sprint(text)
	case "warn":
		line = color.Yellow.Sprint(text)
	default:
		line = color.Green.Sprint(text)
	}
	_, _ = fmt.Fprintln(r.out, line)
}

func (r *TerminalRenderer) row(row domain.Row) string {
	// Leave room on the opposite side so left and right rows stay apart
	maxBubble := r.width * 3 / 4
	if row.Alignment == domain.AlignRight {
		bubble := ownBubble.MaxWidth(maxBubble).Render(row.Message.Text)
		return lipgloss.PlaceHorizontal(r.width, lipgloss.Right, bubble)
	}
	label := senderLabel.Render(row.Message.SenderID)
	bubble := otherBubble.MaxWidth(maxBubble).Render(row.Message.Text)
	return lipgloss.PlaceHorizontal(r.width, lipgloss.Left, lipgloss.JoinVertical(lipgloss.Left, label, bubble))
}
