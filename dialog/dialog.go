// Package dialog implements the conversation engine: registered branches
// of prompt steps, per-user sessions, and deterministic step progression.
//
// A branch's state machine is data: every step names the handler that will
// process the user's reply via a StepID resolved through the branch's
// handler table, so progression is inspectable instead of being chained
// through opaque function references.
package dialog

import "context"

// StepID names a registered reply handler inside a branch. The empty ID
// marks a terminal step: after it is rendered the session is torn down.
type StepID string

// Widget selects a specialized input affordance for a step.
type Widget int

const (
	// WidgetNone renders plain text or inline option buttons.
	WidgetNone Widget = iota
	// WidgetContact renders a one-time phone-sharing keyboard. Steps with
	// this widget must always be sent as a fresh message, never an edit.
	WidgetContact
)

// Input is the normalized inbound event payload handed to step handlers.
type Input struct {
	// Text is the raw message text, empty for button presses.
	Text string
	// Choice is the selected option for button-press events.
	Choice string
	// ContactPhone is set when the user shared a device contact.
	ContactPhone string
}

// Value returns the most specific payload available.
func (in Input) Value() string {
	if in.ContactPhone != "" {
		return in.ContactPhone
	}
	if in.Choice != "" {
		return in.Choice
	}
	return in.Text
}

// Step is one prompt-and-await-reply unit of a conversation.
type Step struct {
	// Text is the prompt shown to the user.
	Text string
	// Options are rendered as selectable buttons; empty means free text.
	Options []string
	// Next names the handler for the user's reply; empty means terminal.
	Next StepID
	// Widget requests a custom input affordance instead of plain buttons.
	Widget Widget
}

// Terminal reports whether the step ends the branch.
func (s Step) Terminal() bool { return s.Next == "" }

// HandlerFunc processes the user's reply to the previous step and returns
// the next one. Handlers mutate the session's answers directly.
type HandlerFunc func(ctx context.Context, s *Session, in Input) (Step, error)

// CompleteFunc runs the branch's completion side effects (persist, notify).
// It is invoked exactly once, before the session is torn down.
type CompleteFunc func(ctx context.Context, s *Session) error

// Branch is a named, registered conversational sequence.
type Branch struct {
	Name     string
	Priority int
	Enabled  bool
	// Entry produces the first step when the branch starts.
	Entry HandlerFunc
	// Handlers resolves StepIDs carried by rendered steps.
	Handlers map[StepID]HandlerFunc
	Complete CompleteFunc
}

// Render is what the dispatch loop sends back to the transport.
type Render struct {
	Text     string
	Options  []string
	Widget   Widget
	Terminal bool
}

func renderOf(step Step) *Render {
	return &Render{
		Text:     step.Text,
		Options:  step.Options,
		Widget:   step.Widget,
		Terminal: step.Terminal(),
	}
}
