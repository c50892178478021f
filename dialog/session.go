package dialog

import "time"

// Session tracks one user's progress through a branch plus answers that
// accumulate across its lifetime. A single session exists per user; it has
// no internal locking, concurrent events for the same user are an accepted
// last-write-wins race.
type Session struct {
	UserID   int64
	Username string

	// Branch is the active branch name, empty when no dialog is running.
	Branch string
	// Pending names the handler expected to process the next reply; it
	// mirrors the Next of the last rendered step.
	Pending StepID

	// Answers maps field name to the sanitized stored value.
	Answers map[string]string
	// Lang is the interface locale, set before a branch starts.
	Lang string

	LastSeen time.Time

	selections map[string][]string
}

func newSession(userID int64, lang string, now time.Time) *Session {
	return &Session{
		UserID:     userID,
		Lang:       lang,
		Answers:    make(map[string]string),
		LastSeen:   now,
		selections: make(map[string][]string),
	}
}

// SetAnswer stores a field value.
func (s *Session) SetAnswer(field, value string) {
	s.Answers[field] = value
}

// Answer returns the stored value for a field, empty if unset.
func (s *Session) Answer(field string) string {
	return s.Answers[field]
}

// Toggle flips membership of value in the named multi-select set,
// preserving selection order. It reports whether the value is now selected.
func (s *Session) Toggle(field, value string) bool {
	list := s.selections[field]
	for i, v := range list {
		if v == value {
			s.selections[field] = append(list[:i], list[i+1:]...)
			return false
		}
	}
	s.selections[field] = append(list, value)
	return true
}

// Selected reports whether value is currently in the multi-select set.
func (s *Session) Selected(field, value string) bool {
	for _, v := range s.selections[field] {
		if v == value {
			return true
		}
	}
	return false
}

// Selections returns the multi-select values in the order they were chosen.
func (s *Session) Selections(field string) []string {
	return s.selections[field]
}

// ClearSelections drops the working set, typically after it was joined into
// a final answer.
func (s *Session) ClearSelections(field string) {
	delete(s.selections, field)
}

func (s *Session) resetProgress() {
	s.Branch = ""
	s.Pending = ""
	s.Answers = make(map[string]string)
	s.selections = make(map[string][]string)
}
