package chat

import (
	"fmt"
	"strings"
)

// Input is what the user asked for: either freeform text or a predefined mode.
// The caller decides which one it is; nothing downstream guesses from the
// shape of a string.
type Input interface {
	isInput()
}

type Freeform struct {
	Text string
}

type NamedMode struct {
	Mode Mode
}

func (Freeform) isInput()  {}
func (NamedMode) isInput() {}

type Mode string

const (
	ModeExplainFit         Mode = "explain_fit"
	ModeInterviewQuestions Mode = "interview_questions"
	ModeRedFlags           Mode = "red_flags"
	ModeSummary            Mode = "summary"
)

var modeLabels = map[Mode]string{
	ModeExplainFit:         "Explain fit",
	ModeInterviewQuestions: "Suggest interview questions",
	ModeRedFlags:           "Point out red flags",
	ModeSummary:            "Summarize the candidate",
}

// Modes lists the predefined modes in menu order.
func Modes() []Mode {
	return []Mode{ModeExplainFit, ModeInterviewQuestions, ModeRedFlags, ModeSummary}
}

func (m Mode) Valid() bool {
	_, ok := modeLabels[m]
	return ok
}

func (m Mode) Label() string {
	if label, ok := modeLabels[m]; ok {
		return label
	}
	return string(m)
}

// ParseMode accepts a mode tag ("explain_fit", "explain-fit") or its label.
func ParseMode(s string) (Mode, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)

	for _, m := range Modes() {
		if string(m) == normalized || strings.EqualFold(m.Label(), strings.TrimSpace(s)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown chat mode %q", s)
}
