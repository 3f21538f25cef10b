package engine

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	MinWordLen = 2
	MaxWordLen = 50
)

// RejectReason is the wire errorType attached to a word_rejected message.
type RejectReason string

const (
	ReasonFormat      RejectReason = "format"
	ReasonNotStarted  RejectReason = "not_started"
	ReasonGameOver    RejectReason = "game_over"
	ReasonNotYourTurn RejectReason = "not_your_turn"
	ReasonChain       RejectReason = "chain"
	ReasonDuplicate   RejectReason = "duplicate"
	ReasonNotFound    RejectReason = "not_found"
	ReasonUnavailable RejectReason = "unavailable"
)

type RejectError struct {
	Reason RejectReason
	Word   string
	// Want is the letter the word had to start with; set for ReasonChain.
	Want byte
}

func (e *RejectError) Error() string {
	switch e.Reason {
	case ReasonFormat:
		return fmt.Sprintf("Words must be %d-%d letters", MinWordLen, MaxWordLen)
	case ReasonNotStarted:
		return "Game has not started"
	case ReasonGameOver:
		return "Game is over"
	case ReasonNotYourTurn:
		return "Not your turn"
	case ReasonChain:
		return fmt.Sprintf("Word must start with '%c'", e.Want)
	case ReasonDuplicate:
		return fmt.Sprintf("'%s' was already used", e.Word)
	case ReasonNotFound:
		return fmt.Sprintf("'%s' is not in the dictionary", e.Word)
	case ReasonUnavailable:
		return "Dictionary is unavailable right now"
	default:
		return "Invalid word"
	}
}

func (e *RejectError) Unwrap() error {
	switch e.Reason {
	case ReasonNotStarted, ReasonGameOver:
		return ErrNotPlaying
	case ReasonNotYourTurn:
		return ErrWrongTurn
	default:
		return nil
	}
}

// Lexical reports whether the rejection came from the dictionary lookup.
func (e *RejectError) Lexical() bool {
	return e.Reason == ReasonNotFound || e.Reason == ReasonUnavailable
}

// NormalizeWord trims and lowercases a raw submission.
func NormalizeWord(raw string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(raw))
}

// CheckWord runs the local stages of the word pipeline for a submission by slot:
// well-formedness, authorization, chain continuity and uniqueness, in that order.
// It returns the normalized word, or a *RejectError for the first failing stage.
func CheckWord(s State, slot Slot, raw string) (string, error) {
	word := NormalizeWord(raw)

	if err := checkFormat(word); err != nil {
		return word, err
	}
	if err := authorize(s, slot); err != nil {
		return word, err
	}
	if err := checkChain(s, word); err != nil {
		return word, err
	}
	if err := checkUnused(s, word); err != nil {
		return word, err
	}
	return word, nil
}

func checkFormat(word string) error {
	if len(word) < MinWordLen || len(word) > MaxWordLen {
		return &RejectError{Reason: ReasonFormat, Word: word}
	}
	for i := 0; i < len(word); i++ {
		if word[i] < 'a' || word[i] > 'z' {
			return &RejectError{Reason: ReasonFormat, Word: word}
		}
	}
	return nil
}

func authorize(s State, slot Slot) error {
	switch s.Phase {
	case PhaseFinished:
		return &RejectError{Reason: ReasonGameOver}
	case PhaseWaiting:
		return &RejectError{Reason: ReasonNotStarted}
	}
	if s.CurrentPlayer != slot {
		return &RejectError{Reason: ReasonNotYourTurn}
	}
	return nil
}

// The first word of a game has nothing to chain from.
func checkChain(s State, word string) error {
	if s.LastWord == "" {
		return nil
	}
	want := s.LastWord[len(s.LastWord)-1]
	if word == "" || word[0] != want {
		return &RejectError{Reason: ReasonChain, Word: word, Want: want}
	}
	return nil
}

func checkUnused(s State, word string) error {
	if slices.Contains(s.UsedWords, word) {
		return &RejectError{Reason: ReasonDuplicate, Word: word}
	}
	return nil
}
