package engine

import (
	"errors"
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func TestCheckWordStages(t *testing.T) {
	base := newPlayingState()
	base.LastWord = "apple"
	base.UsedWords = []string{"apple"}

	cases := []struct {
		name   string
		setup  func(s *State)
		sender Slot
		word   string
		want   RejectReason
	}{
		{name: "chain ok", sender: SlotPlayer1, word: "Elephant"},
		{name: "too short", sender: SlotPlayer1, word: "e", want: ReasonFormat},
		{name: "too long", sender: SlotPlayer1, word: "e" + strings.Repeat("x", MaxWordLen), want: ReasonFormat},
		{name: "digits", sender: SlotPlayer1, word: "e1f", want: ReasonFormat},
		{name: "empty", sender: SlotPlayer1, word: "   ", want: ReasonFormat},
		{name: "format checked before turn", sender: SlotPlayer2, word: "e", want: ReasonFormat},
		{name: "wrong turn", sender: SlotPlayer2, word: "eagle", want: ReasonNotYourTurn},
		{name: "finished", setup: func(s *State) { s.Phase = PhaseFinished }, sender: SlotPlayer1, word: "eagle", want: ReasonGameOver},
		{name: "waiting", setup: func(s *State) { s.Phase = PhaseWaiting }, sender: SlotPlayer1, word: "eagle", want: ReasonNotStarted},
		{name: "broken chain", sender: SlotPlayer1, word: "banana", want: ReasonChain},
		{name: "duplicate", setup: func(s *State) { s.UsedWords = append(s.UsedWords, "egg") }, sender: SlotPlayer1, word: "egg", want: ReasonDuplicate},
		{name: "first word skips chain", setup: func(s *State) { s.LastWord = ""; s.UsedWords = nil }, sender: SlotPlayer1, word: "banana"},
		{name: "first word still unique", setup: func(s *State) { s.LastWord = ""; s.UsedWords = []string{"banana"} }, sender: SlotPlayer1, word: "banana", want: ReasonDuplicate},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := base.Clone()
			if tc.setup != nil {
				tc.setup(&s)
			}
			word, err := CheckWord(s, tc.sender, tc.word)
			if tc.want == "" {
				if err != nil {
					t.Fatalf("unexpected rejection: %v", err)
				}
				if word != strings.ToLower(strings.TrimSpace(tc.word)) {
					t.Fatalf("word not normalized: %q", word)
				}
				return
			}
			var rej *RejectError
			if !errors.As(err, &rej) {
				t.Fatalf("want *RejectError, got %v", err)
			}
			if rej.Reason != tc.want {
				t.Fatalf("want reason %s, got %s (%v)", tc.want, rej.Reason, rej)
			}
		})
	}
}

func TestRejectErrorWrapsSentinels(t *testing.T) {
	s := newPlayingState()
	_, err := CheckWord(s, SlotPlayer2, "apple")
	if !errors.Is(err, ErrWrongTurn) {
		t.Fatalf("want ErrWrongTurn, got %v", err)
	}
	s.Phase = PhaseFinished
	_, err = CheckWord(s, SlotPlayer1, "apple")
	if !errors.Is(err, ErrNotPlaying) {
		t.Fatalf("want ErrNotPlaying, got %v", err)
	}
}

func TestChainMessageNamesLetter(t *testing.T) {
	s := newPlayingState()
	s.LastWord = "apple"
	_, err := CheckWord(s, SlotPlayer1, "banana")
	if err == nil || err.Error() != "Word must start with 'e'" {
		t.Fatalf("got %v", err)
	}
}

// Drives a game with random accepts, rejects and ticks and checks the session invariants
// after every step.
func TestSessionInvariants(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := newPlayingState()
		steps := rapid.IntRange(1, 200).Draw(rt, "steps")

		for i := 0; i < steps; i++ {
			prev := s
			var cmd Command
			switch rapid.IntRange(0, 2).Draw(rt, "op") {
			case 0:
				letters := rapid.StringMatching(`[a-e]{2,4}`).Draw(rt, "word")
				word, err := CheckWord(s, s.CurrentPlayer, letters)
				if err != nil {
					cmd = Command{Type: CmdPenalize, Slot: s.CurrentPlayer}
				} else {
					cmd = Command{Type: CmdAcceptWord, Slot: s.CurrentPlayer, Word: word}
				}
			case 1:
				cmd = Command{Type: CmdPenalize, Slot: rapid.SampledFrom(SlotOrder).Draw(rt, "slot")}
			default:
				cmd = Command{Type: CmdTick}
			}

			_, next, err := Apply(s, cmd)
			if prev.Phase == PhaseFinished {
				if err == nil {
					rt.Fatalf("%s applied after game finished", cmd.Type)
				}
				continue
			}
			if err != nil {
				rt.Fatalf("%s: %v", cmd.Type, err)
			}
			s = next

			seen := map[string]bool{}
			for _, w := range s.UsedWords {
				if seen[w] {
					rt.Fatalf("duplicate used word %q", w)
				}
				seen[w] = true
			}
			for _, slot := range SlotOrder {
				if s.Lives[slot] < 0 || s.Lives[slot] > prev.Lives[slot] {
					rt.Fatalf("%s lives went %d -> %d", slot, prev.Lives[slot], s.Lives[slot])
				}
				if s.Lives[slot] == 0 && s.Phase != PhaseFinished {
					rt.Fatalf("%s has no lives but phase is %s", slot, s.Phase)
				}
			}
			if cmd.Type == CmdAcceptWord && s.CurrentPlayer == prev.CurrentPlayer {
				rt.Fatalf("accepted word did not advance the turn")
			}
			if s.Phase == PhaseFinished && s.Lives[s.Winner.Other()] != 0 {
				rt.Fatalf("winner %s but loser has %d lives", s.Winner, s.Lives[s.Winner.Other()])
			}
		}
	})
}
