package engine

import (
	"errors"
	"slices"
)

var ErrRoomFull = errors.New("room is full")
var ErrNotOwner = errors.New("only player1 can start the game")
var ErrNotEnoughPlayers = errors.New("two players are required to start")
var ErrNotPlaying = errors.New("game is not in progress")
var ErrWrongTurn = errors.New("invalid turn")
var ErrUnknownSlot = errors.New("unknown player slot")
var ErrUnsupportedCommand = errors.New("unsupported command")

type Slot string

const (
	SlotPlayer1 Slot = "player1"
	SlotPlayer2 Slot = "player2"
)

type Phase string

const (
	PhaseWaiting  Phase = "waiting"
	PhasePlaying  Phase = "playing"
	PhaseFinished Phase = "finished"
)

type State struct {
	Phase          Phase
	Players        []Slot
	CurrentPlayer  Slot
	TimerRemaining int
	UsedWords      []string
	LastWord       string
	Lives          map[Slot]int
	Scores         map[Slot]int
	Winner         Slot
	// Turn increases whenever the active turn changes hands, a game starts or a game ends.
	// Asynchronous results captured against an older Turn are stale.
	Turn  int
	Rules Rules
}

type Rules struct {
	TurnSeconds   int
	StartingLives int
	// PenalizeUnavailable charges a life when the dictionary could not be reached.
	PenalizeUnavailable bool
}

type CommandType string

const (
	CmdJoin       CommandType = "Join"
	CmdLeave      CommandType = "Leave"
	CmdStartGame  CommandType = "StartGame"
	CmdAcceptWord CommandType = "AcceptWord"
	CmdPenalize   CommandType = "Penalize"
	CmdTick       CommandType = "Tick"
)

/*
	CmdJoin       -> EvtPlayerJoined
	CmdLeave      -> EvtPlayerLeft
	CmdStartGame  -> EvtGameStarted
	CmdAcceptWord -> EvtWordAccepted -> EvtTurnAdvanced
	CmdPenalize   -> EvtLifeLost (-> EvtGameCompleted)
	CmdTick       -> EvtTimerTicked (-> EvtTimerExpired -> EvtLifeLost -> EvtGameCompleted | EvtTurnAdvanced)
*/

type Command struct {
	Type CommandType
	Slot Slot
	Word string
}

type EventType string

const (
	EvtPlayerJoined  EventType = "PlayerJoined"
	EvtPlayerLeft    EventType = "PlayerLeft"
	EvtGameStarted   EventType = "GameStarted"
	EvtWordAccepted  EventType = "WordAccepted"
	EvtLifeLost      EventType = "LifeLost"
	EvtTurnAdvanced  EventType = "TurnAdvanced"
	EvtTimerTicked   EventType = "TimerTicked"
	EvtTimerExpired  EventType = "TimerExpired"
	EvtGameCompleted EventType = "GameCompleted"
)

type Event struct {
	Type EventType
	Slot Slot
	Word string
}

// Apply validates cmd against s and returns the resulting events and state.
// s is never modified; on error the returned state is s.
func Apply(s State, cmd Command) ([]Event, State, error) {
	next := s.Clone()

	switch cmd.Type {
	case CmdJoin:
		slot, ok := nextFreeSlot(s.Players)
		if !ok {
			return nil, s, ErrRoomFull
		}
		next.Players = append(next.Players, slot)
		return []Event{{Type: EvtPlayerJoined, Slot: slot}}, next, nil

	case CmdLeave:
		idx := slices.Index(s.Players, cmd.Slot)
		if idx < 0 {
			return nil, s, ErrUnknownSlot
		}
		next.Players = slices.Delete(next.Players, idx, idx+1)
		// Whatever the leaver had in flight for this turn belongs to them, not to whoever
		// takes the seat next.
		if s.Phase == PhasePlaying && s.CurrentPlayer == cmd.Slot {
			next.Turn++
		}
		return []Event{{Type: EvtPlayerLeft, Slot: cmd.Slot}}, next, nil

	case CmdStartGame:
		if cmd.Slot != SlotPlayer1 {
			return nil, s, ErrNotOwner
		}
		if len(s.Players) != len(SlotOrder) {
			return nil, s, ErrNotEnoughPlayers
		}
		next.resetGame()
		next.Phase = PhasePlaying
		next.CurrentPlayer = SlotPlayer1
		next.TimerRemaining = s.Rules.TurnSeconds
		next.Turn = s.Turn + 1
		return []Event{{Type: EvtGameStarted, Slot: SlotPlayer1}}, next, nil

	case CmdAcceptWord:
		if err := authorize(s, cmd.Slot); err != nil {
			return nil, s, err
		}
		// The word was checked when submitted; re-check against the current state in case it moved.
		if err := checkChain(s, cmd.Word); err != nil {
			return nil, s, err
		}
		if err := checkUnused(s, cmd.Word); err != nil {
			return nil, s, err
		}

		next.UsedWords = append(next.UsedWords, cmd.Word)
		next.LastWord = cmd.Word
		next.Scores[cmd.Slot] += len(cmd.Word)
		next.advanceTurn()
		events := []Event{
			{Type: EvtWordAccepted, Slot: cmd.Slot, Word: cmd.Word},
			{Type: EvtTurnAdvanced, Slot: next.CurrentPlayer},
		}
		return events, next, nil

	case CmdPenalize:
		if s.Phase != PhasePlaying {
			return nil, s, ErrNotPlaying
		}
		if _, ok := s.Lives[cmd.Slot]; !ok {
			return nil, s, ErrUnknownSlot
		}
		return next.loseLife(cmd.Slot), next, nil

	case CmdTick:
		if s.Phase != PhasePlaying {
			return nil, s, ErrNotPlaying
		}
		next.TimerRemaining--
		events := []Event{{Type: EvtTimerTicked, Slot: s.CurrentPlayer}}
		if next.TimerRemaining > 0 {
			return events, next, nil
		}

		events = append(events, Event{Type: EvtTimerExpired, Slot: s.CurrentPlayer})
		events = append(events, next.loseLife(s.CurrentPlayer)...)
		// Game-over runs first: an eliminated player's turn is never advanced.
		if next.Phase == PhasePlaying {
			next.advanceTurn()
			events = append(events, Event{Type: EvtTurnAdvanced, Slot: next.CurrentPlayer})
		}
		return events, next, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

// loseLife takes one life from slot and finishes the game when none remain.
func (s *State) loseLife(slot Slot) []Event {
	if s.Lives[slot] > 0 {
		s.Lives[slot]--
	}
	events := []Event{{Type: EvtLifeLost, Slot: slot}}

	if s.Lives[slot] <= 0 {
		s.Phase = PhaseFinished
		s.Winner = slot.Other()
		s.Turn++
		events = append(events, Event{Type: EvtGameCompleted, Slot: s.Winner})
	}
	return events
}

func (s *State) advanceTurn() {
	s.CurrentPlayer = s.CurrentPlayer.Other()
	s.TimerRemaining = s.Rules.TurnSeconds
	s.Turn++
}

func (s *State) resetGame() {
	s.UsedWords = []string{}
	s.LastWord = ""
	s.Winner = ""
	for _, slot := range SlotOrder {
		s.Lives[slot] = s.Rules.StartingLives
		s.Scores[slot] = 0
	}
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	c := s
	c.Players = slices.Clone(s.Players)
	c.UsedWords = slices.Clone(s.UsedWords)
	c.Lives = make(map[Slot]int, len(s.Lives))
	for k, v := range s.Lives {
		c.Lives[k] = v
	}
	c.Scores = make(map[Slot]int, len(s.Scores))
	for k, v := range s.Scores {
		c.Scores[k] = v
	}
	return c
}

func (s State) HasPlayer(slot Slot) bool {
	return slices.Contains(s.Players, slot)
}
