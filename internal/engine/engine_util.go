package engine

const (
	DefaultTurnSeconds   = 10
	DefaultStartingLives = 3
)

func DefaultRules() Rules {
	return Rules{
		TurnSeconds:         DefaultTurnSeconds,
		StartingLives:       DefaultStartingLives,
		PenalizeUnavailable: true,
	}
}

func NewEmptyState(rules Rules) State {
	s := State{
		Phase:          PhaseWaiting,
		Players:        []Slot{},
		TimerRemaining: rules.TurnSeconds,
		UsedWords:      []string{},
		Lives:          map[Slot]int{},
		Scores:         map[Slot]int{},
		Rules:          rules,
	}
	s.resetGame()
	return s
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}
