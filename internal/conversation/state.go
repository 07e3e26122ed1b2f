package conversation

import (
	"fmt"

	"companion-chat/backend/pkg/logger"
)

// TurnState is a step of the chat, photo, follow-up exchange
type TurnState int

const (
	StateAwaitingModel TurnState = iota
	StateToolRequested
	StateAwaitingFollowUp
	StateDone
)

func (s TurnState) String() string {
	switch s {
	case StateAwaitingModel:
		return "awaiting_model"
	case StateToolRequested:
		return "tool_requested"
	case StateAwaitingFollowUp:
		return "awaiting_follow_up"
	case StateDone:
		return "done"
	}
	return fmt.Sprintf("TurnState(%d)", int(s))
}

var transitions = map[TurnState][]TurnState{
	StateAwaitingModel:    {StateToolRequested, StateDone},
	StateToolRequested:    {StateAwaitingFollowUp, StateDone},
	StateAwaitingFollowUp: {StateDone},
}

// turnMachine tracks the state of one Respond call
type turnMachine struct {
	state TurnState
	log   *logger.Logger
}

func newTurnMachine(log *logger.Logger) *turnMachine {
	return &turnMachine{state: StateAwaitingModel, log: log}
}

func (m *turnMachine) advance(next TurnState) error {
	for _, allowed := range transitions[m.state] {
		if allowed == next {
			m.log.Debug("Turn state changed", "from", m.state.String(), "to", next.String())
			m.state = next
			return nil
		}
	}
	return fmt.Errorf("invalid turn transition %s -> %s", m.state, next)
}
