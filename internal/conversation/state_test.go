package conversation

import (
	"testing"

	"companion-chat/backend/pkg/logger"

	"github.com/stretchr/testify/assert"
)

func TestTurnMachineTransitions(t *testing.T) {
	direct := newTurnMachine(logger.Discard())
	assert.NoError(t, direct.advance(StateDone))
	assert.Error(t, direct.advance(StateToolRequested))

	photo := newTurnMachine(logger.Discard())
	assert.NoError(t, photo.advance(StateToolRequested))
	assert.NoError(t, photo.advance(StateAwaitingFollowUp))
	assert.NoError(t, photo.advance(StateDone))

	refused := newTurnMachine(logger.Discard())
	assert.NoError(t, refused.advance(StateToolRequested))
	assert.NoError(t, refused.advance(StateDone))

	skipped := newTurnMachine(logger.Discard())
	assert.Error(t, skipped.advance(StateAwaitingFollowUp))
	assert.Equal(t, StateAwaitingModel, skipped.state)
}

func TestTurnStateString(t *testing.T) {
	assert.Equal(t, "awaiting_follow_up", StateAwaitingFollowUp.String())
	assert.Equal(t, "TurnState(9)", TurnState(9).String())
}
