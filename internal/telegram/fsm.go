package telegram

import "sync"

// conversationState is the per-chat input mode. The update loop routes a
// free-text message by (state, text) instead of text alone.
type conversationState int

const (
	stateIdle conversationState = iota
	// stateAdding expects the next message to be a fragrance name.
	stateAdding
	// stateBroadcast expects the next admin message to be broadcast content.
	stateBroadcast
)

// stateMachine tracks conversation state per chat.
type stateMachine struct {
	mu     sync.Mutex
	states map[int64]conversationState
}

func newStateMachine() *stateMachine {
	return &stateMachine{states: make(map[int64]conversationState)}
}

func (m *stateMachine) get(chatID int64) conversationState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[chatID]
}

func (m *stateMachine) set(chatID int64, state conversationState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if state == stateIdle {
		delete(m.states, chatID)
		return
	}
	m.states[chatID] = state
}

func (m *stateMachine) clear(chatID int64) {
	m.set(chatID, stateIdle)
}
