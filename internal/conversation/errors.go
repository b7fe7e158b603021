package conversation

import "errors"

var (
	ErrConnectionUnavailable  = errors.New("no backend connection for workspace")
	ErrConversationNotFound   = errors.New("conversation not found")
	ErrConversationTerminated = errors.New("conversation terminated")
	ErrTurnInFlight           = errors.New("a turn is already in flight")
)
