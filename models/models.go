package models

import (
	"errors"
)

// ErrSessionNotFound is returned when a session is not found
var ErrSessionNotFound = errors.New("session not found")

// ErrRunNotFound is returned when a run is not found
var ErrRunNotFound = errors.New("run not found")

// ErrUnknownTool is returned when a tool name has no registered handler
var ErrUnknownTool = errors.New("unknown tool")

// RunState tracks a single request's progress through the agent loop.
type RunState string

const (
	RunStateAwaitingRequest RunState = "awaiting_request"
	RunStateClassifying     RunState = "classifying"
	RunStateRetrieving      RunState = "retrieving"
	RunStatePlanning        RunState = "planning"
	RunStateExecuting       RunState = "executing"
	RunStateDone            RunState = "done"
	RunStateFailed          RunState = "failed"
)
