// Package session models the sign-in lifecycle and issues the signed
// credential that proves a completed sign-in.
package session

import (
	"errors"
	"fmt"
)

// Stage is the position of a client in the sign-in flow.
type Stage string

const (
	StageUnauthenticated Stage = "unauthenticated"
	StagePasscodePending Stage = "passcode_pending"
	StageAuthenticated   Stage = "authenticated"
)

// Event drives a Stage transition.
type Event string

const (
	EventCredentialsAccepted Event = "credentials_accepted"
	EventPasscodeVerified    Event = "passcode_verified"
	EventPasscodeRejected    Event = "passcode_rejected"
	EventSignedOut           Event = "signed_out"
)

var ErrInvalidTransition = errors.New("session: invalid transition")

var transitions = map[Stage]map[Event]Stage{
	StageUnauthenticated: {
		EventCredentialsAccepted: StagePasscodePending,
	},
	StagePasscodePending: {
		EventCredentialsAccepted: StagePasscodePending,
		EventPasscodeVerified:    StageAuthenticated,
		EventPasscodeRejected:    StagePasscodePending,
	},
	StageAuthenticated: {},
}

// Next returns the stage reached from stage on event. Signing out is valid
// from every stage.
func Next(stage Stage, event Event) (Stage, error) {
	edges, ok := transitions[stage]
	if !ok {
		return "", fmt.Errorf("%w: unknown stage %q", ErrInvalidTransition, stage)
	}
	if event == EventSignedOut {
		return StageUnauthenticated, nil
	}
	next, ok := edges[event]
	if !ok {
		return "", fmt.Errorf("%w: %s on %s", ErrInvalidTransition, event, stage)
	}
	return next, nil
}
