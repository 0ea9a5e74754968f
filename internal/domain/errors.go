package domain

import "errors"

var (
	ErrHistoryDisabled    = errors.New("history is disabled")
	ErrUnknownJoinRequest = errors.New("no pending join request")
)
