package domain

import "errors"

var (
	ErrPollNotFound    = errors.New("poll not found")
	ErrInvalidPollID   = errors.New("invalid poll id")
	ErrInvalidChoice   = errors.New("invalid choice for this poll")
	ErrInvalidIdentity = errors.New("voter identity must be a user id or an anonymous token")
	ErrDuplicateVote   = errors.New("a vote for this identity already exists")
	ErrNotPollCreator  = errors.New("only the poll creator may do this")
)
