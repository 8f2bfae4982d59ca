package domain

import "errors"

var (
	// ErrInvalidPreferences is returned when the requested category or difficulty is unknown.
	ErrInvalidPreferences = errors.New("invalid matchmaking preferences")
	// ErrEmptyUsername rejects queue joins without a display name.
	ErrEmptyUsername = errors.New("username must not be empty")
	// ErrNotInMatch is returned for actions referencing a match the caller is not part of.
	ErrNotInMatch = errors.New("participant is not in an active match")
	// ErrAlreadyInMatch rejects queue joins while the participant holds a live seat.
	ErrAlreadyInMatch = errors.New("participant is already in a live match")
	// ErrDuplicateAnswer rejects a second submission for the same question.
	ErrDuplicateAnswer = errors.New("answer already submitted for this question")
	// ErrUnknownQuestion indicates a question id that does not exist in the match's set.
	ErrUnknownQuestion = errors.New("unknown question")
	// ErrQuestionNotActive rejects answers for a question that is not the current one.
	ErrQuestionNotActive = errors.New("question is not currently active")
	// ErrMatchNotFound indicates the referenced match does not exist (or was discarded).
	ErrMatchNotFound = errors.New("match not found")
)
