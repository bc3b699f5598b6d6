package services

import "errors"

// Sentinel errors surfaced by the submission/review flow. Handlers map these
// to HTTP statuses; anything else is a 500.
var (
	ErrQuestNotFound       = errors.New("quest not found")
	ErrQuestInactive       = errors.New("quest is not open for submissions")
	ErrQuestFull           = errors.New("quest has reached its participant limit")
	ErrProofRequired       = errors.New("proof photo is required")
	ErrDuplicateSubmission = errors.New("submission already exists for this quest")
	ErrSubmissionNotFound  = errors.New("submission not found")
	ErrAlreadyApproved     = errors.New("submission is already approved")
	ErrEntityMissing       = errors.New("referenced user or quest no longer exists")
	ErrUserNotFound        = errors.New("user not found")
)
