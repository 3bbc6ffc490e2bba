package services

import "errors"

// Sentinel errors shared by the service layer. Handlers map these to
// HTTP status codes; everything else is treated as an internal error.
var (
	ErrNotFound        = errors.New("record not found")
	ErrForbidden       = errors.New("operation not permitted")
	ErrAccessInactive  = errors.New("access is disabled")
	ErrTokenBound      = errors.New("token already redeemed by another user")
	ErrDuplicateAccess = errors.New("user already has access to this course")
	ErrNoAccess        = errors.New("no active access to this course")
	ErrQuotaExceeded   = errors.New("lesson quota exhausted")
	ErrArchived        = errors.New("lesson is archived")
	ErrNoLessons       = errors.New("course has no available lessons")
	ErrLimitOutOfRange = errors.New("limit value out of range")
	ErrNotEditable     = errors.New("submission is not editable in its current status")
	ErrBusy            = errors.New("resource is busy, retry later")
)
