package comments

import "github.com/pkg/errors"

var (
	ErrMaxDepth          = errors.New("Maximum reply depth reached. Please reply in the main comment area.")
	ErrTargetNotRendered = errors.New("Reply form not found, please click reply button again")
	ErrNoForm            = errors.New("no reply form is open")
	ErrSubmitting        = errors.New("already submitting, please wait")
	ErrAlreadyLiked      = errors.New("You have already liked this!")
	ErrLikeInFlight      = errors.New("like already in progress")
	ErrUnknownTarget     = errors.New("comment not found, please refresh")
)
