package auction

import "errors"

// Validation rejections. Each maps to a distinct reason the caller can
// surface to the bidder as-is.
var (
	ErrNotBiddingPhase     = errors.New("auction is not in the bidding phase")
	ErrUnknownUser         = errors.New("unknown user")
	ErrNoActivePlayer      = errors.New("no player is currently up for auction")
	ErrRoleLimitReached    = errors.New("role limit reached")
	ErrBidTooLow           = errors.New("bid too low")
	ErrInsufficientCredits = errors.New("insufficient credits")
)

// State-machine guard rejections.
var (
	ErrEmptyPool       = errors.New("player pool is empty")
	ErrNotAllReady     = errors.New("not all users are ready")
	ErrInvalidStatus   = errors.New("operation not allowed in current status")
	ErrDuplicatePlayer = errors.New("duplicate player id")
	ErrBadBaseValue    = errors.New("player base value must be positive")
)
