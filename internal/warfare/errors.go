package warfare

import "errors"

// Precondition violations. Any of these aborts the whole operation.
var (
	ErrTokensNoLongerInColony = errors.New("tokens no longer in colony")
	ErrTokenInActiveBattle    = errors.New("token in active battle")
	ErrInvalidTokenCount      = errors.New("invalid token count")
	ErrConflictOfInterest     = errors.New("caller controls the opposing colony")
	ErrNotAuthorized          = errors.New("caller does not control colony")
	ErrSameColony             = errors.New("colony cannot fight itself")
	ErrUnknownForfeitKind     = errors.New("unknown forfeit kind")
)

// ErrActionOnCooldown is returned when a colony acts again inside its cooldown.
var ErrActionOnCooldown = errors.New("action on cooldown")
