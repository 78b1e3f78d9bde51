package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Rule/action layer.
	ErrBadRequest      = "E_BAD_REQUEST"
	ErrStale           = "E_STALE"
	ErrHandsFull       = "E_HANDS_FULL"
	ErrNotHolding      = "E_NOT_HOLDING"
	ErrNothingNearby   = "E_NOTHING_NEARBY"
	ErrNoTarget        = "E_NO_TARGET"
	ErrWrongItem       = "E_WRONG_ITEM"
	ErrWrongKind       = "E_WRONG_KIND"
	ErrStationComplete = "E_STATION_COMPLETE"
	ErrNotComplete     = "E_NOT_COMPLETE"
	ErrStationBusy     = "E_STATION_BUSY"
	ErrCooldown        = "E_COOLDOWN"
	ErrLimitReached    = "E_LIMIT_REACHED"
	ErrCustomerBusy    = "E_CUSTOMER_BUSY"
	ErrMovementLocked  = "E_MOVEMENT_LOCKED"
	ErrPaused          = "E_PAUSED"
	ErrRoundOver       = "E_ROUND_OVER"
	ErrInternal        = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrBadRequest:      {},
	ErrStale:           {},
	ErrHandsFull:       {},
	ErrNotHolding:      {},
	ErrNothingNearby:   {},
	ErrNoTarget:        {},
	ErrWrongItem:       {},
	ErrWrongKind:       {},
	ErrStationComplete: {},
	ErrNotComplete:     {},
	ErrStationBusy:     {},
	ErrCooldown:        {},
	ErrLimitReached:    {},
	ErrCustomerBusy:    {},
	ErrMovementLocked:  {},
	ErrPaused:          {},
	ErrRoundOver:       {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
