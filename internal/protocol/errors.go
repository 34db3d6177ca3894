package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Match routing/state.
	ErrMatchBusy  = "E_MATCH_BUSY"
	ErrNotRunning = "E_NOT_RUNNING"
	ErrNotJoined  = "E_NOT_JOINED"

	// Input layer.
	ErrBadKey = "E_BAD_KEY"

	ErrInternal = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrMatchBusy:       {},
	ErrNotRunning:      {},
	ErrNotJoined:       {},
	ErrBadKey:          {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
