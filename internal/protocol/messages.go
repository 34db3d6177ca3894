package protocol

// join (client -> server)
type JoinCmd struct {
	Cmd  string `json:"cmd"`
	Name string `json:"name,omitempty"`
}

// key (client -> server)
type KeyCmd struct {
	Cmd string `json:"cmd"`
	Key string `json:"key"`
}

// INFO (server -> client), sent once after a join.
type InfoMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	MatchID         string `json:"match_id"`
	Player          string `json:"player"`
	Info            any    `json:"info"`
}

// STATE (server -> client), one per tick.
type StateMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	MatchID         string `json:"match_id"`
	Tick            uint64 `json:"tick"`
	State           any    `json:"state"`
}

// GAME_OVER (server -> client)
type GameOverMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	MatchID         string `json:"match_id"`
	Outcome         string `json:"outcome"`
	Score           int    `json:"score"`
	Level           int    `json:"level"`
	TotalSteps      int    `json:"total_steps"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}

func NewError(code, msg string) ErrorMsg {
	return ErrorMsg{Type: TypeError, ProtocolVersion: Version, Code: code, Message: msg}
}
