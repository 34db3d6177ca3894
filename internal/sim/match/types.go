package match

import "tunnelrun.ai/internal/sim/game"

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

// ResultSink receives one record per finished match.
type ResultSink interface {
	RecordMatch(rec MatchRecord) error
}

// TickLogEntry is one line of the tick log. Key is the input consumed by the
// tick, which is all a replay needs besides the tuning and catalogs.
type TickLogEntry struct {
	MatchID string `json:"match_id"`
	Tick    uint64 `json:"tick"`
	Key     string `json:"key,omitempty"`
	Level   int    `json:"level"`
	Step    int    `json:"step"`
	Score   int    `json:"score"`
	Lives   int    `json:"lives"`
	State   string `json:"state"`
	Digest  string `json:"digest"`
}

type MatchRecord struct {
	MatchID    string `json:"match_id"`
	Player     string `json:"player"`
	Outcome    string `json:"outcome"`
	Level      int    `json:"level"`
	Score      int    `json:"score"`
	Lives      int    `json:"lives"`
	TotalSteps int    `json:"total_steps"`
	Ticks      uint64 `json:"ticks"`
	Seed       int64  `json:"seed"`
	StartedAt  int64  `json:"started_at_ms"`
	EndedAt    int64  `json:"ended_at_ms"`
}

type StartRequest struct {
	Name string
	Resp chan StartResponse
}

type StartResponse struct {
	MatchID string
	Info    game.Info
	Err     error
}

type SubscribeRequest struct {
	ID  string
	Out chan []byte
}

type infoReq struct {
	Resp chan game.Info
}

// Metrics is a read-only view of the runner, safe to read from any goroutine.
type Metrics struct {
	MatchID     string  `json:"match_id"`
	Tick        uint64  `json:"tick"`
	State       string  `json:"state"`
	Level       int     `json:"level"`
	Step        int     `json:"step"`
	Score       int     `json:"score"`
	Lives       int     `json:"lives"`
	Subscribers int     `json:"subscribers"`
	Matches     uint64  `json:"matches_total"`
	StepMS      float64 `json:"step_ms"`
}
