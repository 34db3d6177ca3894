package protocol

import "encoding/json"

const Version = "1.0"

// Client commands.
const (
	CmdJoin = "join"
	CmdKey  = "key"
)

// Server message types.
const (
	TypeInfo     = "INFO"
	TypeState    = "STATE"
	TypeGameOver = "GAME_OVER"
	TypeError    = "ERROR"
)

// BaseCommand lets us route client JSON by cmd.
type BaseCommand struct {
	Cmd string `json:"cmd"`
}

func DecodeBase(b []byte) (BaseCommand, error) {
	var m BaseCommand
	err := json.Unmarshal(b, &m)
	return m, err
}
