package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"tunnelrun.ai/internal/protocol"
	"tunnelrun.ai/internal/sim/game"
	"tunnelrun.ai/internal/sim/match"
)

// Runner is the part of match.Match the socket needs.
type Runner interface {
	Start(ctx context.Context, name string) (match.StartResponse, error)
	Keypress(key string) error
	QuitMatch(id string)
	Subscribe(id string, out chan []byte)
	Unsubscribe(id string)
}

type Server struct {
	match Runner
	log   *log.Logger

	upgrader websocket.Upgrader
	nextID   atomic.Uint64
}

func NewServer(m Runner, logger *log.Logger) *Server {
	return &Server{
		match: m,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		matchID, ok := s.handshake(r.Context(), conn)
		if !ok {
			return
		}
		defer s.match.QuitMatch(matchID)

		sid := fmt.Sprintf("P%d", s.nextID.Add(1))
		out := make(chan []byte, 8)
		errs := make(chan []byte, 8)
		s.match.Subscribe(sid, out)
		defer s.match.Unsubscribe(sid)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine. It is the only writer once the handshake is done.
		go func() {
			for {
				var b []byte
				select {
				case <-ctx.Done():
					return
				case b = <-out:
				case b = <-errs:
				}
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					cancel()
					return
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			if e := s.handleCommand(msg); e != nil {
				if b, err := json.Marshal(e); err == nil {
					select {
					case errs <- b:
					default:
					}
				}
			}
		}
		cancel()
	}
}

// handleCommand applies one in-match command and returns the error reply, if any.
func (s *Server) handleCommand(raw []byte) *protocol.ErrorMsg {
	cmd, err := protocol.DecodeCommand(raw)
	if err != nil {
		e := protocol.NewError(protocol.ErrProtoBadRequest, err.Error())
		return &e
	}
	switch c := cmd.(type) {
	case *protocol.KeyCmd:
		// Invalid keys still reach the game, which logs and ignores them.
		err := s.match.Keypress(c.Key)
		switch {
		case errors.Is(err, game.ErrNotRunning):
			e := protocol.NewError(protocol.ErrNotRunning, "no match running")
			return &e
		case err != nil:
			e := protocol.NewError(protocol.ErrInternal, err.Error())
			return &e
		case !game.ValidKey(c.Key):
			e := protocol.NewError(protocol.ErrBadKey, fmt.Sprintf("invalid key %q. valid keys: w,a,s,d A B", c.Key))
			return &e
		}
		return nil
	case *protocol.JoinCmd:
		e := protocol.NewError(protocol.ErrProtoBadRequest, "already joined")
		return &e
	}
	return nil
}

func (s *Server) handshake(ctx context.Context, conn *websocket.Conn) (matchID string, ok bool) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", false
	}

	cmd, err := protocol.DecodeCommand(msg)
	if err != nil {
		_ = writeJSON(conn, protocol.NewError(protocol.ErrProtoBadRequest, err.Error()))
		return "", false
	}
	join, isJoin := cmd.(*protocol.JoinCmd)
	if !isJoin {
		_ = writeJSON(conn, protocol.NewError(protocol.ErrNotJoined, "expected join"))
		return "", false
	}
	if join.Name == "" {
		join.Name = "player"
	}

	startCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	resp, err := s.match.Start(startCtx, join.Name)
	switch {
	case errors.Is(err, match.ErrBusy):
		_ = writeJSON(conn, protocol.NewError(protocol.ErrMatchBusy, "a match is already running"))
		return "", false
	case err != nil:
		if s.log != nil {
			s.log.Printf("start for %q: %v", join.Name, err)
		}
		_ = writeJSON(conn, protocol.NewError(protocol.ErrInternal, "could not start match"))
		return "", false
	}

	info := protocol.InfoMsg{
		Type:            protocol.TypeInfo,
		ProtocolVersion: protocol.Version,
		MatchID:         resp.MatchID,
		Player:          join.Name,
		Info:            resp.Info,
	}
	if err := writeJSON(conn, info); err != nil {
		s.match.QuitMatch(resp.MatchID)
		return "", false
	}
	if s.log != nil {
		s.log.Printf("player %q joined match %s", join.Name, resp.MatchID)
	}
	return resp.MatchID, true
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
