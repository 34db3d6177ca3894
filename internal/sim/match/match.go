package match

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"tunnelrun.ai/internal/persistence/snapshot"
	"tunnelrun.ai/internal/protocol"
	"tunnelrun.ai/internal/sim/catalogs"
	"tunnelrun.ai/internal/sim/game"
	"tunnelrun.ai/internal/sim/tuning"
)

// ErrBusy is returned by Start while another match is in progress.
var ErrBusy = errors.New("match in progress")

type Config struct {
	Tuning   tuning.Tuning
	Catalogs *catalogs.Catalogs
	Deps     game.Deps
	Logger   *log.Logger

	// GameLogger receives the game's own lifecycle lines. Nil discards them.
	GameLogger *log.Logger
}

// Match runs a Game on a fixed tick and fans its snapshots out to subscribers.
// The Run goroutine owns the Game; everything else talks to it over channels.
type Match struct {
	cfg    Config
	cats   *catalogs.Catalogs
	logger *log.Logger
	game   *game.Game

	id        string
	startedAt time.Time
	tick      atomic.Uint64
	running   atomic.Bool
	matches   atomic.Uint64

	start       chan StartRequest
	quit        chan string
	stop        chan struct{}
	subscribe   chan SubscribeRequest
	unsubscribe chan string
	info        chan infoReq

	subs map[string]chan []byte

	tickLogger   TickLogger
	resultSink   ResultSink
	snapshotSink chan<- snapshot.SnapshotV1

	metrics atomic.Value
}

func New(cfg Config) (*Match, error) {
	cats := cfg.Catalogs
	if cats == nil {
		cats = catalogs.Defaults()
	}
	g, err := game.New(game.Config{
		Tuning:   cfg.Tuning,
		Catalogs: cats,
		Deps:     cfg.Deps,
		Logger:   cfg.GameLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("game: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	m := &Match{
		cfg:         cfg,
		cats:        cats,
		logger:      logger,
		game:        g,
		start:       make(chan StartRequest, 4),
		quit:        make(chan string, 1),
		stop:        make(chan struct{}),
		subscribe:   make(chan SubscribeRequest, 16),
		unsubscribe: make(chan string, 16),
		info:        make(chan infoReq, 4),
		subs:        map[string]chan []byte{},
	}
	m.publishMetrics(0)
	return m, nil
}

func (m *Match) SetTickLogger(l TickLogger)                    { m.tickLogger = l }
func (m *Match) SetResultSink(s ResultSink)                    { m.resultSink = s }
func (m *Match) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { m.snapshotSink = ch }

func (m *Match) TickRateHz() int { return m.cfg.Tuning.TickRateHz }
func (m *Match) Running() bool   { return m.running.Load() }

func (m *Match) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(m.cfg.Tuning.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.stop:
			return nil
		case req := <-m.start:
			m.handleStart(req)
		case id := <-m.quit:
			m.handleQuit(id)
		case req := <-m.subscribe:
			m.subs[req.ID] = req.Out
		case id := <-m.unsubscribe:
			delete(m.subs, id)
		case req := <-m.info:
			req.Resp <- m.game.Info()
		case <-ticker.C:
			m.step()
		}
	}
}

// Stop ends Run. It does not end the current match.
func (m *Match) Stop() { close(m.stop) }

// Start asks the loop to begin a match for name.
func (m *Match) Start(ctx context.Context, name string) (StartResponse, error) {
	req := StartRequest{Name: name, Resp: make(chan StartResponse, 1)}
	select {
	case m.start <- req:
	case <-ctx.Done():
		return StartResponse{}, ctx.Err()
	}
	select {
	case resp := <-req.Resp:
		return resp, resp.Err
	case <-ctx.Done():
		return StartResponse{}, ctx.Err()
	}
}

// Quit ends the current match at the next tick boundary.
func (m *Match) Quit() { m.QuitMatch("") }

// QuitMatch is Quit scoped to one match id; it is a no-op once that match is over.
func (m *Match) QuitMatch(id string) {
	select {
	case m.quit <- id:
	default:
	}
}

// Keypress buffers a key for the next tick.
func (m *Match) Keypress(key string) error {
	if !m.running.Load() {
		return game.ErrNotRunning
	}
	m.game.Keypress(key)
	return nil
}

func (m *Match) Info(ctx context.Context) (game.Info, error) {
	req := infoReq{Resp: make(chan game.Info, 1)}
	select {
	case m.info <- req:
	case <-ctx.Done():
		return game.Info{}, ctx.Err()
	}
	select {
	case info := <-req.Resp:
		return info, nil
	case <-ctx.Done():
		return game.Info{}, ctx.Err()
	}
}

func (m *Match) Subscribe(id string, out chan []byte) {
	m.subscribe <- SubscribeRequest{ID: id, Out: out}
}

func (m *Match) Unsubscribe(id string) { m.unsubscribe <- id }

func (m *Match) Metrics() Metrics {
	v := m.metrics.Load()
	if v == nil {
		return Metrics{}
	}
	mm, ok := v.(Metrics)
	if !ok {
		return Metrics{}
	}
	return mm
}

func (m *Match) handleStart(req StartRequest) {
	if m.game.Running() {
		req.Resp <- StartResponse{Err: ErrBusy}
		return
	}
	name := req.Name
	if name == "" {
		name = "player"
	}
	if err := m.game.Start(name); err != nil {
		req.Resp <- StartResponse{Err: err}
		return
	}
	m.id = uuid.NewString()
	m.startedAt = time.Now()
	m.tick.Store(0)
	m.running.Store(true)
	m.matches.Add(1)
	m.logger.Printf("match %s started for %q", m.id, name)
	m.publishMetrics(0)
	req.Resp <- StartResponse{MatchID: m.id, Info: m.game.Info()}
}

func (m *Match) handleQuit(id string) {
	if !m.game.Running() || (id != "" && id != m.id) {
		return
	}
	m.game.Quit()
	m.finish()
}

func (m *Match) step() {
	if !m.game.Running() {
		return
	}
	start := time.Now()
	snap, ok := m.game.Step()
	if !ok {
		return
	}
	tick := m.tick.Add(1)

	msg := protocol.StateMsg{
		Type:            protocol.TypeState,
		ProtocolVersion: protocol.Version,
		MatchID:         m.id,
		Tick:            tick,
		State:           snap,
	}
	if b, err := json.Marshal(msg); err == nil {
		for _, out := range m.subs {
			sendLatest(out, b)
		}
	} else {
		m.logger.Printf("encode state: %v", err)
	}

	if m.tickLogger != nil {
		entry := TickLogEntry{
			MatchID: m.id,
			Tick:    tick,
			Key:     m.game.LastKey(),
			Level:   snap.Level,
			Step:    snap.Step,
			Score:   snap.Score,
			Lives:   snap.Lives,
			State:   m.game.State().String(),
			Digest:  m.game.Digest(),
		}
		if err := m.tickLogger.WriteTick(entry); err != nil {
			m.logger.Printf("tick log: %v", err)
		}
	}

	every := uint64(m.cfg.Tuning.SnapshotEveryTicks)
	if every > 0 && tick%every == 0 {
		m.pushSnapshot(tick)
	}

	if !m.game.Running() {
		m.finish()
	}
	m.publishMetrics(time.Since(start))
}

// finish closes out a match that just left the running state.
func (m *Match) finish() {
	m.running.Store(false)
	tick := m.tick.Load()
	rec := MatchRecord{
		MatchID:    m.id,
		Player:     m.game.Player(),
		Outcome:    string(m.game.Outcome()),
		Level:      m.game.Level(),
		Score:      m.game.Score(),
		Lives:      m.game.Lives(),
		TotalSteps: m.game.TotalSteps(),
		Ticks:      tick,
		Seed:       m.cfg.Tuning.Seed,
		StartedAt:  m.startedAt.UnixMilli(),
		EndedAt:    time.Now().UnixMilli(),
	}
	m.logger.Printf("match %s over: %s score=%d level=%d steps=%d", rec.MatchID, rec.Outcome, rec.Score, rec.Level, rec.TotalSteps)

	over := protocol.GameOverMsg{
		Type:            protocol.TypeGameOver,
		ProtocolVersion: protocol.Version,
		MatchID:         m.id,
		Outcome:         rec.Outcome,
		Score:           rec.Score,
		Level:           rec.Level,
		TotalSteps:      rec.TotalSteps,
	}
	if b, err := json.Marshal(over); err == nil {
		for _, out := range m.subs {
			sendLatest(out, b)
		}
	}

	m.pushSnapshot(tick)
	m.publishMetrics(0)
	if m.resultSink != nil {
		if err := m.resultSink.RecordMatch(rec); err != nil {
			m.logger.Printf("record match: %v", err)
		}
	}
}

func (m *Match) pushSnapshot(tick uint64) {
	if m.snapshotSink == nil {
		return
	}
	snap := m.ExportSnapshot(tick)
	select {
	case m.snapshotSink <- snap:
	default:
		// Drop snapshot if sink is backed up.
	}
}

func (m *Match) publishMetrics(stepDur time.Duration) {
	snap := m.game.Snapshot()
	m.metrics.Store(Metrics{
		MatchID:     m.id,
		Tick:        m.tick.Load(),
		State:       m.game.State().String(),
		Level:       snap.Level,
		Step:        snap.Step,
		Score:       snap.Score,
		Lives:       snap.Lives,
		Subscribers: len(m.subs),
		Matches:     m.matches.Load(),
		StepMS:      float64(stepDur.Microseconds()) / 1000,
	})
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
