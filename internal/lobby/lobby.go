package lobby

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/wordchain-backend/internal/engine"
	"github.com/DoyleJ11/wordchain-backend/internal/lexicon"
	"github.com/DoyleJ11/wordchain-backend/internal/store"
	"github.com/DoyleJ11/wordchain-backend/internal/types"
)

var ErrClosed = errors.New("room is closed")

const recordTimeout = 5 * time.Second

type Msg interface{ isLobbyMsg() }

type Join struct {
	ConnID string
	Reply  chan JoinResult
}

func (Join) isLobbyMsg() {}

type JoinResult struct {
	Slot engine.Slot
	Err  error
}

type Leave struct {
	Slot  engine.Slot
	Reply chan int // players still seated
}

func (Leave) isLobbyMsg() {}

type Start struct{ Slot engine.Slot }

func (Start) isLobbyMsg() {}

type Submit struct {
	Slot engine.Slot
	Word string
}

func (Submit) isLobbyMsg() {}

// LookupDone carries a dictionary verdict back into the loop. Turn is the session turn
// captured when the word was submitted.
type LookupDone struct {
	Slot    engine.Slot
	Word    string
	Turn    int
	Verdict lexicon.Verdict
}

func (LookupDone) isLobbyMsg() {}

// Tick is one countdown step from the timer of generation Gen.
type Tick struct{ Gen int }

func (Tick) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

type View struct {
	Code         string
	Version      int
	NumPlayers   int
	TimerRunning bool
	Closed       bool
	State        engine.State
}

type Broadcaster interface {
	BroadcastToRoom(roomID string, msg types.ServerMessage)
	SendToPlayer(roomID string, slot engine.Slot, msg types.ServerMessage)
}

// Binder records which connection took a seat. It is called from the lobby loop so a
// joining player is bound before the join is announced.
type Binder interface {
	Bind(connID, roomID string, slot engine.Slot)
}

type Recorder interface {
	RecordMatch(ctx context.Context, m store.Match) error
}

type Deps struct {
	Oracle      lexicon.Oracle
	Broadcaster Broadcaster
	Binder      Binder
	Recorder    Recorder
	Logger      *zap.Logger
	Rules       engine.Rules
	// TickInterval is the wall-clock length of one countdown second.
	TickInterval time.Duration
}

// Lobby is one room. Every mutation of its session happens on the loop goroutine.
type Lobby struct {
	code    string
	inbox   chan Msg
	state   engine.State
	version int
	closed  bool

	oracle       lexicon.Oracle
	bc           Broadcaster
	binder       Binder
	recorder     Recorder
	logger       *zap.Logger
	tickInterval time.Duration

	timerGen    int
	timerCancel context.CancelFunc

	// records tracks in-flight match writes; Close waits for them.
	records sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewLobby(parent context.Context, code string, deps Deps) *Lobby {
	ctx, cancel := context.WithCancel(parent)

	if deps.Rules == (engine.Rules{}) {
		deps.Rules = engine.DefaultRules()
	}
	if deps.TickInterval <= 0 {
		deps.TickInterval = time.Second
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Recorder == nil {
		deps.Recorder = store.NopRecorder{}
	}

	l := &Lobby{
		code:         code,
		inbox:        make(chan Msg, 64), // Small buffer
		state:        engine.NewEmptyState(deps.Rules),
		oracle:       deps.Oracle,
		bc:           deps.Broadcaster,
		binder:       deps.Binder,
		recorder:     deps.Recorder,
		logger:       deps.Logger.With(zap.String("room", code)),
		tickInterval: deps.TickInterval,
		ctx:          ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
	}

	go l.loop()
	return l
}

func (l *Lobby) loop() {
	defer close(l.done)
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Join:
				msg.Reply <- l.handleJoin(msg.ConnID)

			case Leave:
				msg.Reply <- l.handleLeave(msg.Slot)

			case Start:
				l.handleStart(msg.Slot)

			case Submit:
				l.handleSubmit(msg.Slot, msg.Word)

			case LookupDone:
				l.handleLookup(msg)

			case Tick:
				l.handleTick(msg.Gen)

			case GetState:
				msg.Reply <- l.view()

			case Shutdown:
				l.shutdown()
				return
			}
		}
	}
}

func (l *Lobby) handleJoin(connID string) JoinResult {
	if l.closed {
		return JoinResult{Err: ErrClosed}
	}
	events, err := l.apply(engine.Command{Type: engine.CmdJoin})
	if err != nil {
		return JoinResult{Err: err}
	}
	slot := events[0].Slot
	l.binder.Bind(connID, l.code, slot)
	l.logger.Info("player joined", zap.String("slot", string(slot)), zap.String("conn", connID))

	// The creator's own join is acknowledged by room_created, not announced.
	if len(l.state.Players) > 1 {
		l.bc.BroadcastToRoom(l.code, l.message(types.MsgPlayerJoined))
	}
	return JoinResult{Slot: slot}
}

func (l *Lobby) handleLeave(slot engine.Slot) int {
	if _, err := l.apply(engine.Command{Type: engine.CmdLeave, Slot: slot}); err != nil {
		l.logger.Debug("leave ignored", zap.String("slot", string(slot)), zap.Error(err))
	}
	remaining := len(l.state.Players)
	if remaining == 0 {
		l.stopTimer()
		l.closed = true
		l.logger.Info("room emptied")
		return 0
	}
	l.bc.BroadcastToRoom(l.code, l.message(types.MsgPlayerLeft))
	return remaining
}

func (l *Lobby) handleStart(slot engine.Slot) {
	if l.closed {
		return
	}
	if _, err := l.apply(engine.Command{Type: engine.CmdStartGame, Slot: slot}); err != nil {
		l.bc.SendToPlayer(l.code, slot, types.Error(startErrorText(err)))
		return
	}
	l.startTimer()
	l.logger.Info("game started")
	l.bc.BroadcastToRoom(l.code, l.message(types.MsgGameStarted))
}

func startErrorText(err error) string {
	switch {
	case errors.Is(err, engine.ErrNotOwner):
		return "Only the room owner can start the game"
	case errors.Is(err, engine.ErrNotEnoughPlayers):
		return "Waiting for a second player"
	default:
		return err.Error()
	}
}

// handleSubmit runs the synchronous stages and hands the word to the dictionary.
// The verdict comes back as a LookupDone message.
func (l *Lobby) handleSubmit(slot engine.Slot, raw string) {
	word, err := engine.CheckWord(l.state, slot, raw)
	if err != nil {
		l.reject(slot, err)
		return
	}
	go l.lookup(slot, word, l.state.Turn)
}

func (l *Lobby) lookup(slot engine.Slot, word string, turn int) {
	verdict := l.oracle.Lookup(l.ctx, word)
	select {
	case l.inbox <- LookupDone{Slot: slot, Word: word, Turn: turn, Verdict: verdict}:
	case <-l.ctx.Done():
	}
}

func (l *Lobby) handleLookup(msg LookupDone) {
	if l.state.Phase != engine.PhasePlaying || l.state.Turn != msg.Turn || l.state.CurrentPlayer != msg.Slot {
		l.logger.Debug("discarding stale lookup",
			zap.String("word", msg.Word),
			zap.Int("submitted_turn", msg.Turn),
			zap.Int("turn", l.state.Turn),
		)
		return
	}

	switch msg.Verdict {
	case lexicon.Recognized:
		if _, err := l.apply(engine.Command{Type: engine.CmdAcceptWord, Slot: msg.Slot, Word: msg.Word}); err != nil {
			l.logger.Debug("accept rejected", zap.String("word", msg.Word), zap.Error(err))
			return
		}
		l.bc.BroadcastToRoom(l.code, l.message(types.MsgGameStateUpdate))
	case lexicon.NotRecognized:
		l.reject(msg.Slot, &engine.RejectError{Reason: engine.ReasonNotFound, Word: msg.Word})
	default:
		l.reject(msg.Slot, &engine.RejectError{Reason: engine.ReasonUnavailable, Word: msg.Word})
	}
}

// reject charges a life when a game is in progress and tells only the submitter.
func (l *Lobby) reject(slot engine.Slot, err error) {
	var rej *engine.RejectError
	if !errors.As(err, &rej) {
		rej = &engine.RejectError{}
	}

	text := rej.Error()
	if l.penalizes(rej) {
		if _, err := l.apply(engine.Command{Type: engine.CmdPenalize, Slot: slot}); err == nil {
			text = fmt.Sprintf("%s. %d tries remaining.", text, l.state.Lives[slot])
		}
	}

	l.bc.SendToPlayer(l.code, slot, types.ServerMessage{
		Type:      types.MsgWordRejected,
		Version:   l.version,
		Message:   text,
		ErrorType: string(rej.Reason),
	})
}

func (l *Lobby) penalizes(rej *engine.RejectError) bool {
	if l.state.Phase != engine.PhasePlaying {
		return false
	}
	if rej.Reason == engine.ReasonUnavailable {
		return l.state.Rules.PenalizeUnavailable
	}
	return true
}

func (l *Lobby) handleTick(gen int) {
	if l.timerCancel == nil || gen != l.timerGen {
		return
	}
	if _, err := l.apply(engine.Command{Type: engine.CmdTick}); err != nil {
		return
	}
	l.bc.BroadcastToRoom(l.code, l.message(types.MsgGameStateUpdate))
}

// apply is the only place the session state changes. A finished game stops the timer
// and announces game_over before the caller sends anything else.
func (l *Lobby) apply(cmd engine.Command) ([]engine.Event, error) {
	events, next, err := engine.Apply(l.state, cmd)
	if err != nil {
		return nil, err
	}
	l.state = next
	l.version++

	if engine.ContainsEvent(events, engine.EvtGameCompleted) {
		l.stopTimer()
		l.logger.Info("game over", zap.String("winner", string(l.state.Winner)))
		l.bc.BroadcastToRoom(l.code, l.message(types.MsgGameOver))
		l.record()
	}
	return events, nil
}

func (l *Lobby) record() {
	match := store.NewMatch(l.code, l.state, time.Now())
	l.records.Add(1)
	go func() {
		defer l.records.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(l.ctx), recordTimeout)
		defer cancel()
		if err := l.recorder.RecordMatch(ctx, match); err != nil {
			l.logger.Error("recording match failed", zap.Error(err))
		}
	}()
}

func (l *Lobby) startTimer() {
	l.stopTimer()
	l.timerGen++
	ctx, cancel := context.WithCancel(l.ctx)
	l.timerCancel = cancel
	go l.runTimer(ctx, l.timerGen)
}

func (l *Lobby) stopTimer() {
	if l.timerCancel != nil {
		l.timerCancel()
		l.timerCancel = nil
	}
}

func (l *Lobby) runTimer(ctx context.Context, gen int) {
	ticker := time.NewTicker(l.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			select {
			case l.inbox <- Tick{Gen: gen}:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (l *Lobby) message(kind string) types.ServerMessage {
	return types.ServerMessage{
		Type:      kind,
		Version:   l.version,
		RoomID:    l.code,
		GameState: types.NewGameState(l.state),
	}
}

func (l *Lobby) view() View {
	return View{
		Code:         l.code,
		Version:      l.version,
		NumPlayers:   len(l.state.Players),
		TimerRunning: l.timerCancel != nil,
		Closed:       l.closed,
		State:        l.state.Clone(),
	}
}

func (l *Lobby) shutdown() {
	l.stopTimer()
	l.closed = true
	l.cancel()
	l.records.Wait()
}

func (l *Lobby) Code() string { return l.code }

// Expose the inbox so tests or the dispatcher can send messages.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

func (l *Lobby) send(m Msg) error {
	select {
	case <-l.done:
		return ErrClosed
	default:
	}
	select {
	case l.inbox <- m:
		return nil
	case <-l.done:
		return ErrClosed
	}
}

func await[T any](l *Lobby, reply chan T) (T, error) {
	select {
	case r := <-reply:
		return r, nil
	case <-l.done:
		select {
		case r := <-reply:
			return r, nil
		default:
		}
		var zero T
		return zero, ErrClosed
	}
}

// Join seats connID in the first free slot.
func (l *Lobby) Join(connID string) (engine.Slot, error) {
	reply := make(chan JoinResult, 1)
	if err := l.send(Join{ConnID: connID, Reply: reply}); err != nil {
		return "", err
	}
	res, err := await(l, reply)
	if err != nil {
		return "", err
	}
	return res.Slot, res.Err
}

// Leave frees slot and reports how many players remain. At zero the room closes itself.
func (l *Lobby) Leave(slot engine.Slot) (int, error) {
	reply := make(chan int, 1)
	if err := l.send(Leave{Slot: slot, Reply: reply}); err != nil {
		return 0, err
	}
	return await(l, reply)
}

func (l *Lobby) Start(slot engine.Slot) error {
	return l.send(Start{Slot: slot})
}

func (l *Lobby) Submit(slot engine.Slot, word string) error {
	return l.send(Submit{Slot: slot, Word: word})
}

func (l *Lobby) View() (View, error) {
	reply := make(chan View, 1)
	if err := l.send(GetState{Reply: reply}); err != nil {
		return View{}, err
	}
	return await(l, reply)
}

// Close stops the loop and its timer and waits for the loop and any pending match write
// to finish.
func (l *Lobby) Close() {
	l.cancel()
	<-l.done
}
