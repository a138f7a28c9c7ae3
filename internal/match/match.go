// Package match runs UNO games for connected users: seating, turn order,
// timeouts, bot seats, per-seat views and the action log.
package match

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/bot"
	"github.com/jason-s-yu/uno/internal/cache"
	"github.com/jason-s-yu/uno/internal/uno"
	log "github.com/sirupsen/logrus"
)

type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusInProgress Status = "in_progress"
	StatusFinished   Status = "finished"
)

// maxBotMoves bounds the moves bots make in a row before control returns.
const maxBotMoves = 10000

// Seat is one player of the match. Bot seats are driven by Strategy.
type Seat struct {
	UserID    uuid.UUID
	Name      string
	Bot       bool
	Strategy  bot.Strategy
	Connected bool
}

// ActionPublisher receives the action log. *cache.RedisPublisher implements it.
type ActionPublisher interface {
	Publish(ctx context.Context, rec cache.ActionRecord) error
}

type SeatResult struct {
	UserID uuid.UUID `json:"userId"`
	Name   string    `json:"name"`
	Bot    bool      `json:"bot"`
	Score  int       `json:"score"`
	Place  int       `json:"place"` // 1 for the winner; equal scores share a place
}

// Result is handed to OnEnd once a seat reaches the target score.
type Result struct {
	MatchID   uuid.UUID
	Winner    int
	Seats     []SeatResult
	Hands     []uno.HandResult
	StartedAt time.Time
	EndedAt   time.Time
}

type OnEndFunc func(res Result)

// Action is a request from a seated user.
type Action struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
	Color string `json:"color,omitempty"`
	Seat  int    `json:"seat"`
}

const (
	ActionPlay   = "play"
	ActionDraw   = "draw"
	ActionSayUno = "say_uno"
	ActionAccuse = "accuse"
)

// Match holds one game in memory. Every exported method takes Mu; the
// callbacks run with Mu held and must not call back into the match.
type Match struct {
	ID       uuid.UUID
	HostID   uuid.UUID
	Settings Settings
	Seats    []*Seat
	Status   Status
	TurnID   int
	Mu       sync.Mutex

	// Shuffler and Randomizer replace the engine's random sources when set.
	Shuffler   uno.Shuffler
	Randomizer uno.Randomizer

	// Publisher receives the action log. nil disables it.
	Publisher ActionPublisher

	// BroadcastFn sends an event to every seat. If nil, no broadcast is done.
	BroadcastFn func(ev Event)

	// BroadcastToSeatFn sends an event to one seated user.
	BroadcastToSeatFn func(userID uuid.UUID, ev Event)

	OnEnd OnEndFunc

	clock       quartz.Clock
	game        *uno.Game
	hand        *uno.Hand // the hand last announced
	hands       []uno.HandResult
	reported    int // hands already announced as ended
	turnTimer   *quartz.Timer
	actionIndex int
	actions     *actionQueue
	abandoned   bool

	createdAt  time.Time
	startedAt  time.Time
	lastActive time.Time
}

// NewMatch builds a waiting match. A nil clock means the real one.
func NewMatch(host uuid.UUID, settings Settings, clock quartz.Clock) *Match {
	if clock == nil {
		clock = quartz.NewReal()
	}
	now := clock.Now()
	return &Match{
		ID:         uuid.New(),
		HostID:     host,
		Settings:   settings,
		Status:     StatusWaiting,
		clock:      clock,
		createdAt:  now,
		lastActive: now,
	}
}

func (m *Match) logger() *log.Entry {
	return log.WithField("match", m.ID)
}

// Join seats userID. Joining again returns the existing seat, also after the start.
func (m *Match) Join(userID uuid.UUID, name string) (int, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()

	if i := m.seatOf(userID); i >= 0 {
		return i, nil
	}
	if m.Status != StatusWaiting {
		return -1, ErrMatchStarted
	}
	if len(m.Seats) >= m.Settings.MaxSeats {
		return -1, ErrMatchFull
	}
	m.Seats = append(m.Seats, &Seat{UserID: userID, Name: name})
	seat := len(m.Seats) - 1
	m.touch()
	m.logAction(userID, string(EventSeatJoined), map[string]any{"seat": seat, "name": name})
	m.fireEvent(Event{Type: EventSeatJoined, Seat: m.eventSeat(seat)})
	return seat, nil
}

// AddBot seats a computer player using s.
func (m *Match) AddBot(s bot.Strategy) (int, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()

	if m.Status != StatusWaiting {
		return -1, ErrMatchStarted
	}
	if len(m.Seats) >= m.Settings.MaxSeats {
		return -1, ErrMatchFull
	}
	seat := len(m.Seats)
	m.Seats = append(m.Seats, &Seat{
		UserID:    uuid.New(),
		Name:      fmt.Sprintf("%s-bot-%d", s.Name(), seat+1),
		Bot:       true,
		Strategy:  s,
		Connected: true,
	})
	m.touch()
	m.logAction(uuid.Nil, "bot_added", map[string]any{"seat": seat, "strategy": s.Name()})
	m.fireEvent(Event{Type: EventSeatJoined, Seat: m.eventSeat(seat)})
	return seat, nil
}

// Leave frees userID's seat before the start. A leaving host hands the match
// to the next human seat.
func (m *Match) Leave(userID uuid.UUID) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()

	seat := m.seatOf(userID)
	if seat < 0 {
		return ErrNotSeated
	}
	if m.Status != StatusWaiting {
		return ErrMatchStarted
	}
	left := m.eventSeat(seat)
	m.Seats = slices.Delete(m.Seats, seat, seat+1)
	if userID == m.HostID {
		m.HostID = uuid.Nil
		for _, s := range m.Seats {
			if !s.Bot {
				m.HostID = s.UserID
				break
			}
		}
	}
	m.touch()
	m.logAction(userID, string(EventSeatLeft), map[string]any{"seat": seat})
	m.fireEvent(Event{Type: EventSeatLeft, Seat: left, Payload: map[string]any{"host": m.HostID}})
	return nil
}

// UpdateSettings changes the house rules before the start. Only the host may.
func (m *Match) UpdateSettings(userID uuid.UUID, newSettings map[string]any) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()

	if userID != m.HostID {
		return ErrNotHost
	}
	if m.Status != StatusWaiting {
		return ErrMatchStarted
	}
	next := m.Settings
	if err := next.Update(newSettings); err != nil {
		return err
	}
	if next.MaxSeats < len(m.Seats) {
		return fmt.Errorf("%w: %d seats are taken", ErrInvalidSettings, len(m.Seats))
	}
	m.Settings = next
	m.touch()
	return nil
}

// Start deals the first hand. Only the host may start, with at least two seats.
func (m *Match) Start(userID uuid.UUID) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()

	if userID != m.HostID {
		return ErrNotHost
	}
	if m.Status != StatusWaiting {
		return ErrMatchStarted
	}
	if len(m.Seats) < uno.MinPlayers {
		return fmt.Errorf("%w: %d seated", ErrNotEnoughPlayers, len(m.Seats))
	}
	if err := m.Settings.Validate(); err != nil {
		return err
	}

	names := make([]string, len(m.Seats))
	for i, s := range m.Seats {
		names[i] = s.Name
	}
	cfg := m.Settings.gameConfig(names)
	cfg.Shuffler = m.Shuffler
	cfg.Randomizer = m.Randomizer
	g, err := uno.NewGame(cfg)
	if err != nil {
		return fmt.Errorf("failed to deal: %w", err)
	}
	g.OnHandEnd(func(r uno.HandResult) { m.hands = append(m.hands, r) })

	m.game = g
	m.Status = StatusInProgress
	m.startedAt = m.clock.Now()
	m.touch()
	m.logger().WithField("seats", len(m.Seats)).Info("match started")
	m.logAction(userID, string(EventMatchStarted), map[string]any{"settings": m.Settings, "players": names})
	m.fireEvent(Event{Type: EventMatchStarted, Payload: map[string]any{"players": names, "settings": m.Settings}})
	m.afterTransition(true)
	return nil
}

// Handle routes one action of a seated user.
func (m *Match) Handle(userID uuid.UUID, a Action) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()

	if m.Status != StatusInProgress {
		return ErrMatchNotRunning
	}
	seat := m.seatOf(userID)
	if seat < 0 {
		return ErrNotSeated
	}

	moved := false
	var err error
	switch a.Type {
	case ActionPlay:
		var color uno.Color
		if color, err = uno.ParseColor(a.Color); err != nil {
			return err
		}
		err = m.play(seat, a.Index, color)
		moved = true
	case ActionDraw:
		_, err = m.draw(seat)
		moved = true
	case ActionSayUno:
		err = m.sayUno(seat)
	case ActionAccuse:
		err = m.accuse(seat, a.Seat)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, a.Type)
	}
	if err != nil {
		return err
	}
	m.touch()
	m.afterTransition(moved)
	return nil
}

func (m *Match) checkTurn(seat int) (*uno.Hand, error) {
	h := m.game.CurrentHand()
	if h == nil {
		return nil, ErrMatchNotRunning
	}
	if p, ok := h.PlayerInTurn(); !ok || p != seat {
		return nil, ErrNotYourTurn
	}
	return h, nil
}

func (m *Match) play(seat, index int, color uno.Color) error {
	h, err := m.checkTurn(seat)
	if err != nil {
		return err
	}
	card, err := h.Play(index, color)
	if err != nil {
		return err
	}
	payload := map[string]any{
		"index":    index,
		"color":    h.CurrentColor(),
		"handSize": h.HandSize(seat),
	}
	m.logAction(m.Seats[seat].UserID, string(EventCardPlayed), map[string]any{"index": index, "card": card, "color": h.CurrentColor()})
	m.fireEvent(Event{Type: EventCardPlayed, Seat: m.eventSeat(seat), Card: &card, Payload: payload})
	return nil
}

// draw reports false when both piles were empty and nothing happened.
func (m *Match) draw(seat int) (bool, error) {
	h, err := m.checkTurn(seat)
	if err != nil {
		return false, err
	}
	card, drawn, err := h.Draw()
	if err != nil || !drawn {
		return false, err
	}
	m.logAction(m.Seats[seat].UserID, string(EventCardDrawn), map[string]any{"card": card})
	m.fireEvent(Event{Type: EventCardDrawn, Seat: m.eventSeat(seat), Payload: map[string]any{"handSize": h.HandSize(seat)}})
	m.fireEventToSeat(seat, Event{Type: EventPrivateCardDrawn, Seat: m.eventSeat(seat), Card: &card})
	return true, nil
}

func (m *Match) sayUno(seat int) error {
	h := m.game.CurrentHand()
	if h == nil {
		return ErrMatchNotRunning
	}
	if err := h.SayUno(seat); err != nil {
		return err
	}
	m.logAction(m.Seats[seat].UserID, string(EventUnoDeclared), nil)
	m.fireEvent(Event{Type: EventUnoDeclared, Seat: m.eventSeat(seat)})
	return nil
}

func (m *Match) accuse(accuser, accused int) error {
	h := m.game.CurrentHand()
	if h == nil {
		return ErrMatchNotRunning
	}
	caught, err := h.CatchUnoFailure(accuser, accused)
	if err != nil {
		return err
	}
	m.logAction(m.Seats[accuser].UserID, "accuse", map[string]any{"accused": accused, "caught": caught})
	if !caught {
		m.fireEventToSeat(accuser, Event{Type: EventAccuseFailed, Payload: map[string]any{"accused": accused}})
		return nil
	}
	m.fireEvent(Event{
		Type: EventUnoCaught,
		Seat: m.eventSeat(accused),
		Payload: map[string]any{
			"accuser":  accuser,
			"handSize": h.HandSize(accused),
		},
	})
	return nil
}

// afterTransition reports finished hands, deals with the end of the match,
// lets bots move and announces the next turn. moved is false for actions
// that leave the turn where it was.
func (m *Match) afterTransition(moved bool) {
	for range maxBotMoves {
		m.settle()
		if m.Status != StatusInProgress {
			return
		}
		if !m.botMove() {
			break
		}
		moved = true
	}
	if moved {
		m.announceTurn()
	} else {
		m.broadcastSyncStateToAll()
	}
}

// settle announces hands that ended since the last call and the next hand or the end of the match.
func (m *Match) settle() {
	for m.reported < len(m.hands) {
		r := m.hands[m.reported]
		m.reported++
		payload := map[string]any{
			"number": r.Number,
			"winner": r.Winner,
			"points": r.Points,
			"scores": m.game.Scores(),
		}
		m.logAction(m.Seats[r.Winner].UserID, string(EventHandEnded), payload)
		m.fireEvent(Event{Type: EventHandEnded, Seat: m.eventSeat(r.Winner), Payload: payload})
	}
	if winner, ok := m.game.Winner(); ok {
		m.finish(winner)
		return
	}
	if err := m.game.Err(); err != nil {
		m.logger().WithError(err).Error("next hand could not be dealt")
		m.abandon()
		return
	}
	if h := m.game.CurrentHand(); h != m.hand && h != nil {
		m.hand = h
		top, _ := h.DiscardPile().Top()
		payload := map[string]any{
			"number":    m.game.HandsPlayed() + 1,
			"dealer":    h.Dealer(),
			"direction": h.Direction(),
		}
		m.logAction(uuid.Nil, string(EventHandStarted), map[string]any{"number": payload["number"], "dealer": h.Dealer(), "top": top})
		m.fireEvent(Event{Type: EventHandStarted, Card: &top, Payload: payload})
	}
}

// botMove plays one move for a bot in turn. Before moving the bot catches
// anyone who forgot to say UNO.
func (m *Match) botMove() bool {
	h := m.game.CurrentHand()
	if h == nil {
		return false
	}
	p, ok := h.PlayerInTurn()
	if !ok || !m.Seats[p].Bot {
		return false
	}
	for i := range m.Seats {
		if i == p {
			continue
		}
		if open, _ := h.CheckUnoFailure(p, i); open {
			if err := m.accuse(p, i); err != nil {
				m.logger().WithError(err).WithField("seat", p).Warn("bot accusation failed")
			}
		}
	}

	d := m.Seats[p].Strategy.Decide(h)
	if d.Kind == bot.Play {
		if d.SayUno {
			if err := m.sayUno(p); err != nil {
				m.logger().WithError(err).WithField("seat", p).Warn("bot failed to say uno")
			}
		}
		err := m.play(p, d.Index, d.Color)
		if err == nil {
			return true
		}
		m.logger().WithError(err).WithField("seat", p).Warn("bot play rejected, drawing instead")
	}
	drawn, err := m.draw(p)
	if err != nil {
		m.logger().WithError(err).WithField("seat", p).Error("bot draw failed")
		return false
	}
	if !drawn {
		m.logger().WithField("seat", p).Warn("bot has nothing to draw")
	}
	return drawn
}

// announceTurn starts a new turn for the seat in turn.
func (m *Match) announceTurn() {
	h := m.game.CurrentHand()
	p, ok := h.PlayerInTurn()
	if !ok {
		return
	}
	m.TurnID++
	m.scheduleTurnTimer(p)
	m.fireEvent(Event{
		Type: EventTurn,
		Seat: m.eventSeat(p),
		Payload: map[string]any{
			"turn":      m.TurnID,
			"color":     h.CurrentColor(),
			"direction": h.Direction(),
		},
	})
	m.broadcastSyncStateToAll()
}

func (m *Match) scheduleTurnTimer(seat int) {
	m.stopTurnTimer()
	d := m.Settings.TurnTimeout()
	if d <= 0 {
		return
	}
	turnID := m.TurnID
	m.turnTimer = m.clock.AfterFunc(d, func() {
		m.Mu.Lock()
		defer m.Mu.Unlock()

		// The turn may have moved on while this timer was waiting for the lock.
		if m.Status != StatusInProgress || m.TurnID != turnID {
			m.logger().WithField("turn", turnID).Debug("stale turn timer ignored")
			return
		}
		m.handleTimeout(seat)
	}, "match", "turn")
}

func (m *Match) stopTurnTimer() {
	if m.turnTimer != nil {
		m.turnTimer.Stop()
		m.turnTimer = nil
	}
}

// handleTimeout draws for a seat that let its turn run out, and plays the
// drawn card when it is allowed to.
func (m *Match) handleTimeout(seat int) {
	m.logger().WithFields(log.Fields{"seat": seat, "turn": m.TurnID}).Info("turn timed out")
	m.logAction(m.Seats[seat].UserID, string(EventTurnTimeout), map[string]any{"turn": m.TurnID})
	m.fireEvent(Event{Type: EventTurnTimeout, Seat: m.eventSeat(seat)})

	drawn, err := m.draw(seat)
	if err != nil {
		m.logger().WithError(err).WithField("seat", seat).Error("timeout draw failed")
		return
	}
	h := m.game.CurrentHand()
	if p, ok := h.PlayerInTurn(); drawn && ok && p == seat {
		cards, _ := h.PlayerHand(seat)
		last := len(cards) - 1
		color := uno.NoColor
		if cards[last].IsWild() {
			color = bot.DominantColor(cards, last, h.CurrentColor())
		}
		if err := m.play(seat, last, color); err != nil {
			m.logger().WithError(err).WithField("seat", seat).Error("timeout play failed")
		}
	}
	m.afterTransition(true)
}

func (m *Match) finish(winner int) {
	m.stopTurnTimer()
	m.Status = StatusFinished
	res := m.result(winner)

	m.logger().WithFields(log.Fields{"winner": winner, "hands": len(m.hands)}).Info("match ended")
	m.logAction(m.Seats[winner].UserID, string(EventMatchEnded), map[string]any{"winner": winner, "scores": m.game.Scores()})
	m.fireEvent(Event{
		Type: EventMatchEnded,
		Seat: m.eventSeat(winner),
		Payload: map[string]any{
			"scores":     m.game.Scores(),
			"placements": res.Seats,
		},
	})
	m.broadcastSyncStateToAll()

	if m.OnEnd != nil {
		m.OnEnd(res)
	}
}

func (m *Match) result(winner int) Result {
	scores := m.game.Scores()
	seats := make([]SeatResult, len(m.Seats))
	for i, s := range m.Seats {
		place := 1
		for _, other := range scores {
			if other > scores[i] {
				place++
			}
		}
		seats[i] = SeatResult{UserID: s.UserID, Name: s.Name, Bot: s.Bot, Score: scores[i], Place: place}
	}
	return Result{
		MatchID:   m.ID,
		Winner:    winner,
		Seats:     seats,
		Hands:     append([]uno.HandResult(nil), m.hands...),
		StartedAt: m.startedAt,
		EndedAt:   m.clock.Now(),
	}
}

// Abandon ends a match nobody finished. It reports false if the match had already ended.
func (m *Match) Abandon() bool {
	m.Mu.Lock()
	defer m.Mu.Unlock()

	if m.Status == StatusFinished {
		return false
	}
	m.abandon()
	return true
}

func (m *Match) abandon() {
	m.stopTurnTimer()
	m.Status = StatusFinished
	m.abandoned = true
	m.logger().Info("match abandoned")
	m.logAction(uuid.Nil, string(EventMatchAbandoned), nil)
	m.fireEvent(Event{Type: EventMatchAbandoned})
	m.broadcastSyncStateToAll()
}

// HandleDisconnect marks userID's seat as offline. Its turns keep timing out.
func (m *Match) HandleDisconnect(userID uuid.UUID) {
	m.Mu.Lock()
	defer m.Mu.Unlock()

	seat := m.seatOf(userID)
	if seat < 0 || !m.Seats[seat].Connected {
		return
	}
	m.Seats[seat].Connected = false
	m.logger().WithFields(log.Fields{"user": userID, "seat": seat}).Info("seat disconnected")
	m.logAction(userID, "player_disconnect", nil)
	m.broadcastSyncStateToAll()
}

// HandleReconnect marks userID's seat as online and sends every seat the current state.
func (m *Match) HandleReconnect(userID uuid.UUID) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()

	seat := m.seatOf(userID)
	if seat < 0 {
		return ErrNotSeated
	}
	m.Seats[seat].Connected = true
	m.touch()
	m.logger().WithFields(log.Fields{"user": userID, "seat": seat}).Info("seat connected")
	m.logAction(userID, "player_reconnect", nil)
	m.broadcastSyncStateToAll()
	return nil
}

// Seat returns the index of userID's seat, or -1.
func (m *Match) Seat(userID uuid.UUID) int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return m.seatOf(userID)
}

func (m *Match) seatOf(userID uuid.UUID) int {
	for i, s := range m.Seats {
		if s.UserID == userID {
			return i
		}
	}
	return -1
}

func (m *Match) eventSeat(i int) *EventSeat {
	s := m.Seats[i]
	return &EventSeat{Index: i, UserID: s.UserID, Name: s.Name}
}

func (m *Match) touch() {
	m.lastActive = m.clock.Now()
}

// LastActive is the time of the last accepted action.
func (m *Match) LastActive() time.Time {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return m.lastActive
}

// Abandoned reports whether the match was ended by Abandon.
func (m *Match) Abandoned() bool {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return m.abandoned
}

func (m *Match) fireEvent(ev Event) {
	if m.BroadcastFn != nil {
		m.BroadcastFn(ev)
	}
}

// fireEventToSeat sends ev to a connected human seat.
func (m *Match) fireEventToSeat(seat int, ev Event) {
	s := m.Seats[seat]
	if m.BroadcastToSeatFn == nil || s.Bot || !s.Connected {
		return
	}
	m.BroadcastToSeatFn(s.UserID, ev)
}

func (m *Match) sendSyncState(seat int) {
	state := m.viewFor(m.Seats[seat].UserID)
	m.fireEventToSeat(seat, Event{Type: EventPrivateSyncState, State: &state})
}

func (m *Match) broadcastSyncStateToAll() {
	for i := range m.Seats {
		m.sendSyncState(i)
	}
}

// logAction publishes a record of one transition. Records reach the
// publisher in order; failures are only logged.
func (m *Match) logAction(actorID uuid.UUID, actionType string, payload map[string]any) {
	m.actionIndex++
	if m.Publisher == nil {
		return
	}
	if payload == nil {
		payload = map[string]any{}
	}
	if m.actions == nil {
		m.actions = newActionQueue(m.ID, m.Publisher)
	}
	m.actions.push(cache.ActionRecord{
		MatchID:       m.ID,
		ActionIndex:   m.actionIndex,
		ActorUserID:   actorID,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     m.clock.Now().UnixMilli(),
	})
}
