package app

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Ruletka/internal/core"
	"github.com/dkeye/Ruletka/internal/domain"
	"github.com/dkeye/Ruletka/internal/metrics"
)

// Matchmaker owns the waiting pool and the session table. One mutex
// serializes every mutation, so a concurrent search, leave, disconnect
// or sweep can never observe a peer as both waiting and paired, and two
// searches can never claim the same candidate. No collaborator I/O
// happens under the mutex; transport teardown runs after unlock.
type Matchmaker struct {
	registry   *Registry
	transports *TransportManager
	pick       Selector
	now        func() time.Time

	waitTimeout time.Duration

	mu       sync.Mutex
	pool     *waitingPool
	sessions map[domain.PeerID]*domain.Session
}

func NewMatchmaker(reg *Registry, tm *TransportManager, pick Selector, waitTimeout time.Duration) *Matchmaker {
	return &Matchmaker{
		registry:    reg,
		transports:  tm,
		pick:        pick,
		now:         time.Now,
		waitTimeout: waitTimeout,
		pool:        newWaitingPool(),
		sessions:    make(map[domain.PeerID]*domain.Session),
	}
}

// Search enqueues pid for mode and attempts an immediate match. A peer
// already in a session leaves it first ("search again" semantics); a
// peer already queued for the same mode gets ErrAlreadyQueued, which
// callers treat as a benign duplicate. Queued for another mode means a
// mode switch: the old entry is replaced.
func (m *Matchmaker) Search(pid domain.PeerID, mode domain.Mode) error {
	m.mu.Lock()
	torn := m.leaveLocked(pid, true)
	if e, ok := m.pool.get(pid); ok {
		if e.mode == mode {
			m.mu.Unlock()
			m.closeTransports(torn)
			return core.ErrAlreadyQueued
		}
		m.pool.remove(pid)
	}
	m.searchLocked(pid, mode)
	m.mu.Unlock()
	m.closeTransports(torn)
	return nil
}

// searchLocked runs the pair-or-enqueue step. Caller holds m.mu and
// guarantees pid is neither queued nor paired.
func (m *Matchmaker) searchLocked(pid domain.PeerID, mode domain.Mode) {
	cands := m.eligibleLocked(pid, mode)
	if len(cands) == 0 {
		m.pool.add(pid, mode, m.now())
		metrics.WaitingPeers.Set(float64(m.pool.len()))
		m.notify(pid, waitingMsg{Type: "waiting", Mode: mode})
		log.Info().Str("module", "app.match").Str("pid", string(pid)).Str("mode", string(mode)).Msg("waiting for partner")
		return
	}

	partner := cands[m.pick(len(cands))]
	m.pool.remove(partner)
	metrics.WaitingPeers.Set(float64(m.pool.len()))

	now := m.now()
	sess := &domain.Session{
		Room:      domain.NewRoomID(now),
		Mode:      mode,
		Members:   [2]domain.PeerID{pid, partner},
		CreatedAt: now,
	}
	m.sessions[pid] = sess
	m.sessions[partner] = sess
	metrics.ActiveSessions.Inc()
	metrics.MatchesTotal.Inc()

	// The peer whose search completed the pair initiates the handshake.
	m.notify(pid, pairedMsg{
		Type: "paired", Room: sess.Room, Mode: mode,
		Partner: m.registry.PublicID(partner), Initiator: true,
	})
	m.notify(partner, pairedMsg{
		Type: "paired", Room: sess.Room, Mode: mode,
		Partner: m.registry.PublicID(pid), Initiator: false,
	})
	log.Info().
		Str("module", "app.match").
		Str("room", string(sess.Room)).
		Str("pid", string(pid)).
		Str("partner", string(partner)).
		Str("mode", string(mode)).
		Msg("paired")
}

// eligibleLocked scans the mode's queue for candidates that are still
// reachable and unclaimed. Entries for vanished peers are pruned on the
// way, like the original queue did when it hit a dead partner.
func (m *Matchmaker) eligibleLocked(pid domain.PeerID, mode domain.Mode) []domain.PeerID {
	var out []domain.PeerID
	var dead []domain.PeerID
	for _, e := range m.pool.entries(mode) {
		if e.pid == pid {
			continue
		}
		if !m.registry.Alive(e.pid) {
			dead = append(dead, e.pid)
			continue
		}
		if _, paired := m.sessions[e.pid]; paired {
			continue
		}
		out = append(out, e.pid)
	}
	for _, d := range dead {
		m.pool.remove(d)
	}
	return out
}

// CancelSearch dequeues pid. Idempotent; the peer is only notified when
// an entry was actually removed.
func (m *Matchmaker) CancelSearch(pid domain.PeerID) {
	m.mu.Lock()
	removed := m.pool.remove(pid)
	if removed {
		metrics.WaitingPeers.Set(float64(m.pool.len()))
		m.notify(pid, searchCancelledMsg{Type: "search_cancelled", Reason: cancelReasonRequested})
	}
	m.mu.Unlock()
	if removed {
		log.Info().Str("module", "app.match").Str("pid", string(pid)).Msg("search cancelled")
	}
}

// Leave tears down pid's current state: from a session it notifies the
// partner and removes both rows, from the queue it dequeues. Calling it
// on an idle peer is a no-op, because disconnects and explicit leaves
// race and both fire.
func (m *Matchmaker) Leave(pid domain.PeerID) {
	m.mu.Lock()
	torn := m.leaveLocked(pid, true)
	m.pool.remove(pid)
	metrics.WaitingPeers.Set(float64(m.pool.len()))
	m.mu.Unlock()
	if len(torn) == 0 {
		torn = []domain.PeerID{pid}
	}
	m.closeTransports(torn)
}

// leaveLocked removes pid's session, if any, symmetrically: both member
// rows go in the same step. Returns both members so the caller can
// close their transports after unlock.
func (m *Matchmaker) leaveLocked(pid domain.PeerID, notifyPartner bool) []domain.PeerID {
	sess, ok := m.sessions[pid]
	if !ok {
		return nil
	}
	partner, ok := sess.PartnerOf(pid)
	if !ok {
		// Half-paired row: programming error. Log and force-drop
		// whatever is left rather than keep a corrupt table.
		log.Error().Str("module", "app.match").Str("pid", string(pid)).Str("room", string(sess.Room)).Msg("session row without partner, forcing teardown")
		delete(m.sessions, pid)
		metrics.ActiveSessions.Dec()
		return []domain.PeerID{pid}
	}
	delete(m.sessions, pid)
	delete(m.sessions, partner)
	metrics.ActiveSessions.Dec()
	if notifyPartner {
		m.notify(partner, partnerLeftMsg{Type: "partner_left", Room: sess.Room})
	}
	log.Info().Str("module", "app.match").Str("room", string(sess.Room)).Str("pid", string(pid)).Msg("session torn down")
	return []domain.PeerID{pid, partner}
}

// Next is "skip to next partner": leave the current session and
// immediately re-enter the queue with the last-used mode, without a
// client round trip.
func (m *Matchmaker) Next(pid domain.PeerID) error {
	m.mu.Lock()
	var mode domain.Mode
	switch {
	case m.sessions[pid] != nil:
		mode = m.sessions[pid].Mode
	default:
		if _, ok := m.pool.get(pid); ok {
			// Already searching; nothing to skip.
			m.mu.Unlock()
			return core.ErrAlreadyQueued
		}
		m.mu.Unlock()
		return core.ErrNoActiveSession
	}
	torn := m.leaveLocked(pid, true)
	m.searchLocked(pid, mode)
	m.mu.Unlock()
	m.closeTransports(torn)
	return nil
}

// Disconnect handles the implicit teardown fired by the transport
// layer. The dying connection gates the teardown: when pid was already
// re-registered by a newer connection, the stale pump's report is
// ignored so it cannot evict the replacement or its session.
func (m *Matchmaker) Disconnect(pid domain.PeerID, conn core.SignalConnection) {
	if !m.registry.UnregisterIfCurrent(pid, conn) {
		log.Debug().Str("module", "app.match").Str("pid", string(pid)).Msg("stale disconnect ignored")
		return
	}
	m.Leave(pid)
}

// SessionOf returns a copy of pid's session record.
func (m *Matchmaker) SessionOf(pid domain.PeerID) (domain.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[pid]
	if !ok {
		return domain.Session{}, false
	}
	return *sess, true
}

// PartnerOf resolves the authorized recipient for pid's signaling. The
// session table is the authority here, never room or group membership.
func (m *Matchmaker) PartnerOf(pid domain.PeerID) (domain.PeerID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[pid]
	if !ok {
		return "", false
	}
	return sess.PartnerOf(pid)
}

// Sweep evicts waiting entries older than the wait timeout and sessions
// with no reachable member. Invoked by the reaper on its interval.
func (m *Matchmaker) Sweep(now time.Time) {
	m.mu.Lock()
	var torn []domain.PeerID

	for _, pid := range m.pool.olderThan(now.Add(-m.waitTimeout)) {
		m.pool.remove(pid)
		metrics.ReapedWaitersTotal.Inc()
		m.notify(pid, searchCancelledMsg{Type: "search_cancelled", Reason: cancelReasonTimeout})
		log.Info().Str("module", "app.reaper").Str("pid", string(pid)).Msg("stale search expired")
	}
	metrics.WaitingPeers.Set(float64(m.pool.len()))

	for pid, sess := range m.sessions {
		partner, _ := sess.PartnerOf(pid)
		if m.registry.Alive(pid) || m.registry.Alive(partner) {
			continue
		}
		torn = append(torn, m.leaveLocked(pid, false)...)
		metrics.ReapedSessionsTotal.Inc()
		log.Info().Str("module", "app.reaper").Str("room", string(sess.Room)).Msg("orphaned session removed")
	}
	m.mu.Unlock()
	m.closeTransports(torn)
}

// closeTransports releases every handle owned by the given peers.
// Always called outside the matchmaker mutex.
func (m *Matchmaker) closeTransports(pids []domain.PeerID) {
	if m.transports == nil {
		return
	}
	for _, pid := range pids {
		m.transports.CloseAll(pid)
	}
}

// notify marshals and pushes a payload to one peer. Send failures are
// backpressure or a racing close; both are dropped with a log line.
func (m *Matchmaker) notify(pid domain.PeerID, v any) {
	conn, ok := m.registry.Signal(pid)
	if !ok {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.match").Msg("notify marshal")
		return
	}
	if err := conn.TrySend(core.Frame(b)); err != nil {
		log.Debug().Err(err).Str("module", "app.match").Str("pid", string(pid)).Msg("notify dropped")
	}
}
