package session

import (
	"hash/fnv"
	"sort"
	"sync"
	"time"

	"prepforge/interview/internal/metrics"
	"prepforge/interview/internal/models"
)

// Member is a connection's presence in a room.
type Member struct {
	Conn     *Connection
	RoomID   string
	JoinedAt time.Time
}

func (m *Member) Participant() models.Participant {
	return models.Participant{UserID: m.Conn.UserID(), ConnectionID: m.Conn.ID, JoinedAt: m.JoinedAt}
}

// Notifier is told about membership changes while the room lock is held, so every
// member observes joins and leaves in the same order. Implementations must not block.
type Notifier interface {
	MemberJoined(m *Member, peers []*Member)
	MemberLeft(m *Member, remaining []*Member)
}

type room struct {
	members map[string]*Member
}

type roomShard struct {
	mu    sync.RWMutex
	rooms map[string]*room
}

type connShard struct {
	mu    sync.Mutex
	rooms map[string]string
}

// Registry maps roomID to its connected members. Connection shards are keyed by
// connection id and are always locked before room shards.
type Registry struct {
	connShards []connShard
	roomShards []roomShard

	maxParticipants int
	notifier        Notifier
	now             func() time.Time
}

type RegistryOptions struct {
	Shards int
	// MaxParticipants caps members per room; 0 means unlimited.
	MaxParticipants int
	Notifier        Notifier
}

func NewRegistry(opts RegistryOptions) *Registry {
	n := opts.Shards
	if n <= 0 {
		n = 1
	}
	r := &Registry{
		connShards:      make([]connShard, n),
		roomShards:      make([]roomShard, n),
		maxParticipants: opts.MaxParticipants,
		notifier:        opts.Notifier,
		now:             time.Now,
	}
	for i := range r.connShards {
		r.connShards[i].rooms = make(map[string]string)
		r.roomShards[i].rooms = make(map[string]*room)
	}
	return r
}

func shardIndex(key string, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(n))
}

func (r *Registry) connShardFor(connID string) *connShard {
	return &r.connShards[shardIndex(connID, len(r.connShards))]
}

func (r *Registry) roomShardFor(roomID string) *roomShard {
	return &r.roomShards[shardIndex(roomID, len(r.roomShards))]
}

// Register puts conn into roomID. Registering again into the same room is a no-op
// and reports joined=false. Registering into another room first leaves the old one.
// exempt skips the capacity check.
func (r *Registry) Register(conn *Connection, roomID string, exempt bool) (joined bool, err error) {
	cs := r.connShardFor(conn.ID)
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if current, ok := cs.rooms[conn.ID]; ok {
		if current == roomID {
			return false, nil
		}
		r.removeLocked(cs, conn.ID, current)
	}

	rs := r.roomShardFor(roomID)
	rs.mu.Lock()
	defer rs.mu.Unlock()

	rm, ok := rs.rooms[roomID]
	if ok && !exempt && r.maxParticipants > 0 && len(rm.members) >= r.maxParticipants {
		return false, ErrRoomFull
	}
	if !ok {
		rm = &room{members: make(map[string]*Member)}
		rs.rooms[roomID] = rm
		metrics.RoomOpened()
	}

	peers := rm.snapshot()
	m := &Member{Conn: conn, RoomID: roomID, JoinedAt: r.now().UTC()}
	rm.members[conn.ID] = m
	cs.rooms[conn.ID] = roomID
	metrics.SessionJoined()

	if r.notifier != nil {
		r.notifier.MemberJoined(m, peers)
	}
	return true, nil
}

// Unregister removes connID from its room. Only the call that actually removes the
// connection returns ok, so a leave racing a disconnect is reported exactly once.
func (r *Registry) Unregister(connID string) (roomID string, ok bool) {
	cs := r.connShardFor(connID)
	cs.mu.Lock()
	defer cs.mu.Unlock()

	roomID, ok = cs.rooms[connID]
	if !ok {
		return "", false
	}
	r.removeLocked(cs, connID, roomID)
	return roomID, true
}

// removeLocked expects cs to be held.
func (r *Registry) removeLocked(cs *connShard, connID, roomID string) {
	delete(cs.rooms, connID)

	rs := r.roomShardFor(roomID)
	rs.mu.Lock()
	defer rs.mu.Unlock()

	rm, ok := rs.rooms[roomID]
	if !ok {
		return
	}
	m, ok := rm.members[connID]
	if !ok {
		return
	}
	delete(rm.members, connID)
	metrics.SessionLeft()

	if len(rm.members) == 0 {
		delete(rs.rooms, roomID)
		metrics.RoomClosed()
	}
	if r.notifier != nil {
		r.notifier.MemberLeft(m, rm.snapshot())
	}
}

// RoomOf returns the room connID is registered in.
func (r *Registry) RoomOf(connID string) (string, bool) {
	cs := r.connShardFor(connID)
	cs.mu.Lock()
	defer cs.mu.Unlock()
	roomID, ok := cs.rooms[connID]
	return roomID, ok
}

// SendTo queues payload to connID only if it is currently a member of roomID.
func (r *Registry) SendTo(roomID, connID string, payload []byte) error {
	rs := r.roomShardFor(roomID)
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	rm, ok := rs.rooms[roomID]
	if !ok {
		return ErrTransportDropped
	}
	m, ok := rm.members[connID]
	if !ok {
		return ErrTransportDropped
	}
	return m.Conn.Send(payload)
}

// Broadcast queues payload to every member of roomID except the connection skip
// (pass "" to include everyone). It returns how many members it reached.
func (r *Registry) Broadcast(roomID, skip string, payload []byte) int {
	rs := r.roomShardFor(roomID)
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	rm, ok := rs.rooms[roomID]
	if !ok {
		return 0
	}
	sent := 0
	for id, m := range rm.members {
		if id == skip {
			continue
		}
		if err := m.Conn.Send(payload); err != nil {
			metrics.MessageDropped("slow_consumer")
			continue
		}
		sent++
	}
	return sent
}

// Members returns a snapshot of roomID ordered by join time.
func (r *Registry) Members(roomID string) []*Member {
	rs := r.roomShardFor(roomID)
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	rm, ok := rs.rooms[roomID]
	if !ok {
		return nil
	}
	return rm.snapshot()
}

// RoomCount is the number of non-empty rooms.
func (r *Registry) RoomCount() int {
	total := 0
	for i := range r.roomShards {
		rs := &r.roomShards[i]
		rs.mu.RLock()
		total += len(rs.rooms)
		rs.mu.RUnlock()
	}
	return total
}

func (rm *room) snapshot() []*Member {
	out := make([]*Member, 0, len(rm.members))
	for _, m := range rm.members {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].Conn.ID < out[j].Conn.ID
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out
}

// CloseAll closes every registered connection; their read loops then unregister them.
func (r *Registry) CloseAll() int {
	closed := 0
	for i := range r.roomShards {
		rs := &r.roomShards[i]
		rs.mu.RLock()
		for _, rm := range rs.rooms {
			for _, m := range rm.members {
				m.Conn.Close()
				closed++
			}
		}
		rs.mu.RUnlock()
	}
	return closed
}
