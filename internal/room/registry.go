// Package room implements the per-project broadcast channel: membership,
// ordered fan-out, AI directive handling and best-effort persistence.
package room

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/devroom-hq/devroom/internal/filetree"
	"github.com/devroom-hq/devroom/internal/message"
	"github.com/devroom-hq/devroom/internal/metrics"
	"github.com/devroom-hq/devroom/internal/models"
)

// MessageLog is the durable append-only chat record.
type MessageLog interface {
	SaveMessage(ctx context.Context, msg *models.Message) error
}

// MessageCache is the hot message store with search indexing.
type MessageCache interface {
	CacheMessage(ctx context.Context, msg *models.Message) error
}

// Invoker runs a prompt through the generation upstream.
type Invoker interface {
	Invoke(ctx context.Context, prompt string) (message.StructuredResult, error)
}

// Options configures a Registry. Log, Cache, Trees and AI may each be nil;
// the corresponding behavior is skipped.
type Options struct {
	Log    MessageLog
	Cache  MessageCache
	Trees  *filetree.Reconciler
	AI     Invoker
	Logger zerolog.Logger
}

// Registry is the process-wide room table. Rooms are created lazily on
// first join and removed when their membership empties. Membership is
// mutated only here: by Join and by Leave (disconnect cleanup).
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Room

	log    MessageLog
	cache  MessageCache
	trees  *filetree.Reconciler
	ai     Invoker
	logger zerolog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(opts Options) *Registry {
	return &Registry{
		rooms:  make(map[string]*Room),
		log:    opts.Log,
		cache:  opts.Cache,
		trees:  opts.Trees,
		ai:     opts.AI,
		logger: opts.Logger,
	}
}

// Join admits an authenticated identity into the project's room, creating
// the room if this is its first member. The caller has already resolved
// and verified the identity; Join never fails.
//
// The member is inserted while the registry lock is still held, so a
// concurrent last-member Leave either sees the new member during its
// emptiness re-check or has already removed the room, in which case the
// lookup below creates a fresh one. A joined member is always in a room
// reachable from the registry.
func (reg *Registry) Join(projectID, userID, email string) *Member {
	m := newMember(userID, email)

	reg.mu.Lock()
	r, ok := reg.rooms[projectID]
	if !ok {
		r = &Room{
			id:      projectID,
			reg:     reg,
			members: make(map[*Member]bool),
		}
		reg.rooms[projectID] = r
	}

	m.room = r
	r.mu.Lock()
	r.members[m] = true
	r.mu.Unlock()
	reg.mu.Unlock()

	metrics.ConnectedMembers.Inc()
	reg.updateRoomGauge()

	reg.logger.Info().
		Str("project_id", projectID).
		Str("user_id", userID).
		Msg("member joined room")

	return m
}

// Leave removes the member from its room and closes its event stream.
// The room itself is garbage-collected when its last member leaves.
// Safe to call more than once.
func (reg *Registry) Leave(m *Member) {
	r := m.room
	if r == nil {
		return
	}

	r.mu.Lock()
	if m.closed {
		r.mu.Unlock()
		return
	}
	m.closed = true
	delete(r.members, m)
	empty := len(r.members) == 0
	close(m.events)
	r.mu.Unlock()

	if empty {
		reg.mu.Lock()
		// Re-check under the registry lock: a concurrent Join may have
		// repopulated the room.
		r.mu.Lock()
		if len(r.members) == 0 && reg.rooms[r.id] == r {
			delete(reg.rooms, r.id)
		}
		r.mu.Unlock()
		reg.mu.Unlock()
	}

	metrics.ConnectedMembers.Dec()
	reg.updateRoomGauge()

	reg.logger.Info().
		Str("project_id", r.id).
		Str("user_id", m.UserID).
		Msg("member left room")
}

// RoomCount returns the number of live rooms.
func (reg *Registry) RoomCount() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.rooms)
}

func (reg *Registry) updateRoomGauge() {
	metrics.ActiveRooms.Set(float64(reg.RoomCount()))
}
