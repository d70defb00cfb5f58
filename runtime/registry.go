package runtime

import (
	"chat-gateway/contract"
	"chat-gateway/domain"
	"chat-gateway/errors"
	"sync"
)

// room holds the live subscribers of one group.
// A closed room has been dropped from the registry and must not be reused.
type room struct {
	mu      sync.Mutex
	members map[string]contract.Subscriber
	closed  bool
}

// Registry maps each group to the connections currently subscribed to it.
// The registry lock only guards room lookup and creation; everything else
// happens under the room's own lock so busy groups never slow down others.
type Registry struct {
	mu    sync.RWMutex
	rooms map[domain.GroupID]*room
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[domain.GroupID]*room)}
}

func (r *Registry) lookup(groupID domain.GroupID) *room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rooms[groupID]
}

func (r *Registry) lookupOrCreate(groupID domain.GroupID) *room {
	if rm := r.lookup(groupID); rm != nil {
		return rm
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.rooms[groupID]
	if !ok {
		rm = &room{members: make(map[string]contract.Subscriber)}
		r.rooms[groupID] = rm
	}
	return rm
}

// Join subscribes sub to the group. Joining twice is a no-op.
func (r *Registry) Join(groupID domain.GroupID, sub contract.Subscriber) {
	for {
		rm := r.lookupOrCreate(groupID)
		rm.mu.Lock()
		if rm.closed {
			// Lost the race against the last Leave, the room is gone.
			rm.mu.Unlock()
			continue
		}
		rm.members[sub.ID()] = sub
		rm.mu.Unlock()
		return
	}
}

// Leave unsubscribes sub from the group and drops the room once it is empty.
func (r *Registry) Leave(groupID domain.GroupID, sub contract.Subscriber) {
	rm := r.lookup(groupID)
	if rm == nil {
		return
	}
	rm.mu.Lock()
	delete(rm.members, sub.ID())
	empty := len(rm.members) == 0 && !rm.closed
	rm.mu.Unlock()
	if empty {
		r.dropIfEmpty(groupID, rm)
	}
}

func (r *Registry) dropIfEmpty(groupID domain.GroupID, rm *room) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if len(rm.members) > 0 || rm.closed || r.rooms[groupID] != rm {
		return
	}
	rm.closed = true
	delete(r.rooms, groupID)
}

// Broadcast hands evt to every subscriber of the group and returns how many
// accepted it. Concurrent broadcasts to the same group are serialized, so every
// subscriber sees them in the same order. A subscriber that cannot take the event
// is removed from the group and evicted.
func (r *Registry) Broadcast(groupID domain.GroupID, evt domain.Event) int {
	rm := r.lookup(groupID)
	if rm == nil {
		return 0
	}

	var slow []contract.Subscriber
	delivered := 0
	rm.mu.Lock()
	for id, sub := range rm.members {
		if sub.Deliver(evt) {
			delivered++
			continue
		}
		delete(rm.members, id)
		slow = append(slow, sub)
	}
	empty := len(rm.members) == 0 && !rm.closed
	rm.mu.Unlock()

	// Evict may call back into Leave, so it runs without the room lock.
	for _, sub := range slow {
		sub.Evict(errors.ErrSlowConsumer)
	}
	if empty {
		r.dropIfEmpty(groupID, rm)
	}
	return delivered
}

func (r *Registry) Subscribers(groupID domain.GroupID) int {
	rm := r.lookup(groupID)
	if rm == nil {
		return 0
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return len(rm.members)
}

// Groups returns how many groups have at least one live subscriber.
func (r *Registry) Groups() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
