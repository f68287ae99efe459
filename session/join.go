package session

import (
	"sync"
	"time"
)

type joinTicket struct {
	serverId  string
	createdAt time.Time
}

// NewJoinStorage creates the cache bridging the join and hasJoined
// phases of the server handshake. A ticket lives for TTL and is not
// consumed by matching, so a server may validate the same connection
// attempt several times.
func NewJoinStorage() *JoinStorage {
	return &JoinStorage{
		TTL:      30 * time.Second,
		GCPeriod: 10 * time.Second,
		data:     make(map[string]*joinTicket),
	}
}

type JoinStorage struct {
	TTL      time.Duration
	GCPeriod time.Duration

	lock sync.RWMutex
	data map[string]*joinTicket
	done chan struct{}
}

// Put records the server correlation id for the profile, overwriting
// any previous ticket.
func (s *JoinStorage) Put(profileId string, serverId string) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.data[profileId] = &joinTicket{
		serverId:  serverId,
		createdAt: now(),
	}
}

// Match reports whether a live ticket for the profile equals serverId.
func (s *JoinStorage) Match(profileId string, serverId string) bool {
	s.lock.RLock()
	defer s.lock.RUnlock()

	ticket, exists := s.data[profileId]
	if !exists || ticket.createdAt.Add(s.TTL).Before(now()) {
		return false
	}

	return ticket.serverId == serverId
}

func (s *JoinStorage) Start() {
	if s.done != nil {
		return
	}

	s.done = make(chan struct{})
	ticker := time.NewTicker(s.GCPeriod)
	go func() {
		for {
			select {
			case <-s.done:
				ticker.Stop()
				return
			case <-ticker.C:
				s.gc()
			}
		}
	}()
}

func (s *JoinStorage) Stop() {
	if s.done == nil {
		return
	}

	close(s.done)
	s.done = nil
}

func (s *JoinStorage) gc() {
	s.lock.Lock()
	defer s.lock.Unlock()

	edge := now().Add(-s.TTL)
	for profileId, ticket := range s.data {
		if ticket.createdAt.Before(edge) {
			delete(s.data, profileId)
		}
	}
}
