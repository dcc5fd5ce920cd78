package sse

import (
	"encoding/json"
	"sync"
	"time"

	"mailtriage/internal/logger"
)

// Event is what board clients receive.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
	Time int64       `json:"time"`
}

// SSEManager fans board events out to each user's open connections
type SSEManager struct {
	clients    map[string]map[chan []byte]bool // userID -> connection channels
	clientsMux sync.RWMutex
	closed     bool

	logger *logger.Logger
}

// NewSSEManager creates a new SSE manager
func NewSSEManager(logger *logger.Logger) *SSEManager {
	return &SSEManager{
		clients: make(map[string]map[chan []byte]bool),
		logger:  logger,
	}
}

// AddClient adds a new client connection for a specific user. The channel
// is closed when the manager shuts down.
func (s *SSEManager) AddClient(userID string) chan []byte {
	s.clientsMux.Lock()
	defer s.clientsMux.Unlock()

	channel := make(chan []byte, 16)
	if s.closed {
		close(channel)
		return channel
	}
	if s.clients[userID] == nil {
		s.clients[userID] = make(map[chan []byte]bool)
	}
	s.clients[userID][channel] = true

	s.logger.Debugf("Added SSE client for user %s, total clients: %d", userID, len(s.clients[userID]))
	return channel
}

// RemoveClient removes a client connection
func (s *SSEManager) RemoveClient(userID string, channel chan []byte) {
	s.clientsMux.Lock()
	defer s.clientsMux.Unlock()

	userClients, exists := s.clients[userID]
	if !exists || !userClients[channel] {
		return
	}
	delete(userClients, channel)
	close(channel)

	// If this was the last client for the user, remove the user's map
	if len(userClients) == 0 {
		delete(s.clients, userID)
	}
	s.logger.Debugf("Removed SSE client for user %s, remaining clients: %d", userID, len(userClients))
}

// BroadcastToUser sends an event to every connection of userID. Slow
// clients whose buffer is full miss the event rather than blocking the
// sender.
func (s *SSEManager) BroadcastToUser(userID string, eventType string, data interface{}) {
	s.clientsMux.RLock()
	defer s.clientsMux.RUnlock()

	userClients, exists := s.clients[userID]
	if !exists {
		return // No active connections for this user
	}

	jsonData, err := json.Marshal(Event{Type: eventType, Data: data, Time: time.Now().Unix()})
	if err != nil {
		s.logger.Error("Failed to marshal broadcast event:", err)
		return
	}

	for channel := range userClients {
		select {
		case channel <- jsonData:
		default:
			s.logger.Warn("Dropping event for slow client of user:", userID, "type:", eventType)
		}
	}
}

// Close shuts down the SSE manager
func (s *SSEManager) Close() {
	s.clientsMux.Lock()
	defer s.clientsMux.Unlock()

	s.closed = true
	for userID, userClients := range s.clients {
		for channel := range userClients {
			close(channel)
		}
		delete(s.clients, userID)
	}
}

// GetUserConnectionCount returns the number of active connections for a user
func (s *SSEManager) GetUserConnectionCount(userID string) int {
	s.clientsMux.RLock()
	defer s.clientsMux.RUnlock()

	return len(s.clients[userID])
}
