package controller

import (
	"log"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
)

// ActivityMessage is one live update pushed to campaign dashboards.
type ActivityMessage struct {
	Kind       string    `json:"kind"`
	CampaignID string    `json:"campaign_id"`
	UserID     string    `json:"user_id"`
	At         time.Time `json:"at"`
}

// ActivityHub fans live activity out to the dashboards subscribed to a
// campaign.
type ActivityHub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*websocket.Conn]bool
}

func NewActivityHub() *ActivityHub {
	return &ActivityHub{
		subscribers: make(map[string]map[*websocket.Conn]bool),
	}
}

// Hub is the process-wide activity hub.
var Hub = NewActivityHub()

func (h *ActivityHub) subscribe(campaignID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subscribers[campaignID] == nil {
		h.subscribers[campaignID] = make(map[*websocket.Conn]bool)
	}
	h.subscribers[campaignID][conn] = true
}

func (h *ActivityHub) unsubscribe(campaignID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subscribers[campaignID], conn)
	if len(h.subscribers[campaignID]) == 0 {
		delete(h.subscribers, campaignID)
	}
}

// Broadcast pushes an activity update to every dashboard watching the
// campaign. Dead connections are dropped on write failure.
func (h *ActivityHub) Broadcast(msg ActivityMessage) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.subscribers[msg.CampaignID]))
	for conn := range h.subscribers[msg.CampaignID] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.WriteJSON(msg); err != nil {
			log.Printf("Error writing activity update: %v", err)
			h.unsubscribe(msg.CampaignID, conn)
			conn.Close()
		}
	}
}

// Notify records a dashboard update for a campaign action.
func (h *ActivityHub) Notify(kind, campaignID, userID string) {
	h.Broadcast(ActivityMessage{
		Kind:       kind,
		CampaignID: campaignID,
		UserID:     userID,
		At:         time.Now(),
	})
}

// HandleActivityWS keeps a dashboard connection open and streams the
// campaign's activity until the client leaves.
func HandleActivityWS(c *websocket.Conn) {
	defer c.Close()

	campaignID := c.Params("id")
	if campaignID == "" {
		return
	}

	Hub.subscribe(campaignID, c)
	defer Hub.unsubscribe(campaignID, c)

	// Reads only serve to detect the client hanging up
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}
