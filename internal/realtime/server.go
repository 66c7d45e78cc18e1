package realtime

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// The page is same-origin; a reverse proxy in front enforces
		// the rest.
		return true
	},
}

// Server upgrades page connections and bridges the Redis broadcast
// channel into the hub, so events published by other processes reach
// every page.
type Server struct {
	hub *Hub
	rdb *redis.Client
}

func NewServer(hub *Hub, rdb *redis.Client) *Server {
	return &Server{hub: hub, rdb: rdb}
}

// RunRedisSubscriber forwards the shared broadcast channel into the
// hub until the context ends. Optional: a nil Redis client means
// events stay process-local.
func (s *Server) RunRedisSubscriber(ctx context.Context) {
	if s.rdb == nil {
		return
	}

	sub := s.rdb.Subscribe(ctx, "broadcast")
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			s.hub.Broadcast([]byte(msg.Payload))
		}
	}
}

// Publish sends one event to the hub and, when Redis is wired, to the
// shared broadcast channel. Event delivery is best-effort.
func (s *Server) Publish(ctx context.Context, event map[string]any) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("ofplay: marshal event: %v", err)
		return
	}

	s.hub.Broadcast(data)

	if s.rdb != nil {
		if err := s.rdb.Publish(ctx, "broadcast", string(data)).Err(); err != nil {
			log.Printf("ofplay: publish event: %v", err)
		}
	}
}

// HandleWS upgrades one page connection.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ofplay: ws upgrade: %v", err)
		return
	}

	client := &Client{
		hub:  s.hub,
		conn: conn,
		send: make(chan []byte, 256),
	}
	s.hub.register <- client

	welcome := map[string]any{
		"type": "welcome",
		"now":  time.Now().UTC().Format(time.RFC3339Nano),
	}
	if b, err := json.Marshal(welcome); err == nil {
		client.send <- b
	}

	go client.writePump()
	go client.readPump()
}
