package api

import (
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	log "github.com/sirupsen/logrus"
)

func accept(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
}

// streamStatus writes the current status and then one message per
// transition of the source monitor until either side goes away.
func (s *Service) streamStatus(w http.ResponseWriter, r *http.Request) {
	c, err := accept(w, r)
	if err != nil {
		log.WithError(err).Error("Failed to accept websocket client")
		return
	}
	defer c.CloseNow()

	// Subscribe before the snapshot so no transition falls in between.
	sub := s.registry.Subscribe(s.topic)
	defer s.registry.Unsubscribe(sub)

	// Clients only send close frames; CloseRead cancels ctx when they do.
	ctx := c.CloseRead(r.Context())

	if err := wsjson.Write(ctx, c, snapshot(s.source)); err != nil {
		return
	}

	id := s.source.ID()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			c.Close(websocket.StatusGoingAway, "server shutting down")
			return
		case ev, ok := <-sub.C():
			if !ok {
				c.Close(websocket.StatusGoingAway, "monitor closed")
				return
			}
			if ev.Monitor != id {
				continue
			}
			msg := newStatusResponse(ev.Host, ev.Monitor, ev.Status, ev.Time)
			if err := wsjson.Write(ctx, c, msg); err != nil {
				log.WithError(err).Debug("Websocket client went away")
				return
			}
		}
	}
}
