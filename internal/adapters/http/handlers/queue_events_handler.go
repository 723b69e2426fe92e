package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"clinicdesk/internal/adapters/http/middleware"
	"clinicdesk/internal/core/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

const sseHeartbeat = 30 * time.Second

// QueueEventsHandler streams queue changes to staff screens
type QueueEventsHandler struct {
	hub *services.SSEHub
}

// NewQueueEventsHandler creates a new events handler
func NewQueueEventsHandler(hub *services.SSEHub) *QueueEventsHandler {
	return &QueueEventsHandler{hub: hub}
}

// ============================================================
// GET /api/v1/queue/events
// ============================================================

// Stream opens a server-sent event stream for the caller's clinic
// @Summary Queue events
// @Description Server-sent events for queue changes in the caller's clinic
// @Tags Queue
// @Produce text/event-stream
// @Security BearerAuth
// @Success 200 {string} string "event stream"
// @Router /queue/events [get]
func (h *QueueEventsHandler) Stream(c *fiber.Ctx) error {
	scope := middleware.GetScope(c)
	client := &services.SSEClient{
		ID:       uuid.NewString(),
		UserID:   scope.UserID(),
		ClinicID: scope.ClinicID(),
		Channel:  make(chan services.SSEEvent, 50),
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("Transfer-Encoding", "chunked")

	// Events published before the first flush are buffered on the channel.
	h.hub.Register(client)

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer h.hub.Unregister(client.ID)

		writeSSEEvent(w, services.SSEEvent{
			Event:    "connected",
			ClinicID: client.ClinicID,
			Data:     fiber.Map{"client_id": client.ID},
		})
		if err := w.Flush(); err != nil {
			return
		}

		heartbeat := time.NewTicker(sseHeartbeat)
		defer heartbeat.Stop()

		for {
			select {
			case event, ok := <-client.Channel:
				if !ok {
					return
				}
				writeSSEEvent(w, event)
				if err := w.Flush(); err != nil {
					log.Debug().Str("client_id", client.ID).Msg("sse client disconnected")
					return
				}

			case <-heartbeat.C:
				fmt.Fprint(w, ": heartbeat\n\n")
				if err := w.Flush(); err != nil {
					log.Debug().Str("client_id", client.ID).Msg("sse client disconnected")
					return
				}
			}
		}
	}))

	return nil
}

// writeSSEEvent writes one event frame. Data is JSON encoded.
func writeSSEEvent(w *bufio.Writer, event services.SSEEvent) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		log.Error().Err(err).Str("event", event.Event).Msg("sse payload encode failed")
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Event, payload)
}
