package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"quiz-match-service/internal/app"
	"quiz-match-service/internal/domain"
)

// WSHandler upgrades connections and wires them into the queue and the match
// engine. One connection maps to at most one participant identity.
type WSHandler struct {
	queue    *app.QueueManager
	engine   *app.Engine
	upgrader websocket.Upgrader
}

func NewWSHandler(queue *app.QueueManager, engine *app.Engine) *WSHandler {
	return &WSHandler{
		queue:  queue,
		engine: engine,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type joinQueuePayload struct {
	Username   string `json:"username"`
	Category   string `json:"category"`
	Difficulty string `json:"difficulty"`
	// Identity lets a returning client keep its participant id across
	// connections. Minted server-side when absent.
	Identity string `json:"identity"`
}

type submitAnswerPayload struct {
	QuestionID string `json:"questionId"`
	AnswerID   string `json:"answerId"`
}

// wsClient adapts one websocket connection to app.ClientNotifier. Send never
// blocks: when the buffer is full the oldest event is dropped so a slow
// client cannot stall a match handler.
type wsClient struct {
	mu     sync.Mutex
	closed bool
	send   chan domain.Event
}

func newWSClient() *wsClient {
	return &wsClient{send: make(chan domain.Event, 32)}
}

func (c *wsClient) Send(ev domain.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- ev:
	default:
		select {
		case <-c.send:
		default:
		}
		select {
		case c.send <- ev:
		default:
		}
	}
}

func (c *wsClient) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// ServeWS handles one player connection for its whole lifetime.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	client := newWSClient()
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for ev := range client.send {
			if err := conn.WriteJSON(ev); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	participantID := ""
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "join_queue":
			var payload joinQueuePayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				client.Send(errorEvent("invalid join_queue payload"))
				continue
			}
			if participantID == "" {
				participantID = payload.Identity
			}
			if participantID == "" {
				participantID = uuid.NewString()
			}
			position, waiting, err := h.queue.Enqueue(participantID, payload.Username, domain.Preferences{
				Category:   payload.Category,
				Difficulty: payload.Difficulty,
			}, client)
			if err != nil {
				client.Send(errorEvent(err.Error()))
				continue
			}
			client.Send(domain.Event{Type: domain.EventQueueJoined, Payload: domain.QueueJoined{
				ParticipantID: participantID,
				Position:      position,
				WaitingCount:  waiting,
			}})
		case "leave_queue":
			if participantID != "" {
				h.queue.Dequeue(participantID)
			}
		case "submit_answer":
			var payload submitAnswerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				client.Send(errorEvent("invalid submit_answer payload"))
				continue
			}
			if participantID == "" {
				client.Send(errorEvent(domain.ErrNotInMatch.Error()))
				continue
			}
			if err := h.engine.SubmitAnswer(participantID, payload.QuestionID, payload.AnswerID); err != nil {
				client.Send(errorEvent(reason(err)))
			}
		default:
			client.Send(errorEvent("unsupported message type"))
		}
	}

	if participantID != "" {
		h.queue.Dequeue(participantID)
		h.engine.DropParticipant(participantID)
	}
	client.close()
	<-writerDone
}

func errorEvent(message string) domain.Event {
	return domain.Event{Type: domain.EventError, Payload: domain.ErrorPayload{Message: message}}
}

// reason maps internal errors to the caller-facing message, keeping anything
// unexpected generic.
func reason(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotInMatch),
		errors.Is(err, domain.ErrAlreadyInMatch),
		errors.Is(err, domain.ErrDuplicateAnswer),
		errors.Is(err, domain.ErrUnknownQuestion),
		errors.Is(err, domain.ErrQuestionNotActive),
		errors.Is(err, domain.ErrMatchNotFound),
		errors.Is(err, domain.ErrInvalidPreferences),
		errors.Is(err, domain.ErrEmptyUsername):
		return err.Error()
	default:
		return "internal error"
	}
}
