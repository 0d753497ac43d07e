package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"cx-lms-service/internal/app"
	"cx-lms-service/internal/domain"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type WSHandler struct {
	service  *app.QuizService
	upgrader websocket.Upgrader
	log      *zap.Logger
}

func NewWSHandler(service *app.QuizService, logger *zap.Logger) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSHandler{
		service: service,
		log:     logger,
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

type startPayload struct {
	ModuleID string `json:"moduleId"`
	Count    int    `json:"count"`
}

type answerPayload struct {
	QuestionID int    `json:"questionId"`
	Option     string `json:"option"`
}

type confidencePayload struct {
	QuestionID int               `json:"questionId"`
	Level      domain.Confidence `json:"level"`
}

type flagPayload struct {
	QuestionID int `json:"questionId"`
}

type navigatePayload struct {
	Index     *int   `json:"index"`
	Direction string `json:"direction"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// ServeWS upgrades the request and drives the learner's quiz session. Every state change
// is pushed as a "state" message; closing the socket abandons an active attempt.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	learnerID := r.URL.Query().Get("learnerId")
	if learnerID == "" {
		http.Error(w, "missing learnerId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	log := h.log.With(zap.String("learner_id", learnerID))
	session := h.service.Acquire(learnerID)
	updates, cancel := session.Subscribe()
	defer h.service.Release(learnerID)
	defer cancel()

	send := make(chan outboundMessage, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// single writer; gorilla connections do not allow concurrent writes
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Debug("ws write error", zap.Error(err))
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case snap, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage{Type: "state", Payload: snap}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	reply := func(msg outboundMessage) {
		select {
		case send <- msg:
		case <-writerDone:
		}
	}
	fail := func(err error) {
		reply(outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error(), Code: errorCode(err)}})
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if err := h.dispatch(r, session, inbound, reply); err != nil {
			fail(err)
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
	log.Debug("ws closed")
}

func (h *WSHandler) dispatch(r *http.Request, session *app.QuizSession, in inboundMessage, reply func(outboundMessage)) error {
	ctx := r.Context()
	switch in.Type {
	case "start":
		var p startPayload
		if err := decodePayload(in.Payload, &p); err != nil {
			return err
		}
		_, err := session.Start(ctx, p.ModuleID, p.Count)
		return err
	case "answer":
		var p answerPayload
		if err := decodePayload(in.Payload, &p); err != nil {
			return err
		}
		_, err := session.SelectAnswer(p.QuestionID, p.Option)
		return err
	case "confidence":
		var p confidencePayload
		if err := decodePayload(in.Payload, &p); err != nil {
			return err
		}
		_, err := session.SetConfidence(p.QuestionID, p.Level)
		return err
	case "flag":
		var p flagPayload
		if err := decodePayload(in.Payload, &p); err != nil {
			return err
		}
		_, err := session.ToggleFlag(p.QuestionID)
		return err
	case "navigate":
		var p navigatePayload
		if err := decodePayload(in.Payload, &p); err != nil {
			return err
		}
		var err error
		switch {
		case p.Index != nil:
			_, err = session.Navigate(*p.Index)
		case p.Direction == "next":
			_, err = session.Next()
		case p.Direction == "previous":
			_, err = session.Previous()
		default:
			err = errBadPayload("navigate needs index or direction")
		}
		return err
	case "submit":
		result, err := session.Submit(ctx)
		if err != nil {
			return err
		}
		if result != nil {
			reply(outboundMessage{Type: "result", Payload: result})
		}
		return nil
	case "review":
		_, err := session.Review()
		return err
	case "retry":
		_, err := session.Retry()
		return err
	default:
		return errBadPayload("unsupported message type " + strconv.Quote(in.Type))
	}
}

func decodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return errBadPayload("missing payload")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errBadPayload("invalid payload: " + err.Error())
	}
	return nil
}
