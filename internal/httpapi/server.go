// Package httpapi exposes the middleware over HTTP and websocket. One
// endpoint per conversation lifecycle step, plus a message endpoint that runs
// a full pre-process / generate / post-process turn.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/fmattioli/socrates/internal/config"
	"github.com/fmattioli/socrates/internal/generator"
	"github.com/fmattioli/socrates/internal/memory"
	"github.com/fmattioli/socrates/internal/middleware"
	"github.com/fmattioli/socrates/internal/observability"
	"github.com/fmattioli/socrates/internal/protocol"
)

type Server struct {
	cfg          config.Config
	orchestrator *middleware.Orchestrator
	gen          generator.Generator
	metrics      *observability.Metrics
	window       *observability.StageWindow
	upgrader     websocket.Upgrader
}

func New(cfg config.Config, orchestrator *middleware.Orchestrator, gen generator.Generator, metrics *observability.Metrics, window *observability.StageWindow) *Server {
	return &Server{
		cfg:          cfg,
		orchestrator: orchestrator,
		gen:          gen,
		metrics:      metrics,
		window:       window,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Default: only allow browser websocket connections from the
				// same origin, so another site cannot drive a learner's
				// conversation if the service is exposed beyond localhost.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/v1/conversations", s.handleCreateConversation)
	r.Post("/v1/conversations/{id}/clear", s.handleClearConversation)
	r.Post("/v1/conversations/{id}/end", s.handleEndConversation)
	r.Post("/v1/conversations/{id}/messages", s.handleMessage)
	r.Get("/v1/conversations/ws", s.handleConversationWS)
	r.Get("/v1/perf/latency", s.handlePerfLatency)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"generator_mode": s.cfg.GeneratorMode,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":               "ready",
		"active_conversations": s.orchestrator.ActiveCount(),
	})
}

type createConversationRequest struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
}

type createConversationResponse struct {
	ConversationID string    `json:"conversation_id"`
	UserID         string    `json:"user_id"`
	CreatedAt      time.Time `json:"created_at"`
}

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	var req createConversationRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.ConversationID) == "" {
		req.ConversationID = uuid.NewString()
	}
	if strings.TrimSpace(req.UserID) == "" {
		req.UserID = "anonymous"
	}

	s.orchestrator.NewConversation(req.ConversationID)

	respondJSON(w, http.StatusCreated, createConversationResponse{
		ConversationID: req.ConversationID,
		UserID:         req.UserID,
		CreatedAt:      time.Now().UTC(),
	})
}

func (s *Server) handleClearConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.orchestrator.Clear(id); err != nil {
		respondError(w, http.StatusNotFound, "conversation_not_found", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"conversation_id": id, "status": "cleared"})
}

func (s *Server) handleEndConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.orchestrator.End(id); err != nil {
		respondError(w, http.StatusNotFound, "conversation_not_found", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"conversation_id": id, "status": "ended"})
}

type messageRequest struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req messageRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "text is required")
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		req.UserID = "anonymous"
	}

	reply, err := s.runTurn(r.Context(), req.UserID, id, req.Text)
	if err != nil {
		if errors.Is(err, memory.ErrConversationNotFound) {
			respondError(w, http.StatusNotFound, "conversation_not_found", err.Error())
			return
		}
		// Generator failures propagate unchanged; the middleware adds no
		// retries or substitute content.
		respondError(w, http.StatusBadGateway, "generation_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, reply)
}

// runTurn executes one full middleware turn: pre-process, external
// generation, post-process.
func (s *Server) runTurn(ctx context.Context, userID, conversationID, text string) (protocol.AssistantReply, error) {
	pre, err := s.orchestrator.PreProcess(ctx, userID, conversationID, text)
	if err != nil {
		return protocol.AssistantReply{}, err
	}

	genStarted := time.Now()
	resp, err := s.gen.Generate(ctx, generator.Request{
		UserID:         userID,
		ConversationID: conversationID,
		TurnID:         pre.TurnID,
		InputText:      text,
		Context:        pre.Bundle,
	})
	if s.window != nil {
		s.window.Observe(observability.StageGenerate,
			float64(time.Since(genStarted).Microseconds())/1000)
	}
	if err != nil {
		if s.metrics != nil {
			s.metrics.GeneratorErrors.WithLabelValues(s.cfg.GeneratorMode).Inc()
		}
		return protocol.AssistantReply{}, err
	}

	post, err := s.orchestrator.PostProcess(ctx, userID, conversationID, pre.TurnID, resp.Text)
	if err != nil {
		return protocol.AssistantReply{}, err
	}

	return protocol.AssistantReply{
		Type:           protocol.TypeAssistantReply,
		ConversationID: conversationID,
		TurnID:         pre.TurnID,
		Text:           post.FinalText,
		UsedFallback:   post.UsedFallback,
		Findings:       post.Findings,
	}, nil
}

func (s *Server) handlePerfLatency(w http.ResponseWriter, _ *http.Request) {
	if s.window == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "latency window not configured")
		return
	}
	respondJSON(w, http.StatusOK, s.window.Snapshot())
}

func (s *Server) handleConversationWS(w http.ResponseWriter, r *http.Request) {
	conversationID := strings.TrimSpace(r.URL.Query().Get("conversation_id"))
	if conversationID == "" {
		respondError(w, http.StatusBadRequest, "missing_conversation_id", "query parameter conversation_id is required")
		return
	}
	s.orchestrator.NewConversation(conversationID)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	outbound := make(chan any, 64)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-outbound:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := conn.WriteJSON(msg); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		return nil
	})

	send := func(msg any) {
		select {
		case outbound <- msg:
		default:
			// Keep websocket writes single-threaded; drop if the outbound
			// queue is saturated.
		}
	}

readLoop:
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))

		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			send(protocol.ErrorEvent{
				Type:           protocol.TypeErrorEvent,
				ConversationID: conversationID,
				Code:           "invalid_client_message",
				Detail:         err.Error(),
			})
			continue
		}

		switch msg := parsed.(type) {
		case protocol.UserMessage:
			userID := msg.UserID
			if strings.TrimSpace(userID) == "" {
				userID = "anonymous"
			}
			reply, err := s.runTurn(ctx, userID, msg.ConversationID, msg.Text)
			if err != nil {
				send(protocol.ErrorEvent{
					Type:           protocol.TypeErrorEvent,
					ConversationID: msg.ConversationID,
					Code:           "turn_failed",
					Detail:         err.Error(),
				})
				continue
			}
			send(reply)
		case protocol.ClientControl:
			if err := s.handleControl(msg); err != nil {
				send(protocol.ErrorEvent{
					Type:           protocol.TypeErrorEvent,
					ConversationID: msg.ConversationID,
					Code:           "control_failed",
					Detail:         err.Error(),
				})
				continue
			}
			send(protocol.SystemEvent{
				Type:           protocol.TypeSystemEvent,
				ConversationID: msg.ConversationID,
				Code:           msg.Action + "_ok",
			})
			if msg.Action == "end" {
				break readLoop
			}
		}
		select {
		case <-ctx.Done():
			break readLoop
		default:
		}
	}

	cancel()
	<-writerDone
}

func (s *Server) handleControl(msg protocol.ClientControl) error {
	switch msg.Action {
	case "clear":
		return s.orchestrator.Clear(msg.ConversationID)
	case "end":
		return s.orchestrator.End(msg.ConversationID)
	default:
		return errors.New("unsupported control action " + msg.Action)
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
