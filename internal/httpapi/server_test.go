package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fmattioli/socrates/internal/config"
	"github.com/fmattioli/socrates/internal/generator"
	"github.com/fmattioli/socrates/internal/middleware"
	"github.com/fmattioli/socrates/internal/observability"
	"github.com/fmattioli/socrates/internal/protocol"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := config.Config{GeneratorMode: "mock", AllowAnyOrigin: true}
	orch := middleware.New(middleware.Options{})
	srv := New(cfg, orch, generator.NewMockAdapter(), nil, observability.NewStageWindow(64))
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func createConversation(t *testing.T, ts *httptest.Server, id string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"conversation_id": id, "user_id": "user-1"})
	res, err := http.Post(ts.URL+"/v1/conversations", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("create conversation request error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want %d", res.StatusCode, http.StatusCreated)
	}
	var created map[string]any
	if err := json.NewDecoder(res.Body).Decode(&created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	got, _ := created["conversation_id"].(string)
	if got == "" {
		t.Fatalf("missing conversation_id in create response: %+v", created)
	}
	return got
}

func TestConversationLifecycle(t *testing.T) {
	ts := newTestServer(t)
	id := createConversation(t, ts, "conv-1")

	endRes, err := http.Post(ts.URL+"/v1/conversations/"+id+"/end", "application/json", nil)
	if err != nil {
		t.Fatalf("end request error = %v", err)
	}
	defer endRes.Body.Close()
	if endRes.StatusCode != http.StatusOK {
		t.Fatalf("end status = %d, want %d", endRes.StatusCode, http.StatusOK)
	}

	again, err := http.Post(ts.URL+"/v1/conversations/"+id+"/end", "application/json", nil)
	if err != nil {
		t.Fatalf("second end request error = %v", err)
	}
	defer again.Body.Close()
	if again.StatusCode != http.StatusNotFound {
		t.Fatalf("ending a missing conversation status = %d, want %d", again.StatusCode, http.StatusNotFound)
	}
}

func TestMessageTurnRoundTrip(t *testing.T) {
	ts := newTestServer(t)
	id := createConversation(t, ts, "conv-msg")

	body, _ := json.Marshal(map[string]string{"user_id": "user-1", "text": "teach me fractions"})
	res, err := http.Post(ts.URL+"/v1/conversations/"+id+"/messages", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("message request error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("message status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var reply protocol.AssistantReply
	if err := json.NewDecoder(res.Body).Decode(&reply); err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if reply.ConversationID != id || reply.TurnID == "" {
		t.Fatalf("unexpected reply identity: %+v", reply)
	}
	if !strings.Contains(reply.Text, "teach me fractions") {
		t.Fatalf("mock reply should echo the input: %q", reply.Text)
	}
}

func TestMessageToUnknownConversation(t *testing.T) {
	ts := newTestServer(t)

	body, _ := json.Marshal(map[string]string{"user_id": "user-1", "text": "hello"})
	res, err := http.Post(ts.URL+"/v1/conversations/missing/messages", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("message request error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusNotFound)
	}
}

func TestPerfLatencySnapshot(t *testing.T) {
	ts := newTestServer(t)
	id := createConversation(t, ts, "conv-perf")

	body, _ := json.Marshal(map[string]string{"user_id": "user-1", "text": "hello"})
	res, err := http.Post(ts.URL+"/v1/conversations/"+id+"/messages", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("message request error = %v", err)
	}
	res.Body.Close()

	perfRes, err := http.Get(ts.URL + "/v1/perf/latency")
	if err != nil {
		t.Fatalf("perf request error = %v", err)
	}
	defer perfRes.Body.Close()
	if perfRes.StatusCode != http.StatusOK {
		t.Fatalf("perf status = %d, want %d", perfRes.StatusCode, http.StatusOK)
	}

	var snap observability.StageSnapshot
	if err := json.NewDecoder(perfRes.Body).Decode(&snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(snap.Stages) == 0 {
		t.Fatalf("snapshot should carry stage samples after a turn")
	}
}

func TestWebsocketTurn(t *testing.T) {
	ts := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/conversations/ws?conversation_id=conv-ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial error = %v", err)
	}
	defer conn.Close()

	msg := protocol.UserMessage{
		Type:           protocol.TypeUserMessage,
		ConversationID: "conv-ws",
		UserID:         "user-1",
		Text:           "what is a prime number?",
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write error = %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var reply protocol.AssistantReply
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("read error = %v", err)
	}
	if reply.Type != protocol.TypeAssistantReply || reply.Text == "" {
		t.Fatalf("unexpected reply: %+v", reply)
	}
}

func TestWebsocketRejectsMalformedPayload(t *testing.T) {
	ts := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/conversations/ws?conversation_id=conv-bad"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial error = %v", err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"wat"}`)); err != nil {
		t.Fatalf("write error = %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var errEvent protocol.ErrorEvent
	if err := conn.ReadJSON(&errEvent); err != nil {
		t.Fatalf("read error = %v", err)
	}
	if errEvent.Type != protocol.TypeErrorEvent || errEvent.Code != "invalid_client_message" {
		t.Fatalf("unexpected error event: %+v", errEvent)
	}
}
