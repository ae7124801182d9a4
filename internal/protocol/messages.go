package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fmattioli/socrates/internal/validate"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeUserMessage    MessageType = "user_message"
	TypeClientControl  MessageType = "client_control"
	TypeAssistantReply MessageType = "assistant_reply"
	TypeSystemEvent    MessageType = "system_event"
	TypeErrorEvent     MessageType = "error_event"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// UserMessage is one inbound tutoring question.
type UserMessage struct {
	Type           MessageType `json:"type"`
	ConversationID string      `json:"conversation_id"`
	UserID         string      `json:"user_id"`
	Text           string      `json:"text"`
	TSMs           int64       `json:"ts_ms"`
}

// ClientControl carries conversation-level actions ("clear", "end").
type ClientControl struct {
	Type           MessageType `json:"type"`
	ConversationID string      `json:"conversation_id"`
	Action         string      `json:"action"`
}

// AssistantReply is the validated final reply for one turn.
type AssistantReply struct {
	Type           MessageType        `json:"type"`
	ConversationID string             `json:"conversation_id"`
	TurnID         string             `json:"turn_id"`
	Text           string             `json:"text"`
	UsedFallback   bool               `json:"used_fallback"`
	Findings       []validate.Finding `json:"findings,omitempty"`
}

type SystemEvent struct {
	Type           MessageType `json:"type"`
	ConversationID string      `json:"conversation_id"`
	Code           string      `json:"code"`
	Detail         string      `json:"detail,omitempty"`
}

type ErrorEvent struct {
	Type           MessageType `json:"type"`
	ConversationID string      `json:"conversation_id"`
	Code           string      `json:"code"`
	Detail         string      `json:"detail"`
}

// ParseClientMessage decodes and validates an inbound websocket payload.
func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeUserMessage:
		var msg UserMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.ConversationID == "" || msg.Text == "" {
			return nil, errors.New("invalid user_message")
		}
		return msg, nil
	case TypeClientControl:
		var msg ClientControl
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.ConversationID == "" || msg.Action == "" {
			return nil, errors.New("invalid client_control")
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}
