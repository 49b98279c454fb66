// Package events типизированные входящие и исходящие события WebSocket.
// Кадр на проводе: {"type": ..., "data": {...}, "timestamp": ...}.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	ErrUnknownEvent = errors.New("unknown event type")
	ErrInvalidEvent = errors.New("invalid event payload")
)

type Envelope struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

var validate = validator.New()

// Decode разбирает кадр в один из входящих вариантов и валидирует поля
func Decode(env Envelope) (Inbound, error) {
	newEvent, ok := inboundTypes[env.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Type)
	}

	ev := newEvent()
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, ev); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidEvent, env.Type, err)
		}
	}
	if err := validate.Struct(ev); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidEvent, env.Type, err)
	}

	return normalize(ev), nil
}

// Encode упаковывает исходящее событие в кадр
func Encode(ev Outbound) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{
		Type:      ev.Name(),
		Data:      data,
		Timestamp: time.Now(),
	})
}
