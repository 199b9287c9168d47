package events

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/spf13/afero"
)

// Writer appends audit records to a JSON-lines file, one object per line.
type Writer struct {
	FS   afero.Fs
	Path string
	Now  func() time.Time

	mu sync.Mutex
}

type EventPayload map[string]any

type record struct {
	TS       string       `json:"ts"`
	Type     string       `json:"type"`
	Category string       `json:"category,omitempty"`
	EntityID string       `json:"entity_id,omitempty"`
	ActorID  string       `json:"actor_id,omitempty"`
	Payload  EventPayload `json:"payload"`
}

func (w *Writer) Append(_ context.Context, evtType, category, entityID, actorID string, payload EventPayload) error {
	now := w.Now
	if now == nil {
		now = time.Now
	}
	if payload == nil {
		payload = EventPayload{}
	}
	data, err := json.Marshal(record{
		TS:       now().UTC().Format(time.RFC3339),
		Type:     evtType,
		Category: category,
		EntityID: entityID,
		ActorID:  actorID,
		Payload:  payload,
	})
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	f, err := w.FS.OpenFile(w.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(append(data, '\n'))
	return err
}
