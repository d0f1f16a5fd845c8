package ttypes

import (
	"sync"
)

// Published is one command captured by a RecordingPort.
type Published struct {
	Kind    string
	Payload any
}

// RecordingPort is an in-memory OutputPort. It keeps every command in
// publish order and can be told to fail. Used by tests and by dry runs.
type RecordingPort struct {
	mu        sync.Mutex
	published []Published

	// Fail, when set, is returned by every publish method for the given kind
	// ("viseme", "expression", "gesture", "emotion", "state", "mux").
	Fail map[string]error

	// OnPublish is called after a command is recorded, outside the lock.
	OnPublish func(Published)
}

// NewRecordingPort creates an empty recorder.
func NewRecordingPort() *RecordingPort {
	return &RecordingPort{}
}

func (r *RecordingPort) record(kind string, payload any) error {
	r.mu.Lock()
	if err := r.Fail[kind]; err != nil {
		r.mu.Unlock()
		return err
	}
	p := Published{Kind: kind, Payload: payload}
	r.published = append(r.published, p)
	hook := r.OnPublish
	r.mu.Unlock()

	if hook != nil {
		hook(p)
	}
	return nil
}

func (r *RecordingPort) PublishViseme(cmd VisemeCommand) error {
	return r.record("viseme", cmd)
}

func (r *RecordingPort) PublishExpression(cmd ExpressionCommand) error {
	return r.record("expression", cmd)
}

func (r *RecordingPort) PublishGesture(cmd GestureCommand) error {
	return r.record("gesture", cmd)
}

func (r *RecordingPort) PublishEmotion(cmd EmotionCommand) error {
	return r.record("emotion", cmd)
}

func (r *RecordingPort) PublishLipsyncState(state LipsyncState) error {
	return r.record("state", state)
}

func (r *RecordingPort) RequestMuxSwitch(track string) error {
	return r.record("mux", track)
}

// All returns a copy of everything published so far.
func (r *RecordingPort) All() []Published {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Published, len(r.published))
	copy(out, r.published)
	return out
}

// Of returns the payloads published with the given kind.
func (r *RecordingPort) Of(kind string) []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []any
	for _, p := range r.published {
		if p.Kind == kind {
			out = append(out, p.Payload)
		}
	}
	return out
}

// Reset forgets everything published.
func (r *RecordingPort) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published = nil
}
