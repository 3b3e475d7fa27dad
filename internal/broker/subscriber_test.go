package broker

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"github.com/qrave1/RoomChat/internal/domain/events"
	"github.com/qrave1/RoomChat/internal/domain/models"
)

// fakeSubscriber запоминает все принятые кадры.
type fakeSubscriber struct {
	id        string
	principal models.Principal

	mu     sync.Mutex
	frames []events.Message

	reject bool
	panics bool
}

func newFakeSubscriber(name string) *fakeSubscriber {
	return &fakeSubscriber{
		id:        uuid.NewString(),
		principal: models.Principal{ID: uuid.New(), DisplayName: name},
	}
}

// sameUser - второе соединение того же пользователя
func (f *fakeSubscriber) sameUser() *fakeSubscriber {
	return &fakeSubscriber{id: uuid.NewString(), principal: f.principal}
}

func (f *fakeSubscriber) ID() string                  { return f.id }
func (f *fakeSubscriber) Principal() models.Principal { return f.principal }

func (f *fakeSubscriber) Deliver(data []byte) bool {
	if f.panics {
		panic("broken subscriber")
	}
	if f.reject {
		return false
	}

	var frame events.Message
	if err := json.Unmarshal(data, &frame); err != nil {
		return false
	}

	f.mu.Lock()
	f.frames = append(f.frames, frame)
	f.mu.Unlock()

	return true
}

func (f *fakeSubscriber) received(eventType string) []events.Message {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []events.Message
	for _, frame := range f.frames {
		if frame.Type == eventType {
			out = append(out, frame)
		}
	}

	return out
}
