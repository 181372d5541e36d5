package app

import (
	"errors"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/shoulder_measurement/internal/measurement"
)

type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t doneToken) Error() error { return t.err }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// fakeClient records publishes; every other mqtt.Client method panics.
type fakeClient struct {
	mqtt.Client

	mu   sync.Mutex
	msgs []published
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, published{topic, qos, retained, payload.([]byte)})
	return doneToken{}
}

func (c *fakeClient) messages() []published {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]published(nil), c.msgs...)
}

type memRecorder struct {
	mu     sync.Mutex
	saved  [][]measurement.AnglePoint
	failed bool
}

func (r *memRecorder) Export(points []measurement.AnglePoint) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failed {
		return "", errors.New("disk full")
	}
	r.saved = append(r.saved, points)
	return "/tmp/shoulder_measurement_1.csv", nil
}
