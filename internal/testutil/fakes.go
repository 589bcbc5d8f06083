package testutil

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/reglet-dev/cligate/domain/entities"
	"github.com/reglet-dev/cligate/domain/ports"
)

// ErrInjected is returned by fakes configured to fail.
var ErrInjected = errors.New("injected failure")

// FakeIdentityStore is an in-memory IdentityStore that counts lookups.
type FakeIdentityStore struct {
	Users map[string]string
	Err   error
	calls atomic.Int64
}

var _ ports.IdentityStore = (*FakeIdentityStore)(nil)

// FindUserByID implements ports.IdentityStore.
func (f *FakeIdentityStore) FindUserByID(_ context.Context, id string) (*entities.Identity, error) {
	f.calls.Add(1)
	if f.Err != nil {
		return nil, f.Err
	}
	name, ok := f.Users[id]
	if !ok {
		return nil, nil
	}
	return &entities.Identity{ID: id, Name: name}, nil
}

// Calls returns the number of lookups performed.
func (f *FakeIdentityStore) Calls() int {
	return int(f.calls.Load())
}

// Denial is one recorded denial.
type Denial struct {
	Kind    string
	Subject string
	Reason  string
}

// RecordingDenialHandler keeps every denial it is told about.
type RecordingDenialHandler struct {
	mu      sync.Mutex
	denials []Denial
}

// OnDenial implements ports.DenialHandler.
func (h *RecordingDenialHandler) OnDenial(kind string, subject string, reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.denials = append(h.denials, Denial{Kind: kind, Subject: subject, Reason: reason})
}

// Denials returns a snapshot of the recorded denials.
func (h *RecordingDenialHandler) Denials() []Denial {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Denial(nil), h.denials...)
}

// Delivery is one recorded console delivery.
type Delivery struct {
	UserID  string
	Message entities.ConsoleMessage
}

// RecordingDeliverer records deliveries and can be switched to fail.
type RecordingDeliverer struct {
	mu         sync.Mutex
	deliveries []Delivery
	err        error
	notify     chan struct{}
}

var _ ports.Deliverer = (*RecordingDeliverer)(nil)

// NewRecordingDeliverer returns a deliverer whose Wait method observes
// deliveries.
func NewRecordingDeliverer() *RecordingDeliverer {
	return &RecordingDeliverer{notify: make(chan struct{}, 1024)}
}

// FailWith makes subsequent deliveries fail with err.
func (d *RecordingDeliverer) FailWith(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

// Deliver implements ports.Deliverer.
func (d *RecordingDeliverer) Deliver(_ context.Context, userID string, msg entities.ConsoleMessage) error {
	d.mu.Lock()
	err := d.err
	if err == nil {
		d.deliveries = append(d.deliveries, Delivery{UserID: userID, Message: msg})
	}
	d.mu.Unlock()
	if err == nil && d.notify != nil {
		select {
		case d.notify <- struct{}{}:
		default:
		}
	}
	return err
}

// Deliveries returns a snapshot of successful deliveries.
func (d *RecordingDeliverer) Deliveries() []Delivery {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Delivery(nil), d.deliveries...)
}

// Results flattens the result lines delivered to userID.
func (d *RecordingDeliverer) Results(userID string) []string {
	var out []string
	for _, del := range d.Deliveries() {
		if del.UserID == userID {
			out = append(out, del.Message.Results...)
		}
	}
	return out
}

// Logs flattens the log lines delivered to userID.
func (d *RecordingDeliverer) Logs(userID string) []string {
	var out []string
	for _, del := range d.Deliveries() {
		if del.UserID == userID {
			out = append(out, del.Message.Log...)
		}
	}
	return out
}

// Wait blocks until at least one delivery arrived since the last Wait or
// ctx is done.
func (d *RecordingDeliverer) Wait(ctx context.Context) error {
	select {
	case <-d.notify:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CountingCollection wraps a collection, counting Find calls and failing
// them on demand.
type CountingCollection struct {
	ports.Collection

	FindErr error
	finds   atomic.Int64
}

// Find counts the call and delegates unless FindErr is set.
func (c *CountingCollection) Find(ctx context.Context, query entities.Query, opts *entities.FindOptions) ([]entities.Document, error) {
	c.finds.Add(1)
	if c.FindErr != nil {
		return nil, c.FindErr
	}
	return c.Collection.Find(ctx, query, opts)
}

// Finds returns the number of Find calls.
func (c *CountingCollection) Finds() int {
	return int(c.finds.Load())
}

// MapDatabase is a Database over a fixed map of collections.
type MapDatabase map[string]ports.Collection

var _ ports.Database = MapDatabase(nil)

// Collection implements ports.Database.
func (m MapDatabase) Collection(name string) (ports.Collection, bool) {
	c, ok := m[name]
	return c, ok
}

// Names implements ports.Database.
func (m MapDatabase) Names() []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
