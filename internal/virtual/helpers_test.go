package virtual

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/graylight/internal/driver"
	"github.com/nerrad567/graylight/internal/endpoint"
	"github.com/nerrad567/graylight/internal/light"
)

const protocolStub light.Protocol = "stub"

// fakeEndpoint is an in-process multi-channel endpoint.
type fakeEndpoint struct {
	mu       sync.Mutex
	puts     []endpoint.Body
	gets     int
	response string
	status   int
}

func (f *fakeEndpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodPut:
		var b endpoint.Body
		data, _ := io.ReadAll(r.Body) //nolint:errcheck // Test server
		_ = json.Unmarshal(data, &b)
		f.puts = append(f.puts, b)
	case http.MethodGet:
		f.gets++
	}

	if f.status != 0 {
		w.WriteHeader(f.status)
		return
	}
	resp := f.response
	if resp == "" {
		resp = `{"lights":{}}`
	}
	_, _ = io.WriteString(w, resp)
}

func (f *fakeEndpoint) counts() (puts, gets int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.puts), f.gets
}

func newFakeEndpoint(t *testing.T, f *fakeEndpoint) string {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return strings.TrimPrefix(srv.URL, "http://")
}

// stubDriver is a Setter and StateReader with canned results.
type stubDriver struct {
	mu       sync.Mutex
	setErr   error
	getErr   error
	state    light.State
	setCalls int
	getCalls int
}

func (d *stubDriver) SetState(_ context.Context, l *light.Light, delta light.State, _ driver.SetOptions) error {
	d.mu.Lock()
	d.setCalls++
	d.mu.Unlock()
	if d.setErr != nil {
		return d.setErr
	}
	patch := delta.Clone()
	patch[light.FieldReachable] = true
	l.MergeState(patch)
	return nil
}

func (d *stubDriver) GetState(context.Context, *light.Light) (light.State, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.getCalls++
	if d.getErr != nil {
		return nil, d.getErr
	}
	return d.state.Clone(), nil
}

// captureRecorder keeps every recorded result.
type captureRecorder struct {
	mu      sync.Mutex
	results []Result
}

func (c *captureRecorder) Record(_ context.Context, res Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, res)
}

func (c *captureRecorder) forLight(id string) []Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Result
	for _, r := range c.results {
		if r.LightID == id {
			out = append(out, r)
		}
	}
	return out
}

type harness struct {
	lights     *light.Registry
	drivers    *driver.Registry
	forwarder  *Forwarder
	aggregator *Aggregator
	recorder   *captureRecorder
}

func newHarness(t *testing.T, defs ...light.Definition) *harness {
	t.Helper()

	lights := light.NewRegistry()
	for _, def := range defs {
		if def.Name == "" {
			def.Name = "Light " + def.ID
		}
		if err := lights.Add(light.New(def)); err != nil {
			t.Fatalf("Add(%s) error = %v", def.ID, err)
		}
	}

	ep := endpoint.NewClient(time.Second)
	drivers := driver.NewRegistry()
	drivers.Register(light.ProtocolMemory, driver.MemoryDriver{})
	drivers.Register(light.ProtocolNativeMulti, driver.NewNativeMultiDriver(ep))

	cfg := Config{MaxConcurrency: 4, MaxDepth: DefaultMaxDepth}
	h := &harness{
		lights:     lights,
		drivers:    drivers,
		forwarder:  NewForwarder(lights, drivers, ep, cfg, nil),
		aggregator: NewAggregator(lights, drivers, ep, cfg, nil),
		recorder:   &captureRecorder{},
	}
	h.forwarder.SetRecorder(h.recorder)
	h.aggregator.SetRecorder(h.recorder)
	drivers.Register(light.ProtocolVirtual, NewDriver(h.forwarder, h.aggregator))
	return h
}

func (h *harness) light(t *testing.T, id string) *light.Light {
	t.Helper()
	l, ok := h.lights.Get(id)
	if !ok {
		t.Fatalf("light %s not registered", id)
	}
	return l
}

func virtualDef(id string, children ...string) light.Definition {
	linked := make([]any, len(children))
	for i, c := range children {
		linked[i] = c
	}
	return light.Definition{
		ID:             id,
		Protocol:       light.ProtocolVirtual,
		ProtocolConfig: map[string]any{light.ConfigLinkedLights: linked},
	}
}

func endpointDef(id, addr string, channel int, typ light.Type) light.Definition {
	return light.Definition{
		ID:             id,
		Protocol:       light.ProtocolNativeMulti,
		Type:           typ,
		ProtocolConfig: map[string]any{light.ConfigAddress: addr, light.ConfigChannel: channel},
	}
}

func memoryDef(id string, state light.State) light.Definition {
	return light.Definition{ID: id, Protocol: light.ProtocolMemory, State: state}
}

func statusFor(t *testing.T, res Result, id string) ChildStatus {
	t.Helper()
	for _, c := range res.Children {
		if c.LightID == id {
			return c
		}
	}
	t.Fatalf("no status for child %s in %+v", id, res.Children)
	return ChildStatus{}
}
