package virtual

import (
	"context"
	"errors"
	"testing"

	"github.com/nerrad567/graylight/internal/driver"
	"github.com/nerrad567/graylight/internal/light"
)

func TestForwarder_Apply_NoChildren(t *testing.T) {
	tests := []struct {
		name          string
		def           light.Definition
		wantErr       error
		wantReachable bool
	}{
		{
			name: "key absent",
			def: light.Definition{
				ID:       "10",
				Protocol: light.ProtocolVirtual,
				State:    light.State{"reachable": true},
			},
			wantErr:       ErrNoChildrenConfigured,
			wantReachable: true,
		},
		{
			name: "empty list",
			def: light.Definition{
				ID:             "10",
				Protocol:       light.ProtocolVirtual,
				ProtocolConfig: map[string]any{"linked_lights": []any{}},
				State:          light.State{"reachable": true},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.def)

			res := h.forwarder.Apply(context.Background(), "10", light.State{"on": true})
			if !errors.Is(res.Err, tt.wantErr) || (tt.wantErr == nil && res.Err != nil) {
				t.Errorf("Apply() Err = %v, want %v", res.Err, tt.wantErr)
			}
			if len(res.Children) != 0 {
				t.Errorf("Children = %v, want none", res.Children)
			}
			if got := h.light(t, "10").Reachable(); got != tt.wantReachable {
				t.Errorf("parent reachable = %v, want %v", got, tt.wantReachable)
			}
		})
	}
}

func TestForwarder_Apply_DriverlessChild(t *testing.T) {
	h := newHarness(t,
		virtualDef("10", "2"),
		light.Definition{ID: "2", Protocol: light.ProtocolMQTT, State: light.State{"on": false}},
	)

	res := h.forwarder.Apply(context.Background(), "10", light.State{"on": true})
	if res.Err != nil {
		t.Fatalf("Apply() Err = %v", res.Err)
	}

	st := statusFor(t, res, "2")
	if st.Reachable || st.Kind != KindDriver || !errors.Is(st.Err, driver.ErrNoDriver) {
		t.Errorf("child status = %+v, want unreachable driver failure", st)
	}
	if h.light(t, "2").Reachable() {
		t.Error("driverless child still reachable")
	}
	if h.light(t, "10").Reachable() {
		t.Error("parent reachable although no child applied the change")
	}
}

func TestForwarder_Apply_UnreportedReachability(t *testing.T) {
	h := newHarness(t,
		virtualDef("10", "2"),
		light.Definition{ID: "2", Protocol: "silent"},
	)
	h.drivers.Register("silent", silentDriver{})

	res := h.forwarder.Apply(context.Background(), "10", light.State{"on": true})

	if st := statusFor(t, res, "2"); st.Reachable {
		t.Errorf("child status = %+v, want unreachable without a reported flag", st)
	}
	if h.light(t, "10").Reachable() {
		t.Error("parent reachable from a child that never reported reachability")
	}
}

// silentDriver accepts every command without reporting reachability.
type silentDriver struct{}

func (silentDriver) SetState(_ context.Context, l *light.Light, delta light.State, _ driver.SetOptions) error {
	l.MergeState(delta)
	return nil
}

func TestForwarder_Apply_UnknownLight(t *testing.T) {
	h := newHarness(t)
	res := h.forwarder.Apply(context.Background(), "404", light.State{"on": true})
	if !errors.Is(res.Err, light.ErrLightNotFound) {
		t.Errorf("Apply() Err = %v, want ErrLightNotFound", res.Err)
	}
}

func TestForwarder_Apply_OneWritePerEndpoint(t *testing.T) {
	epA := &fakeEndpoint{}
	epB := &fakeEndpoint{}
	addrA := newFakeEndpoint(t, epA)
	addrB := newFakeEndpoint(t, epB)

	h := newHarness(t,
		virtualDef("10", "1", "2", "3", "4"),
		endpointDef("1", addrA, 1, ""),
		endpointDef("2", addrA, 2, ""),
		endpointDef("3", addrB, 1, ""),
		endpointDef("4", addrA, 3, light.TypeOnOff),
	)

	res := h.forwarder.Apply(context.Background(), "10", light.State{"on": true, "bri": 100, "bogus": 1})
	if res.Err != nil {
		t.Fatalf("Apply() Err = %v", res.Err)
	}

	if puts, _ := epA.counts(); puts != 1 {
		t.Errorf("endpoint A writes = %d, want 1", puts)
	}
	if puts, _ := epB.counts(); puts != 1 {
		t.Errorf("endpoint B writes = %d, want 1", puts)
	}

	body := epA.puts[0]
	if len(body.Lights) != 3 {
		t.Fatalf("endpoint A channels = %d, want 3: %v", len(body.Lights), body.Lights)
	}
	if _, ok := body.Lights["1"]["bogus"]; ok {
		t.Error("unrecognised field forwarded")
	}
	if _, ok := body.Lights["3"]["bri"]; ok {
		t.Error("bri forwarded to an on/off light")
	}

	for _, id := range []string{"1", "2", "3", "4"} {
		child := h.light(t, id)
		if !child.Reachable() {
			t.Errorf("child %s unreachable after successful write", id)
		}
		if _, ok := child.State()["bri"]; ok {
			t.Errorf("child %s bri cached on write", id)
		}
	}
	if !h.light(t, "10").Reachable() {
		t.Error("parent unreachable after successful writes")
	}
	if st := statusFor(t, res, "2"); st.Address != addrA || !st.OK() {
		t.Errorf("status(2) = %+v", st)
	}
}

func TestForwarder_Apply_PartialEndpointFailure(t *testing.T) {
	good := &fakeEndpoint{}
	bad := &fakeEndpoint{status: 500}
	goodAddr := newFakeEndpoint(t, good)
	badAddr := newFakeEndpoint(t, bad)

	h := newHarness(t,
		virtualDef("10", "1", "2", "3"),
		endpointDef("1", goodAddr, 1, ""),
		endpointDef("2", badAddr, 1, ""),
		endpointDef("3", badAddr, 2, ""),
	)

	res := h.forwarder.Apply(context.Background(), "10", light.State{"on": false})

	if !h.light(t, "10").Reachable() {
		t.Error("parent unreachable, want reachable from the good endpoint")
	}
	if !h.light(t, "1").Reachable() {
		t.Error("child 1 unreachable")
	}
	for _, id := range []string{"2", "3"} {
		if h.light(t, id).Reachable() {
			t.Errorf("child %s reachable after failed write", id)
		}
		st := statusFor(t, res, id)
		if st.Kind != KindEndpoint || st.Address != badAddr || st.Err == nil {
			t.Errorf("status(%s) = %+v, want endpoint failure on %s", id, st, badAddr)
		}
	}
	if got := len(res.Failed()); got != 2 {
		t.Errorf("Failed() = %d, want 2", got)
	}
}

func TestForwarder_Apply_AllEndpointsFail(t *testing.T) {
	bad := &fakeEndpoint{status: 503}
	addr := newFakeEndpoint(t, bad)

	h := newHarness(t,
		virtualDef("10", "1"),
		endpointDef("1", addr, 1, ""),
	)
	h.light(t, "10").SetReachable(true)

	h.forwarder.Apply(context.Background(), "10", light.State{"on": true})
	if h.light(t, "10").Reachable() {
		t.Error("parent reachable with every endpoint down")
	}
}

func TestForwarder_Apply_DirectChildren(t *testing.T) {
	failing := &stubDriver{setErr: errors.New("radio jammed")}
	h := newHarness(t,
		virtualDef("10", "1", "2", "missing", "3"),
		memoryDef("1", nil),
		light.Definition{ID: "2", Protocol: protocolStub},
		light.Definition{ID: "3", Protocol: light.ProtocolNativeMulti},
	)
	h.drivers.Register(protocolStub, failing)

	res := h.forwarder.Apply(context.Background(), "10", light.State{"on": true, "bri": 42})
	if res.Err != nil {
		t.Fatalf("Apply() Err = %v", res.Err)
	}
	if res.Count() != 4 {
		t.Errorf("Count() = %d, want 4", res.Count())
	}

	mem := h.light(t, "1").State()
	if on, _ := mem.On(); !on {
		t.Error("memory child not switched on")
	}
	if bri, _ := mem.Bri(); bri != 42 {
		t.Errorf("memory child bri = %d, want 42", bri)
	}

	tests := []struct {
		id   string
		kind ErrorKind
	}{
		{id: "1", kind: ""},
		{id: "2", kind: KindDriver},
		{id: "missing", kind: KindUnresolved},
		{id: "3", kind: KindConfig},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			if st := statusFor(t, res, tt.id); st.Kind != tt.kind {
				t.Errorf("Kind = %q, want %q (err %v)", st.Kind, tt.kind, st.Err)
			}
		})
	}

	if h.light(t, "2").Reachable() {
		t.Error("failing child reachable")
	}
	if !h.light(t, "10").Reachable() {
		t.Error("parent unreachable, want reachable from the memory child")
	}
	if got := len(h.recorder.forLight("10")); got != 1 {
		t.Errorf("recorded results = %d, want 1", got)
	}
}

func TestForwarder_Apply_NestedVirtual(t *testing.T) {
	h := newHarness(t,
		virtualDef("10", "11", "2"),
		virtualDef("11", "1"),
		memoryDef("1", nil),
		memoryDef("2", nil),
	)

	res := h.forwarder.Apply(context.Background(), "10", light.State{"on": true})
	if len(res.Failed()) != 0 {
		t.Fatalf("Failed() = %+v", res.Failed())
	}
	for _, id := range []string{"1", "2"} {
		if on, _ := h.light(t, id).State().On(); !on {
			t.Errorf("light %s not on", id)
		}
	}
	if !h.light(t, "11").Reachable() {
		t.Error("nested virtual unreachable")
	}
}
