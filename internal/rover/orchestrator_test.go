package rover

import (
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"rtk-rover/internal/ubx"
)

type fakeSource struct {
	connected   bool
	stale       bool
	connectErr  error
	recvQueue   [][]byte
	recvErr     error
	connects    int
	disconnects int
}

func (f *fakeSource) Connect() error {
	f.connects++
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected = true
	return nil
}

func (f *fakeSource) Receive(buf []byte) (int, error) {
	if f.recvErr != nil {
		err := f.recvErr
		f.recvErr = nil
		f.connected = false
		return 0, err
	}
	if len(f.recvQueue) == 0 {
		return 0, nil
	}
	chunk := f.recvQueue[0]
	f.recvQueue = f.recvQueue[1:]
	return copy(buf, chunk), nil
}

func (f *fakeSource) Connected() bool { return f.connected }
func (f *fakeSource) Stale() bool     { return f.connected && f.stale }

func (f *fakeSource) CheckStale() {
	if f.Stale() {
		f.Disconnect()
	}
}

func (f *fakeSource) Disconnect() {
	if f.connected {
		f.disconnects++
	}
	f.connected = false
	f.stale = false
}

type fakeNetwork struct{ up bool }

func (f *fakeNetwork) Up() bool { return f.up }

type fakeTransport struct {
	pending  []byte
	writes   [][]byte
	writeErr error
	availErr error
}

func (f *fakeTransport) Available() (int, error) {
	if f.availErr != nil {
		return 0, f.availErr
	}
	return len(f.pending), nil
}

func (f *fakeTransport) Read(p []byte) (int, error) {
	n := copy(p, f.pending)
	f.pending = f.pending[n:]
	return n, nil
}

func (f *fakeTransport) Write(p []byte) (int, error) {
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	f.writes = append(f.writes, append([]byte(nil), p...))
	return len(p), nil
}

func (f *fakeTransport) Close() error { return nil }

type fakeStatus struct {
	last    LinkQuality
	updates int
}

func (f *fakeStatus) Update(q LinkQuality) {
	f.last = q
	f.updates++
}

type fakeTelemetry struct {
	err       error
	published int
	lastStats Statistics
	lastAux   Aux
}

func (f *fakeTelemetry) Publish(fix ubx.PositionFix, stats Statistics, aux Aux) error {
	f.published++
	f.lastStats = stats
	f.lastAux = aux
	return f.err
}

// pvtFrame builds a minimal valid NAV-PVT frame with the given carrier
// solution (0 none, 1 float, 2 fixed).
func pvtFrame(carrier byte) []byte {
	payload := make([]byte, 92)
	payload[11] = 0x01 // validity flag
	payload[20] = 3    // 3D fix
	payload[21] = carrier << 6
	payload[23] = 12
	binary.LittleEndian.PutUint32(payload[28:], uint32(int32(473668900)))

	out := []byte{0xB5, 0x62, 0x01, 0x07, byte(len(payload)), byte(len(payload) >> 8)}
	out = append(out, payload...)
	ckA, ckB := ubx.Checksum(out[2:])
	return append(out, ckA, ckB)
}

func newTestOrchestrator(src *fakeSource, net *fakeNetwork, tr *fakeTransport, st *fakeStatus, tl TelemetrySink, cfg Config) *Orchestrator {
	var sink StatusSink
	if st != nil {
		sink = st
	}
	return New(cfg, src, net, tr, sink, tl)
}

func TestTick_ForwardsCorrectionsVerbatim(t *testing.T) {
	rtcm := []byte{0xD3, 0x00, 0x04, 0xAA, 0xBB, 0xCC, 0xDD}
	src := &fakeSource{connected: true, recvQueue: [][]byte{rtcm}}
	tr := &fakeTransport{}
	o := newTestOrchestrator(src, &fakeNetwork{up: true}, tr, nil, nil, Config{})

	o.Tick(time.Now())

	if len(tr.writes) != 1 || string(tr.writes[0]) != string(rtcm) {
		t.Fatalf("writes=%v want exactly the received bytes", tr.writes)
	}
	stats := o.Stats()
	if stats.CorrectionBytesReceived != uint64(len(rtcm)) {
		t.Fatalf("rx=%d want %d", stats.CorrectionBytesReceived, len(rtcm))
	}
	if stats.CorrectionBytesForwarded != uint64(len(rtcm)) {
		t.Fatalf("tx=%d want %d", stats.CorrectionBytesForwarded, len(rtcm))
	}
}

func TestTick_WriteFailureCountsOnlyReceived(t *testing.T) {
	src := &fakeSource{connected: true, recvQueue: [][]byte{{1, 2, 3}}}
	tr := &fakeTransport{writeErr: errors.New("bus error")}
	o := newTestOrchestrator(src, &fakeNetwork{up: true}, tr, nil, nil, Config{})

	o.Tick(time.Now())

	stats := o.Stats()
	if stats.CorrectionBytesReceived != 3 {
		t.Fatalf("rx=%d want 3", stats.CorrectionBytesReceived)
	}
	if stats.CorrectionBytesForwarded != 0 {
		t.Fatalf("tx=%d want 0 on failed write", stats.CorrectionBytesForwarded)
	}
}

func TestTick_RetryIntervalGatesConnects(t *testing.T) {
	src := &fakeSource{connectErr: errors.New("refused")}
	o := newTestOrchestrator(src, &fakeNetwork{up: true}, &fakeTransport{}, nil, nil,
		Config{RetryInterval: 5 * time.Second})

	t0 := time.Now()
	o.Tick(t0)
	o.Tick(t0.Add(1 * time.Second))
	o.Tick(t0.Add(4 * time.Second))
	if src.connects != 1 {
		t.Fatalf("connects=%d want 1 inside retry interval", src.connects)
	}
	o.Tick(t0.Add(5 * time.Second))
	if src.connects != 2 {
		t.Fatalf("connects=%d want 2 after interval elapsed", src.connects)
	}
}

func TestTick_NoConnectWithoutNetwork(t *testing.T) {
	src := &fakeSource{}
	st := &fakeStatus{}
	o := newTestOrchestrator(src, &fakeNetwork{up: false}, &fakeTransport{}, st, nil, Config{})

	o.Tick(time.Now())

	if src.connects != 0 {
		t.Fatalf("connects=%d want 0 with network down", src.connects)
	}
	if st.last != QualityNoNetwork {
		t.Fatalf("quality=%v want no-network", st.last)
	}
}

func TestTick_StaleSessionForcedDown(t *testing.T) {
	src := &fakeSource{connected: true, stale: true, connectErr: errors.New("refused")}
	st := &fakeStatus{}
	o := newTestOrchestrator(src, &fakeNetwork{up: true}, &fakeTransport{}, st, nil, Config{})

	o.Tick(time.Now())

	if src.disconnects != 1 {
		t.Fatalf("disconnects=%d want 1", src.disconnects)
	}
	if st.last != QualityNoCorrections {
		t.Fatalf("quality=%v want no-corrections after forced drop", st.last)
	}
}

func TestTick_ReceiveErrorDegradesThisTick(t *testing.T) {
	src := &fakeSource{connected: true, recvErr: errors.New("io failure")}
	tr := &fakeTransport{}
	o := newTestOrchestrator(src, &fakeNetwork{up: true}, tr, nil, nil, Config{})

	o.Tick(time.Now())

	if len(tr.writes) != 0 {
		t.Fatalf("nothing should be forwarded on receive failure")
	}
	if src.connected {
		t.Fatalf("source should be down after io failure")
	}
}

func TestTick_CountsFixAndSolutionTiers(t *testing.T) {
	src := &fakeSource{connected: true}
	tr := &fakeTransport{pending: pvtFrame(2)}
	st := &fakeStatus{}
	o := newTestOrchestrator(src, &fakeNetwork{up: true}, tr, st, nil, Config{})

	t0 := time.Now()
	o.Tick(t0)
	if st.last != QualityRtkFixed {
		t.Fatalf("quality=%v want rtk-fixed", st.last)
	}

	tr.pending = pvtFrame(1)
	o.Tick(t0.Add(time.Second))
	if st.last != QualityRtkFloat {
		t.Fatalf("quality=%v want rtk-float", st.last)
	}

	tr.pending = pvtFrame(0)
	o.Tick(t0.Add(2 * time.Second))
	if st.last != QualityFixOnly {
		t.Fatalf("quality=%v want fix-no-rtk", st.last)
	}

	stats := o.Stats()
	if stats.Fixes != 3 || stats.FixedSolutions != 1 || stats.FloatSolutions != 1 {
		t.Fatalf("stats=%+v want 3 fixes, 1 fixed, 1 float", stats)
	}
}

func TestTick_OnFixCallback(t *testing.T) {
	src := &fakeSource{connected: true}
	tr := &fakeTransport{pending: pvtFrame(2)}
	var seen []ubx.PositionFix
	o := newTestOrchestrator(src, &fakeNetwork{up: true}, tr, nil, nil, Config{
		OnFix: func(f ubx.PositionFix) { seen = append(seen, f) },
	})

	o.Tick(time.Now())

	if len(seen) != 1 {
		t.Fatalf("onfix calls=%d want 1", len(seen))
	}
	if seen[0].Carrier != ubx.CarrierFixed {
		t.Fatalf("fix=%+v want rtk-fixed carrier", seen[0])
	}
}

func TestTick_TelemetryPublishAndFailureTolerance(t *testing.T) {
	src := &fakeSource{connected: true}
	tr := &fakeTransport{pending: pvtFrame(2)}
	tl := &fakeTelemetry{err: errors.New("broker down")}
	o := newTestOrchestrator(src, &fakeNetwork{up: true}, tr, nil, tl, Config{
		TelemetryInterval: 10 * time.Second,
		AuxFn:             func() Aux { return Aux{BatteryPercent: 87, FirmwareVersion: "1.0"} },
	})

	t0 := time.Now()
	o.Tick(t0)
	if tl.published != 1 {
		t.Fatalf("published=%d want 1", tl.published)
	}
	if tl.lastAux.BatteryPercent != 87 {
		t.Fatalf("aux=%+v want battery 87", tl.lastAux)
	}

	// Sink failure must not break the loop or the gate.
	o.Tick(t0.Add(time.Second))
	if tl.published != 1 {
		t.Fatalf("published=%d want 1 inside interval", tl.published)
	}
	o.Tick(t0.Add(11 * time.Second))
	if tl.published != 2 {
		t.Fatalf("published=%d want 2 after interval", tl.published)
	}
	if tl.lastStats.Fixes != 1 {
		t.Fatalf("stats=%+v want 1 fix", tl.lastStats)
	}
}

func TestQuality_PrecedenceOrder(t *testing.T) {
	src := &fakeSource{}
	net := &fakeNetwork{}
	o := newTestOrchestrator(src, net, &fakeTransport{}, nil, nil, Config{})

	if q := o.Quality(); q != QualityNoNetwork {
		t.Fatalf("q=%v want no-network", q)
	}
	net.up = true
	if q := o.Quality(); q != QualityNoCorrections {
		t.Fatalf("q=%v want no-corrections", q)
	}
	src.connected = true
	src.stale = true
	if q := o.Quality(); q != QualityStaleCorrections {
		t.Fatalf("q=%v want stale-corrections", q)
	}
	src.stale = false
	if q := o.Quality(); q != QualityFixOnly {
		t.Fatalf("q=%v want fix-no-rtk before any fix", q)
	}
}
