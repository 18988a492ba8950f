package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/seismic_analyze/internal/integrate"
	"github.com/relabs-tech/seismic_analyze/internal/sink"
)

// fakeMessage is an mqtt.Message carrying only a payload.
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 0 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 0 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

func message(t *testing.T, v any) *fakeMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return &fakeMessage{topic: "seismic/displacement", payload: b}
}

func TestHub_HandleLatest(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(hub.Routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/displacement")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	want := integrate.Displacement{Index: 3, X: 0.1, Y: -0.2, Z: 0.3}
	hub.Publish(want)

	resp, err = http.Get(srv.URL + "/api/displacement")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var got integrate.Displacement
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, want, got)
}

func TestHub_WebSocketStream(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(hub.Routes())
	defer srv.Close()

	first := integrate.Displacement{Index: 1, X: 1}
	hub.Publish(first)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/displacement"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	// The latest value arrives on connect, which also proves registration.
	var got integrate.Displacement
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, first, got)
	assert.Equal(t, 1, hub.Clients())

	for i := 2; i <= 4; i++ {
		want := integrate.Displacement{Index: i, X: float64(i), Y: -float64(i), Z: 0.5}
		hub.Publish(want)
		require.NoError(t, conn.ReadJSON(&got))
		assert.Equal(t, want, got)
	}
}

func TestHub_DropsClosedClients(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(hub.Routes())
	defer srv.Close()
	hub.Publish(integrate.Displacement{Index: 1})

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/displacement"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	var d integrate.Displacement
	require.NoError(t, conn.ReadJSON(&d))

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")))
	conn.Close()

	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestHub_MessageHandler(t *testing.T) {
	hub := NewHub()
	handle := hub.MessageHandler()

	handle(nil, &fakeMessage{payload: []byte("not json")})
	_, ok := hub.Latest()
	assert.False(t, ok, "bad payloads are ignored")

	want := integrate.Displacement{Index: 9, X: 1e-6, Y: 2, Z: -3}
	handle(nil, message(t, want))
	got, ok := hub.Latest()
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestDisplacementPrinter(t *testing.T) {
	var out bytes.Buffer
	handle := displacementPrinter(&out, sink.Formatter{Separator: ","})

	handle(nil, message(t, integrate.Displacement{Index: 1, X: 9.79095936}))
	handle(nil, &fakeMessage{payload: []byte("{")})
	handle(nil, message(t, integrate.Displacement{Index: 2, X: -0.5, Y: 0.25, Z: 1}))

	assert.Equal(t, "1,9.79096,0,0\n2,-0.5,0.25,1\n", out.String())
}

func TestSummaryPrinter(t *testing.T) {
	var out bytes.Buffer
	report := Report{Source: "2024-03-17.dat", Policy: integrate.PolicyVelocityIntegrated}
	report.Readings = 2
	report.Emitted = 1
	report.First = 100
	report.Last = 101
	report.Final.X = 9.79095936

	summaryPrinter(&out)(nil, message(t, report))
	assert.Equal(t,
		"[RUN] 2024-03-17.dat policy=velocity-integrated readings=2 emitted=1 duration=1.000s final=(9.79096, 0, 0)\n",
		out.String())
}
