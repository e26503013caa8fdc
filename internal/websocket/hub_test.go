package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minimap_go/internal/models"
)

type fakeProvider struct {
	mu       sync.Mutex
	scene    *models.Scene
	layers   models.LayerSet
	onToggle func(models.LayerSet)
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		scene:  &models.Scene{Title: "Casa", Width: 100, Height: 80, Fingerprint: "00000000000000ff"},
		layers: models.AllLayers(),
	}
}

func (p *fakeProvider) GetScene() *models.Scene {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.scene
}

func (p *fakeProvider) GetStatus() models.ServiceStatus {
	return models.ServiceStatus{Status: "ok", SensorCount: 1}
}

func (p *fakeProvider) Layers() models.LayerSet {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.layers
}

func (p *fakeProvider) ToggleLayer(_ context.Context, l models.Layer) (models.LayerSet, error) {
	p.mu.Lock()
	p.layers.Toggle(l)
	layers, onToggle := p.layers, p.onToggle
	p.mu.Unlock()

	if onToggle != nil {
		onToggle(layers)
	}
	return layers, nil
}

type received struct {
	Type    string                 `json:"type"`
	Error   string                 `json:"error"`
	Data    map[string]interface{} `json:"data"`
	Layers  map[string]bool        `json:"layers"`
	Scene   *models.Scene          `json:"scene"`
	Status  string                 `json:"status"`
	LastErr string                 `json:"lastError"`
	Time    int64                  `json:"time"`
}

func startHub(t *testing.T) (*Hub, *fakeProvider, *websocket.Conn) {
	t.Helper()

	provider := newFakeProvider()
	hub := NewHub(provider, nil)
	provider.onToggle = hub.BroadcastLayers
	go hub.Run()
	t.Cleanup(hub.Shutdown)

	server := httptest.NewServer(NewHandler(hub, nil))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return hub, provider, conn
}

func readMessage(t *testing.T, conn *websocket.Conn) received {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg received
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

// readUntil descarta mensagens até encontrar o tipo pedido
func readUntil(t *testing.T, conn *websocket.Conn, msgType string) received {
	t.Helper()
	for i := 0; i < 10; i++ {
		msg := readMessage(t, conn)
		if msg.Type == msgType {
			return msg
		}
	}
	t.Fatalf("mensagem %q não recebida", msgType)
	return received{}
}

func sendCommand(t *testing.T, conn *websocket.Conn, cmd interface{}) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(cmd))
}

func TestInitialMessages(t *testing.T) {
	hub, _, conn := startHub(t)

	welcome := readMessage(t, conn)
	assert.Equal(t, TypeWelcome, welcome.Type)
	assert.NotEmpty(t, welcome.Data["clientId"])

	layers := readMessage(t, conn)
	assert.Equal(t, TypeLayers, layers.Type)
	assert.True(t, layers.Layers["zones"])

	scene := readMessage(t, conn)
	require.Equal(t, TypeScene, scene.Type)
	require.NotNil(t, scene.Scene)
	assert.Equal(t, "Casa", scene.Scene.Title)

	assert.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
}

func TestToggleLayerCommand(t *testing.T) {
	_, provider, conn := startHub(t)
	readUntil(t, conn, TypeScene)

	sendCommand(t, conn, map[string]interface{}{
		"type":   CommandToggleLayer,
		"params": map[string]string{"layer": "zones"},
	})

	msg := readUntil(t, conn, TypeLayers)
	assert.False(t, msg.Layers["zones"])
	assert.True(t, msg.Layers["targets"])
	assert.False(t, provider.Layers().Visible(models.LayerZones))
}

func TestToggleLayerAcceptsConfigKey(t *testing.T) {
	_, provider, conn := startHub(t)
	readUntil(t, conn, TypeScene)

	sendCommand(t, conn, map[string]interface{}{
		"type":   CommandToggleLayer,
		"params": map[string]string{"layer": "show_labels"},
	})

	msg := readUntil(t, conn, TypeLayers)
	assert.False(t, msg.Layers["labels"])
	assert.False(t, provider.Layers().Visible(models.LayerLabels))
}

func TestInvalidLayerReturnsError(t *testing.T) {
	_, _, conn := startHub(t)
	readUntil(t, conn, TypeScene)

	sendCommand(t, conn, map[string]interface{}{
		"type":   CommandToggleLayer,
		"params": map[string]string{"layer": "furniture"},
	})

	msg := readUntil(t, conn, TypeError)
	assert.Equal(t, "invalid_layer", msg.Data["code"])
}

func TestPingAndQueries(t *testing.T) {
	_, _, conn := startHub(t)
	readUntil(t, conn, TypeScene)

	sendCommand(t, conn, map[string]interface{}{
		"type":   CommandPing,
		"params": map[string]interface{}{"time": 1234},
	})
	pong := readUntil(t, conn, TypePong)
	assert.Equal(t, int64(1234), pong.Time)

	sendCommand(t, conn, map[string]string{"type": CommandGetScene})
	scene := readUntil(t, conn, TypeScene)
	require.NotNil(t, scene.Scene)
	assert.Equal(t, "00000000000000ff", scene.Scene.Fingerprint)

	sendCommand(t, conn, map[string]string{"type": CommandGetStatus})
	status := readUntil(t, conn, TypeStatus)
	assert.Equal(t, "ok", status.Status)

	sendCommand(t, conn, map[string]string{"type": "dance"})
	unknown := readUntil(t, conn, TypeError)
	assert.Equal(t, "unknown_command", unknown.Data["code"])
}

func TestMalformedMessage(t *testing.T) {
	_, _, conn := startHub(t)
	readUntil(t, conn, TypeScene)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type": "ping", "extra": 1}`)))
	msg := readUntil(t, conn, TypeError)
	assert.Equal(t, "invalid_format", msg.Data["code"])
}

func TestBroadcastScene(t *testing.T) {
	hub, _, conn := startHub(t)
	readUntil(t, conn, TypeScene)

	hub.BroadcastScene(&models.Scene{Title: "Atualizada", Fingerprint: "0000000000000001"})
	msg := readUntil(t, conn, TypeScene)
	require.NotNil(t, msg.Scene)
	assert.Equal(t, "Atualizada", msg.Scene.Title)

	hub.BroadcastStatus(models.ServiceStatus{Status: "degraded", LastError: "timeout", ErrorCount: 2})
	status := readUntil(t, conn, TypeStatus)
	assert.Equal(t, "degraded", status.Status)
	assert.Equal(t, "timeout", status.LastErr)
}

func TestCheckOrigin(t *testing.T) {
	h := NewHandler(NewHub(newFakeProvider(), nil), []string{"http://casa.local"})

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.True(t, h.checkOrigin(req), "sem Origin é aceito")

	req.Header.Set("Origin", "http://casa.local")
	assert.True(t, h.checkOrigin(req))

	req.Header.Set("Origin", "http://evil.example")
	assert.False(t, h.checkOrigin(req))

	open := NewHandler(NewHub(newFakeProvider(), nil), []string{"*"})
	assert.True(t, open.checkOrigin(req))
}

func TestLayerParam(t *testing.T) {
	l, err := layerParam(map[string]interface{}{"layer": "masks"})
	require.NoError(t, err)
	assert.Equal(t, models.LayerMasks, l)

	_, err = layerParam(map[string]interface{}{})
	assert.Error(t, err)

	_, err = layerParam("zones")
	assert.Error(t, err)

	assert.Equal(t, int64(42), pingTime(map[string]interface{}{"time": 42.0}))
	assert.Equal(t, int64(0), pingTime(nil))
}
