package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aviationwx/aviationwx/internal/status"
	"github.com/aviationwx/aviationwx/internal/weather"
	"github.com/aviationwx/aviationwx/pkg/logger"
)

func TestWantsMessage(t *testing.T) {
	c := &Client{}

	if !c.wantsMessage(&Message{Type: MessageTypeWeatherUpdate, Airport: "kspb"}) {
		t.Error("client without subscriptions should receive airport messages")
	}

	c.Subscribe("kspb")

	if !c.wantsMessage(&Message{Type: MessageTypeWeatherUpdate, Airport: "kspb"}) {
		t.Error("subscribed airport should be delivered")
	}
	if c.wantsMessage(&Message{Type: MessageTypeWeatherUpdate, Airport: "kuao"}) {
		t.Error("unsubscribed airport should be filtered")
	}
	if !c.wantsMessage(&Message{Type: MessageTypeStatusUpdate}) {
		t.Error("messages without an airport should reach every client")
	}

	c.Unsubscribe("kspb")

	if !c.wantsMessage(&Message{Type: MessageTypeWeatherUpdate, Airport: "kuao"}) {
		t.Error("client with an emptied subscription set should receive everything again")
	}
}

func TestMessageAirport(t *testing.T) {
	tests := []struct {
		name    string
		message Message
		want    string
	}{
		{
			name:    "top level",
			message: Message{Type: MessageTypeSubscribe, Airport: "kspb"},
			want:    "kspb",
		},
		{
			name:    "inside data",
			message: Message{Type: MessageTypeSubscribe, Data: map[string]any{"airport": "kspb"}},
			want:    "kspb",
		},
		{
			name:    "normalized",
			message: Message{Type: MessageTypeSubscribe, Airport: " KSPB "},
			want:    "kspb",
		},
		{
			name:    "missing",
			message: Message{Type: MessageTypeSubscribe},
			want:    "",
		},
		{
			name:    "wrong type in data",
			message: Message{Type: MessageTypeSubscribe, Data: map[string]any{"airport": 7}},
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := messageAirport(&tt.message); got != tt.want {
				t.Errorf("messageAirport() = %q, want %q", got, tt.want)
			}
		})
	}
}

func dialTestServer(t *testing.T) (*Server, *websocket.Conn) {
	t.Helper()

	s := NewServer(logger.NewNop())
	go s.Run()
	t.Cleanup(s.Stop)

	srv := httptest.NewServer(http.HandlerFunc(s.HandleConnection))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return s, conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal %q: %v", data, err)
	}
	return msg
}

// onlyClient waits for the connection to register and returns the
// server-side client.
func onlyClient(t *testing.T, s *Server) *Client {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s.mu.RLock()
		for client := range s.clients {
			s.mu.RUnlock()
			return client
		}
		s.mu.RUnlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("client never registered")
	return nil
}

func TestSubscribedClientReceivesAirportUpdates(t *testing.T) {
	s, conn := dialTestServer(t)
	client := onlyClient(t, s)

	subscribe := Message{Type: MessageTypeSubscribe, Data: map[string]any{"airport": "kspb"}}
	if err := conn.WriteJSON(subscribe); err != nil {
		t.Fatalf("write subscribe: %v", err)
	}

	// Wait for the read pump to apply the subscription
	deadline := time.Now().Add(2 * time.Second)
	for client.wantsMessage(&Message{Airport: "kuao"}) {
		if time.Now().After(deadline) {
			t.Fatal("subscription never applied")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// The filtered broadcast goes through the hub first, so if it
	// leaked it would arrive before the subscribed one
	s.WeatherUpdated(&weather.Snapshot{Ident: "kuao", LastUpdated: time.Now().UTC()})
	s.WeatherUpdated(&weather.Snapshot{Ident: "kspb", LastUpdated: time.Now().UTC()})

	msg := readMessage(t, conn)
	if msg.Type != MessageTypeWeatherUpdate {
		t.Errorf("message type = %q, want %q", msg.Type, MessageTypeWeatherUpdate)
	}
	if msg.Airport != "kspb" {
		t.Errorf("airport = %q, want kspb", msg.Airport)
	}
	if _, ok := msg.Data["snapshot"]; !ok {
		t.Error("weather update should carry the snapshot")
	}

	s.StatusUpdated(&status.Report{Overall: status.StateOK, GeneratedAt: time.Now().UTC()})

	msg = readMessage(t, conn)
	if msg.Type != MessageTypeStatusUpdate {
		t.Errorf("message type = %q, want %q", msg.Type, MessageTypeStatusUpdate)
	}
	if msg.Airport != "" {
		t.Errorf("status updates should not carry an airport, got %q", msg.Airport)
	}
}

func TestWebcamUpdateCarriesCamID(t *testing.T) {
	s, conn := dialTestServer(t)
	onlyClient(t, s)

	s.WebcamUpdated("kspb", "ramp")

	msg := readMessage(t, conn)
	if msg.Type != MessageTypeWebcamUpdate {
		t.Errorf("message type = %q, want %q", msg.Type, MessageTypeWebcamUpdate)
	}
	if msg.Airport != "kspb" {
		t.Errorf("airport = %q, want kspb", msg.Airport)
	}
	if camID, _ := msg.Data["cam_id"].(string); camID != "ramp" {
		t.Errorf("cam_id = %q, want ramp", camID)
	}
}

func TestClientDisconnectUnregisters(t *testing.T) {
	s, conn := dialTestServer(t)
	onlyClient(t, s)

	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for {
		s.mu.RLock()
		count := len(s.clients)
		s.mu.RUnlock()
		if count == 0 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("client still registered after close, count=%d", count)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
