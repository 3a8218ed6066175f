package signal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/NavaneethReddy332/TitaniumShare-sub000/pkg/catalog"
)

func newTestHub(t *testing.T) (*Hub, *catalog.Store, *httptest.Server) {
	t.Helper()

	store, err := catalog.New(&catalog.Config{
		Type:   catalog.DatabaseTypeSQLite,
		SQLite: catalog.SQLiteConfig{Path: ":memory:"},
	})
	if err != nil {
		t.Fatalf("opening catalog: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	hub := NewHub(store, nil, Config{})
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)
	return hub, store, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dialing hub: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func sendEnv(t *testing.T, ws *websocket.Conn, env *Envelope) {
	t.Helper()
	if err := ws.WriteJSON(env); err != nil {
		t.Fatalf("writing %s: %v", env.Type, err)
	}
}

func readEnv(t *testing.T, ws *websocket.Conn) *Envelope {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env Envelope
	if err := ws.ReadJSON(&env); err != nil {
		t.Fatalf("reading envelope: %v", err)
	}
	return &env
}

func expectType(t *testing.T, ws *websocket.Conn, want string) *Envelope {
	t.Helper()
	env := readEnv(t, ws)
	if env.Type != want {
		t.Fatalf("envelope type = %q, want %q (payload %s)", env.Type, want, env.Payload)
	}
	return env
}

func expectNoMessage(t *testing.T, ws *websocket.Conn) {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var env Envelope
	if err := ws.ReadJSON(&env); err == nil {
		t.Fatalf("unexpected envelope %q", env.Type)
	}
}

func errorMessage(t *testing.T, env *Envelope) string {
	t.Helper()
	var p errorPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		t.Fatalf("unmarshaling error payload: %v", err)
	}
	return p.Message
}

// waitFor polls until the condition returns nil or the deadline passes.
func waitFor(t *testing.T, what string, cond func() error) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	var err error
	for time.Now().Before(deadline) {
		if err = cond(); err == nil {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("%s: %v", what, err)
}

func hostJoin(t *testing.T, ws *websocket.Conn, code, hostID string, meta *filePayload) {
	t.Helper()
	env := &Envelope{Type: TypeJoin, RoomCode: code, HostID: hostID}
	if meta != nil {
		payload, _ := json.Marshal(meta)
		env.Payload = payload
	}
	sendEnv(t, ws, env)
	ready := expectType(t, ws, TypeReady)
	var p readyPayload
	if err := json.Unmarshal(ready.Payload, &p); err != nil {
		t.Fatalf("unmarshaling ready payload: %v", err)
	}
	if p.Role != RoleHost {
		t.Fatalf("ready role = %q, want host", p.Role)
	}
}

func TestHandshake(t *testing.T) {
	hub, store, srv := newTestHub(t)

	host := dial(t, srv)
	hostJoin(t, host, "XYZ123", "h1", &filePayload{FileName: "a.bin", FileSize: 42})

	peer := dial(t, srv)
	sendEnv(t, peer, &Envelope{Type: TypeJoin, RoomCode: "XYZ123"})

	ready := expectType(t, peer, TypeReady)
	var rp readyPayload
	if err := json.Unmarshal(ready.Payload, &rp); err != nil {
		t.Fatalf("unmarshaling ready payload: %v", err)
	}
	if rp.Role != RolePeer || rp.FileName != "a.bin" || rp.FileSize != 42 {
		t.Errorf("peer ready payload = %+v, want peer role with announced metadata", rp)
	}
	expectType(t, host, TypePeerJoined)

	// Offer and answer are forwarded verbatim.
	offer := json.RawMessage(`{"sdp":"v=0 host-offer","type":"offer"}`)
	sendEnv(t, host, &Envelope{Type: TypeOffer, Payload: offer})
	got := expectType(t, peer, TypeOffer)
	if string(got.Payload) != string(offer) {
		t.Errorf("offer payload = %s, want %s", got.Payload, offer)
	}

	answer := json.RawMessage(`{"sdp":"v=0 peer-answer","type":"answer"}`)
	sendEnv(t, peer, &Envelope{Type: TypeAnswer, Payload: answer})
	got = expectType(t, host, TypeAnswer)
	if string(got.Payload) != string(answer) {
		t.Errorf("answer payload = %s, want %s", got.Payload, answer)
	}

	// Candidates from one sender arrive in the order they were sent.
	const candidates = 10
	for i := 0; i < candidates; i++ {
		payload := json.RawMessage(fmt.Sprintf(`{"candidate":"c%d"}`, i))
		sendEnv(t, host, &Envelope{Type: TypeICECandidate, Payload: payload})
	}
	for i := 0; i < candidates; i++ {
		env := expectType(t, peer, TypeICECandidate)
		want := fmt.Sprintf(`{"candidate":"c%d"}`, i)
		if string(env.Payload) != want {
			t.Fatalf("candidate %d payload = %s, want %s", i, env.Payload, want)
		}
	}

	if hub.RoomCount() != 1 {
		t.Errorf("RoomCount = %d, want 1", hub.RoomCount())
	}
	waitFor(t, "room row connected", func() error {
		rm, err := store.GetRoom(context.Background(), "XYZ123")
		if err != nil {
			return err
		}
		if rm.Status != string(catalog.RoomConnected) {
			return fmt.Errorf("status = %s", rm.Status)
		}
		if rm.FileName != "a.bin" || rm.FileSize != 42 {
			return fmt.Errorf("file info = %s/%d", rm.FileName, rm.FileSize)
		}
		return nil
	})
}

func TestPeerLeftAndRejoin(t *testing.T) {
	_, store, srv := newTestHub(t)

	host := dial(t, srv)
	hostJoin(t, host, "ROOM42", "h1", nil)

	peer := dial(t, srv)
	sendEnv(t, peer, &Envelope{Type: TypeJoin, RoomCode: "ROOM42"})
	expectType(t, peer, TypeReady)
	expectType(t, host, TypePeerJoined)

	peer.Close()
	expectType(t, host, TypePeerLeft)

	waitFor(t, "room row back to waiting", func() error {
		rm, err := store.GetRoom(context.Background(), "ROOM42")
		if err != nil {
			return err
		}
		if rm.Status != string(catalog.RoomWaiting) {
			return fmt.Errorf("status = %s", rm.Status)
		}
		return nil
	})

	// A second peer resumes the flow with the same code.
	second := dial(t, srv)
	sendEnv(t, second, &Envelope{Type: TypeJoin, RoomCode: "ROOM42"})
	expectType(t, second, TypeReady)
	expectType(t, host, TypePeerJoined)

	sendEnv(t, host, &Envelope{Type: TypeOffer, Payload: json.RawMessage(`{"sdp":"retry"}`)})
	expectType(t, second, TypeOffer)
}

func TestRapidPeerChurnSettlesWaiting(t *testing.T) {
	_, store, srv := newTestHub(t)

	host := dial(t, srv)
	hostJoin(t, host, "CHURN1", "h1", nil)

	// Peer joins and drops immediately. The connected write must land
	// before the waiting write; the mirror row settles on waiting and
	// stays there.
	peer := dial(t, srv)
	sendEnv(t, peer, &Envelope{Type: TypeJoin, RoomCode: "CHURN1"})
	expectType(t, peer, TypeReady)
	peer.Close()
	expectType(t, host, TypePeerLeft)

	waitFor(t, "room row back to waiting", func() error {
		rm, err := store.GetRoom(context.Background(), "CHURN1")
		if err != nil {
			return err
		}
		if rm.Status != string(catalog.RoomWaiting) {
			return fmt.Errorf("status = %s", rm.Status)
		}
		return nil
	})

	time.Sleep(100 * time.Millisecond)
	rm, err := store.GetRoom(context.Background(), "CHURN1")
	if err != nil {
		t.Fatalf("GetRoom: %v", err)
	}
	if rm.Status != string(catalog.RoomWaiting) {
		t.Errorf("status = %s after settling, want waiting", rm.Status)
	}
}

func TestHostCloseTearsDown(t *testing.T) {
	hub, store, srv := newTestHub(t)

	host := dial(t, srv)
	hostJoin(t, host, "ROOM43", "h1", nil)

	peer := dial(t, srv)
	sendEnv(t, peer, &Envelope{Type: TypeJoin, RoomCode: "ROOM43"})
	expectType(t, peer, TypeReady)
	expectType(t, host, TypePeerJoined)

	waitFor(t, "room row created", func() error {
		_, err := store.GetRoom(context.Background(), "ROOM43")
		return err
	})

	host.Close()
	expectType(t, peer, TypePeerLeft)

	waitFor(t, "hub room removed", func() error {
		if n := hub.RoomCount(); n != 0 {
			return fmt.Errorf("RoomCount = %d", n)
		}
		return nil
	})
	waitFor(t, "room row deleted", func() error {
		_, err := store.GetRoom(context.Background(), "ROOM43")
		if errors.Is(err, catalog.ErrRoomNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return fmt.Errorf("room row still present")
	})
}

func TestJoinErrors(t *testing.T) {
	t.Run("peer join without host", func(t *testing.T) {
		_, _, srv := newTestHub(t)
		peer := dial(t, srv)
		sendEnv(t, peer, &Envelope{Type: TypeJoin, RoomCode: "NOHOST"})
		env := expectType(t, peer, TypeError)
		if msg := errorMessage(t, env); msg != "Room not found or host disconnected" {
			t.Errorf("error message = %q", msg)
		}
	})

	t.Run("room occupied", func(t *testing.T) {
		_, _, srv := newTestHub(t)
		host := dial(t, srv)
		hostJoin(t, host, "FULL01", "h1", nil)

		peer := dial(t, srv)
		sendEnv(t, peer, &Envelope{Type: TypeJoin, RoomCode: "FULL01"})
		expectType(t, peer, TypeReady)
		expectType(t, host, TypePeerJoined)

		third := dial(t, srv)
		sendEnv(t, third, &Envelope{Type: TypeJoin, RoomCode: "FULL01"})
		env := expectType(t, third, TypeError)
		if msg := errorMessage(t, env); msg != "Room occupied" {
			t.Errorf("error message = %q", msg)
		}
	})

	t.Run("host collision", func(t *testing.T) {
		_, _, srv := newTestHub(t)
		host := dial(t, srv)
		hostJoin(t, host, "TAKEN1", "h1", nil)

		second := dial(t, srv)
		sendEnv(t, second, &Envelope{Type: TypeJoin, RoomCode: "TAKEN1", HostID: "h2"})
		env := expectType(t, second, TypeError)
		if msg := errorMessage(t, env); msg != "Room already exists" {
			t.Errorf("error message = %q", msg)
		}
	})

	t.Run("invalid room code", func(t *testing.T) {
		_, _, srv := newTestHub(t)
		// Wrong characters or wrong length; codes are exactly six
		// alphanumerics, matching the room row's code column.
		for _, code := range []string{"bad cd", "LONGROOM12", "SHORT"} {
			ws := dial(t, srv)
			sendEnv(t, ws, &Envelope{Type: TypeJoin, RoomCode: code, HostID: "h1"})
			env := expectType(t, ws, TypeError)
			if msg := errorMessage(t, env); msg != "Invalid room code" {
				t.Errorf("code %q: error message = %q", code, msg)
			}
		}
	})
}

func TestFirstMessageMustBeJoin(t *testing.T) {
	_, _, srv := newTestHub(t)

	ws := dial(t, srv)
	sendEnv(t, ws, &Envelope{Type: TypeOffer, Payload: json.RawMessage(`{}`)})
	env := expectType(t, ws, TypeError)
	if msg := errorMessage(t, env); msg != "First message must be join" {
		t.Errorf("error message = %q", msg)
	}

	// The hub closes the connection after the error.
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := ws.ReadMessage(); err == nil {
		t.Error("connection still open after policy violation")
	}
}

func TestOfferBeforePeerIsDropped(t *testing.T) {
	_, _, srv := newTestHub(t)

	host := dial(t, srv)
	hostJoin(t, host, "LONELY", "h1", nil)

	// No counterparty yet; candidates vanish per trickle semantics.
	sendEnv(t, host, &Envelope{Type: TypeICECandidate, Payload: json.RawMessage(`{"candidate":"early"}`)})
	sendEnv(t, host, &Envelope{Type: TypeOffer, Payload: json.RawMessage(`{"sdp":"early"}`)})

	peer := dial(t, srv)
	sendEnv(t, peer, &Envelope{Type: TypeJoin, RoomCode: "LONELY"})
	expectType(t, peer, TypeReady)
	expectNoMessage(t, peer)
}

func TestFileInfo(t *testing.T) {
	_, store, srv := newTestHub(t)

	host := dial(t, srv)
	hostJoin(t, host, "META01", "h1", nil)

	peer := dial(t, srv)
	sendEnv(t, peer, &Envelope{Type: TypeJoin, RoomCode: "META01"})
	expectType(t, peer, TypeReady)
	expectType(t, host, TypePeerJoined)

	payload, _ := json.Marshal(filePayload{FileName: "b.iso", FileSize: 9000})
	sendEnv(t, host, &Envelope{Type: TypeFileInfo, Payload: payload})

	env := expectType(t, peer, TypeFileInfo)
	var meta filePayload
	if err := json.Unmarshal(env.Payload, &meta); err != nil {
		t.Fatalf("unmarshaling file-info payload: %v", err)
	}
	if meta.FileName != "b.iso" || meta.FileSize != 9000 {
		t.Errorf("file-info payload = %+v", meta)
	}

	waitFor(t, "room row file info", func() error {
		rm, err := store.GetRoom(context.Background(), "META01")
		if err != nil {
			return err
		}
		if rm.FileName != "b.iso" || rm.FileSize != 9000 {
			return fmt.Errorf("file info = %s/%d", rm.FileName, rm.FileSize)
		}
		return nil
	})

	// file-info from the peer is ignored and not echoed to the host.
	sendEnv(t, peer, &Envelope{Type: TypeFileInfo, Payload: payload})
	expectNoMessage(t, host)
}

func TestTearDown(t *testing.T) {
	hub, _, srv := newTestHub(t)

	host := dial(t, srv)
	hostJoin(t, host, "SWEEP1", "h1", nil)

	if !hub.TearDown("SWEEP1", "room expired") {
		t.Fatal("TearDown = false for a live room")
	}
	if hub.TearDown("SWEEP1", "room expired") {
		t.Error("TearDown = true for a removed room")
	}

	host.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := host.ReadMessage(); err != nil {
			break
		}
	}
	if hub.RoomCount() != 0 {
		t.Errorf("RoomCount = %d, want 0", hub.RoomCount())
	}
}

func TestNormalizeRoomCode(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"XYZ123", "XYZ123", true},
		{"xyz123", "XYZ123", true},
		{"r00m42", "R00M42", true},
		{"", "", false},
		{"has sp", "", false},
		{"dash-d", "", false},
		{strings.Repeat("A", roomCodeLen), strings.Repeat("A", roomCodeLen), true},
		{strings.Repeat("A", roomCodeLen-1), "", false},
		{strings.Repeat("A", roomCodeLen+1), "", false},
	}
	for _, tt := range tests {
		got, ok := normalizeRoomCode(tt.in)
		if ok != tt.wantOK || (ok && got != tt.want) {
			t.Errorf("normalizeRoomCode(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}
