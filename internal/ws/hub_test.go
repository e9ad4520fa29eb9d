package ws

import (
	"testing"

	"github.com/gofiber/contrib/websocket"
)

func resetRooms() {
	mu.Lock()
	rooms = map[string]map[*websocket.Conn]struct{}{}
	mu.Unlock()
}

func TestDocRoomSubscription(t *testing.T) {
	resetRooms()
	c := &websocket.Conn{}

	if HasDocSubscribers(42) {
		t.Fatal("empty hub reports subscribers")
	}

	joinRoom(c, docRoom(42))
	if !HasDocSubscribers(42) {
		t.Fatal("joined connection not counted")
	}
	if HasDocSubscribers(7) {
		t.Fatal("unrelated document reports subscribers")
	}

	leaveRoom(c, docRoom(42))
	if HasDocSubscribers(42) {
		t.Fatal("left connection still counted")
	}
}

func TestJoinRoomIgnoresEmptyName(t *testing.T) {
	resetRooms()
	joinRoom(&websocket.Conn{}, "")

	mu.RLock()
	n := len(rooms)
	mu.RUnlock()
	if n != 0 {
		t.Fatalf("empty room name created a room, rooms=%d", n)
	}
}

func TestRoomNames(t *testing.T) {
	if got := docRoom(5); got != "doc.room.5" {
		t.Fatalf("docRoom: %s", got)
	}
	if got := userRoom(9); got != "user.room.9" {
		t.Fatalf("userRoom: %s", got)
	}
}
