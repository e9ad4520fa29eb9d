package ws

import (
	"encoding/json"
	"strconv"
	"sync"

	"github.com/gofiber/contrib/websocket"

	"github.com/careercraft/careercraft_service/internal/telemetry"
)

var (
	mu    sync.RWMutex
	rooms = map[string]map[*websocket.Conn]struct{}{}
)

type Action string

const (
	ActionJoin  Action = "join"
	ActionLeave Action = "leave"
)

type Room string

const (
	RoomDoc  Room = "doc.room"
	RoomUser Room = "user.room"
)

type Event string

const (
	EventDocExtracted Event = "doc.event.extracted"
	EventDocSummary   Event = "doc.event.summary"
	EventDocError     Event = "doc.event.error"
	EventDeckReady    Event = "study.event.deck_ready"
	EventQuizReady    Event = "study.event.quiz_ready"
	EventXPAwarded    Event = "gamify.event.xp_awarded"
	EventStreakBonus  Event = "gamify.event.streak_bonus"
)

type PayloadEvent struct {
	Event Event `json:"event"`
	Data  any   `json:"data,omitempty"`
}

type ClientMessage struct {
	Action Action `json:"action"`
	Room   string `json:"room"`
}

func HandleWS(c *websocket.Conn) {
	tlog := telemetry.L().With().Str("module", "ws").Logger()
	tlog.Info().Msg("ws_connected")
	defer func() {
		// cleanup on disconnect
		mu.Lock()
		for room := range rooms {
			delete(rooms[room], c)
		}
		mu.Unlock()
		_ = c.Close()
	}()

	for {
		_, msg, err := c.ReadMessage()
		if err != nil {
			break
		}

		var cm ClientMessage
		if err := json.Unmarshal(msg, &cm); err != nil {
			continue
		}

		switch cm.Action {
		case ActionJoin:
			joinRoom(c, cm.Room)
		case ActionLeave:
			leaveRoom(c, cm.Room)
		}
	}
}

func joinRoom(c *websocket.Conn, room string) {
	if room == "" {
		return
	}
	mu.Lock()
	if rooms[room] == nil {
		rooms[room] = map[*websocket.Conn]struct{}{}
	}
	rooms[room][c] = struct{}{}
	mu.Unlock()
}

func leaveRoom(c *websocket.Conn, room string) {
	if room == "" {
		return
	}
	mu.Lock()
	delete(rooms[room], c)
	mu.Unlock()
}

func docRoom(docID int64) string { return string(RoomDoc) + "." + strconv.FormatInt(docID, 10) }

func userRoom(userID int64) string { return string(RoomUser) + "." + strconv.FormatInt(userID, 10) }

func HasDocSubscribers(docID int64) bool {
	mu.RLock()
	defer mu.RUnlock()
	return len(rooms[docRoom(docID)]) > 0
}

func broadcast(room string, pl PayloadEvent) {
	mu.RLock()
	conns := rooms[room]
	mu.RUnlock()

	for c := range conns {
		_ = c.WriteJSON(pl)
	}
}

type DocUpdatePayload struct {
	DocID   int64  `json:"doc_id"`
	Text    string `json:"text,omitempty"`
	Summary string `json:"summary,omitempty"`
	Error   string `json:"error,omitempty"`
}

func BroadcastDocExtracted(docID int64, text string) {
	broadcast(docRoom(docID), PayloadEvent{
		Event: EventDocExtracted,
		Data:  DocUpdatePayload{DocID: docID, Text: text},
	})
}

func BroadcastDocSummary(docID int64, summary string) {
	broadcast(docRoom(docID), PayloadEvent{
		Event: EventDocSummary,
		Data:  DocUpdatePayload{DocID: docID, Summary: summary},
	})
}

func BroadcastDocError(docID int64, err error) {
	broadcast(docRoom(docID), PayloadEvent{
		Event: EventDocError,
		Data:  DocUpdatePayload{DocID: docID, Error: err.Error()},
	})
}

func BroadcastDeckReady(userID, deckID int64, cards int) {
	broadcast(userRoom(userID), PayloadEvent{
		Event: EventDeckReady,
		Data:  map[string]any{"deck_id": deckID, "cards": cards},
	})
}

func BroadcastQuizReady(userID, quizID int64, questions int) {
	broadcast(userRoom(userID), PayloadEvent{
		Event: EventQuizReady,
		Data:  map[string]any{"quiz_id": quizID, "questions": questions},
	})
}

func BroadcastXPAwarded(userID int64, amount int, totalXP int64, reason string) {
	broadcast(userRoom(userID), PayloadEvent{
		Event: EventXPAwarded,
		Data:  map[string]any{"amount": amount, "total_xp": totalXP, "reason": reason},
	})
}

func BroadcastStreakBonus(userID int64, streak, bonus int) {
	broadcast(userRoom(userID), PayloadEvent{
		Event: EventStreakBonus,
		Data:  map[string]any{"streak": streak, "bonus": bonus},
	})
}
