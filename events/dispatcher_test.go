package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Dosada05/season-engine/models"
	"github.com/Dosada05/season-engine/repositories"
	"github.com/gorilla/websocket"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingPublisher struct {
	got []models.DomainEvent
}

func (p *recordingPublisher) Publish(e models.DomainEvent) { p.got = append(p.got, e) }

func TestDispatcher_ListenersRunInOrder(t *testing.T) {
	d := NewDispatcher(discardLogger())
	var calls []string
	d.Subscribe(models.EventMatchFinalized, func(ctx context.Context, exec repositories.SQLExecutor, e models.DomainEvent) error {
		calls = append(calls, "standings")
		return nil
	})
	d.Subscribe(models.EventMatchFinalized, func(ctx context.Context, exec repositories.SQLExecutor, e models.DomainEvent) error {
		calls = append(calls, "notifications")
		return nil
	})
	d.Subscribe(models.EventCupTieResolved, func(ctx context.Context, exec repositories.SQLExecutor, e models.DomainEvent) error {
		calls = append(calls, "prize money")
		return nil
	})

	if err := d.Dispatch(context.Background(), nil, models.NewDomainEvent(models.EventMatchFinalized, 1, "league")); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if strings.Join(calls, ",") != "standings,notifications" {
		t.Errorf("calls = %v, want [standings notifications]", calls)
	}
}

func TestRecorder_ErrorStopsAndNothingIsPublished(t *testing.T) {
	d := NewDispatcher(discardLogger())
	pub := &recordingPublisher{}
	d.AddPublisher(pub)
	boom := errors.New("boom")
	d.Subscribe(models.EventMatchFinalized, func(ctx context.Context, exec repositories.SQLExecutor, e models.DomainEvent) error {
		return boom
	})

	rec := d.NewRecorder()
	if err := rec.Emit(context.Background(), nil, models.NewDomainEvent(models.EventMatchdayAdvanced, 1, "league")); err != nil {
		t.Fatalf("Emit(matchday) error = %v", err)
	}
	if err := rec.Emit(context.Background(), nil, models.NewDomainEvent(models.EventMatchFinalized, 1, "league")); !errors.Is(err, boom) {
		t.Fatalf("Emit(match) error = %v, want boom", err)
	}
	if len(rec.Events()) != 1 {
		t.Errorf("recorded %d events, want 1", len(rec.Events()))
	}

	rec.Discard()
	rec.Flush()
	if len(pub.got) != 0 {
		t.Errorf("published %d events after discard, want 0", len(pub.got))
	}

	rec.Emit(context.Background(), nil, models.NewDomainEvent(models.EventSeasonStarted, 1, ""))
	rec.Flush()
	if len(pub.got) != 1 || pub.got[0].Type != models.EventSeasonStarted {
		t.Errorf("published %+v, want one season_started", pub.got)
	}
}

func TestHub_PublishReachesGameRoom(t *testing.T) {
	hub := NewHub(discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := &Client{Hub: hub, Conn: conn, Send: make(chan []byte, 8), Room: RoomForGame(7)}
		hub.Register <- client
		go client.WritePump()
		go client.ReadPump()
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientsInRoom(RoomForGame(7)) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.Publish(models.NewDomainEvent(models.EventCupTieResolved, 8, "cup")) // other game
	hub.Publish(models.NewDomainEvent(models.EventMatchdayAdvanced, 7, "league"))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	if !strings.Contains(string(msg), `"type":"matchday_advanced"`) {
		t.Errorf("message = %s, want matchday_advanced", msg)
	}
}
