package uiserver

import (
	"context"
	"io"
	"log"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/patrickprogramme/podscribe/internal/kvstore"
	"github.com/patrickprogramme/podscribe/internal/marks"
	"github.com/patrickprogramme/podscribe/internal/player"
	"github.com/patrickprogramme/podscribe/pkg/model"
)

func testServer(t *testing.T) (*Server, *player.Session) {
	t.Helper()
	kv, err := kvstore.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	session := player.NewSession(marks.NewStore(kv), nil, player.Options{})

	episodes := []model.PodcastEpisode{
		{ID: "ep-1", Title: "Утренняя медитация", Duration: 300},
		{ID: "ep-2", Title: "Вечерняя медитация", Duration: 600},
	}
	srv, err := New(Options{
		Session: session,
		SelectEpisode: func(_ context.Context, id string) error {
			for _, ep := range episodes {
				if ep.ID == id {
					session.SelectEpisode(ep)
					return nil
				}
			}
			return player.ErrNoEpisode
		},
		ListEpisodes: func() []model.PodcastEpisode { return episodes },
		Logger:       log.New(io.Discard, "", 0),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return srv, session
}

func dial(t *testing.T, httpSrv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(httpSrv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readEnvelope lit les messages jusqu'à en trouver un du type demandé.
func readEnvelope(t *testing.T, conn *websocket.Conn, wantType string) envelope {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	_ = conn.SetReadDeadline(deadline)
	for {
		var env envelope
		if err := conn.ReadJSON(&env); err != nil {
			t.Fatalf("en attendant %q: %v", wantType, err)
		}
		if env.Type == wantType {
			return env
		}
		if time.Now().After(deadline) {
			t.Fatalf("message %q jamais reçu", wantType)
		}
	}
}

func TestHandshakeSendsCatalogAndSnapshot(t *testing.T) {
	srv, _ := testServer(t)
	httpSrv := httptest.NewServer(srv.Handler())
	defer httpSrv.Close()

	conn := dial(t, httpSrv)

	eps := readEnvelope(t, conn, "episodes")
	if len(eps.Episodes) != 2 || eps.Episodes[0].ID != "ep-1" {
		t.Errorf("catalogue = %#v", eps.Episodes)
	}

	snap := readEnvelope(t, conn, "snapshot")
	if snap.Snapshot == nil || snap.Snapshot.State != player.StateIdle {
		t.Errorf("snapshot initial = %#v", snap.Snapshot)
	}
}

func TestCommandsDriveTheSession(t *testing.T) {
	srv, session := testServer(t)
	httpSrv := httptest.NewServer(srv.Handler())
	defer httpSrv.Close()

	conn := dial(t, httpSrv)
	readEnvelope(t, conn, "episodes")
	readEnvelope(t, conn, "snapshot")

	if err := conn.WriteJSON(Command{Action: "select_episode", EpisodeID: "ep-1"}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	snap := readEnvelope(t, conn, "snapshot")
	if snap.Snapshot.EpisodeID != "ep-1" || snap.Snapshot.State != player.StateLoading {
		t.Fatalf("après sélection: %#v", snap.Snapshot)
	}

	if err := conn.WriteJSON(Command{Action: "add_mark", Time: 42, Title: "пауза"}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	snap = readEnvelope(t, conn, "snapshot")
	if len(snap.Snapshot.Marks) != 1 || snap.Snapshot.Marks[0].Time != 42 {
		t.Errorf("marks = %#v", snap.Snapshot.Marks)
	}

	if err := conn.WriteJSON(Command{Action: "seek", Time: 120}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	snap = readEnvelope(t, conn, "snapshot")
	if snap.Snapshot.CurrentTime != 120 {
		t.Errorf("currentTime = %v", snap.Snapshot.CurrentTime)
	}

	// l'état côté session suit bien
	if got := session.Snapshot().CurrentTime; got != 120 {
		t.Errorf("session currentTime = %v", got)
	}
}

func TestInvalidCommandsReportErrorsWithoutClosing(t *testing.T) {
	srv, _ := testServer(t)
	httpSrv := httptest.NewServer(srv.Handler())
	defer httpSrv.Close()

	conn := dial(t, httpSrv)
	readEnvelope(t, conn, "episodes")
	readEnvelope(t, conn, "snapshot")

	if err := conn.WriteJSON(Command{Action: "explode"}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	errEnv := readEnvelope(t, conn, "error")
	if !strings.Contains(errEnv.Message, "explode") {
		t.Errorf("message = %q", errEnv.Message)
	}

	// marque au titre vide : erreur remontée, connexion toujours vivante
	if err := conn.WriteJSON(Command{Action: "select_episode", EpisodeID: "ep-2"}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	readEnvelope(t, conn, "snapshot")
	if err := conn.WriteJSON(Command{Action: "add_mark", Time: 10, Title: "   "}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	readEnvelope(t, conn, "error")

	if err := conn.WriteJSON(Command{Action: "set_language", Language: "es"}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	snap := readEnvelope(t, conn, "snapshot")
	if snap.Snapshot.Language != model.LangES {
		t.Errorf("language = %s", snap.Snapshot.Language)
	}
}
