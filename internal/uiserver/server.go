// Package uiserver expose l'état du lecteur à une interface (page web,
// client riche) via WebSocket : chaque mutation pousse un instantané complet,
// et les commandes de l'UI (sélection, seek, marques) arrivent en JSON sur la
// même connexion.
package uiserver

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/patrickprogramme/podscribe/internal/player"
	"github.com/patrickprogramme/podscribe/pkg/model"
)

const writeTimeout = 10 * time.Second

// Command : message entrant de l'UI. Action détermine les champs utilisés.
type Command struct {
	Action    string  `json:"action"`
	EpisodeID string  `json:"episodeId,omitempty"`
	Time      float64 `json:"time,omitempty"`
	TimeText  string  `json:"timeText,omitempty"` // "MM:SS" pour edit_mark_time
	MarkID    string  `json:"markId,omitempty"`
	SegmentID string  `json:"segmentId,omitempty"`
	Title     string  `json:"title,omitempty"`
	Text      string  `json:"text,omitempty"`
	Language  string  `json:"language,omitempty"`
}

// envelope : message sortant vers l'UI.
type envelope struct {
	Type     string                 `json:"type"` // snapshot | episodes | error
	Snapshot *player.Snapshot       `json:"snapshot,omitempty"`
	Episodes []model.PodcastEpisode `json:"episodes,omitempty"`
	Message  string                 `json:"message,omitempty"`
}

// Options de construction du serveur.
type Options struct {
	Session *player.Session
	// SelectEpisode résout un id d'épisode et lance la sélection + la
	// transcription. L'orchestration appartient à l'appelant.
	SelectEpisode func(ctx context.Context, episodeID string) error
	// ListEpisodes fournit le catalogue envoyé à chaque connexion.
	ListEpisodes func() []model.PodcastEpisode
	Logger       *log.Logger
}

// Server gère les connexions WebSocket de l'UI.
type Server struct {
	session  *player.Session
	selectEp func(ctx context.Context, episodeID string) error
	list     func() []model.PodcastEpisode
	logger   *log.Logger
	upgrader websocket.Upgrader
}

// New construit un Server. Session est obligatoire ; les callbacks absents
// sont remplacés par des no-ops.
func New(opts Options) (*Server, error) {
	if opts.Session == nil {
		return nil, fmt.Errorf("uiserver: session manquante")
	}
	if opts.SelectEpisode == nil {
		opts.SelectEpisode = func(context.Context, string) error {
			return fmt.Errorf("sélection d'épisode non disponible")
		}
	}
	if opts.ListEpisodes == nil {
		opts.ListEpisodes = func() []model.PodcastEpisode { return nil }
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Server{
		session:  opts.Session,
		selectEp: opts.SelectEpisode,
		list:     opts.ListEpisodes,
		logger:   opts.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// client local uniquement, pas de contrôle d'origine
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}, nil
}

// Handler retourne le mux HTTP : /ws pour la connexion WebSocket.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("upgrade websocket: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	snapshots, unsubscribe := s.session.Subscribe()
	defer unsubscribe()

	// toutes les écritures passent par outbound : gorilla n'autorise qu'un
	// seul écrivain par connexion
	outbound := make(chan envelope, 16)

	go s.writeLoop(ctx, conn, snapshots, outbound)

	// état initial : catalogue puis instantané courant
	snap := s.session.Snapshot()
	select {
	case outbound <- envelope{Type: "episodes", Episodes: s.list()}:
	case <-ctx.Done():
		return
	}
	select {
	case outbound <- envelope{Type: "snapshot", Snapshot: &snap}:
	case <-ctx.Done():
		return
	}

	for {
		var cmd Command
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Printf("connexion UI: %v", err)
			}
			return
		}
		if err := s.dispatch(ctx, cmd); err != nil {
			select {
			case outbound <- envelope{Type: "error", Message: err.Error()}:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *Server) writeLoop(ctx context.Context, conn *websocket.Conn, snapshots <-chan player.Snapshot, outbound <-chan envelope) {
	for {
		var env envelope
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-snapshots:
			if !ok {
				return
			}
			env = envelope{Type: "snapshot", Snapshot: &snap}
		case env = <-outbound:
		}

		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(env); err != nil {
			return
		}
	}
}

// dispatch route une commande vers l'opération du lecteur correspondante.
// Les erreurs remontées ici sont renvoyées à l'UI, jamais fatales pour la
// connexion.
func (s *Server) dispatch(ctx context.Context, cmd Command) error {
	switch cmd.Action {
	case "select_episode":
		return s.selectEp(ctx, cmd.EpisodeID)
	case "tick":
		s.session.UpdateTime(cmd.Time)
		return nil
	case "seek":
		s.session.SeekTo(cmd.Time)
		return nil
	case "skip":
		s.session.Skip(cmd.Time)
		return nil
	case "set_duration":
		s.session.SetDuration(cmd.Time)
		return nil
	case "add_mark":
		_, err := s.session.AddMark(cmd.Time, cmd.Title)
		return err
	case "edit_mark_title":
		return s.session.EditMarkTitle(cmd.MarkID, cmd.Title)
	case "edit_mark_time":
		return s.session.EditMarkTime(cmd.MarkID, cmd.TimeText)
	case "delete_mark":
		return s.session.DeleteMark(cmd.MarkID)
	case "clear_marks":
		return s.session.ClearEpisodeMarks()
	case "edit_segment":
		return s.session.EditSegmentText(cmd.SegmentID, cmd.Text)
	case "set_language":
		lang, err := model.ParseLanguage(cmd.Language)
		if err != nil {
			return err
		}
		s.session.SetLanguage(lang)
		return nil
	default:
		return fmt.Errorf("action inconnue: %q", cmd.Action)
	}
}

// Run démarre le serveur HTTP sur addr et l'arrête à l'annulation du contexte.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.logger.Printf("interface disponible sur ws://%s/ws", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}
