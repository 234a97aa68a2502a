// Package app orchestre les dépendances du lecteur : catalogue Telegram,
// transcription, session de lecture, dépôt de fichiers et interface.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/patrickprogramme/podscribe/internal/assemblyai"
	"github.com/patrickprogramme/podscribe/internal/config"
	"github.com/patrickprogramme/podscribe/internal/kvstore"
	"github.com/patrickprogramme/podscribe/internal/marks"
	"github.com/patrickprogramme/podscribe/internal/player"
	"github.com/patrickprogramme/podscribe/internal/telegram"
	"github.com/patrickprogramme/podscribe/internal/ui"
	"github.com/patrickprogramme/podscribe/internal/uiserver"
	"github.com/patrickprogramme/podscribe/internal/uploads"
	"github.com/patrickprogramme/podscribe/pkg/model"
)

// CLIFlags contient les information venant des flags de l'app
type CLIFlags struct {
	ConfigPath string
	Channel    string
	ListenAddr string
}

// App orchestre les différentes dépendances (UI, providers, session...)
type App struct {
	cfg      *config.Config
	ui       ui.Interface
	flags    *CLIFlags
	provider telegram.Interface
	logger   *log.Logger

	session  *player.Session
	episodes []model.PodcastEpisode
	info     model.ChannelInfo
}

// New construit l'application en initialisant les dépendances par défaut.
// Pour les tests, on préférera construire App en injectant des implémentations mock.
func New(cfg *config.Config, uiClient ui.Interface, flags *CLIFlags, provider telegram.Interface, logger *log.Logger) *App {
	if logger == nil {
		logger = log.Default()
	}
	return &App{
		cfg:      cfg,
		ui:       uiClient,
		flags:    flags,
		provider: provider,
		logger:   logger,
	}
}

// Run exécute le flux principal : persistance, session, catalogue, watchers,
// serveur UI puis boucle de commandes jusqu'à annulation du contexte.
func (a *App) Run(ctx context.Context) error {
	// Récupération du canal : priorité flag > config > clipboard/prompt
	channel := a.flags.Channel
	if channel == "" {
		channel = a.cfg.Telegram.Channel
	}
	if channel == "" {
		ref, err := a.ui.GetChannelRef(ctx)
		if err != nil {
			return fmt.Errorf("get channel: %w", err)
		}
		channel = ref
	}
	channel = telegram.NormalizeChannelRef(channel)
	if channel == "" {
		return fmt.Errorf("référence de canal invalide")
	}

	// Persistance des marques selon le backend configuré
	kv, closeKV, err := a.openMarksBackend(ctx)
	if err != nil {
		return fmt.Errorf("backend de marques: %w", err)
	}
	if closeKV != nil {
		defer closeKV()
	}

	stt := assemblyai.NewClient(a.cfg.AssemblyAI.APIKey, a.cfg.AssemblyAI.BaseURL, 0)
	a.session = player.NewSession(marks.NewStore(kv), stt, player.Options{
		PollInterval:    a.cfg.PollInterval(),
		MaxPollAttempts: a.cfg.Transcription.MaxPollAttempts,
		Language:        a.cfg.DefaultLanguage(),
	})
	defer a.session.Close()

	// Catalogue : canal réel, sinon jeu d'épisodes de repli
	if err := a.loadCatalog(ctx, channel); err != nil {
		a.ui.PrintError(ctx, fmt.Sprintf("⚠️  Canal injoignable (%v), catalogue de repli chargé.", err))
	}
	a.ui.PrintInfo(ctx, a.info.Pretty())
	a.ui.PrintInfo(ctx, FormatEpisodeList(a.episodes))

	// sélection initiale : le premier épisode du catalogue
	if len(a.episodes) > 0 {
		a.selectAndTranscribe(ctx, a.episodes[0])
	}

	// Dépôt de fichiers de transcription
	watcher, err := uploads.NewWatcher(a.cfg.TranscriptDropDir, a.session.LoadTranscriptFile, a.logger)
	if err != nil {
		return fmt.Errorf("dépôt de transcriptions: %w", err)
	}
	go func() {
		if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Printf("watcher de dépôt arrêté: %v", err)
		}
	}()

	// Serveur WebSocket pour l'interface
	listenAddr := a.flags.ListenAddr
	if listenAddr == "" {
		listenAddr = a.cfg.UI.ListenAddr
	}
	srv, err := uiserver.New(uiserver.Options{
		Session:       a.session,
		SelectEpisode: a.SelectEpisodeByID,
		ListEpisodes:  func() []model.PodcastEpisode { return a.episodes },
		Logger:        a.logger,
	})
	if err != nil {
		return fmt.Errorf("serveur UI: %w", err)
	}
	go func() {
		if err := srv.Run(ctx, listenAddr); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Printf("serveur UI arrêté: %v", err)
		}
	}()

	// Boucle de commandes du terminal
	return a.commandLoop(ctx)
}

// openMarksBackend construit le magasin clé/valeur configuré.
func (a *App) openMarksBackend(ctx context.Context) (kvstore.Store, func(), error) {
	switch a.cfg.Marks.Backend {
	case config.MarksBackendPostgres:
		pg, err := kvstore.OpenPostgres(ctx, a.cfg.Marks.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return pg, func() { _ = pg.Close() }, nil
	default:
		fs, err := kvstore.NewFileStore(a.cfg.Marks.Dir)
		if err != nil {
			return nil, nil, err
		}
		return fs, nil, nil
	}
}

// loadCatalog récupère les épisodes du canal ; en cas d'échec le catalogue de
// repli est installé et l'erreur est retournée pour affichage.
func (a *App) loadCatalog(ctx context.Context, channel string) error {
	episodes, info, err := a.provider.GetEpisodes(ctx, channel)
	if err != nil {
		a.episodes = AssignSeasons(telegram.PlaceholderEpisodes(time.Now()))
		a.info = telegram.PlaceholderChannelInfo()
		return err
	}
	a.episodes = AssignSeasons(episodes)
	a.info = info
	return nil
}

// SelectEpisodeByID sélectionne un épisode du catalogue et lance la
// transcription en arrière-plan. Utilisé par le terminal et le serveur UI.
func (a *App) SelectEpisodeByID(ctx context.Context, episodeID string) error {
	for _, ep := range a.episodes {
		if ep.ID == episodeID {
			a.selectAndTranscribe(ctx, ep)
			return nil
		}
	}
	return fmt.Errorf("épisode inconnu: %q", episodeID)
}

func (a *App) selectAndTranscribe(ctx context.Context, ep model.PodcastEpisode) {
	a.session.SelectEpisode(ep)
	go func() {
		if err := a.session.RequestTranscription(ctx); err != nil &&
			!errors.Is(err, context.Canceled) {
			a.ui.PrintError(ctx, fmt.Sprintf("⚠️  %v", err))
		}
	}()
}
