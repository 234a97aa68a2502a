// Package player implémente le cœur du lecteur : la synchronisation entre la
// position de lecture, les segments de transcription et les marques.
//
// Le modèle d'exécution est coopératif et mono-utilisateur : toutes les
// opérations prennent le même verrou, aucune ne le garde au travers d'un
// point de suspension (les I/O réseau se font hors verrou et leurs résultats
// sont réappliqués sous verrou avec une garde d'époque, voir transcription.go).
package player

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickprogramme/podscribe/internal/assemblyai"
	"github.com/patrickprogramme/podscribe/internal/marks"
	"github.com/patrickprogramme/podscribe/pkg/model"
)

// State : position dans le cycle de vie du lecteur.
type State string

const (
	StateIdle    State = "idle"    // aucun épisode sélectionné
	StateLoading State = "loading" // épisode sélectionné, transcription en cours
	StateReady   State = "ready"   // transcript disponible (réel ou de repli)
)

// Erreurs de validation, rejetées à la frontière sans mutation partielle.
var (
	ErrNoEpisode  = errors.New("aucun épisode sélectionné")
	ErrEmptyTitle = errors.New("titre de marque vide")
	ErrEmptyText  = errors.New("texte de segment vide")
)

const (
	defaultPollInterval    = 10 * time.Second
	defaultMaxPollAttempts = 90 // ~15 minutes au rythme par défaut
)

// Options de construction d'une Session.
type Options struct {
	PollInterval    time.Duration  // délai entre deux vérifications de statut (défaut 10s)
	MaxPollAttempts int            // borne du polling sur un job bloqué (défaut 90)
	Language        model.Language // langue active initiale (défaut model.DefaultLanguage)

	// seams injectables pour les tests
	Now   func() time.Time
	NewID func() string
}

// Session : état du lecteur pour l'épisode courant + opérations exposées à
// l'UI. Toutes les méthodes sont sûres pour un usage concurrent.
type Session struct {
	mu sync.Mutex

	markStore *marks.Store
	stt       assemblyai.Interface

	pollInterval    time.Duration
	maxPollAttempts int
	now             func() time.Time
	newID           func() string

	state    State
	episode  *model.PodcastEpisode
	language model.Language

	transcript map[model.Language][]model.TranscriptSegment
	marks      []model.PodcastMark

	currentTime     float64
	duration        float64
	activeSegmentID string

	// epoch est incrémenté à chaque sélection d'épisode ; tout résultat
	// asynchrone étiqueté d'une époque antérieure est jeté (réponse lente
	// d'un épisode précédemment sélectionné).
	epoch      int
	cancelPoll context.CancelFunc
	pollEpoch  int // époque couverte par la requête de transcription en vol

	subscribers map[int]chan Snapshot
	nextSubID   int
}

// NewSession construit une Session au-dessus du Mark Store et du service de
// transcription.
func NewSession(store *marks.Store, stt assemblyai.Interface, opts Options) *Session {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.MaxPollAttempts <= 0 {
		opts.MaxPollAttempts = defaultMaxPollAttempts
	}
	if opts.Language == "" {
		opts.Language = model.DefaultLanguage
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Session{
		markStore:       store,
		stt:             stt,
		pollInterval:    opts.PollInterval,
		maxPollAttempts: opts.MaxPollAttempts,
		now:             opts.Now,
		newID:           opts.NewID,
		state:           StateIdle,
		language:        opts.Language,
		transcript:      make(map[model.Language][]model.TranscriptSegment),
		subscribers:     make(map[int]chan Snapshot),
	}
}

// SelectEpisode remet l'état dépendant à zéro AVANT tout travail asynchrone
// pour le nouvel épisode : temps courant à 0, segment actif effacé,
// transcript vidé, marques persistées rechargées, durée prise des
// métadonnées (corrigée plus tard par SetDuration). Tout polling en cours
// pour l'épisode précédent est annulé.
func (s *Session) SelectEpisode(ep model.PodcastEpisode) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.epoch++
	if s.cancelPoll != nil {
		s.cancelPoll()
		s.cancelPoll = nil
	}

	epCopy := ep
	s.episode = &epCopy
	s.state = StateLoading
	s.currentTime = 0
	s.duration = ep.Duration
	s.activeSegmentID = ""
	s.transcript = make(map[model.Language][]model.TranscriptSegment)

	loaded := s.markStore.List(ep.ID)
	sortMarks(loaded)
	s.marks = loaded

	s.notifyLocked()
}

// Close annule tout travail asynchrone en cours (démontage de la vue).
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	if s.cancelPoll != nil {
		s.cancelPoll()
		s.cancelPoll = nil
	}
	s.state = StateIdle
	s.episode = nil
}

// UpdateTime : tick de lecture. Met à jour le temps courant et résout le
// segment actif : premier segment de la langue active dont [Start, End]
// contient t (bornes incluses ; sur une frontière partagée, le segment qui
// commence le plus tôt gagne). Si aucun segment ne contient t, le segment
// actif précédent est conservé plutôt que d'être effacé.
func (s *Session) UpdateTime(t float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.currentTime = t
	for _, seg := range s.transcript[s.language] {
		if seg.Contains(t) {
			s.activeSegmentID = seg.ID
			break
		}
	}
	s.notifyLocked()
}

// SeekTo borne la cible à [0, duration] et déplace le temps courant.
// Le segment actif n'est PAS recalculé ici : il le sera au prochain tick.
func (s *Session) SeekTo(t float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.currentTime = math.Max(0, math.Min(t, s.duration))
	s.notifyLocked()
}

// Skip avance ou recule de delta secondes (bornes de SeekTo).
func (s *Session) Skip(delta float64) {
	s.mu.Lock()
	target := s.currentTime + delta
	s.mu.Unlock()
	s.SeekTo(target)
}

// SeekToSegment positionne la lecture au début d'un segment.
func (s *Session) SeekToSegment(seg model.TranscriptSegment) {
	s.SeekTo(seg.Start)
}

// SeekToMark positionne la lecture sur une marque.
func (s *Session) SeekToMark(m model.PodcastMark) {
	s.SeekTo(m.Time)
}

// SetDuration corrige la durée une fois la vraie durée du média connue.
func (s *Session) SetDuration(d float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d > 0 {
		s.duration = d
	}
	s.notifyLocked()
}

// SetLanguage bascule la langue active ; le segment actif est recalculé au
// prochain tick.
func (s *Session) SetLanguage(lang model.Language) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.language = lang
	s.activeSegmentID = ""
	s.notifyLocked()
}

// EditSegmentText remplace le texte d'un segment (toutes langues
// confondues). Texte vide après trim -> ErrEmptyText, id inconnu -> ErrNotFound.
func (s *Session) EditSegmentText(segmentID, text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ErrEmptyText
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for lang, segs := range s.transcript {
		for i := range segs {
			if segs[i].ID == segmentID {
				segs[i].Text = trimmed
				s.transcript[lang] = segs
				s.cacheTranscriptLocked(lang)
				s.notifyLocked()
				return nil
			}
		}
	}
	return marks.ErrNotFound
}

// Snapshot : vue immuable de l'état courant, le contrat exposé à l'UI.
type Snapshot struct {
	State           State                     `json:"state"`
	EpisodeID       string                    `json:"episodeId,omitempty"`
	EpisodeTitle    string                    `json:"episodeTitle,omitempty"`
	Language        model.Language            `json:"language"`
	Languages       []model.Language          `json:"languages,omitempty"`
	Segments        []model.TranscriptSegment `json:"segments,omitempty"`
	Marks           []model.PodcastMark       `json:"marks,omitempty"`
	ActiveSegmentID string                    `json:"activeSegmentId,omitempty"`
	CurrentTime     float64                   `json:"currentTime"`
	Duration        float64                   `json:"duration"`
}

// Snapshot retourne une copie de l'état courant.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:           s.state,
		Language:        s.language,
		ActiveSegmentID: s.activeSegmentID,
		CurrentTime:     s.currentTime,
		Duration:        s.duration,
	}
	if s.episode != nil {
		snap.EpisodeID = s.episode.ID
		snap.EpisodeTitle = s.episode.Title
	}
	for _, lang := range model.SupportedLanguages {
		if len(s.transcript[lang]) > 0 {
			snap.Languages = append(snap.Languages, lang)
		}
	}
	snap.Segments = append([]model.TranscriptSegment(nil), s.transcript[s.language]...)
	snap.Marks = append([]model.PodcastMark(nil), s.marks...)
	return snap
}

// Subscribe enregistre un abonné qui recevra un Snapshot après chaque
// mutation. Le canal est bufferisé et les envois ne bloquent jamais : un
// abonné lent rate des instantanés intermédiaires, pas le dernier état.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	ch := make(chan Snapshot, 8)
	s.subscribers[id] = ch

	unsubscribe := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(c)
		}
	}
	return ch, unsubscribe
}

func (s *Session) notifyLocked() {
	if len(s.subscribers) == 0 {
		return
	}
	snap := s.snapshotLocked()
	for _, ch := range s.subscribers {
		select {
		case ch <- snap:
		default: // abonné lent : on jette, le prochain notify rattrapera
		}
	}
}

// cacheTranscriptLocked rattache la partition courante à l'épisode (cache
// par langue du modèle, recréé à chaque chargement).
func (s *Session) cacheTranscriptLocked(lang model.Language) {
	if s.episode == nil {
		return
	}
	if s.episode.Transcripts == nil {
		s.episode.Transcripts = make(map[model.Language][]model.TranscriptSegment)
	}
	s.episode.Transcripts[lang] = s.transcript[lang]
}

func sortMarks(ms []model.PodcastMark) {
	sort.SliceStable(ms, func(i, j int) bool { return ms[i].Time < ms[j].Time })
}
