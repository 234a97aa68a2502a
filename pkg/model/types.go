package model

import (
	"fmt"
	"strings"
	"time"
)

// Language identifie une des langues supportées par le lecteur.
type Language string

const (
	LangRU Language = "ru"
	LangES Language = "es"
)

// DefaultLanguage : langue de repli quand la détection échoue.
const DefaultLanguage = LangRU

// SupportedLanguages : liste ordonnée des langues reconnues dans les
// payloads de transcription (l'ordre détermine l'ordre d'examen des clés).
var SupportedLanguages = []Language{LangRU, LangES}

// ParseLanguage convertit une chaîne en Language, erreur si langue inconnue.
func ParseLanguage(s string) (Language, error) {
	switch Language(strings.ToLower(strings.TrimSpace(s))) {
	case LangRU:
		return LangRU, nil
	case LangES:
		return LangES, nil
	default:
		return "", fmt.Errorf("langue non supportée: %q", s)
	}
}

// TranscriptSegment représente une portion datée de texte parlé.
// Start et End sont en secondes (Start < End). L'ID est unique au sein
// d'un couple (épisode, langue) et stable entre les éditions du texte.
type TranscriptSegment struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Start    float64  `json:"start"`
	End      float64  `json:"end"`
	Language Language `json:"language,omitempty"`
	Speaker  string   `json:"speaker,omitempty"`
}

// Contains indique si t (en secondes) tombe dans [Start, End], bornes incluses.
func (s TranscriptSegment) Contains(t float64) bool {
	return t >= s.Start && t <= s.End
}

// TranscriptFile : résultat du parsing d'un payload de transcription pour
// UNE langue, segments ordonnés par Start croissant.
type TranscriptFile struct {
	Language Language            `json:"language"`
	Segments []TranscriptSegment `json:"segments"`
}

// ChapterMarkPrefix : préfixe d'ID réservé aux marques dérivées des chapitres
// du service de transcription. Les marques utilisateur n'utilisent jamais ce
// préfixe, ce qui permet de remplacer les unes sans toucher aux autres.
const ChapterMarkPrefix = "chapter-"

// PodcastMark : signet horodaté créé par l'utilisateur ou dérivé d'un chapitre.
// Time est en secondes ; deux marques peuvent partager le même Time.
type PodcastMark struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Time      float64   `json:"time"`
	EpisodeID string    `json:"episodeId"`
	CreatedAt time.Time `json:"createdAt"`
}

// IsChapterMark : true si la marque provient des chapitres du provider.
func (m PodcastMark) IsChapterMark() bool {
	return strings.HasPrefix(m.ID, ChapterMarkPrefix)
}

// Chapter : chapitre fourni par le service de transcription, Start/End en secondes.
type Chapter struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Summary string  `json:"summary,omitempty"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
}
