package assemblyai

import (
	"github.com/patrickprogramme/podscribe/pkg/model"
)

// Status : état d'un job de transcription côté provider.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// IsTerminal : true quand le job ne bougera plus (completed ou error).
// Tant que c'est false, l'appelant doit re-vérifier plus tard.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Transcription : vue normalisée d'un job, côté lecteur.
// Segments/Chapters ne sont renseignés que pour StatusCompleted.
type Transcription struct {
	ID            string
	Status        Status
	Segments      []model.TranscriptSegment
	Chapters      []model.Chapter
	Text          string
	AudioDuration float64 // secondes
	Error         string  // message du provider pour StatusError
}

// payloads bruts de l'API v2

type submitRequest struct {
	AudioURL      string `json:"audio_url"`
	SpeakerLabels bool   `json:"speaker_labels"`
	AutoChapters  bool   `json:"auto_chapters"`
}

type rawWord struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"` // millisecondes
	End   float64 `json:"end"`
}

type rawUtterance struct {
	Text    string  `json:"text"`
	Start   float64 `json:"start"` // millisecondes
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}

type rawChapter struct {
	Headline string  `json:"headline"`
	Summary  string  `json:"summary"`
	Start    float64 `json:"start"` // millisecondes
	End      float64 `json:"end"`
}

type rawTranscript struct {
	ID            string         `json:"id"`
	Status        Status         `json:"status"`
	Text          string         `json:"text"`
	Error         string         `json:"error"`
	AudioDuration float64        `json:"audio_duration"`
	Words         []rawWord      `json:"words"`
	Utterances    []rawUtterance `json:"utterances"`
	Chapters      []rawChapter   `json:"chapters"`
}
