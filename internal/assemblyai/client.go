// Package assemblyai est le client du service de transcription : soumission
// d'une URL audio puis interrogation du statut jusqu'à un état terminal.
// Le polling lui-même (délais, annulation) est la responsabilité du lecteur.
package assemblyai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/patrickprogramme/podscribe/internal/fetch"
	"github.com/patrickprogramme/podscribe/pkg/model"
)

// ErrNoAPIKey : clé API absente de la configuration. Erreur de configuration,
// affichée une fois, pas de retry.
var ErrNoAPIKey = errors.New("clé API AssemblyAI non configurée")

// DefaultBaseURL : racine de l'API ; surchargée dans les tests.
const DefaultBaseURL = "https://api.assemblyai.com"

// wordsPerSegment : taille de regroupement quand le provider ne fournit pas
// d'utterances (fallback mot-à-mot).
const wordsPerSegment = 12

// Interface est l'abstraction consommée par le lecteur ; une implémentation
// factice suffit pour les tests du Synchronizer.
type Interface interface {
	Submit(ctx context.Context, audioURL string) (Transcription, error)
	GetStatus(ctx context.Context, transcriptID string) (Transcription, error)
}

// Client : implémentation HTTP de Interface.
type Client struct {
	apiKey  string
	baseURL string
	timeout time.Duration
}

// NewClient construit un Client. baseURL vide -> DefaultBaseURL,
// timeout <= 0 -> fetch.DefaultTimeout.
func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = fetch.DefaultTimeout
	}
	return &Client{apiKey: apiKey, baseURL: baseURL, timeout: timeout}
}

func (c *Client) headers() map[string]string {
	return map[string]string{"Authorization": c.apiKey}
}

// Submit envoie l'URL audio à transcrire (avec speaker labels et chapitres
// automatiques) et retourne l'id + le statut initial du job.
func (c *Client) Submit(ctx context.Context, audioURL string) (Transcription, error) {
	if c.apiKey == "" {
		return Transcription{}, ErrNoAPIKey
	}
	if audioURL == "" {
		return Transcription{}, fmt.Errorf("assemblyai: URL audio vide")
	}

	body := submitRequest{
		AudioURL:      audioURL,
		SpeakerLabels: true,
		AutoChapters:  true,
	}
	var raw rawTranscript
	if err := fetch.PostJSONInto(ctx, c.baseURL+"/v2/transcript", c.headers(), body, c.timeout, 0, &raw); err != nil {
		return Transcription{}, fmt.Errorf("assemblyai: submit: %w", err)
	}
	if raw.ID == "" {
		return Transcription{}, fmt.Errorf("assemblyai: submit: réponse sans id (status=%s)", raw.Status)
	}

	return normalize(raw), nil
}

// GetStatus interroge le job. Les segments/chapitres ne sont présents que
// lorsque le statut est terminal completed.
func (c *Client) GetStatus(ctx context.Context, transcriptID string) (Transcription, error) {
	if c.apiKey == "" {
		return Transcription{}, ErrNoAPIKey
	}
	if transcriptID == "" {
		return Transcription{}, fmt.Errorf("assemblyai: id de transcription vide")
	}

	var raw rawTranscript
	if err := fetch.GetJSONInto(ctx, c.baseURL+"/v2/transcript/"+transcriptID, c.headers(), c.timeout, 0, &raw); err != nil {
		return Transcription{}, fmt.Errorf("assemblyai: status %s: %w", transcriptID, err)
	}

	return normalize(raw), nil
}

// normalize convertit le payload brut en vue canonique : utterances en
// priorité, sinon regroupement des mots par wordsPerSegment ; millisecondes
// vers secondes partout.
func normalize(raw rawTranscript) Transcription {
	tr := Transcription{
		ID:            raw.ID,
		Status:        raw.Status,
		Text:          raw.Text,
		Error:         raw.Error,
		AudioDuration: raw.AudioDuration / 1000,
	}
	if raw.Status != StatusCompleted {
		return tr
	}

	for i, u := range raw.Utterances {
		tr.Segments = append(tr.Segments, model.TranscriptSegment{
			ID:      fmt.Sprintf("segment-%d", i),
			Text:    u.Text,
			Start:   u.Start / 1000,
			End:     u.End / 1000,
			Speaker: u.Speaker,
		})
	}

	// pas d'utterances : on regroupe les mots en segments de taille fixe
	if len(tr.Segments) == 0 && len(raw.Words) > 0 {
		for i := 0; i < len(raw.Words); i += wordsPerSegment {
			end := i + wordsPerSegment
			if end > len(raw.Words) {
				end = len(raw.Words)
			}
			group := raw.Words[i:end]

			text := ""
			for j, w := range group {
				if j > 0 {
					text += " "
				}
				text += w.Text
			}
			tr.Segments = append(tr.Segments, model.TranscriptSegment{
				ID:      fmt.Sprintf("segment-%d", i/wordsPerSegment),
				Text:    text,
				Start:   group[0].Start / 1000,
				End:     group[len(group)-1].End / 1000,
				Speaker: "unknown",
			})
		}
	}

	for i, ch := range raw.Chapters {
		title := ch.Headline
		if title == "" {
			title = fmt.Sprintf("Глава %d", i+1)
		}
		tr.Chapters = append(tr.Chapters, model.Chapter{
			ID:      fmt.Sprintf("chapter-%d", i),
			Title:   title,
			Summary: ch.Summary,
			Start:   ch.Start / 1000,
			End:     ch.End / 1000,
		})
	}

	return tr
}
