package model

import (
	"fmt"
	"time"
)

// PodcastEpisode regroupe les métadonnées d'un épisode récupéré depuis le canal.
// Les transcripts sont un cache en mémoire par langue, recréé à chaque
// (re)chargement de l'épisode ; seules les marques sont persistées.
type PodcastEpisode struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	AudioURL  string    `json:"audioUrl"`
	Duration  float64   `json:"duration"` // secondes
	Date      time.Time `json:"date,omitempty"`
	Season    int       `json:"season,omitempty"`
	Performer string    `json:"performer,omitempty"`

	Transcripts map[Language][]TranscriptSegment `json:"-"`
}

func (e PodcastEpisode) String() string {
	return fmt.Sprintf("PodcastEpisode[ID=%s, Title=%q, Duration=%s]",
		e.ID, e.Title, FormatSeconds(e.Duration))
}

// Pretty retourne une fiche multi-lignes simple pour l'affichage terminal.
func (e PodcastEpisode) Pretty() string {
	dateStr := "<unknown>"
	if !e.Date.IsZero() {
		dateStr = e.Date.Format("2006-01-02")
	}

	return fmt.Sprintf(
		"Episode:\n"+
			"  ID        : %s\n"+
			"  Title     : %q\n"+
			"  Performer : %s\n"+
			"  Date      : %s\n"+
			"  Duration  : %s\n"+
			"  Season    : %d\n",
		e.ID,
		e.Title,
		e.Performer,
		dateStr,
		FormatSeconds(e.Duration),
		e.Season,
	)
}

// ChannelInfo : informations sur le canal source des épisodes.
type ChannelInfo struct {
	Title       string `json:"title"`
	Username    string `json:"username"`
	Description string `json:"description"`
	PhotoURL    string `json:"photoUrl,omitempty"`
}

// Pretty retourne un résumé lisible du canal.
func (c ChannelInfo) Pretty() string {
	out := fmt.Sprintf("%s (@%s)", c.Title, c.Username)
	if c.Description != "" {
		out += "\n" + c.Description
	}
	return out
}
