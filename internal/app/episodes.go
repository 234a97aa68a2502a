package app

import (
	"fmt"
	"sort"
	"strings"

	"github.com/patrickprogramme/podscribe/pkg/model"
)

// episodesPerSeason : taille d'une saison dans le regroupement du catalogue.
const episodesPerSeason = 10

// AssignSeasons numérote les saisons : les épisodes sont pris du plus ancien
// au plus récent et regroupés par paquets de dix. Le numéro est écrit dans
// Season ; l'ordre du slice retourné reste celui de l'entrée.
func AssignSeasons(episodes []model.PodcastEpisode) []model.PodcastEpisode {
	chrono := append([]model.PodcastEpisode(nil), episodes...)
	sort.SliceStable(chrono, func(i, j int) bool { return chrono[i].Date.Before(chrono[j].Date) })

	seasonByID := make(map[string]int, len(chrono))
	for i, ep := range chrono {
		seasonByID[ep.ID] = i/episodesPerSeason + 1
	}

	out := append([]model.PodcastEpisode(nil), episodes...)
	for i := range out {
		out[i].Season = seasonByID[out[i].ID]
	}
	return out
}

// SearchEpisodes filtre le catalogue par sous-chaîne du titre, insensible à la
// casse. Une requête vide retourne tout le catalogue.
func SearchEpisodes(episodes []model.PodcastEpisode, query string) []model.PodcastEpisode {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return episodes
	}
	var out []model.PodcastEpisode
	for _, ep := range episodes {
		if strings.Contains(strings.ToLower(ep.Title), query) {
			out = append(out, ep)
		}
	}
	return out
}

// FormatEpisodeList rend le catalogue pour le terminal, groupé par saison.
func FormatEpisodeList(episodes []model.PodcastEpisode) string {
	if len(episodes) == 0 {
		return "Aucun épisode."
	}

	var b strings.Builder
	lastSeason := -1
	for i, ep := range episodes {
		if ep.Season != lastSeason {
			if lastSeason != -1 {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "Saison %d\n", ep.Season)
			lastSeason = ep.Season
		}
		fmt.Fprintf(&b, "  %2d. %s  [%s]\n", i+1, ep.Title, model.FormatSeconds(ep.Duration))
	}
	return strings.TrimRight(b.String(), "\n")
}
