package telegram

import (
	"fmt"
	"time"

	"github.com/patrickprogramme/podscribe/pkg/model"
)

// Jeu d'épisodes de repli quand le canal est inaccessible : déterministe pour
// que l'interface reste utilisable (et testable) sans réseau ni credentials.

var placeholderTitles = []string{
	"Медитация для глубокого расслабления",
	"Медитация осознанности",
	"Медитация для сна",
	"Утренняя медитация",
	"Медитация для снятия стресса",
	"Медитация благодарности",
	"Медитация для концентрации",
	"Медитация для начинающих",
	"Медитация для гармонии",
	"Медитация для позитивного мышления",
}

var placeholderAudioURLs = []string{
	"https://commondatastorage.googleapis.com/codeskulptor-demos/DDR_assets/Kangaroo_MusiQue_-_The_Neverwritten_Role_Playing_Game.mp3",
	"https://commondatastorage.googleapis.com/codeskulptor-assets/Epoq-Lepidoptera.ogg",
	"https://commondatastorage.googleapis.com/codeskulptor-assets/Evillaugh.ogg",
}

// PlaceholderEpisodes retourne 10 épisodes factices, un par jour en remontant
// depuis now, durées croissantes de 30s en 30s à partir de 3 minutes.
func PlaceholderEpisodes(now time.Time) []model.PodcastEpisode {
	episodes := make([]model.PodcastEpisode, 0, len(placeholderTitles))
	for i, title := range placeholderTitles {
		episodes = append(episodes, model.PodcastEpisode{
			ID:        fmt.Sprintf("dos-mundos-%d", i+1),
			Title:     title,
			AudioURL:  placeholderAudioURLs[i%len(placeholderAudioURLs)],
			Duration:  float64(180 + i*30),
			Date:      now.Add(-time.Duration(i) * 24 * time.Hour),
			Performer: "Dos Mundos Медитации",
		})
	}
	return episodes
}

// PlaceholderChannelInfo : fiche du canal de repli.
func PlaceholderChannelInfo() model.ChannelInfo {
	return model.ChannelInfo{
		Title:       "Dos Mundos Медитации",
		Username:    "meditationdosmundos",
		Description: "Канал с медитациями для гармонии и расслабления",
	}
}
