package telegram

import (
	"context"

	"github.com/patrickprogramme/podscribe/pkg/model"
)

// Interface est l'abstraction utilisée par l'application. Elle facilite le
// test en autorisant une implémentation factice dans les tests.
type Interface interface {
	// GetEpisodes retourne les épisodes audio d'un canal + les infos du canal.
	GetEpisodes(ctx context.Context, channelID string) ([]model.PodcastEpisode, model.ChannelInfo, error)
}
