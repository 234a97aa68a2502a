package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"time"

	"github.com/patrickprogramme/podscribe/internal/fetch"
	"github.com/patrickprogramme/podscribe/pkg/model"
)

// ErrNoToken : token du bot absent de la configuration. Erreur de
// configuration, pas une panne transitoire : l'appelant l'affiche une fois
// et ne réessaie pas.
var ErrNoToken = errors.New("token du bot Telegram non configuré")

// DefaultBaseURL : racine de la Bot API ; surchargée dans les tests.
const DefaultBaseURL = "https://api.telegram.org"

// isNumericID distingue un chat_id numérique d'un username de canal.
var isNumericID = regexp.MustCompile(`^-?\d+$`)

// Client interroge la Bot API pour lister les épisodes audio d'un canal.
type Client struct {
	token   string
	baseURL string
	timeout time.Duration
}

// NewClient construit un Client. baseURL vide -> DefaultBaseURL,
// timeout <= 0 -> fetch.DefaultTimeout.
func NewClient(token, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = fetch.DefaultTimeout
	}
	return &Client{token: token, baseURL: baseURL, timeout: timeout}
}

// method compose l'URL d'une méthode Bot API avec ses paramètres.
func (c *Client) method(name string, params url.Values) string {
	u := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, name)
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

// chatParam : pour un canal public on passe "@username", pour un ID numérique
// la valeur telle quelle.
func chatParam(channelID string) string {
	if isNumericID.MatchString(channelID) {
		return channelID
	}
	return "@" + channelID
}

// GetEpisodes récupère les infos du canal (getChat) puis les messages audio
// visibles (getUpdates, channel_post). Les épisodes sont retournés du plus
// récent au plus ancien, comme le flux du canal.
func (c *Client) GetEpisodes(ctx context.Context, channelID string) ([]model.PodcastEpisode, model.ChannelInfo, error) {
	var info model.ChannelInfo

	if c.token == "" {
		return nil, info, ErrNoToken
	}
	if channelID == "" {
		return nil, info, fmt.Errorf("telegram: identifiant de canal vide")
	}

	// 1) infos du canal
	params := url.Values{"chat_id": {chatParam(channelID)}}
	var chatResp apiEnvelope[rawChat]
	if err := fetch.FetchJSONInto(ctx, c.method("getChat", params), c.timeout, 0, &chatResp); err != nil {
		return nil, info, fmt.Errorf("telegram: getChat: %w", err)
	}
	if !chatResp.OK {
		return nil, info, fmt.Errorf("telegram: getChat: %s", chatResp.Description)
	}

	info = model.ChannelInfo{
		Title:       chatResp.Result.Title,
		Username:    chatResp.Result.Username,
		Description: chatResp.Result.Description,
	}
	if chatResp.Result.Photo != nil {
		info.PhotoURL = c.fileURL(chatResp.Result.Photo.BigFileID)
	}

	// 2) messages audio du canal
	var updResp apiEnvelope[[]rawUpdate]
	if err := fetch.FetchJSONInto(ctx, c.method("getUpdates", url.Values{"allowed_updates": {`["channel_post"]`}}), c.timeout, 0, &updResp); err != nil {
		return nil, info, fmt.Errorf("telegram: getUpdates: %w", err)
	}
	if !updResp.OK {
		return nil, info, fmt.Errorf("telegram: getUpdates: %s", updResp.Description)
	}

	episodes := c.episodesFromUpdates(updResp.Result, chatResp.Result)
	if len(episodes) == 0 {
		return nil, info, fmt.Errorf("telegram: aucun message audio dans le canal %s", channelID)
	}
	return episodes, info, nil
}

// episodesFromUpdates filtre les channel_post du bon canal portant une pièce
// audio et les convertit en épisodes, du plus récent au plus ancien.
func (c *Client) episodesFromUpdates(updates []rawUpdate, chat rawChat) []model.PodcastEpisode {
	var episodes []model.PodcastEpisode
	for _, u := range updates {
		msg := u.ChannelPost
		if msg == nil || msg.Audio == nil {
			continue
		}
		if msg.Chat.ID != chat.ID {
			continue
		}

		title := msg.Audio.Title
		if title == "" {
			title = msg.Caption
		}
		if title == "" {
			title = msg.Audio.FileName
		}

		performer := msg.Audio.Performer
		if performer == "" {
			performer = chat.Title
		}

		episodes = append(episodes, model.PodcastEpisode{
			ID:        fmt.Sprintf("msg-%d", msg.MessageID),
			Title:     title,
			AudioURL:  c.fileURL(msg.Audio.FileID),
			Duration:  float64(msg.Audio.Duration),
			Date:      time.Unix(msg.Date, 0).UTC(),
			Performer: performer,
		})
	}

	sort.SliceStable(episodes, func(i, j int) bool {
		return episodes[i].Date.After(episodes[j].Date)
	})
	return episodes
}

// fileURL construit l'URL de téléchargement d'un fichier à partir de son id.
// La résolution getFile -> file_path se fait côté lecture ; ici on expose
// l'endpoint stable de proxy.
func (c *Client) fileURL(fileID string) string {
	if fileID == "" {
		return ""
	}
	return fmt.Sprintf("%s/file/bot%s/%s", c.baseURL, c.token, fileID)
}
