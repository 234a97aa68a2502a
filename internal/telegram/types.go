package telegram

// types.go : payloads bruts de la Bot API. Chaque champ correspond à un
// élément présent dans le JSON de api.telegram.org ; les champs non mappés
// sont ignorés volontairement.

// apiEnvelope : enveloppe générique { ok, result, description }.
type apiEnvelope[T any] struct {
	OK          bool   `json:"ok"`
	Result      T      `json:"result"`
	Description string `json:"description,omitempty"`
}

// rawChat : réponse de getChat pour un canal.
type rawChat struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Username    string `json:"username"`
	Description string `json:"description"`
	Photo       *struct {
		BigFileID string `json:"big_file_id"`
	} `json:"photo,omitempty"`
}

// rawAudio : pièce audio d'un message de canal.
type rawAudio struct {
	FileID    string `json:"file_id"`
	Duration  int64  `json:"duration"` // secondes
	Title     string `json:"title"`
	Performer string `json:"performer"`
	FileName  string `json:"file_name"`
}

// rawMessage : message tel que retourné par getUpdates (channel_post).
type rawMessage struct {
	MessageID int64     `json:"message_id"`
	Date      int64     `json:"date"` // Unix epoch
	Caption   string    `json:"caption"`
	Audio     *rawAudio `json:"audio,omitempty"`
	Chat      rawChat   `json:"chat"`
}

// rawUpdate : élément du tableau result de getUpdates.
type rawUpdate struct {
	UpdateID    int64       `json:"update_id"`
	ChannelPost *rawMessage `json:"channel_post,omitempty"`
}
