package telegram

import (
	"regexp"
	"strings"
)

var channelRefRe = regexp.MustCompile(`(?i)^(?:https?://)?t\.me/([a-z0-9_]{5,32})/?$|^@([a-z0-9_]{5,32})$|^(-?\d+)$`)

// IsChannelRef indique si s ressemble à une référence de canal : lien t.me,
// @username ou chat_id numérique. Un simple mot n'est PAS accepté pour éviter
// d'avaler n'importe quel contenu du presse-papier.
func IsChannelRef(s string) bool {
	return channelRefRe.MatchString(strings.TrimSpace(s))
}

// NormalizeChannelRef extrait l'identifiant exploitable (username sans @ ni
// lien, ou chat_id numérique). Chaîne vide si s n'est pas une référence.
func NormalizeChannelRef(s string) string {
	groups := channelRefRe.FindStringSubmatch(strings.TrimSpace(s))
	if groups == nil {
		return ""
	}
	for _, g := range groups[1:] {
		if g != "" {
			return g
		}
	}
	return ""
}
