package transcript

import (
	"regexp"

	"github.com/patrickprogramme/podscribe/pkg/model"
)

// Détection de langue par classes de caractères : présence de cyrillique ->
// russe, présence de caractères/ponctuation propres à l'espagnol -> espagnol.
// Heuristique volontairement simple, suffisante pour partitionner les
// transcriptions du canal (russe ou espagnol uniquement).
var (
	cyrillicRe = regexp.MustCompile(`[а-яА-ЯёЁ]`)
	spanishRe  = regexp.MustCompile(`(?i)[áéíóúüñ¿¡]`)
)

// DetectLanguage infère la langue d'un extrait de texte.
// Retourne model.DefaultLanguage si aucun motif ne correspond.
func DetectLanguage(text string) model.Language {
	if cyrillicRe.MatchString(text) {
		return model.LangRU
	}
	if spanishRe.MatchString(text) {
		return model.LangES
	}
	return model.DefaultLanguage
}
