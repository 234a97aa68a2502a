package fsutil

import (
	"regexp"
	"strings"
)

// limite de longueur de la chaine
const maxNameLen = 200

// invalidFileRunes définit les caractères interdits dans les noms de fichiers
// \x00-\x1F sont les caractères de contrôle
var invalidFileRunes = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1F]`)

// multiSpace détecte les séquences de plusieurs espaces pour les réduire à un seul.
var multiSpace = regexp.MustCompile(`\s+`)

// SanitizeFilename transforme une clé de magasin en nom de fichier valide.
// La casse est préservée : la clé est un identifiant, pas un titre.
// Étapes :
// - Remplace les caractères interdits par un espace
// - Supprime les espaces superflus et les points terminaux
// - Limite la longueur du nom
// - Fournit un nom par défaut si la chaîne est vide
func SanitizeFilename(name string) string {
	clean := invalidFileRunes.ReplaceAllString(name, " ")
	clean = strings.TrimSpace(clean)
	clean = multiSpace.ReplaceAllString(clean, " ")
	clean = strings.TrimRight(clean, ".")

	if clean == "" {
		return "untitled"
	}

	if len(clean) > maxNameLen {
		clean = clean[:maxNameLen]
	}

	return clean
}
