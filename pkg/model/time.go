package model

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
)

// ErrInvalidTime : chaîne de temps mal formée ou minutes/secondes >= 60.
var ErrInvalidTime = errors.New("format de temps invalide (attendu MM:SS ou HH:MM:SS)")

var (
	mmssRe   = regexp.MustCompile(`^(\d{1,2}):(\d{1,2})$`)
	hhmmssRe = regexp.MustCompile(`^(\d{1,2}):(\d{1,2}):(\d{1,2})$`)
)

// FormatSeconds rend "MM:SS", ou "HH:MM:SS" dès qu'il y a des heures.
// Les fractions de seconde sont tronquées (floor, pas d'arrondi).
// NaN ou valeur négative -> "00:00".
func FormatSeconds(seconds float64) string {
	if math.IsNaN(seconds) || seconds < 0 {
		return "00:00"
	}

	total := int64(math.Floor(seconds))
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// ParseTimeString accepte exactement "MM:SS" ou "HH:MM:SS" (groupes de 1 à 2
// chiffres) et retourne le nombre de secondes. ErrInvalidTime si la chaîne ne
// correspond à aucun des deux motifs, ou si minutes/secondes >= 60.
// Propriété : ParseTimeString(FormatSeconds(x)) == floor(x) pour tout x >= 0
// inférieur à 24h.
func ParseTimeString(s string) (float64, error) {
	var h, m, sec int

	if groups := hhmmssRe.FindStringSubmatch(s); groups != nil {
		h, _ = strconv.Atoi(groups[1])
		m, _ = strconv.Atoi(groups[2])
		sec, _ = strconv.Atoi(groups[3])
	} else if groups := mmssRe.FindStringSubmatch(s); groups != nil {
		m, _ = strconv.Atoi(groups[1])
		sec, _ = strconv.Atoi(groups[2])
	} else {
		return 0, ErrInvalidTime
	}

	if m >= 60 || sec >= 60 {
		return 0, ErrInvalidTime
	}

	return float64(h*3600 + m*60 + sec), nil
}
