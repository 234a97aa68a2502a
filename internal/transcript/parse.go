package transcript

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/patrickprogramme/podscribe/pkg/model"
)

// ErrUnsupportedFormat : aucune des formes reconnues n'a produit au moins
// une partition de langue non vide.
var ErrUnsupportedFormat = errors.New("format de transcription non supporté")

// seuil de pause entre deux mots au-delà duquel on coupe le segment
const wordGapThresholdMs = 1000

// Parse décode un blob JSON ([]byte) et le normalise en partitions par langue.
//
// Les deux formes décrites dans raw_types.go sont essayées dans l'ordre.
// Si aucune ne produit de partition non vide, retourne ErrUnsupportedFormat
// et AUCUN segment : l'appelant ne doit rien supposer de partiel.
func Parse(data []byte) (map[model.Language]model.TranscriptFile, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("transcript: entrée vide: %w", ErrUnsupportedFormat)
	}

	// forme (1) : clés de langue à la racine
	var root map[string]json.RawMessage
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("transcript: decode error: %w", err)
	}

	result := make(map[model.Language]model.TranscriptFile)
	for _, lang := range model.SupportedLanguages {
		raw, ok := root[string(lang)]
		if !ok {
			continue
		}
		var block rawLanguageBlock
		// une clé de langue qui ne porte pas un objet avec un tableau words
		// est ignorée, pas une erreur globale
		if err := json.Unmarshal(raw, &block); err != nil {
			continue
		}
		// un tableau words vide ou absent ne produit PAS d'entrée vide
		if len(block.Words) == 0 {
			continue
		}
		result[lang] = model.TranscriptFile{
			Language: lang,
			Segments: wordsToSegments(block.Words, lang),
		}
	}
	if len(result) > 0 {
		return result, nil
	}

	// forme (2) : tableau plat segments / results.segments
	var flat rawFlatDocument
	if err := json.Unmarshal(data, &flat); err == nil {
		if segs := flat.flatSegments(); len(segs) > 0 {
			lang := DetectLanguage(segs[0].Text)
			result[lang] = model.TranscriptFile{
				Language: lang,
				Segments: flatToSegments(segs, lang),
			}
			return result, nil
		}
	}

	return nil, ErrUnsupportedFormat
}

// wordsToSegments regroupe un flux de mots horodatés en segments.
// Règle : on ouvre un nouveau segment quand la pause entre la fin du mot
// précédent et le début du mot courant dépasse wordGapThresholdMs, ou quand
// le mot courant est le dernier. Les mots d'un segment sont joints par un
// espace ; les bornes passent de millisecondes en secondes.
func wordsToSegments(words []rawWord, lang model.Language) []model.TranscriptSegment {
	var segments []model.TranscriptSegment

	var (
		texts   []string
		startMs float64
		endMs   float64
		open    bool
	)

	commit := func() {
		if !open {
			return
		}
		segments = append(segments, model.TranscriptSegment{
			ID:       fmt.Sprintf("segment-%s-%d", lang, len(segments)),
			Text:     strings.Join(texts, " "),
			Start:    startMs / 1000,
			End:      endMs / 1000,
			Language: lang,
		})
		texts = nil
		open = false
	}

	for i, w := range words {
		isLast := i == len(words)-1
		if open && (w.Start-endMs > wordGapThresholdMs || isLast) {
			commit()
		}
		if !open {
			startMs = w.Start
			open = true
		}
		texts = append(texts, w.Text)
		endMs = w.End

		if isLast {
			commit()
		}
	}
	return segments
}

// flatToSegments convertit la forme plate en segments canoniques (ms -> s).
func flatToSegments(segs []rawFlatSegment, lang model.Language) []model.TranscriptSegment {
	out := make([]model.TranscriptSegment, 0, len(segs))
	for i, s := range segs {
		out = append(out, model.TranscriptSegment{
			ID:       fmt.Sprintf("segment-%s-%d", lang, i),
			Text:     s.Text,
			Start:    s.startMs() / 1000,
			End:      s.endMs() / 1000,
			Language: lang,
		})
	}
	return out
}
