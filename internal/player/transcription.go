package player

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickprogramme/podscribe/internal/assemblyai"
	"github.com/patrickprogramme/podscribe/internal/transcript"
	"github.com/patrickprogramme/podscribe/pkg/model"
)

// RequestTranscription soumet l'audio de l'épisode courant au service de
// transcription puis interroge le statut à intervalle fixe jusqu'à un état
// terminal, l'épuisement des tentatives, ou l'annulation (nouvelle sélection,
// arrêt du programme). L'appel est bloquant : l'appelant le lance dans sa
// propre goroutine.
//
// Tout échec (soumission, transport, statut error, tentatives épuisées)
// installe le transcript de repli pour que le lecteur reste utilisable,
// puis remonte l'erreur pour affichage.
//
// Au plus une requête par sélection : un appel redondant pendant qu'une
// requête couvre déjà l'époque courante retourne nil sans rien soumettre.
func (s *Session) RequestTranscription(ctx context.Context) error {
	s.mu.Lock()
	if s.episode == nil {
		s.mu.Unlock()
		return ErrNoEpisode
	}
	if s.cancelPoll != nil && s.pollEpoch == s.epoch {
		s.mu.Unlock()
		return nil
	}
	epoch := s.epoch
	audioURL := s.episode.AudioURL
	pollCtx, cancel := context.WithCancel(ctx)
	s.cancelPoll = cancel
	s.pollEpoch = epoch
	s.mu.Unlock()
	defer func() {
		cancel()
		s.mu.Lock()
		// ne pas effacer le cancel d'une requête plus récente
		if s.pollEpoch == epoch {
			s.cancelPoll = nil
		}
		s.mu.Unlock()
	}()

	tr, err := s.stt.Submit(pollCtx, audioURL)
	if err != nil {
		s.fallback(epoch)
		return fmt.Errorf("transcription: %w", err)
	}

	for attempt := 0; ; attempt++ {
		if done, err := s.handleStatus(epoch, tr); done {
			return err
		}
		if attempt >= s.maxPollAttempts {
			s.fallback(epoch)
			return fmt.Errorf("transcription %s: toujours %s après %d tentatives", tr.ID, tr.Status, attempt)
		}

		select {
		case <-pollCtx.Done():
			// sélection remplacée ou arrêt : pas de repli, l'état
			// appartient déjà à l'épisode suivant
			return pollCtx.Err()
		case <-time.After(s.pollInterval):
		}

		tr, err = s.stt.GetStatus(pollCtx, tr.ID)
		if err != nil {
			s.fallback(epoch)
			return fmt.Errorf("transcription: %w", err)
		}
	}
}

// handleStatus applique un statut terminal. done=true quand le polling doit
// s'arrêter (succès ou échec définitif).
func (s *Session) handleStatus(epoch int, tr assemblyai.Transcription) (bool, error) {
	switch tr.Status {
	case assemblyai.StatusCompleted:
		s.mu.Lock()
		defer s.mu.Unlock()
		if err := s.applyTranscriptionLocked(epoch, tr); err != nil {
			return true, err
		}
		return true, nil
	case assemblyai.StatusError:
		s.fallback(epoch)
		return true, fmt.Errorf("transcription %s: %s", tr.ID, tr.Error)
	default:
		return false, nil
	}
}

// applyTranscriptionLocked installe un résultat complet : langue détectée sur
// le premier segment, durée corrigée par celle du média transcrit, chapitres
// fusionnés dans les marques. Un résultat arrivé après une nouvelle sélection
// (époque périmée) est jeté sans toucher l'état.
func (s *Session) applyTranscriptionLocked(epoch int, tr assemblyai.Transcription) error {
	if epoch != s.epoch || s.episode == nil {
		return nil
	}

	lang := model.DefaultLanguage
	if len(tr.Segments) > 0 {
		lang = transcript.DetectLanguage(tr.Segments[0].Text)
	}
	segs := make([]model.TranscriptSegment, len(tr.Segments))
	for i, seg := range tr.Segments {
		seg.Language = lang
		segs[i] = seg
	}

	s.transcript[lang] = segs
	s.cacheTranscriptLocked(lang)
	s.language = lang
	s.activeSegmentID = ""
	if tr.AudioDuration > 0 {
		s.duration = tr.AudioDuration
	}
	s.state = StateReady

	if err := s.mergeChaptersLocked(epoch, tr.Chapters); err != nil {
		s.notifyLocked()
		return err
	}
	s.notifyLocked()
	return nil
}

// fallback installe le transcript de repli quand la transcription réelle est
// indisponible. Les marques de repli ne sont proposées que si l'épisode n'a
// aucune marque persistée, et ne sont jamais écrites dans le magasin.
func (s *Session) fallback(epoch int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch || s.episode == nil {
		return
	}

	s.language = model.DefaultLanguage
	s.transcript[s.language] = placeholderTranscript(s.episode.ID, s.duration)
	s.cacheTranscriptLocked(s.language)
	s.activeSegmentID = ""
	if len(s.marks) == 0 {
		s.marks = placeholderMarks(s.episode.ID, s.duration, s.now())
	}
	s.state = StateReady
	s.notifyLocked()
}

// LoadTranscriptFile installe un transcript depuis un fichier JSON déposé par
// l'utilisateur (une ou plusieurs langues). Le fichier remplace les partitions
// de langue qu'il contient et laisse les autres intactes.
func (s *Session) LoadTranscriptFile(data []byte) error {
	parsed, err := transcript.Parse(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.episode == nil {
		return ErrNoEpisode
	}

	for lang, file := range parsed {
		s.transcript[lang] = file.Segments
		s.cacheTranscriptLocked(lang)
	}
	// si la langue active n'a rien, basculer sur la première langue fournie
	if len(s.transcript[s.language]) == 0 {
		for _, lang := range model.SupportedLanguages {
			if len(s.transcript[lang]) > 0 {
				s.language = lang
				break
			}
		}
	}
	s.activeSegmentID = ""
	s.state = StateReady
	s.notifyLocked()
	return nil
}

const placeholderSegmentCount = 20

// placeholderTranscript découpe la durée en segments réguliers avec un texte
// indicatif, pour que la navigation par segment fonctionne sans transcription.
func placeholderTranscript(episodeID string, duration float64) []model.TranscriptSegment {
	if duration <= 0 {
		duration = 300
	}
	step := duration / placeholderSegmentCount
	segs := make([]model.TranscriptSegment, 0, placeholderSegmentCount)
	for i := 0; i < placeholderSegmentCount; i++ {
		segs = append(segs, model.TranscriptSegment{
			ID:       fmt.Sprintf("%s-segment-%d", episodeID, i+1),
			Text:     fmt.Sprintf("Фрагмент %d. Транскрипция недоступна, это заполнитель.", i+1),
			Start:    float64(i) * step,
			End:      float64(i+1) * step,
			Language: model.DefaultLanguage,
		})
	}
	return segs
}

// placeholderMarks : jeu de marques indicatives réparties sur la durée.
func placeholderMarks(episodeID string, duration float64, now time.Time) []model.PodcastMark {
	if duration <= 0 {
		duration = 300
	}
	points := []struct {
		frac  float64
		title string
	}{
		{0, "Начало"},
		{0.2, "Вступление"},
		{0.5, "Основная часть"},
		{0.7, "Углубление"},
		{0.9, "Завершение"},
	}
	ms := make([]model.PodcastMark, 0, len(points))
	for i, p := range points {
		ms = append(ms, model.PodcastMark{
			ID:        fmt.Sprintf("%s-mark-%d", episodeID, i+1),
			Title:     p.title,
			Time:      duration * p.frac,
			EpisodeID: episodeID,
			CreatedAt: now,
		})
	}
	return ms
}
