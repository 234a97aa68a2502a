package player

import (
	"errors"
	"fmt"
	"strings"

	"github.com/patrickprogramme/podscribe/internal/marks"
	"github.com/patrickprogramme/podscribe/pkg/model"
)

// AddMark crée une marque utilisateur au temps t pour l'épisode courant.
// Le titre est nettoyé des blancs ; vide après nettoyage -> ErrEmptyTitle,
// sans aucune mutation. La marque est persistée PUIS insérée dans la liste
// triée en mémoire : un échec d'écriture laisse l'état intact et remonte.
func (s *Session) AddMark(t float64, title string) (model.PodcastMark, error) {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return model.PodcastMark{}, ErrEmptyTitle
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.episode == nil {
		return model.PodcastMark{}, ErrNoEpisode
	}

	mark := model.PodcastMark{
		ID:        "mark-" + s.newID(),
		Title:     trimmed,
		Time:      t,
		EpisodeID: s.episode.ID,
		CreatedAt: s.now(),
	}
	if err := s.markStore.Add(mark); err != nil {
		return model.PodcastMark{}, err
	}

	s.marks = append(s.marks, mark)
	sortMarks(s.marks)
	s.notifyLocked()
	return mark, nil
}

// AddMarkHere crée une marque à la position de lecture courante.
func (s *Session) AddMarkHere(title string) (model.PodcastMark, error) {
	s.mu.Lock()
	t := s.currentTime
	s.mu.Unlock()
	return s.AddMark(t, title)
}

// EditMarkTitle renomme une marque. marks.ErrNotFound si l'id n'existe plus
// (marque supprimée entre-temps) : reporté, jamais fatal.
func (s *Session) EditMarkTitle(id, title string) error {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return ErrEmptyTitle
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOfMarkLocked(id)
	if i < 0 {
		return marks.ErrNotFound
	}
	updated := s.marks[i]
	updated.Title = trimmed
	if err := s.markStore.Update(updated); err != nil {
		return err
	}
	s.marks[i] = updated
	s.notifyLocked()
	return nil
}

// EditMarkTime déplace une marque. Le temps arrive de l'UI sous forme
// "MM:SS" ou "HH:MM:SS" ; une chaîne invalide est rejetée sans mutation.
// La liste est re-triée après déplacement.
func (s *Session) EditMarkTime(id, timeStr string) error {
	t, err := model.ParseTimeString(timeStr)
	if err != nil {
		return fmt.Errorf("marque %s: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOfMarkLocked(id)
	if i < 0 {
		return marks.ErrNotFound
	}
	updated := s.marks[i]
	updated.Time = t
	if err := s.markStore.Update(updated); err != nil {
		return err
	}
	s.marks[i] = updated
	sortMarks(s.marks)
	s.notifyLocked()
	return nil
}

// DeleteMark supprime une marque. marks.ErrNotFound si déjà absente.
func (s *Session) DeleteMark(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOfMarkLocked(id)
	if i < 0 {
		return marks.ErrNotFound
	}
	if err := s.markStore.Delete(id); err != nil && !errors.Is(err, marks.ErrNotFound) {
		return err
	}
	s.marks = append(s.marks[:i], s.marks[i+1:]...)
	s.notifyLocked()
	return nil
}

// ClearEpisodeMarks supprime toutes les marques de l'épisode courant,
// zéro marque incluse (succès silencieux).
func (s *Session) ClearEpisodeMarks() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.episode == nil {
		return ErrNoEpisode
	}
	if err := s.markStore.DeleteByEpisode(s.episode.ID); err != nil {
		return err
	}
	s.marks = nil
	s.notifyLocked()
	return nil
}

// MergeChapters convertit les chapitres du provider en marques et les fusionne
// avec les marques utilisateur : seules les marques dérivées d'un chapitre
// (préfixe d'id dédié) sont remplacées, jamais celles créées à la main.
// Les ids sont déterministes (épisode + chapitre), la fusion est donc
// idempotente : rejouer la même liste redonne le même ensemble.
func (s *Session) MergeChapters(chapters []model.Chapter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mergeChaptersLocked(s.epoch, chapters)
}

func (s *Session) mergeChaptersLocked(epoch int, chapters []model.Chapter) error {
	if s.episode == nil || epoch != s.epoch {
		return nil
	}

	kept := make([]model.PodcastMark, 0, len(s.marks)+len(chapters))
	for _, m := range s.marks {
		if m.IsChapterMark() {
			// ancienne marque chapitre : retirée de la persistance aussi,
			// son remplaçant arrive juste après avec un id recalculé
			if err := s.markStore.Delete(m.ID); err != nil && !errors.Is(err, marks.ErrNotFound) {
				return err
			}
			continue
		}
		kept = append(kept, m)
	}

	now := s.now()
	for _, ch := range chapters {
		mark := model.PodcastMark{
			ID:        fmt.Sprintf("%s%s-%s", model.ChapterMarkPrefix, s.episode.ID, ch.ID),
			Title:     ch.Title,
			Time:      ch.Start,
			EpisodeID: s.episode.ID,
			CreatedAt: now,
		}
		if err := s.markStore.Add(mark); err != nil {
			return err
		}
		kept = append(kept, mark)
	}

	sortMarks(kept)
	s.marks = kept
	s.notifyLocked()
	return nil
}

func (s *Session) indexOfMarkLocked(id string) int {
	for i := range s.marks {
		if s.marks[i].ID == id {
			return i
		}
	}
	return -1
}
