// Package marks implémente le magasin de marques : CRUD sur la collection
// persistée de signets horodatés, adressée par épisode.
//
// Toute la collection (tous épisodes confondus) vit sous une seule clé du
// magasin clé/valeur, comme une seule entrée de localStorage. Les opérations
// sont des lectures-modifications-écritures en une étape, acceptable pour un
// client mono-utilisateur mono-processus.
package marks

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/patrickprogramme/podscribe/internal/kvstore"
	"github.com/patrickprogramme/podscribe/pkg/model"
)

// StorageKey : clé unique sous laquelle vit la collection complète.
const StorageKey = "podcast_player_marks"

// ErrNotFound : édition/suppression d'une marque dont l'id n'existe plus.
// Reporté comme un no-op, jamais fatal.
var ErrNotFound = errors.New("marque introuvable")

// Store : CRUD sur les marques, persistance immédiate à chaque mutation.
type Store struct {
	kv kvstore.Store
}

// NewStore construit un Store au-dessus d'un magasin clé/valeur.
func NewStore(kv kvstore.Store) *Store {
	return &Store{kv: kv}
}

// load lit la collection complète. Une persistance corrompue ou indisponible
// donne une collection vide, jamais une erreur propagée : le lecteur doit
// rester utilisable.
func (s *Store) load() []model.PodcastMark {
	raw, ok, err := s.kv.Get(StorageKey)
	if err != nil || !ok {
		return nil
	}
	var all []model.PodcastMark
	if err := json.Unmarshal([]byte(raw), &all); err != nil {
		return nil
	}
	return all
}

// save sérialise et écrit la collection complète.
func (s *Store) save(all []model.PodcastMark) error {
	if all == nil {
		all = []model.PodcastMark{}
	}
	data, err := json.Marshal(all)
	if err != nil {
		return fmt.Errorf("marks: encode: %w", err)
	}
	if err := s.kv.Set(StorageKey, string(data)); err != nil {
		return fmt.Errorf("marks: persist: %w", err)
	}
	return nil
}

// List retourne les marques d'un épisode. Aucun ordre n'est garanti par le
// magasin lui-même ; le tri par Time croissant est la responsabilité de
// l'appelant (le Synchronizer l'applique systématiquement).
func (s *Store) List(episodeID string) []model.PodcastMark {
	var out []model.PodcastMark
	for _, m := range s.load() {
		if m.EpisodeID == episodeID {
			out = append(out, m)
		}
	}
	return out
}

// Add ajoute une marque à la collection persistée.
func (s *Store) Add(mark model.PodcastMark) error {
	all := s.load()
	all = append(all, mark)
	return s.save(all)
}

// Update remplace la marque dont l'id correspond. ErrNotFound si absente.
func (s *Store) Update(mark model.PodcastMark) error {
	all := s.load()
	for i := range all {
		if all[i].ID == mark.ID {
			all[i] = mark
			return s.save(all)
		}
	}
	return ErrNotFound
}

// Delete supprime la marque d'id donné. ErrNotFound si absente.
func (s *Store) Delete(id string) error {
	all := s.load()
	kept := all[:0]
	for _, m := range all {
		if m.ID != id {
			kept = append(kept, m)
		}
	}
	if len(kept) == len(all) {
		return ErrNotFound
	}
	return s.save(kept)
}

// DeleteByEpisode supprime toutes les marques d'un épisode, quel que soit
// leur nombre (zéro inclus : succès quand il n'y a rien à supprimer).
func (s *Store) DeleteByEpisode(episodeID string) error {
	all := s.load()
	kept := all[:0]
	for _, m := range all {
		if m.EpisodeID != episodeID {
			kept = append(kept, m)
		}
	}
	return s.save(kept)
}

// ClearAll vide la collection complète.
func (s *Store) ClearAll() error {
	return s.save(nil)
}
