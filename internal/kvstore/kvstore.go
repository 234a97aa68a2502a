// Package kvstore fournit le magasin clé/valeur utilisé pour la persistance
// des marques : une implémentation fichier (par défaut) et une implémentation
// Postgres, interchangeables derrière la même interface.
package kvstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/patrickprogramme/podscribe/internal/fsutil"
)

// Store : magasin clé/valeur minimal. Get retourne (valeur, présent, erreur) ;
// l'absence d'une clé n'est pas une erreur.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// FileStore persiste chaque clé dans un fichier du répertoire dir.
// Les écritures sont atomiques (tmp + rename), comme partout ailleurs.
type FileStore struct {
	dir string
}

// NewFileStore construit un FileStore ; le répertoire est créé à la première écriture.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("kvstore: répertoire vide")
	}
	return &FileStore{dir: filepath.Clean(dir)}, nil
}

func (f *FileStore) path(key string) string {
	return filepath.Join(f.dir, fsutil.SanitizeFilename(key)+".json")
}

func (f *FileStore) Get(key string) (string, bool, error) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("kvstore: lecture %s: %w", key, err)
	}
	return string(data), true, nil
}

func (f *FileStore) Set(key, value string) error {
	if err := fsutil.WriteFileAtomic(f.path(key), []byte(value), 0o644); err != nil {
		return fmt.Errorf("kvstore: écriture %s: %w", key, err)
	}
	return nil
}
