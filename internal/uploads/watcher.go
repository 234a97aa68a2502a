// Package uploads surveille le répertoire de dépôt de transcriptions : tout
// fichier JSON créé ou modifié dedans est lu puis transmis au lecteur, qui le
// parse et l'installe. C'est l'équivalent local d'un champ "importer un
// fichier" : on glisse le fichier dans le dossier, le lecteur le prend.
package uploads

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Loader reçoit le contenu brut d'un fichier déposé.
type Loader func(data []byte) error

// settleDelay laisse le temps à l'écriture du fichier de se terminer avant
// lecture (les éditeurs et les copies réseau écrivent en plusieurs passes).
const settleDelay = 100 * time.Millisecond

// maxFileSize borne la taille d'un fichier déposé (un transcript JSON de
// plusieurs heures tient largement en dessous).
const maxFileSize = 10_000_000

// ErrNoDir : répertoire de dépôt non configuré.
var ErrNoDir = errors.New("répertoire de dépôt non configuré")

// Watcher observe un répertoire et pousse les fichiers JSON vers un Loader.
type Watcher struct {
	dir    string
	load   Loader
	logger *log.Logger
}

// NewWatcher construit un Watcher. Le répertoire est créé s'il n'existe pas.
func NewWatcher(dir string, load Loader, logger *log.Logger) (*Watcher, error) {
	if dir == "" {
		return nil, ErrNoDir
	}
	if load == nil {
		return nil, errors.New("uploads: loader nil")
	}
	if logger == nil {
		logger = log.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("uploads: création de %s: %w", dir, err)
	}
	return &Watcher{dir: dir, load: load, logger: logger}, nil
}

// Run bloque jusqu'à l'annulation du contexte. Chaque fichier .json créé ou
// réécrit dans le répertoire est chargé ; une erreur de chargement est
// journalisée, jamais fatale (le fichier suivant peut être correct).
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("uploads: watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("uploads: surveillance de %s: %w", w.dir, err)
	}
	w.logger.Printf("dépôt de transcriptions surveillé: %s", w.dir)

	// rattrapage des fichiers déposés avant le démarrage ; non fatal,
	// la surveillance continue même si le répertoire est illisible
	if err := w.loadExisting(); err != nil {
		w.logger.Printf("rattrapage du dépôt: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fw.Events:
			if !ok {
				return errors.New("uploads: canal d'événements fermé")
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !isTranscriptFile(event.Name) {
				continue
			}
			time.Sleep(settleDelay)
			if err := w.loadFile(event.Name); err != nil {
				w.logger.Printf("dépôt %s ignoré: %v", filepath.Base(event.Name), err)
			} else {
				w.logger.Printf("transcript chargé depuis %s", filepath.Base(event.Name))
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return errors.New("uploads: canal d'erreurs fermé")
			}
			w.logger.Printf("erreur de surveillance: %v", err)
		}
	}
}

// loadExisting charge les fichiers déjà présents dans le répertoire :
// rattrapage au démarrage de Run d'un dépôt fait pendant que le programme
// ne tournait pas.
func (w *Watcher) loadExisting() error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("uploads: lecture de %s: %w", w.dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || !isTranscriptFile(e.Name()) {
			continue
		}
		path := filepath.Join(w.dir, e.Name())
		if err := w.loadFile(path); err != nil {
			w.logger.Printf("dépôt %s ignoré: %v", e.Name(), err)
		}
	}
	return nil
}

func (w *Watcher) loadFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("répertoire, pas un fichier")
	}
	if info.Size() > maxFileSize {
		return fmt.Errorf("fichier trop gros (%d octets)", info.Size())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return w.load(data)
}

func isTranscriptFile(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".json")
}
