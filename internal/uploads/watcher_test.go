package uploads

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type captureLoader struct {
	mu    sync.Mutex
	files [][]byte
	err   error
	seen  chan struct{}
}

func newCaptureLoader() *captureLoader {
	return &captureLoader{seen: make(chan struct{}, 16)}
}

func (c *captureLoader) load(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files = append(c.files, data)
	c.seen <- struct{}{}
	return c.err
}

func (c *captureLoader) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.files)
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestNewWatcher_CreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "drop")
	if _, err := NewWatcher(dir, func([]byte) error { return nil }, quietLogger()); err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("répertoire non créé: %v", err)
	}

	if _, err := NewWatcher("", func([]byte) error { return nil }, quietLogger()); !errors.Is(err, ErrNoDir) {
		t.Fatalf("répertoire vide: %v", err)
	}
}

func TestWatcher_PicksUpDroppedFile(t *testing.T) {
	dir := t.TempDir()
	loader := newCaptureLoader()
	w, err := NewWatcher(dir, loader.load, quietLogger())
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// laisser le watcher s'installer avant d'écrire
	time.Sleep(100 * time.Millisecond)

	payload := []byte(`{"ru": {"words": [{"text": "тест", "start": 0, "end": 500}]}}`)
	if err := os.WriteFile(filepath.Join(dir, "drop.json"), payload, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	select {
	case <-loader.seen:
	case <-time.After(3 * time.Second):
		t.Fatal("fichier déposé jamais chargé")
	}

	// un fichier non-JSON est ignoré
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("pas un transcript"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	time.Sleep(300 * time.Millisecond)

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run: %v", err)
	}

	// Create et Write peuvent tous deux déclencher un chargement du même
	// fichier, on vérifie donc le contenu, pas le nombre d'événements.
	loader.mu.Lock()
	defer loader.mu.Unlock()
	if len(loader.files) == 0 {
		t.Fatal("aucun chargement")
	}
	for _, data := range loader.files {
		if string(data) != string(payload) {
			t.Errorf("contenu chargé inattendu: %q", data)
		}
	}
}

func TestWatcher_RunLoadsPreexistingFiles(t *testing.T) {
	dir := t.TempDir()
	payload := []byte(`{"ru": {"words": [{"text": "до", "start": 0, "end": 400}]}}`)
	if err := os.WriteFile(filepath.Join(dir, "avant.json"), payload, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "skip.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	loader := newCaptureLoader()
	w, err := NewWatcher(dir, loader.load, quietLogger())
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// le fichier déposé avant le démarrage est rattrapé sans événement fsnotify
	select {
	case <-loader.seen:
	case <-time.After(3 * time.Second):
		t.Fatal("fichier préexistant jamais chargé")
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run: %v", err)
	}

	if loader.count() != 1 {
		t.Errorf("chargements = %d; want 1", loader.count())
	}
	loader.mu.Lock()
	defer loader.mu.Unlock()
	if string(loader.files[0]) != string(payload) {
		t.Errorf("contenu chargé inattendu: %q", loader.files[0])
	}
}

func TestWatcher_LoaderErrorIsNotFatal(t *testing.T) {
	dir := t.TempDir()
	loader := newCaptureLoader()
	loader.err = errors.New("format inconnu")
	w, err := NewWatcher(dir, loader.load, quietLogger())
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	select {
	case <-loader.seen:
	case <-time.After(3 * time.Second):
		t.Fatal("fichier jamais transmis au loader")
	}

	// le watcher continue de tourner après l'erreur
	select {
	case err := <-done:
		t.Fatalf("Run terminé prématurément: %v", err)
	case <-time.After(200 * time.Millisecond):
	}
}
