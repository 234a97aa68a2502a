package player

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/patrickprogramme/podscribe/internal/assemblyai"
	"github.com/patrickprogramme/podscribe/internal/marks"
	"github.com/patrickprogramme/podscribe/pkg/model"
)

// memKV : magasin clé/valeur en mémoire pour les tests.
type memKV struct {
	data map[string]string
}

func newMemKV() *memKV { return &memKV{data: make(map[string]string)} }

func (m *memKV) Get(key string) (string, bool, error) {
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memKV) Set(key, value string) error {
	m.data[key] = value
	return nil
}

// fakeSTT : service de transcription scripté. Submit rend le premier statut,
// chaque GetStatus consomme le suivant.
type fakeSTT struct {
	results   []assemblyai.Transcription
	submitErr error
	statusErr error
	entered   chan struct{} // si non nil, fermé quand Submit démarre
	gate      chan struct{} // si non nil, Submit attend ce canal
	calls     int
	submits   int
}

func (f *fakeSTT) Submit(ctx context.Context, audioURL string) (assemblyai.Transcription, error) {
	f.submits++
	if f.entered != nil {
		close(f.entered)
	}
	if f.gate != nil {
		<-f.gate
	}
	if f.submitErr != nil {
		return assemblyai.Transcription{}, f.submitErr
	}
	return f.next(), nil
}

func (f *fakeSTT) GetStatus(ctx context.Context, id string) (assemblyai.Transcription, error) {
	if f.statusErr != nil {
		return assemblyai.Transcription{}, f.statusErr
	}
	return f.next(), nil
}

func (f *fakeSTT) next() assemblyai.Transcription {
	i := f.calls
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	f.calls++
	return f.results[i]
}

func newTestSession(t *testing.T, stt assemblyai.Interface) *Session {
	t.Helper()
	var seq int
	return NewSession(marks.NewStore(newMemKV()), stt, Options{
		PollInterval:    time.Millisecond,
		MaxPollAttempts: 5,
		Now:             func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) },
		NewID: func() string {
			seq++
			return fmt.Sprintf("id-%d", seq)
		},
	})
}

func testEpisode() model.PodcastEpisode {
	return model.PodcastEpisode{
		ID:       "ep-1",
		Title:    "Утренняя медитация",
		AudioURL: "https://example.com/ep1.mp3",
		Duration: 300,
	}
}

func completedTranscription() assemblyai.Transcription {
	return assemblyai.Transcription{
		ID:     "tr-1",
		Status: assemblyai.StatusCompleted,
		Segments: []model.TranscriptSegment{
			{ID: "segment-0", Text: "Закройте глаза", Start: 0, End: 10},
			{ID: "segment-1", Text: "и дышите глубоко", Start: 10, End: 25},
			{ID: "segment-2", Text: "медленно расслабьтесь", Start: 30, End: 45},
		},
		Chapters: []model.Chapter{
			{ID: "chapter-0", Title: "Введение", Start: 0, End: 25},
			{ID: "chapter-1", Title: "Практика", Start: 30, End: 45},
		},
		AudioDuration: 320,
	}
}

func TestSelectEpisodeResetsState(t *testing.T) {
	s := newTestSession(t, &fakeSTT{})
	s.SelectEpisode(testEpisode())

	snap := s.Snapshot()
	if snap.State != StateLoading {
		t.Errorf("state = %s; want loading", snap.State)
	}
	if snap.CurrentTime != 0 || snap.Duration != 300 {
		t.Errorf("time/duration = %v/%v", snap.CurrentTime, snap.Duration)
	}
	if snap.ActiveSegmentID != "" || len(snap.Segments) != 0 {
		t.Errorf("état non remis à zéro: %#v", snap)
	}
}

func TestRequestTranscription_Completed(t *testing.T) {
	stt := &fakeSTT{results: []assemblyai.Transcription{
		{ID: "tr-1", Status: assemblyai.StatusQueued},
		{ID: "tr-1", Status: assemblyai.StatusProcessing},
		completedTranscription(),
	}}
	s := newTestSession(t, stt)
	s.SelectEpisode(testEpisode())

	if err := s.RequestTranscription(context.Background()); err != nil {
		t.Fatalf("RequestTranscription: %v", err)
	}

	snap := s.Snapshot()
	if snap.State != StateReady {
		t.Fatalf("state = %s; want ready", snap.State)
	}
	if len(snap.Segments) != 3 {
		t.Fatalf("segments = %d; want 3", len(snap.Segments))
	}
	// texte cyrillique -> langue détectée ru
	if snap.Language != model.LangRU {
		t.Errorf("language = %s; want ru", snap.Language)
	}
	// durée corrigée par celle du média transcrit
	if snap.Duration != 320 {
		t.Errorf("duration = %v; want 320", snap.Duration)
	}
	// chapitres fusionnés en marques, triées
	if len(snap.Marks) != 2 {
		t.Fatalf("marks = %#v", snap.Marks)
	}
	if snap.Marks[0].ID != "chapter-ep-1-chapter-0" || !snap.Marks[0].IsChapterMark() {
		t.Errorf("mark id = %q", snap.Marks[0].ID)
	}
}

func TestRequestTranscription_ExhaustedFallsBack(t *testing.T) {
	stt := &fakeSTT{results: []assemblyai.Transcription{
		{ID: "tr-1", Status: assemblyai.StatusProcessing},
	}}
	s := newTestSession(t, stt)
	s.SelectEpisode(testEpisode())

	err := s.RequestTranscription(context.Background())
	if err == nil {
		t.Fatal("attendu une erreur après épuisement des tentatives")
	}

	snap := s.Snapshot()
	if snap.State != StateReady {
		t.Errorf("state = %s; le lecteur doit rester utilisable", snap.State)
	}
	if len(snap.Segments) != placeholderSegmentCount {
		t.Errorf("segments de repli = %d; want %d", len(snap.Segments), placeholderSegmentCount)
	}
	// marques de repli présentes puisqu'aucune marque persistée
	if len(snap.Marks) != 5 {
		t.Errorf("marks de repli = %d; want 5", len(snap.Marks))
	}
}

func TestRequestTranscription_SubmitErrorKeepsPersistedMarks(t *testing.T) {
	s := newTestSession(t, &fakeSTT{submitErr: errors.New("réseau coupé")})
	s.SelectEpisode(testEpisode())
	if _, err := s.AddMark(42, "моя марка"); err != nil {
		t.Fatalf("AddMark: %v", err)
	}

	if err := s.RequestTranscription(context.Background()); err == nil {
		t.Fatal("attendu l'erreur de soumission")
	}

	snap := s.Snapshot()
	// les marques utilisateur ne sont pas écrasées par le jeu de repli
	if len(snap.Marks) != 1 || snap.Marks[0].Title != "моя марка" {
		t.Errorf("marks = %#v", snap.Marks)
	}
	if snap.State != StateReady || len(snap.Segments) == 0 {
		t.Errorf("repli non installé: %#v", snap.State)
	}
}

func TestRequestTranscription_StaleResultDiscarded(t *testing.T) {
	gate := make(chan struct{})
	entered := make(chan struct{})
	stt := &fakeSTT{gate: gate, entered: entered, results: []assemblyai.Transcription{completedTranscription()}}
	s := newTestSession(t, stt)

	s.SelectEpisode(testEpisode())
	done := make(chan error, 1)
	go func() { done <- s.RequestTranscription(context.Background()) }()
	<-entered

	// nouvelle sélection avant que la réponse du premier épisode n'arrive
	other := testEpisode()
	other.ID = "ep-2"
	other.Title = "Вечерняя медитация"
	s.SelectEpisode(other)

	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("RequestTranscription: %v", err)
	}

	snap := s.Snapshot()
	if snap.EpisodeID != "ep-2" {
		t.Fatalf("episode = %s", snap.EpisodeID)
	}
	// le résultat périmé de ep-1 ne doit pas avoir été appliqué
	if len(snap.Segments) != 0 || snap.State != StateLoading {
		t.Errorf("résultat périmé appliqué: state=%s segments=%d", snap.State, len(snap.Segments))
	}
	if len(snap.Marks) != 0 {
		t.Errorf("marques périmées appliquées: %#v", snap.Marks)
	}
}

func TestRequestTranscription_DuplicateRequestNotResubmitted(t *testing.T) {
	gate := make(chan struct{})
	entered := make(chan struct{})
	stt := &fakeSTT{gate: gate, entered: entered, results: []assemblyai.Transcription{completedTranscription()}}
	s := newTestSession(t, stt)
	s.SelectEpisode(testEpisode())

	done := make(chan error, 1)
	go func() { done <- s.RequestTranscription(context.Background()) }()
	<-entered

	// seconde requête pour la même sélection : ignorée, aucune soumission
	if err := s.RequestTranscription(context.Background()); err != nil {
		t.Fatalf("requête redondante: %v", err)
	}

	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("RequestTranscription: %v", err)
	}

	if stt.submits != 1 {
		t.Errorf("soumissions = %d; want 1", stt.submits)
	}
	if snap := s.Snapshot(); snap.State != StateReady || len(snap.Segments) != 3 {
		t.Errorf("état final: %s, %d segments", snap.State, len(snap.Segments))
	}
}

func TestUpdateTime_ActiveSegment(t *testing.T) {
	s := newTestSession(t, &fakeSTT{results: []assemblyai.Transcription{completedTranscription()}})
	s.SelectEpisode(testEpisode())
	if err := s.RequestTranscription(context.Background()); err != nil {
		t.Fatalf("RequestTranscription: %v", err)
	}

	s.UpdateTime(5)
	if got := s.Snapshot().ActiveSegmentID; got != "segment-0" {
		t.Errorf("active = %q; want segment-0", got)
	}

	// frontière partagée 10 : le segment qui commence le plus tôt gagne
	s.UpdateTime(10)
	if got := s.Snapshot().ActiveSegmentID; got != "segment-0" {
		t.Errorf("active sur frontière = %q; want segment-0", got)
	}

	// trou entre 25 et 30 : le segment actif précédent est conservé
	s.UpdateTime(12)
	s.UpdateTime(27)
	snap := s.Snapshot()
	if snap.ActiveSegmentID != "segment-1" {
		t.Errorf("active dans le trou = %q; want segment-1", snap.ActiveSegmentID)
	}
	if snap.CurrentTime != 27 {
		t.Errorf("currentTime = %v; want 27", snap.CurrentTime)
	}

	s.UpdateTime(31)
	if got := s.Snapshot().ActiveSegmentID; got != "segment-2" {
		t.Errorf("active = %q; want segment-2", got)
	}
}

func TestSeekTo_ClampsWithoutMovingActiveSegment(t *testing.T) {
	s := newTestSession(t, &fakeSTT{results: []assemblyai.Transcription{completedTranscription()}})
	s.SelectEpisode(testEpisode())
	if err := s.RequestTranscription(context.Background()); err != nil {
		t.Fatalf("RequestTranscription: %v", err)
	}
	s.UpdateTime(5)

	s.SeekTo(-10)
	if got := s.Snapshot().CurrentTime; got != 0 {
		t.Errorf("clamp bas: %v", got)
	}
	s.SeekTo(9999)
	snap := s.Snapshot()
	if snap.CurrentTime != snap.Duration {
		t.Errorf("clamp haut: %v != %v", snap.CurrentTime, snap.Duration)
	}
	// seekTo ne recalcule pas le segment actif, c'est le rôle du tick
	if snap.ActiveSegmentID != "segment-0" {
		t.Errorf("active après seek = %q; want segment-0", snap.ActiveSegmentID)
	}

	s.Skip(-15)
	if got := s.Snapshot().CurrentTime; got != snap.Duration-15 {
		t.Errorf("skip: %v", got)
	}
}

func TestAddMark(t *testing.T) {
	s := newTestSession(t, &fakeSTT{})
	s.SelectEpisode(testEpisode())

	if _, err := s.AddMark(10, "   "); !errors.Is(err, ErrEmptyTitle) {
		t.Fatalf("titre blanc: %v", err)
	}

	if _, err := s.AddMark(120, "вторая"); err != nil {
		t.Fatalf("AddMark: %v", err)
	}
	if _, err := s.AddMark(30, "  первая  "); err != nil {
		t.Fatalf("AddMark: %v", err)
	}

	snap := s.Snapshot()
	if len(snap.Marks) != 2 {
		t.Fatalf("marks = %#v", snap.Marks)
	}
	// insertion triée par temps croissant, titre nettoyé
	if snap.Marks[0].Title != "первая" || snap.Marks[0].Time != 30 {
		t.Errorf("marks[0] = %#v", snap.Marks[0])
	}
	if !strings.HasPrefix(snap.Marks[0].ID, "mark-") {
		t.Errorf("id = %q", snap.Marks[0].ID)
	}

	// persistées : une nouvelle sélection du même épisode les recharge
	s.SelectEpisode(testEpisode())
	if got := s.Snapshot().Marks; len(got) != 2 || got[0].Title != "первая" {
		t.Errorf("marques rechargées = %#v", got)
	}
}

func TestEditMark(t *testing.T) {
	s := newTestSession(t, &fakeSTT{})
	s.SelectEpisode(testEpisode())
	m1, _ := s.AddMark(30, "первая")
	m2, _ := s.AddMark(120, "вторая")

	if err := s.EditMarkTime(m1.ID, "1:61"); err == nil {
		t.Fatal("temps invalide accepté")
	}
	if err := s.EditMarkTitle(m1.ID, ""); !errors.Is(err, ErrEmptyTitle) {
		t.Fatalf("titre vide: %v", err)
	}
	if err := s.EditMarkTime("absente", "01:00"); !errors.Is(err, marks.ErrNotFound) {
		t.Fatalf("id inconnu: %v", err)
	}

	// déplacer la première après la seconde : la liste est re-triée
	if err := s.EditMarkTime(m1.ID, "03:00"); err != nil {
		t.Fatalf("EditMarkTime: %v", err)
	}
	snap := s.Snapshot()
	if snap.Marks[0].ID != m2.ID || snap.Marks[1].Time != 180 {
		t.Errorf("ordre après édition: %#v", snap.Marks)
	}

	if err := s.EditMarkTitle(m2.ID, "обновлённая"); err != nil {
		t.Fatalf("EditMarkTitle: %v", err)
	}
	if got := s.Snapshot().Marks[0].Title; got != "обновлённая" {
		t.Errorf("titre = %q", got)
	}
}

func TestDeleteMark(t *testing.T) {
	s := newTestSession(t, &fakeSTT{})
	s.SelectEpisode(testEpisode())
	m, _ := s.AddMark(30, "первая")

	if err := s.DeleteMark(m.ID); err != nil {
		t.Fatalf("DeleteMark: %v", err)
	}
	if err := s.DeleteMark(m.ID); !errors.Is(err, marks.ErrNotFound) {
		t.Fatalf("double suppression: %v", err)
	}
	if got := s.Snapshot().Marks; len(got) != 0 {
		t.Errorf("marks = %#v", got)
	}
}

func TestMergeChapters_IdempotentAndPreservesUserMarks(t *testing.T) {
	s := newTestSession(t, &fakeSTT{})
	s.SelectEpisode(testEpisode())
	user, _ := s.AddMark(42, "моя марка")

	chapters := []model.Chapter{
		{ID: "chapter-0", Title: "Введение", Start: 0},
		{ID: "chapter-1", Title: "Практика", Start: 100},
	}
	if err := s.MergeChapters(chapters); err != nil {
		t.Fatalf("MergeChapters: %v", err)
	}
	if err := s.MergeChapters(chapters); err != nil {
		t.Fatalf("MergeChapters (rejouée): %v", err)
	}

	snap := s.Snapshot()
	if len(snap.Marks) != 3 {
		t.Fatalf("fusion non idempotente: %#v", snap.Marks)
	}
	// ordre par temps : chapitre 0, marque utilisateur à 42, chapitre 1
	if snap.Marks[0].ID != "chapter-ep-1-chapter-0" ||
		snap.Marks[1].ID != user.ID ||
		snap.Marks[2].ID != "chapter-ep-1-chapter-1" {
		t.Errorf("ordre: %q %q %q", snap.Marks[0].ID, snap.Marks[1].ID, snap.Marks[2].ID)
	}

	// persistance alignée : rechargement sans doublon
	s.SelectEpisode(testEpisode())
	if got := s.Snapshot().Marks; len(got) != 3 {
		t.Errorf("marques persistées = %d; want 3", len(got))
	}
}

func TestEditSegmentText(t *testing.T) {
	s := newTestSession(t, &fakeSTT{results: []assemblyai.Transcription{completedTranscription()}})
	s.SelectEpisode(testEpisode())
	if err := s.RequestTranscription(context.Background()); err != nil {
		t.Fatalf("RequestTranscription: %v", err)
	}

	if err := s.EditSegmentText("segment-1", "  "); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("texte vide: %v", err)
	}
	if err := s.EditSegmentText("absent", "текст"); !errors.Is(err, marks.ErrNotFound) {
		t.Fatalf("segment inconnu: %v", err)
	}
	if err := s.EditSegmentText("segment-1", "исправленный текст"); err != nil {
		t.Fatalf("EditSegmentText: %v", err)
	}

	snap := s.Snapshot()
	if snap.Segments[1].Text != "исправленный текст" {
		t.Errorf("texte = %q", snap.Segments[1].Text)
	}
	// les bornes et l'id ne bougent pas
	if snap.Segments[1].ID != "segment-1" || snap.Segments[1].Start != 10 {
		t.Errorf("segment modifié au-delà du texte: %#v", snap.Segments[1])
	}
}

func TestLoadTranscriptFile(t *testing.T) {
	s := newTestSession(t, &fakeSTT{})
	s.SelectEpisode(testEpisode())

	payload := []byte(`{
		"es": {"words": [
			{"text": "respira", "start": 0, "end": 900},
			{"text": "profundo", "start": 1000, "end": 1800}
		]}
	}`)
	if err := s.LoadTranscriptFile(payload); err != nil {
		t.Fatalf("LoadTranscriptFile: %v", err)
	}

	snap := s.Snapshot()
	if snap.State != StateReady {
		t.Errorf("state = %s", snap.State)
	}
	// la langue active bascule sur la seule langue fournie
	if snap.Language != model.LangES {
		t.Errorf("language = %s; want es", snap.Language)
	}
	if len(snap.Segments) == 0 {
		t.Fatalf("segments = %#v", snap.Segments)
	}
}

func TestSubscribe(t *testing.T) {
	s := newTestSession(t, &fakeSTT{})
	ch, unsubscribe := s.Subscribe()
	defer unsubscribe()

	s.SelectEpisode(testEpisode())

	select {
	case snap := <-ch:
		if snap.EpisodeID != "ep-1" {
			t.Errorf("snapshot = %#v", snap)
		}
	case <-time.After(time.Second):
		t.Fatal("aucun snapshot reçu")
	}
}
