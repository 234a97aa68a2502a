package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/patrickprogramme/podscribe/internal/clipboard"
	"github.com/patrickprogramme/podscribe/pkg/model"
)

const helpText = `Commandes :
  list                  afficher le catalogue par saisons
  search <texte>        chercher un épisode par titre
  play <numéro>         sélectionner un épisode et lancer la transcription
  info                  afficher les informations du canal
  marks                 afficher les marques de l'épisode courant
  mark <MM:SS> <titre>  ajouter une marque
  delmark <numéro>      supprimer une marque (numéro de la liste marks)
  seek <MM:SS>          déplacer la position de lecture
  lang <ru|es>          changer la langue du transcript
  copy <numéro>         copier l'URL audio d'un épisode dans le presse-papier
  help                  afficher cette aide
  quit                  quitter`

// commandLoop lit et exécute les commandes du terminal jusqu'à quit ou
// annulation du contexte. Les erreurs de commande sont affichées, jamais
// fatales.
func (a *App) commandLoop(ctx context.Context) error {
	a.ui.PrintInfo(ctx, "\nTapez help pour la liste des commandes.")
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, err := a.ui.ReadCommand(ctx, "> ")
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				// stdin fermé (lancement détaché) : l'interface websocket
				// reste servie, on attend l'arrêt du programme
				a.ui.PrintInfo(ctx, "Entrée standard fermée ; pilotage via l'interface websocket.")
				return a.ui.WaitForExit(ctx)
			}
			return fmt.Errorf("lecture de commande: %w", err)
		}
		if line == "" {
			continue
		}

		verb, rest := splitCommand(line)
		switch verb {
		case "quit", "exit", "q":
			return nil
		case "help":
			a.ui.PrintInfo(ctx, helpText)
		case "list":
			a.ui.PrintInfo(ctx, FormatEpisodeList(a.episodes))
		case "search":
			found := SearchEpisodes(a.episodes, rest)
			if len(found) == 0 {
				a.ui.PrintInfo(ctx, "Aucun épisode ne correspond.")
				continue
			}
			a.ui.PrintInfo(ctx, FormatEpisodeList(found))
		case "play":
			a.reportErr(ctx, a.cmdPlay(ctx, rest))
		case "info":
			a.ui.PrintInfo(ctx, a.info.Pretty())
		case "marks":
			a.ui.PrintInfo(ctx, a.formatMarks())
		case "mark":
			a.reportErr(ctx, a.cmdMark(rest))
		case "delmark":
			a.reportErr(ctx, a.cmdDelMark(rest))
		case "seek":
			a.reportErr(ctx, a.cmdSeek(rest))
		case "lang":
			a.reportErr(ctx, a.cmdLang(rest))
		case "copy":
			a.reportErr(ctx, a.cmdCopy(ctx, rest))
		default:
			a.ui.PrintError(ctx, fmt.Sprintf("commande inconnue: %q (help pour l'aide)", verb))
		}
	}
}

func (a *App) reportErr(ctx context.Context, err error) {
	if err != nil {
		a.ui.PrintError(ctx, fmt.Sprintf("❌ %v", err))
	}
}

func (a *App) cmdPlay(ctx context.Context, arg string) error {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || n < 1 || n > len(a.episodes) {
		return fmt.Errorf("play attend un numéro entre 1 et %d", len(a.episodes))
	}
	ep := a.episodes[n-1]
	a.ui.PrintInfo(ctx, fmt.Sprintf("▶ %s", ep.Pretty()))
	a.selectAndTranscribe(ctx, ep)
	return nil
}

func (a *App) cmdMark(rest string) error {
	timeStr, title := splitCommand(rest)
	if timeStr == "" || strings.TrimSpace(title) == "" {
		return errors.New("usage: mark <MM:SS> <titre>")
	}
	t, err := model.ParseTimeString(timeStr)
	if err != nil {
		return err
	}
	_, err = a.session.AddMark(t, title)
	return err
}

func (a *App) cmdDelMark(arg string) error {
	snap := a.session.Snapshot()
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || n < 1 || n > len(snap.Marks) {
		return fmt.Errorf("delmark attend un numéro entre 1 et %d", len(snap.Marks))
	}
	return a.session.DeleteMark(snap.Marks[n-1].ID)
}

func (a *App) cmdSeek(arg string) error {
	t, err := model.ParseTimeString(strings.TrimSpace(arg))
	if err != nil {
		return err
	}
	a.session.SeekTo(t)
	return nil
}

func (a *App) cmdLang(arg string) error {
	lang, err := model.ParseLanguage(arg)
	if err != nil {
		return err
	}
	a.session.SetLanguage(lang)
	return nil
}

func (a *App) cmdCopy(ctx context.Context, arg string) error {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || n < 1 || n > len(a.episodes) {
		return fmt.Errorf("copy attend un numéro entre 1 et %d", len(a.episodes))
	}
	ep := a.episodes[n-1]
	if err := clipboard.WriteAll(ep.AudioURL); err != nil {
		return fmt.Errorf("presse-papier: %w", err)
	}
	a.ui.PrintInfo(ctx, fmt.Sprintf("URL audio copiée: %s", ep.AudioURL))
	return nil
}

func (a *App) formatMarks() string {
	snap := a.session.Snapshot()
	if len(snap.Marks) == 0 {
		return "Aucune marque pour cet épisode."
	}
	var b strings.Builder
	for i, m := range snap.Marks {
		kind := " "
		if m.IsChapterMark() {
			kind = "§"
		}
		fmt.Fprintf(&b, "%2d. %s %s  %s\n", i+1, kind, model.FormatSeconds(m.Time), m.Title)
	}
	return strings.TrimRight(b.String(), "\n")
}

// splitCommand sépare le premier mot du reste de la ligne.
func splitCommand(line string) (string, string) {
	line = strings.TrimSpace(line)
	i := strings.IndexAny(line, " \t")
	if i < 0 {
		return strings.ToLower(line), ""
	}
	return strings.ToLower(line[:i]), strings.TrimSpace(line[i+1:])
}
