package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/patrickprogramme/podscribe/internal/app"
	"github.com/patrickprogramme/podscribe/internal/assets"
	"github.com/patrickprogramme/podscribe/internal/bootstrap"
	"github.com/patrickprogramme/podscribe/internal/config"
	"github.com/patrickprogramme/podscribe/internal/telegram"
	"github.com/patrickprogramme/podscribe/internal/ui"
)

func main() {
	flags := parseFlags()

	// déterminer exePath/binDir
	binDir := "."
	exePath, err := os.Executable()
	if err != nil {
		log.Printf("impossible de déterminer le chemin de l'executable: %v", err)
	} else {
		binDir = filepath.Dir(exePath)
		fmt.Printf("Lancement depuis: %s\n", exePath)
	}

	// emplacement config par défaut
	if flags.ConfigPath == "podscribe.yaml" || flags.ConfigPath == "" {
		flags.ConfigPath = filepath.Join(binDir, "podscribe.yaml")
	}

	// s'assurer que le fichier config existe, si non on le crée
	if err := bootstrap.EnsureConfigPresent(
		flags.ConfigPath,
		assets.Embedded,
		assets.DefaultConfigAsset,
	); err != nil {
		log.Printf("erreur: EnsureConfigPresent: %v", err)
	}

	// charger la config depuis flags.ConfigPath
	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	// validations non-fatales : backend de marques + clés d'API
	warnings, err := cfg.ValidateMarksBackend()
	if err != nil {
		log.Fatalf("configuration des marques: %v", err)
	}
	warnings = append(warnings, cfg.ValidateProviders()...)
	for _, w := range warnings {
		log.Printf("warning: %s", w)
	}

	// root context qui s'annule sur SIGINT / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider := telegram.NewClient(cfg.Telegram.Token, "", 0)
	tui := ui.NewTerminal()
	a := app.New(cfg, tui, flags, provider, log.Default())
	if err := a.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("app run: %v", err)
	}
}

func parseFlags() *app.CLIFlags {
	f := &app.CLIFlags{}
	flag.StringVar(&f.ConfigPath, "config", "podscribe.yaml", "path to config file")
	flag.StringVar(&f.Channel, "channel", "", "canal Telegram (@nom, lien t.me/... ou id)")
	flag.StringVar(&f.ListenAddr, "listen", "", "adresse du serveur WebSocket de l'interface")
	flag.Parse()
	return f
}
