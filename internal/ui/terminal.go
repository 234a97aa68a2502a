package ui

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/patrickprogramme/podscribe/internal/clipboard"
	"github.com/patrickprogramme/podscribe/internal/telegram"
)

type terminalUI struct {
	reader *bufio.Reader
}

func NewTerminal() Interface {
	return &terminalUI{reader: bufio.NewReader(os.Stdin)}
}

func (t *terminalUI) GetChannelRef(ctx context.Context) (string, error) {
	// 1) clipboard
	if clip, err := clipboard.ReadAll(); err == nil {
		if telegram.IsChannelRef(clip) {
			ref := telegram.NormalizeChannelRef(clip)
			t.PrintInfo(ctx, fmt.Sprintf("Utilisation du canal depuis le presse-papier: %s", ref))
			return ref, nil
		}
	}
	// 2) prompt
	for {
		fmt.Print("Entrez le canal Telegram (@nom, lien t.me/... ou id): ")
		input, err := t.reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("lecture stdin: %w", err)
		}
		ref := telegram.NormalizeChannelRef(strings.TrimSpace(input))
		if ref != "" {
			return ref, nil
		}
		fmt.Println("❌ Canal invalide. Essayez à nouveau.")
	}
}

func (t *terminalUI) ReadCommand(ctx context.Context, prompt string) (string, error) {
	fmt.Print(prompt)
	input, err := t.reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("lecture stdin: %w", err)
	}
	return strings.TrimSpace(input), nil
}

func (t *terminalUI) WaitForExit(ctx context.Context) error {
	fmt.Println("\n\nAppuyez sur Ctrl+C pour quitter.")

	// Prépare le canal pour les signaux d'interruption
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-ctx.Done(): // Context annulé ailleurs
		return ctx.Err()
	case <-sigCh: // Reçu Ctrl+C (SIGINT ou SIGTERM)
		return nil
	}
}

func (t *terminalUI) PrintInfo(ctx context.Context, s string) {
	fmt.Println(s)
}

func (t *terminalUI) PrintError(ctx context.Context, s string) {
	fmt.Fprintln(os.Stderr, s)
}
