package ui

import (
	"context"
)

type Interface interface {
	// GetChannelRef doit renvoyer une référence de canal valide
	// (@username, lien t.me/... ou id numérique).
	// Implémentation terminale : priorité clipboard -> prompt
	GetChannelRef(ctx context.Context) (string, error)

	// ReadCommand lit une ligne de commande de l'utilisateur (boucle interactive).
	ReadCommand(ctx context.Context, prompt string) (string, error)

	// WaitForExit bloque jusqu'à ce qu'un signal d'annulation soit reçu via ctx (Ctrl+C).
	WaitForExit(ctx context.Context) error

	PrintInfo(ctx context.Context, s string)
	PrintError(ctx context.Context, s string)
}
