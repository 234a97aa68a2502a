package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// ValidateMarksBackend vérifie de manière statique que le backend de marques
// configuré est utilisable : valeur connue, répertoire accessible pour le
// backend fichier, DSN présent pour Postgres.
// Retourne warnings (non-fataux) et une erreur si c'est critique.
func (c *Config) ValidateMarksBackend() (warnings []string, err error) {
	if c == nil {
		return nil, fmt.Errorf("config nil")
	}

	switch c.Marks.Backend {
	case MarksBackendFile:
		parent := filepath.Dir(c.Marks.Dir)
		if st, serr := os.Stat(parent); serr != nil {
			if os.IsNotExist(serr) {
				// créé à la première écriture, simple avertissement
				warnings = append(warnings, fmt.Sprintf("le dossier parent du répertoire de marques n'existe pas encore : %s", parent))
			} else {
				return warnings, fmt.Errorf("impossible d'accéder au dossier parent %s : %w", parent, serr)
			}
		} else if !st.IsDir() {
			return warnings, fmt.Errorf("le parent du répertoire de marques n'est pas un répertoire : %s", parent)
		}
	case MarksBackendPostgres:
		if c.Marks.PostgresDSN == "" {
			return warnings, fmt.Errorf("backend postgres sans postgres_dsn")
		}
	default:
		return warnings, fmt.Errorf("backend de marques inconnu : %q (attendu %s ou %s)", c.Marks.Backend, MarksBackendFile, MarksBackendPostgres)
	}

	return warnings, nil
}

// ValidateProviders signale les clés d'API absentes. Non-fatal : le lecteur
// bascule sur les données de repli quand un provider est injoignable.
func (c *Config) ValidateProviders() (warnings []string) {
	if c.Telegram.Token == "" {
		warnings = append(warnings, "telegram.token absent : le catalogue d'épisodes de repli sera utilisé")
	}
	if c.AssemblyAI.APIKey == "" {
		warnings = append(warnings, "assemblyai.api_key absent : les transcriptions de repli seront utilisées")
	}
	return warnings
}
