package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/patrickprogramme/podscribe/internal/assets"
	"github.com/patrickprogramme/podscribe/internal/fsutil"
	"github.com/patrickprogramme/podscribe/pkg/model"
	"gopkg.in/yaml.v3"
)

const CurrentConfigVersion = 1

// Backends de persistance des marques.
const (
	MarksBackendFile     = "file"
	MarksBackendPostgres = "postgres"
)

// struct pour les paramètres de configuration
type Config struct {
	// Canal Telegram
	Telegram struct {
		Token   string `yaml:"token"`
		Channel string `yaml:"channel"`
	} `yaml:"telegram"`

	// Service de transcription
	AssemblyAI struct {
		APIKey  string `yaml:"api_key"`
		BaseURL string `yaml:"base_url"`
	} `yaml:"assemblyai"`

	// Polling du statut de transcription
	Transcription struct {
		PollIntervalSeconds int `yaml:"poll_interval_seconds"`
		MaxPollAttempts     int `yaml:"max_poll_attempts"`
	} `yaml:"transcription"`

	// Persistance des marques
	Marks struct {
		Backend     string `yaml:"backend"` // file | postgres
		Dir         string `yaml:"dir"`
		PostgresDSN string `yaml:"postgres_dsn"`
	} `yaml:"marks"`

	// Langue active au démarrage (ru ou es)
	Language string `yaml:"language"`

	// Répertoire de dépôt de fichiers de transcription
	TranscriptDropDir string `yaml:"transcript_drop_dir"`

	// Interface WebSocket
	UI struct {
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"ui"`

	ConfigVersion int `yaml:"config_version"`

	configFilePath string
}

// Configuration par défaut (fallback si l'asset embarqué est manquant)
func defaultConfig() *Config {
	c := &Config{}

	c.Telegram.Token = ""
	c.Telegram.Channel = "meditationdosmundos"

	c.AssemblyAI.APIKey = ""
	c.AssemblyAI.BaseURL = ""

	c.Transcription.PollIntervalSeconds = 10
	c.Transcription.MaxPollAttempts = 90

	c.Marks.Backend = MarksBackendFile
	c.Marks.Dir = "./data/marks"
	c.Marks.PostgresDSN = ""

	c.Language = string(model.DefaultLanguage)
	c.TranscriptDropDir = "./transcripts"

	c.UI.ListenAddr = "127.0.0.1:8765"

	c.ConfigVersion = CurrentConfigVersion

	return c
}

// Load lit la config; si le fichier n'existe pas, on copie l'exemple embarqué depuis internal/assets
func Load(path string) (*Config, error) {
	if path == "" {
		path = "podscribe.yaml"
	}

	// si le fichier n'existe pas -> essayer de créer à partir de l'asset embarqué
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := createDefaultConfigFromEmbedded(path); err != nil {
			return nil, fmt.Errorf("échec de création du fichier de configuration par défaut : %w", err)
		}
	}

	cfg := defaultConfig()

	// lire le YAML brut et déserialiser dans cfg (les champs présents écraseront les defaults)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("lecture du fichier de configuration %s impossible : %w", path, err)
	}

	// corriger les chemins Windows avec des backslashes
	data = bytes.ReplaceAll(data, []byte(`\`), []byte(`/`))

	// On déserialise dans cfg initialisé : les champs absents conservent les valeurs par défaut.
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("analyse du fichier de configuration %s impossible : %w", path, err)
	}
	cfg.configFilePath = path

	cfg.normalizeConfig()

	// gestion de version : si le fichier est plus ancien -> orchestrer la mise à jour
	if cfg.ConfigVersion < CurrentConfigVersion {
		if err := orchestrateConfigUpgrade(cfg, cfg.ConfigVersion); err != nil {
			return nil, fmt.Errorf("échec de mise à niveau de la configuration : %w", err)
		}
		// re-normaliser au cas où la migration a modifié des valeurs
		cfg.normalizeConfig()
	}

	return cfg, nil
}

func createDefaultConfigFromEmbedded(dstPath string) error {
	// lire l'asset embarqué via assets.Embedded et DefaultConfigAsset
	b, err := assets.Embedded.ReadFile(assets.DefaultConfigAsset)
	if err != nil {
		return fmt.Errorf("lecture du modèle de configuration embarqué impossible : %w", err)
	}

	// s'assurer que le dossier parent existe
	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return fmt.Errorf("échec mkdir pour la configuration %s : %w", filepath.Dir(dstPath), err)
	}

	// écrire atomiquement sur disque (évite les fichiers partiels)
	if err := fsutil.WriteFileAtomic(dstPath, b, 0o644); err != nil {
		return fmt.Errorf("échec d'écriture du fichier de configuration %s : %w", dstPath, err)
	}

	// log utile pour le debugging
	fmt.Printf("info : fichier de configuration par défaut créé : %s\n", dstPath)
	return nil
}

func (c *Config) normalizeConfig() {
	c.Telegram.Token = strings.TrimSpace(c.Telegram.Token)
	c.Telegram.Channel = strings.TrimSpace(c.Telegram.Channel)
	c.AssemblyAI.APIKey = strings.TrimSpace(c.AssemblyAI.APIKey)
	c.AssemblyAI.BaseURL = strings.TrimSpace(c.AssemblyAI.BaseURL)

	if c.Transcription.PollIntervalSeconds <= 0 {
		c.Transcription.PollIntervalSeconds = 10
	}
	if c.Transcription.MaxPollAttempts <= 0 {
		c.Transcription.MaxPollAttempts = 90
	}

	c.Marks.Backend = strings.TrimSpace(strings.ToLower(c.Marks.Backend))
	if c.Marks.Backend == "" {
		c.Marks.Backend = MarksBackendFile
	}
	if strings.TrimSpace(c.Marks.Dir) == "" {
		c.Marks.Dir = "./data/marks"
	}
	c.Marks.Dir = filepath.Clean(c.Marks.Dir)
	c.Marks.PostgresDSN = strings.TrimSpace(c.Marks.PostgresDSN)

	c.Language = strings.TrimSpace(strings.ToLower(c.Language))
	if _, err := model.ParseLanguage(c.Language); err != nil {
		c.Language = string(model.DefaultLanguage)
	}

	if strings.TrimSpace(c.TranscriptDropDir) == "" {
		c.TranscriptDropDir = "./transcripts"
	}
	c.TranscriptDropDir = filepath.Clean(c.TranscriptDropDir)

	c.UI.ListenAddr = strings.TrimSpace(c.UI.ListenAddr)
	if c.UI.ListenAddr == "" {
		c.UI.ListenAddr = "127.0.0.1:8765"
	}
}

// PollInterval : intervalle de polling sous forme de durée.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Transcription.PollIntervalSeconds) * time.Second
}

// DefaultLanguage : langue configurée, déjà validée par normalizeConfig.
func (c *Config) DefaultLanguage() model.Language {
	lang, err := model.ParseLanguage(c.Language)
	if err != nil {
		return model.DefaultLanguage
	}
	return lang
}
