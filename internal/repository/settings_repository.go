package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cast"

	"github.com/scenevault/scenevault/internal/models"
)

// Setting keys. Values are stored as strings and coerced on read, so a
// hand-edited row with "1" or "true" both work.
const (
	KeyRenameMovies             = "naming.rename_movies"
	KeyRenameScenes             = "naming.rename_scenes"
	KeyReplaceIllegalCharacters = "naming.replace_illegal_characters"
	KeyColonReplacement         = "naming.colon_replacement"
	KeyStandardMovieFormat      = "naming.standard_movie_format"
	KeyMovieFolderFormat        = "naming.movie_folder_format"
	KeyStandardSceneFormat      = "naming.standard_scene_format"
	KeySceneFolderFormat        = "naming.scene_folder_format"
	KeyReleaseGroupFallback     = "naming.release_group_fallback"
	KeyMaxFolderNameLength      = "naming.max_folder_name_length"
	KeyMaxFileNameLength        = "naming.max_file_name_length"

	KeyRootFolders        = "scan.root_folders"
	KeyFilterExtras       = "scan.filter_extras"
	KeyDeleteEmptyFolders = "scan.delete_empty_folders"
)

type SettingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get retrieves a setting value by key. Returns empty string if not found.
func (r *SettingsRepository) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// Set upserts a setting key-value pair.
func (r *SettingsRepository) Set(ctx context.Context, key, value string) error {
	query := `INSERT INTO settings (key, value, updated_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT (key) DO UPDATE SET value = $2, updated_at = CURRENT_TIMESTAMP`
	_, err := r.db.ExecContext(ctx, query, key, value)
	return err
}

// GetAll returns all settings as a map.
func (r *SettingsRepository) GetAll(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		settings[k] = v
	}
	return settings, rows.Err()
}

// NamingConfig assembles the naming snapshot from stored settings, filling
// gaps with the seeded defaults.
func (r *SettingsRepository) NamingConfig(ctx context.Context) (models.NamingConfig, error) {
	cfg := models.DefaultNamingConfig()
	all, err := r.GetAll(ctx)
	if err != nil {
		return cfg, err
	}

	boolSetting(all, KeyRenameMovies, &cfg.RenameMovies)
	boolSetting(all, KeyRenameScenes, &cfg.RenameScenes)
	boolSetting(all, KeyReplaceIllegalCharacters, &cfg.ReplaceIllegalCharacters)
	stringSetting(all, KeyStandardMovieFormat, &cfg.StandardMovieFormat)
	stringSetting(all, KeyMovieFolderFormat, &cfg.MovieFolderFormat)
	stringSetting(all, KeyStandardSceneFormat, &cfg.StandardSceneFormat)
	stringSetting(all, KeySceneFolderFormat, &cfg.SceneFolderFormat)
	stringSetting(all, KeyReleaseGroupFallback, &cfg.ReleaseGroupFallback)
	intSetting(all, KeyMaxFolderNameLength, &cfg.MaxFolderNameLength)
	intSetting(all, KeyMaxFileNameLength, &cfg.MaxFileNameLength)

	if raw, ok := all[KeyColonReplacement]; ok {
		n := cast.ToInt(raw)
		if n >= int(models.ColonDelete) && n <= int(models.ColonSmart) {
			cfg.ColonReplacement = models.ColonReplacement(n)
		}
	}
	return cfg, nil
}

// SaveNamingConfig persists every naming key.
func (r *SettingsRepository) SaveNamingConfig(ctx context.Context, cfg models.NamingConfig) error {
	values := map[string]string{
		KeyRenameMovies:             strconv.FormatBool(cfg.RenameMovies),
		KeyRenameScenes:             strconv.FormatBool(cfg.RenameScenes),
		KeyReplaceIllegalCharacters: strconv.FormatBool(cfg.ReplaceIllegalCharacters),
		KeyColonReplacement:         strconv.Itoa(int(cfg.ColonReplacement)),
		KeyStandardMovieFormat:      cfg.StandardMovieFormat,
		KeyMovieFolderFormat:        cfg.MovieFolderFormat,
		KeyStandardSceneFormat:      cfg.StandardSceneFormat,
		KeySceneFolderFormat:        cfg.SceneFolderFormat,
		KeyReleaseGroupFallback:     cfg.ReleaseGroupFallback,
		KeyMaxFolderNameLength:      strconv.Itoa(cfg.MaxFolderNameLength),
		KeyMaxFileNameLength:        strconv.Itoa(cfg.MaxFileNameLength),
	}
	for key, value := range values {
		if err := r.Set(ctx, key, value); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
	}
	return nil
}

// RootFolders reads the configured roots, stored as a JSON array.
func (r *SettingsRepository) RootFolders(ctx context.Context) ([]string, error) {
	raw, err := r.Get(ctx, KeyRootFolders)
	if err != nil || raw == "" {
		return nil, err
	}
	var roots []string
	if err := json.Unmarshal([]byte(raw), &roots); err != nil {
		return nil, fmt.Errorf("decode %s: %w", KeyRootFolders, err)
	}
	return roots, nil
}

func (r *SettingsRepository) SetRootFolders(ctx context.Context, roots []string) error {
	raw, err := json.Marshal(roots)
	if err != nil {
		return err
	}
	return r.Set(ctx, KeyRootFolders, string(raw))
}

func boolSetting(all map[string]string, key string, dst *bool) {
	if raw, ok := all[key]; ok && raw != "" {
		*dst = cast.ToBool(raw)
	}
}

func intSetting(all map[string]string, key string, dst *int) {
	if raw, ok := all[key]; ok {
		if n := cast.ToInt(raw); n > 0 {
			*dst = n
		}
	}
}

func stringSetting(all map[string]string, key string, dst *string) {
	if raw, ok := all[key]; ok && raw != "" {
		*dst = raw
	}
}
