package models

import (
	"time"

	"github.com/google/uuid"
)

// ──────────────────── Item Types ────────────────────

// ItemType distinguishes the two kinds of library entries.
type ItemType string

const (
	ItemTypeMovie ItemType = "movie"
	ItemTypeScene ItemType = "scene"
)

// Gender of a performer, used for credit filtering and sort order in naming.
type Gender string

const (
	GenderFemale Gender = "female"
	GenderMale   Gender = "male"
	GenderOther  Gender = "other"
)

// ──────────────────── Studios & Performers ────────────────────

type Studio struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ForeignID string    `json:"foreign_id" db:"foreign_id"`
	Title     string    `json:"title" db:"title"`
	Slug      string    `json:"slug" db:"slug"`
	Network   *string   `json:"network,omitempty" db:"network"`
	Website   *string   `json:"website,omitempty" db:"website"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Performer struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ForeignID string    `json:"foreign_id" db:"foreign_id"`
	Name      string    `json:"name" db:"name"`
	Gender    Gender    `json:"gender" db:"gender"`
}

// Credit links a performer to a library item. Character is the in-scene
// alias some releases are named after; naming tokens can prefer it.
type Credit struct {
	Performer Performer `json:"performer"`
	Character *string   `json:"character,omitempty"`
	SortOrder int       `json:"sort_order"`
}

// ──────────────────── Library Items ────────────────────

// LibraryItem is a movie or scene entry in the library. An item with ID 0
// has not been persisted yet ("new" in identification results).
type LibraryItem struct {
	ID               int64       `json:"id" db:"id"`
	ForeignID        string      `json:"foreign_id" db:"foreign_id"`
	Title            string      `json:"title" db:"title"`
	SortTitle        string      `json:"sort_title" db:"sort_title"`
	Year             int         `json:"year" db:"year"`
	ReleaseDate      *time.Time  `json:"release_date,omitempty" db:"release_date"`
	ItemType         ItemType    `json:"item_type" db:"item_type"`
	QualityProfileID int64       `json:"quality_profile_id" db:"quality_profile_id"`
	RootFolderPath   string      `json:"root_folder_path" db:"root_folder_path"`
	Path             string      `json:"path" db:"path"`
	Monitored        bool        `json:"monitored" db:"monitored"`
	StudioID         *uuid.UUID  `json:"studio_id,omitempty" db:"studio_id"`
	Studio           *Studio     `json:"studio,omitempty" db:"-"`
	Credits          []Credit    `json:"credits,omitempty" db:"-"`
	Genres           []string    `json:"genres,omitempty" db:"-"`
	Code             string      `json:"code,omitempty" db:"code"`
	FileID           int64       `json:"file_id" db:"file_id"`
	File             *FileRecord `json:"file,omitempty" db:"-"`
	Added            time.Time   `json:"added" db:"added"`
	LastScanned      *time.Time  `json:"last_scanned,omitempty" db:"last_scanned"`
}

// HasFile reports whether the item currently owns a file record.
func (i *LibraryItem) HasFile() bool { return i.FileID != 0 }

// ──────────────────── Quality ────────────────────

// Source is where a release was captured from.
type Source string

const (
	SourceUnknown Source = "unknown"
	SourceCam     Source = "cam"
	SourceTV      Source = "tv"
	SourceDVD     Source = "dvd"
	SourceWebDL   Source = "webdl"
	SourceWebRip  Source = "webrip"
	SourceBluray  Source = "bluray"
)

// QualityDefinition names one (source, resolution) combination.
// Weight orders definitions from worst to best for upgrade checks.
type QualityDefinition struct {
	ID         int    `json:"id"`
	Title      string `json:"title"`
	Source     Source `json:"source"`
	Resolution int    `json:"resolution"`
	Weight     int    `json:"weight"`
}

// Revision carries proper/real repack state for a release.
type Revision struct {
	Version int `json:"version"`
	Real    int `json:"real"`
}

// IsProper reports whether this is a revised (v2+) release.
func (r Revision) IsProper() bool { return r.Version > 1 }

// IsReal reports whether the release was re-issued as a REAL fix.
func (r Revision) IsReal() bool { return r.Real > 0 }

type Quality struct {
	Definition QualityDefinition `json:"quality"`
	Revision   Revision          `json:"revision"`
}

// ──────────────────── Media Info ────────────────────

type MediaInfo struct {
	VideoCodec        string   `json:"video_codec"`
	VideoBitDepth     int      `json:"video_bit_depth"`
	Width             int      `json:"width"`
	Height            int      `json:"height"`
	AudioCodec        string   `json:"audio_codec"`
	AudioChannels     float64  `json:"audio_channels"`
	AudioLanguages    []string `json:"audio_languages,omitempty"`
	SubtitleLanguages []string `json:"subtitle_languages,omitempty"`
	RunTimeSeconds    int      `json:"run_time_seconds"`
}

// ──────────────────── File Records ────────────────────

// UnmappedItemID is the sentinel parent id for file records that no
// library item claims.
const UnmappedItemID int64 = 0

// FileRecord is one indexed on-disk video file, owned by at most one
// library item. RelativePath is relative to the owning item's folder;
// OriginalPath is the absolute path the file was discovered at and is the
// identity key for unmapped records.
type FileRecord struct {
	ID           int64      `json:"id" db:"id"`
	ItemID       int64      `json:"item_id" db:"item_id"`
	RelativePath string     `json:"relative_path" db:"relative_path"`
	OriginalPath string     `json:"original_path" db:"original_path"`
	Size         int64      `json:"size" db:"size"`
	Quality      Quality    `json:"quality" db:"quality"`
	MediaInfo    *MediaInfo `json:"media_info,omitempty" db:"media_info"`
	SceneName    string     `json:"scene_name" db:"scene_name"`
	ReleaseGroup string     `json:"release_group" db:"release_group"`
	Edition      string     `json:"edition" db:"edition"`
	DateAdded    time.Time  `json:"date_added" db:"date_added"`
}

// Unmapped reports whether the record has no owning library item.
func (f *FileRecord) Unmapped() bool { return f.ItemID == UnmappedItemID }

// ──────────────────── Naming Configuration ────────────────────

// ColonReplacement selects how colons in titles are rewritten.
// Values follow the *arr convention so exported configs stay portable.
type ColonReplacement int

const (
	ColonDelete         ColonReplacement = 0
	ColonDash           ColonReplacement = 1
	ColonSpaceDash      ColonReplacement = 2
	ColonSpaceDashSpace ColonReplacement = 3
	ColonSmart          ColonReplacement = 4
)

// NamingConfig is the process-wide naming snapshot. It is loaded once,
// replaced wholesale on user update, and read-only within a naming call.
type NamingConfig struct {
	RenameMovies             bool             `json:"rename_movies"`
	RenameScenes             bool             `json:"rename_scenes"`
	ReplaceIllegalCharacters bool             `json:"replace_illegal_characters"`
	ColonReplacement         ColonReplacement `json:"colon_replacement"`
	StandardMovieFormat      string           `json:"standard_movie_format"`
	MovieFolderFormat        string           `json:"movie_folder_format"`
	StandardSceneFormat      string           `json:"standard_scene_format"`
	SceneFolderFormat        string           `json:"scene_folder_format"`
	ReleaseGroupFallback     string           `json:"release_group_fallback"`
	MaxFolderNameLength      int              `json:"max_folder_name_length"`
	MaxFileNameLength        int              `json:"max_file_name_length"`
}

// DefaultNamingConfig mirrors the settings seeded on first start.
func DefaultNamingConfig() NamingConfig {
	return NamingConfig{
		RenameMovies:             true,
		RenameScenes:             true,
		ReplaceIllegalCharacters: true,
		ColonReplacement:         ColonSmart,
		StandardMovieFormat:      "{Movie Title} ({Release Year}) {Quality Full}",
		MovieFolderFormat:        "{Movie Title} ({Release Year})",
		StandardSceneFormat:      "{Studio Title} - {Release Date} - {Scene Title}",
		SceneFolderFormat:        "{Studio Title}",
		MaxFolderNameLength:      255,
		MaxFileNameLength:        255,
	}
}

// ──────────────────── Import Exclusions ────────────────────

// ImportExclusion marks a deleted item that must not be re-imported.
type ImportExclusion struct {
	ID        int64  `json:"id" db:"id"`
	ForeignID string `json:"foreign_id" db:"foreign_id"`
	Title     string `json:"title" db:"title"`
	Year      int    `json:"year" db:"year"`
}

// ──────────────────── Custom Formats ────────────────────

// CustomFormat is an opaque scoring tag; matching and score internals live
// behind the formats collaborator.
type CustomFormat struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ──────────────────── Scan Results ────────────────────

type ScanResult struct {
	RootsScanned  int      `json:"roots_scanned"`
	RootsSkipped  int      `json:"roots_skipped"`
	FilesSeen     int      `json:"files_seen"`
	ItemsQueued   int      `json:"items_queued"`
	UnmappedAdded int      `json:"unmapped_added"`
	FilesImported int      `json:"files_imported"`
	FilesRemoved  int      `json:"files_removed"`
	Errors        []string `json:"errors,omitempty"`
}
