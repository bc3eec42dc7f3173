// Package qualities holds the fixed quality-definition table and lookups
// used by naming tokens and import augmentation.
package qualities

import "github.com/scenevault/scenevault/internal/models"

// Definitions is ordered worst to best; Weight mirrors slice position so
// upgrade comparisons are a single int compare.
var Definitions = []models.QualityDefinition{
	{ID: 0, Title: "Unknown", Source: models.SourceUnknown, Resolution: 0, Weight: 0},
	{ID: 1, Title: "CAM", Source: models.SourceCam, Resolution: 480, Weight: 1},
	{ID: 2, Title: "DVD", Source: models.SourceDVD, Resolution: 480, Weight: 2},
	{ID: 3, Title: "SDTV", Source: models.SourceTV, Resolution: 480, Weight: 3},
	{ID: 4, Title: "WEBRip-480p", Source: models.SourceWebRip, Resolution: 480, Weight: 4},
	{ID: 5, Title: "WEBDL-480p", Source: models.SourceWebDL, Resolution: 480, Weight: 5},
	{ID: 6, Title: "HDTV-720p", Source: models.SourceTV, Resolution: 720, Weight: 6},
	{ID: 7, Title: "WEBRip-720p", Source: models.SourceWebRip, Resolution: 720, Weight: 7},
	{ID: 8, Title: "WEBDL-720p", Source: models.SourceWebDL, Resolution: 720, Weight: 8},
	{ID: 9, Title: "Bluray-720p", Source: models.SourceBluray, Resolution: 720, Weight: 9},
	{ID: 10, Title: "HDTV-1080p", Source: models.SourceTV, Resolution: 1080, Weight: 10},
	{ID: 11, Title: "WEBRip-1080p", Source: models.SourceWebRip, Resolution: 1080, Weight: 11},
	{ID: 12, Title: "WEBDL-1080p", Source: models.SourceWebDL, Resolution: 1080, Weight: 12},
	{ID: 13, Title: "Bluray-1080p", Source: models.SourceBluray, Resolution: 1080, Weight: 13},
	{ID: 14, Title: "WEBRip-2160p", Source: models.SourceWebRip, Resolution: 2160, Weight: 14},
	{ID: 15, Title: "WEBDL-2160p", Source: models.SourceWebDL, Resolution: 2160, Weight: 15},
	{ID: 16, Title: "Bluray-2160p", Source: models.SourceBluray, Resolution: 2160, Weight: 16},
}

// Unknown is the zero-value definition returned when nothing matches.
var Unknown = Definitions[0]

// Find returns the definition for a (source, resolution) pair. A missing
// source falls back to any definition at the resolution; a full miss
// returns Unknown.
func Find(source models.Source, resolution int) models.QualityDefinition {
	if source != models.SourceUnknown {
		for _, d := range Definitions {
			if d.Source == source && d.Resolution == resolution {
				return d
			}
		}
		// Source known but resolution odd: take the lowest definition
		// for that source so the file still sorts by provenance.
		for _, d := range Definitions {
			if d.Source == source {
				return d
			}
		}
	}
	if resolution > 0 {
		for _, d := range Definitions {
			if d.Source == models.SourceWebDL && d.Resolution == resolution {
				return d
			}
		}
	}
	return Unknown
}

// ByID returns the definition with the given id, or Unknown.
func ByID(id int) models.QualityDefinition {
	for _, d := range Definitions {
		if d.ID == id {
			return d
		}
	}
	return Unknown
}

// ResolutionFromHeight maps media-info frame height onto the nearest
// standard resolution bucket.
func ResolutionFromHeight(height int) int {
	switch {
	case height >= 2000:
		return 2160
	case height >= 900:
		return 1080
	case height >= 650:
		return 720
	case height > 0:
		return 480
	default:
		return 0
	}
}
