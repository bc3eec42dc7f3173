package decision

import (
	"path/filepath"

	"github.com/scenevault/scenevault/internal/models"
	"github.com/scenevault/scenevault/internal/parser"
	"github.com/scenevault/scenevault/internal/qualities"
)

// Confidence ranks augmentation evidence. Higher wins; on ties the
// augmenter registered earlier wins.
type Confidence int

const (
	ConfidenceDefault Confidence = iota
	ConfidenceFallback
	ConfidenceFolder
	ConfidenceFileName
	ConfidenceMediaInfo
)

// AugmentResult is a confidence-tagged partial quality inference. A zero
// Resolution or SourceUnknown means that axis was not inferred.
type AugmentResult struct {
	Resolution           int
	ResolutionConfidence Confidence
	Source               models.Source
	SourceConfidence     Confidence
	Revision             *models.Revision
}

// Augmenter contributes one partial inference for a candidate. Returning
// nil means the augmenter has nothing to say about this file.
type Augmenter interface {
	Name() string
	Augment(c *Candidate, dl *DownloadContext) (*AugmentResult, error)
}

// mergeAugmentResults reduces the ordered results to a single quality:
// per axis, strictly higher confidence replaces the running winner, so
// declaration order breaks ties in favor of the earlier augmenter.
func mergeAugmentResults(results []*AugmentResult) models.Quality {
	resolution, source := 0, models.SourceUnknown
	resConf, srcConf := Confidence(-1), Confidence(-1)
	revision := models.Revision{Version: 1}

	for _, r := range results {
		if r == nil {
			continue
		}
		if r.Resolution > 0 && r.ResolutionConfidence > resConf {
			resolution = r.Resolution
			resConf = r.ResolutionConfidence
		}
		if r.Source != models.SourceUnknown && r.Source != "" && r.SourceConfidence > srcConf {
			source = r.Source
			srcConf = r.SourceConfidence
		}
		if r.Revision != nil {
			if r.Revision.Version > revision.Version {
				revision.Version = r.Revision.Version
			}
			if r.Revision.Real > revision.Real {
				revision.Real = r.Revision.Real
			}
		}
	}

	return models.Quality{
		Definition: qualities.Find(source, resolution),
		Revision:   revision,
	}
}

// DefaultAugmenters returns the standard ordered chain.
func DefaultAugmenters() []Augmenter {
	return []Augmenter{
		qualityFromFileName{},
		qualityFromFolder{},
		qualityFromDownloadContext{},
		qualityFromMediaInfo{},
	}
}

// ──────────────────── Concrete Augmenters ────────────────────

// qualityFromFileName reads resolution/source hints out of the parsed name.
type qualityFromFileName struct{}

func (qualityFromFileName) Name() string { return "qualityFromFileName" }

func (qualityFromFileName) Augment(c *Candidate, _ *DownloadContext) (*AugmentResult, error) {
	if c.ParsedInfo == nil {
		return nil, nil
	}
	q := c.ParsedInfo.Quality
	return &AugmentResult{
		Resolution:           q.Definition.Resolution,
		ResolutionConfidence: ConfidenceFileName,
		Source:               q.Definition.Source,
		SourceConfidence:     ConfidenceFileName,
		Revision:             &q.Revision,
	}, nil
}

// qualityFromFolder parses the containing folder name, which often keeps
// release tokens the file name lost.
type qualityFromFolder struct{}

func (qualityFromFolder) Name() string { return "qualityFromFolder" }

func (qualityFromFolder) Augment(c *Candidate, _ *DownloadContext) (*AugmentResult, error) {
	folder := filepath.Base(filepath.Dir(c.Path))
	if folder == "." || folder == string(filepath.Separator) {
		return nil, nil
	}
	info := parser.Parse(folder + ".mkv")
	if info == nil {
		return nil, nil
	}
	q := info.Quality
	if q.Definition.Resolution == 0 && q.Definition.Source == models.SourceUnknown {
		return nil, nil
	}
	return &AugmentResult{
		Resolution:           q.Definition.Resolution,
		ResolutionConfidence: ConfidenceFolder,
		Source:               q.Definition.Source,
		SourceConfidence:     ConfidenceFolder,
	}, nil
}

// qualityFromDownloadContext trusts what the download client grabbed.
type qualityFromDownloadContext struct{}

func (qualityFromDownloadContext) Name() string { return "qualityFromDownloadContext" }

func (qualityFromDownloadContext) Augment(_ *Candidate, dl *DownloadContext) (*AugmentResult, error) {
	if dl == nil {
		return nil, nil
	}
	if dl.Quality != nil {
		return &AugmentResult{
			Resolution:           dl.Quality.Definition.Resolution,
			ResolutionConfidence: ConfidenceFallback,
			Source:               dl.Quality.Definition.Source,
			SourceConfidence:     ConfidenceFallback,
			Revision:             &dl.Quality.Revision,
		}, nil
	}
	info := parser.Parse(dl.Title)
	if info == nil {
		return nil, nil
	}
	return &AugmentResult{
		Resolution:           info.Quality.Definition.Resolution,
		ResolutionConfidence: ConfidenceFallback,
		Source:               info.Quality.Definition.Source,
		SourceConfidence:     ConfidenceFallback,
	}, nil
}

// qualityFromMediaInfo reads the real frame height; it says nothing about
// the source.
type qualityFromMediaInfo struct{}

func (qualityFromMediaInfo) Name() string { return "qualityFromMediaInfo" }

func (qualityFromMediaInfo) Augment(c *Candidate, _ *DownloadContext) (*AugmentResult, error) {
	if c.MediaInfo == nil || c.MediaInfo.Height == 0 {
		return nil, nil
	}
	return &AugmentResult{
		Resolution:           qualities.ResolutionFromHeight(c.MediaInfo.Height),
		ResolutionConfidence: ConfidenceMediaInfo,
	}, nil
}
