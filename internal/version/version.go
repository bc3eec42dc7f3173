package version

import (
	"encoding/json"
	"os"

	"github.com/rs/zerolog/log"
)

type Info struct {
	Version string `json:"version"`
}

func Load() Info {
	data, err := os.ReadFile("version.json")
	if err != nil {
		log.Warn().Err(err).Msg("could not read version.json")
		return Info{Version: "0.0.0"}
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		log.Warn().Err(err).Msg("could not parse version.json")
		return Info{Version: "0.0.0"}
	}
	return info
}
