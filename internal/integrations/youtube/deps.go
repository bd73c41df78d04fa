package youtube

import (
	"playlistomatic/internal/config"
	"playlistomatic/internal/httpx"
	"playlistomatic/internal/report"
)

type Config = config.Config
type Group = report.Group

var externalHTTPClient = httpx.ExternalHTTPClient()
