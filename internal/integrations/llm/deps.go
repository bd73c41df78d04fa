package llm

import (
	"playlistomatic/internal/config"
	"playlistomatic/internal/domain"
	"playlistomatic/internal/httpx"
)

type Config = config.Config
type Label = domain.Label
type CategorySet = domain.CategorySet

var externalHTTPClient = httpx.ExternalHTTPClient()
