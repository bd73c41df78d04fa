package slackbot

import (
	"playlistomatic/internal/classify"
	"playlistomatic/internal/config"
	"playlistomatic/internal/domain"
)

type Config = config.Config
type Outcome = classify.Outcome
type Failure = domain.Failure
