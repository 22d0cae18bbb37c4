package slackbot

import (
	"tidereport/internal/config"
	"tidereport/internal/httpx"
)

type Config = config.Config

var externalHTTPClient = httpx.ExternalHTTPClient()
