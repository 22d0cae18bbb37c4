package tide

import (
	"tidereport/internal/config"
	"tidereport/internal/domain"
	"tidereport/internal/httpx"
)

type Config = config.Config
type ThreatRecord = domain.ThreatRecord
type QueryResult = domain.QueryResult
type QueryFailure = domain.QueryFailure

var externalHTTPClient = httpx.ExternalHTTPClient()
