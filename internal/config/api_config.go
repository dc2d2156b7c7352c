package config

import (
	"strings"
	"time"

	"github.com/jrsteele09/mento-client/internal/utils"
)

const (
	baseURLVar        = "API_BASE_URL"
	refreshPathVar    = "REFRESH_PATH"
	requestTimeoutVar = "REQUEST_TIMEOUT"
	refreshTimeoutVar = "REFRESH_TIMEOUT"

	defaultBaseURL = "https://api.mentoservices.com/api/v1"
)

type API struct {
	file *FileValues
}

var _ APIConfig = API{}

// GetBaseURL returns the backend base URL without a trailing slash.
func (a API) GetBaseURL() string {
	return strings.TrimRight(GetEnv(baseURLVar, utils.FirstNonEmpty(a.file.API.BaseURL, defaultBaseURL)), "/")
}

func (a API) GetRefreshPath() string {
	path := GetEnv(refreshPathVar, utils.FirstNonEmpty(a.file.API.RefreshPath, "/auth/refresh"))
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

func (a API) GetRequestTimeout() time.Duration {
	return GetDuration(requestTimeoutVar, a.file.API.RequestTimeout, 30*time.Second)
}

func (a API) GetRefreshTimeout() time.Duration {
	return GetDuration(refreshTimeoutVar, a.file.API.RefreshTimeout, 15*time.Second)
}
