package config

import (
	"fmt"
	"strings"

	"github.com/jrsteele09/mento-client/internal/utils"
)

type FakeBackend struct {
	file *FileValues
}

var _ FakeBackendConfig = FakeBackend{}

func (f FakeBackend) GetFakeBackendPort() string {
	port := GetEnv("FAKE_BACKEND_PORT", utils.FirstNonEmpty(f.file.FakeBackend.Port, "8000"))
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (f FakeBackend) GetFakeBackendSecret() string {
	return GetEnv("FAKE_BACKEND_SECRET", utils.FirstNonEmpty(f.file.FakeBackend.Secret, "fake-backend-dev-secret"))
}
