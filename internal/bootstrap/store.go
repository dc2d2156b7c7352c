package bootstrap

import (
	"context"
	"os"
	"path/filepath"

	"github.com/jrsteele09/mento-client/credentials"
	"github.com/jrsteele09/mento-client/credentials/filestore"
	"github.com/jrsteele09/mento-client/credentials/memstore"
	"github.com/jrsteele09/mento-client/credentials/redisstore"
	"github.com/jrsteele09/mento-client/credentials/sqlitestore"
	"github.com/jrsteele09/mento-client/internal/config"
	internalerrors "github.com/jrsteele09/mento-client/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// NewStore opens the credential store selected by the configuration. The
// returned close function is never nil.
func NewStore(ctx context.Context, c config.SessionConfig) (credentials.Store, func() error, error) {
	noop := func() error { return nil }
	backend := c.GetStoreBackend()

	switch backend {
	case config.StoreBackendMemory:
		log.Warn().Msg("Using in-memory credential store, sessions will not survive a restart")
		return memstore.New(), noop, nil

	case config.StoreBackendFile:
		var options []filestore.Option
		if passphrase := c.GetStorePassphrase(); passphrase != "" {
			options = append(options, filestore.WithPassphrase(passphrase))
		}
		fs, err := filestore.New(c.GetStorePath(), options...)
		if err != nil {
			return nil, nil, err
		}
		log.Debug().Str("path", fs.Path()).Bool("sealed", c.GetStorePassphrase() != "").Msg("Opened file credential store")
		return fs, noop, nil

	case config.StoreBackendRedis:
		rs, err := redisstore.NewFromURL(ctx, c.GetRedisURL(), redisstore.DefaultPrefix)
		if err != nil {
			return nil, nil, err
		}
		return rs, rs.Close, nil

	case config.StoreBackendSQLite:
		path := c.GetSQLitePath()
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, nil, errors.Wrap(err, "bootstrap sqlite folder")
		}
		ss, err := sqlitestore.New(path)
		if err != nil {
			return nil, nil, err
		}
		return ss, ss.Close, nil
	}
	return nil, nil, internalerrors.Wrapf(internalerrors.ErrUnknownBackend, "%q", backend)
}
