package store

import (
	"fmt"
	"strings"

	"github.com/nimburion/taskboard/pkg/config"
	"github.com/nimburion/taskboard/pkg/document"
	"github.com/nimburion/taskboard/pkg/observability/logger"
	"github.com/nimburion/taskboard/pkg/repository"
	"github.com/nimburion/taskboard/pkg/store/mongodb"
	"github.com/nimburion/taskboard/pkg/store/postgres"
	"github.com/nimburion/taskboard/pkg/store/s3"
)

// Open selects and initializes the persistence backend from config.
// An empty type means memory.
func Open(cfg config.DatabaseConfig, log logger.Logger) (*Backend, error) {
	kind := strings.ToLower(strings.TrimSpace(cfg.Type))
	switch kind {
	case "", config.DatabaseTypeMemory:
		mem := document.NewMemoryCollections(document.New())
		return &Backend{
			Type:      config.DatabaseTypeMemory,
			Documents: mem,
			Tx:        repository.NoTransaction{},
			adapter:   mem,
		}, nil
	case config.DatabaseTypePostgres:
		pg, err := postgres.NewAdapter(postgres.ConfigFrom(cfg), log)
		if err != nil {
			return nil, err
		}
		return &Backend{
			Type:    kind,
			SQL:     pg,
			DB:      pg.DB(),
			Tx:      pg,
			adapter: pg,
		}, nil
	case config.DatabaseTypeMongoDB:
		mongo, err := mongodb.NewAdapter(mongodb.ConfigFrom(cfg), log)
		if err != nil {
			return nil, err
		}
		return &Backend{
			Type:      kind,
			Documents: mongo,
			Tx:        repository.NoTransaction{},
			adapter:   mongo,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported database.type %q (supported: memory, postgres, mongodb)", cfg.Type)
	}
}

// OpenObjectStore connects the S3 adapter used for uploads. It returns nil
// when uploads are kept on the local filesystem.
func OpenObjectStore(files config.FilesConfig, cfg config.S3Config, log logger.Logger) (*s3.Adapter, error) {
	if !strings.EqualFold(strings.TrimSpace(files.Backend), config.FilesBackendS3) {
		return nil, nil
	}
	return s3.NewAdapter(s3.ConfigFrom(cfg), log)
}
