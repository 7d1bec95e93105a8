package verification

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/gorm"
)

// RepositoryConfig contains configuration for creating a token repository
type RepositoryConfig struct {
	// Pool is required for PostgreSQL repositories
	Pool *pgxpool.Pool
	// DB is required for GORM repositories
	DB *gorm.DB
	// DataDir is required for file-based repositories
	DataDir string
}

// NewRepository creates a token repository based on the persistence type
func NewRepository(persistenceType string, config RepositoryConfig) (Repository, error) {
	switch persistenceType {
	case "postgres", "postgresql":
		if config.Pool == nil {
			return nil, fmt.Errorf("pool required for postgres repository")
		}
		return NewPostgresRepository(config.Pool), nil
	case "gorm", "gorm-sqlite", "gorm-postgres":
		if config.DB == nil {
			return nil, fmt.Errorf("gorm db required for gorm repository")
		}
		return NewGormRepository(config.DB), nil
	case "file":
		if config.DataDir == "" {
			return nil, fmt.Errorf("dataDir required for file repository")
		}
		return NewFileRepository(config.DataDir)
	default:
		return nil, fmt.Errorf("unsupported persistence type: %s (supported: postgres, gorm-sqlite, gorm-postgres, file)", persistenceType)
	}
}
