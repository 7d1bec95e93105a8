package users

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/gorm"
)

// DirectoryConfig contains configuration for creating a user directory
type DirectoryConfig struct {
	Pool    *pgxpool.Pool
	DB      *gorm.DB
	DataDir string
}

// NewDirectory creates a user directory based on the persistence type
func NewDirectory(persistenceType string, config DirectoryConfig) (Directory, error) {
	switch persistenceType {
	case "postgres", "postgresql":
		if config.Pool == nil {
			return nil, fmt.Errorf("pool required for postgres directory")
		}
		return NewPostgresDirectory(config.Pool), nil
	case "gorm", "gorm-sqlite", "gorm-postgres":
		if config.DB == nil {
			return nil, fmt.Errorf("gorm db required for gorm directory")
		}
		return NewGormDirectory(config.DB), nil
	case "file":
		if config.DataDir == "" {
			return nil, fmt.Errorf("dataDir required for file directory")
		}
		return NewFileDirectory(config.DataDir)
	default:
		return nil, fmt.Errorf("unsupported persistence type: %s (supported: postgres, gorm-sqlite, gorm-postgres, file)", persistenceType)
	}
}
