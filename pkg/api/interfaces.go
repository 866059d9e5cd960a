// Package api provides interfaces for dependency injection
package api

import (
	"context"

	"github.com/sirupsen/logrus"
)

// CatalogStore is a catalog that owns resources and must be closed
type CatalogStore interface {
	ICatalog
	Close() error
}

// CatalogFactory opens catalogs
type CatalogFactory interface {
	// OpenCatalog opens or creates the catalog stored in dir
	OpenCatalog(dir string, log logrus.FieldLogger) (CatalogStore, error)
}

// ServerStarter defines the interface for starting the API server
type ServerStarter interface {
	// StartServer serves the API until ctx is cancelled
	StartServer(ctx context.Context, cat ICatalog, config ServerConfig, log logrus.FieldLogger) error
}

// ServerFactory creates server instances
type ServerFactory interface {
	// CreateServerStarter creates a server starter
	CreateServerStarter() ServerStarter
}
