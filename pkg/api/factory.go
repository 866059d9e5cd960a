// Package api provides factory implementations for dependency injection
package api

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/ssargent/iso8211/pkg/catalog"
)

// DefaultCatalogFactory opens pebble-backed catalogs
type DefaultCatalogFactory struct{}

// NewCatalogFactory creates a new catalog factory
func NewCatalogFactory() CatalogFactory {
	return &DefaultCatalogFactory{}
}

// OpenCatalog opens the catalog in dir
func (f *DefaultCatalogFactory) OpenCatalog(dir string, log logrus.FieldLogger) (CatalogStore, error) {
	c, err := catalog.Open(dir, catalog.WithLogger(log))
	if err != nil {
		return nil, err
	}
	return c, nil
}

// DefaultServerFactory is the default implementation of ServerFactory
type DefaultServerFactory struct{}

// NewServerFactory creates a new server factory
func NewServerFactory() ServerFactory {
	return &DefaultServerFactory{}
}

// CreateServerStarter creates a server starter
func (f *DefaultServerFactory) CreateServerStarter() ServerStarter {
	return &DefaultServerStarter{}
}

// DefaultServerStarter is the default implementation of ServerStarter
type DefaultServerStarter struct{}

// StartServer starts the API server with the given configuration
func (s *DefaultServerStarter) StartServer(ctx context.Context, cat ICatalog, config ServerConfig, log logrus.FieldLogger) error {
	return StartServer(ctx, cat, config, log)
}
