package di

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/ssargent/iso8211/pkg/api"
)

type stubStarter struct{}

func (stubStarter) StartServer(context.Context, api.ICatalog, api.ServerConfig, logrus.FieldLogger) error {
	return nil
}

type stubServerFactory struct{}

func (stubServerFactory) CreateServerStarter() api.ServerStarter { return stubStarter{} }

func TestContainer_Defaults(t *testing.T) {
	c := NewContainer()
	assert.IsType(t, &api.DefaultCatalogFactory{}, c.GetCatalogFactory())
	assert.IsType(t, &api.DefaultServerFactory{}, c.GetServerFactory())
}

func TestContainer_Overrides(t *testing.T) {
	c := NewContainer()
	c.SetServerFactory(stubServerFactory{})
	assert.IsType(t, stubStarter{}, c.GetServerFactory().CreateServerStarter())
}
