package svc

import (
	"fmt"

	"github.com/loftside/swingbridge/internal/analysis"
	"github.com/loftside/swingbridge/internal/config"
	"github.com/loftside/swingbridge/internal/crashlog"
	"github.com/loftside/swingbridge/internal/logging"
	"github.com/loftside/swingbridge/internal/notify"
	"github.com/loftside/swingbridge/internal/pipeline"
	"github.com/loftside/swingbridge/internal/provider"
	"github.com/loftside/swingbridge/internal/store"
)

// ServiceContext carries the shared dependencies handlers, the report
// scheduler, and the CLI all draw from.
type ServiceContext struct {
	Config  config.Config
	Version string

	Store    *store.Store
	Sessions *provider.Client
	Analysis analysis.Service
	Notifier notify.Notifier
	Pipeline *pipeline.Pipeline
}

// NewServiceContext wires the dependency graph from configuration. Pass a
// *store.Store to reuse an existing database connection, or nil to open one.
func NewServiceContext(c config.Config, version string, database ...*store.Store) (*ServiceContext, error) {
	var st *store.Store
	if len(database) > 0 && database[0] != nil {
		st = database[0]
		logging.Debugf("Using shared database connection")
	} else {
		var err error
		st, err = store.Open(c.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
	}

	crashlog.Init(st)

	sessions := provider.NewClient(c.Provider)
	analysisSvc := analysis.New(c.Analysis)
	notifier := notify.NewWebhook(c.Notify)

	pipe := pipeline.New(pipeline.Deps{
		Sessions: sessions,
		Players:  st,
		Analysis: analysisSvc,
		Notifier: notifier,
		Activity: st,
		Connect:  pipeline.DashboardConnector(c.Dashboard),
	})

	return &ServiceContext{
		Config:   c,
		Version:  version,
		Store:    st,
		Sessions: sessions,
		Analysis: analysisSvc,
		Notifier: notifier,
		Pipeline: pipe,
	}, nil
}

// Close releases held resources. Safe to call once at shutdown.
func (svc *ServiceContext) Close() {
	if svc.Store != nil {
		if err := svc.Store.Close(); err != nil {
			logging.Warnf("Closing store: %v", err)
		}
	}
	logging.Debugf("Service context closed")
}
