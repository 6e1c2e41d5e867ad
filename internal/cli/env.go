package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"

	"ert-inspection/internal/common/camunda"
	"ert-inspection/internal/common/config"
	"ert-inspection/internal/common/database"
	"ert-inspection/internal/common/logger"
	"ert-inspection/internal/common/observability"
	"ert-inspection/internal/draft"
	"ert-inspection/internal/inspection"
	"ert-inspection/internal/records"
	"ert-inspection/internal/report"
	"ert-inspection/internal/submission"
	"ert-inspection/internal/wizard"
	"ert-inspection/pkg/registry"
)

const redisDraftNamespace = "ert:draft:"

// RecordsAPI is the part of the records client the CLI uses.
type RecordsAPI interface {
	records.Creator
	ListRecords(ctx context.Context, resource string) ([]map[string]interface{}, error)
}

// Env is everything a command needs, built once per invocation.
type Env struct {
	Config        *config.Config
	Logger        logger.Logger
	Catalog       *inspection.Catalog
	Backend       draft.Backend
	Records       RecordsAPI
	Exporter      report.Exporter
	Observability *observability.Observability

	closers []func() error
}

// NewEnv wires the draft backend, catalog, records client and exporters
// described by cfg.
func NewEnv(ctx context.Context, cfg *config.Config, log logger.Logger) (*Env, error) {
	env := &Env{Config: cfg, Logger: log, Observability: observability.NewNoop()}

	catalog, err := buildCatalog(cfg, log)
	if err != nil {
		return nil, err
	}
	env.Catalog = catalog

	if err := env.openBackend(ctx); err != nil {
		env.Close()
		return nil, err
	}

	env.Records = records.NewClient(cfg.API.BaseURL, config.GetDuration(cfg.API.Timeout))

	if err := env.buildExporter(); err != nil {
		env.Close()
		return nil, err
	}

	if cfg.Tracing.Enabled {
		tp, err := observability.NewTracerProvider(cfg.App.Name, cfg.Tracing.JaegerEndpoint)
		if err != nil {
			log.Warn("Tracing disabled", map[string]interface{}{"error": err.Error()})
		} else {
			env.addCloser(func() error { observability.ShutdownTracer(tp); return nil })
			env.Observability = observability.New(cfg.App.Name)
			env.addCloser(func() error { env.Observability.Shutdown(); return nil })
		}
	}

	return env, nil
}

func buildCatalog(cfg *config.Config, log logger.Logger) (*inspection.Catalog, error) {
	opts := []inspection.Option{inspection.WithConfig(cfg)}

	if path := cfg.Report.RegistryPath; path != "" {
		reg, err := registry.LoadRegistry(path)
		switch {
		case stderrors.Is(err, os.ErrNotExist):
			log.Debug("Inspection registry not found, using built-ins", map[string]interface{}{"path": path})
		case err != nil:
			return nil, err
		default:
			if err := reg.Validate(inspection.KnownTypes()); err != nil {
				return nil, fmt.Errorf("invalid inspection registry %s: %w", path, err)
			}
			opts = append(opts, inspection.WithRegistry(reg))
		}
	}

	return inspection.NewCatalog(opts...)
}

func (e *Env) openBackend(ctx context.Context) error {
	cfg := e.Config
	switch cfg.Drafts.Backend {
	case "memory":
		e.Backend = draft.NewMemoryBackend()

	case "redis":
		rc, err := database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		e.addCloser(rc.Close)
		e.Backend = draft.NewRedisBackend(rc.Client, redisDraftNamespace)

	case "postgres":
		pg, err := database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		e.addCloser(pg.Close)
		backend := draft.NewSQLBackend(pg.DB, draft.DialectPostgres)
		if err := backend.InitSchema(ctx); err != nil {
			return err
		}
		e.Backend = backend

	default:
		lite, err := database.NewSQLite(cfg.Drafts.SQLitePath)
		if err != nil {
			return err
		}
		e.addCloser(lite.Close)
		backend := draft.NewSQLBackend(lite.DB, draft.DialectSQLite)
		if err := backend.InitSchema(ctx); err != nil {
			return err
		}
		e.Backend = backend
	}
	return nil
}

// buildExporter always renders the document; archive and process export are
// added when configured.
func (e *Env) buildExporter() error {
	cfg := e.Config
	doc, err := report.NewDocumentExporter(cfg.Report.OutputDir)
	if err != nil {
		return err
	}
	exporters := []report.Exporter{doc}

	if cfg.Report.Archive {
		es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		exporters = append(exporters, report.NewArchiveExporter(es.Client, cfg.Report.ArchiveIndex))
	}

	if cfg.Camunda.Enabled {
		zc, err := camunda.NewClient(cfg.Camunda.BrokerAddress)
		if err != nil {
			return err
		}
		e.addCloser(zc.Close)
		exporters = append(exporters, report.NewProcessExporter(zc, cfg.Camunda.ProcessID))
	}

	if len(exporters) == 1 {
		e.Exporter = doc
	} else {
		e.Exporter = report.NewMultiExporter(exporters...)
	}
	return nil
}

// Wizard loads the draft for the named inspection type.
func (e *Env) Wizard(ctx context.Context, name string) (*wizard.Wizard, error) {
	def, err := e.Catalog.Lookup(name)
	if err != nil {
		return nil, err
	}
	store := draft.NewStore(e.Backend, def.Prefix, e.Config.Drafts.SchemaVersion, e.Logger)
	w := wizard.New(def, store, e.Logger)
	w.Load(ctx)
	return w, nil
}

func (e *Env) Orchestrator() *submission.Orchestrator {
	return submission.New(e.Records, submission.Config{
		UserID:        e.Config.API.UserID,
		Exporter:      e.Exporter,
		Observability: e.Observability,
	}, e.Logger)
}

func (e *Env) addCloser(fn func() error) {
	e.closers = append(e.closers, fn)
}

// Close releases connections in reverse order of opening.
func (e *Env) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	e.closers = nil
	return stderrors.Join(errs...)
}
