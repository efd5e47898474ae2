// Package bootstrap builds the shared runtime graph from configuration:
// stores, matcher, router, collaborators, notifier, history sinks and driver.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"benefit-orchestrator/internal/api"
	"benefit-orchestrator/internal/collaborator"
	awsx "benefit-orchestrator/internal/common/aws"
	"benefit-orchestrator/internal/common/cache"
	"benefit-orchestrator/internal/common/config"
	"benefit-orchestrator/internal/common/database"
	"benefit-orchestrator/internal/common/logger"
	"benefit-orchestrator/internal/common/messaging"
	"benefit-orchestrator/internal/common/observability"
	"benefit-orchestrator/internal/identity"
	"benefit-orchestrator/internal/notification"
	"benefit-orchestrator/internal/orchestrator"
	"benefit-orchestrator/internal/records"
	"benefit-orchestrator/internal/routing"

	"go.uber.org/zap"
)

// Components is everything a process needs to serve cases.
type Components struct {
	Config *config.Config

	Postgres      *database.PostgresClient
	Redis         *database.RedisClient
	Elasticsearch *database.ElasticsearchClient
	NATS          *messaging.NATSPublisher
	Cache         *cache.TieredCache

	Records      *records.CachedRepository
	Store        *records.Store
	Matcher      *identity.Matcher
	Router       *routing.Router
	Collaborator collaborator.Collaborator
	Classifier   collaborator.ResponseClassifier
	Notifier     *notification.Notifier
	Sinks        []orchestrator.HistorySink
	Driver       *orchestrator.Driver

	Observability *observability.Observability
	Checks        []api.ReadinessCheck

	closers []func() error
}

// Options tunes connection retries. Zero values take the defaults.
type Options struct {
	ConnectRetries int
	ConnectDelay   time.Duration
}

// Build connects the enabled backends and wires the domain components.
// On error everything opened so far is closed.
func Build(ctx context.Context, cfg *config.Config, opts Options, zapLog *zap.Logger) (c *Components, err error) {
	if opts.ConnectRetries <= 0 {
		opts.ConnectRetries = 10
	}
	if opts.ConnectDelay <= 0 {
		opts.ConnectDelay = 2 * time.Second
	}
	log := logger.NewZapAdapter(zapLog)

	c = &Components{Config: cfg}
	defer func() {
		if err != nil {
			c.Close(zapLog)
			c = nil
		}
	}()

	if err = c.connect(ctx, opts, zapLog, log); err != nil {
		return c, err
	}

	repo, err := c.referenceRepository(log)
	if err != nil {
		return c, err
	}

	c.Records = repo

	var identities records.IdentityRepository = repo
	if c.Elasticsearch != nil {
		identities = identity.NewElasticsearchRepository(c.Elasticsearch, cfg.Database.Elasticsearch.IdentityIndex)
	}

	c.Store = records.NewStore(repo, log)
	c.Matcher = identity.NewMatcher(identities, identity.Options{
		VerifiedThreshold: cfg.Workflow.Identity.VerifiedThreshold,
		AmbiguousFloor:    cfg.Workflow.Identity.AmbiguousFloor,
		MaxResults:        cfg.Workflow.Identity.MaxResults,
	}, log)
	c.Router = routing.New(routing.Options{
		MaxSteps:            cfg.Workflow.MaxSteps,
		MaxIdentityAttempts: cfg.Workflow.MaxIdentityAttempts,
	}, log)

	transport := collaborator.NewTransport(cfg.Collaborators, log)
	c.Collaborator = collaborator.NewHTTPCollaborator(transport, cfg.Collaborators.BaseURL, cfg.Collaborators.APIKey, log)
	c.Classifier = collaborator.NewFallbackClassifier(
		collaborator.NewHTTPClassifier(transport, cfg.Collaborators.BaseURL, cfg.Collaborators.APIKey),
		collaborator.KeywordClassifier{},
		log,
	)

	if c.Notifier, err = newNotifier(ctx, cfg.Notifications, log); err != nil {
		return c, err
	}

	if c.Postgres != nil {
		c.Sinks = append(c.Sinks, orchestrator.NewPostgresSink(c.Postgres))
	}
	if c.NATS != nil {
		c.Sinks = append(c.Sinks, orchestrator.NewNATSSink(c.NATS, cfg.NATS.SubjectPrefix))
	}

	c.Observability = observability.New(cfg.Observability.ServiceName, cfg.Observability.JaegerEndpoint, zapLog)

	c.Driver = orchestrator.NewDriver(orchestrator.OptionsFromConfig(cfg.Workflow), orchestrator.Dependencies{
		Store:         c.Store,
		Matcher:       c.Matcher,
		Router:        c.Router,
		Collaborator:  c.Collaborator,
		Classifier:    c.Classifier,
		Notifier:      c.Notifier,
		Sinks:         c.Sinks,
		Observability: c.Observability,
	}, log)

	return c, nil
}

func (c *Components) connect(ctx context.Context, opts Options, zapLog *zap.Logger, log logger.Logger) error {
	cfg := c.Config

	if cfg.Database.Postgres.Enabled {
		err := RetryWithBackoff(func() error {
			pg, err := database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			if err := pg.Ping(ctx); err != nil {
				pg.Close()
				return err
			}
			c.Postgres = pg
			return nil
		}, opts.ConnectRetries, opts.ConnectDelay, zapLog, "PostgreSQL connection")
		if err != nil {
			return err
		}
		c.closers = append(c.closers, c.Postgres.Close)
		zapLog.Info("PostgreSQL connected successfully")

		if cfg.Database.Postgres.AutoMigrate {
			if err := database.RunMigrations(ctx, c.Postgres.DB); err != nil {
				return err
			}
			zapLog.Info("database migrations applied")
		}
		c.Checks = append(c.Checks, api.ReadinessCheck{Name: "postgres", Check: c.Postgres.Ping})
	}

	if cfg.Database.Redis.Enabled {
		err := RetryWithBackoff(func() error {
			rdb, err := database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			if err := rdb.Ping(ctx); err != nil {
				rdb.Close()
				return err
			}
			c.Redis = rdb
			return nil
		}, opts.ConnectRetries, opts.ConnectDelay, zapLog, "Redis connection")
		if err != nil {
			return err
		}
		c.closers = append(c.closers, c.Redis.Close)
		zapLog.Info("Redis connected successfully")
		c.Checks = append(c.Checks, api.ReadinessCheck{Name: "redis", Check: c.Redis.Ping})
	}

	if cfg.Database.Elasticsearch.Enabled {
		err := RetryWithBackoff(func() error {
			es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			if err := es.Ping(); err != nil {
				return err
			}
			c.Elasticsearch = es
			return nil
		}, opts.ConnectRetries, opts.ConnectDelay, zapLog, "Elasticsearch connection")
		if err != nil {
			return err
		}
		zapLog.Info("Elasticsearch connected successfully")
		c.Checks = append(c.Checks, api.ReadinessCheck{Name: "elasticsearch", Check: func(context.Context) error {
			return c.Elasticsearch.Ping()
		}})
	}

	if cfg.NATS.Enabled {
		err := RetryWithBackoff(func() error {
			nc, err := messaging.Connect(cfg.NATS.URL, cfg.App.Name, log)
			if err != nil {
				return err
			}
			c.NATS = nc
			return nil
		}, opts.ConnectRetries, opts.ConnectDelay, zapLog, "NATS connection")
		if err != nil {
			return err
		}
		c.closers = append(c.closers, c.NATS.Close)
	}

	return nil
}

// referenceRepository picks the case/identity source and puts the tiered
// cache in front of it.
func (c *Components) referenceRepository(log logger.Logger) (*records.CachedRepository, error) {
	cfg := c.Config

	var inner interface {
		records.CaseRepository
		records.IdentityRepository
	}
	switch cfg.Records.Source {
	case "postgres":
		if c.Postgres == nil {
			return nil, fmt.Errorf("records.source postgres requires a postgres connection")
		}
		inner = records.NewPostgresRepository(c.Postgres.DB)
	default:
		var (
			repo *records.StaticRepository
			err  error
		)
		if cfg.Records.SeedPath != "" {
			repo, err = records.LoadStaticRepository(cfg.Records.SeedPath)
		} else {
			repo, err = records.NewStaticRepository()
		}
		if err != nil {
			return nil, fmt.Errorf("load reference data: %w", err)
		}
		inner = repo
	}

	var remote cache.Remote
	if c.Redis != nil {
		remote = c.Redis
	}
	tiered, err := cache.New(cfg.Cache.LocalMaxBytes, remote, log)
	if err != nil {
		return nil, err
	}
	c.Cache = tiered
	c.closers = append(c.closers, func() error { tiered.Close(); return nil })

	return records.NewCachedRepository(inner, tiered, config.GetDuration(cfg.Cache.TTL), log), nil
}

func newNotifier(ctx context.Context, cfg config.NotificationConfig, log logger.Logger) (*notification.Notifier, error) {
	var (
		email awsx.EmailSender
		topic awsx.TopicPublisher
	)
	if cfg.Email.Enabled {
		ses, err := awsx.NewSESClient(ctx, cfg.Region)
		if err != nil {
			return nil, fmt.Errorf("ses client: %w", err)
		}
		email = ses
	}
	if cfg.Escalation.Enabled {
		sns, err := awsx.NewSNSClient(ctx, cfg.Region)
		if err != nil {
			return nil, fmt.Errorf("sns client: %w", err)
		}
		topic = sns
	}
	return notification.New(cfg, email, topic, log), nil
}

// Close releases connections in reverse order of opening.
func (c *Components) Close(zapLog *zap.Logger) {
	if c == nil {
		return
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			zapLog.Warn("close failed", zap.Error(err))
		}
	}
	c.closers = nil
	c.Observability.Shutdown(zapLog)
}
