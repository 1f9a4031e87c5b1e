package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/flarexio/zoningqa"
	"github.com/flarexio/zoningqa/geocode"
	"github.com/flarexio/zoningqa/ingest"
	"github.com/flarexio/zoningqa/llm"
	"github.com/flarexio/zoningqa/persistence/chromem"
	"github.com/flarexio/zoningqa/persistence/redis"
	"github.com/flarexio/zoningqa/vector"
)

func servicePath(cmd *cli.Command) (string, error) {
	path := cmd.String("path")
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}

		path = filepath.Join(homeDir, ".flarex", "zoningqa")
	}

	return path, nil
}

// newLogger logs to stderr, or to file when the terminal is taken.
func newLogger(cmd *cli.Command, file string) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if cmd.Bool("log-json") {
		cfg = zap.NewProductionConfig()
	}

	if file != "" {
		if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
			return nil, err
		}

		cfg.OutputPaths = []string{file}
		cfg.ErrorOutputPaths = []string{file}
	}

	log, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	zap.ReplaceGlobals(log)
	return log, nil
}

// loadConfig reads <path>/config.yaml. Credentials come from the
// environment, optionally seeded by <path>/.env and ./.env.
func loadConfig(path string) (zoningqa.Config, error) {
	var cfg zoningqa.Config

	for _, env := range []string{filepath.Join(path, ".env"), ".env"} {
		if err := godotenv.Load(env); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, err
		}
	}

	f, err := os.Open(filepath.Join(path, "config.yaml"))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return cfg, err
		}
	} else {
		defer f.Close()

		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return cfg, err
		}
	}

	cfg.ApplyDefaults()

	if cfg.Corpus.Dir == "" {
		cfg.Corpus.Dir = filepath.Join(path, "corpus")
	}

	if cfg.Index.Path == "" {
		cfg.Index.Path = filepath.Join(path, "vectors")
	}

	cfg.Index.Persistent = true
	return cfg, nil
}

func openCollection(cfg zoningqa.Config) (vector.Collection, error) {
	embedder, err := llm.NewEmbedder(cfg.Embedding)
	if err != nil {
		return nil, err
	}

	db, err := chromem.NewChromemVectorDB(cfg.Index, embedder.Embed)
	if err != nil {
		return nil, err
	}

	return db.Collection(cfg.Index.Collection)
}

// newService wires the router and its collaborators. A missing chat
// credential is fatal; the index is opened on first use.
func newService(ctx context.Context, cfg zoningqa.Config, log *zap.Logger) (zoningqa.Service, func(), error) {
	chat, err := llm.NewModel(cfg.LLM)
	if err != nil {
		return nil, nil, err
	}

	index := zoningqa.NewLazyIndex(func() (zoningqa.Index, error) {
		collection, err := openCollection(cfg)
		if err != nil {
			return nil, err
		}

		return zoningqa.NewIndex(collection), nil
	})

	geocoder, err := geocode.NewClient(geocode.Config{
		BaseURL:   cfg.Geocode.BaseURL,
		APIKeyEnv: cfg.Geocode.APIKeyEnv,
		Timeout:   cfg.Geocode.Timeout.Duration(),
	})

	if err != nil {
		return nil, nil, err
	}

	closers := make([]func() error, 0)

	var opts []zoningqa.RouterOption
	if cfg.Cache.Enabled {
		cache, closeCache, err := redis.NewAnswerCache(ctx, cfg.Cache)
		if err != nil {
			return nil, nil, err
		}

		closers = append(closers, closeCache)
		opts = append(opts, zoningqa.WithAnswerCache(cache))
	}

	router := zoningqa.NewRouter(cfg.RouterConfig(), index, chat, geocoder, opts...)

	svc, err := zoningqa.NewService(ctx, cfg, router)
	if err != nil {
		return nil, nil, err
	}

	svc = zoningqa.LoggingMiddleware(log)(svc)
	closers = append(closers, svc.Close)

	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				log.Warn(err.Error())
			}
		}
	}

	return svc, cleanup, nil
}

func runIngest(ctx context.Context, cfg zoningqa.Config) (ingest.Stats, error) {
	collection, err := openCollection(cfg)
	if err != nil {
		return ingest.Stats{}, err
	}

	pipeline := ingest.NewPipeline(cfg.Corpus.Dir, cfg.Ingest, collection)
	return pipeline.Run(ctx)
}
