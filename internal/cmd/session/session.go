// Package session parses session command flags and runs a scenario.
package session

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"

	"github.com/louisbranch/roundtable/internal/chronicle"
	"github.com/louisbranch/roundtable/internal/engine"
	"github.com/louisbranch/roundtable/internal/generate"
	entrypoint "github.com/louisbranch/roundtable/internal/platform/cmd"
	"github.com/louisbranch/roundtable/internal/platform/id"
	"github.com/louisbranch/roundtable/internal/random"
	"github.com/louisbranch/roundtable/internal/scenario"
	"github.com/louisbranch/roundtable/internal/storage/sqlite"
)

// Config holds session command configuration.
type Config struct {
	Scenario      string `env:"ROUNDTABLE_SCENARIO"`
	Journal       string `env:"ROUNDTABLE_JOURNAL"`
	OpenAIBaseURL string `env:"ROUNDTABLE_OPENAI_BASE_URL"`
	OpenAIKey     string `env:"ROUNDTABLE_OPENAI_API_KEY"`
	OpenAIModel   string `env:"ROUNDTABLE_OPENAI_MODEL" envDefault:"gpt-4o-mini"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.Scenario, "scenario", cfg.Scenario, "Path to the scenario YAML file")
	fs.StringVar(&cfg.Journal, "journal", cfg.Journal, "Path to the SQLite journal (omit for in-memory)")
	fs.StringVar(&cfg.OpenAIBaseURL, "openai-base-url", cfg.OpenAIBaseURL, "OpenAI-compatible API base URL")
	fs.StringVar(&cfg.OpenAIModel, "openai-model", cfg.OpenAIModel, "Model for director and actor generation")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run loads the scenario, wires the session, and drives it to completion,
// streaming every record to stdout.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Scenario == "" {
		return errors.New("a scenario file is required")
	}
	sc, err := scenario.Load(cfg.Scenario)
	if err != nil {
		return err
	}

	var store chronicle.Store
	if cfg.Journal != "" {
		db, err := sqlite.Open(cfg.Journal)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer func() {
			if err := db.Close(); err != nil {
				log.Printf("close journal: %v", err)
			}
		}()
		store = db
	}
	logbook := chronicle.NewLog(store)

	registry, err := sc.Registry()
	if err != nil {
		return err
	}

	deps := engine.Deps{Log: logbook, Registry: registry}
	switch {
	case cfg.OpenAIKey != "":
		client, err := generate.NewOpenAIClient(generate.OpenAIConfig{
			BaseURL: cfg.OpenAIBaseURL,
			APIKey:  cfg.OpenAIKey,
			Model:   cfg.OpenAIModel,
		})
		if err != nil {
			return fmt.Errorf("configure model client: %w", err)
		}
		deps.Director = client
		deps.Intent = client
		deps.Turns = client
	case sc.HasDirectorScript():
		deps.Director = sc.ScriptedDirector()
		troupeProv := sc.ScriptedTroupe()
		deps.Intent = troupeProv
		deps.Turns = troupeProv
	default:
		return errors.New("scenario has no director script and no model is configured")
	}

	engineCfg := sc.EngineConfig()
	if sc.Engine.Seed == nil {
		seed, err := random.NewSeed()
		if err != nil {
			return fmt.Errorf("draw session seed: %w", err)
		}
		engineCfg.BaseSeed = seed
	}

	eng, err := engine.New(engineCfg, deps)
	if err != nil {
		return err
	}

	sessionID, err := id.NewID()
	if err != nil {
		return fmt.Errorf("generate session id: %w", err)
	}
	log.Printf("session %s: scenario %q, %d actors", sessionID, sc.Name, len(sc.Actors))

	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceSession, func(ctx context.Context) error {
		sub := logbook.Subscribe()
		feedDone := make(chan struct{})
		go func() {
			defer close(feedDone)
			streamFeed(context.Background(), sub)
		}()

		err := eng.Run(ctx)

		// Closing the subscription lets the feed drain every queued
		// record, including the session summary, before returning.
		logbook.Unsubscribe(sub)
		<-feedDone

		// A fully replayed script is a finished session, not a failure.
		if errors.Is(err, engine.ErrDirectorUnavailable) && errors.Is(err, generate.ErrScriptExhausted) {
			return nil
		}
		return err
	})
}

func streamFeed(ctx context.Context, sub *chronicle.Subscription) {
	for {
		rec, err := sub.Next(ctx)
		if err != nil {
			return
		}
		fmt.Printf("%4d %-8s %s: %s\n", rec.Seq, rec.Kind, rec.Speaker, rec.Text)
	}
}
