// Command ankipack turns directories of markdown flash cards, local or
// cloned from git, into an importable .apkg package.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/spf13/pflag"

	"github.com/conorfennell/ankipack/internal/anki"
	"github.com/conorfennell/ankipack/internal/config"
	"github.com/conorfennell/ankipack/internal/media"
	"github.com/conorfennell/ankipack/internal/source"
)

func main() {
	if err := mainImpl(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "ankipack: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl(args []string) error {
	cfg, err := config.Load(args)
	if err != nil {
		return err
	}
	if cfg.PrintSchema {
		return config.WriteSchema()
	}
	setupLogging(cfg.Level())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var progress io.Writer
	if cfg.Level() <= slog.LevelDebug {
		progress = os.Stderr
	}
	loader := source.NewLoader(source.Options{
		DeckName:    cfg.Deck.Name,
		FirstDeckID: cfg.Deck.ID,
		ReposDir:    cfg.ReposDir,
		Progress:    progress,
	})
	results, err := loader.Load(ctx, cfg.Sources)
	if err != nil {
		return err
	}

	decks := make([]*anki.Deck, 0, len(results))
	var notes, cards, parseErrors int
	for _, r := range results {
		if cfg.Deck.Description != "" {
			r.Deck.Description = cfg.Deck.Description
		}
		decks = append(decks, r.Deck)
		for _, n := range r.Deck.Notes() {
			notes++
			if n.Cards != nil {
				cards += len(n.Cards)
			} else {
				cards += len(n.Model().Templates)
			}
		}
		parseErrors += len(r.Errors)
	}

	files := make([]media.File, len(cfg.Media))
	for i, p := range cfg.Media {
		files[i] = media.Path(p)
	}
	pkg := anki.NewPackage(decks, files...)
	pkg.SchemaVersion = cfg.SchemaVersion

	if cfg.Timestamp > 0 {
		err = pkg.WriteToFileTimestamp(cfg.Output, cfg.Timestamp)
	} else {
		err = pkg.WriteToFile(cfg.Output)
	}
	if err != nil {
		return err
	}

	slog.Info("package written",
		"output", cfg.Output,
		"decks", len(decks),
		"notes", notes,
		"cards", cards,
		"media", len(files),
		"parse_errors", parseErrors,
	)
	return nil
}

func setupLogging(level slog.Level) {
	logger := slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	}))
	slog.SetDefault(logger)
}
