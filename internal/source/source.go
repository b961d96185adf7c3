// Package source turns directories of markdown cards, local or cloned from
// git, into decks ready to be packaged.
package source

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	mdparser "github.com/gomarkdown/markdown/parser"

	"github.com/conorfennell/ankipack/internal/anki"
	"github.com/conorfennell/ankipack/internal/domain"
	"github.com/conorfennell/ankipack/internal/gitsource"
	"github.com/conorfennell/ankipack/internal/knol"
	"github.com/conorfennell/ankipack/internal/parser"
)

// CardModelID identifies the model used for markdown cards.
const CardModelID = 1700424245

const cardCSS = `.card {
 font-family: arial;
 font-size: 20px;
 text-align: center;
 color: black;
 background-color: white;
}
.context {
 font-size: 14px;
 color: grey;
}`

// CardModel returns the Question/Answer/Context model markdown cards are
// written with. Context is shown under the answer when present.
func CardModel() *anki.Model {
	m := anki.NewModel(CardModelID, "Knol Question/Answer",
		[]anki.Field{{Name: "Question"}, {Name: "Answer"}, {Name: "Context"}},
		[]anki.Template{{
			Name: "Card 1",
			QFmt: "{{Question}}",
			AFmt: "{{FrontSide}}\n\n<hr id=answer>\n\n{{Answer}}{{#Context}}<div class=context>{{Context}}</div>{{/Context}}",
		}},
	)
	m.CSS = cardCSS
	return m
}

// Options configures a Loader.
type Options struct {
	DeckName string
	// FirstDeckID is the id of the first deck; later sources count up from it.
	FirstDeckID int64
	// ReposDir holds working copies of git sources.
	ReposDir string
	// Progress receives git transfer progress. It may be nil.
	Progress io.Writer
}

// Loader builds one deck per source.
type Loader struct {
	opts  Options
	model *anki.Model
}

// NewLoader returns a loader writing every card with CardModel.
func NewLoader(opts Options) *Loader {
	return &Loader{opts: opts, model: CardModel()}
}

// Result is the outcome of loading one source.
type Result struct {
	Source string
	// Dir is the directory that was scanned.
	Dir   string
	Deck  *anki.Deck
	Cards []domain.Card
	// Errors are per-file parse failures; the remaining files still load.
	Errors []error
}

// Load syncs and scans every source in order. A source that cannot be
// resolved or walked aborts the load.
func (l *Loader) Load(ctx context.Context, sources []string) ([]Result, error) {
	results := make([]Result, 0, len(sources))
	for i, src := range sources {
		dir, err := l.resolve(ctx, src)
		if err != nil {
			return nil, err
		}
		deck := anki.NewDeck(l.opts.FirstDeckID+int64(i), l.deckName(dir), "Cards from "+src)
		res, err := l.scan(dir, deck)
		if err != nil {
			return nil, err
		}
		res.Source = src
		slog.Info("source loaded",
			"source", src,
			"deck", deck.Name,
			"cards", len(res.Cards),
			"errors", len(res.Errors),
		)
		results = append(results, res)
	}
	return results, nil
}

// resolve returns the local directory of src, cloning or pulling git
// sources first.
func (l *Loader) resolve(ctx context.Context, src string) (string, error) {
	if !gitsource.IsRemote(src) {
		info, err := os.Stat(src)
		if err != nil {
			return "", fmt.Errorf("failed to stat source %s: %w", src, err)
		}
		if !info.IsDir() {
			return "", fmt.Errorf("source %s is not a directory", src)
		}
		return src, nil
	}
	dir, err := gitsource.LocalPath(l.opts.ReposDir, src)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return "", fmt.Errorf("failed to create repos directory: %w", err)
	}
	if err := gitsource.Sync(ctx, src, dir, l.opts.Progress); err != nil {
		return "", err
	}
	return dir, nil
}

func (l *Loader) deckName(dir string) string {
	base := filepath.Base(filepath.Clean(dir))
	if l.opts.DeckName == "" {
		return base
	}
	return l.opts.DeckName + "::" + base
}

// scan parses every markdown file under dir into deck. Cards with the same
// content hash are kept once.
func (l *Loader) scan(dir string, deck *anki.Deck) (Result, error) {
	res := Result{Dir: dir, Deck: deck}
	seen := make(map[string]bool)

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}
		fileCards, parseErr := parser.ParseFile(path)
		if parseErr != nil {
			res.Errors = append(res.Errors, fmt.Errorf("parsing %s: %w", path, parseErr))
			slog.Warn("failed to parse card file", "path", path, "error", parseErr)
		}
		for _, card := range fileCards {
			card.Hash = knol.Hash(card)
			if seen[card.Hash] {
				slog.Debug("duplicate card skipped", "hash", card.Hash, "file", path)
				continue
			}
			seen[card.Hash] = true
			note, err := l.note(card)
			if err != nil {
				res.Errors = append(res.Errors, fmt.Errorf("card %s in %s: %w", card.Hash, path, err))
				continue
			}
			deck.AddNote(note)
			res.Cards = append(res.Cards, card)
		}
		return nil
	})
	if walkErr != nil {
		return res, fmt.Errorf("failed to walk %s: %w", dir, walkErr)
	}
	return res, nil
}

func (l *Loader) note(card domain.Card) (*anki.Note, error) {
	note, err := anki.NewNote(l.model, toHTML(card.Question), toHTML(card.Answer), toHTML(card.Context))
	if err != nil {
		return nil, err
	}
	return note.WithGUID(card.Hash).WithTags(card.Tags...), nil
}

// toHTML renders markdown card text as a note field. Line breaks are kept
// and a lone paragraph is rendered inline.
func toHTML(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	p := mdparser.NewWithExtensions(mdparser.CommonExtensions | mdparser.HardLineBreak)
	r := html.NewRenderer(html.RendererOptions{})
	out := strings.TrimSpace(string(markdown.ToHTML(markdown.NormalizeNewlines([]byte(s)), p, r)))
	out = strings.ReplaceAll(out, "<br>\n", "<br>")
	if strings.Count(out, "<p>") == 1 && strings.HasPrefix(out, "<p>") && strings.HasSuffix(out, "</p>") {
		out = strings.TrimSuffix(strings.TrimPrefix(out, "<p>"), "</p>")
	}
	return out
}
