package parser

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/conorfennell/ankipack/internal/domain"
)

const (
	questionPrefix = "Q:"
	answerPrefix   = "A:"
	contextPrefix  = "C:"
	tagsPrefix     = "T:"
	separator      = "---"
)

type section int

const (
	seeking section = iota
	inQuestion
	inAnswer
	inContext
	inTags
)

// cardBuilder accumulates the lines of the card currently being read.
type cardBuilder struct {
	cards   []domain.Card
	current domain.Card
	block   []string
	section section
}

// flushBlock stores the pending lines in the field of the current section.
func (b *cardBuilder) flushBlock() {
	if len(b.block) == 0 {
		return
	}
	content := strings.Join(b.block, "\n")
	switch b.section {
	case inQuestion:
		b.current.Question = content
	case inAnswer:
		b.current.Answer = content
	case inContext:
		b.current.Context = content
	}
	b.block = nil
}

// finish closes the current card. Cards without a question are dropped.
func (b *cardBuilder) finish() {
	b.flushBlock()
	if b.current.Question != "" {
		b.cards = append(b.cards, b.current)
	}
	b.current = domain.Card{}
	b.section = seeking
}

func (b *cardBuilder) start(s section, rest string) {
	b.flushBlock()
	b.section = s
	b.block = append(b.block, strings.TrimPrefix(rest, " "))
}

func (b *cardBuilder) line(line string) {
	switch {
	case line == separator:
		b.finish()
	case strings.HasPrefix(line, questionPrefix):
		// A new question always starts a new card.
		if b.section != seeking {
			b.finish()
		}
		b.start(inQuestion, line[len(questionPrefix):])
	case strings.HasPrefix(line, answerPrefix):
		b.start(inAnswer, line[len(answerPrefix):])
	case strings.HasPrefix(line, contextPrefix):
		b.start(inContext, line[len(contextPrefix):])
	case strings.HasPrefix(line, tagsPrefix) && b.section != seeking:
		b.flushBlock()
		b.section = inTags
		b.current.Tags = append(b.current.Tags, strings.Fields(line[len(tagsPrefix):])...)
	case b.section != seeking && b.section != inTags:
		b.block = append(b.block, line)
	}
}

// ParseFile reads a file from the given path and extracts all cards.
func ParseFile(path string) ([]domain.Card, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	cards, err := Parse(file)
	if err != nil {
		return nil, err
	}
	for i := range cards {
		cards[i].File = path
	}
	return cards, nil
}

// Parse reads from an io.Reader and extracts all cards.
func Parse(r io.Reader) ([]domain.Card, error) {
	scanner := bufio.NewScanner(r)
	b := &cardBuilder{}
	for scanner.Scan() {
		b.line(scanner.Text())
	}
	b.finish()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return b.cards, nil
}
