package domain

// Card is a question-answer-context entry read from a markdown source.
type Card struct {
	Question string
	Answer   string
	Context  string
	Tags     []string
	// Hash is the note guid derived from the normalized content.
	Hash string
	// File is the markdown file the card was read from.
	File string
}
