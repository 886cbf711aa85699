package curriculum

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/abhisek/skilltrace/internal/questionbank"
	"github.com/abhisek/skilltrace/internal/skillgraph"
)

// ErrInvalidDocument is returned when a content file fails to parse or does
// not match the curriculum document schema.
var ErrInvalidDocument = errors.New("invalid curriculum document")

// Builder accumulates curriculum documents and validates them into a Catalog.
// Documents are merged in the order they are added.
type Builder struct {
	logger    *slog.Logger
	tokens    []skillgraph.Token
	sections  []questionbank.Section
	questions []questionbank.Question
	documents int
}

// NewBuilder creates an empty builder.
func NewBuilder(logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{logger: logger}
}

// AddDir walks dir recursively and adds every .yaml/.yml file in lexical order.
func (b *Builder) AddDir(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if !strings.HasSuffix(path, ".yaml") && !strings.HasSuffix(path, ".yml") {
			return nil
		}
		return b.AddFile(path)
	})
}

// AddFile reads and adds a single document.
func (b *Builder) AddFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return b.Add(path, data)
}

// Add validates and merges one YAML document. name is used in errors only.
func (b *Builder) Add(name string, data []byte) error {
	if err := validateDocument(data); err != nil {
		return fmt.Errorf("%w %s: %w", ErrInvalidDocument, name, err)
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w %s: %w", ErrInvalidDocument, name, err)
	}

	for _, t := range doc.Tokens {
		b.tokens = append(b.tokens, skillgraph.Token{
			ID:            t.ID,
			Name:          t.Name,
			Description:   t.Description,
			Prerequisites: t.Prerequisites,
		})
	}

	for _, yl := range doc.YearLevels {
		for _, subj := range yl.Subjects {
			for _, strand := range subj.Strands {
				for _, ch := range strand.Chapters {
					for _, sec := range ch.Sections {
						b.addSection(yl.YearLevel, subj.ID, strand.ID, ch.ID, sec)
					}
				}
			}
		}
	}

	b.documents++
	return nil
}

func (b *Builder) addSection(yearLevel int, subject, strandID, chapterID string, sec SectionDoc) {
	b.sections = append(b.sections, questionbank.Section{
		ID:        sec.ID,
		Title:     sec.Title,
		YearLevel: yearLevel,
		Subject:   subject,
		StrandID:  strandID,
		ChapterID: chapterID,
	})
	for _, q := range sec.Questions {
		opts := make([]questionbank.Option, len(q.Options))
		for i, o := range q.Options {
			opts[i] = questionbank.Option{Text: o.Text, Token: o.Token}
		}
		b.questions = append(b.questions, questionbank.Question{
			ID:           q.ID,
			Text:         q.Text,
			Location:     questionbank.Location{SectionID: sec.ID},
			Difficulty:   q.Difficulty,
			Options:      opts,
			CorrectIndex: q.CorrectOption,
			CorrectToken: q.CorrectToken,
		})
	}
}

// Build validates the accumulated content and returns the immutable catalog.
// Any integrity problem (dangling prerequisite, cycle, malformed question,
// unknown token reference) fails the whole build.
func (b *Builder) Build() (*Catalog, error) {
	graph, err := skillgraph.Build(b.tokens)
	if err != nil {
		return nil, fmt.Errorf("build knowledge graph: %w", err)
	}
	bank, err := questionbank.New(b.sections, b.questions, graph)
	if err != nil {
		return nil, fmt.Errorf("build question bank: %w", err)
	}

	b.logger.Info("curriculum loaded",
		"documents", b.documents,
		"tokens", graph.Len(),
		"sections", len(b.sections),
		"questions", bank.Len(),
	)
	return NewCatalog(graph, bank), nil
}

// LoadDir is a convenience for NewBuilder + AddDir + Build.
func LoadDir(dir string, logger *slog.Logger) (*Catalog, error) {
	b := NewBuilder(logger)
	if err := b.AddDir(dir); err != nil {
		return nil, fmt.Errorf("loading curriculum: %w", err)
	}
	return b.Build()
}
