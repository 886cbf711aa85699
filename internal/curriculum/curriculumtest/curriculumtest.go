// Package curriculumtest provides a small validated catalog for tests.
//
// Year 3 maths holds four sections in traversal order: pv-basics (4
// questions), add-2digit (4), sub-2digit (3) and unit-fractions-sec (3).
// Correct answers are always option 0. Option 1 carries the section's
// misconception token where one exists, option 2 carries the question's own
// skill token (a wrong answer counts against that skill) and option 3 carries
// nothing. Year 5 maths has a single empty section.
package curriculumtest

import (
	_ "embed"
	"io"
	"log/slog"
	"testing"

	"github.com/abhisek/skilltrace/internal/curriculum"
)

//go:embed fixture.yaml
var Fixture []byte

// Catalog builds the fixture catalog or fails the test.
func Catalog(t testing.TB) *curriculum.Catalog {
	t.Helper()
	b := curriculum.NewBuilder(slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := b.Add("fixture.yaml", Fixture); err != nil {
		t.Fatalf("add fixture: %v", err)
	}
	cat, err := b.Build()
	if err != nil {
		t.Fatalf("build fixture: %v", err)
	}
	return cat
}
