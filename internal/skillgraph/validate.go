package skillgraph

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError collects every structural problem found in a token set.
// Each problem wraps one of the package sentinel errors.
type ValidationError struct {
	Problems []error
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.Error()
	}
	return fmt.Sprintf("knowledge graph validation failed:\n  %s", strings.Join(msgs, "\n  "))
}

func (e *ValidationError) Unwrap() []error {
	return e.Problems
}

// validateTokens performs all structural checks on the given token set.
func validateTokens(tokens []Token) error {
	var errs []error

	idSet := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		if t.ID == "" {
			errs = append(errs, fmt.Errorf("token with empty ID (name %q)", t.Name))
			continue
		}
		if idSet[t.ID] {
			errs = append(errs, fmt.Errorf("%w: %q", ErrDuplicateToken, t.ID))
		}
		idSet[t.ID] = true
	}

	for _, t := range tokens {
		for _, prereqID := range t.Prerequisites {
			if !idSet[prereqID] {
				errs = append(errs, fmt.Errorf("%w: token %q references nonexistent prerequisite %q",
					ErrDanglingPrerequisite, t.ID, prereqID))
			}
		}
	}

	// Cycle check (Kahn's algorithm); only edges between declared tokens count
	inDegree := make(map[string]int, len(tokens))
	adjList := make(map[string][]string)
	for _, t := range tokens {
		if _, seen := inDegree[t.ID]; seen {
			continue
		}
		inDegree[t.ID] = 0
		for _, prereqID := range t.Prerequisites {
			if idSet[prereqID] {
				inDegree[t.ID]++
				adjList[prereqID] = append(adjList[prereqID], t.ID)
			}
		}
	}

	var queue []string
	for id, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}

	visited := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++
		for _, depID := range adjList[id] {
			inDegree[depID]--
			if inDegree[depID] == 0 {
				queue = append(queue, depID)
			}
		}
	}

	if visited < len(inDegree) {
		var cycleNodes []string
		for id, deg := range inDegree {
			if deg > 0 {
				cycleNodes = append(cycleNodes, id)
			}
		}
		sort.Strings(cycleNodes)
		errs = append(errs, fmt.Errorf("%w: involving tokens %s", ErrCycleDetected, strings.Join(cycleNodes, ", ")))
	}

	if len(errs) > 0 {
		return &ValidationError{Problems: errs}
	}
	return nil
}
