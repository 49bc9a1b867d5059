// Package graph resolves the execution order of provisioning steps from their
// declared dependencies.
package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mensylisir/nodeforge/step"
)

// Resolution errors. Callers match with errors.Is; the wrapped messages name
// the offending steps.
var (
	ErrCycle             = fmt.Errorf("cyclic dependency detected")
	ErrUnknownDependency = fmt.Errorf("step depends on nonexistent step")
	ErrDuplicateStep     = fmt.Errorf("duplicate step name")
)

// ResolveOrder returns the step names in a stable topological order: every
// step appears exactly once, after all of its dependencies. Among steps whose
// dependencies are satisfied, declaration order wins, so identical input
// always yields identical output. The input is not modified, even on failure.
func ResolveOrder(steps []*step.Step) ([]string, error) {
	index := make(map[string]int, len(steps))
	for i, s := range steps {
		if _, dup := index[s.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateStep, s.Name)
		}
		index[s.Name] = i
	}

	for _, s := range steps {
		for _, dep := range s.DependsOn {
			if _, ok := index[dep]; !ok {
				return nil, fmt.Errorf("%w: %q -> %q", ErrUnknownDependency, s.Name, dep)
			}
		}
	}

	// Kahn's algorithm, with the ready set kept in declaration order.
	inDegree := make(map[string]int, len(steps))
	dependedBy := make(map[string][]string, len(steps))
	for _, s := range steps {
		inDegree[s.Name] = len(s.DependsOn)
		for _, dep := range s.DependsOn {
			dependedBy[dep] = append(dependedBy[dep], s.Name)
		}
	}

	ready := make([]string, 0, len(steps))
	for _, s := range steps {
		if inDegree[s.Name] == 0 {
			ready = append(ready, s.Name)
		}
	}

	order := make([]string, 0, len(steps))
	for len(ready) > 0 {
		// Earliest declared ready step first.
		sort.Slice(ready, func(i, j int) bool { return index[ready[i]] < index[ready[j]] })
		name := ready[0]
		ready = ready[1:]
		order = append(order, name)

		for _, dependent := range dependedBy[name] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	if len(order) != len(steps) {
		remaining := make([]string, 0)
		for name, deg := range inDegree {
			if deg > 0 {
				remaining = append(remaining, name)
			}
		}
		sort.Strings(remaining)
		return nil, fmt.Errorf("%w: involving %s", ErrCycle, strings.Join(remaining, ", "))
	}

	return order, nil
}

// Dependents returns the names of every step that depends on root, directly or
// transitively. The orchestrator uses this to mark the subtree of a terminally
// failed step as skipped.
func Dependents(steps []*step.Step, root string) []string {
	dependedBy := make(map[string][]string, len(steps))
	for _, s := range steps {
		for _, dep := range s.DependsOn {
			dependedBy[dep] = append(dependedBy[dep], s.Name)
		}
	}

	seen := make(map[string]bool)
	queue := []string{root}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		for _, dependent := range dependedBy[name] {
			if !seen[dependent] {
				seen[dependent] = true
				queue = append(queue, dependent)
			}
		}
	}

	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
