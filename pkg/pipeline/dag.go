package pipeline

import (
	"errors"
	"fmt"

	"github.com/heimdalr/dag"
)

var (
	// ErrDuplicateStep is returned when a step ID is registered twice
	ErrDuplicateStep = errors.New("duplicate step id")
	// ErrUnknownDependency is returned when a step depends on an unregistered step
	ErrUnknownDependency = errors.New("step depends on unknown step")
	// ErrStepNotFound is returned when a step ID is not in the graph
	ErrStepNotFound = errors.New("step not found")
)

// Graph is the dependency graph of pipeline steps. Registration order is
// preserved so topological order is stable across runs.
type Graph struct {
	dag   *dag.DAG
	steps map[StepID]*Step
	order []StepID
}

// NewGraph creates an empty step graph.
func NewGraph() *Graph {
	return &Graph{
		dag:   dag.NewDAG(),
		steps: make(map[StepID]*Step),
	}
}

// AddStep registers a step. All dependencies must already be registered,
// which also makes cycles unrepresentable at registration time; heimdalr's
// edge insertion still rejects them defensively.
func (g *Graph) AddStep(step *Step) error {
	if _, exists := g.steps[step.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateStep, step.ID)
	}

	if err := g.dag.AddVertexByID(string(step.ID), step); err != nil {
		return fmt.Errorf("add step %s: %w", step.ID, err)
	}

	for _, dep := range step.DependsOn {
		if _, exists := g.steps[dep]; !exists {
			return fmt.Errorf("%w: %s -> %s", ErrUnknownDependency, step.ID, dep)
		}

		if err := g.dag.AddEdge(string(dep), string(step.ID)); err != nil {
			return fmt.Errorf("add edge %s -> %s: %w", dep, step.ID, err)
		}
	}

	g.steps[step.ID] = step
	g.order = append(g.order, step.ID)

	return nil
}

// Step returns a registered step.
func (g *Graph) Step(id StepID) (*Step, error) {
	step, ok := g.steps[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStepNotFound, id)
	}

	return step, nil
}

// TopologicalOrder returns all step IDs in execution order. Because AddStep
// requires dependencies to be registered first, registration order is
// already topological.
func (g *Graph) TopologicalOrder() []StepID {
	return append([]StepID(nil), g.order...)
}

// Dependencies returns the direct dependencies of a step.
func (g *Graph) Dependencies(id StepID) []StepID {
	step, ok := g.steps[id]
	if !ok {
		return nil
	}

	return append([]StepID(nil), step.DependsOn...)
}

// Dependents returns the direct dependents of a step.
func (g *Graph) Dependents(id StepID) []StepID {
	children, err := g.dag.GetChildren(string(id))
	if err != nil {
		return nil
	}

	// Preserve registration order for determinism.
	out := make([]StepID, 0, len(children))
	for _, candidate := range g.order {
		if _, ok := children[string(candidate)]; ok {
			out = append(out, candidate)
		}
	}

	return out
}

// Len returns the number of registered steps.
func (g *Graph) Len() int {
	return len(g.steps)
}
