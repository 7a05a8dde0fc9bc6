package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraph_AddStep(t *testing.T) {
	g := NewGraph()

	require.NoError(t, g.AddStep(&Step{ID: "a"}))
	require.NoError(t, g.AddStep(&Step{ID: "b", DependsOn: []StepID{"a"}}))
	require.NoError(t, g.AddStep(&Step{ID: "c", DependsOn: []StepID{"a", "b"}}))

	assert.Equal(t, 3, g.Len())
	assert.Equal(t, []StepID{"a", "b", "c"}, g.TopologicalOrder())
	assert.Equal(t, []StepID{"a", "b"}, g.Dependencies("c"))
	assert.Equal(t, []StepID{"b", "c"}, g.Dependents("a"))
}

func TestGraph_DuplicateStep(t *testing.T) {
	g := NewGraph()

	require.NoError(t, g.AddStep(&Step{ID: "a"}))
	require.ErrorIs(t, g.AddStep(&Step{ID: "a"}), ErrDuplicateStep)
}

func TestGraph_UnknownDependency(t *testing.T) {
	g := NewGraph()

	err := g.AddStep(&Step{ID: "b", DependsOn: []StepID{"missing"}})
	require.ErrorIs(t, err, ErrUnknownDependency)
}

func TestGraph_StepLookup(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.AddStep(&Step{ID: "a"}))

	step, err := g.Step("a")
	require.NoError(t, err)
	assert.Equal(t, StepID("a"), step.ID)

	_, err = g.Step("missing")
	require.ErrorIs(t, err, ErrStepNotFound)
}
