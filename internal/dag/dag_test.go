package dag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ok(ctx context.Context, g *Graph) (any, error) { return nil, nil }

func TestExecutionOrderIsStableTopologicalSort(t *testing.T) {
	g := New(nil)
	require.NoError(t, g.AddNode("c", []string{"b"}, ok))
	require.NoError(t, g.AddNode("a", nil, ok))
	require.NoError(t, g.AddNode("b", []string{"a"}, ok))

	order, err := g.ExecutionOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestExecutionOrderLexicographicTieBreak(t *testing.T) {
	g := New(nil)
	require.NoError(t, g.AddNode("z", nil, ok))
	require.NoError(t, g.AddNode("a", nil, ok))
	require.NoError(t, g.AddNode("m", nil, ok))

	order, err := g.ExecutionOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "m", "z"}, order)
}

func TestValidateRejectsMissingDependency(t *testing.T) {
	g := New(nil)
	require.NoError(t, g.AddNode("a", []string{"ghost"}, ok))
	err := g.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestValidateRejectsCycle(t *testing.T) {
	g := New(nil)
	require.NoError(t, g.AddNode("a", []string{"b"}, ok))
	require.NoError(t, g.AddNode("b", []string{"a"}, ok))
	err := g.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestFailedNodeTransitiveDependentsAllSkipped(t *testing.T) {
	// A -> B -> C, A fails. Expect A=failed, B=skipped, C=skipped.
	g := New(nil)
	require.NoError(t, g.AddNode("a", nil, func(ctx context.Context, g *Graph) (any, error) {
		return nil, errors.New("boom")
	}))
	require.NoError(t, g.AddNode("b", []string{"a"}, ok))
	require.NoError(t, g.AddNode("c", []string{"b"}, ok))

	summary, err := g.Execute(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, summary.NodeStatuses["a"])
	assert.Equal(t, StatusSkipped, summary.NodeStatuses["b"])
	assert.Equal(t, StatusSkipped, summary.NodeStatuses["c"], "C must transitively skip even though its direct dependency B was merely skipped, not failed")
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 2, summary.Skipped)
	assert.Equal(t, 0, summary.Completed)
}

func TestFailFastStopsOnFirstFailure(t *testing.T) {
	var ranC bool
	g := New(nil)
	require.NoError(t, g.AddNode("a", nil, func(ctx context.Context, g *Graph) (any, error) {
		return nil, errors.New("boom")
	}))
	require.NoError(t, g.AddNode("b", nil, func(ctx context.Context, g *Graph) (any, error) {
		ranC = true
		return nil, nil
	}))

	_, err := g.Execute(context.Background(), true)
	require.NoError(t, err)
	assert.False(t, ranC, "fail_fast must stop before running independent sibling nodes")
}

func TestIndependentSiblingContinuesAfterFailureWithoutFailFast(t *testing.T) {
	var ranB bool
	g := New(nil)
	require.NoError(t, g.AddNode("a", nil, func(ctx context.Context, g *Graph) (any, error) {
		return nil, errors.New("boom")
	}))
	require.NoError(t, g.AddNode("b", nil, func(ctx context.Context, g *Graph) (any, error) {
		ranB = true
		return nil, nil
	}))

	summary, err := g.Execute(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, ranB)
	assert.Equal(t, StatusSuccess, summary.NodeStatuses["b"])
}

func TestNodeResultAvailableToDownstream(t *testing.T) {
	g := New(nil)
	require.NoError(t, g.AddNode("a", nil, func(ctx context.Context, g *Graph) (any, error) {
		return 42, nil
	}))
	require.NoError(t, g.AddNode("b", []string{"a"}, func(ctx context.Context, g *Graph) (any, error) {
		return g.Node("a").Result(), nil
	}))

	_, err := g.Execute(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 42, g.Node("b").Result())
}
