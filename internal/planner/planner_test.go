package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanIsDeterministic(t *testing.T) {
	first := Plan("Acme Corp")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Plan("Acme Corp"))
	}
}

func TestPlanExpandsAllTemplates(t *testing.T) {
	queries := Plan("Acme Corp")
	require.Len(t, queries, 5)

	expected := []struct {
		text     string
		category Category
	}{
		{"Acme Corp revenue 2024", CategoryRevenue},
		{"Acme Corp market cap", CategoryMarketCap},
		{"Acme Corp subsidiaries portfolio", CategoryPortfolio},
		{"Acme Corp financial results", CategoryFinancials},
		{"Acme Corp company overview", CategoryOverview},
	}

	for i, want := range expected {
		assert.Equal(t, want.text, queries[i].Text)
		assert.Equal(t, want.category, queries[i].Category)
	}
}

func TestPlanDistinctEntities(t *testing.T) {
	assert.NotEqual(t, Plan("Acme Corp"), Plan("Globex"))
}
