package planner

import "fmt"

// Category tags a query with the research angle it covers. Tags are carried
// through to collected sources for grouping in rendered reports.
type Category string

const (
	CategoryRevenue    Category = "revenue"
	CategoryMarketCap  Category = "market_cap"
	CategoryPortfolio  Category = "portfolio"
	CategoryFinancials Category = "financials"
	CategoryOverview   Category = "overview"
	CategoryCustom     Category = "custom"
)

type Query struct {
	Text     string
	Category Category
}

var queryTemplates = []struct {
	format   string
	category Category
}{
	{"%s revenue 2024", CategoryRevenue},
	{"%s market cap", CategoryMarketCap},
	{"%s subsidiaries portfolio", CategoryPortfolio},
	{"%s financial results", CategoryFinancials},
	{"%s company overview", CategoryOverview},
}

// Plan expands the fixed query templates for an entity. It is deterministic
// and performs no I/O: the same entity always yields the same ordered queries.
func Plan(entity string) []Query {
	if len(queryTemplates) == 0 {
		return []Query{{Text: entity, Category: CategoryCustom}}
	}

	queries := make([]Query, 0, len(queryTemplates))
	for _, tpl := range queryTemplates {
		queries = append(queries, Query{
			Text:     fmt.Sprintf(tpl.format, entity),
			Category: tpl.category,
		})
	}

	return queries
}
