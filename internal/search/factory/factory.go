package factory

import (
	"fmt"
	"time"

	"github.com/company-researcher/backend/internal/search"
	"github.com/company-researcher/backend/internal/search/serpapi"
	"github.com/company-researcher/backend/internal/search/tavily"
	"github.com/company-researcher/backend/pkg/config"
)

// NewProvider selects the search backend from config. The serpapi client is
// usable without a key (it falls back to scraping Google), so it is the
// default; tavily requires a key.
func NewProvider(cfg *config.Config) (search.Provider, error) {
	timeout := time.Duration(cfg.Search.TimeoutSec) * time.Second

	switch cfg.Search.Provider {
	case "tavily":
		if cfg.Search.TavilyAPIKey == "" {
			return nil, fmt.Errorf("tavily provider selected but no API key configured")
		}
		return tavily.NewClient(cfg.Search.TavilyAPIKey, cfg.Search.MaxResults, timeout), nil
	case "serpapi", "":
		return serpapi.NewClient(cfg.Search.SerpAPIKey, cfg.Search.MaxResults, timeout), nil
	default:
		return nil, fmt.Errorf("unknown search provider: %s", cfg.Search.Provider)
	}
}
