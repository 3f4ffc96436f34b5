package search

import "github.com/poiesic/noteseek/core"

// SearchMonitor provides hooks to observe a search run.
type SearchMonitor interface {
	Start(method core.SearchMethod, query string)
	AfterKeywordSearch(ids []string)
	AfterSemanticSearch(ids []string, fault error)
	Finish(results []core.SearchResult)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ core.SearchMethod, _ string)     {}
func (n *noopMonitor) AfterKeywordSearch(_ []string)           {}
func (n *noopMonitor) AfterSemanticSearch(_ []string, _ error) {}
func (n *noopMonitor) Finish(_ []core.SearchResult)            {}

func resultIDs(results []core.SearchResult) []string {
	ids := make([]string, len(results))
	for i := range results {
		ids[i] = results[i].ID
	}
	return ids
}
