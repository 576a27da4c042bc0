package search

import (
	"fmt"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	_ "github.com/blevesearch/bleve/v2/search/highlight/highlighter/ansi"
)

// Index wraps a Bleve search index of tweet text
type Index struct {
	index bleve.Index
}

// IndexedTweet represents a tweet in the search index
type IndexedTweet struct {
	ID        string
	Text      string
	CreatedAt time.Time
	Likes     int
	Retweets  int
}

// SearchResult represents a search result
type SearchResult struct {
	ID        string
	Text      string
	CreatedAt time.Time
	Likes     int
	Retweets  int
	Score     float64
	Fragments map[string][]string // Highlighted snippets
}

// Open opens or creates a Bleve index
func Open(path string) (*Index, error) {
	idx, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		idx, err = bleve.New(path, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}

	return &Index{index: idx}, nil
}

// buildIndexMapping creates the tweet mapping with English stemming on text
func buildIndexMapping() mapping.IndexMapping {
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = "en"

	idFieldMapping := bleve.NewKeywordFieldMapping()

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("ID", idFieldMapping)
	docMapping.AddFieldMappingsAt("Text", textFieldMapping)
	docMapping.AddFieldMappingsAt("CreatedAt", bleve.NewDateTimeFieldMapping())
	docMapping.AddFieldMappingsAt("Likes", bleve.NewNumericFieldMapping())
	docMapping.AddFieldMappingsAt("Retweets", bleve.NewNumericFieldMapping())

	indexMapping := bleve.NewIndexMapping()
	indexMapping.AddDocumentMapping("_default", docMapping)
	indexMapping.DefaultAnalyzer = "en"

	return indexMapping
}

// Close closes the index
func (i *Index) Close() error {
	return i.index.Close()
}

// IndexTweets adds or updates tweets in a single batch
func (i *Index) IndexTweets(tweets []*IndexedTweet) error {
	batch := i.index.NewBatch()
	for _, t := range tweets {
		if err := batch.Index(t.ID, t); err != nil {
			return fmt.Errorf("batch index %s: %w", t.ID, err)
		}
	}

	if err := i.index.Batch(batch); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// Search performs a query string search (quotes, +/-, fuzzy ~)
func (i *Index) Search(queryStr string, limit int) ([]*SearchResult, error) {
	query := bleve.NewQueryStringQuery(queryStr)

	search := bleve.NewSearchRequestOptions(query, limit, 0, false)
	search.Highlight = bleve.NewHighlightWithStyle("ansi")
	search.Fields = []string{"Text", "CreatedAt", "Likes", "Retweets"}

	results, err := i.index.Search(search)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	var searchResults []*SearchResult
	for _, hit := range results.Hits {
		result := &SearchResult{
			ID:        hit.ID,
			Score:     hit.Score,
			Fragments: hit.Fragments,
		}

		if text, ok := hit.Fields["Text"].(string); ok {
			result.Text = text
		}
		if created, ok := hit.Fields["CreatedAt"].(string); ok {
			if t, err := time.Parse(time.RFC3339, created); err == nil {
				result.CreatedAt = t
			}
		}
		if likes, ok := hit.Fields["Likes"].(float64); ok {
			result.Likes = int(likes)
		}
		if retweets, ok := hit.Fields["Retweets"].(float64); ok {
			result.Retweets = int(retweets)
		}

		searchResults = append(searchResults, result)
	}

	return searchResults, nil
}

// Count returns the number of tweets in the index
func (i *Index) Count() (uint64, error) {
	return i.index.DocCount()
}
