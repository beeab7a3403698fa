// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search retrieves comparable literature for a set of keyphrases.
// The Engine runs an adaptive strategy that widens the publication window
// when a query returns too few articles; a Backend performs the actual
// database calls.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pdiddy/manuscript-review/internal/logging"
	"github.com/pdiddy/manuscript-review/pkg/types"
)

// Backend queries one bibliographic database. Implementations follow the
// Strategy pattern so tests can substitute a fake.
type Backend interface {
	Name() string

	// SearchIDs returns article ids matching q, newest first.
	SearchIDs(ctx context.Context, q Query) (IDList, error)

	// FetchDetails resolves ids into records. A record that cannot be
	// parsed is returned as a failure rather than aborting the batch.
	FetchDetails(ctx context.Context, ids []string) ([]Record, error)
}

// Query is one database search. A zero FromYear means no date restriction.
type Query struct {
	Term     string
	FromYear int
	ToYear   int
	Max      int
}

// Dated reports whether the query restricts publication dates.
func (q Query) Dated() bool { return q.FromYear > 0 }

// IDList is the result of an id search. Count is the total number of
// matches reported by the database, which may exceed len(IDs).
type IDList struct {
	IDs   []string
	Count int
}

// Total returns the larger of Count and the returned id count.
func (l IDList) Total() int {
	return max(l.Count, len(l.IDs))
}

// Record carries either a parsed article or the reason it could not be
// parsed.
type Record struct {
	Article types.Article
	Failure *ParseFailure
}

// ParseFailure describes a detail record that was skipped.
type ParseFailure struct {
	ID     string
	Reason string
}

func (f ParseFailure) Error() string {
	if f.ID == "" {
		return "unparseable record: " + f.Reason
	}
	return fmt.Sprintf("unparseable record %s: %s", f.ID, f.Reason)
}

// Engine runs the adaptive per-keyphrase and combined search strategies.
type Engine struct {
	Backend Backend

	InitialYears  int
	ExtendedYears int
	MinResults    int
	MaxResults    int
	ProbeSize     int

	// Now supplies the current time for date windows.
	Now    func() time.Time
	Logger *slog.Logger
}

// NewEngine builds an Engine from the PubMed settings.
func NewEngine(b Backend, cfg types.PubMedConfig, logger *slog.Logger) *Engine {
	return &Engine{
		Backend:       b,
		InitialYears:  cfg.InitialYears,
		ExtendedYears: cfg.ExtendedYears,
		MinResults:    cfg.MinResults,
		MaxResults:    cfg.MaxResults,
		ProbeSize:     cfg.ProbeSize,
		Now:           time.Now,
		Logger:        logger,
	}
}

func (e *Engine) logger() *slog.Logger { return logging.OrDiscard(e.Logger) }

func (e *Engine) currentYear() int {
	if e.Now == nil {
		return time.Now().Year()
	}
	return e.Now().Year()
}

// Search runs the adaptive strategy for each phrase in order, one database
// call at a time. Phrases that resolve to no articles are omitted from the
// result. A failure for one phrase is logged and never aborts the others;
// only context cancellation is returned as an error.
func (e *Engine) Search(ctx context.Context, phrases []string, perPhrase int) (types.LiteratureResult, error) {
	var result types.LiteratureResult
	searched := make(map[string]bool, len(phrases))
	for _, phrase := range phrases {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if searched[phrase] {
			e.logger().Debug("keyphrase already searched", "phrase", phrase)
			continue
		}
		searched[phrase] = true
		articles, err := e.SearchPhrase(ctx, phrase, perPhrase)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			e.logger().Warn("keyphrase search failed", "phrase", phrase, "error", err)
			continue
		}
		e.logger().Info("keyphrase searched", "phrase", phrase, "articles", len(articles))
		result.Add(phrase, articles)
	}
	return result, nil
}

// SearchPhrase escalates through three rounds: the initial window, the
// extended window, then no date restriction. Each round replaces the
// previous id list. The final ids are resolved into articles.
func (e *Engine) SearchPhrase(ctx context.Context, phrase string, perPhrase int) ([]types.Article, error) {
	year := e.currentYear()
	rounds := []Query{
		{Term: phrase, FromYear: year - e.InitialYears, ToYear: year, Max: perPhrase},
		{Term: phrase, FromYear: year - e.ExtendedYears, ToYear: year, Max: perPhrase},
		{Term: phrase, Max: perPhrase},
	}

	var ids []string
	for i, q := range rounds {
		list, err := e.Backend.SearchIDs(ctx, q)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			e.logger().Warn("search round failed", "phrase", phrase, "round", i+1, "error", err)
			list = IDList{}
		}
		ids = list.IDs
		if len(ids) >= e.MinResults {
			break
		}
		e.logger().Debug("too few results, widening window", "phrase", phrase, "round", i+1, "ids", len(ids))
	}

	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > perPhrase {
		ids = ids[:perPhrase]
	}
	return e.fetch(ctx, ids)
}

// SearchCombined issues one query ANDing all phrases over the initial
// window. A combined result is kept under the combined_search key unless it
// matches fewer than MinResults articles, in which case the per-phrase
// strategy runs instead.
func (e *Engine) SearchCombined(ctx context.Context, phrases []string, target int) (types.LiteratureResult, error) {
	year := e.currentYear()
	q := Query{
		Term:     CombinedTerm(phrases),
		FromYear: year - e.InitialYears,
		ToYear:   year,
		Max:      e.ProbeSize,
	}

	list, err := e.Backend.SearchIDs(ctx, q)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.logger().Warn("combined search failed, searching phrases individually", "error", err)
		return e.Search(ctx, phrases, target)
	}

	total := list.Total()
	switch {
	case total > e.MaxResults:
		e.logger().Info("combined query is broad, keeping AND combination", "matches", total)
	case total < e.MinResults:
		e.logger().Info("combined query is narrow, searching phrases individually", "matches", total)
		return e.Search(ctx, phrases, target)
	default:
		e.logger().Info("combined query kept", "matches", total)
	}

	ids := list.IDs
	if len(ids) > target {
		ids = ids[:target]
	}
	articles, err := e.fetch(ctx, ids)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.logger().Warn("combined fetch failed", "error", err)
		return nil, nil
	}

	var result types.LiteratureResult
	result.Add(types.CombinedSearchKey, articles)
	return result, nil
}

// CombinedTerm quotes each phrase and joins them with AND.
func CombinedTerm(phrases []string) string {
	quoted := make([]string, len(phrases))
	for i, p := range phrases {
		quoted[i] = `"` + strings.ReplaceAll(p, `"`, "") + `"`
	}
	return strings.Join(quoted, " AND ")
}

func (e *Engine) fetch(ctx context.Context, ids []string) ([]types.Article, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	records, err := e.Backend.FetchDetails(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetching %d records from %s: %w", len(ids), e.Backend.Name(), err)
	}

	articles := make([]types.Article, 0, len(records))
	for _, r := range records {
		if r.Failure != nil {
			e.logger().Warn("skipping record", "error", r.Failure.Error())
			continue
		}
		articles = append(articles, r.Article)
	}
	return articles, nil
}
