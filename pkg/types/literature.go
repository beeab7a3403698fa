// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

const (
	// NoAbstract is the sentinel abstract for records without one.
	NoAbstract = "No abstract available"

	// ImportedID marks articles supplied through a manual import file.
	ImportedID = "imported"

	// CombinedSearchKey groups articles found by an AND-combined query.
	CombinedSearchKey = "combined_search"

	// ImportedArticlesKey groups manually imported articles.
	ImportedArticlesKey = "imported_articles"
)

// Article is a bibliographic record returned by the literature search or
// a manual import. It is immutable once created.
type Article struct {
	// ID is the database identifier (a PMID) or ImportedID.
	ID string `json:"id" yaml:"id"`

	// Title is the article title.
	Title string `json:"title" yaml:"title"`

	// Authors lists display names ("First Last") in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Journal is the journal title.
	Journal string `json:"journal" yaml:"journal"`

	// Year is the publication year, or a free-form medline date when no
	// structured year is available.
	Year string `json:"year" yaml:"year"`

	// Abstract is the concatenated abstract, or NoAbstract.
	Abstract string `json:"abstract" yaml:"abstract"`
}

// HasAbstract reports whether the article carries a real abstract.
func (a Article) HasAbstract() bool {
	return a.Abstract != "" && a.Abstract != NoAbstract
}

// PhraseArticles holds the articles found for one keyphrase (or for a
// synthetic key such as CombinedSearchKey).
type PhraseArticles struct {
	Key      string    `json:"key" yaml:"key"`
	Articles []Article `json:"articles" yaml:"articles"`
}

// LiteratureResult maps keys to article lists. Entry order is search
// execution order.
type LiteratureResult []PhraseArticles

// Add records articles under key. Empty article lists are not recorded, so
// a key is present only when it has at least one article. Adding to a key
// that is already present replaces its articles in place; each key appears
// once.
func (r *LiteratureResult) Add(key string, articles []Article) {
	if len(articles) == 0 {
		return
	}
	for i := range *r {
		if (*r)[i].Key == key {
			(*r)[i].Articles = articles
			return
		}
	}
	*r = append(*r, PhraseArticles{Key: key, Articles: articles})
}

// Lookup returns the articles recorded under key.
func (r LiteratureResult) Lookup(key string) ([]Article, bool) {
	for _, e := range r {
		if e.Key == key {
			return e.Articles, true
		}
	}
	return nil, false
}

// Keys returns the keys in insertion order.
func (r LiteratureResult) Keys() []string {
	keys := make([]string, len(r))
	for i, e := range r {
		keys[i] = e.Key
	}
	return keys
}

// Total returns the number of articles across all keys.
func (r LiteratureResult) Total() int {
	n := 0
	for _, e := range r {
		n += len(e.Articles)
	}
	return n
}

// IsEmpty reports whether no key has any article.
func (r LiteratureResult) IsEmpty() bool {
	return r.Total() == 0
}
