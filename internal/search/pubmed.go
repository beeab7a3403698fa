// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pdiddy/manuscript-review/internal/faults"
	"github.com/pdiddy/manuscript-review/internal/httputil"
	"github.com/pdiddy/manuscript-review/pkg/types"
)

// E-utilities endpoints. Declared as vars so tests can substitute an
// httptest server.
var (
	esearchURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/esearch.fcgi"
	efetchURL  = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/efetch.fcgi"
)

// PubMedBackend queries PubMed through NCBI E-utilities. Consecutive calls
// are spaced by RequestDelay.
type PubMedBackend struct {
	Client       *http.Client
	UserAgent    string
	Email        string
	Tool         string
	APIKey       string
	RequestDelay time.Duration
	MaxRetries   int
	Logger       *slog.Logger

	mu       sync.Mutex
	lastCall time.Time
}

// NewPubMedBackend builds a backend from the PubMed settings.
func NewPubMedBackend(cfg types.PubMedConfig, logger *slog.Logger) *PubMedBackend {
	return &PubMedBackend{
		Client:       &http.Client{Timeout: cfg.Timeout},
		UserAgent:    cfg.UserAgent,
		Email:        cfg.Email,
		Tool:         cfg.Tool,
		APIKey:       cfg.APIKey,
		RequestDelay: cfg.RequestDelay,
		MaxRetries:   cfg.MaxRetries,
		Logger:       logger,
	}
}

// Name returns the backend identifier.
func (b *PubMedBackend) Name() string { return "pubmed" }

type esearchResponse struct {
	Result struct {
		Count  string   `json:"count"`
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
	Error string `json:"error"`
}

// SearchIDs runs esearch sorted by publication date.
func (b *PubMedBackend) SearchIDs(ctx context.Context, q Query) (IDList, error) {
	if strings.TrimSpace(q.Term) == "" {
		return IDList{}, fmt.Errorf("empty PubMed query: %w", faults.ErrValidation)
	}

	params := b.baseParams()
	params.Set("term", q.Term)
	params.Set("retmode", "json")
	params.Set("sort", "pub_date")
	if q.Max > 0 {
		params.Set("retmax", strconv.Itoa(q.Max))
	}
	if q.Dated() {
		params.Set("datetype", "pdat")
		params.Set("mindate", fmt.Sprintf("%d/01/01", q.FromYear))
		params.Set("maxdate", fmt.Sprintf("%d/12/31", q.ToYear))
	}

	body, err := b.get(ctx, esearchURL, params)
	if err != nil {
		return IDList{}, err
	}
	defer body.Close()

	var resp esearchResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return IDList{}, fmt.Errorf("parsing esearch response: %w", err)
	}
	if resp.Error != "" {
		return IDList{}, fmt.Errorf("esearch: %s: %w", resp.Error, faults.ErrExternalTool)
	}

	count, _ := strconv.Atoi(resp.Result.Count)
	return IDList{IDs: resp.Result.IDList, Count: count}, nil
}

// FetchDetails runs efetch in XML mode and parses each PubmedArticle.
func (b *PubMedBackend) FetchDetails(ctx context.Context, ids []string) ([]Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	params := b.baseParams()
	params.Set("id", strings.Join(ids, ","))
	params.Set("retmode", "xml")

	body, err := b.get(ctx, efetchURL, params)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	return parseArticleSet(body)
}

func (b *PubMedBackend) baseParams() url.Values {
	params := url.Values{}
	params.Set("db", "pubmed")
	if b.Tool != "" {
		params.Set("tool", b.Tool)
	}
	if b.Email != "" {
		params.Set("email", b.Email)
	}
	if b.APIKey != "" {
		params.Set("api_key", b.APIKey)
	}
	return params
}

// get waits out the courtesy delay, then issues the request with 429
// backoff. The caller closes the returned body.
func (b *PubMedBackend) get(ctx context.Context, endpoint string, params url.Values) (io.ReadCloser, error) {
	if err := b.pace(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if b.UserAgent != "" {
		req.Header.Set("User-Agent", b.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, b.Client, req, b.MaxRetries, b.Logger)
	if err != nil {
		return nil, fmt.Errorf("PubMed request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("PubMed returned HTTP %d: %w", resp.StatusCode, faults.ErrExternalTool)
	}
	return resp.Body, nil
}

func (b *PubMedBackend) pace(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if wait := b.RequestDelay - time.Since(b.lastCall); !b.lastCall.IsZero() && wait > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	b.lastCall = time.Now()
	return nil
}

// PubMed efetch XML structures.
type pubmedArticle struct {
	Citation *struct {
		PMID    string `xml:"PMID"`
		Article *struct {
			Title    markup `xml:"ArticleTitle"`
			Abstract struct {
				Texts []markup `xml:"AbstractText"`
			} `xml:"Abstract"`
			Authors []struct {
				LastName       string `xml:"LastName"`
				ForeName       string `xml:"ForeName"`
				CollectiveName string `xml:"CollectiveName"`
			} `xml:"AuthorList>Author"`
			Journal struct {
				Title   string `xml:"Title"`
				PubDate struct {
					Year        string `xml:"Year"`
					MedlineDate string `xml:"MedlineDate"`
				} `xml:"JournalIssue>PubDate"`
			} `xml:"Journal"`
		} `xml:"Article"`
	} `xml:"MedlineCitation"`
}

// markup keeps inline formatting tags (<i>, <sup>) so they can be
// stripped instead of dropping the text inside them.
type markup struct {
	Inner string `xml:",innerxml"`
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

func (m markup) text() string {
	s := tagPattern.ReplaceAllString(m.Inner, "")
	return strings.Join(strings.Fields(html.UnescapeString(s)), " ")
}

// parseArticleSet streams PubmedArticle elements. Malformed XML aborts the
// batch; a structurally incomplete article becomes a ParseFailure.
func parseArticleSet(r io.Reader) ([]Record, error) {
	dec := xml.NewDecoder(r)
	var records []Record
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return records, fmt.Errorf("parsing efetch response: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "PubmedArticle" {
			continue
		}
		var pa pubmedArticle
		if err := dec.DecodeElement(&pa, &start); err != nil {
			return records, fmt.Errorf("parsing PubmedArticle: %w", err)
		}
		records = append(records, toRecord(pa))
	}
}

func toRecord(pa pubmedArticle) Record {
	c := pa.Citation
	if c == nil {
		return Record{Failure: &ParseFailure{Reason: "missing MedlineCitation"}}
	}
	pmid := strings.TrimSpace(c.PMID)
	if pmid == "" {
		return Record{Failure: &ParseFailure{Reason: "missing PMID"}}
	}
	if c.Article == nil {
		return Record{Failure: &ParseFailure{ID: pmid, Reason: "missing Article"}}
	}
	art := c.Article

	a := types.Article{
		ID:       pmid,
		Title:    art.Title.text(),
		Journal:  strings.TrimSpace(art.Journal.Title),
		Year:     strings.TrimSpace(art.Journal.PubDate.Year),
		Abstract: types.NoAbstract,
	}
	if a.Title == "" {
		a.Title = "No title"
	}
	if a.Journal == "" {
		a.Journal = "Unknown journal"
	}
	if a.Year == "" {
		a.Year = strings.TrimSpace(art.Journal.PubDate.MedlineDate)
	}
	if a.Year == "" {
		a.Year = "N/A"
	}

	for _, au := range art.Authors {
		switch {
		case au.ForeName != "" && au.LastName != "":
			a.Authors = append(a.Authors, au.ForeName+" "+au.LastName)
		case au.CollectiveName != "":
			a.Authors = append(a.Authors, au.CollectiveName)
		}
	}

	var parts []string
	for _, t := range art.Abstract.Texts {
		if s := t.text(); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) > 0 {
		a.Abstract = strings.Join(parts, " ")
	}
	return Record{Article: a}
}
