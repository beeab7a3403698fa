// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/manuscript-review/internal/httputil"
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
}

const efetchFixture = `<?xml version="1.0" ?>
<!DOCTYPE PubmedArticleSet PUBLIC "-//NLM//DTD PubMedArticle, 1st January 2024//EN" "https://dtd.nlm.nih.gov/ncbi/pubmed/out/pubmed_240101.dtd">
<PubmedArticleSet>
<PubmedArticle>
  <MedlineCitation Status="MEDLINE" Owner="NLM">
    <PMID Version="1">38012345</PMID>
    <Article PubModel="Print">
      <Journal>
        <JournalIssue CitedMedium="Internet">
          <PubDate><Year>2023</Year><Month>Nov</Month></PubDate>
        </JournalIssue>
        <Title>Cephalalgia : an international journal of headache</Title>
      </Journal>
      <ArticleTitle>Anti-<i>CGRP</i> antibodies &amp; migraine.</ArticleTitle>
      <Abstract>
        <AbstractText Label="BACKGROUND">Migraine is disabling.</AbstractText>
        <AbstractText Label="RESULTS">Attacks fell by 50<sup>%</sup>.</AbstractText>
      </Abstract>
      <AuthorList CompleteYN="Y">
        <Author ValidYN="Y"><LastName>Smith</LastName><ForeName>Jane</ForeName><Initials>J</Initials></Author>
        <Author ValidYN="Y"><CollectiveName>Migraine Trial Group</CollectiveName></Author>
        <Author ValidYN="Y"><LastName>Solo</LastName></Author>
      </AuthorList>
    </Article>
  </MedlineCitation>
</PubmedArticle>
<PubmedArticle>
  <MedlineCitation>
    <PMID Version="1">37000001</PMID>
    <Article>
      <Journal>
        <JournalIssue><PubDate><MedlineDate>2019 Nov-Dec</MedlineDate></PubDate></JournalIssue>
      </Journal>
    </Article>
  </MedlineCitation>
</PubmedArticle>
<PubmedArticle>
  <MedlineCitation>
    <Article><ArticleTitle>No identifier</ArticleTitle></Article>
  </MedlineCitation>
</PubmedArticle>
</PubmedArticleSet>`

func withEutils(t *testing.T, h http.HandlerFunc) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	origSearch, origFetch := esearchURL, efetchURL
	esearchURL = srv.URL + "/esearch.fcgi"
	efetchURL = srv.URL + "/efetch.fcgi"
	t.Cleanup(func() { esearchURL, efetchURL = origSearch, origFetch })
}

func testPubMed() *PubMedBackend {
	return &PubMedBackend{
		Client:    http.DefaultClient,
		UserAgent: "test/0.1",
		Tool:      "manuscript-review",
		Email:     "reviewer@example.org",
		APIKey:    "secret",
	}
}

func TestPubMedSearchIDsParams(t *testing.T) {
	withEutils(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		checks := map[string]string{
			"db": "pubmed", "term": "migraine", "retmode": "json", "sort": "pub_date",
			"retmax": "20", "datetype": "pdat", "mindate": "2020/01/01", "maxdate": "2025/12/31",
			"tool": "manuscript-review", "email": "reviewer@example.org", "api_key": "secret",
		}
		for k, want := range checks {
			if got := q.Get(k); got != want {
				t.Errorf("param %s = %q, want %q", k, got, want)
			}
		}
		if ua := r.Header.Get("User-Agent"); ua != "test/0.1" {
			t.Errorf("User-Agent = %q", ua)
		}
		w.Write([]byte(`{"header":{},"esearchresult":{"count":"1234","retmax":"3","idlist":["3","2","1"]}}`))
	})

	list, err := testPubMed().SearchIDs(context.Background(), Query{Term: "migraine", FromYear: 2020, ToYear: 2025, Max: 20})
	if err != nil {
		t.Fatalf("SearchIDs: %v", err)
	}
	if list.Count != 1234 || strings.Join(list.IDs, ",") != "3,2,1" {
		t.Errorf("list = %+v", list)
	}
}

func TestPubMedSearchIDsUndated(t *testing.T) {
	withEutils(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Has("mindate") || r.URL.Query().Has("datetype") {
			t.Errorf("undated query carries date params: %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"esearchresult":{"count":"0","idlist":[]}}`))
	})

	list, err := testPubMed().SearchIDs(context.Background(), Query{Term: "rare disease", Max: 20})
	if err != nil {
		t.Fatalf("SearchIDs: %v", err)
	}
	if list.Total() != 0 {
		t.Errorf("Total = %d, want 0", list.Total())
	}
}

func TestPubMedSearchIDsErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"http error", http.StatusInternalServerError, ""},
		{"esearch error field", http.StatusOK, `{"error":"API key invalid"}`},
		{"bad json", http.StatusOK, `<html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withEutils(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			if _, err := testPubMed().SearchIDs(context.Background(), Query{Term: "x"}); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := testPubMed().SearchIDs(context.Background(), Query{Term: "  "}); err == nil {
		t.Error("expected error for empty term")
	}
}

func TestPubMedRetriesThrottle(t *testing.T) {
	calls := 0
	withEutils(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"esearchresult":{"count":"1","idlist":["9"]}}`))
	})

	list, err := testPubMed().SearchIDs(context.Background(), Query{Term: "x"})
	if err != nil {
		t.Fatalf("SearchIDs: %v", err)
	}
	if calls != 2 || len(list.IDs) != 1 {
		t.Errorf("calls = %d ids = %v", calls, list.IDs)
	}
}

func TestPubMedFetchDetails(t *testing.T) {
	withEutils(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("id"); got != "38012345,37000001,0" {
			t.Errorf("id = %q", got)
		}
		if got := r.URL.Query().Get("retmode"); got != "xml" {
			t.Errorf("retmode = %q", got)
		}
		w.Write([]byte(efetchFixture))
	})

	records, err := testPubMed().FetchDetails(context.Background(), []string{"38012345", "37000001", "0"})
	if err != nil {
		t.Fatalf("FetchDetails: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}

	a := records[0].Article
	if records[0].Failure != nil {
		t.Fatalf("record 0 failed: %v", records[0].Failure)
	}
	if a.ID != "38012345" {
		t.Errorf("ID = %q", a.ID)
	}
	if a.Title != "Anti-CGRP antibodies & migraine." {
		t.Errorf("Title = %q", a.Title)
	}
	if a.Abstract != "Migraine is disabling. Attacks fell by 50%." {
		t.Errorf("Abstract = %q", a.Abstract)
	}
	if strings.Join(a.Authors, ", ") != "Jane Smith, Migraine Trial Group" {
		t.Errorf("Authors = %v", a.Authors)
	}
	if a.Year != "2023" || a.Journal != "Cephalalgia : an international journal of headache" {
		t.Errorf("Year = %q Journal = %q", a.Year, a.Journal)
	}

	b := records[1].Article
	if b.Year != "2019 Nov-Dec" {
		t.Errorf("medline date fallback: Year = %q", b.Year)
	}
	if b.Title != "No title" || b.Journal != "Unknown journal" || b.HasAbstract() {
		t.Errorf("defaults not applied: %+v", b)
	}

	if records[2].Failure == nil {
		t.Error("record without PMID should be a parse failure")
	}
}

func TestPubMedFetchMalformedXML(t *testing.T) {
	withEutils(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<PubmedArticleSet><PubmedArticle><MedlineCitation>`))
	})
	if _, err := testPubMed().FetchDetails(context.Background(), []string{"1"}); err == nil {
		t.Error("expected error for truncated XML")
	}
}

func TestPubMedPacesRequests(t *testing.T) {
	var stamps []time.Time
	withEutils(t, func(w http.ResponseWriter, r *http.Request) {
		stamps = append(stamps, time.Now())
		w.Write([]byte(`{"esearchresult":{"count":"0","idlist":[]}}`))
	})

	b := testPubMed()
	b.RequestDelay = 40 * time.Millisecond
	for range 3 {
		if _, err := b.SearchIDs(context.Background(), Query{Term: "x"}); err != nil {
			t.Fatalf("SearchIDs: %v", err)
		}
	}
	for i := 1; i < len(stamps); i++ {
		if gap := stamps[i].Sub(stamps[i-1]); gap < 35*time.Millisecond {
			t.Errorf("gap %d = %v, want >= request delay", i, gap)
		}
	}
}
