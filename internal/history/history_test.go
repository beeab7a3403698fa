// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/manuscript-review/internal/faults"
	"github.com/pdiddy/manuscript-review/pkg/types"
)

// --- test helpers ---

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(types.HistoryConfig{Enabled: true, Dir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleRun(id string, started time.Time) types.RunRecord {
	var lit types.LiteratureResult
	lit.Add("CGRP receptor", []types.Article{
		{ID: "111", Title: "Receptor structure", Authors: []string{"Ana Ruiz", "Lee Park"}, Journal: "Nature", Year: "2024", Abstract: "Cryo-EM structure."},
		{ID: "112", Title: "Antibody trial", Journal: "Lancet", Year: "2023", Abstract: types.NoAbstract},
	})
	lit.Add("migraine", []types.Article{{ID: "220", Title: "Migraine burden", Year: "2022"}})

	return types.RunRecord{
		ID:          id,
		Manuscript:  "/papers/cgrp.docx",
		Status:      types.RunSucceeded,
		StartedAt:   started,
		FinishedAt:  started.Add(3 * time.Minute),
		ArticleType: types.ArticleResearch,
		Model:       "claude/test",
		Keyphrases:  []string{"CGRP receptor", "migraine"},
		Literature:  lit,
		Evaluation: &types.Evaluation{
			Major:       []string{"The randomisation procedure is not described."},
			Minor:       []string{"Figure 2 lacks error bars."},
			Other:       []string{},
			Suggestions: []string{"Discuss the placebo response rate."},
		},
		Outcome:           "approved",
		AuthorReportPath:  "/papers/cgrp_Author_Report.pdf",
		AuditorReportPath: "/papers/cgrp_Auditor_Report.pdf",
	}
}

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// --- tests ---

func TestOpenRequiresDir(t *testing.T) {
	_, err := Open(types.HistoryConfig{Enabled: true})
	if !errors.Is(err, faults.ErrConfiguration) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}
}

func TestRecordAndGet(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	want := sampleRun("run-aaaa", t0)

	if err := store.Record(ctx, want); err != nil {
		t.Fatal(err)
	}
	got, err := store.Get(ctx, "run-aaaa")
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch:\n got  %+v\n want %+v", got, want)
	}
}

func TestRecordFailedRunWithoutEvaluation(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	run := types.RunRecord{
		ID:         "run-fail",
		Manuscript: "/papers/empty.txt",
		Status:     types.RunFailed,
		StartedAt:  t0,
		FinishedAt: t0.Add(time.Second),
		Error:      "The manuscript appears to be empty or unreadable",
	}
	if err := store.Record(ctx, run); err != nil {
		t.Fatal(err)
	}

	got, err := store.Get(ctx, "run-fail")
	if err != nil {
		t.Fatal(err)
	}
	if got.Evaluation != nil {
		t.Errorf("Evaluation = %+v, want nil", got.Evaluation)
	}
	if got.Error != run.Error || got.Status != types.RunFailed {
		t.Errorf("got status %q error %q", got.Status, got.Error)
	}
	if len(got.Keyphrases) != 0 || len(got.Literature) != 0 {
		t.Errorf("expected no keyphrases or literature, got %v / %v", got.Keyphrases, got.Literature)
	}
}

func TestRecordReplacesSameID(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	first := sampleRun("run-same", t0)
	if err := store.Record(ctx, first); err != nil {
		t.Fatal(err)
	}
	second := first
	second.Keyphrases = []string{"only one"}
	second.Evaluation = &types.Evaluation{Major: []string{"replaced"}, Minor: []string{}, Other: []string{}, Suggestions: []string{}}
	if err := store.Record(ctx, second); err != nil {
		t.Fatal(err)
	}

	got, err := store.Get(ctx, "run-same")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got.Keyphrases, []string{"only one"}) {
		t.Errorf("Keyphrases = %v", got.Keyphrases)
	}
	if !reflect.DeepEqual(got.Evaluation.Major, []string{"replaced"}) {
		t.Errorf("Major = %v", got.Evaluation.Major)
	}

	hits, err := store.Search(ctx, "randomisation", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("stale points still indexed: %+v", hits)
	}
}

func TestRecordRequiresID(t *testing.T) {
	store := testStore(t)
	err := store.Record(context.Background(), types.RunRecord{})
	if !errors.Is(err, faults.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	for i, id := range []string{"run-1", "run-2", "run-3"} {
		if err := store.Record(ctx, sampleRun(id, t0.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := store.List(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].ID != "run-3" || runs[1].ID != "run-2" {
		t.Errorf("order = %s, %s", runs[0].ID, runs[1].ID)
	}
	if runs[0].TotalArticles != 3 {
		t.Errorf("TotalArticles = %d, want 3", runs[0].TotalArticles)
	}
	if runs[0].ArticleType != string(types.ArticleResearch) {
		t.Errorf("ArticleType = %q", runs[0].ArticleType)
	}
}

func TestGetByPrefix(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	for _, id := range []string{"7f3a9c01", "7f3b0000"} {
		if err := store.Record(ctx, sampleRun(id, t0)); err != nil {
			t.Fatal(err)
		}
	}

	got, err := store.Get(ctx, "7f3a")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "7f3a9c01" {
		t.Errorf("ID = %s", got.ID)
	}

	if _, err := store.Get(ctx, "7f3"); !errors.Is(err, faults.ErrValidation) {
		t.Errorf("ambiguous prefix err = %v, want ErrValidation", err)
	}
	if _, err := store.Get(ctx, "ffff"); !errors.Is(err, faults.ErrNotFound) {
		t.Errorf("missing run err = %v, want ErrNotFound", err)
	}
	if _, err := store.Get(ctx, "7f3_"); !errors.Is(err, faults.ErrNotFound) {
		t.Errorf("wildcard in prefix should be literal, err = %v", err)
	}
}

func TestSearchPoints(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	if err := store.Record(ctx, sampleRun("run-s", t0)); err != nil {
		t.Fatal(err)
	}

	hits, err := store.Search(ctx, "error bars", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 {
		t.Fatalf("got %d hits, want 1", len(hits))
	}
	if hits[0].Section != "minor" || hits[0].RunID != "run-s" || hits[0].Manuscript != "/papers/cgrp.docx" {
		t.Errorf("hit = %+v", hits[0])
	}

	if _, err := store.Search(ctx, "", 10); !errors.Is(err, faults.ErrValidation) {
		t.Errorf("empty query err = %v", err)
	}
}

func TestDelete(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	if err := store.Record(ctx, sampleRun("run-del", t0)); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(ctx, "run-del"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(ctx, "run-del"); !errors.Is(err, faults.ErrNotFound) {
		t.Errorf("after delete err = %v", err)
	}
	hits, err := store.Search(ctx, "placebo", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("deleted run still searchable: %+v", hits)
	}
}

func TestExportYAMLAndJSON(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	for i, id := range []string{"run-x", "run-y"} {
		if err := store.Record(ctx, sampleRun(id, t0.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatal(err)
		}
	}

	var yamlBuf bytes.Buffer
	if err := store.ExportYAML(ctx, &yamlBuf); err != nil {
		t.Fatal(err)
	}
	var fromYAML []types.RunRecord
	if err := yaml.Unmarshal(yamlBuf.Bytes(), &fromYAML); err != nil {
		t.Fatal(err)
	}
	if len(fromYAML) != 2 || fromYAML[0].ID != "run-y" {
		t.Fatalf("yaml export = %+v", fromYAML)
	}
	if !strings.Contains(yamlBuf.String(), "checkpoint_outcome: approved") {
		t.Errorf("yaml export missing checkpoint outcome:\n%s", yamlBuf.String())
	}

	var jsonBuf bytes.Buffer
	if err := store.ExportJSON(ctx, &jsonBuf, "run-x"); err != nil {
		t.Fatal(err)
	}
	var fromJSON []types.RunRecord
	if err := json.Unmarshal(jsonBuf.Bytes(), &fromJSON); err != nil {
		t.Fatal(err)
	}
	if len(fromJSON) != 1 || fromJSON[0].ID != "run-x" {
		t.Fatalf("json export = %+v", fromJSON)
	}
	if got := fromJSON[0].Literature.Total(); got != 3 {
		t.Errorf("exported literature total = %d, want 3", got)
	}
}
