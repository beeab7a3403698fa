// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package document

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/manuscript-review/internal/container"
	"github.com/pdiddy/manuscript-review/internal/faults"
	"github.com/pdiddy/manuscript-review/pkg/types"
)

// fakeRuntime stands in for docker/podman.
type fakeRuntime struct {
	imageErr error
	runErr   error
	output   string
	gotArgs  []string
	gotInput string
}

func (f *fakeRuntime) Name() string                            { return "fake" }
func (f *fakeRuntime) Available(context.Context) bool          { return true }
func (f *fakeRuntime) ImageExists(context.Context, string) error { return f.imageErr }

func (f *fakeRuntime) Run(_ context.Context, inv container.Invocation) error {
	f.gotArgs = inv.Args
	if inv.Stdin != nil {
		data, _ := io.ReadAll(inv.Stdin)
		f.gotInput = string(data)
	}
	if f.runErr != nil {
		return f.runErr
	}
	_, err := io.WriteString(inv.Stdout, f.output)
	return err
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

const researchManuscript = `Calcitonin gene-related peptide in migraine

Abstract
Keywords: CGRP receptor, migraine, calcitonin gene-related peptide, therapeutic target, monoclonal antibodies

Introduction
Migraine is common.

Materials and Methods
We recruited participants.

Results
Attack frequency fell.

Discussion
CGRP blockade works.`

func TestExtractTextFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "paper.txt", []byte(researchManuscript))

	ex := NewExtractor(nil, nil)
	m, err := ex.Extract(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, path, m.Path)
	assert.Equal(t, types.ArticleResearch, m.ArticleType)
	require.Len(t, m.DeclaredKeywords, 5)
	assert.Equal(t, "CGRP receptor", m.DeclaredKeywords[0])
}

func TestExtractEmptyManuscript(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "blank.txt", []byte("  \n\t\n "))

	_, err := NewExtractor(nil, nil).Extract(context.Background(), path)
	require.Error(t, err)
	assert.ErrorIs(t, err, faults.ErrEmptyManuscript)
	assert.Contains(t, err.Error(), "The manuscript appears to be empty or unreadable")
}

func TestExtractUnsupportedAndMissing(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "figure.png", []byte{0x89, 'P', 'N', 'G'})

	ex := NewExtractor(nil, nil)
	_, err := ex.Extract(context.Background(), path)
	assert.ErrorIs(t, err, faults.ErrValidation)

	_, err = ex.Extract(context.Background(), filepath.Join(dir, "nope.txt"))
	assert.ErrorIs(t, err, faults.ErrNotFound)
}

func TestExtractPDFThroughMarkitdown(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "paper.PDF", []byte("%PDF-1.7 fake"))

	rt := &fakeRuntime{output: "# Title\n\nA review of the literature on migraine.\n"}
	ex := NewExtractor(rt, nil)

	m, err := ex.Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "# Title\n\nA review of the literature on migraine.", m.Text)
	assert.Equal(t, types.ArticleReview, m.ArticleType)
	assert.Equal(t, []string{"-x", "pdf"}, rt.gotArgs)
	assert.Equal(t, "%PDF-1.7 fake", rt.gotInput)
}

func TestExtractMarkitdownFailureIsExternal(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "paper.docx", []byte("PK"))

	tests := []struct {
		name string
		rt   *fakeRuntime
	}{
		{"image missing", &fakeRuntime{imageErr: errors.New("no such image")}},
		{"container fails", &fakeRuntime{runErr: errors.New("exit 1")}},
		{"empty output", &fakeRuntime{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewExtractor(tt.rt, nil).Extract(context.Background(), path)
			assert.ErrorIs(t, err, faults.ErrExternalTool)
		})
	}
}

func TestDecodeBytes(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{"utf8", []byte("café"), "café"},
		{"utf8 bom", append([]byte{0xEF, 0xBB, 0xBF}, []byte("hello")...), "hello"},
		{"windows-1252 quotes", []byte{0x93, 'h', 'i', 0x94}, "“hi”"},
		{"latin1 e acute", []byte{'c', 'a', 'f', 0xE9}, "café"},
		{"utf16 le bom", []byte{0xFF, 0xFE, 'o', 0, 'k', 0}, "ok"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeBytes(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRTFDecoder(t *testing.T) {
	doc := `{\rtf1\ansi{\fonttbl{\f0 Times;}}{\*\generator Writer;}\f0 Hello\par World \'e9t\'e9 \u8364?\par\par\par\par Keywords: migraine, CGRP}`
	dir := t.TempDir()
	path := writeFile(t, dir, "paper.rtf", []byte(doc))

	got, err := RTFDecoder{}.Decode(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Hello\nWorld été €\n\nKeywords: migraine, CGRP", got)

	notRTF := writeFile(t, dir, "fake.rtf", []byte("plain text"))
	_, err = RTFDecoder{}.Decode(context.Background(), notRTF)
	assert.Error(t, err)
}

func TestNormaliseComposesAccents(t *testing.T) {
	decomposed := "cafe\u0301\r\n"
	assert.Equal(t, "café", normalise(decomposed))
}
