// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package document

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	xunicode "golang.org/x/text/encoding/unicode"
)

// TextDecoder reads plain text and Markdown files. UTF-8 is preferred; a
// UTF-16 byte-order mark selects UTF-16, and any other invalid UTF-8 is
// decoded as Windows-1252, then ISO-8859-1.
type TextDecoder struct{}

// Decode reads the file at path.
func (TextDecoder) Decode(_ context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return decodeBytes(data)
}

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

func decodeBytes(data []byte) (string, error) {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		data = data[len(bomUTF8):]
	case bytes.HasPrefix(data, bomUTF16LE), bytes.HasPrefix(data, bomUTF16BE):
		return decodeWith(xunicode.UTF16(xunicode.LittleEndian, xunicode.ExpectBOM), data)
	}

	if utf8.Valid(data) {
		return string(data), nil
	}

	s, err := decodeWith(charmap.Windows1252, data)
	if err == nil && !strings.ContainsRune(s, utf8.RuneError) {
		return s, nil
	}
	return decodeWith(charmap.ISO8859_1, data)
}

func decodeWith(enc encoding.Encoding, data []byte) (string, error) {
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decoding text: %w", err)
	}
	return string(out), nil
}
