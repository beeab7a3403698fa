// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package document

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// RTFDecoder strips RTF control words and groups, keeping the body text.
// Non-text destinations (font and colour tables, pictures, metadata) are
// skipped. \'hh escapes are decoded as Windows-1252 and \uN as Unicode.
type RTFDecoder struct{}

// Decode reads the RTF file at path.
func (RTFDecoder) Decode(_ context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	if !strings.HasPrefix(strings.TrimSpace(string(data)), `{\rtf`) {
		return "", fmt.Errorf("%s is not an RTF document", path)
	}
	return stripRTF(string(data)), nil
}

// skippedDestinations never contribute body text.
var skippedDestinations = map[string]bool{
	"fonttbl": true, "colortbl": true, "stylesheet": true, "info": true,
	"pict": true, "header": true, "footer": true, "headerl": true,
	"headerr": true, "footerl": true, "footerr": true, "object": true,
	"themedata": true, "datastore": true, "latentstyles": true,
	"listtable": true, "listoverridetable": true, "rsidtbl": true,
	"generator": true, "xmlnstbl": true, "mmathPr": true, "filetbl": true,
}

// symbolWords map control words to the text they stand for.
var symbolWords = map[string]string{
	"par": "\n", "line": "\n", "sect": "\n\n", "page": "\n\n", "row": "\n",
	"tab": "\t", "cell": "\t",
	"lquote": "'", "rquote": "'", "ldblquote": `"`, "rdblquote": `"`,
	"bullet": "•", "endash": "-", "emdash": "-", "emspace": " ", "enspace": " ",
}

type rtfGroup struct {
	skip   bool
	ucSkip int
}

var blankRuns = regexp.MustCompile(`\n{3,}`)

func stripRTF(doc string) string {
	var out strings.Builder
	stack := []rtfGroup{{ucSkip: 1}}
	pendingSkip := 0

	top := func() *rtfGroup { return &stack[len(stack)-1] }
	emit := func(s string) {
		if top().skip {
			return
		}
		for _, r := range s {
			if pendingSkip > 0 {
				pendingSkip--
				continue
			}
			out.WriteRune(r)
		}
	}
	emitByte := func(b byte) {
		emit(string(charmap.Windows1252.DecodeByte(b)))
	}

	for i := 0; i < len(doc); {
		c := doc[i]
		switch c {
		case '{':
			stack = append(stack, *top())
			i++
		case '}':
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
			i++
		case '\r', '\n':
			i++
		case '\\':
			i = rtfControl(doc, i+1, top(), emit, emitByte, &pendingSkip)
		default:
			if c < 0x80 {
				emit(string(c))
			} else {
				emitByte(c)
			}
			i++
		}
	}

	lines := strings.Split(out.String(), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	return strings.TrimSpace(blankRuns.ReplaceAllString(strings.Join(lines, "\n"), "\n\n"))
}

// rtfControl handles the control word or symbol starting at doc[i] (just
// after the backslash) and returns the index of the next unread byte.
func rtfControl(doc string, i int, g *rtfGroup, emit func(string), emitByte func(byte), pendingSkip *int) int {
	if i >= len(doc) {
		return i
	}
	switch n := doc[i]; {
	case n == '\\' || n == '{' || n == '}':
		emit(string(n))
		return i + 1
	case n == '\'':
		if i+2 < len(doc) {
			if v, err := strconv.ParseUint(doc[i+1:i+3], 16, 8); err == nil {
				emitByte(byte(v))
			}
		}
		return i + 3
	case n == '*':
		g.skip = true
		return i + 1
	case n == '~':
		emit(" ")
		return i + 1
	case n == '_':
		emit("-")
		return i + 1
	case n == '\n' || n == '\r':
		emit("\n")
		return i + 1
	case isASCIILetter(n):
		start := i
		for i < len(doc) && isASCIILetter(doc[i]) {
			i++
		}
		word := doc[start:i]

		numStart := i
		if i < len(doc) && doc[i] == '-' {
			i++
		}
		for i < len(doc) && doc[i] >= '0' && doc[i] <= '9' {
			i++
		}
		param, hasParam := 0, i > numStart
		if hasParam {
			param, _ = strconv.Atoi(doc[numStart:i])
		}
		if i < len(doc) && doc[i] == ' ' {
			i++
		}

		switch {
		case skippedDestinations[word]:
			g.skip = true
		case word == "uc" && hasParam:
			g.ucSkip = param
		case word == "u" && hasParam:
			if param < 0 {
				param += 65536
			}
			emit(string(rune(param)))
			*pendingSkip = g.ucSkip
		default:
			if s, ok := symbolWords[word]; ok {
				emit(s)
			}
		}
		return i
	default:
		return i + 1
	}
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
