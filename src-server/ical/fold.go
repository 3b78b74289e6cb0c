package ical

import (
	"io"
	"strings"
	"unicode/utf8"
)

const maxLineOctets = 75

// foldWriter writes content lines terminated by CRLF, folding any line
// longer than 75 octets onto continuation lines that start with a space.
// Folds never split a UTF-8 sequence.
type foldWriter struct {
	w   io.Writer
	err error
}

func (f *foldWriter) line(s string) {
	if f.err != nil {
		return
	}
	var sb strings.Builder
	limit := maxLineOctets
	for len(s) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		sb.WriteString(s[:cut])
		sb.WriteString("\r\n ")
		s = s[cut:]
		// the leading space counts toward the next line
		limit = maxLineOctets - 1
	}
	sb.WriteString(s)
	sb.WriteString("\r\n")
	_, f.err = io.WriteString(f.w, sb.String())
}

var textEscaper = strings.NewReplacer(
	`\`, `\\`,
	";", `\;`,
	",", `\,`,
	"\r\n", `\n`,
	"\n", `\n`,
)

func escapeText(s string) string {
	return textEscaper.Replace(s)
}
