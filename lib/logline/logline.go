// Copyright 2026 The Procboard Authors
// SPDX-License-Identifier: Apache-2.0

package logline

import (
	"html"
	"strconv"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// classicPalette maps the 16 classic SGR colors to CSS hex values.
// Indexes 0-7 are the normal colors (SGR 30-37), 8-15 the bright ones
// (SGR 90-97).
var classicPalette = [16]string{
	"#000000", "#aa0000", "#00aa00", "#aa5500",
	"#0000aa", "#aa00aa", "#00aaaa", "#aaaaaa",
	"#555555", "#ff5555", "#55ff55", "#ffff55",
	"#5555ff", "#ff55ff", "#55ffff", "#ffffff",
}

// style is the SGR attribute state carried across a line.
type style struct {
	color     string
	bold      bool
	italic    bool
	underline bool
}

// css renders the style as an inline style attribute value. Empty when
// the style is the default.
func (s style) css() string {
	var parts []string
	if s.color != "" {
		parts = append(parts, "color:"+s.color)
	}
	if s.bold {
		parts = append(parts, "font-weight:bold")
	}
	if s.italic {
		parts = append(parts, "font-style:italic")
	}
	if s.underline {
		parts = append(parts, "text-decoration:underline")
	}
	return strings.Join(parts, ";")
}

// Format renders one log line for delivery to viewers. With keepANSI
// the line passes through untouched; otherwise it is converted to HTML
// spans via [ToHTML].
func Format(line string, keepANSI bool) string {
	if keepANSI {
		return line
	}
	return ToHTML(line)
}

// FormatError renders an error message in the same shape as a log
// line, styled red so it stands out in the stream. HTML mode yields a
// colored span; raw mode yields the equivalent SGR sequence.
func FormatError(message string, keepANSI bool) string {
	colored := "\x1b[31m" + message + "\x1b[0m"
	return Format(colored, keepANSI)
}

// ToHTML converts a possibly ANSI-decorated line into HTML. Each
// maximal run of text under one SGR state becomes a span; text is
// entity-escaped; escape sequences other than SGR are dropped. A plain
// line comes back as a single unstyled span:
//
//	ToHTML("hello") == "<span>hello</span>"
func ToHTML(line string) string {
	var out strings.Builder
	var text strings.Builder
	current := style{}
	spans := 0

	flush := func() {
		if text.Len() == 0 {
			return
		}
		if css := current.css(); css != "" {
			out.WriteString(`<span style="` + css + `">`)
		} else {
			out.WriteString("<span>")
		}
		out.WriteString(html.EscapeString(text.String()))
		out.WriteString("</span>")
		text.Reset()
		spans++
	}

	var state byte
	remaining := line
	for len(remaining) > 0 {
		sequence, width, byteCount, newState := ansi.DecodeSequence(remaining, state, nil)
		state = newState

		if width == 0 {
			// Control or escape sequence. SGR updates the style for
			// the next run; everything else is dropped.
			if updated, ok := applySGR(current, sequence); ok {
				flush()
				current = updated
			}
		} else {
			text.WriteString(sequence)
		}
		remaining = remaining[byteCount:]
	}
	flush()

	if spans == 0 {
		return "<span></span>"
	}
	return out.String()
}

// applySGR folds one escape sequence into the style. Returns ok=false
// when the sequence is not an SGR sequence.
func applySGR(s style, sequence string) (style, bool) {
	if !strings.HasPrefix(sequence, "\x1b[") || !strings.HasSuffix(sequence, "m") {
		return s, false
	}

	body := sequence[2 : len(sequence)-1]
	if body == "" {
		return style{}, true // ESC[m is reset
	}

	params := strings.Split(body, ";")
	for i := 0; i < len(params); i++ {
		code, err := strconv.Atoi(params[i])
		if err != nil {
			return s, false
		}
		switch {
		case code == 0:
			s = style{}
		case code == 1:
			s.bold = true
		case code == 3:
			s.italic = true
		case code == 4:
			s.underline = true
		case code == 22:
			s.bold = false
		case code == 23:
			s.italic = false
		case code == 24:
			s.underline = false
		case code == 39:
			s.color = ""
		case code >= 30 && code <= 37:
			s.color = classicPalette[code-30]
		case code >= 90 && code <= 97:
			s.color = classicPalette[code-90+8]
		case code == 38:
			// Extended foreground (256-color or truecolor): consume
			// the parameters but render as unstyled — the classic
			// palette covers what supervisors emit in practice.
			if i+1 < len(params) && params[i+1] == "5" {
				i += 2
			} else if i+1 < len(params) && params[i+1] == "2" {
				i += 4
			}
			s.color = ""
		}
	}
	return s, true
}
