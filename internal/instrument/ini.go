package instrument

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/ecotaxa/ecopart-back-sub000/internal/shared"
)

// Section maps keys to values. Values that parse as finite numbers are float64, everything else is string.
type Section map[string]any

// INI is a parsed INI document keyed by section name.
type INI map[string]Section

// ParseINI reads an INI document.
//
// Blank lines, comments starting with ';' or '#' and lines without '=' are skipped.
// A section header without its closing ']', an empty key or a key before any section is an error.
func ParseINI(r io.Reader) (INI, error) {
	doc := INI{}
	var current Section

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}

		switch {
		case line == "", strings.HasPrefix(line, ";"), strings.HasPrefix(line, "#"):
			continue
		case strings.HasPrefix(line, "["):
			if !strings.HasSuffix(line, "]") {
				return nil, fmt.Errorf("%w: line %d: unterminated section header %q", shared.ErrParse, lineNo, line)
			}
			name := strings.TrimSpace(line[1 : len(line)-1])
			if name == "" {
				return nil, fmt.Errorf("%w: line %d: empty section name", shared.ErrParse, lineNo)
			}
			if _, ok := doc[name]; !ok {
				doc[name] = Section{}
			}
			current = doc[name]
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("%w: line %d: empty key", shared.ErrParse, lineNo)
		}
		if current == nil {
			return nil, fmt.Errorf("%w: line %d: key %q outside of any section", shared.ErrParse, lineNo, key)
		}
		current[key] = coerce(strings.TrimSpace(value))
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ini document: %w", err)
	}

	return doc, nil
}

func coerce(value string) any {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return value
	}
	return f
}

// Lookup returns a value by section and key. Keys match exactly first, then case-insensitively.
func (doc INI) Lookup(section, key string) (any, bool) {
	s, ok := doc[section]
	if !ok {
		return nil, false
	}
	if v, ok := s[key]; ok {
		return v, true
	}
	for k, v := range s {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

// Text returns a value as text. Numbers are formatted without a trailing exponent or zeros.
func (doc INI) Text(section, key string) string {
	v, ok := doc.Lookup(section, key)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

// Number returns a numeric value, or NaN when the key is absent or not numeric.
func (doc INI) Number(section, key string) float64 {
	v, ok := doc.Lookup(section, key)
	if !ok {
		return math.NaN()
	}
	if f, ok := v.(float64); ok {
		return f
	}
	return math.NaN()
}
