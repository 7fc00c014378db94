// Package heuristic extracts program rows from brief text using
// algorithmic rules, no LLM involved. It backs the structured-extract
// path and serves as the fallback when the collaborator is unavailable.
package heuristic

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"spaceplan/domain/brief"
)

const sqftToSqm = 0.092903

// Extractor parses delimited rows, markdown tables, and loose
// "name area x count" lines
type Extractor struct{}

// NewExtractor creates a heuristic extractor
func NewExtractor() *Extractor {
	return &Extractor{}
}

var (
	numberRe     = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
	totalRe      = regexp.MustCompile(`(?i)^\s*(?:sub)?total\b|(?i)\bgrand total\b`)
	noiseRe      = regexp.MustCompile(`(?i)https?://|\bwww\.|@[a-z0-9.-]+\.[a-z]{2,}|\+?\d[\d\s().-]{8,}\d`)
	imperialRe   = regexp.MustCompile(`(?i)\d\s*(?:sq\.?\s*ft|sf|ft2|ft²)`)
	countSuffix  = regexp.MustCompile(`(?i)(?:x|×)\s*(\d+)\s*$|^(\d+)\s*(?:x|×)\s`)
	unitStripRe  = regexp.MustCompile(`(?i)\s*(?:m²|m2|sqm|sq\.?\s*m|sq\.?\s*ft|sf|ft2|ft²)\s*`)
	headingRe    = regexp.MustCompile(`^\s*#*\s*([A-Za-z][A-Za-z /&-]{2,40}):?\s*$`)
	separatorRow = regexp.MustCompile(`^[|\s:+=-]+$`)
)

// Extract parses the text line by line. Group headings (short
// number-free lines ending in a colon or markdown heading) become the
// group hint for the rows beneath them.
func (e *Extractor) Extract(ctx context.Context, text string, cls brief.Classification) (*brief.Extraction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	imperial := cls.Signals.UnitSystem == brief.UnitImperial

	var programs []brief.RawProgram
	currentGroup := ""

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || separatorRow.MatchString(line) {
			continue
		}
		if totalRe.MatchString(line) || noiseRe.MatchString(line) {
			continue
		}
		if !numberRe.MatchString(line) {
			if m := headingRe.FindStringSubmatch(line); m != nil {
				currentGroup = strings.TrimSpace(m[1])
			}
			continue
		}

		row, ok := parseRow(line, imperial || imperialRe.MatchString(line))
		if !ok {
			continue
		}
		row.GroupHint = currentGroup
		programs = append(programs, row)
	}

	if len(programs) == 0 {
		return nil, fmt.Errorf("no extractable program rows in %d lines", cls.Signals.LineCount)
	}
	return &brief.Extraction{Programs: programs}, nil
}

// parseRow handles one candidate line. Delimited lines are read
// field-wise; free-form lines take the first number as the area and an
// "x N" suffix or prefix as the count.
func parseRow(line string, imperial bool) (brief.RawProgram, bool) {
	row := brief.RawProgram{Count: 1, Confidence: 0.6}

	count := 1
	if m := countSuffix.FindStringSubmatch(line); m != nil {
		digits := m[1]
		if digits == "" {
			digits = m[2]
		}
		if n, err := strconv.Atoi(digits); err == nil && n > 0 {
			count = n
		}
		line = countSuffix.ReplaceAllString(line, "")
	}

	fields := splitFields(line)
	if len(fields) >= 2 {
		// Delimited: first non-numeric field is the name, first
		// numeric field is the area, a later small integer the count
		var name string
		var area float64
		areaSeen := false
		for _, f := range fields {
			f = strings.TrimSpace(unitStripRe.ReplaceAllString(f, " "))
			if f == "" {
				continue
			}
			if v, err := parseNumber(f); err == nil {
				if !areaSeen {
					area = v
					areaSeen = true
				} else if count == 1 && v == float64(int(v)) && v >= 1 && v < 1000 {
					count = int(v)
				}
				continue
			}
			if name == "" {
				name = f
			}
		}
		if name != "" && areaSeen {
			row.Name = name
			row.Area = area
			row.Count = count
			row.Confidence = 0.75
			if imperial {
				row.Area *= sqftToSqm
				row.Note = "converted from sq ft"
			}
			return row, true
		}
	}

	// Free-form: name is everything before the first number
	loc := numberRe.FindStringIndex(line)
	if loc == nil {
		return row, false
	}
	name := strings.Trim(strings.TrimSpace(line[:loc[0]]), "-–:.,")
	if name == "" {
		return row, false
	}
	area, err := parseNumber(line[loc[0]:loc[1]])
	if err != nil {
		return row, false
	}
	row.Name = name
	row.Area = area
	row.Count = count
	if imperial {
		row.Area *= sqftToSqm
		row.Note = "converted from sq ft"
	}
	return row, true
}

func splitFields(line string) []string {
	line = strings.Trim(line, "|")
	for _, delim := range []string{"|", "\t", ";", ","} {
		if strings.Contains(line, delim) {
			return strings.Split(line, delim)
		}
	}
	return nil
}

func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", ".")
	return strconv.ParseFloat(s, 64)
}
