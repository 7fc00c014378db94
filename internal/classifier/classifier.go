// Package classifier inspects raw brief text and assigns a coarse
// category plus a downstream extraction strategy. Classification is a
// pure function of the text: syntactic and statistical signals only, no
// external calls, and it never fails — worst case the text is garbage.
package classifier

import (
	"regexp"
	"strings"

	"github.com/gomarkdown/markdown/ast"
	"github.com/gomarkdown/markdown/parser"
	"github.com/montanaflynn/stats"

	"spaceplan/domain/brief"
)

var (
	numberRe = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
	// metric and imperial area units as they appear in briefs
	metricUnitRe   = regexp.MustCompile(`(?i)\d\s*(?:m²|(?:m2|sqm|sq\.?\s*m)\b)`)
	imperialUnitRe = regexp.MustCompile(`(?i)\d\s*(?:ft²|(?:ft2|sf|sq\.?\s*ft)\b)`)
	totalMarkerRe  = regexp.MustCompile(`(?i)\b(?:total|sum|gesamt|overall|grand total)\b[^\d\n]{0,20}\d`)
	emailRe        = regexp.MustCompile(`[\w.+-]+@[\w-]+\.[\w.]+`)
	phoneRe        = regexp.MustCompile(`(?:\+\d{1,3}[\s-]?)?(?:\(\d{2,4}\)[\s-]?)?\d{3,4}[\s-]\d{3,4}(?:[\s-]\d{2,4})?`)
	urlRe          = regexp.MustCompile(`https?://\S+|www\.\S+`)
)

// imperativeVerbs open sentences that ask for generation rather than
// describe an existing program.
var imperativeVerbs = map[string]bool{
	"create": true, "design": true, "generate": true, "make": true,
	"build": true, "plan": true, "propose": true, "draft": true,
	"give": true, "develop": true, "imagine": true, "sketch": true,
}

// requestOpeners are multi-word phrasings with the same intent.
var requestOpeners = []string{"i need", "i want", "we need", "we want", "please", "can you", "could you"}

// delimiters considered evidence of tabular structure
var tableDelimiters = []string{"|", "\t", ";", ","}

// Classify inspects text and returns its category, quality score,
// extraction strategy, and the signal record behind the decision.
// Deterministic and side-effect-free.
func Classify(text string) brief.Classification {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		// Fixed signal set: empty input is not a valid program, never
		// an error.
		return brief.Classification{
			Category: brief.CategoryGarbage,
			Score:    0,
			Strategy: brief.StrategyNone,
			Signals:  brief.Signals{UnitSystem: brief.UnitNone},
			Reason:   "not a valid program: empty input",
		}
	}

	sig := computeSignals(trimmed)

	// Ordered decision policy, first match wins.
	switch {
	case sig.NumericLineRatio == 0 && !containsAnyNumber(trimmed) && sig.ImperativeScore < 0.5:
		return result(brief.CategoryGarbage, sig, "no numeric content")
	case sig.ImperativeScore >= 0.5 && sig.LineCount <= 5 && sig.TableLikeness < 0.5 && sig.NumericLineRatio < 0.5:
		return result(brief.CategoryPrompt, sig, "imperative request with no measured areas")
	case sig.TableLikeness >= 0.6 && sig.NoiseRatio < 0.3:
		return result(brief.CategoryStructured, sig, "consistent tabular structure")
	case sig.NumericLineRatio >= 0.6 && sig.HasTotalMarker && sig.NoiseRatio < 0.3:
		return result(brief.CategoryStructured, sig, "numeric rows with a stated total")
	case sig.NumericLineRatio > 0 || containsAnyNumber(trimmed):
		return result(brief.CategoryDirty, sig, "numeric content without reliable structure")
	default:
		return result(brief.CategoryGarbage, sig, "no extractable program content")
	}
}

// StrategyFor maps each category to exactly one extraction strategy.
func StrategyFor(category brief.Category) brief.Strategy {
	switch category {
	case brief.CategoryPrompt:
		return brief.StrategyGenerate
	case brief.CategoryStructured:
		return brief.StrategyStructuredExtract
	case brief.CategoryDirty:
		return brief.StrategyTolerantExtract
	default:
		return brief.StrategyNone
	}
}

func result(category brief.Category, sig brief.Signals, reason string) brief.Classification {
	return brief.Classification{
		Category: category,
		Score:    qualityScore(category, sig),
		Strategy: StrategyFor(category),
		Signals:  sig,
		Reason:   reason,
	}
}

func computeSignals(text string) brief.Signals {
	lines := nonEmptyLines(text)

	numericLines := 0
	noisyLines := 0
	for _, line := range lines {
		if isMeasurementLine(line) {
			numericLines++
		}
		if emailRe.MatchString(line) || urlRe.MatchString(line) || phoneRe.MatchString(line) {
			noisyLines++
		}
	}

	return brief.Signals{
		LineCount:        len(lines),
		NumericLineRatio: ratio(numericLines, len(lines)),
		TableLikeness:    tableLikeness(text, lines),
		HasTotalMarker:   totalMarkerRe.MatchString(text),
		NoiseRatio:       ratio(noisyLines, len(lines)),
		ImperativeScore:  imperativeScore(lines),
		UnitSystem:       detectUnitSystem(text),
	}
}

func nonEmptyLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

func ratio(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}

func containsAnyNumber(text string) bool {
	return numberRe.MatchString(text)
}

// isMeasurementLine reports whether a line carries an area-like numeric
// token: a number with a unit attached, or a delimited row where at
// least one field is numeric. "Create an office for 50 people" has a
// number but no measurement shape, so it does not count.
func isMeasurementLine(line string) bool {
	if metricUnitRe.MatchString(line) || imperialUnitRe.MatchString(line) {
		return true
	}
	for _, delim := range tableDelimiters {
		if !strings.Contains(line, delim) {
			continue
		}
		for _, field := range strings.Split(line, delim) {
			field = strings.TrimSpace(field)
			if field != "" && numberRe.MatchString(field) && len(numberRe.FindString(field)) >= len(field)/2 {
				return true
			}
		}
	}
	return false
}

// tableLikeness scores tabular structure in [0, 1]. A parsed markdown
// table is definitive; otherwise consistency of delimiter counts across
// lines stands in: delimited rows with near-identical column counts look
// like a table, wildly varying ones do not.
func tableLikeness(text string, lines []string) float64 {
	if hasMarkdownTable(text) {
		return 1.0
	}

	best := 0.0
	for _, delim := range tableDelimiters {
		var counts []float64
		for _, line := range lines {
			if c := strings.Count(line, delim); c > 0 {
				counts = append(counts, float64(c))
			}
		}
		if len(counts) < 3 {
			continue
		}
		coverage := float64(len(counts)) / float64(len(lines))
		sd, err := stats.StandardDeviation(counts)
		if err != nil {
			continue
		}
		consistency := 1.0 / (1.0 + sd)
		if score := coverage * consistency; score > best {
			best = score
		}
	}
	return best
}

// hasMarkdownTable parses the text as markdown and looks for a table
// node in the AST.
func hasMarkdownTable(text string) bool {
	p := parser.NewWithExtensions(parser.Tables)
	doc := p.Parse([]byte(text))

	found := false
	ast.WalkFunc(doc, func(node ast.Node, entering bool) ast.WalkStatus {
		if _, ok := node.(*ast.Table); ok && entering {
			found = true
			return ast.Terminate
		}
		return ast.GoToNext
	})
	return found
}

// imperativeScore is the fraction of lines opening with a generation
// verb or request phrase.
func imperativeScore(lines []string) float64 {
	if len(lines) == 0 {
		return 0
	}
	hits := 0
	for _, line := range lines {
		lower := strings.ToLower(strings.TrimSpace(line))
		fields := strings.Fields(lower)
		if len(fields) == 0 {
			continue
		}
		if imperativeVerbs[strings.Trim(fields[0], ".,!?:")] {
			hits++
			continue
		}
		for _, opener := range requestOpeners {
			if strings.HasPrefix(lower, opener) {
				hits++
				break
			}
		}
	}
	return float64(hits) / float64(len(lines))
}

func detectUnitSystem(text string) brief.UnitSystem {
	metric := len(metricUnitRe.FindAllString(text, -1))
	imperial := len(imperialUnitRe.FindAllString(text, -1))
	switch {
	case metric == 0 && imperial == 0:
		return brief.UnitNone
	case metric >= imperial:
		return brief.UnitMetric
	default:
		return brief.UnitImperial
	}
}

// qualityScore folds the signals into a single number in [0, 1]. Higher
// means the text is closer to a ready-to-extract program table.
func qualityScore(category brief.Category, sig brief.Signals) float64 {
	switch category {
	case brief.CategoryGarbage:
		return 0
	case brief.CategoryPrompt:
		return 0.25
	case brief.CategoryDirty:
		score := 0.3 + 0.4*sig.NumericLineRatio - 0.2*sig.NoiseRatio
		return clamp01(score)
	default: // structured
		score := 0.6 + 0.2*sig.TableLikeness + 0.1*sig.NumericLineRatio
		if sig.HasTotalMarker {
			score += 0.1
		}
		return clamp01(score)
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
