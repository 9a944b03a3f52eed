package parser

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/mediway/labreports/internal/entity"
)

// label patterns, applied per line
var (
	reName      = regexp.MustCompile(`Name :\s*(.+?)(?:\sLab|$)`)
	reLabNo     = regexp.MustCompile(`Lab No\. :\s*(\d+)`)
	reAge       = regexp.MustCompile(`Age :\s*(\d+)`)
	reGender    = regexp.MustCompile(`Gender :\s*(.+)`)
	reCollected = regexp.MustCompile(`Collected :\s*(\S+)`)
	reReported  = regexp.MustCompile(`Reported :\s*(\S+)`)

	// <name> <decimal result> <unit> <interval>
	reTestRow = regexp.MustCompile(`^(.+?)\s+([\d.]+)\s+(\w+/?.*?)\s+([<>]?\d+\.?\d*\s*-?\s*\d*\.?\d*)`)
)

// furniture marks page header/footer lines that never hold test rows.
var furniture = []string{"Lab No. :", "Page :"}

type GrammarOption func(*GrammarParser)

// WithKeepLastEntry disables dropping the final detected test row.
func WithKeepLastEntry(keep bool) GrammarOption {
	return func(p *GrammarParser) { p.keepLast = keep }
}

// GrammarParser is the deterministic line-pattern strategy.
//
// The last detected test row is dropped by default: on the reports this was
// built for, the final OCR line sits against the footer and is frequently
// truncated.
type GrammarParser struct {
	keepLast bool
	logger   *slog.Logger
}

func NewGrammarParser(logger *slog.Logger, opts ...GrammarOption) *GrammarParser {
	if logger == nil {
		logger = slog.Default()
	}
	p := &GrammarParser{logger: logger}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *GrammarParser) Name() string { return "grammar" }

func (p *GrammarParser) Parse(_ context.Context, rawText string) (entity.ParsedReport, error) {
	lines := strings.Split(rawText, "\n")

	patient := ParsePatientFields(lines)
	tests := parseTestRows(lines)

	detected := len(tests)
	if !p.keepLast && len(tests) > 0 {
		tests = tests[:len(tests)-1]
	}

	p.logger.Debug("parser.grammar.ok",
		"lines", len(lines),
		"tests_detected", detected,
		"tests_kept", len(tests),
		"has_name", patient.Name != "",
	)
	return entity.ParsedReport{Patient: patient, Tests: tests}, nil
}

// ParsePatientFields scans every line for the header labels. When a label
// matches on several lines the last match wins.
func ParsePatientFields(lines []string) entity.PatientFields {
	var p entity.PatientFields
	for _, line := range lines {
		capture(reName, line, &p.Name)
		capture(reLabNo, line, &p.LabNo)
		capture(reAge, line, &p.Age)
		capture(reGender, line, &p.Gender)
		capture(reCollected, line, &p.Collected)
		capture(reReported, line, &p.Reported)
	}
	return p
}

func capture(re *regexp.Regexp, line string, dst *string) {
	if m := re.FindStringSubmatch(line); m != nil {
		*dst = strings.TrimSpace(m[1])
	}
}

func parseTestRows(lines []string) []entity.TestEntry {
	tests := make([]entity.TestEntry, 0)
	for _, line := range lines {
		if isFurniture(line) {
			continue
		}
		m := reTestRow.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		tests = append(tests, entity.TestEntry{
			Name:     strings.TrimSpace(m[1]),
			Result:   strings.TrimSpace(m[2]),
			Unit:     strings.TrimSpace(m[3]),
			Interval: NormalizeInterval(m[4]),
		})
	}
	return tests
}

func isFurniture(line string) bool {
	for _, f := range furniture {
		if strings.Contains(line, f) {
			return true
		}
	}
	return false
}
