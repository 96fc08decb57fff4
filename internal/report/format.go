package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/grachmannico95/branch-ingest/internal/domain"
)

const (
	MaxMessageLength   = 3500
	MaxKindsPerFile    = 15
	MaxDetailsPerKind  = 5
	MaxRowsPerDetail   = 10
	TruncatedMarker    = "... (message too long, truncated)"
	sectionRuleWidth   = 60
	unknownKindRanking = 99
)

var kindPriority = map[domain.ErrorKind]int{
	domain.ErrorKindHeader:     1,
	domain.ErrorKindEmptyField: 2,
	domain.ErrorKindDateFormat: 3,
	domain.ErrorKindDecimal:    4,
	domain.ErrorKindNumeric:    5,
	domain.ErrorKindStatus:     6,
	domain.ErrorKindDelimiter:  7,
}

var kindTitles = map[domain.ErrorKind]string{
	domain.ErrorKindHeader:     "Header Error",
	domain.ErrorKindDelimiter:  "Field Delimiter Error",
	domain.ErrorKindDecimal:    "Decimal Separator Error",
	domain.ErrorKindDateFormat: "Date Format Error",
	domain.ErrorKindNumeric:    "Numeric Value Error",
	domain.ErrorKindStatus:     "Status Value Error",
	domain.ErrorKindEmptyField: "Empty Field Error",
}

// MessageInput carries what the rendered report needs.
type MessageInput struct {
	Filename     string
	TotalRows    int
	ErrorCount   int
	AccuracyRate float64
	Errors       domain.GroupedErrors
}

// FormatMessage renders the bounded human-readable report. The result never
// exceeds MaxMessageLength bytes.
func FormatMessage(in MessageInput) string {
	var lines []string

	lines = append(lines,
		"FILE: "+in.Filename,
		fmt.Sprintf("Accuracy: %.2f%% (%d errors in %d rows)", in.AccuracyRate, in.ErrorCount, in.TotalRows),
		"",
	)

	if in.ErrorCount == 0 {
		lines = append(lines, "No errors found. File matches the expected format.")
		return strings.Join(lines, "\n")
	}

	lines = append(lines, "ERROR DETAILS:", strings.Repeat("=", sectionRuleWidth), "")

	kinds := orderedKinds(in.Errors)
	shown := kinds
	if len(shown) > MaxKindsPerFile {
		shown = kinds[:MaxKindsPerFile]
	}

	for _, kind := range shown {
		details := in.Errors[kind]
		total := 0
		for _, g := range details {
			total += g.Count
		}

		lines = append(lines,
			fmt.Sprintf("%s (%d occurrences)", kindTitle(kind), total),
			strings.Repeat("-", sectionRuleWidth),
		)

		keys := orderedDetails(details)
		for i, key := range keys {
			if i == MaxDetailsPerKind {
				lines = append(lines, fmt.Sprintf("  ... and %d more distinct errors", len(keys)-MaxDetailsPerKind))
				break
			}
			g := details[key]
			lines = append(lines, fmt.Sprintf("  - %s: rows %s (%d occurrences)", key, formatRows(g.Rows), g.Count))
		}
		lines = append(lines, "")
	}

	if hidden := len(kinds) - len(shown); hidden > 0 {
		lines = append(lines, fmt.Sprintf("... and %d more error kinds", hidden), "")
	}

	return capLength(strings.Join(lines, "\n"))
}

func kindTitle(kind domain.ErrorKind) string {
	if t, ok := kindTitles[kind]; ok {
		return t
	}
	return string(kind)
}

func orderedKinds(grouped domain.GroupedErrors) []domain.ErrorKind {
	kinds := make([]domain.ErrorKind, 0, len(grouped))
	for k := range grouped {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool {
		pi, pj := priority(kinds[i]), priority(kinds[j])
		if pi != pj {
			return pi < pj
		}
		return kinds[i] < kinds[j]
	})
	return kinds
}

func priority(kind domain.ErrorKind) int {
	if p, ok := kindPriority[kind]; ok {
		return p
	}
	return unknownKindRanking
}

// orderedDetails puts the most frequent details first, then earliest row.
func orderedDetails(details map[string]*domain.ErrorGroup) []string {
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := details[keys[i]], details[keys[j]]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if fa, fb := firstRow(a), firstRow(b); fa != fb {
			return fa < fb
		}
		return keys[i] < keys[j]
	})
	return keys
}

func firstRow(g *domain.ErrorGroup) int {
	if len(g.Rows) == 0 {
		return 0
	}
	return g.Rows[0]
}

func formatRows(rows []int) string {
	limit := len(rows)
	if limit > MaxRowsPerDetail {
		limit = MaxRowsPerDetail
	}

	parts := make([]string, 0, limit)
	for _, r := range rows[:limit] {
		parts = append(parts, strconv.Itoa(r))
	}

	out := strings.Join(parts, ", ")
	if extra := len(rows) - limit; extra > 0 {
		out += fmt.Sprintf(" ... (+%d more)", extra)
	}
	return out
}

// capLength cuts at the last complete line that leaves room for the marker.
func capLength(message string) string {
	if len(message) <= MaxMessageLength {
		return message
	}

	suffix := "\n\n" + TruncatedMarker
	budget := MaxMessageLength - len(suffix)
	cut := strings.LastIndexByte(message[:budget], '\n')
	if cut < 0 {
		cut = budget
	}
	return strings.TrimRight(message[:cut], "\n") + suffix
}
