package report

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/grachmannico95/branch-ingest/internal/domain"
)

const (
	maxDetailRunes = 80
	truncatedRunes = 77
)

// Letters that carry no combining mark under NFD and would otherwise survive
// mark stripping.
var asciiReplacer = strings.NewReplacer(
	"ı", "i",
	"ł", "l",
	"Ł", "L",
	"ø", "o",
	"Ø", "O",
	"ß", "ss",
	"đ", "d",
	"Đ", "D",
)

// NormalizeDetail folds accented letters to ASCII and shortens long details
// so near-duplicate messages land in the same group.
func NormalizeDetail(detail string) string {
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, asciiReplacer.Replace(detail))
	if err != nil {
		folded = detail
	}

	r := []rune(folded)
	if len(r) > maxDetailRunes {
		return string(r[:truncatedRunes]) + "..."
	}
	return folded
}

// Group buckets errors by kind and normalized detail. Row lists are sorted.
func Group(errs []domain.RowError) domain.GroupedErrors {
	grouped := domain.GroupedErrors{}

	for _, e := range errs {
		details, ok := grouped[e.Kind]
		if !ok {
			details = map[string]*domain.ErrorGroup{}
			grouped[e.Kind] = details
		}

		key := NormalizeDetail(e.Detail)
		group, ok := details[key]
		if !ok {
			group = &domain.ErrorGroup{}
			details[key] = group
		}
		group.Count++
		group.Rows = append(group.Rows, e.Row)
	}

	for _, details := range grouped {
		for _, group := range details {
			sort.Ints(group.Rows)
		}
	}

	return grouped
}
