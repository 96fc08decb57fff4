// Package validator checks partner CSV files against the fixed seven-column
// round schema. It does no I/O beyond reading the stream it is given.
package validator

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/grachmannico95/branch-ingest/internal/domain"
)

const (
	Delimiter  = ";"
	DateLayout = "2006-01-02 15:04:05"
)

// Header is the exact column list every file must start with.
var Header = []string{"roundId", "gameId", "createDate", "updateDate", "betAmount", "winAmount", "status"}

// AllowedStatuses are compared case-insensitively.
var AllowedStatuses = []string{"won", "lost"}

var (
	datePattern    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`)
	numericPattern = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

	ErrEmptyFile     = errors.New("CSV file is empty")
	ErrHeaderInvalid = fmt.Errorf("header does not match expected format, expected: %s", strings.Join(Header, Delimiter))
)

const utf8BOM = "\ufeff"

// Result is the outcome of validating one file.
type Result struct {
	Valid     bool
	TotalRows int
	Errors    []domain.RowError
}

// ErrorCount is the number of error occurrences, not distinct failing rows.
func (r Result) ErrorCount() int {
	return len(r.Errors)
}

// Unreadable is the result for a source that could not be opened or read.
func Unreadable(err error) Result {
	return Result{
		Valid: false,
		Errors: []domain.RowError{{
			Row:    0,
			Kind:   domain.ErrorKindHeader,
			Detail: fmt.Sprintf("file read error: %v", err),
		}},
	}
}

// ValidateFile opens path and validates it.
func ValidateFile(path string) Result {
	f, err := os.Open(path)
	if err != nil {
		return Unreadable(err)
	}
	defer f.Close()

	return Validate(f)
}

// Validate applies all rules to the stream. Row numbers are physical line
// numbers with the header on line 1. Blank lines are skipped and not counted.
func Validate(r io.Reader) Result {
	lines := newLineReader(r)
	result := Result{}

	header, ok, err := lines.next()
	if err != nil {
		return Unreadable(err)
	}
	if !ok {
		return Result{Errors: []domain.RowError{{Row: 0, Kind: domain.ErrorKindHeader, Detail: ErrEmptyFile.Error()}}}
	}

	if !headerMatches(header) {
		result.Errors = append(result.Errors, domain.RowError{
			Row:    1,
			Kind:   domain.ErrorKindHeader,
			Detail: ErrHeaderInvalid.Error(),
			Raw:    header,
		})
		return result
	}

	for {
		line, ok, err := lines.next()
		if err != nil {
			result.Errors = append(result.Errors, domain.RowError{
				Row:    0,
				Kind:   domain.ErrorKindHeader,
				Detail: fmt.Sprintf("stream read error: %v", err),
			})
			result.Valid = false
			return result
		}
		if !ok {
			break
		}
		if line == "" {
			continue
		}

		result.TotalRows++
		result.Errors = append(result.Errors, validateRow(lines.number, line)...)
	}

	result.Valid = len(result.Errors) == 0
	return result
}

// CheckHeader reads only the first line and reports whether it is the
// expected header.
func CheckHeader(r io.Reader) error {
	header, ok, err := newLineReader(r).next()
	if err != nil {
		return err
	}
	if !ok {
		return ErrEmptyFile
	}
	if !headerMatches(header) {
		return ErrHeaderInvalid
	}
	return nil
}

func headerMatches(line string) bool {
	fields := strings.Split(line, Delimiter)
	if len(fields) != len(Header) {
		return false
	}
	for i, f := range fields {
		if strings.TrimSpace(f) != Header[i] {
			return false
		}
	}
	return true
}

func validateRow(row int, raw string) []domain.RowError {
	var errs []domain.RowError
	add := func(kind domain.ErrorKind, format string, args ...interface{}) {
		errs = append(errs, domain.RowError{Row: row, Kind: kind, Detail: fmt.Sprintf(format, args...), Raw: raw})
	}

	if !strings.Contains(raw, Delimiter) {
		add(domain.ErrorKindDelimiter, "field delimiter %q not found", Delimiter)
		return errs
	}

	fields := strings.Split(raw, Delimiter)
	if len(fields) != len(Header) {
		add(domain.ErrorKindDelimiter, "expected %d columns, found %d", len(Header), len(fields))
		return errs
	}

	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
		if fields[i] == "" {
			add(domain.ErrorKindEmptyField, "%q is empty", Header[i])
		}
	}
	if len(errs) > 0 {
		return errs
	}

	for _, i := range []int{2, 3} {
		if !validDate(fields[i]) {
			add(domain.ErrorKindDateFormat, "%q has invalid date format, expected YYYY-MM-DD HH:MM:SS, found: %s", Header[i], fields[i])
		}
	}

	for _, i := range []int{4, 5} {
		value := fields[i]
		if strings.Contains(value, ".") {
			add(domain.ErrorKindDecimal, "%q uses dot (.) as decimal separator, comma (,) expected", Header[i])
		}
		if msg := checkAmount(Header[i], value); msg != "" {
			add(domain.ErrorKindNumeric, "%s", msg)
		}
	}

	if !allowedStatus(fields[6]) {
		add(domain.ErrorKindStatus, "invalid status, expected one of [%s], found: %s", strings.Join(AllowedStatuses, ", "), fields[6])
	}

	return errs
}

func validDate(value string) bool {
	if !datePattern.MatchString(value) {
		return false
	}
	_, err := time.Parse(DateLayout, value)
	return err == nil
}

func checkAmount(field, value string) string {
	normalized := strings.ReplaceAll(value, ",", ".")
	if !numericPattern.MatchString(normalized) {
		return fmt.Sprintf("%q is not a number: %s", field, value)
	}
	n, err := strconv.ParseFloat(normalized, 64)
	if err != nil || math.IsInf(n, 0) || math.IsNaN(n) {
		return fmt.Sprintf("%q is not a number: %s", field, value)
	}
	if n < 0 {
		return fmt.Sprintf("%q is negative: %s", field, value)
	}
	return ""
}

func allowedStatus(value string) bool {
	for _, s := range AllowedStatuses {
		if strings.EqualFold(value, s) {
			return true
		}
	}
	return false
}

// lineReader yields trimmed lines of any length and tracks the physical line
// number of the last line returned.
type lineReader struct {
	r      *bufio.Reader
	number int
	done   bool
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{r: bufio.NewReaderSize(r, 64*1024)}
}

func (l *lineReader) next() (string, bool, error) {
	if l.done {
		return "", false, nil
	}

	line, err := l.r.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return "", false, err
		}
		l.done = true
		if line == "" {
			return "", false, nil
		}
	}

	l.number++
	if l.number == 1 {
		line = strings.TrimPrefix(line, utf8BOM)
	}
	if !utf8.ValidString(line) {
		return "", false, fmt.Errorf("line %d is not valid UTF-8", l.number)
	}
	return strings.TrimSpace(line), true, nil
}
