package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	ErrUnsafePath = errors.New("archive contains an unsafe path")
	ErrTooLarge   = errors.New("archive exceeds the uncompressed size limit")
	ErrCorrupt    = errors.New("archive is not a readable ZIP file")
	ErrTooMany    = errors.New("archive has too many entries")
)

var drivePrefix = regexp.MustCompile(`^[A-Za-z]:`)

// UnsafeMemberError names the member that tried to escape the destination.
type UnsafeMemberError struct {
	Member string
	Reason string
}

func (e *UnsafeMemberError) Error() string {
	return fmt.Sprintf("unsafe archive member %q: %s", e.Member, e.Reason)
}

func (e *UnsafeMemberError) Unwrap() error {
	return ErrUnsafePath
}

type Limits struct {
	MaxUncompressedBytes int64
	MaxEntries           int
}

// CheckMemberPath rejects absolute paths, drive letters and parent segments.
func CheckMemberPath(name string) error {
	switch {
	case name == "":
		return &UnsafeMemberError{Member: name, Reason: "empty name"}
	case strings.HasPrefix(name, "/"), strings.HasPrefix(name, `\`):
		return &UnsafeMemberError{Member: name, Reason: "absolute path"}
	case drivePrefix.MatchString(name):
		return &UnsafeMemberError{Member: name, Reason: "drive letter"}
	case strings.ContainsRune(name, 0):
		return &UnsafeMemberError{Member: name, Reason: "NUL byte"}
	}

	for _, seg := range strings.FieldsFunc(name, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == ".." {
			return &UnsafeMemberError{Member: name, Reason: "parent directory segment"}
		}
	}
	return nil
}

// Extract unpacks the archive at archivePath into dest. Every member is
// checked before the first byte is written.
func Extract(archivePath, dest string, limits Limits) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if r == nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	defer r.Close()

	if limits.MaxEntries > 0 && len(r.File) > limits.MaxEntries {
		return fmt.Errorf("%w: %d entries, limit is %d", ErrTooMany, len(r.File), limits.MaxEntries)
	}

	root, err := filepath.Abs(dest)
	if err != nil {
		return err
	}

	var declared uint64
	for _, f := range r.File {
		if err := CheckMemberPath(f.Name); err != nil {
			return err
		}
		if f.Mode()&os.ModeSymlink != 0 {
			return &UnsafeMemberError{Member: f.Name, Reason: "symbolic link"}
		}
		if _, err := targetPath(root, f.Name); err != nil {
			return err
		}
		declared += f.UncompressedSize64
	}
	if limits.MaxUncompressedBytes > 0 && declared > uint64(limits.MaxUncompressedBytes) {
		return ErrTooLarge
	}

	budget := int64(-1)
	if limits.MaxUncompressedBytes > 0 {
		budget = limits.MaxUncompressedBytes
	}
	for _, f := range r.File {
		written, err := extractOne(root, f, budget)
		if err != nil {
			return err
		}
		if budget >= 0 {
			budget -= written
		}
	}
	return nil
}

func targetPath(root, name string) (string, error) {
	target := filepath.Join(root, filepath.FromSlash(strings.ReplaceAll(name, `\`, "/")))
	if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
		return "", &UnsafeMemberError{Member: name, Reason: "escapes extraction directory"}
	}
	return target, nil
}

func extractOne(root string, f *zip.File, budget int64) (int64, error) {
	target, err := targetPath(root, f.Name)
	if err != nil {
		return 0, err
	}

	if f.FileInfo().IsDir() {
		return 0, os.MkdirAll(target, 0o700)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o700); err != nil {
		return 0, err
	}

	src, err := f.Open()
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrCorrupt, f.Name, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return 0, fmt.Errorf("%w: duplicate entry %s", ErrCorrupt, f.Name)
		}
		return 0, err
	}
	defer dst.Close()

	var reader io.Reader = src
	if budget >= 0 {
		// one extra byte detects entries that lie about their size
		reader = io.LimitReader(src, budget+1)
	}

	n, err := io.Copy(dst, reader)
	if err != nil {
		return n, fmt.Errorf("%w: %s: %v", ErrCorrupt, f.Name, err)
	}
	if budget >= 0 && n > budget {
		return n, ErrTooLarge
	}
	return n, nil
}
