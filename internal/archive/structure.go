package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Structure describes a validated extraction root.
type Structure struct {
	Folder Name
	Dir    string
	Files  []string
}

// ValidateStructure checks that root holds exactly one folder named like the
// archive, with between 1 and maxFiles correctly named CSV members. Other
// files inside the folder are ignored and never transferred.
func ValidateStructure(root string, expected Name, maxFiles int) (*Structure, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read extraction directory: %w", err)
	}

	if len(entries) != 1 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		return nil, fmt.Errorf("archive must contain exactly one folder named %s, found %d entries: %s",
			expected.Folder, len(entries), strings.Join(names, ", "))
	}

	top := entries[0]
	if !top.IsDir() {
		return nil, fmt.Errorf("archive must contain a folder named %s, found file %s", expected.Folder, top.Name())
	}
	if top.Name() != expected.Folder {
		return nil, fmt.Errorf("folder name %s does not match archive name, expected %s", top.Name(), expected.Folder)
	}

	dir := filepath.Join(root, top.Name())
	members, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read folder %s: %w", top.Name(), err)
	}

	var files []string
	for _, m := range members {
		if m.Type().IsRegular() && strings.HasSuffix(m.Name(), ".csv") {
			files = append(files, m.Name())
		}
	}
	sort.Strings(files)

	switch {
	case len(files) == 0:
		return nil, fmt.Errorf("no CSV files found in folder %s", top.Name())
	case maxFiles > 0 && len(files) > maxFiles:
		return nil, fmt.Errorf("too many CSV files in folder %s: %d (max %d)", top.Name(), len(files), maxFiles)
	}

	for _, f := range files {
		if _, err := ParseMemberName(f, expected); err != nil {
			return nil, err
		}
	}

	return &Structure{Folder: expected, Dir: dir, Files: files}, nil
}
