// Package archive knows the partner archive naming grammar and how to unpack
// an uploaded ZIP safely.
package archive

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// DateLayout is the DDMMYYYY business date embedded in names.
const DateLayout = "02012006"

var (
	archiveName = regexp.MustCompile(`^branch_(\d+)_(\d{8})\.zip$`)
	memberName  = regexp.MustCompile(`^branch_(\d+)_(\d{2})_(\d{8})\.csv$`)
	folderName  = regexp.MustCompile(`^branch_(\d+)_(\d{8})$`)
)

// Name is a parsed archive or folder name.
type Name struct {
	PartnerID string
	Date      time.Time
	Folder    string
}

// Member is a parsed CSV member name.
type Member struct {
	PartnerID string
	Sequence  int
	Date      time.Time
}

// ParseBusinessDate parses DDMMYYYY and rejects impossible calendar dates.
func ParseBusinessDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q in name", s)
	}
	return d, nil
}

// FormatBusinessDate renders t as DDMMYYYY.
func FormatBusinessDate(t time.Time) string {
	return t.Format(DateLayout)
}

// FolderFor builds the folder name for a partner and business date.
func FolderFor(partnerID string, date time.Time) string {
	return fmt.Sprintf("branch_%s_%s", partnerID, FormatBusinessDate(date))
}

// ParseArchiveName validates branch_{partnerID}_{DDMMYYYY}.zip.
func ParseArchiveName(filename, partnerID string) (Name, error) {
	m := archiveName.FindStringSubmatch(filename)
	if m == nil {
		return Name{}, fmt.Errorf("archive name %q must match branch_%s_DDMMYYYY.zip", filename, partnerID)
	}
	if m[1] != partnerID {
		return Name{}, fmt.Errorf("archive name %q belongs to partner %s, not %s", filename, m[1], partnerID)
	}
	date, err := ParseBusinessDate(m[2])
	if err != nil {
		return Name{}, err
	}
	return Name{PartnerID: m[1], Date: date, Folder: "branch_" + m[1] + "_" + m[2]}, nil
}

// ParseFolderName validates branch_{partnerID}_{DDMMYYYY}.
func ParseFolderName(name string) (Name, error) {
	m := folderName.FindStringSubmatch(name)
	if m == nil {
		return Name{}, fmt.Errorf("folder name %q must match branch_ID_DDMMYYYY", name)
	}
	date, err := ParseBusinessDate(m[2])
	if err != nil {
		return Name{}, err
	}
	return Name{PartnerID: m[1], Date: date, Folder: name}, nil
}

// ParseMemberName validates branch_{partnerID}_{NN}_{DDMMYYYY}.csv against
// the folder it was found in.
func ParseMemberName(filename string, folder Name) (Member, error) {
	m := memberName.FindStringSubmatch(filename)
	if m == nil {
		return Member{}, fmt.Errorf("file name %q must match branch_%s_NN_DDMMYYYY.csv", filename, folder.PartnerID)
	}
	if m[1] != folder.PartnerID {
		return Member{}, fmt.Errorf("file %q belongs to partner %s, not %s", filename, m[1], folder.PartnerID)
	}

	seq, _ := strconv.Atoi(m[2])
	if seq < 1 || seq > 99 {
		return Member{}, fmt.Errorf("file %q has sequence %s, must be between 01 and 99", filename, m[2])
	}

	date, err := ParseBusinessDate(m[3])
	if err != nil {
		return Member{}, err
	}
	if !date.Equal(folder.Date) {
		return Member{}, fmt.Errorf("file %q date %s does not match folder date %s", filename, m[3], FormatBusinessDate(folder.Date))
	}

	return Member{PartnerID: m[1], Sequence: seq, Date: date}, nil
}
