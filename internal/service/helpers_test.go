package service

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	validHeader = "roundId;gameId;createDate;updateDate;betAmount;winAmount;status"
	validRow    = "1001;7;2026-02-03 10:00:00;2026-02-03 10:05:00;10,50;0;lost"
)

type zipEntry struct {
	name string
	body string
}

func buildZip(t *testing.T, entries ...zipEntry) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for _, e := range entries {
		w, err := zw.Create(e.name)
		require.NoError(t, err)
		if e.body != "" {
			_, err = w.Write([]byte(e.body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, zw.Close())
	return buf
}

func validCSV(rows ...string) string {
	if len(rows) == 0 {
		rows = []string{validRow}
	}
	out := validHeader + "\n"
	for _, r := range rows {
		out += r + "\n"
	}
	return out
}
