// Package discovery finds the stored CSV files of one business date.
package discovery

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/grachmannico95/branch-ingest/internal/archive"
	"github.com/grachmannico95/branch-ingest/internal/blob"
	"github.com/grachmannico95/branch-ingest/internal/domain"
)

// LocalResolver is implemented by stores that keep objects on the local
// filesystem, so workers can stream straight from disk.
type LocalResolver interface {
	LocalPath(key string) string
}

type StoreDiscoverer struct {
	store blob.Store
}

func NewStoreDiscoverer(store blob.Store) *StoreDiscoverer {
	return &StoreDiscoverer{store: store}
}

// Discover lists uploads/{pid}/branch_{pid}_{DDMMYYYY}/*.csv for date. An
// empty partnerID scans every partner. Folders whose embedded partner differs
// from their parent directory are skipped.
func (d *StoreDiscoverer) Discover(ctx context.Context, date time.Time, partnerID string) ([]domain.FileTask, error) {
	prefix := blob.UploadsPrefix + "/"
	if partnerID != "" {
		prefix = blob.PartnerPrefix(partnerID)
	}

	objects, err := d.store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
	}

	target := archive.FormatBusinessDate(date)
	resolver, _ := d.store.(LocalResolver)

	var tasks []domain.FileTask
	for _, obj := range objects {
		task, ok := match(obj.Key, target, partnerID)
		if !ok {
			continue
		}
		if resolver != nil {
			task.Path = resolver.LocalPath(obj.Key)
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func match(key, targetDate, partnerFilter string) (domain.FileTask, bool) {
	parts := strings.Split(key, "/")
	if len(parts) != 4 || parts[0] != blob.UploadsPrefix {
		return domain.FileTask{}, false
	}
	pid, folder, name := parts[1], parts[2], parts[3]

	if partnerFilter != "" && pid != partnerFilter {
		return domain.FileTask{}, false
	}
	if !strings.EqualFold(path.Ext(name), ".csv") {
		return domain.FileTask{}, false
	}

	parsed, err := archive.ParseFolderName(folder)
	if err != nil || parsed.PartnerID != pid {
		return domain.FileTask{}, false
	}
	if archive.FormatBusinessDate(parsed.Date) != targetDate {
		return domain.FileTask{}, false
	}

	return domain.FileTask{Key: key, PartnerID: pid, Filename: name}, true
}
