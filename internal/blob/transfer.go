package blob

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/grachmannico95/branch-ingest/pkg/retry"
)

// StagingMarker starts the name of the directory a transfer stages into. A
// staged key is uploads/{pid}/.staging-{id}/{new|prev}/{name}, one segment
// deeper than a stored CSV, so discovery never picks it up.
const StagingMarker = ".staging-"

// Copier is implemented by stores that can copy an object server side.
type Copier interface {
	Copy(ctx context.Context, srcKey, dstKey string) error
}

// TransferResult lists what a folder transfer left in the store.
type TransferResult struct {
	Prefix  string
	Keys    []string
	Removed []string
}

type transfer struct {
	store   Store
	prefix  string
	staging string
	opts    []retry.Option
}

// CopyFolder uploads files from srcDir under prefix, all or nothing.
//
// Members are first staged beside the folder. Only when every member is
// staged are the current objects they replace backed up and the new ones
// promoted into prefix. A failure while staging or backing up leaves the
// folder untouched; a failure while promoting restores the backed up objects.
// After success, objects under prefix that are not part of this upload are
// removed. Errors from that cleanup come back with a non-nil result.
func CopyFolder(ctx context.Context, store Store, srcDir string, files []string, prefix string, opts ...retry.Option) (*TransferResult, error) {
	t := &transfer{
		store:  store,
		prefix: strings.TrimSuffix(prefix, "/"),
		opts:   opts,
	}
	t.staging = path.Dir(t.prefix) + "/" + StagingMarker + uuid.New().String()

	existing, err := store.List(ctx, t.prefix+"/")
	if err != nil {
		return nil, fmt.Errorf("list existing objects: %w", err)
	}
	current := make(map[string]struct{}, len(existing))
	for _, obj := range existing {
		current[obj.Key] = struct{}{}
	}

	// stage
	var scratch []string
	for _, name := range files {
		key := t.stagedKey("new", name)
		src := filepath.Join(srcDir, name)
		if err := t.retry(ctx, func() error { return putFile(ctx, store, key, src) }); err != nil {
			return nil, t.abort(ctx, fmt.Errorf("upload %s: %w", name, err), scratch, nil, nil)
		}
		scratch = append(scratch, key)
	}

	// back up what promotion will overwrite
	backups := make(map[string]string)
	for _, name := range files {
		key := t.prefix + "/" + name
		if _, ok := current[key]; !ok {
			continue
		}
		backup := t.stagedKey("prev", name)
		if err := t.retry(ctx, func() error { return copyObject(ctx, store, key, backup) }); err != nil {
			return nil, t.abort(ctx, fmt.Errorf("back up %s: %w", name, err), scratch, nil, nil)
		}
		scratch = append(scratch, backup)
		backups[key] = backup
	}

	// promote
	written := make([]string, 0, len(files))
	for _, name := range files {
		key := t.prefix + "/" + name
		staged := t.stagedKey("new", name)
		if err := t.retry(ctx, func() error { return copyObject(ctx, store, staged, key) }); err != nil {
			// the failed key may be half written, so it is restored too
			return nil, t.abort(ctx, fmt.Errorf("promote %s: %w", name, err), scratch, append(written, key), backups)
		}
		written = append(written, key)
	}

	result := &TransferResult{Prefix: t.prefix, Keys: written}

	keep := make(map[string]struct{}, len(written))
	for _, k := range written {
		keep[k] = struct{}{}
	}
	for _, obj := range existing {
		if _, ok := keep[obj.Key]; !ok {
			result.Removed = append(result.Removed, obj.Key)
		}
	}

	var cleanupErr error
	if len(result.Removed) > 0 {
		if err := store.Delete(ctx, result.Removed...); err != nil {
			cleanupErr = fmt.Errorf("remove stale objects: %w", err)
		}
	}
	if len(scratch) > 0 {
		if err := store.Delete(context.WithoutCancel(ctx), scratch...); err != nil {
			cleanupErr = errors.Join(cleanupErr, fmt.Errorf("remove staged objects: %w", err))
		}
	}

	return result, cleanupErr
}

func (t *transfer) stagedKey(kind, name string) string {
	return t.staging + "/" + kind + "/" + name
}

func (t *transfer) retry(ctx context.Context, fn func() error) error {
	return retry.Do(ctx, fn, t.opts...)
}

// abort undoes a failed transfer: promoted keys go back to their backup or
// are deleted when they are new, then the staging area is cleared.
func (t *transfer) abort(ctx context.Context, cause error, scratch, promoted []string, backups map[string]string) error {
	ctx = context.WithoutCancel(ctx)
	errs := []error{cause}

	var fresh []string
	for _, key := range promoted {
		backup, ok := backups[key]
		if !ok {
			fresh = append(fresh, key)
			continue
		}
		if err := t.retry(ctx, func() error { return copyObject(ctx, t.store, backup, key) }); err != nil {
			errs = append(errs, fmt.Errorf("restore %s: %w", key, err))
		}
	}
	if len(fresh) > 0 {
		if err := t.store.Delete(ctx, fresh...); err != nil {
			errs = append(errs, fmt.Errorf("rollback: %w", err))
		}
	}
	if len(scratch) > 0 {
		if err := t.store.Delete(ctx, scratch...); err != nil {
			errs = append(errs, fmt.Errorf("remove staged objects: %w", err))
		}
	}
	return errors.Join(errs...)
}

func copyObject(ctx context.Context, store Store, srcKey, dstKey string) error {
	if c, ok := store.(Copier); ok {
		return c.Copy(ctx, srcKey, dstKey)
	}

	rc, err := store.Open(ctx, srcKey)
	if err != nil {
		return err
	}
	defer rc.Close()

	return store.Put(ctx, dstKey, rc, -1)
}

func putFile(ctx context.Context, store Store, key, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return retry.Permanent(err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return retry.Permanent(err)
	}
	return store.Put(ctx, key, f, info.Size())
}
