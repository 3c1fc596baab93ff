package dedup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch keeps renaming shards as the producer drops them under root,
// blocking until ctx is cancelled. It starts with a full Run pass so shards
// written before the watch began are not missed, then renames on every
// create/rename notification. Directories created under root are added to
// the watch and swept immediately, since files can land in them before the
// watch attaches.
//
// Renaming a shard the producer still holds open is safe on POSIX; the open
// descriptor follows the file. The fail-fast policy matches Run: the first
// rename failure stops the watch.
func (r *Renamer) Watch(ctx context.Context, root string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := r.watchTree(watcher, root); err != nil {
		return err
	}
	if _, err := r.Run(root); err != nil {
		return err
	}

	r.logger.Info("watching for transient shards", zap.String("root", root))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			info, err := os.Lstat(ev.Name)
			if err != nil {
				// Gone already (renames fire for the old path too).
				continue
			}
			if info.IsDir() {
				if err := r.watchTree(watcher, ev.Name); err != nil {
					return err
				}
				if _, err := r.Run(ev.Name); err != nil {
					return err
				}
				continue
			}
			if !r.pattern.MatchString(filepath.Base(ev.Name)) {
				continue
			}
			if _, err := r.renameOne(ev.Name); err != nil {
				return err
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch %s: %w", root, err)
		}
	}
}

// watchTree registers root and every directory below it.
func (r *Renamer) watchTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}
