package settings

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/apphost/pkg/log"
)

// Watch starts reloading the provider whenever one of its file sources
// changes. It returns once the watcher is running; watching stops when ctx
// is done or Close is called. Calling Watch twice returns an error.
func (p *Provider) Watch(ctx context.Context) error {
	p.watchMu.Lock()
	defer p.watchMu.Unlock()

	if p.stop != nil {
		return fmt.Errorf("settings: already watching")
	}

	files := map[string]bool{}
	dirs := map[string]bool{}
	for _, src := range p.sources {
		fs, ok := src.(*FileSource)
		if !ok {
			continue
		}
		abs, err := filepath.Abs(fs.Path)
		if err != nil {
			return fmt.Errorf("settings: resolve %s: %w", fs.Path, err)
		}
		files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("settings: create watcher: %w", err)
	}
	// Watch directories so editors that replace files are still seen.
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return fmt.Errorf("settings: watch %s: %w", dir, err)
		}
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.stop = cancel

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher, files)

	p.logger.Info("watching settings files", log.Int("files", len(files)))
	return nil
}

// Close stops watching and waits for the watcher to exit.
func (p *Provider) Close() error {
	p.watchMu.Lock()
	stop := p.stop
	if p.timer != nil {
		p.timer.Stop()
	}
	p.watchMu.Unlock()

	if stop != nil {
		stop()
	}
	p.wg.Wait()
	return nil
}

func (p *Provider) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, files map[string]bool) {
	defer p.wg.Done()
	defer watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			name, err := filepath.Abs(event.Name)
			if err != nil || !files[name] {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			p.debounceReload(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("settings watcher error", log.Err(err))
		}
	}
}

func (p *Provider) debounceReload(ctx context.Context) {
	p.watchMu.Lock()
	defer p.watchMu.Unlock()

	if p.timer != nil {
		p.timer.Stop()
	}

	p.timer = time.AfterFunc(p.debounce, func() {
		if ctx.Err() != nil {
			return
		}
		if err := p.Reload(); err != nil {
			p.logger.Warn("settings reload failed, keeping previous values", log.Err(err))
			return
		}
		p.logger.Info("settings reloaded")
	})
}
