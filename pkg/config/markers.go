package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/dsv-su/dsvgo/pkg/auth"
)

// ServiceMarkers is the marker set for one service: page content that
// proves an authenticated view and content that betrays a login page.
type ServiceMarkers struct {
	Authenticated []string `yaml:"authenticated"`
	Login         []string `yaml:"login"`
}

// Markers is the full marker file: service identifier to marker set.
//
// Marker text is the weakest part of content probing and the most likely
// to need a production hotfix, which is why it is file configuration and
// not code.
type Markers map[auth.Service]ServiceMarkers

// LoadMarkers reads a YAML marker file.
func LoadMarkers(path string) (Markers, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading marker file: %w", err)
	}
	var markers Markers
	if err := yaml.Unmarshal(data, &markers); err != nil {
		return nil, fmt.Errorf("parsing marker file %s: %w", path, err)
	}
	return markers, nil
}

// Apply replaces the probes of every listed service in the registry.
// Services not present in the marker file keep their current probes.
func (m Markers) Apply(reg *auth.Registry) error {
	for service, markers := range m {
		probe := auth.MarkerProbe(markers.Authenticated, markers.Login)
		if err := reg.SetProbe(service, probe); err != nil {
			return fmt.Errorf("applying markers: %w", err)
		}
	}
	return nil
}

// WatchMarkers applies the marker file now and re-applies it whenever it
// changes, until ctx is cancelled. A marker file that becomes unreadable or
// invalid is logged and skipped; the registry keeps its last good probes.
func WatchMarkers(ctx context.Context, path string, reg *auth.Registry, log *logrus.Entry) error {
	markers, err := LoadMarkers(path)
	if err != nil {
		return err
	}
	if err := markers.Apply(reg); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting marker watcher: %w", err)
	}
	// Watch the directory, not the file: editors and atomic writers replace
	// the file, which would silently drop a file-level watch.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watching marker dir: %w", err)
	}

	go func() {
		defer watcher.Close()
		target := filepath.Clean(path)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				// Atomic replacers emit Create before the content settles.
				time.Sleep(50 * time.Millisecond)
				markers, err := LoadMarkers(path)
				if err != nil {
					log.WithError(err).Warn("marker file changed but could not be reloaded")
					continue
				}
				if err := markers.Apply(reg); err != nil {
					log.WithError(err).Warn("marker file changed but could not be applied")
					continue
				}
				log.WithField("path", path).Info("probe markers reloaded")
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.WithError(err).Warn("marker watcher error")
			}
		}
	}()

	return nil
}
