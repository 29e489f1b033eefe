package template

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Registry serves the variant table, optionally adjusted by a YAML overrides
// file. Overrides can rename a template or extend its keyword list (seasonal
// promo wording changes every year); the variant set and resolution order
// stay fixed.
type Registry struct {
	mu     sync.RWMutex
	table  []Config
	logger *slog.Logger
}

// Override adjusts one built-in entry, addressed by variant.
type Override struct {
	Variant     Variant  `yaml:"variant"`
	Name        string   `yaml:"name,omitempty"`
	Keywords    []string `yaml:"keywords,omitempty"`
	Description string   `yaml:"description,omitempty"`
}

// overridesFile is the on-disk shape of the overrides document.
type overridesFile struct {
	Overrides []Override `yaml:"overrides"`
}

// NewRegistry returns a registry serving the built-in table.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{table: Builtin(), logger: logger}
}

// Resolve maps an identifier to a template config using the current table.
func (r *Registry) Resolve(identifier string) Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return resolveIn(r.table, identifier)
}

// All returns the current table in resolution order.
func (r *Registry) All() []Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Config, len(r.table))
	copy(out, r.table)
	return out
}

// ByCategory returns the current table filtered to one listing category.
func (r *Registry) ByCategory(c Category) []Config {
	var out []Config
	for _, t := range r.All() {
		if t.Category == c {
			out = append(out, t)
		}
	}
	return out
}

// LoadOverrides reads an overrides file and applies it on top of the
// built-in table. Overrides for unknown variants are logged and skipped.
func (r *Registry) LoadOverrides(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read template overrides: %w", err)
	}
	var file overridesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse template overrides: %w", err)
	}

	table := Builtin()
	for _, ov := range file.Overrides {
		idx := -1
		for i, t := range table {
			if t.Variant == ov.Variant {
				idx = i
				break
			}
		}
		if idx < 0 {
			r.logger.Warn("Skipping override for unknown variant", "variant", ov.Variant)
			continue
		}
		if ov.Name != "" {
			table[idx].Name = ov.Name
		}
		if len(ov.Keywords) > 0 {
			table[idx].Keywords = append(table[idx].Keywords, ov.Keywords...)
		}
		if ov.Description != "" {
			table[idx].Description = ov.Description
		}
	}

	r.mu.Lock()
	r.table = table
	r.mu.Unlock()
	r.logger.Info("Loaded template overrides", "path", path, "overrides", len(file.Overrides))
	return nil
}

// WatchOverrides reloads the overrides file whenever it changes, until ctx is
// cancelled. The initial load must have happened already; reload failures
// keep the previous table.
func (r *Registry) WatchOverrides(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create overrides watcher: %w", err)
	}
	// Watch the directory: editors replace files on save, which drops the
	// watch on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch overrides dir: %w", err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(path) {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if err := r.LoadOverrides(path); err != nil {
					r.logger.Error("Reloading template overrides failed", "path", path, "error", err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				r.logger.Error("Template overrides watcher error", "error", err)
			}
		}
	}()
	return nil
}
