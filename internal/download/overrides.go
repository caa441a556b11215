package download

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/rjeczalik/notify"
	"github.com/snagd/snagd/pkg/logger"
	"gopkg.in/yaml.v3"
)

var overrideLog = logger.Get("Overrides")

// OverrideTable maps known-problematic source URLs to a fixed selector,
// consulted before every other resolution rule. Exceptions live in a
// YAML file so they can be extended without redeploying logic:
//
//	overrides:
//	  - pattern: "example.com/broken"
//	    selector: "best[ext=mp4]"
//
// Patterns are matched by substring against the request URL; the first
// match wins.
type OverrideTable struct {
	mu      sync.RWMutex
	path    string
	entries []OverrideEntry
}

type OverrideEntry struct {
	Pattern  string `yaml:"pattern"`
	Selector string `yaml:"selector"`
}

type overrideFile struct {
	Overrides []OverrideEntry `yaml:"overrides"`
}

// LoadOverrideTable reads the override file at path. An empty path
// yields an empty (but usable) table.
func LoadOverrideTable(path string) (*OverrideTable, error) {
	table := &OverrideTable{path: path}
	if path == "" {
		return table, nil
	}

	if err := table.reload(); err != nil {
		return nil, err
	}

	return table, nil
}

func (table *OverrideTable) reload() error {
	raw, err := os.ReadFile(table.path)
	if err != nil {
		return fmt.Errorf("failed to read override table %s: %w", table.path, err)
	}

	var parsed overrideFile
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("failed to parse override table %s: %w", table.path, err)
	}

	table.mu.Lock()
	table.entries = parsed.Overrides
	table.mu.Unlock()

	overrideLog.Infof("Loaded %d selector overrides from %s\n", len(parsed.Overrides), table.path)
	return nil
}

// Lookup returns the selector override for the URL, if any entry
// matches.
func (table *OverrideTable) Lookup(mediaURL string) (string, bool) {
	table.mu.RLock()
	defer table.mu.RUnlock()

	for _, entry := range table.entries {
		if entry.Pattern != "" && strings.Contains(mediaURL, entry.Pattern) {
			return entry.Selector, true
		}
	}

	return "", false
}

// Watch reloads the table whenever the backing file changes, until the
// context is cancelled. A reload failure keeps the previous entries.
func (table *OverrideTable) Watch(ctx context.Context) {
	if table.path == "" {
		return
	}

	events := make(chan notify.EventInfo, 4)
	if err := notify.Watch(table.path, events, notify.Write, notify.Create); err != nil {
		overrideLog.Warnf("Failed to watch override table %s: %v\n", table.path, err)
		return
	}
	defer notify.Stop(events)

	for {
		select {
		case <-events:
			if err := table.reload(); err != nil {
				overrideLog.Warnf("Override table reload failed, keeping previous entries: %v\n", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
