package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"detailing/internal/models"

	"gopkg.in/yaml.v3"
)

// LoadCatalog reads the time slot and service catalog from a YAML file.
func LoadCatalog(path string) (*models.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var c models.Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return &c, nil
}

// WatchCatalog reloads the catalog file on change and calls onUpdate with the latest version.
// It performs an initial load before entering the watch loop.
func WatchCatalog(ctx context.Context, path string, interval time.Duration, onUpdate func(*models.Catalog)) error {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	c, err := LoadCatalog(path)
	if err != nil {
		return err
	}
	if onUpdate != nil {
		onUpdate(c)
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	lastMod := info.ModTime()

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				info, err := os.Stat(path)
				if err != nil {
					continue // transient errors
				}
				if !info.ModTime().After(lastMod) {
					continue
				}
				c, err := LoadCatalog(path)
				if err != nil {
					continue // keep serving the last good catalog
				}
				lastMod = info.ModTime()
				if onUpdate != nil {
					onUpdate(c)
				}
			}
		}
	}()

	return nil
}
