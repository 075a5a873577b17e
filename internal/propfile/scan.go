package propfile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/groblegark/propkeep/internal/model"
)

// Extension is the file suffix recognized by the folder scanners.
const Extension = ".properties"

// ScanFolder reads every *.properties file in dir as one component of the
// given environment. Files are visited in directory order; the index of each
// file becomes FileOrder. A file that cannot be read is logged and skipped,
// so the scan completes with partial results instead of aborting.
func ScanFolder(dir, environment string, logger *slog.Logger) ([]model.Property, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read folder %s: %w", dir, err)
	}

	var props []model.Property
	fileOrder := 0
	for _, de := range dirEntries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), Extension) {
			continue
		}

		path := filepath.Join(dir, de.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("skipping unreadable property file", "path", path, "err", err)
			continue
		}

		component := strings.TrimSuffix(de.Name(), Extension)
		modified := fileModTime(de)

		for _, e := range Parse(string(data)) {
			props = append(props, model.Property{
				ID:           model.PropertyID(environment, e.Key),
				Environment:  environment,
				Key:          e.Key,
				Value:        e.Value,
				Description:  e.Description,
				Component:    component,
				LastModified: modified,
				FileOrder:    fileOrder,
				LineOrder:    e.LineOrder,
			})
		}
		fileOrder++
	}

	return props, nil
}

// ScanEnvironments treats every immediate subdirectory of root as one
// environment and scans it with ScanFolder. Subdirectory order becomes
// EnvironmentOrder.
func ScanEnvironments(root string, logger *slog.Logger) ([]model.Property, error) {
	dirEntries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read folder %s: %w", root, err)
	}

	var props []model.Property
	envOrder := 0
	for _, de := range dirEntries {
		if !de.IsDir() {
			continue
		}

		env := de.Name()
		scanned, err := ScanFolder(filepath.Join(root, env), env, logger)
		if err != nil {
			logger.Warn("skipping unreadable environment folder", "environment", env, "err", err)
			continue
		}
		for i := range scanned {
			scanned[i].EnvironmentOrder = envOrder
		}
		props = append(props, scanned...)
		envOrder++
	}

	return props, nil
}

func fileModTime(de os.DirEntry) time.Time {
	if info, err := de.Info(); err == nil {
		return info.ModTime().UTC()
	}
	return time.Now().UTC()
}
