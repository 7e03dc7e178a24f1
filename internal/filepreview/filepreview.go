// Package filepreview lists exported data files and previews their
// leading lines without loading whole files.
package filepreview

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// DefaultPreviewLines is how many lines Preview returns when the caller
// does not say.
const DefaultPreviewLines = 50

// FileInfo describes one listed data file.
type FileInfo struct {
	Name     string    `json:"name"`
	SizeByte int64     `json:"size_bytes"`
	Modified time.Time `json:"modified"`
}

// Preview is the head of one file.
type Preview struct {
	Name      string   `json:"name"`
	Lines     []string `json:"lines"`
	Truncated bool     `json:"truncated"`
}

// dataExtensions are the formats the exporter produces.
var dataExtensions = map[string]bool{
	".csv": true,
	".tsv": true,
	".txt": true,
}

// List returns the data files directly under dir, newest first.
func List(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list data directory: %w", err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() || !dataExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Name:     entry.Name(),
			SizeByte: info.Size(),
			Modified: info.ModTime(),
		})
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].Modified.After(files[j].Modified)
	})
	return files, nil
}

// Head returns up to maxLines leading lines of the named file. The name
// must be a bare filename; path traversal out of dir is rejected.
func Head(dir, name string, maxLines int) (*Preview, error) {
	if name != filepath.Base(name) || name == "." || name == ".." {
		return nil, fmt.Errorf("invalid file name %q", name)
	}
	if maxLines <= 0 {
		maxLines = DefaultPreviewLines
	}

	f, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer f.Close()

	preview := &Preview{Name: name}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if len(preview.Lines) == maxLines {
			preview.Truncated = true
			break
		}
		preview.Lines = append(preview.Lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return preview, nil
}
