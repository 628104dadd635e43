package pdf

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// FileInfo describes a PDF found by Search.
type FileInfo struct {
	Path    string    `json:"path"`
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modified_time"`
}

// Search discovers report PDFs in a directory.
type Search struct {
	recursive bool
}

// NewSearch creates a search that descends into subdirectories when
// recursive is set.
func NewSearch(recursive bool) *Search {
	return &Search{recursive: recursive}
}

// FindPDFs returns the PDF files under directory sorted by path.
func (s *Search) FindPDFs(directory string) ([]FileInfo, error) {
	if directory == "" {
		return nil, fmt.Errorf("directory cannot be empty")
	}

	absDirectory, err := filepath.Abs(directory)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve directory path: %w", err)
	}

	info, err := os.Stat(absDirectory)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("directory does not exist: %s", directory)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot access directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", directory)
	}

	var files []FileInfo
	err = filepath.WalkDir(absDirectory, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Continue walking even if we encounter an error with a specific entry
			return nil //nolint:nilerr // unreadable entries are skipped
		}
		if d.IsDir() {
			if path != absDirectory && !s.recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if !isPDFName(d.Name()) {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return nil //nolint:nilerr // file vanished during the walk
		}
		files = append(files, FileInfo{
			Path:    path,
			Name:    d.Name(),
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking directory: %w", err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}
