package sink

import (
	"bytes"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/spf13/afero"
)

// Entry describes one saved document.
type Entry struct {
	Name    string
	Size    int64
	ModTime time.Time
	Pages   int // 0 when pdfcpu cannot read the file
}

// List returns the documents under the root folder, sorted by name.
func (s *Sink) List() ([]Entry, error) {
	infos, err := afero.ReadDir(s.fs, s.root)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(infos))
	for _, info := range infos {
		if info.IsDir() || !strings.EqualFold(filepath.Ext(info.Name()), ".pdf") {
			continue
		}

		entry := Entry{
			Name:    info.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		}

		if data, err := afero.ReadFile(s.fs, filepath.Join(s.root, info.Name())); err == nil {
			if pages, err := api.PageCount(bytes.NewReader(data), s.pdfConf); err == nil {
				entry.Pages = pages
			}
		}

		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	return entries, nil
}
