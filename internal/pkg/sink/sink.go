// Package sink persists produced PDF documents under the export root folder.
package sink

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/spf13/afero"

	"github.com/receiptexporter/receiptexporter/internal/pkg/log"
	"github.com/receiptexporter/receiptexporter/internal/pkg/utils"
)

const (
	// RootFolder is the constant folder every document is saved under.
	RootFolder = "AkizukiReceipts"
	// DefaultFilename is the host suggestion used when no name is forced.
	DefaultFilename = "document.pdf"
)

// Conflict tells the sink what to do when the target file already exists.
type Conflict string

const (
	Overwrite Conflict = "overwrite"
	Uniquify  Conflict = "uniquify"
)

// SaveRequest carries everything the sink needs for one save. The naming
// decision travels with the bytes, so two saves never share naming state.
type SaveRequest struct {
	Data     []byte
	Filename string
	Conflict Conflict
}

// Config configures a Sink.
type Config struct {
	Fs        afero.Fs
	OutputDir string
	Normalize bool
	// Suggest returns the name the host would pick when the request has no
	// forced filename. Defaults to DefaultFilename.
	Suggest func(data []byte) string
}

// Sink writes documents to <OutputDir>/AkizukiReceipts.
type Sink struct {
	fs        afero.Fs
	root      string
	normalize bool
	suggest   func(data []byte) string
	pdfConf   *model.Configuration
	logger    *log.FieldedLogger
}

// New creates a sink. The root folder is created lazily on first save.
func New(cfg Config) *Sink {
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}
	if cfg.Suggest == nil {
		cfg.Suggest = func([]byte) string { return DefaultFilename }
	}

	pdfConf := model.NewDefaultConfiguration()
	pdfConf.ValidationMode = model.ValidationRelaxed

	return &Sink{
		fs:        cfg.Fs,
		root:      filepath.Join(cfg.OutputDir, RootFolder),
		normalize: cfg.Normalize,
		suggest:   cfg.Suggest,
		pdfConf:   pdfConf,
		logger: log.NewFieldedLogger(&log.Fields{
			"component": "sink",
		}),
	}
}

// Root returns the folder documents are written to.
func (s *Sink) Root() string {
	return s.root
}

// Save writes the request's bytes and returns the final path.
func (s *Sink) Save(ctx context.Context, req SaveRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &SaveError{Err: err}
	}

	if len(req.Data) == 0 {
		return "", &SaveError{Err: ErrEmptyDocument}
	}

	name := req.Filename
	if name == "" {
		name = s.suggest(req.Data)
	}

	name = filepath.Base(name)
	if name == "." || name == ".." || name == string(filepath.Separator) {
		return "", &SaveError{Path: name, Err: ErrInvalidFilename}
	}

	if err := s.fs.MkdirAll(s.root, 0755); err != nil {
		return "", &SaveError{Path: s.root, Err: err}
	}

	target := filepath.Join(s.root, name)
	if req.Conflict == Uniquify {
		target = s.uniquePath(target)
	}

	data := req.Data
	if s.normalize {
		data = s.normalizePDF(req.Data)
	}

	// Write next to the target then rename so a failed write never leaves a
	// truncated document under the final name.
	tmp := target + ".part"
	if err := afero.WriteFile(s.fs, tmp, data, 0644); err != nil {
		s.fs.Remove(tmp)
		return "", &SaveError{Path: target, Err: err}
	}

	if err := s.fs.Rename(tmp, target); err != nil {
		s.fs.Remove(tmp)
		return "", &SaveError{Path: target, Err: err}
	}

	s.logger.Info("document saved", "path", target, "size", humanize.Bytes(uint64(len(data))))

	return target, nil
}

// normalizePDF rewrites the document with pdfcpu. Bytes pdfcpu cannot parse
// are written as they are.
func (s *Sink) normalizePDF(data []byte) []byte {
	if !utils.IsPDF(data) {
		s.logger.Warn("payload is not a PDF, saving as is")
		return data
	}

	var out bytes.Buffer
	if err := api.Optimize(bytes.NewReader(data), &out, s.pdfConf); err != nil {
		s.logger.Debug("pdf normalisation skipped", "error", err)
		return data
	}

	if pages, err := api.PageCount(bytes.NewReader(out.Bytes()), s.pdfConf); err == nil {
		s.logger.Debug("pdf normalised", "pages", pages, "before", len(data), "after", out.Len())
	}

	return out.Bytes()
}

// uniquePath mimics the browser's "name (n).pdf" numbering.
func (s *Sink) uniquePath(target string) string {
	if !utils.FileExistsFs(s.fs, target) {
		return target
	}

	ext := filepath.Ext(target)
	base := strings.TrimSuffix(target, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s (%d)%s", base, i, ext)
		if !utils.FileExistsFs(s.fs, candidate) {
			return candidate
		}
	}
}
