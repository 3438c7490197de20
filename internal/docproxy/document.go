package docproxy

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

const defaultRunHeight = 12.0

// Document is a Provider backed by a PDF file on disk. Text runs come from
// ledongthuc/pdf; page dimensions and structural validation come from
// pdfcpu.
type Document struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	reader *pdf.Reader
	dims   []Size
	cache  *pageCache
	closed bool
}

// Open validates and opens the PDF at path. maxFileSize <= 0 disables the
// size check.
func Open(path string, maxFileSize int64) (*Document, error) {
	if err := validateFile(path, maxFileSize); err != nil {
		return nil, err
	}

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	dims, err := readPageDims(path)
	if err != nil {
		f.Close()
		return nil, err
	}

	return &Document{
		path:   path,
		file:   f,
		reader: reader,
		dims:   dims,
		cache:  newPageCache(16),
	}, nil
}

// validateFile performs cheap checks before any PDF parsing is attempted.
func validateFile(path string, maxFileSize int64) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("file does not exist: %s", path)
	}
	if err != nil {
		return fmt.Errorf("cannot access file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", path)
	}
	if !strings.HasSuffix(strings.ToLower(path), ".pdf") {
		return fmt.Errorf("file is not a PDF: %s", path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("file is empty: %s", path)
	}
	if maxFileSize > 0 && info.Size() > maxFileSize {
		return fmt.Errorf("file too large: %d bytes (max: %d bytes)", info.Size(), maxFileSize)
	}
	return nil
}

// readPageDims reads per-page media box dimensions through pdfcpu with
// relaxed validation, tolerating the slightly malformed files research
// repositories are full of.
func readPageDims(path string) ([]Size, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(f, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF context: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("failed to ensure page count: %w", err)
	}

	dims, err := ctx.PageDims()
	if err != nil {
		return nil, fmt.Errorf("failed to read page dimensions: %w", err)
	}

	sizes := make([]Size, len(dims))
	for i, d := range dims {
		sizes[i] = Size{Width: d.Width, Height: d.Height}
	}
	return sizes, nil
}

// Path returns the file path the document was opened from.
func (d *Document) Path() string {
	return d.path
}

// PageCount implements Provider.
func (d *Document) PageCount(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, fmt.Errorf("document is closed")
	}
	return d.reader.NumPage(), nil
}

// PageTextContent implements Provider. Results are cached per page.
func (d *Document) PageTextContent(ctx context.Context, pageNumber int) ([]TextRun, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, fmt.Errorf("document is closed")
	}
	if pageNumber < 1 || pageNumber > d.reader.NumPage() {
		return nil, fmt.Errorf("invalid page number %d (document has %d pages)",
			pageNumber, d.reader.NumPage())
	}

	if runs, ok := d.cache.get(pageNumber); ok {
		return runs, nil
	}

	content := d.reader.Page(pageNumber).Content()

	runs := make([]TextRun, 0, len(content.Text))
	for _, text := range content.Text {
		// ledongthuc reports no text height; the font size is the usual
		// approximation.
		height := text.FontSize
		if height == 0 {
			height = defaultRunHeight
		}
		runs = append(runs, TextRun{
			Text:   text.S,
			X:      text.X,
			Y:      text.Y,
			Width:  text.W,
			Height: height,
		})
	}

	d.cache.put(pageNumber, runs)
	return runs, nil
}

// PageDimensions implements Provider.
func (d *Document) PageDimensions(ctx context.Context, pageNumber int) (Size, error) {
	if err := ctx.Err(); err != nil {
		return Size{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return Size{}, fmt.Errorf("document is closed")
	}
	if pageNumber < 1 || pageNumber > len(d.dims) {
		return Size{}, fmt.Errorf("invalid page number %d (document has %d pages)",
			pageNumber, len(d.dims))
	}
	return d.dims[pageNumber-1], nil
}

// Close releases the underlying file. Further calls on the document fail.
func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	return d.file.Close()
}
