package source

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/skip2/go-qrcode"

	"github.com/ivlev/sketchreel/internal/analyzer"
	"github.com/ivlev/sketchreel/internal/logging"
	"github.com/ivlev/sketchreel/internal/scene"
)

const (
	qrPrefix      = "qr:"
	defaultQRSize = 512
	defaultDPI    = 150

	// TrimPadding is kept around the detected content of trimmed PDF pages.
	TrimPadding = 8
)

// Options configures a Loader.
type Options struct {
	BaseDir  string // relative references are resolved against it
	PDFDPI   int
	TrimPDF  bool              // crop empty margins off PDF pages
	Detector analyzer.Detector // content detector used for trimming
	QRSize   int
	Logger   *slog.Logger
}

// Loader resolves asset references to images. PDF documents stay open
// until Close so several pages of one file are cheap.
type Loader struct {
	opts Options
	pdfs map[string]*PDFSource
}

func NewLoader(opts Options) *Loader {
	if opts.PDFDPI <= 0 {
		opts.PDFDPI = defaultDPI
	}
	if opts.QRSize <= 0 {
		opts.QRSize = defaultQRSize
	}
	if opts.TrimPDF && opts.Detector == nil {
		opts.Detector = analyzer.NewContrastDetector()
	}
	opts.Logger = logging.OrDiscard(opts.Logger)
	return &Loader{opts: opts, pdfs: make(map[string]*PDFSource)}
}

// Ref is a parsed asset reference.
type Ref struct {
	Kind string // "image", "pdf" or "qr"
	Path string
	Page int // zero-based PDF page
	Text string
}

// ParseRef understands "qr:<text>", "<file>.pdf", "<file>.pdf#<page>" with
// 1-based pages, and plain image paths.
func ParseRef(ref string) (Ref, error) {
	if text, ok := strings.CutPrefix(ref, qrPrefix); ok {
		if text == "" {
			return Ref{}, errors.New("empty qr reference")
		}
		return Ref{Kind: "qr", Text: text}, nil
	}
	path, frag, hasFrag := strings.Cut(ref, "#")
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		page := 1
		if hasFrag {
			n, err := strconv.Atoi(frag)
			if err != nil || n < 1 {
				return Ref{}, fmt.Errorf("bad page in %q", ref)
			}
			page = n
		}
		return Ref{Kind: "pdf", Path: path, Page: page - 1}, nil
	}
	if ref == "" {
		return Ref{}, errors.New("empty reference")
	}
	return Ref{Kind: "image", Path: ref}, nil
}

func (l *Loader) resolve(path string) string {
	if filepath.IsAbs(path) || l.opts.BaseDir == "" {
		return path
	}
	return filepath.Join(l.opts.BaseDir, path)
}

// Load decodes one reference.
func (l *Loader) Load(ref string) (image.Image, error) {
	r, err := ParseRef(ref)
	if err != nil {
		return nil, err
	}
	switch r.Kind {
	case "qr":
		q, err := qrcode.New(r.Text, qrcode.Medium)
		if err != nil {
			return nil, fmt.Errorf("qr %q: %w", r.Text, err)
		}
		return q.Image(l.opts.QRSize), nil
	case "pdf":
		return l.loadPDFPage(l.resolve(r.Path), r.Page)
	default:
		src, err := NewImageSource(l.resolve(r.Path))
		if err != nil {
			return nil, err
		}
		return src.RenderPage(0, 0)
	}
}

func (l *Loader) loadPDFPage(path string, page int) (image.Image, error) {
	src, ok := l.pdfs[path]
	if !ok {
		var err error
		if src, err = NewPDFSource(path); err != nil {
			return nil, err
		}
		l.pdfs[path] = src
	}
	img, err := src.RenderPage(page, l.opts.PDFDPI)
	if err != nil {
		return nil, err
	}
	if !l.opts.TrimPDF {
		return img, nil
	}
	return analyzer.Trim(img, l.opts.Detector, TrimPadding)
}

// Refs lists every image reference in p once, in first-use order.
func Refs(p *scene.Project) []string {
	seen := make(map[string]bool)
	var refs []string
	add := func(ref string) {
		if ref != "" && !seen[ref] {
			seen[ref] = true
			refs = append(refs, ref)
		}
	}
	for _, sc := range p.Scenes {
		add(sc.BackgroundImage)
		add(sc.HandStyle)
		for _, a := range sc.Assets {
			add(a.Ref)
		}
	}
	return refs
}

// LoadAll decodes every reference in p. References that fail are logged
// and left out of the map; the renderer skips them.
func (l *Loader) LoadAll(p *scene.Project) (map[string]image.Image, []error) {
	images := make(map[string]image.Image)
	var errs []error
	for _, ref := range Refs(p) {
		img, err := l.Load(ref)
		if err != nil {
			l.opts.Logger.Warn("asset skipped", "ref", ref, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", ref, err))
			continue
		}
		images[ref] = img
	}
	return images, errs
}

// Close releases every open PDF document.
func (l *Loader) Close() error {
	var errs []error
	for path, src := range l.pdfs {
		errs = append(errs, src.Close())
		delete(l.pdfs, path)
	}
	return errors.Join(errs...)
}
