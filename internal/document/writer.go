package document

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mazen160/go-random"
)

// Writer accumulates one adapter run and checkpoints the whole document to disk
// every time a city completes, so a crash loses at most the city in progress.
type Writer struct {
	path string

	mu  sync.Mutex
	doc Document
}

// NewWriter creates the document at `path` immediately, an unwritable
// destination is fatal for the run and is reported before any scraping starts.
func NewWriter(path, source, date string) (*Writer, error) {
	w := &Writer{
		path: path,
		doc:  New(source, date),
	}
	err := Write(path, w.doc)
	if err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Writer) Path() string {
	return w.path
}

// PutCity sets the movies of a city and flushes the document.
func (w *Writer) PutCity(city string, movies []Movie) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if movies == nil {
		movies = []Movie{}
	}
	w.doc.Cities[city] = City{Movies: movies}
	return Write(w.path, w.doc)
}

// Document returns a copy of the cities written so far.
func (w *Writer) Document() Document {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := New(w.doc.Source, w.doc.Date)
	for name, city := range w.doc.Cities {
		out.Cities[name] = city
	}
	return out
}

// Write serializes a document to `path` through a temporary sibling file and
// a rename, readers never observe a half-written document.
func Write(path string, doc Document) error {
	buff, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("write document: %w", err)
	}

	dir := filepath.Dir(path)
	err = os.MkdirAll(dir, 0777)
	if err != nil {
		return fmt.Errorf("write document: %w", err)
	}

	suffix, err := random.String(8)
	if err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	tmp := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), suffix))

	err = os.WriteFile(tmp, buff, 0666)
	if err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	err = os.Rename(tmp, path)
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}

// Read loads and validates the document at `path`. Documents that predate the
// "source" field are attributed to their file name.
func Read(path string) (Document, []error, error) {
	buff, err := os.ReadFile(path)
	if err != nil {
		return Document{}, nil, fmt.Errorf("read document: %w", err)
	}
	doc, skipped, err := Parse(buff)
	if err != nil {
		return Document{}, nil, fmt.Errorf("read document %s: %w", path, err)
	}
	if doc.Source == "" {
		base := filepath.Base(path)
		doc.Source = base[:len(base)-len(filepath.Ext(base))]
	}
	return doc, skipped, nil
}
