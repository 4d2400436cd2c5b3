package imgembed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sort"
)

// Accessor is a read-only query surface over a loaded manifest. It never
// mutates after construction, so it is safe for concurrent use.
type Accessor struct {
	images     Manifest
	categories []string            // manifest-file order
	filenames  map[string][]string // per category, manifest-file order
	index      map[string]string   // filename -> first category containing it
}

// Load reads and parses the manifest file at path.
func Load(path string) (*Accessor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return Parse(data)
}

// Parse builds an Accessor from manifest JSON, keeping the key order found in
// the document.
func Parse(data []byte) (*Accessor, error) {
	a := &Accessor{
		images:    make(Manifest),
		filenames: make(map[string][]string),
		index:     make(map[string]string),
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}
	for dec.More() {
		category, err := stringToken(dec)
		if err != nil {
			return nil, err
		}
		if err := expectDelim(dec, '{'); err != nil {
			return nil, fmt.Errorf("category %q: %w", category, err)
		}
		for dec.More() {
			filename, err := stringToken(dec)
			if err != nil {
				return nil, err
			}
			var e ManifestEntry
			if err := dec.Decode(&e); err != nil {
				return nil, fmt.Errorf("parse manifest entry %s/%s: %w", category, filename, err)
			}
			a.add(category, filename, e)
		}
		if err := expectDelim(dec, '}'); err != nil {
			return nil, err
		}
		if _, ok := a.images[category]; !ok {
			a.images[category] = make(map[string]ManifestEntry)
			a.categories = append(a.categories, category)
		}
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	return a, nil
}

// NewAccessor wraps an in-memory manifest. Categories and filenames are
// ordered lexically, matching the order the builder writes them.
func NewAccessor(m Manifest) *Accessor {
	a := &Accessor{
		images:    make(Manifest, len(m)),
		filenames: make(map[string][]string, len(m)),
		index:     make(map[string]string),
	}
	categories := make([]string, 0, len(m))
	for c := range m {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	for _, c := range categories {
		names := make([]string, 0, len(m[c]))
		for name := range m[c] {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			a.add(c, name, m[c][name])
		}
		if _, ok := a.images[c]; !ok {
			a.images[c] = make(map[string]ManifestEntry)
			a.categories = append(a.categories, c)
		}
	}
	return a
}

func (a *Accessor) add(category, filename string, e ManifestEntry) {
	files, ok := a.images[category]
	if !ok {
		files = make(map[string]ManifestEntry)
		a.images[category] = files
		a.categories = append(a.categories, category)
	}
	if _, seen := files[filename]; !seen {
		a.filenames[category] = append(a.filenames[category], filename)
	}
	files[filename] = e
	if _, ok := a.index[filename]; !ok {
		a.index[filename] = category
	}
}

// GetImage returns the data URI stored under category and filename.
func (a *Accessor) GetImage(category, filename string) (string, bool) {
	e, ok := a.Entry(category, filename)
	if !ok {
		slog.Warn("image not found", "category", category, "filename", filename)
		return "", false
	}
	return e.Base64, true
}

// Entry returns the full manifest entry for category and filename.
func (a *Accessor) Entry(category, filename string) (ManifestEntry, bool) {
	e, ok := a.images[category][filename]
	return e, ok
}

// GetImagesByCategory returns every entry of category in manifest order, or
// an empty slice when the category is absent.
func (a *Accessor) GetImagesByCategory(category string) []ManifestEntry {
	names := a.filenames[category]
	out := make([]ManifestEntry, 0, len(names))
	for _, name := range names {
		out = append(out, a.images[category][name])
	}
	return out
}

// FindImage looks filename up across all categories. When several categories
// hold the same filename the first category in manifest order wins.
func (a *Accessor) FindImage(filename string) (FoundImage, bool) {
	category, ok := a.index[filename]
	if !ok {
		return FoundImage{}, false
	}
	return FoundImage{Category: category, ManifestEntry: a.images[category][filename]}, true
}

// Categories returns the category names in manifest order.
func (a *Accessor) Categories() []string {
	out := make([]string, len(a.categories))
	copy(out, a.categories)
	return out
}

// HasCategory reports whether name is a manifest category, including one
// that holds no images.
func (a *Accessor) HasCategory(name string) bool {
	return slices.Contains(a.categories, name)
}

// Len returns the total number of images.
func (a *Accessor) Len() int {
	return a.images.Count()
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("parse manifest: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("parse manifest: expected %q, got %v", want, tok)
	}
	return nil
}

func stringToken(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", fmt.Errorf("parse manifest: %w", err)
	}
	s, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("parse manifest: expected key, got %v", tok)
	}
	return s, nil
}
