package imgembed

// ImageRecord is one image discovered while scanning the source tree.
type ImageRecord struct {
	Filename     string // base name with extension
	SourcePath   string // path on disk at discovery time
	RelativePath string // path relative to the scan root
	Category     string // name of the immediate parent directory
}

// ManifestEntry is one converted image as persisted in the manifest file.
type ManifestEntry struct {
	Base64   string `json:"base64"` // data URI, not the bare payload
	Filename string `json:"filename"`
	Path     string `json:"path"`
	Size     int64  `json:"size"` // source bytes, before encoding
	MimeType string `json:"mimeType"`
}

// Manifest maps category -> filename -> entry.
type Manifest map[string]map[string]ManifestEntry

// FoundImage is a manifest entry enriched with the category it was found in.
type FoundImage struct {
	Category string `json:"category"`
	ManifestEntry
}

// Put stores e under category, replacing any entry with the same filename.
func (m Manifest) Put(category string, e ManifestEntry) {
	files, ok := m[category]
	if !ok {
		files = make(map[string]ManifestEntry)
		m[category] = files
	}
	files[e.Filename] = e
}

// Count returns the total number of entries across all categories.
func (m Manifest) Count() int {
	n := 0
	for _, files := range m {
		n += len(files)
	}
	return n
}
