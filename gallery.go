package imgembed

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
	"github.com/dustin/go-humanize"
)

// Gallery renders every manifest image inline as a data URI, grouped by category.
func Gallery(acc *Accessor) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`+
			`<meta name="viewport" content="width=device-width, initial-scale=1">`+
			`<title>Embedded images</title><link rel="stylesheet" href="/static/gallery.css"></head><body>`); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, `<header><h1>Embedded images</h1><p>%d images in %d categories</p></header><main>`,
			acc.Len(), len(acc.Categories())); err != nil {
			return err
		}
		categories := acc.Categories()
		if len(categories) == 0 {
			if _, err := io.WriteString(w, `<p class="empty">The manifest is empty.</p>`); err != nil {
				return err
			}
		}
		for _, category := range categories {
			if err := gallerySection(w, category, acc.GetImagesByCategory(category)); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</main></body></html>`)
		return err
	})
}

func gallerySection(w io.Writer, category string, entries []ManifestEntry) error {
	if _, err := fmt.Fprintf(w, `<section id="%s"><h2>%s</h2><div class="grid">`,
		templ.EscapeString(category), templ.EscapeString(category)); err != nil {
		return err
	}
	for _, e := range entries {
		if _, err := fmt.Fprintf(w, `<figure><img src="%s" alt="%s" loading="lazy"><figcaption>%s <small>%s</small></figcaption></figure>`,
			templ.EscapeString(e.Base64), templ.EscapeString(e.Filename),
			templ.EscapeString(e.Filename), humanize.Bytes(uint64(e.Size))); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, `</div></section>`)
	return err
}
