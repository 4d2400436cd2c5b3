package imgembed

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
)

// DefaultCleanupPaths lists the temporary inputs and generator artifacts
// removed by Cleanup when no explicit list is configured.
var DefaultCleanupPaths = []string{
	"./imagens-temporarias",
	"./converted_images.json",
	"./convert_images_to_base64.js",
	"./cleanup_conversion.js",
	"./imageUtils.js",
	"./useImages.js",
	"./IMAGENS_BASE64.md",
}

// Cleanup removes every path in paths, directories recursively, writing one
// line per item to w. Missing paths are reported and skipped. It returns the
// number of items removed; failures are logged and do not stop the run.
func Cleanup(paths []string, w io.Writer, dryRun bool) int {
	if w == nil {
		w = io.Discard
	}
	removed := 0
	for _, p := range paths {
		info, err := os.Lstat(p)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				fmt.Fprintf(w, "not found: %s\n", p)
				continue
			}
			slog.Error("stat failed", "path", p, "err", err)
			fmt.Fprintf(w, "error: %s: %v\n", p, err)
			continue
		}
		kind := "file"
		if info.IsDir() {
			kind = "directory"
		}
		if dryRun {
			fmt.Fprintf(w, "would remove %s: %s\n", kind, p)
			removed++
			continue
		}
		if info.IsDir() {
			err = os.RemoveAll(p)
		} else {
			err = os.Remove(p)
		}
		if err != nil {
			slog.Error("remove failed", "path", p, "err", err)
			fmt.Fprintf(w, "error: %s: %v\n", p, err)
			continue
		}
		fmt.Fprintf(w, "removed %s: %s\n", kind, p)
		removed++
	}
	if dryRun {
		fmt.Fprintf(w, "\nDry run: %d item(s) would be removed.\n", removed)
	} else {
		fmt.Fprintf(w, "\nCleanup complete: %d item(s) removed.\n", removed)
	}
	return removed
}
