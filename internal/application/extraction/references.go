package extraction

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/egovauthenticator/api/internal/infrastructure/gemini"
	"github.com/gabriel-vasile/mimetype"
)

// LoadReferenceImages reads every image file in dir, sorted by name. An empty dir
// argument yields no references.
func LoadReferenceImages(dir string) ([]gemini.Image, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read reference dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var images []gemini.Image
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read reference %s: %w", name, err)
		}
		mt := mimetype.Detect(data)
		if !strings.HasPrefix(mt.String(), "image/") {
			continue
		}
		images = append(images, gemini.Image{MimeType: mt.String(), Data: data})
	}
	return images, nil
}
