// ABOUTME: Image blob storage for chat attachments
// ABOUTME: Saves base64 payloads under per-conversation directories and reads them back

package images

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrBadPayload is returned when an image payload is not valid base64.
var ErrBadPayload = errors.New("malformed image payload")

// SavedImage describes a stored attachment. Path is the absolute location
// on disk that messages reference; Filename is the generated name inside
// the conversation directory.
type SavedImage struct {
	Path     string `json:"path"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

// Dir manages the image directory owned by the application. Files are
// grouped per conversation and named <timestamp>_<conversationID><ext> so
// concurrent conversations never collide.
type Dir struct {
	root   string
	logger *slog.Logger
}

// NewDir returns a Dir rooted at the given path. The directory is created
// lazily on first save.
func NewDir(root string) *Dir {
	return &Dir{
		root:   root,
		logger: slog.Default().With("component", "images"),
	}
}

// Root returns the directory all images live under.
func (d *Dir) Root() string {
	return d.root
}

// Save decodes a base64 payload and writes it under the conversation's
// subdirectory with a generated filename. The original filename only
// contributes its extension. Payloads may carry a data-URL prefix
// ("data:image/png;base64,..."), which is stripped.
func (d *Dir) Save(conversationID int64, filename, payload string) (*SavedImage, error) {
	data, err := decodePayload(payload)
	if err != nil {
		return nil, err
	}

	convDir := filepath.Join(d.root, fmt.Sprintf("conv-%d", conversationID))
	if err := os.MkdirAll(convDir, 0755); err != nil {
		return nil, fmt.Errorf("creating conversation image directory: %w", err)
	}

	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".png"
	}
	name := fmt.Sprintf("%s_%d%s", time.Now().UTC().Format("20060102150405"), conversationID, ext)
	path := filepath.Join(convDir, name)

	// Same conversation saving twice within a second: suffix until free
	for i := 1; ; i++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			break
		}
		name = fmt.Sprintf("%s_%d_%d%s", time.Now().UTC().Format("20060102150405"), conversationID, i, ext)
		path = filepath.Join(convDir, name)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("writing image file: %w", err)
	}

	d.logger.Debug("saved image", "path", path, "size", len(data))
	return &SavedImage{
		Path:     path,
		Filename: name,
		Size:     int64(len(data)),
	}, nil
}

// Load reads a stored image and returns it base64-encoded. The path must
// lie under the image root; anything else is rejected.
func (d *Dir) Load(path string) (string, error) {
	if !d.contains(path) {
		return "", fmt.Errorf("image path %q is outside the image directory", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading image file: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// contains reports whether path is inside the image root.
func (d *Dir) contains(path string) bool {
	rel, err := filepath.Rel(d.root, filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// decodePayload strips an optional data-URL prefix and decodes base64.
func decodePayload(payload string) ([]byte, error) {
	if strings.HasPrefix(payload, "data:") {
		if idx := strings.Index(payload, ","); idx >= 0 {
			payload = payload[idx+1:]
		}
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return data, nil
}
