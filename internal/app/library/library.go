// Package library provides browsing of the local media directory.
package library

import (
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gabriel-vasile/mimetype"

	"github.com/osa030/castbox/internal/domain/media"
	"github.com/osa030/castbox/internal/domain/track"
)

var (
	// ErrOutsideRoot is returned for paths that escape the media root.
	ErrOutsideRoot = errors.New("path is outside the media root")
	// ErrNotFound is returned for paths that do not exist.
	ErrNotFound = errors.New("path not found")
	// ErrNoPublicURL is returned when stream URLs cannot be built.
	ErrNoPublicURL = errors.New("public url is not configured")
)

// Config represents library configuration.
type Config struct {
	Root       string
	Extensions []string
	// PublicURL is the base URL devices use to reach this server.
	PublicURL string
}

// Library lists audio files below a root directory.
type Library struct {
	root       string
	extensions map[string]struct{}
	publicURL  string
}

// New creates a library rooted at cfg.Root.
func New(cfg Config) (*Library, error) {
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid media root: %s", cfg.Root)
	}

	exts := make(map[string]struct{}, len(cfg.Extensions))
	for _, ext := range cfg.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts[ext] = struct{}{}
	}

	return &Library{
		root:       root,
		extensions: exts,
		publicURL:  strings.TrimRight(cfg.PublicURL, "/"),
	}, nil
}

// Root returns the absolute media root.
func (l *Library) Root() string {
	return l.root
}

// List returns the folders and audio files directly below subpath.
func (l *Library) List(subpath string) (*media.Listing, error) {
	rel, abs, err := l.locate(subpath)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrNotFound, "path=%s", rel)
		}
		return nil, errors.Wrapf(err, "failed to read directory: path=%s", rel)
	}

	listing := &media.Listing{
		Path:    rel,
		Folders: make([]media.Folder, 0),
		Files:   make([]media.File, 0),
	}
	if rel != "" {
		if parent := path.Dir(rel); parent != "." {
			listing.Parent = parent
		}
	}

	// os.ReadDir returns entries sorted by name.
	for _, e := range entries {
		name := e.Name()
		child := joinRel(rel, name)
		switch {
		case e.IsDir():
			listing.Folders = append(listing.Folders, media.Folder{Name: name, Path: child})
		case e.Type().IsRegular() && l.isAudio(name):
			listing.Files = append(listing.Files, media.File{
				Name:  name,
				Path:  child,
				Title: media.TitleFromName(name),
			})
		}
	}
	return listing, nil
}

// Resolve returns the absolute path of an audio file below the root.
func (l *Library) Resolve(relPath string) (string, error) {
	rel, abs, err := l.locate(relPath)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil || !info.Mode().IsRegular() || !l.isAudio(abs) {
		return "", errors.Wrapf(ErrNotFound, "path=%s", rel)
	}
	return abs, nil
}

// ContentType sniffs the MIME type of a resolved file.
func (l *Library) ContentType(absPath string) string {
	mtype, err := mimetype.DetectFile(absPath)
	if err != nil {
		return "application/octet-stream"
	}
	return mtype.String()
}

// StreamURL returns the URL devices fetch relPath from.
func (l *Library) StreamURL(relPath string) (string, error) {
	if l.publicURL == "" {
		return "", ErrNoPublicURL
	}
	rel, _, err := l.locate(relPath)
	if err != nil {
		return "", err
	}

	segments := strings.Split(rel, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return l.publicURL + "/stream/" + strings.Join(segments, "/"), nil
}

// FolderItems builds one queue item per audio file directly below relPath,
// in listing order. Subfolders are not descended into.
func (l *Library) FolderItems(deviceName, relPath string) ([]track.Item, error) {
	listing, err := l.List(relPath)
	if err != nil {
		return nil, err
	}

	items := make([]track.Item, 0, len(listing.Files))
	for _, f := range listing.Files {
		streamURL, err := l.StreamURL(f.Path)
		if err != nil {
			return nil, err
		}
		items = append(items, track.Item{
			DeviceName: deviceName,
			MediaURL:   streamURL,
			Title:      f.Title,
		})
	}
	return items, nil
}

// locate cleans a slash-separated relative path and checks containment.
func (l *Library) locate(relPath string) (string, string, error) {
	rel := strings.Trim(strings.ReplaceAll(relPath, "\\", "/"), "/")

	abs := filepath.Join(l.root, filepath.FromSlash(rel))
	within, err := filepath.Rel(l.root, abs)
	if err != nil || within == ".." || strings.HasPrefix(within, ".."+string(filepath.Separator)) {
		return "", "", errors.Wrapf(ErrOutsideRoot, "path=%s", relPath)
	}
	if within == "." {
		return "", abs, nil
	}
	return filepath.ToSlash(within), abs, nil
}

func (l *Library) isAudio(name string) bool {
	_, ok := l.extensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

func joinRel(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}
