// Package media provides the local media library entities.
package media

import (
	"path"
	"strings"
)

// Folder is a directory below the media root.
type Folder struct {
	Name string // Base name
	Path string // Slash-separated path relative to the media root
}

// File is an audio file below the media root.
type File struct {
	Name  string // Base name including extension
	Path  string // Slash-separated path relative to the media root
	Title string // Display title
}

// Listing is the content of one library directory.
type Listing struct {
	Path    string
	Parent  string // Empty at the root
	Folders []Folder
	Files   []File
}

// TitleFromName derives a display title from a file name: the extension is
// dropped and underscores become spaces.
func TitleFromName(name string) string {
	base := strings.TrimSuffix(name, path.Ext(name))
	base = strings.ReplaceAll(base, "_", " ")
	return strings.TrimSpace(base)
}
