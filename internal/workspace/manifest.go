package workspace

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// ManifestParser extracts sub-project directories from a container manifest
type ManifestParser interface {
	Subprojects(containerPath string, data []byte) ([]string, error)
}

// XMLManifest parses contents.xcworkspacedata. Every FileRef element is
// considered, however deeply it is nested in groups.
type XMLManifest struct{}

var _ ManifestParser = XMLManifest{}

var locationPrefixes = []string{"group:", "container:"}

func (XMLManifest) Subprojects(containerPath string, data []byte) ([]string, error) {
	parent := filepath.Dir(filepath.Clean(containerPath))
	dec := xml.NewDecoder(bytes.NewReader(data))

	var out []string
	seen := make(map[string]bool)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return out, fmt.Errorf("parse manifest: %w", err)
		}

		el, ok := tok.(xml.StartElement)
		if !ok || el.Name.Local != "FileRef" {
			continue
		}
		for _, attr := range el.Attr {
			if attr.Name.Local != "location" {
				continue
			}
			dir, ok := locationDir(parent, attr.Value)
			if ok && !seen[dir] {
				seen[dir] = true
				out = append(out, dir)
			}
		}
	}
	return out, nil
}

// locationDir resolves a FileRef location. Only group: and container:
// locations are relative to the container; absolute: and self: are skipped.
func locationDir(parent, location string) (string, bool) {
	var rel string
	matched := false
	for _, prefix := range locationPrefixes {
		if strings.HasPrefix(location, prefix) {
			rel = strings.TrimPrefix(location, prefix)
			matched = true
			break
		}
	}
	if !matched {
		return "", false
	}

	if strings.HasSuffix(rel, ProjectExt) {
		rel = filepath.Dir(rel)
		if rel == "." {
			rel = ""
		}
	}
	if rel == "" {
		return parent, true
	}
	return filepath.Join(parent, rel), true
}
