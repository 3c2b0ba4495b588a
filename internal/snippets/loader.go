package snippets

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/adrg/frontmatter"
)

// File extensions recognised as snippet sources.
var sourceExtensions = map[string]bool{
	".liquid":  true,
	".html":    true,
	".snippet": true,
}

// FileMeta is the optional YAML front matter of a snippet file.
type FileMeta struct {
	Key         string `yaml:"key"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// IsSource reports whether path names a snippet source file.
func IsSource(path string) bool {
	return sourceExtensions[strings.ToLower(filepath.Ext(path))]
}

// ParseFile splits a snippet file into front matter and markup. The file stem
// is the key when the front matter does not set one.
func ParseFile(path string, source []byte) (ReplaceInput, error) {
	var meta FileMeta
	body, err := frontmatter.Parse(bytes.NewReader(source), &meta)
	if err != nil {
		return ReplaceInput{}, fmt.Errorf("parse frontmatter %s: %w", path, err)
	}
	key := strings.TrimSpace(meta.Key)
	if key == "" {
		base := filepath.Base(path)
		key = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return ReplaceInput{
		Key:         key,
		Name:        meta.Name,
		Description: meta.Description,
		Markup:      strings.TrimSpace(string(body)),
	}, nil
}

// LoadDir imports every snippet source under dir for tenantID. Files are
// explicit edits: an existing key is overwritten with the file content.
// It returns the imported keys in order.
func LoadDir(ctx context.Context, svc Service, dir, tenantID string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !IsSource(path) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("snippets: walk %s: %w", dir, err)
	}
	sort.Strings(paths)

	keys := make([]string, 0, len(paths))
	for _, path := range paths {
		key, err := LoadFile(ctx, svc, path, tenantID)
		if err != nil {
			return keys, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// LoadFile imports a single snippet file and returns its key.
func LoadFile(ctx context.Context, svc Service, path, tenantID string) (string, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("snippets: read %s: %w", path, err)
	}
	input, err := ParseFile(path, source)
	if err != nil {
		return "", err
	}
	input.TenantID = tenantID
	record, err := svc.Replace(ctx, input)
	if err != nil {
		return "", fmt.Errorf("snippets: import %s: %w", path, err)
	}
	return record.Key, nil
}
