package manifest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Parse decodes a manifest document from r. It sniffs the first
// non-whitespace byte to pick a codec: '{' selects JSON, anything else is
// parsed as YAML (a YAML 1.1 superset also accepts plain JSON, but the
// explicit sniff keeps error messages codec-specific).
func Parse(r io.Reader, path string) (Document, error) {
	br := bufio.NewReader(r)
	isJSON, err := sniffJSON(br)
	if err != nil {
		return Document{}, fmt.Errorf("manifest %s: %w", path, err)
	}

	raw := make(map[string]any)
	if isJSON {
		if err := json.NewDecoder(br).Decode(&raw); err != nil {
			return Document{}, fmt.Errorf("manifest %s: json: %w", path, err)
		}
	} else {
		if err := yaml.NewDecoder(br).Decode(&raw); err != nil {
			return Document{}, fmt.Errorf("manifest %s: yaml: %w", path, err)
		}
	}

	return Document{raw: raw, Path: path}, nil
}

// ParseFile opens path and decodes it as a manifest document.
func ParseFile(path string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return Document{}, fmt.Errorf("manifest %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return Parse(f, path)
}

func sniffJSON(br *bufio.Reader) (bool, error) {
	for {
		b, err := br.Peek(1)
		if err != nil {
			if err == io.EOF {
				return false, fmt.Errorf("empty manifest")
			}
			return false, err
		}
		switch b[0] {
		case ' ', '\t', '\r', '\n':
			if _, err := br.Discard(1); err != nil {
				return false, err
			}
			continue
		case '{':
			return true, nil
		default:
			return false, nil
		}
	}
}
