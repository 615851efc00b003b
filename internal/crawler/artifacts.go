package crawler

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrMalformedArtifact is returned when an artifact does not have the expected shape.
var ErrMalformedArtifact = errors.New("malformed artifact")

// WriteCategoryLinks replaces the artifact at path with a JSON array of {"link"} objects.
func WriteCategoryLinks(path string, links []CategoryLink) error {
	if links == nil {
		links = []CategoryLink{}
	}
	if err := RemoveArtifact(path); err != nil {
		return err
	}
	return writeJSON(path, links)
}

// RemoveArtifact deletes a previous run's artifact so later stages do not pick
// it up. A missing file is not an error.
func RemoveArtifact(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove previous %s: %w", path, err)
	}
	return nil
}

// ReadCategoryLinks loads the link values of a category artifact. Elements that
// are not objects or carry no string "link" field are skipped.
func ReadCategoryLinks(path string) ([]string, error) {
	var raw []json.RawMessage
	if err := readJSON(path, &raw); err != nil {
		return nil, err
	}
	links := make([]string, 0, len(raw))
	for _, item := range raw {
		var entry struct {
			Link *string `json:"link"`
		}
		if err := json.Unmarshal(item, &entry); err != nil || entry.Link == nil {
			continue
		}
		links = append(links, *entry.Link)
	}
	return links, nil
}

// WriteDetailURLs writes the flat URL list as an indented JSON array of strings.
func WriteDetailURLs(path string, urls []string) error {
	if urls == nil {
		urls = []string{}
	}
	return writeJSON(path, urls)
}

// ReadDetailURLs loads a JSON array of strings.
func ReadDetailURLs(path string) ([]string, error) {
	var urls []string
	if err := readJSON(path, &urls); err != nil {
		return nil, err
	}
	return urls, nil
}

func writeJSON(path string, v any) error {
	payload, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create dir for %s: %w", path, err)
		}
	}
	if err := os.WriteFile(path, payload, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func readJSON(path string, v any) error {
	// #nosec G304 -- artifact paths come from operator configuration.
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedArtifact, path, err)
	}
	return nil
}
