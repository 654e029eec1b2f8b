package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// MenuDocument is the on-disk menu format written by the menu editor.
type MenuDocument struct {
	Version   int        `json:"version"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
	Items     []Product  `json:"items"`
}

// FileSource reads products from a menu JSON file.
type FileSource struct {
	Path string
}

func (s FileSource) Load(_ context.Context) ([]Product, error) {
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, err
	}
	var doc MenuDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.Path, err)
	}
	if doc.Items == nil {
		return nil, fmt.Errorf("decode %s: items is required", s.Path)
	}
	return doc.Items, nil
}
