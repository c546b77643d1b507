package importer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/alexanderramin/routinebuzz/internal/domain"
)

// CatalogFile is the on-disk course catalog served by the share server.
type CatalogFile struct {
	Semester string           `json:"semester,omitempty" yaml:"semester,omitempty"`
	Sections []domain.Section `json:"sections" yaml:"sections"`
}

// LoadCatalog reads a catalog file. Files ending in .json are decoded as
// JSON; anything else as YAML.
func LoadCatalog(path string) (*CatalogFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return ParseCatalogJSON(data)
	}
	return ParseCatalogYAML(data)
}

func ParseCatalogYAML(data []byte) (*CatalogFile, error) {
	var cat CatalogFile
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parsing catalog yaml: %w", err)
	}
	return &cat, nil
}

// ParseCatalogJSON accepts either a CatalogFile object or a bare array of
// sections as returned by the course-data endpoint.
func ParseCatalogJSON(data []byte) (*CatalogFile, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var sections []domain.Section
		if err := json.Unmarshal(data, &sections); err != nil {
			return nil, fmt.Errorf("parsing catalog json: %w", err)
		}
		return &CatalogFile{Sections: sections}, nil
	}
	var cat CatalogFile
	if err := json.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parsing catalog json: %w", err)
	}
	return &cat, nil
}
