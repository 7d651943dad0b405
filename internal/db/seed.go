package db

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SeedFile is the YAML layout accepted by LoadSeed:
//
//	collections:
//	  - path: artifacts/default-app-id/public/data/clients/C1/leads
//	    documents:
//	      - id: L1
//	        fields: {nome: Ana, telefone: "123"}
type SeedFile struct {
	Collections []SeedCollection `yaml:"collections"`
}

// SeedCollection lists documents to write into one collection.
type SeedCollection struct {
	Path      string         `yaml:"path"`
	Documents []SeedDocument `yaml:"documents"`
}

// SeedDocument is one document of a seed file. An empty ID gets a generated one.
type SeedDocument struct {
	ID     string                 `yaml:"id"`
	Fields map[string]interface{} `yaml:"fields"`
}

// LoadSeed reads a seed file from disk.
func LoadSeed(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file '%s': %w", path, err)
	}
	return ParseSeed(data)
}

// ParseSeed decodes seed YAML.
func ParseSeed(data []byte) (*SeedFile, error) {
	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal seed data: %w", err)
	}
	for i, col := range seed.Collections {
		if col.Path == "" {
			return nil, fmt.Errorf("seed collection #%d has no path", i)
		}
		for _, doc := range col.Documents {
			if doc.ID != "" {
				if err := ValidateID(doc.ID); err != nil {
					return nil, fmt.Errorf("seed collection '%s': %w", col.Path, err)
				}
			}
		}
	}
	return &seed, nil
}

// Apply writes every seeded document into m and returns how many were written.
func (s *SeedFile) Apply(m *MemStore) int {
	n := 0
	for _, col := range s.Collections {
		for _, doc := range col.Documents {
			id := doc.ID
			if id == "" {
				id = m.newID()
			}
			m.Put(col.Path, id, doc.Fields)
			n++
		}
	}
	return n
}
