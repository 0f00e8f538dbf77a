package store

import (
	"context"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// SeedFile is the YAML shape for bootstrapping a corpus, mainly used by
// local development and the example fixtures.
type SeedFile struct {
	Tenants []SeedTenant `yaml:"tenants"`
}

// SeedTenant is one tenant's records in a seed file.
type SeedTenant struct {
	Tenant  string   `yaml:"tenant"`
	Records []Record `yaml:"records"`
}

// LoadSeedFile parses a seed file from disk.
func LoadSeedFile(path string) (*SeedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening seed file: %w", err)
	}
	defer f.Close()

	return ParseSeed(f)
}

// ParseSeed parses seed YAML from a reader.
func ParseSeed(r io.Reader) (*SeedFile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading seed data: %w", err)
	}

	var sf SeedFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parsing seed YAML: %w", err)
	}

	for i, t := range sf.Tenants {
		if t.Tenant == "" {
			return nil, fmt.Errorf("%w: seed tenant %d has no name", ErrInvalidTenant, i)
		}
		for j, rec := range t.Records {
			if rec.ID == "" {
				return nil, fmt.Errorf("seed record %d of tenant %s has no ID", j, t.Tenant)
			}
		}
	}

	return &sf, nil
}

// Seed ingests every record of the file through Service.Add.
func (s *Service) Seed(ctx context.Context, sf *SeedFile) error {
	for _, t := range sf.Tenants {
		for _, rec := range t.Records {
			if err := s.Add(ctx, t.Tenant, rec); err != nil {
				return fmt.Errorf("seeding %s/%s: %w", t.Tenant, rec.ID, err)
			}
		}
	}
	return nil
}
