package filesystem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/sophialabs/labelcheck/internal/domain/label"
)

// Catalogue file names inside the catalogue directory.
const (
	SpecificationFile = "specification.json"
	ReferFile         = "specification_refer.json"
	BaseLabelFile     = "base_data_label.json"
)

// unknownScope is used when a base label has no scope.
const unknownScope = -1

var _ label.Catalogue = (*CatalogueRepository)(nil)

// CatalogueRepository reads the label catalogue from a directory. Files are
// re-read on every call so edits are picked up without a restart.
type CatalogueRepository struct {
	rootDir string
}

// NewCatalogueRepository creates a repository rooted at rootDir.
func NewCatalogueRepository(rootDir string) (*CatalogueRepository, error) {
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve catalogue directory: %w", err)
	}
	return &CatalogueRepository{rootDir: absRoot}, nil
}

// Dir returns the absolute catalogue directory.
func (r *CatalogueRepository) Dir() string { return r.rootDir }

// Specifications lists every specification in file order.
func (r *CatalogueRepository) Specifications(_ context.Context) ([]label.Specification, error) {
	var raw []yamlSpecification
	if err := r.decode(SpecificationFile, &raw); err != nil {
		return nil, err
	}
	specs := make([]label.Specification, 0, len(raw))
	for _, s := range raw {
		specs = append(specs, label.Specification{ID: s.ID, Name: s.Name})
	}
	return specs, nil
}

// Samples joins the specification's references with the base labels, in
// reference order. References to unknown label ids are skipped.
func (r *CatalogueRepository) Samples(_ context.Context, specName string) ([]*label.Sample, error) {
	var refers map[string][]yamlRefer
	if err := r.decode(ReferFile, &refers); err != nil {
		return nil, err
	}
	refs, ok := refers[specName]
	if !ok {
		return nil, fmt.Errorf("%q: %w", specName, label.ErrNotFound)
	}

	var base map[string]yamlBaseLabel
	if err := r.decode(BaseLabelFile, &base); err != nil {
		return nil, err
	}

	samples := make([]*label.Sample, 0, len(refs))
	for _, ref := range refs {
		b, ok := base[ref.ID]
		if !ok {
			continue
		}
		scope := unknownScope
		if b.Scope != nil {
			scope = *b.Scope
		}
		fileData := make([]label.FileContentSample, 0, len(b.FileData))
		for _, f := range b.FileData {
			fileData = append(fileData, label.FileContentSample{Value: f.Value})
		}
		samples = append(samples, &label.Sample{
			ID:       ref.ID,
			Name:     ref.Name,
			Scope:    label.Scope(scope),
			Body:     b.Body,
			FileData: fileData,
		})
	}
	return samples, nil
}

func (r *CatalogueRepository) decode(name string, out any) error {
	path := filepath.Join(r.rootDir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("catalogue file %s is missing: %w", path, err)
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	// JSON catalogue files are valid YAML.
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}
