package seed

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tsukumogami/squatwatch/internal/store"
	"github.com/tsukumogami/squatwatch/internal/typosquat"
)

// FileSource reads a curated package list from a YAML file:
//
//	packages:
//	  - name: serde
//	    downloads: 500000000
//	    description: A serialization framework
//	    owners: ["user:1", "team:7"]
//	    versions: ["1.0.210"]
type FileSource struct {
	Path string
}

func (s *FileSource) Name() string { return "file" }

type packageFile struct {
	Packages []filePackage `yaml:"packages"`
}

type filePackage struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Homepage    string   `yaml:"homepage"`
	Repository  string   `yaml:"repository"`
	Downloads   int64    `yaml:"downloads"`
	Owners      []string `yaml:"owners"`
	Versions    []string `yaml:"versions"`
}

func (s *FileSource) Fetch(_ context.Context, limit int) ([]store.Record, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read package list: %w", err)
	}
	var file packageFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse package list %s: %w", s.Path, err)
	}

	records := make([]store.Record, 0, len(file.Packages))
	for i, p := range file.Packages {
		if strings.TrimSpace(p.Name) == "" {
			return nil, fmt.Errorf("%s: package %d has no name", s.Path, i+1)
		}
		rec := store.Record{Package: typosquat.Package{
			Name:        p.Name,
			Description: p.Description,
			Homepage:    p.Homepage,
			Repository:  p.Repository,
			Downloads:   p.Downloads,
		}}
		if p.Owners != nil {
			rec.Owners = make([]typosquat.Owner, 0, len(p.Owners))
			for _, o := range p.Owners {
				owner, err := ParseOwner(o)
				if err != nil {
					return nil, fmt.Errorf("%s: package %s: %w", s.Path, p.Name, err)
				}
				rec.Owners = append(rec.Owners, owner)
			}
		}
		for _, v := range p.Versions {
			rec.Versions = append(rec.Versions, store.Version{Num: v})
		}
		records = append(records, rec)
	}

	slices.SortStableFunc(records, func(a, b store.Record) int {
		return cmp.Compare(b.Downloads, a.Downloads)
	})
	if limit > 0 && limit < len(records) {
		records = records[:limit]
	}
	return records, nil
}

// ParseOwner parses "user:42" or "team:7".
func ParseOwner(s string) (typosquat.Owner, error) {
	kind, id, ok := strings.Cut(s, ":")
	if !ok || (kind != "user" && kind != "team") {
		return typosquat.Owner{}, fmt.Errorf("invalid owner %q (expected user:<id> or team:<id>)", s)
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return typosquat.Owner{}, fmt.Errorf("invalid owner %q: %w", s, err)
	}
	return typosquat.Owner{Kind: kind, ID: n}, nil
}
