package seed

import (
	"archive/tar"
	"cmp"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	lzip "github.com/sorairolake/lzip-go"
	"github.com/ulikunitz/xz"

	"github.com/tsukumogami/squatwatch/internal/progress"
	"github.com/tsukumogami/squatwatch/internal/store"
	"github.com/tsukumogami/squatwatch/internal/typosquat"
)

// DumpSource reads a registry database dump: a tar archive, optionally
// compressed, holding crates.csv, crate_downloads.csv, crate_owners.csv and
// versions.csv in the layout crates.io publishes.
type DumpSource struct {
	Path string
	// Progress, when set, receives a progress line while the archive is
	// read. Dumps run to gigabytes.
	Progress io.Writer
}

func (s *DumpSource) Name() string { return "dump" }

// DumpFormat returns the archive format implied by a file name: one of
// "tar", "tar.gz", "tar.zst", "tar.xz", "tar.lz", or "" if unknown.
func DumpFormat(filename string) string {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return "tar.gz"
	case strings.HasSuffix(lower, ".tar.zst"), strings.HasSuffix(lower, ".tzst"):
		return "tar.zst"
	case strings.HasSuffix(lower, ".tar.xz"), strings.HasSuffix(lower, ".txz"):
		return "tar.xz"
	case strings.HasSuffix(lower, ".tar.lz"), strings.HasSuffix(lower, ".tlz"):
		return "tar.lz"
	case strings.HasSuffix(lower, ".tar"):
		return "tar"
	default:
		return ""
	}
}

// decompress wraps r in the decompressor for format. The returned closer
// releases decompressor resources; it does not close r.
func decompress(r io.Reader, format string) (io.Reader, func(), error) {
	switch format {
	case "tar":
		return r, func() {}, nil
	case "tar.gz":
		gzr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		return gzr, func() { _ = gzr.Close() }, nil
	case "tar.zst":
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create zstd reader: %w", err)
		}
		return zr, zr.Close, nil
	case "tar.xz":
		xzr, err := xz.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create xz reader: %w", err)
		}
		return xzr, func() {}, nil
	case "tar.lz":
		lr, err := lzip.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create lzip reader: %w", err)
		}
		return lr, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported dump format %q", format)
	}
}

// dumpCrate accumulates one crate's rows across the CSV files, which may
// appear in any order in the archive.
type dumpCrate struct {
	pkg      typosquat.Package
	named    bool
	versions []store.Version
}

type dumpReader struct {
	crates map[string]*dumpCrate // by crate id
	seen   map[string]bool       // csv files read
}

func (d *dumpReader) crate(id string) *dumpCrate {
	c, ok := d.crates[id]
	if !ok {
		c = &dumpCrate{}
		d.crates[id] = c
	}
	return c
}

func (s *DumpSource) Fetch(ctx context.Context, limit int) ([]store.Record, error) {
	format := DumpFormat(s.Path)
	if format == "" {
		return nil, fmt.Errorf("cannot tell the archive format of %s", s.Path)
	}
	file, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dump: %w", err)
	}
	defer file.Close()

	var in io.Reader = file
	if s.Progress != nil {
		var size int64
		if info, err := file.Stat(); err == nil {
			size = info.Size()
		}
		pr := progress.NewReader(file, size, "Reading "+filepath.Base(s.Path), s.Progress)
		defer pr.Finish()
		in = pr
	}

	r, release, err := decompress(in, format)
	if err != nil {
		return nil, err
	}
	defer release()

	d := &dumpReader{crates: make(map[string]*dumpCrate), seen: make(map[string]bool)}
	tr := tar.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read dump: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		name := path.Base(hdr.Name)
		if err := d.readFile(name, tr); err != nil {
			return nil, fmt.Errorf("%s: %w", hdr.Name, err)
		}
	}
	if !d.seen["crates.csv"] {
		return nil, fmt.Errorf("dump %s has no crates.csv", s.Path)
	}
	return d.records(limit), nil
}

func (d *dumpReader) readFile(name string, r io.Reader) error {
	var handle func(row map[string]string) error
	switch name {
	case "crates.csv":
		handle = d.crateRow
	case "crate_downloads.csv":
		handle = d.downloadsRow
	case "crate_owners.csv":
		handle = d.ownerRow
	case "versions.csv":
		handle = d.versionRow
	default:
		return nil
	}
	d.seen[name] = true
	return eachRow(r, handle)
}

// eachRow calls fn for every CSV record, keyed by the header row.
func eachRow(r io.Reader, fn func(row map[string]string) error) error {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return err
	}
	header = slices.Clone(header)

	row := make(map[string]string, len(header))
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			} else {
				row[col] = ""
			}
		}
		if err := fn(row); err != nil {
			return err
		}
	}
}

func (d *dumpReader) crateRow(row map[string]string) error {
	c := d.crate(row["id"])
	c.named = true
	c.pkg.Name = row["name"]
	c.pkg.Description = row["description"]
	c.pkg.Homepage = row["homepage"]
	c.pkg.Repository = row["repository"]
	// Older dumps carry downloads on the crates table itself.
	if v := row["downloads"]; v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("crate %s: bad downloads %q", row["id"], v)
		}
		c.pkg.Downloads = n
	}
	return nil
}

func (d *dumpReader) downloadsRow(row map[string]string) error {
	n, err := strconv.ParseInt(row["downloads"], 10, 64)
	if err != nil {
		return fmt.Errorf("crate %s: bad downloads %q", row["crate_id"], row["downloads"])
	}
	d.crate(row["crate_id"]).pkg.Downloads = n
	return nil
}

func (d *dumpReader) ownerRow(row map[string]string) error {
	id, err := strconv.ParseInt(row["owner_id"], 10, 64)
	if err != nil {
		return fmt.Errorf("crate %s: bad owner id %q", row["crate_id"], row["owner_id"])
	}
	kind := "user"
	if row["owner_kind"] == "1" {
		kind = "team"
	}
	c := d.crate(row["crate_id"])
	c.pkg.Owners = append(c.pkg.Owners, typosquat.Owner{Kind: kind, ID: id})
	return nil
}

func (d *dumpReader) versionRow(row map[string]string) error {
	c := d.crate(row["crate_id"])
	c.versions = append(c.versions, store.Version{
		Num:    row["num"],
		Yanked: row["yanked"] == "t" || row["yanked"] == "true",
	})
	return nil
}

func (d *dumpReader) records(limit int) []store.Record {
	records := make([]store.Record, 0, len(d.crates))
	for _, c := range d.crates {
		if !c.named || c.pkg.Name == "" {
			continue
		}
		rec := store.Record{Package: c.pkg, Versions: c.versions}
		if d.seen["crate_owners.csv"] && rec.Owners == nil {
			rec.Owners = []typosquat.Owner{}
		}
		records = append(records, rec)
	}
	slices.SortFunc(records, func(a, b store.Record) int {
		if c := cmp.Compare(b.Downloads, a.Downloads); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	if limit > 0 && limit < len(records) {
		records = records[:limit]
	}
	return records
}
