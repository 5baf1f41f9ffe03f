package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/tsukumogami/squatwatch/internal/typosquat"
)

// Version is one published version of a package.
type Version struct {
	Num    string
	Yanked bool
}

// Record is a package as imported from a popularity source. A nil Owners
// slice leaves existing owners untouched; an empty one clears them.
type Record struct {
	typosquat.Package
	Versions []Version
}

// Packages runs package queries against a pool, connection or
// transaction.
type Packages struct {
	q Querier
}

// NewPackages returns package queries over q.
func NewPackages(q Querier) *Packages {
	return &Packages{q: q}
}

// TopPackages returns the limit most downloaded packages with their owners,
// most downloaded first. Ties are broken by name so the order is stable.
func (p *Packages) TopPackages(ctx context.Context, limit int) ([]typosquat.Package, error) {
	rows, err := p.q.QueryContext(ctx, `
		SELECT id, name, description, homepage, repository, downloads
		FROM packages
		ORDER BY downloads DESC, name ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, queryError("query top packages", "", err)
	}

	var (
		pkgs  []typosquat.Package
		index = make(map[int64]int)
	)
	for rows.Next() {
		var (
			id  int64
			pkg typosquat.Package
		)
		if err := rows.Scan(&id, &pkg.Name, &pkg.Description, &pkg.Homepage, &pkg.Repository, &pkg.Downloads); err != nil {
			_ = rows.Close()
			return nil, queryError("scan top packages", "", err)
		}
		index[id] = len(pkgs)
		pkgs = append(pkgs, pkg)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, queryError("iterate top packages", "", err)
	}
	// A dedicated connection can only stream one result set at a time.
	_ = rows.Close()

	if len(pkgs) == 0 {
		return pkgs, nil
	}

	rows, err = p.q.QueryContext(ctx, `
		SELECT o.package_id, o.owner_kind, o.owner_id
		FROM package_owners o
		JOIN (SELECT id FROM packages ORDER BY downloads DESC, name ASC LIMIT ?) top
			ON top.id = o.package_id
		ORDER BY o.package_id, o.owner_kind, o.owner_id`, limit)
	if err != nil {
		return nil, queryError("query top package owners", "", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var (
			id    int64
			owner typosquat.Owner
		)
		if err := rows.Scan(&id, &owner.Kind, &owner.ID); err != nil {
			return nil, queryError("scan top package owners", "", err)
		}
		if i, ok := index[id]; ok {
			pkgs[i].Owners = append(pkgs[i].Owners, owner)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, queryError("iterate top package owners", "", err)
	}
	return pkgs, nil
}

// PackageByName loads a package with its owners and newest version. The
// lookup ignores ASCII case. A missing package is an ErrTypeNotFound
// StoreError.
func (p *Packages) PackageByName(ctx context.Context, name string) (*typosquat.Package, error) {
	var (
		id  int64
		pkg typosquat.Package
	)
	err := p.q.QueryRowContext(ctx, `
		SELECT id, name, description, homepage, repository, downloads
		FROM packages WHERE name = ?`, name).
		Scan(&id, &pkg.Name, &pkg.Description, &pkg.Homepage, &pkg.Repository, &pkg.Downloads)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &StoreError{Type: ErrTypeNotFound, Key: name, Message: "package not found"}
	}
	if err != nil {
		return nil, queryError("load package", name, err)
	}

	owners, err := p.owners(ctx, id)
	if err != nil {
		return nil, queryError("load package owners", name, err)
	}
	pkg.Owners = owners

	versions, err := p.versions(ctx, id)
	if err != nil {
		return nil, queryError("load package versions", name, err)
	}
	pkg.NewestVersion = NewestVersion(versions)
	return &pkg, nil
}

func (p *Packages) owners(ctx context.Context, id int64) ([]typosquat.Owner, error) {
	rows, err := p.q.QueryContext(ctx, `
		SELECT owner_kind, owner_id FROM package_owners
		WHERE package_id = ? ORDER BY owner_kind, owner_id`, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var owners []typosquat.Owner
	for rows.Next() {
		var o typosquat.Owner
		if err := rows.Scan(&o.Kind, &o.ID); err != nil {
			return nil, err
		}
		owners = append(owners, o)
	}
	return owners, rows.Err()
}

func (p *Packages) versions(ctx context.Context, id int64) ([]Version, error) {
	rows, err := p.q.QueryContext(ctx, `SELECT num, yanked FROM versions WHERE package_id = ?`, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var versions []Version
	for rows.Next() {
		var v Version
		if err := rows.Scan(&v.Num, &v.Yanked); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// Upsert inserts or updates records and returns the number written. It
// does not open a transaction; run it on a *sql.Tx for atomicity.
func (p *Packages) Upsert(ctx context.Context, records []Record) (int, error) {
	for i, rec := range records {
		name := strings.TrimSpace(rec.Name)
		if name == "" {
			return i, &StoreError{Type: ErrTypeInvalid, Message: "package name is empty"}
		}

		var id int64
		err := p.q.QueryRowContext(ctx, `
			INSERT INTO packages (name, description, homepage, repository, downloads)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(name) DO UPDATE SET
				description = excluded.description,
				homepage = excluded.homepage,
				repository = excluded.repository,
				downloads = excluded.downloads,
				updated_at = CURRENT_TIMESTAMP
			RETURNING id`,
			name, rec.Description, rec.Homepage, rec.Repository, rec.Downloads).Scan(&id)
		if err != nil {
			return i, queryError("upsert package", name, err)
		}

		if rec.Owners != nil {
			if _, err := p.q.ExecContext(ctx, `DELETE FROM package_owners WHERE package_id = ?`, id); err != nil {
				return i, queryError("clear package owners", name, err)
			}
			for _, o := range rec.Owners {
				if _, err := p.q.ExecContext(ctx, `
					INSERT OR IGNORE INTO package_owners (package_id, owner_kind, owner_id)
					VALUES (?, ?, ?)`, id, o.Kind, o.ID); err != nil {
					return i, queryError("insert package owner", name, err)
				}
			}
		}

		for _, v := range rec.Versions {
			if _, err := p.q.ExecContext(ctx, `
				INSERT INTO versions (package_id, num, yanked) VALUES (?, ?, ?)
				ON CONFLICT(package_id, num) DO UPDATE SET yanked = excluded.yanked`,
				id, v.Num, v.Yanked); err != nil {
				return i, queryError("upsert version", name, err)
			}
		}
	}
	return len(records), nil
}

// NewestVersion picks the highest non-yanked version, preferring stable
// releases over prereleases. Unparseable version strings are ignored.
// It returns "" when nothing qualifies.
func NewestVersion(versions []Version) string {
	var stable, pre *semver.Version
	var stableRaw, preRaw string
	for _, v := range versions {
		if v.Yanked {
			continue
		}
		sv, err := semver.NewVersion(v.Num)
		if err != nil {
			continue
		}
		if sv.Prerelease() == "" {
			if stable == nil || sv.GreaterThan(stable) {
				stable, stableRaw = sv, v.Num
			}
		} else if pre == nil || sv.GreaterThan(pre) {
			pre, preRaw = sv, v.Num
		}
	}
	if stable != nil {
		return stableRaw
	}
	return preRaw
}
