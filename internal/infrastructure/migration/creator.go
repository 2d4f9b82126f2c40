package migration

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/courselibrary/backend/internal/infrastructure/config"
)

// Drivers lists the dialects every migration must be written for
var Drivers = []string{config.DriverPostgres, config.DriverSQLite}

const migrationTemplate = `-- Migration: {{.Name}} ({{.Direction}}, {{.Driver}})
-- Created: {{.Timestamp}}

`

// MigrationFile describes a created migration pair for one driver
type MigrationFile struct {
	Version  uint
	Name     string
	Driver   string
	UpPath   string
	DownPath string
}

// CreateMigration writes empty up/down files for every driver under
// root/<driver>, numbered one past the highest existing version.
func CreateMigration(root, name string) ([]MigrationFile, error) {
	base := sanitizeName(name)
	if base == "" {
		return nil, fmt.Errorf("migration name %q has no usable characters", name)
	}

	next, err := nextVersion(root)
	if err != nil {
		return nil, err
	}

	created := make([]MigrationFile, 0, len(Drivers))
	timestamp := time.Now().Format(time.RFC3339)
	for _, driver := range Drivers {
		dir := filepath.Join(root, driver)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create migrations directory: %w", err)
		}
		prefix := filepath.Join(dir, fmt.Sprintf("%06d_%s", next, base))
		mf := MigrationFile{
			Version:  next,
			Name:     base,
			Driver:   driver,
			UpPath:   prefix + ".up.sql",
			DownPath: prefix + ".down.sql",
		}
		for direction, path := range map[string]string{"up": mf.UpPath, "down": mf.DownPath} {
			if err := writeMigrationFile(path, mf, direction, timestamp); err != nil {
				return nil, err
			}
		}
		created = append(created, mf)
	}
	return created, nil
}

// ListMigrations returns the embedded migration names for driver in version order
func ListMigrations(driver string) ([]string, error) {
	return listUp(migrationFS, "migrations/"+driver)
}

func nextVersion(root string) (uint, error) {
	var highest uint
	for _, driver := range Drivers {
		names, err := listUp(os.DirFS(root), driver)
		if err != nil {
			return 0, err
		}
		for _, n := range names {
			v, err := strconv.ParseUint(strings.SplitN(n, "_", 2)[0], 10, 64)
			if err == nil && uint(v) > highest {
				highest = uint(v)
			}
		}
	}
	return highest + 1, nil
}

func listUp(fsys fs.FS, dir string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			names = append(names, strings.TrimSuffix(e.Name(), ".up.sql"))
		}
	}
	sort.Strings(names)
	return names, nil
}

func writeMigrationFile(path string, mf MigrationFile, direction, timestamp string) error {
	tmpl := template.Must(template.New("migration").Parse(migrationTemplate))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", path, err)
	}
	defer f.Close()

	return tmpl.Execute(f, map[string]string{
		"Name":      mf.Name,
		"Driver":    mf.Driver,
		"Direction": direction,
		"Timestamp": timestamp,
	})
}

// sanitizeName lowercases name and collapses separators into underscores
func sanitizeName(name string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			pendingSep = true
		}
	}
	return b.String()
}
