package migration

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/xerocraft/backend/internal/domain/ledger"
)

const migrationTemplate = `package migrations

// Created: {{.Timestamp}}

import (
	"github.com/xerocraft/backend/internal/domain/ledger"
)

func init() {
	register(&ledger.Migration{
		App:  "{{.App}}",
		Name: "{{.Name}}",
{{- if .Dependency}}
		Dependencies: []ledger.Key{dep("{{.Dependency.App}}", "{{.Dependency.Name}}")},
{{- end}}
		Operations: []ledger.Operation{
			// Operations go here.
		},
	})
}
`

// MigrationFile describes a scaffolded Go migration.
type MigrationFile struct {
	App        string
	Number     int
	Name       string
	Dependency *ledger.Key
	Timestamp  string
	Path       string
}

// CreateMigration writes a new migration file for app into dir. The migration
// gets the next number of the app and depends on its current leaf.
func CreateMigration(dir string, g *ledger.Graph, app, name string) (*MigrationFile, error) {
	app = sanitizeName(app)
	label := sanitizeName(name)
	if app == "" || label == "" {
		return nil, fmt.Errorf("app and name are required")
	}

	mf := &MigrationFile{App: app, Number: nextNumber(g, app), Timestamp: time.Now().Format(time.RFC3339)}
	leaf, err := g.Leaf(app)
	switch {
	case err == nil:
		mf.Dependency = &leaf
	case errors.Is(err, ledger.ErrNodeNotFound):
	default:
		return nil, err
	}
	mf.Name = fmt.Sprintf("%04d_%s", mf.Number, label)
	mf.Path = filepath.Join(dir, fmt.Sprintf("%s_%s.go", app, mf.Name))

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create migrations directory: %w", err)
	}
	if _, err := os.Stat(mf.Path); err == nil {
		return nil, fmt.Errorf("migration file %s already exists", mf.Path)
	}
	if err := createMigrationFile(mf.Path, migrationTemplate, mf); err != nil {
		return nil, err
	}
	return mf, nil
}

// nextNumber returns one past the highest numeric prefix used by app.
func nextNumber(g *ledger.Graph, app string) int {
	highest := 0
	for _, k := range g.Keys() {
		if k.App != app {
			continue
		}
		prefix, _, _ := strings.Cut(k.Name, "_")
		if n, err := strconv.Atoi(prefix); err == nil && n > highest {
			highest = n
		}
	}
	return highest + 1
}

func createMigrationFile(path, tmplContent string, data *MigrationFile) error {
	tmpl, err := template.New("migration").Parse(tmplContent)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", path, err)
	}
	defer f.Close()

	if err := tmpl.Execute(f, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}
	return nil
}

// sanitizeName converts a migration name to a safe identifier
func sanitizeName(name string) string {
	result := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z':
			result = append(result, c)
		case c >= 'A' && c <= 'Z':
			result = append(result, c+'a'-'A')
		case c >= '0' && c <= '9':
			result = append(result, c)
		case c == ' ' || c == '-' || c == '_':
			if len(result) > 0 && result[len(result)-1] != '_' {
				result = append(result, '_')
			}
		}
	}
	if len(result) > 0 && result[len(result)-1] == '_' {
		result = result[:len(result)-1]
	}
	return string(result)
}

// ListExported returns the base names of the exported steps in dir, in version order.
func ListExported(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read export directory: %w", err)
	}

	names := make([]string, 0)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if base, ok := strings.CutSuffix(entry.Name(), ".up.sql"); ok {
			names = append(names, base)
		}
	}
	sort.Strings(names)
	return names, nil
}
