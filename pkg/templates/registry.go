package templates

import (
	"bytes"
	"embed"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"text/template"

	"tradecouncil/pkg/errors"
)

//go:embed assets/**/*.tmpl
var embeddedFS embed.FS

const (
	ext        = ".tmpl"
	systemPart = "system"
	userPart   = "user"
)

// Registry holds parsed prompt templates. A template ID is its slash path
// under the root without the extension, e.g. "trader/user". Every role
// directory carries a system and a user template. A registry is read-only
// once built.
type Registry struct {
	templates map[string]*template.Template
}

// NewRegistry loads templates from a directory on disk, e.g. to override
// the embedded prompts without a rebuild
func NewRegistry(dir string) (*Registry, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "open prompt directory %s", dir)
	}
	if !info.IsDir() {
		return nil, errors.NewValidationError("prompt directory", "not a directory", dir)
	}
	return NewRegistryFromFS(os.DirFS(dir))
}

// NewRegistryFromFS parses every template in filesystem
func NewRegistryFromFS(filesystem fs.FS) (*Registry, error) {
	r := &Registry{templates: map[string]*template.Template{}}

	err := fs.WalkDir(filesystem, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(p) != ext {
			return nil
		}

		content, err := fs.ReadFile(filesystem, p)
		if err != nil {
			return errors.Wrapf(err, "read template %s", p)
		}

		id := strings.TrimSuffix(p, ext)
		parsed, err := template.New(id).Funcs(funcMap()).Option("missingkey=error").Parse(string(content))
		if err != nil {
			return errors.Wrapf(err, "parse template %s", id)
		}
		r.templates[id] = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}

	return r, nil
}

// Get returns the registry of embedded prompts
func Get() *Registry {
	defaultOnce.Do(func() {
		sub, err := fs.Sub(embeddedFS, "assets")
		if err != nil {
			defaultErr = errors.Wrap(err, "prepare embedded templates")
			return
		}
		defaultRegistry, defaultErr = NewRegistryFromFS(sub)
	})

	if defaultErr != nil {
		panic(defaultErr)
	}

	return defaultRegistry
}

// Render executes one template
func (r *Registry) Render(id string, data any) (string, error) {
	tmpl, ok := r.templates[id]
	if !ok {
		return "", errors.Wrapf(errors.ErrNotFound, "template %s", id)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", errors.Wrapf(err, "render template %s", id)
	}
	return buf.String(), nil
}

// RenderPair renders the system and user prompts of a role
func (r *Registry) RenderPair(role string, system, user any) (string, string, error) {
	sys, err := r.Render(role+"/"+systemPart, system)
	if err != nil {
		return "", "", err
	}
	usr, err := r.Render(role+"/"+userPart, user)
	if err != nil {
		return "", "", err
	}
	return sys, usr, nil
}

// List returns all template IDs, sorted
func (r *Registry) List() []string {
	ids := make([]string, 0, len(r.templates))
	for id := range r.templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Validate reports every role that lacks its system or user template
func (r *Registry) Validate(roles ...string) error {
	var missing []string
	for _, role := range roles {
		for _, part := range []string{systemPart, userPart} {
			if _, ok := r.templates[role+"/"+part]; !ok {
				missing = append(missing, role+"/"+part)
			}
		}
	}
	if len(missing) > 0 {
		return errors.NewValidationError("prompts", "missing templates: "+strings.Join(missing, ", "), nil)
	}
	return nil
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
	defaultErr      error
)
