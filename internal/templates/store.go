package templates

import (
	_ "embed"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/insightdelivered/statement-extractor/internal/errs"
	"github.com/insightdelivered/statement-extractor/internal/models"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type document struct {
	Templates []models.StatementTemplate `yaml:"templates"`
}

// Defaults returns the built-in template library.
func Defaults() ([]models.StatementTemplate, error) {
	var doc document
	if err := yaml.Unmarshal(defaultsYAML, &doc); err != nil {
		return nil, errs.Wrap(err, errs.KindInternal, errs.CodeUnexpected, "decode built-in templates")
	}
	return doc.Templates, nil
}

// FileStore keeps templates in a YAML file. An empty path keeps them in
// memory only.
type FileStore struct {
	mu        sync.RWMutex
	path      string
	templates []models.StatementTemplate
	log       logrus.FieldLogger
}

// OpenFileStore loads the library at path, seeding it with the defaults when
// the file does not exist yet.
func OpenFileStore(path string, log logrus.FieldLogger) (*FileStore, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &FileStore{path: path, log: log.WithField("component", "templates")}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			var doc document
			if err := yaml.Unmarshal(data, &doc); err != nil {
				return nil, errs.Wrap(err, errs.KindConfig, errs.CodeInvalidConfig, "parse template file").WithPath(path)
			}
			s.templates = doc.Templates
			s.log.WithField("count", len(s.templates)).Info("loaded templates")
			return s, nil
		case !os.IsNotExist(err):
			return nil, errs.Wrap(err, errs.KindFile, errs.CodeFileUnreadable, "read template file").WithPath(path)
		}
	}

	defaults, err := Defaults()
	if err != nil {
		return nil, err
	}
	s.templates = defaults
	if err := s.save(); err != nil {
		return nil, err
	}
	s.log.WithField("count", len(defaults)).Info("seeded default templates")
	return s, nil
}

// Templates returns a copy of the library in declaration order.
func (s *FileStore) Templates() []models.StatementTemplate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.StatementTemplate, len(s.templates))
	for i, t := range s.templates {
		out[i] = clone(t)
	}
	return out
}

// Get looks a template up by name, ignoring case.
func (s *FileStore) Get(name string) (models.StatementTemplate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.templates {
		if strings.EqualFold(t.Name, name) {
			return clone(t), true
		}
	}
	return models.StatementTemplate{}, false
}

// Add appends a template and persists the library. Names are unique,
// ignoring case.
func (s *FileStore) Add(t models.StatementTemplate) error {
	if err := Validate(t); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.templates {
		if strings.EqualFold(existing.Name, t.Name) {
			return errs.New(errs.KindConfig, errs.CodeInvalidConfig, "template already exists: "+t.Name)
		}
	}
	s.templates = append(s.templates, clone(t))
	if err := s.save(); err != nil {
		s.templates = s.templates[:len(s.templates)-1]
		return err
	}
	s.log.WithField("template", t.Name).Info("added template")
	return nil
}

// Validate checks that a template has a name, at least one pattern and
// layout boxes inside the unit page.
func Validate(t models.StatementTemplate) error {
	if strings.TrimSpace(t.Name) == "" {
		return errs.New(errs.KindConfig, errs.CodeInvalidConfig, "template name is required")
	}
	n := 0
	for _, ps := range t.Patterns {
		n += len(ps)
	}
	if n == 0 {
		return errs.New(errs.KindConfig, errs.CodeInvalidConfig, "template has no patterns: "+t.Name)
	}
	for col, b := range t.Layout {
		for _, v := range b {
			if v < 0 || v > 1 {
				return errs.New(errs.KindConfig, errs.CodeInvalidConfig, "layout box outside page: "+t.Name+"."+col)
			}
		}
		if b.X0() >= b.X1() {
			return errs.New(errs.KindConfig, errs.CodeInvalidConfig, "layout box has no width: "+t.Name+"."+col)
		}
	}
	return nil
}

// save writes through a temp file in the same directory. Callers hold mu
// or own s exclusively.
func (s *FileStore) save() error {
	if s.path == "" {
		return nil
	}
	data, err := yaml.Marshal(document{Templates: s.templates})
	if err != nil {
		return errs.Wrap(err, errs.KindInternal, errs.CodeUnexpected, "encode templates")
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.Wrap(err, errs.KindFile, errs.CodeFileUnreadable, "create template directory").WithPath(dir)
	}
	tmp, err := os.CreateTemp(dir, ".templates-*.yaml")
	if err != nil {
		return errs.Wrap(err, errs.KindFile, errs.CodeFileUnreadable, "write templates").WithPath(s.path)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errs.Wrap(err, errs.KindFile, errs.CodeFileUnreadable, "write templates").WithPath(s.path)
	}
	if err := tmp.Close(); err != nil {
		return errs.Wrap(err, errs.KindFile, errs.CodeFileUnreadable, "write templates").WithPath(s.path)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return errs.Wrap(err, errs.KindFile, errs.CodeFileUnreadable, "write templates").WithPath(s.path)
	}
	return nil
}

func clone(t models.StatementTemplate) models.StatementTemplate {
	out := models.StatementTemplate{Name: t.Name, Description: t.Description}
	if t.Patterns != nil {
		out.Patterns = make(map[string][]string, len(t.Patterns))
		for k, v := range t.Patterns {
			out.Patterns[k] = append([]string(nil), v...)
		}
	}
	if t.Layout != nil {
		out.Layout = make(map[string]models.Box, len(t.Layout))
		for k, v := range t.Layout {
			out.Layout[k] = v
		}
	}
	return out
}
