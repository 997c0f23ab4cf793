package templates

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/devclub-edu/leaderboard/internal/models"
)

//go:embed defaults.yaml
var defaultCatalog []byte

// ErrUnknownDomain is returned when no checklist is registered for a domain
var ErrUnknownDomain = errors.New("unknown domain")

// Loader manages the per-domain task checklists
type Loader struct {
	mu      sync.RWMutex
	domains map[models.Domain]*domainTemplate
}

type domainTemplate struct {
	info  models.DomainInfo
	tasks []models.TaskTemplate
}

// NewLoader creates an empty loader
func NewLoader() *Loader {
	return &Loader{
		domains: make(map[models.Domain]*domainTemplate),
	}
}

// NewDefaultLoader creates a loader holding the built-in checklists
func NewDefaultLoader() (*Loader, error) {
	l := NewLoader()
	if err := l.LoadFromBytes(defaultCatalog); err != nil {
		return nil, fmt.Errorf("failed to load built-in catalog: %w", err)
	}
	return l, nil
}

// LoadFromFile replaces the checklists of every domain present in the file
func (l *Loader) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	return l.LoadFromBytes(data)
}

// LoadFromBytes parses a YAML catalog document
func (l *Loader) LoadFromBytes(data []byte) error {
	var cf catalogFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	parsed := make([]*domainTemplate, 0, len(cf.Domains))
	for _, df := range cf.Domains {
		domain, ok := models.ParseDomain(df.ID)
		if !ok {
			return fmt.Errorf("domain %q: %w", df.ID, ErrUnknownDomain)
		}
		if len(df.Tasks) == 0 {
			return fmt.Errorf("domain %s has no tasks", domain)
		}

		dt := &domainTemplate{
			info: models.DomainInfo{
				ID:          domain,
				Name:        df.Name,
				Description: df.Description,
			},
			tasks: make([]models.TaskTemplate, 0, len(df.Tasks)),
		}
		for i, t := range df.Tasks {
			if t.Name == "" {
				return fmt.Errorf("domain %s task %d: name is required", domain, i)
			}
			if t.Points < 0 {
				return fmt.Errorf("domain %s task %q: points must be non-negative", domain, t.Name)
			}
			dt.tasks = append(dt.tasks, t)
			dt.info.TotalPoints += t.Points
		}
		dt.info.TasksCount = len(dt.tasks)
		parsed = append(parsed, dt)
	}

	l.mu.Lock()
	for _, dt := range parsed {
		l.domains[dt.info.ID] = dt
	}
	l.mu.Unlock()

	for _, dt := range parsed {
		slog.Info("task template loaded", "domain", dt.info.ID, "tasks", dt.info.TasksCount)
	}
	return nil
}

// AssignDefaultTasks returns a fresh copy of a domain's checklist with new ids,
// every task incomplete. Mutating the result never affects the template.
func (l *Loader) AssignDefaultTasks(domain models.Domain) ([]models.Task, error) {
	l.mu.RLock()
	dt, ok := l.domains[domain]
	l.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("domain %q: %w", domain, ErrUnknownDomain)
	}

	tasks := make([]models.Task, len(dt.tasks))
	for i, t := range dt.tasks {
		tasks[i] = models.Task{
			ID:        uuid.New().String(),
			Name:      t.Name,
			Completed: false,
			Points:    t.Points,
		}
	}
	return tasks, nil
}

// Tasks returns a copy of a domain's checklist template
func (l *Loader) Tasks(domain models.Domain) []models.TaskTemplate {
	l.mu.RLock()
	defer l.mu.RUnlock()

	dt, ok := l.domains[domain]
	if !ok {
		return nil
	}
	out := make([]models.TaskTemplate, len(dt.tasks))
	copy(out, dt.tasks)
	return out
}

// ListDomains returns metadata of every loaded domain in display order
func (l *Loader) ListDomains() []models.DomainInfo {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]models.DomainInfo, 0, len(l.domains))
	for _, d := range models.Domains {
		if dt, ok := l.domains[d]; ok {
			result = append(result, dt.info)
		}
	}
	return result
}

// GetDomain returns metadata of a domain, or nil
func (l *Loader) GetDomain(domain models.Domain) *models.DomainInfo {
	l.mu.RLock()
	defer l.mu.RUnlock()

	dt, ok := l.domains[domain]
	if !ok {
		return nil
	}
	info := dt.info
	return &info
}

// --- YAML file structs ---

// catalogFile represents the YAML structure of a catalog file
type catalogFile struct {
	Domains []domainFile `yaml:"domains"`
}

// domainFile represents one domain entry of a catalog file
type domainFile struct {
	ID          string                `yaml:"id"`
	Name        string                `yaml:"name"`
	Description string                `yaml:"description"`
	Tasks       []models.TaskTemplate `yaml:"tasks"`
}
