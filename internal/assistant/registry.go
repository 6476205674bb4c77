package assistant

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"fichecode/internal/config"
)

// ErrUnknownAssistant indicates the requested assistant is not registered.
var ErrUnknownAssistant = errors.New("unknown assistant")

// ErrDuplicateAssistant indicates an attempt to register the same assistant twice.
var ErrDuplicateAssistant = errors.New("assistant already registered")

// Assistant is an external AI assistant opened with a prompt in its URL.
type Assistant struct {
	Name    string
	Label   string
	BaseURL string
}

// Link returns <BaseURL><percent-encoded prompt>. Spaces become %20 so the
// prompt survives assistants that read the raw query.
func (a Assistant) Link(prompt string) string {
	return a.BaseURL + strings.ReplaceAll(url.QueryEscape(prompt), "+", "%20")
}

// Registry maintains the assistants known to the application, in
// registration order.
type Registry struct {
	mu     sync.RWMutex
	order  []string
	byName map[string]Assistant
}

// NewRegistry constructs an empty assistant registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]Assistant),
	}
}

// Register adds an assistant to the registry.
func (r *Registry) Register(a Assistant) error {
	a.Name = strings.TrimSpace(a.Name)
	if a.Name == "" {
		return errors.New("assistant name must not be empty")
	}
	if strings.TrimSpace(a.BaseURL) == "" {
		return fmt.Errorf("assistant %q: base url must not be empty", a.Name)
	}
	if a.Label == "" {
		a.Label = a.Name
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[a.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateAssistant, a.Name)
	}
	r.byName[a.Name] = a
	r.order = append(r.order, a.Name)
	return nil
}

// Lookup returns the assistant registered under name.
func (r *Registry) Lookup(name string) (Assistant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byName[name]
	if !ok {
		return Assistant{}, fmt.Errorf("%w: %s", ErrUnknownAssistant, name)
	}
	return a, nil
}

// List returns every assistant in registration order.
func (r *Registry) List() []Assistant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Assistant, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// Link builds the link opening the named assistant with prompt.
func (r *Registry) Link(name, prompt string) (string, error) {
	a, err := r.Lookup(name)
	if err != nil {
		return "", err
	}
	return a.Link(prompt), nil
}

// RegisterConfigured stores the configured assistants in the registry.
func RegisterConfigured(assistants []config.AssistantConfig, registry *Registry) error {
	if registry == nil {
		return errors.New("registry must not be nil")
	}
	for _, cfg := range assistants {
		err := registry.Register(Assistant{Name: cfg.Name, Label: cfg.Label, BaseURL: cfg.BaseURL})
		if err != nil {
			return fmt.Errorf("register assistant %s: %w", cfg.Name, err)
		}
	}
	return nil
}
