package topicmgr

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Manager is the central topic registry. Modules declare their topics with
// the Define functions and register them at boot; anything publishing to an
// undeclared topic is a wiring bug that shows up immediately.
type Manager struct {
	mu     sync.RWMutex
	topics map[string]Topic
}

// NewManager creates an empty topic registry.
func NewManager() *Manager {
	return &Manager{
		topics: make(map[string]Topic),
	}
}

// DefineFramework creates a typed topic owned by the framework itself.
func DefineFramework(config TopicConfig) Topic {
	return &TypedTopic{
		name:        config.Name,
		description: config.Description,
		scope:       ScopeFramework,
	}
}

// DefineModule creates a typed topic owned by a feature module.
func DefineModule(config TopicConfig) Topic {
	return &TypedTopic{
		name:        config.Name,
		module:      config.Module,
		description: config.Description,
		scope:       ScopeModule,
	}
}

// Register adds a topic to the registry. Names must be non-empty, dot
// separated, and unique.
func (m *Manager) Register(topic Topic) error {
	name := topic.Name()
	if name == "" || strings.ContainsAny(name, " \t\n") {
		return &TopicError{
			Type:    ErrorInvalidName,
			Topic:   name,
			Message: fmt.Sprintf("invalid topic name %q", name),
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.topics[name]; exists {
		return &TopicError{
			Type:    ErrorDuplicateRegistration,
			Topic:   name,
			Message: fmt.Sprintf("topic %q already registered", name),
		}
	}

	m.topics[name] = topic
	return nil
}

// MustRegister registers a topic and panics on error. Intended for static
// initialization where a failure means a programming error.
func (m *Manager) MustRegister(topic Topic) {
	if err := m.Register(topic); err != nil {
		panic(fmt.Sprintf("failed to register topic %s: %v", topic.Name(), err))
	}
}

// Get retrieves a topic by name.
func (m *Manager) Get(name string) (Topic, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.topics[name]
	return t, ok
}

// List returns all registered topics sorted by name.
func (m *Manager) List() []Topic {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Topic, 0, len(m.topics))
	for _, t := range m.topics {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// ListByModule returns the topics owned by a specific module, sorted by name.
func (m *Manager) ListByModule(module string) []Topic {
	var out []Topic
	for _, t := range m.List() {
		if t.Module() == module {
			out = append(out, t)
		}
	}
	return out
}

// Count returns the number of registered topics.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.topics)
}

// Global manager instance. The registry is shared so that package-level topic
// declarations in each module land in one place.
var (
	defaultManager     *Manager
	defaultManagerOnce sync.Once
)

// Default returns the process-wide manager.
func Default() *Manager {
	defaultManagerOnce.Do(func() {
		defaultManager = NewManager()
	})
	return defaultManager
}

// MustRegister registers a topic with the default manager.
func MustRegister(topic Topic) {
	Default().MustRegister(topic)
}

// Get retrieves a topic from the default manager.
func Get(name string) (Topic, bool) {
	return Default().Get(name)
}

// List returns all topics from the default manager.
func List() []Topic {
	return Default().List()
}
