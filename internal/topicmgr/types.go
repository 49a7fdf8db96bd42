package topicmgr

// Topic is a strongly-typed topic identifier. Components publish and
// subscribe through Topic values instead of raw strings so that every topic
// in play is declared, owned, and discoverable.
type Topic interface {
	// Name returns the unique string identifier for this topic.
	Name() string

	// Module returns the module that owns this topic (empty for framework topics).
	Module() string

	// Description returns human-readable documentation.
	Description() string

	// Scope returns whether this is a framework or module topic.
	Scope() TopicScope
}

// TopicScope defines whether a topic belongs to framework or module level.
type TopicScope string

const (
	ScopeFramework TopicScope = "framework" // core topics (websocket lifecycle, etc.)
	ScopeModule    TopicScope = "module"    // feature topics (matchmaking, game, etc.)
)

// TopicConfig holds the declaration for a new topic.
type TopicConfig struct {
	Name        string
	Module      string
	Description string
}

// TypedTopic is the concrete Topic implementation produced by the Define functions.
type TypedTopic struct {
	name        string
	module      string
	description string
	scope       TopicScope
}

var _ Topic = (*TypedTopic)(nil)

func (t *TypedTopic) Name() string        { return t.name }
func (t *TypedTopic) Module() string      { return t.module }
func (t *TypedTopic) Description() string { return t.description }
func (t *TypedTopic) Scope() TopicScope   { return t.scope }

// String returns the topic name for easy debugging.
func (t *TypedTopic) String() string { return t.name }

// TopicError is a structured error from the topic registry.
type TopicError struct {
	Type    ErrorType
	Topic   string
	Message string
}

// ErrorType classifies registry failures.
type ErrorType string

const (
	ErrorTopicNotFound         ErrorType = "topic_not_found"
	ErrorDuplicateRegistration ErrorType = "duplicate_registration"
	ErrorInvalidName           ErrorType = "invalid_name"
)

func (e *TopicError) Error() string {
	return string(e.Type) + ": " + e.Message
}
