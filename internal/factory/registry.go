// Package factory maps string identifiers onto agent and environment
// constructors. The registries are populated once at startup; resolving an
// unknown name fails naming the unsupported identifier.
package factory

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"doxa/internal/agent"
	"doxa/internal/env"
)

var (
	ErrAgentExists         = errors.New("agent already registered")
	ErrAgentNotFound       = errors.New("agent not supported")
	ErrEnvironmentExists   = errors.New("environment already registered")
	ErrEnvironmentNotFound = errors.New("environment not supported")
)

// Config is the explicit construction structure shared by every variant.
// Each constructor validates only the fields it needs, once, at construction.
type Config struct {
	NoiseVariance    float64
	PriorMean        []float64
	PriorCovariance  [][]float64
	UniformPrior     bool
	TrueCoefficients []float64
	FeatureDimension int
	NonlinearForm    string
	PolynomialDegree int
	Seed             int64
}

type AgentConstructor func(cfg Config) (agent.Agent, error)

type EnvironmentConstructor func(cfg Config) (env.Environment, error)

var agentRegistry = struct {
	mu sync.RWMutex
	m  map[string]AgentConstructor
}{
	m: make(map[string]AgentConstructor),
}

var envRegistry = struct {
	mu sync.RWMutex
	m  map[string]EnvironmentConstructor
}{
	m: make(map[string]EnvironmentConstructor),
}

// RegisterAgent registers a named agent constructor.
func RegisterAgent(name string, ctor AgentConstructor) error {
	if name == "" {
		return errors.New("agent name is required")
	}
	if ctor == nil {
		return errors.New("agent constructor is required")
	}

	agentRegistry.mu.Lock()
	defer agentRegistry.mu.Unlock()

	if _, exists := agentRegistry.m[name]; exists {
		return fmt.Errorf("%w: %s", ErrAgentExists, name)
	}
	agentRegistry.m[name] = ctor
	return nil
}

// RegisterEnvironment registers a named environment constructor.
func RegisterEnvironment(name string, ctor EnvironmentConstructor) error {
	if name == "" {
		return errors.New("environment name is required")
	}
	if ctor == nil {
		return errors.New("environment constructor is required")
	}

	envRegistry.mu.Lock()
	defer envRegistry.mu.Unlock()

	if _, exists := envRegistry.m[name]; exists {
		return fmt.Errorf("%w: %s", ErrEnvironmentExists, name)
	}
	envRegistry.m[name] = ctor
	return nil
}

// NewAgent constructs the named agent from the configuration.
func NewAgent(name string, cfg Config) (agent.Agent, error) {
	agentRegistry.mu.RLock()
	ctor, ok := agentRegistry.m[name]
	agentRegistry.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s (available: %v)", ErrAgentNotFound, name, ListAgents())
	}
	return ctor(cfg)
}

// NewEnvironment constructs the named environment from the configuration.
func NewEnvironment(name string, cfg Config) (env.Environment, error) {
	envRegistry.mu.RLock()
	ctor, ok := envRegistry.m[name]
	envRegistry.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s (available: %v)", ErrEnvironmentNotFound, name, ListEnvironments())
	}
	return ctor(cfg)
}

// ListAgents returns the registered agent names, sorted.
func ListAgents() []string {
	agentRegistry.mu.RLock()
	defer agentRegistry.mu.RUnlock()

	names := make([]string, 0, len(agentRegistry.m))
	for name := range agentRegistry.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListEnvironments returns the registered environment names, sorted.
func ListEnvironments() []string {
	envRegistry.mu.RLock()
	defer envRegistry.mu.RUnlock()

	names := make([]string, 0, len(envRegistry.m))
	for name := range envRegistry.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func resetRegistriesForTests() {
	agentRegistry.mu.Lock()
	agentRegistry.m = make(map[string]AgentConstructor)
	agentRegistry.mu.Unlock()

	envRegistry.mu.Lock()
	envRegistry.m = make(map[string]EnvironmentConstructor)
	envRegistry.mu.Unlock()

	defaultsOnce = sync.Once{}
}
