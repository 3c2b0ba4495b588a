package render

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"sync"

	"github.com/flosch/pongo2/v6"
)

// Interpreter is the template set of one tenant: its globals and the
// templates compiled from it.
type Interpreter struct {
	tenantID string
	set      *pongo2.TemplateSet

	mu       sync.Mutex
	compiled map[string]*pongo2.Template
}

// TenantID returns the tenant the interpreter was built for.
func (i *Interpreter) TenantID() string {
	return i.tenantID
}

// Compile parses source once per content hash. Parsing runs outside the
// lock; concurrent compiles of one source keep the first stored template.
func (i *Interpreter) Compile(source string) (*pongo2.Template, error) {
	sum := sha256.Sum256([]byte(source))
	key := hex.EncodeToString(sum[:])

	i.mu.Lock()
	tpl, ok := i.compiled[key]
	i.mu.Unlock()
	if ok {
		return tpl, nil
	}

	tpl, err := i.set.FromString(protectRawBodies(source))
	if err != nil {
		return nil, err
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if existing, ok := i.compiled[key]; ok {
		return existing, nil
	}
	i.compiled[key] = tpl
	return tpl, nil
}

// Compiled reports how many distinct sources are cached.
func (i *Interpreter) Compiled() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.compiled)
}

// InterpreterFactory builds the interpreter for a tenant.
type InterpreterFactory func(ctx context.Context, tenantID string) *Interpreter

// Interpreters is the tenant to interpreter registry. Entries are created on
// first use and live until invalidated.
type Interpreters struct {
	factory InterpreterFactory

	mu         sync.Mutex
	byTenant   map[string]*Interpreter
	generation map[string]uint64
	resets     uint64
}

// NewInterpreters creates an empty registry.
func NewInterpreters(factory InterpreterFactory) *Interpreters {
	if factory == nil {
		factory = func(_ context.Context, tenantID string) *Interpreter {
			return NewInterpreter(tenantID, nil)
		}
	}
	return &Interpreters{
		factory:    factory,
		byTenant:   make(map[string]*Interpreter),
		generation: make(map[string]uint64),
	}
}

// Get returns the tenant interpreter, building it when absent. The factory
// runs without the registry lock, so a slow build only delays its own
// tenant. A build that raced an invalidation is returned but not stored.
func (r *Interpreters) Get(ctx context.Context, tenantID string) *Interpreter {
	r.mu.Lock()
	if interpreter, ok := r.byTenant[tenantID]; ok {
		r.mu.Unlock()
		return interpreter
	}
	generation, resets := r.generation[tenantID], r.resets
	r.mu.Unlock()

	built := r.factory(ctx, tenantID)

	r.mu.Lock()
	defer r.mu.Unlock()
	if interpreter, ok := r.byTenant[tenantID]; ok {
		return interpreter
	}
	if r.generation[tenantID] == generation && r.resets == resets {
		r.byTenant[tenantID] = built
	}
	return built
}

// Invalidate drops the tenant interpreter; the next render rebuilds it.
func (r *Interpreters) Invalidate(tenantID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byTenant, tenantID)
	r.generation[tenantID]++
}

// Reset drops every interpreter.
func (r *Interpreters) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byTenant = make(map[string]*Interpreter)
	r.resets++
}

// Len reports how many tenants currently hold an interpreter.
func (r *Interpreters) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byTenant)
}

// NewInterpreter builds a tenant template set. globals are visible to every
// template of the set. Templates compile from strings only; snippets resolve
// through the render and include tags at execution.
func NewInterpreter(tenantID string, globals pongo2.Context) *Interpreter {
	registerBuiltins()

	set := pongo2.NewSet("sections:"+tenantID, stringLoader{})
	for _, banned := range []string{"ssi", "extends", "import"} {
		_ = set.BanTag(banned)
	}
	if globals != nil {
		set.Globals.Update(globals)
	}
	return &Interpreter{
		tenantID: tenantID,
		set:      set,
		compiled: make(map[string]*pongo2.Template),
	}
}

var errFileTemplates = errors.New("render: templates are compiled from strings only")

// stringLoader refuses file lookups; pongo2 requires a loader per set.
type stringLoader struct{}

func (stringLoader) Abs(_, name string) string {
	return name
}

func (stringLoader) Get(string) (io.Reader, error) {
	return nil, errFileTemplates
}
