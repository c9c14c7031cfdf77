package ledger

import (
	"fmt"
	"sort"
	"sync"
)

// Program is executable logic hosted by the ledger. Programs are stateless:
// everything they persist goes through the Storage handed to them by the
// Context, which is why the same Program value can back any number of
// accounts and can be swapped under a proxy without moving data.
type Program interface {
	Name() string
	Run(c *Context, call Calldata) (Values, error)
}

// Constructor is implemented by programs that take deployment arguments.
type Constructor interface {
	Construct(c *Context, args Values) error
}

// Handler executes one method of a program.
type Handler func(c *Context, args Values) (Values, error)

// Method binds a signature to its handler.
type Method struct {
	Signature string
	Payable   bool
	Handler   Handler
}

// Methods is a selector dispatch table.
type Methods struct {
	table map[Selector]Method
}

// NewMethods builds a dispatch table. Two signatures with the same selector
// are a programming error and panic.
func NewMethods(methods ...Method) *Methods {
	m := &Methods{table: make(map[Selector]Method, len(methods))}
	for _, method := range methods {
		sel := SelectorOf(method.Signature)
		if existing, ok := m.table[sel]; ok {
			panic(fmt.Sprintf("selector collision: %q and %q", existing.Signature, method.Signature))
		}
		m.table[sel] = method
	}
	return m
}

// Run dispatches call to the matching handler.
func (m *Methods) Run(c *Context, call Calldata) (Values, error) {
	method, ok := m.table[call.Selector()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, call.Signature)
	}
	if !method.Payable && c.Value().IsPositive() {
		return nil, fmt.Errorf("%w: %s", ErrNotPayable, call.Signature)
	}
	return method.Handler(c, call.Args)
}

// Has reports whether the table contains selector.
func (m *Methods) Has(sel Selector) bool {
	_, ok := m.table[sel]
	return ok
}

// Signatures lists the methods in the table.
func (m *Methods) Signatures() []string {
	sigs := make([]string, 0, len(m.table))
	for _, method := range m.table {
		sigs = append(sigs, method.Signature)
	}
	sort.Strings(sigs)
	return sigs
}

// Registry maps code names to programs. Accounts store only the name, so a
// ledger restored from persistence finds its programs here.
type Registry struct {
	mu       sync.RWMutex
	programs map[string]Program
}

func NewRegistry(programs ...Program) *Registry {
	r := &Registry{programs: make(map[string]Program)}
	for _, p := range programs {
		r.Register(p)
	}
	return r
}

func (r *Registry) Register(p Program) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.programs[p.Name()] = p
}

func (r *Registry) Lookup(name string) (Program, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.programs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProgram, name)
	}
	return p, nil
}
