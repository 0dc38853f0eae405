// Package panels maps every backend capability onto a runnable dashboard
// panel and turns the JSON it returns into sortable, pageable tables.
package panels

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cyberforge/cyberforge/internal/api"
	"github.com/cyberforge/cyberforge/internal/mode"
)

var (
	ErrUnknownPanel = errors.New("panels: unknown panel")
	ErrMissingArg   = errors.New("panels: missing required input")
	ErrDeclined     = errors.New("panels: run declined")
)

// Param describes one input of a panel. The first param is the one the
// dashboard's single input line fills.
type Param struct {
	Name     string
	Label    string
	Default  string
	Required bool
}

// Args holds panel inputs by param name.
type Args map[string]string

// Get returns the value for name, or def when it is blank.
func (a Args) Get(name, def string) string {
	if v := strings.TrimSpace(a[name]); v != "" {
		return v
	}
	return def
}

// Int parses name as an integer, falling back to def.
func (a Args) Int(name string, def int) int {
	n, err := strconv.Atoi(a.Get(name, ""))
	if err != nil {
		return def
	}
	return n
}

// RunFunc executes a panel against the backend.
type RunFunc func(ctx context.Context, c *api.Client, args Args) (api.Document, error)

// Panel is one backend capability.
type Panel struct {
	Name    string
	Title   string
	Section string
	Params  []Param
	// Dangerous panels act on remote hosts and need explicit confirmation.
	Dangerous bool
	Run       RunFunc
}

// Primary returns the first param, or a zero Param for input-less panels.
func (p *Panel) Primary() Param {
	if len(p.Params) == 0 {
		return Param{}
	}
	return p.Params[0]
}

// Describe renders the call for a confirmation prompt.
func (p *Panel) Describe(args Args) string {
	parts := make([]string, 0, len(p.Params))
	for _, param := range p.Params {
		if v := args.Get(param.Name, param.Default); v != "" {
			parts = append(parts, param.Name+"="+v)
		}
	}
	return p.Name + " " + strings.Join(parts, " ")
}

// Confirmator approves dangerous runs.
type Confirmator interface {
	RequestConfirmation(operation, command string, dangerous bool) bool
}

// Call is a request to run a panel.
type Call struct {
	ID    string
	Panel string
	Args  Args
}

// Result is the outcome of a Call.
type Result struct {
	CallID  string
	Panel   string
	Doc     api.Document
	Err     error
	Elapsed time.Duration
}

// ScanID returns the backend scan id carried by the result, if any.
func (r Result) ScanID() string {
	if id := r.Doc.String("scan_id"); id != "" {
		return id
	}
	return r.Doc.String("id")
}

// Registry manages available panels
type Registry struct {
	mu          sync.RWMutex
	panels      map[string]*Panel
	order       []string
	confirmator Confirmator
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{panels: make(map[string]*Panel)}
}

// Register adds a panel; names must be unique.
func (r *Registry) Register(p *Panel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.panels[p.Name]; exists {
		return fmt.Errorf("panel %q already registered", p.Name)
	}
	r.panels[p.Name] = p
	r.order = append(r.order, p.Name)
	return nil
}

// SetConfirmator installs the approver for dangerous panels.
func (r *Registry) SetConfirmator(c Confirmator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.confirmator = c
}

// Get retrieves a panel by name
func (r *Registry) Get(name string) (*Panel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.panels[name]
	return p, ok
}

// List returns all panels in registration order.
func (r *Registry) List() []*Panel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Panel, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.panels[name])
	}
	return out
}

// ForMode returns the panels whose section appears in m's navigation,
// ordered by section then registration.
func (r *Registry) ForMode(m mode.Mode) []*Panel {
	var out []*Panel
	for _, sec := range mode.Navigation(m) {
		out = append(out, r.ForSection(sec.Key)...)
	}
	return out
}

// ForSection returns the panels of one section.
func (r *Registry) ForSection(section string) []*Panel {
	return slices.DeleteFunc(r.List(), func(p *Panel) bool {
		return p.Section != section
	})
}

// Execute runs call synchronously. Dangerous panels are refused unless the
// confirmator approves.
func (r *Registry) Execute(ctx context.Context, c *api.Client, call Call) Result {
	start := time.Now()
	res := Result{CallID: call.ID, Panel: call.Panel}

	p, ok := r.Get(call.Panel)
	if !ok {
		res.Err = fmt.Errorf("%w: %s", ErrUnknownPanel, call.Panel)
		return res
	}
	args := withDefaults(p, call.Args)
	for _, param := range p.Params {
		if param.Required && args.Get(param.Name, "") == "" {
			res.Err = fmt.Errorf("%w: %s", ErrMissingArg, param.Label)
			return res
		}
	}

	if p.Dangerous {
		r.mu.RLock()
		confirmator := r.confirmator
		r.mu.RUnlock()
		if confirmator == nil || !confirmator.RequestConfirmation(p.Title, p.Describe(args), true) {
			res.Err = ErrDeclined
			return res
		}
	}

	res.Doc, res.Err = p.Run(ctx, c, args)
	res.Elapsed = time.Since(start)
	return res
}

// ExecuteAsync runs call in a goroutine and delivers its Result on resultChan,
// which is closed afterwards.
func (r *Registry) ExecuteAsync(ctx context.Context, c *api.Client, call Call, resultChan chan<- Result) {
	go func() {
		defer close(resultChan)
		resultChan <- r.Execute(ctx, c, call)
	}()
}

func withDefaults(p *Panel, in Args) Args {
	args := make(Args, len(p.Params))
	for _, param := range p.Params {
		if param.Default != "" {
			args[param.Name] = param.Default
		}
	}
	for k, v := range in {
		if strings.TrimSpace(v) != "" {
			args[k] = v
		}
	}
	return args
}
