// Package glrender drives program activation: it turns the current
// [gshade.State] into a bound program through a [glcache.Cache] and pushes
// state values into it.
package glrender

import (
	"errors"
	"strconv"

	"github.com/soypat/gshade"
	"github.com/soypat/gshade/glbuild"
	"github.com/soypat/gshade/glcache"
	"github.com/soypat/gshade/glprog"
	"github.com/soypat/gshade/log"
)

var logger = log.New("glrender")

// ErrNoActiveContext is returned when activation is requested while the state
// has no rendering context.
var ErrNoActiveContext = errors.New("no active rendering context")

// Phase is the activation state of a [Controller].
type Phase uint8

const (
	PhaseInactive Phase = iota
	// PhaseFingerprintStale means the bound program, if any, may not match the state.
	PhaseFingerprintStale
	PhaseResolving
	PhaseBound
	// PhaseRendering means values were exported and draws may be issued.
	PhaseRendering
)

func (p Phase) String() string {
	switch p {
	case PhaseInactive:
		return "inactive"
	case PhaseFingerprintStale:
		return "fingerprint-stale"
	case PhaseResolving:
		return "resolving"
	case PhaseBound:
		return "bound"
	case PhaseRendering:
		return "rendering"
	}
	return "Phase(" + strconv.Itoa(int(p)) + ")"
}

// Observer is notified of program activation events.
type Observer interface {
	// ProgramDeactivated is called after prev is unbound and before its
	// replacement is bound.
	ProgramDeactivated(prev *glprog.Program)
	ProgramActivated(prog *glprog.Program)
	// RenderingReady is called once all exporters ran.
	RenderingReady(prog *glprog.Program)
}

// ObserverFuncs adapts functions to [Observer]. Nil fields are skipped.
type ObserverFuncs struct {
	Deactivated func(prev *glprog.Program)
	Activated   func(prog *glprog.Program)
	Ready       func(prog *glprog.Program)
}

func (o ObserverFuncs) ProgramDeactivated(prev *glprog.Program) {
	if o.Deactivated != nil {
		o.Deactivated(prev)
	}
}

func (o ObserverFuncs) ProgramActivated(prog *glprog.Program) {
	if o.Activated != nil {
		o.Activated(prog)
	}
}

func (o ObserverFuncs) RenderingReady(prog *glprog.Program) {
	if o.Ready != nil {
		o.Ready(prog)
	}
}

// Exporter pushes values of the state into the bound program.
type Exporter interface {
	Export(prog *glprog.Program, s *gshade.State)
}

// ExporterFunc adapts a function to [Exporter].
type ExporterFunc func(prog *glprog.Program, s *gshade.State)

func (f ExporterFunc) Export(prog *glprog.Program, s *gshade.State) { f(prog, s) }

// Controller is the activation state machine of one rendering context.
// It is not safe for concurrent use.
type Controller struct {
	state      *gshade.State
	cache      *glcache.Cache
	programmer *glbuild.Programmer
	mode       gshade.Mode
	phase      Phase
	active     *glprog.Program
	exporters  []Exporter
	observers  []Observer
}

// New returns an inactive controller exporting with [DefaultExporters]. It
// subscribes to the state's invalidations and makes the cache protect the
// bound program and the one the state is about to activate from eviction.
func New(state *gshade.State, cache *glcache.Cache, programmer *glbuild.Programmer) *Controller {
	if state == nil || cache == nil {
		panic("nil state or cache")
	}
	if programmer == nil {
		programmer = glbuild.NewDefaultProgrammer()
	}
	c := &Controller{
		state:      state,
		cache:      cache,
		programmer: programmer,
		exporters:  DefaultExporters(),
	}
	state.OnInvalidate(c.invalidate)
	cache.SetProtect(c.protected)
	return c
}

// protected returns the bound program's fingerprint and, with a context set,
// the fingerprint the current state activates.
func (c *Controller) protected() []gshade.Fingerprint {
	var fps []gshade.Fingerprint
	if c.active != nil {
		fps = append(fps, c.active.Fingerprint())
	}
	if c.state.ContextID() != 0 {
		fps = append(fps, c.state.Fingerprint(c.mode))
	}
	return fps
}

func (c *Controller) invalidate() {
	if c.phase == PhaseBound || c.phase == PhaseRendering {
		c.setPhase(PhaseFingerprintStale)
	}
}

func (c *Controller) setPhase(p Phase) {
	if p != c.phase {
		logger.Debugf("phase %s -> %s", c.phase, p)
		c.phase = p
	}
}

// AddExporter appends e to the exporters run on every [Controller.Prepare].
func (c *Controller) AddExporter(e Exporter) { c.exporters = append(c.exporters, e) }

// AddObserver registers o for activation events.
func (c *Controller) AddObserver(o Observer) { c.observers = append(c.observers, o) }

// Phase returns the current phase.
func (c *Controller) Phase() Phase { return c.phase }

// Mode returns the traversal mode.
func (c *Controller) Mode() gshade.Mode { return c.mode }

// Active returns the bound program or nil.
func (c *Controller) Active() *glprog.Program { return c.active }

// State returns the tracked state.
func (c *Controller) State() *gshade.State { return c.state }

// SetMode switches between render and pick traversals.
func (c *Controller) SetMode(m gshade.Mode) {
	if m == c.mode {
		return
	}
	c.mode = m
	c.invalidate()
}

// Activate marks the state's rendering context as active.
func (c *Controller) Activate() error {
	if c.state.ContextID() == 0 {
		return ErrNoActiveContext
	}
	if c.phase == PhaseInactive {
		c.setPhase(PhaseFingerprintStale)
	}
	return nil
}

// Deactivate unbinds the active program and returns to the inactive phase.
func (c *Controller) Deactivate() {
	if c.active != nil {
		prev := c.active
		prev.Unbind()
		c.active = nil
		c.emitDeactivated(prev)
	}
	c.setPhase(PhaseInactive)
}

// ContextLost handles destruction of the rendering context. The active program
// and every cached program are dropped without device calls.
func (c *Controller) ContextLost() {
	if c.active != nil {
		prev := c.active
		c.active = nil
		c.emitDeactivated(prev)
	}
	c.cache.Abandon()
	c.setPhase(PhaseInactive)
	logger.Notice("rendering context lost, program cache emptied")
}

// Prepare makes the program matching the state current and exports the
// state's values into it. A program with the same fingerprint as the bound
// one is neither recompiled nor rebound. On failure the previously bound
// program, if any, stays bound.
func (c *Controller) Prepare() (*glprog.Program, error) {
	err := c.Activate()
	if err != nil {
		return nil, err
	}
	fp := c.state.Fingerprint(c.mode)
	prev := c.phase
	c.setPhase(PhaseResolving)
	prog, err := c.cache.GetOrCreate(fp, func() (glbuild.Source, error) {
		return c.programmer.Compose(c.state.Shape(c.mode))
	})
	if err != nil {
		if prev == PhaseRendering || prev == PhaseBound {
			prev = PhaseFingerprintStale
		}
		c.setPhase(prev)
		return nil, err
	}
	if prog != c.active {
		if c.active != nil {
			old := c.active
			old.Unbind()
			c.active = nil
			c.emitDeactivated(old)
		}
		prog.Bind()
		c.active = prog
		for _, o := range c.observers {
			o.ProgramActivated(prog)
		}
	}
	c.setPhase(PhaseBound)
	for _, e := range c.exporters {
		e.Export(prog, c.state)
	}
	c.setPhase(PhaseRendering)
	for _, o := range c.observers {
		o.RenderingReady(prog)
	}
	return prog, nil
}

func (c *Controller) emitDeactivated(prev *glprog.Program) {
	for _, o := range c.observers {
		o.ProgramDeactivated(prev)
	}
}

// Geometry holds the vertex buffers of a draw. Buffers with zero ID are not bound.
type Geometry struct {
	Vertex glprog.Buffer
	Normal glprog.Buffer
	UV     glprog.Buffer
}

// BindGeometry feeds g to the attributes of the active program. Buffers for
// attributes the program does not use are skipped.
func (c *Controller) BindGeometry(g Geometry) error {
	if c.active == nil || c.phase != PhaseRendering {
		return errors.New("bind geometry: no program ready for rendering")
	}
	if g.Vertex.ID == 0 {
		return errors.New("bind geometry: missing vertex buffer")
	}
	c.active.BindAttribute(glbuild.AttribVertex, g.Vertex)
	if g.Normal.ID != 0 {
		c.active.BindAttribute(glbuild.AttribNormal, g.Normal)
	}
	if g.UV.ID != 0 {
		c.active.BindAttribute(glbuild.AttribUVCoord, g.UV)
	}
	return nil
}
