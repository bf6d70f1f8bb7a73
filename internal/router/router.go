// Package router resolves which analyzer owns a request and dispatches to
// it, fanning out across regions for whole-document requests. Every analyzer
// invocation is an independent task bounded by a timeout; a slow or crashing
// analyzer costs its own result, never the request.
package router

import (
	"context"
	"fmt"
	"log"
	"time"

	protocol "github.com/tliron/glsp/protocol_3_16"
	"golang.org/x/sync/errgroup"

	"ravenls/internal/analyzer"
	"ravenls/internal/mapping"
	"ravenls/internal/region"
	"ravenls/internal/virtual"
)

const DefaultTimeout = 500 * time.Millisecond

// Snapshot fixes one host document version for the lifetime of a request:
// the host text, the regions computed against it, the virtual-document
// manager derived from it, and the diagnostics the region scan produced.
type Snapshot struct {
	Host            analyzer.Document
	Regions         []region.Region
	Virtual         *virtual.Manager
	ScanDiagnostics []protocol.Diagnostic
}

// Target pairs an analyzer with the document it should analyze. Region is
// nil for the host target.
type Target struct {
	Analyzer analyzer.Analyzer
	Doc      analyzer.Document
	Region   *region.Region
	Ordinal  int
}

// Outcome is the result of one analyzer invocation. Err distinguishes
// capability absence (analyzer.ErrNotSupported), timeout and failure; the
// aggregator decides what each means for the merged response.
type Outcome struct {
	Target Target
	Result *analyzer.Result
	Err    error
}

type Router struct {
	registry *analyzer.Registry
	timeout  time.Duration
}

func New(registry *analyzer.Registry, timeout time.Duration) *Router {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Router{registry: registry, timeout: timeout}
}

// Owner resolves the single target owning a position-bound request. Regions
// own the half-open interval of their content span; the character at the end
// belongs to the host, except for completion, which is boundary-inclusive.
// The boolean is false when no analyzer owns the position: inside an opaque
// region, outside all regions with no host analyzer registered, or when the
// owning analyzer does not declare the capability.
func (rt *Router) Owner(snap Snapshot, pos protocol.Position, capability analyzer.Capability) (Target, bool) {
	offset, err := mapping.OffsetOf(pos, snap.Host.Text)
	if err != nil {
		return Target{}, false
	}

	var ordinal int
	var inRegion bool
	if capability == analyzer.CapCompletion {
		ordinal, inRegion = region.AtInclusive(snap.Regions, offset)
	} else {
		ordinal, inRegion = region.At(snap.Regions, offset)
	}

	if !inRegion {
		host, ok := rt.registry.Host()
		if !ok || !analyzer.Supports(host, capability) {
			return Target{}, false
		}
		return rt.hostTarget(snap, host), true
	}

	r := snap.Regions[ordinal]
	if r.Opaque {
		return Target{}, false
	}
	a, ok := rt.registry.Lookup(r.LanguageID)
	if !ok || !analyzer.Supports(a, capability) {
		return Target{}, false
	}

	target, err := rt.regionTarget(snap, a, ordinal)
	if err != nil {
		log.Printf("Failed to build virtual document for %s region %d: %v", r.LanguageID, ordinal, err)
		return Target{}, false
	}
	return target, true
}

// Dispatch resolves the owner of a position-bound request and invokes it,
// translating the position into the target's coordinate space. A request
// nobody owns yields an empty outcome, not an error.
func (rt *Router) Dispatch(ctx context.Context, snap Snapshot, capability analyzer.Capability, pos protocol.Position) Outcome {
	target, ok := rt.Owner(snap, pos, capability)
	if !ok {
		return Outcome{}
	}

	callPos := pos
	if target.Region != nil {
		vpos, err := mapping.ToVirtual(pos, *target.Region, snap.Host.Text)
		if err != nil {
			if capability != analyzer.CapCompletion {
				return Outcome{Target: target, Err: err}
			}
			vpos = mapping.ClampToRegion(pos, *target.Region, snap.Host.Text)
		}
		callPos = vpos
	}

	return rt.Call(ctx, target, capability, &callPos)
}

// FanOut queries every analyzer with a stake in a whole-document request:
// the host analyzer over the blanked host view, plus each non-opaque region
// whose registered analyzer declares the capability. Invocations run
// concurrently and are joined
// here; a timed-out target is simply absent from the outcomes' results.
func (rt *Router) FanOut(ctx context.Context, snap Snapshot, capability analyzer.Capability) []Outcome {
	var targets []Target
	if host, ok := rt.registry.Host(); ok && analyzer.Supports(host, capability) {
		targets = append(targets, rt.hostTarget(snap, host))
	}
	for ordinal, r := range snap.Regions {
		if r.Opaque {
			continue
		}
		a, ok := rt.registry.Lookup(r.LanguageID)
		if !ok || !analyzer.Supports(a, capability) {
			continue
		}
		target, err := rt.regionTarget(snap, a, ordinal)
		if err != nil {
			log.Printf("Failed to build virtual document for %s region %d: %v", r.LanguageID, ordinal, err)
			continue
		}
		targets = append(targets, target)
	}

	outcomes := make([]Outcome, len(targets))
	group, ctx := errgroup.WithContext(ctx)
	for i, target := range targets {
		i, target := i, target
		group.Go(func() error {
			outcomes[i] = rt.Call(ctx, target, capability, nil)
			return nil
		})
	}
	group.Wait()
	return outcomes
}

// Call invokes one analyzer under the per-call timeout. The invocation runs
// in its own goroutine; on expiry its result is abandoned, not awaited. A
// panicking analyzer is treated as a failed one.
func (rt *Router) Call(ctx context.Context, target Target, capability analyzer.Capability, pos *protocol.Position) Outcome {
	ctx, cancel := context.WithTimeout(ctx, rt.timeout)
	defer cancel()

	type reply struct {
		result *analyzer.Result
		err    error
	}
	done := make(chan reply, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- reply{err: fmt.Errorf("analyzer %s panicked: %v", target.Doc.LanguageID, r)}
			}
		}()
		result, err := target.Analyzer.Analyze(ctx, capability, target.Doc, pos)
		done <- reply{result: result, err: err}
	}()

	select {
	case r := <-done:
		return Outcome{Target: target, Result: r.result, Err: r.err}
	case <-ctx.Done():
		return Outcome{Target: target, Err: ctx.Err()}
	}
}

func (rt *Router) hostTarget(snap Snapshot, host analyzer.Analyzer) Target {
	return Target{
		Analyzer: host,
		Doc: analyzer.Document{
			URI:        snap.Host.URI,
			LanguageID: snap.Host.LanguageID,
			Text:       snap.Virtual.HostView(),
			Version:    snap.Host.Version,
		},
		Ordinal: -1,
	}
}

func (rt *Router) regionTarget(snap Snapshot, a analyzer.Analyzer, ordinal int) (Target, error) {
	vdoc, _, err := snap.Virtual.GetOrBuild(ordinal)
	if err != nil {
		return Target{}, err
	}
	r := vdoc.Region
	return Target{
		Analyzer: a,
		Doc: analyzer.Document{
			URI:        vdoc.URI,
			LanguageID: r.LanguageID,
			Text:       vdoc.Text,
			Version:    vdoc.Version,
		},
		Region:  &r,
		Ordinal: ordinal,
	}, nil
}
