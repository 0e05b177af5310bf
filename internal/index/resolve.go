package index

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"golang.org/x/sync/errgroup"
)

// Fetcher returns the index records of a crate.
type Fetcher interface {
	Fetch(ctx context.Context, name string) ([]Crate, error)
}

// Lookup is what is wanted from a crate: the features to enable and the
// version requirements any matching version must satisfy.
type Lookup struct {
	Features map[string]struct{}
	Reqs     map[string]struct{}
}

func newLookup() *Lookup {
	return &Lookup{
		Features: make(map[string]struct{}),
		Reqs:     make(map[string]struct{}),
	}
}

// merge adds other's features and requirements and reports whether anything was new.
func (l *Lookup) merge(other *Lookup) bool {
	changed := false
	for f := range other.Features {
		if _, ok := l.Features[f]; !ok {
			l.Features[f] = struct{}{}
			changed = true
		}
	}
	for r := range other.Reqs {
		if _, ok := l.Reqs[r]; !ok {
			l.Reqs[r] = struct{}{}
			changed = true
		}
	}
	return changed
}

// Resolver discovers the transitive dependency set of crates.
type Resolver struct {
	fetcher     Fetcher
	concurrency int
	logger      *slog.Logger
}

// NewResolver creates a Resolver that runs at most concurrency fetches at once.
func NewResolver(f Fetcher, concurrency int, logger *slog.Logger) *Resolver {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Resolver{
		fetcher:     f,
		concurrency: concurrency,
		logger:      logger.With("component", "resolver"),
	}
}

// resolution is the state of a single Resolve call.
type resolution struct {
	done    map[string]*Lookup
	crates  map[string][]Crate
	pending map[string]struct{}
}

// Resolve walks dependencies starting from roots given as name[@requirement]
// and returns the sorted names of every crate reached, roots included.
func (r *Resolver) Resolve(ctx context.Context, roots []string) ([]string, error) {
	res := &resolution{
		done:    make(map[string]*Lookup),
		crates:  make(map[string][]Crate),
		pending: make(map[string]struct{}),
	}

	for _, root := range roots {
		name, req := ParseRoot(root)
		if _, err := parseReq(req); err != nil {
			return nil, fmt.Errorf("requirement of %s: %w", name, err)
		}
		wants := newLookup()
		wants.Features["default"] = struct{}{}
		wants.Reqs[req] = struct{}{}
		res.enqueue(name, wants)
	}

	for round := 1; len(res.pending) > 0; round++ {
		names := sortedKeys(res.pending)
		res.pending = make(map[string]struct{})

		if err := r.fetchMissing(ctx, res, names); err != nil {
			return nil, err
		}
		r.logger.Debug("resolve round", "round", round, "crates", len(names), "known", len(res.done))

		for _, name := range names {
			if err := res.process(name); err != nil {
				return nil, err
			}
		}
	}

	return sortedKeys(res.done), nil
}

// fetchMissing loads the index records of every name not fetched yet.
func (r *Resolver) fetchMissing(ctx context.Context, res *resolution, names []string) error {
	var missing []string
	for _, name := range names {
		if _, ok := res.crates[name]; !ok {
			missing = append(missing, name)
		}
	}

	results := make([][]Crate, len(missing))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, name := range missing {
		g.Go(func() error {
			crates, err := r.fetcher.Fetch(gctx, name)
			if err != nil {
				return err
			}
			results[i] = crates
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, name := range missing {
		res.crates[name] = results[i]
	}
	return nil
}

// enqueue records wants for name and schedules it when they add anything new.
func (res *resolution) enqueue(name string, wants *Lookup) {
	if l, ok := res.done[name]; ok {
		if !l.merge(wants) {
			return
		}
	} else {
		l = newLookup()
		l.merge(wants)
		res.done[name] = l
	}
	res.pending[name] = struct{}{}
}

// process follows the dependencies of every version of name that satisfies
// the accumulated requirements.
func (res *resolution) process(name string) error {
	wants := res.done[name]

	// Optional deps are enabled by features named after them ("dep" or "dep/feature").
	enabled := make(map[string]bool)
	for f := range wants.Features {
		dep, _, _ := strings.Cut(f, "/")
		enabled[dep] = true
	}

	reqs := make([]*semver.Constraints, 0, len(wants.Reqs))
	for _, req := range sortedKeys(wants.Reqs) {
		c, err := parseReq(req)
		if err != nil {
			return fmt.Errorf("requirement of %s: %w", name, err)
		}
		reqs = append(reqs, c)
	}

	deps := make(map[string]*Lookup)
	for _, v := range res.crates[name] {
		ver, err := semver.NewVersion(v.Vers)
		if err != nil {
			return fmt.Errorf("semver of %s@%s: %w", v.Name, v.Vers, err)
		}
		if !matchesAny(reqs, ver) {
			continue
		}

		for _, d := range v.Deps {
			if d.Kind == "dev" {
				continue
			}
			pkg := d.PackageName()
			if d.Optional && !enabled[d.Name] && !enabled[pkg] {
				continue
			}
			if _, err := parseReq(d.Req); err != nil {
				return fmt.Errorf("dep %s of %s: %w", d.Name, v.Name, err)
			}

			l, ok := deps[pkg]
			if !ok {
				l = newLookup()
				deps[pkg] = l
			}
			l.Reqs[d.Req] = struct{}{}
			if d.DefaultFeatures {
				l.Features["default"] = struct{}{}
			}
			for _, f := range d.Features {
				if f != "" {
					l.Features[f] = struct{}{}
				}
			}
		}
	}

	for _, pkg := range sortedKeys(deps) {
		res.enqueue(pkg, deps[pkg])
	}
	return nil
}

// ParseRoot splits name[@requirement]; the requirement defaults to "*".
func ParseRoot(arg string) (name, req string) {
	name, req, ok := strings.Cut(arg, "@")
	if !ok || req == "" {
		req = "*"
	}
	return name, req
}

// parseReq converts a Cargo version requirement into semver constraints.
// A bare version means caret, as in Cargo, unless it carries a wildcard.
// Comma-separated parts must all hold.
func parseReq(req string) (*semver.Constraints, error) {
	parts := strings.Split(req, ",")
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" && p[0] >= '0' && p[0] <= '9' && !strings.ContainsAny(p, "*xX") {
			p = "^" + p
		}
		parts[i] = p
	}
	return semver.NewConstraint(strings.Join(parts, ", "))
}

func matchesAny(reqs []*semver.Constraints, v *semver.Version) bool {
	for _, c := range reqs {
		if c.Check(v) {
			return true
		}
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
