package catalog

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/yashrajoria/catalog-service/models"
	"github.com/yashrajoria/catalog-service/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// UnresolvedPolicy decides what a request gets when category tokens were
// given but nothing could be matched.
type UnresolvedPolicy int

const (
	// UnresolvedAll drops the category clause and warns.
	UnresolvedAll UnresolvedPolicy = iota
	// UnresolvedEmpty returns an empty page and warns.
	UnresolvedEmpty
)

func (p UnresolvedPolicy) String() string {
	if p == UnresolvedEmpty {
		return "empty"
	}
	return "all"
}

func ParseUnresolvedPolicy(s string) (UnresolvedPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return UnresolvedAll, nil
	case "empty":
		return UnresolvedEmpty, nil
	}
	return UnresolvedAll, fmt.Errorf("unknown unresolved policy %q", s)
}

type Options struct {
	UnresolvedPolicy  UnresolvedPolicy
	TieBreak          TieBreak
	StorageTimeout    time.Duration
	ProbeConcurrency  int
	ExpandConcurrency int
	DefaultLimit      int
	MaxLimit          int
	Images            ImageURLBuilder
	Logger            *zap.Logger
	Signals           SignalSink
	Metrics           MetricsRecorder
}

func DefaultOptions() Options {
	return Options{
		UnresolvedPolicy:  UnresolvedAll,
		TieBreak:          TieBreakFirst,
		StorageTimeout:    5 * time.Second,
		ProbeConcurrency:  4,
		ExpandConcurrency: 8,
		DefaultLimit:      20,
		MaxLimit:          100,
	}
}

// Request carries the raw caller tokens and filters for one page.
type Request struct {
	Category    string
	Subcategory string
	Leaf        string
	Search      string
	MinPrice    *float64
	MaxPrice    *float64
	Page        int
	Limit       int
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

type Result struct {
	Products   []models.NormalizedProduct `json:"products"`
	Pagination Pagination                 `json:"pagination"`
	Warnings   []Warning                  `json:"warnings,omitempty"`
	Trace      *Trace                     `json:"-"`
}

func (r *Result) warn(code WarningCode, msg string, detail ...string) {
	r.Warnings = append(r.Warnings, Warning{Code: code, Message: msg, Detail: detail})
}

// Resolver turns a Request into a page of normalized products.
type Resolver struct {
	categories repository.CategoryRepo
	products   repository.ProductRepo
	opts       Options
	logger     *zap.Logger
	locator    *Locator
	expander   *Expander
	probe      *Probe
}

func NewResolver(categories repository.CategoryRepo, products repository.ProductRepo, opts Options) *Resolver {
	def := DefaultOptions()
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Signals == nil {
		opts.Signals = LogSink{Logger: opts.Logger}
	}
	if opts.Metrics == nil {
		opts.Metrics = nopMetrics{}
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = def.DefaultLimit
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = def.MaxLimit
	}
	return &Resolver{
		categories: categories,
		products:   products,
		opts:       opts,
		logger:     opts.Logger,
		locator:    NewLocator(opts.TieBreak, opts.Signals, opts.Logger),
		expander:   NewExpander(opts.ExpandConcurrency),
		probe:      NewProbe(products, opts.ProbeConcurrency, opts.StorageTimeout),
	}
}

type level struct {
	depth Depth
	token string
}

// resolution is the per-request state carried between phases.
type resolution struct {
	req       Request
	tree      *Tree
	result    *Result
	target    *models.Category
	targetTok LiteralToken
	deeper    []LiteralToken
	expansion *Expansion
	parents   map[primitive.ObjectID]*models.Category
	category  bson.M
	requested bool
	empty     bool
}

// Resolve runs the full pipeline: locate each token, expand the deepest
// resolved category, probe the fragments, build the predicate, execute and
// normalize.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	req = r.clamp(req)
	st := &resolution{
		req:     req,
		tree:    NewTree(r.categories, r.opts.StorageTimeout),
		result:  &Result{Products: []models.NormalizedProduct{}, Trace: &Trace{}},
		parents: map[primitive.ObjectID]*models.Category{},
	}
	trace := st.result.Trace

	if err := r.locateAll(ctx, st); err != nil {
		return nil, err
	}
	if st.target != nil {
		if err := r.expand(ctx, st); err != nil {
			return nil, err
		}
	}
	if st.requested {
		if err := r.selectCategory(ctx, st); err != nil {
			return nil, err
		}
	}

	if !st.empty {
		if err := r.execute(ctx, st); err != nil {
			return nil, err
		}
	}

	trace.Duration = time.Since(start)
	unresolved := st.requested && st.target == nil && st.category == nil
	r.opts.Metrics.RecordResolution(ctx, string(trace.Schema), unresolved, trace.Duration)
	r.logger.Info("catalog resolution", trace.Fields()...)
	return st.result, nil
}

func (r *Resolver) clamp(req Request) Request {
	req.Category = strings.TrimSpace(req.Category)
	req.Subcategory = strings.TrimSpace(req.Subcategory)
	req.Leaf = strings.TrimSpace(req.Leaf)
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 {
		req.Limit = r.opts.DefaultLimit
	}
	if req.Limit > r.opts.MaxLimit {
		req.Limit = r.opts.MaxLimit
	}
	return req
}

// locateAll resolves root, sub and leaf tokens in order. The deepest
// resolved category becomes the target; unresolved tokens below it are kept
// as literals.
func (r *Resolver) locateAll(ctx context.Context, st *resolution) error {
	levels := []level{
		{DepthRoot, st.req.Category},
		{DepthSub, st.req.Subcategory},
		{DepthLeaf, st.req.Leaf},
	}
	trace := st.result.Trace
	for _, lvl := range levels {
		if lvl.token == "" {
			continue
		}
		st.requested = true
		lr := LocateRequest{Token: lvl.token, Depth: lvl.depth, Within: st.target}
		if lvl.depth >= DepthSub {
			lr.RootToken = st.req.Category
		}
		if lvl.depth == DepthLeaf {
			lr.SubToken = st.req.Subcategory
		}

		m, err := r.locator.Locate(ctx, st.tree, lr)
		if errors.Is(err, ErrNotFound) {
			trace.Steps = append(trace.Steps, TraceStep{Level: lvl.depth.String(), Token: lvl.token})
			st.deeper = append(st.deeper, LiteralToken{Depth: lvl.depth, Token: lvl.token})
			continue
		}
		if err != nil {
			return err
		}

		step := TraceStep{
			Level:      lvl.depth.String(),
			Token:      lvl.token,
			Resolved:   true,
			Step:       m.Step.String(),
			CategoryID: m.Category.ID.Hex(),
			Candidates: m.Candidates,
		}
		if m.OwningRoot != nil {
			step.OwningRootID = m.OwningRoot.ID.Hex()
		}
		trace.Steps = append(trace.Steps, step)

		for _, lit := range st.deeper {
			st.result.warn(WarnTokenUnresolved, fmt.Sprintf("%s token %q did not match any category", lit.Depth, lit.Token))
		}
		st.deeper = nil
		st.target = m.Category
		st.targetTok = LiteralToken{Depth: lvl.depth, Token: lvl.token}
	}
	return nil
}

func (r *Resolver) expand(ctx context.Context, st *resolution) error {
	x, err := r.expander.Expand(ctx, st.tree, st.target)
	if err != nil {
		return err
	}
	ancestors, err := st.tree.AncestorsOf(ctx, st.target)
	if err != nil {
		return err
	}
	for _, c := range append(ancestors, x.All...) {
		st.parents[c.ID] = c
	}
	st.expansion = x
	trace := st.result.Trace
	trace.TargetID = st.target.ID.Hex()
	trace.LeafCount = len(x.Leaves)
	trace.DescendantCount = len(x.All)
	return nil
}

// fragmentRun counts fragment lists and records every count
// on the trace.
type fragmentRun struct {
	probe *Probe
	st    *resolution
	tried []string
}

func (fr *fragmentRun) run(ctx context.Context, fragments ...Fragment) (*Fragment, error) {
	v, err := fr.probe.Run(ctx, fragments)
	if err != nil {
		return nil, err
	}
	fr.st.result.Trace.Fragments = append(fr.st.result.Trace.Fragments, v.Counts...)
	fr.tried = append(fr.tried, v.Tried()...)
	return v.Selected, nil
}

func (fr *fragmentRun) settle(f *Fragment) {
	fr.st.category = f.Filter
	fr.st.result.Trace.Schema = f.Kind
}

// narrow runs the deeper literal tokens inside the target clause and
// returns nil when no product matches both.
func (fr *fragmentRun) narrow(ctx context.Context, deeper []LiteralToken, target *Fragment) (*Fragment, error) {
	lit := LegacyLiteralFragment(deeper)
	if lit.Filter == nil {
		return nil, nil
	}
	return fr.run(ctx, Fragment{
		Kind:   KindLegacyLiteral,
		Filter: bson.M{"$and": []bson.M{lit.Filter, target.Filter}},
	})
}

// selectCategory probes the candidate fragments and settles the category
// clause, applying the unresolved policy when nothing matches. Literal
// tokens below a resolved target only narrow the target's own clause.
func (r *Resolver) selectCategory(ctx context.Context, st *resolution) error {
	fr := &fragmentRun{probe: r.probe, st: st}
	if st.target != nil {
		return r.selectTarget(ctx, fr)
	}

	if len(st.deeper) > 0 {
		sel, err := fr.run(ctx, LegacyLiteralFragment(st.deeper))
		if err != nil {
			return err
		}
		if sel != nil {
			fr.settle(sel)
			r.warnDeeper(st, true)
			return nil
		}
	}

	tokens := make([]string, 0, len(st.deeper))
	for _, lit := range st.deeper {
		tokens = append(tokens, lit.Depth.String()+"="+lit.Token)
	}
	r.opts.Signals.Signal(ctx, Signal{
		Kind:      SignalCategoryUnresolved,
		Token:     strings.Join(tokens, ","),
		Fragments: fr.tried,
		At:        time.Now().UTC(),
	})
	if r.opts.UnresolvedPolicy == UnresolvedEmpty {
		st.result.warn(WarnCategoryUnresolved, "category could not be resolved; no products returned", tokens...)
		st.empty = true
		st.result.Pagination = Pagination{Page: st.req.Page, Limit: st.req.Limit}
		return nil
	}
	st.result.warn(WarnCategoryUnresolved, "category could not be resolved; results are not filtered by category", tokens...)
	return nil
}

func (r *Resolver) selectTarget(ctx context.Context, fr *fragmentRun) error {
	st := fr.st
	fragments := []Fragment{
		NormalizedFragment(KindNormalizedDescendants, st.expansion.All),
		NormalizedFragment(KindNormalizedLeaves, st.expansion.Leaves),
		LegacyIDFragment(st.expansion.All),
		LegacySlugFragment(st.expansion.All, st.parents),
		LegacyLiteralFragment([]LiteralToken{st.targetTok}),
	}
	sel, err := fr.run(ctx, fragments...)
	if err != nil {
		return err
	}
	if sel != nil {
		if len(st.deeper) > 0 {
			narrowed, err := fr.narrow(ctx, st.deeper, sel)
			if err != nil {
				return err
			}
			if narrowed != nil {
				fr.settle(narrowed)
				r.warnDeeper(st, true)
				return nil
			}
			r.warnDeeper(st, false)
		}
		fr.settle(sel)
		return nil
	}

	// The category exists but holds no products in any representation.
	fr.settle(&fragments[0])
	if len(st.deeper) > 0 {
		r.warnDeeper(st, false)
	}
	st.result.warn(WarnProbeExhausted, fmt.Sprintf("no products reference category %s", st.target.Slug), fr.tried...)
	r.opts.Signals.Signal(ctx, Signal{
		Kind:        SignalProbeExhausted,
		Token:       st.targetTok.Token,
		Level:       st.targetTok.Depth.String(),
		CategoryIDs: []string{st.target.ID.Hex()},
		Fragments:   fr.tried,
		At:          time.Now().UTC(),
	})
	return nil
}

func (r *Resolver) warnDeeper(st *resolution, matched bool) {
	for _, lit := range st.deeper {
		msg := fmt.Sprintf("%s token %q matched by literal value", lit.Depth, lit.Token)
		if !matched {
			msg = fmt.Sprintf("%s token %q did not match; results widened to %s", lit.Depth, lit.Token, st.target.Slug)
		}
		st.result.warn(WarnTokenUnresolved, msg)
	}
}

func (r *Resolver) execute(ctx context.Context, st *resolution) error {
	req := st.req
	trace := st.result.Trace

	b := NewPredicateBuilder().WithCategory(st.category).WithSearch(req.Search)
	priceField := ""
	if req.MinPrice != nil || req.MaxPrice != nil {
		field, err := r.detectPriceField(ctx, st.category)
		if err != nil {
			return err
		}
		priceField = field
		trace.PriceField = field
		b.WithPriceRange(field, req.MinPrice, req.MaxPrice)
	}
	filter := b.WithVisibility().Build()

	countCtx, cancel := stepContext(ctx, r.opts.StorageTimeout)
	total, err := r.products.Count(countCtx, filter)
	cancel()
	if err != nil {
		return storageErr("count products", err)
	}

	findCtx, cancel := stepContext(ctx, r.opts.StorageTimeout)
	products, err := r.products.Find(findCtx, filter, req.Limit, (req.Page-1)*req.Limit)
	cancel()
	if err != nil {
		return storageErr("find products", err)
	}

	var all []*models.Category
	if st.expansion != nil {
		all = st.expansion.All
	}
	opts := NormalizeOptions{PriceField: priceField, Images: r.opts.Images, Index: NewCategoryIndex(all, st.parents)}
	for _, p := range products {
		st.result.Products = append(st.result.Products, Normalize(p, opts))
	}
	st.result.Pagination = Pagination{
		Page:       req.Page,
		Limit:      req.Limit,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(req.Limit))),
	}
	return nil
}

// detectPriceField samples one product under the selected category, or any
// product, and picks the flat price when the sample carries one.
func (r *Resolver) detectPriceField(ctx context.Context, category bson.M) (string, error) {
	filters := []bson.M{{}}
	if len(category) > 0 {
		filters = []bson.M{category, {}}
	}
	for _, f := range filters {
		stepCtx, cancel := stepContext(ctx, r.opts.StorageTimeout)
		sample, err := r.products.FindOne(stepCtx, f)
		cancel()
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return "", storageErr("sample product", err)
		}
		if sample.Price == nil && sample.Prices != nil && sample.Prices.Retail != nil {
			return models.FieldRetailPrice, nil
		}
		return models.FieldPrice, nil
	}
	return models.FieldPrice, nil
}

// Locate exposes the locator for diagnostics.
func (r *Resolver) Locate(ctx context.Context, req LocateRequest) (*Match, error) {
	return r.locator.Locate(ctx, NewTree(r.categories, r.opts.StorageTimeout), req)
}

// Leaves returns the leaf set under the category with the given id.
func (r *Resolver) Leaves(ctx context.Context, id primitive.ObjectID) ([]*models.Category, error) {
	tree := NewTree(r.categories, r.opts.StorageTimeout)
	c, err := tree.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.expander.LeavesUnder(ctx, tree, c)
}

// Forest returns the whole category tree, roots first.
func (r *Resolver) Forest(ctx context.Context) ([]*models.CategoryNode, error) {
	stepCtx, cancel := stepContext(ctx, r.opts.StorageTimeout)
	defer cancel()
	categories, err := r.categories.FindAll(stepCtx)
	if err != nil {
		return nil, storageErr("list categories", err)
	}
	return BuildForest(categories), nil
}
