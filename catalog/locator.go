package catalog

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/yashrajoria/catalog-service/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Depth constrains which tree level a token may resolve to.
type Depth int

const (
	DepthAny Depth = iota
	DepthRoot
	DepthSub
	DepthLeaf
)

func (d Depth) String() string {
	switch d {
	case DepthRoot:
		return "root"
	case DepthSub:
		return "sub"
	case DepthLeaf:
		return "leaf"
	}
	return "any"
}

func ParseDepth(s string) (Depth, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any":
		return DepthAny, nil
	case "root":
		return DepthRoot, nil
	case "sub":
		return DepthSub, nil
	case "leaf":
		return DepthLeaf, nil
	}
	return DepthAny, fmt.Errorf("unknown depth %q", s)
}

func (d Depth) filter() bson.M {
	switch d {
	case DepthRoot:
		return bson.M{"level": 0}
	case DepthSub:
		return bson.M{"level": 1}
	case DepthLeaf:
		return bson.M{"level": bson.M{"$gte": 2}}
	}
	return nil
}

// CascadeStep identifies which locator strategy produced a match.
type CascadeStep int

const (
	StepNone CascadeStep = iota
	StepID
	StepCompoundRootSubLeaf
	StepCompoundSubLeaf
	StepCompoundRootSub
	StepExactSlug
	StepSlugSuffix
	StepSlugContains
	StepNamePrefix
	StepAnyDepth
)

var stepNames = map[CascadeStep]string{
	StepNone:                "none",
	StepID:                  "id",
	StepCompoundRootSubLeaf: "compound-root-sub-leaf",
	StepCompoundSubLeaf:     "compound-sub-leaf",
	StepCompoundRootSub:     "compound-root-sub",
	StepExactSlug:           "exact-slug",
	StepSlugSuffix:          "slug-suffix",
	StepSlugContains:        "slug-contains",
	StepNamePrefix:          "name-prefix",
	StepAnyDepth:            "any-depth",
}

func (s CascadeStep) String() string { return stepNames[s] }

// TieBreak picks among several candidates returned by one cascade step.
type TieBreak int

const (
	// TieBreakFirst keeps the first record in storage order.
	TieBreakFirst TieBreak = iota
	// TieBreakShortestSlug prefers the shortest slug, then the lowest id.
	TieBreakShortestSlug
)

func (t TieBreak) String() string {
	if t == TieBreakShortestSlug {
		return "shortest-slug"
	}
	return "first"
}

func ParseTieBreak(s string) (TieBreak, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "first":
		return TieBreakFirst, nil
	case "shortest-slug", "shortest_slug":
		return TieBreakShortestSlug, nil
	}
	return TieBreakFirst, fmt.Errorf("unknown tie-break %q", s)
}

// LocateRequest is a token plus the optional context the cascade may use.
// RootToken and SubToken are the caller's raw tokens for the levels above.
// When Within is set, cascade candidates must descend from it.
type LocateRequest struct {
	Token     string
	Depth     Depth
	RootToken string
	SubToken  string
	Within    *models.Category
}

// Match is the outcome of a successful locate.
type Match struct {
	Category *models.Category
	Step     CascadeStep
	// Via is the depth-free strategy that matched when Step is StepAnyDepth.
	Via        CascadeStep
	Candidates int
	// OwningRoot is set when a depth-free match landed below the root level.
	OwningRoot *models.Category
}

// Locator resolves one token to one category through an ordered cascade
// of strategies. The first strategy that returns anything wins.
type Locator struct {
	tieBreak       TieBreak
	candidateLimit int
	signals        SignalSink
	logger         *zap.Logger
}

func NewLocator(tieBreak TieBreak, signals SignalSink, logger *zap.Logger) *Locator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if signals == nil {
		signals = LogSink{Logger: logger}
	}
	return &Locator{tieBreak: tieBreak, candidateLimit: 25, signals: signals, logger: logger}
}

type strategy struct {
	step   CascadeStep
	via    CascadeStep
	filter bson.M
}

// Locate returns ErrNotFound when every strategy is exhausted.
func (l *Locator) Locate(ctx context.Context, tree *Tree, req LocateRequest) (*Match, error) {
	token := strings.TrimSpace(req.Token)
	if token == "" {
		return nil, ErrNotFound
	}

	if id, err := primitive.ObjectIDFromHex(token); err == nil {
		c, err := tree.Get(ctx, id)
		switch {
		case err == nil:
			return &Match{Category: c, Step: StepID, Candidates: 1}, nil
		case !errors.Is(err, ErrNotFound):
			return nil, err
		}
	}

	limit := l.candidateLimit
	if req.Within != nil {
		limit = 0
	}
	for _, s := range cascade(req) {
		found, err := tree.Find(ctx, s.filter, limit)
		if err != nil {
			return nil, err
		}
		if req.Within != nil {
			if found, err = descendantsOf(ctx, tree, req.Within, found); err != nil {
				return nil, err
			}
		}
		if len(found) == 0 {
			continue
		}
		m := &Match{Category: l.pick(found), Step: s.step, Via: s.via, Candidates: len(found)}
		if len(found) > 1 {
			l.ambiguous(ctx, req, s, found)
		}
		if s.step == StepAnyDepth && !m.Category.IsRoot() {
			ancestors, err := tree.AncestorsOf(ctx, m.Category)
			if err != nil {
				return nil, err
			}
			if len(ancestors) > 0 {
				m.OwningRoot = ancestors[len(ancestors)-1]
			}
		}
		return m, nil
	}
	return nil, ErrNotFound
}

func cascade(req LocateRequest) []strategy {
	token := strings.ToLower(strings.TrimSpace(req.Token))
	root := strings.ToLower(strings.TrimSpace(req.RootToken))
	sub := strings.ToLower(strings.TrimSpace(req.SubToken))

	var steps []strategy
	if root != "" && sub != "" {
		steps = append(steps, strategy{step: StepCompoundRootSubLeaf, filter: bson.M{"slug": exactPattern(root + "-" + sub + "-" + token)}})
	}
	if sub != "" {
		steps = append(steps, strategy{step: StepCompoundSubLeaf, filter: bson.M{"slug": exactPattern(sub + "-" + token)}})
	}
	if root != "" && sub == "" && req.Depth == DepthSub {
		steps = append(steps, strategy{step: StepCompoundRootSub, filter: bson.M{"slug": exactPattern(root + "-" + token)}})
	}

	scoped := slugStrategies(token, req.Depth.filter())
	steps = append(steps, scoped...)
	if req.Depth != DepthAny {
		for _, s := range slugStrategies(token, nil) {
			steps = append(steps, strategy{step: StepAnyDepth, via: s.step, filter: s.filter})
		}
	}
	return steps
}

// descendantsOf keeps the candidates that sit below ancestor, in their
// original order.
func descendantsOf(ctx context.Context, tree *Tree, ancestor *models.Category, found []*models.Category) ([]*models.Category, error) {
	kept := found[:0:0]
	for _, c := range found {
		ancestors, err := tree.AncestorsOf(ctx, c)
		if err != nil {
			return nil, err
		}
		for _, a := range ancestors {
			if a.ID == ancestor.ID {
				kept = append(kept, c)
				break
			}
		}
	}
	return kept, nil
}

func slugStrategies(token string, depth bson.M) []strategy {
	named := strings.ReplaceAll(token, "-", " ")
	steps := []strategy{
		{step: StepExactSlug, filter: bson.M{"slug": exactPattern(token)}},
		{step: StepSlugSuffix, filter: bson.M{"slug": bson.M{"$regex": regexp.QuoteMeta(token) + "$", "$options": "i"}}},
		{step: StepSlugContains, filter: bson.M{"slug": bson.M{"$regex": regexp.QuoteMeta(token), "$options": "i"}}},
		{step: StepNamePrefix, filter: bson.M{"name": bson.M{"$regex": "^" + regexp.QuoteMeta(named), "$options": "i"}}},
	}
	for _, s := range steps {
		for k, v := range depth {
			s.filter[k] = v
		}
	}
	return steps
}

func exactPattern(s string) bson.M {
	return bson.M{"$regex": "^" + regexp.QuoteMeta(s) + "$", "$options": "i"}
}

func (l *Locator) pick(found []*models.Category) *models.Category {
	if l.tieBreak != TieBreakShortestSlug || len(found) == 1 {
		return found[0]
	}
	ordered := append([]*models.Category(nil), found...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if len(ordered[i].Slug) != len(ordered[j].Slug) {
			return len(ordered[i].Slug) < len(ordered[j].Slug)
		}
		return ordered[i].ID.Hex() < ordered[j].ID.Hex()
	})
	return ordered[0]
}

func (l *Locator) ambiguous(ctx context.Context, req LocateRequest, s strategy, found []*models.Category) {
	ids := hexIDs(found)
	l.logger.Warn(ErrAmbiguousMatch.Error(),
		zap.String("token", req.Token),
		zap.String("depth", req.Depth.String()),
		zap.String("step", s.step.String()),
		zap.Strings("candidates", ids),
		zap.String("tie_break", l.tieBreak.String()),
	)
	l.signals.Signal(ctx, Signal{
		Kind:        SignalAmbiguousMatch,
		Token:       req.Token,
		Level:       req.Depth.String(),
		Step:        s.step.String(),
		TieBreak:    l.tieBreak.String(),
		CategoryIDs: ids,
		At:          time.Now().UTC(),
	})
}
