package catalog

import (
	"context"
	"sort"
	"time"

	"github.com/yashrajoria/catalog-service/repository"

	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/sync/errgroup"
)

// FragmentKind names one of the candidate category predicates, in priority
// order.
type FragmentKind string

const (
	KindNormalizedDescendants FragmentKind = "normalized-descendants"
	KindNormalizedLeaves      FragmentKind = "normalized-leaves"
	KindLegacyID              FragmentKind = "legacy-id"
	KindLegacySlug            FragmentKind = "legacy-slug"
	KindLegacyLiteral         FragmentKind = "legacy-literal"
)

var kindRank = map[FragmentKind]int{
	KindNormalizedDescendants: 0,
	KindNormalizedLeaves:      1,
	KindLegacyID:              2,
	KindLegacySlug:            3,
	KindLegacyLiteral:         4,
}

// Normalized reports whether the fragment targets the normalized reference.
func (k FragmentKind) Normalized() bool {
	return k == KindNormalizedDescendants || k == KindNormalizedLeaves
}

// Fragment is a category predicate. A nil Filter means the fragment had
// nothing to match on and is skipped.
type Fragment struct {
	Kind   FragmentKind
	Filter bson.M
}

type FragmentCount struct {
	Kind    FragmentKind `json:"kind"`
	Count   int64        `json:"count"`
	Skipped bool         `json:"skipped,omitempty"`
}

// Verdict is the probe outcome. Selected is nil when every fragment
// counted zero.
type Verdict struct {
	Selected *Fragment
	Counts   []FragmentCount
}

// Tried lists the fragment kinds that were actually counted.
func (v *Verdict) Tried() []string {
	var kinds []string
	for _, c := range v.Counts {
		if !c.Skipped {
			kinds = append(kinds, string(c.Kind))
		}
	}
	return kinds
}

// Probe counts each fragment alone against the product store and selects
// the highest-priority fragment with a positive count.
type Probe struct {
	products    repository.ProductRepo
	concurrency int
	timeout     time.Duration
}

func NewProbe(products repository.ProductRepo, concurrency int, timeout time.Duration) *Probe {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Probe{products: products, concurrency: concurrency, timeout: timeout}
}

func (p *Probe) Run(ctx context.Context, fragments []Fragment) (*Verdict, error) {
	ordered := append([]Fragment(nil), fragments...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return kindRank[ordered[i].Kind] < kindRank[ordered[j].Kind]
	})

	counts := make([]FragmentCount, len(ordered))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, f := range ordered {
		i, f := i, f
		counts[i].Kind = f.Kind
		if f.Filter == nil {
			counts[i].Skipped = true
			continue
		}
		g.Go(func() error {
			stepCtx, cancel := stepContext(gctx, p.timeout)
			defer cancel()
			n, err := p.products.Count(stepCtx, f.Filter)
			if err != nil {
				return storageErr("probe "+string(f.Kind), err)
			}
			counts[i].Count = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	v := &Verdict{Counts: counts}
	for i := range ordered {
		if counts[i].Count > 0 {
			v.Selected = &ordered[i]
			break
		}
	}
	return v, nil
}
