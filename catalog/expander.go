package catalog

import (
	"context"

	"github.com/yashrajoria/catalog-service/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

// Expansion is the subtree below a category, including the category itself.
type Expansion struct {
	All     []*models.Category
	Leaves  []*models.Category
	Visited int
}

// Expander walks a subtree breadth first, fetching the children of each
// level concurrently. Every node is visited once.
type Expander struct {
	concurrency int
}

func NewExpander(concurrency int) *Expander {
	if concurrency <= 0 {
		concurrency = 8
	}
	return &Expander{concurrency: concurrency}
}

func (e *Expander) Expand(ctx context.Context, tree *Tree, root *models.Category) (*Expansion, error) {
	out := &Expansion{}
	seen := map[primitive.ObjectID]bool{root.ID: true}
	frontier := []*models.Category{root}

	for len(frontier) > 0 {
		kids := make([][]*models.Category, len(frontier))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.concurrency)
		for i, c := range frontier {
			i, c := i, c
			g.Go(func() error {
				found, err := tree.ChildrenOf(gctx, c.ID)
				kids[i] = found
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		var next []*models.Category
		for i, c := range frontier {
			out.All = append(out.All, c)
			out.Visited++
			if len(kids[i]) == 0 {
				out.Leaves = append(out.Leaves, c)
				continue
			}
			for _, k := range kids[i] {
				if seen[k.ID] {
					return nil, cycleErr(k.ID.Hex())
				}
				seen[k.ID] = true
				next = append(next, k)
			}
		}
		frontier = next
	}
	return out, nil
}

// LeavesUnder returns every descendant of c without children. A childless
// c is its own leaf set.
func (e *Expander) LeavesUnder(ctx context.Context, tree *Tree, c *models.Category) ([]*models.Category, error) {
	x, err := e.Expand(ctx, tree, c)
	if err != nil {
		return nil, err
	}
	return x.Leaves, nil
}

// AllDescendantsIncludingSelf returns c and everything below it.
func (e *Expander) AllDescendantsIncludingSelf(ctx context.Context, tree *Tree, c *models.Category) ([]*models.Category, error) {
	x, err := e.Expand(ctx, tree, c)
	if err != nil {
		return nil, err
	}
	return x.All, nil
}
