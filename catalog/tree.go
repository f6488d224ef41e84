package catalog

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/yashrajoria/catalog-service/models"
	"github.com/yashrajoria/catalog-service/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Tree is a lazily loaded, request-scoped view of the category graph.
// Lookups are memoized so a node is fetched at most once per resolution.
type Tree struct {
	repo    repository.CategoryRepo
	timeout time.Duration

	mu       sync.Mutex
	byID     map[primitive.ObjectID]*models.Category
	children map[primitive.ObjectID][]*models.Category
}

func NewTree(repo repository.CategoryRepo, timeout time.Duration) *Tree {
	return &Tree{
		repo:     repo,
		timeout:  timeout,
		byID:     make(map[primitive.ObjectID]*models.Category),
		children: make(map[primitive.ObjectID][]*models.Category),
	}
}

// Get returns the category with the given id, or ErrNotFound.
func (t *Tree) Get(ctx context.Context, id primitive.ObjectID) (*models.Category, error) {
	t.mu.Lock()
	c, ok := t.byID[id]
	t.mu.Unlock()
	if ok {
		return c, nil
	}

	stepCtx, cancel := stepContext(ctx, t.timeout)
	defer cancel()
	c, err := t.repo.FindByID(stepCtx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("category lookup", err)
	}
	t.remember(c)
	return c, nil
}

// Find runs a category query and memoizes every record it returns.
func (t *Tree) Find(ctx context.Context, filter bson.M, limit int) ([]*models.Category, error) {
	stepCtx, cancel := stepContext(ctx, t.timeout)
	defer cancel()
	found, err := t.repo.Find(stepCtx, filter, limit)
	if err != nil {
		return nil, storageErr("category query", err)
	}
	t.remember(found...)
	return found, nil
}

// ChildrenOf returns the direct children of id in storage order.
func (t *Tree) ChildrenOf(ctx context.Context, id primitive.ObjectID) ([]*models.Category, error) {
	t.mu.Lock()
	kids, ok := t.children[id]
	t.mu.Unlock()
	if ok {
		return kids, nil
	}

	kids, err := t.Find(ctx, bson.M{"parent": id}, 0)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	t.children[id] = kids
	t.mu.Unlock()
	return kids, nil
}

// IsLeaf reports whether c has no children.
func (t *Tree) IsLeaf(ctx context.Context, c *models.Category) (bool, error) {
	kids, err := t.ChildrenOf(ctx, c.ID)
	if err != nil {
		return false, err
	}
	return len(kids) == 0, nil
}

// AncestorsOf walks parent references from c, nearest first. A parent that
// no longer exists ends the walk; reaching a node twice is a cycle.
func (t *Tree) AncestorsOf(ctx context.Context, c *models.Category) ([]*models.Category, error) {
	var ancestors []*models.Category
	seen := map[primitive.ObjectID]bool{c.ID: true}
	cur := c
	for !cur.IsRoot() {
		pid := *cur.ParentID
		if seen[pid] {
			return nil, cycleErr(pid.Hex())
		}
		seen[pid] = true
		parent, err := t.Get(ctx, pid)
		if errors.Is(err, ErrNotFound) {
			break
		}
		if err != nil {
			return nil, err
		}
		ancestors = append(ancestors, parent)
		cur = parent
	}
	return ancestors, nil
}

func (t *Tree) remember(categories ...*models.Category) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, c := range categories {
		t.byID[c.ID] = c
	}
}

// BuildForest links a flat category list into trees. Categories whose parent
// is missing are treated as roots; members of a parent cycle are unreachable
// from any root and are left out.
func BuildForest(categories []*models.Category) []*models.CategoryNode {
	nodes := make(map[primitive.ObjectID]*models.CategoryNode, len(categories))
	for _, c := range categories {
		nodes[c.ID] = &models.CategoryNode{Category: *c}
	}

	var roots []*models.CategoryNode
	for _, c := range categories {
		node := nodes[c.ID]
		if c.IsRoot() {
			roots = append(roots, node)
			continue
		}
		parent, ok := nodes[*c.ParentID]
		if !ok {
			roots = append(roots, node)
			continue
		}
		parent.Children = append(parent.Children, node)
	}
	return roots
}
