package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
)

// TypeSet marks set-menu products. They are billed outside tax and service.
const TypeSet = "set"

type Product struct {
	ProductID    string `json:"productId"`
	Name         string `json:"name"`
	Price        int64  `json:"price"`
	Category     string `json:"category,omitempty"`
	VariantLabel string `json:"variantLabel,omitempty"`
	PrintTarget  string `json:"printTarget,omitempty"`
	Type         string `json:"type,omitempty"`
	IsActive     bool   `json:"isActive"`
}

func (p Product) IsSet() bool { return p.Type == TypeSet }

// Source produces the full product list backing a Catalog.
type Source interface {
	Load(ctx context.Context) ([]Product, error)
}

var ErrMissingProductID = errors.New("product without productId")

type index struct {
	byID    map[string]Product
	ordered []Product
}

// Catalog is a read-mostly product table. Readers never lock; Replace swaps
// the whole index at once so a lookup sees either the old or the new menu.
type Catalog struct {
	idx atomic.Pointer[index]
}

func New(products []Product) (*Catalog, error) {
	c := &Catalog{}
	if err := c.Replace(products); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) Replace(products []Product) error {
	next := &index{
		byID:    make(map[string]Product, len(products)),
		ordered: make([]Product, 0, len(products)),
	}
	for i, p := range products {
		if p.ProductID == "" {
			return fmt.Errorf("%w (item %d, name %q)", ErrMissingProductID, i, p.Name)
		}
		if _, dup := next.byID[p.ProductID]; dup {
			return fmt.Errorf("duplicate productId %s", p.ProductID)
		}
		next.byID[p.ProductID] = p
		next.ordered = append(next.ordered, p)
	}
	c.idx.Store(next)
	return nil
}

// Reload pulls a fresh product list from src and swaps it in. On error the
// current menu stays untouched.
func (c *Catalog) Reload(ctx context.Context, src Source) (int, error) {
	products, err := src.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("load catalog: %w", err)
	}
	if err := c.Replace(products); err != nil {
		return 0, err
	}
	return len(products), nil
}

func (c *Catalog) Lookup(productID string) (Product, bool) {
	idx := c.idx.Load()
	if idx == nil {
		return Product{}, false
	}
	p, ok := idx.byID[productID]
	return p, ok
}

// Active lists products that can currently be ordered, in source order.
func (c *Catalog) Active() []Product {
	idx := c.idx.Load()
	if idx == nil {
		return nil
	}
	out := make([]Product, 0, len(idx.ordered))
	for _, p := range idx.ordered {
		if p.IsActive {
			out = append(out, p)
		}
	}
	return out
}

func (c *Catalog) Len() int {
	idx := c.idx.Load()
	if idx == nil {
		return 0
	}
	return len(idx.ordered)
}
