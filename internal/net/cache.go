package net

import "gonum.org/v1/gonum/mat"

// Cache holds the intermediate values of one Forward call. It must be
// passed unmodified to the Backward call for the same batch.
//
// Hn are layer outputs (H0 is the input), An are pre-activations.
type Cache struct {
	H0 *mat.Dense
	A1 *mat.Dense
	H1 *mat.Dense
	A2 *mat.Dense
	H2 *mat.Dense
	A3 *mat.Dense
	H3 *mat.Dense
}

func newCache(hs, as []*mat.Dense) *Cache {
	return &Cache{
		H0: hs[0],
		A1: as[0], H1: hs[1],
		A2: as[1], H2: hs[2],
		A3: as[2], H3: hs[3],
	}
}

// inputs returns the input seen by each layer, in layer order.
func (c *Cache) inputs() []*mat.Dense {
	return []*mat.Dense{c.H0, c.H1, c.H2}
}

// preActivations returns each layer's pre-activation, in layer order.
func (c *Cache) preActivations() []*mat.Dense {
	return []*mat.Dense{c.A1, c.A2, c.A3}
}

func (c *Cache) complete() bool {
	if c == nil {
		return false
	}
	for _, m := range []*mat.Dense{c.H0, c.A1, c.H1, c.A2, c.H2, c.A3, c.H3} {
		if m == nil {
			return false
		}
	}
	return true
}
