package segment

import (
	"sort"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/segmenter/pkg/dag"
)

// edgeKey identifies an input edge by consumer index and position in the
// consumer's slot-ordered input list.
type edgeKey struct {
	consumer int
	input    int
}

// contraction drives greedy merging over the cluster store.
type contraction struct {
	g      *dag.DAG
	status []Status
	store  *clusterStore
	logger *log.Logger

	discovery []int // root -> discovery number, -1 until discovered
	next      int
	rejected  map[edgeKey]bool

	merges int
	passes int
}

func newContraction(g *dag.DAG, status []Status, store *clusterStore, logger *log.Logger) *contraction {
	discovery := make([]int, g.NodeCount())
	for i := range discovery {
		discovery[i] = -1
	}
	return &contraction{
		g:         g,
		status:    status,
		store:     store,
		logger:    logger,
		discovery: discovery,
		rejected:  make(map[edgeKey]bool),
	}
}

// run merges clusters until a pass performs no merge and returns the roots of
// every cluster holding clustered nodes, in discovery order.
//
// Edges are visited consumer by consumer in insertion order, each consumer's
// inputs in slot order. An edge whose merge would create a quotient cycle is
// rejected for good.
func (c *contraction) run() []int {
	for {
		c.passes++
		merged := 0
		for ci := 0; ci < c.g.NodeCount(); ci++ {
			if !c.status[ci].Clustered() {
				continue
			}
			consumer := c.g.At(ci)
			for k, e := range c.g.Inputs(consumer.ID) {
				if c.tryMerge(edgeKey{ci, k}, e) {
					merged++
				}
			}
		}
		c.logger.Debug("contraction pass", "pass", c.passes, "merges", merged)
		if merged == 0 {
			break
		}
		c.merges += merged
	}
	return c.roots()
}

func (c *contraction) tryMerge(key edgeKey, e dag.Edge) bool {
	pi := c.g.Index(e.From)
	if !c.status[pi].Clustered() || c.rejected[key] {
		return false
	}
	ra, rb := c.store.find(pi), c.store.find(key.consumer)
	if ra == rb {
		return false
	}
	if !c.store.canMerge(ra, rb) {
		c.rejected[key] = true
		c.logger.Debug("merge would create a cycle", "producer", e.From, "consumer", e.To)
		return false
	}

	c.discover(ra)
	c.discover(rb)
	first := min(c.discovery[ra], c.discovery[rb])
	root := c.store.merge(ra, rb)
	c.discovery[root] = first
	return true
}

func (c *contraction) discover(root int) {
	if c.discovery[root] < 0 {
		c.discovery[root] = c.next
		c.next++
	}
}

// roots numbers the clusters that never took part in a merge in node order
// and returns all clustered roots sorted by discovery number.
func (c *contraction) roots() []int {
	var roots []int
	for i := 0; i < c.g.NodeCount(); i++ {
		if !c.status[i].Clustered() || c.store.find(i) != i {
			continue
		}
		c.discover(i)
		roots = append(roots, i)
	}
	sort.Slice(roots, func(a, b int) bool {
		return c.discovery[roots[a]] < c.discovery[roots[b]]
	})
	return roots
}
