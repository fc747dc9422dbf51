// Package graph implements the graph builder: dense mint-index
// assignment, an undirected adjacency set for DFS pruning, and a directed
// multigraph (u, v) -> []pool.Pool for quoting.
package graph

import (
	"github.com/gagliardetto/solana-go"

	"github.com/rawblock/arb-engine/internal/pool"
	"github.com/rawblock/arb-engine/pkg/models"
)

// Graph is built once from the loaded pool set and is read-only afterward;
// only the pool handles it stores are mutable (their reserves update
// in-place via the registry).
type Graph struct {
	indexOf map[solana.PublicKey]models.MintIndex
	mintOf  []solana.PublicKey

	adjacency [][]models.MintIndex                  // undirected, for pruning
	quotes    map[[2]models.MintIndex][]pool.Pool    // directed multigraph
}

func New() *Graph {
	return &Graph{
		indexOf: make(map[solana.PublicKey]models.MintIndex),
		quotes:  make(map[[2]models.MintIndex][]pool.Pool),
	}
}

// indexFor returns the dense index for mint, assigning a fresh one the
// first time a mint is seen. The assignment is frozen thereafter.
func (g *Graph) indexFor(mint solana.PublicKey) models.MintIndex {
	if idx, ok := g.indexOf[mint]; ok {
		return idx
	}
	idx := models.MintIndex(len(g.mintOf))
	g.indexOf[mint] = idx
	g.mintOf = append(g.mintOf, mint)
	g.adjacency = append(g.adjacency, nil)
	return idx
}

// AddPool registers p's two mints as vertices and appends p to both
// directed edge lists (m0,m1) and (m1,m0), so the pool handle is shared
// across both directions and a reserve mutation is visible from either side.
func (g *Graph) AddPool(p pool.Pool) {
	mints := p.Mints()
	u := g.indexFor(mints[0])
	v := g.indexFor(mints[1])

	if !g.hasEdge(u, v) {
		g.adjacency[u] = append(g.adjacency[u], v)
		g.adjacency[v] = append(g.adjacency[v], u)
	}

	g.quotes[[2]models.MintIndex{u, v}] = append(g.quotes[[2]models.MintIndex{u, v}], p)
	g.quotes[[2]models.MintIndex{v, u}] = append(g.quotes[[2]models.MintIndex{v, u}], p)
}

func (g *Graph) hasEdge(u, v models.MintIndex) bool {
	for _, n := range g.adjacency[u] {
		if n == v {
			return true
		}
	}
	return false
}

// Neighbors returns the undirected neighbor set of u, used for DFS pruning.
func (g *Graph) Neighbors(u models.MintIndex) []models.MintIndex {
	return g.adjacency[u]
}

// Quotes returns every pool through which a u->v trade is possible, in load
// order; pools are never re-ordered by quote quality.
func (g *Graph) Quotes(u, v models.MintIndex) []pool.Pool {
	return g.quotes[[2]models.MintIndex{u, v}]
}

// MintIndex returns the dense index assigned to mint, if any.
func (g *Graph) MintIndex(mint solana.PublicKey) (models.MintIndex, bool) {
	idx, ok := g.indexOf[mint]
	return idx, ok
}

// Mint returns the public key for a dense index.
func (g *Graph) Mint(idx models.MintIndex) solana.PublicKey {
	return g.mintOf[idx]
}

// MintCount returns the number of distinct mints seen.
func (g *Graph) MintCount() int {
	return len(g.mintOf)
}
