package clustering

// UnionFind is a weighted disjoint-set structure with path compression,
// keyed by stable string identities. Unions are order-dependent for the
// internal tree shape but order-independent for final component
// membership.
type UnionFind struct {
	parent map[string]string
	rank   map[string]int
}

// NewUnionFind creates an empty UnionFind
func NewUnionFind() *UnionFind {
	return &UnionFind{
		parent: make(map[string]string),
		rank:   make(map[string]int),
	}
}

// Find returns the root of x's component, compressing the path. Unknown
// keys are added as their own singleton component.
func (u *UnionFind) Find(x string) string {
	if _, ok := u.parent[x]; !ok {
		u.parent[x] = x
		u.rank[x] = 0
	}
	if u.parent[x] != x {
		u.parent[x] = u.Find(u.parent[x])
	}
	return u.parent[x]
}

// Union merges the components containing x and y.
func (u *UnionFind) Union(x, y string) {
	rootX := u.Find(x)
	rootY := u.Find(y)
	if rootX == rootY {
		return
	}
	switch {
	case u.rank[rootX] < u.rank[rootY]:
		u.parent[rootX] = rootY
	case u.rank[rootX] > u.rank[rootY]:
		u.parent[rootY] = rootX
	default:
		u.parent[rootY] = rootX
		u.rank[rootX]++
	}
}

// Keys returns every identity the structure has seen.
func (u *UnionFind) Keys() []string {
	keys := make([]string, 0, len(u.parent))
	for k := range u.parent {
		keys = append(keys, k)
	}
	return keys
}
