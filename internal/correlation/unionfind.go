package correlation

// unionFind tracks connectivity between alert ids with path compression.
// Connectivity is order-independent, which is what makes cluster
// membership deterministic for a given edge set.
type unionFind struct {
	parent map[string]string
}

func newUnionFind() *unionFind {
	return &unionFind{parent: make(map[string]string)}
}

func (u *unionFind) find(x string) string {
	root, ok := u.parent[x]
	if !ok {
		u.parent[x] = x
		return x
	}
	if root == x {
		return x
	}
	top := u.find(root)
	u.parent[x] = top
	return top
}

func (u *unionFind) union(a, b string) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	// deterministic root choice: smaller id wins
	if rb < ra {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
}

// groups collects the current components keyed by root id. Members are in
// map order; callers sort.
func (u *unionFind) groups() map[string][]string {
	out := make(map[string][]string)
	for x := range u.parent {
		root := u.find(x)
		out[root] = append(out[root], x)
	}
	return out
}
