package docs

import (
	"context"

	"github.com/beamlab/dms/dpath"
)

// Graph is the reachability graph of link references from a root object.
type Graph struct {
	Nodes []string    `json:"nodes"`
	Edges [][2]string `json:"edges"`
}

// Graph walks every link attribute reachable from (typ, id) and returns
// the node set (first-visit order) and the directed parent→child edges.
func (s *Service) Graph(ctx context.Context, db, typ, id string) (*Graph, error) {
	g, _, err := s.linkGraph(ctx, db, typ, id)
	return g, err
}

func (s *Service) linkGraph(ctx context.Context, db, typ, id string) (*Graph, map[string][]string, error) {
	sch, err := s.Schema(ctx, db)
	if err != nil {
		return nil, nil, err
	}

	g := &Graph{Nodes: []string{}, Edges: [][2]string{}}
	adj := make(map[string][]string)
	visited := make(map[string]bool)
	edgeSeen := make(map[[2]string]bool)

	var visit func(typ, id string) error
	visit = func(typ, id string) error {
		if visited[id] {
			return nil
		}
		visited[id] = true
		g.Nodes = append(g.Nodes, id)

		obj, err := s.find(ctx, db, typ, id)
		if err != nil {
			return err
		}
		t, err := sch.Type(typ)
		if err != nil {
			return err
		}
		for _, name := range t.Attrs() {
			attr := t[name]
			if !attr.IsLink() {
				continue
			}
			val, ok := obj[name]
			if !ok {
				continue
			}
			var children []string
			if attr.IsListLink() {
				list, _ := val.([]any)
				for _, c := range list {
					if cid, ok := c.(string); ok {
						children = append(children, cid)
					}
				}
			} else if cid, ok := val.(string); ok {
				children = append(children, cid)
			}
			for _, cid := range children {
				e := [2]string{id, cid}
				if !edgeSeen[e] {
					edgeSeen[e] = true
					g.Edges = append(g.Edges, e)
					adj[id] = append(adj[id], cid)
				}
				if err := visit(attr.Link, cid); err != nil {
					return err
				}
			}
		}
		return nil
	}

	if err := visit(typ, id); err != nil {
		return nil, nil, err
	}
	return g, adj, nil
}

// SafeLinks returns the IDs reachable from (typ, id) that lie on no simple
// path from the root to any of the modification targets; patching the
// targets cannot affect them.
func (s *Service) SafeLinks(ctx context.Context, db, typ, id string, paths []string) ([]string, error) {
	g, adj, err := s.linkGraph(ctx, db, typ, id)
	if err != nil {
		return nil, err
	}
	sch, err := s.Schema(ctx, db)
	if err != nil {
		return nil, err
	}

	targets := make(map[string]bool)
	for _, pstr := range paths {
		p, err := dpath.Parse(pstr)
		if err != nil {
			return nil, err
		}
		rs, err := s.resolve(ctx, db, sch, typ, id, p)
		if err != nil {
			return nil, err
		}
		for _, r := range rs {
			targets[r.ID] = true
		}
	}

	affected := make(map[string]bool)
	for t := range targets {
		markSimplePaths(adj, id, t, affected)
	}

	safe := []string{}
	for _, n := range g.Nodes {
		if !affected[n] {
			safe = append(safe, n)
		}
	}
	return safe, nil
}

// markSimplePaths marks every node lying on a simple path from root to
// target. The reachability graphs here are small object trees with some
// sharing, so plain enumeration is fine.
func markSimplePaths(adj map[string][]string, root, target string, affected map[string]bool) {
	onStack := make(map[string]bool)
	var stack []string

	var dfs func(n string)
	dfs = func(n string) {
		stack = append(stack, n)
		onStack[n] = true
		if n == target {
			for _, m := range stack {
				affected[m] = true
			}
		} else {
			for _, c := range adj[n] {
				if !onStack[c] {
					dfs(c)
				}
			}
		}
		stack = stack[:len(stack)-1]
		onStack[n] = false
	}
	dfs(root)
}
