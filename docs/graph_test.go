package docs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// treeIDs collects the IDs of the beamStateBody tree by position.
type treeIDs struct {
	root, beam, cs, rve string
	states              []string
}

func postTree(t *testing.T, svc *Service, db string) treeIDs {
	t.Helper()
	root := mustPost(t, svc, db, "BeamState", beamStateBody)
	res := asObj(t, mustGet(t, svc, db, "BeamState", root, GetOptions{MaxLevel: -1, Meta: true}))

	oid := func(v any) string { return asObj(t, asObj(t, v)["_meta"])["id"].(string) }
	ids := treeIDs{
		root: root,
		beam: oid(res["beam"]),
		cs:   oid(asObj(t, res["beam"])["cs"]),
		rve:  oid(asObj(t, asObj(t, res["beam"])["cs"])["rve"]),
	}
	for _, s := range res["csState"].([]any) {
		ids.states = append(ids.states, oid(s))
	}
	require.Len(t, ids.states, 2)
	return ids
}

func TestGraph(t *testing.T) {
	svc, db := newService(t)
	ids := postTree(t, svc, db)

	g, err := svc.Graph(context.Background(), db, "BeamState", ids.root)
	require.NoError(t, err)

	// First-visit order follows sorted attribute iteration.
	assert.Equal(t, []string{ids.root, ids.beam, ids.cs, ids.rve, ids.states[0], ids.states[1]}, g.Nodes)

	assert.Equal(t, [][2]string{
		{ids.root, ids.beam},
		{ids.beam, ids.cs},
		{ids.cs, ids.rve},
		{ids.root, ids.cs},
		{ids.root, ids.states[0]},
		{ids.states[0], ids.cs},
		{ids.root, ids.states[1]},
		{ids.states[1], ids.cs},
	}, g.Edges)
}

func TestSafeLinksSharedCrossSection(t *testing.T) {
	svc, db := newService(t)
	ids := postTree(t, svc, db)

	// Every path to the cross-section runs through the root, the beam and
	// both states; only the RVE below it is unaffected.
	safe, err := svc.SafeLinks(context.Background(), db, "BeamState", ids.root, []string{"beam.cs"})
	require.NoError(t, err)
	assert.Equal(t, []string{ids.rve}, safe)
}

func TestSafeLinksLeafTarget(t *testing.T) {
	svc, db := newService(t)
	ids := postTree(t, svc, db)

	safe, err := svc.SafeLinks(context.Background(), db, "BeamState", ids.root, []string{"csState[0].bendingMoment"})
	require.NoError(t, err)
	assert.Equal(t, []string{ids.beam, ids.cs, ids.rve, ids.states[1]}, safe)
}

func TestSafeLinksNoPaths(t *testing.T) {
	svc, db := newService(t)
	ids := postTree(t, svc, db)

	// No modification targets: every node is safe.
	safe, err := svc.SafeLinks(context.Background(), db, "BeamState", ids.root, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{ids.root, ids.beam, ids.cs, ids.rve, ids.states[0], ids.states[1]}, safe)
}

func TestSafeLinksBadPath(t *testing.T) {
	svc, db := newService(t)
	ids := postTree(t, svc, db)

	_, err := svc.SafeLinks(context.Background(), db, "BeamState", ids.root, []string{"nonsense["})
	assert.Error(t, err)
}
