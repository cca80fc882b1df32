// Package triangulate decomposes polygonal mesh faces into triangles of
// minimal total area. For each face it runs a dynamic program over polygon
// chords, where a candidate triangle costs its squared area, or infinity if
// one of its sides already exists in the mesh as an interior edge and reusing
// it would make the mesh non-manifold.
package triangulate

import (
	"math"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/meshtools/surface/mesh"
)

var (
	// ErrNonManifoldVertex is returned when a face has a boundary vertex
	// whose incident faces do not form a single fan. The face is left
	// untouched.
	ErrNonManifoldVertex = errors.New("polygon has a non-manifold boundary vertex")

	// ErrBlockedTriangulation is returned when every decomposition of a
	// polygon would reuse an existing interior edge. The face is left
	// untouched.
	ErrBlockedTriangulation = errors.New("every triangulation of the polygon is blocked by existing interior edges")
)

// Triangulator triangulates faces of a single mesh. It holds per-face scratch
// state and must not be shared across goroutines.
type Triangulator struct {
	mesh   *mesh.Mesh
	logger golog.Logger

	// polygon captured from the current face
	halfedges []mesh.Halfedge
	vertices  []mesh.Vertex

	// weight[i][k] is the minimal cost of triangulating the sub-polygon
	// spanned by chord (i,k); index[i][k] the split vertex realizing it
	weight [][]float64
	index  [][]int
}

// New returns a Triangulator operating on m.
func New(m *mesh.Mesh, logger golog.Logger) *Triangulator {
	return &Triangulator{mesh: m, logger: logger}
}

// TriangulateMesh triangulates every face of the mesh and compacts the mesh
// afterwards. Faces that cannot be triangulated are skipped; their errors are
// aggregated in the returned error while the traversal continues.
func (t *Triangulator) TriangulateMesh() error {
	var errs error
	for _, f := range t.mesh.Faces() {
		if err := t.TriangulateFace(f); err != nil {
			errs = multierr.Combine(errs, err)
		}
	}
	t.mesh.GarbageCollect()
	return errs
}

// TriangulateFace triangulates a single face. Faces that are already
// triangles are left alone. On error the mesh is unchanged.
func (t *Triangulator) TriangulateFace(f mesh.Face) error {
	// collect the polygon's halfedges and vertices
	t.halfedges = t.halfedges[:0]
	t.vertices = t.vertices[:0]
	start := t.mesh.FaceHalfedge(f)
	h := start
	for {
		v := t.mesh.ToVertex(h)
		if !t.mesh.IsManifold(v) {
			t.logger.Warnf("skipping face %d: non-manifold boundary vertex %d", f, v)
			return errors.Wrapf(ErrNonManifoldVertex, "face %d, vertex %d", f, v)
		}
		t.halfedges = append(t.halfedges, h)
		t.vertices = append(t.vertices, v)
		h = t.mesh.NextHalfedge(h)
		if h == start {
			break
		}
	}

	n := len(t.halfedges)
	if n <= 3 {
		return nil
	}

	// the polygon is fully captured; remove the face so its boundary edges
	// read as boundary during the weight computation
	t.mesh.DeleteFace(f)

	t.resizeTables(n)

	// 2-gons are single edges and need no triangle
	for i := 0; i < n-1; i++ {
		t.weight[i][i+1] = 0
		t.index[i][i+1] = -1
	}

	// n-gons by increasing chord span; earliest split wins ties
	for j := 2; j < n; j++ {
		for i := 0; i+j < n; i++ {
			k := i + j
			wmin := math.Inf(1)
			imin := -1
			for m := i + 1; m < k; m++ {
				w := t.weight[i][m] + t.computeWeight(i, m, k) + t.weight[m][k]
				if w < wmin {
					wmin = w
					imin = m
				}
			}
			t.weight[i][k] = wmin
			t.index[i][k] = imin
		}
	}

	if math.IsInf(t.weight[0][n-1], 1) {
		return t.restoreBlocked(f)
	}

	// replay the optimal splits depth-first and insert the triangles
	var errs error
	todo := make([][2]int, 0, n)
	todo = append(todo, [2]int{0, n - 1})
	for len(todo) > 0 {
		r := todo[len(todo)-1]
		todo = todo[:len(todo)-1]
		lo, hi := r[0], r[1]
		if hi-lo < 2 {
			continue
		}
		split := t.index[lo][hi]
		if _, err := t.mesh.AddTriangle(t.vertices[lo], t.vertices[split], t.vertices[hi]); err != nil {
			errs = multierr.Combine(errs, errors.Wrapf(err, "face %d: inserting triangle (%d,%d,%d)", f, lo, split, hi))
		}
		todo = append(todo, [2]int{lo, split}, [2]int{split, hi})
	}
	return errs
}

// restoreBlocked re-inserts the captured polygon after a fill in which every
// decomposition hit an interior edge, leaving the mesh as it was before the
// face was deleted.
func (t *Triangulator) restoreBlocked(f mesh.Face) error {
	if _, err := t.mesh.AddFace(t.vertices...); err != nil {
		return errors.Wrapf(err, "face %d: restoring polygon after blocked triangulation", f)
	}
	t.logger.Warnf("skipping face %d: all triangulations blocked by interior edges", f)
	return errors.Wrapf(ErrBlockedTriangulation, "face %d", f)
}

// computeWeight returns the cost of triangle (i,m,k) over polygon corners,
// i < m < k: its squared area, or +Inf when one of its sides coincides with
// an existing interior edge. Interior edges already separate two faces, and a
// third would make the mesh non-manifold; edges that are boundary edges of
// other faces may be shared freely.
func (t *Triangulator) computeWeight(i, m, k int) float64 {
	a := t.vertices[i]
	b := t.vertices[m]
	c := t.vertices[k]

	if t.isInteriorEdge(a, b) || t.isInteriorEdge(b, c) || t.isInteriorEdge(c, a) {
		return math.Inf(1)
	}

	pa := t.mesh.Position(a)
	pb := t.mesh.Position(b)
	pc := t.mesh.Position(c)
	return pb.Sub(pa).Cross(pc.Sub(pa)).Norm2()
}

func (t *Triangulator) isInteriorEdge(a, b mesh.Vertex) bool {
	h := t.mesh.FindHalfedge(a, b)
	if h == mesh.InvalidHalfedge {
		return false
	}
	return !t.mesh.IsBoundaryHalfedge(h) &&
		!t.mesh.IsBoundaryHalfedge(t.mesh.OppositeHalfedge(h))
}

// insertEdge connects polygon corners i and j with a chord by splitting the
// face reachable from either corner's halfedge. It returns false if the edge
// already exists. Failing to reach one corner from the other means the
// captured halfedges no longer bound a common face, which indicates corrupted
// connectivity; it is logged and reported as failure.
func (t *Triangulator) insertEdge(i, j int) bool {
	h0 := t.halfedges[i]
	h1 := t.halfedges[j]
	v0 := t.vertices[i]
	v1 := t.vertices[j]

	if t.mesh.FindHalfedge(v0, v1) != mesh.InvalidHalfedge {
		return false
	}

	// can we reach v1 from h0?
	for h := t.mesh.NextHalfedge(h0); h != h0; h = t.mesh.NextHalfedge(h) {
		if t.mesh.ToVertex(h) == v1 {
			t.mesh.InsertEdge(h0, h)
			return true
		}
	}

	// can we reach v0 from h1?
	for h := t.mesh.NextHalfedge(h1); h != h1; h = t.mesh.NextHalfedge(h) {
		if t.mesh.ToVertex(h) == v0 {
			t.mesh.InsertEdge(h1, h)
			return true
		}
	}

	t.logger.Errorf("no halfedge path between vertices %d and %d; mesh connectivity is inconsistent", v0, v1)
	return false
}

func (t *Triangulator) resizeTables(n int) {
	t.weight = t.weight[:0]
	t.index = t.index[:0]
	for i := 0; i < n; i++ {
		w := make([]float64, n)
		for k := range w {
			w[k] = math.Inf(1)
		}
		t.weight = append(t.weight, w)
		t.index = append(t.index, make([]int, n))
	}
}
