package mesh

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// newEdge allocates an edge from start to end and returns the halfedge
// pointing at end. Face, next and prev links are left unset.
func (m *Mesh) newEdge(start, end Vertex) Halfedge {
	h := Halfedge(len(m.hconn))
	m.hconn = append(m.hconn,
		halfedgeConn{face: InvalidFace, vertex: end, next: InvalidHalfedge, prev: InvalidHalfedge},
		halfedgeConn{face: InvalidFace, vertex: start, next: InvalidHalfedge, prev: InvalidHalfedge},
	)
	m.edeleted = append(m.edeleted, false)
	return h
}

func (m *Mesh) newFace() Face {
	f := Face(len(m.fconn))
	m.fconn = append(m.fconn, InvalidHalfedge)
	m.fdeleted = append(m.fdeleted, false)
	return f
}

func (m *Mesh) setNextHalfedge(h, next Halfedge) {
	m.hconn[h].next = next
	m.hconn[next].prev = h
}

// adjustOutgoingHalfedge rotates v's outgoing halfedge to a boundary one, if
// v has any. Queries rely on this invariant.
func (m *Mesh) adjustOutgoingHalfedge(v Vertex) {
	start := m.vconn[v]
	if start == InvalidHalfedge {
		return
	}
	h := start
	for {
		if m.IsBoundaryHalfedge(h) {
			m.vconn[v] = h
			return
		}
		h = m.rotateCW(h)
		if h == start {
			return
		}
	}
}

// AddTriangle adds a triangular face spanning a, b and c.
func (m *Mesh) AddTriangle(a, b, c Vertex) (Face, error) {
	return m.AddFace(a, b, c)
}

// AddFace adds a face spanning the given boundary vertices, in order. The new
// face may reuse existing boundary edges; it fails without mutating the mesh
// if it would make any vertex or edge non-manifold.
func (m *Mesh) AddFace(vs ...Vertex) (Face, error) {
	n := len(vs)
	if n < 3 {
		return InvalidFace, errors.Errorf("face needs at least 3 vertices, got %d", n)
	}

	halfedges := make([]Halfedge, n)
	isNew := make([]bool, n)
	needsAdjust := make([]bool, n)
	nextCache := make([][2]Halfedge, 0, 6*n)

	// test for topological errors
	for i := 0; i < n; i++ {
		ii := (i + 1) % n
		if !m.IsBoundaryVertex(vs[i]) {
			return InvalidFace, errors.Errorf("complex vertex %d", vs[i])
		}
		halfedges[i] = m.FindHalfedge(vs[i], vs[ii])
		isNew[i] = halfedges[i] == InvalidHalfedge
		if !isNew[i] && !m.IsBoundaryHalfedge(halfedges[i]) {
			return InvalidFace, errors.Errorf("complex edge (%d,%d)", vs[i], vs[ii])
		}
	}

	// re-link boundary patches between consecutive existing edges so that
	// the face's inner halfedges become adjacent
	for i := 0; i < n; i++ {
		ii := (i + 1) % n
		if isNew[i] || isNew[ii] {
			continue
		}
		innerPrev := halfedges[i]
		innerNext := halfedges[ii]
		if m.NextHalfedge(innerPrev) == innerNext {
			continue
		}

		outerPrev := m.OppositeHalfedge(innerNext)
		boundaryPrev := outerPrev
		for {
			boundaryPrev = m.OppositeHalfedge(m.NextHalfedge(boundaryPrev))
			if m.IsBoundaryHalfedge(boundaryPrev) && boundaryPrev != innerPrev {
				break
			}
		}
		boundaryNext := m.NextHalfedge(boundaryPrev)
		if boundaryNext == innerNext {
			return InvalidFace, errors.Errorf("patch re-linking failed at vertex %d", vs[ii])
		}

		patchStart := m.NextHalfedge(innerPrev)
		patchEnd := m.PrevHalfedge(innerNext)
		nextCache = append(nextCache,
			[2]Halfedge{boundaryPrev, patchStart},
			[2]Halfedge{patchEnd, boundaryNext},
			[2]Halfedge{innerPrev, innerNext},
		)
	}

	// vertices isolated by an earlier DeleteFace may be reused before the
	// next GarbageCollect
	for _, v := range vs {
		if m.vdeleted[v] {
			m.vdeleted[v] = false
			m.deletedVertices--
		}
	}

	// create missing edges
	for i := 0; i < n; i++ {
		if isNew[i] {
			halfedges[i] = m.newEdge(vs[i], vs[(i+1)%n])
		}
	}

	f := m.newFace()
	m.fconn[f] = halfedges[n-1]

	// set up inner and outer links around each corner
	for i := 0; i < n; i++ {
		ii := (i + 1) % n
		v := vs[ii]
		innerPrev := halfedges[i]
		innerNext := halfedges[ii]

		id := 0
		if isNew[i] {
			id |= 1
		}
		if isNew[ii] {
			id |= 2
		}

		if id != 0 {
			outerPrev := m.OppositeHalfedge(innerNext)
			outerNext := m.OppositeHalfedge(innerPrev)

			switch id {
			case 1: // prev edge is new, next is old
				boundaryPrev := m.PrevHalfedge(innerNext)
				nextCache = append(nextCache, [2]Halfedge{boundaryPrev, outerNext})
				m.vconn[v] = outerNext
			case 2: // prev edge is old, next is new
				boundaryNext := m.NextHalfedge(innerPrev)
				nextCache = append(nextCache, [2]Halfedge{outerPrev, boundaryNext})
				m.vconn[v] = boundaryNext
			case 3: // both edges are new
				if m.vconn[v] == InvalidHalfedge {
					m.vconn[v] = outerNext
					nextCache = append(nextCache, [2]Halfedge{outerPrev, outerNext})
				} else {
					boundaryNext := m.vconn[v]
					boundaryPrev := m.PrevHalfedge(boundaryNext)
					nextCache = append(nextCache,
						[2]Halfedge{boundaryPrev, outerNext},
						[2]Halfedge{outerPrev, boundaryNext},
					)
				}
			}
			nextCache = append(nextCache, [2]Halfedge{innerPrev, innerNext})
		} else {
			needsAdjust[ii] = m.vconn[v] == innerNext
		}

		m.hconn[halfedges[i]].face = f
	}

	for _, c := range nextCache {
		m.setNextHalfedge(c[0], c[1])
	}

	for i := 0; i < n; i++ {
		if needsAdjust[i] {
			m.adjustOutgoingHalfedge(vs[i])
		}
	}

	return f, nil
}

// DeleteFace removes f from the mesh. Edges and vertices that become
// isolated are removed as well. Removal is logical until GarbageCollect.
func (m *Mesh) DeleteFace(f Face) {
	if m.fdeleted[f] {
		return
	}
	m.fdeleted[f] = true
	m.deletedFaces++

	// detach the face's halfedges; edges whose other side is already
	// boundary lose their last face and go away entirely
	var deletedEdges []Edge
	var vertices []Vertex
	start := m.fconn[f]
	h := start
	for {
		m.hconn[h].face = InvalidFace
		if m.IsBoundaryHalfedge(m.OppositeHalfedge(h)) {
			deletedEdges = append(deletedEdges, m.HalfedgeEdge(h))
		}
		vertices = append(vertices, m.hconn[h].vertex)
		h = m.hconn[h].next
		if h == start {
			break
		}
	}

	for _, e := range deletedEdges {
		h0 := m.EdgeHalfedge(e, 0)
		h1 := m.EdgeHalfedge(e, 1)
		v0 := m.hconn[h0].vertex
		v1 := m.hconn[h1].vertex

		prev0, next0 := m.hconn[h0].prev, m.hconn[h0].next
		prev1, next1 := m.hconn[h1].prev, m.hconn[h1].next

		// splice the edge out of its two boundary loops
		m.setNextHalfedge(prev0, next1)
		m.setNextHalfedge(prev1, next0)

		m.edeleted[e] = true
		m.deletedEdges++

		if m.vconn[v0] == h1 {
			if next0 == h1 {
				m.vdeleted[v0] = true
				m.deletedVertices++
				m.vconn[v0] = InvalidHalfedge
			} else {
				m.vconn[v0] = next0
			}
		}
		if m.vconn[v1] == h0 {
			if next1 == h0 {
				m.vdeleted[v1] = true
				m.deletedVertices++
				m.vconn[v1] = InvalidHalfedge
			} else {
				m.vconn[v1] = next1
			}
		}
	}

	for _, v := range vertices {
		if !m.vdeleted[v] {
			m.adjustOutgoingHalfedge(v)
		}
	}

	m.garbage = true
}

// InsertEdge splits the face shared by h0 and h1 with a new edge from
// ToVertex(h0) to ToVertex(h1), creating one new face. Both halfedges must
// bound the same face. Returns the new halfedge from ToVertex(h0) to
// ToVertex(h1), or InvalidHalfedge if the halfedges do not share a face.
func (m *Mesh) InsertEdge(h0, h1 Halfedge) Halfedge {
	f0 := m.hconn[h0].face
	if f0 == InvalidFace || f0 != m.hconn[h1].face {
		return InvalidHalfedge
	}

	v0 := m.hconn[h0].vertex
	v1 := m.hconn[h1].vertex
	h2 := m.hconn[h0].next
	h3 := m.hconn[h1].next

	h4 := m.newEdge(v0, v1)
	h5 := m.OppositeHalfedge(h4)

	f1 := m.newFace()
	m.fconn[f0] = h0
	m.fconn[f1] = h1

	m.setNextHalfedge(h0, h4)
	m.setNextHalfedge(h4, h3)
	m.hconn[h4].face = f0

	m.setNextHalfedge(h1, h5)
	m.setNextHalfedge(h5, h2)
	h := h2
	for {
		m.hconn[h].face = f1
		h = m.hconn[h].next
		if h == h2 {
			break
		}
	}

	return h4
}

// GarbageCollect compacts the arenas, dropping deleted elements. All handles
// obtained before the call are invalidated.
func (m *Mesh) GarbageCollect() {
	if !m.garbage {
		return
	}

	vmap := make([]Vertex, len(m.points))
	emap := make([]Edge, len(m.edeleted))
	fmap := make([]Face, len(m.fconn))

	points := make([]r3.Vector, 0, m.VertexCount())
	vconn := make([]Halfedge, 0, m.VertexCount())
	for i := range m.points {
		if m.vdeleted[i] {
			vmap[i] = InvalidVertex
			continue
		}
		vmap[i] = Vertex(len(points))
		points = append(points, m.points[i])
		vconn = append(vconn, m.vconn[i])
	}

	hconn := make([]halfedgeConn, 0, 2*m.EdgeCount())
	for e := range m.edeleted {
		if m.edeleted[e] {
			emap[e] = InvalidEdge
			continue
		}
		emap[e] = Edge(len(hconn) >> 1)
		hconn = append(hconn, m.hconn[2*e], m.hconn[2*e+1])
	}

	fconn := make([]Halfedge, 0, m.FaceCount())
	for i := range m.fconn {
		if m.fdeleted[i] {
			fmap[i] = InvalidFace
			continue
		}
		fmap[i] = Face(len(fconn))
		fconn = append(fconn, m.fconn[i])
	}

	hmap := func(h Halfedge) Halfedge {
		if h == InvalidHalfedge {
			return InvalidHalfedge
		}
		e := emap[h>>1]
		if e == InvalidEdge {
			return InvalidHalfedge
		}
		return Halfedge(int(e)<<1 | int(h&1))
	}

	for i := range vconn {
		vconn[i] = hmap(vconn[i])
	}
	for i := range hconn {
		hconn[i].next = hmap(hconn[i].next)
		hconn[i].prev = hmap(hconn[i].prev)
		if hconn[i].vertex != InvalidVertex {
			hconn[i].vertex = vmap[hconn[i].vertex]
		}
		if hconn[i].face != InvalidFace {
			hconn[i].face = fmap[hconn[i].face]
		}
	}
	for i := range fconn {
		fconn[i] = hmap(fconn[i])
	}

	m.points = points
	m.vconn = vconn
	m.hconn = hconn
	m.fconn = fconn
	m.vdeleted = make([]bool, len(points))
	m.edeleted = make([]bool, len(hconn)>>1)
	m.fdeleted = make([]bool, len(fconn))
	m.deletedVertices = 0
	m.deletedEdges = 0
	m.deletedFaces = 0
	m.garbage = false
}
