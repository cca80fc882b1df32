// Package mesh implements a halfedge data structure for polygonal surface
// meshes. Connectivity is stored in flat arenas indexed by small integer
// handles; the two halfedges of an edge are stored adjacently so that the
// opposite halfedge is an index flip. Deleting elements only marks them;
// GarbageCollect compacts the arenas and invalidates outstanding handles.
package mesh

import (
	"github.com/golang/geo/r3"
)

// Vertex, Halfedge, Edge and Face are handles into a Mesh. A negative handle
// is invalid.
type (
	Vertex   int
	Halfedge int
	Edge     int
	Face     int
)

// Invalid handles, returned by queries that find nothing.
const (
	InvalidVertex   Vertex   = -1
	InvalidHalfedge Halfedge = -1
	InvalidEdge     Edge     = -1
	InvalidFace     Face     = -1
)

type halfedgeConn struct {
	face   Face
	vertex Vertex // vertex the halfedge points to
	next   Halfedge
	prev   Halfedge
}

// Mesh is a halfedge surface mesh. It is not safe for concurrent use.
type Mesh struct {
	points []r3.Vector
	vconn  []Halfedge // an outgoing halfedge, a boundary one if any exists
	hconn  []halfedgeConn
	fconn  []Halfedge

	vdeleted []bool
	edeleted []bool
	fdeleted []bool

	deletedVertices int
	deletedEdges    int
	deletedFaces    int
	garbage         bool
}

// New returns an empty mesh.
func New() *Mesh {
	return &Mesh{}
}

// AddVertex adds an isolated vertex at the given position.
func (m *Mesh) AddVertex(p r3.Vector) Vertex {
	v := Vertex(len(m.points))
	m.points = append(m.points, p)
	m.vconn = append(m.vconn, InvalidHalfedge)
	m.vdeleted = append(m.vdeleted, false)
	return v
}

// Position returns the position of v.
func (m *Mesh) Position(v Vertex) r3.Vector {
	return m.points[v]
}

// SetPosition moves v to p.
func (m *Mesh) SetPosition(v Vertex, p r3.Vector) {
	m.points[v] = p
}

// VertexCount returns the number of vertices, not counting deleted ones.
func (m *Mesh) VertexCount() int {
	return len(m.points) - m.deletedVertices
}

// EdgeCount returns the number of edges, not counting deleted ones.
func (m *Mesh) EdgeCount() int {
	return len(m.edeleted) - m.deletedEdges
}

// FaceCount returns the number of faces, not counting deleted ones.
func (m *Mesh) FaceCount() int {
	return len(m.fconn) - m.deletedFaces
}

// Vertices returns the live vertex handles in index order.
func (m *Mesh) Vertices() []Vertex {
	vs := make([]Vertex, 0, m.VertexCount())
	for i := range m.points {
		if !m.vdeleted[i] {
			vs = append(vs, Vertex(i))
		}
	}
	return vs
}

// Faces returns the live face handles in index order. The slice is a
// snapshot; faces added afterwards do not appear in it.
func (m *Mesh) Faces() []Face {
	fs := make([]Face, 0, m.FaceCount())
	for i := range m.fconn {
		if !m.fdeleted[i] {
			fs = append(fs, Face(i))
		}
	}
	return fs
}

// VertexHalfedge returns an outgoing halfedge of v, or InvalidHalfedge for an
// isolated vertex. If v is on the boundary, the returned halfedge is a
// boundary halfedge.
func (m *Mesh) VertexHalfedge(v Vertex) Halfedge {
	return m.vconn[v]
}

// FaceHalfedge returns a halfedge bounding f.
func (m *Mesh) FaceHalfedge(f Face) Halfedge {
	return m.fconn[f]
}

// NextHalfedge returns the halfedge following h around its face.
func (m *Mesh) NextHalfedge(h Halfedge) Halfedge {
	return m.hconn[h].next
}

// PrevHalfedge returns the halfedge preceding h around its face.
func (m *Mesh) PrevHalfedge(h Halfedge) Halfedge {
	return m.hconn[h].prev
}

// OppositeHalfedge returns the twin of h.
func (m *Mesh) OppositeHalfedge(h Halfedge) Halfedge {
	return h ^ 1
}

// ToVertex returns the vertex h points to.
func (m *Mesh) ToVertex(h Halfedge) Vertex {
	return m.hconn[h].vertex
}

// FromVertex returns the vertex h starts from.
func (m *Mesh) FromVertex(h Halfedge) Vertex {
	return m.hconn[h^1].vertex
}

// HalfedgeFace returns the face bounded by h, or InvalidFace for a boundary
// halfedge.
func (m *Mesh) HalfedgeFace(h Halfedge) Face {
	return m.hconn[h].face
}

// HalfedgeEdge returns the edge h belongs to.
func (m *Mesh) HalfedgeEdge(h Halfedge) Edge {
	return Edge(h >> 1)
}

// EdgeHalfedge returns halfedge i (0 or 1) of e.
func (m *Mesh) EdgeHalfedge(e Edge, i int) Halfedge {
	return Halfedge(int(e)<<1 + i)
}

// IsBoundaryHalfedge reports whether h has no adjacent face.
func (m *Mesh) IsBoundaryHalfedge(h Halfedge) bool {
	return m.hconn[h].face == InvalidFace
}

// IsBoundaryVertex reports whether v lies on the mesh boundary. Isolated
// vertices count as boundary.
func (m *Mesh) IsBoundaryVertex(v Vertex) bool {
	h := m.vconn[v]
	return h == InvalidHalfedge || m.hconn[h].face == InvalidFace
}

// IsManifold reports whether the faces incident to v form a single connected
// fan, i.e. at most one outgoing halfedge of v is a boundary halfedge.
func (m *Mesh) IsManifold(v Vertex) bool {
	n := 0
	start := m.vconn[v]
	if start == InvalidHalfedge {
		return true
	}
	h := start
	for {
		if m.IsBoundaryHalfedge(h) {
			n++
		}
		h = m.rotateCW(h)
		if h == start {
			break
		}
	}
	return n < 2
}

// FindHalfedge returns the halfedge directed from a to b, or InvalidHalfedge
// if the vertices are not connected by an edge.
func (m *Mesh) FindHalfedge(a, b Vertex) Halfedge {
	start := m.vconn[a]
	if start == InvalidHalfedge {
		return InvalidHalfedge
	}
	h := start
	for {
		if m.hconn[h].vertex == b {
			return h
		}
		h = m.rotateCW(h)
		if h == start {
			break
		}
	}
	return InvalidHalfedge
}

// rotateCW rotates an outgoing halfedge clockwise around its origin vertex.
func (m *Mesh) rotateCW(h Halfedge) Halfedge {
	return m.hconn[h^1].next
}

// FaceDegree returns the number of boundary vertices of f.
func (m *Mesh) FaceDegree(f Face) int {
	n := 0
	start := m.fconn[f]
	h := start
	for {
		n++
		h = m.hconn[h].next
		if h == start {
			break
		}
	}
	return n
}

// FaceVertices returns the boundary vertices of f in halfedge order, starting
// from the vertex the face's first halfedge points to.
func (m *Mesh) FaceVertices(f Face) []Vertex {
	var vs []Vertex
	start := m.fconn[f]
	h := start
	for {
		vs = append(vs, m.hconn[h].vertex)
		h = m.hconn[h].next
		if h == start {
			break
		}
	}
	return vs
}

// IsTriangleMesh reports whether every live face is a triangle.
func (m *Mesh) IsTriangleMesh() bool {
	for i := range m.fconn {
		if m.fdeleted[i] {
			continue
		}
		if m.FaceDegree(Face(i)) != 3 {
			return false
		}
	}
	return true
}

// HasGarbage reports whether deleted elements are awaiting GarbageCollect.
func (m *Mesh) HasGarbage() bool {
	return m.garbage
}

// IsDeletedFace reports whether f has been deleted but not yet collected.
func (m *Mesh) IsDeletedFace(f Face) bool {
	return m.fdeleted[f]
}
