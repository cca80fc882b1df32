package meshio

import (
	"bytes"
	"strings"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/meshtools/surface/mesh"
)

const quadPLY = `ply
format ascii 1.0
element vertex 4
property double x
property double y
property double z
element face 1
property list uchar int vertex_indices
end_header
0 0 0
1 0 0
1 1 0
0 1 0
4 0 1 2 3
`

func TestReadPLY(t *testing.T) {
	m, err := ReadPLY(strings.NewReader(quadPLY))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.VertexCount(), test.ShouldEqual, 4)
	test.That(t, m.FaceCount(), test.ShouldEqual, 1)
	test.That(t, m.EdgeCount(), test.ShouldEqual, 4)

	fs := m.Faces()
	test.That(t, m.FaceDegree(fs[0]), test.ShouldEqual, 4)
	test.That(t, m.Position(m.Vertices()[2]), test.ShouldResemble, r3.Vector{X: 1, Y: 1, Z: 0})
}

func TestReadPLYBadIndex(t *testing.T) {
	data := strings.Replace(quadPLY, "4 0 1 2 3", "4 0 1 2 9", 1)
	_, err := ReadPLY(strings.NewReader(data))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "references vertex")
}

func TestWriteReadRoundTrip(t *testing.T) {
	m := mesh.New()
	vs := []mesh.Vertex{
		m.AddVertex(r3.Vector{X: 0, Y: 0, Z: 0}),
		m.AddVertex(r3.Vector{X: 1, Y: 0, Z: 0}),
		m.AddVertex(r3.Vector{X: 1, Y: 1, Z: 0.5}),
		m.AddVertex(r3.Vector{X: 0, Y: 1, Z: 0}),
		m.AddVertex(r3.Vector{X: 2, Y: 0.5, Z: 0}),
	}
	_, err := m.AddFace(vs[0], vs[1], vs[2], vs[3])
	test.That(t, err, test.ShouldBeNil)
	_, err = m.AddTriangle(vs[1], vs[4], vs[2])
	test.That(t, err, test.ShouldBeNil)

	var buf bytes.Buffer
	test.That(t, WritePLY(&buf, m), test.ShouldBeNil)

	m2, err := ReadPLY(&buf)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m2.VertexCount(), test.ShouldEqual, m.VertexCount())
	test.That(t, m2.FaceCount(), test.ShouldEqual, m.FaceCount())
	test.That(t, m2.EdgeCount(), test.ShouldEqual, m.EdgeCount())

	v1 := m.Vertices()
	v2 := m2.Vertices()
	for i := range v1 {
		test.That(t, m2.Position(v2[i]), test.ShouldResemble, m.Position(v1[i]))
	}

	f1 := m.Faces()
	f2 := m2.Faces()
	for i := range f1 {
		test.That(t, m2.FaceDegree(f2[i]), test.ShouldEqual, m.FaceDegree(f1[i]))
	}
}
