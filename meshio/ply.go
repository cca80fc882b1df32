// Package meshio reads and writes halfedge meshes in the PLY polygon format.
package meshio

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/chenzhekl/goply"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"github.com/meshtools/surface/mesh"
)

// ReadPLY builds a mesh from PLY data. Faces of any degree are accepted.
func ReadPLY(in io.Reader) (m *mesh.Mesh, err error) {
	// goply panics on malformed input and unexpected property types
	defer func() {
		if r := recover(); r != nil {
			m = nil
			err = errors.Errorf("invalid PLY data: %v", r)
		}
	}()

	ply := goply.New(in)
	vertices := ply.Elements("vertex")
	faces := ply.Elements("face")

	m = mesh.New()
	handles := make([]mesh.Vertex, 0, len(vertices))
	for _, vertex := range vertices {
		handles = append(handles, m.AddVertex(r3.Vector{
			X: toFloat64(vertex["x"]),
			Y: toFloat64(vertex["y"]),
			Z: toFloat64(vertex["z"]),
		}))
	}

	for i, face := range faces {
		indices, ok := face["vertex_indices"]
		if !ok {
			indices = face["vertex_index"]
		}
		corners := toIntSlice(indices)
		if len(corners) < 3 {
			return nil, errors.Errorf("face %d has %d vertices", i, len(corners))
		}
		vs := make([]mesh.Vertex, 0, len(corners))
		for _, c := range corners {
			if c < 0 || c >= len(handles) {
				return nil, errors.Errorf("face %d references vertex %d, have %d", i, c, len(handles))
			}
			vs = append(vs, handles[c])
		}
		if _, err := m.AddFace(vs...); err != nil {
			return nil, errors.Wrapf(err, "face %d", i)
		}
	}
	return m, nil
}

// ReadPLYFile builds a mesh from a PLY file.
func ReadPLYFile(path string) (*mesh.Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(f.Close)
	return ReadPLY(f)
}

// WritePLY writes the mesh in ascii PLY. Deleted elements are skipped and
// vertex indices are compacted.
func WritePLY(out io.Writer, m *mesh.Mesh) error {
	w := bufio.NewWriter(out)

	fmt.Fprintln(w, "ply")
	fmt.Fprintln(w, "format ascii 1.0")
	fmt.Fprintf(w, "element vertex %d\n", m.VertexCount())
	fmt.Fprintln(w, "property double x")
	fmt.Fprintln(w, "property double y")
	fmt.Fprintln(w, "property double z")
	fmt.Fprintf(w, "element face %d\n", m.FaceCount())
	fmt.Fprintln(w, "property list uchar int vertex_indices")
	fmt.Fprintln(w, "end_header")

	index := make(map[mesh.Vertex]int, m.VertexCount())
	for i, v := range m.Vertices() {
		index[v] = i
		p := m.Position(v)
		fmt.Fprintf(w, "%g %g %g\n", p.X, p.Y, p.Z)
	}
	for _, f := range m.Faces() {
		vs := m.FaceVertices(f)
		fmt.Fprintf(w, "%d", len(vs))
		for _, v := range vs {
			fmt.Fprintf(w, " %d", index[v])
		}
		fmt.Fprintln(w)
	}
	return w.Flush()
}

// WritePLYFile writes the mesh to a PLY file.
func WritePLYFile(path string, m *mesh.Mesh) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	return WritePLY(f, m)
}

// toFloat64 normalizes the numeric types goply hands back for scalar
// properties.
func toFloat64(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	default:
		panic(fmt.Sprintf("not a number: %T", v))
	}
}

func toInt(v interface{}) int {
	return int(toFloat64(v))
}

// toIntSlice normalizes a PLY list property into indices.
func toIntSlice(v interface{}) []int {
	switch s := v.(type) {
	case []interface{}:
		out := make([]int, 0, len(s))
		for _, e := range s {
			out = append(out, toInt(e))
		}
		return out
	case []int:
		return s
	case []int32:
		out := make([]int, 0, len(s))
		for _, e := range s {
			out = append(out, int(e))
		}
		return out
	case []uint32:
		out := make([]int, 0, len(s))
		for _, e := range s {
			out = append(out, int(e))
		}
		return out
	default:
		panic(fmt.Sprintf("not an index list: %T", v))
	}
}
