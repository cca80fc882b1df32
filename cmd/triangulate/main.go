// Package main is a command that triangulates all faces of a PLY mesh.
package main

import (
	"flag"
	"os"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/meshtools/surface/meshio"
	"github.com/meshtools/surface/triangulate"
)

var logger = golog.NewDevelopmentLogger("triangulate")

func main() {
	if err := realMain(os.Args[1:]); err != nil {
		logger.Fatal(err)
	}
}

func realMain(args []string) error {
	flagSet := flag.NewFlagSet("triangulate", flag.ContinueOnError)
	out := flagSet.String("out", "", "output PLY file (defaults to overwriting the input)")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if flagSet.NArg() != 1 {
		return errors.New("need a PLY file to triangulate")
	}
	in := flagSet.Arg(0)
	if *out == "" {
		*out = in
	}

	m, err := meshio.ReadPLYFile(in)
	if err != nil {
		return err
	}
	logger.Infof("read %q: %d vertices, %d faces", in, m.VertexCount(), m.FaceCount())

	if err := triangulate.New(m, logger).TriangulateMesh(); err != nil {
		logger.Warnw("some faces were left untriangulated", "error", err)
	}
	logger.Infof("triangle mesh: %t (%d faces, %d edges)", m.IsTriangleMesh(), m.FaceCount(), m.EdgeCount())

	return meshio.WritePLYFile(*out, m)
}
