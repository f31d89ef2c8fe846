package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mdl2obj/internal/mdl"
)

func TestLayoutString(t *testing.T) {
	tests := map[mdl.Layout]string{
		0: "position+index16",
		mdl.LayoutNormals | mdl.LayoutUVs: "position+normal+uv+index16",
		mdl.LayoutOneBased | mdl.LayoutIndex32: "position+one-based+index32",
	}
	for in, want := range tests {
		if got := layoutString(in); got != want {
			t.Errorf("layoutString(%#x) = %q, want %q", uint16(in), got, want)
		}
	}
}

func TestStem(t *testing.T) {
	if got := stem(filepath.Join("a", "lod_0.obj")); got != "lod_0" {
		t.Fatalf("stem = %q", got)
	}
}

func TestPackRoundTrip(t *testing.T) {
	dir := t.TempDir()
	objPath := filepath.Join(dir, "body.obj")
	src := "v 0 0 0\nv 1 0 0\nv 1 1 0\nv 0 1 0\nf 1 2 3 4\n"
	if err := os.WriteFile(objPath, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := readOBJ(objPath)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	m.Layout |= mdl.LayoutOneBased

	out := filepath.Join(dir, "body.mdl")
	if err := writeMDL(out, []mdl.Source{{Name: stem(objPath), Mesh: m}}); err != nil {
		t.Fatalf("write: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	f, err := mdl.Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	got := f.LODs[0]
	if got.Name != "body" || got.Mesh().Arity != 4 || !got.Header.Layout.OneBased() {
		t.Fatalf("unexpected LOD: name=%q header=%+v", got.Name, got.Header)
	}
	if face := got.Mesh().Faces[0]; face[0] != 0 || face[3] != 3 {
		t.Fatalf("face = %v, want 0-based [0 1 2 3]", face)
	}
}

func TestReadOBJRejectsWideFaces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wide.obj")

	n := mdl.DefaultLimits.MaxArity + 1
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "v %d 0 0\n", i)
	}
	b.WriteString("f")
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, " %d", i)
	}
	b.WriteString("\n")
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := readOBJ(path); err == nil {
		t.Fatalf("accepted %d-corner faces", n)
	}
}

func TestReadOBJMissing(t *testing.T) {
	if _, err := readOBJ(filepath.Join(t.TempDir(), "nope.obj")); err == nil {
		t.Fatal("expected error")
	}
}
