package csvload

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const nodesCSV = "node_id,node_name,child_nodes,leaf_node,tolorg_link,extinct,confidence,phylesis\n" +
	"1,Life on Earth,2,0,1,0,0,0\n" +
	"2,Eukaryotes,1,0,1,0,0,0\n" +
	"3,Bacteria,0,1,1,0,0,0\n" +
	"4,Dodo,0,1,0,1,2,0\n"

const linksCSV = "source_node_id,target_node_id\n" +
	"1,3\n" +
	"1,2\n" +
	"2,4\n"

func TestLoader_BuildsTree(t *testing.T) {
	l := NewLoader()
	if err := l.LoadNodes(strings.NewReader(nodesCSV)); err != nil {
		t.Fatalf("nodes err=%v", err)
	}
	if err := l.LoadLinks(strings.NewReader(linksCSV)); err != nil {
		t.Fatalf("links err=%v", err)
	}
	root, err := l.Root()
	if err != nil {
		t.Fatalf("root err=%v", err)
	}
	if root.ID != 1 || root.Name != "Life on Earth" || l.Len() != 4 {
		t.Fatalf("root=%+v len=%d", root.Data(), l.Len())
	}
	c := root.Children()
	if len(c) != 2 || c[0].ID != 3 || c[1].ID != 2 {
		t.Fatalf("children should follow link order: %v", c)
	}
	dodo := root.Find(4)
	if dodo == nil || !dodo.Extinct || dodo.Confidence != 2 || dodo.Parent().ID != 2 {
		t.Fatalf("dodo=%+v", dodo)
	}
}

func TestLoader_BOMAndFiles(t *testing.T) {
	dir := t.TempDir()
	nodes := filepath.Join(dir, "nodes.csv")
	links := filepath.Join(dir, "links.csv")
	if err := os.WriteFile(nodes, []byte("\ufeff"+nodesCSV), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(links, []byte(linksCSV), 0o600); err != nil {
		t.Fatal(err)
	}

	l := NewLoader()
	if err := l.LoadNodesFile(nodes); err != nil {
		t.Fatalf("err=%v", err)
	}
	if err := l.LoadLinksFile(links); err != nil {
		t.Fatalf("err=%v", err)
	}
	if _, err := l.Root(); err != nil {
		t.Fatalf("err=%v", err)
	}
	if err := l.LoadNodesFile(filepath.Join(dir, "missing.csv")); err == nil {
		t.Fatal("expected missing file error")
	}
}

func TestLoader_Errors(t *testing.T) {
	load := func(t *testing.T, links string) error {
		t.Helper()
		l := NewLoader()
		if err := l.LoadNodes(strings.NewReader(nodesCSV)); err != nil {
			t.Fatalf("nodes err=%v", err)
		}
		return l.LoadLinks(strings.NewReader(links))
	}

	if err := load(t, "source_node_id,target_node_id\n1,99\n"); !errors.Is(err, ErrUnknownNode) {
		t.Fatalf("unknown err=%v", err)
	}
	if err := load(t, "source_node_id,target_node_id\n1,2\n3,2\n"); !errors.Is(err, ErrMultipleParents) {
		t.Fatalf("multiple parents err=%v", err)
	}
	if err := load(t, "source_node_id,target_node_id\n1,2\n2,4\n4,1\n"); !errors.Is(err, ErrCycle) {
		t.Fatalf("cycle err=%v", err)
	}
	if err := load(t, "source,target\n1,2\n"); !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("missing column err=%v", err)
	}
	if err := load(t, "source_node_id,target_node_id\nx,2\n"); err == nil {
		t.Fatal("expected bad id error")
	}
}

func TestLoader_NodeErrors(t *testing.T) {
	cases := map[string]string{
		"duplicate":  "node_id,node_name,extinct,confidence\n1,a,0,0\n1,b,0,0\n",
		"confidence": "node_id,node_name,extinct,confidence\n1,a,0,-1\n",
		"extinct":    "node_id,node_name,extinct,confidence\n1,a,maybe,0\n",
		"id":         "node_id,node_name,extinct,confidence\n0,a,0,0\n",
	}
	for name, in := range cases {
		if err := NewLoader().LoadNodes(strings.NewReader(in)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoader_RootRequiresExactlyOne(t *testing.T) {
	l := NewLoader()
	if _, err := l.Root(); !errors.Is(err, ErrNoSingleRoot) {
		t.Fatalf("empty err=%v", err)
	}
	if err := l.LoadNodes(strings.NewReader(nodesCSV)); err != nil {
		t.Fatal(err)
	}
	if err := l.LoadLinks(strings.NewReader("source_node_id,target_node_id\n1,2\n")); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Root(); !errors.Is(err, ErrNoSingleRoot) {
		t.Fatalf("forest err=%v", err)
	}
}
