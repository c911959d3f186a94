package ast

import (
	"strings"
	"testing"
)

func tree() *Object {
	inner := &Object{Name: "Inner", Code: &Block{}}
	innerDeployed := &Object{Name: "Inner_deployed", Code: &Block{}}
	inner.Objects = []*Object{innerDeployed}

	deployed := &Object{Name: "Outer_deployed", Code: &Block{}, Objects: []*Object{inner}}
	return &Object{
		Name:    "Outer",
		Code:    &Block{},
		Objects: []*Object{deployed},
		Data:    []*Data{{Name: ".metadata", Value: []byte{1, 2}}},
	}
}

func TestResolveLinksDeployedChildren(t *testing.T) {
	root := tree()
	if err := Resolve(root); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if root.DeployedChild == nil || root.DeployedChild.Name != "Outer_deployed" {
		t.Fatalf("expected Outer_deployed, got %v", root.DeployedChild)
	}
	inner := root.DeployedChild.Child("Inner")
	if inner.DeployedChild == nil || inner.DeployedChild.Name != "Inner_deployed" {
		t.Errorf("expected Inner_deployed link")
	}
	if root.DeployedChild.DeployedChild != nil {
		t.Errorf("runtime object should not have a deployed child")
	}
}

func TestResolveRejectsDuplicates(t *testing.T) {
	root := tree()
	root.Data = append(root.Data, &Data{Name: "Outer_deployed"})
	err := Resolve(root)
	if err == nil {
		t.Fatal("expected duplicate name error")
	}
	if !strings.Contains(err.Error(), `duplicate name "Outer_deployed"`) {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestFind(t *testing.T) {
	root := tree()
	if err := Resolve(root); err != nil {
		t.Fatal(err)
	}
	obj, parent := Find(root, "Inner_deployed")
	if obj == nil || parent == nil || parent.Name != "Inner" {
		t.Fatalf("expected Inner_deployed under Inner, got %v %v", obj, parent)
	}
	if obj, _ := Find(root, "Missing"); obj != nil {
		t.Errorf("expected nil for missing object")
	}
	if obj, parent := Find(root, "Outer"); obj != root || parent != nil {
		t.Errorf("expected root with nil parent")
	}
}

func TestHasSubContract(t *testing.T) {
	root := tree()
	if err := Resolve(root); err != nil {
		t.Fatal(err)
	}
	if HasSubContract(root) {
		t.Errorf("Outer only has its deployed child")
	}
	if !HasSubContract(root.DeployedChild) {
		t.Errorf("Outer_deployed embeds Inner")
	}
}

func TestPrint(t *testing.T) {
	fn := &FunctionDef{
		Name:    "f",
		Params:  []*TypedName{{Name: "a"}},
		Returns: []*TypedName{{Name: "r", Type: "u256"}},
		Body: &Block{Statements: []Statement{
			&Assignment{Targets: []*Identifier{{Name: "r"}}, Value: &Call{Name: "add", Args: []Expression{
				&Identifier{Name: "a"}, &Literal{Kind: NumberLit, Value: "1"},
			}}},
		}},
	}
	obj := &Object{Name: "C", Code: &Block{Statements: []Statement{fn}}}
	out := Print(obj)
	for _, want := range []string{"Object: C", "Function: f(a) -> r:u256", "Assign: r", "Call: add", "Literal: 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}
