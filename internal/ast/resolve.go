package ast

import (
	"fmt"
	"strings"
)

// DeployedSuffix names the runtime child of a creation object.
const DeployedSuffix = "_deployed"

// Resolve links every object in the tree to its deployed child and
// checks that object and data names are unique within each parent.
// It must run once after parsing and before code generation.
func Resolve(root *Object) error {
	var problems []string
	resolveObject(root, &problems)
	if len(problems) > 0 {
		return fmt.Errorf("invalid object tree: %s", strings.Join(problems, "; "))
	}
	return nil
}

func resolveObject(obj *Object, problems *[]string) {
	seen := make(map[string]bool)
	for _, child := range obj.Objects {
		if seen[child.Name] {
			*problems = append(*problems, fmt.Sprintf("duplicate name %q in object %q", child.Name, obj.Name))
		}
		seen[child.Name] = true
	}
	for _, d := range obj.Data {
		if seen[d.Name] {
			*problems = append(*problems, fmt.Sprintf("duplicate name %q in object %q", d.Name, obj.Name))
		}
		seen[d.Name] = true
	}

	obj.DeployedChild = obj.Child(obj.Name + DeployedSuffix)
	for _, child := range obj.Objects {
		resolveObject(child, problems)
	}
}

// Find returns the first object named name in a depth-first walk of the
// tree rooted at root, and its parent (nil for the root).
func Find(root *Object, name string) (obj, parent *Object) {
	if root.Name == name {
		return root, nil
	}
	for _, child := range root.Objects {
		if child.Name == name {
			return child, root
		}
		if found, p := Find(child, name); found != nil {
			return found, p
		}
	}
	return nil, nil
}

// HasSubContract reports whether obj has children other than its
// deployed child, i.e. whether it can create other contracts.
func HasSubContract(obj *Object) bool {
	for _, child := range obj.Objects {
		if child != obj.DeployedChild {
			return true
		}
	}
	return false
}

// IsDeployed reports whether name is a runtime object name.
func IsDeployed(name string) bool {
	return strings.HasSuffix(name, DeployedSuffix)
}
