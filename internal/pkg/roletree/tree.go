// internal/pkg/roletree/tree.go

// Package roletree maps request paths and methods onto the role
// requirements that gate them, using a static tree loaded once at startup.
// The tree is never mutated after load and is safe for concurrent reads.
package roletree

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// RoleRef names one role within one authority (tenant namespace).
type RoleRef struct {
	AuthorityID string `json:"authId"`
	RoleID      int64  `json:"roleId"`
}

// Node represents one URL path segment. Roles attached to a non-leaf node act
// as route-group requirements inherited by every descendant.
type Node struct {
	Path     string    `json:"path"`
	Method   string    `json:"method,omitempty"`
	Roles    []RoleRef `json:"roles,omitempty"`
	Children []*Node   `json:"children,omitempty"`
}

// Requirement is the resolved per-authority role demand for a route.
type Requirement struct {
	AuthorityID string
	RoleIDs     []int64
}

// Tree is the process-wide role tree.
type Tree struct {
	root *Node
}

// New builds a tree from an already-decoded root node. A nil root behaves as
// an empty tree: every path resolves to no requirements.
func New(root *Node) *Tree {
	if root == nil {
		root = &Node{Path: "/"}
	}
	return &Tree{root: root}
}

// Load reads the tree configuration from a JSON file.
func Load(path string) (*Tree, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read role tree: %w", err)
	}

	var root Node
	if err := json.Unmarshal(b, &root); err != nil {
		return nil, fmt.Errorf("failed to decode role tree: %w", err)
	}

	return New(&root), nil
}

// Resolve walks the tree along the path segments and returns the accumulated
// role requirements grouped by authority, plus whether the full path matched
// a tree node. Requirements accumulate additively down the matched prefix:
// a segment with no matching child truncates descent but ancestor
// requirements still apply. A method constraint on the final node that does
// not match the request discards the whole result, leaving the route
// unrestricted for that method.
func (t *Tree) Resolve(path, method string) ([]Requirement, bool) {
	segments := splitPath(path)

	node := t.root
	var collected []RoleRef
	exact := true

	for _, seg := range segments {
		collected = append(collected, node.Roles...)

		child := matchChild(node, seg)
		if child == nil {
			exact = false
			break
		}
		node = child
	}

	if node.Method != "" && !strings.EqualFold(node.Method, method) {
		return nil, exact
	}

	collected = append(collected, node.Roles...)

	return group(collected), exact
}

func splitPath(path string) []string {
	var segments []string
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	return segments
}

// matchChild compares child paths without regard to a leading separator.
func matchChild(node *Node, segment string) *Node {
	for _, child := range node.Children {
		if strings.TrimPrefix(child.Path, "/") == segment {
			return child
		}
	}
	return nil
}

// group buckets role refs by authority, deduplicating role ids and keeping
// first-seen authority order.
func group(refs []RoleRef) []Requirement {
	if len(refs) == 0 {
		return nil
	}

	index := make(map[string]int)
	seen := make(map[RoleRef]struct{})
	var out []Requirement

	for _, ref := range refs {
		i, ok := index[ref.AuthorityID]
		if !ok {
			i = len(out)
			index[ref.AuthorityID] = i
			out = append(out, Requirement{AuthorityID: ref.AuthorityID})
		}
		if _, dup := seen[ref]; dup {
			continue
		}
		seen[ref] = struct{}{}
		out[i].RoleIDs = append(out[i].RoleIDs, ref.RoleID)
	}

	return out
}
