package router

import (
	"fmt"
	"path"
	"strings"
)

type routeNode struct {
	segment string

	paramChild    *routeNode
	catchAllChild *routeNode

	// paramName and paramType describe a :param or *wildcard node.
	paramName string
	paramType string

	children []*routeNode

	handler Handler
	pattern string
}

func (n *routeNode) findChild(segment string) *routeNode {
	for _, child := range n.children {
		if child.segment == segment {
			return child
		}
	}
	return nil
}

func (n *routeNode) addChild(segment string) *routeNode {
	if child := n.findChild(segment); child != nil {
		return child
	}
	child := &routeNode{segment: segment}
	n.children = append(n.children, child)
	return child
}

func (n *routeNode) addParamChild(name, paramType string) (*routeNode, error) {
	if n.paramChild != nil {
		if n.paramChild.paramName != name || n.paramChild.paramType != paramType {
			return nil, fmt.Errorf("parameter :%s conflicts with :%s", name, n.paramChild.paramName)
		}
		return n.paramChild, nil
	}
	n.paramChild = &routeNode{paramName: name, paramType: paramType}
	return n.paramChild, nil
}

func (n *routeNode) addCatchAllChild(name string) (*routeNode, error) {
	if n.catchAllChild != nil {
		if n.catchAllChild.paramName != name {
			return nil, fmt.Errorf("wildcard *%s conflicts with *%s", name, n.catchAllChild.paramName)
		}
		return n.catchAllChild, nil
	}
	n.catchAllChild = &routeNode{paramName: name}
	return n.catchAllChild, nil
}

// insert returns the node for pattern, creating the path as needed.
func (n *routeNode) insert(pattern string) (*routeNode, error) {
	segments := splitPath(pattern)
	current := n
	var err error
	for i, seg := range segments {
		switch {
		case strings.HasPrefix(seg, "*"):
			if i != len(segments)-1 {
				return nil, fmt.Errorf("wildcard %q must be the last segment", seg)
			}
			if len(seg) == 1 {
				return nil, fmt.Errorf("wildcard needs a name")
			}
			current, err = current.addCatchAllChild(seg[1:])
		case strings.HasPrefix(seg, ":"):
			name, paramType := parseParamSegment(seg)
			if name == "" {
				return nil, fmt.Errorf("parameter needs a name")
			}
			if !knownParamType(paramType) {
				return nil, fmt.Errorf("parameter :%s has unknown type %q", name, paramType)
			}
			current, err = current.addParamChild(name, paramType)
		default:
			current = current.addChild(seg)
		}
		if err != nil {
			return nil, err
		}
	}
	return current, nil
}

// match walks segments depth-first: exact, then parameter, then wildcard.
// params is filled along the successful branch only.
func (n *routeNode) match(segments []string, params Params) *routeNode {
	if len(segments) == 0 {
		if n.handler != nil {
			return n
		}
		// An empty wildcard still matches "/files/".
		if c := n.catchAllChild; c != nil && c.handler != nil {
			params[c.paramName] = ""
			return c
		}
		return nil
	}

	segment, remaining := segments[0], segments[1:]

	if child := n.findChild(segment); child != nil {
		if found := child.match(remaining, params); found != nil {
			return found
		}
	}

	if c := n.paramChild; c != nil && ValidateParam(segment, c.paramType) == nil {
		params[c.paramName] = segment
		if found := c.match(remaining, params); found != nil {
			return found
		}
		delete(params, c.paramName)
	}

	if c := n.catchAllChild; c != nil && c.handler != nil {
		params[c.paramName] = strings.Join(segments, "/")
		return c
	}
	return nil
}

// splitPath cleans p and splits it into segments.
func splitPath(p string) []string {
	p = strings.Trim(path.Clean("/"+p), "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// parseParamSegment splits ":id" or ":id:int" into name and type.
func parseParamSegment(seg string) (name, paramType string) {
	seg = seg[1:]
	if idx := strings.Index(seg, ":"); idx != -1 {
		return seg[:idx], seg[idx+1:]
	}
	return seg, "string"
}
