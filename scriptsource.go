package mv2

import (
	"strconv"

	"github.com/beevik/etree"
)

// scriptsource.go - hides the XML DOM's pointer graph behind a narrow trait so
// the compiler never walks etree.Element pointers directly. Grounded on
// spec.md section 9's Design Notes, which calls for exactly this shape; the
// original CHostScript.cpp instead walks TiXmlElement* directly; we give that
// traversal a seam here rather than carry raw DOM pointers into compiler.go.

// Node is an opaque handle to one script element (a command or a loop).
// Concrete ScriptSource implementations decide what it actually points to.
type Node interface {
	// Tag reports "command" or "loop".
	Tag() string
}

// ScriptSource is the minimal surface the compiler needs from a parsed script,
// independent of which XML library or pre-parsed tree produced it.
type ScriptSource interface {
	// Sections returns the top-level section names present, in document order.
	// spec.md section 4.D names exactly "initialization" and "measurement".
	Sections() []string

	// Repeat returns the section's repeat attribute, or -1 if absent.
	Repeat(section string) int

	// CommandsOf returns the ordered top-level nodes (commands and loops) of
	// a named section.
	CommandsOf(section string) []Node

	// LoopChildren returns the ordered command nodes nested inside a loop
	// node. The caller is responsible for rejecting nested loops; a
	// ScriptSource implementation may itself contain loop nodes here and it
	// is the compiler's job to reject them.
	LoopChildren(n Node) []Node

	// Attr looks up a named attribute on a node, reporting whether it was
	// present at all (distinguishing "absent" from "empty string").
	Attr(n Node, name string) (string, bool)
}

// etreeNode wraps an *etree.Element to satisfy Node.
type etreeNode struct {
	el *etree.Element
}

func (n etreeNode) Tag() string { return n.el.Tag }

// EtreeScriptSource is a ScriptSource backed by github.com/beevik/etree, the
// DOM library this module uses for both script parsing and record writing.
type EtreeScriptSource struct {
	doc *etree.Document
}

// LoadScript parses an XML measurement script from a file path into a
// ScriptSource. Schema validation against the accompanying .xsd is out of
// scope (spec.md's Non-goals); only well-formedness is checked here.
func LoadScript(path string) (*EtreeScriptSource, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(path); err != nil {
		return nil, wrapErr(ErrBadScript, "parse "+path, err)
	}
	return &EtreeScriptSource{doc: doc}, nil
}

func (s *EtreeScriptSource) root() *etree.Element {
	return s.doc.Root()
}

func (s *EtreeScriptSource) Sections() []string {
	root := s.root()
	if root == nil {
		return nil
	}
	var names []string
	for _, child := range root.ChildElements() {
		names = append(names, child.Tag)
	}
	return names
}

func (s *EtreeScriptSource) section(name string) *etree.Element {
	root := s.root()
	if root == nil {
		return nil
	}
	return root.SelectElement(name)
}

func (s *EtreeScriptSource) Repeat(section string) int {
	el := s.section(section)
	if el == nil {
		return -1
	}
	attr := el.SelectAttr("repeat")
	if attr == nil {
		return -1
	}
	return parseIntAttr(attr.Value, -1)
}

func (s *EtreeScriptSource) CommandsOf(section string) []Node {
	el := s.section(section)
	if el == nil {
		return nil
	}
	return wrapChildren(el)
}

func (s *EtreeScriptSource) LoopChildren(n Node) []Node {
	en, ok := n.(etreeNode)
	if !ok {
		return nil
	}
	return wrapChildren(en.el)
}

func (s *EtreeScriptSource) Attr(n Node, name string) (string, bool) {
	en, ok := n.(etreeNode)
	if !ok {
		return "", false
	}
	attr := en.el.SelectAttr(name)
	if attr == nil {
		return "", false
	}
	return attr.Value, true
}

func wrapChildren(el *etree.Element) []Node {
	children := el.ChildElements()
	if len(children) == 0 {
		return nil
	}
	nodes := make([]Node, len(children))
	for i, c := range children {
		nodes[i] = etreeNode{el: c}
	}
	return nodes
}

func parseIntAttr(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}
