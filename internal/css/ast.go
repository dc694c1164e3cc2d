package css

import (
	"bufio"
	"bytes"
	"io"
	"strings"
)

// A Node is a node of a stylesheet's syntax tree.
//
// StyleRule nodes have a SelectorGroup as first child, followed by Declaration,
// VariableAssignment and nested StyleRule nodes. ImportDirective and NamespaceDirective
// nodes are only found at the top level.
type Node struct {
	Type     NodeType
	Data     string //selector text, property name, variable name or namespace alias.
	Value    string //declaration value, variable value, import path or namespace URI.
	Default  bool   //variable assignment with the !default flag.
	Children []*Node

	Start, End int    //byte offsets in the source text.
	File       string //empty for the text passed to Compile.
}

type NodeType uint8

const (
	Stylesheet NodeType = iota + 1
	StyleRule
	SelectorGroup
	SelectorToken
	Declaration
	VariableAssignment
	ImportDirective
	NamespaceDirective
	Comment
)

func (t NodeType) String() string {
	switch t {
	case Stylesheet:
		return "Stylesheet"
	case StyleRule:
		return "StyleRule"
	case SelectorGroup:
		return "SelectorGroup"
	case SelectorToken:
		return "SelectorToken"
	case Declaration:
		return "Declaration"
	case VariableAssignment:
		return "VariableAssignment"
	case ImportDirective:
		return "ImportDirective"
	case NamespaceDirective:
		return "NamespaceDirective"
	case Comment:
		return "Comment"
	default:
		return "InvalidNode"
	}
}

// Selectors returns the selector strings of a StyleRule, nil is returned for other nodes.
func (n *Node) Selectors() []string {
	if n.Type != StyleRule || len(n.Children) == 0 || n.Children[0].Type != SelectorGroup {
		return nil
	}
	var selectors []string
	for _, token := range n.Children[0].Children {
		selectors = append(selectors, token.Data)
	}
	return selectors
}

// HasParentReference reports whether a SelectorToken contains the '&' parent reference.
func (n *Node) HasParentReference() bool {
	return n.Type == SelectorToken && strings.Contains(n.Data, "&")
}

func (n *Node) IsImport() bool {
	return n.Type == ImportDirective
}

func (n *Node) String() string {
	buf := &bytes.Buffer{}
	n.write(buf, 0)

	return buf.String()
}

func (n *Node) WriteTo(w io.Writer) (err error) {

	writer, ok := w.(astStringificationWriter)
	if !ok {
		bufferedWriter := bufio.NewWriter(w)
		writer = bufferedWriter
		defer func() {
			err = bufferedWriter.Flush()
		}()
	}

	n.write(writer, 0)
	return
}

func (n *Node) write(w astStringificationWriter, indent int) {

	for i := 0; i < indent; i++ {
		w.WriteByte(' ')
	}

	switch n.Type {
	case Stylesheet:
		for i, child := range n.Children {
			if i != 0 {
				w.WriteByte('\n')
			}
			child.write(w, indent)
		}
	case StyleRule:
		w.WriteString(strings.Join(n.Selectors(), ", "))
		w.WriteString(" {")

		if len(n.Children) > 1 {
			for _, child := range n.Children[1:] {
				w.WriteByte('\n')
				child.write(w, indent+2)
			}
			w.WriteByte('\n')
			for i := 0; i < indent; i++ {
				w.WriteByte(' ')
			}
		}

		w.WriteString("}")
	case SelectorGroup:
		for i, child := range n.Children {
			if i != 0 {
				w.WriteString(", ")
			}
			child.write(w, 0)
		}
	case Declaration:
		w.WriteString(n.Data)
		w.WriteString(": ")
		w.WriteString(n.Value)
		w.WriteByte(';')
	case VariableAssignment:
		w.WriteByte('$')
		w.WriteString(n.Data)
		w.WriteString(": ")
		w.WriteString(n.Value)
		if n.Default {
			w.WriteString(" !default")
		}
		w.WriteByte(';')
	case ImportDirective:
		w.WriteString(`@import "`)
		w.WriteString(n.Value)
		w.WriteString(`";`)
	case NamespaceDirective:
		w.WriteString("@namespace ")
		if n.Data != "" {
			w.WriteString(n.Data)
			w.WriteByte(' ')
		}
		w.WriteByte('"')
		w.WriteString(n.Value)
		w.WriteString(`";`)
	default:
		w.WriteString(n.Data)
	}
}

type astStringificationWriter interface {
	io.Writer
	WriteByte(byte) error
	WriteString(string) (int, error)
}
