package nav

import (
	"fmt"
	"strings"

	"site-crawler/pkg/models"
)

const (
	indentPrefix    = "    "
	entryPrefix     = "├── "
	lastEntryPrefix = "└── "
	verticalLine    = "│   "
)

// TreeNode is one node of the path-segment navigation tree. Interior nodes
// exist for every path prefix; nodes a harvested anchor points at carry its
// URL and link text.
type TreeNode struct {
	Segment  string      `json:"segment"`
	URL      string      `json:"url,omitempty"`
	Text     string      `json:"text,omitempty"`
	Children []*TreeNode `json:"children,omitempty"`
}

// BuildTree folds anchors into a tree keyed by host then path segments.
// Children keep the order their segments were first created in, so the tree
// mirrors the order links were encountered. Returns nil for an empty link
// set.
func BuildTree(links []models.Anchor) *TreeNode {
	if len(links) == 0 {
		return nil
	}

	root := &TreeNode{Segment: "/"}
	for _, link := range links {
		host, segments := hostAndSegments(link.NormalizedURL)
		node := root.child(host)
		for _, seg := range segments {
			node = node.child(seg)
		}
		// First anchor for a path wins, matching link dedup.
		if node.URL == "" {
			node.URL = link.URL
			node.Text = link.Text
		}
	}
	return root
}

func (n *TreeNode) child(segment string) *TreeNode {
	for _, c := range n.Children {
		if c.Segment == segment {
			return c
		}
	}
	c := &TreeNode{Segment: segment}
	n.Children = append(n.Children, c)
	return c
}

// RenderMarkdown renders the report as a markdown document with the link
// totals and a text tree of the navigation structure.
func RenderMarkdown(r Report) string {
	var b strings.Builder
	b.WriteString("# Navigation Report\n\n")
	fmt.Fprintf(&b, "Seed: %s\n\n", r.SeedURL)
	fmt.Fprintf(&b, "- Pages crawled: %d\n", r.TotalPages)
	fmt.Fprintf(&b, "- Pages with navigation: %d\n", r.PagesWithNav)
	fmt.Fprintf(&b, "- Unique navigation links: %d\n\n", len(r.Links))

	if r.Tree != nil {
		b.WriteString("## Structure\n\n```\n")
		for i, host := range r.Tree.Children {
			writeTreeNode(&b, host, "", i == len(r.Tree.Children)-1, true)
		}
		b.WriteString("```\n\n")
	}

	if len(r.Links) > 0 {
		b.WriteString("## Links\n\n")
		for _, link := range r.Links {
			fmt.Fprintf(&b, "%s- [%s](%s)\n", strings.Repeat("  ", link.Level), link.Text, link.URL)
		}
	}
	return b.String()
}

func writeTreeNode(b *strings.Builder, n *TreeNode, indent string, isLast, isRoot bool) {
	label := n.Segment
	if n.Text != "" {
		label = fmt.Sprintf("%s (%s)", n.Segment, n.Text)
	}

	if isRoot {
		fmt.Fprintf(b, "%s/\n", label)
	} else {
		connector := entryPrefix
		if isLast {
			connector = lastEntryPrefix
		}
		fmt.Fprintf(b, "%s%s%s\n", indent, connector, label)
	}

	nextIndent := indent
	if !isRoot {
		if isLast {
			nextIndent += indentPrefix
		} else {
			nextIndent += verticalLine
		}
	}
	for i, c := range n.Children {
		writeTreeNode(b, c, nextIndent, i == len(n.Children)-1, false)
	}
}
