package render

import (
	"sort"
	"strconv"
	"text/template"
	"text/template/parse"

	"github.com/lexandro/promptattach/optimize"
)

const (
	refFunc      = "attachRef"
	contentField = "Content"
)

// rewriter walks parsed templates and appends `| attachRef "<id>"` to every
// action that prints the content of an attachment.
type rewriter struct {
	aliases map[string]bool
	refs    []optimize.Reference
	nextID  int
}

// rewrite annotates every tree of tmpl. Trees are visited in a fixed order so
// reference IDs are stable across runs.
func (r *rewriter) rewrite(tmpl *template.Template) {
	loopCalls := calledInLoop(tmpl)

	var names []string
	for _, t := range tmpl.Templates() {
		if t.Tree != nil && t.Name() != tmpl.Name() {
			names = append(names, t.Name())
		}
	}
	sort.Strings(names)
	names = append([]string{tmpl.Name()}, names...)

	for _, name := range names {
		t := tmpl.Lookup(name)
		if t == nil || t.Tree == nil || t.Tree.Root == nil {
			continue
		}
		r.walk(t.Tree, t.Tree.Root, scope{loop: loopCalls[name]})
	}
}

// scope carries what the walker knows about the current position.
type scope struct {
	loop bool
	// dotAlias is the alias that dot refers to inside range/with over an
	// attachment, so {{ .Content }} in {{ range .src }} is still traced.
	dotAlias string
}

func (r *rewriter) walk(tree *parse.Tree, node parse.Node, sc scope) {
	switch n := node.(type) {
	case *parse.ListNode:
		if n == nil {
			return
		}
		for _, child := range n.Nodes {
			r.walk(tree, child, sc)
		}
	case *parse.ActionNode:
		r.annotate(tree, n, sc)
	case *parse.IfNode:
		r.walk(tree, n.List, sc)
		r.walk(tree, n.ElseList, sc)
	case *parse.WithNode:
		inner := sc
		if alias := r.pipeAlias(n.Pipe, sc); alias != "" {
			inner.dotAlias = alias
		}
		r.walk(tree, n.List, inner)
		r.walk(tree, n.ElseList, sc)
	case *parse.RangeNode:
		inner := scope{loop: true, dotAlias: r.pipeAlias(n.Pipe, sc)}
		r.walk(tree, n.List, inner)
		r.walk(tree, n.ElseList, sc)
	}
}

// annotate appends the reference hook to an action that prints attachment
// content. Assignments are left alone; they do not print.
func (r *rewriter) annotate(tree *parse.Tree, action *parse.ActionNode, sc scope) {
	pipe := action.Pipe
	if pipe == nil || len(pipe.Decl) > 0 || len(pipe.Cmds) == 0 {
		return
	}
	alias := ""
	for _, cmd := range pipe.Cmds {
		for _, arg := range cmd.Args {
			if a := r.contentAlias(arg, sc); a != "" {
				alias = a
				break
			}
		}
		if alias != "" {
			break
		}
	}
	if alias == "" {
		return
	}

	r.nextID++
	id := r.nextID
	r.refs = append(r.refs, optimize.Reference{ID: id, Alias: alias, Label: alias, UsedInLoop: sc.loop})

	fn := parse.NewIdentifier(refFunc).SetTree(tree).SetPos(action.Pos)
	text := strconv.Itoa(id)
	arg := &parse.StringNode{NodeType: parse.NodeString, Pos: action.Pos, Quoted: strconv.Quote(text), Text: text}
	pipe.Cmds = append(pipe.Cmds, &parse.CommandNode{
		NodeType: parse.NodeCommand,
		Pos:      action.Pos,
		Args:     []parse.Node{fn, arg},
	})
}

// contentAlias returns the alias whose content node n prints, or "".
// Recognized forms: .alias.Content, .alias.First.Content, $.alias.Content,
// .Content under range/with over an alias, and (expr).Content where expr
// mentions an alias.
func (r *rewriter) contentAlias(n parse.Node, sc scope) string {
	switch n := n.(type) {
	case *parse.FieldNode:
		return r.identAlias(n.Ident, sc)
	case *parse.VariableNode:
		if len(n.Ident) > 1 && n.Ident[0] == "$" {
			return r.identAlias(n.Ident[1:], scope{})
		}
	case *parse.ChainNode:
		if len(n.Field) > 0 && n.Field[len(n.Field)-1] == contentField {
			if p, ok := n.Node.(*parse.PipeNode); ok {
				return r.pipeAlias(p, sc)
			}
		}
	case *parse.PipeNode:
		for _, cmd := range n.Cmds {
			for _, arg := range cmd.Args {
				if a := r.contentAlias(arg, sc); a != "" {
					return a
				}
			}
		}
	}
	return ""
}

func (r *rewriter) identAlias(ident []string, sc scope) string {
	if len(ident) == 0 || ident[len(ident)-1] != contentField {
		return ""
	}
	if len(ident) >= 2 && r.aliases[ident[0]] {
		return ident[0]
	}
	return sc.dotAlias
}

// pipeAlias finds the first alias referenced anywhere in a pipeline, e.g. the
// `src` in {{ range .src }} or {{ with single .src }}.
func (r *rewriter) pipeAlias(pipe *parse.PipeNode, sc scope) string {
	if pipe == nil {
		return ""
	}
	for _, cmd := range pipe.Cmds {
		for _, arg := range cmd.Args {
			switch a := arg.(type) {
			case *parse.FieldNode:
				if len(a.Ident) > 0 && r.aliases[a.Ident[0]] {
					return a.Ident[0]
				}
			case *parse.VariableNode:
				if len(a.Ident) > 1 && a.Ident[0] == "$" && r.aliases[a.Ident[1]] {
					return a.Ident[1]
				}
			case *parse.DotNode:
				if sc.dotAlias != "" {
					return sc.dotAlias
				}
			case *parse.PipeNode:
				if alias := r.pipeAlias(a, sc); alias != "" {
					return alias
				}
			}
		}
	}
	return ""
}

// calledInLoop reports, for each associated template, whether it is invoked
// from inside a range, directly or through other templates.
func calledInLoop(tmpl *template.Template) map[string]bool {
	type call struct {
		name string
		loop bool
	}
	calls := make(map[string][]call)
	for _, t := range tmpl.Templates() {
		if t.Tree == nil {
			continue
		}
		var collect func(node parse.Node, loop bool)
		collect = func(node parse.Node, loop bool) {
			switch n := node.(type) {
			case *parse.ListNode:
				if n == nil {
					return
				}
				for _, c := range n.Nodes {
					collect(c, loop)
				}
			case *parse.TemplateNode:
				calls[t.Name()] = append(calls[t.Name()], call{name: n.Name, loop: loop})
			case *parse.IfNode:
				collect(n.List, loop)
				collect(n.ElseList, loop)
			case *parse.WithNode:
				collect(n.List, loop)
				collect(n.ElseList, loop)
			case *parse.RangeNode:
				collect(n.List, true)
				collect(n.ElseList, loop)
			}
		}
		collect(t.Tree.Root, false)
	}

	inLoop := make(map[string]bool)
	for changed := true; changed; {
		changed = false
		for caller, cs := range calls {
			for _, c := range cs {
				if (c.loop || inLoop[caller]) && !inLoop[c.name] {
					inLoop[c.name] = true
					changed = true
				}
			}
		}
	}
	return inLoop
}
