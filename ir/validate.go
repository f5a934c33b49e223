package ir

import (
	"fmt"

	"github.com/aureliago/tplcore/ident"
)

// ValidateExprTable checks spec 3.6's first invariant: every ExprId
// produced in Lower appears exactly once in its owning TemplateIR's
// exprTable and is reachable from at least one instruction of that same
// template. Nested controller/branch defs are independent TemplateIRs, each
// validated recursively against their own exprTable.
func ValidateExprTable(t *TemplateIR) error {
	seen := map[ident.ExprId]int{}
	for _, e := range t.ExprTable {
		seen[e.ID]++
	}
	for id, n := range seen {
		if n != 1 {
			return fmt.Errorf("expr %v appears %d times in exprTable, want 1", id, n)
		}
	}

	reached := map[ident.ExprId]bool{}
	var walkInstruction func(ins Instruction) error
	walkInstruction = func(ins Instruction) error {
		for _, id := range ins.From.ExprIds() {
			reached[id] = true
		}
		for _, id := range ins.Text.ExprIds() {
			reached[id] = true
		}
		for _, lb := range ins.LetBindings {
			for _, id := range lb.From.ExprIds() {
				reached[id] = true
			}
		}
		for _, tail := range ins.TailFroms {
			if err := walkInstruction(tail); err != nil {
				return err
			}
		}
		if ins.Def != nil {
			if err := ValidateExprTable(ins.Def); err != nil {
				return err
			}
		}
		return nil
	}
	for _, row := range t.Rows {
		for _, ins := range row.Instructions {
			if err := walkInstruction(ins); err != nil {
				return err
			}
		}
	}

	for id := range seen {
		if !reached[id] {
			return fmt.Errorf("expr %v in exprTable is not reachable from any instruction", id)
		}
	}
	return nil
}

// FindNode looks up a node by id within the DOM tree rooted at root,
// supporting ValidateRowTargets and general lookups by Link/Bind.
func FindNode(root *DomNode, id ident.NodeId) *DomNode {
	if root == nil {
		return nil
	}
	if root.ID == id {
		return root
	}
	for _, c := range root.Children {
		if n := FindNode(c, id); n != nil {
			return n
		}
	}
	if root.Content != nil {
		if n := FindNode(root.Content, id); n != nil {
			return n
		}
	}
	return nil
}

// ValidateRowTargets checks spec 3.6's second invariant: every instruction
// row's target refers to a node that exists in dom. Nested controller/
// branch defs are checked recursively against their own Dom.
func ValidateRowTargets(t *TemplateIR) error {
	for _, row := range t.Rows {
		if FindNode(t.Dom, row.Target) == nil {
			return fmt.Errorf("row target %q does not refer to a node in dom", row.Target)
		}
		for _, ins := range row.Instructions {
			if ins.Def != nil {
				if err := ValidateRowTargets(ins.Def); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
