package mslgen

// Walk visits g and its descendants in depth-first order. When fn returns
// false the children of that node are skipped.
func Walk(g Gen, fn func(Gen) bool) {
	if g == nil || !fn(g) {
		return
	}
	for _, c := range children(g) {
		Walk(c, fn)
	}
}

func children(g Gen) []Gen {
	switch n := g.(type) {
	case Gens:
		return n
	case Stmts:
		return n
	case CommaSpaced:
		return n
	case Paren:
		return []Gen{n.Inner}
	case Add:
		return []Gen{n.Expr1, n.Expr2}
	case Sub:
		return []Gen{n.Expr1, n.Expr2}
	case Mul:
		return []Gen{n.Expr1, n.Expr2}
	case Quo:
		return []Gen{n.Expr1, n.Expr2}
	case Rem:
		return []Gen{n.Expr1, n.Expr2}
	case CmpL:
		return []Gen{n.Expr1, n.Expr2}
	case CmpGE:
		return []Gen{n.Expr1, n.Expr2}
	case Land:
		return []Gen{n.Expr1, n.Expr2}
	case Lor:
		return []Gen{n.Expr1, n.Expr2}
	case Assign:
		return []Gen{n.Expr1, n.Expr2}
	case AddAssign:
		return []Gen{n.Expr1, n.Expr2}
	case Not:
		return []Gen{n.Expr}
	case Deref:
		return []Gen{n.Expr}
	case IncPost:
		return []Gen{n.Expr}
	case Return:
		return []Gen{n.Expr}
	case Call:
		return append([]Gen{n.Func}, n.Args...)
	case Elem:
		return []Gen{n.Arr, n.Index}
	case Field:
		return []Gen{n.Expr}
	case Var:
		return []Gen{n.Type, n.What, n.Init}
	case Block:
		return []Gen{n.Inner}
	case If:
		return []Gen{n.Cond, n.Then}
	case If1:
		return []Gen{n.Cond, n.Then}
	case DoWhile:
		return []Gen{n.Body, n.Cond}
	case StructDef:
		return []Gen{n.Fields}
	case Param:
		return []Gen{n.Type}
	case Kernel:
		return append(append([]Gen{}, n.Params...), n.Body)
	case *Program:
		return []Gen{n.Header, n.Kernel}
	default:
		return nil
	}
}

// Collect returns every node under g for which match returns true.
func Collect(g Gen, match func(Gen) bool) []Gen {
	var out []Gen
	Walk(g, func(n Gen) bool {
		if match(n) {
			out = append(out, n)
		}
		return true
	})
	return out
}

// Mentions reports whether the rendered text of any Vb under g equals name.
func Mentions(g Gen, name string) bool {
	found := false
	Walk(g, func(n Gen) bool {
		if v, ok := n.(Vb); ok && string(v) == name {
			found = true
		}
		return !found
	})
	return found
}
