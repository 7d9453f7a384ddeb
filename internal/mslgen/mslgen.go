// Package mslgen is a small intermediate representation for Metal Shading
// Language compute kernels. Callers build a tree of Gen values describing
// statements and expressions; the tree is rendered to text last, so code
// generators decide what to emit without concatenating strings, and tests
// can inspect the tree directly.
package mslgen

import (
	"strconv"
)

const (
	assign        = "="
	brace1        = "{"
	brace2        = "}"
	comma         = ","
	do_           = "do"
	dot           = "."
	hash          = "#"
	if_           = "if"
	indentUnit    = "  "
	kernel_       = "kernel void"
	newline       = "\n"
	paren1        = "("
	paren2        = ")"
	return_       = "return"
	semicolon     = ";"
	slashes       = "//"
	space         = " "
	squareBracket = "["
	squareClose   = "]"
	struct_       = "struct"
	while_        = "while"
)

// Gen is a node of the kernel tree.
type Gen interface {
	Append(to []byte) []byte
}

// Render returns the text of g.
func Render(g Gen) string {
	return string(g.Append(nil))
}

// Gens concatenates its elements without separators. Nil elements are skipped.
type Gens []Gen

func (gs Gens) Append(to []byte) []byte {
	for _, gen := range gs {
		if gen != nil {
			to = gen.Append(to)
		}
	}
	return to
}

// Vb is verbatim text: identifiers, types and host-templated accessors
// such as "args.src_tensor.Slices()".
type Vb string

func (v Vb) Append(to []byte) []byte {
	return append(to, v...)
}

// IntLit is a signed decimal literal.
type IntLit int

func (i IntLit) Append(to []byte) []byte {
	return strconv.AppendInt(to, int64(i), 10)
}

// UintLit renders with the Metal unsigned suffix, e.g. 3u.
type UintLit int

func (u UintLit) Append(to []byte) []byte {
	to = strconv.AppendInt(to, int64(u), 10)
	return append(to, 'u')
}

// Paren wraps Inner in parentheses.
type Paren struct {
	Inner Gen
}

func (p Paren) Append(to []byte) []byte {
	to = append(to, paren1...)
	to = p.Inner.Append(to)
	return append(to, paren2...)
}

func binary(to []byte, e1 Gen, op string, e2 Gen) []byte {
	to = e1.Append(to)
	to = append(to, space...)
	to = append(to, op...)
	to = append(to, space...)
	return e2.Append(to)
}

// Add renders Expr1 + Expr2.
type Add struct {
	Expr1, Expr2 Gen
}

func (a Add) Append(to []byte) []byte {
	return binary(to, a.Expr1, "+", a.Expr2)
}

// Sub renders Expr1 - Expr2.
type Sub struct {
	Expr1, Expr2 Gen
}

func (s Sub) Append(to []byte) []byte {
	return binary(to, s.Expr1, "-", s.Expr2)
}

// Mul renders Expr1 * Expr2.
type Mul struct {
	Expr1, Expr2 Gen
}

func (m Mul) Append(to []byte) []byte {
	return binary(to, m.Expr1, "*", m.Expr2)
}

// Quo renders Expr1 / Expr2.
type Quo struct {
	Expr1, Expr2 Gen
}

func (q Quo) Append(to []byte) []byte {
	return binary(to, q.Expr1, "/", q.Expr2)
}

// Rem renders Expr1 % Expr2.
type Rem struct {
	Expr1, Expr2 Gen
}

func (r Rem) Append(to []byte) []byte {
	return binary(to, r.Expr1, "%", r.Expr2)
}

// CmpL renders Expr1 < Expr2.
type CmpL struct {
	Expr1, Expr2 Gen
}

func (c CmpL) Append(to []byte) []byte {
	return binary(to, c.Expr1, "<", c.Expr2)
}

// CmpGE renders Expr1 >= Expr2.
type CmpGE struct {
	Expr1, Expr2 Gen
}

func (c CmpGE) Append(to []byte) []byte {
	return binary(to, c.Expr1, ">=", c.Expr2)
}

// Land is logical and.
type Land struct {
	Expr1, Expr2 Gen
}

func (l Land) Append(to []byte) []byte {
	return binary(to, l.Expr1, "&&", l.Expr2)
}

// Lor is logical or.
type Lor struct {
	Expr1, Expr2 Gen
}

func (l Lor) Append(to []byte) []byte {
	return binary(to, l.Expr1, "||", l.Expr2)
}

// Not is logical negation.
type Not struct {
	Expr Gen
}

func (n Not) Append(to []byte) []byte {
	to = append(to, '!')
	return n.Expr.Append(to)
}

// Deref dereferences a pointer expression.
type Deref struct {
	Expr Gen
}

func (d Deref) Append(to []byte) []byte {
	to = append(to, '*')
	return d.Expr.Append(to)
}

// CommaSpaced joins its elements with ", ", as in argument lists.
type CommaSpaced []Gen

func (c CommaSpaced) Append(to []byte) []byte {
	for i, gen := range c {
		if i > 0 {
			to = append(to, comma+space...)
		}
		to = gen.Append(to)
	}
	return to
}

// Call is a function call, e.g. clamp(x, 0, n).
type Call struct {
	Func Gen
	Args CommaSpaced
}

func (c Call) Append(to []byte) []byte {
	to = c.Func.Append(to)
	to = append(to, paren1...)
	to = c.Args.Append(to)
	return append(to, paren2...)
}

// Elem indexes Arr, e.g. weights_cache[3].
type Elem struct {
	Arr, Index Gen
}

func (e Elem) Append(to []byte) []byte {
	to = e.Arr.Append(to)
	to = append(to, squareBracket...)
	to = e.Index.Append(to)
	return append(to, squareClose...)
}

// Field selects a struct member or vector lane, e.g. r000.x.
type Field struct {
	Expr Gen
	Name string
}

func (f Field) Append(to []byte) []byte {
	to = f.Expr.Append(to)
	to = append(to, dot...)
	return append(to, f.Name...)
}

// Var declares What of Type, optionally initialized.
type Var struct {
	Type, What, Init Gen
}

func (v Var) Append(to []byte) []byte {
	to = v.Type.Append(to)
	to = append(to, space...)
	to = v.What.Append(to)
	if v.Init != nil {
		to = append(to, space+assign+space...)
		to = v.Init.Append(to)
	}
	return to
}

// Assign renders Expr1 = Expr2.
type Assign struct {
	Expr1, Expr2 Gen
}

func (a Assign) Append(to []byte) []byte {
	return binary(to, a.Expr1, assign, a.Expr2)
}

// AddAssign renders Expr1 += Expr2.
type AddAssign struct {
	Expr1, Expr2 Gen
}

func (a AddAssign) Append(to []byte) []byte {
	return binary(to, a.Expr1, "+=", a.Expr2)
}

// IncPost is a postfix increment.
type IncPost struct {
	Expr Gen
}

func (i IncPost) Append(to []byte) []byte {
	to = i.Expr.Append(to)
	return append(to, "++"...)
}

// Return is a return statement; Expr may be nil.
type Return struct {
	Expr Gen
}

func (r Return) Append(to []byte) []byte {
	to = append(to, return_...)
	if r.Expr != nil {
		to = append(to, space...)
		to = r.Expr.Append(to)
	}
	return to
}

// Stmts renders one statement per line, terminating each with a semicolon
// unless it already ends in a brace, semicolon or newline.
type Stmts []Gen

func (s Stmts) Append(to []byte) []byte {
	for _, gen := range s {
		if gen == nil {
			continue
		}
		n1 := len(to)
		to = gen.Append(to)
		n2 := len(to)
		if n1 >= n2 {
			continue
		}
		switch to[n2-1] {
		case newline[0]:
		case brace2[0], semicolon[0]:
			to = append(to, newline...)
		default:
			to = append(to, semicolon+newline...)
		}
	}
	return to
}

func indent(to, inner []byte) []byte {
	start := 0
	for i, b := range inner {
		if b != newline[0] {
			continue
		}
		if i > start {
			to = append(to, indentUnit...)
		}
		to = append(to, inner[start:i+1]...)
		start = i + 1
	}
	if start < len(inner) {
		to = append(to, indentUnit...)
		to = append(to, inner[start:]...)
		to = append(to, newline...)
	}
	return to
}

// Block is a braced, indented statement list.
type Block struct {
	Inner Stmts
}

func (b Block) Append(to []byte) []byte {
	to = append(to, brace1+newline...)
	to = indent(to, b.Inner.Append(nil))
	return append(to, brace2...)
}

// If is a braced conditional without an else branch.
type If struct {
	Cond Gen
	Then Stmts
}

func (i If) Append(to []byte) []byte {
	to = append(to, if_+space+paren1...)
	to = i.Cond.Append(to)
	to = append(to, paren2+space...)
	return Block{Inner: i.Then}.Append(to)
}

// If1 is an unbraced single-statement conditional, e.g. if (c) return.
type If1 struct {
	Cond, Then Gen
}

func (i If1) Append(to []byte) []byte {
	to = append(to, if_+space+paren1...)
	to = i.Cond.Append(to)
	to = append(to, paren2+space...)
	return i.Then.Append(to)
}

// DoWhile runs Body at least once.
type DoWhile struct {
	Body Stmts
	Cond Gen
}

func (d DoWhile) Append(to []byte) []byte {
	to = append(to, do_+space...)
	to = Block{Inner: d.Body}.Append(to)
	to = append(to, space+while_+space+paren1...)
	to = d.Cond.Append(to)
	return append(to, paren2...)
}

// Comment renders one line comment per element.
type Comment []string

func (c Comment) Append(to []byte) []byte {
	for _, line := range c {
		to = append(to, slashes+space...)
		to = append(to, line...)
		to = append(to, newline...)
	}
	return to
}

// Directive is a preprocessor line without the leading hash.
type Directive string

func (d Directive) Append(to []byte) []byte {
	to = append(to, hash...)
	to = append(to, d...)
	return append(to, newline...)
}

// StructDef declares a struct type.
type StructDef struct {
	Name   string
	Fields Stmts
}

func (s StructDef) Append(to []byte) []byte {
	to = append(to, struct_+space...)
	to = append(to, s.Name...)
	to = append(to, space...)
	to = Block{Inner: s.Fields}.Append(to)
	return append(to, semicolon...)
}

// Param is a kernel parameter with an optional attribute,
// e.g. uint tid[[thread_index_in_threadgroup]].
type Param struct {
	Type Gen
	Name string
	Attr string
}

func (p Param) Append(to []byte) []byte {
	to = p.Type.Append(to)
	to = append(to, space...)
	to = append(to, p.Name...)
	if p.Attr != "" {
		to = append(to, squareBracket+squareBracket...)
		to = append(to, p.Attr...)
		to = append(to, squareClose+squareClose...)
	}
	return to
}

// Placeholder is host-expanded text, such as "$1" in a parameter list. It
// carries its own separators.
type Placeholder string

func (p Placeholder) Append(to []byte) []byte {
	return append(to, p...)
}

// Kernel is a compute kernel entry point. Placeholder parameters are
// emitted without a trailing comma.
type Kernel struct {
	Name   string
	Params []Gen
	Body   Stmts
}

func (k Kernel) Append(to []byte) []byte {
	to = append(to, kernel_+space...)
	to = append(to, k.Name...)
	to = append(to, paren1+newline...)
	for i, p := range k.Params {
		to = append(to, indentUnit+indentUnit...)
		to = p.Append(to)
		_, raw := p.(Placeholder)
		if !raw && i != len(k.Params)-1 {
			to = append(to, comma...)
		}
		if i != len(k.Params)-1 {
			to = append(to, newline...)
		}
	}
	to = append(to, paren2+space+brace1+newline...)
	to = indent(to, k.Body.Append(nil))
	return append(to, brace2+newline...)
}

// Program is a complete translation unit: header lines then one kernel.
type Program struct {
	Header Stmts
	Kernel Kernel
}

func (p *Program) Append(to []byte) []byte {
	to = p.Header.Append(to)
	to = append(to, newline...)
	return p.Kernel.Append(to)
}
