package mslgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpressions(t *testing.T) {
	x := Vb("X")
	e := Mul{Paren{Add{x, IntLit(1)}}, Vb("args.stride_x")}
	assert.Equal(t, "(X + 1) * args.stride_x", Render(e))

	call := Call{Vb("clamp"), CommaSpaced{Vb("c_x0"), IntLit(0), Sub{Vb("w"), IntLit(1)}}}
	assert.Equal(t, "clamp(c_x0, 0, w - 1)", Render(call))

	assert.Equal(t, "simd_broadcast(simd_w0, 3u)", Render(Call{Vb("simd_broadcast"), CommaSpaced{Vb("simd_w0"), UintLit(3)}}))
	assert.Equal(t, "r000.x", Render(Field{Vb("r000"), "x"}))
	assert.Equal(t, "tmp[12]", Render(Elem{Vb("tmp"), IntLit(12)}))
	assert.Equal(t, "!(a || b)", Render(Not{Paren{Lor{Vb("a"), Vb("b")}}}))
	assert.Equal(t, "*src_loc_00", Render(Deref{Vb("src_loc_00")}))
}

func TestStmtsTermination(t *testing.T) {
	s := Stmts{
		Var{Vb("int"), Vb("s"), IntLit(0)},
		If1{CmpGE{Vb("Z"), Vb("n")}, Return{}},
		Block{Stmts{AddAssign{Vb("s"), IntLit(1)}}},
		Comment{"done"},
		nil,
	}
	want := "int s = 0;\n" +
		"if (Z >= n) return;\n" +
		"{\n  s += 1;\n}\n" +
		"// done\n"
	assert.Equal(t, want, Render(s))
}

func TestDoWhileIndents(t *testing.T) {
	loop := Stmts{DoWhile{
		Body: Stmts{
			If{CmpL{Vb("a"), Vb("b")}, Stmts{Assign{Vb("a"), Vb("b")}}},
			IncPost{Vb("x")},
		},
		Cond: CmpL{Vb("x"), Vb("n")},
	}}
	want := "do {\n" +
		"  if (a < b) {\n" +
		"    a = b;\n" +
		"  }\n" +
		"  x++;\n" +
		"} while (x < n);\n"
	assert.Equal(t, want, Render(loop))
}

func TestProgram(t *testing.T) {
	p := &Program{
		Header: Stmts{
			Directive("include <metal_stdlib>"),
			Vb("using namespace metal"),
			StructDef{"uniforms", Stmts{Var{Vb("int4"), Vb("task_sizes"), nil}}},
			Placeholder("$0\n"),
		},
		Kernel: Kernel{
			Name: "ComputeFunction",
			Params: []Gen{
				Placeholder("$1"),
				Param{Vb("uint"), "tid", "thread_index_in_threadgroup"},
				Param{Vb("uint3"), "ugid", "thread_position_in_grid"},
			},
			Body: Stmts{Return{}},
		},
	}
	want := "#include <metal_stdlib>\n" +
		"using namespace metal;\n" +
		"struct uniforms {\n  int4 task_sizes;\n};\n" +
		"$0\n" +
		"\n" +
		"kernel void ComputeFunction(\n" +
		"    $1\n" +
		"    uint tid[[thread_index_in_threadgroup]],\n" +
		"    uint3 ugid[[thread_position_in_grid]]) {\n" +
		"  return;\n" +
		"}\n"
	assert.Equal(t, want, Render(p))
}

func TestWalk(t *testing.T) {
	body := Stmts{
		Var{Vb("int"), Vb("s"), IntLit(0)},
		DoWhile{Body: Stmts{AddAssign{Vb("s"), IntLit(1)}}, Cond: CmpL{Vb("s"), Vb("args.src_tensor.Slices()")}},
	}
	loops := Collect(body, func(g Gen) bool {
		_, ok := g.(DoWhile)
		return ok
	})
	require.Len(t, loops, 1)
	assert.True(t, Mentions(loops[0], "args.src_tensor.Slices()"))
	assert.False(t, Mentions(body, "args.dst_tensor.Slices()"))
}
