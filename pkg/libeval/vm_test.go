package libeval

import (
	"errors"
	"sync"
	"testing"
)

func constOp(v Value) UOP {
	return UOP{Op: OpPushConst, Value: &v}
}

func TestProgram_StackFaults(t *testing.T) {
	tests := []struct {
		name    string
		code    []UOP
		wantErr error
	}{
		{
			name:    "two values left",
			code:    []UOP{constOp(Number(1)), constOp(Number(2))},
			wantErr: ErrStackInvariant,
		},
		{
			name:    "empty program",
			code:    nil,
			wantErr: ErrStackInvariant,
		},
		{
			name:    "underflow",
			code:    []UOP{constOp(Number(1)), {Op: OpAdd}},
			wantErr: ErrStackUnderflow,
		},
		{
			name:    "unary underflow",
			code:    []UOP{{Op: OpNot}},
			wantErr: ErrStackUnderflow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog := &Program{code: tt.code}
			got, err := prog.RunE(NewContext())
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("RunE() error = %v, want %v", err, tt.wantErr)
			}
			if got.Type() != TypeNumeric || got.AsDouble() != 0 {
				t.Errorf("RunE() = %v, want numeric 0", got)
			}
		})
	}
}

func TestProgram_HostFaults(t *testing.T) {
	c := NewCompiler(nil)

	t.Run("host error", func(t *testing.T) {
		prog, err := c.Compile("1 + A.fail()", testHost{})
		if err != nil {
			t.Fatalf("Compile() error = %v", err)
		}
		got, err := prog.RunE(newTestContext())
		var rerr *RuntimeError
		if !errors.As(err, &rerr) {
			t.Fatalf("RunE() error = %v, want *RuntimeError", err)
		}
		if rerr.Op != OpMethodCall {
			t.Errorf("Op = %s, want METHOD_CALL", rerr.Op)
		}
		if got.AsDouble() != 0 {
			t.Errorf("RunE() = %v, want 0", got)
		}
		if v := prog.Run(newTestContext()); v.AsDouble() != 0 {
			t.Errorf("Run() = %v, want 0", v)
		}
	})

	t.Run("host panic", func(t *testing.T) {
		prog, err := c.Compile("A.explode() || 1", testHost{})
		if err != nil {
			t.Fatalf("Compile() error = %v", err)
		}
		got, err := prog.RunE(newTestContext())
		if !errors.Is(err, ErrHostFailure) {
			t.Fatalf("RunE() error = %v, want ErrHostFailure", err)
		}
		if got.AsDouble() != 0 {
			t.Errorf("RunE() = %v, want 0", got)
		}
	})
}

func TestProgram_DivisionByZero(t *testing.T) {
	c := NewCompiler(nil)
	prog, err := c.Compile("4 / (2 - 2)", nil)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	ctx := NewContext()
	var reported []string
	ctx.SetErrorCallback(func(msg string, offset int) {
		reported = append(reported, msg)
	})

	got, err := prog.RunE(ctx)
	if err != nil {
		t.Fatalf("RunE() error = %v", err)
	}
	if got.AsDouble() != 0 {
		t.Errorf("RunE() = %v, want 0", got)
	}
	if len(reported) != 1 || reported[0] != "division by zero" {
		t.Errorf("reported = %v", reported)
	}
	if len(ctx.Errors()) != 1 {
		t.Errorf("Errors() = %v", ctx.Errors())
	}
}

func TestProgram_Dump(t *testing.T) {
	c := NewCompiler(nil)
	prog, err := c.Compile("1+'x*'", nil)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	want := "0000 PUSH_CONST 1\n0001 PUSH_CONST \"x*\"\n0002 ADD\n"
	if got := prog.Dump(); got != want {
		t.Errorf("Dump() = %q, want %q", got, want)
	}
	if prog.Len() != 3 {
		t.Errorf("Len() = %d, want 3", prog.Len())
	}
	if code := prog.Code(); !code[1].Value.IsWildcard() {
		t.Error("string with '*' should compile to a pattern")
	}
}

func TestProgram_ContextReuse(t *testing.T) {
	c := NewCompiler(nil)
	prog, err := c.Compile("A.Width + B.Width", testHost{})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	ctx := newTestContext()
	for i := 0; i < 200; i++ {
		v := prog.Run(ctx)
		if got := v.AsDouble(); got != 30 {
			t.Fatalf("run %d = %v, want 30", i, got)
		}
	}
	if ctx.SP() != 0 {
		t.Errorf("SP() = %d after run, want 0", ctx.SP())
	}
}

func TestProgram_ConcurrentRuns(t *testing.T) {
	c := NewCompiler(nil)
	prog, err := c.Compile("A.Width < B.Width && A.nameIs('R1')", testHost{})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx := newTestContext()
			for i := 0; i < 100; i++ {
				v, err := prog.RunE(ctx)
				if err != nil {
					errs <- err
					return
				}
				if v.AsDouble() != 1 {
					errs <- errors.New("unexpected result")
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func TestContext_Arena(t *testing.T) {
	ctx := NewContext()
	first := ctx.AllocValue()
	*first = Number(42)

	// Crossing chunk boundaries must not move earlier values.
	for i := 0; i < arenaChunk*3; i++ {
		v := ctx.AllocValue()
		*v = Number(float64(i))
	}
	if first.AsDouble() != 42 {
		t.Errorf("first value = %v, want 42", first.AsDouble())
	}

	ctx.Reset()
	if v := ctx.AllocValue(); !v.IsUndefined() {
		t.Error("AllocValue after Reset should return an undefined value")
	}
}
