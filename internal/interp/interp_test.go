package interp_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"hoc/internal/config"
	"hoc/internal/interp"
	"hoc/internal/runtime"
	"hoc/internal/vm"
)

type result struct {
	out  string
	diag string
	it   *interp.Interpreter
}

// runWith executes src with input as the data read by read and getline.
func runWith(t *testing.T, cfg *config.Config, src, input string) result {
	t.Helper()
	var out, diag bytes.Buffer
	env := runtime.NewEnv(runtime.NewScannerIO(&out, strings.NewReader(input)), &diag)
	it := interp.New(cfg, env, zerolog.Nop())
	if err := it.Run("test", strings.NewReader(src)); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	return result{out: out.String(), diag: diag.String(), it: it}
}

func run(t *testing.T, src string) result {
	t.Helper()
	return runWith(t, nil, src, "")
}

func TestPrograms(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			"factorial",
			"func fac(n) {\n\tif (n <= 0) return 1\n\treturn n * fac(n-1)\n}\nfac(5)\n",
			"120\n",
		},
		{
			"recursion depth",
			"func d(n) { if (n == 0) return 0; return 1 + d(n-1) }\nd(20)\n",
			"20\n",
		},
		{
			"for with continue",
			"for (i = 0; i < 4; i++) { if (i % 2) continue; print i }\n",
			"0\n2\n",
		},
		{
			"break leaves the inner loop only",
			"for (i = 0; i < 3; i++) {\n\tfor (j = 0; j < 3; j++) {\n\t\tif (j == 1) break\n\t\tprint i, j\n\t}\n}\n",
			"0 0\n1 0\n2 0\n",
		},
		{
			"while",
			"n = 3\nwhile (n > 0) { print n; n = n - 1 }\n",
			"3\n2\n1\n",
		},
		{
			"if else across lines in a block",
			"x = 2\n{\n\tif (x > 1) print \"big\"\n\telse print \"small\"\n}\n",
			"big\n",
		},
		{
			"increment",
			"x = 5\nx++\n++x\nx--\n--x\n",
			"5\n7\n7\n5\n",
		},
		{
			"numeric prefix of a string",
			"\"42xyz\" + 1\n",
			"43\n",
		},
		{
			"previous value",
			"3\n_ * 2\n",
			"3\n6\n",
		},
		{
			"assignment is not printed",
			"x = 4; y = x * 2\ny\n",
			"8\n",
		},
		{
			"compound assignment",
			"x = 10; x += 5; x -= 3; x *= 2; x /= 4; x %= 4; x\n",
			"2\n",
		},
		{
			"power and negation",
			"2^10\n-2^2\n2^3^2\n",
			"1024\n-4\n512\n",
		},
		{
			"short circuit skips the right operand",
			"0 && nope\n1 || nope\n1 && 2\n",
			"0\n1\n1\n",
		},
		{
			"comparisons and not",
			"3 < 4\n3 >= 4\n!0\n2 != 2\n",
			"1\n0\n1\n0\n",
		},
		{
			"print strings and numbers",
			"print \"a\", 1, 0.5\n",
			"a 1 0.5\n",
		},
		{
			"return from inside a loop",
			"func f() { for (i = 0; ; i++) { if (i == 3) return i } }\nf()\ni\n",
			"3\n3\n",
		},
		{
			"return from inside while",
			"func g(n) {\n\twhile (1) {\n\t\tn = n - 1\n\t\tif (n < 0) return 99\n\t}\n}\ng(3)\n",
			"99\n",
		},
		{
			"procedure",
			"proc hi(who, n) { print \"hi\", who, n }\nhi(\"there\", 3)\n",
			"hi there 3\n",
		},
		{
			"missing arguments are zero",
			"func add(a, b) return a + b\nadd(1)\n",
			"1\n",
		},
		{
			"parameters shadow globals",
			"a = 100\nfunc f(a) return a * 2\nf(3)\na\n",
			"6\n100\n",
		},
		{
			"function survives later statements",
			"func sq(x) return x * x\n1\n2\nsq(3)\n",
			"1\n2\n9\n",
		},
		{
			"constants with and without parens",
			"pi\npi()\n",
			"3.1415927\n3.1415927\n",
		},
		{
			"builtins",
			"sqrt(16)\nabs(-2.5)\nint(-7.9)\natan2(0, 1)\n",
			"4\n2.5\n-7\n0\n",
		},
		{
			"printf",
			"printf(\"%d-%s\\n\", 3, \"a\")\nprintf \"%5.2f|\\n\", 2.5\n",
			"3-a\n 2.50|\n",
		},
		{
			"sprintf",
			"s = sprintf(\"%05.1f\", 3.14159)\ns\n",
			"003.1\n",
		},
		{
			"comments",
			"# nothing here\nx = 1 # trailing\nx\n",
			"1\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := run(t, tt.src)
			if r.diag != "" {
				t.Fatalf("expected no diagnostics, got %q", r.diag)
			}
			if r.out != tt.want {
				t.Fatalf("expected output %q, got %q", tt.want, r.out)
			}
		})
	}
}

func TestRuntimeErrors(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		wantOut  string
		wantDiag string
	}{
		{"division by zero", "y = 1/0\ny\n", "", "hoc: test:1: division by zero\nhoc: test:2: y: undefined variable\n"},
		{"modulo by zero", "5 % 0\n", "", "hoc: test:1: modulo by zero\n"},
		{"builtin arity", "sin()\n", "", vm.ErrWrongArity.Error()},
		{"domain", "log(-1)\n", "", vm.ErrArgumentOutOfDomain.Error()},
		{"range", "exp(1000)\n", "", vm.ErrResultOutOfRange.Error()},
		{"power domain", "(-8)^0.5\n", "", vm.ErrArgumentOutOfDomain.Error()},
		{"too many arguments", "func f(a) return a\nf(1, 2)\nprint 1\n", "1\n", vm.ErrWrongArity.Error()},
		{"function without value", "func f() print 1\nf()\n", "1\n", vm.ErrNoReturnValue.Error()},
		{"procedure with value", "proc p() return 1\np()\n", "", vm.ErrProcReturnsValue.Error()},
		{"increment unbound", "z++\n", "", "hoc: test:1: z: undefined variable\n"},
		{"syntax error resumes", "1 +\n2\n", "2\n", "hoc: test:1: syntax error"},
		{"break outside loop", "break\nprint 3\n", "3\n", "break outside a loop"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := run(t, tt.src)
			if r.out != tt.wantOut {
				t.Fatalf("expected output %q, got %q", tt.wantOut, r.out)
			}
			if !strings.Contains(r.diag, tt.wantDiag) {
				t.Fatalf("expected diagnostics containing %q, got %q", tt.wantDiag, r.diag)
			}
			if r.it.Errors() == 0 {
				t.Fatalf("expected the error to be counted")
			}
		})
	}
}

func TestRecursionLimit(t *testing.T) {
	cfg := config.Default()
	cfg.Interpreter.MaxCallDepth = 100
	r := runWith(t, cfg, "func r(n) return r(n+1)\nr(0)\nprint 1\n", "")
	if !strings.Contains(r.diag, vm.ErrRecursionLimit.Error()) {
		t.Fatalf("expected recursion limit, got %q", r.diag)
	}
	if r.out != "1\n" {
		t.Fatalf("expected execution to resume, got %q", r.out)
	}
	if n := r.it.VM().ActiveFrames(); n != 0 {
		t.Fatalf("expected no active frames, got %d", n)
	}
}

func TestErrorDeepInCallsReleasesEverything(t *testing.T) {
	src := `func c(s, t) return s / 0
func b(s) return c(s, "local")
func a(s) return b(s)
a("arg")
print 2
`
	r := run(t, src)
	if !strings.Contains(r.diag, "division by zero") {
		t.Fatalf("expected division by zero, got %q", r.diag)
	}
	if r.out != "2\n" {
		t.Fatalf("expected output %q, got %q", "2\n", r.out)
	}
	machine := r.it.VM()
	if machine.ActiveFrames() != 0 {
		t.Fatalf("expected no active frames, got %d", machine.ActiveFrames())
	}
	if machine.Pool().Live() != 0 {
		t.Fatalf("expected no live strings, got %d", machine.Pool().Live())
	}
}

func TestStringPoolAccounting(t *testing.T) {
	r := run(t, "x = \"a\"; y = x; x = 1\n")
	pool := r.it.VM().Pool()
	if pool.FinalLen() != 1 || pool.References() != 1 {
		t.Fatalf("expected one final string with count 1, got %d/%d", pool.FinalLen(), pool.References())
	}
	if v, ok := r.it.VM().Global("y"); !ok || v.Str == nil || v.Str.Text != "a" {
		t.Fatalf("expected y to hold \"a\", got %v", v)
	}

	r.it.Close()
	if pool.Live() != 0 {
		t.Fatalf("expected no live strings after Close, got %d", pool.Live())
	}
}

func TestStringSurvivesReassignment(t *testing.T) {
	r := run(t, "s = \"abc\"\nt = s\ns = 1\nt\ns\n")
	if r.out != "abc\n1\n" {
		t.Fatalf("expected output %q, got %q", "abc\n1\n", r.out)
	}
}

func TestFormatWarningsDoNotAbort(t *testing.T) {
	r := run(t, "printf(\"%d\\n\", \"a\"); print 1\ns = sprintf(\"%s\", 2)\nprint \"[\" , s, \"]\"\nprintf(1)\n")
	if r.out != "1\n[  ]\n" {
		t.Fatalf("expected output %q, got %q", "1\n[  ]\n", r.out)
	}
	if strings.Count(r.diag, "warning") != 3 {
		t.Fatalf("expected three warnings, got %q", r.diag)
	}
	if !strings.Contains(r.diag, "hoc: test:1: warning: wrong format") {
		t.Fatalf("expected located format warning, got %q", r.diag)
	}
	if !strings.Contains(r.diag, vm.ErrNoFormat.Error()) {
		t.Fatalf("expected missing format warning, got %q", r.diag)
	}
}

func TestReadFromInput(t *testing.T) {
	r := runWith(t, nil, "while (read(x)) print x * 2\n", "1\n2.5\n")
	if r.out != "2\n5\n" {
		t.Fatalf("expected output %q, got %q", "2\n5\n", r.out)
	}

	r = runWith(t, nil, "read(x)\n", "abc\n")
	if !strings.Contains(r.diag, vm.ErrNonNumberRead.Error()) {
		t.Fatalf("expected non-number read error, got %q", r.diag)
	}
}

func TestSourceAndInputShareStream(t *testing.T) {
	src := strings.NewReader("read(x)\n5\nx\ngetline(s)\nhello world\ns\n")
	var out, diag bytes.Buffer
	env := runtime.NewEnv(runtime.NewScannerIO(&out, src), &diag)
	it := interp.New(nil, env, zerolog.Nop())
	if err := it.Run("stdin", src); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	// read leaves the newline after 5 in place; the lexer skips it
	if want := "1\n5\n1\nhello world\n"; out.String() != want {
		t.Fatalf("expected output %q, got %q (diag %q)", want, out.String(), diag.String())
	}
}

func TestDebugListsStatements(t *testing.T) {
	cfg := config.Default()
	cfg.Interpreter.Debug = true
	r := runWith(t, cfg, "func f(a) return a\nif (1) f(2)\n", "")
	for _, want := range []string{"# test:1: f", "# test:2", "OPR  funcret", "OPR  if", "IP -> "} {
		if !strings.Contains(r.diag, want) {
			t.Fatalf("expected listing to contain %q, got %q", want, r.diag)
		}
	}
}

func TestDisasmDoesNotExecute(t *testing.T) {
	var out, diag, listing bytes.Buffer
	env := runtime.NewEnv(runtime.NewScannerIO(&out, strings.NewReader("")), &diag)
	it := interp.New(nil, env, zerolog.Nop())
	if err := it.Disasm("prog", strings.NewReader("print 1\nwhile (0) print 2\n"), &listing); err != nil {
		t.Fatalf("disasm failed: %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("expected nothing executed, got %q", out.String())
	}
	if !strings.Contains(listing.String(), "OPR  while") || !strings.Contains(listing.String(), "NARG 1") {
		t.Fatalf("unexpected listing %q", listing.String())
	}
}

func TestDefinitionsPersistAcrossRuns(t *testing.T) {
	var out, diag bytes.Buffer
	env := runtime.NewEnv(runtime.NewScannerIO(&out, strings.NewReader("")), &diag)
	it := interp.New(nil, env, zerolog.Nop())
	if err := it.Run("lib", strings.NewReader("func twice(x) return 2 * x\nk = 4\n")); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if err := it.Run("main", strings.NewReader("twice(k)\n")); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if out.String() != "8\n" {
		t.Fatalf("expected output %q, got %q (diag %q)", "8\n", out.String(), diag.String())
	}
}

func TestCodeBufferFullStopsRun(t *testing.T) {
	cfg := config.Default()
	cfg.Interpreter.MaxCode = 8
	var out, diag bytes.Buffer
	env := runtime.NewEnv(runtime.NewScannerIO(&out, strings.NewReader("")), &diag)
	it := interp.New(cfg, env, zerolog.Nop())
	err := it.Run("big", strings.NewReader("print 1, 2, 3, 4, 5\nprint 6\n"))
	if err == nil {
		t.Fatalf("expected the run to stop")
	}
	if out.Len() != 0 {
		t.Fatalf("expected nothing printed, got %q", out.String())
	}
}

func TestOwnershipFaultIsReported(t *testing.T) {
	var out, diag bytes.Buffer
	env := runtime.NewEnv(runtime.NewScannerIO(&out, strings.NewReader("")), &diag)
	it := interp.New(nil, env, zerolog.Nop())
	defer it.Close()
	if err := it.Run("test", strings.NewReader("s = \"abc\"\n")); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	v, _ := it.VM().Global("s")
	if err := it.VM().Pool().Release(v.Str); err != nil {
		t.Fatalf("expected first release to succeed, got %v", err)
	}

	if err := it.Run("test", strings.NewReader("s = 1\nprint 2\n")); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !strings.Contains(diag.String(), "hoc: test:1: "+vm.ErrDoubleFree.Error()) {
		t.Fatalf("expected a located ownership error, got %q", diag.String())
	}
	if out.String() != "2\n" {
		t.Fatalf("expected execution to resume, got %q", out.String())
	}
	if it.Errors() != 1 {
		t.Fatalf("expected one error, got %d", it.Errors())
	}
}
