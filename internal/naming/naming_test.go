package naming

import (
	"errors"
	"testing"
)

func TestCanonFQN(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `App\Foo`, `\app\foo`},
		{"leading separator kept single", `\\App\Foo`, `\app\foo`},
		{"trailing separator", `App\Foo\`, `\app\foo`},
		{"repeated separators", `App\\\Foo`, `\app\foo`},
		{"surrounding whitespace", "  App\\Foo \n", `\app\foo`},
		{"zero width space", "App\u200b\\Foo", `\app\foo`},
		{"byte order mark", "\ufeffApp\\Foo", `\app\foo`},
		{"zero width joiner", "App\\Fo\u200do", `\app\foo`},
		{"empty", "", `\`},
		{"only separators", `\\\`, `\`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanonFQN(tt.in); got != tt.want {
				t.Errorf("CanonFQN(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCanonMethod(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"doSomething", "dosomething"},
		{"doSomething()", "dosomething"},
		{" do Something ( ) ", "dosomething"},
		{"pay\u200b", "pay"},
		{"run()()", "run"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := CanonMethod(tt.in); got != tt.want {
				t.Errorf("CanonMethod(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCanonKey(t *testing.T) {
	a := CanonKey(`App\Foo`, "Bar")
	b := CanonKey(`\app\foo\`, " bar() ")
	if a != b {
		t.Errorf("keys differ: %q vs %q", a, b)
	}
	if a != `\app\foo::bar` {
		t.Errorf("unexpected key %q", a)
	}

	if CanonKey(`App\Foo`, "bar") == CanonKey(`App\Foo`, "baz") {
		t.Error("distinct methods share a key")
	}
	if CanonKey(`App\Foo`, "bar") == CanonKey(`App\Foo2`, "bar") {
		t.Error("distinct classes share a key")
	}
}

func TestFQNDisplay(t *testing.T) {
	f := NewFQN(`App\\Checkout\CheckoutFacade\`)
	if f.String() != `\App\Checkout\CheckoutFacade` {
		t.Errorf("display form = %q", f)
	}
	if f.Short() != "CheckoutFacade" {
		t.Errorf("Short() = %q", f.Short())
	}
	if f.Namespace() != `App\Checkout` {
		t.Errorf("Namespace() = %q", f.Namespace())
	}
	if !f.Equal(NewFQN(`\app\checkout\checkoutfacade`)) {
		t.Error("expected case-insensitive equality")
	}
	if !NewFQN("").IsZero() {
		t.Error("empty name should be zero")
	}
}

func TestKeySplit(t *testing.T) {
	cls, method := CanonKey(`App\Foo`, "bar").Split()
	if cls != `\app\foo` || method != "bar" {
		t.Errorf("Split() = %q, %q", cls, method)
	}
}

func TestParseTarget(t *testing.T) {
	tests := []struct {
		target  string
		want    Key
		wantErr bool
	}{
		{`\App\Foo::bar`, `\app\foo::bar`, false},
		{`App\Foo::bar()`, `\app\foo::bar`, false},
		{`  App\Foo::Bar  `, `\app\foo::bar`, false},
		{`App\Foo`, "", true},
		{`::bar`, "", true},
		{`App\Foo::`, "", true},
		{`App\Foo::bar::baz`, "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			got, err := ParseTarget(tt.target)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTarget) {
					t.Fatalf("ParseTarget(%q) error = %v, want ErrInvalidTarget", tt.target, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTarget(%q) unexpected error: %v", tt.target, err)
			}
			if got != tt.want {
				t.Errorf("ParseTarget(%q) = %q, want %q", tt.target, got, tt.want)
			}
		})
	}
}

func FuzzCanonIdempotent(f *testing.F) {
	for _, seed := range []string{
		`App\Foo`, `\\a\\\b\`, " \\ x ", "\u200b\\\ufeff", "Foo()", "a()()", "", `\`, "\t\\ \\",
	} {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, s string) {
		once := CanonFQN(s)
		if twice := CanonFQN(once); twice != once {
			t.Fatalf("CanonFQN not idempotent: %q -> %q -> %q", s, once, twice)
		}
		m := CanonMethod(s)
		if again := CanonMethod(m); again != m {
			t.Fatalf("CanonMethod not idempotent: %q -> %q -> %q", s, m, again)
		}
		if d := NewFQN(s); NewFQN(string(d)) != d {
			t.Fatalf("NewFQN not idempotent: %q -> %q", s, d)
		}
	})
}
