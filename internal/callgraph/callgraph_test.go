package callgraph

import (
	"reflect"
	"strings"
	"testing"

	"github.com/hargabyte/phpimpact/internal/factory"
	"github.com/hargabyte/phpimpact/internal/naming"
	"github.com/hargabyte/phpimpact/internal/phpast"
	"github.com/hargabyte/phpimpact/internal/symbols"
)

func this() *phpast.Variable { return &phpast.Variable{Name: "this"} }

func call(obj phpast.Node, name string) *phpast.Call {
	return &phpast.Call{Callee: &phpast.PropertyLookup{Object: obj, Name: name}}
}

func fetch(obj phpast.Node, name string) *phpast.PropertyLookup {
	return &phpast.PropertyLookup{Object: obj, Name: name}
}

func name(v string) *phpast.Name { return &phpast.Name{Value: v} }

func checkoutFile() *phpast.File {
	return &phpast.File{Path: "src/Checkout.php", Children: []phpast.Node{
		&phpast.Namespace{Name: `App\Zed\Checkout\Business`},
		&phpast.UseItem{Name: `App\Zed\Payment\PaymentPluginInterface`},
		&phpast.UseItem{Name: `App\Shared\Logger`},
		&phpast.Class{
			Name:    "CheckoutFacade",
			Doc:     "/** @method CheckoutBusinessFactory getFactory() */",
			Extends: name("BaseFacade"),
			Members: []phpast.Node{
				&phpast.Method{
					Name:       "checkout",
					Visibility: "public",
					Body: []phpast.Node{
						&phpast.Return{Value: call(call(call(this(), "getFactory"), "createPaymentPlugin"), "pay")},
					},
				},
				&phpast.Method{
					Name:       "helper",
					Visibility: "protected",
					Body: []phpast.Node{
						call(this(), "checkout"),
						call(this(), "CHECKOUT"),
						&phpast.StaticCall{Class: name("self"), Method: "checkout"},
						&phpast.StaticCall{Class: name("parent"), Method: "boot"},
						&phpast.StaticCall{Class: name("Logger"), Method: "log"},
						&phpast.StaticCall{Class: &phpast.Variable{Name: "cls"}, Method: "dynamic"},
					},
				},
			},
		},
		&phpast.Class{
			Name: "CheckoutBusinessFactory",
			Members: []phpast.Node{
				&phpast.Method{
					Name:       "createPaymentPlugin",
					ReturnType: name("PaymentPluginInterface"),
					Body:       []phpast.Node{},
				},
				&phpast.Method{
					Name:       "createRepo",
					ReturnType: name("Repo"),
					Body:       []phpast.Node{},
				},
			},
		},
		&phpast.Class{
			Name: "Workflow",
			Members: []phpast.Node{
				// Uses $this->repo before the constructor that types it.
				&phpast.Method{
					Name: "run",
					Body: []phpast.Node{call(fetch(this(), "repo"), "save")},
				},
				&phpast.Method{
					Name: "__construct",
					Body: []phpast.Node{
						&phpast.Assign{
							Left:  fetch(this(), "repo"),
							Right: call(call(this(), "getFactory"), "createRepo"),
						},
					},
				},
			},
		},
	}}
}

func paymentFile() *phpast.File {
	return &phpast.File{Path: "src/Payment.php", Children: []phpast.Node{
		&phpast.Namespace{Name: `App\Zed\Payment`},
		&phpast.Interface{
			Name:    "PaymentPluginInterface",
			Members: []phpast.Node{&phpast.Method{Name: "pay"}},
		},
		&phpast.Class{
			Name:       "StripePlugin",
			Implements: []*phpast.Name{name("PaymentPluginInterface")},
			Members: []phpast.Node{
				&phpast.Method{Name: "pay", Visibility: "public", Body: []phpast.Node{}},
			},
		},
		&phpast.Class{
			Name: "PaymentGateway",
			Members: []phpast.Node{
				&phpast.Property{Name: "plugin", Type: name("PaymentPluginInterface")},
				&phpast.Method{
					Name: "viaProperty",
					Body: []phpast.Node{call(fetch(this(), "plugin"), "pay")},
				},
				&phpast.Method{
					Name:   "viaParam",
					Params: []*phpast.Param{{Name: "p", Type: name("PaymentPluginInterface")}},
					Body:   []phpast.Node{call(&phpast.Variable{Name: "p"}, "pay")},
				},
				&phpast.Method{
					Name: "viaLocal",
					Body: []phpast.Node{
						&phpast.Assign{Left: &phpast.Variable{Name: "s"}, Right: &phpast.New{Class: name("StripePlugin")}},
						call(&phpast.Variable{Name: "s"}, "pay"),
						&phpast.Assign{Left: &phpast.Variable{Name: "s"}, Right: name("null")},
						call(&phpast.Variable{Name: "s"}, "refund"),
					},
				},
				&phpast.Method{
					Name: "viaNew",
					Body: []phpast.Node{call(&phpast.New{Class: name("StripePlugin")}, "pay")},
				},
				&phpast.Method{
					Name: "untyped",
					Body: []phpast.Node{call(&phpast.Variable{Name: "unknown"}, "pay")},
				},
			},
		},
	}}
}

func buildGraph(t *testing.T, files ...*phpast.File) (*Graph, *symbols.Table) {
	t.Helper()
	sb := symbols.NewBuilder()
	for _, f := range files {
		sb.AddFile(f)
	}
	table := sb.Build()

	fx := factory.NewIndexer(nil)
	for _, f := range files {
		fx.AddFile(f)
	}

	b := NewBuilder(table, fx.Index(), factory.NewResolver(table), nil)
	for _, f := range files {
		b.AddFile(f)
	}
	return b.Graph(), table
}

func key(class, method string) naming.Key {
	return naming.CanonKey(class, method)
}

func edgeKind(g *Graph, from, to naming.Key) (EdgeKind, bool) {
	for _, e := range g.Callees(from) {
		if e.To == to {
			return e.Kind, true
		}
	}
	return "", false
}

const (
	facade   = `\App\Zed\Checkout\Business\CheckoutFacade`
	workflow = `\App\Zed\Checkout\Business\Workflow`
	gateway  = `\App\Zed\Payment\PaymentGateway`
	iface    = `\App\Zed\Payment\PaymentPluginInterface`
	stripe   = `\App\Zed\Payment\StripePlugin`
)

func TestBuilderEdges(t *testing.T) {
	g, _ := buildGraph(t, checkoutFile(), paymentFile())

	tests := []struct {
		name     string
		from, to naming.Key
		kind     EdgeKind
	}{
		{"intra", key(facade, "helper"), key(facade, "checkout"), EdgeIntra},
		{"static parent", key(facade, "helper"), key(`\App\Zed\Checkout\Business\BaseFacade`, "boot"), EdgeStatic},
		{"static imported", key(facade, "helper"), key(`\App\Shared\Logger`, "log"), EdgeStatic},
		{"factory return", key(facade, "checkout"), key(iface, "pay"), EdgeFactoryReturn},
		{"documented getFactory", key(facade, "checkout"), key(`\App\Zed\Checkout\Business\CheckoutBusinessFactory`, "createPaymentPlugin"), EdgeFactoryReturn},
		{"this-prop", key(gateway, "viaProperty"), key(iface, "pay"), EdgeThisProp},
		{"this-prop impl", key(gateway, "viaProperty"), key(stripe, "pay"), EdgeIfaceImpl},
		{"param", key(gateway, "viaParam"), key(iface, "pay"), EdgeMethod},
		{"param impl", key(gateway, "viaParam"), key(stripe, "pay"), EdgeIfaceImpl},
		{"local", key(gateway, "viaLocal"), key(stripe, "pay"), EdgeMethod},
		{"new base", key(gateway, "viaNew"), key(stripe, "pay"), EdgeMethod},
		{"property typed in later constructor", key(workflow, "run"), key(`\App\Zed\Checkout\Business\Repo`, "save"), EdgeThisProp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, ok := edgeKind(g, tt.from, tt.to)
			if !ok {
				t.Fatalf("missing edge %s -> %s; callees: %v", tt.from, tt.to, g.Callees(tt.from))
			}
			if kind != tt.kind {
				t.Errorf("kind = %s, want %s", kind, tt.kind)
			}
		})
	}
}

func TestBuilderFactoryChainOnVariable(t *testing.T) {
	file := &phpast.File{Path: "src/Pay.php", Children: []phpast.Node{
		&phpast.Namespace{Name: `App\Zed\Pay\Business`},
		&phpast.Class{
			Name: "PayFacade",
			Members: []phpast.Node{
				&phpast.Method{
					Name:       "checkout",
					Visibility: "public",
					Body: []phpast.Node{
						&phpast.Assign{Left: &phpast.Variable{Name: "factory"}, Right: call(this(), "getFactory")},
						call(call(&phpast.Variable{Name: "factory"}, "createPlugin"), "pay"),
					},
				},
			},
		},
		&phpast.Class{
			Name: "PayBusinessFactory",
			Members: []phpast.Node{
				&phpast.Method{
					Name:       "createPlugin",
					ReturnType: name("Stripe"),
					Body:       []phpast.Node{&phpast.Return{Value: &phpast.New{Class: name("Stripe")}}},
				},
			},
		},
		&phpast.Class{
			Name:    "Stripe",
			Members: []phpast.Node{&phpast.Method{Name: "pay", Visibility: "public", Body: []phpast.Node{}}},
		},
	}}
	g, _ := buildGraph(t, file)

	from := key(`\App\Zed\Pay\Business\PayFacade`, "checkout")
	to := key(`\App\Zed\Pay\Business\Stripe`, "pay")
	kind, ok := edgeKind(g, from, to)
	if !ok {
		t.Fatalf("missing edge %s -> %s; callees: %v", from, to, g.Callees(from))
	}
	if kind != EdgeFactoryReturn {
		t.Errorf("kind = %s, want %s", kind, EdgeFactoryReturn)
	}
}

func TestBuilderDoesNotFabricate(t *testing.T) {
	g, _ := buildGraph(t, checkoutFile(), paymentFile())

	if _, ok := edgeKind(g, key(facade, "checkout"), key(stripe, "pay")); ok {
		t.Error("factory-return edges must not propagate to implementations")
	}
	if _, ok := edgeKind(g, key(gateway, "viaLocal"), key(stripe, "refund")); ok {
		t.Error("reassigned local kept its type")
	}
	if callees := g.Callees(key(gateway, "untyped")); len(callees) != 0 {
		t.Errorf("untyped variable produced edges: %v", callees)
	}
	for _, e := range g.Callees(key(facade, "helper")) {
		if strings.Contains(string(e.To), "dynamic") {
			t.Errorf("dynamic static call produced edge %v", e)
		}
	}
}

func TestBuilderDuplicateEdges(t *testing.T) {
	g, _ := buildGraph(t, checkoutFile(), paymentFile())

	// helper calls checkout three times: $this->checkout(), $this->CHECKOUT()
	// and self::checkout(). Only the first kind is kept.
	kind, _ := edgeKind(g, key(facade, "helper"), key(facade, "checkout"))
	if kind != EdgeIntra {
		t.Errorf("kind = %s, want first recorded kind intra", kind)
	}
	count := 0
	for _, e := range g.Callees(key(facade, "helper")) {
		if e.To == key(facade, "checkout") {
			count++
		}
	}
	if count != 1 {
		t.Errorf("duplicate forward edges: %d", count)
	}
	if callers := g.Callers(key(facade, "checkout")); !reflect.DeepEqual(callers, []naming.Key{key(facade, "helper")}) {
		t.Errorf("Callers = %v", callers)
	}
}

func TestBuilderNodes(t *testing.T) {
	g, table := buildGraph(t, checkoutFile(), paymentFile())

	for _, m := range table.Methods() {
		if _, ok := g.Node(m.Key); !ok {
			t.Errorf("declared method %s has no node", m.Key)
		}
	}

	n, ok := g.Node(key(`\App\Shared\Logger`, "log"))
	if !ok {
		t.Fatal("placeholder for Logger::log missing")
	}
	if n.Visibility != symbols.Unknown || n.Class != `\App\Shared\Logger` || n.Method != "log" {
		t.Errorf("placeholder = %+v", n)
	}

	helper, _ := g.Node(key(facade, "helper"))
	if helper.Visibility != symbols.Protected {
		t.Errorf("helper visibility = %s", helper.Visibility)
	}
}

func TestShadowedDeclarationSkipped(t *testing.T) {
	old := &phpast.File{Path: "old.php", Children: []phpast.Node{
		&phpast.Class{Name: "Dup", Members: []phpast.Node{
			&phpast.Method{Name: "a", Body: []phpast.Node{call(this(), "stale")}},
		}},
	}}
	fresh := &phpast.File{Path: "new.php", Children: []phpast.Node{
		&phpast.Class{Name: "Dup", Members: []phpast.Node{
			&phpast.Method{Name: "a", Body: []phpast.Node{call(this(), "fresh")}},
		}},
	}}

	g, _ := buildGraph(t, old, fresh)
	callees := g.Callees(key(`\Dup`, "a"))
	if len(callees) != 1 || callees[0].To != key(`\Dup`, "fresh") {
		t.Errorf("callees = %v", callees)
	}
}

func TestLink(t *testing.T) {
	g, table := buildGraph(t, checkoutFile(), paymentFile())

	if n := Link(g, table); n != 1 {
		t.Errorf("Link() = %d bridges, want 1", n)
	}

	callers := g.CallerEdges(key(stripe, "pay"))
	var linked bool
	for _, e := range callers {
		if e.From == key(iface, "pay") {
			linked = true
			if e.Kind != EdgeInterfaceLink {
				t.Errorf("bridge kind = %s", e.Kind)
			}
		}
	}
	if !linked {
		t.Errorf("interface bridge missing: %v", callers)
	}

	edges := g.EdgeCount()
	Link(g, table)
	if g.EdgeCount() != edges {
		t.Error("Link must not add forward edges")
	}
}

func TestPath(t *testing.T) {
	g, table := buildGraph(t, checkoutFile(), paymentFile())
	Link(g, table)

	got := g.Path(key(facade, "helper"), key(stripe, "pay"))
	want := []naming.Key{key(facade, "helper"), key(facade, "checkout"), key(iface, "pay"), key(stripe, "pay")}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Path = %v, want %v", got, want)
	}

	if p := g.Path(key(stripe, "pay"), key(facade, "checkout")); p != nil {
		t.Errorf("Path against the call direction = %v", p)
	}
	if p := g.Path(key(stripe, "pay"), key(stripe, "pay")); len(p) != 1 {
		t.Errorf("Path to self = %v", p)
	}
}

func TestGraphAccessorsSorted(t *testing.T) {
	g := New()
	g.AddEdge("\\c::x", "\\a::y", EdgeIntra)
	g.AddEdge("\\a::x", "\\b::y", EdgeStatic)
	g.AddEdge("\\a::x", "\\a::y", EdgeMethod)
	g.AddReverse("\\a::y", "\\z::z")

	edges := g.Edges()
	if len(edges) != 3 || edges[0].To != "\\a::y" || edges[1].To != "\\b::y" || edges[2].From != "\\c::x" {
		t.Errorf("Edges() = %v", edges)
	}

	var callees []naming.Key
	g.WalkReverse(func(callee naming.Key, callers []naming.Key) {
		callees = append(callees, callee)
		if callee == "\\a::y" && !reflect.DeepEqual(callers, []naming.Key{"\\a::x", "\\c::x", "\\z::z"}) {
			t.Errorf("callers of a::y = %v", callers)
		}
	})
	if !reflect.DeepEqual(callees, []naming.Key{"\\a::y", "\\b::y"}) {
		t.Errorf("WalkReverse order = %v", callees)
	}
}

func TestUnwrap(t *testing.T) {
	tests := []struct {
		name  string
		call  *phpast.Call
		base  string
		names []string
		ok    bool
	}{
		{"direct", call(this(), "run"), "this", []string{"run"}, true},
		{"property", call(fetch(this(), "repo"), "save"), "this", []string{"repo", "save"}, true},
		{"factory", call(call(call(this(), "getFactory"), "createX"), "run"), "this", []string{"getFactory", "createX", "run"}, true},
		{"variable", call(&phpast.Variable{Name: "v"}, "go"), "v", []string{"go"}, true},
		{"function", &phpast.Call{Callee: name("strlen")}, "", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch, ok := unwrap(tt.call)
			if ok != tt.ok {
				t.Fatalf("ok = %v", ok)
			}
			if !ok {
				return
			}
			if v, _ := ch.base.(*phpast.Variable); v == nil || v.Name != tt.base {
				t.Errorf("base = %#v", ch.base)
			}
			if !reflect.DeepEqual(ch.names, tt.names) {
				t.Errorf("names = %v, want %v", ch.names, tt.names)
			}
		})
	}
}

func TestGenerateMermaid(t *testing.T) {
	g, table := buildGraph(t, checkoutFile(), paymentFile())
	Link(g, table)

	out := GenerateMermaid(g, g.CallerEdges(key(stripe, "pay")), nil)
	if !strings.HasPrefix(out, "flowchart LR\n") {
		t.Errorf("missing header:\n%s", out)
	}
	if !strings.Contains(out, `["StripePlugin::pay"]`) {
		t.Errorf("missing node label:\n%s", out)
	}
	if !strings.Contains(out, "-.->|iface-link|") {
		t.Errorf("missing bridge edge:\n%s", out)
	}

	collapsed := GenerateMermaid(g, g.Edges(), &MermaidOptions{MaxNodes: 2, Collapse: true})
	if !strings.Contains(collapsed, `Checkout --> Payment`) {
		t.Errorf("collapsed view lacks module edge:\n%s", collapsed)
	}
}
