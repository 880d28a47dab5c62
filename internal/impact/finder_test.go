package impact

import (
	"errors"
	"reflect"
	"sort"
	"testing"

	"github.com/hargabyte/phpimpact/internal/naming"
	"github.com/hargabyte/phpimpact/internal/symbols"
)

// fakeGraph is a reverse adjacency map: callee -> callers.
type fakeGraph map[naming.Key][]naming.Key

func (g fakeGraph) Callers(key naming.Key) []naming.Key {
	out := append([]naming.Key(nil), g[key]...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

type fakeMethods map[naming.Key]*symbols.Method

func (m fakeMethods) Method(key naming.Key) (*symbols.Method, bool) {
	meta, ok := m[key]
	return meta, ok
}

func method(class, name string, vis symbols.Visibility) (naming.Key, *symbols.Method) {
	key := naming.CanonKey(class, name)
	return key, &symbols.Method{
		Key:         key,
		Class:       naming.NewFQN(class),
		Name:        name,
		Visibility:  vis,
		File:        "src/x.php",
		StartLine:   3,
		Description: name + " description",
	}
}

type fixture struct {
	graph   fakeGraph
	methods fakeMethods
	keys    map[string]naming.Key
}

func newFixture() *fixture {
	return &fixture{graph: fakeGraph{}, methods: fakeMethods{}, keys: map[string]naming.Key{}}
}

func (f *fixture) add(alias, class, name string, vis symbols.Visibility) {
	key, m := method(class, name, vis)
	f.methods[key] = m
	f.keys[alias] = key
}

func (f *fixture) call(caller, callee string) {
	f.graph[f.keys[callee]] = append(f.graph[f.keys[callee]], f.keys[caller])
}

func (f *fixture) finder(t *testing.T, pattern string, opts ...Option) *Finder {
	t.Helper()
	fd, err := NewFinder(f.graph, f.methods, pattern, opts...)
	if err != nil {
		t.Fatalf("NewFinder: %v", err)
	}
	return fd
}

func TestFindHopDistances(t *testing.T) {
	f := newFixture()
	f.add("A", `\Spryker\Zed\Sales\Business\SalesFacade`, "placeOrder", symbols.Public)
	f.add("B", `\Spryker\Client\Sales\SalesClient`, "order", symbols.Public)
	f.add("C", `\Spryker\Zed\Sales\Business\Model\Writer`, "write", symbols.Public)
	f.call("A", "B")
	f.call("B", "C")

	got := f.finder(t, "").Find(f.keys["C"])
	if len(got) != 2 {
		t.Fatalf("Find() = %+v", got)
	}
	if got[0].Key != f.keys["B"] || got[0].Hops != 1 {
		t.Errorf("first = %s at %d, want B at 1", got[0].Key, got[0].Hops)
	}
	if got[1].Key != f.keys["A"] || got[1].Hops != 2 {
		t.Errorf("second = %s at %d, want A at 2", got[1].Key, got[1].Hops)
	}
	if got[1].Module != "Sales" || got[1].Description != "placeOrder description" || got[1].Line != 3 {
		t.Errorf("record = %+v", got[1])
	}
	if got[0].Path != nil {
		t.Error("path recorded without explain")
	}
}

func TestFindCyclesAndSelfLoops(t *testing.T) {
	f := newFixture()
	f.add("A", `\App\FooFacade`, "a", symbols.Public)
	f.add("B", `\App\BarFacade`, "b", symbols.Public)
	f.call("A", "A")
	f.call("A", "B")
	f.call("B", "A")
	f.call("B", "B")

	got := f.finder(t, "").Find(f.keys["B"])
	if len(got) != 1 || got[0].Key != f.keys["A"] || got[0].Hops != 1 {
		t.Errorf("Find() = %+v, want only A at 1", got)
	}
}

func TestFindNoPredecessors(t *testing.T) {
	f := newFixture()
	f.add("A", `\App\FooFacade`, "a", symbols.Public)

	got := f.finder(t, "").Find(f.keys["A"])
	if got == nil || len(got) != 0 {
		t.Errorf("Find() = %#v, want empty non-nil slice", got)
	}
	if got := f.finder(t, "").Find("\\unknown::method"); len(got) != 0 {
		t.Errorf("unknown target = %+v", got)
	}
}

func TestFindFilters(t *testing.T) {
	f := newFixture()
	f.add("target", `\App\Model\Repo`, "save", symbols.Public)
	f.add("protected", `\App\OrderFacade`, "internal", symbols.Protected)
	f.add("private", `\App\OrderFacade`, "hidden", symbols.Private)
	f.add("nonEntry", `\App\Model\Writer`, "write", symbols.Public)
	f.add("iface", `\App\OrderFacadeInterface`, "save", symbols.Public)
	f.add("client", `\App\OrderClient`, "save", symbols.Public)
	f.add("plugin", `\App\Plugin\StripePlugin`, "pay", symbols.Public)
	f.call("protected", "target")
	f.call("private", "target")
	f.call("nonEntry", "target")
	f.call("iface", "target")
	f.call("client", "nonEntry")
	f.call("plugin", "protected")
	// Placeholder caller without metadata.
	f.graph[f.keys["target"]] = append(f.graph[f.keys["target"]], "\\app\\ghostfacade::run")

	got := f.finder(t, "").Find(f.keys["target"])
	var keys []naming.Key
	for _, ep := range got {
		keys = append(keys, ep.Key)
	}
	want := []naming.Key{f.keys["client"], f.keys["plugin"]}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("entrypoints = %v, want %v", keys, want)
	}

	custom := f.finder(t, `Interface$`).Find(f.keys["target"])
	if len(custom) != 1 || custom[0].Key != f.keys["iface"] {
		t.Errorf("custom pattern = %+v", custom)
	}
}

func TestFindOrdering(t *testing.T) {
	f := newFixture()
	f.add("T", `\App\Model\T`, "t", symbols.Public)
	f.add("Z", `\App\ZFacade`, "z", symbols.Public)
	f.add("Y", `\App\YFacade`, "y", symbols.Public)
	f.add("X", `\App\XFacade`, "x", symbols.Public)
	f.call("Z", "T")
	f.call("Y", "T")
	f.call("X", "Z")

	got := f.finder(t, "").Find(f.keys["T"])
	var order []naming.Key
	for _, ep := range got {
		order = append(order, ep.Key)
	}
	want := []naming.Key{f.keys["Y"], f.keys["Z"], f.keys["X"]}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestFindExplain(t *testing.T) {
	f := newFixture()
	f.add("A", `\App\AFacade`, "a", symbols.Public)
	f.add("B", `\App\Model\B`, "b", symbols.Public)
	f.add("C", `\App\Model\C`, "c", symbols.Public)
	f.call("A", "B")
	f.call("B", "C")

	got := f.finder(t, "", WithExplain()).Find(f.keys["C"])
	if len(got) != 1 {
		t.Fatalf("Find() = %+v", got)
	}
	want := []naming.Key{f.keys["A"], f.keys["B"], f.keys["C"]}
	if !reflect.DeepEqual(got[0].Path, want) {
		t.Errorf("Path = %v, want %v", got[0].Path, want)
	}
}

func TestNewFinderInvalidPattern(t *testing.T) {
	_, err := NewFinder(fakeGraph{}, fakeMethods{}, "(")
	if !errors.Is(err, ErrInvalidPattern) {
		t.Errorf("err = %v, want ErrInvalidPattern", err)
	}

	fd, err := NewFinder(fakeGraph{}, fakeMethods{}, "")
	if err != nil {
		t.Fatalf("NewFinder: %v", err)
	}
	if fd.Pattern() != DefaultPattern {
		t.Errorf("default pattern = %q", fd.Pattern())
	}
}
