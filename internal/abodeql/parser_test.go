package abodeql

import (
	"errors"
	"reflect"
	"testing"
)

func mustParse(t *testing.T, query string) []Node {
	t.Helper()
	nodes, err := Parse(query)
	if err != nil {
		t.Fatalf("Parse(%q): unexpected error: %v", query, err)
	}
	return nodes
}

func TestParseBasicQueries(t *testing.T) {
	t.Run("bare symbols get implicit AND", func(t *testing.T) {
		got := mustParse(t, "hello world")
		want := []Node{
			&Symbol{Value: "hello"},
			&Symbol{Value: "AND"},
			&Symbol{Value: "world"},
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("got %#v, want %#v", got, want)
		}
	})

	t.Run("quoted string with escaped quote", func(t *testing.T) {
		got := mustParse(t, `"Hello \" World"`)
		want := []Node{&String{Value: `Hello " World`}}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("got %#v, want %#v", got, want)
		}
	})

	t.Run("group", func(t *testing.T) {
		got := mustParse(t, "(group me please)")
		want := []Node{
			&Group{Children: []Node{
				&Symbol{Value: "group"},
				&Symbol{Value: "AND"},
				&Symbol{Value: "me"},
				&Symbol{Value: "AND"},
				&Symbol{Value: "please"},
			}},
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("got %#v, want %#v", got, want)
		}
	})

	t.Run("label", func(t *testing.T) {
		got := mustParse(t, "x:y")
		want := []Node{&Label{Name: "x", Value: &Symbol{Value: "y"}, Exact: false}}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("got %#v, want %#v", got, want)
		}
	})

	t.Run("exact label", func(t *testing.T) {
		got := mustParse(t, "x=y")
		want := []Node{&Label{Name: "x", Value: &Symbol{Value: "y"}, Exact: true}}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("got %#v, want %#v", got, want)
		}
	})

	t.Run("label with group value", func(t *testing.T) {
		got := mustParse(t, "x:(y z)")
		want := []Node{
			&Label{
				Name: "x",
				Value: &Group{Children: []Node{
					&Symbol{Value: "y"},
					&Symbol{Value: "AND"},
					&Symbol{Value: "z"},
				}},
			},
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("got %#v, want %#v", got, want)
		}
	})

	t.Run("regex", func(t *testing.T) {
		got := mustParse(t, `x:/.* lol \d me/`)
		want := []Node{
			&Label{Name: "x", Value: &Regex{Pattern: `.* lol \d me`}},
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("got %#v, want %#v", got, want)
		}
	})

	t.Run("regex with case flag", func(t *testing.T) {
		got := mustParse(t, `x:/.* lol \d me/i`)
		want := []Node{
			&Label{Name: "x", Value: &Regex{Pattern: `.* lol \d me`, CaseInsensitive: true}},
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("got %#v, want %#v", got, want)
		}
	})

	t.Run("regex escaped delimiter", func(t *testing.T) {
		got := mustParse(t, `x:/a\/b/`)
		want := []Node{&Label{Name: "x", Value: &Regex{Pattern: "a/b"}}}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("got %#v, want %#v", got, want)
		}
	})
}

func TestParseComplexQueries(t *testing.T) {
	got := mustParse(t, `type:attachment guild:"discord api" (from:Jake#0001 OR from=danny#0007)`)
	want := []Node{
		&Label{Name: "type", Value: &Symbol{Value: "attachment"}},
		&Symbol{Value: "AND"},
		&Label{Name: "guild", Value: &String{Value: "discord api"}},
		&Symbol{Value: "AND"},
		&Group{Children: []Node{
			&Label{Name: "from", Value: &Symbol{Value: "Jake#0001"}},
			&Symbol{Value: "OR"},
			&Label{Name: "from", Value: &Symbol{Value: "danny#0007"}, Exact: true},
		}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
}

func TestParseReturns(t *testing.T) {
	t.Run("arrow forms", func(t *testing.T) {
		for _, query := range []string{"-> id name", "=> id name"} {
			got := mustParse(t, query)
			want := []Node{&Return{Fields: []string{"id", "name"}}}
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("Parse(%q) = %#v, want %#v", query, got, want)
			}
		}
	})

	t.Run("dotted fields", func(t *testing.T) {
		got := mustParse(t, "-> id guild.name guild.owner.name")
		want := []Node{&Return{Fields: []string{"id", "guild.name", "guild.owner.name"}}}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("got %#v, want %#v", got, want)
		}
	})

	t.Run("never AND-joined to neighbours", func(t *testing.T) {
		got := mustParse(t, "name:blob -> id name")
		want := []Node{
			&Label{Name: "name", Value: &Symbol{Value: "blob"}},
			&Return{Fields: []string{"id", "name"}},
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("got %#v, want %#v", got, want)
		}
	})

	t.Run("non-symbol field is an error", func(t *testing.T) {
		var parseErr *ParseError
		if _, err := Parse(`-> "id"`); !errors.As(err, &parseErr) {
			t.Fatalf("expected ParseError, got %v", err)
		}
	})
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"unterminated string", `name:"blob`},
		{"unterminated regex", `name:/blob`},
		{"label without value", "name:"},
		{"unknown regex flag", "name:/x/z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var parseErr *ParseError
			if _, err := Parse(tt.query); !errors.As(err, &parseErr) {
				t.Fatalf("Parse(%q): expected ParseError, got %v", tt.query, err)
			}
		})
	}
}

func TestFixJoinerPlacement(t *testing.T) {
	t.Run("leading joiner", func(t *testing.T) {
		var joinerErr *JoinerError
		if _, err := Parse("AND name:x"); !errors.As(err, &joinerErr) {
			t.Fatalf("expected JoinerError, got %v", err)
		}
	})

	t.Run("leading NOT at top level", func(t *testing.T) {
		var joinerErr *JoinerError
		if _, err := Parse("NOT name:x"); !errors.As(err, &joinerErr) {
			t.Fatalf("expected JoinerError, got %v", err)
		}
	})

	t.Run("leading NOT inside a group", func(t *testing.T) {
		if _, err := Parse("(NOT x) OR y"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("adjacent joiners", func(t *testing.T) {
		var joinerErr *JoinerError
		if _, err := Parse("x AND OR y"); !errors.As(err, &joinerErr) {
			t.Fatalf("expected JoinerError, got %v", err)
		}
	})

	t.Run("NOT after bare symbol", func(t *testing.T) {
		var joinerErr *JoinerError
		if _, err := Parse("x NOT y"); !errors.As(err, &joinerErr) {
			t.Fatalf("expected JoinerError, got %v", err)
		}
	})
}

func TestFixIsIdempotent(t *testing.T) {
	queries := []string{
		"hello world",
		"name:(discord AND NOT api)",
		`a OR (b c) -> id name`,
		"x:y z=w",
	}
	for _, query := range queries {
		fixed := mustParse(t, query)
		again, err := fixNodes(fixed, false)
		if err != nil {
			t.Fatalf("refix(%q): unexpected error: %v", query, err)
		}
		if !reflect.DeepEqual(fixed, again) {
			t.Fatalf("refix(%q) changed the tree:\nfirst  %#v\nsecond %#v", query, fixed, again)
		}
	}
}
