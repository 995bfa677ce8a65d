package abodeql

import (
	"errors"
	"reflect"
	"regexp"
	"strconv"
	"testing"
)

// Fixture models mirroring the archive schema.
var (
	testUser = NewModel("user", "users", "id").
			Field("id", TypeSnowflake).
			Field("name", TypeString).
			Field("bot", TypeBoolean)

	testGuild = NewModel("guild", "guilds", "id").
			Field("id", TypeSnowflake).
			Field("owner_id", TypeSnowflake).
			Field("name", TypeString).
			Ref("owner", testUser, "owner_id", "id", true)

	testMessage = NewModel("message", "messages", "id").
			Field("id", TypeSnowflake).
			Field("guild_id", TypeSnowflake).
			Field("author_id", Optional(TypeSnowflake)).
			Field("content", TypeString).
			Field("created_at", TypeTimestamp).
			FTS("content").
			Ref("guild", testGuild, "guild_id", "id", true).
			Ref("author", testUser, "author_id", "id", true)
)

func mustCompile(t *testing.T, query string, model *Model, opts CompileOptions) *CompileResult {
	t.Helper()
	result, err := CompileQuery(query, model, opts)
	if err != nil {
		t.Fatalf("CompileQuery(%q): unexpected error: %v", query, err)
	}
	return result
}

func checkCompile(t *testing.T, got *CompileResult, sql string, args []any, models []*Model) {
	t.Helper()
	if got.SQL != sql {
		t.Errorf("sql mismatch:\ngot  %s\nwant %s", got.SQL, sql)
	}
	if (len(args) > 0 || len(got.Args) > 0) && !reflect.DeepEqual(got.Args, args) {
		t.Errorf("args mismatch: got %#v, want %#v", got.Args, args)
	}
	if !reflect.DeepEqual(got.Models, models) {
		t.Errorf("models mismatch: got %v, want %v", modelNames(got.Models), modelNames(models))
	}
}

func modelNames(models []*Model) []string {
	names := make([]string, len(models))
	for i, m := range models {
		names[i] = m.Name
	}
	return names
}

func TestCompileBasicQueries(t *testing.T) {
	t.Run("wildcard ILIKE on string field", func(t *testing.T) {
		got := mustCompile(t, "name:blob", testGuild, CompileOptions{})
		checkCompile(t, got,
			"SELECT guilds.* FROM guilds WHERE guilds.name ILIKE $1",
			[]any{"%blob%"}, []*Model{testGuild})
	})

	t.Run("quoted string keeps its shape", func(t *testing.T) {
		got := mustCompile(t, `name:"blob"`, testGuild, CompileOptions{})
		checkCompile(t, got,
			"SELECT guilds.* FROM guilds WHERE guilds.name ILIKE $1",
			[]any{"blob"}, []*Model{testGuild})
	})

	t.Run("explicit wildcard", func(t *testing.T) {
		got := mustCompile(t, "name:blob*", testGuild, CompileOptions{})
		checkCompile(t, got,
			"SELECT guilds.* FROM guilds WHERE guilds.name ILIKE $1",
			[]any{"blob%"}, []*Model{testGuild})
	})

	t.Run("group with implicit AND", func(t *testing.T) {
		got := mustCompile(t, "name:(blob emoji)", testGuild, CompileOptions{})
		checkCompile(t, got,
			"SELECT guilds.* FROM guilds WHERE (guilds.name ILIKE $1 AND guilds.name ILIKE $2)",
			[]any{"%blob%", "%emoji%"}, []*Model{testGuild})
	})

	t.Run("group with NOT", func(t *testing.T) {
		got := mustCompile(t, "name:(discord AND NOT api)", testGuild, CompileOptions{})
		checkCompile(t, got,
			"SELECT guilds.* FROM guilds WHERE (guilds.name ILIKE $1 AND NOT guilds.name ILIKE $2)",
			[]any{"%discord%", "%api%"}, []*Model{testGuild})
	})

	t.Run("snowflake equality", func(t *testing.T) {
		got := mustCompile(t, "id:1", testGuild, CompileOptions{})
		checkCompile(t, got,
			"SELECT guilds.* FROM guilds WHERE guilds.id = $1",
			[]any{int64(1)}, []*Model{testGuild})
	})

	t.Run("exact label on snowflake", func(t *testing.T) {
		got := mustCompile(t, "id=1", testGuild, CompileOptions{})
		checkCompile(t, got,
			"SELECT guilds.* FROM guilds WHERE guilds.id = $1",
			[]any{int64(1)}, []*Model{testGuild})
	})

	t.Run("exact label on string", func(t *testing.T) {
		got := mustCompile(t, "name=blob", testGuild, CompileOptions{})
		checkCompile(t, got,
			"SELECT guilds.* FROM guilds WHERE guilds.name = $1",
			[]any{"blob"}, []*Model{testGuild})
	})

	t.Run("exact propagates into group values", func(t *testing.T) {
		got := mustCompile(t, `name=(blob OR "api")`, testGuild, CompileOptions{})
		checkCompile(t, got,
			"SELECT guilds.* FROM guilds WHERE (guilds.name = $1 OR guilds.name = $2)",
			[]any{"blob", "api"}, []*Model{testGuild})
	})
}

func TestCompileComplexQueries(t *testing.T) {
	t.Run("top-level OR", func(t *testing.T) {
		got := mustCompile(t, "name:blob OR name:api", testGuild, CompileOptions{})
		checkCompile(t, got,
			"SELECT guilds.* FROM guilds WHERE guilds.name ILIKE $1 OR guilds.name ILIKE $2",
			[]any{"%blob%", "%api%"}, []*Model{testGuild})
	})

	t.Run("one-hop reference join", func(t *testing.T) {
		got := mustCompile(t, "guild.name:blob", testMessage, CompileOptions{})
		checkCompile(t, got,
			"SELECT messages.* FROM messages JOIN guilds ON messages.guild_id = guilds.id WHERE guilds.name ILIKE $1",
			[]any{"%blob%"}, []*Model{testMessage})
	})

	t.Run("two-hop reference join", func(t *testing.T) {
		got := mustCompile(t, "guild.owner.name:Danny", testMessage, CompileOptions{})
		checkCompile(t, got,
			"SELECT messages.* FROM messages JOIN guilds ON messages.guild_id = guilds.id JOIN users ON guilds.owner_id = users.id WHERE users.name ILIKE $1",
			[]any{"%Danny%"}, []*Model{testMessage})
	})

	t.Run("full-text search", func(t *testing.T) {
		got := mustCompile(t, "content:yeet", testMessage, CompileOptions{})
		checkCompile(t, got,
			"SELECT messages.* FROM messages WHERE to_tsvector('english', messages.content) @@ to_tsquery($1)",
			[]any{"yeet"}, []*Model{testMessage})
	})

	t.Run("mixed symbol and string in group", func(t *testing.T) {
		got := mustCompile(t, `guild.name:(a "b")`, testMessage, CompileOptions{})
		checkCompile(t, got,
			"SELECT messages.* FROM messages JOIN guilds ON messages.guild_id = guilds.id WHERE (guilds.name ILIKE $1 AND guilds.name ILIKE $2)",
			[]any{"%a%", "b"}, []*Model{testMessage})
	})

	t.Run("regex", func(t *testing.T) {
		got := mustCompile(t, "name: /xxx.*xxx/i", testGuild, CompileOptions{})
		checkCompile(t, got,
			"SELECT guilds.* FROM guilds WHERE guilds.name ~* $1",
			[]any{"xxx.*xxx"}, []*Model{testGuild})
	})

	t.Run("case-sensitive regex", func(t *testing.T) {
		got := mustCompile(t, "name:/^Blob/", testGuild, CompileOptions{})
		checkCompile(t, got,
			"SELECT guilds.* FROM guilds WHERE guilds.name ~ $1",
			[]any{"^Blob"}, []*Model{testGuild})
	})

	t.Run("bare symbol traverses a reference", func(t *testing.T) {
		got := mustCompile(t, "guild", testMessage, CompileOptions{})
		checkCompile(t, got,
			"SELECT messages.* FROM messages JOIN guilds ON messages.guild_id = guilds.id WHERE true",
			nil, []*Model{testMessage})
	})
}

func TestCompileForeignData(t *testing.T) {
	messageSelector := Selector(testMessage)
	guildSelector := Selector(testGuild)
	userSelector := Selector(testUser)

	t.Run("always-join refs are projected", func(t *testing.T) {
		got := mustCompile(t, "", testMessage, CompileOptions{IncludeForeignData: true})
		checkCompile(t, got,
			"SELECT "+messageSelector+", "+guildSelector+", "+userSelector+
				" FROM messages JOIN guilds ON messages.guild_id = guilds.id JOIN users ON messages.author_id = users.id",
			nil, []*Model{testMessage, testGuild, testUser})
	})

	t.Run("where joins do not duplicate projection joins", func(t *testing.T) {
		got := mustCompile(t, "guild.id:1", testMessage, CompileOptions{IncludeForeignData: true})
		checkCompile(t, got,
			"SELECT "+messageSelector+", "+guildSelector+", "+userSelector+
				" FROM messages JOIN guilds ON messages.guild_id = guilds.id JOIN users ON messages.author_id = users.id WHERE guilds.id = $1",
			[]any{int64(1)}, []*Model{testMessage, testGuild, testUser})
	})

	t.Run("every projected model is joined", func(t *testing.T) {
		got := mustCompile(t, "", testMessage, CompileOptions{IncludeForeignData: true})
		for _, m := range got.Models[1:] {
			if !regexp.MustCompile(" JOIN " + m.Table + " ON ").MatchString(got.SQL) {
				t.Errorf("model %q projected without a join: %s", m.Name, got.SQL)
			}
		}
	})
}

func TestCompilePagination(t *testing.T) {
	t.Run("limit offset and order", func(t *testing.T) {
		got := mustCompile(t, "", testGuild, CompileOptions{Limit: 100, Offset: 150, OrderBy: "id"})
		checkCompile(t, got,
			"SELECT guilds.* FROM guilds ORDER BY guilds.id ASC LIMIT 100 OFFSET 150",
			nil, []*Model{testGuild})
	})

	t.Run("descending order", func(t *testing.T) {
		got := mustCompile(t, "", testGuild, CompileOptions{OrderBy: "id", OrderDir: "DESC"})
		checkCompile(t, got,
			"SELECT guilds.* FROM guilds ORDER BY guilds.id DESC",
			nil, []*Model{testGuild})
	})

	t.Run("offset requires a positive limit", func(t *testing.T) {
		got := mustCompile(t, "", testGuild, CompileOptions{Offset: 150})
		checkCompile(t, got, "SELECT guilds.* FROM guilds", nil, []*Model{testGuild})
	})

	t.Run("order by foreign field adds its join", func(t *testing.T) {
		got := mustCompile(t, "", testMessage, CompileOptions{OrderBy: "guild.name"})
		checkCompile(t, got,
			"SELECT messages.* FROM messages JOIN guilds ON messages.guild_id = guilds.id ORDER BY guilds.name ASC",
			nil, []*Model{testMessage})
	})

	t.Run("bad direction", func(t *testing.T) {
		var dirErr *OrderDirectionError
		_, err := CompileQuery("", testGuild, CompileOptions{OrderBy: "id", OrderDir: "SIDEWAYS"})
		if !errors.As(err, &dirErr) {
			t.Fatalf("expected OrderDirectionError, got %v", err)
		}
	})
}

func TestCompileReturns(t *testing.T) {
	t.Run("explicit projection", func(t *testing.T) {
		got := mustCompile(t, "name:blob -> id owner.name", testGuild, CompileOptions{Returns: true})
		checkCompile(t, got,
			"SELECT guilds.* FROM guilds JOIN users ON guilds.owner_id = users.id WHERE guilds.name ILIKE $1",
			[]any{"%blob%"}, []*Model{testGuild})
		if want := []string{"id", "owner.name"}; !reflect.DeepEqual(got.ReturnFields, want) {
			t.Errorf("return fields: got %v, want %v", got.ReturnFields, want)
		}
	})

	t.Run("default projection is the flat field list", func(t *testing.T) {
		got := mustCompile(t, "name:blob", testGuild, CompileOptions{Returns: true})
		if want := []string{"id", "owner_id", "name"}; !reflect.DeepEqual(got.ReturnFields, want) {
			t.Errorf("return fields: got %v, want %v", got.ReturnFields, want)
		}
	})

	t.Run("omitted unless requested", func(t *testing.T) {
		got := mustCompile(t, "name:blob -> id", testGuild, CompileOptions{})
		if got.ReturnFields != nil {
			t.Errorf("return fields present without Returns: %v", got.ReturnFields)
		}
	})

	t.Run("unknown return field", func(t *testing.T) {
		var unknownErr *UnknownFieldError
		_, err := CompileQuery("-> bogus", testGuild, CompileOptions{Returns: true})
		if !errors.As(err, &unknownErr) {
			t.Fatalf("expected UnknownFieldError, got %v", err)
		}
	})
}

func TestCompileSubqueryOptimize(t *testing.T) {
	t.Run("one-hop label becomes IN subquery", func(t *testing.T) {
		got := mustCompile(t, "guild.name:blob", testMessage, CompileOptions{SubqueryOptimize: true})
		checkCompile(t, got,
			"SELECT messages.* FROM messages WHERE messages.guild_id IN (SELECT id FROM guilds WHERE guilds.name ILIKE $1)",
			[]any{"%blob%"}, []*Model{testMessage})
	})

	t.Run("deeper paths fall back to joins", func(t *testing.T) {
		got := mustCompile(t, "guild.owner.name:Danny", testMessage, CompileOptions{SubqueryOptimize: true})
		checkCompile(t, got,
			"SELECT messages.* FROM messages JOIN guilds ON messages.guild_id = guilds.id JOIN users ON guilds.owner_id = users.id WHERE users.name ILIKE $1",
			[]any{"%Danny%"}, []*Model{testMessage})
	})
}

func TestCompileErrors(t *testing.T) {
	t.Run("unknown field", func(t *testing.T) {
		var unknownErr *UnknownFieldError
		_, err := CompileQuery("bogus:1", testGuild, CompileOptions{})
		if !errors.As(err, &unknownErr) {
			t.Fatalf("expected UnknownFieldError, got %v", err)
		}
	})

	t.Run("unlabeled symbol", func(t *testing.T) {
		var unlabeledErr *UnlabeledSymbolError
		_, err := CompileQuery("unquoted rainbow", testGuild, CompileOptions{})
		if !errors.As(err, &unlabeledErr) {
			t.Fatalf("expected UnlabeledSymbolError, got %v", err)
		}
	})

	t.Run("unsupported type", func(t *testing.T) {
		var typeErr *UnsupportedTypeError
		_, err := CompileQuery("created_at:yesterday", testMessage, CompileOptions{})
		if !errors.As(err, &typeErr) {
			t.Fatalf("expected UnsupportedTypeError, got %v", err)
		}
	})

	t.Run("non-numeric snowflake token", func(t *testing.T) {
		var typeErr *UnsupportedTypeError
		_, err := CompileQuery("id:blob", testGuild, CompileOptions{})
		if !errors.As(err, &typeErr) {
			t.Fatalf("expected UnsupportedTypeError, got %v", err)
		}
	})
}

var placeholderPattern = regexp.MustCompile(`\$(\d+)`)

// Placeholders must appear exactly once each, numbered 1..N in order
// of first occurrence, with N equal to the argument count.
func TestPlaceholderInvariant(t *testing.T) {
	queries := []struct {
		query string
		model *Model
		opts  CompileOptions
	}{
		{"name:blob OR name:api", testGuild, CompileOptions{}},
		{"guild.name:(a b c) content:yeet", testMessage, CompileOptions{}},
		{`name:(discord AND NOT api) id:5`, testGuild, CompileOptions{Limit: 10}},
		{"guild.name:blob author.name:x", testMessage, CompileOptions{SubqueryOptimize: true}},
	}
	for _, tt := range queries {
		got := mustCompile(t, tt.query, tt.model, tt.opts)
		matches := placeholderPattern.FindAllStringSubmatch(got.SQL, -1)
		if len(matches) != len(got.Args) {
			t.Errorf("%q: %d placeholders for %d args", tt.query, len(matches), len(got.Args))
		}
		for i, m := range matches {
			n, _ := strconv.Atoi(m[1])
			if n != i+1 {
				t.Errorf("%q: placeholder %d appears at position %d", tt.query, n, i)
			}
		}
	}
}
