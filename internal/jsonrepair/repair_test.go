package jsonrepair

import (
	"errors"
	"testing"

	"stylegen/internal/domain"
)

type titlesPayload struct {
	Items []string `json:"items"`
}

func TestDecodeStages(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{name: "plain", raw: `{"items":["a","b"]}`, want: []string{"a", "b"}},
		{name: "fenced json", raw: "```json\n{\"items\":[\"a\"]}\n```", want: []string{"a"}},
		{name: "fenced without info", raw: "```\n{\"items\":[\"a\"]}\n```", want: []string{"a"}},
		{name: "prose around object", raw: `Sure! Here is the list: {"items":["x","y"]} Hope it helps. {"noise":1}`, want: []string{"x", "y"}},
		{name: "brace inside string", raw: `note {"items":["a}b"]} tail`, want: []string{"a}b"}},
		{name: "trailing commas", raw: "{\"items\":[\"a\",\"b\",],}", want: []string{"a", "b"}},
		{name: "fence plus prose plus trailing comma", raw: "```json\nresult: {\"items\": [\"a\", ],}\n```", want: []string{"a"}},
		{name: "comma inside string kept", raw: `{"items":["a,]",],}`, want: []string{"a,]"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Decode[titlesPayload](tc.raw)
			if err != nil {
				t.Fatalf("Decode error: %v", err)
			}
			if len(got.Items) != len(tc.want) {
				t.Fatalf("items = %#v, want %#v", got.Items, tc.want)
			}
			for i := range tc.want {
				if got.Items[i] != tc.want[i] {
					t.Fatalf("items[%d] = %q, want %q", i, got.Items[i], tc.want[i])
				}
			}
		})
	}
}

func TestDecodeFailures(t *testing.T) {
	for _, raw := range []string{"", "   ", "no json here", `{"items": ["a", "b"`, "```json\n```"} {
		if _, err := Decode[titlesPayload](raw); !errors.Is(err, domain.ErrParse) {
			t.Fatalf("Decode(%q) error = %v, want ErrParse", raw, err)
		}
	}
}

func TestDecodeArray(t *testing.T) {
	got, err := Decode[[]string]("the titles are [\"a\", \"b\",]")
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if len(got) != 2 || got[1] != "b" {
		t.Fatalf("got %#v", got)
	}
}

func TestValid(t *testing.T) {
	if !Valid(`{"ok":true}`) {
		t.Fatal("expected valid")
	}
	if Valid("nope") {
		t.Fatal("expected invalid")
	}
}
