package folio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	cases := []struct{ in, want string }{
		{"My Great Project", "my_great_project"},
		{"  spaced -- out  ", "spaced_out"},
		{"Ünïcode Café", "ünïcode_café"},
		{"Cafe\u0301 NFD", "café_nfd"},
		{"a_b__c", "a_b__c"},
		{"Hello, World! (v2)", "hello_world_v2"},
		{"___", "untitled"},
		{"", "untitled"},
		{"!!!", "untitled"},
		{"trailing-", "trailing"},
		{"tab\tand\nnewline", "tab_and_newline"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Slugify(tc.in), "Slugify(%q)", tc.in)
	}
}

func TestUniqueID(t *testing.T) {
	a := UniqueID("Alpha", "Design/Alpha.folio")
	b := UniqueID("Alpha", "Art/Alpha.folio")
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, UniqueID("Alpha", "Design/Alpha.folio"))
	assert.Regexp(t, `^alpha_[0-9a-f]{8}$`, a)
	assert.Len(t, ShortHash("x"), 8)
}
