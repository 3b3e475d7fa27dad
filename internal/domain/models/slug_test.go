package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "should lowercase and hyphenate words", in: "General Chat", want: "general-chat"},
		{name: "should collapse runs of separators", in: "dev -- ops___team", want: "dev-ops-team"},
		{name: "should trim leading and trailing separators", in: "  !!hello world!!  ", want: "hello-world"},
		{name: "should fold diacritics", in: "Héllo Wörld", want: "hello-world"},
		{name: "should keep non latin letters", in: "Привет мир", want: "привет-мир"},
		{name: "should keep digits", in: "Room 42", want: "room-42"},
		{name: "should return empty slug for punctuation only", in: "?!...", want: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Slugify(tc.in))
		})
	}
}

func TestSlugify_Deterministic(t *testing.T) {
	req := require.New(t)

	req.Equal(Slugify("Team Standup"), Slugify("Team Standup"))
	req.Equal(Slugify("team standup"), Slugify("TEAM  STANDUP"))
}
