package reconciler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOwnerToken(t *testing.T) {
	assert.Equal(t, "ACoAABxxx", OwnerToken("urn:li:fs_position:(ACoAABxxx,123456)"))
	assert.Equal(t, "ACoAABxxx", OwnerToken("urn:li:fsd_education:(ACoAABxxx)"))
	assert.Empty(t, OwnerToken("urn:li:fs_position:123"))
	assert.Empty(t, OwnerToken(""))
}

func TestResolveOwner(t *testing.T) {
	known := []Known{
		{PublicID: "jane", MemberURN: "urn:li:fs_profile:ACoAABxxx"},
		{PublicID: "john", MemberURN: "urn:li:fs_profile:ACoAAByyy"},
		{PublicID: "ghost"},
	}

	tests := []struct {
		name   string
		urn    string
		known  []Known
		focus  string
		want   string
		wantBy Attribution
	}{
		{"matched", "urn:li:fs_position:(ACoAABxxx,1)", known, "john", "jane", AttributedMatch},
		{"second entity", "urn:li:fs_position:(ACoAAByyy,1)", known, "jane", "john", AttributedMatch},
		{"unknown with no entities", "urn:li:fs_position:(ACoAABzzz,1)", nil, "", "", AttributedNone},
		{"unknown falls back to focus", "urn:li:fs_position:(ACoAABzzz,1)", known, "john", "john", AttributedFocus},
		{"no token falls back to focus", "garbage", known, "jane", "jane", AttributedFocus},
		{"no token no entities", "", nil, "", "", AttributedNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, by := ResolveOwner(tt.urn, tt.known, tt.focus)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantBy, by)
		})
	}
}
