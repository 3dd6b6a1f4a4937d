package scope

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate_SelectedOrgsDropsNonParticipating(t *testing.T) {
	result, err := Evaluate(SelectedOrgs, []int64{3, 7, 99}, []int64{3, 7, 8})
	require.NoError(t, err)

	want := Result{Allowed: []int64{3, 7}, Blocked: []int64{8}}
	if diff := cmp.Diff(want, result); diff != "" {
		t.Errorf("Evaluate() mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name          string
		scope         Scope
		explicit      []int64
		participating []int64
		want          Result
		wantErr       error
	}{
		{
			name:          "all orgs ignores explicit list",
			scope:         AllOrgs,
			explicit:      []int64{42},
			participating: []int64{8, 3, 7},
			want:          Result{Allowed: []int64{3, 7, 8}, Blocked: []int64{}},
		},
		{
			name:          "none blocks everyone",
			scope:         None,
			explicit:      []int64{3},
			participating: []int64{3, 7},
			want:          Result{Allowed: []int64{}, Blocked: []int64{3, 7}},
		},
		{
			name:          "selected orgs de-duplicates",
			scope:         SelectedOrgs,
			explicit:      []int64{7, 7, 3},
			participating: []int64{3, 3, 7},
			want:          Result{Allowed: []int64{3, 7}, Blocked: []int64{}},
		},
		{
			name:          "selected orgs with only stale ids",
			scope:         SelectedOrgs,
			explicit:      []int64{99},
			participating: []int64{3, 7},
			wantErr:       ErrNoOrganizationSelected,
		},
		{
			name:          "selected orgs with empty roster",
			scope:         SelectedOrgs,
			explicit:      []int64{3},
			participating: nil,
			wantErr:       ErrNoOrganizationSelected,
		},
		{
			name:    "unknown scope",
			scope:   Scope("everyone"),
			wantErr: ErrInvalidScope,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(tt.scope, tt.explicit, tt.participating)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseScope(t *testing.T) {
	assert.Equal(t, AllOrgs, ParseScope(" ALL_ORGS ", None))
	assert.Equal(t, SelectedOrgs, ParseScope("selected_orgs", None))
	assert.Equal(t, None, ParseScope("", None))
	assert.Equal(t, AllOrgs, ParseScope("bogus", AllOrgs))
}

func TestMerge(t *testing.T) {
	assert.Equal(t, []int64{3, 5, 7}, Merge([]int64{7, 3}, []int64{5, 3}))
	assert.Equal(t, []int64{}, Merge())
}
