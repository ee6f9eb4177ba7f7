package phonex

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{name: "e164", in: "+2250102030405", want: "+2250102030405"},
		{name: "formatting stripped", in: "+225 01 02-03 (04) 05", want: "+2250102030405"},
		{name: "national without plus", in: "0102030405", want: "0102030405"},
		{name: "whitespace trimmed", in: "  +2250102030405  ", want: "+2250102030405"},
		{name: "empty", in: "", wantErr: ErrEmpty},
		{name: "blank", in: "   ", wantErr: ErrEmpty},
		{name: "letters", in: "+225CALLME", wantErr: ErrMalformed},
		{name: "plus not leading", in: "01+02030405", wantErr: ErrMalformed},
		{name: "too short", in: "+12345", wantErr: ErrMalformed},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Normalize(tc.in)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}
