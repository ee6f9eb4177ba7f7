package codeinput

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"plain digits", "123456", "123456"},
		{"strips separators", "123-456", "123456"},
		{"strips letters", "code: 9876", "9876"},
		{"caps at six", "1234567890", "123456"},
		{"empty", "", ""},
		{"no digits at all", "abc def!", ""},
		{"unicode noise", "１2３4", "24"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Sanitize(tc.raw))
		})
	}
}

func TestSingleField(t *testing.T) {
	t.Parallel()

	t.Run("set sanitizes", func(t *testing.T) {
		var f SingleField
		f.Set(" 12 34-56 ")
		require.Equal(t, "123456", f.Value())
		require.True(t, f.Complete())
	})

	t.Run("partial is incomplete", func(t *testing.T) {
		var f SingleField
		f.Set("123")
		require.Equal(t, "123", f.Value())
		require.False(t, f.Complete())
	})

	t.Run("clear resets", func(t *testing.T) {
		var f SingleField
		f.Set("123456")
		f.Clear()
		require.Empty(t, f.Value())
		require.False(t, f.Complete())
	})
}

func TestMultiFieldTyping(t *testing.T) {
	t.Parallel()

	t.Run("digits advance focus", func(t *testing.T) {
		f := NewMultiField()
		require.Equal(t, 0, f.Focused())

		f.Type('1')
		require.Equal(t, 1, f.Focused())
		f.Type('2')
		f.Type('3')
		require.Equal(t, "123", f.Value())
		require.Equal(t, 3, f.Focused())
	})

	t.Run("non-digits are ignored", func(t *testing.T) {
		f := NewMultiField()
		f.Type('a')
		f.Type('-')
		f.Type(' ')
		require.Empty(t, f.Value())
		require.Equal(t, 0, f.Focused())
	})

	t.Run("focus parks on the last cell when full", func(t *testing.T) {
		f := NewMultiField()
		for _, r := range "123456" {
			f.Type(r)
		}
		require.True(t, f.Complete())
		require.Equal(t, Length-1, f.Focused())

		// Extra keystrokes overwrite the last cell only.
		f.Type('9')
		require.Equal(t, "123459", f.Value())
	})
}

func TestMultiFieldBackspace(t *testing.T) {
	t.Parallel()

	t.Run("clears the focused cell first", func(t *testing.T) {
		f := NewMultiField()
		for _, r := range "123456" {
			f.Type(r)
		}

		f.Backspace()
		require.Equal(t, "12345", f.Value())
		require.Equal(t, Length-1, f.Focused())
	})

	t.Run("moves back over empty cells", func(t *testing.T) {
		f := NewMultiField()
		f.Type('1')
		f.Type('2')

		// Focus sits on the empty third cell.
		f.Backspace()
		require.Equal(t, "1", f.Value())
		require.Equal(t, 1, f.Focused())

		f.Backspace()
		require.Empty(t, f.Value())
		require.Equal(t, 0, f.Focused())
	})

	t.Run("noop on an empty row", func(t *testing.T) {
		f := NewMultiField()
		f.Backspace()
		require.Empty(t, f.Value())
		require.Equal(t, 0, f.Focused())
	})
}

func TestMultiFieldPaste(t *testing.T) {
	t.Parallel()

	t.Run("full paste fills the row", func(t *testing.T) {
		f := NewMultiField()
		f.Paste("987-654")
		require.Equal(t, "987654", f.Value())
		require.True(t, f.Complete())
		require.Equal(t, Length-1, f.Focused())
	})

	t.Run("partial paste leaves focus after the digits", func(t *testing.T) {
		f := NewMultiField()
		f.Paste("42")
		require.Equal(t, "42", f.Value())
		require.Equal(t, 2, f.Focused())
	})

	t.Run("paste replaces previous content", func(t *testing.T) {
		f := NewMultiField()
		for _, r := range "111111" {
			f.Type(r)
		}
		f.Paste("22")
		require.Equal(t, "22", f.Value())
	})
}

func TestMultiFieldValueStopsAtGap(t *testing.T) {
	t.Parallel()

	f := NewMultiField()
	f.Type('1')
	f.Type('2')
	f.Focus(4)
	f.Type('5')

	// The digit behind the gap does not count toward the candidate.
	require.Equal(t, "12", f.Value())
	require.False(t, f.Complete())
}

func TestMultiFieldClear(t *testing.T) {
	t.Parallel()

	f := NewMultiField()
	for _, r := range "123456" {
		f.Type(r)
	}
	f.Clear()
	require.Empty(t, f.Value())
	require.Equal(t, 0, f.Focused())
	require.False(t, f.Complete())
}
