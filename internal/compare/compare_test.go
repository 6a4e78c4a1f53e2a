package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnchangedIgnoresCreationDate(t *testing.T) {
	a := []byte("%PDF-1.4\n<< /CreationDate(D:20190301120000Z) /Producer(x) >>\nbody")
	b := []byte("%PDF-1.4\n<< /CreationDate(D:20240916083015Z) /Producer(x) >>\nbody")

	assert.True(t, Unchanged(a, b))
	assert.True(t, Unchanged(b, a))
}

func TestUnchangedWithoutMarker(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"identical", "hello world", "hello world", true},
		{"different", "hello world", "hello there", false},
		{"empty", "", "", true},
		{"empty vs content", "", "x", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Unchanged([]byte(tt.a), []byte(tt.b)))
		})
	}
}

func TestUnchangedDetectsBodyChange(t *testing.T) {
	a := []byte("CreationDate(D:1Z) page one")
	b := []byte("CreationDate(D:2Z) page two")

	assert.False(t, Unchanged(a, b))
}

func TestNormalizeStripsFirstMarkerOnly(t *testing.T) {
	in := []byte("a CreationDate(D:111Z) b CreationDate(D:222Z) c")

	assert.Equal(t, "a  b CreationDate(D:222Z) c", Normalize(in))
}

func TestUnchangedSecondMarkerStillCompared(t *testing.T) {
	// first markers differ and are stripped, second markers are compared verbatim
	same := []byte("x CreationDate(D:1Z) y CreationDate(D:5Z)")
	sameSecond := []byte("x CreationDate(D:2Z) y CreationDate(D:5Z)")
	otherSecond := []byte("x CreationDate(D:2Z) y CreationDate(D:6Z)")

	assert.True(t, Unchanged(same, sameSecond))
	assert.False(t, Unchanged(same, otherSecond))
}

func TestNormalizeRequiresDigitsAndZ(t *testing.T) {
	for _, in := range []string{
		"CreationDate(D:Z)",
		"CreationDate(D:2019+01'00')",
		"CreationDate(20190101Z)",
	} {
		assert.Equal(t, in, Normalize([]byte(in)), in)
	}
}

func TestNormalizeDropsInvalidUTF8(t *testing.T) {
	a := []byte{'a', 0xff, 'b', 0xfe, 0xfd, 'c'}

	assert.Equal(t, "abc", Normalize(a))
	assert.True(t, Unchanged(a, []byte("abc")))
}

func TestNormalizeMarkerAcrossInvalidBytes(t *testing.T) {
	a := append([]byte{0x80, 0x81}, []byte("CreationDate(D:42Z)tail")...)

	assert.Equal(t, "tail", Normalize(a))
}
