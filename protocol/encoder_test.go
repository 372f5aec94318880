package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequencedFormatting(t *testing.T) {
	enc := NewLineEncoder()
	v := Variant{
		Tag: "G1234",
		Fields: []Encodable{
			Int{Label: "x", Value: -1},
			Float{Label: "y", Value: 2.3},
		},
	}
	seq, b := enc.SerializeSequenced(v)
	assert.Equal(t, int32(1), seq)
	assert.Equal(t, "N1G1234X-1Y2.3*14\n", string(b))

	seq2, b2 := enc.SerializeSequenced(v)
	assert.Equal(t, int32(2), seq2)
	assert.Equal(t, "N2G1234X-1Y2.3*13\n", string(b2))
}

func TestUnsequencedFormatting(t *testing.T) {
	enc := NewLineEncoder()
	v := Variant{Tag: "M1234"}
	b := enc.SerializeUnsequenced(v)
	assert.Equal(t, "M1234\n", string(b))

	// counter must be unaffected by unsequenced encodes
	seq, _ := enc.SerializeSequenced(v)
	assert.Equal(t, int32(1), seq)
}

func TestMonotonicAcrossClones(t *testing.T) {
	enc := NewLineEncoder()
	clone := enc.Clone()
	v := Variant{
		Tag: "G1234",
		Fields: []Encodable{
			Int{Label: "x", Value: -1},
			Float{Label: "y", Value: 2.3},
		},
	}
	_, b1 := enc.SerializeSequenced(v)
	_, b2 := clone.SerializeSequenced(v)
	_, b3 := enc.SerializeSequenced(v)

	require.Equal(t, "N1G1234X-1Y2.3*14\n", string(b1))
	require.Equal(t, "N2G1234X-1Y2.3*13\n", string(b2))
	require.Equal(t, "N3G1234X-1Y2.3*12\n", string(b3))
}

func TestChecksumLaw(t *testing.T) {
	enc := NewLineEncoder()
	values := []Encodable{
		Variant{Tag: "G1", Fields: []Encodable{Int{Label: "x", Value: 42}}},
		Variant{Tag: "G28", Fields: []Encodable{Bool{Label: "z", Value: true}}},
		Variant{Tag: "M104", Fields: []Encodable{Float{Label: "s", Value: 210.5}}},
	}
	for _, v := range values {
		_, b := enc.SerializeSequenced(v)
		require.True(t, len(b) > 0)
		star := -1
		for i, c := range b {
			if c == '*' {
				star = i
				break
			}
		}
		require.NotEqual(t, -1, star)
		var x byte
		for _, c := range b[:star] {
			x ^= c
		}
		end := len(b) - 1 // trailing \n
		got := string(b[star+1 : end])
		assert.Equal(t, itoa(int(x)), got)
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func TestSetSequence(t *testing.T) {
	enc := NewLineEncoder()
	enc.SetSequence(7)
	v := Variant{Tag: "M110"}
	seq, _ := enc.SerializeSequenced(v)
	assert.Equal(t, int32(7), seq)
}

func TestOptionalFieldEmitsNothing(t *testing.T) {
	enc := NewLineEncoder()
	v := Composite{Fields: []Encodable{
		OptionalInt{Label: "p", Present: false},
		Int{Label: "x", Value: 1},
	}}
	b := enc.SerializeUnsequenced(v)
	assert.Equal(t, "X1\n", string(b))
}
