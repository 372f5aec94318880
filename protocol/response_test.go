package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseOk(t *testing.T) {
	cases := []struct {
		in   string
		want Response
	}{
		{"ok", Response{Kind: Ok}},
		{"  ok", Response{Kind: Ok}},
		{"OK", Response{Kind: Ok}},
		{"ok N7", Response{Kind: Ok, Seq: 7, HasSeq: true}},
		{"ok n7", Response{Kind: Ok, Seq: 7, HasSeq: true}},
		{"ok: 7", Response{Kind: Ok, Seq: 7, HasSeq: true}},
		{"OK N12 extra stuff", Response{Kind: Ok, Seq: 12, HasSeq: true}},
	}
	for _, c := range cases {
		got := Parse(c.in)
		assert.Equal(t, c.want.Kind, got.Kind, c.in)
		assert.Equal(t, c.want.HasSeq, got.HasSeq, c.in)
		if c.want.HasSeq {
			assert.Equal(t, c.want.Seq, got.Seq, c.in)
		}
	}
}

func TestParseResend(t *testing.T) {
	cases := []struct {
		in   string
		want Response
	}{
		{"Resend: 4", Response{Kind: Resend, Seq: 4, HasSeq: true}},
		{"resend: N4", Response{Kind: Resend, Seq: 4, HasSeq: true}},
		{"Resend:", Response{Kind: Resend}},
		{"  Resend:   9", Response{Kind: Resend, Seq: 9, HasSeq: true}},
	}
	for _, c := range cases {
		got := Parse(c.in)
		assert.Equal(t, c.want.Kind, got.Kind, c.in)
		assert.Equal(t, c.want.HasSeq, got.HasSeq, c.in)
		if c.want.HasSeq {
			assert.Equal(t, c.want.Seq, got.Seq, c.in)
		}
	}
}

func TestParseOpaque(t *testing.T) {
	cases := []string{
		"",
		"T:23.5 /0.0 B:60.1 /60.0",
		"echo: busy",
		"Resend without colon 4",
	}
	for _, c := range cases {
		got := Parse(c)
		assert.Equal(t, NotAck, got.Kind, c)
	}
}
