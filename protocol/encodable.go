package protocol

// Encoder is the visitor a value drives to render itself onto the wire.
// Implementations own the byte buffer; callers never see it directly. A
// value never formats bytes itself — it only describes its fields, so the
// same Encodable can be reused against a different concrete Encoder (for
// example the wire encoder or a plain-text debug renderer) without change.
type Encoder interface {
	// WriteLabel emits the uppercase first character of a field's label
	// with no following separator.
	WriteLabel(label string)
	WriteInt(v int64)
	WriteFloat(v float64)
	WriteBool(v bool)
	WriteText(v string)
	// WriteNone emits nothing; it exists so Encodable implementations can
	// express "absent optional field" without a branch at every call site.
	WriteNone()
	// BeginGroup starts a tagged struct/unit variant. A nil tag begins an
	// untagged composite (fields are simply concatenated).
	BeginGroup(tag *string)
	EndGroup()
}

// Encodable is the capability a value implements to drive an Encoder.
// Composite values call Encode on each of their fields in declaration
// order; tagged variants call BeginGroup/EndGroup around their fields.
type Encodable interface {
	Encode(e Encoder)
}

// Field is a convenience pairing of a label and an Encodable value.
// Composite and Variant do not use it; they take their fields as a plain
// []Encodable.
type Field struct {
	Label string
	Value Encodable
}

// Int renders as a shortest-decimal integer field.
type Int struct {
	Label string
	Value int64
}

func (f Int) Encode(e Encoder) {
	e.WriteLabel(f.Label)
	e.WriteInt(f.Value)
}

// Float renders as a shortest round-trip decimal float field.
type Float struct {
	Label string
	Value float64
}

func (f Float) Encode(e Encoder) {
	e.WriteLabel(f.Label)
	e.WriteFloat(f.Value)
}

// Bool renders as 0/1.
type Bool struct {
	Label string
	Value bool
}

func (f Bool) Encode(e Encoder) {
	e.WriteLabel(f.Label)
	e.WriteBool(f.Value)
}

// Text renders literally, UTF-8.
type Text struct {
	Label string
	Value string
}

func (f Text) Encode(e Encoder) {
	e.WriteLabel(f.Label)
	e.WriteText(f.Value)
}

// RawLine renders its value verbatim with no label prefix — a complete
// G-code line handed through as-is by the command engine's print,
// repeat, and send tasks.
type RawLine struct {
	Value string
}

func (r RawLine) Encode(e Encoder) {
	e.WriteText(r.Value)
}

// OptionalInt emits nothing when Present is false.
type OptionalInt struct {
	Label   string
	Value   int64
	Present bool
}

func (f OptionalInt) Encode(e Encoder) {
	if !f.Present {
		e.WriteNone()
		return
	}
	e.WriteLabel(f.Label)
	e.WriteInt(f.Value)
}

// Composite concatenates a fixed, ordered list of fields with no group tag.
type Composite struct {
	Fields []Encodable
}

func (c Composite) Encode(e Encoder) {
	for _, f := range c.Fields {
		f.Encode(e)
	}
}

// Variant is a tagged unit or struct variant: the tag is emitted first (via
// BeginGroup), followed by any fields, then EndGroup.
type Variant struct {
	Tag    string
	Fields []Encodable
}

func (v Variant) Encode(e Encoder) {
	tag := v.Tag
	e.BeginGroup(&tag)
	for _, f := range v.Fields {
		f.Encode(e)
	}
	e.EndGroup()
}
