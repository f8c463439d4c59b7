package irc

import "strings"

// Message holds one protocol message: optional tags, optional source, a
// typed Command, and Side provenance metadata. Side is never part of the
// wire form.
//
// Invariant: a Message with no tags and no source serializes identically
// to its canonical wire form, modulo the trailing CRLF the writer layer
// appends.
type Message struct {
	Tags    []string
	Source  string
	Command Command
	Side    Side
}

// HasTags reports whether the message carried an '@'-prefixed tag list.
func (m Message) HasTags() bool {
	return m.Tags != nil
}

// HasSource reports whether the message carried a ':'-prefixed source.
func (m Message) HasSource() bool {
	return m.Source != ""
}

// Parse parses a single line (without CR/LF) into a Message.
//
// Grammar:
//
//	line      := [ "@" tags SP ] [ ":" source SP ] command params
//	tags      := tag ( ";" tag )*
//	params    := ( SP non-colon-token )* [ SP ":" trailer ]
func Parse(line string) (Message, error) {
	if line == "" {
		return Message{}, &ParseError{Reason: "blank line"}
	}

	parts := strings.Split(line, " ")

	hasTags := strings.HasPrefix(parts[0], "@")
	var secondStartsColon bool
	if len(parts) > 1 {
		secondStartsColon = strings.HasPrefix(parts[1], ":")
	}
	firstStartsColon := strings.HasPrefix(parts[0], ":")

	msg := Message{Side: SideUnknown}
	var rest string

	switch {
	case hasTags && secondStartsColon:
		msg.Tags = strings.Split(parts[0][1:], ";")
		msg.Source = strings.TrimPrefix(parts[1], ":")
		rest = strings.Join(parts[2:], " ")

	case hasTags && !secondStartsColon:
		msg.Tags = strings.Split(parts[0][1:], ";")
		rest = strings.Join(parts[1:], " ")

	case firstStartsColon && secondStartsColon:
		return Message{}, &ParseError{Reason: "messages can't start with multiple ':' in a row"}

	case firstStartsColon:
		msg.Source = strings.TrimPrefix(parts[0], ":")
		rest = strings.Join(parts[1:], " ")

	default:
		rest = strings.Join(parts, " ")
	}

	cmd, err := parseCommand(rest)
	if err != nil {
		return Message{}, err
	}
	msg.Command = cmd

	return msg, nil
}

// String serializes the Message back to a wire line. It does not include a
// trailing CRLF; the Connection write layer appends that.
func (m Message) String() string {
	var b strings.Builder

	if m.Tags != nil {
		b.WriteByte('@')
		b.WriteString(strings.Join(m.Tags, ";"))
		b.WriteByte(' ')
	}
	if m.Source != "" {
		b.WriteByte(':')
		b.WriteString(m.Source)
		b.WriteByte(' ')
	}
	b.WriteString(encodeCommand(m.Command))

	return b.String()
}
