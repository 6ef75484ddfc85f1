// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package xtract

// Low-level tokenizer shared by the PDF object-graph reader (read.go) and
// the content-stream interpreter (interp.go). Both consume the same
// buffer/token machinery: the object reader calls readObject to assemble
// indirect objects, dictionaries and streams, while the content-stream
// interpreter calls readToken directly and leaves composition of operands
// to the caller's operand stack.

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/pdftables/tablext/logger"
)

// name is a PDF name object, e.g. /Type.
type name string

// keyword is a bare PDF token that is neither a literal value nor a
// delimiter-bounded composite: operators (Tj, cm, BT, ...), structural
// words (obj, endobj, stream, endstream, xref, trailer, R, n, f), and
// the tokenizer's own end-of-input sentinel (the empty keyword).
type keyword string

// dict is a PDF dictionary, <</Key Value .../>>.
type dict map[name]interface{}

// array is a PDF array, [ ... ].
type array []interface{}

// objptr identifies an indirect object by number and generation.
type objptr struct {
	id  uint32
	gen uint16
}

// objdef is a fully parsed indirect object: N G obj ... endobj.
type objdef struct {
	ptr objptr
	obj interface{}
}

// stream is a dict together with the file offset of its undecoded bytes.
// The length of the raw data is found via hdr["Length"].
type stream struct {
	hdr    dict
	ptr    objptr
	offset int64
}

func newDict() Value {
	return Value{data: dict{}}
}

// buffer tokenizes a byte stream positioned at a known absolute offset in
// the underlying PDF file (or 0 for a standalone content stream). It keeps
// a small pushback stack so callers can read a token, decide it doesn't
// belong to them, and put it back.
type buffer struct {
	r           *bufio.Reader
	offset      int64
	pos         int64
	unread      []interface{}
	allowEOF    bool
	allowObjptr bool
	allowStream bool
	key         []byte
	useAES      bool
	err         error
}

func newBuffer(r io.Reader, offset int64) *buffer {
	return &buffer{r: bufio.NewReader(r), offset: offset}
}

func (b *buffer) readByteRaw() (byte, bool) {
	c, err := b.r.ReadByte()
	if err != nil {
		return 0, false
	}
	b.offset++
	b.pos++
	return c, true
}

func (b *buffer) unreadByteRaw() {
	if err := b.r.UnreadByte(); err != nil {
		return
	}
	b.offset--
	b.pos--
}

// seekForward discards bytes until the buffer's absolute offset reaches
// offset. It is a no-op if the buffer has already passed that point.
func (b *buffer) seekForward(offset int64) {
	if offset <= b.offset {
		return
	}
	n := offset - b.offset
	m, _ := io.CopyN(io.Discard, b.r, n)
	b.offset += m
	b.pos += m
}

func (b *buffer) readToken() interface{} {
	if n := len(b.unread); n > 0 {
		tok := b.unread[n-1]
		b.unread = b.unread[:n-1]
		return tok
	}
	return b.readRawToken()
}

func (b *buffer) unreadToken(tok interface{}) {
	b.unread = append(b.unread, tok)
}

func isDelim(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func (b *buffer) readRawToken() interface{} {
	for {
		c, ok := b.readByteSkipWS()
		if !ok {
			return keyword("")
		}
		switch {
		case c == '/':
			return b.readNameTok()
		case c == '(':
			return b.readLiteralString()
		case c == '<':
			c2, ok2 := b.readByteRaw()
			if ok2 && c2 == '<' {
				return b.readDict()
			}
			if ok2 {
				b.unreadByteRaw()
			}
			return b.readHexString()
		case c == '[':
			return b.readArray()
		case c == ']':
			return keyword("]")
		case c == '>':
			c2, ok2 := b.readByteRaw()
			if ok2 && c2 == '>' {
				return keyword(">>")
			}
			if ok2 {
				b.unreadByteRaw()
			}
			return keyword(">")
		case c == '{' || c == '}':
			return keyword(string(c))
		case c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9'):
			return b.readNumber(c)
		default:
			return b.readKeywordTok(c)
		}
	}
}

func (b *buffer) readByteSkipWS() (byte, bool) {
	for {
		c, ok := b.readByteRaw()
		if !ok {
			return 0, false
		}
		if isWhitespace(c) {
			continue
		}
		if c == '%' {
			b.skipComment()
			continue
		}
		return c, true
	}
}

func (b *buffer) skipComment() {
	for {
		c, ok := b.readByteRaw()
		if !ok || c == '\n' || c == '\r' {
			return
		}
	}
}

func (b *buffer) readNameTok() name {
	var buf []byte
	for {
		c, ok := b.readByteRaw()
		if !ok {
			break
		}
		if isDelim(c) || isWhitespace(c) {
			b.unreadByteRaw()
			break
		}
		if c == '#' {
			h1, ok1 := b.readByteRaw()
			h2, ok2 := b.readByteRaw()
			if ok1 && ok2 {
				if v, err := strconv.ParseUint(string([]byte{h1, h2}), 16, 8); err == nil {
					buf = append(buf, byte(v))
					continue
				}
			}
			buf = append(buf, '#')
			continue
		}
		buf = append(buf, c)
	}
	return name(buf)
}

func (b *buffer) readNumber(first byte) interface{} {
	buf := []byte{first}
	isFloat := first == '.'
	for {
		c, ok := b.readByteRaw()
		if !ok {
			break
		}
		switch {
		case c == '.':
			isFloat = true
			buf = append(buf, c)
		case c >= '0' && c <= '9':
			buf = append(buf, c)
		case c == '-' || c == '+':
			buf = append(buf, c)
		default:
			b.unreadByteRaw()
			return b.finishNumber(buf, isFloat)
		}
	}
	return b.finishNumber(buf, isFloat)
}

func (b *buffer) finishNumber(buf []byte, isFloat bool) interface{} {
	s := string(buf)
	if !isFloat {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return int64(0)
}

func (b *buffer) readKeywordTok(first byte) interface{} {
	buf := []byte{first}
	for {
		c, ok := b.readByteRaw()
		if !ok {
			break
		}
		if isWhitespace(c) || isDelim(c) {
			b.unreadByteRaw()
			break
		}
		buf = append(buf, c)
	}
	s := string(buf)
	switch s {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	}
	return keyword(s)
}

// readLiteralString reads a (balanced, possibly escaped) literal string.
// The opening '(' has already been consumed.
func (b *buffer) readLiteralString() string {
	var buf []byte
	depth := 1
	for {
		c, ok := b.readByteRaw()
		if !ok {
			b.err = fmt.Errorf("unterminated literal string")
			return string(buf)
		}
		switch c {
		case '(':
			depth++
			buf = append(buf, c)
		case ')':
			depth--
			if depth == 0 {
				return string(buf)
			}
			buf = append(buf, c)
		case '\\':
			b.readLiteralEscape(&buf)
		default:
			buf = append(buf, c)
		}
	}
}

func (b *buffer) readLiteralEscape(buf *[]byte) {
	e, ok := b.readByteRaw()
	if !ok {
		return
	}
	switch {
	case e == 'n':
		*buf = append(*buf, '\n')
	case e == 'r':
		*buf = append(*buf, '\r')
	case e == 't':
		*buf = append(*buf, '\t')
	case e == 'b':
		*buf = append(*buf, '\b')
	case e == 'f':
		*buf = append(*buf, '\f')
	case e == '(' || e == ')' || e == '\\':
		*buf = append(*buf, e)
	case e == '\r':
		if p, ok2 := b.readByteRaw(); ok2 && p != '\n' {
			b.unreadByteRaw()
		}
	case e == '\n':
		// line continuation: emit nothing
	case e >= '0' && e <= '7':
		v := int(e - '0')
		for i := 0; i < 2; i++ {
			d, ok3 := b.readByteRaw()
			if !ok3 || d < '0' || d > '7' {
				if ok3 {
					b.unreadByteRaw()
				}
				break
			}
			v = v*8 + int(d-'0')
		}
		*buf = append(*buf, byte(v))
	default:
		*buf = append(*buf, e)
	}
}

// readHexString reads a <...> hex string. The opening '<' has already
// been consumed and the byte following it was not a second '<'.
func (b *buffer) readHexString() string {
	var hex []byte
	for {
		c, ok := b.readByteRaw()
		if !ok {
			b.err = fmt.Errorf("unterminated hex string")
			break
		}
		if c == '>' {
			break
		}
		if isWhitespace(c) {
			continue
		}
		hex = append(hex, c)
	}
	if len(hex)%2 == 1 {
		hex = append(hex, '0')
	}
	out := make([]byte, len(hex)/2)
	for i := range out {
		v, _ := strconv.ParseUint(string(hex[2*i:2*i+2]), 16, 8)
		out[i] = byte(v)
	}
	return string(out)
}

func (b *buffer) readArray() array {
	var arr array
	for {
		tok := b.readToken()
		if kw, ok := tok.(keyword); ok {
			if kw == "]" {
				return arr
			}
			if kw == "" {
				b.err = fmt.Errorf("unterminated array")
				return arr
			}
		}
		arr = append(arr, b.readObjectFrom(tok))
	}
}

func (b *buffer) readDict() dict {
	d := dict{}
	for {
		tok := b.readToken()
		if kw, ok := tok.(keyword); ok {
			if kw == ">>" {
				return d
			}
			if kw == "" {
				b.err = fmt.Errorf("unterminated dict")
				return d
			}
		}
		key, ok := tok.(name)
		if !ok {
			continue
		}
		d[key] = b.readObject()
	}
}

// readObject reads one complete PDF object: a plain value, an indirect
// reference (N G R), or an indirect object definition (N G obj ... endobj),
// including an associated stream body when present.
func (b *buffer) readObject() interface{} {
	return b.readObjectFrom(b.readToken())
}

func (b *buffer) readObjectFrom(tok interface{}) interface{} {
	id, ok := tok.(int64)
	if !ok {
		return tok
	}
	tok2 := b.readToken()
	gen, ok := tok2.(int64)
	if !ok {
		b.unreadToken(tok2)
		return tok
	}
	tok3 := b.readToken()
	kw, ok := tok3.(keyword)
	if !ok {
		b.unreadToken(tok3)
		b.unreadToken(tok2)
		return tok
	}
	switch kw {
	case "R":
		return objptr{uint32(id), uint16(gen)}
	case "obj":
		return b.readObjDef(objptr{uint32(id), uint16(gen)})
	default:
		b.unreadToken(tok3)
		b.unreadToken(tok2)
		return tok
	}
}

func (b *buffer) readObjDef(ptr objptr) objdef {
	obj := b.readObject()
	if d, ok := obj.(dict); ok {
		obj = b.maybeReadStream(d, ptr)
	}
	if end, ok := b.readToken().(keyword); !ok || end != "endobj" {
		b.unreadToken(end)
	}
	return objdef{ptr, obj}
}

func (b *buffer) maybeReadStream(d dict, ptr objptr) interface{} {
	tok := b.readToken()
	kw, ok := tok.(keyword)
	if !ok || kw != "stream" {
		b.unreadToken(tok)
		return d
	}
	// The keyword "stream" is followed by CRLF or LF (never CR alone) and
	// then the raw bytes.
	if c, ok := b.readByteRaw(); ok && c != '\n' {
		if c != '\r' {
			b.unreadByteRaw()
		} else if c2, ok2 := b.readByteRaw(); ok2 && c2 != '\n' {
			b.unreadByteRaw()
		}
	}
	off := b.offset
	length, _ := d[name("Length")].(int64)
	b.seekForward(off + length)
	if end, ok := b.readToken().(keyword); !ok || end != "endstream" {
		b.unreadToken(end)
	}
	return stream{hdr: d, ptr: ptr, offset: off}
}

// Stack is the operand stack passed to a content-stream operator callback:
// every non-operator token is pushed until an operator keyword arrives.
type Stack struct {
	stk []Value
}

// Push adds v to the top of the stack.
func (stk *Stack) Push(v Value) {
	stk.stk = append(stk.stk, v)
}

// Pop removes and returns the top of the stack, or the zero Value if empty.
func (stk *Stack) Pop() Value {
	n := len(stk.stk)
	if n == 0 {
		return Value{}
	}
	v := stk.stk[n-1]
	stk.stk = stk.stk[:n-1]
	return v
}

// Len returns the number of values currently on the stack.
func (stk *Stack) Len() int {
	return len(stk.stk)
}

func (stk *Stack) reset() {
	stk.stk = stk.stk[:0]
}

// Interpret tokenizes the content stream stored in strm and invokes do once
// per operator, after all of the operator's operands have been pushed.
func Interpret(strm Value, do func(stk *Stack, op string)) {
	rd := strm.Reader()
	defer rd.Close()
	data, err := io.ReadAll(rd)
	if err != nil {
		logger.Error(err.Error())
		return
	}
	_ = InterpretBytes(data, do)
}

// InterpretBytes tokenizes raw content-stream bytes directly, without
// requiring the bytes to originate from a stream Value. This is the form
// used by the table-extraction pipeline, which may interpret content
// streams concatenated from a page's /Contents array.
func InterpretBytes(data []byte, do func(stk *Stack, op string)) error {
	b := newBuffer(bytes.NewReader(data), 0)
	b.allowEOF = true
	var stk Stack
	for {
		tok := b.readToken()
		if kw, ok := tok.(keyword); ok {
			if kw == "" {
				break
			}
			do(&stk, string(kw))
			stk.reset()
			continue
		}
		stk.Push(Value{data: tok})
	}
	if b.err != nil {
		return &MalformedStreamError{Offset: b.offset, Err: b.err}
	}
	return nil
}
