package nrbf

import (
	"fmt"
	"io"
	"strings"

	"github.com/moriyoshi/dotnetserde/internal/diag"
	"github.com/moriyoshi/dotnetserde/internal/xerr"
)

// Deserializer runs the top-level record dispatch loop: read a one-byte
// record code, look up its handler, run it, and repeat until a handler
// reports the stream should stop (MessageEnd). Input that ends before that
// is an UnexpectedEOF error.
type Deserializer struct {
	codeToHandler  map[int]RecordHandler
	stringEncoding string
}

// Option customizes a Deserializer.
type Option func(*config)

type config struct {
	localizer      TimezoneLocalizer
	stringEncoding string
}

// WithTimezoneLocalizer injects the function used to interpret DateTime
// values encoded with kind=Local.
func WithTimezoneLocalizer(fn TimezoneLocalizer) Option {
	return func(c *config) { c.localizer = fn }
}

// WithStringEncoding declares the encoding length-prefixed strings are
// expected to be in. The wire format itself is always UTF-8; any other
// value is rejected up front rather than silently misdecoded.
func WithStringEncoding(name string) Option {
	return func(c *config) { c.stringEncoding = name }
}

// NewDeserializer builds a Deserializer with its full handler set wired.
func NewDeserializer(opts ...Option) *Deserializer {
	var cfg config
	for _, o := range opts {
		o(&cfg)
	}
	topLevel, _ := newHandlerSet(cfg.localizer)
	return &Deserializer{codeToHandler: topLevel, stringEncoding: cfg.stringEncoding}
}

// Decode runs the dispatch loop to completion and returns the decoded
// object graph.
func (d *Deserializer) Decode(r io.Reader) (*Result, error) {
	if d.stringEncoding != "" && !strings.EqualFold(d.stringEncoding, "utf-8") {
		return nil, &xerr.NotImplemented{What: fmt.Sprintf("string encoding %q (only utf-8 is supported)", d.stringEncoding)}
	}
	ctx := NewContext()
	for recordIndex := 0; ; recordIndex++ {
		codeByte, err := readExact(r, 1)
		if err != nil {
			return nil, err
		}
		code := int(codeByte[0])
		handler, ok := d.codeToHandler[code]
		if !ok {
			return nil, &xerr.UnknownRecord{Code: code}
		}
		diag.V(2).Infof("nrbf: record #%d code=%d handler=%T", recordIndex, code, handler)
		_, cont, err := handler.Deserialize(ctx, r)
		if err != nil {
			return nil, xerr.Wrap(fmt.Sprintf("decoding record #%d (code %d)", recordIndex, code), err)
		}
		if !cont {
			break
		}
	}
	return ctx.Result(), nil
}
