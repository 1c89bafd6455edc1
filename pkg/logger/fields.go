package logger

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
)

// Context adds fields to a child logger
type Context struct {
	zctx zerolog.Context
}

// Str adds a string field
func (c *Context) Str(key, val string) *Context {
	c.zctx = c.zctx.Str(key, val)
	return c
}

// Hash adds a 0x-prefixed hash field
func (c *Context) Hash(key string, h common.Hash) *Context {
	c.zctx = c.zctx.Str(key, h.Hex())
	return c
}

// Logger returns the child logger
func (c *Context) Logger() *Logger {
	return &Logger{zlog: c.zctx.Logger()}
}

// Event is one log entry under construction
type Event struct {
	zevent *zerolog.Event
}

func (e *Event) Str(key, val string) *Event {
	e.zevent.Str(key, val)
	return e
}

func (e *Event) Int(key string, val int) *Event {
	e.zevent.Int(key, val)
	return e
}

// Int64 adds a signed field; unix timestamps use it
func (e *Event) Int64(key string, val int64) *Event {
	e.zevent.Int64(key, val)
	return e
}

func (e *Event) Uint64(key string, val uint64) *Event {
	e.zevent.Uint64(key, val)
	return e
}

// Hash adds a 0x-prefixed hash field
func (e *Event) Hash(key string, h common.Hash) *Event {
	e.zevent.Str(key, h.Hex())
	return e
}

// Address adds a checksummed address field
func (e *Event) Address(key string, a common.Address) *Event {
	e.zevent.Str(key, a.Hex())
	return e
}

// Amount adds a decimal amount. Amounts can exceed 64 bits, so they are
// written as strings.
func (e *Event) Amount(key string, v *big.Int) *Event {
	if v == nil {
		e.zevent.Str(key, "0")
		return e
	}
	e.zevent.Str(key, v.String())
	return e
}

// Secret adds a redacted form of a sensitive value
func (e *Event) Secret(key, val string) *Event {
	e.zevent.Str(key, RedactSecret(val))
	return e
}

// Err adds an error field
func (e *Event) Err(err error) *Event {
	e.zevent.AnErr("error", err)
	return e
}

// Msg writes the entry
func (e *Event) Msg(msg string) {
	e.zevent.Msg(msg)
}

// RedactSecret keeps the first four characters of a value long enough to
// identify it, and hides the rest. Signatures and private exponents only
// reach logs through here.
func RedactSecret(secret string) string {
	switch {
	case secret == "":
		return "<empty>"
	case len(secret) <= 8:
		return "<redacted>"
	default:
		return secret[:4] + "...<redacted>"
	}
}
