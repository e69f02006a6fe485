package qdesc

import "errors"

var (
	ErrInvalidMagic       = errors.New("invalid QTF magic")
	ErrUnsupportedVersion = errors.New("unsupported QTF version")
	ErrCorruptFixture     = errors.New("corrupt QTF fixture")
	ErrUnknownDType       = errors.New("unknown dtype")
)
