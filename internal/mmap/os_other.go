//go:build !unix && !windows

package mmap

import (
	"errors"
	"os"
)

func osMap(*os.File, int) ([]byte, func([]byte) error, error) {
	return nil, nil, errors.ErrUnsupported
}

func osAdvise([]byte, AccessPattern) error { return nil }
