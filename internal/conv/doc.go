// Package conv provides checked integer conversions for on-disk offsets and ids.
package conv
