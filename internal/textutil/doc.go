// Package textutil provides filename sanitization for exported artifacts.
package textutil
