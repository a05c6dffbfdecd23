// Package mmap provides off-heap anonymous memory for arena buffers.
//
// Anonymous mappings are read-write, private to the process, page aligned and
// zero filled by the kernel. They live outside the Go heap, so the garbage
// collector neither scans nor moves them, and the memory is returned to the OS
// as soon as Free is called.
//
// Blocks must not hold Go pointers.
package mmap
