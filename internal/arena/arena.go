// Package arena implements typed bump allocator pools: values are allocated
// from an Arena[T], addressed by a Ref[T] index, and never individually
// freed. Its one user in this tree is internal/source's location records,
// which keep the pointer Get returns rather than the Ref.
package arena

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// DefaultReservation is the size of the virtual address range reserved per
// arena before any of it is committed to physical pages.
const DefaultReservation = 1 << 40 // ~1 TiB

// GranuleSize is the unit in which a reservation is committed on demand.
const GranuleSize = 16 * 1024

// Ref is a stable reference to a value inside an Arena[T]. The zero Ref is
// never produced by Alloc and is used as the "no value" sentinel, the way a
// NULL pointer is used in the original C implementation.
type Ref[T any] int

// Valid reports whether r was returned by Alloc rather than being the zero
// value.
func (r Ref[T]) Valid() bool { return r != 0 }

// Arena is a bump allocator for values of type T. Storage lives in a plain
// Go slice (so the garbage collector tracks any pointers T contains); the
// mmap reservation alongside it models the granule-committed virtual memory
// budget the design calls for and is never dereferenced directly. A caller
// holding a Ref (an index) never sees slice growth move the backing array;
// a pointer from Get keeps addressing the old array once the slice grows.
type Arena[T any] struct {
	name      string
	items     []T
	mem       []byte
	committed int
	elemSize  int
}

// New creates an arena with a fresh virtual memory reservation. name is
// stored as a label; nothing in this package reads it back.
func New[T any](name string) *Arena[T] {
	var zero T
	elemSize := int(unsafe.Sizeof(zero))
	if elemSize == 0 {
		elemSize = 1
	}
	a := &Arena[T]{name: name, elemSize: elemSize}
	// Reservation is best-effort: if the platform refuses it (sandboxed,
	// memory-constrained), the arena still works, it just can't report
	// committed-bytes telemetry.
	if mem, err := unix.Mmap(-1, 0, DefaultReservation, unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANON); err == nil {
		a.mem = mem
	}
	// Index 0 is the invalid Ref sentinel; burn a slot for it.
	a.items = append(a.items, zero)
	return a
}

// Alloc appends v to the arena and returns a stable reference to it.
func (a *Arena[T]) Alloc(v T) Ref[T] {
	a.items = append(a.items, v)
	a.growCommit(len(a.items))
	return Ref[T](len(a.items) - 1)
}

// New allocates a zero-valued T and returns its reference.
func (a *Arena[T]) New() Ref[T] {
	var zero T
	return a.Alloc(zero)
}

// Get dereferences r. Passing the zero Ref or a Ref from a different arena
// is a programmer error.
func (a *Arena[T]) Get(r Ref[T]) *T {
	return &a.items[r]
}

// Len returns the number of values allocated (excluding the sentinel slot).
func (a *Arena[T]) Len() int { return len(a.items) - 1 }

// CommittedBytes reports how much of the reservation has been committed so
// far, for diagnostics (see source.File.LocationArenaBytes, which cmd/cc's
// --print-ir report prints).
func (a *Arena[T]) CommittedBytes() int { return a.committed }

func (a *Arena[T]) growCommit(count int) {
	if a.mem == nil {
		return
	}
	need := count * a.elemSize
	for a.committed < need && a.committed < len(a.mem) {
		end := a.committed + GranuleSize
		if end > len(a.mem) {
			end = len(a.mem)
		}
		// Best effort: a failed mprotect just means telemetry undercounts;
		// the Go slice backing the arena is the real storage.
		_ = unix.Mprotect(a.mem[a.committed:end], unix.PROT_READ|unix.PROT_WRITE)
		a.committed = end
	}
}

// Close releases the virtual memory reservation in bulk. All translation
// state is torn down this way: nothing in an Arena is freed piecemeal.
func (a *Arena[T]) Close() error {
	if a.mem == nil {
		return nil
	}
	err := unix.Munmap(a.mem)
	a.mem = nil
	return err
}
