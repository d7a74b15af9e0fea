package shm

import (
	"sync/atomic"
	"unsafe"
)

// These helpers give release/acquire-ordered access to the monotonic
// counters embedded in mapped memory (spec §4.1's "release-ordered
// fetch-and-add" / "acquire-load"). Go's sync/atomic package does not
// expose separate acquire/release fences on amd64/arm64 beyond what a
// sequentially-consistent atomic already provides, so a plain atomic
// load/store gives the ordering the spec requires.

func loadU64(b []byte, off int) uint64 {
	return atomic.LoadUint64((*uint64)(unsafe.Pointer(&b[off])))
}

func storeU64(b []byte, off int, v uint64) {
	atomic.StoreUint64((*uint64)(unsafe.Pointer(&b[off])), v)
}

func addU64(b []byte, off int, delta uint64) uint64 {
	return atomic.AddUint64((*uint64)(unsafe.Pointer(&b[off])), delta)
}

func loadU32(b []byte, off int) uint32 {
	return atomic.LoadUint32((*uint32)(unsafe.Pointer(&b[off])))
}

func storeU32(b []byte, off int, v uint32) {
	atomic.StoreUint32((*uint32)(unsafe.Pointer(&b[off])), v)
}

func compareAndSwapU32(b []byte, off int, old, new uint32) bool {
	return atomic.CompareAndSwapUint32((*uint32)(unsafe.Pointer(&b[off])), old, new)
}
