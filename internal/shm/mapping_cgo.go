//go:build linux

package shm

/*
#cgo LDFLAGS: -lrt -lpthread

#include <sys/mman.h>
#include <sys/stat.h>
#include <fcntl.h>
#include <unistd.h>
#include <stdlib.h>
#include <string.h>
#include <errno.h>
#include <semaphore.h>
#include <time.h>

// pc_shm_create unlinks any stale region of the same name (spec §3: "created
// at owner startup after unlinking any stale region of the same name"),
// then creates and sizes a fresh one. Returns the fd, or -1 on failure.
static int pc_shm_create(const char *name, size_t size) {
	shm_unlink(name);
	int fd = shm_open(name, O_CREAT | O_EXCL | O_RDWR, 0666);
	if (fd < 0) {
		return -1;
	}
	if (ftruncate(fd, (off_t)size) != 0) {
		close(fd);
		shm_unlink(name);
		return -1;
	}
	return fd;
}

// pc_shm_attach opens an existing region read-write. Write permission is
// required even for "read-only" consumers because semaphore operations
// mutate the mapping's internal state (spec §3).
static int pc_shm_attach(const char *name) {
	return shm_open(name, O_RDWR, 0666);
}

static void *pc_shm_map(int fd, size_t size) {
	void *p = mmap(NULL, size, PROT_READ | PROT_WRITE, MAP_SHARED, fd, 0);
	if (p == MAP_FAILED) {
		return NULL;
	}
	return p;
}

static int pc_shm_unmap(void *p, size_t size) {
	return munmap(p, size);
}

static int pc_shm_unlink(const char *name) {
	return shm_unlink(name);
}

// pc_sem_create initializes a named POSIX semaphore with the cross-process
// attribute (named semaphores are always process-shared) and an initial
// count of zero, per spec §4.1.
static sem_t *pc_sem_create(const char *name) {
	sem_unlink(name);
	sem_t *s = sem_open(name, O_CREAT | O_EXCL, 0666, 0);
	if (s == SEM_FAILED) {
		return NULL;
	}
	return s;
}

static sem_t *pc_sem_attach(const char *name) {
	sem_t *s = sem_open(name, 0);
	if (s == SEM_FAILED) {
		return NULL;
	}
	return s;
}

static int pc_sem_post(sem_t *s) {
	return sem_post(s);
}

// pc_sem_wait blocks up to timeout_ms on the semaphore. Returns 0 on a
// genuine post, 1 on timeout (ETIMEDOUT), 2 on interruption (EINTR), -1 on
// any other failure.
static int pc_sem_wait(sem_t *s, long timeout_ms) {
	struct timespec ts;
	if (clock_gettime(CLOCK_REALTIME, &ts) != 0) {
		return -1;
	}
	ts.tv_sec += timeout_ms / 1000;
	ts.tv_nsec += (timeout_ms % 1000) * 1000000L;
	if (ts.tv_nsec >= 1000000000L) {
		ts.tv_sec++;
		ts.tv_nsec -= 1000000000L;
	}

	int rc = sem_timedwait(s, &ts);
	if (rc == 0) {
		return 0;
	}
	if (errno == ETIMEDOUT) {
		return 1;
	}
	if (errno == EINTR) {
		return 2;
	}
	return -1;
}

static int pc_sem_close(sem_t *s) {
	return sem_close(s);
}

static int pc_sem_unlink(const char *name) {
	return sem_unlink(name);
}
*/
import "C"

import (
	"fmt"
	"unsafe"
)

// mapping owns one mmap'd region plus its paired update semaphore. It is
// the single place that talks to the C library; everything above this
// file works with plain Go slices and atomic field accessors.
type mapping struct {
	name    string
	size    int
	fd      C.int
	base    unsafe.Pointer
	sem     *C.sem_t
	owner   bool
	semName string
}

func semNameFor(regionName string) string {
	return regionName + "_sem"
}

// createMapping allocates and zeroes a fresh region of the given size,
// owned by the calling process. Fatal per spec §7: the caller cannot
// proceed without its region.
func createMapping(name string, size int) (*mapping, error) {
	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))

	fd := C.pc_shm_create(cName, C.size_t(size))
	if fd < 0 {
		return nil, fmt.Errorf("shm: create %s: %w", name, ErrAlreadyInUse)
	}

	base := C.pc_shm_map(fd, C.size_t(size))
	if base == nil {
		C.close(fd)
		return nil, fmt.Errorf("shm: mmap %s failed", name)
	}

	// Zero the region explicitly; shm_open+ftruncate already zero-fills on
	// Linux but the spec is explicit that this is a required step, not an
	// OS-specific accident we should rely on silently.
	C.memset(base, 0, C.size_t(size))

	semName := semNameFor(name)
	cSemName := C.CString(semName)
	defer C.free(unsafe.Pointer(cSemName))

	sem := C.pc_sem_create(cSemName)
	if sem == nil {
		C.pc_shm_unmap(base, C.size_t(size))
		C.close(fd)
		return nil, fmt.Errorf("shm: create semaphore for %s failed", name)
	}

	return &mapping{name: name, size: size, fd: fd, base: base, sem: sem, owner: true, semName: semName}, nil
}

// attachMapping opens an existing region read-write and attaches to its
// semaphore. Retries are the caller's responsibility (see openWithRetry in retry.go).
func attachMapping(name string, size int) (*mapping, error) {
	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))

	fd := C.pc_shm_attach(cName)
	if fd < 0 {
		return nil, ErrNotFound
	}

	base := C.pc_shm_map(fd, C.size_t(size))
	if base == nil {
		C.close(fd)
		return nil, fmt.Errorf("shm: mmap %s failed", name)
	}

	semName := semNameFor(name)
	cSemName := C.CString(semName)
	defer C.free(unsafe.Pointer(cSemName))

	sem := C.pc_sem_attach(cSemName)
	if sem == nil {
		C.pc_shm_unmap(base, C.size_t(size))
		C.close(fd)
		return nil, ErrNotFound
	}

	return &mapping{name: name, size: size, fd: fd, base: base, sem: sem, owner: false, semName: semName}, nil
}

// bytes exposes the mapped region as a Go byte slice backed directly by the
// mmap'd memory. Mutations through this slice are visible to every other
// process mapping the same region.
func (m *mapping) bytes() []byte {
	return unsafe.Slice((*byte)(m.base), m.size)
}

// signal posts the update semaphore. Per spec §4.1, signal failure is
// logged and ignored by the caller — it must never abort a publish.
func (m *mapping) signal() error {
	if C.pc_sem_post(m.sem) != 0 {
		return fmt.Errorf("shm: sem_post on %s failed", m.name)
	}
	return nil
}

// wait blocks up to timeoutMs on the update semaphore.
func (m *mapping) wait(timeoutMs int64) WaitResult {
	switch C.pc_sem_wait(m.sem, C.long(timeoutMs)) {
	case 0:
		return WaitNewUpdate
	case 1:
		return WaitTimeout
	case 2:
		return WaitInterrupted
	default:
		return WaitFatal
	}
}

// close detaches from the mapping and semaphore. If this handle owns the
// region, it also unlinks both so that a crash-leftover region can be
// recreated at next startup (spec §3).
func (m *mapping) close(destroy bool) error {
	if m.base == nil {
		return ErrClosed
	}

	C.pc_sem_close(m.sem)
	C.pc_shm_unmap(m.base, C.size_t(m.size))
	C.close(m.fd)

	if destroy && m.owner {
		cName := C.CString(m.name)
		defer C.free(unsafe.Pointer(cName))
		C.pc_shm_unlink(cName)

		cSemName := C.CString(m.semName)
		defer C.free(unsafe.Pointer(cSemName))
		C.pc_sem_unlink(cSemName)
	}

	m.base = nil
	return nil
}
