//go:build linux

package evloop

import (
	"sync/atomic"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"

	"braces.dev/errtrace"
)

var (
	wakeV      int64 = 1
	wakeWriteV       = (*(*[8]byte)(unsafe.Pointer(&wakeV)))[:]
)

// epollPoller parks the loop in epoll_wait. The only registered fd is an
// eventfd used to interrupt the wait from other goroutines.
type epollPoller struct {
	efd int // epoll fd
	wfd int // eventfd

	wakePending atomic.Int32 // dedups wakeup writes between waits
	events      [4]syscall.EpollEvent
}

func newPoller() (poller, error) {
	efd, err := syscall.EpollCreate1(syscall.EPOLL_CLOEXEC)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	// since Linux 2.6.27
	wfd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		syscall.Close(efd)
		return nil, errtrace.Wrap(err)
	}

	ev := syscall.EpollEvent{
		Events: syscall.EPOLLIN,
		Fd:     int32(wfd),
	}
	if err := syscall.EpollCtl(efd, syscall.EPOLL_CTL_ADD, wfd, &ev); err != nil {
		syscall.Close(wfd)
		syscall.Close(efd)
		return nil, errtrace.Wrap(err)
	}

	return &epollPoller{efd: efd, wfd: wfd}, nil
}

func (p *epollPoller) wait(msec int) error {
	for {
		n, err := syscall.EpollWait(p.efd, p.events[:], msec)
		if err != nil {
			if err == syscall.EINTR {
				msec = 0 // don't restart a full sleep after a signal
				continue
			}
			return errtrace.Wrap(err)
		}
		for i := 0; i < n; i++ {
			if int(p.events[i].Fd) == p.wfd {
				p.drainWake()
			}
		}
		return nil
	}
}

func (p *epollPoller) drainWake() {
	var v int64
	buf := (*(*[8]byte)(unsafe.Pointer(&v)))[:]
	syscall.Read(p.wfd, buf) // man 2 eventfd: resets the counter
	p.wakePending.Store(0)
}

func (p *epollPoller) wakeup() {
	if !p.wakePending.CompareAndSwap(0, 1) {
		return
	}
	for {
		n, err := syscall.Write(p.wfd, wakeWriteV)
		if n == 8 || err == syscall.EAGAIN {
			return
		}
		if err == syscall.EINTR {
			continue
		}
		return
	}
}

func (p *epollPoller) close() error {
	err1 := syscall.Close(p.wfd)
	err2 := syscall.Close(p.efd)
	if err1 != nil {
		return errtrace.Wrap(err1)
	}
	return errtrace.Wrap(err2)
}
