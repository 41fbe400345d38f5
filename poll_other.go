//go:build !linux

package evloop

import "time"

// chanPoller is the portable park: a buffered channel stands in for the
// eventfd, a timer for the epoll timeout. Timer accuracy is whatever the Go
// runtime provides.
type chanPoller struct {
	wake chan struct{}
}

func newPoller() (poller, error) {
	return &chanPoller{wake: make(chan struct{}, 1)}, nil
}

func (p *chanPoller) wait(msec int) error {
	if msec == 0 {
		select {
		case <-p.wake:
		default:
		}
		return nil
	}
	if msec < 0 {
		<-p.wake
		return nil
	}

	tm := time.NewTimer(time.Duration(msec) * time.Millisecond)
	defer tm.Stop()
	select {
	case <-p.wake:
	case <-tm.C:
	}
	return nil
}

func (p *chanPoller) wakeup() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *chanPoller) close() error {
	return nil
}
