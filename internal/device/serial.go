package device

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// SerialEnumerator lists ports through the OS serial enumerator.
type SerialEnumerator struct{}

func (SerialEnumerator) Ports() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("enumerate serial ports: %w", err)
	}
	ports := make([]PortInfo, 0, len(details))
	for _, d := range details {
		p := PortInfo{Name: d.Name, IsUSB: d.IsUSB}
		if d.IsUSB {
			p.VendorID = parseID(d.VID)
			p.ProductID = parseID(d.PID)
		}
		ports = append(ports, p)
	}
	return ports, nil
}

// parseID reads a hex USB id such as "0483". Unparsable ids become 0,
// which never matches a real descriptor.
func parseID(s string) uint16 {
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0
	}
	return uint16(v)
}

// SerialOpener opens ports at BaudRate with no flow control.
type SerialOpener struct{}

func (SerialOpener) Open(name string) (Link, error) {
	port, err := serial.Open(name, &serial.Mode{BaudRate: BaudRate})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	if err := port.SetReadTimeout(Timeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set timeout on %s: %w", name, err)
	}
	return newSerialLink(port, name, Timeout), nil
}

// serialPort is the part of serial.Port the link uses.
type serialPort interface {
	Write(p []byte) (int, error)
	SetDTR(bool) error
	SetRTS(bool) error
	Close() error
}

type writeResult struct {
	n   int
	err error
}

// serialLink bounds every Write by timeout. The serial driver writes on a
// blocking fd, so the write itself runs on its own goroutine; a write that
// outlives the timeout stays pending and the next Write waits for it
// before sending anything else.
type serialLink struct {
	port    serialPort
	name    string
	timeout time.Duration

	mu      sync.Mutex
	pending chan writeResult
}

func newSerialLink(p serialPort, name string, timeout time.Duration) *serialLink {
	return &serialLink{port: p, name: name, timeout: timeout}
}

func (l *serialLink) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timer := time.NewTimer(l.timeout)
	defer timer.Stop()

	if l.pending != nil {
		select {
		case r := <-l.pending:
			l.pending = nil
			if r.err != nil && !IsTimeout(r.err) {
				return 0, fmt.Errorf("write %s: %w", l.name, r.err)
			}
		case <-timer.C:
			return 0, fmt.Errorf("write %s: previous write still blocked: %w", l.name, ErrWriteTimeout)
		}
	}

	buf := append([]byte(nil), p...)
	done := make(chan writeResult, 1)
	go func() {
		n, err := l.port.Write(buf)
		done <- writeResult{n: n, err: err}
	}()

	select {
	case r := <-done:
		return l.result(r, len(p))
	case <-timer.C:
		l.pending = done
		return 0, fmt.Errorf("write %s: %w", l.name, ErrWriteTimeout)
	}
}

func (l *serialLink) result(r writeResult, want int) (int, error) {
	if r.err != nil {
		if IsTimeout(r.err) {
			return r.n, fmt.Errorf("write %s: %w", l.name, ErrWriteTimeout)
		}
		return r.n, fmt.Errorf("write %s: %w", l.name, r.err)
	}
	if r.n < want {
		return r.n, fmt.Errorf("write %s: %d of %d bytes: %w", l.name, r.n, want, ErrWriteTimeout)
	}
	return r.n, nil
}

func (l *serialLink) SetDTR(v bool) error { return l.port.SetDTR(v) }
func (l *serialLink) SetRTS(v bool) error { return l.port.SetRTS(v) }

// Close releases the port. A write still blocked in the driver is left to
// return on its own; its result is never read.
func (l *serialLink) Close() error { return l.port.Close() }
