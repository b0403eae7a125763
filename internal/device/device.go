// Package device finds the monitor device among serial endpoints and
// opens the link to it.
package device

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// Descriptor identifies a USB device by vendor and product id.
type Descriptor struct {
	VendorID  uint16
	ProductID uint16
}

// Target is the device the bridge streams to (STM32 virtual COM port).
var Target = Descriptor{VendorID: 0x0483, ProductID: 0x5740}

func (d Descriptor) String() string { return fmt.Sprintf("%04x:%04x", d.VendorID, d.ProductID) }

// Link settings. 8-N-1 comes from the transport default.
const (
	BaudRate = 115200
	Timeout  = 1000 * time.Millisecond
)

// PortInfo describes one serial endpoint.
type PortInfo struct {
	Name      string
	IsUSB     bool
	VendorID  uint16
	ProductID uint16
}

// Matches reports whether p is a USB endpoint with exactly d's ids.
func (d Descriptor) Matches(p PortInfo) bool {
	return p.IsUSB && p.VendorID == d.VendorID && p.ProductID == d.ProductID
}

// Find returns the first port matching d.
func Find(ports []PortInfo, d Descriptor) (PortInfo, bool) {
	for _, p := range ports {
		if d.Matches(p) {
			return p, true
		}
	}
	return PortInfo{}, false
}

// Enumerator lists the serial endpoints currently attached.
type Enumerator interface {
	Ports() ([]PortInfo, error)
}

// Link is an open serial connection.
type Link interface {
	io.WriteCloser
	SetDTR(bool) error
	SetRTS(bool) error
}

// Opener opens a configured Link to a named endpoint.
type Opener interface {
	Open(name string) (Link, error)
}

// ErrWriteTimeout is returned by Link.Write when the frame could not be
// written within Timeout. The link is still usable.
var ErrWriteTimeout = errors.New("serial write timed out")

// IsTimeout reports whether err is a write timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, ErrWriteTimeout) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
