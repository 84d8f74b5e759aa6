//go:build linux

package port

import (
	"context"
	"sync"

	serial "github.com/daedaluz/goserial"

	"github.com/jangala-dev/ubxmodem-go/ringbuf"
)

// baudToCFlag covers the rates the capability table ever asks for; unknown
// rates fall back to 115200 (the transport's default per spec).
var baudToCFlag = map[uint32]serial.CFlag{
	9600:    serial.B9600,
	19200:   serial.B19200,
	38400:   serial.B38400,
	57600:   serial.B57600,
	115200:  serial.B115200,
	230400:  serial.B230400,
	460800:  serial.B460800,
	921600:  serial.B921600,
}

// UARTPort is the direct-UART Port realization on Linux, built on
// github.com/daedaluz/goserial's termios wrapper (grounded on
// Daedaluz-goserial/port_linux.go). It owns a background reader goroutine
// that stages inbound bytes into a ringbuf.Ring, following the teacher's
// uart_worker.go pump-into-buffer shape.
type UARTPort struct {
	raw    *serial.Port
	rb     *ringbuf.Ring
	cancel context.CancelFunc

	mu         sync.Mutex
	ctsSuspend bool
}

// OpenUART opens cfg.Device in raw 8-N-1 mode at cfg.BaudRate and starts the
// RX pump. hardware flow control is enabled via CRTSCTS when cfg.HWFlowCtrl
// is set.
func OpenUART(cfg Config) (*UARTPort, error) {
	opts := serial.NewOptions()
	if cfg.ReadTimeout > 0 {
		opts.SetReadTimeout(cfg.ReadTimeout)
	}
	raw, err := serial.Open(cfg.Device, opts)
	if err != nil {
		return nil, err
	}

	attrs, err := raw.GetAttr()
	if err != nil {
		raw.Close()
		return nil, err
	}
	attrs.MakeRaw()
	cf, ok := baudToCFlag[cfg.BaudRate]
	if !ok {
		cf = serial.B115200
	}
	attrs.SetSpeed(cf)
	attrs.Cflag |= serial.CREAD | serial.CLOCAL
	if cfg.HWFlowCtrl {
		attrs.Cflag |= serial.CRTSCTS
	}
	if err := raw.SetAttr(serial.TCSANOW, attrs); err != nil {
		raw.Close()
		return nil, err
	}

	rxSize := cfg.RXBufSize
	if rxSize <= 0 {
		rxSize = 4096
	}
	u := &UARTPort{raw: raw, rb: ringbuf.New(rxSize)}

	ctx, cancel := context.WithCancel(context.Background())
	u.cancel = cancel
	runReader(ctx, raw, u.rb, 256)
	return u, nil
}

func (u *UARTPort) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	return u.raw.Write(p)
}

func (u *UARTPort) Read(p []byte) (int, error) { return u.rb.TryReadInto(p), nil }

func (u *UARTPort) Readable() <-chan struct{} { return u.rb.Readable() }

func (u *UARTPort) Buffered() int { return u.rb.Available() }

func (u *UARTPort) Close() error {
	u.cancel()
	return u.raw.Close()
}

// SuspendCTS clears RTS/CTS flow control observation, used by the power
// controller's wake-on-tx hook so a sleeping module cannot wedge the line.
func (u *UARTPort) SuspendCTS() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.ctsSuspend {
		return nil
	}
	attrs, err := u.raw.GetAttr()
	if err != nil {
		return err
	}
	attrs.Cflag &^= serial.CRTSCTS
	if err := u.raw.SetAttr(serial.TCSANOW, attrs); err != nil {
		return err
	}
	u.ctsSuspend = true
	return nil
}

// ResumeCTS restores RTS/CTS flow control after a wake sequence completes.
func (u *UARTPort) ResumeCTS() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if !u.ctsSuspend {
		return nil
	}
	attrs, err := u.raw.GetAttr()
	if err != nil {
		return err
	}
	attrs.Cflag |= serial.CRTSCTS
	if err := u.raw.SetAttr(serial.TCSANOW, attrs); err != nil {
		return err
	}
	u.ctsSuspend = false
	return nil
}
