package transport

import (
	"errors"
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
)

var ErrPortNotFound = errors.New("serial port not found")

// Port 收发链路的最小抽象，串口与 TCP 连接都实现它
type Port interface {
	io.ReadWriteCloser
}

// ListPorts 枚举本机可用串口
func ListPorts() ([]string, error) {
	return serial.GetPortsList()
}

// OpenSerial 打开串口。先枚举确认设备存在，再按 8N1 打开。
// readTimeout > 0 时设置读超时，超时的 Read 返回 (0, nil)。
func OpenSerial(device string, baud int, readTimeout time.Duration) (Port, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("enumerate serial ports: %w", err)
	}
	found := false
	for _, p := range ports {
		if p == device {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrPortNotFound, device)
	}

	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(device, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", device, err)
	}
	if readTimeout > 0 {
		if err := port.SetReadTimeout(readTimeout); err != nil {
			port.Close()
			return nil, fmt.Errorf("set read timeout on %s: %w", device, err)
		}
	}
	return port, nil
}
