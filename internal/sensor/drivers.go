package sensor

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/tphakala/sentinel-go/internal/errors"
)

// SysfsDoorContact reads a door reed switch through the sysfs GPIO
// interface. The pin must be exported and configured as an input before
// the daemon starts, typically from a udev rule or boot script.
type SysfsDoorContact struct {
	Pin int
}

// NewSysfsDoorContact creates a door contact reader for a GPIO pin.
func NewSysfsDoorContact(pin int) *SysfsDoorContact {
	return &SysfsDoorContact{Pin: pin}
}

func (c *SysfsDoorContact) valuePath() string {
	return fmt.Sprintf("/sys/class/gpio/gpio%d/value", c.Pin)
}

// IsOpen reports whether the contact circuit is broken.
func (c *SysfsDoorContact) IsOpen() (bool, error) {
	raw, err := os.ReadFile(c.valuePath())
	if err != nil {
		return false, errors.Newf("reading GPIO %d: %w", c.Pin, err).
			Component("sensor").
			Category(errors.CategorySensor).
			Build()
	}
	return strings.TrimSpace(string(raw)) == "1", nil
}

// DeviceTagReader reads NFC credentials line by line from a character
// device or FIFO fed by the reader hardware.
type DeviceTagReader struct {
	Path string
}

// NewDeviceTagReader creates a tag reader draining the device at path.
func NewDeviceTagReader(path string) *DeviceTagReader {
	return &DeviceTagReader{Path: path}
}

// ReadTag blocks until the reader emits a credential line or the context
// is cancelled.
func (r *DeviceTagReader) ReadTag(ctx context.Context) (string, error) {
	file, err := os.Open(r.Path)
	if err != nil {
		return "", errors.Newf("opening tag reader %s: %w", r.Path, err).
			Component("sensor").
			Category(errors.CategorySensor).
			Build()
	}

	type result struct {
		credential string
		err        error
	}
	done := make(chan result, 1)
	go func() {
		defer file.Close()
		line, err := bufio.NewReader(file).ReadString('\n')
		if err != nil {
			done <- result{err: err}
			return
		}
		done <- result{credential: strings.TrimSpace(line)}
	}()

	select {
	case <-ctx.Done():
		// Unblock the pending read.
		file.Close()
		return "", ctx.Err()
	case res := <-done:
		if res.err != nil {
			return "", errors.Newf("reading tag: %w", res.err).
				Component("sensor").
				Category(errors.CategorySensor).
				Build()
		}
		return res.credential, nil
	}
}

// ExecEnvironmentSensor samples a DHT22 by running a helper binary that
// prints "temperature humidity" as two integers.
type ExecEnvironmentSensor struct {
	Command string
	Pin     int
}

// NewExecEnvironmentSensor creates an environment sensor using the helper
// command for the given GPIO pin.
func NewExecEnvironmentSensor(command string, pin int) *ExecEnvironmentSensor {
	return &ExecEnvironmentSensor{Command: command, Pin: pin}
}

// Read runs the helper and parses its output.
func (s *ExecEnvironmentSensor) Read() (int, int, error) {
	output, err := exec.Command(s.Command, strconv.Itoa(s.Pin)).Output()
	if err != nil {
		return 0, 0, errors.Newf("environment helper failed: %w", err).
			Component("sensor").
			Category(errors.CategorySensor).
			Build()
	}

	fields := strings.Fields(string(output))
	if len(fields) != 2 {
		return 0, 0, errors.Newf("unexpected environment helper output: %q", output).
			Component("sensor").
			Category(errors.CategorySensor).
			Build()
	}
	temperature, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0, errors.Newf("parsing temperature %q: %w", fields[0], err).
			Component("sensor").
			Category(errors.CategorySensor).
			Build()
	}
	humidity, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, errors.Newf("parsing humidity %q: %w", fields[1], err).
			Component("sensor").
			Category(errors.CategorySensor).
			Build()
	}
	return temperature, humidity, nil
}
