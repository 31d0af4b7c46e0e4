package actuator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// SysfsRoot is where the kernel exposes PWM controllers.
const SysfsRoot = "/sys/class/pwm"

// PWM drives a servo through a Linux sysfs PWM channel. Positions are pulse
// widths in microseconds.
type PWM struct {
	chipDir string
	dir     string
	channel int
	period  time.Duration
}

// OpenPWM exports channel on pwmchip<chip> under root, sets the period and enables output.
func OpenPWM(root string, chip, channel int, period time.Duration) (*PWM, error) {
	if period <= 0 {
		return nil, errors.New("pwm: period must be positive")
	}
	chipDir := filepath.Join(root, fmt.Sprintf("pwmchip%d", chip))
	p := &PWM{
		chipDir: chipDir,
		dir:     filepath.Join(chipDir, fmt.Sprintf("pwm%d", channel)),
		channel: channel,
		period:  period,
	}

	if _, err := os.Stat(p.dir); errors.Is(err, os.ErrNotExist) {
		if err := p.write(filepath.Join(chipDir, "export"), channel); err != nil {
			return nil, fmt.Errorf("pwm: export channel %d: %w", channel, err)
		}
	}
	if err := p.write(filepath.Join(p.dir, "period"), int(period.Nanoseconds())); err != nil {
		return nil, fmt.Errorf("pwm: set period: %w", err)
	}
	if err := p.write(filepath.Join(p.dir, "enable"), 1); err != nil {
		return nil, fmt.Errorf("pwm: enable: %w", err)
	}
	return p, nil
}

// SetPosition sets the pulse width in microseconds, limited to the period.
func (p *PWM) SetPosition(us int) error {
	duty := time.Duration(us) * time.Microsecond
	if duty < 0 {
		duty = 0
	} else if duty > p.period {
		duty = p.period
	}
	if err := p.write(filepath.Join(p.dir, "duty_cycle"), int(duty.Nanoseconds())); err != nil {
		return fmt.Errorf("pwm: set duty cycle: %w", err)
	}
	return nil
}

// Close disables the output and unexports the channel.
func (p *PWM) Close() error {
	var errs []error
	if err := p.write(filepath.Join(p.dir, "enable"), 0); err != nil {
		errs = append(errs, fmt.Errorf("disable: %w", err))
	}
	if err := p.write(filepath.Join(p.chipDir, "unexport"), p.channel); err != nil {
		errs = append(errs, fmt.Errorf("unexport: %w", err))
	}
	return errors.Join(errs...)
}

func (p *PWM) write(path string, v int) error {
	return os.WriteFile(path, []byte(strconv.Itoa(v)), 0o644)
}
