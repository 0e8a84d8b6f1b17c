package dispatcher

import (
	"time"

	"github.com/arloliu/go-pldlink/codec"
)

// GetHousekeeping submits a housekeeping request.
func (d *Dispatcher) GetHousekeeping(onComplete CompletionFunc) (*Pending, error) {
	return d.Submit(codec.GetHousekeeping(), onComplete)
}

// GetScience submits a science data request.
func (d *Dispatcher) GetScience(onComplete CompletionFunc) (*Pending, error) {
	return d.Submit(codec.GetScience(), onComplete)
}

// GetConfig submits a configuration table request.
func (d *Dispatcher) GetConfig(onComplete CompletionFunc) (*Pending, error) {
	return d.Submit(codec.GetConfig(), onComplete)
}

// GetDebug submits a debug counters request.
func (d *Dispatcher) GetDebug(onComplete CompletionFunc) (*Pending, error) {
	return d.Submit(codec.GetDebug(), onComplete)
}

// SetDefaultConfig submits a factory configuration restore.
func (d *Dispatcher) SetDefaultConfig(onComplete CompletionFunc) (*Pending, error) {
	return d.Submit(codec.SetDefaultConfig(), onComplete)
}

// SetConfig submits a configuration table write.
func (d *Dispatcher) SetConfig(table codec.ConfigTable, onComplete CompletionFunc) (*Pending, error) {
	cmd, err := codec.SetConfig(table)
	if err != nil {
		return nil, err
	}

	return d.Submit(cmd, onComplete)
}

// SetControl submits a power switch of target.
func (d *Dispatcher) SetControl(target codec.ControlTarget, enable bool, onComplete CompletionFunc) (*Pending, error) {
	cmd, err := codec.SetControl(target, enable)
	if err != nil {
		return nil, err
	}

	return d.Submit(cmd, onComplete)
}

// SetTimeOfTone submits the time of the next tone.
func (d *Dispatcher) SetTimeOfTone(tone time.Time, onComplete CompletionFunc) (*Pending, error) {
	cmd, err := codec.SetTimeOfTone(tone)
	if err != nil {
		return nil, err
	}

	return d.Submit(cmd, onComplete)
}

// PassThrough submits raw bytes for the instrument.
func (d *Dispatcher) PassThrough(raw []byte, onComplete CompletionFunc) (*Pending, error) {
	cmd, err := codec.PassThrough(raw)
	if err != nil {
		return nil, err
	}

	return d.Submit(cmd, onComplete)
}
