// Package auxout models the auxiliary on/off output of the bay panel. It is
// driven by remote commands and is not part of the allocation core.
package auxout

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kristi80/Datakomm-prosjekt-2022/core/logger"
)

// ErrUnknownCommand is returned for payloads other than on and off.
var ErrUnknownCommand = errors.New("unknown aux command")

// State is the current output level.
type State struct {
	On      bool      `json:"on"`
	Changed time.Time `json:"changed"`
}

// Output holds the auxiliary state. It is safe for concurrent use.
type Output struct {
	mu    sync.RWMutex
	state State
	log   logger.Logger
	now   func() time.Time
}

// NewOutput returns an output that starts off.
func NewOutput(log logger.Logger) *Output {
	return &Output{log: log, now: time.Now}
}

// Set changes the output and reports whether it changed.
func (o *Output) Set(on bool) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state.On == on && !o.state.Changed.IsZero() {
		return false
	}
	o.state = State{On: on, Changed: o.now()}
	if o.log != nil {
		o.log.Infof("aux output %s", onOff(on))
	}
	return true
}

// Apply parses an on/off command.
func (o *Output) Apply(cmd string) error {
	switch strings.ToLower(strings.TrimSpace(cmd)) {
	case "on":
		o.Set(true)
	case "off":
		o.Set(false)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd)
	}
	return nil
}

// State returns the current state.
func (o *Output) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// On reports whether the output is on.
func (o *Output) On() bool { return o.State().On }

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
