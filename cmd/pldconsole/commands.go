package main

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/arloliu/go-pldlink/codec"
	"github.com/arloliu/go-pldlink/dispatcher"
)

// request is one operator command given with -cmd.
type request struct {
	name   string
	submit func(d *dispatcher.Dispatcher, onComplete dispatcher.CompletionFunc) (*dispatcher.Pending, error)
}

// parseRequests parses a comma separated command list, e.g.
//
//	science,debug,config,default-config,control:instrument-1=on,tone,pass:0a0b
//
// "tone" sends the current time; now supplies it.
func parseRequests(list string, now func() time.Time) ([]request, error) {
	var reqs []request

	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		name, arg, _ := strings.Cut(item, ":")
		req := request{name: item}

		switch name {
		case "housekeeping":
			req.submit = func(d *dispatcher.Dispatcher, cb dispatcher.CompletionFunc) (*dispatcher.Pending, error) {
				return d.GetHousekeeping(cb)
			}
		case "science":
			req.submit = func(d *dispatcher.Dispatcher, cb dispatcher.CompletionFunc) (*dispatcher.Pending, error) {
				return d.GetScience(cb)
			}
		case "config":
			req.submit = func(d *dispatcher.Dispatcher, cb dispatcher.CompletionFunc) (*dispatcher.Pending, error) {
				return d.GetConfig(cb)
			}
		case "debug":
			req.submit = func(d *dispatcher.Dispatcher, cb dispatcher.CompletionFunc) (*dispatcher.Pending, error) {
				return d.GetDebug(cb)
			}
		case "default-config":
			req.submit = func(d *dispatcher.Dispatcher, cb dispatcher.CompletionFunc) (*dispatcher.Pending, error) {
				return d.SetDefaultConfig(cb)
			}
		case "control":
			target, enable, err := parseControl(arg)
			if err != nil {
				return nil, err
			}
			req.submit = func(d *dispatcher.Dispatcher, cb dispatcher.CompletionFunc) (*dispatcher.Pending, error) {
				return d.SetControl(target, enable, cb)
			}
		case "tone":
			req.submit = func(d *dispatcher.Dispatcher, cb dispatcher.CompletionFunc) (*dispatcher.Pending, error) {
				return d.SetTimeOfTone(now(), cb)
			}
		case "pass":
			raw, err := hex.DecodeString(arg)
			if err != nil || len(raw) == 0 {
				return nil, fmt.Errorf("pass-through %q: want hex bytes", arg)
			}
			req.submit = func(d *dispatcher.Dispatcher, cb dispatcher.CompletionFunc) (*dispatcher.Pending, error) {
				return d.PassThrough(raw, cb)
			}
		default:
			return nil, fmt.Errorf("unknown command %q", item)
		}

		reqs = append(reqs, req)
	}

	return reqs, nil
}

// parseControl parses "<target>=on|off", target as printed by ControlTarget.String.
func parseControl(arg string) (codec.ControlTarget, bool, error) {
	name, state, ok := strings.Cut(arg, "=")
	if !ok {
		return 0, false, fmt.Errorf("control %q: want <target>=on|off", arg)
	}

	var enable bool
	switch state {
	case "on":
		enable = true
	case "off":
	default:
		return 0, false, fmt.Errorf("control %q: state must be on or off", arg)
	}

	for t := codec.AnalogBoard; t.Valid(); t++ {
		if t.String() == name {
			return t, enable, nil
		}
	}

	return 0, false, fmt.Errorf("control %q: unknown target %q", arg, name)
}
