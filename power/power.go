package power

import (
	"context"
	"log"
	"time"

	"github.com/jangala-dev/ubxmodem-go/atclient"
	"github.com/jangala-dev/ubxmodem-go/errcode"
	"github.com/jangala-dev/ubxmodem-go/moduletype"
)

// Pins bundles the three GPIO lines the power sequencer drives/watches
// (spec §6 "Pin contract"): enable (the module's power rail), power-on (the
// momentary pulse pin) and vint (the module's own "I am alive" sense
// line). Any of the three may be power.NoPin.
type Pins struct {
	Enable  GPIOPin
	PowerOn GPIOPin
	VInt    EdgeWatchPin
}

// Controller drives one module's power sequencing and CFUN transitions. It
// holds no reference to a live Client during construction; Attach wires one
// in once the AT transport is up, since power-on itself happens before any
// AT traffic is possible.
type Controller struct {
	caps moduletype.Capabilities
	pins Pins

	sleep sleepState
}

// New returns a Controller bound to a module's capability row and pins.
func New(caps moduletype.Capabilities, pins Pins) *Controller {
	return &Controller{caps: caps, pins: pins, sleep: stateUnavailable}
}

func (c *Controller) configurePins() {
	c.pins.Enable.ConfigureOutput(false)
	c.pins.PowerOn.ConfigureOutput(false)
	c.pins.VInt.ConfigureInput(PullNone)
}

// PowerOn runs the module's power-on sequence: assert enable, wait for the
// rail to settle, pulse power-on, wait for boot, then poll AT until the
// module answers OK (optionally preceded by an autobaud attempt).
func (c *Controller) PowerOn(ctx context.Context, probe func(ctx context.Context) error) error {
	c.configurePins()

	c.pins.Enable.Set(true)
	if !sleepCtx(ctx, c.caps.BootWait) {
		return ctx.Err()
	}

	c.pins.PowerOn.Set(true)
	if !sleepCtx(ctx, c.caps.PowerOnPulse) {
		return ctx.Err()
	}
	c.pins.PowerOn.Set(false)

	if !sleepCtx(ctx, c.caps.BootWait) {
		return ctx.Err()
	}

	c.sleep = stateAvailable
	if probe == nil {
		return nil
	}
	return probe(ctx)
}

// PowerOff runs AT+CPWROFF via client, falling back to a pin pulse and a
// vint-deassert wait if the module does not acknowledge in time. Returns
// errcode.TemporaryFailure (the spec's "reboot_required" signal) when
// neither path confirms the module actually powered down.
func (c *Controller) PowerOff(ctx context.Context, client *atclient.Client) error {
	if client != nil {
		if err := c.tryATPowerOff(client); err == nil {
			c.sleep = stateUnavailable
			return nil
		}
	}

	c.pins.PowerOn.Set(true)
	sleepCtx(ctx, c.caps.PowerOffPulse)
	c.pins.PowerOn.Set(false)

	deadline := time.After(c.caps.VIntDeassertWait)
	for {
		if !c.pins.VInt.Get() {
			c.sleep = stateUnavailable
			return nil
		}
		select {
		case <-deadline:
			log.Printf("power: module did not release vint within %s; reboot required", c.caps.VIntDeassertWait)
			return &errcode.E{C: errcode.TemporaryFailure, Op: "power.off", Msg: "vint did not deassert"}
		case <-time.After(50 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Controller) tryATPowerOff(client *atclient.Client) error {
	if err := client.Lock(); err != nil {
		return err
	}
	defer client.Unlock()
	client.SetTimeout(c.caps.PowerOffTimeout)
	client.CommandStart("AT+CPWROFF")
	if err := client.CommandStop(); err != nil {
		return err
	}
	if err := client.ResponseStart(""); err != nil {
		return err
	}
	return client.ResponseStop()
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
