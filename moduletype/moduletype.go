// Package moduletype holds the compile-time capability table for every
// supported u-blox module. Per spec, all module-specific behavioral
// divergence is expressed as a lookup into this table; there is no other
// runtime dispatch on module identity anywhere in the modem core.
package moduletype

import "time"

// Type is the closed enumeration of supported modules.
type Type string

const (
	SARA_U201      Type = "SARA-U201"
	SARA_R410M_02B Type = "SARA-R410M-02B"
	SARA_R412M_02B Type = "SARA-R412M-02B"
	SARA_R412M_03B Type = "SARA-R412M-03B"
	SARA_R5        Type = "SARA-R5"
	SARA_R410M_03B Type = "SARA-R410M-03B"
	SARA_R422      Type = "SARA-R422"
	LARA_R6        Type = "LARA-R6"
)

// RAT is a bitmask of supported radio access technologies.
type RAT uint8

const (
	RAT_GSM RAT = 1 << iota
	RAT_UMTS
	RAT_CATM1
	RAT_NBIOT
	RAT_EUTRAN // full LTE, distinct from the CatM1/NB-IoT LPWA subsets
)

func (r RAT) Has(bit RAT) bool { return r&bit != 0 }

// Features collects the ~25 per-module boolean capability bits. A struct of
// named bools rather than a raw integer mask, since every reader of this
// package is Go code, not wire protocol.
type Features struct {
	ContextMappingRequired bool // +UPSD/+CGDCONT context id must match the PPP profile
	ThreeGPPPowerSaving    bool // PSM (T3324/T3412) negotiation supported
	RootOfTrust            bool
	MQTT                   bool
	MQTTKeepAlive          bool // latent/unvalidated on SARA-R410M; see Open Questions
	EDRX                   bool
	DTRPowerSaving         bool // latent/unvalidated on SARA-U201; see Open Questions
	AutoBaud               bool
	HardwareFlowControl    bool
	CMUX                   bool
	PPP                    bool
	ChipToChip             bool
	GNSS                   bool
	WiFi                   bool
	BLE                    bool
	Sockets                bool
	HTTP                   bool
	FileSystem             bool
	FOTA                   bool
	SIMHotSwap             bool
	USBECM                 bool
	DualSIM                bool
	CellLocate             bool
	SecureUDP              bool
	SecureTLS              bool
	PowerProfile           bool // +UPSV supported
}

// Capabilities is the immutable per-module behavior row.
type Capabilities struct {
	Type Type

	// Power sequencing (§4.G).
	PowerOnPulse     time.Duration
	PowerOffPulse    time.Duration
	BootWait         time.Duration
	ResetHold        time.Duration
	PowerOffTimeout  time.Duration // AT+CPWROFF response wait before falling back to the pin pulse
	VIntDeassertWait time.Duration // window to observe vint deassert after power-off

	// AT transaction defaults (§4.D).
	ATResponseTimeout time.Duration
	MinCommandGap     time.Duration
	MaxResponseWait   time.Duration

	// CFUN (§4.G).
	MinCFUNGap      time.Duration
	RadioOffCode    int // AT+CFUN=<code> that fully disables the radio
	CFUNExtTimeout  time.Duration // response timeout for any non-1 CFUN target

	// CMUX (§4.E).
	CMUXMaxChannels int
	CMUXATChannel   int
	CMUXPPPChannel  int
	CMUXMaxFrame    int
	CMUXResponseWait time.Duration

	// PPP (§4.H).
	PPPSettleTime  time.Duration
	PPPDialTimeout time.Duration
	PPPHangupWait  time.Duration

	RAT      RAT
	Features Features
}

// Table is the compile-time capability table, keyed by module Type.
var Table = map[Type]Capabilities{
	SARA_U201: {
		Type:              SARA_U201,
		PowerOnPulse:      1 * time.Millisecond,
		PowerOffPulse:     1500 * time.Millisecond,
		BootWait:          6 * time.Second,
		ResetHold:         50 * time.Millisecond,
		PowerOffTimeout:   10 * time.Second,
		VIntDeassertWait:  2 * time.Second,
		ATResponseTimeout: 8 * time.Second,
		MinCommandGap:     20 * time.Millisecond,
		MaxResponseWait:   10 * time.Second,
		MinCFUNGap:        2 * time.Second,
		RadioOffCode:      4,
		CFUNExtTimeout:    25 * time.Second,
		CMUXMaxChannels:   4,
		CMUXATChannel:     1,
		CMUXPPPChannel:    2,
		CMUXMaxFrame:      1509,
		CMUXResponseWait:  5 * time.Second,
		PPPSettleTime:     1 * time.Second,
		PPPDialTimeout:    60 * time.Second,
		PPPHangupWait:     5 * time.Second,
		RAT:               RAT_GSM | RAT_UMTS,
		Features: Features{
			CMUX:                true,
			PPP:                 true,
			AutoBaud:            true,
			HardwareFlowControl: true,
			GNSS:                true,
			Sockets:             true,
			HTTP:                true,
			FileSystem:          true,
			// DTRPowerSaving left disabled: commented out in the original
			// source, never validated.
		},
	},
	SARA_R410M_02B: {
		Type:              SARA_R410M_02B,
		PowerOnPulse:      300 * time.Millisecond,
		PowerOffPulse:     1500 * time.Millisecond,
		BootWait:          3 * time.Second,
		ResetHold:         50 * time.Millisecond,
		PowerOffTimeout:   10 * time.Second,
		VIntDeassertWait:  6 * time.Second,
		ATResponseTimeout: 8 * time.Second,
		MinCommandGap:     20 * time.Millisecond,
		MaxResponseWait:   10 * time.Second,
		MinCFUNGap:        2 * time.Second,
		RadioOffCode:      4,
		CFUNExtTimeout:    40 * time.Second,
		CMUXMaxChannels:   4,
		CMUXATChannel:     1,
		CMUXPPPChannel:    2,
		CMUXMaxFrame:      1509,
		CMUXResponseWait:  5 * time.Second,
		PPPSettleTime:     1 * time.Second,
		PPPDialTimeout:    60 * time.Second,
		PPPHangupWait:     5 * time.Second,
		RAT:               RAT_CATM1 | RAT_NBIOT | RAT_EUTRAN,
		Features: Features{
			ContextMappingRequired: true,
			ThreeGPPPowerSaving:    true,
			CMUX:                   true,
			PPP:                    true,
			EDRX:                   true,
			Sockets:                true,
			// MQTTKeepAlive left disabled: commented out in the original
			// source as a latent, never-validated capability.
		},
	},
	SARA_R412M_02B: {
		Type:              SARA_R412M_02B,
		PowerOnPulse:      300 * time.Millisecond,
		PowerOffPulse:     1500 * time.Millisecond,
		BootWait:          3 * time.Second,
		ResetHold:         50 * time.Millisecond,
		PowerOffTimeout:   10 * time.Second,
		VIntDeassertWait:  6 * time.Second,
		ATResponseTimeout: 8 * time.Second,
		MinCommandGap:     20 * time.Millisecond,
		MaxResponseWait:   10 * time.Second,
		MinCFUNGap:        2 * time.Second,
		RadioOffCode:      4,
		CFUNExtTimeout:    40 * time.Second,
		CMUXMaxChannels:   4,
		CMUXATChannel:     1,
		CMUXPPPChannel:    2,
		CMUXMaxFrame:      1509,
		CMUXResponseWait:  5 * time.Second,
		PPPSettleTime:     1 * time.Second,
		PPPDialTimeout:    60 * time.Second,
		PPPHangupWait:     5 * time.Second,
		RAT:               RAT_GSM | RAT_CATM1 | RAT_NBIOT | RAT_EUTRAN,
		Features: Features{
			ContextMappingRequired: true,
			ThreeGPPPowerSaving:    true,
			CMUX:                   true,
			PPP:                    true,
			EDRX:                   true,
			DualSIM:                true,
			Sockets:                true,
		},
	},
	SARA_R412M_03B: {
		Type:              SARA_R412M_03B,
		PowerOnPulse:      300 * time.Millisecond,
		PowerOffPulse:     1500 * time.Millisecond,
		BootWait:          3 * time.Second,
		ResetHold:         50 * time.Millisecond,
		PowerOffTimeout:   10 * time.Second,
		VIntDeassertWait:  6 * time.Second,
		ATResponseTimeout: 8 * time.Second,
		MinCommandGap:     20 * time.Millisecond,
		MaxResponseWait:   10 * time.Second,
		MinCFUNGap:        2 * time.Second,
		RadioOffCode:      4,
		CFUNExtTimeout:    40 * time.Second,
		CMUXMaxChannels:   4,
		CMUXATChannel:     1,
		CMUXPPPChannel:    2,
		CMUXMaxFrame:      1509,
		CMUXResponseWait:  5 * time.Second,
		PPPSettleTime:     1 * time.Second,
		PPPDialTimeout:    60 * time.Second,
		PPPHangupWait:     5 * time.Second,
		RAT:               RAT_GSM | RAT_CATM1 | RAT_NBIOT | RAT_EUTRAN,
		Features: Features{
			ContextMappingRequired: true,
			ThreeGPPPowerSaving:    true,
			CMUX:                   true,
			PPP:                    true,
			EDRX:                   true,
			DualSIM:                true,
			Sockets:                true,
			SecureTLS:              true,
		},
	},
	SARA_R5: {
		Type:              SARA_R5,
		PowerOnPulse:      1500 * time.Millisecond,
		PowerOffPulse:     1500 * time.Millisecond,
		BootWait:          6 * time.Second,
		ResetHold:         100 * time.Millisecond,
		PowerOffTimeout:   20 * time.Second,
		VIntDeassertWait:  8 * time.Second,
		ATResponseTimeout: 10 * time.Second,
		MinCommandGap:     20 * time.Millisecond,
		MaxResponseWait:   15 * time.Second,
		MinCFUNGap:        2 * time.Second,
		RadioOffCode:      4,
		CFUNExtTimeout:    40 * time.Second,
		CMUXMaxChannels:   6,
		CMUXATChannel:     1,
		CMUXPPPChannel:    2,
		CMUXMaxFrame:      1509,
		CMUXResponseWait:  5 * time.Second,
		PPPSettleTime:     1 * time.Second,
		PPPDialTimeout:    60 * time.Second,
		PPPHangupWait:     5 * time.Second,
		RAT:               RAT_CATM1 | RAT_NBIOT | RAT_EUTRAN,
		Features: Features{
			ContextMappingRequired: true,
			ThreeGPPPowerSaving:    true,
			RootOfTrust:            true,
			CMUX:                   true,
			PPP:                    true,
			ChipToChip:             true,
			EDRX:                   true,
			GNSS:                   true,
			Sockets:                true,
			HTTP:                   true,
			MQTT:                   true,
			FileSystem:             true,
			FOTA:                   true,
			SecureTLS:              true,
			SecureUDP:              true,
			CellLocate:             true,
		},
	},
	SARA_R410M_03B: {
		Type:              SARA_R410M_03B,
		PowerOnPulse:      300 * time.Millisecond,
		PowerOffPulse:     1500 * time.Millisecond,
		BootWait:          3 * time.Second,
		ResetHold:         50 * time.Millisecond,
		PowerOffTimeout:   10 * time.Second,
		VIntDeassertWait:  6 * time.Second,
		ATResponseTimeout: 8 * time.Second,
		MinCommandGap:     20 * time.Millisecond,
		MaxResponseWait:   10 * time.Second,
		MinCFUNGap:        2 * time.Second,
		RadioOffCode:      4,
		CFUNExtTimeout:    40 * time.Second,
		CMUXMaxChannels:   4,
		CMUXATChannel:     1,
		CMUXPPPChannel:    2,
		CMUXMaxFrame:      1509,
		CMUXResponseWait:  5 * time.Second,
		PPPSettleTime:     1 * time.Second,
		PPPDialTimeout:    60 * time.Second,
		PPPHangupWait:     5 * time.Second,
		RAT:               RAT_CATM1 | RAT_NBIOT | RAT_EUTRAN,
		Features: Features{
			ContextMappingRequired: true,
			ThreeGPPPowerSaving:    true,
			CMUX:                   true,
			PPP:                    true,
			EDRX:                   true,
			Sockets:                true,
		},
	},
	SARA_R422: {
		Type:              SARA_R422,
		PowerOnPulse:      150 * time.Millisecond,
		PowerOffPulse:     1500 * time.Millisecond,
		BootWait:          3 * time.Second,
		ResetHold:         50 * time.Millisecond,
		PowerOffTimeout:   10 * time.Second,
		VIntDeassertWait:  6 * time.Second,
		ATResponseTimeout: 8 * time.Second,
		MinCommandGap:     20 * time.Millisecond,
		MaxResponseWait:   10 * time.Second,
		MinCFUNGap:        2 * time.Second,
		RadioOffCode:      4,
		CFUNExtTimeout:    40 * time.Second,
		CMUXMaxChannels:   4,
		CMUXATChannel:     1,
		CMUXPPPChannel:    2,
		CMUXMaxFrame:      1509,
		CMUXResponseWait:  5 * time.Second,
		PPPSettleTime:     1 * time.Second,
		PPPDialTimeout:    60 * time.Second,
		PPPHangupWait:     5 * time.Second,
		RAT:               RAT_GSM | RAT_CATM1 | RAT_NBIOT | RAT_EUTRAN,
		Features: Features{
			ContextMappingRequired: true,
			// ThreeGPPPowerSaving is deliberately false despite hardware
			// support: unresolved issue re-entering sleep after a wake.
			ThreeGPPPowerSaving: false,
			CMUX:                true,
			PPP:                 true,
			EDRX:                true,
			DualSIM:             true,
			Sockets:             true,
			SecureTLS:           true,
		},
	},
	LARA_R6: {
		Type:              LARA_R6,
		PowerOnPulse:      150 * time.Millisecond,
		PowerOffPulse:     1500 * time.Millisecond,
		BootWait:          5 * time.Second,
		ResetHold:         100 * time.Millisecond,
		PowerOffTimeout:   15 * time.Second,
		VIntDeassertWait:  8 * time.Second,
		ATResponseTimeout: 10 * time.Second,
		MinCommandGap:     20 * time.Millisecond,
		MaxResponseWait:   15 * time.Second,
		MinCFUNGap:        2 * time.Second,
		RadioOffCode:      4,
		CFUNExtTimeout:    40 * time.Second,
		CMUXMaxChannels:   6,
		CMUXATChannel:     1,
		CMUXPPPChannel:    2,
		CMUXMaxFrame:      1509,
		CMUXResponseWait:  5 * time.Second,
		PPPSettleTime:     1 * time.Second,
		PPPDialTimeout:    60 * time.Second,
		PPPHangupWait:     5 * time.Second,
		RAT:               RAT_GSM | RAT_UMTS | RAT_EUTRAN,
		Features: Features{
			ThreeGPPPowerSaving: true,
			CMUX:                true,
			PPP:                 true,
			EDRX:                true,
			WiFi:                true,
			BLE:                 true,
			Sockets:             true,
			HTTP:                true,
			FileSystem:          true,
			USBECM:              true,
		},
	},
}

// Lookup returns the capability row for t, and false for an unknown type
// (callers should surface this as errcode.InvalidParam).
func Lookup(t Type) (Capabilities, bool) {
	c, ok := Table[t]
	return c, ok
}
